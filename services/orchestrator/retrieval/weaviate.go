// Copyright (C) 2025 WAGMI Tech (dev@upwagmitec.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/wagmi-upschool/up-ai-sub000/services/orchestrator/datatypes"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("upai.orchestrator.retrieval")

// SearchConfig holds tunables shared by the Weaviate retrievers.
//
// # Example
//
//	config := DefaultSearchConfig()
//	config.TopK = 50
type SearchConfig struct {
	// TopK is the maximum number of nodes a single retriever returns.
	// Default: 100
	TopK int

	// MaxEmbedLength is the maximum characters to embed for search queries.
	// Longer text is truncated. Default: 2000
	MaxEmbedLength int
}

// DefaultSearchConfig returns the default retriever configuration.
//
// # Description
//
// Values can be overridden via environment variables:
//   - RETRIEVAL_TOP_K (default: 100)
//   - RETRIEVAL_MAX_EMBED_LENGTH (default: 2000)
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		TopK:           getEnvInt("RETRIEVAL_TOP_K", 100),
		MaxEmbedLength: getEnvInt("RETRIEVAL_MAX_EMBED_LENGTH", 2000),
	}
}

// validateSearchConfig validates and corrects retriever configuration values.
// Logs warnings for invalid values and applies sensible defaults.
func validateSearchConfig(config SearchConfig) SearchConfig {
	defaults := DefaultSearchConfig()

	if config.TopK < 1 {
		slog.Warn("Invalid TopK config, using default",
			"provided", config.TopK, "default", defaults.TopK)
		config.TopK = defaults.TopK
	}

	if config.MaxEmbedLength < 1 {
		slog.Warn("Invalid MaxEmbedLength config, using default",
			"provided", config.MaxEmbedLength, "default", defaults.MaxEmbedLength)
		config.MaxEmbedLength = defaults.MaxEmbedLength
	}

	return config
}

// fieldFilter is one equality predicate over a metadata property.
type fieldFilter struct {
	path  string
	value string
}

// WeaviateRetriever retrieves scored nodes from one Weaviate class.
//
// # Description
//
// WeaviateRetriever embeds the query, issues a nearVector search against its
// class with the configured equality filters, and maps results into typed
// ScoredNodes. Use NewChatHistoryRetriever or NewAssistantDocumentRetriever
// to construct one scoped to the right corpus.
//
// # Thread Safety
//
// WeaviateRetriever is safe for concurrent use. The underlying Weaviate
// client handles connection pooling.
//
// # Example
//
//	r := NewChatHistoryRetriever(client, embedder, "conv_42", DefaultSearchConfig())
//	nodes, err := r.Retrieve(ctx, "liderlik")
type WeaviateRetriever struct {
	client     *weaviate.Client
	embedder   EmbeddingProvider
	className  string
	sourceName string
	filters    []fieldFilter
	config     SearchConfig
}

var _ Retriever = (*WeaviateRetriever)(nil)

// NewChatHistoryRetriever creates a retriever over the ChatMessage class
// scoped to a single conversation.
//
// # Inputs
//
//   - client: Weaviate client for database access.
//   - embedder: Provider for computing query embeddings.
//   - conversationID: Conversation to search within.
//   - config: Search configuration (use DefaultSearchConfig() for defaults).
func NewChatHistoryRetriever(client *weaviate.Client, embedder EmbeddingProvider, conversationID string, config SearchConfig) *WeaviateRetriever {
	return &WeaviateRetriever{
		client:     client,
		embedder:   embedder,
		className:  "ChatMessage",
		sourceName: "chat_history",
		filters:    []fieldFilter{{path: "conversation_id", value: conversationID}},
		config:     validateSearchConfig(config),
	}
}

// NewAssistantDocumentRetriever creates a retriever over the AssistantDocument
// class scoped to an assistant and, optionally, a topic.
//
// # Inputs
//
//   - client: Weaviate client for database access.
//   - embedder: Provider for computing query embeddings.
//   - assistantID: Assistant whose documents to search.
//   - topicLabel: Topic filter; empty string applies no topic filter.
//   - config: Search configuration.
func NewAssistantDocumentRetriever(client *weaviate.Client, embedder EmbeddingProvider, assistantID, topicLabel string, config SearchConfig) *WeaviateRetriever {
	fieldFilters := []fieldFilter{{path: "assistant_id", value: assistantID}}
	if topicLabel != "" {
		fieldFilters = append(fieldFilters, fieldFilter{path: "topic", value: topicLabel})
	}
	return &WeaviateRetriever{
		client:     client,
		embedder:   embedder,
		className:  "AssistantDocument",
		sourceName: "assistant_documents",
		filters:    fieldFilters,
		config:     validateSearchConfig(config),
	}
}

// Retrieve embeds the query and runs a filtered nearVector search.
//
// # Outputs
//
//   - []ScoredNode: Matches ordered by certainty, highest first. Empty
//     slice when nothing matches.
//   - error: Non-nil if embedding or the Weaviate call fails.
func (r *WeaviateRetriever) Retrieve(ctx context.Context, query string) ([]ScoredNode, error) {
	ctx, span := tracer.Start(ctx, "WeaviateRetriever.Retrieve")
	defer span.End()
	span.SetAttributes(
		attribute.String("class_name", r.className),
		attribute.Int("top_k", r.config.TopK),
	)

	truncatedQuery := query
	if len(query) > r.config.MaxEmbedLength {
		truncatedQuery = query[:r.config.MaxEmbedLength]
		slog.Debug("Truncated query for embedding",
			"originalLen", len(query), "truncatedLen", len(truncatedQuery))
	}

	vector, err := r.embedder.Embed(ctx, truncatedQuery)
	if err != nil {
		slog.Error("Failed to embed query for retrieval", "class", r.className, "error", err)
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	nearVector := r.client.GraphQL().NearVectorArgBuilder().WithVector(vector)

	result, err := r.client.GraphQL().Get().
		WithClassName(r.className).
		WithFields(r.queryFields()...).
		WithWhere(r.whereFilter()).
		WithNearVector(nearVector).
		WithLimit(r.config.TopK).
		Do(ctx)
	if err != nil {
		slog.Error("Weaviate search failed", "class", r.className, "error", err)
		return nil, &RetrievalError{
			StatusCode: 502,
			Message:    fmt.Sprintf("weaviate search failed for %s: %v", r.className, err),
			Retryable:  true,
		}
	}

	nodes, err := r.parseResults(result)
	if err != nil {
		return nil, err
	}

	slog.Debug("Retrieved scored nodes", "class", r.className, "count", len(nodes))
	return nodes, nil
}

// whereFilter builds the combined equality filter for this retriever.
// A single predicate is used directly; multiple are joined with And.
func (r *WeaviateRetriever) whereFilter() *filters.WhereBuilder {
	builders := make([]*filters.WhereBuilder, 0, len(r.filters))
	for _, f := range r.filters {
		builders = append(builders, filters.Where().
			WithPath([]string{f.path}).
			WithOperator(filters.Equal).
			WithValueString(f.value))
	}
	if len(builders) == 1 {
		return builders[0]
	}
	return filters.Where().
		WithOperator(filters.And).
		WithOperands(builders)
}

func (r *WeaviateRetriever) queryFields() []graphql.Field {
	additional := graphql.Field{Name: "_additional", Fields: []graphql.Field{
		{Name: "id"},
		{Name: "certainty"},
	}}

	switch r.className {
	case "ChatMessage":
		return []graphql.Field{
			{Name: "conversation_id"},
			{Name: "assistant_id"},
			{Name: "role"},
			{Name: "content"},
			{Name: "topic"},
			{Name: "timestamp"},
			additional,
		}
	default:
		return []graphql.Field{
			{Name: "assistant_id"},
			{Name: "content"},
			{Name: "source"},
			{Name: "topic"},
			{Name: "timestamp"},
			additional,
		}
	}
}

func (r *WeaviateRetriever) parseResults(result *models.GraphQLResponse) ([]ScoredNode, error) {
	switch r.className {
	case "ChatMessage":
		parsed, err := datatypes.ParseGraphQLResponse[datatypes.ChatMessageQueryResponse](result)
		if err != nil {
			slog.Error("Failed to parse chat message results", "error", err)
			return nil, fmt.Errorf("failed to parse results: %w", err)
		}
		nodes := make([]ScoredNode, 0, len(parsed.Get.ChatMessage))
		for _, m := range parsed.Get.ChatMessage {
			nodes = append(nodes, ScoredNode{
				Text:  m.Content,
				Score: certaintyScore(m.Additional.Certainty),
				Metadata: NodeMetadata{
					NodeID:         m.Additional.ID,
					ConversationID: m.ConversationID,
					AssistantID:    m.AssistantID,
					Topic:          m.Topic,
					Role:           m.Role,
					Timestamp:      m.Timestamp,
					Source:         r.sourceName,
				},
			})
		}
		return nodes, nil
	default:
		parsed, err := datatypes.ParseGraphQLResponse[datatypes.AssistantDocumentQueryResponse](result)
		if err != nil {
			slog.Error("Failed to parse assistant document results", "error", err)
			return nil, fmt.Errorf("failed to parse results: %w", err)
		}
		nodes := make([]ScoredNode, 0, len(parsed.Get.AssistantDocument))
		for _, d := range parsed.Get.AssistantDocument {
			nodes = append(nodes, ScoredNode{
				Text:  d.Content,
				Score: certaintyScore(d.Additional.Certainty),
				Metadata: NodeMetadata{
					NodeID:      d.Additional.ID,
					AssistantID: d.AssistantID,
					Topic:       d.Topic,
					Timestamp:   d.Timestamp,
					Source:      r.sourceName,
				},
			})
		}
		return nodes, nil
	}
}

// certaintyScore converts an optional Weaviate certainty into a score.
// Certainty is always [0, 1]; missing certainty maps to 0.
func certaintyScore(certainty *float32) float64 {
	if certainty == nil {
		return 0
	}
	return float64(*certainty)
}

// getEnvInt returns an environment variable as int, or defaultVal if not set/invalid.
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
