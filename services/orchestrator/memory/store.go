// Copyright (C) 2025 WAGMI Tech (dev@upwagmitec.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wagmi-upschool/up-ai-sub000/services/orchestrator/datatypes"
	"github.com/wagmi-upschool/up-ai-sub000/services/orchestrator/retrieval"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("upai.orchestrator.memory")

// probeQuery is the broad query used to pull a conversation's messages out of
// the vector store. The conversation filter does the real scoping; the query
// only has to produce a usable ranking.
const probeQuery = "conversation message history context"

// chronologicalFallbackCap bounds how many messages the sorted fallback query
// fetches regardless of the caller's limit.
const chronologicalFallbackCap = 20

// MessageSource fetches a conversation's messages in chronological order.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type MessageSource interface {
	// Messages returns up to limit messages for the conversation, oldest
	// first. An empty slice means the conversation has no usable history.
	Messages(ctx context.Context, conversationID string, limit int) ([]Message, error)
}

// TurnSaver persists a completed exchange for later retrieval.
type TurnSaver interface {
	// SaveTurn stores one user/assistant exchange as a single chunk.
	SaveTurn(ctx context.Context, conversationID, assistantID, userMessage, aiMessage, topic string) error
}

// Store reads and writes conversation history in the ChatMessage class.
//
// # Description
//
// Reads go through a similarity probe scoped to the conversation, which
// returns the whole conversation in one round trip. When the probe fails or
// finds nothing, Store falls back to a timestamp-sorted query capped at 20
// messages. Writes store each exchange as one combined chunk so a single
// stored object carries both sides of the turn.
type Store struct {
	client   *weaviate.Client
	embedder retrieval.EmbeddingProvider
	config   retrieval.SearchConfig
}

var _ MessageSource = (*Store)(nil)
var _ TurnSaver = (*Store)(nil)

// NewStore creates a conversation history store.
//
// # Inputs
//
//   - client: Weaviate client for database access.
//   - embedder: Provider for computing embeddings.
//   - config: Search configuration shared with the retrievers.
func NewStore(client *weaviate.Client, embedder retrieval.EmbeddingProvider, config retrieval.SearchConfig) *Store {
	return &Store{client: client, embedder: embedder, config: config}
}

// Messages fetches up to limit messages for a conversation, oldest first.
//
// # Description
//
// The primary path retrieves via the vector index with a conversation filter
// and the broad probe query, drops empty results, and restores chronological
// order. Any probe failure or an empty probe result degrades to the
// chronological fallback query with the limit capped at 20.
//
// # Outputs
//
//   - []Message: Chronologically ordered messages; empty when the
//     conversation has no retrievable history.
//   - error: Non-nil only when both the probe and the fallback fail.
func (s *Store) Messages(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	ctx, span := tracer.Start(ctx, "Store.Messages")
	defer span.End()
	span.SetAttributes(
		attribute.String("conversation_id", conversationID),
		attribute.Int("limit", limit),
	)

	searchConfig := s.config
	searchConfig.TopK = limit
	retriever := retrieval.NewChatHistoryRetriever(s.client, s.embedder, conversationID, searchConfig)

	nodes, err := retriever.Retrieve(ctx, probeQuery)
	if err != nil {
		slog.Warn("Vector history probe failed, using chronological fallback",
			"conversationId", conversationID, "error", err)
		return s.chronologicalMessages(ctx, conversationID, min(limit, chronologicalFallbackCap))
	}
	if len(nodes) == 0 {
		slog.Debug("Vector history probe found nothing, using chronological fallback",
			"conversationId", conversationID)
		return s.chronologicalMessages(ctx, conversationID, min(limit, chronologicalFallbackCap))
	}

	messages := make([]Message, 0, len(nodes))
	for _, node := range nodes {
		if strings.TrimSpace(node.Text) == "" {
			continue
		}
		messages = append(messages, Message{
			ID:        node.Metadata.NodeID,
			Role:      roleOrDefault(node.Metadata.Role),
			Content:   node.Text,
			Timestamp: node.Metadata.Timestamp,
		})
	}

	sortMessagesAscending(messages)
	if len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}

	slog.Debug("Retrieved conversation history",
		"conversationId", conversationID, "count", len(messages))
	return messages, nil
}

// chronologicalMessages fetches the newest messages by timestamp and returns
// them oldest first.
func (s *Store) chronologicalMessages(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	where := filters.Where().
		WithPath([]string{"conversation_id"}).
		WithOperator(filters.Equal).
		WithValueString(conversationID)

	sortByNewest := graphql.Sort{Path: []string{"timestamp"}, Order: graphql.Desc}

	result, err := s.client.GraphQL().Get().
		WithClassName("ChatMessage").
		WithFields(
			graphql.Field{Name: "conversation_id"},
			graphql.Field{Name: "assistant_id"},
			graphql.Field{Name: "role"},
			graphql.Field{Name: "content"},
			graphql.Field{Name: "topic"},
			graphql.Field{Name: "timestamp"},
			graphql.Field{Name: "_additional", Fields: []graphql.Field{{Name: "id"}}},
		).
		WithWhere(where).
		WithSort(sortByNewest).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		slog.Error("Chronological history query failed",
			"conversationId", conversationID, "error", err)
		return nil, fmt.Errorf("failed to fetch conversation history: %w", err)
	}

	parsed, err := datatypes.ParseGraphQLResponse[datatypes.ChatMessageQueryResponse](result)
	if err != nil {
		slog.Error("Failed to parse conversation history", "error", err)
		return nil, fmt.Errorf("failed to parse conversation history: %w", err)
	}

	results := parsed.Get.ChatMessage
	messages := make([]Message, 0, len(results))
	// Query order is newest first; walk backwards to restore chronology.
	for i := len(results) - 1; i >= 0; i-- {
		m := results[i]
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		messages = append(messages, Message{
			ID:        m.Additional.ID,
			Role:      roleOrDefault(m.Role),
			Content:   m.Content,
			Timestamp: m.Timestamp,
		})
	}
	return messages, nil
}

// SaveTurn stores a completed exchange as one ChatMessage chunk.
//
// # Description
//
// The user message and the assistant reply are combined into a single chunk
// so one stored vector covers the full turn. The chunk is embedded and
// written with conversation, assistant, and topic metadata.
func (s *Store) SaveTurn(ctx context.Context, conversationID, assistantID, userMessage, aiMessage, topic string) error {
	ctx, span := tracer.Start(ctx, "Store.SaveTurn")
	defer span.End()
	span.SetAttributes(attribute.String("conversation_id", conversationID))

	chunk := fmt.Sprintf("User: %s\nAI: %s", userMessage, aiMessage)
	vector, err := s.embedder.Embed(ctx, chunk)
	if err != nil {
		slog.Error("Failed to embed conversation turn",
			"conversationId", conversationID, "error", err)
		return fmt.Errorf("failed to embed conversation turn: %w", err)
	}

	props := datatypes.ChatMessageProperties{
		ConversationID: conversationID,
		AssistantID:    assistantID,
		Role:           "user",
		Content:        chunk,
		Topic:          topic,
		Timestamp:      time.Now().UnixMilli(),
	}

	_, err = s.client.Data().Creator().
		WithClassName("ChatMessage").
		WithID(uuid.New().String()).
		WithProperties(props.ToMap()).
		WithVector(vector).
		Do(ctx)
	if err != nil {
		slog.Error("Failed to save conversation turn",
			"conversationId", conversationID, "error", err)
		return fmt.Errorf("failed to save conversation turn: %w", err)
	}

	slog.Debug("Saved conversation turn",
		"conversationId", conversationID, "topic", topic)
	return nil
}

// roleOrDefault normalizes a stored role, defaulting unknown values to user.
func roleOrDefault(role string) string {
	switch role {
	case "user", "assistant":
		return role
	default:
		return "user"
	}
}
