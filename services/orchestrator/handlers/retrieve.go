// Copyright (C) 2025 WAGMI Tech (dev@upwagmitec.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wagmi-upschool/up-ai-sub000/services/orchestrator/assistant"
	"github.com/wagmi-upschool/up-ai-sub000/services/orchestrator/datatypes"
	"github.com/wagmi-upschool/up-ai-sub000/services/orchestrator/observability"
	"github.com/wagmi-upschool/up-ai-sub000/services/orchestrator/retrieval"
	"github.com/wagmi-upschool/up-ai-sub000/services/orchestrator/topic"
)

var tracer = otel.Tracer("upai.orchestrator.handlers")

// =============================================================================
// Retriever Factory
// =============================================================================

// RetrieverFactory builds the per-request retrievers the pipeline needs.
//
// # Description
//
// Handlers construct retrievers per request because the conversation, the
// assistant, and the resolved topic all flow into the backend filters.
// Function fields keep the construction swappable in tests.
type RetrieverFactory struct {
	// History returns a retriever scoped to one conversation's messages.
	History func(conversationID string) retrieval.Retriever

	// Document returns a retriever over an assistant's documents. An empty
	// topicLabel means no topic filter.
	Document func(assistantID, topicLabel string) retrieval.Retriever
}

// NewWeaviateRetrieverFactory wires the factory to the weaviate-backed
// retrievers using a shared client, embedder, and search config.
func NewWeaviateRetrieverFactory(client *weaviate.Client, embedder retrieval.EmbeddingProvider, config retrieval.SearchConfig) RetrieverFactory {
	return RetrieverFactory{
		History: func(conversationID string) retrieval.Retriever {
			return retrieval.NewChatHistoryRetriever(client, embedder, conversationID, config)
		},
		Document: func(assistantID, topicLabel string) retrieval.Retriever {
			return retrieval.NewAssistantDocumentRetriever(client, embedder, assistantID, topicLabel, config)
		},
	}
}

// =============================================================================
// Response Types
// =============================================================================

// RetrieveResponse is the wire response for topic-aware retrieval.
type RetrieveResponse struct {
	Topic      string                 `json:"topic"`
	TotalFound int                    `json:"totalFound"`
	Results    []retrieval.ScoredNode `json:"results"`
}

// =============================================================================
// Handler
// =============================================================================

// HandleRetrieve runs the topic-aware retrieval pipeline for one query.
//
// # Description
//
// The pipeline resolves the turn's topic first (query text, then history,
// then the conversation's cached topic), and then fans out over the
// assistant's documents and the conversation history. The topic-filtered
// document retriever is wrapped in a fallback to the unfiltered one, so an
// over-narrow topic never empties the response.
//
// # Inputs
//
//   - factory: Per-request retriever construction.
//   - detector: Topic resolution with cache write-through.
//   - options: Catalogue of valid topic labels per assistant.
//
// # Outputs
//
//   - gin.HandlerFunc: POST handler consuming datatypes.RetrieveRequest.
func HandleRetrieve(factory RetrieverFactory, detector *topic.Detector, options assistant.OptionsProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "HandleRetrieve")
		defer span.End()

		var request datatypes.RetrieveRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to bind retrieve request JSON", "error", err)
			observability.CountRequest("retrieve", "400")
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		span.SetAttributes(
			attribute.String("conversation_id", request.ConversationID),
			attribute.String("assistant_id", request.AssistantID),
		)

		start := time.Now()
		catalogue := loadCatalogue(ctx, options, request.AssistantID)

		// The history fetch serves double duty: it feeds topic recovery and
		// joins the combined result set.
		historyRetriever := factory.History(request.ConversationID)
		historyNodes, err := historyRetriever.Retrieve(ctx, request.Query)
		if err != nil {
			slog.Warn("Chat history retrieval failed, continuing without history",
				"conversationId", request.ConversationID, "error", err)
			historyNodes = nil
		}

		topicLabel := detector.Resolve(request.Query, toHistoryNodes(historyNodes), catalogue, request.ConversationID)
		span.SetAttributes(attribute.String("topic", topicLabel))

		documents := factory.Document(request.AssistantID, topicLabel)
		if topicLabel != "" {
			documents = retrieval.NewFallbackRetriever(documents, factory.Document(request.AssistantID, ""))
		}

		combined := retrieval.NewCombinedRetriever(documents, staticRetriever(historyNodes))
		nodes, err := combined.Retrieve(ctx, request.Query)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Combined retrieval failed", "conversationId", request.ConversationID, "error", err)
			observability.CountRequest("retrieve", "500")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Retrieval failed"})
			return
		}

		observability.CountRequest("retrieve", "200")
		observability.ObserveRetrievalDuration("retrieve", time.Since(start).Seconds())
		c.JSON(http.StatusOK, RetrieveResponse{
			Topic:      topicLabel,
			TotalFound: len(nodes),
			Results:    nodes,
		})
	}
}

// =============================================================================
// Helper Functions
// =============================================================================

// loadCatalogue fetches the assistant's topic options; a failed fetch means
// an empty catalogue, not a failed request.
func loadCatalogue(ctx context.Context, options assistant.OptionsProvider, assistantID string) []topic.CatalogueEntry {
	if options == nil {
		return nil
	}
	opts, err := options.Options(ctx, assistantID)
	if err != nil {
		slog.Warn("Topic catalogue unavailable, retrieval proceeds unfiltered",
			"assistantId", assistantID, "error", err)
		return nil
	}
	return topic.NewCatalogue(assistant.Labels(opts))
}

func toHistoryNodes(nodes []retrieval.ScoredNode) []topic.HistoryNode {
	history := make([]topic.HistoryNode, 0, len(nodes))
	for _, node := range nodes {
		history = append(history, topic.HistoryNode{
			Role:      node.Metadata.Role,
			Content:   node.Text,
			Timestamp: node.Metadata.Timestamp,
		})
	}
	return history
}

// staticRetriever replays an already-fetched result set, so the combined
// pass does not query the history class a second time.
type staticRetriever []retrieval.ScoredNode

var _ retrieval.Retriever = (staticRetriever)(nil)

func (s staticRetriever) Retrieve(_ context.Context, _ string) ([]retrieval.ScoredNode, error) {
	if s == nil {
		return []retrieval.ScoredNode{}, nil
	}
	return s, nil
}
