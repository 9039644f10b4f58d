// Copyright (C) 2025 WAGMI Tech (dev@upwagmitec.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package retrieval provides the scored-retrieval primitives of the answer
// pipeline: a common Retriever contract, Weaviate-backed implementations for
// the chat-history and assistant-document corpora, a single-level fallback
// wrapper for topic-filtered queries, and a concurrent combined retriever
// that fans out across independent sources.
package retrieval

import (
	"context"
	"errors"
	"fmt"
)

// NodeMetadata is the typed metadata attached to a retrieved node.
//
// # Description
//
// Every retriever validates and fills this schema at the retrieval boundary
// so downstream heuristics can rely on field presence instead of probing
// loosely-typed maps. Fields that do not apply to a source are zero.
type NodeMetadata struct {
	// NodeID is the stored object's ID in the vector store.
	NodeID string `json:"nodeId,omitempty"`

	// ConversationID scopes chat-history nodes to a conversation.
	ConversationID string `json:"conversationId,omitempty"`

	// AssistantID scopes assistant-document nodes to an assistant.
	AssistantID string `json:"assistantId,omitempty"`

	// Topic is the topic label the node is tagged with, if any.
	Topic string `json:"topic,omitempty"`

	// Role is "user" or "assistant" for chat-history nodes.
	Role string `json:"role,omitempty"`

	// Timestamp is Unix milliseconds; 0 when the source carries none.
	Timestamp int64 `json:"timestamp,omitempty"`

	// Source names the corpus the node came from (e.g. "chat_history",
	// "assistant_documents").
	Source string `json:"source"`
}

// ScoredNode is a single retrieval match.
//
// # Description
//
// Score is in [0, 1] and is only meaningful relative to other nodes from the
// same source; scores are never compared across sources. Nodes are read-only
// and discarded after the request that produced them.
type ScoredNode struct {
	Text     string       `json:"text"`
	Score    float64      `json:"score"`
	Metadata NodeMetadata `json:"metadata"`
}

// Retriever returns scored matches for a query.
//
// # Description
//
// Retriever is the capability consumed by the orchestration layer: given a
// query string, return an ordered list of scored text matches. Implementations
// decide corpus, filtering, and ranking internally.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type Retriever interface {
	// Retrieve returns scored matches for the query.
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation and timeout.
	//   - query: Free-text query.
	//
	// # Outputs
	//
	//   - []ScoredNode: Matches ordered by the source's own ranking.
	//     Empty slice when nothing matches; never nil on success.
	//   - error: Non-nil if the underlying backend call failed.
	Retrieve(ctx context.Context, query string) ([]ScoredNode, error)
}

// EmbeddingProvider computes vector embeddings for text.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type EmbeddingProvider interface {
	// Embed computes a vector embedding for the given text.
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation and timeout.
	//   - text: The text to embed.
	//
	// # Outputs
	//
	//   - []float32: The embedding vector.
	//   - error: Non-nil if embedding fails.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// RetrievalError wraps a backend failure with enough detail for handlers
// to choose a status code and retry strategy.
type RetrievalError struct {
	StatusCode int
	Message    string
	Retryable  bool
}

// Error implements the error interface for RetrievalError.
func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval error (status %d): %s", e.StatusCode, e.Message)
}

// IsRetrievalError checks if an error is a RetrievalError.
//
// # Description
//
// Type assertion helper for RetrievalError. Useful for determining the
// appropriate HTTP status code or retry strategy in handlers.
func IsRetrievalError(err error) (*RetrievalError, bool) {
	var re *RetrievalError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
