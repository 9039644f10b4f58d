// Copyright (C) 2025 WAGMI Tech (dev@upwagmitec.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// RetrieveRequest is the wire request for topic-aware context retrieval.
// The notblank rule is registered by the handlers package.
type RetrieveRequest struct {
	Query          string `json:"query" binding:"required,notblank"`
	ConversationID string `json:"conversationId" binding:"required,notblank"`
	AssistantID    string `json:"assistantId" binding:"required,notblank"`
}

// MemoryContextRequest is the wire request for building a conversation context block.
type MemoryContextRequest struct {
	ConversationID string `json:"conversationId" binding:"required,notblank"`
	MaxMessages    int    `json:"maxMessages" binding:"omitempty,gte=1,lte=100"`
	MaxTokens      int    `json:"maxTokens" binding:"omitempty,gte=1"`
}

// RecommendRequest is the wire request for agent recommendation.
type RecommendRequest struct {
	Query   string `json:"query" binding:"required"`
	ShowAll bool   `json:"showAll"`
}

// RecommendConfigRequest mutates the ranker's runtime knobs.
// Pointer fields distinguish "absent" from zero values.
type RecommendConfigRequest struct {
	SimilarityThreshold *float64 `json:"similarityThreshold" binding:"omitempty"`
	MaxResults          *int     `json:"maxResults" binding:"omitempty"`
}

// SaveTurnRequest persists one completed user/assistant exchange.
type SaveTurnRequest struct {
	ConversationID string `json:"conversationId" binding:"required,notblank"`
	AssistantID    string `json:"assistantId" binding:"required,notblank"`
	UserMessage    string `json:"userMessage" binding:"required"`
	AIMessage      string `json:"aiMessage" binding:"required"`
	Topic          string `json:"topic"`
}
