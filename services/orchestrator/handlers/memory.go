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
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wagmi-upschool/up-ai-sub000/services/orchestrator/datatypes"
	"github.com/wagmi-upschool/up-ai-sub000/services/orchestrator/memory"
	"github.com/wagmi-upschool/up-ai-sub000/services/orchestrator/observability"
)

// saveTurnTimeout bounds the background persistence of one chat turn. The
// request that triggered it has already been answered by then.
const saveTurnTimeout = 30 * time.Second

// MemoryContextResponse is the wire response for a memory context build.
type MemoryContextResponse struct {
	Context *memory.ConversationContext `json:"context"`
	Prompt  string                      `json:"prompt"`
}

// HandleMemoryContext builds the conversation context block for a prompt.
//
// # Description
//
// Runs the extraction pipeline over the conversation's stored messages and
// returns both the structured context and the rendered prompt block.
// Extraction never fails outward: a conversation with no reachable history
// yields the well-defined empty context.
func HandleMemoryContext(extractor *memory.Extractor) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "HandleMemoryContext")
		defer span.End()

		var request datatypes.MemoryContextRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to bind memory context request JSON", "error", err)
			observability.CountRequest("memory_context", "400")
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		span.SetAttributes(attribute.String("conversation_id", request.ConversationID))

		conversationContext := extractor.Context(ctx, request.ConversationID, request.MaxMessages, request.MaxTokens)
		span.SetAttributes(
			attribute.Int("messages", conversationContext.Metadata.RetrievedMessages),
			attribute.String("topic", conversationContext.Context.CurrentTopic.Topic),
		)

		observability.CountRequest("memory_context", "200")
		c.JSON(http.StatusOK, MemoryContextResponse{
			Context: conversationContext,
			Prompt:  memory.ContextPrompt(conversationContext),
		})
	}
}

// HandleSaveTurn persists one completed user/assistant exchange.
//
// # Description
//
// Embedding and writing the turn chunk is slow work that must not block the
// caller, so the handler validates the request, acknowledges with 202, and
// persists in a detached goroutine with its own deadline. A failed save is
// logged, never surfaced; the conversation simply has one less recallable
// turn.
func HandleSaveTurn(saver memory.TurnSaver) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, span := tracer.Start(c.Request.Context(), "HandleSaveTurn")
		defer span.End()

		var request datatypes.SaveTurnRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to bind save turn request JSON", "error", err)
			observability.CountRequest("memory_save", "400")
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		span.SetAttributes(attribute.String("conversation_id", request.ConversationID))

		// The save outlives the request, so it gets its own root span linked
		// back to the request trace.
		link := trace.LinkFromContext(c.Request.Context())
		go func(req datatypes.SaveTurnRequest) {
			ctx, cancel := context.WithTimeout(context.Background(), saveTurnTimeout)
			defer cancel()
			ctx, saveSpan := tracer.Start(ctx, "HandleSaveTurn.background", trace.WithLinks(link))
			defer saveSpan.End()

			if err := saver.SaveTurn(ctx, req.ConversationID, req.AssistantID, req.UserMessage, req.AIMessage, req.Topic); err != nil {
				saveSpan.RecordError(err)
				slog.Error("Failed to save chat turn",
					"conversationId", req.ConversationID, "error", err)
			}
		}(request)

		observability.CountRequest("memory_save", "202")
		c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
	}
}
