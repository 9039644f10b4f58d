// Copyright (C) 2025 WAGMI Tech (dev@upwagmitec.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package memory

import (
	"context"
	"log/slog"
	"os"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
)

// recentAnalysisWindow is how many trailing messages the per-request signals
// (current topic, flow, struggle) are computed over. Profile, history, and
// progress always scan the full retrieved window.
const recentAnalysisWindow = 15

// ExtractorConfig holds the context extraction tunables.
type ExtractorConfig struct {
	// MaxMessages is the number of messages fetched per conversation.
	// Default: 30
	MaxMessages int

	// MaxTokens is the token budget for the trimmed history. Default: 3000
	MaxTokens int
}

// DefaultExtractorConfig returns the default extraction configuration.
//
// # Description
//
// Values can be overridden via environment variables:
//   - MEMORY_MAX_MESSAGES (default: 30)
//   - MEMORY_MAX_TOKENS (default: 3000)
func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		MaxMessages: getEnvInt("MEMORY_MAX_MESSAGES", 30),
		MaxTokens:   getEnvInt("MEMORY_MAX_TOKENS", 3000),
	}
}

// validateExtractorConfig validates and corrects extraction configuration.
// Logs warnings for invalid values and applies sensible defaults.
func validateExtractorConfig(config ExtractorConfig) ExtractorConfig {
	defaults := DefaultExtractorConfig()

	if config.MaxMessages < 1 {
		slog.Warn("Invalid MaxMessages config, using default",
			"provided", config.MaxMessages, "default", defaults.MaxMessages)
		config.MaxMessages = defaults.MaxMessages
	}

	if config.MaxTokens < 1 {
		slog.Warn("Invalid MaxTokens config, using default",
			"provided", config.MaxTokens, "default", defaults.MaxTokens)
		config.MaxTokens = defaults.MaxTokens
	}

	return config
}

// Extractor builds conversation contexts from stored history.
//
// # Description
//
// Extractor fetches a conversation's messages through its MessageSource,
// runs the analysis passes over them, trims the history to the token budget,
// and packages everything as a ConversationContext. Retrieval failure is not
// fatal: the answer pipeline degrades to an empty context rather than
// refusing to answer.
//
// # Thread Safety
//
// Extractor is safe for concurrent use; it holds no per-request state.
//
// # Example
//
//	extractor := NewExtractor(store, DefaultExtractorConfig())
//	cc := extractor.Context(ctx, "conv_42", 0, 0)
//	prompt := ContextPrompt(cc)
type Extractor struct {
	source MessageSource
	config ExtractorConfig
}

// NewExtractor creates a context extractor.
//
// # Inputs
//
//   - source: Where conversation messages come from.
//   - config: Extraction configuration (use DefaultExtractorConfig() for
//     defaults).
func NewExtractor(source MessageSource, config ExtractorConfig) *Extractor {
	return &Extractor{source: source, config: validateExtractorConfig(config)}
}

// Context reconstructs the conversation context for one conversation.
//
// # Inputs
//
//   - ctx: Context for cancellation and timeout.
//   - conversationID: Conversation to reconstruct.
//   - maxMessages: Per-request override for the fetch window; 0 uses the
//     configured default.
//   - maxTokens: Per-request override for the token budget; 0 uses the
//     configured default.
//
// # Outputs
//
//   - *ConversationContext: Never nil. When retrieval fails or the
//     conversation is empty, the empty context (topic "general", phase
//     "starting") is returned so callers always have something to render.
func (e *Extractor) Context(ctx context.Context, conversationID string, maxMessages, maxTokens int) *ConversationContext {
	ctx, span := tracer.Start(ctx, "Extractor.Context")
	defer span.End()
	span.SetAttributes(attribute.String("conversation_id", conversationID))

	if maxMessages <= 0 {
		maxMessages = e.config.MaxMessages
	}
	if maxTokens <= 0 {
		maxTokens = e.config.MaxTokens
	}

	messages, err := e.source.Messages(ctx, conversationID, maxMessages)
	if err != nil {
		slog.Warn("Conversation history unavailable, using empty context",
			"conversationId", conversationID, "error", err)
		span.SetAttributes(attribute.Bool("empty_context", true))
		return EmptyContext(conversationID)
	}
	if len(messages) == 0 {
		return EmptyContext(conversationID)
	}

	for i := range messages {
		messages[i].Timestamp = unixOrNow(messages[i].Timestamp)
	}
	sortMessagesAscending(messages)

	recent := messages
	if len(recent) > recentAnalysisWindow {
		recent = recent[len(recent)-recentAnalysisWindow:]
	}

	trimmed := trimToBudget(messages, maxTokens)

	cc := &ConversationContext{
		ConversationID: conversationID,
		Messages:       trimmed,
		Context: ContextData{
			CurrentTopic:     detectCurrentTopic(recent),
			UserProfile:      extractUserProfile(messages),
			ConversationFlow: analyzeConversationFlow(recent),
			TopicHistory:     extractTopicHistory(messages),
			WidgetSelections: extractWidgetSelections(messages),
			LearningProgress: analyzeLearningProgress(messages),
			StrugglePattern:  analyzeStrugglePattern(recent),
			MessageCount:     len(messages),
		},
		Metadata: ContextMetadata{
			TotalMessages:     len(messages),
			RetrievedMessages: len(trimmed),
			TokenEstimate:     estimateTotalTokens(trimmed),
		},
	}

	slog.Debug("Built conversation context",
		"conversationId", conversationID,
		"messages", len(messages),
		"trimmed", len(trimmed),
		"topic", cc.Context.CurrentTopic.Topic,
		"struggling", cc.Context.StrugglePattern.IsStruggling)
	return cc
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
