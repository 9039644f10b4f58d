// Copyright (C) 2025 WAGMI Tech (dev@upwagmitec.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package memory

import (
	"context"
	"errors"
	"testing"
	"time"
)

// sourceFunc adapts a function to the MessageSource interface.
type sourceFunc func(ctx context.Context, conversationID string, limit int) ([]Message, error)

func (f sourceFunc) Messages(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	return f(ctx, conversationID, limit)
}

func TestExtractorReturnsEmptyContextOnSourceError(t *testing.T) {
	source := sourceFunc(func(ctx context.Context, conversationID string, limit int) ([]Message, error) {
		return nil, errors.New("weaviate unreachable")
	})
	extractor := NewExtractor(source, DefaultExtractorConfig())

	cc := extractor.Context(context.Background(), "conv_1", 0, 0)
	if cc == nil {
		t.Fatal("context must never be nil")
	}
	if cc.ConversationID != "conv_1" {
		t.Errorf("conversationId = %q, want conv_1", cc.ConversationID)
	}
	if cc.Context.CurrentTopic.Topic != "general" {
		t.Errorf("topic = %q, want general", cc.Context.CurrentTopic.Topic)
	}
	if cc.Context.ConversationFlow.Phase != "starting" {
		t.Errorf("phase = %q, want starting", cc.Context.ConversationFlow.Phase)
	}
	if len(cc.Messages) != 0 {
		t.Errorf("messages = %d, want 0", len(cc.Messages))
	}
}

func TestExtractorReturnsEmptyContextOnNoHistory(t *testing.T) {
	source := sourceFunc(func(ctx context.Context, conversationID string, limit int) ([]Message, error) {
		return []Message{}, nil
	})
	extractor := NewExtractor(source, DefaultExtractorConfig())

	cc := extractor.Context(context.Background(), "conv_1", 0, 0)
	if cc.Metadata.TotalMessages != 0 {
		t.Errorf("totalMessages = %d, want 0", cc.Metadata.TotalMessages)
	}
}

func TestExtractorBuildsContext(t *testing.T) {
	// Out of order on purpose; the extractor must restore chronology.
	history := []Message{
		{Role: "user", Content: "inner join anlamadım", Timestamp: 3},
		{Role: "user", Content: "sql öğrenmek istiyorum", Timestamp: 1},
		{Role: "assistant", Content: "select ile başlayalım", Timestamp: 2},
		{Role: "user", Content: "hala anlamadım, çok zor", Timestamp: 4},
	}
	source := sourceFunc(func(ctx context.Context, conversationID string, limit int) ([]Message, error) {
		return history, nil
	})
	extractor := NewExtractor(source, DefaultExtractorConfig())

	cc := extractor.Context(context.Background(), "conv_2", 0, 0)

	if cc.Metadata.TotalMessages != 4 {
		t.Fatalf("totalMessages = %d, want 4", cc.Metadata.TotalMessages)
	}
	if cc.Messages[0].Timestamp != 1 || cc.Messages[len(cc.Messages)-1].Timestamp != 4 {
		t.Error("messages are not in chronological order")
	}
	if cc.Context.CurrentTopic.Topic != "sql_basics" {
		t.Errorf("topic = %q, want sql_basics", cc.Context.CurrentTopic.Topic)
	}
	if !cc.Context.StrugglePattern.IsStruggling {
		t.Error("expected struggle pattern to flag two struggle messages")
	}
	if cc.Context.ConversationFlow.Phase != "struggling" {
		t.Errorf("phase = %q, want struggling", cc.Context.ConversationFlow.Phase)
	}
	if len(cc.Context.UserProfile.Goals) != 1 {
		t.Errorf("goals = %d, want 1", len(cc.Context.UserProfile.Goals))
	}
	if cc.Metadata.TokenEstimate <= 0 {
		t.Error("token estimate should be positive")
	}
}

func TestExtractorOrdersTimestamplessMessageLast(t *testing.T) {
	// Stored timestamps are Unix milliseconds. A message saved without one
	// must not sort to the front on a second-scale fallback value.
	now := time.Now().UnixMilli()
	history := []Message{
		{Role: "assistant", Content: "harika, select yazdın", Timestamp: now - 10_000},
		{Role: "user", Content: "select * from users denedim", Timestamp: now - 5_000},
		{Role: "user", Content: "anlamadım, bu çok zor, yardım", Timestamp: 0},
	}
	source := sourceFunc(func(ctx context.Context, conversationID string, limit int) ([]Message, error) {
		return history, nil
	})
	extractor := NewExtractor(source, DefaultExtractorConfig())

	cc := extractor.Context(context.Background(), "conv_4", 0, 0)

	last := cc.Messages[len(cc.Messages)-1]
	if last.Content != "anlamadım, bu çok zor, yardım" {
		t.Fatalf("last message = %q, want the timestampless struggle turn", last.Content)
	}
	if last.Timestamp < now {
		t.Errorf("fallback timestamp = %d, want milliseconds >= %d", last.Timestamp, now)
	}
	if cc.Context.ConversationFlow.Phase != "struggling" {
		t.Errorf("phase = %q, want struggling", cc.Context.ConversationFlow.Phase)
	}
}

func TestExtractorPassesOverridesToSource(t *testing.T) {
	var gotLimit int
	source := sourceFunc(func(ctx context.Context, conversationID string, limit int) ([]Message, error) {
		gotLimit = limit
		return []Message{}, nil
	})
	extractor := NewExtractor(source, ExtractorConfig{MaxMessages: 30, MaxTokens: 3000})

	extractor.Context(context.Background(), "conv_3", 12, 500)
	if gotLimit != 12 {
		t.Errorf("limit = %d, want override 12", gotLimit)
	}

	extractor.Context(context.Background(), "conv_3", 0, 0)
	if gotLimit != 30 {
		t.Errorf("limit = %d, want configured default 30", gotLimit)
	}
}

func TestValidateExtractorConfig(t *testing.T) {
	config := validateExtractorConfig(ExtractorConfig{MaxMessages: -1, MaxTokens: 0})
	if config.MaxMessages != 30 {
		t.Errorf("MaxMessages = %d, want default 30", config.MaxMessages)
	}
	if config.MaxTokens != 3000 {
		t.Errorf("MaxTokens = %d, want default 3000", config.MaxTokens)
	}
}
