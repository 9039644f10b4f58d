// Copyright (C) 2025 WAGMI Tech (dev@upwagmitec.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package memory

import (
	"strings"
	"testing"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		content string
		want    int
	}{
		{"", 0},
		{"abcd", 1},
		{"abcde", 2},
		{strings.Repeat("a", 100), 25},
	}
	for _, tt := range tests {
		if got := estimateTokens(tt.content); got != tt.want {
			t.Errorf("estimateTokens(%q) = %d, want %d", tt.content, got, tt.want)
		}
	}
}

func TestTrimToBudgetKeepsNewestFirst(t *testing.T) {
	// Each message is 40 chars, 10 tokens.
	content := strings.Repeat("m", 40)
	var messages []Message
	for i := 1; i <= 10; i++ {
		messages = append(messages, Message{Role: "user", Content: content, Timestamp: int64(i)})
	}

	// Budget for 8 messages, but the six-message floor does not trigger.
	trimmed := trimToBudget(messages, 80)
	if len(trimmed) != 8 {
		t.Fatalf("trimmed = %d messages, want 8", len(trimmed))
	}
	if trimmed[0].Timestamp != 3 || trimmed[len(trimmed)-1].Timestamp != 10 {
		t.Errorf("kept window [%d, %d], want [3, 10]",
			trimmed[0].Timestamp, trimmed[len(trimmed)-1].Timestamp)
	}
}

func TestTrimToBudgetCapsWidgetMessages(t *testing.T) {
	widget := `{"widgetType":"TopicSelectionMessage","selected":"X","padding":"` +
		strings.Repeat("w", 4000) + `"}`
	messages := []Message{
		{Role: "user", Content: widget, Timestamp: 1},
		{Role: "user", Content: "kısa mesaj", Timestamp: 2},
	}

	// A raw estimate of the widget would blow this budget; the cap keeps it.
	trimmed := trimToBudget(messages, 200)
	if len(trimmed) != 2 {
		t.Fatalf("trimmed = %d messages, want 2", len(trimmed))
	}
}

func TestTrimToBudgetKeepsWidgetsPastBudget(t *testing.T) {
	long := strings.Repeat("x", 400) // 100 tokens
	widget := `{"widgetType":"InputMessageComponent","data":"` + strings.Repeat("w", 400) + `"}`
	messages := []Message{
		{Role: "user", Content: widget, Timestamp: 1},
		{Role: "user", Content: long, Timestamp: 2},
		{Role: "user", Content: long, Timestamp: 3},
		{Role: "user", Content: long, Timestamp: 4},
		{Role: "user", Content: long, Timestamp: 5},
		{Role: "user", Content: long, Timestamp: 6},
		{Role: "user", Content: long, Timestamp: 7},
	}

	// Budget covers the last six long messages only; the widget is kept anyway.
	trimmed := trimToBudget(messages, 600)
	found := false
	for _, m := range trimmed {
		if m.Timestamp == 1 {
			found = true
		}
	}
	if !found {
		t.Error("expected the widget message to survive past the budget")
	}
}

func TestTrimToBudgetFloorsAtSixMessages(t *testing.T) {
	long := strings.Repeat("x", 4000)
	var messages []Message
	for i := 1; i <= 8; i++ {
		messages = append(messages, Message{Role: "user", Content: long, Timestamp: int64(i)})
	}

	trimmed := trimToBudget(messages, 100)
	if len(trimmed) != 6 {
		t.Fatalf("trimmed = %d messages, want the six-message floor", len(trimmed))
	}
	if trimmed[0].Timestamp != 3 {
		t.Errorf("floor window starts at %d, want 3", trimmed[0].Timestamp)
	}
}

func TestTrimToBudgetEmpty(t *testing.T) {
	if got := trimToBudget(nil, 100); len(got) != 0 {
		t.Errorf("trimToBudget(nil) = %v, want empty", got)
	}
}
