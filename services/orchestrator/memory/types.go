// Copyright (C) 2025 WAGMI Tech (dev@upwagmitec.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package memory reconstructs conversational context from stored chat
// history. It retrieves a conversation's messages, derives learning signals
// from them (topic, skill level, struggle patterns, widget selections), trims
// the history to a token budget, and renders the result as a prompt block the
// answer pipeline prepends to the system prompt.
package memory

import (
	"sort"
	"time"
)

// Message is one stored conversation turn.
type Message struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// CurrentTopic is the dominant learning topic of the recent messages.
type CurrentTopic struct {
	Topic      string   `json:"topic"`
	Confidence float64  `json:"confidence"`
	DetectedIn string   `json:"detectedIn,omitempty"`
	Keywords   []string `json:"keywords"`
}

// SkillLevel is a detected self-reported proficiency.
type SkillLevel struct {
	Level      string  `json:"level"`
	Confidence float64 `json:"confidence"`
	DetectedAt int64   `json:"detectedAt"`
}

// LearningApproach is the user's stated preference between new material and
// review.
type LearningApproach struct {
	Approach   string  `json:"approach"`
	Confidence float64 `json:"confidence"`
	DetectedAt int64   `json:"detectedAt"`
}

// Goal is a literal learning goal quoted from a user message.
type Goal struct {
	Goal      string `json:"goal"`
	Timestamp int64  `json:"timestamp"`
}

// UserProfile aggregates what the conversation reveals about the user.
type UserProfile struct {
	SkillLevel       *SkillLevel       `json:"skillLevel"`
	LearningApproach *LearningApproach `json:"learningApproach"`
	TopicPreferences []string          `json:"topicPreferences"`
	Goals            []Goal            `json:"goals"`
}

// TopicSegment is a contiguous run of messages on one topic.
type TopicSegment struct {
	Topic         string   `json:"topic"`
	StartedAt     int64    `json:"startedAt"`
	EndedAt       int64    `json:"endedAt,omitempty"`
	MessageCount  int      `json:"messageCount"`
	Keywords      []string `json:"keywords"`
	UserStruggled bool     `json:"userStruggled"`
}

// WidgetSelection is a choice the user made through an interactive widget.
type WidgetSelection struct {
	Type      string   `json:"type"`
	Question  string   `json:"question,omitempty"`
	Selection string   `json:"selection"`
	Options   []string `json:"options,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

// LearningProgress summarizes question and answer outcomes.
type LearningProgress struct {
	ConceptsLearned []string `json:"conceptsLearned"`
	StrugglingWith  []string `json:"strugglingWith"`
	ProgressScore   float64  `json:"progressScore"`
}

// StrugglePattern tracks confusion signals in the recent user messages.
type StrugglePattern struct {
	IsStruggling        bool   `json:"isStruggling"`
	StruggleCount       int    `json:"struggleCount"`
	StrugglesInLastFive int    `json:"strugglesInLastFive"`
	LastStruggleMessage string `json:"lastStruggleMessage,omitempty"`
	NeedsHelp           bool   `json:"needsHelp"`
}

// ConversationFlow captures the current interaction phase.
type ConversationFlow struct {
	Phase           string `json:"phase"`
	LastInteraction string `json:"lastInteraction"`
	LearningContext string `json:"learningContext,omitempty"`
	MessagePattern  string `json:"messagePattern"`
}

// ContextData groups all derived signals for one conversation.
type ContextData struct {
	CurrentTopic     CurrentTopic      `json:"currentTopic"`
	UserProfile      UserProfile       `json:"userProfile"`
	ConversationFlow ConversationFlow  `json:"conversationFlow"`
	TopicHistory     []TopicSegment    `json:"topicHistory"`
	WidgetSelections []WidgetSelection `json:"widgetSelections"`
	LearningProgress LearningProgress  `json:"learningProgress"`
	StrugglePattern  StrugglePattern   `json:"strugglePattern"`
	MessageCount     int               `json:"messageCount"`
}

// ContextMetadata describes how much history survived retrieval and trimming.
type ContextMetadata struct {
	TotalMessages     int `json:"totalMessages"`
	RetrievedMessages int `json:"retrievedMessages"`
	TokenEstimate     int `json:"tokenEstimate"`
}

// ConversationContext is the full reconstructed memory for one conversation.
// Messages holds the budget-trimmed history in chronological order.
type ConversationContext struct {
	ConversationID string          `json:"conversationId"`
	Messages       []Message       `json:"messages"`
	Context        ContextData     `json:"context"`
	Metadata       ContextMetadata `json:"metadata"`
}

// EmptyContext returns the context used when no history can be retrieved.
func EmptyContext(conversationID string) *ConversationContext {
	return &ConversationContext{
		ConversationID: conversationID,
		Messages:       []Message{},
		Context: ContextData{
			CurrentTopic: CurrentTopic{Topic: "general", Confidence: 0.3, Keywords: []string{}},
			UserProfile: UserProfile{
				TopicPreferences: []string{},
				Goals:            []Goal{},
			},
			ConversationFlow: ConversationFlow{
				Phase:           "starting",
				LastInteraction: "none",
				MessagePattern:  "insufficient_data",
			},
			TopicHistory:     []TopicSegment{},
			WidgetSelections: []WidgetSelection{},
			LearningProgress: LearningProgress{
				ConceptsLearned: []string{},
				StrugglingWith:  []string{},
				ProgressScore:   0.5,
			},
		},
	}
}

// sortMessagesAscending orders messages oldest first. Retrieval returns
// similarity order, so callers must restore chronology before analysis.
func sortMessagesAscending(messages []Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp < messages[j].Timestamp
	})
}

// unixOrNow falls back to the current time for messages stored without a
// timestamp. Stored timestamps are Unix milliseconds, so the fallback must
// be milliseconds too or the message sorts before every real one.
func unixOrNow(ts int64) int64 {
	if ts > 0 {
		return ts
	}
	return time.Now().UnixMilli()
}
