// Copyright (C) 2025 WAGMI Tech (dev@upwagmitec.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package memory

import (
	"encoding/json"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// =============================================================================
// Pattern Tables
// =============================================================================

// topicPattern associates a topic label with the keywords that signal it.
// Order matters: earlier patterns win when a message matches several.
type topicPattern struct {
	topic    string
	keywords []string
}

// topicPatterns lists curriculum topics from most specific to most general.
// Keywords mix Turkish and English because learners use both.
var topicPatterns = []topicPattern{
	{"sql_basics", []string{"sql", "veritabanı", "database", "tablo", "select", "sorgu", "query"}},
	{"sql_joins", []string{"join", "inner join", "left join", "right join", "birleştir", "eşleş"}},
	{"sql_grouping", []string{"group by", "gruplama", "count", "sum", "toplam", "sayı"}},
	{"sql_advanced", []string{"window function", "pencere fonksiyonu", "row_number", "rank", "subquery"}},
	{"learning_meta", []string{"seviye", "level", "öğren", "anla", "açıkla", "örnek", "nasıl"}},
}

// skillPattern associates a skill level with its self-description phrases,
// including the emoji-prefixed widget labels users tap.
type skillPattern struct {
	level   string
	phrases []string
}

var skillPatterns = []skillPattern{
	{"beginner", []string{"🌱 yeni başlayan", "yeni", "başlangıç", "temel", "sql'e yeni adım"}},
	{"intermediate", []string{"🌟 orta seviye", "orta", "temelleri biliyorum", "ilerlemek istiyorum"}},
	{"advanced", []string{"🔥 ileri seviye", "uzmanlaşmaya hazırım", "gelişmiş", "ileri"}},
}

type approachPattern struct {
	approach string
	phrases  []string
}

var approachPatterns = []approachPattern{
	{"new_content", []string{"🚀 yeni bilgi ver", "bana yeni bir şey öğret", "yeni"}},
	{"review", []string{"🧠 tekrar yapalım", "öğrendiklerimi hatırlamama yardım et", "tekrar"}},
}

// struggleIndicators are phrases that signal the user is confused or stuck.
var struggleIndicators = []string{
	"bilmiyorum", "bilmem", "anlamadım", "zorlandım", "karışık", "çok zor",
}

// progressIndicators are phrases that signal a correct or confident response.
var progressIndicators = []string{
	"harika", "mükemmel", "doğru", "çok iyi", "güzel", "evet",
}

// The pattern tables are folded once at startup so matching never re-folds
// a phrase per message.
func init() {
	for i := range topicPatterns {
		topicPatterns[i].keywords = foldAll(topicPatterns[i].keywords)
	}
	for i := range skillPatterns {
		skillPatterns[i].phrases = foldAll(skillPatterns[i].phrases)
	}
	for i := range approachPatterns {
		approachPatterns[i].phrases = foldAll(approachPatterns[i].phrases)
	}
	struggleIndicators = foldAll(struggleIndicators)
	progressIndicators = foldAll(progressIndicators)
}

// casers pools Turkish lowercase casers. A Caser carries transform state and
// must not be shared between goroutines, so each fold borrows one.
var casers = sync.Pool{
	New: func() any {
		c := cases.Lower(language.Turkish)
		return &c
	},
}

// fold lowercases text with Turkish casing rules so dotted and dotless I
// match correctly.
func fold(s string) string {
	c := casers.Get().(*cases.Caser)
	defer casers.Put(c)
	return c.String(s)
}

func foldAll(phrases []string) []string {
	folded := make([]string, len(phrases))
	for i, phrase := range phrases {
		folded[i] = fold(phrase)
	}
	return folded
}

// containsAny matches folded content against an already-folded phrase list.
func containsAny(content string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(content, phrase) {
			return true
		}
	}
	return false
}

// =============================================================================
// Topic Detection
// =============================================================================

// recentWindow is how many trailing messages topic detection inspects.
const recentWindow = 7

// detectCurrentTopic scans the last few messages for curriculum keywords.
//
// # Description
//
// Messages are scanned oldest first within the window; the first message that
// matches any topic pattern decides the result. Confidence starts at 0.5 and
// grows 0.15 per matched keyword, capped at 0.9. When nothing matches, the
// topic is "general" with low confidence.
func detectCurrentTopic(messages []Message) CurrentTopic {
	window := messages
	if len(window) > recentWindow {
		window = window[len(window)-recentWindow:]
	}

	for _, message := range window {
		content := fold(message.Content)
		for _, pattern := range topicPatterns {
			var matched []string
			for _, keyword := range pattern.keywords {
				if strings.Contains(content, keyword) {
					matched = append(matched, keyword)
				}
			}
			if len(matched) > 0 {
				confidence := 0.5 + float64(len(matched))*0.15
				if confidence > 0.9 {
					confidence = 0.9
				}
				return CurrentTopic{
					Topic:      pattern.topic,
					Confidence: confidence,
					DetectedIn: message.ID,
					Keywords:   matched,
				}
			}
		}
	}

	return CurrentTopic{Topic: "general", Confidence: 0.3, Keywords: []string{}}
}

// =============================================================================
// User Profile
// =============================================================================

// extractUserProfile derives skill level, learning approach, interests, and
// goals from user messages.
//
// # Description
//
// Every user message is scanned in order, and later detections overwrite
// earlier ones, so the profile reflects the user's most recent
// self-description. Skill levels detected from widget selections carry a
// higher confidence than approach phrases because the widget labels are
// unambiguous.
func extractUserProfile(messages []Message) UserProfile {
	profile := UserProfile{
		TopicPreferences: []string{},
		Goals:            []Goal{},
	}

	for _, message := range messages {
		if message.Role != "user" {
			continue
		}
		content := fold(message.Content)

		for _, pattern := range skillPatterns {
			if containsAny(content, pattern.phrases) {
				profile.SkillLevel = &SkillLevel{
					Level:      pattern.level,
					Confidence: 0.95,
					DetectedAt: message.Timestamp,
				}
				break
			}
		}

		for _, pattern := range approachPatterns {
			if containsAny(content, pattern.phrases) {
				profile.LearningApproach = &LearningApproach{
					Approach:   pattern.approach,
					Confidence: 0.9,
					DetectedAt: message.Timestamp,
				}
				break
			}
		}

		if strings.Contains(content, "sql") || strings.Contains(content, "veritabanı") {
			if !containsString(profile.TopicPreferences, "sql") {
				profile.TopicPreferences = append(profile.TopicPreferences, "sql")
			}
		}

		if strings.Contains(content, "öğrenmek istiyorum") || strings.Contains(content, "hedefim") {
			goal := content
			if len(goal) > 100 {
				goal = truncateRunes(goal, 100)
			}
			profile.Goals = append(profile.Goals, Goal{Goal: goal, Timestamp: message.Timestamp})
		}
	}

	return profile
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

// truncateRunes cuts a string to at most n runes without splitting a
// multibyte character.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// =============================================================================
// Topic History
// =============================================================================

// extractTopicHistory segments the conversation into contiguous topic runs.
//
// # Description
//
// Each message is classified on its own; only confident non-general
// detections extend or open a segment. A topic change closes the current
// segment with the new message's timestamp. Struggle phrases inside a
// segment's user messages mark the segment as one the user struggled with.
func extractTopicHistory(messages []Message) []TopicSegment {
	history := []TopicSegment{}
	var current *TopicSegment

	for _, message := range messages {
		detected := detectCurrentTopic([]Message{message})
		if detected.Topic == "general" || detected.Confidence <= 0.5 {
			continue
		}

		if current == nil || current.Topic != detected.Topic {
			if current != nil {
				current.EndedAt = message.Timestamp
				history = append(history, *current)
			}
			current = &TopicSegment{
				Topic:        detected.Topic,
				StartedAt:    message.Timestamp,
				MessageCount: 1,
				Keywords:     detected.Keywords,
			}
		} else {
			current.MessageCount++
			current.Keywords = mergeKeywords(current.Keywords, detected.Keywords)
		}

		if message.Role == "user" && containsAny(fold(message.Content), struggleIndicators) {
			current.UserStruggled = true
		}
	}

	if current != nil {
		history = append(history, *current)
	}
	return history
}

// mergeKeywords unions two keyword lists preserving first-seen order.
func mergeKeywords(existing, incoming []string) []string {
	merged := existing
	for _, keyword := range incoming {
		if !containsString(merged, keyword) {
			merged = append(merged, keyword)
		}
	}
	return merged
}

// =============================================================================
// Widget Selections
// =============================================================================

// widgetPayload matches the JSON the platform embeds in widget messages.
type widgetPayload struct {
	WidgetType      string `json:"widgetType"`
	Selected        string `json:"selected"`
	AssistantGroups []struct {
		Title string `json:"title"`
	} `json:"assistantGroups"`
	UserOptions map[string]struct {
		Title string `json:"title"`
		Value string `json:"value"`
	} `json:"userOptions"`
}

// extractWidgetSelections pulls structured choices out of widget messages.
//
// # Description
//
// Widget messages carry a JSON payload instead of prose. Messages that do not
// look like widget JSON, or fail to parse, are skipped silently; the platform
// mixes widget and text messages freely.
func extractWidgetSelections(messages []Message) []WidgetSelection {
	selections := []WidgetSelection{}

	for _, message := range messages {
		if !strings.Contains(message.Content, "widgetType") || !strings.Contains(message.Content, "{") {
			continue
		}

		var payload widgetPayload
		if err := json.Unmarshal([]byte(message.Content), &payload); err != nil {
			continue
		}

		switch payload.WidgetType {
		case "TopicSelectionMessage":
			if payload.Selected == "" {
				continue
			}
			options := make([]string, 0, len(payload.AssistantGroups))
			for _, group := range payload.AssistantGroups {
				options = append(options, group.Title)
			}
			selections = append(selections, WidgetSelection{
				Type:      "topic_selection",
				Selection: payload.Selected,
				Options:   options,
				Timestamp: message.Timestamp,
			})
		case "InputMessageComponent":
			for _, option := range payload.UserOptions {
				selections = append(selections, WidgetSelection{
					Type:      "input_selection",
					Question:  option.Title,
					Selection: option.Value,
					Timestamp: message.Timestamp,
				})
			}
		}
	}

	return selections
}

// =============================================================================
// Learning Progress
// =============================================================================

// analyzeLearningProgress scores question and answer outcomes.
//
// # Description
//
// Every assistant message containing a question mark counts as a question;
// the immediately following user message is classified as a struggle or a
// success by indicator phrases. The progress score is the success ratio,
// defaulting to 0.5 when no questions were asked.
func analyzeLearningProgress(messages []Message) LearningProgress {
	progress := LearningProgress{
		ConceptsLearned: []string{},
		StrugglingWith:  []string{},
		ProgressScore:   0.5,
	}

	correct := 0
	total := 0

	for i, message := range messages {
		if message.Role != "assistant" || !strings.Contains(message.Content, "?") {
			continue
		}
		total++
		questionTopic := detectCurrentTopic([]Message{message}).Topic

		if i+1 >= len(messages) || messages[i+1].Role != "user" {
			continue
		}
		response := fold(messages[i+1].Content)

		if containsAny(response, struggleIndicators) {
			if questionTopic != "" && !containsString(progress.StrugglingWith, questionTopic) {
				progress.StrugglingWith = append(progress.StrugglingWith, questionTopic)
			}
		} else if containsAny(response, progressIndicators) {
			correct++
			if questionTopic != "" && !containsString(progress.ConceptsLearned, questionTopic) {
				progress.ConceptsLearned = append(progress.ConceptsLearned, questionTopic)
			}
		}
	}

	if total > 0 {
		progress.ProgressScore = float64(correct) / float64(total)
	}
	return progress
}

// =============================================================================
// Struggle Pattern
// =============================================================================

// analyzeStrugglePattern counts confusion signals in the last five user
// messages. Two signals mean the user is struggling; three mean they need
// direct help.
func analyzeStrugglePattern(messages []Message) StrugglePattern {
	pattern := StrugglePattern{}

	var userMessages []Message
	for _, message := range messages {
		if message.Role == "user" {
			userMessages = append(userMessages, message)
		}
	}
	if len(userMessages) > 5 {
		userMessages = userMessages[len(userMessages)-5:]
	}

	for _, message := range userMessages {
		if containsAny(fold(message.Content), struggleIndicators) {
			pattern.StruggleCount++
			pattern.StrugglesInLastFive++
			pattern.LastStruggleMessage = message.Content
		}
	}

	pattern.IsStruggling = pattern.StrugglesInLastFive >= 2
	pattern.NeedsHelp = pattern.StrugglesInLastFive >= 3
	return pattern
}

// =============================================================================
// Conversation Flow
// =============================================================================

// analyzeConversationFlow classifies the current interaction phase from the
// last user message and detects problematic message patterns.
func analyzeConversationFlow(messages []Message) ConversationFlow {
	if len(messages) == 0 {
		return ConversationFlow{
			Phase:           "starting",
			LastInteraction: "none",
			MessagePattern:  "insufficient_data",
		}
	}

	flow := ConversationFlow{
		Phase:           "active",
		LastInteraction: "question",
	}

	var lastUser *Message
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			lastUser = &messages[i]
			break
		}
	}

	if lastUser != nil {
		content := fold(lastUser.Content)
		switch {
		case containsAny(content, struggleIndicators):
			flow.Phase = "struggling"
			flow.LastInteraction = "seeking_help"
			flow.LearningContext = "needs_clarification"
		case containsAny(content, progressIndicators):
			flow.Phase = "progressing"
			flow.LastInteraction = "successful_response"
			flow.LearningContext = "ready_for_next"
		case strings.Contains(content, "devam") || strings.Contains(content, "sonraki"):
			flow.Phase = "advancing"
			flow.LastInteraction = "progression_request"
			flow.LearningContext = "topic_completion"
		}
	}

	flow.MessagePattern = detectMessagePattern(messages)
	return flow
}

// detectMessagePattern flags repeated struggles and repetitive widget
// selections, both of which suggest the conversation is stuck.
func detectMessagePattern(messages []Message) string {
	if len(messages) < 3 {
		return "insufficient_data"
	}

	struggleCount := 0
	for _, message := range messages {
		if message.Role == "user" && containsAny(fold(message.Content), struggleIndicators) {
			struggleCount++
		}
	}
	if struggleCount >= 3 {
		return "repeated_struggles"
	}

	selections := extractWidgetSelections(messages)
	if len(selections) > 3 {
		selections = selections[len(selections)-3:]
	}
	if len(selections) >= 2 {
		same := 0
		for _, selection := range selections {
			if selection.Selection == selections[0].Selection {
				same++
			}
		}
		if same >= 2 {
			return "repetitive_selections"
		}
	}

	return "normal_learning_flow"
}
