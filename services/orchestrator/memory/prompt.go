// Copyright (C) 2025 WAGMI Tech (dev@upwagmitec.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package memory

import (
	"fmt"
	"math"
	"strings"
)

// promptTruncateLen is the per-message character limit inside the recent
// conversation block.
const promptTruncateLen = 150

// ContextPrompt renders a conversation context as a tagged prompt block.
//
// # Description
//
// The block is prepended to the assistant's system prompt. Sections are
// emitted only when they carry signal: topic and profile blocks appear once
// detected, the learning status block appears when the user is struggling or
// clearly progressing, and topic continuity instructions are added whenever a
// concrete topic is active. The recent conversation window widens from six to
// eight messages when the user is struggling, and message bodies are
// truncated so a single long turn cannot dominate the prompt.
//
// # Outputs
//
//   - string: The rendered block, or "" for a nil context.
func ContextPrompt(conversationContext *ConversationContext) string {
	if conversationContext == nil {
		return ""
	}

	context := conversationContext.Context
	var b strings.Builder
	b.WriteString("\n<conversation_context>\n")

	if context.CurrentTopic.Topic != "general" {
		b.WriteString("<current_topic>\n")
		fmt.Fprintf(&b, "- Topic: %s\n", context.CurrentTopic.Topic)
		fmt.Fprintf(&b, "- Confidence: %.2f\n", context.CurrentTopic.Confidence)
		fmt.Fprintf(&b, "- Keywords: %s\n", strings.Join(context.CurrentTopic.Keywords, ", "))
		b.WriteString("</current_topic>\n")
	}

	if context.UserProfile.SkillLevel != nil {
		b.WriteString("<user_profile>\n")
		fmt.Fprintf(&b, "- Skill Level: %s\n", context.UserProfile.SkillLevel.Level)
		if context.UserProfile.LearningApproach != nil {
			fmt.Fprintf(&b, "- Learning Approach: %s\n", context.UserProfile.LearningApproach.Approach)
		}
		if len(context.UserProfile.Goals) > 0 {
			goals := make([]string, 0, len(context.UserProfile.Goals))
			for _, goal := range context.UserProfile.Goals {
				goals = append(goals, goal.Goal)
			}
			fmt.Fprintf(&b, "- Goals: %s\n", strings.Join(goals, "; "))
		}
		if len(context.UserProfile.TopicPreferences) > 0 {
			fmt.Fprintf(&b, "- Topic Interests: %s\n", strings.Join(context.UserProfile.TopicPreferences, ", "))
		}
		b.WriteString("</user_profile>\n")
	}

	if context.StrugglePattern.IsStruggling {
		b.WriteString("<learning_status>\n")
		b.WriteString("- Status: User is currently struggling\n")
		fmt.Fprintf(&b, "- Struggles in last 5 messages: %d\n", context.StrugglePattern.StrugglesInLastFive)
		if context.StrugglePattern.NeedsHelp {
			b.WriteString("- PRIORITY: User needs additional help and clarification\n")
		}
		if len(context.LearningProgress.StrugglingWith) > 0 {
			fmt.Fprintf(&b, "- Struggling with: %s\n", strings.Join(context.LearningProgress.StrugglingWith, ", "))
		}
		b.WriteString("</learning_status>\n")
	} else if context.LearningProgress.ProgressScore > 0.7 {
		b.WriteString("<learning_status>\n")
		b.WriteString("- Status: User is progressing well\n")
		fmt.Fprintf(&b, "- Progress Score: %d%%\n", int(math.Round(context.LearningProgress.ProgressScore*100)))
		if len(context.LearningProgress.ConceptsLearned) > 0 {
			fmt.Fprintf(&b, "- Recently learned: %s\n", strings.Join(context.LearningProgress.ConceptsLearned, ", "))
		}
		b.WriteString("</learning_status>\n")
	}

	if len(context.WidgetSelections) > 0 {
		recent := context.WidgetSelections
		if len(recent) > 3 {
			recent = recent[len(recent)-3:]
		}
		b.WriteString("<recent_preferences>\n")
		for _, selection := range recent {
			switch selection.Type {
			case "topic_selection":
				fmt.Fprintf(&b, "- Selected Topic: %s\n", selection.Selection)
			case "input_selection":
				fmt.Fprintf(&b, "- %s: %s\n", selection.Question, selection.Selection)
			}
		}
		b.WriteString("</recent_preferences>\n")
	}

	b.WriteString("<conversation_flow>\n")
	fmt.Fprintf(&b, "- Phase: %s\n", context.ConversationFlow.Phase)
	fmt.Fprintf(&b, "- Last Interaction: %s\n", context.ConversationFlow.LastInteraction)
	if context.ConversationFlow.LearningContext != "" {
		fmt.Fprintf(&b, "- Learning Context: %s\n", context.ConversationFlow.LearningContext)
	}
	if context.ConversationFlow.MessagePattern != "normal_learning_flow" &&
		context.ConversationFlow.MessagePattern != "insufficient_data" {
		fmt.Fprintf(&b, "- Pattern Alert: %s\n", context.ConversationFlow.MessagePattern)
	}
	b.WriteString("</conversation_flow>\n")

	if context.CurrentTopic.Topic != "general" {
		b.WriteString("<topic_continuity_instructions>\n")
		fmt.Fprintf(&b, "- MAINTAIN TOPIC: Continue discussing %s\n", context.CurrentTopic.Topic)
		if context.StrugglePattern.IsStruggling {
			b.WriteString("- APPROACH: Use simpler explanations and more examples\n")
			b.WriteString("- STRATEGY: Break down complex concepts into smaller steps\n")
			b.WriteString("- SUPPORT: Provide encouragement and reassurance\n")
		} else if context.LearningProgress.ProgressScore > 0.7 {
			b.WriteString("- APPROACH: User is ready for more advanced concepts\n")
			b.WriteString("- STRATEGY: Introduce new challenges and examples\n")
		}
		b.WriteString("- If user gives incorrect/irrelevant response: Provide correction while staying on topic\n")
		b.WriteString("- If user gives correct response: Provide examples that match their exact answer\n")
		b.WriteString("- Do not abandon current topic unless user explicitly requests topic change\n")
		b.WriteString("</topic_continuity_instructions>\n")
	}

	if len(conversationContext.Messages) > 0 {
		window := 6
		if context.StrugglePattern.IsStruggling {
			window = 8
		}
		recent := conversationContext.Messages
		if len(recent) > window {
			recent = recent[len(recent)-window:]
		}
		b.WriteString("<recent_conversation>\n")
		for _, message := range recent {
			content := message.Content
			if len([]rune(content)) > promptTruncateLen {
				content = truncateRunes(content, promptTruncateLen) + "..."
			}
			fmt.Fprintf(&b, "- %s: %s\n", message.Role, content)
		}
		b.WriteString("</recent_conversation>\n")
	}

	b.WriteString("</conversation_context>\n")
	return b.String()
}
