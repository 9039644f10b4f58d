// Copyright (C) 2025 WAGMI Tech (dev@upwagmitec.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package memory

import "strings"

// widgetTokenCap limits how many tokens a widget message can charge against
// the budget. Widget payloads are verbose JSON but their selection data is
// small, so they are billed at a flat cap.
const widgetTokenCap = 150

// minWidgetsKept is the number of widget messages retained even when the
// budget is exhausted.
const minWidgetsKept = 2

// minRecentMessages is the floor of trailing messages kept for learning
// context when trimming left too little.
const minRecentMessages = 6

// estimateTokens approximates the token count of a message body. Turkish
// averages close to four characters per token.
func estimateTokens(content string) int {
	if content == "" {
		return 0
	}
	return (len(content) + 3) / 4
}

// estimateTotalTokens sums the token estimates for a message list.
func estimateTotalTokens(messages []Message) int {
	total := 0
	for _, message := range messages {
		total += estimateTokens(message.Content)
	}
	return total
}

// trimToBudget selects messages that fit the token budget, newest first.
//
// # Description
//
// Messages are admitted from the end of the conversation backwards until the
// budget would overflow. Widget messages are billed at a flat cap, and up to
// two are kept even past the budget because their selections anchor the
// user's preferences. If trimming leaves fewer than six messages while the
// conversation has at least six, the last six are returned instead so the
// model always sees the recent exchanges. The result is in chronological
// order.
func trimToBudget(messages []Message, maxTokens int) []Message {
	if len(messages) == 0 {
		return []Message{}
	}

	totalTokens := 0
	widgetsKept := 0
	selected := []Message{}

	for i := len(messages) - 1; i >= 0; i-- {
		message := messages[i]
		isWidget := strings.Contains(message.Content, "widgetType")

		tokens := estimateTokens(message.Content)
		if isWidget && tokens > widgetTokenCap {
			tokens = widgetTokenCap
		}

		if totalTokens+tokens <= maxTokens {
			selected = append([]Message{message}, selected...)
			totalTokens += tokens
			if isWidget {
				widgetsKept++
			}
			continue
		}

		if isWidget && widgetsKept < minWidgetsKept {
			selected = append([]Message{message}, selected...)
			totalTokens += tokens
			widgetsKept++
			continue
		}
		break
	}

	if len(selected) < minRecentMessages && len(messages) >= minRecentMessages {
		return messages[len(messages)-minRecentMessages:]
	}
	return selected
}
