// Copyright (C) 2025 WAGMI Tech (dev@upwagmitec.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	memoryConversationID string
	memoryMaxMessages    int
	memoryMaxTokens      int
	memoryPromptOnly     bool

	saveAssistantID string
	saveUserMessage string
	saveAIMessage   string
	saveTopic       string
)

// =============================================================================
// COMMAND DEFINITIONS
// =============================================================================

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect and feed the conversation memory",
}

var memoryContextCmd = &cobra.Command{
	Use:   "context",
	Short: "Build the conversation context block for a conversation",
	Long: `Runs memory extraction over a conversation's stored messages and
prints the structured context plus the rendered prompt block.

Examples:
  upai memory context -c conv_42
  upai memory context -c conv_42 --prompt-only
  upai memory context -c conv_42 --max-messages 50 --max-tokens 4000`,
	Run: runMemoryContextCommand,
}

var memorySaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Persist one completed user/assistant turn",
	Run:   runMemorySaveCommand,
}

func init() {
	memoryContextCmd.Flags().StringVarP(&memoryConversationID, "conversation", "c", "",
		"Conversation id (required)")
	memoryContextCmd.Flags().IntVar(&memoryMaxMessages, "max-messages", 0,
		"Override the message window (0 uses the server default)")
	memoryContextCmd.Flags().IntVar(&memoryMaxTokens, "max-tokens", 0,
		"Override the token budget (0 uses the server default)")
	memoryContextCmd.Flags().BoolVar(&memoryPromptOnly, "prompt-only", false,
		"Print only the rendered prompt block")
	_ = memoryContextCmd.MarkFlagRequired("conversation")

	memorySaveCmd.Flags().StringVarP(&memoryConversationID, "conversation", "c", "",
		"Conversation id (required)")
	memorySaveCmd.Flags().StringVarP(&saveAssistantID, "assistant", "a", "",
		"Assistant id (required)")
	memorySaveCmd.Flags().StringVar(&saveUserMessage, "user", "",
		"The user's message (required)")
	memorySaveCmd.Flags().StringVar(&saveAIMessage, "ai", "",
		"The assistant's reply (required)")
	memorySaveCmd.Flags().StringVar(&saveTopic, "topic", "",
		"Topic label for the turn")
	_ = memorySaveCmd.MarkFlagRequired("conversation")
	_ = memorySaveCmd.MarkFlagRequired("assistant")
	_ = memorySaveCmd.MarkFlagRequired("user")
	_ = memorySaveCmd.MarkFlagRequired("ai")

	memoryCmd.AddCommand(memoryContextCmd)
	memoryCmd.AddCommand(memorySaveCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATIONS
// =============================================================================

func runMemoryContextCommand(cmd *cobra.Command, args []string) {
	body, err := callAPI("POST", "/v1/memory/context", map[string]any{
		"conversationId": memoryConversationID,
		"maxMessages":    memoryMaxMessages,
		"maxTokens":      memoryMaxTokens,
	})
	if err != nil {
		log.Fatalf("memory context failed: %v", err)
	}

	if memoryPromptOnly {
		var response struct {
			Prompt string `json:"prompt"`
		}
		if err := json.Unmarshal(body, &response); err != nil {
			log.Fatalf("parse response: %v", err)
		}
		fmt.Println(response.Prompt)
		return
	}

	printJSON(body)
}

func runMemorySaveCommand(cmd *cobra.Command, args []string) {
	body, err := callAPI("POST", "/v1/memory/turns", map[string]string{
		"conversationId": memoryConversationID,
		"assistantId":    saveAssistantID,
		"userMessage":    saveUserMessage,
		"aiMessage":      saveAIMessage,
		"topic":          saveTopic,
	})
	if err != nil {
		log.Fatalf("memory save failed: %v", err)
	}

	printJSON(body)
}
