// Copyright (C) 2025 WAGMI Tech (dev@upwagmitec.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	retrieveConversationID string
	retrieveAssistantID    string
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var retrieveCmd = &cobra.Command{
	Use:   "retrieve [query]",
	Short: "Run topic-aware retrieval for a query",
	Long: `Runs the retrieval pipeline: resolves the conversation's topic,
queries the assistant's documents with a topic filter (falling back to the
unfiltered corpus), and joins the conversation history.

Examples:
  upai retrieve "liderlik nedir" -c conv_42 -a asst_7
  upai retrieve "join türleri" --conversation conv_42 --assistant asst_7`,
	Args: cobra.MinimumNArgs(1),
	Run:  runRetrieveCommand,
}

func init() {
	retrieveCmd.Flags().StringVarP(&retrieveConversationID, "conversation", "c", "",
		"Conversation id scoping history and the topic cache (required)")
	retrieveCmd.Flags().StringVarP(&retrieveAssistantID, "assistant", "a", "",
		"Assistant id owning the document corpus (required)")
	_ = retrieveCmd.MarkFlagRequired("conversation")
	_ = retrieveCmd.MarkFlagRequired("assistant")
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runRetrieveCommand(cmd *cobra.Command, args []string) {
	query := strings.Join(args, " ")

	body, err := callAPI("POST", "/v1/retrieve", map[string]string{
		"query":          query,
		"conversationId": retrieveConversationID,
		"assistantId":    retrieveAssistantID,
	})
	if err != nil {
		log.Fatalf("retrieve failed: %v", err)
	}

	fmt.Println("Retrieval results:")
	printJSON(body)
}
