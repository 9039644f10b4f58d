// Copyright (C) 2025 WAGMI Tech (dev@upwagmitec.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"os"

	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	serverURL string

	rootCmd = &cobra.Command{
		Use:   "upai",
		Short: "A cli for the UP AI orchestrator service",
		Long: `upai talks to a running orchestrator instance: topic-aware
retrieval, conversation memory context, and agent recommendation.`,
	}
)

func init() {
	defaultURL := os.Getenv("UPAI_ORCHESTRATOR_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:12210"
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultURL,
		"Base URL of the orchestrator service")

	rootCmd.AddCommand(retrieveCmd)
	rootCmd.AddCommand(memoryCmd)
	rootCmd.AddCommand(recommendCmd)
	rootCmd.AddCommand(healthCmd)
}
