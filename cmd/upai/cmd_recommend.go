// Copyright (C) 2025 WAGMI Tech (dev@upwagmitec.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"log"
	"strings"

	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	recommendShowAll    bool
	configThreshold     float64
	configMaxResults    int
	configThresholdSet  bool
	configMaxResultsSet bool
)

// =============================================================================
// COMMAND DEFINITIONS
// =============================================================================

var recommendCmd = &cobra.Command{
	Use:   "recommend [query]",
	Short: "Rank agents against a free-text query",
	Long: `Asks the orchestrator which agents best match a query.

Examples:
  upai recommend "kariyerimi geliştirmek istiyorum"
  upai recommend "sql öğrenmek istiyorum" --all`,
	Args: cobra.MinimumNArgs(1),
	Run:  runRecommendCommand,
}

var recommendConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Update the ranker's runtime settings",
	Long: `Changes the similarity threshold or result count without a restart.

Examples:
  upai recommend config --threshold 0.6
  upai recommend config --max-results 5`,
	Run: runRecommendConfigCommand,
}

func init() {
	recommendCmd.Flags().BoolVar(&recommendShowAll, "all", false,
		"Return the full unfiltered candidate list (debug)")

	recommendConfigCmd.Flags().Float64Var(&configThreshold, "threshold", 0,
		"New similarity threshold in [0, 1]")
	recommendConfigCmd.Flags().IntVar(&configMaxResults, "max-results", 0,
		"New result count in [1, 10]")

	recommendCmd.AddCommand(recommendConfigCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATIONS
// =============================================================================

func runRecommendCommand(cmd *cobra.Command, args []string) {
	query := strings.Join(args, " ")

	body, err := callAPI("POST", "/v1/recommend", map[string]any{
		"query":   query,
		"showAll": recommendShowAll,
	})
	if err != nil {
		log.Fatalf("recommend failed: %v", err)
	}

	printJSON(body)
}

func runRecommendConfigCommand(cmd *cobra.Command, args []string) {
	configThresholdSet = cmd.Flags().Changed("threshold")
	configMaxResultsSet = cmd.Flags().Changed("max-results")
	if !configThresholdSet && !configMaxResultsSet {
		log.Fatal("nothing to update: pass --threshold and/or --max-results")
	}

	payload := map[string]any{}
	if configThresholdSet {
		payload["similarityThreshold"] = configThreshold
	}
	if configMaxResultsSet {
		payload["maxResults"] = configMaxResults
	}

	body, err := callAPI("PUT", "/v1/recommend/config", payload)
	if err != nil {
		log.Fatalf("recommend config failed: %v", err)
	}

	printJSON(body)
}
