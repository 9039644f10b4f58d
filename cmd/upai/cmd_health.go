// Copyright (C) 2025 WAGMI Tech (dev@upwagmitec.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"log"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check orchestrator liveness and weaviate reachability",
	Run:   runHealthCommand,
}

func runHealthCommand(cmd *cobra.Command, args []string) {
	body, err := callAPI("GET", "/health", nil)
	if err != nil {
		log.Fatalf("health check failed: %v", err)
	}

	printJSON(body)
}
