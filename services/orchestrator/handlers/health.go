// Copyright (C) 2025 WAGMI Tech (dev@upwagmitec.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
)

const healthCheckTimeout = 5 * time.Second

// HealthCheck reports process liveness and weaviate reachability.
//
// # Description
//
// Always returns 200 when the process is up; the weaviate field tells
// operators whether retrieval is currently possible. A nil client means the
// service was started in lightweight mode without a vector store.
func HealthCheck(client *weaviate.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		weaviateStatus := "unconfigured"
		if client != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
			defer cancel()

			live, err := client.Misc().LiveChecker().Do(ctx)
			switch {
			case err != nil:
				weaviateStatus = "unreachable"
			case live:
				weaviateStatus = "ok"
			default:
				weaviateStatus = "not_live"
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"weaviate": weaviateStatus,
		})
	}
}
