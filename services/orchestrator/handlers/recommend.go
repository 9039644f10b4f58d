// Copyright (C) 2025 WAGMI Tech (dev@upwagmitec.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"github.com/wagmi-upschool/up-ai-sub000/services/orchestrator/datatypes"
	"github.com/wagmi-upschool/up-ai-sub000/services/orchestrator/observability"
	"github.com/wagmi-upschool/up-ai-sub000/services/orchestrator/recommend"
)

// HandleRecommend ranks agents against a free-text query.
//
// # Description
//
// The endpoint fronts the embedding service, so it carries a rate limiter;
// over-limit requests get 429 without touching the backend. showAll switches
// to the debug path, which returns up to ten unfiltered candidates and
// propagates backend errors instead of falling back.
//
// # Inputs
//
//   - recommender: The shared ranker instance.
//   - limiter: Token-bucket limiter; nil disables limiting.
func HandleRecommend(recommender *recommend.Recommender, limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "HandleRecommend")
		defer span.End()

		if limiter != nil && !limiter.Allow() {
			observability.CountRequest("recommend", "429")
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}

		var request datatypes.RecommendRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to bind recommend request JSON", "error", err)
			observability.CountRequest("recommend", "400")
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		span.SetAttributes(attribute.Bool("show_all", request.ShowAll))

		var (
			response *recommend.Response
			err      error
		)
		if request.ShowAll {
			response, err = recommender.RecommendAll(ctx, request.Query)
		} else {
			response, err = recommender.Recommend(ctx, request.Query)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			if recommend.IsValidationError(err) {
				observability.CountRequest("recommend", "400")
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			slog.Error("Agent recommendation failed", "error", err)
			observability.CountRequest("recommend", "500")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Recommendation failed"})
			return
		}

		observability.CountRequest("recommend", "200")
		c.JSON(http.StatusOK, response)
	}
}

// HandleRecommendConfig mutates the ranker's runtime knobs.
//
// # Description
//
// Applies similarityThreshold and maxResults when present; absent fields
// leave the current value untouched. An out-of-range value is rejected with
// 400; the response always reports the settings now in effect.
func HandleRecommendConfig(recommender *recommend.Recommender) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, span := tracer.Start(c.Request.Context(), "HandleRecommendConfig")
		defer span.End()

		var request datatypes.RecommendConfigRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			observability.CountRequest("recommend_config", "400")
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		if request.SimilarityThreshold != nil {
			if err := recommender.SetSimilarityThreshold(*request.SimilarityThreshold); err != nil {
				span.RecordError(err)
				observability.CountRequest("recommend_config", "400")
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}
		if request.MaxResults != nil {
			if err := recommender.SetMaxResults(*request.MaxResults); err != nil {
				span.RecordError(err)
				observability.CountRequest("recommend_config", "400")
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}

		threshold, maxResults := recommender.Settings()
		slog.Info("Recommendation settings updated",
			"similarityThreshold", threshold, "maxResults", maxResults)

		observability.CountRequest("recommend_config", "200")
		c.JSON(http.StatusOK, gin.H{
			"similarityThreshold": threshold,
			"maxResults":          maxResults,
		})
	}
}
