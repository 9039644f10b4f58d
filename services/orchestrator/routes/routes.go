// Copyright (C) 2025 WAGMI Tech (dev@upwagmitec.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"golang.org/x/time/rate"

	"github.com/wagmi-upschool/up-ai-sub000/services/orchestrator/assistant"
	"github.com/wagmi-upschool/up-ai-sub000/services/orchestrator/handlers"
	"github.com/wagmi-upschool/up-ai-sub000/services/orchestrator/memory"
	"github.com/wagmi-upschool/up-ai-sub000/services/orchestrator/recommend"
	"github.com/wagmi-upschool/up-ai-sub000/services/orchestrator/topic"
)

// Deps carries the shared components the route handlers close over.
type Deps struct {
	Client           *weaviate.Client
	Retrievers       handlers.RetrieverFactory
	Detector         *topic.Detector
	Options          assistant.OptionsProvider
	Extractor        *memory.Extractor
	Saver            memory.TurnSaver
	Recommender      *recommend.Recommender
	RecommendLimiter *rate.Limiter
}

func SetupRoutes(router *gin.Engine, deps Deps) {

	router.GET("/health", handlers.HealthCheck(deps.Client))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	{
		v1.POST("/retrieve", handlers.HandleRetrieve(deps.Retrievers, deps.Detector, deps.Options))
		v1.POST("/recommend", handlers.HandleRecommend(deps.Recommender, deps.RecommendLimiter))
		v1.PUT("/recommend/config", handlers.HandleRecommendConfig(deps.Recommender))
		// Conversation memory routes
		memoryGroup := v1.Group("/memory")
		{
			memoryGroup.POST("/context", handlers.HandleMemoryContext(deps.Extractor))
			memoryGroup.POST("/turns", handlers.HandleSaveTurn(deps.Saver))
		}
	}
}
