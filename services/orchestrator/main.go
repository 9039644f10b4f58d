// Copyright (C) 2025 WAGMI Tech (dev@upwagmitec.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"log"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"golang.org/x/time/rate"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/wagmi-upschool/up-ai-sub000/services/orchestrator/assistant"
	"github.com/wagmi-upschool/up-ai-sub000/services/orchestrator/datatypes"
	"github.com/wagmi-upschool/up-ai-sub000/services/orchestrator/handlers"
	"github.com/wagmi-upschool/up-ai-sub000/services/orchestrator/memory"
	"github.com/wagmi-upschool/up-ai-sub000/services/orchestrator/observability"
	"github.com/wagmi-upschool/up-ai-sub000/services/orchestrator/recommend"
	"github.com/wagmi-upschool/up-ai-sub000/services/orchestrator/retrieval"
	"github.com/wagmi-upschool/up-ai-sub000/services/orchestrator/routes"
	"github.com/wagmi-upschool/up-ai-sub000/services/orchestrator/topic"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
)

func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		otelEndpoint = "upai-otel-collector:4317"
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("upai-orchestrator")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

// newEmbedder picks the embedding backend from EMBEDDING_BACKEND_TYPE.
func newEmbedder() retrieval.EmbeddingProvider {
	switch os.Getenv("EMBEDDING_BACKEND_TYPE") {
	case "openai":
		slog.Info("Using OpenAI embedding backend")
		return datatypes.NewOpenAIEmbedder(os.Getenv("OPENAI_API_KEY"))
	default:
		slog.Info("Using embedding service backend")
		return datatypes.NewServiceEmbedder()
	}
}

// newCatalogue loads the topic option catalogue and starts the file watcher
// when a path is configured.
func newCatalogue() *assistant.Catalogue {
	path := os.Getenv("TOPIC_CATALOGUE_PATH")
	catalogue, err := assistant.LoadCatalogue(path)
	if err != nil {
		slog.Warn("Failed to load topic catalogue file, using built-in defaults",
			"path", path, "error", err)
		return assistant.NewCatalogue()
	}
	if path != "" {
		if _, err := catalogue.Watch(); err != nil {
			slog.Warn("Topic catalogue watcher unavailable, file edits need a restart",
				"path", path, "error", err)
		}
	}
	return catalogue
}

func recommendLimiter() *rate.Limiter {
	perSecond := 10.0
	if raw := os.Getenv("RECOMMEND_RATE_LIMIT"); raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil && parsed > 0 {
			perSecond = parsed
		} else {
			slog.Warn("Invalid RECOMMEND_RATE_LIMIT, using default", "value", raw)
		}
	}
	burst := int(perSecond * 2)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

func main() {
	port := os.Getenv("ORCHESTRATOR_PORT")
	if port == "" {
		port = "12210"
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// --- Init the tracer ---
	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	observability.InitMetrics()

	weaviateURL := os.Getenv("WEAVIATE_SERVICE_URL")
	// Sanitize: Trim quotes and whitespace just in case the runtime passes them literally
	weaviateURL = strings.Trim(weaviateURL, "\"' ")

	var weaviateClient *weaviate.Client

	// Robust Check: URL must exist AND have a scheme (http/https)
	if weaviateURL != "" && strings.Contains(weaviateURL, "http") {
		parsedURL, err := url.Parse(weaviateURL)

		if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
			slog.Warn("WEAVIATE_SERVICE_URL is invalid. Running in lightweight mode.",
				"url", weaviateURL, "error", err)
		} else {
			clientConf := weaviate.Config{
				Host:   parsedURL.Host,
				Scheme: parsedURL.Scheme,
			}
			weaviateClient, err = weaviate.NewClient(clientConf)
			if err != nil {
				slog.Error("Failed to create Weaviate client", "error", err)
				weaviateClient = nil
			} else {
				datatypes.EnsureWeaviateSchema(weaviateClient)
			}
		}
	} else {
		slog.Info("WEAVIATE_SERVICE_URL not set or empty. Running in lightweight mode (health and recommend config only).")
	}

	embedder := newEmbedder()
	searchConfig := retrieval.DefaultSearchConfig()

	catalogue := newCatalogue()
	optionsClient := assistant.NewOptionsClient("", catalogue)

	cache := topic.NewCache(topic.DefaultCacheConfig())
	detector := topic.NewDetector(topic.KeywordClassifier{}, cache)

	store := memory.NewStore(weaviateClient, embedder, searchConfig)
	extractor := memory.NewExtractor(store, memory.DefaultExtractorConfig())

	recommendConfig := recommend.DefaultConfig()
	searcher := recommend.NewWeaviateProfileSearcher(weaviateClient, recommendConfig.Stage)
	recommender := recommend.NewRecommender(searcher, embedder, recommendConfig)

	router := gin.Default()
	router.Use(otelgin.Middleware("upai-orchestrator"))

	routes.SetupRoutes(router, routes.Deps{
		Client:           weaviateClient,
		Retrievers:       handlers.NewWeaviateRetrieverFactory(weaviateClient, embedder, searchConfig),
		Detector:         detector,
		Options:          optionsClient,
		Extractor:        extractor,
		Saver:            store,
		Recommender:      recommender,
		RecommendLimiter: recommendLimiter(),
	})

	log.Println("Starting the orchestrator server on port ", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
