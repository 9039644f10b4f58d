// Copyright (C) 2025 WAGMI Tech (dev@upwagmitec.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package recommend ranks assistant agents against a free-text query.
// A query is embedded and matched against the stage-scoped agent profile
// index; the top candidates are returned regardless of absolute score so a
// well-formed query never dead-ends. When the similarity search itself fails
// or finds nothing, a zero-vector sample of the same stage is returned
// instead, flagged as a fallback.
package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/wagmi-upschool/up-ai-sub000/services/orchestrator/datatypes"
	"github.com/wagmi-upschool/up-ai-sub000/services/orchestrator/observability"
	"github.com/wagmi-upschool/up-ai-sub000/services/orchestrator/retrieval"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var tracer = otel.Tracer("upai.orchestrator.recommend")

// maxQueryLength is the character limit applied after preprocessing; longer
// queries are truncated before embedding.
const maxQueryLength = 500

// fallbackScore is the fixed relevance assigned to fallback candidates.
const fallbackScore = 0.5

// debugResultCap bounds the show-all mode.
const debugResultCap = 10

// ValidationError rejects malformed input before any backend call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsValidationError checks if an error is a ValidationError.
func IsValidationError(err error) bool {
	_, ok := err.(*ValidationError)
	return ok
}

// AgentCandidate is one recommended agent.
type AgentCandidate struct {
	AgentID        string   `json:"agentId"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Category       string   `json:"category"`
	Keywords       []string `json:"keywords"`
	RelevanceScore float64  `json:"relevanceScore"`
	Stage          string   `json:"stage"`
}

// SearchMetadata describes the parameters a recommendation ran with.
type SearchMetadata struct {
	Stage               string  `json:"stage"`
	SimilarityThreshold float64 `json:"similarityThreshold"`
	MaxResults          int     `json:"maxResults"`
	Timestamp           string  `json:"timestamp"`
	ResponseTimeMs      int64   `json:"responseTimeMs"`
}

// Response is the full recommendation result.
type Response struct {
	Query           string           `json:"query"`
	TotalFound      int              `json:"totalFound"`
	Recommendations []AgentCandidate `json:"recommendations"`
	IsFallback      bool             `json:"isFallback"`
	Debug           bool             `json:"debug,omitempty"`
	Note            string           `json:"note,omitempty"`
	SearchMetadata  SearchMetadata   `json:"searchMetadata"`
}

// Config holds the recommender tunables.
type Config struct {
	// Stage scopes the profile index to one deployment environment.
	// Default: "myenv"
	Stage string

	// VectorDim is the embedding dimensionality, used to build the
	// zero vector for fallback sampling. Default: 1536
	VectorDim int

	// TopK is the candidate pool requested from the index. Default: 10
	TopK int

	// SimilarityThreshold is the minimum relevance knob, runtime-mutable
	// via SetSimilarityThreshold. Default: 0.45
	SimilarityThreshold float64

	// MaxResults is how many candidates a production recommendation
	// returns, runtime-mutable via SetMaxResults. Default: 3
	MaxResults int
}

// DefaultConfig returns the default recommender configuration.
//
// # Description
//
// Values can be overridden via environment variables:
//   - STAGE (default: "myenv")
//   - RECOMMEND_VECTOR_DIM (default: 1536)
//   - RECOMMEND_TOP_K (default: 10)
//   - RECOMMEND_SIMILARITY_THRESHOLD (default: 0.45)
//   - RECOMMEND_MAX_RESULTS (default: 3)
func DefaultConfig() Config {
	return Config{
		Stage:               getEnvString("STAGE", "myenv"),
		VectorDim:           getEnvInt("RECOMMEND_VECTOR_DIM", 1536),
		TopK:                getEnvInt("RECOMMEND_TOP_K", 10),
		SimilarityThreshold: getEnvFloat("RECOMMEND_SIMILARITY_THRESHOLD", 0.45),
		MaxResults:          getEnvInt("RECOMMEND_MAX_RESULTS", 3),
	}
}

// validateConfig validates and corrects recommender configuration values.
// Logs warnings for invalid values and applies sensible defaults.
func validateConfig(config Config) Config {
	defaults := DefaultConfig()

	if config.Stage == "" {
		config.Stage = defaults.Stage
	}
	if config.VectorDim < 1 {
		slog.Warn("Invalid VectorDim config, using default",
			"provided", config.VectorDim, "default", defaults.VectorDim)
		config.VectorDim = defaults.VectorDim
	}
	if config.TopK < 1 {
		slog.Warn("Invalid TopK config, using default",
			"provided", config.TopK, "default", defaults.TopK)
		config.TopK = defaults.TopK
	}
	if config.SimilarityThreshold < 0 || config.SimilarityThreshold > 1 {
		slog.Warn("Invalid SimilarityThreshold config, using default",
			"provided", config.SimilarityThreshold, "default", defaults.SimilarityThreshold)
		config.SimilarityThreshold = defaults.SimilarityThreshold
	}
	if config.MaxResults < 1 || config.MaxResults > 10 {
		slog.Warn("Invalid MaxResults config, using default",
			"provided", config.MaxResults, "default", defaults.MaxResults)
		config.MaxResults = defaults.MaxResults
	}

	return config
}

// Recommender ranks agents for free-text queries.
//
// # Description
//
// Recommender is constructed per process with injected collaborators; the
// threshold and result-count knobs are the only mutable state and are guarded
// for concurrent tuning while requests are in flight.
//
// # Thread Safety
//
// Recommender is safe for concurrent use.
//
// # Example
//
//	r := NewRecommender(searcher, embedder, DefaultConfig())
//	resp, err := r.Recommend(ctx, "liderlik gelişimi")
type Recommender struct {
	searcher ProfileSearcher
	embedder retrieval.EmbeddingProvider

	mu     sync.RWMutex
	config Config
}

// NewRecommender creates an agent recommender.
//
// # Inputs
//
//   - searcher: Similarity index over agent profiles.
//   - embedder: Provider for query embeddings.
//   - config: Recommender configuration (use DefaultConfig() for defaults).
func NewRecommender(searcher ProfileSearcher, embedder retrieval.EmbeddingProvider, config Config) *Recommender {
	return &Recommender{
		searcher: searcher,
		embedder: embedder,
		config:   validateConfig(config),
	}
}

// preprocessQuery normalizes a query for matching against indexed content.
//
// # Description
//
// Whitespace is collapsed and the text is lowercased with Turkish casing
// rules to match how profiles were indexed. Queries shorter than two
// characters after trimming are rejected; queries longer than 500 characters
// are truncated silently.
func preprocessQuery(query string) (string, error) {
	processed := strings.Join(strings.Fields(query), " ")
	processed = cases.Lower(language.Turkish).String(processed)

	if len([]rune(processed)) < 2 {
		return "", &ValidationError{Message: "query too short, provide at least 2 characters"}
	}

	if runes := []rune(processed); len(runes) > maxQueryLength {
		processed = string(runes[:maxQueryLength])
		slog.Debug("Query truncated for embedding", "limit", maxQueryLength)
	}

	return processed, nil
}

// Recommend returns the top agents for a query.
//
// # Description
//
// The query is preprocessed, embedded, and matched against the stage-scoped
// profile index. The top MaxResults candidates are returned by descending
// score with no threshold applied, so a valid query always produces
// recommendations. An embedding failure, a search failure, or an empty match
// set all degrade to the fallback sample rather than an error.
//
// # Outputs
//
//   - *Response: Never nil on success; IsFallback marks degraded results.
//   - error: Non-nil only for validation failures.
func (r *Recommender) Recommend(ctx context.Context, query string) (*Response, error) {
	ctx, span := tracer.Start(ctx, "Recommender.Recommend")
	defer span.End()
	start := time.Now()

	processed, err := preprocessQuery(query)
	if err != nil {
		span.SetAttributes(attribute.Bool("validation_failed", true))
		return nil, err
	}

	matches, err := r.search(ctx, processed)
	if err != nil || len(matches) == 0 {
		if err != nil {
			slog.Warn("Similarity search failed, using fallback sample", "error", err)
		} else {
			slog.Info("No similarity matches, using fallback sample", "query", processed)
		}
		span.SetAttributes(attribute.Bool("fallback_used", true))
		return r.fallback(ctx, query, start), nil
	}

	r.mu.RLock()
	maxResults := r.config.MaxResults
	r.mu.RUnlock()

	top := rankMatches(matches, maxResults)
	resp := r.formatResponse(query, top, start)

	slog.Info("Agent recommendation completed",
		"query", processed,
		"totalFound", resp.TotalFound,
		"responseTimeMs", resp.SearchMetadata.ResponseTimeMs)
	return resp, nil
}

// RecommendAll returns the full unfiltered candidate list for introspection.
//
// # Description
//
// Debug mode: up to ten candidates are returned by descending score with no
// threshold and no fallback. Search failures propagate here because the
// caller is diagnosing, not serving users.
func (r *Recommender) RecommendAll(ctx context.Context, query string) (*Response, error) {
	ctx, span := tracer.Start(ctx, "Recommender.RecommendAll")
	defer span.End()
	start := time.Now()

	processed, err := preprocessQuery(query)
	if err != nil {
		return nil, err
	}

	matches, err := r.search(ctx, processed)
	if err != nil {
		return nil, err
	}

	top := rankMatches(matches, debugResultCap)
	resp := r.formatResponse(query, top, start)
	resp.Debug = true
	resp.Note = "all results shown without threshold filtering"
	return resp, nil
}

// search embeds the processed query and queries the profile index.
func (r *Recommender) search(ctx context.Context, processed string) ([]datatypes.AgentProfileResult, error) {
	vector, err := r.embedder.Embed(ctx, processed)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	r.mu.RLock()
	topK := r.config.TopK
	r.mu.RUnlock()

	return r.searcher.Search(ctx, vector, topK)
}

// fallback samples the stage's profiles with a zero vector.
//
// # Description
//
// The zero vector carries no preference, so the index returns an arbitrary
// stage-scoped sample. Up to three candidates are returned with a fixed low
// relevance score and the response is flagged. If even the sample query
// fails, an empty flagged response is returned; recommendations never error
// past validation.
func (r *Recommender) fallback(ctx context.Context, query string, start time.Time) *Response {
	observability.CountRecommendFallback()

	r.mu.RLock()
	dim := r.config.VectorDim
	r.mu.RUnlock()

	matches, err := r.searcher.Search(ctx, make([]float32, dim), 5)
	if err != nil {
		slog.Error("Fallback sample query failed", "error", err)
		resp := r.formatResponse(query, nil, start)
		resp.IsFallback = true
		return resp
	}

	if len(matches) > 3 {
		matches = matches[:3]
	}

	resp := r.formatResponse(query, matches, start)
	resp.IsFallback = true
	for i := range resp.Recommendations {
		resp.Recommendations[i].RelevanceScore = fallbackScore
	}
	return resp
}

// rankMatches sorts matches by descending certainty and keeps the top n.
func rankMatches(matches []datatypes.AgentProfileResult, n int) []datatypes.AgentProfileResult {
	sorted := make([]datatypes.AgentProfileResult, len(matches))
	copy(sorted, matches)
	sort.SliceStable(sorted, func(i, j int) bool {
		return matchScore(sorted[i]) > matchScore(sorted[j])
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func matchScore(m datatypes.AgentProfileResult) float64 {
	if m.Additional.Certainty == nil {
		return 0
	}
	return float64(*m.Additional.Certainty)
}

// formatResponse maps raw matches into the response shape.
func (r *Recommender) formatResponse(query string, matches []datatypes.AgentProfileResult, start time.Time) *Response {
	r.mu.RLock()
	stage := r.config.Stage
	threshold := r.config.SimilarityThreshold
	maxResults := r.config.MaxResults
	r.mu.RUnlock()

	recommendations := make([]AgentCandidate, 0, len(matches))
	for _, m := range matches {
		agentID := m.AgentID
		if agentID == "" {
			agentID = strings.TrimPrefix(m.Additional.ID, stage+"_")
		}

		name := m.Name
		if name == "" {
			name = "Unknown Agent"
		}

		stageName := m.Stage
		if stageName == "" {
			stageName = stage
		}

		recommendations = append(recommendations, AgentCandidate{
			AgentID:        agentID,
			Name:           name,
			Description:    m.Description,
			Category:       m.Category,
			Keywords:       m.Keywords,
			RelevanceScore: math.Round(matchScore(m)*100) / 100,
			Stage:          stageName,
		})
	}

	return &Response{
		Query:           query,
		TotalFound:      len(recommendations),
		Recommendations: recommendations,
		SearchMetadata: SearchMetadata{
			Stage:               stage,
			SimilarityThreshold: threshold,
			MaxResults:          maxResults,
			Timestamp:           time.Now().UTC().Format(time.RFC3339),
			ResponseTimeMs:      time.Since(start).Milliseconds(),
		},
	}
}

// SetSimilarityThreshold updates the relevance threshold knob at runtime.
//
// # Outputs
//
//   - error: Non-nil when the threshold is outside [0, 1]; the current
//     value is kept.
func (r *Recommender) SetSimilarityThreshold(threshold float64) error {
	if threshold < 0 || threshold > 1 {
		return &ValidationError{Message: "similarity threshold must be between 0 and 1"}
	}

	r.mu.Lock()
	old := r.config.SimilarityThreshold
	r.config.SimilarityThreshold = threshold
	r.mu.Unlock()

	slog.Info("Similarity threshold updated", "old", old, "new", threshold)
	return nil
}

// SetMaxResults updates the result-count knob at runtime.
//
// # Outputs
//
//   - error: Non-nil when the count is outside [1, 10]; the current value
//     is kept.
func (r *Recommender) SetMaxResults(maxResults int) error {
	if maxResults < 1 || maxResults > 10 {
		return &ValidationError{Message: "max results must be between 1 and 10"}
	}

	r.mu.Lock()
	old := r.config.MaxResults
	r.config.MaxResults = maxResults
	r.mu.Unlock()

	slog.Info("Max results updated", "old", old, "new", maxResults)
	return nil
}

// Settings returns the current runtime-tunable values.
func (r *Recommender) Settings() (threshold float64, maxResults int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.config.SimilarityThreshold, r.config.MaxResults
}

// getEnvString returns an environment variable or defaultVal if not set.
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt returns an environment variable as int, or defaultVal if not set/invalid.
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

// getEnvFloat returns an environment variable as float64, or defaultVal if not set/invalid.
func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if floatVal, err := strconv.ParseFloat(val, 64); err == nil {
			return floatVal
		}
	}
	return defaultVal
}
