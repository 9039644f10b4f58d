// Copyright (C) 2025 WAGMI Tech (dev@upwagmitec.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the orchestrator.
//
// # Description
//
// Metrics cover the retrieval pipeline and the recommendation ranker:
//   - Request counters by endpoint and status
//   - Retrieval fallback and per-source failure counters
//   - Recommendation fallback counter
//   - Retrieval latency histograms
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint. Use with Prometheus +
// Grafana for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "upai"

// Subsystem for pipeline metrics
const pipelineSubsystem = "pipeline"

// PipelineMetrics holds all Prometheus metrics for the answer pipeline.
//
// # Description
//
// Provides counters and histograms for monitoring retrieval quality and
// degradation. Initialize once at startup via InitMetrics().
//
// # Thread Safety
//
// All operations are thread-safe.
type PipelineMetrics struct {
	// RequestsTotal counts requests by endpoint and status.
	// Labels: endpoint (retrieve, memory_context, recommend), status (success, error)
	RequestsTotal *prometheus.CounterVec

	// RetrievalFallbacksTotal counts topic-filtered searches that fell back
	// to the unfiltered corpus.
	RetrievalFallbacksTotal prometheus.Counter

	// SourceFailuresTotal counts member retrievers that failed inside a
	// combined retrieval and contributed an empty result.
	SourceFailuresTotal prometheus.Counter

	// RecommendFallbacksTotal counts recommendation requests served by the
	// zero-vector fallback sample.
	RecommendFallbacksTotal prometheus.Counter

	// RetrievalDurationSeconds measures end-to-end combined retrieval latency.
	// Labels: endpoint
	RetrievalDurationSeconds *prometheus.HistogramVec
}

// DefaultMetrics is the singleton instance of PipelineMetrics.
// Initialized by InitMetrics(); helpers below are no-ops while nil.
var DefaultMetrics *PipelineMetrics

// InitMetrics initializes the default metrics instance.
//
// # Description
//
// Creates and registers all Prometheus metrics. Should be called once
// at application startup.
//
// # Limitations
//
//   - Panics if called twice (duplicate registration).
func InitMetrics() *PipelineMetrics {
	DefaultMetrics = &PipelineMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "requests_total",
				Help:      "Total number of pipeline requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),

		RetrievalFallbacksTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "retrieval_fallbacks_total",
				Help:      "Topic-filtered searches that fell back to the unfiltered corpus",
			},
		),

		SourceFailuresTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "source_failures_total",
				Help:      "Member retrievers that failed and contributed empty results",
			},
		),

		RecommendFallbacksTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "recommend_fallbacks_total",
				Help:      "Recommendation requests served by the zero-vector fallback",
			},
		),

		RetrievalDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "retrieval_duration_seconds",
				Help:      "End-to-end combined retrieval latency in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"endpoint"},
		),
	}

	return DefaultMetrics
}

// =============================================================================
// Nil-safe Helpers
// =============================================================================

// CountRequest increments the request counter for an endpoint/status pair.
func CountRequest(endpoint, status string) {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.RequestsTotal.WithLabelValues(endpoint, status).Inc()
}

// CountRetrievalFallback increments the retrieval fallback counter.
func CountRetrievalFallback() {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.RetrievalFallbacksTotal.Inc()
}

// CountSourceFailure increments the per-source failure counter.
func CountSourceFailure() {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.SourceFailuresTotal.Inc()
}

// CountRecommendFallback increments the recommendation fallback counter.
func CountRecommendFallback() {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.RecommendFallbacksTotal.Inc()
}

// ObserveRetrievalDuration records a retrieval latency sample in seconds.
func ObserveRetrievalDuration(endpoint string, seconds float64) {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.RetrievalDurationSeconds.WithLabelValues(endpoint).Observe(seconds)
}
