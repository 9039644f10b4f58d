// Copyright (C) 2025 WAGMI Tech (dev@upwagmitec.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package retrieval

import (
	"context"
	"log/slog"

	"github.com/wagmi-upschool/up-ai-sub000/services/orchestrator/observability"
	"go.opentelemetry.io/otel/attribute"
)

// FallbackRetriever retries a broader retriever when a filtered one comes
// back empty.
//
// # Description
//
// Wraps a primary retriever (typically topic-filtered) and an optional
// fallback over the same corpus without the filter. The fallback fires when
// the primary returns no results or errors; a non-empty primary result is
// returned unchanged and the fallback is never invoked. This is single-level:
// a failing fallback is not retried further. An overly specific topic filter
// must never turn into a hard zero-result failure when broader context
// exists.
//
// # Thread Safety
//
// FallbackRetriever is stateless and safe for concurrent use when its
// members are.
//
// # Example
//
//	primary := NewAssistantDocumentRetriever(client, embedder, "asst_1", "Liderlik", cfg)
//	broad := NewAssistantDocumentRetriever(client, embedder, "asst_1", "", cfg)
//	r := NewFallbackRetriever(primary, broad)
type FallbackRetriever struct {
	primary  Retriever
	fallback Retriever
}

var _ Retriever = (*FallbackRetriever)(nil)

// NewFallbackRetriever creates a FallbackRetriever.
// A nil fallback means the primary's result, empty or not, is final.
func NewFallbackRetriever(primary, fallback Retriever) *FallbackRetriever {
	return &FallbackRetriever{primary: primary, fallback: fallback}
}

// Retrieve runs the primary and falls back on empty results or errors.
//
// # Outputs
//
//   - []ScoredNode: The primary's result when non-empty, otherwise the
//     fallback's. Empty when both come back empty.
//   - error: Non-nil only when no fallback is configured and the primary
//     errored, or when the fallback itself errored after a primary failure.
func (r *FallbackRetriever) Retrieve(ctx context.Context, query string) ([]ScoredNode, error) {
	ctx, span := tracer.Start(ctx, "FallbackRetriever.Retrieve")
	defer span.End()

	nodes, err := r.primary.Retrieve(ctx, query)
	if err == nil && len(nodes) > 0 {
		return nodes, nil
	}

	if r.fallback == nil {
		if err != nil {
			return nil, err
		}
		return nodes, nil
	}

	if err != nil {
		slog.Warn("Primary retriever failed, falling back to unfiltered search", "error", err)
	} else {
		slog.Debug("Primary retriever returned no results, falling back to unfiltered search")
	}
	span.SetAttributes(attribute.Bool("fallback_used", true))
	observability.CountRetrievalFallback()

	return r.fallback.Retrieve(ctx, query)
}
