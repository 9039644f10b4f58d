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
	"golang.org/x/sync/errgroup"
)

// CombinedRetriever fans out across independent retrievers and concatenates
// their results.
//
// # Description
//
// All members run concurrently; the join waits for every member before
// composing the final list in declaration order. Results are not interleaved
// or deduplicated across sources, because each source's score scale is only
// locally meaningful. A failing member is isolated: its error becomes an
// empty contribution plus a warning, never an abort of the whole call, so
// one degraded backend cannot block the pipeline.
//
// # Thread Safety
//
// CombinedRetriever is stateless and safe for concurrent use when its
// members are.
//
// # Example
//
//	combined := NewCombinedRetriever(chatRetriever, docsWithFallback)
//	nodes, err := combined.Retrieve(ctx, "liderlik")
type CombinedRetriever struct {
	retrievers []Retriever
}

var _ Retriever = (*CombinedRetriever)(nil)

// NewCombinedRetriever creates a CombinedRetriever over the given members.
// Declaration order determines result order.
func NewCombinedRetriever(retrievers ...Retriever) *CombinedRetriever {
	return &CombinedRetriever{retrievers: retrievers}
}

// Retrieve runs all members concurrently and concatenates their results.
//
// # Outputs
//
//   - []ScoredNode: Member results concatenated in declaration order.
//     A failed member contributes nothing.
//   - error: Always nil; per-member failures are logged and counted, not
//     propagated.
func (r *CombinedRetriever) Retrieve(ctx context.Context, query string) ([]ScoredNode, error) {
	ctx, span := tracer.Start(ctx, "CombinedRetriever.Retrieve")
	defer span.End()
	span.SetAttributes(attribute.Int("member_count", len(r.retrievers)))

	results := make([][]ScoredNode, len(r.retrievers))

	g, gctx := errgroup.WithContext(ctx)
	for i, member := range r.retrievers {
		g.Go(func() error {
			nodes, err := member.Retrieve(gctx, query)
			if err != nil {
				// Isolate the failure: this source contributes zero results.
				slog.Warn("Member retriever failed, contributing empty result",
					"memberIndex", i, "error", err)
				observability.CountSourceFailure()
				return nil
			}
			results[i] = nodes
			return nil
		})
	}

	// Members never return errors; Wait is purely the join point.
	_ = g.Wait()

	total := 0
	for _, nodes := range results {
		total += len(nodes)
	}
	merged := make([]ScoredNode, 0, total)
	for _, nodes := range results {
		merged = append(merged, nodes...)
	}

	span.SetAttributes(attribute.Int("result_count", len(merged)))
	return merged, nil
}
