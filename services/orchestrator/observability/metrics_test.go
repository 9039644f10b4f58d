// Copyright (C) 2025 WAGMI Tech (dev@upwagmitec.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHelpersAreNilSafeBeforeInit(t *testing.T) {
	DefaultMetrics = nil

	// None of these may panic while metrics are uninitialized.
	CountRequest("retrieve", "success")
	CountRetrievalFallback()
	CountSourceFailure()
	CountRecommendFallback()
	ObserveRetrievalDuration("retrieve", 0.1)
}

func TestInitMetricsAndCounters(t *testing.T) {
	m := InitMetrics()
	require.NotNil(t, m)
	require.Same(t, m, DefaultMetrics)

	CountRetrievalFallback()
	CountRetrievalFallback()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RetrievalFallbacksTotal))

	CountSourceFailure()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SourceFailuresTotal))

	CountRecommendFallback()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecommendFallbacksTotal))

	CountRequest("recommend", "success")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("recommend", "success")))
}
