// Copyright (C) 2025 WAGMI Tech (dev@upwagmitec.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package recommend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wagmi-upschool/up-ai-sub000/services/orchestrator/datatypes"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
)

// ProfileSearcher runs similarity queries over the agent profile index.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type ProfileSearcher interface {
	// Search returns up to topK profiles nearest to the vector, scoped to
	// the searcher's stage.
	Search(ctx context.Context, vector []float32, topK int) ([]datatypes.AgentProfileResult, error)
}

// WeaviateProfileSearcher queries the AgentProfile class.
type WeaviateProfileSearcher struct {
	client *weaviate.Client
	stage  string
}

var _ ProfileSearcher = (*WeaviateProfileSearcher)(nil)

// NewWeaviateProfileSearcher creates a profile searcher scoped to one stage.
//
// # Inputs
//
//   - client: Weaviate client for database access.
//   - stage: Deployment stage; profiles from other stages are never returned.
func NewWeaviateProfileSearcher(client *weaviate.Client, stage string) *WeaviateProfileSearcher {
	return &WeaviateProfileSearcher{client: client, stage: stage}
}

// Search issues a stage-filtered nearVector query over AgentProfile.
func (s *WeaviateProfileSearcher) Search(ctx context.Context, vector []float32, topK int) ([]datatypes.AgentProfileResult, error) {
	where := filters.Where().
		WithPath([]string{"stage"}).
		WithOperator(filters.Equal).
		WithValueString(s.stage)

	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(vector)

	result, err := s.client.GraphQL().Get().
		WithClassName("AgentProfile").
		WithFields(
			graphql.Field{Name: "agent_id"},
			graphql.Field{Name: "name"},
			graphql.Field{Name: "description"},
			graphql.Field{Name: "category"},
			graphql.Field{Name: "keywords"},
			graphql.Field{Name: "stage"},
			graphql.Field{Name: "_additional", Fields: []graphql.Field{
				{Name: "id"},
				{Name: "certainty"},
			}},
		).
		WithWhere(where).
		WithNearVector(nearVector).
		WithLimit(topK).
		Do(ctx)
	if err != nil {
		slog.Error("Agent profile search failed", "stage", s.stage, "error", err)
		return nil, fmt.Errorf("agent profile search failed: %w", err)
	}

	parsed, err := datatypes.ParseGraphQLResponse[datatypes.AgentProfileQueryResponse](result)
	if err != nil {
		slog.Error("Failed to parse agent profile results", "error", err)
		return nil, fmt.Errorf("failed to parse agent profiles: %w", err)
	}

	return parsed.Get.AgentProfile, nil
}
