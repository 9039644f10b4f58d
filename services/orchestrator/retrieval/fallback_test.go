// Copyright (C) 2025 WAGMI Tech (dev@upwagmitec.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package retrieval

import (
	"context"
	"errors"
	"testing"
)

// retrieveFunc adapts a function to the Retriever interface for tests.
type retrieveFunc func(ctx context.Context, query string) ([]ScoredNode, error)

func (f retrieveFunc) Retrieve(ctx context.Context, query string) ([]ScoredNode, error) {
	return f(ctx, query)
}

func node(text, source string) ScoredNode {
	return ScoredNode{Text: text, Score: 0.8, Metadata: NodeMetadata{Source: source}}
}

func TestFallbackNotInvokedWhenPrimaryHasResults(t *testing.T) {
	primary := retrieveFunc(func(ctx context.Context, query string) ([]ScoredNode, error) {
		return []ScoredNode{node("primary hit", "assistant_documents")}, nil
	})
	fallback := retrieveFunc(func(ctx context.Context, query string) ([]ScoredNode, error) {
		t.Fatal("fallback must not be invoked when primary returns results")
		return nil, nil
	})

	r := NewFallbackRetriever(primary, fallback)
	nodes, err := r.Retrieve(context.Background(), "liderlik")
	if err != nil {
		t.Fatalf("Retrieve returned error: %v", err)
	}
	if len(nodes) != 1 || nodes[0].Text != "primary hit" {
		t.Errorf("expected primary result unchanged, got %+v", nodes)
	}
}

func TestFallbackOnEmptyPrimary(t *testing.T) {
	primary := retrieveFunc(func(ctx context.Context, query string) ([]ScoredNode, error) {
		return []ScoredNode{}, nil
	})
	fallback := retrieveFunc(func(ctx context.Context, query string) ([]ScoredNode, error) {
		return []ScoredNode{node("broad hit", "assistant_documents")}, nil
	})

	r := NewFallbackRetriever(primary, fallback)
	nodes, err := r.Retrieve(context.Background(), "liderlik")
	if err != nil {
		t.Fatalf("Retrieve returned error: %v", err)
	}
	if len(nodes) != 1 || nodes[0].Text != "broad hit" {
		t.Errorf("expected fallback result, got %+v", nodes)
	}
}

func TestFallbackOnPrimaryError(t *testing.T) {
	primary := retrieveFunc(func(ctx context.Context, query string) ([]ScoredNode, error) {
		return nil, &RetrievalError{StatusCode: 502, Message: "backend down", Retryable: true}
	})
	fallback := retrieveFunc(func(ctx context.Context, query string) ([]ScoredNode, error) {
		return []ScoredNode{node("broad hit", "assistant_documents")}, nil
	})

	r := NewFallbackRetriever(primary, fallback)
	nodes, err := r.Retrieve(context.Background(), "liderlik")
	if err != nil {
		t.Fatalf("Retrieve returned error: %v", err)
	}
	if len(nodes) != 1 || nodes[0].Text != "broad hit" {
		t.Errorf("expected fallback result after primary error, got %+v", nodes)
	}
}

func TestNoFallbackConfigured(t *testing.T) {
	t.Run("empty primary passes through", func(t *testing.T) {
		primary := retrieveFunc(func(ctx context.Context, query string) ([]ScoredNode, error) {
			return []ScoredNode{}, nil
		})
		r := NewFallbackRetriever(primary, nil)
		nodes, err := r.Retrieve(context.Background(), "liderlik")
		if err != nil {
			t.Fatalf("Retrieve returned error: %v", err)
		}
		if len(nodes) != 0 {
			t.Errorf("expected empty result, got %+v", nodes)
		}
	})

	t.Run("primary error propagates", func(t *testing.T) {
		wantErr := &RetrievalError{StatusCode: 503, Message: "unavailable", Retryable: true}
		primary := retrieveFunc(func(ctx context.Context, query string) ([]ScoredNode, error) {
			return nil, wantErr
		})
		r := NewFallbackRetriever(primary, nil)
		_, err := r.Retrieve(context.Background(), "liderlik")
		if !errors.Is(err, wantErr) {
			re, ok := IsRetrievalError(err)
			if !ok || re.StatusCode != 503 {
				t.Errorf("expected the primary's RetrievalError, got %v", err)
			}
		}
	})
}
