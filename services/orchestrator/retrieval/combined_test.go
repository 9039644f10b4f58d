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
	"sync"
	"testing"
	"time"
)

func TestCombinedConcatenatesInDeclarationOrder(t *testing.T) {
	a := retrieveFunc(func(ctx context.Context, query string) ([]ScoredNode, error) {
		return []ScoredNode{node("a", "chat_history")}, nil
	})
	empty := retrieveFunc(func(ctx context.Context, query string) ([]ScoredNode, error) {
		return []ScoredNode{}, nil
	})
	c := retrieveFunc(func(ctx context.Context, query string) ([]ScoredNode, error) {
		return []ScoredNode{node("c", "assistant_documents")}, nil
	})

	combined := NewCombinedRetriever(a, empty, c)
	nodes, err := combined.Retrieve(context.Background(), "liderlik")
	if err != nil {
		t.Fatalf("Retrieve returned error: %v", err)
	}
	if len(nodes) != 2 || nodes[0].Text != "a" || nodes[1].Text != "c" {
		t.Errorf("expected [a c], got %+v", nodes)
	}
}

func TestCombinedOrderStableUnderSlowMembers(t *testing.T) {
	// The first member finishes last; declaration order must still hold.
	slow := retrieveFunc(func(ctx context.Context, query string) ([]ScoredNode, error) {
		time.Sleep(20 * time.Millisecond)
		return []ScoredNode{node("first", "chat_history")}, nil
	})
	fast := retrieveFunc(func(ctx context.Context, query string) ([]ScoredNode, error) {
		return []ScoredNode{node("second", "assistant_documents")}, nil
	})

	combined := NewCombinedRetriever(slow, fast)
	nodes, err := combined.Retrieve(context.Background(), "liderlik")
	if err != nil {
		t.Fatalf("Retrieve returned error: %v", err)
	}
	if len(nodes) != 2 || nodes[0].Text != "first" || nodes[1].Text != "second" {
		t.Errorf("expected declaration order, got %+v", nodes)
	}
}

func TestCombinedIsolatesMemberFailure(t *testing.T) {
	failing := retrieveFunc(func(ctx context.Context, query string) ([]ScoredNode, error) {
		return nil, errors.New("backend exploded")
	})
	healthy := retrieveFunc(func(ctx context.Context, query string) ([]ScoredNode, error) {
		return []ScoredNode{node("still here", "assistant_documents")}, nil
	})

	combined := NewCombinedRetriever(failing, healthy)
	nodes, err := combined.Retrieve(context.Background(), "liderlik")
	if err != nil {
		t.Fatalf("member failure must not abort the combined call: %v", err)
	}
	if len(nodes) != 1 || nodes[0].Text != "still here" {
		t.Errorf("expected only healthy member's result, got %+v", nodes)
	}
}

func TestCombinedNoDedup(t *testing.T) {
	dup := retrieveFunc(func(ctx context.Context, query string) ([]ScoredNode, error) {
		return []ScoredNode{node("same text", "chat_history")}, nil
	})
	dup2 := retrieveFunc(func(ctx context.Context, query string) ([]ScoredNode, error) {
		return []ScoredNode{node("same text", "assistant_documents")}, nil
	})

	combined := NewCombinedRetriever(dup, dup2)
	nodes, err := combined.Retrieve(context.Background(), "liderlik")
	if err != nil {
		t.Fatalf("Retrieve returned error: %v", err)
	}
	if len(nodes) != 2 {
		t.Errorf("duplicates across sources must be preserved, got %d nodes", len(nodes))
	}
}

func TestCombinedRunsMembersConcurrently(t *testing.T) {
	var mu sync.Mutex
	started := 0
	overlapped := true
	release := make(chan struct{})

	member := retrieveFunc(func(ctx context.Context, query string) ([]ScoredNode, error) {
		mu.Lock()
		started++
		if started == 2 {
			close(release)
		}
		mu.Unlock()

		select {
		case <-release:
			return []ScoredNode{}, nil
		case <-time.After(2 * time.Second):
			mu.Lock()
			overlapped = false
			mu.Unlock()
			return []ScoredNode{}, nil
		}
	})

	combined := NewCombinedRetriever(member, member)
	if _, err := combined.Retrieve(context.Background(), "liderlik"); err != nil {
		t.Fatalf("Retrieve returned error: %v", err)
	}
	if !overlapped {
		t.Error("member calls did not overlap; fan-out must be concurrent")
	}
}
