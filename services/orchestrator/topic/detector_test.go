// Copyright (C) 2025 WAGMI Tech (dev@upwagmitec.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package topic

import (
	"sync"
	"testing"
	"time"
)

func testCatalogue() []CatalogueEntry {
	return NewCatalogue([]string{
		"İletişim becerileri",
		"Liderlik",
		"Problem çözme",
		"Zaman yönetimi",
	})
}

func TestFoldConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 200 {
				if got := Fold("İLETİŞİM BECERİLERİ"); got != "iletişim becerileri" {
					t.Errorf("Fold = %q, want iletişim becerileri", got)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestKeywordClassifier(t *testing.T) {
	catalogue := testCatalogue()
	classifier := KeywordClassifier{}

	tests := []struct {
		name     string
		query    string
		expected string
		ok       bool
	}{
		{
			name:     "exact label in query",
			query:    "Liderlik hakkında konuşalım",
			expected: "Liderlik",
			ok:       true,
		},
		{
			name:     "uppercase dotted I folds to match",
			query:    "İLETİŞİM BECERİLERİ geliştirmek istiyorum",
			expected: "İletişim becerileri",
			ok:       true,
		},
		{
			name:     "first catalogue entry wins on multiple matches",
			query:    "iletişim becerileri ve liderlik",
			expected: "İletişim becerileri",
			ok:       true,
		},
		{
			name:  "no match",
			query: "bugün hava çok güzel",
			ok:    false,
		},
		{
			name:  "empty query",
			query: "",
			ok:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, ok := classifier.Classify(tt.query, catalogue)
			if ok != tt.ok {
				t.Fatalf("Classify(%q) ok = %v, want %v", tt.query, ok, tt.ok)
			}
			if ok && label != tt.expected {
				t.Errorf("Classify(%q) = %q, want %q", tt.query, label, tt.expected)
			}
		})
	}
}

func TestClassifyNeverInventsLabels(t *testing.T) {
	catalogue := testCatalogue()
	classifier := KeywordClassifier{}

	valid := make(map[string]bool)
	for _, entry := range catalogue {
		valid[entry.Raw] = true
	}

	queries := []string{
		"liderlik eğitimi istiyorum",
		"problem çözme teknikleri",
		"alakasız bir soru",
	}
	for _, q := range queries {
		if label, ok := classifier.Classify(q, catalogue); ok && !valid[label] {
			t.Errorf("Classify(%q) returned label %q not present in catalogue", q, label)
		}
	}
}

func TestClassifyIdempotent(t *testing.T) {
	catalogue := testCatalogue()
	classifier := KeywordClassifier{}

	first, ok1 := classifier.Classify("liderlik nedir", catalogue)
	second, ok2 := classifier.Classify("liderlik nedir", catalogue)
	if ok1 != ok2 || first != second {
		t.Errorf("repeated classification differs: (%q, %v) vs (%q, %v)", first, ok1, second, ok2)
	}
}

func TestDetectFromHistory(t *testing.T) {
	catalogue := testCatalogue()
	det := NewDetector(KeywordClassifier{}, nil)

	t.Run("most recent user message wins", func(t *testing.T) {
		nodes := []HistoryNode{
			{Role: "user", Content: "zaman yönetimi zor", Timestamp: 100},
			{Role: "user", Content: "liderlik konusuna geçelim", Timestamp: 300},
			{Role: "assistant", Content: "problem çözme örneği", Timestamp: 400},
		}
		label, ok := det.DetectFromHistory(nodes, catalogue)
		if !ok || label != "Liderlik" {
			t.Errorf("DetectFromHistory = (%q, %v), want (Liderlik, true)", label, ok)
		}
	})

	t.Run("falls back to assistant messages", func(t *testing.T) {
		nodes := []HistoryNode{
			{Role: "user", Content: "anladım teşekkürler", Timestamp: 100},
			{Role: "assistant", Content: "problem çözme adımları şunlar", Timestamp: 200},
		}
		label, ok := det.DetectFromHistory(nodes, catalogue)
		if !ok || label != "Problem çözme" {
			t.Errorf("DetectFromHistory = (%q, %v), want (Problem çözme, true)", label, ok)
		}
	})

	t.Run("empty history", func(t *testing.T) {
		if _, ok := det.DetectFromHistory(nil, catalogue); ok {
			t.Error("expected no match for empty history")
		}
	})
}

func TestResolveOrder(t *testing.T) {
	catalogue := testCatalogue()

	t.Run("query text first", func(t *testing.T) {
		cache := NewCache(CacheConfig{Capacity: 10, TTL: time.Hour})
		cache.Put("conv_1", "Zaman yönetimi")
		det := NewDetector(KeywordClassifier{}, cache)

		history := []HistoryNode{{Role: "user", Content: "problem çözme", Timestamp: 1}}
		got := det.Resolve("liderlik eğitimi", history, catalogue, "conv_1")
		if got != "Liderlik" {
			t.Errorf("Resolve = %q, want Liderlik", got)
		}
		// Fresh detection overwrites the cache.
		if cached, _ := cache.Get("conv_1"); cached != "Liderlik" {
			t.Errorf("cache after resolve = %q, want Liderlik", cached)
		}
	})

	t.Run("history when query has no signal", func(t *testing.T) {
		cache := NewCache(CacheConfig{Capacity: 10, TTL: time.Hour})
		det := NewDetector(KeywordClassifier{}, cache)

		history := []HistoryNode{{Role: "user", Content: "problem çözme istiyorum", Timestamp: 1}}
		got := det.Resolve("devam edelim", history, catalogue, "conv_2")
		if got != "Problem çözme" {
			t.Errorf("Resolve = %q, want Problem çözme", got)
		}
	})

	t.Run("cache when neither matches", func(t *testing.T) {
		cache := NewCache(CacheConfig{Capacity: 10, TTL: time.Hour})
		cache.Put("conv_3", "Zaman yönetimi")
		det := NewDetector(KeywordClassifier{}, cache)

		got := det.Resolve("devam", nil, catalogue, "conv_3")
		if got != "Zaman yönetimi" {
			t.Errorf("Resolve = %q, want Zaman yönetimi", got)
		}
	})

	t.Run("empty when nothing resolves", func(t *testing.T) {
		cache := NewCache(CacheConfig{Capacity: 10, TTL: time.Hour})
		det := NewDetector(KeywordClassifier{}, cache)

		if got := det.Resolve("devam", nil, catalogue, "conv_4"); got != "" {
			t.Errorf("Resolve = %q, want empty", got)
		}
	})
}
