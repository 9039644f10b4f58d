// Copyright (C) 2025 WAGMI Tech (dev@upwagmitec.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package topic decides which topic filter, if any, applies to a conversation
// turn. Detection matches free text against an assistant-specific catalogue of
// valid topic labels; a bounded cache remembers the last detected topic per
// conversation so turns that carry no topic signal of their own can reuse it.
package topic

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CatalogueEntry is one valid topic label.
//
// # Description
//
// Raw is the display form provided by the assistant's input options;
// Normalized is the Turkish-folded lowercase form used for matching.
type CatalogueEntry struct {
	Raw        string
	Normalized string
}

// NewCatalogue builds catalogue entries from raw option labels.
//
// # Inputs
//
//   - options: Raw topic labels as configured for the assistant.
//
// # Outputs
//
//   - []CatalogueEntry: Entries with normalized forms precomputed.
//     Empty labels are skipped.
func NewCatalogue(options []string) []CatalogueEntry {
	entries := make([]CatalogueEntry, 0, len(options))
	for _, opt := range options {
		trimmed := strings.TrimSpace(opt)
		if trimmed == "" {
			continue
		}
		entries = append(entries, CatalogueEntry{
			Raw:        trimmed,
			Normalized: Fold(trimmed),
		})
	}
	return entries
}

// casers pools Turkish lowercase casers. A Caser carries transform state and
// must not be shared between goroutines, so each fold borrows one.
var casers = sync.Pool{
	New: func() any {
		c := cases.Lower(language.Turkish)
		return &c
	},
}

// Fold lowercases text using Turkish casing rules.
//
// # Description
//
// Turkish has dotted and dotless i forms; plain strings.ToLower maps
// U+0130 (İ) to "i" plus a combining dot, which breaks substring matching
// against labels typed with a plain "i". Folding both sides with the
// Turkish caser keeps query and catalogue in the same form.
func Fold(s string) string {
	c := casers.Get().(*cases.Caser)
	defer casers.Put(c)
	return c.String(s)
}

// HistoryNode is a retrieved conversation message used for topic recovery.
type HistoryNode struct {
	Role      string
	Content   string
	Timestamp int64
}

// Classifier maps free text onto a catalogue label.
//
// # Description
//
// Classifier is the pluggable matching heuristic. The production
// implementation is KeywordClassifier (substring containment); an
// embedding-similarity classifier can replace it without touching the
// resolution logic in Detector.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use and must not mutate
// the catalogue.
type Classifier interface {
	// Classify returns the catalogue label matching the query, if any.
	//
	// # Inputs
	//
	//   - query: Free text to classify.
	//   - catalogue: Valid topic labels for the assistant.
	//
	// # Outputs
	//
	//   - string: The Raw form of the matched entry.
	//   - bool: False if no entry matches.
	Classify(query string, catalogue []CatalogueEntry) (string, bool)
}

// KeywordClassifier matches by normalized substring containment.
//
// # Description
//
// Returns the first catalogue entry whose normalized form is a substring of
// the normalized query. First match wins; catalogue order is significant.
//
// # Example
//
//	c := KeywordClassifier{}
//	label, ok := c.Classify("Liderlik hakkında konuşalım", catalogue)
type KeywordClassifier struct{}

// Classify implements Classifier by substring containment.
func (KeywordClassifier) Classify(query string, catalogue []CatalogueEntry) (string, bool) {
	folded := Fold(query)
	if folded == "" {
		return "", false
	}
	for _, entry := range catalogue {
		if entry.Normalized == "" {
			continue
		}
		if strings.Contains(folded, entry.Normalized) {
			return entry.Raw, true
		}
	}
	return "", false
}

// Detector resolves the effective topic for a conversation turn.
//
// # Description
//
// Detector combines a Classifier with the per-conversation topic cache.
// Resolution order for a turn: the query text itself, then recent
// conversation history, then the cached topic for the conversation, then
// no topic at all. Any fresh detection overwrites the cache entry.
//
// # Thread Safety
//
// Detector is safe for concurrent use; the cache handles its own locking
// and the classifier is required to be stateless.
//
// # Example
//
//	det := NewDetector(KeywordClassifier{}, cache)
//	label := det.Resolve("sql join nasıl yazılır", history, catalogue, "conv_42")
type Detector struct {
	classifier Classifier
	cache      *Cache
}

// NewDetector creates a Detector with the given classifier and cache.
// A nil cache disables cached-topic recovery.
func NewDetector(classifier Classifier, cache *Cache) *Detector {
	return &Detector{classifier: classifier, cache: cache}
}

// Detect matches the query text against the catalogue.
func (d *Detector) Detect(query string, catalogue []CatalogueEntry) (string, bool) {
	return d.classifier.Classify(query, catalogue)
}

// DetectFromHistory recovers a topic from retrieved conversation history.
//
// # Description
//
// Sorts nodes by descending timestamp and matches user-authored messages
// first; the most recent user utterance is the strongest topic signal.
// Only when no user message matches does it scan the remaining nodes
// regardless of role.
//
// # Inputs
//
//   - nodes: Retrieved history messages in any order.
//   - catalogue: Valid topic labels.
//
// # Outputs
//
//   - string: The matched label.
//   - bool: False if no node matches.
func (d *Detector) DetectFromHistory(nodes []HistoryNode, catalogue []CatalogueEntry) (string, bool) {
	if len(nodes) == 0 {
		return "", false
	}

	sorted := make([]HistoryNode, len(nodes))
	copy(sorted, nodes)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp > sorted[j].Timestamp
	})

	for _, node := range sorted {
		if node.Role != "user" {
			continue
		}
		if label, ok := d.classifier.Classify(node.Content, catalogue); ok {
			return label, true
		}
	}

	for _, node := range sorted {
		if label, ok := d.classifier.Classify(node.Content, catalogue); ok {
			return label, true
		}
	}

	return "", false
}

// Resolve produces the effective topic for a turn.
//
// # Description
//
// Applies the resolution order: (1) the query text, (2) conversation
// history, (3) the cached topic for this conversation, (4) none. A non-empty
// result from steps 1 or 2 is written through to the cache. An empty return
// means no topic filter should be applied.
//
// # Inputs
//
//   - query: The current turn's text.
//   - history: Retrieved history nodes, may be nil.
//   - catalogue: Valid topic labels for the assistant.
//   - conversationID: Cache key; ignored when empty.
//
// # Outputs
//
//   - string: The resolved topic label, or "" for no filter.
func (d *Detector) Resolve(query string, history []HistoryNode, catalogue []CatalogueEntry, conversationID string) string {
	if label, ok := d.Detect(query, catalogue); ok {
		d.remember(conversationID, label)
		return label
	}

	if label, ok := d.DetectFromHistory(history, catalogue); ok {
		slog.Debug("Topic recovered from conversation history",
			"conversationId", conversationID, "topic", label)
		d.remember(conversationID, label)
		return label
	}

	if d.cache != nil && conversationID != "" {
		if label, ok := d.cache.Get(conversationID); ok {
			slog.Debug("Topic resolved from cache",
				"conversationId", conversationID, "topic", label)
			return label
		}
	}

	return ""
}

func (d *Detector) remember(conversationID, label string) {
	if d.cache == nil || conversationID == "" || label == "" {
		return
	}
	d.cache.Put(conversationID, label)
}
