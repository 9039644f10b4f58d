// Copyright (C) 2025 WAGMI Tech (dev@upwagmitec.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package topic

import (
	"container/list"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"
)

// CacheConfig holds sizing and expiry settings for the topic cache.
//
// # Example
//
//	cfg := DefaultCacheConfig()
//	cfg.Capacity = 500
//	cache := NewCache(cfg)
type CacheConfig struct {
	// Capacity is the maximum number of conversations tracked.
	// The least recently used entry is evicted when full. Default: 10000
	Capacity int

	// TTL is how long an entry stays valid after its last write.
	// Expired entries are treated as absent. Default: 24h
	TTL time.Duration
}

// DefaultCacheConfig returns the default cache configuration.
//
// # Description
//
// Values can be overridden via environment variables:
//   - TOPIC_CACHE_CAPACITY (default: 10000)
//   - TOPIC_CACHE_TTL_HOURS (default: 24)
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Capacity: getEnvInt("TOPIC_CACHE_CAPACITY", 10000),
		TTL:      time.Duration(getEnvInt("TOPIC_CACHE_TTL_HOURS", 24)) * time.Hour,
	}
}

// validateCacheConfig validates and corrects cache configuration values.
// Logs warnings for invalid values and applies sensible defaults.
func validateCacheConfig(config CacheConfig) CacheConfig {
	defaults := DefaultCacheConfig()

	if config.Capacity < 1 {
		slog.Warn("Invalid Capacity config, using default",
			"provided", config.Capacity, "default", defaults.Capacity)
		config.Capacity = defaults.Capacity
	}

	if config.TTL < time.Second {
		slog.Warn("Invalid TTL config, using default",
			"provided", config.TTL, "default", defaults.TTL)
		config.TTL = defaults.TTL
	}

	return config
}

// Cache remembers the last detected topic per conversation.
//
// # Description
//
// Cache is a bounded LRU with per-entry TTL, keyed by conversation id.
// Writes refresh both recency and expiry; reads refresh recency only.
// Expired entries are removed lazily on access. The cache is advisory:
// concurrent writers for the same conversation race with last-writer-wins
// semantics, which is acceptable because a stale topic only widens or
// narrows a retrieval filter.
//
// # Thread Safety
//
// All methods are safe for concurrent use.
//
// # Example
//
//	cache := NewCache(DefaultCacheConfig())
//	cache.Put("conv_42", "Liderlik")
//	topic, ok := cache.Get("conv_42")
type Cache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	entries  map[string]*list.Element
	order    *list.List

	// now is injectable for expiry tests.
	now func() time.Time
}

type cacheEntry struct {
	conversationID string
	topic          string
	expiresAt      time.Time
}

// NewCache creates a topic cache with the given configuration.
// Invalid config values are corrected to defaults with a logged warning.
func NewCache(config CacheConfig) *Cache {
	validated := validateCacheConfig(config)
	return &Cache{
		capacity: validated.Capacity,
		ttl:      validated.TTL,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		now:      time.Now,
	}
}

// Get returns the cached topic for a conversation.
//
// # Outputs
//
//   - string: The cached topic label.
//   - bool: False if absent or expired.
func (c *Cache) Get(conversationID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[conversationID]
	if !ok {
		return "", false
	}

	entry := elem.Value.(*cacheEntry)
	if c.now().After(entry.expiresAt) {
		c.order.Remove(elem)
		delete(c.entries, conversationID)
		return "", false
	}

	c.order.MoveToFront(elem)
	return entry.topic, true
}

// Put stores or overwrites the topic for a conversation.
// Evicts the least recently used entry when the cache is full.
func (c *Cache) Put(conversationID, topic string) {
	if conversationID == "" || topic == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(c.ttl)

	if elem, ok := c.entries[conversationID]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.topic = topic
		entry.expiresAt = expiresAt
		c.order.MoveToFront(elem)
		return
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			evicted := oldest.Value.(*cacheEntry)
			c.order.Remove(oldest)
			delete(c.entries, evicted.conversationID)
			slog.Debug("Evicted topic cache entry", "conversationId", evicted.conversationID)
		}
	}

	elem := c.order.PushFront(&cacheEntry{
		conversationID: conversationID,
		topic:          topic,
		expiresAt:      expiresAt,
	})
	c.entries[conversationID] = elem
}

// Len returns the number of entries currently tracked, including any
// not-yet-collected expired entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
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
