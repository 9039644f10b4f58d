// Copyright (C) 2025 WAGMI Tech (dev@upwagmitec.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package topic

import (
	"fmt"
	"testing"
	"time"
)

func TestCachePutGet(t *testing.T) {
	cache := NewCache(CacheConfig{Capacity: 10, TTL: time.Hour})

	if _, ok := cache.Get("conv_1"); ok {
		t.Fatal("expected miss on empty cache")
	}

	cache.Put("conv_1", "Liderlik")
	got, ok := cache.Get("conv_1")
	if !ok || got != "Liderlik" {
		t.Errorf("Get = (%q, %v), want (Liderlik, true)", got, ok)
	}

	// Overwrite.
	cache.Put("conv_1", "Problem çözme")
	got, _ = cache.Get("conv_1")
	if got != "Problem çözme" {
		t.Errorf("Get after overwrite = %q, want Problem çözme", got)
	}
	if cache.Len() != 1 {
		t.Errorf("Len = %d, want 1", cache.Len())
	}
}

func TestCacheIgnoresEmptyKeys(t *testing.T) {
	cache := NewCache(CacheConfig{Capacity: 10, TTL: time.Hour})
	cache.Put("", "Liderlik")
	cache.Put("conv_1", "")
	if cache.Len() != 0 {
		t.Errorf("Len = %d, want 0", cache.Len())
	}
}

func TestCacheLRUEviction(t *testing.T) {
	cache := NewCache(CacheConfig{Capacity: 3, TTL: time.Hour})

	for i := 1; i <= 3; i++ {
		cache.Put(fmt.Sprintf("conv_%d", i), "Liderlik")
	}

	// Touch conv_1 so conv_2 becomes the eviction candidate.
	if _, ok := cache.Get("conv_1"); !ok {
		t.Fatal("expected conv_1 present")
	}

	cache.Put("conv_4", "Problem çözme")

	if _, ok := cache.Get("conv_2"); ok {
		t.Error("expected conv_2 evicted")
	}
	for _, id := range []string{"conv_1", "conv_3", "conv_4"} {
		if _, ok := cache.Get(id); !ok {
			t.Errorf("expected %s present", id)
		}
	}
	if cache.Len() != 3 {
		t.Errorf("Len = %d, want 3", cache.Len())
	}
}

func TestCacheTTLExpiry(t *testing.T) {
	cache := NewCache(CacheConfig{Capacity: 10, TTL: time.Minute})

	current := time.Unix(1_700_000_000, 0)
	cache.now = func() time.Time { return current }

	cache.Put("conv_1", "Liderlik")

	current = current.Add(30 * time.Second)
	if _, ok := cache.Get("conv_1"); !ok {
		t.Fatal("expected hit before expiry")
	}

	current = current.Add(2 * time.Minute)
	if _, ok := cache.Get("conv_1"); ok {
		t.Error("expected miss after expiry")
	}
	if cache.Len() != 0 {
		t.Errorf("Len after lazy removal = %d, want 0", cache.Len())
	}

	// A fresh write resets the expiry.
	cache.Put("conv_1", "Liderlik")
	current = current.Add(30 * time.Second)
	if _, ok := cache.Get("conv_1"); !ok {
		t.Error("expected hit after re-put")
	}
}

func TestCacheConfigValidation(t *testing.T) {
	// Invalid values fall back to defaults rather than breaking the cache.
	cache := NewCache(CacheConfig{Capacity: -5, TTL: 0})
	cache.Put("conv_1", "Liderlik")
	if _, ok := cache.Get("conv_1"); !ok {
		t.Error("expected cache usable with corrected config")
	}
}
