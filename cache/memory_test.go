package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ZaguanLabs/nbtlai"
)

func spanKey(text string) string {
	return nbtlai.CacheKey(nbtlai.HashText(text), "en", "pt-BR", "google")
}

func TestInMemoryCache_GetSet(t *testing.T) {
	c := NewInMemoryCache(3600)

	if _, ok := c.Get(spanKey("Hello")); ok {
		t.Error("Expected miss on empty cache")
	}

	if err := c.Set(spanKey("Hello"), "Olá"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, ok := c.Get(spanKey("Hello"))
	if !ok || val != "Olá" {
		t.Errorf("Expected hit with 'Olá', got %q (%v)", val, ok)
	}

	if _, ok := c.Get(spanKey("Hello ")); ok {
		t.Error("Whitespace must produce a different key")
	}
}

func TestInMemoryCache_TTL(t *testing.T) {
	c := NewInMemoryCache(60)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_ = c.Set("k", "v")

	now = now.Add(59 * time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Error("Value should be available before the TTL")
	}

	now = now.Add(2 * time.Second)
	val, ok := c.Get("k")
	if ok || val != "" {
		t.Errorf("Value should be expired after TTL, got %q", val)
	}
	if c.Len() != 0 {
		t.Error("Expired entry should be removed on read")
	}
}

func TestInMemoryCache_NoTTL(t *testing.T) {
	c := NewInMemoryCache(0)
	now := time.Now()
	c.now = func() time.Time { return now }

	_ = c.Set("k", "v")
	now = now.Add(24 * 365 * time.Hour)

	if _, ok := c.Get("k"); !ok {
		t.Error("Entries should never expire without a TTL")
	}
}

func TestInMemoryCache_Overwrite(t *testing.T) {
	c := NewInMemoryCache(0)
	_ = c.Set("k", "first")
	_ = c.Set("k", "second")

	if val, _ := c.Get("k"); val != "second" {
		t.Errorf("Expected 'second', got %q", val)
	}
	if c.Len() != 1 {
		t.Errorf("Expected 1 entry, got %d", c.Len())
	}
}

func TestInMemoryCache_Entries(t *testing.T) {
	c := NewInMemoryCache(60)
	now := time.Now()
	c.now = func() time.Time { return now }

	_ = c.Set("old", "1")
	now = now.Add(2 * time.Minute)
	_ = c.Set("new", "2")

	entries, err := c.Entries()
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	if len(entries) != 1 || entries["new"] != "2" {
		t.Errorf("Expected only the live entry, got %v", entries)
	}

	c.Clear()
	if c.Len() != 0 {
		t.Error("Clear should remove all entries")
	}
}

func TestInMemoryCache_Concurrent(t *testing.T) {
	c := NewInMemoryCache(0)
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", n%10)
			_ = c.Set(key, "v")
			c.Get(key)
		}(i)
	}
	wg.Wait()

	if c.Len() != 10 {
		t.Errorf("Expected 10 entries, got %d", c.Len())
	}
}

func TestOpen(t *testing.T) {
	store, err := Open(t.Context(), Config{Kind: "none"})
	if err != nil || store != nil {
		t.Errorf("Expected no store for kind none, got %v, %v", store, err)
	}

	store, err = Open(t.Context(), Config{Kind: "memory", TTL: 10})
	if err != nil {
		t.Fatalf("Open memory failed: %v", err)
	}
	if _, ok := store.(*InMemoryCache); !ok {
		t.Errorf("Expected *InMemoryCache, got %T", store)
	}

	if _, err := Open(t.Context(), Config{Kind: "memcached"}); err == nil {
		t.Error("Expected error for unknown kind")
	}
	if _, err := Open(t.Context(), Config{Kind: "redis"}); err == nil {
		t.Error("Expected error for redis without URL")
	}
}
