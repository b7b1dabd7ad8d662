package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	if err := c.Set(ctx, "p", payload{Name: "eur", Count: 3}, 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	var got payload
	if err := c.Get(ctx, "p", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "eur" || got.Count != 3 {
		t.Fatalf("unexpected value %+v", got)
	}

	_ = c.Set(ctx, "s", "VIP", 0)
	var s string
	if err := c.Get(ctx, "s", &s); err != nil || s != "VIP" {
		t.Fatalf("unexpected string %q %v", s, err)
	}

	if err := c.Get(ctx, "missing", &got); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}
	_ = c.Delete(ctx, "p")
	if ok, _ := c.Exists(ctx, "p"); ok {
		t.Fatalf("expected key deleted")
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	_ = c.Set(ctx, "short", "x", time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	var s string
	if err := c.Get(ctx, "short", &s); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected expired key to miss, got %v", err)
	}
}

func TestMemoryCacheEviction(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(WithMemoryMaxSize(2))
	_ = c.Set(ctx, "a", "1", 0)
	time.Sleep(time.Millisecond)
	_ = c.Set(ctx, "b", "2", 0)
	time.Sleep(time.Millisecond)
	_ = c.Set(ctx, "a", "3", 0)
	_ = c.Set(ctx, "c", "4", 0)

	if ok, _ := c.Exists(ctx, "b"); ok {
		t.Fatalf("expected least recently used key to be evicted")
	}
	var s string
	if err := c.Get(ctx, "a", &s); err != nil || s != "3" {
		t.Fatalf("expected overwritten key to survive, got %q %v", s, err)
	}
}

func TestLayeredCacheReadsThrough(t *testing.T) {
	ctx := context.Background()
	remote := NewMemoryCache()
	_ = remote.Set(ctx, "lang", "EN", 0)
	lc := NewLayeredCache(remote)

	var s string
	if err := lc.Get(ctx, "lang", &s); err != nil || s != "EN" {
		t.Fatalf("unexpected %q %v", s, err)
	}
	_ = remote.Delete(ctx, "lang")
	if err := lc.Get(ctx, "lang", &s); err != nil || s != "EN" {
		t.Fatalf("expected memory copy to serve the read, got %q %v", s, err)
	}

	if err := lc.Set(ctx, "status", payload{Name: "VIP"}, 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	var p payload
	if err := remote.Get(ctx, "status", &p); err != nil || p.Name != "VIP" {
		t.Fatalf("write did not reach remote: %+v %v", p, err)
	}
}
