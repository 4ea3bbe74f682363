package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemorySetGetRoundtrip(t *testing.T) {
	c, err := NewMemory(10)
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte(`{"a":1}`), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, ok, err := c.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if string(data) != `{"a":1}` {
		t.Fatalf("unexpected value %q", data)
	}

	if _, ok, _ := c.Get(ctx, "absent"); ok {
		t.Fatal("expected miss for absent key")
	}
}

func TestMemoryTTLExpiry(t *testing.T) {
	c, err := NewMemory(10)
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	base := time.Now()
	c.now = func() time.Time { return base }
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v"), 30*time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "k"); !ok {
		t.Fatal("expected hit before expiry")
	}

	c.now = func() time.Time { return base.Add(31 * time.Second) }
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Fatal("expected miss after TTL elapsed")
	}
	// Expired entry is evicted on read.
	if c.Len() != 0 {
		t.Fatalf("expected expired entry evicted, len=%d", c.Len())
	}
}

func TestMemoryZeroTTLNeverExpires(t *testing.T) {
	c, err := NewMemory(10)
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	base := time.Now()
	c.now = func() time.Time { return base }
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	c.now = func() time.Time { return base.Add(24 * 365 * time.Hour) }
	if _, ok, _ := c.Get(ctx, "k"); !ok {
		t.Fatal("zero TTL entry should not expire")
	}
}

func TestMemoryCapacityEviction(t *testing.T) {
	c, err := NewMemory(2)
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	ctx := context.Background()

	_ = c.Set(ctx, "a", []byte("1"), time.Minute)
	_ = c.Set(ctx, "b", []byte("2"), time.Minute)
	// Touch "a" so "b" is the least recently used.
	_, _, _ = c.Get(ctx, "a")
	_ = c.Set(ctx, "c", []byte("3"), time.Minute)

	if c.Len() != 2 {
		t.Fatalf("expected capacity held at 2, len=%d", c.Len())
	}
	if _, ok, _ := c.Get(ctx, "b"); ok {
		t.Fatal("expected least recently used entry evicted")
	}
	if _, ok, _ := c.Get(ctx, "a"); !ok {
		t.Fatal("recently used entry should survive")
	}
}

func TestMemoryDeleteAndReset(t *testing.T) {
	c, err := NewMemory(10)
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	ctx := context.Background()

	_ = c.Set(ctx, "a", []byte("1"), time.Minute)
	_ = c.Set(ctx, "b", []byte("2"), time.Minute)

	if err := c.Delete(ctx, "a", "missing"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "a"); ok {
		t.Fatal("deleted key should miss")
	}

	if err := c.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("expected empty cache after reset, len=%d", c.Len())
	}
}

func TestMemoryValueIsolation(t *testing.T) {
	c, err := NewMemory(10)
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	ctx := context.Background()

	src := []byte("original")
	_ = c.Set(ctx, "k", src, time.Minute)
	src[0] = 'X'

	got, _, _ := c.Get(ctx, "k")
	if string(got) != "original" {
		t.Fatalf("stored value mutated through caller slice: %q", got)
	}
	got[0] = 'Y'
	again, _, _ := c.Get(ctx, "k")
	if string(again) != "original" {
		t.Fatalf("stored value mutated through returned slice: %q", again)
	}
}

func TestNewMemoryRejectsNonPositiveSize(t *testing.T) {
	if _, err := NewMemory(0); err == nil {
		t.Fatal("expected error for zero capacity")
	}
}
