package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type flakyCache struct {
	inner   *Memory
	getErr  error
	setErr  error
	getCnt  int
	setCnt  int
	deleted []string
}

func (f *flakyCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	f.getCnt++
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	return f.inner.Get(ctx, key)
}

func (f *flakyCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	f.setCnt++
	if f.setErr != nil {
		return f.setErr
	}
	return f.inner.Set(ctx, key, value, ttl)
}

func (f *flakyCache) Delete(ctx context.Context, keys ...string) error {
	f.deleted = append(f.deleted, keys...)
	return f.inner.Delete(ctx, keys...)
}

func (f *flakyCache) Reset(ctx context.Context) error { return f.inner.Reset(ctx) }

func newFlaky(t *testing.T) *flakyCache {
	t.Helper()
	m, err := NewMemory(100)
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	return &flakyCache{inner: m}
}

type payload struct {
	N int `json:"n"`
}

func TestWrapComputesOnceAndServesFromCache(t *testing.T) {
	c := newFlaky(t)
	ctx := context.Background()
	calls := 0
	compute := func(context.Context) (payload, error) {
		calls++
		return payload{N: 42}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := Wrap(ctx, c, "p:1", time.Minute, compute)
		if err != nil {
			t.Fatalf("Wrap: %v", err)
		}
		if got.N != 42 {
			t.Fatalf("unexpected value %+v", got)
		}
	}
	if calls != 1 {
		t.Fatalf("expected one computation, got %d", calls)
	}
}

func TestWrapComputeErrorPropagatesAndNothingCached(t *testing.T) {
	c := newFlaky(t)
	ctx := context.Background()
	boom := errors.New("source down")

	_, err := Wrap(ctx, c, "p:err", time.Minute, func(context.Context) (payload, error) {
		return payload{}, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected compute error, got %v", err)
	}
	if _, ok, _ := c.inner.Get(ctx, "p:err"); ok {
		t.Fatal("failed computation must not be cached")
	}
}

func TestWrapBackendFailureDegradesToCompute(t *testing.T) {
	c := newFlaky(t)
	c.getErr = errors.New("backend down")
	c.setErr = errors.New("backend down")
	ctx := context.Background()

	calls := 0
	compute := func(context.Context) (payload, error) {
		calls++
		return payload{N: 7}, nil
	}

	for i := 0; i < 2; i++ {
		got, err := Wrap(ctx, c, "p:degraded", time.Minute, compute)
		if err != nil {
			t.Fatalf("Wrap must swallow backend errors, got %v", err)
		}
		if got.N != 7 {
			t.Fatalf("unexpected value %+v", got)
		}
	}
	if calls != 2 {
		t.Fatalf("expected compute per call while degraded, got %d", calls)
	}
}

func TestWrapCorruptEntryDroppedAndRecomputed(t *testing.T) {
	c := newFlaky(t)
	ctx := context.Background()
	_ = c.inner.Set(ctx, "p:corrupt", []byte("{not json"), time.Minute)

	got, err := Wrap(ctx, c, "p:corrupt", time.Minute, func(context.Context) (payload, error) {
		return payload{N: 9}, nil
	})
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	if got.N != 9 {
		t.Fatalf("unexpected value %+v", got)
	}
	if len(c.deleted) == 0 || c.deleted[0] != "p:corrupt" {
		t.Fatalf("corrupt entry should be deleted, deletions: %v", c.deleted)
	}
	// The recomputed value replaces the corrupt one.
	data, ok, _ := c.inner.Get(ctx, "p:corrupt")
	if !ok || string(data) != `{"n":9}` {
		t.Fatalf("expected recomputed entry cached, got ok=%v data=%q", ok, data)
	}
}

func TestWrapNilResultNotCached(t *testing.T) {
	c := newFlaky(t)
	ctx := context.Background()

	calls := 0
	compute := func(context.Context) (*payload, error) {
		calls++
		return nil, nil
	}
	for i := 0; i < 2; i++ {
		got, err := Wrap(ctx, c, "p:nil", time.Minute, compute)
		if err != nil {
			t.Fatalf("Wrap: %v", err)
		}
		if got != nil {
			t.Fatalf("expected nil result, got %+v", got)
		}
	}
	if calls != 2 {
		t.Fatalf("nil results must not be cached, compute calls: %d", calls)
	}
}
