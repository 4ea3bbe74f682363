package cache

import (
	"context"
	"errors"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is the in-process backend: an LRU bounded by max items with a
// per-entry TTL checked on read. Suitable for single-instance deployments;
// distributed deployments should use the Redis backend instead.
type Memory struct {
	lru *lru.Cache[string, memoryEntry]
	now func() time.Time
}

// NewMemory builds a memory cache holding at most maxItems entries.
func NewMemory(maxItems int) (*Memory, error) {
	if maxItems <= 0 {
		return nil, errors.New("cache: maxItems must be positive")
	}
	c, err := lru.New[string, memoryEntry](maxItems)
	if err != nil {
		return nil, err
	}
	return &Memory{lru: c, now: time.Now}, nil
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	entry, ok := m.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && m.now().After(entry.expiresAt) {
		m.lru.Remove(key)
		return nil, false, nil
	}
	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	entry := memoryEntry{value: make([]byte, len(value))}
	copy(entry.value, value)
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}
	m.lru.Add(key, entry)
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		m.lru.Remove(key)
	}
	return nil
}

func (m *Memory) Reset(_ context.Context) error {
	m.lru.Purge()
	return nil
}

// Len reports the number of resident entries, including expired ones not yet
// evicted by a read.
func (m *Memory) Len() int {
	return m.lru.Len()
}
