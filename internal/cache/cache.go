// Package cache implements the cache-aside layer used by the RBAC read
// paths. Values are stored as JSON so the in-process and Redis backends are
// interchangeable. Backend failures never surface as functional errors: the
// read path degrades to computing the value directly.
package cache

import (
	"context"
	"time"
)

// Cache is the backend contract. Get reports a miss with ok=false and a
// backend failure with a non-nil error; an expired entry is a miss.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Reset(ctx context.Context) error
}

// PrefixDeleter is implemented by backends that can drop every key under a
// namespace prefix without enumerating them.
type PrefixDeleter interface {
	DeletePrefix(ctx context.Context, prefix string) error
}
