package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"authgrid.org/internal/obs"
)

var jsonNull = []byte("null")

// Wrap implements the cache-aside read path: return the cached value when
// present, otherwise compute it, store it and return it.
//
// Failure semantics, in order of precedence:
//   - compute errors propagate unchanged and nothing is cached;
//   - nil results (JSON null) are returned but never cached;
//   - backend errors on get or set are counted and swallowed, degrading the
//     call to a direct computation.
func Wrap[T any](ctx context.Context, c Cache, key string, ttl time.Duration, compute func(context.Context) (T, error)) (T, error) {
	var zero T

	data, ok, err := c.Get(ctx, key)
	if err != nil {
		obs.ObserveCache("error")
	} else if ok {
		var cached T
		if err := json.Unmarshal(data, &cached); err == nil {
			obs.ObserveCache("hit")
			return cached, nil
		}
		// Corrupt entry: drop it and fall through to recompute.
		_ = c.Delete(ctx, key)
	} else {
		obs.ObserveCache("miss")
	}

	result, err := compute(ctx)
	if err != nil {
		return zero, err
	}

	data, err = json.Marshal(result)
	if err != nil || bytes.Equal(data, jsonNull) {
		return result, nil
	}
	if err := c.Set(ctx, key, data, ttl); err != nil {
		obs.ObserveCache("error")
	}
	return result, nil
}
