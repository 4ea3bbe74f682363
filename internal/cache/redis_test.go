package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewRedis(mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisSetGetRoundtrip(t *testing.T) {
	c, _ := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte(`{"a":1}`), time.Minute))

	data, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"a":1}`, string(data))

	_, ok, err = c.Get(ctx, "absent")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisTTLExpiry(t *testing.T) {
	c, mr := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 30*time.Second))

	mr.FastForward(31 * time.Second)

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok, "entry should expire with its TTL")
}

func TestRedisDelete(t *testing.T) {
	c, _ := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), time.Minute))
	require.NoError(t, c.Delete(ctx, "a", "b", "missing"))

	_, ok, err := c.Get(ctx, "a")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisDeletePrefix(t *testing.T) {
	c, _ := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, UserIDKey("u1"), []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, UserRolesKey("jane@example.com"), []byte("2"), time.Minute))
	require.NoError(t, c.Set(ctx, RoleIDKey("r1"), []byte("3"), time.Minute))

	require.NoError(t, c.DeletePrefix(ctx, UserPrefix))

	_, ok, err := c.Get(ctx, UserIDKey("u1"))
	require.NoError(t, err)
	require.False(t, ok)
	_, ok, err = c.Get(ctx, UserRolesKey("jane@example.com"))
	require.NoError(t, err)
	require.False(t, ok)

	// Other namespaces stay untouched.
	_, ok, err = c.Get(ctx, RoleIDKey("r1"))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRedisBackendDownSurfacesError(t *testing.T) {
	c, mr := newTestRedis(t)
	ctx := context.Background()

	mr.Close()

	_, _, err := c.Get(ctx, "k")
	require.Error(t, err)
	require.Error(t, c.Set(ctx, "k", []byte("v"), time.Minute))
}
