package cache

import (
	"context"

	"go.uber.org/zap"
)

// Invalidator clears every cache alias that can reference a mutated entity.
// Mutation paths must call it synchronously after the persistence write and
// before responding, so the next read observes fresh data.
//
// Known limitation, kept on purpose: invalidating a role does not cascade to
// the cached user-with-roles projections of users holding that role; those
// entries age out via their own TTL. Likewise, when a natural key changes
// (user email, role or permission name) only the current alias is cleared;
// an entry cached under the previous alias survives until its TTL. Already-
// issued tokens are unaffected by any invalidation since claims are embedded
// at issuance.
type Invalidator struct {
	cache Cache
	log   *zap.SugaredLogger
}

// NewInvalidator wires an invalidator over the given backend.
func NewInvalidator(c Cache, log *zap.SugaredLogger) *Invalidator {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Invalidator{cache: c, log: log}
}

// InvalidateUser clears the user's id key, natural-key aliases when the email
// is known, and the user list key.
func (i *Invalidator) InvalidateUser(ctx context.Context, id, email string) {
	keys := []string{UserIDKey(id), UserAllKey}
	if email != "" {
		keys = append(keys, UserEmailKey(email), UserRolesKey(email))
	}
	i.delete(ctx, keys)
}

// InvalidateRole clears the role's id key, the name alias when known, and the
// role list key.
func (i *Invalidator) InvalidateRole(ctx context.Context, id, name string) {
	keys := []string{RoleIDKey(id), RoleAllKey}
	if name != "" {
		keys = append(keys, RoleNameKey(name))
	}
	i.delete(ctx, keys)
}

// InvalidatePermission clears the permission's id key, the name alias when
// known, and the permission list key.
func (i *Invalidator) InvalidatePermission(ctx context.Context, id, name string) {
	keys := []string{PermissionIDKey(id), PermissionAllKey}
	if name != "" {
		keys = append(keys, PermissionNameKey(name))
	}
	i.delete(ctx, keys)
}

// InvalidateAll clears the whole store. Blunt escape hatch for tests and
// migrations. Backends with prefix deletion drop only this service's
// namespaces instead of flushing a possibly shared database.
func (i *Invalidator) InvalidateAll(ctx context.Context) {
	if pd, ok := i.cache.(PrefixDeleter); ok {
		for _, prefix := range []string{UserPrefix, RolePrefix, PermissionPrefix} {
			if err := pd.DeletePrefix(ctx, prefix); err != nil {
				i.log.Warnw("cache prefix invalidation failed", "prefix", prefix, "error", err)
			}
		}
		return
	}
	if err := i.cache.Reset(ctx); err != nil {
		i.log.Warnw("cache reset failed", "error", err)
	}
}

func (i *Invalidator) delete(ctx context.Context, keys []string) {
	if err := i.cache.Delete(ctx, keys...); err != nil {
		// Failing to invalidate must not fail the mutation; the stale entry
		// expires with its TTL.
		i.log.Warnw("cache invalidation failed", "keys", keys, "error", err)
	}
}
