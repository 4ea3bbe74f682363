package rbac

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"authgrid.org/internal/cache"
	"authgrid.org/internal/config"
	"authgrid.org/internal/ids"
)

var emailRx = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether the address has a plausible mailbox shape.
func ValidEmail(email string) bool {
	return emailRx.MatchString(email)
}

const minPasswordLength = 8

// HashFunc turns a plaintext password into a stored hash. Injected so this
// package stays independent of the credential layer.
type HashFunc func(password string) (string, error)

// Service exposes user, role and permission operations with validation,
// cache-aside reads and synchronous cache invalidation on every mutation.
type Service struct {
	store Store
	cache cache.Cache
	inval *cache.Invalidator
	ttl   config.TTL
	hash  HashFunc
	log   *zap.SugaredLogger
	now   func() time.Time
}

// NewService wires a Service. All dependencies are required.
func NewService(store Store, c cache.Cache, inval *cache.Invalidator, ttl config.TTL, hash HashFunc, log *zap.SugaredLogger) (*Service, error) {
	if store == nil {
		return nil, errors.New("rbac: store is required")
	}
	if c == nil || inval == nil {
		return nil, errors.New("rbac: cache and invalidator are required")
	}
	if hash == nil {
		return nil, errors.New("rbac: hash function is required")
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{
		store: store,
		cache: c,
		inval: inval,
		ttl:   ttl,
		hash:  hash,
		log:   log,
		now:   time.Now,
	}, nil
}

// --- Users ---

// CreateUserParams carries the signup/admin-create input.
type CreateUserParams struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

func (s *Service) CreateUser(ctx context.Context, p CreateUserParams) (*User, error) {
	email := strings.TrimSpace(strings.ToLower(p.Email))
	if !ValidEmail(email) {
		return nil, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	if len(p.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	hash, err := s.hash(p.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &User{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(p.FirstName),
		LastName:     strings.TrimSpace(p.LastName),
		IsActive:     true,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	s.inval.InvalidateUser(ctx, user.ID, user.Email)
	s.log.Infow("user created", "user_id", user.ID, "email", user.Email)
	return user, nil
}

// GetUser returns the user with roles populated, via the cache. The returned
// record never carries the password hash.
func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return cache.Wrap(ctx, s.cache, cache.UserIDKey(id), s.ttl.Medium, func(ctx context.Context) (*User, error) {
		return s.store.GetUser(ctx, id)
	})
}

// GetUserByEmail bypasses the cache and returns the stored record including
// the password hash. Reserved for the credential verifier.
func (s *Service) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	return s.store.GetUserByEmail(ctx, email)
}

// GetUserWithRoles resolves the claims projection: the user with roles and
// nested permissions populated, cached under the medium tier.
func (s *Service) GetUserWithRoles(ctx context.Context, email string) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	return cache.Wrap(ctx, s.cache, cache.UserRolesKey(email), s.ttl.Medium, func(ctx context.Context) (*User, error) {
		return s.store.GetUserWithRoles(ctx, email)
	})
}

func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return cache.Wrap(ctx, s.cache, cache.UserAllKey, s.ttl.Short, func(ctx context.Context) ([]User, error) {
		return s.store.ListUsers(ctx)
	})
}

// UpdateUserParams carries partial user mutations; nil means unchanged.
type UpdateUserParams struct {
	Email     *string
	Password  *string
	FirstName *string
	LastName  *string
	IsActive  *bool
}

func (s *Service) UpdateUser(ctx context.Context, id string, p UpdateUserParams) (*User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	upd := UserUpdate{
		FirstName: trimmed(p.FirstName),
		LastName:  trimmed(p.LastName),
		IsActive:  p.IsActive,
	}
	if p.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*p.Email))
		if !ValidEmail(email) {
			return nil, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
		}
		upd.Email = &email
	}
	if p.Password != nil {
		if len(*p.Password) < minPasswordLength {
			return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
		}
		hash, err := s.hash(*p.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		upd.PasswordHash = &hash
	}

	user, err := s.store.UpdateUser(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	s.inval.InvalidateUser(ctx, user.ID, user.Email)
	return user, nil
}

func (s *Service) DeleteUser(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	user, err := s.store.DeleteUser(ctx, id)
	if err != nil {
		return err
	}
	s.inval.InvalidateUser(ctx, user.ID, user.Email)
	s.log.Infow("user deleted", "user_id", id)
	return nil
}

// TouchLastLogin records a successful authentication. Best-effort: callers
// treat failures as non-fatal, and the cached projection is allowed to lag.
func (s *Service) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return s.store.TouchLastLogin(ctx, id, at)
}

func (s *Service) AssignRole(ctx context.Context, userID, roleID string) (*User, error) {
	userID, roleID = strings.TrimSpace(userID), strings.TrimSpace(roleID)
	if userID == "" || roleID == "" {
		return nil, fmt.Errorf("%w: user id and role id are required", ErrInvalidInput)
	}
	if err := s.store.AssignRole(ctx, userID, roleID); err != nil {
		return nil, err
	}
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.inval.InvalidateUser(ctx, user.ID, user.Email)
	s.log.Infow("role assigned", "user_id", userID, "role_id", roleID)
	return user, nil
}

func (s *Service) RemoveRole(ctx context.Context, userID, roleID string) (*User, error) {
	userID, roleID = strings.TrimSpace(userID), strings.TrimSpace(roleID)
	if userID == "" || roleID == "" {
		return nil, fmt.Errorf("%w: user id and role id are required", ErrInvalidInput)
	}
	if err := s.store.RemoveRole(ctx, userID, roleID); err != nil {
		return nil, err
	}
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.inval.InvalidateUser(ctx, user.ID, user.Email)
	return user, nil
}

// --- Roles ---

// CreateRoleParams carries the role-create input.
type CreateRoleParams struct {
	Name          string
	Description   string
	PermissionIDs []string
}

func (s *Service) CreateRole(ctx context.Context, p CreateRoleParams) (*Role, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: role name is required", ErrInvalidInput)
	}
	role := &Role{
		ID:          ids.New(),
		Name:        name,
		Description: strings.TrimSpace(p.Description),
		IsActive:    true,
	}
	for _, id := range dedupeStrings(p.PermissionIDs) {
		role.Permissions = append(role.Permissions, Permission{ID: id})
	}
	if err := s.store.CreateRole(ctx, role); err != nil {
		return nil, err
	}
	s.inval.InvalidateRole(ctx, role.ID, role.Name)
	s.log.Infow("role created", "role_id", role.ID, "name", role.Name)
	return s.GetRole(ctx, role.ID)
}

func (s *Service) GetRole(ctx context.Context, id string) (*Role, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: role id is required", ErrInvalidInput)
	}
	return cache.Wrap(ctx, s.cache, cache.RoleIDKey(id), s.ttl.Long, func(ctx context.Context) (*Role, error) {
		return s.store.GetRole(ctx, id)
	})
}

func (s *Service) GetRoleByName(ctx context.Context, name string) (*Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: role name is required", ErrInvalidInput)
	}
	return cache.Wrap(ctx, s.cache, cache.RoleNameKey(name), s.ttl.Long, func(ctx context.Context) (*Role, error) {
		return s.store.GetRoleByName(ctx, name)
	})
}

// ListRoles returns active roles with permissions populated, cached under the
// short tier so admin listings stay fresh.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return cache.Wrap(ctx, s.cache, cache.RoleAllKey, s.ttl.Short, func(ctx context.Context) ([]Role, error) {
		return s.store.ListRoles(ctx)
	})
}

// UpdateRoleParams carries partial role mutations.
type UpdateRoleParams struct {
	Name        *string
	Description *string
	IsActive    *bool
}

func (s *Service) UpdateRole(ctx context.Context, id string, p UpdateRoleParams) (*Role, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: role id is required", ErrInvalidInput)
	}
	upd := RoleUpdate{Description: trimmed(p.Description), IsActive: p.IsActive}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: role name is required", ErrInvalidInput)
		}
		upd.Name = &name
	}
	role, err := s.store.UpdateRole(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	s.inval.InvalidateRole(ctx, role.ID, role.Name)
	return role, nil
}

// DeleteRole soft-deletes: the role is deactivated and drops out of active
// listings but stays referenced by existing assignments.
func (s *Service) DeleteRole(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: role id is required", ErrInvalidInput)
	}
	role, err := s.store.DeactivateRole(ctx, id)
	if err != nil {
		return err
	}
	s.inval.InvalidateRole(ctx, role.ID, role.Name)
	s.log.Infow("role deactivated", "role_id", id)
	return nil
}

func (s *Service) AddPermissionToRole(ctx context.Context, roleID, permissionID string) (*Role, error) {
	roleID, permissionID = strings.TrimSpace(roleID), strings.TrimSpace(permissionID)
	if roleID == "" || permissionID == "" {
		return nil, fmt.Errorf("%w: role id and permission id are required", ErrInvalidInput)
	}
	role, err := s.store.AddRolePermission(ctx, roleID, permissionID)
	if err != nil {
		return nil, err
	}
	// Cached user-with-roles projections for holders of this role are not
	// cascaded here; they refresh via their own TTL. Tokens already issued
	// keep their embedded grants until expiry.
	s.inval.InvalidateRole(ctx, role.ID, role.Name)
	s.log.Infow("permission added to role", "role_id", roleID, "permission_id", permissionID)
	return role, nil
}

func (s *Service) RemovePermissionFromRole(ctx context.Context, roleID, permissionID string) (*Role, error) {
	roleID, permissionID = strings.TrimSpace(roleID), strings.TrimSpace(permissionID)
	if roleID == "" || permissionID == "" {
		return nil, fmt.Errorf("%w: role id and permission id are required", ErrInvalidInput)
	}
	role, err := s.store.RemoveRolePermission(ctx, roleID, permissionID)
	if err != nil {
		return nil, err
	}
	s.inval.InvalidateRole(ctx, role.ID, role.Name)
	s.log.Infow("permission removed from role", "role_id", roleID, "permission_id", permissionID)
	return role, nil
}

// --- Permissions ---

// CreatePermissionParams carries the permission-create input. Name defaults
// to "<resource>:<action>" when empty.
type CreatePermissionParams struct {
	Name        string
	Description string
	Action      Action
	Resource    Resource
}

func (s *Service) CreatePermission(ctx context.Context, p CreatePermissionParams) (*Permission, error) {
	if !validAction(p.Action) {
		return nil, fmt.Errorf("%w: unsupported action %q", ErrInvalidInput, p.Action)
	}
	if !validResource(p.Resource) {
		return nil, fmt.Errorf("%w: unsupported resource %q", ErrInvalidInput, p.Resource)
	}
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = PermissionName(p.Resource, p.Action)
	}

	// The (action, resource) pair must be unique among active permissions.
	// Enforced here rather than at the storage layer; the name has a real
	// unique constraint underneath.
	existing, err := s.store.FindPermissions(ctx, p.Action, p.Resource)
	if err != nil {
		return nil, err
	}
	for _, perm := range existing {
		if perm.IsActive {
			return nil, fmt.Errorf("%w: active permission %s already covers %s on %s", ErrConflict, perm.Name, p.Action, p.Resource)
		}
	}

	perm := &Permission{
		ID:          ids.New(),
		Name:        name,
		Description: strings.TrimSpace(p.Description),
		Action:      p.Action,
		Resource:    p.Resource,
		IsActive:    true,
	}
	if err := s.store.CreatePermission(ctx, perm); err != nil {
		return nil, err
	}
	s.inval.InvalidatePermission(ctx, perm.ID, perm.Name)
	s.log.Infow("permission created", "permission_id", perm.ID, "name", perm.Name)
	return perm, nil
}

func (s *Service) GetPermission(ctx context.Context, id string) (*Permission, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: permission id is required", ErrInvalidInput)
	}
	return cache.Wrap(ctx, s.cache, cache.PermissionIDKey(id), s.ttl.VeryLong, func(ctx context.Context) (*Permission, error) {
		return s.store.GetPermission(ctx, id)
	})
}

func (s *Service) GetPermissionByName(ctx context.Context, name string) (*Permission, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: permission name is required", ErrInvalidInput)
	}
	return cache.Wrap(ctx, s.cache, cache.PermissionNameKey(name), s.ttl.VeryLong, func(ctx context.Context) (*Permission, error) {
		return s.store.GetPermissionByName(ctx, name)
	})
}

// ListPermissions serves the permission catalog from the very-long tier:
// the catalog only moves on admin mutations, and every one of those
// invalidates it synchronously.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return cache.Wrap(ctx, s.cache, cache.PermissionAllKey, s.ttl.VeryLong, func(ctx context.Context) ([]Permission, error) {
		return s.store.ListPermissions(ctx)
	})
}

// UpdatePermissionParams allows changing description and active flag only;
// action and resource are immutable after creation.
type UpdatePermissionParams struct {
	Description *string
	IsActive    *bool
}

func (s *Service) UpdatePermission(ctx context.Context, id string, p UpdatePermissionParams) (*Permission, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: permission id is required", ErrInvalidInput)
	}
	perm, err := s.store.UpdatePermission(ctx, id, PermissionUpdate{Description: trimmed(p.Description), IsActive: p.IsActive})
	if err != nil {
		return nil, err
	}
	s.inval.InvalidatePermission(ctx, perm.ID, perm.Name)
	return perm, nil
}

func (s *Service) DeletePermission(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: permission id is required", ErrInvalidInput)
	}
	perm, err := s.store.DeactivatePermission(ctx, id)
	if err != nil {
		return err
	}
	s.inval.InvalidatePermission(ctx, perm.ID, perm.Name)
	s.log.Infow("permission deactivated", "permission_id", id)
	return nil
}

// InvalidateAll clears the entire cache. Escape hatch for operational use.
func (s *Service) InvalidateAll(ctx context.Context) {
	s.inval.InvalidateAll(ctx)
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}

func dedupeStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := set[v]; ok {
			continue
		}
		set[v] = struct{}{}
		result = append(result, v)
	}
	return result
}
