package rbac

import (
	"context"
	"time"
)

// UserUpdate carries partial user mutations; nil fields are left unchanged.
// Password must already be hashed when it reaches the store.
type UserUpdate struct {
	Email        *string
	PasswordHash *string
	FirstName    *string
	LastName     *string
	IsActive     *bool
}

// RoleUpdate carries partial role mutations.
type RoleUpdate struct {
	Name        *string
	Description *string
	IsActive    *bool
}

// PermissionUpdate carries partial permission mutations. Action and resource
// are deliberately absent: they are fixed at creation.
type PermissionUpdate struct {
	Description *string
	IsActive    *bool
}

// Store describes the persistence operations the service needs. The Postgres
// implementation lives in internal/store/pg; tests use in-memory fakes.
//
// Store methods report uniqueness violations as ErrConflict and missing rows
// as ErrNotFound; they perform no caching.
type Store interface {
	// Users.
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserWithRoles(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	UpdateUser(ctx context.Context, id string, upd UserUpdate) (*User, error)
	DeleteUser(ctx context.Context, id string) (*User, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	AssignRole(ctx context.Context, userID, roleID string) error
	RemoveRole(ctx context.Context, userID, roleID string) error

	// Roles. Read paths return roles with permissions populated.
	CreateRole(ctx context.Context, r *Role) error
	GetRole(ctx context.Context, id string) (*Role, error)
	GetRoleByName(ctx context.Context, name string) (*Role, error)
	ListRoles(ctx context.Context) ([]Role, error)
	UpdateRole(ctx context.Context, id string, upd RoleUpdate) (*Role, error)
	DeactivateRole(ctx context.Context, id string) (*Role, error)
	AddRolePermission(ctx context.Context, roleID, permissionID string) (*Role, error)
	RemoveRolePermission(ctx context.Context, roleID, permissionID string) (*Role, error)

	// Permissions.
	CreatePermission(ctx context.Context, p *Permission) error
	GetPermission(ctx context.Context, id string) (*Permission, error)
	GetPermissionByName(ctx context.Context, name string) (*Permission, error)
	ListPermissions(ctx context.Context) ([]Permission, error)
	FindPermissions(ctx context.Context, action Action, resource Resource) ([]Permission, error)
	UpdatePermission(ctx context.Context, id string, upd PermissionUpdate) (*Permission, error)
	DeactivatePermission(ctx context.Context, id string) (*Permission, error)
}
