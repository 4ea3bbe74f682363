// Package rbac holds the domain model for users, roles and permissions and
// the service that layers validation, caching and cache invalidation over a
// persistence store.
package rbac

import "time"

// Action is the verb half of a permission.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionManage Action = "manage"
)

// Resource is the noun half of a permission.
type Resource string

const (
	ResourceUser       Resource = "user"
	ResourceRole       Resource = "role"
	ResourcePermission Resource = "permission"
	ResourceMetrics    Resource = "metrics"
	ResourceTelemetry  Resource = "telemetry"
	ResourceAll        Resource = "all"
)

// Sentinels that bypass specific requirement checks in the decision engine.
const (
	SuperAdminPermission = "all:manage"
	SuperAdminRole       = "super_admin"
)

// Permission is an atomic resource:action grant.
type Permission struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Action      Action    `json:"action"`
	Resource    Resource  `json:"resource"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PermissionName derives the canonical "<resource>:<action>" name.
func PermissionName(resource Resource, action Action) string {
	return string(resource) + ":" + string(action)
}

// Role is a named bundle of permissions. The permission list has set
// semantics: add/remove, no duplicates, order irrelevant.
type Role struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Permissions []Permission `json:"permissions"`
	IsActive    bool         `json:"is_active"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// User is an account. Email is the natural key for authentication and is
// stored lower-cased. The password hash is never serialized, which also
// keeps it out of cached projections.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FirstName    string     `json:"first_name,omitempty"`
	LastName     string     `json:"last_name,omitempty"`
	Roles        []Role     `json:"roles"`
	IsActive     bool       `json:"is_active"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// RoleNames flattens the user's role names.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}

// PermissionNames flattens permission names across all roles, deduplicated by
// first occurrence.
func (u *User) PermissionNames() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, role := range u.Roles {
		for _, perm := range role.Permissions {
			if _, ok := seen[perm.Name]; ok {
				continue
			}
			seen[perm.Name] = struct{}{}
			names = append(names, perm.Name)
		}
	}
	return names
}

func validAction(a Action) bool {
	switch a {
	case ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionManage:
		return true
	}
	return false
}

func validResource(r Resource) bool {
	switch r {
	case ResourceUser, ResourceRole, ResourcePermission, ResourceMetrics, ResourceTelemetry, ResourceAll:
		return true
	}
	return false
}
