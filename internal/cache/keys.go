package cache

import "strings"

// Keys are namespaced as <entity>:<selector>:<value> so that every alias of
// an entity can be invalidated together and backends with pattern deletion
// can drop a whole namespace by prefix.

const (
	UserAllKey       = "user:all"
	RoleAllKey       = "role:all"
	PermissionAllKey = "permission:all"

	UserPrefix       = "user:"
	RolePrefix       = "role:"
	PermissionPrefix = "permission:"
)

// UserIDKey addresses a user by id.
func UserIDKey(id string) string { return "user:id:" + id }

// UserEmailKey addresses a user by lower-cased email.
func UserEmailKey(email string) string { return "user:email:" + strings.ToLower(email) }

// UserRolesKey addresses the user-with-roles-populated projection used for
// claims resolution.
func UserRolesKey(email string) string { return "user:roles:" + strings.ToLower(email) }

// RoleIDKey addresses a role by id.
func RoleIDKey(id string) string { return "role:id:" + id }

// RoleNameKey addresses a role by name.
func RoleNameKey(name string) string { return "role:name:" + name }

// PermissionIDKey addresses a permission by id.
func PermissionIDKey(id string) string { return "permission:id:" + id }

// PermissionNameKey addresses a permission by name.
func PermissionNameKey(name string) string { return "permission:name:" + name }
