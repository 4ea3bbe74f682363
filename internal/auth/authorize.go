package auth

import (
	"fmt"
	"strings"

	"authgrid.org/internal/rbac"
)

// Authorize decides whether the claims satisfy the required permissions.
// Pure function: no I/O, no caching.
//
// Semantics: every required permission must be present (AND). The
// all:manage sentinel bypasses the check entirely. An empty requirement
// always allows. Denials name the missing permissions: the caller is
// already authenticated at this point.
func Authorize(claims *Claims, required []string) error {
	if len(required) == 0 {
		return nil
	}
	if !claims.Authenticated() {
		return fmt.Errorf("%w: not authenticated", ErrForbidden)
	}
	if claims.HasPermission(rbac.SuperAdminPermission) {
		return nil
	}

	var missing []string
	for _, perm := range required {
		if !claims.HasPermission(perm) {
			missing = append(missing, perm)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: insufficient permissions, missing: %s", ErrForbidden, strings.Join(missing, ", "))
	}
	return nil
}

// AuthorizeRoles decides whether the claims satisfy the required roles.
//
// Note the asymmetry with Authorize: any one matching role suffices (OR),
// while permissions require all. The super_admin sentinel role bypasses the
// check.
func AuthorizeRoles(claims *Claims, required []string) error {
	if len(required) == 0 {
		return nil
	}
	if !claims.Authenticated() {
		return fmt.Errorf("%w: not authenticated", ErrForbidden)
	}
	if claims.HasRole(rbac.SuperAdminRole) {
		return nil
	}

	for _, role := range required {
		if claims.HasRole(role) {
			return nil
		}
	}
	return fmt.Errorf("%w: insufficient role access, required one of: %s", ErrForbidden, strings.Join(required, ", "))
}
