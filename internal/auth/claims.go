package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the token payload. Roles and permissions are resolved once at
// issuance and embedded, so authorization checks need no database access for
// the life of the token. The flip side is staleness: grants revoked after
// issuance stay effective until expiry. The isActive flag is the one
// mid-lifetime kill switch, enforced by the Validator.
type Claims struct {
	Email       string   `json:"email"`
	UserID      string   `json:"userId"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
	IsActive    bool     `json:"isActive"`
	jwt.RegisteredClaims
}

// HasPermission reports whether the embedded permission set contains name.
func (c *Claims) HasPermission(name string) bool {
	for _, p := range c.Permissions {
		if p == name {
			return true
		}
	}
	return false
}

// HasRole reports whether the embedded role set contains name.
func (c *Claims) HasRole(name string) bool {
	for _, r := range c.Roles {
		if r == name {
			return true
		}
	}
	return false
}

// Authenticated reports whether the claims identify a user at all.
func (c *Claims) Authenticated() bool {
	return c != nil && strings.TrimSpace(c.Email) != ""
}
