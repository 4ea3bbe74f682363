package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"authgrid.org/internal/config"
	"authgrid.org/internal/rbac"
)

// UserResolver resolves a user with roles and nested permissions populated.
// Satisfied by *rbac.Service, whose implementation is cache-backed.
type UserResolver interface {
	GetUserWithRoles(ctx context.Context, email string) (*rbac.User, error)
}

// Token is a signed access token with its expiry.
type Token struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Issuer turns a validated identity into a signed, time-bound token.
type Issuer struct {
	users  UserResolver
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer wires an Issuer. The secret length is enforced again here so the
// component stays safe when constructed outside config.Load.
func NewIssuer(users UserResolver, secret, issuer string, ttl time.Duration) (*Issuer, error) {
	if users == nil {
		return nil, errors.New("auth: user resolver is required")
	}
	if len(secret) < config.MinSecretLength {
		return nil, fmt.Errorf("auth: signing secret must be at least %d bytes", config.MinSecretLength)
	}
	if ttl <= 0 {
		return nil, errors.New("auth: token ttl must be positive")
	}
	return &Issuer{
		users:  users,
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue resolves the user's effective roles and permissions and signs them
// into an HS256 token. Permissions are flattened across all roles and
// deduplicated by first occurrence.
//
// The lookup is a second query distinct from the credential check: claims
// resolution needs the populated role graph and goes through the cache, the
// credential check does not.
func (i *Issuer) Issue(ctx context.Context, email string) (Token, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return Token{}, fmt.Errorf("%w: email is required", rbac.ErrInvalidInput)
	}

	user, err := i.users.GetUserWithRoles(ctx, email)
	if err != nil {
		if errors.Is(err, rbac.ErrNotFound) {
			return Token{}, fmt.Errorf("%w: user %s", rbac.ErrNotFound, email)
		}
		return Token{}, fmt.Errorf("resolve user for token: %w", err)
	}

	now := i.now().UTC()
	expiresAt := now.Add(i.ttl)
	claims := Claims{
		Email:       user.Email,
		UserID:      user.ID,
		Roles:       user.RoleNames(),
		Permissions: user.PermissionNames(),
		IsActive:    user.IsActive,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{AccessToken: signed, ExpiresAt: expiresAt}, nil
}
