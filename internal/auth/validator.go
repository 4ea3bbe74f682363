package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"authgrid.org/internal/config"
)

// Validator verifies token signature and expiry and extracts the embedded
// claims. It never touches the database: the claims are trusted as issued,
// except for the isActive flag which is re-checked so a deactivated account
// is locked out even while its token is unexpired.
type Validator struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewValidator wires a Validator for the given secret and expected issuer.
func NewValidator(secret, issuer string) (*Validator, error) {
	if len(secret) < config.MinSecretLength {
		return nil, fmt.Errorf("auth: signing secret must be at least %d bytes", config.MinSecretLength)
	}
	return &Validator{secret: []byte(secret), issuer: issuer, now: time.Now}, nil
}

// Verify parses and validates the token. Any failure maps to ErrUnauthorized
// with a reason; there is no silent pass.
func (v *Validator) Verify(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: missing token", ErrUnauthorized)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("%w: token expired", ErrUnauthorized)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, fmt.Errorf("%w: invalid signature", ErrUnauthorized)
		default:
			return nil, fmt.Errorf("%w: invalid token", ErrUnauthorized)
		}
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("%w: invalid token", ErrUnauthorized)
	}
	if !claims.Authenticated() {
		return nil, fmt.Errorf("%w: token carries no identity", ErrUnauthorized)
	}
	if !claims.IsActive {
		return nil, fmt.Errorf("%w: account deactivated", ErrUnauthorized)
	}
	return claims, nil
}
