package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"authgrid.org/internal/obs"
	"authgrid.org/internal/rbac"
)

// CredentialStore is the slice of the user store the verifier needs: the raw
// record including the password hash, and the last-login touch.
type CredentialStore interface {
	GetUserByEmail(ctx context.Context, email string) (*rbac.User, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

// Verifier validates email/password credentials.
type Verifier struct {
	store CredentialStore
	log   *zap.SugaredLogger
	now   func() time.Time
}

// NewVerifier wires a Verifier.
func NewVerifier(store CredentialStore, log *zap.SugaredLogger) (*Verifier, error) {
	if store == nil {
		return nil, errors.New("auth: credential store is required")
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Verifier{store: store, log: log, now: time.Now}, nil
}

// Validate checks the supplied credentials and returns the user on success,
// with the hash cleared. Unknown email, wrong password and deactivated
// account all fail with the identical ErrInvalidCredentials so callers can
// not probe which emails exist.
func (v *Verifier) Validate(ctx context.Context, email, password string) (*rbac.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		obs.ObserveLogin("invalid_input")
		return nil, fmt.Errorf("%w: email is required", rbac.ErrInvalidInput)
	}
	if !rbac.ValidEmail(email) {
		obs.ObserveLogin("invalid_input")
		return nil, fmt.Errorf("%w: invalid email format", rbac.ErrInvalidInput)
	}
	if password == "" {
		obs.ObserveLogin("invalid_input")
		return nil, fmt.Errorf("%w: password is required", rbac.ErrInvalidInput)
	}

	user, err := v.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, rbac.ErrNotFound) {
			v.log.Warnw("login failed: user not found", "email", email)
			obs.ObserveLogin("invalid_credentials")
			return nil, ErrInvalidCredentials
		}
		obs.ObserveLogin("error")
		return nil, fmt.Errorf("look up user: %w", err)
	}
	if !user.IsActive {
		v.log.Warnw("login failed: account deactivated", "email", email, "user_id", user.ID)
		obs.ObserveLogin("invalid_credentials")
		return nil, ErrInvalidCredentials
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		v.log.Warnw("login failed: wrong password", "email", email, "user_id", user.ID)
		obs.ObserveLogin("invalid_credentials")
		return nil, ErrInvalidCredentials
	}

	// Best-effort: failing to record the timestamp must not fail the login.
	if err := v.store.TouchLastLogin(ctx, user.ID, v.now().UTC()); err != nil {
		v.log.Warnw("failed to record last login", "user_id", user.ID, "error", err)
	}

	obs.ObserveLogin("success")
	user.PasswordHash = ""
	return user, nil
}
