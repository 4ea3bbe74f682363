package auth

import "errors"

var (
	// ErrInvalidCredentials covers unknown email, wrong password and
	// deactivated accounts at login time. One error, one message: callers
	// must not be able to tell which case they hit.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthorized covers missing, malformed, expired or otherwise
	// unverifiable tokens, and tokens whose claims mark the account inactive.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden covers authenticated requests missing a required
	// permission or role.
	ErrForbidden = errors.New("forbidden")
)
