package httpapi

import (
	"net/http"
	"time"

	"authgrid.org/internal/auth"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   string `json:"expires_at"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	user, err := a.verifier.Validate(r.Context(), req.Email, req.Password)
	if err != nil {
		a.trail.Event(r.Context(), "auth.login.failed", "email", req.Email)
		handleDomainError(w, r, err)
		return
	}

	token, err := a.issuer.Issue(r.Context(), user.Email)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	a.trail.Event(r.Context(), "auth.login.succeeded", "user_id", user.ID, "email", user.Email)
	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: token.AccessToken,
		ExpiresAt:   token.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (a *API) handleProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "not authenticated")
		return
	}
	user, err := a.rbac.GetUser(r.Context(), claims.UserID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
