package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"authgrid.org/internal/rbac"
)

type createUserRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type updateUserRequest struct {
	Email     *string `json:"email"`
	Password  *string `json:"password"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	IsActive  *bool   `json:"is_active"`
}

func (a *API) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	user, err := a.rbac.CreateUser(r.Context(), rbac.CreateUserParams{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	a.trail.Event(r.Context(), "rbac.user.created", "user_id", user.ID, "email", user.Email)
	w.Header().Set("Location", fmt.Sprintf("/v1/users/%s", user.ID))
	writeJSON(w, http.StatusCreated, user)
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.rbac.ListUsers(r.Context())
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if users == nil {
		users = []rbac.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (a *API) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := a.rbac.GetUser(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	id := mux.Vars(r)["id"]
	user, err := a.rbac.UpdateUser(r.Context(), id, rbac.UpdateUserParams{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		IsActive:  req.IsActive,
	})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	a.trail.Event(r.Context(), "rbac.user.updated", "user_id", id)
	writeJSON(w, http.StatusOK, user)
}

func (a *API) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := a.rbac.DeleteUser(r.Context(), id); err != nil {
		handleDomainError(w, r, err)
		return
	}
	a.trail.Event(r.Context(), "rbac.user.deleted", "user_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleAssignRole(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	user, err := a.rbac.AssignRole(r.Context(), vars["id"], vars["roleID"])
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	a.trail.Event(r.Context(), "rbac.user.role_assigned", "user_id", vars["id"], "role_id", vars["roleID"])
	writeJSON(w, http.StatusOK, user)
}

func (a *API) handleRemoveRole(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	user, err := a.rbac.RemoveRole(r.Context(), vars["id"], vars["roleID"])
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	a.trail.Event(r.Context(), "rbac.user.role_removed", "user_id", vars["id"], "role_id", vars["roleID"])
	writeJSON(w, http.StatusOK, user)
}
