package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"authgrid.org/internal/rbac"
)

type createPermissionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Action      string `json:"action"`
	Resource    string `json:"resource"`
}

type updatePermissionRequest struct {
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

func (a *API) handleCreatePermission(w http.ResponseWriter, r *http.Request) {
	var req createPermissionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	perm, err := a.rbac.CreatePermission(r.Context(), rbac.CreatePermissionParams{
		Name:        req.Name,
		Description: req.Description,
		Action:      rbac.Action(req.Action),
		Resource:    rbac.Resource(req.Resource),
	})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	a.trail.Event(r.Context(), "rbac.permission.created", "permission_id", perm.ID, "name", perm.Name)
	w.Header().Set("Location", fmt.Sprintf("/v1/permissions/%s", perm.ID))
	writeJSON(w, http.StatusCreated, perm)
}

func (a *API) handleListPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := a.rbac.ListPermissions(r.Context())
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if perms == nil {
		perms = []rbac.Permission{}
	}
	writeJSON(w, http.StatusOK, perms)
}

func (a *API) handleGetPermission(w http.ResponseWriter, r *http.Request) {
	perm, err := a.rbac.GetPermission(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, perm)
}

func (a *API) handleUpdatePermission(w http.ResponseWriter, r *http.Request) {
	var req updatePermissionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	id := mux.Vars(r)["id"]
	perm, err := a.rbac.UpdatePermission(r.Context(), id, rbac.UpdatePermissionParams{
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	a.trail.Event(r.Context(), "rbac.permission.updated", "permission_id", id)
	writeJSON(w, http.StatusOK, perm)
}

func (a *API) handleDeletePermission(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := a.rbac.DeletePermission(r.Context(), id); err != nil {
		handleDomainError(w, r, err)
		return
	}
	a.trail.Event(r.Context(), "rbac.permission.deleted", "permission_id", id)
	w.WriteHeader(http.StatusNoContent)
}
