package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"authgrid.org/internal/rbac"
)

type createRoleRequest struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	PermissionIDs []string `json:"permission_ids"`
}

type updateRoleRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

func (a *API) handleCreateRole(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	role, err := a.rbac.CreateRole(r.Context(), rbac.CreateRoleParams{
		Name:          req.Name,
		Description:   req.Description,
		PermissionIDs: req.PermissionIDs,
	})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	a.trail.Event(r.Context(), "rbac.role.created", "role_id", role.ID, "name", role.Name)
	w.Header().Set("Location", fmt.Sprintf("/v1/roles/%s", role.ID))
	writeJSON(w, http.StatusCreated, role)
}

func (a *API) handleListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := a.rbac.ListRoles(r.Context())
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if roles == nil {
		roles = []rbac.Role{}
	}
	writeJSON(w, http.StatusOK, roles)
}

func (a *API) handleGetRole(w http.ResponseWriter, r *http.Request) {
	role, err := a.rbac.GetRole(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, role)
}

func (a *API) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	var req updateRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	id := mux.Vars(r)["id"]
	role, err := a.rbac.UpdateRole(r.Context(), id, rbac.UpdateRoleParams{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	a.trail.Event(r.Context(), "rbac.role.updated", "role_id", id)
	writeJSON(w, http.StatusOK, role)
}

func (a *API) handleDeleteRole(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := a.rbac.DeleteRole(r.Context(), id); err != nil {
		handleDomainError(w, r, err)
		return
	}
	a.trail.Event(r.Context(), "rbac.role.deleted", "role_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleAddRolePermission(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	role, err := a.rbac.AddPermissionToRole(r.Context(), vars["id"], vars["permID"])
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	a.trail.Event(r.Context(), "rbac.role.permission_added", "role_id", vars["id"], "permission_id", vars["permID"])
	writeJSON(w, http.StatusOK, role)
}

func (a *API) handleRemoveRolePermission(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	role, err := a.rbac.RemovePermissionFromRole(r.Context(), vars["id"], vars["permID"])
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	a.trail.Event(r.Context(), "rbac.role.permission_removed", "role_id", vars["id"], "permission_id", vars["permID"])
	writeJSON(w, http.StatusOK, role)
}
