package rbac

import (
	"context"
	"errors"
	"fmt"
)

// SeedConfig controls the bootstrap data written on startup.
type SeedConfig struct {
	AdminEmail    string
	AdminPassword string
}

type seedRole struct {
	name        string
	description string
	permissions []string
}

func defaultPermissions() []CreatePermissionParams {
	perms := []CreatePermissionParams{
		{Description: "Full access to every resource", Action: ActionManage, Resource: ResourceAll},
		{Description: "Read service metrics", Action: ActionRead, Resource: ResourceMetrics},
		{Description: "Submit telemetry events", Action: ActionCreate, Resource: ResourceTelemetry},
	}
	for _, res := range []Resource{ResourceUser, ResourceRole, ResourcePermission} {
		for _, act := range []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionManage} {
			perms = append(perms, CreatePermissionParams{
				Description: fmt.Sprintf("%s %ss", act, res),
				Action:      act,
				Resource:    res,
			})
		}
	}
	return perms
}

func defaultRoles() []seedRole {
	return []seedRole{
		{
			name:        SuperAdminRole,
			description: "Super administrator with full system access",
			permissions: []string{SuperAdminPermission},
		},
		{
			name:        "admin",
			description: "Administrator with user and role management",
			permissions: []string{"user:manage", "role:read", "permission:read", "metrics:read"},
		},
		{
			name:        "user_manager",
			description: "Can manage users",
			permissions: []string{"user:create", "user:read", "user:update", "user:delete"},
		},
		{
			name:        "user",
			description: "Basic user with read-only access to own profile",
			permissions: []string{"user:read"},
		},
	}
}

// Seed writes the default permission catalog, default roles and the bootstrap
// super-admin account. Idempotent: existing entities are left untouched, so
// it is safe to run on every startup.
func (s *Service) Seed(ctx context.Context, cfg SeedConfig) error {
	for _, p := range defaultPermissions() {
		name := PermissionName(p.Resource, p.Action)
		if _, err := s.GetPermissionByName(ctx, name); err == nil {
			continue
		} else if !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("seed: look up permission %s: %w", name, err)
		}
		if _, err := s.CreatePermission(ctx, p); err != nil && !errors.Is(err, ErrConflict) {
			return fmt.Errorf("seed: create permission %s: %w", name, err)
		}
	}

	for _, r := range defaultRoles() {
		if _, err := s.GetRoleByName(ctx, r.name); err == nil {
			continue
		} else if !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("seed: look up role %s: %w", r.name, err)
		}
		var permIDs []string
		for _, permName := range r.permissions {
			perm, err := s.GetPermissionByName(ctx, permName)
			if err != nil {
				s.log.Warnw("seed: permission missing for role", "role", r.name, "permission", permName)
				continue
			}
			permIDs = append(permIDs, perm.ID)
		}
		if _, err := s.CreateRole(ctx, CreateRoleParams{Name: r.name, Description: r.description, PermissionIDs: permIDs}); err != nil && !errors.Is(err, ErrConflict) {
			return fmt.Errorf("seed: create role %s: %w", r.name, err)
		}
		s.log.Infow("seed: role created", "role", r.name)
	}

	return s.seedAdminUser(ctx, cfg)
}

func (s *Service) seedAdminUser(ctx context.Context, cfg SeedConfig) error {
	if cfg.AdminEmail == "" {
		return nil
	}
	if _, err := s.GetUserByEmail(ctx, cfg.AdminEmail); err == nil {
		return nil
	} else if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("seed: look up admin user: %w", err)
	}
	if cfg.AdminPassword == "" {
		s.log.Warnw("seed: bootstrap admin skipped, no password configured", "email", cfg.AdminEmail)
		return nil
	}

	user, err := s.CreateUser(ctx, CreateUserParams{
		Email:     cfg.AdminEmail,
		Password:  cfg.AdminPassword,
		FirstName: "Super",
		LastName:  "Admin",
	})
	if err != nil {
		return fmt.Errorf("seed: create admin user: %w", err)
	}
	role, err := s.GetRoleByName(ctx, SuperAdminRole)
	if err != nil {
		return fmt.Errorf("seed: super admin role: %w", err)
	}
	if _, err := s.AssignRole(ctx, user.ID, role.ID); err != nil {
		return fmt.Errorf("seed: assign super admin role: %w", err)
	}
	s.log.Infow("seed: bootstrap admin created", "email", cfg.AdminEmail)
	return nil
}
