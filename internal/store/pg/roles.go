package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"authgrid.org/internal/ids"
	"authgrid.org/internal/rbac"
)

// CreateRole inserts the role and attaches any initial permissions in one
// transaction. Permission entries only need their ID set.
func (s *Store) CreateRole(ctx context.Context, r *rbac.Role) error {
	if r.ID == "" {
		r.ID = ids.New()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx, `
		insert into roles (id, name, description, is_active)
		values ($1, $2, $3, $4)
		returning created_at, updated_at
	`, r.ID, r.Name, nullIfEmpty(r.Description), r.IsActive).Scan(&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return rbac.ErrConflict
		}
		return err
	}
	for _, perm := range r.Permissions {
		if _, err := tx.ExecContext(ctx, `
			insert into role_permissions (role_id, permission_id)
			values ($1, $2)
			on conflict do nothing
		`, r.ID, perm.ID); err != nil {
			if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
				return rbac.ErrNotFound
			}
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) GetRole(ctx context.Context, id string) (*rbac.Role, error) {
	return s.roleByQuery(ctx, `select id, name, description, is_active, created_at, updated_at from roles where id = $1`, id)
}

func (s *Store) GetRoleByName(ctx context.Context, name string) (*rbac.Role, error) {
	return s.roleByQuery(ctx, `select id, name, description, is_active, created_at, updated_at from roles where name = $1`, name)
}

func (s *Store) ListRoles(ctx context.Context) ([]rbac.Role, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, name, description, is_active, created_at, updated_at from roles order by name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []rbac.Role
	for rows.Next() {
		var (
			role rbac.Role
			desc sql.NullString
		)
		if err := rows.Scan(&role.ID, &role.Name, &desc, &role.IsActive, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		role.Description = desc.String
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range roles {
		perms, err := s.rolePermissions(ctx, roles[i].ID, false)
		if err != nil {
			return nil, err
		}
		roles[i].Permissions = perms
	}
	return roles, nil
}

func (s *Store) UpdateRole(ctx context.Context, id string, upd rbac.RoleUpdate) (*rbac.Role, error) {
	var (
		sets []string
		args []any
		idx  = 1
	)
	if upd.Name != nil {
		sets = append(sets, fmt.Sprintf("name = $%d", idx))
		args = append(args, *upd.Name)
		idx++
	}
	if upd.Description != nil {
		if *upd.Description == "" {
			sets = append(sets, "description = NULL")
		} else {
			sets = append(sets, fmt.Sprintf("description = $%d", idx))
			args = append(args, *upd.Description)
			idx++
		}
	}
	if upd.IsActive != nil {
		sets = append(sets, fmt.Sprintf("is_active = $%d", idx))
		args = append(args, *upd.IsActive)
		idx++
	}
	if len(sets) > 0 {
		sets = append(sets, "updated_at = now()")
		query := fmt.Sprintf(`update roles set %s where id = $%d`, strings.Join(sets, ", "), idx)
		args = append(args, id)
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
				return nil, rbac.ErrConflict
			}
			return nil, err
		}
		aff, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if aff == 0 {
			return nil, rbac.ErrNotFound
		}
	}
	return s.GetRole(ctx, id)
}

func (s *Store) DeactivateRole(ctx context.Context, id string) (*rbac.Role, error) {
	res, err := s.db.ExecContext(ctx,
		`update roles set is_active = false, updated_at = now() where id = $1`, id)
	if err != nil {
		return nil, err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if aff == 0 {
		return nil, rbac.ErrNotFound
	}
	return s.GetRole(ctx, id)
}

func (s *Store) AddRolePermission(ctx context.Context, roleID, permissionID string) (*rbac.Role, error) {
	_, err := s.db.ExecContext(ctx, `
		insert into role_permissions (role_id, permission_id)
		values ($1, $2)
		on conflict do nothing
	`, roleID, permissionID)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return nil, rbac.ErrNotFound
		}
		return nil, err
	}
	return s.GetRole(ctx, roleID)
}

func (s *Store) RemoveRolePermission(ctx context.Context, roleID, permissionID string) (*rbac.Role, error) {
	res, err := s.db.ExecContext(ctx,
		`delete from role_permissions where role_id = $1 and permission_id = $2`, roleID, permissionID)
	if err != nil {
		return nil, err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if aff == 0 {
		return nil, rbac.ErrNotFound
	}
	return s.GetRole(ctx, roleID)
}

func (s *Store) roleByQuery(ctx context.Context, query string, arg any) (*rbac.Role, error) {
	var (
		role rbac.Role
		desc sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, arg).
		Scan(&role.ID, &role.Name, &desc, &role.IsActive, &role.CreatedAt, &role.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, rbac.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	role.Description = desc.String
	perms, err := s.rolePermissions(ctx, role.ID, false)
	if err != nil {
		return nil, err
	}
	role.Permissions = perms
	return &role, nil
}

// rolePermissions loads the permissions attached to a role. Management reads
// want the full list; user projections pass activeOnly to drop revoked
// grants.
func (s *Store) rolePermissions(ctx context.Context, roleID string, activeOnly bool) ([]rbac.Permission, error) {
	query := `
		select p.id, p.name, p.description, p.action, p.resource, p.is_active, p.created_at, p.updated_at
		from permissions p
		join role_permissions rp on rp.permission_id = p.id
		where rp.role_id = $1`
	if activeOnly {
		query += ` and p.is_active`
	}
	query += ` order by p.name`

	rows, err := s.db.QueryContext(ctx, query, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []rbac.Permission
	for rows.Next() {
		var (
			perm rbac.Permission
			desc sql.NullString
		)
		if err := rows.Scan(&perm.ID, &perm.Name, &desc, &perm.Action, &perm.Resource, &perm.IsActive, &perm.CreatedAt, &perm.UpdatedAt); err != nil {
			return nil, err
		}
		perm.Description = desc.String
		perms = append(perms, perm)
	}
	return perms, rows.Err()
}
