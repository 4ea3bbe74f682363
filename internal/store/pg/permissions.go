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

const permissionColumns = `id, name, description, action, resource, is_active, created_at, updated_at`

func (s *Store) CreatePermission(ctx context.Context, p *rbac.Permission) error {
	if p.ID == "" {
		p.ID = ids.New()
	}
	err := s.db.QueryRowContext(ctx, `
		insert into permissions (id, name, description, action, resource, is_active)
		values ($1, $2, $3, $4, $5, $6)
		returning created_at, updated_at
	`, p.ID, p.Name, nullIfEmpty(p.Description), p.Action, p.Resource, p.IsActive).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return rbac.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) GetPermission(ctx context.Context, id string) (*rbac.Permission, error) {
	return s.permissionByQuery(ctx,
		`select `+permissionColumns+` from permissions where id = $1`, id)
}

func (s *Store) GetPermissionByName(ctx context.Context, name string) (*rbac.Permission, error) {
	return s.permissionByQuery(ctx,
		`select `+permissionColumns+` from permissions where name = $1`, name)
}

func (s *Store) ListPermissions(ctx context.Context) ([]rbac.Permission, error) {
	return s.permissionsByQuery(ctx,
		`select `+permissionColumns+` from permissions order by name`)
}

func (s *Store) FindPermissions(ctx context.Context, action rbac.Action, resource rbac.Resource) ([]rbac.Permission, error) {
	return s.permissionsByQuery(ctx,
		`select `+permissionColumns+` from permissions where action = $1 and resource = $2 order by name`,
		action, resource)
}

func (s *Store) UpdatePermission(ctx context.Context, id string, upd rbac.PermissionUpdate) (*rbac.Permission, error) {
	var (
		sets []string
		args []any
		idx  = 1
	)
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
		query := fmt.Sprintf(`update permissions set %s where id = $%d`, strings.Join(sets, ", "), idx)
		args = append(args, id)
		res, err := s.db.ExecContext(ctx, query, args...)
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
	}
	return s.GetPermission(ctx, id)
}

func (s *Store) DeactivatePermission(ctx context.Context, id string) (*rbac.Permission, error) {
	res, err := s.db.ExecContext(ctx,
		`update permissions set is_active = false, updated_at = now() where id = $1`, id)
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
	return s.GetPermission(ctx, id)
}

func (s *Store) permissionByQuery(ctx context.Context, query string, arg any) (*rbac.Permission, error) {
	var (
		perm rbac.Permission
		desc sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, arg).
		Scan(&perm.ID, &perm.Name, &desc, &perm.Action, &perm.Resource, &perm.IsActive, &perm.CreatedAt, &perm.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, rbac.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	perm.Description = desc.String
	return &perm, nil
}

func (s *Store) permissionsByQuery(ctx context.Context, query string, args ...any) ([]rbac.Permission, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
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
