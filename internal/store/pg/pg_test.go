package pg

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"authgrid.org/internal/rbac"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func verify(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateUserFillsIDAndTimestamps(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery("insert into users").
		WithArgs(sqlmock.AnyArg(), "jane@example.com", "hash", "Jane", nil, true).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	user := &rbac.User{Email: "jane@example.com", PasswordHash: "hash", FirstName: "Jane", IsActive: true}
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.ID == "" {
		t.Fatal("expected generated id")
	}
	if !user.CreatedAt.Equal(now) {
		t.Fatalf("created_at not populated: %v", user.CreatedAt)
	}
	verify(t, mock)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("insert into users").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := store.CreateUser(context.Background(), &rbac.User{ID: "u1", Email: "jane@example.com"})
	if !errors.Is(err, rbac.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	verify(t, mock)
}

func TestGetUserByEmailNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("from users").WillReturnError(sql.ErrNoRows)

	_, err := store.GetUserByEmail(context.Background(), "nobody@example.com")
	if !errors.Is(err, rbac.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	verify(t, mock)
}

func TestGetUserLoadsActiveGrantsOnly(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery("from users where id").WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "first_name", "last_name", "is_active", "last_login", "created_at", "updated_at"}).
			AddRow("u1", "jane@example.com", "Jane", nil, true, nil, now, now))
	mock.ExpectQuery(`from roles r join user_roles ur on ur\.role_id = r\.id where ur\.user_id = \$1 and r\.is_active`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "is_active", "created_at", "updated_at"}).
			AddRow("r1", "admin", nil, true, now, now))
	// Permissions attached to an active role are filtered to active rows.
	mock.ExpectQuery(`where rp\.role_id = \$1 and p\.is_active order by p\.name`).
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "action", "resource", "is_active", "created_at", "updated_at"}).
			AddRow("p1", "user:read", nil, "read", "user", true, now, now))

	user, err := store.GetUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if user.PasswordHash != "" {
		t.Fatal("projection must not carry the password hash")
	}
	if len(user.Roles) != 1 || len(user.Roles[0].Permissions) != 1 {
		t.Fatalf("unexpected projection: %+v", user.Roles)
	}
	if user.Roles[0].Permissions[0].Name != "user:read" {
		t.Fatalf("unexpected permission: %+v", user.Roles[0].Permissions[0])
	}
	verify(t, mock)
}

func TestUpdateUserBuildsPartialSet(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()
	first := "Jane"
	active := false

	mock.ExpectExec(`update users set first_name = \$1, is_active = \$2, updated_at = now\(\) where id = \$3`).
		WithArgs("Jane", false, "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("from users where id").WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "first_name", "last_name", "is_active", "last_login", "created_at", "updated_at"}).
			AddRow("u1", "jane@example.com", "Jane", nil, false, nil, now, now))
	mock.ExpectQuery("from roles r join user_roles").WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "is_active", "created_at", "updated_at"}))

	user, err := store.UpdateUser(context.Background(), "u1", rbac.UserUpdate{FirstName: &first, IsActive: &active})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if user.FirstName != "Jane" || user.IsActive {
		t.Fatalf("unexpected user after update: %+v", user)
	}
	verify(t, mock)
}

func TestUpdateUserUnknownID(t *testing.T) {
	store, mock := newMockStore(t)
	first := "Jane"

	mock.ExpectExec("update users set").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := store.UpdateUser(context.Background(), "missing", rbac.UserUpdate{FirstName: &first})
	if !errors.Is(err, rbac.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	verify(t, mock)
}

func TestAssignRoleUnknownReference(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("insert into user_roles").
		WithArgs("u1", "missing").
		WillReturnError(&pgconn.PgError{Code: "23503"})

	err := store.AssignRole(context.Background(), "u1", "missing")
	if !errors.Is(err, rbac.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	verify(t, mock)
}

func TestAssignRoleAlreadyHeld(t *testing.T) {
	store, mock := newMockStore(t)

	// conflict target skipped: zero rows affected, still success.
	mock.ExpectExec("insert into user_roles").
		WithArgs("u1", "r1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.AssignRole(context.Background(), "u1", "r1"); err != nil {
		t.Fatalf("AssignRole: %v", err)
	}
	verify(t, mock)
}

func TestRemoveRoleNotHeld(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("delete from user_roles").
		WithArgs("u1", "r1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.RemoveRole(context.Background(), "u1", "r1")
	if !errors.Is(err, rbac.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	verify(t, mock)
}

func TestCreateRoleAttachesInitialPermissions(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("insert into roles").
		WithArgs("r1", "viewer", nil, true).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectExec("insert into role_permissions").
		WithArgs("r1", "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into role_permissions").
		WithArgs("r1", "p2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	role := &rbac.Role{
		ID:          "r1",
		Name:        "viewer",
		IsActive:    true,
		Permissions: []rbac.Permission{{ID: "p1"}, {ID: "p2"}},
	}
	if err := store.CreateRole(context.Background(), role); err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	verify(t, mock)
}

func TestCreateRoleDuplicateName(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("insert into roles").
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	err := store.CreateRole(context.Background(), &rbac.Role{ID: "r1", Name: "viewer"})
	if !errors.Is(err, rbac.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	verify(t, mock)
}

func TestGetRoleKeepsInactivePermissions(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery("from roles where id").WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "is_active", "created_at", "updated_at"}).
			AddRow("r1", "viewer", "read-only", true, now, now))
	// Management reads list every attachment, revoked grants included.
	mock.ExpectQuery(`where rp\.role_id = \$1 order by p\.name`).
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "action", "resource", "is_active", "created_at", "updated_at"}).
			AddRow("p1", "user:read", nil, "read", "user", false, now, now))

	role, err := store.GetRole(context.Background(), "r1")
	if err != nil {
		t.Fatalf("GetRole: %v", err)
	}
	if len(role.Permissions) != 1 || role.Permissions[0].IsActive {
		t.Fatalf("inactive attachment must still be listed: %+v", role.Permissions)
	}
	verify(t, mock)
}

func TestDeactivateRoleMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("update roles set is_active = false").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := store.DeactivateRole(context.Background(), "missing")
	if !errors.Is(err, rbac.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	verify(t, mock)
}

func TestFindPermissionsByPair(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(`from permissions where action = \$1 and resource = \$2`).
		WithArgs(rbac.ActionRead, rbac.ResourceUser).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "action", "resource", "is_active", "created_at", "updated_at"}).
			AddRow("p1", "user:read", nil, "read", "user", true, now, now).
			AddRow("p2", "user-read-old", nil, "read", "user", false, now, now))

	perms, err := store.FindPermissions(context.Background(), rbac.ActionRead, rbac.ResourceUser)
	if err != nil {
		t.Fatalf("FindPermissions: %v", err)
	}
	if len(perms) != 2 {
		t.Fatalf("expected both matches, got %d", len(perms))
	}
	verify(t, mock)
}

func TestCreatePermissionDuplicateName(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("insert into permissions").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := store.CreatePermission(context.Background(), &rbac.Permission{ID: "p1", Name: "user:read"})
	if !errors.Is(err, rbac.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	verify(t, mock)
}

func TestTouchLastLogin(t *testing.T) {
	store, mock := newMockStore(t)
	at := time.Now()

	mock.ExpectExec("update users set last_login").
		WithArgs("u1", at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.TouchLastLogin(context.Background(), "u1", at); err != nil {
		t.Fatalf("TouchLastLogin: %v", err)
	}
	verify(t, mock)
}
