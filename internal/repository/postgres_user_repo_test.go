package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/hitoshi/gameportal/internal/model"
)

func newMockDB(t *testing.T) (sqlmock.Sqlmock, func() *PostgresUserRepo) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet SQL expectations: %v", err)
		}
		db.Close()
	})
	return mock, func() *PostgresUserRepo { return NewPostgresUserRepo(db) }
}

var userRowColumns = []string{"id", "email", "name", "password_hash", "role", "created_at", "updated_at"}

func TestPostgresUserRepo_FindByEmail_Found(t *testing.T) {
	mock, repo := newMockDB(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE email = $1`)).
		WithArgs("a@example.com").
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow("u-1", "a@example.com", "Alice", "hash", "ADMIN", now, now))

	user, err := repo().FindByEmail(context.Background(), "a@example.com")
	if err != nil {
		t.Fatalf("FindByEmail error: %v", err)
	}
	if user == nil || user.ID != "u-1" || user.Role != model.RoleAdmin {
		t.Fatalf("unexpected user: %#v", user)
	}
}

func TestPostgresUserRepo_FindByEmail_NotFoundReturnsNil(t *testing.T) {
	mock, repo := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE email = $1`)).
		WithArgs("missing@example.com").
		WillReturnRows(sqlmock.NewRows(userRowColumns))

	user, err := repo().FindByEmail(context.Background(), "missing@example.com")
	if err != nil {
		t.Fatalf("FindByEmail error: %v", err)
	}
	if user != nil {
		t.Fatalf("expected nil user, got %#v", user)
	}
}

func TestPostgresUserRepo_Create_UniqueViolationReturnsErrDuplicate(t *testing.T) {
	mock, repo := newMockDB(t)
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users`)).
		WithArgs("u-1", "a@example.com", "Alice", "hash", "USER", now, now).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo().Create(context.Background(), &model.User{
		ID: "u-1", Email: "a@example.com", Name: "Alice", PasswordHash: "hash",
		Role: model.RoleUser, CreatedAt: now, UpdatedAt: now,
	})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestPostgresUserRepo_Count(t *testing.T) {
	mock, repo := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM users`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := repo().Count(context.Background())
	if err != nil {
		t.Fatalf("Count error: %v", err)
	}
	if n != 3 {
		t.Errorf("Count = %d, want 3", n)
	}
}

func TestPostgresUserRepo_UpdateRole_NoRowsReturnsErrNotFound(t *testing.T) {
	mock, repo := newMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET role = $2`)).
		WithArgs("u-404", "ADMIN").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo().UpdateRole(context.Background(), "u-404", model.RoleAdmin)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresSessionRepo_FindByID_JoinsUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM sessions s JOIN users u ON u.id = s.user_id`)).
		WithArgs("sess-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "email", "role", "expires_at", "created_at"}).
			AddRow("sess-1", "u-1", "a@example.com", "USER", now.Add(time.Hour), now))

	session, err := NewPostgresSessionRepo(db).FindByID(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("FindByID error: %v", err)
	}
	if session == nil || session.Email != "a@example.com" || session.Role != model.RoleUser {
		t.Fatalf("unexpected session: %#v", session)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestPostgresSessionRepo_DeleteExpired_ReturnsCount(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM sessions WHERE expires_at <= $1`)).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := NewPostgresSessionRepo(db).DeleteExpired(context.Background(), now)
	if err != nil {
		t.Fatalf("DeleteExpired error: %v", err)
	}
	if n != 4 {
		t.Errorf("deleted = %d, want 4", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}
