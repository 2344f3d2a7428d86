// Package sqlite provee un credential store embebido sobre SQLite (modernc, sin cgo).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/jhoicas/estimate-api/internal/domain"
	"github.com/jhoicas/estimate-api/internal/domain/entity"
	"github.com/jhoicas/estimate-api/internal/domain/repository"
)

var _ repository.UserRepository = (*UserStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL DEFAULT '',
  role TEXT NOT NULL DEFAULT 'USER' CHECK (role IN ('USER', 'ADMIN')),
  company_name TEXT NOT NULL DEFAULT '',
  phone TEXT NOT NULL DEFAULT '',
  failed_login_attempts INTEGER NOT NULL DEFAULT 0 CHECK (failed_login_attempts >= 0),
  locked_until INTEGER,
  version INTEGER NOT NULL DEFAULT 1,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);`

// UserStore persiste identidades en SQLite. Los tiempos se guardan en milisegundos UTC.
type UserStore struct {
	db *sqlx.DB
}

type userRow struct {
	ID                  string        `db:"id"`
	Email               string        `db:"email"`
	PasswordHash        string        `db:"password_hash"`
	Role                string        `db:"role"`
	CompanyName         string        `db:"company_name"`
	Phone               string        `db:"phone"`
	FailedLoginAttempts int           `db:"failed_login_attempts"`
	LockedUntil         sql.NullInt64 `db:"locked_until"`
	Version             int64         `db:"version"`
	CreatedAt           int64         `db:"created_at"`
	UpdatedAt           int64         `db:"updated_at"`
}

const selectUser = `SELECT id, email, password_hash, role, company_name, phone,
	failed_login_attempts, locked_until, version, created_at, updated_at FROM users`

// Open abre (o crea) la base en path y aplica el esquema. ":memory:" sirve para tests.
func Open(path string) (*UserStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := ":memory:"
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	}
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// SQLite serializa escrituras; una sola conexión evita SQLITE_BUSY y
	// mantiene una única base cuando es :memory:.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &UserStore{db: db}, nil
}

// Close cierra el handle.
func (s *UserStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(v int64) time.Time { return time.UnixMilli(v).UTC() }

func (r userRow) toEntity() *entity.User {
	u := &entity.User{
		ID:                  r.ID,
		Email:               r.Email,
		PasswordHash:        r.PasswordHash,
		Role:                entity.Role(r.Role),
		CompanyName:         r.CompanyName,
		Phone:               r.Phone,
		FailedLoginAttempts: r.FailedLoginAttempts,
		Version:             r.Version,
		CreatedAt:           fromMillis(r.CreatedAt),
		UpdatedAt:           fromMillis(r.UpdatedAt),
	}
	if r.LockedUntil.Valid {
		t := fromMillis(r.LockedUntil.Int64)
		u.LockedUntil = &t
	}
	return u
}

func lockedUntilArg(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*t), Valid: true}
}

// Create inserta la identidad; la restricción UNIQUE decide entre registros concurrentes.
func (s *UserStore) Create(ctx context.Context, user *entity.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.UpdatedAt = user.CreatedAt
	user.Version = 1
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, role, company_name, phone,
			failed_login_attempts, locked_until, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.PasswordHash, string(user.Role), user.CompanyName, user.Phone,
		user.FailedLoginAttempts, lockedUntilArg(user.LockedUntil), user.Version,
		toMillis(user.CreatedAt), toMillis(user.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailAlreadyExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// Update persiste perfil y contraseña si la versión coincide.
func (s *UserStore) Update(ctx context.Context, user *entity.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, company_name = ?, phone = ?,
			version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		user.PasswordHash, user.CompanyName, user.Phone, toMillis(now), user.ID, user.Version,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n == 0 {
		existing, err := s.FindByID(ctx, user.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrNotFound
		}
		return domain.ErrConflict
	}
	user.Version++
	user.UpdatedAt = now
	return nil
}

func (s *UserStore) findOne(ctx context.Context, where string, arg any) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var row userRow
	if err := s.db.GetContext(ctx, &row, selectUser+" WHERE "+where, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row.toEntity(), nil
}

// FindByID obtiene una identidad por ID; (nil, nil) si no existe.
func (s *UserStore) FindByID(ctx context.Context, id string) (*entity.User, error) {
	u, err := s.findOne(ctx, "id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

// FindByEmail obtiene una identidad por email; (nil, nil) si no existe.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	u, err := s.findOne(ctx, "email = ?", email)
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// ExistsByEmail informa si hay una identidad con ese email.
func (s *UserStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(1) FROM users WHERE email = ?`, email); err != nil {
		return false, fmt.Errorf("exists user by email: %w", err)
	}
	return n > 0, nil
}

// DeleteByID elimina la identidad.
func (s *UserStore) DeleteByID(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// RecordFailedLogin incrementa y bloquea en una sola sentencia.
func (s *UserStore) RecordFailedLogin(ctx context.Context, id string, now time.Time, policy entity.LockoutPolicy) (*entity.User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row,
		`UPDATE users SET
			failed_login_attempts = failed_login_attempts + 1,
			locked_until = CASE WHEN failed_login_attempts + 1 >= ? THEN ? ELSE locked_until END,
			version = version + 1,
			updated_at = ?
		 WHERE id = ?
		 RETURNING id, email, password_hash, role, company_name, phone,
			failed_login_attempts, locked_until, version, created_at, updated_at`,
		policy.MaxAttempts, toMillis(now.Add(policy.Duration)), toMillis(now), id,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("record failed login: %w", err)
	}
	return row.toEntity(), nil
}

// ResetFailedLogins limpia contador y bloqueo si no hay un bloqueo vigente.
func (s *UserStore) ResetFailedLogins(ctx context.Context, id string, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET failed_login_attempts = 0, locked_until = NULL,
			version = version + 1, updated_at = ?
		 WHERE id = ? AND (locked_until IS NULL OR locked_until <= ?)`,
		toMillis(now), id, toMillis(now),
	)
	if err != nil {
		return false, fmt.Errorf("reset failed logins: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reset failed logins: %w", err)
	}
	return n > 0, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
