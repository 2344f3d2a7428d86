package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jhoicas/estimate-api/internal/domain"
	"github.com/jhoicas/estimate-api/internal/domain/entity"
	"github.com/jhoicas/estimate-api/internal/domain/repository"
)

var _ repository.UserRepository = (*UserRepo)(nil)

// querier lo cumplen *pgxpool.Pool y pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserRepo implementación del puerto UserRepository sobre PostgreSQL.
type UserRepo struct {
	db querier
}

// NewUserRepository construye el adaptador de persistencia para usuarios.
func NewUserRepository(db querier) *UserRepo {
	return &UserRepo{db: db}
}

const userColumns = `id, email, password_hash, role, company_name, phone,
	failed_login_attempts, locked_until, version, created_at, updated_at`

// En el SET, failed_login_attempts se refiere al valor previo de la fila.
// $1 id, $2 umbral, $3 fin del bloqueo, $4 now.
const recordFailedLoginSQL = `
		UPDATE users SET
			failed_login_attempts = failed_login_attempts + 1,
			locked_until = CASE WHEN failed_login_attempts + 1 >= $2 THEN $3 ELSE locked_until END,
			version = version + 1,
			updated_at = $4
		WHERE id = $1
		RETURNING ` + userColumns

// $1 id, $2 now.
const resetFailedLoginsSQL = `
		UPDATE users SET failed_login_attempts = 0, locked_until = NULL,
			version = version + 1, updated_at = $2
		WHERE id = $1 AND (locked_until IS NULL OR locked_until <= $2)`

// Create persiste un nuevo usuario. El índice único sobre email es la fuente de verdad.
func (r *UserRepo) Create(ctx context.Context, user *entity.User) error {
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = user.CreatedAt
	user.Version = 1
	query := `
		INSERT INTO users (id, email, password_hash, role, company_name, phone,
			failed_login_attempts, locked_until, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.db.Exec(ctx, query,
		user.ID, user.Email, user.PasswordHash, string(user.Role), user.CompanyName, user.Phone,
		user.FailedLoginAttempts, user.LockedUntil, user.Version, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailAlreadyExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// Update persiste perfil y contraseña con control optimista por versión.
func (r *UserRepo) Update(ctx context.Context, user *entity.User) error {
	now := time.Now().UTC()
	query := `
		UPDATE users SET password_hash = $3, company_name = $4, phone = $5,
			version = version + 1, updated_at = $6
		WHERE id = $1 AND version = $2`
	tag, err := r.db.Exec(ctx, query,
		user.ID, user.Version, user.PasswordHash, user.CompanyName, user.Phone, now,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missingOrConflict(ctx, user.ID)
	}
	user.Version++
	user.UpdatedAt = now
	return nil
}

func (r *UserRepo) missingOrConflict(ctx context.Context, id string) error {
	existing, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return domain.ErrNotFound
	}
	return domain.ErrConflict
}

// FindByID obtiene un usuario por ID; (nil, nil) si no existe.
func (r *UserRepo) FindByID(ctx context.Context, id string) (*entity.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

// FindByEmail obtiene un usuario por email normalizado; (nil, nil) si no existe.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// ExistsByEmail consulta rápida previa al registro; no garantiza unicidad.
func (r *UserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("exists user by email: %w", err)
	}
	return exists, nil
}

// DeleteByID elimina la identidad. Borrar un ID inexistente no es error.
func (r *UserRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// RecordFailedLogin incrementa y aplica el bloqueo en un único UPDATE ... RETURNING,
// así dos intentos concurrentes nunca pierden un incremento.
func (r *UserRepo) RecordFailedLogin(ctx context.Context, id string, now time.Time, policy entity.LockoutPolicy) (*entity.User, error) {
	row := r.db.QueryRow(ctx, recordFailedLoginSQL, id, policy.MaxAttempts, now.Add(policy.Duration).UTC(), now.UTC())
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("record failed login: %w", err)
	}
	if u == nil {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

// ResetFailedLogins pone el contador a cero y limpia el bloqueo, salvo que un
// intento concurrente haya bloqueado la cuenta después de la lectura.
func (r *UserRepo) ResetFailedLogins(ctx context.Context, id string, now time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, resetFailedLoginsSQL, id, now.UTC())
	if err != nil {
		return false, fmt.Errorf("reset failed logins: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanUser(row pgx.Row) (*entity.User, error) {
	var (
		u    entity.User
		role string
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &role, &u.CompanyName, &u.Phone,
		&u.FailedLoginAttempts, &u.LockedUntil, &u.Version, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.Role = entity.Role(role)
	return &u, nil
}
