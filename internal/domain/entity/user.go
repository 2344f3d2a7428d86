package entity

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Role rol de autorización de una identidad.
type Role string

// Roles válidos para User.
const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid informa si el rol pertenece al conjunto conocido.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

func (r Role) String() string { return string(r) }

// LockoutPolicy umbral de intentos fallidos y duración del bloqueo.
type LockoutPolicy struct {
	MaxAttempts int
	Duration    time.Duration
}

// DefaultLockoutPolicy 5 intentos, 15 minutos.
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{MaxAttempts: 5, Duration: 15 * time.Minute}
}

// User es la identidad autoritativa. PasswordHash solo existe para identidades
// gestionadas por el proveedor local.
type User struct {
	ID                  string
	Email               string
	PasswordHash        string
	Role                Role
	CompanyName         string
	Phone               string
	FailedLoginAttempts int
	LockedUntil         *time.Time
	Version             int64
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// IsLocked devuelve true si LockedUntil está definido y todavía es futuro respecto a now.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// RegisterFailedLogin incrementa el contador y aplica el bloqueo al alcanzar el umbral.
// Devuelve true si este intento dejó la cuenta bloqueada.
// Los stores SQL replican esta transición en una sola sentencia UPDATE.
func (u *User) RegisterFailedLogin(now time.Time, policy LockoutPolicy) bool {
	u.FailedLoginAttempts++
	if u.FailedLoginAttempts >= policy.MaxAttempts {
		until := now.Add(policy.Duration)
		u.LockedUntil = &until
		return true
	}
	return false
}

// ResetFailedLogins limpia el contador y el bloqueo tras un login exitoso.
func (u *User) ResetFailedLogins() {
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
}

// ManagedLocally indica si la identidad tiene contraseña local.
func (u *User) ManagedLocally() bool {
	return u.PasswordHash != ""
}

var emailFolder = cases.Fold()

// NormalizeEmail aplica la política de mayúsculas fijada al crear la identidad:
// los emails se comparan y guardan en forma plegada (case-insensitive).
func NormalizeEmail(email string) string {
	return emailFolder.String(strings.TrimSpace(email))
}
