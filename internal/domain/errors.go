package domain

import (
	"errors"
	"time"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound                 = errors.New("recurso no encontrado")
	ErrInvalidCredentials       = errors.New("credenciales inválidas")
	ErrAccountLocked            = errors.New("cuenta bloqueada temporalmente")
	ErrEmailAlreadyExists       = errors.New("el email ya está registrado")
	ErrUnsupportedAuthOperation = errors.New("operación no soportada por el proveedor de autenticación")
	ErrUnauthorizedAccess       = errors.New("no autorizado para acceder a este recurso")
	ErrInvalidPassword          = errors.New("la contraseña actual es incorrecta")
	ErrInvalidInput             = errors.New("entrada inválida")
	ErrConflict                 = errors.New("conflicto con el estado actual")
	ErrUnauthenticated          = errors.New("autenticación requerida")
	ErrForbidden                = errors.New("acceso denegado")
	ErrInvalidToken             = errors.New("token inválido o expirado")
)

// AccountLockedError indica que la cuenta está bloqueada hasta Until.
// errors.Is(err, ErrAccountLocked) es verdadero.
type AccountLockedError struct {
	Until time.Time
}

func (e *AccountLockedError) Error() string {
	return ErrAccountLocked.Error() + " hasta " + e.Until.UTC().Format(time.RFC3339)
}

func (e *AccountLockedError) Is(target error) bool {
	return target == ErrAccountLocked
}

// ValidationError describe un campo de entrada rechazado.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }
