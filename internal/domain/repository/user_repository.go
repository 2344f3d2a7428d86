package repository

import (
	"context"
	"time"

	"github.com/jhoicas/estimate-api/internal/domain/entity"
)

// UserRepository define el puerto de persistencia para identidades (Credential Store).
//
// El store es la autoridad sobre la unicidad del email: Create devuelve
// domain.ErrEmailAlreadyExists cuando el índice único lo rechaza, aunque un
// ExistsByEmail previo haya dicho lo contrario.
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	// Update persiste el perfil y la contraseña si la versión coincide; devuelve domain.ErrConflict si no.
	Update(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id string) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	DeleteByID(ctx context.Context, id string) error
	// RecordFailedLogin incrementa atómicamente el contador y aplica el bloqueo en la misma operación.
	RecordFailedLogin(ctx context.Context, id string, now time.Time, policy entity.LockoutPolicy) (*entity.User, error)
	// ResetFailedLogins pone el contador a cero y limpia LockedUntil solo si la cuenta
	// no está bloqueada en now. Devuelve false cuando un bloqueo vigente impidió el reinicio.
	ResetFailedLogins(ctx context.Context, id string, now time.Time) (bool, error)
}

// OwnedRecordsDeleter lo implementan los colaboradores que poseen registros de un usuario
// (obras, plantillas, presupuestos) y deben borrarse antes que la identidad.
type OwnedRecordsDeleter interface {
	DeleteByUserID(ctx context.Context, userID string) error
}
