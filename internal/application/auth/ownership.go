package auth

import (
	"github.com/jhoicas/estimate-api/internal/domain"
	"github.com/jhoicas/estimate-api/internal/domain/entity"
)

// EnsureOwnership permite el acceso al propietario del recurso o a un ADMIN.
func EnsureOwnership(identity entity.UserAuthInfo, ownerID string) error {
	if identity.UserID == "" {
		return domain.ErrUnauthenticated
	}
	if identity.UserID == ownerID || identity.IsAdmin() {
		return nil
	}
	return domain.ErrUnauthorizedAccess
}
