package dto

import (
	"errors"
	"sort"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/jhoicas/estimate-api/internal/domain"
)

const (
	minPasswordLength = 8
	// bcrypt ignora lo que pasa de 72 bytes.
	maxPasswordLength = 72
)

// RegisterRequest entrada para registro (auth).
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	CompanyName string `json:"companyName"`
	Phone       string `json:"phone"`
}

// Validate aplica las reglas de entrada del registro.
func (r RegisterRequest) Validate() error {
	return toDomainError(validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(minPasswordLength, maxPasswordLength)),
		validation.Field(&r.CompanyName, validation.Length(0, 200)),
		validation.Field(&r.Phone, validation.Length(0, 32)),
	))
}

// LoginRequest entrada para login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate solo exige presencia: el formato no se revela en el login.
func (r LoginRequest) Validate() error {
	return toDomainError(validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	))
}

// AuthResponse salida de login y registro.
type AuthResponse struct {
	Token        string `json:"token"`
	UserID       string `json:"userId"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	ProviderType string `json:"providerType"`
}

// UpdateProfileRequest datos de perfil editables por el propietario.
type UpdateProfileRequest struct {
	CompanyName string `json:"companyName"`
	Phone       string `json:"phone"`
}

// Validate reglas del perfil.
func (r UpdateProfileRequest) Validate() error {
	return toDomainError(validation.ValidateStruct(&r,
		validation.Field(&r.CompanyName, validation.Length(0, 200)),
		validation.Field(&r.Phone, validation.Length(0, 32)),
	))
}

// ChangePasswordRequest cambio de contraseña (solo proveedor local).
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// Validate reglas del cambio de contraseña.
func (r ChangePasswordRequest) Validate() error {
	return toDomainError(validation.ValidateStruct(&r,
		validation.Field(&r.OldPassword, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(minPasswordLength, maxPasswordLength)),
	))
}

// UserResponse salida de un usuario (sin password ni estado de bloqueo).
type UserResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	CompanyName string    `json:"companyName"`
	Phone       string    `json:"phone"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// toDomainError convierte validation.Errors en *domain.ValidationError (primer campo en orden alfabético).
func toDomainError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validation.Errors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fields := make([]string, 0, len(verrs))
		for f := range verrs {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		return &domain.ValidationError{Field: fields[0], Message: verrs[fields[0]].Error()}
	}
	return &domain.ValidationError{Message: err.Error()}
}
