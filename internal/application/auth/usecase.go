package auth

import (
	"context"
	"errors"

	"github.com/jhoicas/estimate-api/internal/application/dto"
	"github.com/jhoicas/estimate-api/internal/application/ports"
	"github.com/jhoicas/estimate-api/internal/domain"
	"github.com/jhoicas/estimate-api/internal/domain/entity"
	"github.com/jhoicas/estimate-api/pkg/logger"
	"github.com/jhoicas/estimate-api/pkg/phone"
)

// AuthUseCase casos de uso de autenticación: registro y login contra el proveedor activo.
type AuthUseCase struct {
	provider    ports.AuthenticationProvider
	phoneRegion string
	log         *logger.Logger
}

// NewAuthUseCase construye el caso de uso de auth.
func NewAuthUseCase(provider ports.AuthenticationProvider, phoneRegion string, log *logger.Logger) *AuthUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &AuthUseCase{provider: provider, phoneRegion: phoneRegion, log: log.Named("auth")}
}

// Register valida la entrada, normaliza email y teléfono y crea la identidad con rol USER.
// Devuelve ErrEmailAlreadyExists si el email ya está registrado.
func (uc *AuthUseCase) Register(ctx context.Context, in dto.RegisterRequest) (*dto.AuthResponse, error) {
	in.Email = entity.NormalizeEmail(in.Email)
	if err := in.Validate(); err != nil {
		return nil, err
	}
	normalizedPhone, err := NormalizePhone(in.Phone, uc.phoneRegion)
	if err != nil {
		return nil, err
	}
	res, err := uc.provider.RegisterUser(ctx, entity.RegisterUserData{
		Email:       in.Email,
		Password:    in.Password,
		CompanyName: in.CompanyName,
		Phone:       normalizedPhone,
	})
	if err != nil {
		return nil, err
	}
	return toAuthResponse(res), nil
}

// Login verifica email/password y retorna el token emitido.
// Email inexistente y contraseña incorrecta producen el mismo ErrInvalidCredentials.
func (uc *AuthUseCase) Login(ctx context.Context, in dto.LoginRequest) (*dto.AuthResponse, error) {
	in.Email = entity.NormalizeEmail(in.Email)
	if err := in.Validate(); err != nil {
		return nil, err
	}
	res, err := uc.provider.Authenticate(ctx, in.Email, in.Password)
	if err != nil {
		if errors.Is(err, domain.ErrAccountLocked) {
			uc.log.Info().Str("email", in.Email).Msg("login rechazado: cuenta bloqueada")
		}
		return nil, err
	}
	uc.log.Info().Str("user_id", res.UserID).Msg("login exitoso")
	return toAuthResponse(res), nil
}

// ProviderType variante de proveedor activa.
func (uc *AuthUseCase) ProviderType() entity.ProviderType {
	return uc.provider.Type()
}

// NormalizePhone lleva el teléfono a E.164; un valor no reconocible es un error de validación.
func NormalizePhone(raw, region string) (string, error) {
	out, err := phone.Normalize(raw, region)
	if err != nil {
		return "", &domain.ValidationError{Field: "phone", Message: err.Error()}
	}
	return out, nil
}

func toAuthResponse(res *entity.AuthResult) *dto.AuthResponse {
	return &dto.AuthResponse{
		Token:        res.Token,
		UserID:       res.UserID,
		Email:        res.Email,
		Role:         res.Role.String(),
		ProviderType: string(res.ProviderType),
	}
}
