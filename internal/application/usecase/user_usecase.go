package usecase

import (
	"context"
	"fmt"

	"github.com/jhoicas/estimate-api/internal/application/auth"
	"github.com/jhoicas/estimate-api/internal/application/dto"
	"github.com/jhoicas/estimate-api/internal/application/ports"
	"github.com/jhoicas/estimate-api/internal/domain"
	"github.com/jhoicas/estimate-api/internal/domain/entity"
	"github.com/jhoicas/estimate-api/internal/domain/repository"
	"github.com/jhoicas/estimate-api/pkg/logger"
)

// UserUseCase perfil, cambio de contraseña y baja de la identidad.
type UserUseCase struct {
	repo        repository.UserRepository
	provider    ports.AuthenticationProvider
	encoder     ports.PasswordEncoder
	owned       []repository.OwnedRecordsDeleter
	phoneRegion string
	log         *logger.Logger
}

// NewUserUseCase construye el caso de uso. encoder puede ser nil si el proveedor
// activo no gestiona contraseñas.
func NewUserUseCase(
	repo repository.UserRepository,
	provider ports.AuthenticationProvider,
	encoder ports.PasswordEncoder,
	phoneRegion string,
	log *logger.Logger,
) *UserUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &UserUseCase{
		repo:        repo,
		provider:    provider,
		encoder:     encoder,
		phoneRegion: phoneRegion,
		log:         log.Named("users"),
	}
}

// RegisterOwnedRecords añade colaboradores cuyos registros se borran antes que la identidad,
// en el orden de registro.
func (uc *UserUseCase) RegisterOwnedRecords(deleters ...repository.OwnedRecordsDeleter) {
	uc.owned = append(uc.owned, deleters...)
}

// GetByID devuelve el perfil si quien llama es su propietario o un ADMIN.
func (uc *UserUseCase) GetByID(ctx context.Context, caller entity.UserAuthInfo, id string) (*dto.UserResponse, error) {
	if err := auth.EnsureOwnership(caller, id); err != nil {
		return nil, err
	}
	user, err := uc.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return entityToUserResponse(user), nil
}

// UpdateProfile actualiza empresa y teléfono del propio usuario.
func (uc *UserUseCase) UpdateProfile(ctx context.Context, userID string, in dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	normalized, err := auth.NormalizePhone(in.Phone, uc.phoneRegion)
	if err != nil {
		return nil, err
	}
	user, err := uc.find(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.CompanyName = in.CompanyName
	user.Phone = normalized
	if err := uc.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return entityToUserResponse(user), nil
}

// ChangePassword solo aplica cuando el proveedor activo gestiona contraseñas.
func (uc *UserUseCase) ChangePassword(ctx context.Context, userID string, in dto.ChangePasswordRequest) error {
	if !uc.provider.ManagesPasswords() || uc.encoder == nil {
		return domain.ErrUnsupportedAuthOperation
	}
	if err := in.Validate(); err != nil {
		return err
	}
	user, err := uc.find(ctx, userID)
	if err != nil {
		return err
	}
	if !uc.encoder.Matches(in.OldPassword, user.PasswordHash) {
		return domain.ErrInvalidPassword
	}
	hash, err := uc.encoder.Encode(in.NewPassword)
	if err != nil {
		return fmt.Errorf("hash de contraseña: %w", err)
	}
	user.PasswordHash = hash
	if err := uc.repo.Update(ctx, user); err != nil {
		return err
	}
	uc.log.Info().Str("user_id", user.ID).Msg("contraseña actualizada")
	return nil
}

// DeleteAccount borra primero los registros dependientes y al final la identidad.
func (uc *UserUseCase) DeleteAccount(ctx context.Context, userID string) error {
	if _, err := uc.find(ctx, userID); err != nil {
		return err
	}
	for _, d := range uc.owned {
		if err := d.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("borrar registros del usuario: %w", err)
		}
	}
	if err := uc.repo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("borrar usuario: %w", err)
	}
	uc.log.Info().Str("user_id", userID).Msg("cuenta eliminada")
	return nil
}

func (uc *UserUseCase) find(ctx context.Context, id string) (*entity.User, error) {
	user, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

func entityToUserResponse(u *entity.User) *dto.UserResponse {
	if u == nil {
		return nil
	}
	return &dto.UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		Role:        u.Role.String(),
		CompanyName: u.CompanyName,
		Phone:       u.Phone,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}
