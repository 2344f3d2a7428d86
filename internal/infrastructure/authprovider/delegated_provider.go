package authprovider

import (
	"context"
	"errors"
	"fmt"

	"github.com/jhoicas/estimate-api/internal/application/ports"
	"github.com/jhoicas/estimate-api/internal/domain"
	"github.com/jhoicas/estimate-api/internal/domain/entity"
	"github.com/jhoicas/estimate-api/internal/domain/repository"
	"github.com/jhoicas/estimate-api/pkg/logger"
)

var _ ports.AuthenticationProvider = (*DelegatedProvider)(nil)

// DelegatedProvider delega credenciales y tokens en Google Identity Platform y
// mantiene una copia mínima de cada identidad para el control de roles.
type DelegatedProvider struct {
	platform ports.IdentityPlatform
	users    repository.UserRepository
	log      *logger.Logger
}

// NewDelegatedProvider construye el proveedor delegado.
func NewDelegatedProvider(platform ports.IdentityPlatform, users repository.UserRepository, log *logger.Logger) *DelegatedProvider {
	if log == nil {
		log = logger.Nop()
	}
	return &DelegatedProvider{platform: platform, users: users, log: log.Named("auth.delegated")}
}

// Authenticate no está soportado: el cliente inicia sesión contra la plataforma
// externa y solo presenta aquí el token emitido.
func (p *DelegatedProvider) Authenticate(context.Context, string, string) (*entity.AuthResult, error) {
	return nil, domain.ErrUnsupportedAuthOperation
}

// RegisterUser crea la cuenta externa y la refleja localmente con rol USER.
func (p *DelegatedProvider) RegisterUser(ctx context.Context, data entity.RegisterUserData) (*entity.AuthResult, error) {
	email := entity.NormalizeEmail(data.Email)
	exists, err := p.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("comprobar email: %w", err)
	}
	if exists {
		return nil, domain.ErrEmailAlreadyExists
	}

	acct, err := p.platform.SignUp(ctx, email, data.Password)
	if err != nil {
		return nil, err
	}

	user := &entity.User{
		ID:          acct.UID,
		Email:       email,
		Role:        entity.RoleUser,
		CompanyName: data.CompanyName,
		Phone:       data.Phone,
	}
	if err := p.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrEmailAlreadyExists) {
			p.log.Warn().Str("uid", acct.UID).Msg("cuenta externa creada pero el email ya estaba reflejado localmente")
		}
		return nil, err
	}
	p.log.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("usuario registrado en identity platform")

	return &entity.AuthResult{
		Token:        acct.IDToken,
		UserID:       user.ID,
		Email:        user.Email,
		Role:         user.Role,
		ProviderType: entity.ProviderGCPIdentity,
	}, nil
}

// ValidateToken verifica el ID token con la plataforma; los errores se traducen en false.
func (p *DelegatedProvider) ValidateToken(ctx context.Context, token string) bool {
	_, err := p.platform.VerifyIDToken(ctx, token)
	return err == nil
}

// ExtractUserInfo verifica el token y devuelve la identidad local, creándola
// la primera vez que se ve un uid externo.
func (p *DelegatedProvider) ExtractUserInfo(ctx context.Context, token string) (*entity.UserAuthInfo, error) {
	ext, err := p.platform.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, err
	}
	user, err := p.users.FindByID(ctx, ext.UID)
	if err != nil {
		return nil, fmt.Errorf("buscar usuario: %w", err)
	}
	if user == nil {
		user, err = p.sync(ctx, ext)
		if err != nil {
			return nil, err
		}
	}
	return &entity.UserAuthInfo{UserID: user.ID, Email: user.Email, Role: user.Role}, nil
}

func (p *DelegatedProvider) sync(ctx context.Context, ext *ports.ExternalToken) (*entity.User, error) {
	email := entity.NormalizeEmail(ext.Email)
	if email == "" {
		// Cuentas solo-teléfono: sin email no hay identidad local que reflejar.
		p.log.Warn().Str("uid", ext.UID).Msg("token externo sin email; identidad no sincronizada")
		return nil, fmt.Errorf("%w: cuenta externa %s sin email", domain.ErrInvalidToken, ext.UID)
	}
	user := &entity.User{
		ID:    ext.UID,
		Email: email,
		Role:  entity.RoleUser,
	}
	err := p.users.Create(ctx, user)
	if err == nil {
		p.log.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("identidad sincronizada desde identity platform")
		return user, nil
	}
	if !errors.Is(err, domain.ErrEmailAlreadyExists) {
		return nil, fmt.Errorf("sincronizar usuario: %w", err)
	}
	// Otra petición concurrente pudo crear el mismo uid.
	existing, ferr := p.users.FindByID(ctx, ext.UID)
	if ferr != nil {
		return nil, fmt.Errorf("buscar usuario: %w", ferr)
	}
	if existing == nil {
		// El email pertenece a otra identidad local con distinto uid.
		return nil, domain.ErrConflict
	}
	return existing, nil
}

// ManagesPasswords false: las contraseñas viven en la plataforma externa.
func (p *DelegatedProvider) ManagesPasswords() bool { return false }

// Type GCP_IDENTITY.
func (p *DelegatedProvider) Type() entity.ProviderType { return entity.ProviderGCPIdentity }
