package authprovider

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/estimate-api/internal/application/ports"
	"github.com/jhoicas/estimate-api/internal/domain"
	"github.com/jhoicas/estimate-api/internal/domain/entity"
	"github.com/jhoicas/estimate-api/internal/domain/repository"
	"github.com/jhoicas/estimate-api/pkg/jwt"
	"github.com/jhoicas/estimate-api/pkg/logger"
)

var (
	_ ports.AuthenticationProvider = (*LocalProvider)(nil)
	_ ports.TokenProvider          = (*jwt.Issuer)(nil)
)

// LocalProvider gestiona contraseñas, bloqueo por intentos fallidos y tokens propios.
type LocalProvider struct {
	users   repository.UserRepository
	encoder ports.PasswordEncoder
	tokens  ports.TokenProvider
	policy  entity.LockoutPolicy
	now     func() time.Time
	log     *logger.Logger

	// dummyHash se compara cuando el email no existe para igualar el tiempo de respuesta.
	dummyHash string
}

// NewLocalProvider construye el proveedor local.
func NewLocalProvider(
	users repository.UserRepository,
	encoder ports.PasswordEncoder,
	tokens ports.TokenProvider,
	policy entity.LockoutPolicy,
	log *logger.Logger,
) *LocalProvider {
	if log == nil {
		log = logger.Nop()
	}
	dummy, _ := encoder.Encode("estimate-api-dummy-password")
	return &LocalProvider{
		users:     users,
		encoder:   encoder,
		tokens:    tokens,
		policy:    policy,
		now:       time.Now,
		log:       log.Named("auth.local"),
		dummyHash: dummy,
	}
}

// WithClock reemplaza el reloj (tests).
func (p *LocalProvider) WithClock(now func() time.Time) *LocalProvider {
	p.now = now
	return p
}

// Authenticate verifica credenciales aplicando la máquina de bloqueo.
func (p *LocalProvider) Authenticate(ctx context.Context, email, password string) (*entity.AuthResult, error) {
	email = entity.NormalizeEmail(email)
	user, err := p.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("buscar usuario: %w", err)
	}
	if user == nil || !user.ManagedLocally() {
		p.encoder.Matches(password, p.dummyHash)
		return nil, domain.ErrInvalidCredentials
	}

	now := p.now()
	if user.IsLocked(now) {
		return nil, &domain.AccountLockedError{Until: *user.LockedUntil}
	}

	if !p.encoder.Matches(password, user.PasswordHash) {
		// El contador se persiste aunque el cliente se desconecte.
		updated, err := p.users.RecordFailedLogin(context.WithoutCancel(ctx), user.ID, now, p.policy)
		if err != nil {
			return nil, fmt.Errorf("registrar intento fallido: %w", err)
		}
		if updated.IsLocked(now) {
			p.log.Warn().
				Str("user_id", updated.ID).
				Str("email", updated.Email).
				Time("locked_until", *updated.LockedUntil).
				Msg("cuenta bloqueada por intentos fallidos")
		}
		return nil, domain.ErrInvalidCredentials
	}

	if user.FailedLoginAttempts > 0 {
		reset, err := p.users.ResetFailedLogins(context.WithoutCancel(ctx), user.ID, now)
		if err != nil {
			return nil, fmt.Errorf("reiniciar intentos fallidos: %w", err)
		}
		if !reset {
			return nil, p.lockedError(ctx, user.ID)
		}
		user.ResetFailedLogins()
	}

	return p.issue(user)
}

// RegisterUser crea la identidad con rol USER y emite un token (auto-login).
func (p *LocalProvider) RegisterUser(ctx context.Context, data entity.RegisterUserData) (*entity.AuthResult, error) {
	email := entity.NormalizeEmail(data.Email)
	exists, err := p.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("comprobar email: %w", err)
	}
	if exists {
		return nil, domain.ErrEmailAlreadyExists
	}

	hash, err := p.encoder.Encode(data.Password)
	if err != nil {
		return nil, fmt.Errorf("hash de contraseña: %w", err)
	}
	user := &entity.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		Role:         entity.RoleUser,
		CompanyName:  data.CompanyName,
		Phone:        data.Phone,
	}
	// El índice único decide si otro registro concurrente ganó la carrera.
	if err := p.users.Create(ctx, user); err != nil {
		return nil, err
	}
	p.log.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("usuario registrado")
	return p.issue(user)
}

// ValidateToken nunca falla: false para cualquier token no válido.
func (p *LocalProvider) ValidateToken(_ context.Context, token string) bool {
	return p.tokens.ValidateToken(token)
}

// ExtractUserInfo lee la identidad de los claims sin consultar el store.
// Todo rechazo del token cumple errors.Is(err, domain.ErrInvalidToken).
func (p *LocalProvider) ExtractUserInfo(_ context.Context, token string) (*entity.UserAuthInfo, error) {
	userID, err := p.tokens.ExtractUserID(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidToken, err)
	}
	email, err := p.tokens.ExtractEmail(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidToken, err)
	}
	role, err := p.tokens.ExtractRole(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidToken, err)
	}
	r := entity.Role(role)
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %w: rol desconocido %q", domain.ErrInvalidToken, jwt.ErrInvalidToken, role)
	}
	return &entity.UserAuthInfo{UserID: userID, Email: email, Role: r}, nil
}

// ManagesPasswords true: las contraseñas viven en el store local.
func (p *LocalProvider) ManagesPasswords() bool { return true }

// Type CUSTOM_JWT.
func (p *LocalProvider) Type() entity.ProviderType { return entity.ProviderCustomJWT }

// lockedError relee la fila para informar el bloqueo que otro intento aplicó tras la lectura inicial.
func (p *LocalProvider) lockedError(ctx context.Context, id string) error {
	user, err := p.users.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("buscar usuario: %w", err)
	}
	if user == nil || user.LockedUntil == nil {
		return domain.ErrInvalidCredentials
	}
	return &domain.AccountLockedError{Until: *user.LockedUntil}
}

func (p *LocalProvider) issue(user *entity.User) (*entity.AuthResult, error) {
	token, err := p.tokens.GenerateToken(user.ID, user.Email, user.Role.String())
	if err != nil {
		return nil, fmt.Errorf("generar token: %w", err)
	}
	return &entity.AuthResult{
		Token:        token,
		UserID:       user.ID,
		Email:        user.Email,
		Role:         user.Role,
		ProviderType: entity.ProviderCustomJWT,
	}, nil
}
