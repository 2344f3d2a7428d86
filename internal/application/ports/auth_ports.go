package ports

import (
	"context"

	"github.com/jhoicas/estimate-api/internal/domain/entity"
)

// PasswordEncoder define el puerto de hashing de contraseñas.
// Un mismatch es false, nunca un error.
type PasswordEncoder interface {
	Encode(rawPassword string) (string, error)
	Matches(rawPassword, encodedPassword string) bool
}

// TokenProvider firma y verifica bearer tokens locales.
// ValidateToken nunca falla con entrada no confiable: devuelve false.
// Los Extract* solo están definidos para tokens válidos y devuelven error en otro caso.
type TokenProvider interface {
	GenerateToken(userID, email, role string) (string, error)
	ValidateToken(token string) bool
	ExtractUserID(token string) (string, error)
	ExtractEmail(token string) (string, error)
	ExtractRole(token string) (string, error)
}

// AuthenticationProvider es la capacidad polimórfica de autenticación.
// Hay exactamente una variante activa por despliegue (local o delegada),
// elegida al arrancar el proceso.
type AuthenticationProvider interface {
	Authenticate(ctx context.Context, email, password string) (*entity.AuthResult, error)
	RegisterUser(ctx context.Context, data entity.RegisterUserData) (*entity.AuthResult, error)
	ValidateToken(ctx context.Context, token string) bool
	// ExtractUserInfo verifica el token y resuelve la identidad. Un token rechazado
	// cumple errors.Is(err, domain.ErrInvalidToken); cualquier otro error es de infraestructura.
	ExtractUserInfo(ctx context.Context, token string) (*entity.UserAuthInfo, error)
	ManagesPasswords() bool
	Type() entity.ProviderType
}

// ExternalAccount cuenta creada en la plataforma de identidad externa.
type ExternalAccount struct {
	UID     string
	Email   string
	IDToken string
}

// ExternalToken claims verificados de un ID token externo.
type ExternalToken struct {
	UID   string
	Email string
}

// IdentityPlatform puerto hacia la plataforma de identidad externa (Google Identity Platform).
type IdentityPlatform interface {
	// SignUp crea la cuenta; devuelve domain.ErrEmailAlreadyExists si el email ya existe allí.
	SignUp(ctx context.Context, email, password string) (*ExternalAccount, error)
	// VerifyIDToken verifica firma, emisor, audiencia y expiración.
	VerifyIDToken(ctx context.Context, idToken string) (*ExternalToken, error)
}
