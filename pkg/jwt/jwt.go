package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken token malformado, expirado o con firma incorrecta.
var ErrInvalidToken = errors.New("jwt: token inválido")

// Claims incluye los claims estándar JWT más email y role.
// Subject lleva el userID para que el middleware no consulte la DB.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Config configuración del emisor de tokens.
type Config struct {
	Secret     string
	ExpMinutes int
	Issuer     string
}

// Issuer firma (HS256) y verifica bearer tokens. No tiene estado mutable:
// es seguro para validaciones concurrentes.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer construye el emisor. El secret es obligatorio.
func NewIssuer(cfg Config) (*Issuer, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("jwt: secret vacío")
	}
	exp := cfg.ExpMinutes
	if exp == 0 {
		exp = 60
	}
	return &Issuer{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    time.Duration(exp) * time.Minute,
		now:    time.Now,
	}, nil
}

// WithClock reemplaza el reloj (tests).
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// GenerateToken genera un token firmado con sub, email, role, iat y exp.
func (i *Issuer) GenerateToken(userID, email, role string) (string, error) {
	now := i.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		Email: email,
		Role:  role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Parse valida el token y devuelve sus claims.
// Retorna ErrInvalidToken si el token es inválido, expirado o tiene firma incorrecta.
func (i *Issuer) Parse(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	}
	if i.issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateToken nunca falla: false para tokens malformados, expirados o mal firmados.
func (i *Issuer) ValidateToken(tokenString string) bool {
	_, err := i.Parse(tokenString)
	return err == nil
}

// ExtractUserID devuelve el subject de un token válido.
func (i *Issuer) ExtractUserID(tokenString string) (string, error) {
	c, err := i.Parse(tokenString)
	if err != nil {
		return "", err
	}
	return c.Subject, nil
}

// ExtractEmail devuelve el email de un token válido.
func (i *Issuer) ExtractEmail(tokenString string) (string, error) {
	c, err := i.Parse(tokenString)
	if err != nil {
		return "", err
	}
	return c.Email, nil
}

// ExtractRole devuelve el rol de un token válido.
func (i *Issuer) ExtractRole(tokenString string) (string, error) {
	c, err := i.Parse(tokenString)
	if err != nil {
		return "", err
	}
	return c.Role, nil
}
