package identityplatform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/jhoicas/estimate-api/internal/application/ports"
	"github.com/jhoicas/estimate-api/internal/domain"
	"github.com/jhoicas/estimate-api/pkg/logger"
)

// Verificar en tiempo de compilación que Client implementa IdentityPlatform.
var _ ports.IdentityPlatform = (*Client)(nil)

// ErrInvalidIDToken ID token externo con firma, emisor, audiencia o expiración inválidos.
// errors.Is(err, domain.ErrInvalidToken) es verdadero.
var ErrInvalidIDToken = fmt.Errorf("identityplatform: ID token: %w", domain.ErrInvalidToken)

const securetokenIssuerPrefix = "https://securetoken.google.com/"

// Config parámetros del proyecto de Google Identity Platform.
type Config struct {
	ProjectID          string
	APIKey             string
	JWKSURL            string
	IdentityToolkitURL string
}

// Client adaptador REST de Identity Toolkit más verificación local de ID tokens vía JWKS.
type Client struct {
	projectID  string
	apiKey     string
	baseURL    string
	httpClient *http.Client
	keyfunc    jwt.Keyfunc
	jwks       *keyfunc.JWKS
	now        func() time.Time
	log        *logger.Logger
}

// Option personaliza el cliente (tests).
type Option func(*Client)

// WithHTTPClient reemplaza el cliente HTTP.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithKeyfunc usa claves dadas en lugar de descargar el JWKS.
func WithKeyfunc(kf jwt.Keyfunc) Option {
	return func(c *Client) { c.keyfunc = kf }
}

// WithClock reemplaza el reloj usado para validar exp/iat.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New construye el cliente. Si no se inyecta un keyfunc, descarga el JWKS de
// cfg.JWKSURL y lo refresca en segundo plano; Close detiene ese refresco.
func New(cfg Config, log *logger.Logger, opts ...Option) (*Client, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("identityplatform: project id vacío")
	}
	if log == nil {
		log = logger.Nop()
	}
	c := &Client{
		projectID: cfg.ProjectID,
		apiKey:    cfg.APIKey,
		baseURL:   strings.TrimRight(cfg.IdentityToolkitURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		now: time.Now,
		log: log.Named("identityplatform"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.keyfunc == nil {
		jwks, err := keyfunc.Get(cfg.JWKSURL, keyfunc.Options{
			Client: c.httpClient,
			RefreshErrorHandler: func(err error) {
				c.log.Error().Err(err).Msg("refresco del JWKS fallido")
			},
			RefreshInterval:   time.Hour,
			RefreshRateLimit:  5 * time.Minute,
			RefreshTimeout:    10 * time.Second,
			RefreshUnknownKID: true,
		})
		if err != nil {
			return nil, fmt.Errorf("identityplatform: obtener JWKS: %w", err)
		}
		c.jwks = jwks
		c.keyfunc = jwks.Keyfunc
	}
	return c, nil
}

// Close detiene el refresco en segundo plano del JWKS.
func (c *Client) Close() {
	if c.jwks != nil {
		c.jwks.EndBackground()
	}
}

type signUpRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type signUpResponse struct {
	LocalID string `json:"localId"`
	Email   string `json:"email"`
	IDToken string `json:"idToken"`
}

type apiErrorResponse struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// SignUp crea la cuenta con accounts:signUp y devuelve el idToken emitido.
func (c *Client) SignUp(ctx context.Context, email, password string) (*ports.ExternalAccount, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("identityplatform: GCP_API_KEY no configurado")
	}
	body, err := json.Marshal(signUpRequest{Email: email, Password: password, ReturnSecureToken: true})
	if err != nil {
		return nil, fmt.Errorf("identityplatform: serializar request: %w", err)
	}

	endpoint := c.baseURL + "/accounts:signUp?key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("identityplatform: crear HTTP request: %w", err)
	}
	req.Header.Set("content-type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("identityplatform: timeout o cancelación: %w", ctx.Err())
		}
		return nil, fmt.Errorf("identityplatform: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return nil, fmt.Errorf("identityplatform: leer respuesta: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp apiErrorResponse
		if jsonErr := json.Unmarshal(rawBody, &errResp); jsonErr == nil && errResp.Error != nil {
			// El mensaje puede venir como "WEAK_PASSWORD : Password should be at least 6 characters".
			code := strings.TrimSpace(strings.SplitN(errResp.Error.Message, ":", 2)[0])
			switch code {
			case "EMAIL_EXISTS":
				return nil, domain.ErrEmailAlreadyExists
			case "INVALID_EMAIL", "WEAK_PASSWORD", "MISSING_PASSWORD", "INVALID_PASSWORD":
				return nil, &domain.ValidationError{Field: signUpField(code), Message: errResp.Error.Message}
			}
			return nil, fmt.Errorf("identityplatform: signUp %d: %s", resp.StatusCode, errResp.Error.Message)
		}
		return nil, fmt.Errorf("identityplatform: signUp HTTP %d", resp.StatusCode)
	}

	var out signUpResponse
	if err := json.Unmarshal(rawBody, &out); err != nil {
		return nil, fmt.Errorf("identityplatform: deserializar respuesta: %w", err)
	}
	if out.LocalID == "" || out.IDToken == "" {
		return nil, fmt.Errorf("identityplatform: respuesta de signUp incompleta")
	}
	return &ports.ExternalAccount{UID: out.LocalID, Email: out.Email, IDToken: out.IDToken}, nil
}

func signUpField(code string) string {
	if code == "INVALID_EMAIL" {
		return "email"
	}
	return "password"
}

type idTokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// VerifyIDToken comprueba firma RS256 contra el JWKS, emisor securetoken,
// audiencia igual al proyecto, expiración y sub no vacío.
func (c *Client) VerifyIDToken(_ context.Context, idToken string) (*ports.ExternalToken, error) {
	token, err := jwt.ParseWithClaims(idToken, &idTokenClaims{}, c.keyfunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(securetokenIssuerPrefix+c.projectID),
		jwt.WithAudience(c.projectID),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIDToken, err)
	}
	claims, ok := token.Claims.(*idTokenClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidIDToken
	}
	return &ports.ExternalToken{UID: claims.Subject, Email: claims.Email}, nil
}
