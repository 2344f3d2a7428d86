package http

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/estimate-api/internal/application/dto"
	"github.com/jhoicas/estimate-api/internal/application/ports"
	"github.com/jhoicas/estimate-api/internal/domain"
	"github.com/jhoicas/estimate-api/internal/domain/entity"
	"github.com/jhoicas/estimate-api/pkg/logger"
)

// Locals keys de la identidad en Fiber.
const (
	LocalUserID   = "user_id"
	LocalEmail    = "email"
	LocalRole     = "role"
	LocalIdentity = "identity"
)

// Authenticate extrae el Bearer Token y, si el proveedor lo acepta, deja la identidad
// en c.Locals. Nunca rechaza: sin token o con token inválido la petición sigue anónima
// y la decisión queda para RequireAuth/RequireRole.
func Authenticate(provider ports.AuthenticationProvider, log *logger.Logger) fiber.Handler {
	if log == nil {
		log = logger.Nop()
	}
	log = log.Named("http.auth")
	return func(c *fiber.Ctx) error {
		token := bearerToken(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			return c.Next()
		}
		info, err := provider.ExtractUserInfo(c.UserContext(), token)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidToken) {
				log.Debug().Str("path", c.Path()).Msg("token inválido o expirado; petición anónima")
			} else {
				log.Error().Err(err).Str("path", c.Path()).Msg("no se pudo resolver la identidad del token")
			}
			return c.Next()
		}
		setIdentity(c, *info)
		return c.Next()
	}
}

// bearerToken devuelve "" si el header falta o no tiene la forma "Bearer <token>".
func bearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func setIdentity(c *fiber.Ctx, info entity.UserAuthInfo) {
	c.Locals(LocalIdentity, info)
	c.Locals(LocalUserID, info.UserID)
	c.Locals(LocalEmail, info.Email)
	c.Locals(LocalRole, info.Role.String())
}

// RequireAuth exige una identidad adjunta (401 si no la hay).
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := GetIdentity(c); !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Code:    "UNAUTHENTICATED",
				Message: "autenticación requerida",
			})
		}
		return c.Next()
	}
}

// RequireRole exige identidad (401) y uno de los roles indicados (403).
func RequireRole(roles ...entity.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := GetIdentity(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Code:    "UNAUTHENTICATED",
				Message: "autenticación requerida",
			})
		}
		for _, r := range roles {
			if identity.Role == r {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Code:    "FORBIDDEN",
			Message: "no tiene permisos para este recurso",
		})
	}
}

// GetIdentity devuelve la identidad adjunta por Authenticate.
func GetIdentity(c *fiber.Ctx) (entity.UserAuthInfo, bool) {
	info, ok := c.Locals(LocalIdentity).(entity.UserAuthInfo)
	if !ok || info.UserID == "" {
		return entity.UserAuthInfo{}, false
	}
	return info, true
}

// GetUserID devuelve el UserID del contexto (después del middleware de auth).
func GetUserID(c *fiber.Ctx) string {
	return localString(c, LocalUserID)
}

// GetEmail devuelve el email del contexto.
func GetEmail(c *fiber.Ctx) string {
	return localString(c, LocalEmail)
}

// GetRole devuelve el rol del contexto.
func GetRole(c *fiber.Ctx) string {
	return localString(c, LocalRole)
}

func localString(c *fiber.Ctx, key string) string {
	v := c.Locals(key)
	if v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}
