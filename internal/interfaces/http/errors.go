package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/estimate-api/internal/application/dto"
	"github.com/jhoicas/estimate-api/internal/domain"
	"github.com/jhoicas/estimate-api/pkg/logger"
)

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

var errorMappings = []errorMapping{
	{domain.ErrInvalidCredentials, fiber.StatusUnauthorized, "INVALID_CREDENTIALS", "credenciales inválidas"},
	{domain.ErrEmailAlreadyExists, fiber.StatusConflict, "EMAIL_EXISTS", "el email ya está registrado"},
	{domain.ErrUnsupportedAuthOperation, fiber.StatusBadRequest, "UNSUPPORTED_OPERATION", "operación no soportada por el proveedor de autenticación"},
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND", "recurso no encontrado"},
	{domain.ErrUnauthorizedAccess, fiber.StatusForbidden, "UNAUTHORIZED_ACCESS", "no autorizado para acceder a este recurso"},
	{domain.ErrInvalidPassword, fiber.StatusBadRequest, "INVALID_PASSWORD", "la contraseña actual es incorrecta"},
	{domain.ErrConflict, fiber.StatusConflict, "CONFLICT", "el recurso fue modificado por otra petición"},
	{domain.ErrUnauthenticated, fiber.StatusUnauthorized, "UNAUTHENTICATED", "autenticación requerida"},
	{domain.ErrForbidden, fiber.StatusForbidden, "FORBIDDEN", "no tiene permisos para este recurso"},
}

// respondError traduce errores de dominio a {code, message}; el resto es 500 sin detalle.
func respondError(c *fiber.Ctx, log *logger.Logger, err error) error {
	var locked *domain.AccountLockedError
	if errors.As(err, &locked) {
		return c.Status(fiber.StatusLocked).JSON(dto.LockedErrorResponse{
			Code:        "ACCOUNT_LOCKED",
			Message:     "cuenta bloqueada temporalmente por intentos fallidos",
			LockedUntil: locked.Until.UTC(),
		})
	}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: verr.Error()})
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return c.Status(m.status).JSON(dto.ErrorResponse{Code: m.code, Message: m.message})
		}
	}
	if errors.Is(err, domain.ErrInvalidInput) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "entrada inválida"})
	}
	log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("error interno")
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno del servidor"})
}

func invalidBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}
