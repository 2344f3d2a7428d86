package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/estimate-api/internal/application/auth"
	"github.com/jhoicas/estimate-api/internal/application/ports"
	"github.com/jhoicas/estimate-api/internal/application/usecase"
	"github.com/jhoicas/estimate-api/internal/domain/entity"
	"github.com/jhoicas/estimate-api/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	ServiceName string
	Provider    ports.AuthenticationProvider
	AuthUC      *auth.AuthUseCase
	UserUC      *usecase.UserUseCase
	Log         *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ok",
			"service":  deps.ServiceName,
			"provider": string(deps.Provider.Type()),
		})
	})

	// Authenticate nunca rechaza; cada grupo decide con RequireAuth/RequireRole.
	api := app.Group("/api", Authenticate(deps.Provider, log))

	// Auth (público)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC, log.Named("http.auth"))
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)

	// Users (requiere identidad)
	userHandler := NewUserHandler(deps.UserUC, log.Named("http.users"))
	users := api.Group("/users", RequireAuth())
	users.Get("/me", userHandler.Me)
	users.Put("/me", userHandler.UpdateMe)
	users.Delete("/me", userHandler.DeleteMe)
	users.Post("/me/change-password", userHandler.ChangePassword)
	users.Get("/:id", userHandler.GetByID)

	// Admin (requiere rol ADMIN)
	admin := api.Group("/admin", RequireRole(entity.RoleAdmin))
	admin.Delete("/users/:id", userHandler.DeleteUser)
}
