package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/estimate-api/internal/application/auth"
	"github.com/jhoicas/estimate-api/internal/application/ports"
	"github.com/jhoicas/estimate-api/internal/application/usecase"
	"github.com/jhoicas/estimate-api/internal/domain/entity"
	"github.com/jhoicas/estimate-api/internal/domain/repository"
	"github.com/jhoicas/estimate-api/internal/infrastructure/authprovider"
	"github.com/jhoicas/estimate-api/internal/infrastructure/identityplatform"
	"github.com/jhoicas/estimate-api/internal/infrastructure/postgres"
	"github.com/jhoicas/estimate-api/internal/infrastructure/security"
	"github.com/jhoicas/estimate-api/internal/infrastructure/sqlite"
	httpRouter "github.com/jhoicas/estimate-api/internal/interfaces/http"
	"github.com/jhoicas/estimate-api/pkg/config"
	"github.com/jhoicas/estimate-api/pkg/jwt"
	"github.com/jhoicas/estimate-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.Log.Level,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("auth_provider", cfg.Auth.Provider).
		Str("store", cfg.Store.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()

	var userRepo repository.UserRepository
	switch cfg.Store.Driver {
	case config.StoreDriverSQLite:
		store, err := sqlite.Open(cfg.Store.SQLitePath)
		if err != nil {
			log.Fatal().Err(err).Msg("apertura de SQLite")
		}
		defer store.Close()
		userRepo = store
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("esquema de usuarios")
		}
		userRepo = postgres.NewUserRepository(pool)
	}

	policy := entity.LockoutPolicy{
		MaxAttempts: cfg.Security.MaxLoginAttempts,
		Duration:    time.Duration(cfg.Security.LockoutDurationMinutes) * time.Minute,
	}

	// Exactamente un proveedor activo por despliegue.
	var (
		provider ports.AuthenticationProvider
		encoder  ports.PasswordEncoder
	)
	switch cfg.Auth.Provider {
	case config.AuthProviderGCP:
		platform, err := identityplatform.New(identityplatform.Config{
			ProjectID:          cfg.GCP.ProjectID,
			APIKey:             cfg.GCP.APIKey,
			JWKSURL:            cfg.GCP.JWKSURL,
			IdentityToolkitURL: cfg.GCP.IdentityToolkitURL,
		}, log)
		if err != nil {
			log.Fatal().Err(err).Msg("cliente de Identity Platform")
		}
		defer platform.Close()
		provider = authprovider.NewDelegatedProvider(platform, userRepo, log)
	default:
		issuer, err := jwt.NewIssuer(jwt.Config{
			Secret:     cfg.JWT.Secret,
			ExpMinutes: cfg.JWT.Expiration,
			Issuer:     cfg.JWT.Issuer,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("emisor JWT")
		}
		bcryptEncoder := security.NewBcryptEncoder(cfg.Security.BcryptCost)
		encoder = bcryptEncoder
		provider = authprovider.NewLocalProvider(userRepo, bcryptEncoder, issuer, policy, log)
	}

	authUC := auth.NewAuthUseCase(provider, cfg.Profile.PhoneRegion, log)
	userUC := usecase.NewUserUseCase(userRepo, provider, encoder, cfg.Profile.PhoneRegion, log)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Estimate API",
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		ServiceName: cfg.App.Name,
		Provider:    provider,
		AuthUC:      authUC,
		UserUC:      userUC,
		Log:         log,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
