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

	"github.com/gestionpro/gestion-api/internal/application/auth"
	infraaudit "github.com/gestionpro/gestion-api/internal/infrastructure/audit"
	infraemail "github.com/gestionpro/gestion-api/internal/infrastructure/email"
	"github.com/gestionpro/gestion-api/internal/infrastructure/postgres"
	infrasession "github.com/gestionpro/gestion-api/internal/infrastructure/session"
	httpRouter "github.com/gestionpro/gestion-api/internal/interfaces/http"
	"github.com/gestionpro/gestion-api/pkg/config"
	"github.com/gestionpro/gestion-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	accountRepo := postgres.NewAccountRepository(pool)
	bindingRepo := postgres.NewRoleBindingRepository(pool)
	permissionRepo := postgres.NewPermissionRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	// Mailer: SMTP real si está configurado; en desarrollo sin SMTP_HOST los
	// correos van al log.
	var mailer auth.Mailer
	if cfg.SMTP.Host != "" {
		mailer = infraemail.NewGomailSender(cfg.SMTP)
	} else {
		log.Warn().Msg("SMTP_HOST vacío: los códigos MFA y de recuperación se escriben en el log")
		mailer = infraemail.NewLogSender(log)
	}

	lockout := auth.NewLockoutGuard(accountRepo, cfg.Auth.MaxFailedAttempts, time.Duration(cfg.Auth.LockMinutes)*time.Minute)
	passwords := auth.NewPasswordManager(accountRepo, mailer, time.Duration(cfg.Auth.ResetCodeMinutes)*time.Minute)
	mfa := auth.NewMFAManager(accountRepo, mailer, time.Duration(cfg.Auth.MFACodeMinutes)*time.Minute)
	resolver := auth.NewPermissionResolver(permissionRepo)
	roleCache := auth.NewRoleCache(resolver)

	sessions := infrasession.NewJWTIssuer(cfg.JWT)
	auditSink := infraaudit.NewLogSink(log)

	authUC := auth.NewAuthUseCase(
		accountRepo, bindingRepo,
		lockout, passwords, mfa, resolver,
		sessions, auditSink, txRunner, log,
	)

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
		Title:    "GestiónPro API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		AuthUC:    authUC,
		RoleCache: roleCache,
		JWTSecret: cfg.JWT.Secret,
		Log:       log,
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
