package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gestionpro/gestion-api/internal/application/auth"
	"github.com/gestionpro/gestion-api/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC    *auth.AuthUseCase
	RoleCache *auth.RoleCache
	JWTSecret string
	Log       *logger.Logger
}

// Router registra las rutas del núcleo de auth. Los routers de los demás
// módulos (proyectos, facturación, inventario, cursos) se montan aparte y
// reutilizan AuthMiddleware + RequirePermission de este paquete.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	authHandler := NewAuthHandler(deps.AuthUC, deps.Log)
	permHandler := NewPermissionHandler(deps.RoleCache, deps.Log)

	// Auth (público): login en dos pasos, primer acceso y recuperación.
	authGroup := api.Group("/auth")
	authGroup.Post("/login", authHandler.Login)
	authGroup.Post("/first-access", authHandler.FirstAccess)
	authGroup.Post("/mfa/verify", authHandler.VerifyMFA)
	authGroup.Post("/mfa/resend", authHandler.ResendMFA)
	authGroup.Post("/password/forgot", authHandler.ForgotPassword)
	authGroup.Post("/password/reset", authHandler.ResetPassword)

	// Rutas protegidas (requieren Bearer Token)
	protected := authGroup.Group("/", AuthMiddleware(deps.JWTSecret))
	protected.Post("/password/change", authHandler.ChangePassword)
	protected.Get("/profiles", authHandler.ListProfiles)
	protected.Post("/profiles/switch", authHandler.SwitchProfile)
	protected.Get("/permissions", permHandler.MyPermissions)
}
