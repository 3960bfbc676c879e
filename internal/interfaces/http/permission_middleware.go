package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/gestionpro/gestion-api/internal/application/dto"
)

// permissionChecker es el contrato mínimo que necesita el middleware para
// autorizar. Lo implementa *auth.RoleCache; la interfaz evita acoplar el
// middleware a la cache concreta.
type permissionChecker interface {
	Allows(ctx context.Context, roleID, module, submodule string) (bool, error)
}

// RequirePermission devuelve un middleware Fiber que verifica si el rol activo
// del token tiene concedido el par (módulo, submódulo). Debe usarse DESPUÉS de
// AuthMiddleware (necesita LocalRoleID). Los routers de los demás módulos de
// la aplicación (proyectos, facturación, inventario, cursos) lo montan sobre
// sus rutas.
//
// Comportamiento:
//   - 403 Forbidden → el rol activo no tiene el permiso.
//   - 503 Service Unavailable → fallo de infraestructura al resolver permisos.
//   - Si no hay role_id en el contexto, responde 401 (el AuthMiddleware debería haberlo puesto).
func RequirePermission(module, submodule string, checker permissionChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		roleID := GetRoleID(c)
		if roleID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Code:    "UNAUTHORIZED",
				Message: "role_id no encontrado en el token",
			})
		}

		allowed, err := checker.Allows(c.Context(), roleID, module, submodule)
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
				Code:    "PERMISSION_CHECK_FAILED",
				Message: "no se pudo verificar el permiso, intente más tarde",
			})
		}

		if !allowed {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Code:    "PERMISSION_DENIED",
				Message: "el rol activo no tiene acceso a " + module + "/" + submodule,
			})
		}

		return c.Next()
	}
}
