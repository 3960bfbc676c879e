package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gestionpro/gestion-api/internal/application/auth"
	"github.com/gestionpro/gestion-api/internal/application/dto"
	"github.com/gestionpro/gestion-api/pkg/logger"
)

// PermissionHandler expone el conjunto de permisos del rol activo para la SPA.
// El conjunto devuelto es informativo: la autorización real la hace
// RequirePermission en el servidor, siempre contra la cache y su contrato de
// invalidación.
type PermissionHandler struct {
	cache *auth.RoleCache
	log   *logger.Logger
}

// NewPermissionHandler construye el handler de permisos.
func NewPermissionHandler(cache *auth.RoleCache, log *logger.Logger) *PermissionHandler {
	return &PermissionHandler{cache: cache, log: log}
}

// MyPermissions godoc
// @Summary      Permisos efectivos del rol activo
// @Tags         auth
// @Produce      json
// @Success      200  {array}  dto.PermissionResponse
// @Security     BearerAuth
// @Router       /api/auth/permissions [get]
func (h *PermissionHandler) MyPermissions(c *fiber.Ctx) error {
	perms, err := h.cache.Resolve(c.Context(), GetRoleID(c))
	if err != nil {
		h.log.Error().Err(err).Str("path", c.Path()).Msg("resolver permisos del rol activo")
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
	}
	out := make([]dto.PermissionResponse, 0, len(perms))
	for _, p := range perms {
		out = append(out, dto.PermissionResponse{Module: p.Module, Submodule: p.Submodule})
	}
	return c.JSON(out)
}
