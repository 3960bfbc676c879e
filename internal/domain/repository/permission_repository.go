package repository

import (
	"context"

	"github.com/gestionpro/gestion-api/internal/domain/entity"
)

// PermissionRepository define el puerto de lectura del join rol→permisos.
type PermissionRepository interface {
	// ListByRole devuelve los pares (módulo, submódulo) concedidos al rol.
	// Lectura pura e idempotente; refleja siempre el último estado administrado.
	ListByRole(ctx context.Context, roleID string) ([]entity.Permission, error)
}
