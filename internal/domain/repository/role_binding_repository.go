package repository

import (
	"context"

	"github.com/gestionpro/gestion-api/internal/domain/entity"
)

// RoleBindingRepository define el puerto de persistencia para los perfiles
// (RoleBinding) de una cuenta.
type RoleBindingRepository interface {
	// ListActiveByAccount devuelve los bindings habilitados de la cuenta,
	// con el nombre del rol resuelto, para el selector de perfiles.
	ListActiveByAccount(ctx context.Context, accountID string) ([]*entity.RoleBinding, error)

	// FindByIDAndAccount busca un binding habilitado verificando en la misma
	// consulta que pertenezca a la cuenta. Un binding id no es secreto: jamás
	// debe aceptarse cruzado entre cuentas. Devuelve (nil, nil) si no existe o
	// no pertenece, sin distinguir ambos casos.
	FindByIDAndAccount(ctx context.Context, id, accountID string) (*entity.RoleBinding, error)
}
