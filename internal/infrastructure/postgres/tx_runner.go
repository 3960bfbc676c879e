package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gestionpro/gestion-api/internal/application/auth"
	"github.com/gestionpro/gestion-api/internal/domain/repository"
)

var _ auth.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunAuth inicia una transacción, ejecuta fn con los repos de auth atados a la
// tx y hace Commit o Rollback. Lo usa el cambio de perfil para que la
// verificación de pertenencia, la escritura del rol activo y la resolución de
// permisos sean atómicas.
func (r *TxRunner) RunAuth(ctx context.Context, fn func(
	accounts repository.AccountRepository,
	bindings repository.RoleBindingRepository,
	perms repository.PermissionRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	accounts := NewAccountRepository(tx)
	bindings := NewRoleBindingRepository(tx)
	perms := NewPermissionRepository(tx)

	if err := fn(accounts, bindings, perms); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
