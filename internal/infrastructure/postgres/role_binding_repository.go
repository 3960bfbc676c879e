package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gestionpro/gestion-api/internal/domain/entity"
	"github.com/gestionpro/gestion-api/internal/domain/repository"
)

var _ repository.RoleBindingRepository = (*RoleBindingRepo)(nil)

// RoleBindingRepo implementación del puerto RoleBindingRepository sobre
// PostgreSQL. Acepta pool o tx (Querier).
type RoleBindingRepo struct {
	q Querier
}

// NewRoleBindingRepository construye el adaptador. Pasar pool o tx (Querier).
func NewRoleBindingRepository(q Querier) *RoleBindingRepo {
	return &RoleBindingRepo{q: q}
}

// ListActiveByAccount lista los bindings habilitados con el nombre del rol.
func (r *RoleBindingRepo) ListActiveByAccount(ctx context.Context, accountID string) ([]*entity.RoleBinding, error) {
	query := `
		SELECT b.id, b.account_id, b.role_id, r.name, b.employee_id, b.client_id, b.active, b.created_at
		FROM role_bindings b
		JOIN roles r ON r.id = b.role_id
		WHERE b.account_id = $1 AND b.active = true
		ORDER BY b.created_at`
	rows, err := r.q.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("list bindings: %w", err)
	}
	defer rows.Close()
	var list []*entity.RoleBinding
	for rows.Next() {
		var b entity.RoleBinding
		if err := rows.Scan(&b.ID, &b.AccountID, &b.RoleID, &b.RoleName, &b.EmployeeID, &b.ClientID, &b.Active, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan binding: %w", err)
		}
		list = append(list, &b)
	}
	return list, rows.Err()
}

// FindByIDAndAccount busca un binding habilitado de la cuenta. La pertenencia
// se verifica en el WHERE: un binding ajeno y uno inexistente devuelven lo
// mismo, (nil, nil).
func (r *RoleBindingRepo) FindByIDAndAccount(ctx context.Context, id, accountID string) (*entity.RoleBinding, error) {
	query := `
		SELECT b.id, b.account_id, b.role_id, r.name, b.employee_id, b.client_id, b.active, b.created_at
		FROM role_bindings b
		JOIN roles r ON r.id = b.role_id
		WHERE b.id = $1 AND b.account_id = $2 AND b.active = true`
	var b entity.RoleBinding
	err := r.q.QueryRow(ctx, query, id, accountID).Scan(
		&b.ID, &b.AccountID, &b.RoleID, &b.RoleName, &b.EmployeeID, &b.ClientID, &b.Active, &b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get binding: %w", err)
	}
	return &b, nil
}
