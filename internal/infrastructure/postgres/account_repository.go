package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/gestionpro/gestion-api/internal/domain/entity"
	"github.com/gestionpro/gestion-api/internal/domain/repository"
)

var _ repository.AccountRepository = (*AccountRepo)(nil)

const accountColumns = `id, email, password_hash, name, active_role_id, employee_id, client_id,
		password_changed, failed_attempts, locked, lock_until,
		mfa_code, mfa_expires_at, reset_code, reset_expires_at, created_at, updated_at`

// AccountRepo implementación del puerto AccountRepository sobre PostgreSQL.
// Todas las mutaciones son sentencias UPDATE únicas (incrementos y limpiezas
// condicionales en SQL) para que requests concurrentes sobre la misma cuenta
// no pierdan escrituras. Acepta pool o tx (Querier).
type AccountRepo struct {
	q Querier
}

// NewAccountRepository construye el adaptador. Pasar pool o tx (Querier).
func NewAccountRepository(q Querier) *AccountRepo {
	return &AccountRepo{q: q}
}

// FindByID obtiene una cuenta por ID. Devuelve (nil, nil) si no existe.
func (r *AccountRepo) FindByID(ctx context.Context, id string) (*entity.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.scanOne(ctx, query, id)
}

// FindByEmail obtiene una cuenta por email. Devuelve (nil, nil) si no existe.
func (r *AccountRepo) FindByEmail(ctx context.Context, email string) (*entity.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1 LIMIT 1`
	return r.scanOne(ctx, query, email)
}

func (r *AccountRepo) scanOne(ctx context.Context, query string, arg any) (*entity.Account, error) {
	var a entity.Account
	err := r.q.QueryRow(ctx, query, arg).Scan(
		&a.ID, &a.Email, &a.PasswordHash, &a.Name, &a.ActiveRoleID, &a.EmployeeID, &a.ClientID,
		&a.PasswordChanged, &a.FailedAttempts, &a.Locked, &a.LockUntil,
		&a.MFACode, &a.MFAExpiresAt, &a.ResetCode, &a.ResetExpiresAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &a, nil
}

// RecordFailedAttempt incrementa el contador y bloquea si alcanza el umbral,
// todo en una sola sentencia; el RETURNING expone el estado resultante.
func (r *AccountRepo) RecordFailedAttempt(ctx context.Context, id string, threshold int, lockUntil time.Time) (int, bool, error) {
	query := `
		UPDATE accounts
		SET failed_attempts = failed_attempts + 1,
		    locked = failed_attempts + 1 >= $2,
		    lock_until = CASE WHEN failed_attempts + 1 >= $2 THEN $3 ELSE lock_until END,
		    updated_at = now()
		WHERE id = $1
		RETURNING failed_attempts, locked`
	var attempts int
	var locked bool
	err := r.q.QueryRow(ctx, query, id, threshold, lockUntil).Scan(&attempts, &locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, fmt.Errorf("record failed attempt: cuenta %s no existe", id)
		}
		return 0, false, fmt.Errorf("record failed attempt: %w", err)
	}
	return attempts, locked, nil
}

// ResetFailures deja el contador en cero y levanta el bloqueo.
func (r *AccountRepo) ResetFailures(ctx context.Context, id string) error {
	query := `
		UPDATE accounts
		SET failed_attempts = 0, locked = false, lock_until = NULL, updated_at = now()
		WHERE id = $1`
	if _, err := r.q.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("reset failures: %w", err)
	}
	return nil
}

// Unlock levanta el bloqueo sin tocar el contador (bloqueo vencido).
func (r *AccountRepo) Unlock(ctx context.Context, id string) error {
	query := `
		UPDATE accounts
		SET locked = false, lock_until = NULL, updated_at = now()
		WHERE id = $1`
	if _, err := r.q.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("unlock account: %w", err)
	}
	return nil
}

// SetMFACode almacena el código MFA con su vencimiento.
func (r *AccountRepo) SetMFACode(ctx context.Context, id, code string, expiresAt time.Time) error {
	query := `
		UPDATE accounts
		SET mfa_code = $2, mfa_expires_at = $3, updated_at = now()
		WHERE id = $1`
	if _, err := r.q.Exec(ctx, query, id, code, expiresAt); err != nil {
		return fmt.Errorf("set mfa code: %w", err)
	}
	return nil
}

// ConsumeMFACode limpia el código solo si coincide con el almacenado.
// RowsAffected == 0 significa que otro request ya lo consumió o nunca coincidió.
func (r *AccountRepo) ConsumeMFACode(ctx context.Context, id, code string) (bool, error) {
	query := `
		UPDATE accounts
		SET mfa_code = NULL, mfa_expires_at = NULL, updated_at = now()
		WHERE id = $1 AND mfa_code = $2`
	tag, err := r.q.Exec(ctx, query, id, code)
	if err != nil {
		return false, fmt.Errorf("consume mfa code: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// SetResetCode almacena el código de recuperación con su vencimiento.
func (r *AccountRepo) SetResetCode(ctx context.Context, id, code string, expiresAt time.Time) error {
	query := `
		UPDATE accounts
		SET reset_code = $2, reset_expires_at = $3, updated_at = now()
		WHERE id = $1`
	if _, err := r.q.Exec(ctx, query, id, code, expiresAt); err != nil {
		return fmt.Errorf("set reset code: %w", err)
	}
	return nil
}

// SetPassword reemplaza el hash sin efectos colaterales.
func (r *AccountRepo) SetPassword(ctx context.Context, id, hash string) error {
	query := `
		UPDATE accounts
		SET password_hash = $2, updated_at = now()
		WHERE id = $1`
	if _, err := r.q.Exec(ctx, query, id, hash); err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	return nil
}

// CompleteFirstAccess hash nuevo + password_changed + limpieza de códigos, en
// una sola escritura.
func (r *AccountRepo) CompleteFirstAccess(ctx context.Context, id, hash string) error {
	query := `
		UPDATE accounts
		SET password_hash = $2, password_changed = true,
		    mfa_code = NULL, mfa_expires_at = NULL,
		    reset_code = NULL, reset_expires_at = NULL,
		    updated_at = now()
		WHERE id = $1`
	if _, err := r.q.Exec(ctx, query, id, hash); err != nil {
		return fmt.Errorf("complete first access: %w", err)
	}
	return nil
}

// ResetPassword escribe el hash y limpia el código solo si coincide (un solo uso).
func (r *AccountRepo) ResetPassword(ctx context.Context, id, hash, code string) (bool, error) {
	query := `
		UPDATE accounts
		SET password_hash = $2, reset_code = NULL, reset_expires_at = NULL, updated_at = now()
		WHERE id = $1 AND reset_code = $3`
	tag, err := r.q.Exec(ctx, query, id, hash, code)
	if err != nil {
		return false, fmt.Errorf("reset password: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// SetActiveBinding actualiza rol activo y referencias empleado/cliente.
func (r *AccountRepo) SetActiveBinding(ctx context.Context, id, roleID string, employeeID, clientID *string) error {
	query := `
		UPDATE accounts
		SET active_role_id = $2, employee_id = $3, client_id = $4, updated_at = now()
		WHERE id = $1`
	if _, err := r.q.Exec(ctx, query, id, roleID, employeeID, clientID); err != nil {
		return fmt.Errorf("set active binding: %w", err)
	}
	return nil
}
