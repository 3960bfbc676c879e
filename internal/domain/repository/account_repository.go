package repository

import (
	"context"
	"time"

	"github.com/gestionpro/gestion-api/internal/domain/entity"
)

// AccountRepository define el puerto de persistencia para Account (DIP).
//
// Las operaciones de mutación son escrituras atómicas sobre la fila de la
// cuenta: dos logins paralelos contra la misma cuenta nunca deben perder un
// incremento del contador ni consumir dos veces el mismo código MFA. Los
// lookups devuelven (nil, nil) cuando la cuenta no existe.
type AccountRepository interface {
	FindByID(ctx context.Context, id string) (*entity.Account, error)
	FindByEmail(ctx context.Context, email string) (*entity.Account, error)

	// RecordFailedAttempt incrementa el contador de fallos en una sola sentencia.
	// Si el contador alcanza threshold, fija locked y lockUntil en la misma
	// escritura. Devuelve el contador y el estado de bloqueo resultantes.
	RecordFailedAttempt(ctx context.Context, id string, threshold int, lockUntil time.Time) (attempts int, locked bool, err error)

	// ResetFailures deja el contador en cero y levanta el bloqueo (login exitoso).
	ResetFailures(ctx context.Context, id string) error

	// Unlock levanta un bloqueo cuyo vencimiento ya pasó (clear-on-read).
	// No toca el contador de fallos: ese solo se reinicia con ResetFailures.
	Unlock(ctx context.Context, id string) error

	// SetMFACode almacena el código MFA con su vencimiento.
	SetMFACode(ctx context.Context, id, code string, expiresAt time.Time) error

	// ConsumeMFACode limpia el código solo si coincide exactamente con el
	// almacenado (UPDATE condicional). Devuelve false si no coincidió, de modo
	// que el código es de un solo uso incluso ante verificaciones paralelas.
	ConsumeMFACode(ctx context.Context, id, code string) (bool, error)

	// SetResetCode almacena el código de recuperación con su vencimiento.
	SetResetCode(ctx context.Context, id, code string, expiresAt time.Time) error

	// SetPassword reemplaza el hash (cambio autenticado; sin efectos colaterales).
	SetPassword(ctx context.Context, id, hash string) error

	// CompleteFirstAccess reemplaza el hash, marca password_changed=true y
	// limpia cualquier estado MFA/recuperación pendiente, todo en una escritura.
	CompleteFirstAccess(ctx context.Context, id, hash string) error

	// ResetPassword reemplaza el hash y limpia el código de recuperación solo
	// si code coincide con el almacenado. Devuelve false si no coincidió.
	ResetPassword(ctx context.Context, id, hash, code string) (bool, error)

	// SetActiveBinding actualiza rol activo y referencias empleado/cliente de la
	// cuenta para que reflejen el binding elegido en un cambio de perfil.
	SetActiveBinding(ctx context.Context, id, roleID string, employeeID, clientID *string) error
}
