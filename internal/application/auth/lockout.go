package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/gestionpro/gestion-api/internal/domain/entity"
	"github.com/gestionpro/gestion-api/internal/domain/repository"
)

// LockDecision resultado de registrar un intento fallido.
type LockDecision struct {
	Attempts      int  // contador de fallos tras este intento
	Locked        bool // la cuenta queda bloqueada
	JustLocked    bool // este intento provocó el bloqueo
	AlreadyLocked bool // ya estaba bloqueada antes de este intento
}

// LockoutGuard aplica la política de bloqueo por fuerza bruta alrededor de
// cada verificación de credenciales. Regla de negocio confirmada: al tercer
// fallo consecutivo la cuenta se bloquea por una ventana fija (5 minutos por
// defecto); vencida la ventana la cuenta vuelve a ser utilizable sin
// intervención de un administrador.
type LockoutGuard struct {
	accounts    repository.AccountRepository
	maxAttempts int
	lockWindow  time.Duration
}

// NewLockoutGuard construye el guard con la política configurada.
func NewLockoutGuard(accounts repository.AccountRepository, maxAttempts int, lockWindow time.Duration) *LockoutGuard {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if lockWindow <= 0 {
		lockWindow = 5 * time.Minute
	}
	return &LockoutGuard{accounts: accounts, maxAttempts: maxAttempts, lockWindow: lockWindow}
}

// CheckLocked es el pre-chequeo que el orquestador ejecuta ANTES de evaluar
// credenciales: si la cuenta sigue bloqueada devuelve true sin tocar el
// contador. Un bloqueo vencido se levanta aquí mismo (clear-on-read); el
// contador de fallos no se toca, ese solo se reinicia con RecordSuccess.
func (g *LockoutGuard) CheckLocked(ctx context.Context, account *entity.Account) (bool, error) {
	if !account.Locked {
		return false, nil
	}
	if account.IsLockedAt(time.Now()) {
		return true, nil
	}
	if err := g.accounts.Unlock(ctx, account.ID); err != nil {
		return false, fmt.Errorf("levantar bloqueo vencido: %w", err)
	}
	account.Locked = false
	account.LockUntil = nil
	return false, nil
}

// RecordFailure incrementa el contador tras un fallo de credenciales y bloquea
// la cuenta si alcanzó el umbral. El incremento y el bloqueo condicional son
// una única escritura atómica en el repositorio: dos logins paralelos no
// pierden incrementos. El estado queda persistido antes de retornar; las
// condiciones de negocio nunca se reportan como error.
func (g *LockoutGuard) RecordFailure(ctx context.Context, account *entity.Account) (LockDecision, error) {
	alreadyLocked := account.IsLockedAt(time.Now())
	attempts, locked, err := g.accounts.RecordFailedAttempt(ctx, account.ID, g.maxAttempts, time.Now().Add(g.lockWindow))
	if err != nil {
		return LockDecision{}, fmt.Errorf("registrar intento fallido: %w", err)
	}
	return LockDecision{
		Attempts:      attempts,
		Locked:        locked,
		JustLocked:    locked && !alreadyLocked,
		AlreadyLocked: alreadyLocked,
	}, nil
}

// RecordSuccess reinicia el contador a cero y levanta cualquier bloqueo.
// Es el único camino que reinicia el contador.
func (g *LockoutGuard) RecordSuccess(ctx context.Context, account *entity.Account) error {
	if err := g.accounts.ResetFailures(ctx, account.ID); err != nil {
		return fmt.Errorf("reiniciar contador de fallos: %w", err)
	}
	account.FailedAttempts = 0
	account.Locked = false
	account.LockUntil = nil
	return nil
}
