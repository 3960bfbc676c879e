package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestionpro/gestion-api/internal/application/auth"
)

func TestLockoutGuard_TresFallosConsecutivosBloquean(t *testing.T) {
	account := testAccount(t, "acc-1", "ana@gestionpro.co", "Segura123!", true)
	repo := newFakeAccountRepo(account)
	guard := auth.NewLockoutGuard(repo, 3, 5*time.Minute)
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		decision, err := guard.RecordFailure(ctx, account)
		require.NoError(t, err)
		assert.Equal(t, i, decision.Attempts, "el contador debe reflejar el fallo %d", i)
		assert.False(t, decision.Locked, "con %d fallos la cuenta no debe bloquearse", i)
	}

	decision, err := guard.RecordFailure(ctx, account)
	require.NoError(t, err)
	assert.Equal(t, 3, decision.Attempts)
	assert.True(t, decision.Locked, "el tercer fallo debe bloquear la cuenta")
	assert.True(t, decision.JustLocked, "el tercer fallo es el que provoca el bloqueo")

	stored := repo.stored("acc-1")
	assert.True(t, stored.Locked)
	require.NotNil(t, stored.LockUntil)
	assert.True(t, stored.LockUntil.After(time.Now()), "lock_until debe quedar en el futuro")
}

func TestLockoutGuard_CheckLockedConBloqueoVigente(t *testing.T) {
	account := testAccount(t, "acc-1", "ana@gestionpro.co", "Segura123!", true)
	account.FailedAttempts = 3
	account.Locked = true
	account.LockUntil = timePtr(time.Now().Add(3 * time.Minute))
	repo := newFakeAccountRepo(account)
	guard := auth.NewLockoutGuard(repo, 3, 5*time.Minute)

	locked, err := guard.CheckLocked(context.Background(), account)
	require.NoError(t, err)
	assert.True(t, locked, "con bloqueo vigente el pre-chequeo debe cortar el flujo")
	assert.True(t, repo.stored("acc-1").Locked, "el estado persistido no debe tocarse")
}

func TestLockoutGuard_BloqueoVencidoSeLevantaSinReiniciarContador(t *testing.T) {
	account := testAccount(t, "acc-1", "ana@gestionpro.co", "Segura123!", true)
	account.FailedAttempts = 3
	account.Locked = true
	account.LockUntil = timePtr(time.Now().Add(-time.Minute))
	repo := newFakeAccountRepo(account)
	guard := auth.NewLockoutGuard(repo, 3, 5*time.Minute)

	locked, err := guard.CheckLocked(context.Background(), account)
	require.NoError(t, err)
	assert.False(t, locked, "un bloqueo vencido debe levantarse en el pre-chequeo")

	stored := repo.stored("acc-1")
	assert.False(t, stored.Locked)
	assert.Nil(t, stored.LockUntil)
	assert.Equal(t, 3, stored.FailedAttempts, "levantar el bloqueo no reinicia el contador; eso solo lo hace un login exitoso")
}

func TestLockoutGuard_RecordSuccessReiniciaContadorYBloqueo(t *testing.T) {
	account := testAccount(t, "acc-1", "ana@gestionpro.co", "Segura123!", true)
	account.FailedAttempts = 2
	repo := newFakeAccountRepo(account)
	guard := auth.NewLockoutGuard(repo, 3, 5*time.Minute)

	require.NoError(t, guard.RecordSuccess(context.Background(), account))

	stored := repo.stored("acc-1")
	assert.Equal(t, 0, stored.FailedAttempts, "el login exitoso debe reiniciar el contador")
	assert.False(t, stored.Locked)
	assert.Nil(t, stored.LockUntil)
}

func TestLockoutGuard_FalloTrasBloqueoVencidoBloqueaDeInmediato(t *testing.T) {
	// El contador sobrevive al vencimiento de la ventana: un nuevo fallo sobre
	// una cuenta con 3 fallos acumulados vuelve a bloquear.
	account := testAccount(t, "acc-1", "ana@gestionpro.co", "Segura123!", true)
	account.FailedAttempts = 3
	repo := newFakeAccountRepo(account)
	guard := auth.NewLockoutGuard(repo, 3, 5*time.Minute)

	decision, err := guard.RecordFailure(context.Background(), account)
	require.NoError(t, err)
	assert.Equal(t, 4, decision.Attempts)
	assert.True(t, decision.Locked)
	assert.True(t, decision.JustLocked)
}
