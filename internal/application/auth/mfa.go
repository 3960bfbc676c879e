package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/gestionpro/gestion-api/internal/domain"
	"github.com/gestionpro/gestion-api/internal/domain/entity"
	"github.com/gestionpro/gestion-api/internal/domain/repository"
)

// MFAManager segundo factor por email: genera, persiste, envía y verifica un
// código numérico de 6 dígitos de un solo uso. Vigencia fija de 5 minutos por
// defecto (decisión documentada: es el paso interactivo del login, no el flujo
// de recuperación, que usa 30).
//
// No aplica rate limiting propio sobre Verify: la única defensa de fuerza
// bruta de este flujo es el bloqueo a nivel de cuenta del LockoutGuard.
// TODO: contador de intentos MFA por desafío, pendiente de definición de
// producto sobre cuántos reintentos permitir antes de invalidar el código.
type MFAManager struct {
	accounts repository.AccountRepository
	mailer   Mailer
	codeTTL  time.Duration
}

// NewMFAManager construye el manager.
func NewMFAManager(accounts repository.AccountRepository, mailer Mailer, codeTTL time.Duration) *MFAManager {
	if codeTTL <= 0 {
		codeTTL = 5 * time.Minute
	}
	return &MFAManager{accounts: accounts, mailer: mailer, codeTTL: codeTTL}
}

// Issue genera un código nuevo, lo persiste con su vencimiento y recién
// entonces lo despacha por email. Un fallo de envío no corrompe el estado: el
// código queda almacenado y un reenvío puede entregarlo sin regenerar.
func (m *MFAManager) Issue(ctx context.Context, account *entity.Account) error {
	code, err := randomCode()
	if err != nil {
		return fmt.Errorf("generar código MFA: %w", err)
	}
	expires := time.Now().Add(m.codeTTL)
	if err := m.accounts.SetMFACode(ctx, account.ID, code, expires); err != nil {
		return fmt.Errorf("persistir código MFA: %w", err)
	}
	account.MFACode = &code
	account.MFAExpiresAt = &expires
	if err := m.send(account.Email, code); err != nil {
		return err
	}
	return nil
}

// Resend reenvía el código vigente sin regenerarlo (decisión documentada:
// reutilizar mientras no venza, para que un fallo de transporte no invalide el
// código que el usuario quizá ya recibió). Si no hay código vigente devuelve
// ErrCodeInvalidOrExpired: el usuario debe reiniciar el login.
func (m *MFAManager) Resend(ctx context.Context, account *entity.Account) error {
	if account.MFACode == nil || account.MFACodeExpiredAt(time.Now()) {
		return domain.ErrCodeInvalidOrExpired
	}
	return m.send(account.Email, *account.MFACode)
}

// Verify valida el código presentado. El vencimiento se evalúa antes que la
// igualdad: un código vencido se rechaza aunque coincida exactamente. En caso
// de éxito el código se limpia con una escritura condicional al match, de modo
// que es de un solo uso incluso ante verificaciones concurrentes.
func (m *MFAManager) Verify(ctx context.Context, account *entity.Account, presentedCode string) error {
	if account.MFACode == nil || account.MFACodeExpiredAt(time.Now()) {
		return domain.ErrCodeInvalidOrExpired
	}
	if *account.MFACode != presentedCode {
		return domain.ErrCodeInvalidOrExpired
	}
	ok, err := m.accounts.ConsumeMFACode(ctx, account.ID, presentedCode)
	if err != nil {
		return fmt.Errorf("consumir código MFA: %w", err)
	}
	if !ok {
		return domain.ErrCodeInvalidOrExpired
	}
	account.MFACode, account.MFAExpiresAt = nil, nil
	return nil
}

func (m *MFAManager) send(to, code string) error {
	body := fmt.Sprintf("Tu código de verificación es %s. Vence en %d minutos.", code, int(m.codeTTL.Minutes()))
	if err := m.mailer.Send(to, "Código de verificación", body); err != nil {
		return fmt.Errorf("enviar código MFA: %w", err)
	}
	return nil
}
