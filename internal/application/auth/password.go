package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/gestionpro/gestion-api/internal/domain"
	"github.com/gestionpro/gestion-api/internal/domain/entity"
	"github.com/gestionpro/gestion-api/internal/domain/repository"
)

// PasswordManager ciclo de vida de contraseñas: cambio obligatorio de primer
// acceso, cambio autenticado y restablecimiento por código enviado al email.
//
// Política única de contraseñas para los tres caminos (regla de negocio
// confirmada): mínimo 8 caracteres con al menos una mayúscula, una minúscula,
// un dígito y un símbolo. Las tres operaciones rechazan una contraseña nueva
// igual a la vigente.
type PasswordManager struct {
	accounts repository.AccountRepository
	mailer   Mailer
	resetTTL time.Duration
}

// NewPasswordManager construye el manager. resetTTL es la vigencia del código
// de recuperación (30 minutos por defecto).
func NewPasswordManager(accounts repository.AccountRepository, mailer Mailer, resetTTL time.Duration) *PasswordManager {
	if resetTTL <= 0 {
		resetTTL = 30 * time.Minute
	}
	return &PasswordManager{accounts: accounts, mailer: mailer, resetTTL: resetTTL}
}

// ValidatePolicy verifica la política de contraseñas.
func ValidatePolicy(password string) error {
	if len(password) < 8 {
		return domain.ErrPasswordPolicy
	}
	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}
	}
	if !upper || !lower || !digit || !symbol {
		return domain.ErrPasswordPolicy
	}
	return nil
}

// ForceInitialPassword completa el cambio de contraseña obligatorio de primer
// acceso. Solo es válido mientras password_changed sea false. En la misma
// escritura marca la cuenta como cambiada y limpia estado MFA/recuperación
// pendiente.
func (p *PasswordManager) ForceInitialPassword(ctx context.Context, account *entity.Account, newPassword string) error {
	if account.PasswordChanged {
		return domain.ErrFirstAccessDone
	}
	if err := ValidatePolicy(newPassword); err != nil {
		return err
	}
	if passwordMatchesHash(newPassword, account.PasswordHash) {
		return domain.ErrPasswordUnchanged
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashear contraseña: %w", err)
	}
	if err := p.accounts.CompleteFirstAccess(ctx, account.ID, string(hash)); err != nil {
		return fmt.Errorf("persistir primer acceso: %w", err)
	}
	account.PasswordHash = string(hash)
	account.PasswordChanged = true
	account.MFACode, account.MFAExpiresAt = nil, nil
	account.ResetCode, account.ResetExpiresAt = nil, nil
	return nil
}

// ChangePassword cambio autenticado. Re-verifica la contraseña actual dentro
// de la operación (decisión única para toda la aplicación: el caller no
// necesita verificar antes). Sin efecto sobre el estado de bloqueo.
func (p *PasswordManager) ChangePassword(ctx context.Context, account *entity.Account, currentPassword, newPassword string) error {
	if !passwordMatchesHash(currentPassword, account.PasswordHash) {
		return domain.ErrInvalidCredentials
	}
	if err := ValidatePolicy(newPassword); err != nil {
		return err
	}
	if passwordMatchesHash(newPassword, account.PasswordHash) {
		return domain.ErrPasswordUnchanged
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashear contraseña: %w", err)
	}
	if err := p.accounts.SetPassword(ctx, account.ID, string(hash)); err != nil {
		return fmt.Errorf("persistir contraseña: %w", err)
	}
	account.PasswordHash = string(hash)
	return nil
}

// IssueResetCode genera un código de recuperación de 6 dígitos, lo persiste
// con su vencimiento y recién entonces lo envía por email. Si el envío falla
// el código persistido queda intacto: un reenvío posterior lo reutiliza sin
// regenerar.
func (p *PasswordManager) IssueResetCode(ctx context.Context, account *entity.Account) error {
	code, err := randomCode()
	if err != nil {
		return fmt.Errorf("generar código de recuperación: %w", err)
	}
	expires := time.Now().Add(p.resetTTL)
	if err := p.accounts.SetResetCode(ctx, account.ID, code, expires); err != nil {
		return fmt.Errorf("persistir código de recuperación: %w", err)
	}
	account.ResetCode = &code
	account.ResetExpiresAt = &expires
	body := fmt.Sprintf("Tu código para restablecer la contraseña es %s. Vence en %d minutos.", code, int(p.resetTTL.Minutes()))
	if err := p.mailer.Send(account.Email, "Recuperación de contraseña", body); err != nil {
		return fmt.Errorf("enviar código de recuperación: %w", err)
	}
	return nil
}

// ResetByCode restablece la contraseña presentando el código recibido por
// email. El vencimiento se evalúa antes que la igualdad: un código vencido se
// rechaza aunque coincida. La limpieza del código es condicional al match en
// la misma escritura (un solo uso). Es la única operación del ciclo de vida
// que además autentica al caller: el código es prueba de control del email.
func (p *PasswordManager) ResetByCode(ctx context.Context, account *entity.Account, presentedCode, newPassword string) error {
	if account.ResetCode == nil || account.ResetCodeExpiredAt(time.Now()) {
		return domain.ErrCodeInvalidOrExpired
	}
	if *account.ResetCode != presentedCode {
		return domain.ErrCodeInvalidOrExpired
	}
	if err := ValidatePolicy(newPassword); err != nil {
		return err
	}
	if passwordMatchesHash(newPassword, account.PasswordHash) {
		return domain.ErrPasswordUnchanged
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashear contraseña: %w", err)
	}
	ok, err := p.accounts.ResetPassword(ctx, account.ID, string(hash), presentedCode)
	if err != nil {
		return fmt.Errorf("persistir restablecimiento: %w", err)
	}
	if !ok {
		// Otro request consumió el código entre la lectura y la escritura.
		return domain.ErrCodeInvalidOrExpired
	}
	account.PasswordHash = string(hash)
	account.ResetCode, account.ResetExpiresAt = nil, nil
	return nil
}

// passwordMatchesHash compara en claro contra el hash bcrypt almacenado.
func passwordMatchesHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// randomCode genera un código numérico de 6 dígitos uniforme con crypto/rand.
func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
