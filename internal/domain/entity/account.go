package entity

import "time"

// Account representa una identidad autenticable del sistema.
// Los campos transitorios (contador de fallos, bloqueo, códigos MFA y de
// recuperación) son propiedad exclusiva del núcleo de auth: ningún otro
// componente los muta directamente.
type Account struct {
	ID              string
	Email           string
	PasswordHash    string // bcrypt hash, nunca plano en dominio después de persistir
	Name            string
	ActiveRoleID    string  // rol vigente para autorización
	EmployeeID      *string // referencia opcional al empleado asociado al perfil activo
	ClientID        *string // referencia opcional al cliente asociado al perfil activo
	PasswordChanged bool    // false hasta completar el cambio de contraseña de primer acceso
	FailedAttempts  int
	Locked          bool
	LockUntil       *time.Time
	MFACode         *string
	MFAExpiresAt    *time.Time
	ResetCode       *string
	ResetExpiresAt  *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsLockedAt informa si la cuenta está bloqueada al instante dado.
// Un bloqueo cuyo vencimiento ya pasó se considera levantado aunque el flag
// siga en true (el caller puede limpiar el estado al leerlo).
func (a *Account) IsLockedAt(now time.Time) bool {
	if !a.Locked {
		return false
	}
	if a.LockUntil == nil {
		return true
	}
	return now.Before(*a.LockUntil)
}

// MFACodeExpiredAt informa si el código MFA almacenado ya venció.
func (a *Account) MFACodeExpiredAt(now time.Time) bool {
	return a.MFAExpiresAt == nil || !now.Before(*a.MFAExpiresAt)
}

// ResetCodeExpiredAt informa si el código de recuperación ya venció.
func (a *Account) ResetCodeExpiredAt(now time.Time) bool {
	return a.ResetExpiresAt == nil || !now.Before(*a.ResetExpiresAt)
}
