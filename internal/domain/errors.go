package domain

import "errors"

// Errores de dominio (sin dependencias externas).
// ErrInvalidCredentials cubre intencionalmente "cuenta no existe" y "password
// incorrecto": el caller nunca debe poder distinguirlos.
var (
	ErrNotFound             = errors.New("recurso no encontrado")
	ErrAccountNotFound      = errors.New("cuenta no encontrada")
	ErrInvalidCredentials   = errors.New("credenciales inválidas")
	ErrAccountLocked        = errors.New("cuenta bloqueada temporalmente")
	ErrCodeInvalidOrExpired = errors.New("código inválido o vencido")
	ErrPasswordPolicy       = errors.New("la contraseña no cumple la política")
	ErrPasswordUnchanged    = errors.New("la contraseña nueva debe ser distinta a la actual")
	ErrPasswordNotChanged   = errors.New("la cuenta aún no completó el cambio de contraseña inicial")
	ErrFirstAccessDone      = errors.New("la cuenta ya completó su primer acceso")
	ErrBindingNotOwned      = errors.New("el perfil no pertenece a la cuenta")
	ErrInvalidInput         = errors.New("entrada inválida")
	ErrUnauthorized         = errors.New("no autorizado")
	ErrForbidden            = errors.New("acceso denegado")
)
