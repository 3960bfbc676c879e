package auth

import "github.com/gestionpro/gestion-api/internal/application/dto"

// LoginStatus estado del flujo de login. Cada intento termina exactamente en
// uno de estos estados; el handler HTTP los mapea a códigos de respuesta.
type LoginStatus string

const (
	// StatusLocked la cuenta está bloqueada (vigente) o este intento la bloqueó.
	StatusLocked LoginStatus = "locked"
	// StatusRejected credenciales inválidas; no revela si el email existe.
	StatusRejected LoginStatus = "rejected"
	// StatusFirstAccessRequired credenciales correctas pero la cuenta aún debe
	// completar el cambio de contraseña inicial. No se emite código MFA.
	StatusFirstAccessRequired LoginStatus = "first_access_required"
	// StatusMFARequired credenciales correctas; se envió un código MFA al email.
	StatusMFARequired LoginStatus = "mfa_required"
	// StatusAuthenticated flujo completo; Session viene poblada.
	StatusAuthenticated LoginStatus = "authenticated"
)

// LoginOutcome unión etiquetada del resultado de login: el estado más los
// datos propios de cada variante, en lugar de campos nullable ad-hoc.
type LoginOutcome struct {
	Status LoginStatus
	// JustLocked true solo cuando Status es StatusLocked y fue este intento el
	// que provocó el bloqueo (distinto de "ya estaba bloqueada").
	JustLocked bool
	// Session solo cuando Status es StatusAuthenticated.
	Session *dto.SessionResponse
}

func lockedOutcome(caused bool) *LoginOutcome {
	return &LoginOutcome{Status: StatusLocked, JustLocked: caused}
}

func rejectedOutcome() *LoginOutcome {
	return &LoginOutcome{Status: StatusRejected}
}
