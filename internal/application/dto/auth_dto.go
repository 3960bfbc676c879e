package dto

// LoginRequest entrada para login (primer paso del flujo).
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// FirstAccessRequest entrada para completar el cambio de contraseña obligatorio
// de primer acceso. Se re-verifican las credenciales: el endpoint es público.
type FirstAccessRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// MFAVerifyRequest entrada para verificar el código MFA enviado por email.
type MFAVerifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6"`
}

// EmailRequest entrada para reenvío de código MFA y solicitud de recuperación.
type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// PasswordResetRequest entrada para restablecer contraseña con código.
type PasswordResetRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required,len=6"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// PasswordChangeRequest entrada para cambio de contraseña autenticado.
type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// ProfileSwitchRequest entrada para cambiar el perfil activo.
type ProfileSwitchRequest struct {
	BindingID string `json:"binding_id" validate:"required,uuid"`
}

// AccountResponse resumen de la cuenta (sin hash ni estado transitorio).
type AccountResponse struct {
	ID           string  `json:"id"`
	Email        string  `json:"email"`
	Name         string  `json:"name"`
	ActiveRoleID string  `json:"active_role_id"`
	EmployeeID   *string `json:"employee_id,omitempty"`
	ClientID     *string `json:"client_id,omitempty"`
}

// PermissionResponse un permiso concedido: par (módulo, submódulo).
type PermissionResponse struct {
	Module    string `json:"module"`
	Submodule string `json:"submodule"`
}

// BindingResponse un perfil disponible para el selector de cambio de perfil.
type BindingResponse struct {
	ID         string  `json:"id"`
	RoleID     string  `json:"role_id"`
	RoleName   string  `json:"role_name"`
	EmployeeID *string `json:"employee_id,omitempty"`
	ClientID   *string `json:"client_id,omitempty"`
}

// SessionResponse sesión resuelta que consume el resto de la aplicación:
// cuenta, permisos efectivos del rol activo, perfiles disponibles y token.
// Se devuelve al autenticarse y tras cada cambio de perfil.
type SessionResponse struct {
	Token       string               `json:"token"`
	Account     AccountResponse      `json:"account"`
	Permissions []PermissionResponse `json:"permissions"`
	Bindings    []BindingResponse    `json:"bindings"`
}

// LoginOutcomeResponse respuesta del flujo de login: estado explícito más la
// sesión solo cuando el estado es "authenticated".
type LoginOutcomeResponse struct {
	Status  string           `json:"status"` // locked | rejected | first_access_required | mfa_required | authenticated
	Session *SessionResponse `json:"session,omitempty"`
}
