package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/gestionpro/gestion-api/internal/application/auth"
	"github.com/gestionpro/gestion-api/internal/application/dto"
	"github.com/gestionpro/gestion-api/internal/domain"
	"github.com/gestionpro/gestion-api/pkg/logger"
)

// AuthHandler maneja login, MFA, ciclo de vida de contraseñas y cambio de perfil.
type AuthHandler struct {
	uc  *auth.AuthUseCase
	log *logger.Logger
}

// NewAuthHandler construye el handler de auth.
func NewAuthHandler(uc *auth.AuthUseCase, log *logger.Logger) *AuthHandler {
	return &AuthHandler{uc: uc, log: log}
}

// Login godoc
// @Summary      Iniciar sesión (paso 1)
// @Description  Verifica credenciales. Según el estado de la cuenta responde first_access_required o mfa_required; la sesión se emite recién al verificar el MFA.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.LoginRequest  true  "email, password"
// @Success      200   {object}  dto.LoginOutcomeResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var in dto.LoginRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.Email == "" || in.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "email y password son requeridos"})
	}
	out, err := h.uc.Login(c.Context(), in, c.IP())
	if err != nil {
		return h.internalError(c, err)
	}
	switch out.Status {
	case auth.StatusRejected:
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "credenciales inválidas"})
	case auth.StatusLocked:
		msg := "cuenta bloqueada temporalmente, intente más tarde"
		if out.JustLocked {
			msg = "cuenta bloqueada por intentos fallidos, intente más tarde"
		}
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "ACCOUNT_LOCKED", Message: msg})
	default:
		return c.JSON(dto.LoginOutcomeResponse{Status: string(out.Status), Session: out.Session})
	}
}

// FirstAccess godoc
// @Summary      Completar primer acceso
// @Description  Cambio de contraseña obligatorio para cuentas que nunca la cambiaron. Re-verifica credenciales y al éxito emite el código MFA.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.FirstAccessRequest  true  "email, password, new_password"
// @Success      200   {object}  dto.LoginOutcomeResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/auth/first-access [post]
func (h *AuthHandler) FirstAccess(c *fiber.Ctx) error {
	var in dto.FirstAccessRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.Email == "" || in.Password == "" || in.NewPassword == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "email, password y new_password son requeridos"})
	}
	out, err := h.uc.CompleteFirstAccess(c.Context(), in, c.IP())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "credenciales inválidas"})
		case errors.Is(err, domain.ErrAccountLocked):
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "ACCOUNT_LOCKED", Message: "cuenta bloqueada temporalmente, intente más tarde"})
		case errors.Is(err, domain.ErrFirstAccessDone):
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "FIRST_ACCESS_DONE", Message: "la cuenta ya completó su primer acceso"})
		case errors.Is(err, domain.ErrPasswordPolicy):
			return passwordPolicyError(c)
		case errors.Is(err, domain.ErrPasswordUnchanged):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "PASSWORD_UNCHANGED", Message: "la contraseña nueva debe ser distinta a la actual"})
		}
		return h.internalError(c, err)
	}
	return c.JSON(dto.LoginOutcomeResponse{Status: string(out.Status)})
}

// VerifyMFA godoc
// @Summary      Verificar código MFA (paso 2)
// @Description  Valida el código enviado por email y emite la sesión: cuenta, permisos del rol activo, perfiles disponibles y token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.MFAVerifyRequest  true  "email, code"
// @Success      200   {object}  dto.LoginOutcomeResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Router       /api/auth/mfa/verify [post]
func (h *AuthHandler) VerifyMFA(c *fiber.Ctx) error {
	var in dto.MFAVerifyRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.Email == "" || in.Code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "email y code son requeridos"})
	}
	out, err := h.uc.VerifyMFA(c.Context(), in, c.IP())
	if err != nil {
		if errors.Is(err, domain.ErrCodeInvalidOrExpired) {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "CODE_INVALID", Message: "código inválido o vencido"})
		}
		return h.internalError(c, err)
	}
	return c.JSON(dto.LoginOutcomeResponse{Status: string(out.Status), Session: out.Session})
}

// ResendMFA godoc
// @Summary      Reenviar código MFA
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.EmailRequest  true  "email"
// @Success      200   {object}  fiber.Map
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/auth/mfa/resend [post]
func (h *AuthHandler) ResendMFA(c *fiber.Ctx) error {
	var in dto.EmailRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.Email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "email es requerido"})
	}
	if err := h.uc.ResendMFA(c.Context(), in.Email, c.IP()); err != nil {
		if errors.Is(err, domain.ErrCodeInvalidOrExpired) {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "NO_PENDING_CODE", Message: "no hay un código vigente, inicie sesión nuevamente"})
		}
		return h.internalError(c, err)
	}
	return c.JSON(fiber.Map{"message": "si el email existe, el código fue reenviado"})
}

// ForgotPassword godoc
// @Summary      Solicitar código de recuperación de contraseña
// @Description  Respuesta idéntica exista o no la cuenta: nunca revela emails registrados.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.EmailRequest  true  "email"
// @Success      200   {object}  fiber.Map
// @Router       /api/auth/password/forgot [post]
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var in dto.EmailRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.Email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "email es requerido"})
	}
	if err := h.uc.RequestPasswordReset(c.Context(), in.Email, c.IP()); err != nil {
		return h.internalError(c, err)
	}
	return c.JSON(fiber.Map{"message": "si el email existe, se envió un código de recuperación"})
}

// ResetPassword godoc
// @Summary      Restablecer contraseña con código
// @Description  El código recibido por email autentica al caller: al éxito se emite una sesión completa.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.PasswordResetRequest  true  "email, code, new_password"
// @Success      200   {object}  dto.SessionResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/auth/password/reset [post]
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var in dto.PasswordResetRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.Email == "" || in.Code == "" || in.NewPassword == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "email, code y new_password son requeridos"})
	}
	session, err := h.uc.ResetPasswordByCode(c.Context(), in, c.IP())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrCodeInvalidOrExpired):
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "CODE_INVALID", Message: "código inválido o vencido"})
		case errors.Is(err, domain.ErrPasswordPolicy):
			return passwordPolicyError(c)
		case errors.Is(err, domain.ErrPasswordUnchanged):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "PASSWORD_UNCHANGED", Message: "la contraseña nueva debe ser distinta a la actual"})
		}
		return h.internalError(c, err)
	}
	return c.JSON(session)
}

// ChangePassword godoc
// @Summary      Cambiar contraseña (autenticado)
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.PasswordChangeRequest  true  "current_password, new_password"
// @Success      200   {object}  fiber.Map
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /api/auth/password/change [post]
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var in dto.PasswordChangeRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.CurrentPassword == "" || in.NewPassword == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "current_password y new_password son requeridos"})
	}
	err := h.uc.ChangePassword(c.Context(), GetAccountID(c), in, c.IP())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAccountNotFound):
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "cuenta no encontrada"})
		case errors.Is(err, domain.ErrInvalidCredentials):
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "contraseña actual incorrecta"})
		case errors.Is(err, domain.ErrPasswordPolicy):
			return passwordPolicyError(c)
		case errors.Is(err, domain.ErrPasswordUnchanged):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "PASSWORD_UNCHANGED", Message: "la contraseña nueva debe ser distinta a la actual"})
		}
		return h.internalError(c, err)
	}
	return c.JSON(fiber.Map{"message": "contraseña actualizada"})
}

// ListProfiles godoc
// @Summary      Listar perfiles disponibles
// @Tags         auth
// @Produce      json
// @Success      200   {array}   dto.BindingResponse
// @Security     BearerAuth
// @Router       /api/auth/profiles [get]
func (h *AuthHandler) ListProfiles(c *fiber.Ctx) error {
	list, err := h.uc.ListProfiles(c.Context(), GetAccountID(c))
	if err != nil {
		return h.internalError(c, err)
	}
	return c.JSON(list)
}

// SwitchProfile godoc
// @Summary      Cambiar de perfil activo
// @Description  Activa otro binding de la cuenta sin re-autenticar y devuelve la sesión refrescada (permisos del nuevo rol y token nuevo).
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ProfileSwitchRequest  true  "binding_id"
// @Success      200   {object}  dto.SessionResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /api/auth/profiles/switch [post]
func (h *AuthHandler) SwitchProfile(c *fiber.Ctx) error {
	var in dto.ProfileSwitchRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.BindingID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "binding_id es requerido"})
	}
	session, err := h.uc.SwitchProfile(c.Context(), GetAccountID(c), in.BindingID, c.IP())
	if err != nil {
		if errors.Is(err, domain.ErrBindingNotOwned) {
			// Mismo mensaje para binding inexistente y ajeno: no filtrar ids válidos.
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "BINDING_NOT_OWNED", Message: "el perfil no pertenece a la cuenta"})
		}
		return h.internalError(c, err)
	}
	return c.JSON(session)
}

func passwordPolicyError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{
		Code:    "PASSWORD_POLICY",
		Message: "la contraseña debe tener al menos 8 caracteres con mayúscula, minúscula, dígito y símbolo",
	})
}

// internalError registra el fallo con contexto completo y responde opaco:
// los mensajes internos nunca salen del log.
func (h *AuthHandler) internalError(c *fiber.Ctx, err error) error {
	h.log.Error().Err(err).Str("path", c.Path()).Str("ip", c.IP()).Msg("fallo de infraestructura en auth")
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
}
