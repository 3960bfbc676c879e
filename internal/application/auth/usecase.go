package auth

import (
	"context"
	"fmt"

	"github.com/gestionpro/gestion-api/internal/application/dto"
	"github.com/gestionpro/gestion-api/internal/domain"
	"github.com/gestionpro/gestion-api/internal/domain/entity"
	"github.com/gestionpro/gestion-api/internal/domain/repository"
	"github.com/gestionpro/gestion-api/pkg/logger"
)

// AuthUseCase orquestador de autenticación: compone guard de bloqueo, ciclo de
// vida de contraseñas, desafío MFA, registro de perfiles, resolución de
// permisos y emisor de sesiones en la máquina de estados
//
//	AwaitingCredentials → {Locked, Rejected, AwaitingFirstAccess, AwaitingMfa} → Authenticated
//
// más la operación independiente de cambio de perfil.
type AuthUseCase struct {
	accounts  repository.AccountRepository
	bindings  repository.RoleBindingRepository
	lockout   *LockoutGuard
	passwords *PasswordManager
	mfa       *MFAManager
	resolver  *PermissionResolver
	sessions  SessionIssuer
	audit     AuditSink
	tx        TxRunner
	log       *logger.Logger
}

// NewAuthUseCase construye el orquestador.
func NewAuthUseCase(
	accounts repository.AccountRepository,
	bindings repository.RoleBindingRepository,
	lockout *LockoutGuard,
	passwords *PasswordManager,
	mfa *MFAManager,
	resolver *PermissionResolver,
	sessions SessionIssuer,
	audit AuditSink,
	tx TxRunner,
	log *logger.Logger,
) *AuthUseCase {
	return &AuthUseCase{
		accounts:  accounts,
		bindings:  bindings,
		lockout:   lockout,
		passwords: passwords,
		mfa:       mfa,
		resolver:  resolver,
		sessions:  sessions,
		audit:     audit,
		tx:        tx,
		log:       log,
	}
}

// Login primer paso del flujo. Nunca revela si el email existe: cuenta
// inexistente y contraseña incorrecta producen el mismo resultado Rejected.
// El bloqueo vigente se evalúa antes de tocar credenciales o contador, e
// independientemente de que la contraseña sea correcta.
func (uc *AuthUseCase) Login(ctx context.Context, in dto.LoginRequest, sourceIP string) (*LoginOutcome, error) {
	account, err := uc.accounts.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("buscar cuenta: %w", err)
	}
	if account == nil {
		uc.audit.Record(ctx, "", "login_rejected", "email desconocido", sourceIP)
		return rejectedOutcome(), nil
	}

	locked, err := uc.lockout.CheckLocked(ctx, account)
	if err != nil {
		return nil, err
	}
	if locked {
		uc.audit.Record(ctx, account.ID, "login_locked", "cuenta bloqueada vigente", sourceIP)
		return lockedOutcome(false), nil
	}

	if !passwordMatchesHash(in.Password, account.PasswordHash) {
		decision, err := uc.lockout.RecordFailure(ctx, account)
		if err != nil {
			return nil, err
		}
		if decision.JustLocked {
			uc.audit.Record(ctx, account.ID, "login_locked", "este intento provocó el bloqueo", sourceIP)
			return lockedOutcome(true), nil
		}
		uc.audit.Record(ctx, account.ID, "login_rejected", "contraseña incorrecta", sourceIP)
		return rejectedOutcome(), nil
	}

	if err := uc.lockout.RecordSuccess(ctx, account); err != nil {
		return nil, err
	}

	// Cuenta que aún no cambió la contraseña inicial: no se emite MFA, el
	// caller debe completar primero el cambio obligatorio.
	if !account.PasswordChanged {
		uc.audit.Record(ctx, account.ID, "login_first_access", "cambio de contraseña inicial pendiente", sourceIP)
		return &LoginOutcome{Status: StatusFirstAccessRequired}, nil
	}

	if err := uc.mfa.Issue(ctx, account); err != nil {
		return nil, err
	}
	uc.audit.Record(ctx, account.ID, "login_mfa_sent", "código MFA emitido", sourceIP)
	return &LoginOutcome{Status: StatusMFARequired}, nil
}

// CompleteFirstAccess re-verifica credenciales (endpoint público), ejecuta el
// cambio de contraseña obligatorio y transiciona directo a AwaitingMfa
// emitiendo el desafío.
func (uc *AuthUseCase) CompleteFirstAccess(ctx context.Context, in dto.FirstAccessRequest, sourceIP string) (*LoginOutcome, error) {
	account, err := uc.accounts.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("buscar cuenta: %w", err)
	}
	if account == nil {
		return nil, domain.ErrInvalidCredentials
	}
	locked, err := uc.lockout.CheckLocked(ctx, account)
	if err != nil {
		return nil, err
	}
	if locked {
		return nil, domain.ErrAccountLocked
	}
	if !passwordMatchesHash(in.Password, account.PasswordHash) {
		if _, err := uc.lockout.RecordFailure(ctx, account); err != nil {
			return nil, err
		}
		return nil, domain.ErrInvalidCredentials
	}
	if err := uc.lockout.RecordSuccess(ctx, account); err != nil {
		return nil, err
	}
	if err := uc.passwords.ForceInitialPassword(ctx, account, in.NewPassword); err != nil {
		return nil, err
	}
	uc.audit.Record(ctx, account.ID, "first_access_completed", "contraseña inicial cambiada", sourceIP)
	if err := uc.mfa.Issue(ctx, account); err != nil {
		return nil, err
	}
	uc.audit.Record(ctx, account.ID, "login_mfa_sent", "código MFA emitido", sourceIP)
	return &LoginOutcome{Status: StatusMFARequired}, nil
}

// VerifyMFA valida el código y, de ser correcto y vigente, completa la
// autenticación: resuelve permisos del rol activo, enumera perfiles
// disponibles y emite el token de sesión. Un código incorrecto o vencido deja
// el flujo en AwaitingMfa sin penalidad adicional del guard de bloqueo.
func (uc *AuthUseCase) VerifyMFA(ctx context.Context, in dto.MFAVerifyRequest, sourceIP string) (*LoginOutcome, error) {
	account, err := uc.accounts.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("buscar cuenta: %w", err)
	}
	if account == nil {
		return nil, domain.ErrCodeInvalidOrExpired
	}
	if err := uc.mfa.Verify(ctx, account, in.Code); err != nil {
		uc.audit.Record(ctx, account.ID, "mfa_rejected", "código incorrecto o vencido", sourceIP)
		return nil, err
	}
	session, err := uc.buildSession(ctx, account)
	if err != nil {
		return nil, err
	}
	uc.audit.Record(ctx, account.ID, "login_authenticated", "sesión emitida", sourceIP)
	return &LoginOutcome{Status: StatusAuthenticated, Session: session}, nil
}

// ResendMFA reenvía el código vigente. Silencioso ante email desconocido para
// no revelar existencia de cuentas.
func (uc *AuthUseCase) ResendMFA(ctx context.Context, email, sourceIP string) error {
	account, err := uc.accounts.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("buscar cuenta: %w", err)
	}
	if account == nil {
		return nil
	}
	if err := uc.mfa.Resend(ctx, account); err != nil {
		return err
	}
	uc.audit.Record(ctx, account.ID, "mfa_resent", "código MFA reenviado", sourceIP)
	return nil
}

// RequestPasswordReset emite y envía un código de recuperación. Silencioso
// ante email desconocido: la respuesta al caller es idéntica exista o no la
// cuenta.
func (uc *AuthUseCase) RequestPasswordReset(ctx context.Context, email, sourceIP string) error {
	account, err := uc.accounts.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("buscar cuenta: %w", err)
	}
	if account == nil {
		uc.log.Debug().Str("email", email).Msg("recuperación solicitada para email desconocido")
		return nil
	}
	if err := uc.passwords.IssueResetCode(ctx, account); err != nil {
		return err
	}
	uc.audit.Record(ctx, account.ID, "reset_code_sent", "código de recuperación emitido", sourceIP)
	return nil
}

// ResetPasswordByCode restablece la contraseña con el código recibido por
// email y emite una sesión: el código es prueba de control del email, por lo
// que esta es la única operación del ciclo de vida que también autentica.
func (uc *AuthUseCase) ResetPasswordByCode(ctx context.Context, in dto.PasswordResetRequest, sourceIP string) (*dto.SessionResponse, error) {
	account, err := uc.accounts.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("buscar cuenta: %w", err)
	}
	if account == nil {
		return nil, domain.ErrCodeInvalidOrExpired
	}
	if err := uc.passwords.ResetByCode(ctx, account, in.Code, in.NewPassword); err != nil {
		return nil, err
	}
	session, err := uc.buildSession(ctx, account)
	if err != nil {
		return nil, err
	}
	uc.audit.Record(ctx, account.ID, "password_reset", "contraseña restablecida por código", sourceIP)
	return session, nil
}

// ChangePassword cambio autenticado (requiere sesión vigente).
func (uc *AuthUseCase) ChangePassword(ctx context.Context, accountID string, in dto.PasswordChangeRequest, sourceIP string) error {
	account, err := uc.accounts.FindByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("buscar cuenta: %w", err)
	}
	if account == nil {
		return domain.ErrAccountNotFound
	}
	if err := uc.passwords.ChangePassword(ctx, account, in.CurrentPassword, in.NewPassword); err != nil {
		return err
	}
	uc.audit.Record(ctx, account.ID, "password_changed", "cambio de contraseña autenticado", sourceIP)
	return nil
}

// ListProfiles enumera los perfiles habilitados de la cuenta para el selector.
func (uc *AuthUseCase) ListProfiles(ctx context.Context, accountID string) ([]dto.BindingResponse, error) {
	list, err := uc.bindings.ListActiveByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("listar perfiles: %w", err)
	}
	return toBindingResponses(list), nil
}

// SwitchProfile cambio de perfil activo sin re-autenticación. Verificación de
// pertenencia, escritura del rol/empleado/cliente activos y resolución del
// nuevo conjunto de permisos ocurren dentro de una transacción: para el caller
// el cambio es atómico. Un binding inexistente y uno ajeno producen el mismo
// ErrBindingNotOwned, sin filtrar si el id existe. Devuelve la sesión
// refrescada con un token nuevo que refleja el rol activo.
func (uc *AuthUseCase) SwitchProfile(ctx context.Context, accountID, bindingID, sourceIP string) (*dto.SessionResponse, error) {
	var (
		account *entity.Account
		perms   []entity.Permission
		list    []*entity.RoleBinding
	)
	err := uc.tx.RunAuth(ctx, func(
		accounts repository.AccountRepository,
		bindings repository.RoleBindingRepository,
		permRepo repository.PermissionRepository,
	) error {
		binding, err := bindings.FindByIDAndAccount(ctx, bindingID, accountID)
		if err != nil {
			return fmt.Errorf("buscar perfil: %w", err)
		}
		if binding == nil {
			return domain.ErrBindingNotOwned
		}
		if err := accounts.SetActiveBinding(ctx, accountID, binding.RoleID, binding.EmployeeID, binding.ClientID); err != nil {
			return fmt.Errorf("activar perfil: %w", err)
		}
		account, err = accounts.FindByID(ctx, accountID)
		if err != nil {
			return fmt.Errorf("releer cuenta: %w", err)
		}
		if account == nil {
			return domain.ErrAccountNotFound
		}
		perms, err = permRepo.ListByRole(ctx, binding.RoleID)
		if err != nil {
			return fmt.Errorf("resolver permisos: %w", err)
		}
		list, err = bindings.ListActiveByAccount(ctx, accountID)
		if err != nil {
			return fmt.Errorf("listar perfiles: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	token, err := uc.sessions.Issue(account)
	if err != nil {
		return nil, fmt.Errorf("emitir sesión: %w", err)
	}
	uc.audit.Record(ctx, accountID, "profile_switched", "rol activo: "+account.ActiveRoleID, sourceIP)
	return &dto.SessionResponse{
		Token:       token,
		Account:     toAccountResponse(account),
		Permissions: toPermissionResponses(perms),
		Bindings:    toBindingResponses(list),
	}, nil
}

// buildSession arma la estructura resuelta que consume el resto de la
// aplicación: cuenta, permisos del rol activo, perfiles disponibles y token.
func (uc *AuthUseCase) buildSession(ctx context.Context, account *entity.Account) (*dto.SessionResponse, error) {
	perms, err := uc.resolver.Resolve(ctx, account.ActiveRoleID)
	if err != nil {
		return nil, fmt.Errorf("resolver permisos: %w", err)
	}
	list, err := uc.bindings.ListActiveByAccount(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("listar perfiles: %w", err)
	}
	token, err := uc.sessions.Issue(account)
	if err != nil {
		return nil, fmt.Errorf("emitir sesión: %w", err)
	}
	return &dto.SessionResponse{
		Token:       token,
		Account:     toAccountResponse(account),
		Permissions: toPermissionResponses(perms),
		Bindings:    toBindingResponses(list),
	}, nil
}

func toAccountResponse(a *entity.Account) dto.AccountResponse {
	return dto.AccountResponse{
		ID:           a.ID,
		Email:        a.Email,
		Name:         a.Name,
		ActiveRoleID: a.ActiveRoleID,
		EmployeeID:   a.EmployeeID,
		ClientID:     a.ClientID,
	}
}

func toPermissionResponses(perms []entity.Permission) []dto.PermissionResponse {
	out := make([]dto.PermissionResponse, 0, len(perms))
	for _, p := range perms {
		out = append(out, dto.PermissionResponse{Module: p.Module, Submodule: p.Submodule})
	}
	return out
}

func toBindingResponses(list []*entity.RoleBinding) []dto.BindingResponse {
	out := make([]dto.BindingResponse, 0, len(list))
	for _, b := range list {
		out = append(out, dto.BindingResponse{
			ID:         b.ID,
			RoleID:     b.RoleID,
			RoleName:   b.RoleName,
			EmployeeID: b.EmployeeID,
			ClientID:   b.ClientID,
		})
	}
	return out
}
