package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestionpro/gestion-api/internal/application/auth"
	"github.com/gestionpro/gestion-api/internal/application/dto"
	"github.com/gestionpro/gestion-api/internal/domain"
	"github.com/gestionpro/gestion-api/internal/domain/entity"
	"github.com/gestionpro/gestion-api/pkg/logger"
)

// testEnv arma el orquestador completo sobre fakes. El escenario base: Ana con
// dos perfiles (empleado activo y administrador), rol empleado con un permiso y
// rol admin con dos.
type testEnv struct {
	uc       *auth.AuthUseCase
	accounts *fakeAccountRepo
	bindings *fakeBindingRepo
	perms    *fakePermissionRepo
	mailer   *fakeMailer
	audit    *fakeAuditSink
	issuer   *fakeSessionIssuer
}

func newTestEnv(t *testing.T, accounts ...*entity.Account) *testEnv {
	t.Helper()
	accountRepo := newFakeAccountRepo(accounts...)
	bindingRepo := newFakeBindingRepo(
		&entity.RoleBinding{ID: "bind-emp", AccountID: "acc-1", RoleID: "role-empleado", RoleName: "Empleado", Active: true},
		&entity.RoleBinding{ID: "bind-adm", AccountID: "acc-1", RoleID: "role-admin", RoleName: "Administrador", Active: true},
		&entity.RoleBinding{ID: "bind-baja", AccountID: "acc-1", RoleID: "role-cliente", RoleName: "Cliente", Active: false},
		&entity.RoleBinding{ID: "bind-ajeno", AccountID: "acc-2", RoleID: "role-empleado", RoleName: "Empleado", Active: true},
	)
	permRepo := newFakePermissionRepo()
	permRepo.grant("role-empleado", "inventario", "consultar")
	permRepo.grant("role-admin", "inventario", "ajustar")
	permRepo.grant("role-admin", "facturacion", "emitir")

	mailer := &fakeMailer{}
	audit := &fakeAuditSink{}
	issuer := &fakeSessionIssuer{}

	uc := auth.NewAuthUseCase(
		accountRepo, bindingRepo,
		auth.NewLockoutGuard(accountRepo, 3, 5*time.Minute),
		auth.NewPasswordManager(accountRepo, mailer, 30*time.Minute),
		auth.NewMFAManager(accountRepo, mailer, 5*time.Minute),
		auth.NewPermissionResolver(permRepo),
		issuer, audit,
		&fakeTxRunner{accounts: accountRepo, bindings: bindingRepo, perms: permRepo},
		logger.Nop(),
	)
	return &testEnv{uc: uc, accounts: accountRepo, bindings: bindingRepo, perms: permRepo, mailer: mailer, audit: audit, issuer: issuer}
}

func modulesOf(perms []dto.PermissionResponse) []string {
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		out = append(out, p.Module+"/"+p.Submodule)
	}
	return out
}

func TestLogin_EmailDesconocidoYContraseñaIncorrectaSonIndistinguibles(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, testAccount(t, "acc-1", "ana@gestionpro.co", "Segura123!", true))

	unknown, err := env.uc.Login(ctx, dto.LoginRequest{Email: "nadie@gestionpro.co", Password: "Segura123!"}, "10.0.0.1")
	require.NoError(t, err)
	wrongPass, err := env.uc.Login(ctx, dto.LoginRequest{Email: "ana@gestionpro.co", Password: "Equivocada1!"}, "10.0.0.1")
	require.NoError(t, err)

	assert.Equal(t, auth.StatusRejected, unknown.Status)
	assert.Equal(t, unknown, wrongPass, "ambos rechazos deben ser idénticos para no revelar si el email existe")
}

func TestLogin_TercerFalloBloqueaYMarcaJustLocked(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, testAccount(t, "acc-1", "ana@gestionpro.co", "Segura123!", true))
	bad := dto.LoginRequest{Email: "ana@gestionpro.co", Password: "Equivocada1!"}

	for i := 0; i < 2; i++ {
		out, err := env.uc.Login(ctx, bad, "10.0.0.1")
		require.NoError(t, err)
		assert.Equal(t, auth.StatusRejected, out.Status)
	}

	out, err := env.uc.Login(ctx, bad, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, auth.StatusLocked, out.Status)
	assert.True(t, out.JustLocked, "el tercer fallo es el que provoca el bloqueo")

	// Con el bloqueo vigente ni la contraseña correcta entra.
	out, err = env.uc.Login(ctx, dto.LoginRequest{Email: "ana@gestionpro.co", Password: "Segura123!"}, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, auth.StatusLocked, out.Status)
	assert.False(t, out.JustLocked, "la cuenta ya estaba bloqueada; este intento no lo provocó")
	assert.Equal(t, 0, env.mailer.count(), "una cuenta bloqueada nunca recibe código MFA")
}

func TestLogin_ExitosoReiniciaContadorYEmiteMFA(t *testing.T) {
	ctx := context.Background()
	account := testAccount(t, "acc-1", "ana@gestionpro.co", "Segura123!", true)
	account.FailedAttempts = 2
	env := newTestEnv(t, account)

	out, err := env.uc.Login(ctx, dto.LoginRequest{Email: "ana@gestionpro.co", Password: "Segura123!"}, "10.0.0.1")
	require.NoError(t, err)

	assert.Equal(t, auth.StatusMFARequired, out.Status)
	assert.Nil(t, out.Session, "la sesión recién se emite al verificar el código")
	assert.Equal(t, 0, env.accounts.stored("acc-1").FailedAttempts, "el éxito reinicia el contador de fallos")
	assert.Equal(t, 1, env.mailer.count())
	assert.Contains(t, env.audit.actions(), "login_mfa_sent")
}

func TestLogin_PrimerAccesoPendienteNoEmiteMFA(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, testAccount(t, "acc-1", "ana@gestionpro.co", "Temporal123!", false))

	out, err := env.uc.Login(ctx, dto.LoginRequest{Email: "ana@gestionpro.co", Password: "Temporal123!"}, "10.0.0.1")
	require.NoError(t, err)

	assert.Equal(t, auth.StatusFirstAccessRequired, out.Status)
	assert.Equal(t, 0, env.mailer.count(), "el desafío MFA espera a que se complete el cambio obligatorio")
}

func TestCompleteFirstAccess_CambiaYTransicionaAMFA(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, testAccount(t, "acc-1", "ana@gestionpro.co", "Temporal123!", false))

	out, err := env.uc.CompleteFirstAccess(ctx, dto.FirstAccessRequest{
		Email: "ana@gestionpro.co", Password: "Temporal123!", NewPassword: "Definitiva9#",
	}, "10.0.0.1")
	require.NoError(t, err)

	assert.Equal(t, auth.StatusMFARequired, out.Status)
	stored := env.accounts.stored("acc-1")
	assert.True(t, stored.PasswordChanged)
	assert.True(t, passwordMatches("Definitiva9#", stored.PasswordHash))
	assert.Equal(t, 1, env.mailer.count(), "completado el primer acceso se emite el desafío MFA")

	// El endpoint es público: credenciales incorrectas cuentan como fallo.
	_, err = env.uc.CompleteFirstAccess(ctx, dto.FirstAccessRequest{
		Email: "ana@gestionpro.co", Password: "Equivocada1!", NewPassword: "Otra12345$",
	}, "10.0.0.1")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	assert.Equal(t, 1, env.accounts.stored("acc-1").FailedAttempts)

	// Y una vez completado, el camino de primer acceso queda cerrado.
	_, err = env.uc.CompleteFirstAccess(ctx, dto.FirstAccessRequest{
		Email: "ana@gestionpro.co", Password: "Definitiva9#", NewPassword: "Otra12345$",
	}, "10.0.0.1")
	assert.ErrorIs(t, err, domain.ErrFirstAccessDone)
}

func TestVerifyMFA_EmiteSesionResuelta(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, testAccount(t, "acc-1", "ana@gestionpro.co", "Segura123!", true))

	_, err := env.uc.Login(ctx, dto.LoginRequest{Email: "ana@gestionpro.co", Password: "Segura123!"}, "10.0.0.1")
	require.NoError(t, err)
	code := codeFromBody(t, env.mailer.lastBody())

	out, err := env.uc.VerifyMFA(ctx, dto.MFAVerifyRequest{Email: "ana@gestionpro.co", Code: code}, "10.0.0.1")
	require.NoError(t, err)

	assert.Equal(t, auth.StatusAuthenticated, out.Status)
	require.NotNil(t, out.Session)
	assert.NotEmpty(t, out.Session.Token)
	assert.Equal(t, "acc-1", out.Session.Account.ID)
	assert.ElementsMatch(t, []string{"inventario/consultar"}, modulesOf(out.Session.Permissions),
		"los permisos de la sesión son los del rol activo")
	assert.Len(t, out.Session.Bindings, 2, "solo los perfiles habilitados aparecen en el selector")
	assert.Contains(t, env.audit.actions(), "login_authenticated")

	// Segundo uso del mismo código: rechazado.
	_, err = env.uc.VerifyMFA(ctx, dto.MFAVerifyRequest{Email: "ana@gestionpro.co", Code: code}, "10.0.0.1")
	assert.ErrorIs(t, err, domain.ErrCodeInvalidOrExpired)
}

func TestVerifyMFA_CodigoIncorrectoDejaElFlujoAbierto(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, testAccount(t, "acc-1", "ana@gestionpro.co", "Segura123!", true))

	_, err := env.uc.Login(ctx, dto.LoginRequest{Email: "ana@gestionpro.co", Password: "Segura123!"}, "10.0.0.1")
	require.NoError(t, err)
	code := codeFromBody(t, env.mailer.lastBody())

	_, err = env.uc.VerifyMFA(ctx, dto.MFAVerifyRequest{Email: "ana@gestionpro.co", Code: "000000"}, "10.0.0.1")
	assert.ErrorIs(t, err, domain.ErrCodeInvalidOrExpired)
	assert.Equal(t, 0, env.accounts.stored("acc-1").FailedAttempts,
		"un fallo de MFA no alimenta el contador de bloqueo de credenciales")

	out, err := env.uc.VerifyMFA(ctx, dto.MFAVerifyRequest{Email: "ana@gestionpro.co", Code: code}, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, auth.StatusAuthenticated, out.Status)
}

func TestResendMFA_SilenciosoAnteEmailDesconocido(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, testAccount(t, "acc-1", "ana@gestionpro.co", "Segura123!", true))

	assert.NoError(t, env.uc.ResendMFA(ctx, "nadie@gestionpro.co", "10.0.0.1"),
		"el reenvío nunca revela si el email existe")
	assert.Equal(t, 0, env.mailer.count())
}

func TestPasswordReset_FlujoCompleto(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, testAccount(t, "acc-1", "ana@gestionpro.co", "Segura123!", true))

	// Solicitud para email desconocido: misma respuesta, ningún correo.
	require.NoError(t, env.uc.RequestPasswordReset(ctx, "nadie@gestionpro.co", "10.0.0.1"))
	assert.Equal(t, 0, env.mailer.count())

	require.NoError(t, env.uc.RequestPasswordReset(ctx, "ana@gestionpro.co", "10.0.0.1"))
	code := codeFromBody(t, env.mailer.lastBody())

	session, err := env.uc.ResetPasswordByCode(ctx, dto.PasswordResetRequest{
		Email: "ana@gestionpro.co", Code: code, NewPassword: "Renovada45$",
	}, "10.0.0.1")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token, "el código prueba control del email: se emite sesión")

	// La contraseña nueva queda vigente para el siguiente login.
	out, err := env.uc.Login(ctx, dto.LoginRequest{Email: "ana@gestionpro.co", Password: "Renovada45$"}, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, auth.StatusMFARequired, out.Status)

	// El código ya fue consumido.
	_, err = env.uc.ResetPasswordByCode(ctx, dto.PasswordResetRequest{
		Email: "ana@gestionpro.co", Code: code, NewPassword: "Tercera678&",
	}, "10.0.0.1")
	assert.ErrorIs(t, err, domain.ErrCodeInvalidOrExpired)
}

func TestChangePassword_Autenticado(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, testAccount(t, "acc-1", "ana@gestionpro.co", "Segura123!", true))

	err := env.uc.ChangePassword(ctx, "acc-1", dto.PasswordChangeRequest{
		CurrentPassword: "Equivocada1!", NewPassword: "Renovada45$",
	}, "10.0.0.1")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	require.NoError(t, env.uc.ChangePassword(ctx, "acc-1", dto.PasswordChangeRequest{
		CurrentPassword: "Segura123!", NewPassword: "Renovada45$",
	}, "10.0.0.1"))
	assert.True(t, passwordMatches("Renovada45$", env.accounts.stored("acc-1").PasswordHash))
	assert.Contains(t, env.audit.actions(), "password_changed")
}

func TestListProfiles_SoloHabilitados(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, testAccount(t, "acc-1", "ana@gestionpro.co", "Segura123!", true))

	list, err := env.uc.ListProfiles(ctx, "acc-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Empleado", list[0].RoleName)
	assert.Equal(t, "Administrador", list[1].RoleName)
}

func TestSwitchProfile_RecalculaPermisosYRefrescaToken(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, testAccount(t, "acc-1", "ana@gestionpro.co", "Segura123!", true))

	session, err := env.uc.SwitchProfile(ctx, "acc-1", "bind-adm", "10.0.0.1")
	require.NoError(t, err)

	assert.Equal(t, "role-admin", session.Account.ActiveRoleID)
	assert.ElementsMatch(t, []string{"inventario/ajustar", "facturacion/emitir"}, modulesOf(session.Permissions),
		"los permisos deben ser exactamente los del perfil nuevo, sin arrastre del anterior")
	assert.Contains(t, session.Token, "role-admin", "el token nuevo debe reflejar el rol activo")
	assert.Equal(t, "role-admin", env.accounts.stored("acc-1").ActiveRoleID)
	assert.Contains(t, env.audit.actions(), "profile_switched")
}

func TestSwitchProfile_BindingAjenoOInexistenteNoSeDistinguen(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, testAccount(t, "acc-1", "ana@gestionpro.co", "Segura123!", true))

	for _, bindingID := range []string{"bind-ajeno", "bind-baja", "bind-fantasma"} {
		_, err := env.uc.SwitchProfile(ctx, "acc-1", bindingID, "10.0.0.1")
		assert.ErrorIs(t, err, domain.ErrBindingNotOwned,
			"binding %q: ajeno, deshabilitado e inexistente deben producir el mismo error", bindingID)
	}
	assert.Equal(t, "role-empleado", env.accounts.stored("acc-1").ActiveRoleID, "el perfil activo no debe cambiar")
}
