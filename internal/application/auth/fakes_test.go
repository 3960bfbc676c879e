package auth_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/gestionpro/gestion-api/internal/domain/entity"
	"github.com/gestionpro/gestion-api/internal/domain/repository"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes en memoria de los puertos de persistencia y colaboradores externos.
// Reproducen la semántica atómica de los adaptadores PostgreSQL (incrementos y
// limpiezas condicionales) con un mutex por repositorio.
// ──────────────────────────────────────────────────────────────────────────────

type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*entity.Account // por id
}

var _ repository.AccountRepository = (*fakeAccountRepo)(nil)

func newFakeAccountRepo(accounts ...*entity.Account) *fakeAccountRepo {
	r := &fakeAccountRepo{accounts: make(map[string]*entity.Account)}
	for _, a := range accounts {
		r.accounts[a.ID] = a
	}
	return r
}

func cloneAccount(a *entity.Account) *entity.Account {
	if a == nil {
		return nil
	}
	c := *a
	c.EmployeeID = clonePtr(a.EmployeeID)
	c.ClientID = clonePtr(a.ClientID)
	c.LockUntil = cloneTimePtr(a.LockUntil)
	c.MFACode = clonePtr(a.MFACode)
	c.MFAExpiresAt = cloneTimePtr(a.MFAExpiresAt)
	c.ResetCode = clonePtr(a.ResetCode)
	c.ResetExpiresAt = cloneTimePtr(a.ResetExpiresAt)
	return &c
}

func clonePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// stored devuelve la fila viva (para asserts sobre el estado persistido).
func (r *fakeAccountRepo) stored(id string) *entity.Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accounts[id]
}

func (r *fakeAccountRepo) FindByID(ctx context.Context, id string) (*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneAccount(r.accounts[id]), nil
}

func (r *fakeAccountRepo) FindByEmail(ctx context.Context, email string) (*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Email == email {
			return cloneAccount(a), nil
		}
	}
	return nil, nil
}

func (r *fakeAccountRepo) RecordFailedAttempt(ctx context.Context, id string, threshold int, lockUntil time.Time) (int, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return 0, false, fmt.Errorf("cuenta %s no existe", id)
	}
	a.FailedAttempts++
	if a.FailedAttempts >= threshold {
		a.Locked = true
		until := lockUntil
		a.LockUntil = &until
	}
	return a.FailedAttempts, a.Locked, nil
}

func (r *fakeAccountRepo) ResetFailures(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.accounts[id]; ok {
		a.FailedAttempts = 0
		a.Locked = false
		a.LockUntil = nil
	}
	return nil
}

func (r *fakeAccountRepo) Unlock(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.accounts[id]; ok {
		a.Locked = false
		a.LockUntil = nil
	}
	return nil
}

func (r *fakeAccountRepo) SetMFACode(ctx context.Context, id, code string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.accounts[id]; ok {
		a.MFACode = &code
		exp := expiresAt
		a.MFAExpiresAt = &exp
	}
	return nil
}

func (r *fakeAccountRepo) ConsumeMFACode(ctx context.Context, id, code string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok || a.MFACode == nil || *a.MFACode != code {
		return false, nil
	}
	a.MFACode = nil
	a.MFAExpiresAt = nil
	return true, nil
}

func (r *fakeAccountRepo) SetResetCode(ctx context.Context, id, code string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.accounts[id]; ok {
		a.ResetCode = &code
		exp := expiresAt
		a.ResetExpiresAt = &exp
	}
	return nil
}

func (r *fakeAccountRepo) SetPassword(ctx context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.accounts[id]; ok {
		a.PasswordHash = hash
	}
	return nil
}

func (r *fakeAccountRepo) CompleteFirstAccess(ctx context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.accounts[id]; ok {
		a.PasswordHash = hash
		a.PasswordChanged = true
		a.MFACode, a.MFAExpiresAt = nil, nil
		a.ResetCode, a.ResetExpiresAt = nil, nil
	}
	return nil
}

func (r *fakeAccountRepo) ResetPassword(ctx context.Context, id, hash, code string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok || a.ResetCode == nil || *a.ResetCode != code {
		return false, nil
	}
	a.PasswordHash = hash
	a.ResetCode, a.ResetExpiresAt = nil, nil
	return true, nil
}

func (r *fakeAccountRepo) SetActiveBinding(ctx context.Context, id, roleID string, employeeID, clientID *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.accounts[id]; ok {
		a.ActiveRoleID = roleID
		a.EmployeeID = clonePtr(employeeID)
		a.ClientID = clonePtr(clientID)
	}
	return nil
}

type fakeBindingRepo struct {
	mu       sync.Mutex
	bindings []*entity.RoleBinding
}

var _ repository.RoleBindingRepository = (*fakeBindingRepo)(nil)

func newFakeBindingRepo(bindings ...*entity.RoleBinding) *fakeBindingRepo {
	return &fakeBindingRepo{bindings: bindings}
}

func (r *fakeBindingRepo) ListActiveByAccount(ctx context.Context, accountID string) ([]*entity.RoleBinding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.RoleBinding
	for _, b := range r.bindings {
		if b.AccountID == accountID && b.Active {
			c := *b
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeBindingRepo) FindByIDAndAccount(ctx context.Context, id, accountID string) (*entity.RoleBinding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bindings {
		if b.ID == id && b.AccountID == accountID && b.Active {
			c := *b
			return &c, nil
		}
	}
	return nil, nil
}

type fakePermissionRepo struct {
	mu     sync.Mutex
	byRole map[string][]entity.Permission
	calls  int
}

var _ repository.PermissionRepository = (*fakePermissionRepo)(nil)

func newFakePermissionRepo() *fakePermissionRepo {
	return &fakePermissionRepo{byRole: make(map[string][]entity.Permission)}
}

func (r *fakePermissionRepo) grant(roleID, module, submodule string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byRole[roleID] = append(r.byRole[roleID], entity.Permission{
		ID: fmt.Sprintf("perm-%s-%s-%s", roleID, module, submodule), Module: module, Submodule: submodule,
	})
}

func (r *fakePermissionRepo) revokeAll(roleID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byRole, roleID)
}

func (r *fakePermissionRepo) ListByRole(ctx context.Context, roleID string) ([]entity.Permission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return append([]entity.Permission(nil), r.byRole[roleID]...), nil
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type fakeMailer struct {
	mu      sync.Mutex
	sent    []sentMail
	failErr error // si no es nil, Send falla sin registrar
}

func (m *fakeMailer) Send(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (m *fakeMailer) lastBody() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return ""
	}
	return m.sent[len(m.sent)-1].Body
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// codeFromBody extrae el código de 6 dígitos del cuerpo del correo.
func codeFromBody(t *testing.T, body string) string {
	t.Helper()
	for _, word := range strings.Fields(body) {
		trimmed := strings.Trim(word, ".,")
		if len(trimmed) == 6 && strings.IndexFunc(trimmed, func(r rune) bool { return r < '0' || r > '9' }) == -1 {
			return trimmed
		}
	}
	t.Fatalf("no se encontró un código de 6 dígitos en el cuerpo: %q", body)
	return ""
}

type fakeSessionIssuer struct {
	mu     sync.Mutex
	issued int
}

func (s *fakeSessionIssuer) Issue(account *entity.Account) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return fmt.Sprintf("token-%s-%s-%d", account.ID, account.ActiveRoleID, s.issued), nil
}

func (s *fakeSessionIssuer) Revoke(token string) error { return nil }

type auditEntry struct {
	AccountID string
	Action    string
}

type fakeAuditSink struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (s *fakeAuditSink) Record(ctx context.Context, accountID, action, detail, sourceIP string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, auditEntry{AccountID: accountID, Action: action})
}

func (s *fakeAuditSink) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.Action)
	}
	return out
}

// fakeTxRunner ejecuta el callback directamente sobre los fakes: los tests de
// atomicidad real viven en el adaptador PostgreSQL.
type fakeTxRunner struct {
	accounts *fakeAccountRepo
	bindings *fakeBindingRepo
	perms    *fakePermissionRepo
}

func (r *fakeTxRunner) RunAuth(ctx context.Context, fn func(
	accounts repository.AccountRepository,
	bindings repository.RoleBindingRepository,
	perms repository.PermissionRepository,
) error) error {
	return fn(r.accounts, r.bindings, r.perms)
}

// ──────────────────────────────────────────────────────────────────────────────
// Builders
// ──────────────────────────────────────────────────────────────────────────────

// passwordMatches compara en claro contra un hash bcrypt.
func passwordMatches(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// hashFor hashea con MinCost: suficiente para tests y mucho más rápido.
func hashFor(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashear password de test: %v", err)
	}
	return string(hash)
}

func testAccount(t *testing.T, id, email, password string, passwordChanged bool) *entity.Account {
	t.Helper()
	now := time.Now()
	return &entity.Account{
		ID:              id,
		Email:           email,
		PasswordHash:    hashFor(t, password),
		Name:            "Cuenta de Prueba",
		ActiveRoleID:    "role-empleado",
		PasswordChanged: passwordChanged,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }
