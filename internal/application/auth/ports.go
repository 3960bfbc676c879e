package auth

import (
	"context"

	"github.com/gestionpro/gestion-api/internal/domain/entity"
	"github.com/gestionpro/gestion-api/internal/domain/repository"
)

// Mailer puerto de despacho de correo saliente (códigos MFA y de recuperación).
// Un fallo de envío es un fallo de infraestructura: el estado persistido del
// código nunca depende del resultado del envío.
type Mailer interface {
	Send(to, subject, body string) error
}

// SessionIssuer puerto del emisor de sesiones (tokens bearer opacos para el
// caller). Solo Issue se consume en este núcleo; Revoke pertenece al logout.
type SessionIssuer interface {
	Issue(account *entity.Account) (string, error)
	Revoke(token string) error
}

// AuditSink puerto del registro de auditoría. Fire-and-forget: una
// implementación jamás debe bloquear ni hacer fallar la operación que registra.
type AuditSink interface {
	Record(ctx context.Context, accountID, action, detail, sourceIP string)
}

// TxRunner ejecuta un callback con repositorios atados a una transacción.
// Lo usa el cambio de perfil para que verificación de pertenencia, escritura
// del rol activo y resolución de permisos sean atómicas para el caller.
type TxRunner interface {
	RunAuth(ctx context.Context, fn func(
		accounts repository.AccountRepository,
		bindings repository.RoleBindingRepository,
		perms repository.PermissionRepository,
	) error) error
}
