package session

import (
	"github.com/gestionpro/gestion-api/internal/application/auth"
	"github.com/gestionpro/gestion-api/internal/domain/entity"
	"github.com/gestionpro/gestion-api/pkg/config"
	"github.com/gestionpro/gestion-api/pkg/jwt"
)

var _ auth.SessionIssuer = (*JWTIssuer)(nil)

// JWTIssuer emisor de sesiones sobre JWT HS256. El token lleva el rol activo
// al momento de emitirse; el cambio de perfil emite uno nuevo.
type JWTIssuer struct {
	cfg config.JWTConfig
}

// NewJWTIssuer construye el emisor con la configuración JWT.
func NewJWTIssuer(cfg config.JWTConfig) *JWTIssuer {
	return &JWTIssuer{cfg: cfg}
}

// Issue emite un token bearer para la cuenta con su rol activo.
func (i *JWTIssuer) Issue(account *entity.Account) (string, error) {
	return jwt.Generate(i.cfg.Secret, account.ID, account.ActiveRoleID, account.Name, i.cfg.Issuer, i.cfg.Expiration)
}

// Revoke invalidación de un token individual. Los JWT emitidos son
// autocontenidos y el logout está fuera de este núcleo: la operación existe
// para completar el contrato del puerto y hoy no hace nada.
func (i *JWTIssuer) Revoke(token string) error {
	return nil
}
