package audit

import (
	"context"
	"time"

	"github.com/gestionpro/gestion-api/internal/application/auth"
	"github.com/gestionpro/gestion-api/pkg/logger"
)

var _ auth.AuditSink = (*LogSink)(nil)

// LogSink implementación del sumidero de auditoría sobre el log estructurado.
// El almacenamiento durable de auditoría vive en otro servicio; aquí solo se
// emite el evento. Fire-and-forget: nunca devuelve error ni bloquea la
// operación que registra.
type LogSink struct {
	log *logger.Logger
}

// NewLogSink construye el sumidero.
func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{log: log}
}

// Record emite el evento de auditoría.
func (s *LogSink) Record(ctx context.Context, accountID, action, detail, sourceIP string) {
	s.log.Info().
		Str("component", "audit").
		Str("account_id", accountID).
		Str("action", action).
		Str("detail", detail).
		Str("source_ip", sourceIP).
		Time("at", time.Now().UTC()).
		Msg("evento de auditoría")
}
