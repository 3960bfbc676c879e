package email

import (
	"github.com/gestionpro/gestion-api/internal/application/auth"
	"github.com/gestionpro/gestion-api/pkg/logger"
)

var _ auth.Mailer = (*LogSender)(nil)

// LogSender implementación del Mailer para entornos de desarrollo sin SMTP:
// escribe el correo en el log en lugar de enviarlo. Se selecciona en el wiring
// cuando SMTP_HOST está vacío.
type LogSender struct {
	log *logger.Logger
}

// NewLogSender construye el sender de desarrollo.
func NewLogSender(log *logger.Logger) *LogSender {
	return &LogSender{log: log}
}

// Send registra el correo en el log.
func (s *LogSender) Send(to, subject, body string) error {
	s.log.Info().
		Str("to", to).
		Str("subject", subject).
		Str("body", body).
		Msg("correo simulado (sin SMTP configurado)")
	return nil
}
