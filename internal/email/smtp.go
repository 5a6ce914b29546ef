package email

import (
	"crypto/tls"
	"fmt"

	"github.com/BloodyDerby/biosentiers-backend/internal/observability/logger"
	mail "github.com/go-mail/mail"
)

// Modos TLS soportados para la conexión SMTP.
const (
	TLSStartTLS = "starttls"
	TLSImplicit = "ssl"
	TLSNone     = "none"
)

// SMTPSender entrega los correos transaccionales por SMTP.
type SMTPSender struct {
	Host               string
	Port               int
	From               string
	User               string
	Pass               string
	TLSMode            string // starttls | ssl | none
	InsecureSkipVerify bool   // sólo dev
}

// NewSMTPSender crea un sender SMTP con STARTTLS por defecto.
func NewSMTPSender(host string, port int, from, user, pass string) *SMTPSender {
	return &SMTPSender{
		Host:    host,
		Port:    port,
		From:    from,
		User:    user,
		Pass:    pass,
		TLSMode: TLSStartTLS,
	}
}

// dialer arma el dialer según el modo TLS configurado.
func (s *SMTPSender) dialer() *mail.Dialer {
	d := mail.NewDialer(s.Host, s.Port, s.User, s.Pass)
	switch s.TLSMode {
	case TLSNone:
		// Sin verificación de certificado; el servidor puede aún ofrecer
		// STARTTLS y go-mail lo negocia igual.
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	case TLSImplicit:
		d.SSL = true
		fallthrough
	default:
		d.TLSConfig = &tls.Config{
			ServerName:         s.Host,
			InsecureSkipVerify: s.InsecureSkipVerify,
		}
	}
	return d
}

// Send envía un correo multipart (texto plano + HTML cuando ambos existen).
func (s *SMTPSender) Send(to, subject, htmlBody, textBody string) error {
	log := logger.L().With(
		logger.Component("SMTPSender"),
		logger.String("host", s.Host),
		logger.String("to", to),
	)

	m := mail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)

	switch {
	case textBody != "" && htmlBody != "":
		m.SetBody("text/plain", textBody)
		m.AddAlternative("text/html", htmlBody)
	case htmlBody != "":
		m.SetBody("text/html", htmlBody)
	default:
		m.SetBody("text/plain", textBody)
	}

	if err := s.dialer().DialAndSend(m); err != nil {
		log.Error("smtp send failed", logger.Err(err))
		return fmt.Errorf("smtp send: %w", err)
	}
	log.Info("email sent", logger.String("subject", subject))
	return nil
}
