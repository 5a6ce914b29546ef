package email

import (
	"fmt"
	"net/url"
	"time"

	"github.com/BloodyDerby/biosentiers-backend/internal/observability/logger"
)

// Mailer arma y envía los correos transaccionales de la API.
type Mailer struct {
	sender  Sender
	baseURL string

	// DebugEchoLinks evita el envío real y expone el link en la respuesta
	// y en los logs. Solo para desarrollo.
	DebugEchoLinks bool
}

// NewMailer crea un mailer sobre el sender dado. baseURL apunta al cliente
// web que consume los links (sin slash final).
func NewMailer(sender Sender, baseURL string) *Mailer {
	return &Mailer{sender: sender, baseURL: baseURL}
}

// InvitationLink arma el link de registro con el token de invitación.
func (m *Mailer) InvitationLink(token string) string {
	return fmt.Sprintf("%s/register?invitation=%s", m.baseURL, url.QueryEscape(token))
}

// PasswordResetLink arma el link de reseteo con el token.
func (m *Mailer) PasswordResetLink(token string) string {
	return fmt.Sprintf("%s/reset-password?token=%s", m.baseURL, url.QueryEscape(token))
}

// SendInvitation envía la invitación y devuelve el link generado.
func (m *Mailer) SendInvitation(to, firstName, role, token string, validity time.Duration) (string, error) {
	link := m.InvitationLink(token)
	vars := templateVars{
		FirstName: firstName,
		Role:      role,
		Link:      link,
		Validity:  validity.String(),
	}
	if m.DebugEchoLinks {
		logger.L().Info("invitation link (debug echo)",
			logger.Component("mailer"),
			logger.String("to", to),
			logger.String("link", link),
		)
		return link, nil
	}

	text, err := render(invitationText, vars)
	if err != nil {
		return "", err
	}
	html, err := render(invitationHTML, vars)
	if err != nil {
		return "", err
	}
	if err := m.sender.Send(to, "Invitation to BioSentiers", html, text); err != nil {
		return "", err
	}
	return link, nil
}

// SendPasswordReset envía el correo de reseteo y devuelve el link generado.
func (m *Mailer) SendPasswordReset(to, firstName, token string, validity time.Duration) (string, error) {
	link := m.PasswordResetLink(token)
	vars := templateVars{
		FirstName: firstName,
		Link:      link,
		Validity:  validity.String(),
	}
	if m.DebugEchoLinks {
		logger.L().Info("password reset link (debug echo)",
			logger.Component("mailer"),
			logger.String("to", to),
			logger.String("link", link),
		)
		return link, nil
	}

	text, err := render(passwordResetText, vars)
	if err != nil {
		return "", err
	}
	html, err := render(passwordResetHTML, vars)
	if err != nil {
		return "", err
	}
	if err := m.sender.Send(to, "BioSentiers password reset", html, text); err != nil {
		return "", err
	}
	return link, nil
}
