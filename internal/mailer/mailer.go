package mailer

import (
	"fmt"
	"net/smtp"

	"marketplace/internal/config"
)

// Mailer sends best-effort notification email over SMTP. Failures are
// returned to the caller, which logs and moves on; delivery is never part
// of a request's success.
type Mailer struct {
	cfg config.MailConfig
}

func New(cfg config.MailConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

// SendAssignmentNotice tells a seller they were selected for a project.
func (m *Mailer) SendAssignmentNotice(to, name, projectTitle string) error {
	subject := "Project Selected!"
	html := fmt.Sprintf(
		`<h2>Hello %s,</h2><p>You have been selected for: %s</p>`,
		name, projectTitle,
	)
	return m.send(to, subject, html)
}

func (m *Mailer) send(to, subject, html string) error {
	if m.cfg.SMTPHost == "" {
		// Mail is not configured in this environment; nothing to do.
		return nil
	}

	addr := m.cfg.SMTPHost + ":" + m.cfg.SMTPPort
	msg := "From: " + m.cfg.From + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=\"UTF-8\"\r\n" +
		"\r\n" +
		html

	auth := smtp.PlainAuth("", m.cfg.SMTPUser, m.cfg.SMTPPass, m.cfg.SMTPHost)
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}
