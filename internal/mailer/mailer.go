package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"net/smtp"
	"strings"
)

// ErrDisabled signals that SMTP delivery is switched off via configuration.
// Callers treat a failed send as a logged, non-fatal side effect, so a
// disabled mailer simply means every code travels out-of-band.
var ErrDisabled = errors.New("mailer: delivery disabled")

// Mailer sends transactional messages. Sends are fire-and-forget from the
// caller's perspective; a failure never rolls back the state transition that
// triggered it.
type Mailer interface {
	SendInviteCode(ctx context.Context, email, name, code string) error
}

// SMTPConfig captures the runtime configuration for the SMTP mailer.
type SMTPConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type smtpMailer struct {
	cfg SMTPConfig
}

// NewSMTPMailer validates the configuration and returns an SMTP-backed Mailer.
func NewSMTPMailer(cfg SMTPConfig) (Mailer, error) {
	if cfg.Enabled {
		if cfg.Host == "" {
			return nil, errors.New("mailer: host is required")
		}
		if cfg.From == "" {
			return nil, errors.New("mailer: from address is required")
		}
		if _, err := mail.ParseAddress(cfg.From); err != nil {
			return nil, fmt.Errorf("mailer: invalid from address: %w", err)
		}
	}
	return &smtpMailer{cfg: cfg}, nil
}

// SendInviteCode delivers a connection invite code to the client.
func (m *smtpMailer) SendInviteCode(ctx context.Context, email, name, code string) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("mailer: invalid recipient address %q: %w", email, err)
	}

	msg := buildInviteMessage(m.cfg.From, email, name, code)
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	// net/smtp has no context support; honor cancellation before dialing.
	if err := ctx.Err(); err != nil {
		return err
	}
	return smtp.SendMail(addr, auth, m.cfg.From, []string{email}, msg)
}

func buildInviteMessage(from, to, name, code string) []byte {
	greeting := "Hi"
	if name != "" {
		greeting = "Hi " + name
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	b.WriteString("Subject: Your coach connection code\r\n")
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	fmt.Fprintf(&b, "%s,\r\n\r\n", greeting)
	fmt.Fprintf(&b, "Your coach approved the connection request. Enter this code in the app to finish linking your accounts:\r\n\r\n    %s\r\n\r\n", code)
	b.WriteString("The code expires after a short while; if it stops working, ask your coach to resend it. If you did not request this, you can ignore this message.\r\n")
	return []byte(b.String())
}
