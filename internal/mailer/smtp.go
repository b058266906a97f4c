package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/clipstream/backend/internal/config"
)

// ErrNotConfigured indicates no SMTP relay has been configured.
var ErrNotConfigured = errors.New("mailer not configured")

// SMTPMailer delivers transactional mail through a plain SMTP relay.
type SMTPMailer struct {
	cfg     config.SMTPConfig
	timeout time.Duration
}

// NewSMTPMailer constructs a mailer for the provided relay configuration.
func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, timeout: 30 * time.Second}
}

// SendPasswordReset emails a reset link to the recipient.
func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, resetURL string) error {
	subject := "Reset your ClipStream password"
	body := fmt.Sprintf(
		"A password reset was requested for your account.\r\n\r\n"+
			"Open the link below to choose a new password. The link expires shortly and can be used once.\r\n\r\n%s\r\n\r\n"+
			"If you did not request this, you can ignore this message.\r\n",
		resetURL,
	)
	return m.send(ctx, to, subject, body)
}

func (m *SMTPMailer) send(ctx context.Context, to, subject, body string) error {
	if strings.TrimSpace(m.cfg.Host) == "" {
		return ErrNotConfigured
	}

	msg := m.buildMessage(to, subject, body)
	addr := net.JoinHostPort(m.cfg.Host, fmt.Sprintf("%d", m.cfg.Port))

	dialer := net.Dialer{Timeout: m.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial smtp relay %s: %w", addr, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(m.timeout))
	}

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		tlsCfg := &tls.Config{ServerName: m.cfg.Host, MinVersion: tls.VersionTLS12}
		if err := client.StartTLS(tlsCfg); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}

	if m.cfg.Username != "" {
		auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		_ = w.Close()
		return fmt.Errorf("smtp write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp finish body: %w", err)
	}

	return client.Quit()
}

func (m *SMTPMailer) buildMessage(to, subject, body string) string {
	var msg strings.Builder

	fromName := m.cfg.FromName
	if fromName == "" {
		fromName = "ClipStream"
	}

	msg.WriteString(fmt.Sprintf("From: %s <%s>\r\n", fromName, m.cfg.From))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	return msg.String()
}
