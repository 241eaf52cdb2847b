package services

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/gofiber/fiber/v2/log"
)

// SMTPConfig holds the SMTP server settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	AppName  string
}

// SMTPNotifier sends email over SMTP with STARTTLS
type SMTPNotifier struct {
	config SMTPConfig
}

// NewSMTPNotifier creates a new SMTP notifier
func NewSMTPNotifier(config SMTPConfig) *SMTPNotifier {
	if config.Port == 0 {
		config.Port = 587
	}
	return &SMTPNotifier{config: config}
}

// IsConfigured checks if SMTP is properly configured
func (e *SMTPNotifier) IsConfigured() bool {
	return e.config.Host != "" && e.config.Username != "" && e.config.Password != ""
}

// Send delivers the message. net/smtp has no context support, the context only
// short-circuits a request that was already cancelled.
func (e *SMTPNotifier) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", e.config.Host, e.config.Port)

	conn, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer conn.Close()

	if err := conn.StartTLS(&tls.Config{ServerName: e.config.Host}); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}

	auth := smtp.PlainAuth("", e.config.Username, e.config.Password, e.config.Host)
	if err := conn.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}

	if err := conn.Mail(e.config.From); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := conn.Rcpt(msg.To); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	w, err := conn.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}
	if _, err := w.Write([]byte(e.buildMessage(msg))); err != nil {
		return fmt.Errorf("failed to write email body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	conn.Quit()

	log.Infof("email sent to %s: %s", msg.To, msg.Subject)
	return nil
}

func (e *SMTPNotifier) buildMessage(msg Message) string {
	contentType, body := "text/plain; charset=UTF-8", msg.TextBody
	if msg.HTMLBody != "" {
		contentType, body = "text/html; charset=UTF-8", msg.HTMLBody
	}

	to := msg.To
	if msg.ToName != "" {
		to = fmt.Sprintf("%s <%s>", msg.ToName, msg.To)
	}

	headers := [][2]string{
		{"From", fmt.Sprintf("%s <%s>", e.config.AppName, e.config.From)},
		{"To", to},
		{"Subject", msg.Subject},
		{"MIME-Version", "1.0"},
		{"Content-Type", contentType},
	}

	var b strings.Builder
	for _, h := range headers {
		b.WriteString(h[0] + ": " + h[1] + "\r\n")
	}
	b.WriteString("\r\n")
	b.WriteString(body)
	return b.String()
}
