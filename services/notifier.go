package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/elms-api/config"
)

// Message is one outbound email
type Message struct {
	To       string
	ToName   string
	Subject  string
	TextBody string
	HTMLBody string
}

// Notifier delivers messages to applicants and users
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// LogNotifier is used in development. It logs who would have been emailed, never the body,
// because acceptance mails carry a generated credential.
type LogNotifier struct{}

func (LogNotifier) Send(_ context.Context, msg Message) error {
	log.Infof("email (log provider) to=%s subject=%q", msg.To, msg.Subject)
	return nil
}

// NewNotifier picks the provider named by EMAIL_PROVIDER
func NewNotifier(cfg *config.EnvironmentVariable) (Notifier, error) {
	switch strings.ToLower(cfg.EMAIL_PROVIDER) {
	case "", "log":
		return LogNotifier{}, nil
	case "smtp":
		n := NewSMTPNotifier(SMTPConfig{
			Host:     cfg.SMTP_HOST,
			Port:     cfg.SMTP_PORT,
			Username: cfg.SMTP_USERNAME,
			Password: cfg.SMTP_PASSWORD,
			From:     cfg.MAIL_FROM,
			AppName:  cfg.APP_NAME,
		})
		if !n.IsConfigured() {
			return nil, fmt.Errorf("EMAIL_PROVIDER=smtp requires SMTP_USERNAME and SMTP_PASSWORD")
		}
		return n, nil
	case "sendgrid":
		if cfg.SENDGRID_API_KEY == "" {
			return nil, fmt.Errorf("EMAIL_PROVIDER=sendgrid requires SENDGRID_API_KEY")
		}
		return NewSendgridNotifier(cfg.SENDGRID_API_KEY, cfg.APP_NAME, cfg.MAIL_FROM), nil
	default:
		return nil, fmt.Errorf("unknown EMAIL_PROVIDER %q", cfg.EMAIL_PROVIDER)
	}
}

func acceptanceMessage(appName, appURL, to, name, username, credential string) Message {
	subject := fmt.Sprintf("Your teacher application was accepted - %s", appName)
	text := fmt.Sprintf(`Hello %s,

Your application to teach on %s has been accepted.

You can now sign in at %s/login with:

  Username: %s
  Email:    %s
  Password: %s

Please change this password after your first login.

%s`, name, appName, appURL, username, to, credential, appName)

	return Message{To: to, ToName: name, Subject: subject, TextBody: text}
}

func rejectionMessage(appName, to, name string) Message {
	subject := fmt.Sprintf("Your teacher application - %s", appName)
	text := fmt.Sprintf(`Hello %s,

Thank you for applying to teach on %s. After reviewing your application we are
unable to accept it at this time.

%s`, name, appName, appName)

	return Message{To: to, ToName: name, Subject: subject, TextBody: text}
}
