package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sahilchouksey/elms-api/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNotifierSelectsProvider(t *testing.T) {
	n, err := NewNotifier(&config.EnvironmentVariable{EMAIL_PROVIDER: "log"})
	require.NoError(t, err)
	assert.IsType(t, LogNotifier{}, n)

	n, err = NewNotifier(&config.EnvironmentVariable{EMAIL_PROVIDER: "sendgrid", SENDGRID_API_KEY: "SG.x", APP_NAME: "E-LMS", MAIL_FROM: "no-reply@elms.local"})
	require.NoError(t, err)
	assert.IsType(t, &SendgridNotifier{}, n)

	n, err = NewNotifier(&config.EnvironmentVariable{EMAIL_PROVIDER: "SMTP", SMTP_HOST: "smtp.example.com", SMTP_USERNAME: "u", SMTP_PASSWORD: "p"})
	require.NoError(t, err)
	assert.IsType(t, &SMTPNotifier{}, n)

	_, err = NewNotifier(&config.EnvironmentVariable{EMAIL_PROVIDER: "smtp"})
	assert.Error(t, err)

	_, err = NewNotifier(&config.EnvironmentVariable{EMAIL_PROVIDER: "sendgrid"})
	assert.Error(t, err)

	_, err = NewNotifier(&config.EnvironmentVariable{EMAIL_PROVIDER: "pigeon"})
	assert.Error(t, err)
}

func TestSMTPBuildMessage(t *testing.T) {
	n := NewSMTPNotifier(SMTPConfig{Host: "smtp.example.com", From: "no-reply@elms.local", AppName: "E-LMS"})
	assert.Equal(t, 587, n.config.Port)

	raw := n.buildMessage(Message{To: "asha@example.com", ToName: "Asha Rao", Subject: "Hi", TextBody: "hello"})

	assert.True(t, strings.HasPrefix(raw, "From: E-LMS <no-reply@elms.local>\r\n"))
	assert.Contains(t, raw, "To: Asha Rao <asha@example.com>\r\n")
	assert.Contains(t, raw, "Content-Type: text/plain; charset=UTF-8\r\n")
	assert.True(t, strings.HasSuffix(raw, "\r\n\r\nhello"))
}

func TestSendgridNotifierSend(t *testing.T) {
	var payload map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		assert.Equal(t, "Bearer SG.key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &payload))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n := NewSendgridNotifier("SG.key", "E-LMS", "no-reply@elms.local")
	n.host = srv.URL

	err := n.Send(context.Background(), Message{To: "asha@example.com", ToName: "Asha", Subject: "Welcome", TextBody: "hi"})
	require.NoError(t, err)

	personalizations := payload["personalizations"].([]interface{})
	first := personalizations[0].(map[string]interface{})
	assert.Equal(t, "[E-LMS] Welcome", first["subject"])
}

func TestSendgridNotifierReportsRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	}))
	defer srv.Close()

	n := NewSendgridNotifier("SG.bad", "E-LMS", "no-reply@elms.local")
	n.host = srv.URL

	err := n.Send(context.Background(), Message{To: "asha@example.com", Subject: "x", TextBody: "y"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestSendgridNotifierHonoursCancelledContext(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n := NewSendgridNotifier("SG.key", "E-LMS", "no-reply@elms.local")
	n.host = srv.URL

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := n.Send(ctx, Message{To: "asha@example.com", Subject: "x", TextBody: "y"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestAcceptanceMessageCarriesCredential(t *testing.T) {
	msg := acceptanceMessage("E-LMS", "http://localhost:3000", "asha@example.com", "Asha Rao", "asharao", "Secr3tPassw0")

	assert.Equal(t, "asha@example.com", msg.To)
	assert.Contains(t, msg.TextBody, "Username: asharao")
	assert.Contains(t, msg.TextBody, "Password: Secr3tPassw0")

	rej := rejectionMessage("E-LMS", "asha@example.com", "Asha Rao")
	assert.NotContains(t, rej.TextBody, "Password")
}
