package mail

import (
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uzeed/uzeed/internal/pkg/config"
)

type capturedMail struct {
	addr string
	auth smtp.Auth
	from string
	to   []string
	msg  string
}

func newTestMailer(cfg config.MailConfig, captured *capturedMail, err error) *SMTPMailer {
	m := NewSMTPMailer(cfg)
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		*captured = capturedMail{addr: addr, auth: a, from: from, to: to, msg: string(msg)}
		return err
	}
	return m
}

func TestSMTPMailer_Send(t *testing.T) {
	var got capturedMail
	m := newTestMailer(config.MailConfig{Host: "smtp.test", Port: "587", Sender: "hola@uzeed.cl"}, &got, nil)

	require.NoError(t, m.Send("ana@example.com", "Tu membresía vence pronto", "<p>hola</p>"))

	assert.Equal(t, "smtp.test:587", got.addr)
	assert.Nil(t, got.auth)
	assert.Equal(t, "hola@uzeed.cl", got.from)
	assert.Equal(t, []string{"ana@example.com"}, got.to)
	assert.Contains(t, got.msg, "Subject: Tu membresía vence pronto\r\n")
	assert.True(t, strings.HasSuffix(got.msg, "\r\n\r\n<p>hola</p>"))
}

func TestSMTPMailer_AuthAndDefaults(t *testing.T) {
	var got capturedMail
	m := newTestMailer(config.MailConfig{Host: "smtp.test", Port: "25", Username: "u", Password: "p"}, &got, nil)

	require.NoError(t, m.Send("ana@example.com", "s", "b"))
	assert.NotNil(t, got.auth)
	assert.Equal(t, "no-reply@localhost", got.from)
}

func TestSMTPMailer_Errors(t *testing.T) {
	var got capturedMail

	m := newTestMailer(config.MailConfig{}, &got, nil)
	assert.ErrorIs(t, m.Send("ana@example.com", "s", "b"), ErrNotConfigured)

	m = newTestMailer(config.MailConfig{Host: "smtp.test", Port: "25"}, &got, nil)
	assert.Error(t, m.Send("  ", "s", "b"))

	boom := errors.New("connection refused")
	m = newTestMailer(config.MailConfig{Host: "smtp.test", Port: "25"}, &got, boom)
	assert.ErrorIs(t, m.Send("ana@example.com", "s", "b"), boom)
}

func TestBuildMessage_StripsHeaderInjection(t *testing.T) {
	msg := string(buildMessage("a@b.c", "x@y.z", "hi\r\nBcc: evil@example.com", "body"))
	assert.NotContains(t, msg, "\r\nBcc:")
}
