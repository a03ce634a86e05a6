package mail

import (
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/gofiber/fiber/v2/log"

	"github.com/uzeed/uzeed/internal/pkg/config"
)

var ErrNotConfigured = errors.New("smtp host not configured")

// Sender delivers one email. The outbox dispatcher and the reminder job depend
// on this instead of SMTP directly.
type Sender interface {
	Send(to, subject, body string) error
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends HTML emails via SMTP
type SMTPMailer struct {
	cfg  config.MailConfig
	send sendFunc
}

func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	if cfg.Sender == "" {
		cfg.Sender = "no-reply@localhost"
		log.Warnf("[Mail] SMTP_SENDER not set, using default sender: %s", cfg.Sender)
	}
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail}
}

func (m *SMTPMailer) Send(to, subject, body string) error {
	if m.cfg.Host == "" {
		return ErrNotConfigured
	}
	if strings.TrimSpace(to) == "" {
		return errors.New("empty recipient")
	}

	var auth smtp.Auth
	if m.cfg.Username != "" && m.cfg.Password != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	addr := fmt.Sprintf("%s:%s", m.cfg.Host, m.cfg.Port)
	msg := buildMessage(m.cfg.Sender, to, subject, body)

	if err := m.send(addr, auth, m.cfg.Sender, []string{to}, msg); err != nil {
		log.Errorf("[Mail] SMTP send to %s failed: %v", to, err)
		return err
	}
	log.Infof("[Mail] Email sent to %s via %s", to, addr)
	return nil
}

// headers must not carry line breaks from user input
func sanitizeHeader(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}

func buildMessage(from, to, subject, body string) []byte {
	return []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", sanitizeHeader(from), sanitizeHeader(to), sanitizeHeader(subject)) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
			body,
	)
}
