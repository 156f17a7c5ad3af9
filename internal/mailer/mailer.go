// Package mailer delivers templated one-time-code emails for account
// verification and password recovery.
package mailer

import (
	"fmt"
	"net/smtp"
	"os"

	"github.com/sirupsen/logrus"
)

// Mailer sends a templated message to a single address.
type Mailer interface {
	SendVerificationCode(to, username, code string) error
	SendRecoveryCode(to, username, code string) error
}

// SMTPMailer sends through a plain SMTP relay configured via SMTP_HOST,
// SMTP_PORT, SMTP_FROM, SMTP_USER and SMTP_PASSWORD.
type SMTPMailer struct {
	addr string
	from string
	auth smtp.Auth
}

// NewFromEnv returns an SMTPMailer when SMTP_HOST is set, otherwise a
// log-only mailer so development setups work without a relay.
func NewFromEnv(log *logrus.Logger) Mailer {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		log.Warn("SMTP_HOST not set, one-time codes will only be logged")
		return NewLogMailer(log)
	}

	port := os.Getenv("SMTP_PORT")
	if port == "" {
		port = "587"
	}

	var auth smtp.Auth
	if user := os.Getenv("SMTP_USER"); user != "" {
		auth = smtp.PlainAuth("", user, os.Getenv("SMTP_PASSWORD"), host)
	}

	return &SMTPMailer{
		addr: host + ":" + port,
		from: os.Getenv("SMTP_FROM"),
		auth: auth,
	}
}

func (m *SMTPMailer) send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		m.from, to, subject, body)
	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}

func (m *SMTPMailer) SendVerificationCode(to, username, code string) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nYour verification code is: %s\n\nIt expires in 30 minutes.",
		username, code)
	return m.send(to, "Verify your account", body)
}

func (m *SMTPMailer) SendRecoveryCode(to, username, code string) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nYour password recovery code is: %s\n\nIt expires in 30 minutes.\nIf you didn't request this, ignore this message.",
		username, code)
	return m.send(to, "Password recovery", body)
}

// LogMailer writes codes to the log instead of sending mail. Useful for
// development and tests.
type LogMailer struct {
	log *logrus.Logger
}

func NewLogMailer(log *logrus.Logger) *LogMailer {
	if log == nil {
		log = logrus.New()
	}
	return &LogMailer{log: log}
}

func (m *LogMailer) SendVerificationCode(to, username, code string) error {
	m.log.WithFields(logrus.Fields{"to": to, "user": username, "code": code}).
		Info("verification code issued")
	return nil
}

func (m *LogMailer) SendRecoveryCode(to, username, code string) error {
	m.log.WithFields(logrus.Fields{"to": to, "user": username, "code": code}).
		Info("recovery code issued")
	return nil
}
