// Package mail delivers password reset codes. The SMTP sender talks to
// a plain SMTP relay; the disabled sender logs codes for local setups
// without a relay.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
)

// Sender delivers a verification code to one recipient.
type Sender interface {
	SendVerificationCode(ctx context.Context, to, code string) error
}

// Config holds SMTP relay settings. An empty Host disables delivery.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// NewSender returns an SMTP sender, or the logging sender when no host
// is configured.
func NewSender(cfg Config) Sender {
	if cfg.Host == "" {
		return disabledSender{}
	}
	return &smtpSender{cfg: cfg}
}

type smtpSender struct {
	cfg Config
}

func (s *smtpSender) SendVerificationCode(ctx context.Context, to, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: Password Reset Code\r\n\r\n"+
		"Your password reset code is: %s\r\n\r\nThe code expires in 15 minutes.\r\n",
		s.cfg.From, to, code)

	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send reset code: %w", err)
	}
	return nil
}

type disabledSender struct{}

func (disabledSender) SendVerificationCode(_ context.Context, to, code string) error {
	slog.Info("mail delivery disabled, reset code logged instead", "to", to, "code", code)
	return nil
}
