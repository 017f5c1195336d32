// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package email dispatches localized account emails.
package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"codeberg.org/oliverandrich/talentgate-identity/internal/config"
	"codeberg.org/oliverandrich/talentgate-identity/internal/i18n"
	"github.com/wneessen/go-mail"
)

// Sender is the email collaborator of the auth and reset services.
type Sender interface {
	SendPasswordReset(ctx context.Context, to, name, code string, ttl time.Duration) error
	SendWelcome(ctx context.Context, to, name string) error
}

// Message is a rendered plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// PasswordResetMessage renders the reset email in the context's locale.
func PasswordResetMessage(ctx context.Context, to, name, code string, ttl time.Duration) Message {
	body := i18n.TData(ctx, "email_reset_body", map[string]any{
		"Name": displayName(name, to),
		"Code": code,
	})
	expiry := i18n.TPlural(ctx, "email_reset_expiry", int(ttl/time.Minute))
	return Message{
		To:      to,
		Subject: i18n.T(ctx, "email_reset_subject"),
		Body:    body + "\n\n" + expiry,
	}
}

// WelcomeMessage renders the welcome email in the context's locale.
func WelcomeMessage(ctx context.Context, to, name string) Message {
	return Message{
		To:      to,
		Subject: i18n.T(ctx, "email_welcome_subject"),
		Body: i18n.TData(ctx, "email_welcome_body", map[string]any{
			"Name":  displayName(name, to),
			"Email": to,
		}),
	}
}

func displayName(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}

// Service sends email via SMTP.
type Service struct {
	cfg *config.SMTPConfig
}

// NewService creates a new SMTP email service.
func NewService(cfg *config.SMTPConfig) (*Service, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP from address is required")
	}

	return &Service{cfg: cfg}, nil
}

// SendPasswordReset sends a reset code.
func (s *Service) SendPasswordReset(ctx context.Context, to, name, code string, ttl time.Duration) error {
	return s.send(ctx, PasswordResetMessage(ctx, to, name, code, ttl))
}

// SendWelcome greets a newly registered account.
func (s *Service) SendWelcome(ctx context.Context, to, name string) error {
	return s.send(ctx, WelcomeMessage(ctx, to, name))
}

// Build converts a message into a go-mail message with the configured sender.
func (s *Service) Build(m Message) (*mail.Msg, error) {
	msg := mail.NewMsg()

	if s.cfg.FromName != "" {
		if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
			return nil, fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := msg.From(s.cfg.From); err != nil {
			return nil, fmt.Errorf("setting from address: %w", err)
		}
	}

	if err := msg.To(m.To); err != nil {
		return nil, fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(m.Subject)
	msg.SetBodyString(mail.TypeTextPlain, m.Body)
	return msg, nil
}

// send sends an email via SMTP using go-mail.
func (s *Service) send(ctx context.Context, m Message) error {
	msg, err := s.Build(m)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
	}

	// Configure TLS based on config and port
	if s.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		// Use implicit TLS (SSL) for port 465, STARTTLS for others
		if s.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	if s.cfg.Username != "" && s.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}

// LogSender writes emails to the log instead of sending them. Used when no
// SMTP host is configured.
type LogSender struct{}

func (LogSender) SendPasswordReset(ctx context.Context, to, _, _ string, ttl time.Duration) error {
	// The code itself is never logged.
	slog.InfoContext(ctx, "email_logged", "kind", "password_reset", "to", to, "ttl", ttl)
	return nil
}

func (LogSender) SendWelcome(ctx context.Context, to, _ string) error {
	slog.InfoContext(ctx, "email_logged", "kind", "welcome", "to", to)
	return nil
}

// New returns an SMTP sender, or a LogSender when no host is configured.
func New(cfg *config.SMTPConfig) (Sender, error) {
	if cfg.Host == "" {
		slog.Warn("SMTP not configured, emails will only be logged")
		return LogSender{}, nil
	}
	return NewService(cfg)
}
