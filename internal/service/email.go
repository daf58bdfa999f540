package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/resend/resend-go/v2"
)

// EmailService delivers reset links through Resend. In development it
// only logs the link.
type EmailService struct {
	client    *resend.Client
	fromEmail string
	isDev     bool
	appURL    string
	appName   string
	resetTTL  time.Duration
}

func NewEmailService(apiKey, fromEmail, appURL, appName string, resetTTL time.Duration, isDev bool) *EmailService {
	var client *resend.Client
	if apiKey != "" && !isDev {
		client = resend.NewClient(apiKey)
	}

	return &EmailService{
		client:    client,
		fromEmail: fromEmail,
		isDev:     isDev,
		appURL:    appURL,
		appName:   appName,
		resetTTL:  resetTTL,
	}
}

func (s *EmailService) resetURL(token string) string {
	return fmt.Sprintf("%s/reset-password?token=%s", s.appURL, url.QueryEscape(token))
}

func (s *EmailService) SendPasswordReset(ctx context.Context, email, token string) error {
	resetURL := s.resetURL(token)
	subject, body := passwordResetEmailTemplate(resetURL, s.appName, s.resetTTL)

	if s.isDev {
		slog.Info("email sent (dev mode)", "type", "password_reset", "to", email, "subject", subject, "url", resetURL)
		return nil
	}

	if s.client == nil {
		return fmt.Errorf("email service not configured (missing RESEND_API_KEY)")
	}

	params := &resend.SendEmailRequest{
		From:    s.fromEmail,
		To:      []string{email},
		Subject: subject,
		Text:    body,
	}

	_, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to send password reset email: %w", err)
	}

	slog.Info("email sent", "type", "password_reset", "to", email)
	return nil
}
