// Package mail delivers rendered emails through SMTP or the Resend API.
package mail

import (
	"context"
	"errors"
	"fmt"

	"PlannerEdu/internal/config"

	"go.uber.org/zap"
)

// ErrCredentialsMissing is returned when the transport has no credentials.
var ErrCredentialsMissing = errors.New("email credentials not configured")

// Sender delivers one HTML email.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// NewSender builds the transport selected by EMAIL_PROVIDER.
func NewSender(cfg *config.EmailConfig, log *zap.Logger) (Sender, error) {
	log = log.Named("mail")
	switch cfg.Provider {
	case config.EmailProviderSMTP:
		if cfg.Password == "" {
			log.Warn("EMAIL_PASSWORD not set, every SMTP send will fail")
		}
		return NewSMTPSender(cfg, log), nil
	case config.EmailProviderResend:
		return NewResendSender(cfg, log), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
}
