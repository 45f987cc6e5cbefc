package config

import (
	"fmt"
	"time"
)

const (
	EmailProviderSMTP   = "smtp"
	EmailProviderResend = "resend"
)

// EmailConfig configures the outbound mail transport.
type EmailConfig struct {
	Provider string

	SMTPServer string
	SMTPPort   int
	User       string
	Password   string

	ResendAPIKey string

	From    string
	Timeout time.Duration
}

func NewEmailConfig() (*EmailConfig, error) {
	port, err := getEnvAsInt("SMTP_PORT", 587)
	if err != nil {
		return nil, err
	}
	timeout, err := getEnvAsDuration("EMAIL_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	user := getEnv("EMAIL_USER", "sistema@escola.edu.br")
	cfg := &EmailConfig{
		Provider:     getEnv("EMAIL_PROVIDER", EmailProviderSMTP),
		SMTPServer:   getEnv("SMTP_SERVER", "smtp.gmail.com"),
		SMTPPort:     port,
		User:         user,
		Password:     getEnv("EMAIL_PASSWORD", ""),
		ResendAPIKey: getEnv("RESEND_API_KEY", ""),
		From:         getEnv("FROM_EMAIL", user),
		Timeout:      timeout,
	}

	switch cfg.Provider {
	case EmailProviderSMTP:
	case EmailProviderResend:
		if cfg.ResendAPIKey == "" {
			return nil, fmt.Errorf("RESEND_API_KEY not set for EMAIL_PROVIDER=%s", cfg.Provider)
		}
	default:
		return nil, fmt.Errorf("unknown EMAIL_PROVIDER %q", cfg.Provider)
	}
	return cfg, nil
}
