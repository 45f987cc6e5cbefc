package mail

import (
	"context"
	"fmt"
	"time"

	"PlannerEdu/internal/config"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

// ResendSender sends through the Resend HTTP API.
type ResendSender struct {
	client  *resend.Client
	from    string
	timeout time.Duration
	log     *zap.Logger
}

func NewResendSender(cfg *config.EmailConfig, log *zap.Logger) *ResendSender {
	return &ResendSender{
		client:  resend.NewClient(cfg.ResendAPIKey),
		from:    cfg.From,
		timeout: cfg.Timeout,
		log:     log,
	}
}

func (s *ResendSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		Html:    htmlBody,
	})
	if err != nil {
		return fmt.Errorf("failed to send email via resend: %w", err)
	}
	s.log.Debug("email sent", zap.String("to", to), zap.String("transport", "resend"), zap.String("id", resp.Id))
	return nil
}
