package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// UserDirectory resolves a user's email address.
type UserDirectory interface {
	LookupEmail(ctx context.Context, userID string) (email string, ok bool, err error)
}

// Mailer delivers one HTML email and must honour ctx.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// DispatchReport summarizes one pass over the email queue.
type DispatchReport struct {
	Disabled  bool `json:"disabled"`
	Attempted int  `json:"attempted"`
	Sent      int  `json:"sent"`
	Failed    int  `json:"failed"`
	Abandoned int  `json:"abandoned"`
}

// DispatcherOptions tunes a Dispatcher.
type DispatcherOptions struct {
	// OpsUserID, when set, receives an in-app error notification for every
	// abandoned email.
	OpsUserID string
}

// Dispatcher attempts delivery of due queue items with a bounded retry
// budget.
type Dispatcher struct {
	repo      *NotificationRepository
	service   *NotificationService
	directory UserDirectory
	mailer    Mailer
	metrics   *Metrics
	log       *zap.Logger
	opsUserID string
	now       func() time.Time

	// one pass at a time, so an item is never sent twice concurrently
	passMu sync.Mutex
}

func NewDispatcher(
	repo *NotificationRepository,
	service *NotificationService,
	directory UserDirectory,
	mailer Mailer,
	metrics *Metrics,
	log *zap.Logger,
	opts DispatcherOptions,
) *Dispatcher {
	return &Dispatcher{
		repo:      repo,
		service:   service,
		directory: directory,
		mailer:    mailer,
		metrics:   metrics,
		log:       log.Named("dispatcher"),
		opsUserID: opts.OpsUserID,
		now:       time.Now,
	}
}

// ProcessQueue makes one delivery attempt for every due item that is neither
// sent nor exhausted, in queue order, then records all outcomes in a single
// store transaction. If ctx is cancelled mid-pass the remaining items are
// left for the next pass and the outcomes gathered so far are still saved.
func (d *Dispatcher) ProcessQueue(ctx context.Context) (DispatchReport, error) {
	d.passMu.Lock()
	defer d.passMu.Unlock()

	var report DispatchReport
	items, settings, err := d.repo.PendingEmails(ctx, d.now())
	if err != nil {
		return report, fmt.Errorf("failed to load email queue: %w", err)
	}
	if !settings.EmailEnabled {
		report.Disabled = true
		d.log.Info("email disabled, skipping queue", zap.Int("due", len(items)))
		return report, nil
	}
	if len(items) == 0 {
		return report, nil
	}

	results := make([]DeliveryResult, 0, len(items))
	for _, item := range items {
		if ctx.Err() != nil {
			d.log.Warn("dispatch pass interrupted", zap.Int("remaining", len(items)-len(results)))
			break
		}
		sent := d.deliver(ctx, item)
		results = append(results, DeliveryResult{ItemID: item.ID, Sent: sent})
		report.Attempted++
		if sent {
			report.Sent++
		} else {
			report.Failed++
		}
	}

	// outcomes are recorded even when the caller's context is gone
	abandoned, err := d.repo.RecordDeliveries(context.WithoutCancel(ctx), results, d.now())
	if err != nil {
		return report, fmt.Errorf("failed to record deliveries: %w", err)
	}
	report.Abandoned = len(abandoned)
	for _, item := range abandoned {
		d.signalAbandoned(ctx, item)
	}

	d.log.Info("email queue processed",
		zap.Int("attempted", report.Attempted),
		zap.Int("sent", report.Sent),
		zap.Int("failed", report.Failed),
		zap.Int("abandoned", report.Abandoned),
	)
	return report, nil
}

func (d *Dispatcher) deliver(ctx context.Context, item EmailQueueItem) bool {
	log := d.log.With(zap.String("email_id", item.ID), zap.String("user_id", item.UserID), zap.Int("attempt", item.Attempts+1))

	to, ok, err := d.directory.LookupEmail(ctx, item.UserID)
	if err != nil {
		log.Error("recipient lookup failed", zap.Error(err))
		d.metrics.EmailsFailed.WithLabelValues(reasonDirectoryError).Inc()
		return false
	}
	if !ok {
		log.Warn("recipient has no email address")
		d.metrics.EmailsFailed.WithLabelValues(reasonRecipientNotFound).Inc()
		return false
	}

	body, err := renderEmailBody(item.Message)
	if err != nil {
		log.Error("failed to render email body", zap.Error(err))
		d.metrics.EmailsFailed.WithLabelValues(reasonTransport).Inc()
		return false
	}

	if err := d.mailer.Send(ctx, to, item.Title, body); err != nil {
		log.Warn("email delivery failed", zap.Error(err))
		d.metrics.EmailsFailed.WithLabelValues(reasonTransport).Inc()
		return false
	}
	log.Info("email delivered")
	d.metrics.EmailsSent.Inc()
	return true
}

// signalAbandoned runs once per item, when it is first seen exhausted.
func (d *Dispatcher) signalAbandoned(ctx context.Context, item EmailQueueItem) {
	d.metrics.EmailsAbandoned.Inc()
	d.log.Warn("email delivery abandoned",
		zap.String("email_id", item.ID),
		zap.String("notification_id", item.NotificationID),
		zap.String("user_id", item.UserID),
		zap.Int("attempts", item.Attempts),
	)
	if d.opsUserID == "" {
		return
	}
	_, err := d.service.Create(context.WithoutCancel(ctx), CreateInput{
		UserID:  d.opsUserID,
		Title:   "Email delivery abandoned",
		Message: fmt.Sprintf("Email %q to user %s was abandoned after %d attempts.", item.Title, item.UserID, item.Attempts),
		Type:    TypeError,
	})
	if err != nil {
		d.log.Error("failed to notify operator of abandoned email", zap.String("email_id", item.ID), zap.Error(err))
	}
}
