package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// CreateInput describes a notification to create.
type CreateInput struct {
	UserID      string     `json:"user_id" validate:"required"`
	Title       string     `json:"title" validate:"required"`
	Message     string     `json:"message" validate:"required"`
	Type        Type       `json:"type"`
	SendEmail   bool       `json:"send_email"`
	ScheduleFor *time.Time `json:"schedule_for"`

	// DedupKey makes creation idempotent for the same key.
	DedupKey string `json:"-"`
}

func (in *CreateInput) validate() error {
	if strings.TrimSpace(in.UserID) == "" {
		return fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	t, err := ParseType(string(in.Type))
	if err != nil {
		return err
	}
	in.Type = t
	return nil
}

// NotificationService creates notifications and serves them to their owners.
type NotificationService struct {
	repo *NotificationRepository
	log  *zap.Logger
	now  func() time.Time
}

func NewNotificationService(repo *NotificationRepository, log *zap.Logger) *NotificationService {
	return &NotificationService{repo: repo, log: log.Named("notifications"), now: time.Now}
}

// Create stores a notification and, if requested, its queued email, in one
// store transaction. It returns the new notification id.
func (s *NotificationService) Create(ctx context.Context, in CreateInput) (string, error) {
	id, _, err := s.create(ctx, in)
	return id, err
}

// CreateUnique is Create keyed on in.DedupKey: when a notification with the
// same key exists nothing is written and created is false.
func (s *NotificationService) CreateUnique(ctx context.Context, in CreateInput) (id string, created bool, err error) {
	if in.DedupKey == "" {
		return "", false, fmt.Errorf("%w: dedup key is required", ErrInvalidInput)
	}
	return s.create(ctx, in)
}

func (s *NotificationService) create(ctx context.Context, in CreateInput) (string, bool, error) {
	if err := in.validate(); err != nil {
		return "", false, err
	}

	now := s.now()
	var scheduled *time.Time
	if in.ScheduleFor != nil {
		at := *in.ScheduleFor
		scheduled = &at
	}

	n := Notification{
		UserID:       in.UserID,
		Title:        in.Title,
		Message:      in.Message,
		Type:         in.Type,
		CreatedAt:    now,
		ScheduledFor: scheduled,
		DedupKey:     in.DedupKey,
	}
	var email *EmailQueueItem
	if in.SendEmail {
		email = &EmailQueueItem{
			UserID:       in.UserID,
			Title:        in.Title,
			Message:      in.Message,
			ScheduledFor: scheduled,
			CreatedAt:    now,
		}
	}

	id, created, err := s.repo.CreateNotification(ctx, n, email)
	if err != nil {
		return "", false, fmt.Errorf("failed to create notification: %w", err)
	}
	if created {
		s.log.Debug("notification created",
			zap.String("id", id),
			zap.String("user_id", in.UserID),
			zap.String("type", string(in.Type)),
			zap.Bool("email", in.SendEmail),
		)
	}
	return id, created, nil
}

// GetUserNotifications lists the caller's visible notifications, newest
// first.
func (s *NotificationService) GetUserNotifications(ctx context.Context, userID string, unreadOnly bool) ([]Notification, error) {
	return s.repo.ListForUser(ctx, userID, unreadOnly, s.now())
}

// MarkAsRead reports false when the notification does not exist or is not
// the caller's.
func (s *NotificationService) MarkAsRead(ctx context.Context, userID, notificationID string) (bool, error) {
	err := s.repo.MarkAsRead(ctx, notificationID, userID, s.now())
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotificationNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("failed to mark notification as read: %w", err)
	}
}

// MarkAllAsRead marks every visible notification of the caller as read.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID string) (int, error) {
	return s.repo.MarkAllAsRead(ctx, userID, s.now())
}

func (s *NotificationService) Settings(ctx context.Context) (Settings, error) {
	return s.repo.Settings(ctx)
}

// UpdateSettings validates and replaces the delivery settings.
func (s *NotificationService) UpdateSettings(ctx context.Context, settings Settings) (Settings, error) {
	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	if settings.ReminderHours == nil {
		settings.ReminderHours = []int{}
	}
	if err := s.repo.SaveSettings(ctx, settings); err != nil {
		return Settings{}, fmt.Errorf("failed to save settings: %w", err)
	}
	s.log.Info("settings updated",
		zap.Bool("email_enabled", settings.EmailEnabled),
		zap.Ints("reminder_hours", settings.ReminderHours),
	)
	return settings, nil
}
