package notification

import (
	"fmt"
	"time"
)

// Type is the closed set of notification kinds. New kinds are added here and
// to knownTypes; nothing else accepts a free-form string.
type Type string

const (
	TypeInfo    Type = "info"
	TypeWarning Type = "warning"
	TypeSuccess Type = "success"
	TypeError   Type = "error"
	TypeGrade   Type = "grade"
	TypeEvent   Type = "event"
)

var knownTypes = map[Type]struct{}{
	TypeInfo:    {},
	TypeWarning: {},
	TypeSuccess: {},
	TypeError:   {},
	TypeGrade:   {},
	TypeEvent:   {},
}

func (t Type) Valid() bool {
	_, ok := knownTypes[t]
	return ok
}

// ParseType maps a raw string onto a Type. The empty string is info.
func ParseType(raw string) (Type, error) {
	if raw == "" {
		return TypeInfo, nil
	}
	t := Type(raw)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidType, raw)
	}
	return t, nil
}

// MaxEmailAttempts is the retry budget of a queued email.
const MaxEmailAttempts = 3

// Notification is an in-app message addressed to one user.
type Notification struct {
	ID           string     `json:"id" bson:"id"`
	UserID       string     `json:"user_id" bson:"user_id"`
	Title        string     `json:"title" bson:"title"`
	Message      string     `json:"message" bson:"message"`
	Type         Type       `json:"type" bson:"type"`
	Read         bool       `json:"read" bson:"read"`
	CreatedAt    time.Time  `json:"created_at" bson:"created_at"`
	ScheduledFor *time.Time `json:"scheduled_for" bson:"scheduled_for"` // hidden from the user until then
	Sent         bool       `json:"sent" bson:"sent"`                   // paired email was delivered
	DedupKey     string     `json:"dedup_key,omitempty" bson:"dedup_key,omitempty"`
}

// VisibleAt reports whether the notification may be listed at now.
func (n *Notification) VisibleAt(now time.Time) bool {
	return n.ScheduledFor == nil || !now.Before(*n.ScheduledFor)
}

// EmailQueueItem is an outbound email paired with a notification.
type EmailQueueItem struct {
	ID             string     `json:"id" bson:"id"`
	NotificationID string     `json:"notification_id,omitempty" bson:"notification_id,omitempty"`
	UserID         string     `json:"user_id" bson:"user_id"`
	Title          string     `json:"title" bson:"title"`
	Message        string     `json:"message" bson:"message"`
	ScheduledFor   *time.Time `json:"scheduled_for" bson:"scheduled_for"`
	Attempts       int        `json:"attempts" bson:"attempts"`
	Sent           bool       `json:"sent" bson:"sent"`
	CreatedAt      time.Time  `json:"created_at" bson:"created_at"`
	AbandonedAt    *time.Time `json:"abandoned_at,omitempty" bson:"abandoned_at,omitempty"`
}

// Pending reports whether the item may still be attempted.
func (e *EmailQueueItem) Pending() bool {
	return !e.Sent && e.Attempts < MaxEmailAttempts
}

// Exhausted reports whether the item used its whole budget without success.
func (e *EmailQueueItem) Exhausted() bool {
	return !e.Sent && e.Attempts >= MaxEmailAttempts
}

func (e *EmailQueueItem) DueAt(now time.Time) bool {
	return e.ScheduledFor == nil || !now.Before(*e.ScheduledFor)
}

// Settings are the process-wide delivery settings.
type Settings struct {
	EmailEnabled    bool   `json:"email_enabled" bson:"email_enabled"`
	ReminderHours   []int  `json:"reminder_hours" bson:"reminder_hours"`
	DailyDigestTime string `json:"daily_digest_time" bson:"daily_digest_time"` // reserved
}

func DefaultSettings() Settings {
	return Settings{
		EmailEnabled:    true,
		ReminderHours:   []int{24, 2},
		DailyDigestTime: "08:00",
	}
}

// Validate checks the lead times and the digest time.
func (s Settings) Validate() error {
	for _, h := range s.ReminderHours {
		if h <= 0 {
			return fmt.Errorf("%w: reminder hour %d must be positive", ErrInvalidInput, h)
		}
	}
	if s.DailyDigestTime != "" {
		if _, err := time.Parse("15:04", s.DailyDigestTime); err != nil {
			return fmt.Errorf("%w: daily_digest_time %q is not HH:MM", ErrInvalidInput, s.DailyDigestTime)
		}
	}
	return nil
}

// Snapshot is the whole persisted state, read and written as one unit.
type Snapshot struct {
	Notifications []Notification   `json:"notifications" bson:"notifications"`
	EmailQueue    []EmailQueueItem `json:"email_queue" bson:"email_queue"`
	Settings      Settings         `json:"settings" bson:"settings"`
}

// NewSnapshot returns the initial state. Stores decode into it so that keys
// missing from persisted data keep their defaults.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Notifications: []Notification{},
		EmailQueue:    []EmailQueueItem{},
		Settings:      DefaultSettings(),
	}
}

func (s *Snapshot) normalize() {
	if s.Notifications == nil {
		s.Notifications = []Notification{}
	}
	if s.EmailQueue == nil {
		s.EmailQueue = []EmailQueueItem{}
	}
	if s.Settings.ReminderHours == nil {
		s.Settings.ReminderHours = []int{}
	}
}

func (s *Snapshot) notificationIndex(id string) int {
	for i := range s.Notifications {
		if s.Notifications[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Snapshot) emailIndex(id string) int {
	for i := range s.EmailQueue {
		if s.EmailQueue[i].ID == id {
			return i
		}
	}
	return -1
}
