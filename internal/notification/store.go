package notification

import (
	"context"
	"errors"
)

var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrInvalidType          = errors.New("invalid notification type")
	ErrInvalidInput         = errors.New("invalid notification input")
	ErrStoreUnavailable     = errors.New("notification store unavailable")
)

// Store persists the whole Snapshot. Save is all-or-nothing: on error the
// previously persisted state is untouched.
type Store interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
}
