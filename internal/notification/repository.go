package notification

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// errNoChanges tells Update that the mutation left the snapshot untouched
// and must not be saved.
var errNoChanges = errors.New("no changes")

// NotificationRepository serializes every access to the Store. Each call is
// a full load, mutate and save cycle. Nothing is cached between calls.
type NotificationRepository struct {
	store Store
	mu    sync.RWMutex
	newID func() string
}

// NewNotificationRepository wraps a Store backend.
func NewNotificationRepository(store Store) *NotificationRepository {
	return &NotificationRepository{store: store, newID: uuid.NewString}
}

// View loads the current snapshot and hands it to fn.
func (r *NotificationRepository) View(ctx context.Context, fn func(*Snapshot) error) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap, err := r.store.Load(ctx)
	if err != nil {
		return err
	}
	return fn(snap)
}

// Update runs fn on the latest snapshot and saves the result. When fn fails
// nothing is saved.
func (r *NotificationRepository) Update(ctx context.Context, fn func(*Snapshot) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap, err := r.store.Load(ctx)
	if err != nil {
		return err
	}
	if err := fn(snap); err != nil {
		if errors.Is(err, errNoChanges) {
			return nil
		}
		return err
	}
	return r.store.Save(ctx, snap)
}

func (r *NotificationRepository) uniqueNotificationID(snap *Snapshot) string {
	for {
		id := "notif_" + r.newID()
		if snap.notificationIndex(id) < 0 {
			return id
		}
	}
}

func (r *NotificationRepository) uniqueEmailID(snap *Snapshot) string {
	for {
		id := "email_" + r.newID()
		if snap.emailIndex(id) < 0 {
			return id
		}
	}
}

// CreateNotification stores n and, when email is non-nil, its paired queue
// item in the same save. Ids are assigned here. A non-empty DedupKey that is
// already stored makes the call a no-op returning the existing id with
// created=false.
func (r *NotificationRepository) CreateNotification(ctx context.Context, n Notification, email *EmailQueueItem) (id string, created bool, err error) {
	err = r.Update(ctx, func(snap *Snapshot) error {
		if n.DedupKey != "" {
			for i := range snap.Notifications {
				if snap.Notifications[i].DedupKey == n.DedupKey {
					id = snap.Notifications[i].ID
					return errNoChanges
				}
			}
		}

		n.ID = r.uniqueNotificationID(snap)
		snap.Notifications = append(snap.Notifications, n)
		if email != nil {
			item := *email
			item.ID = r.uniqueEmailID(snap)
			item.NotificationID = n.ID
			snap.EmailQueue = append(snap.EmailQueue, item)
		}
		id, created = n.ID, true
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return id, created, nil
}

// ListForUser returns the user's notifications visible at now, newest first.
func (r *NotificationRepository) ListForUser(ctx context.Context, userID string, unreadOnly bool, now time.Time) ([]Notification, error) {
	out := []Notification{}
	err := r.View(ctx, func(snap *Snapshot) error {
		for _, n := range snap.Notifications {
			if n.UserID != userID {
				continue
			}
			if unreadOnly && n.Read {
				continue
			}
			if !n.VisibleAt(now) {
				continue
			}
			out = append(out, n)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// MarkAsRead flips read on a notification owned by userID. Unknown ids,
// notifications of other users and those still scheduled all yield
// ErrNotificationNotFound.
func (r *NotificationRepository) MarkAsRead(ctx context.Context, id, userID string, now time.Time) error {
	return r.Update(ctx, func(snap *Snapshot) error {
		i := snap.notificationIndex(id)
		if i < 0 || snap.Notifications[i].UserID != userID || !snap.Notifications[i].VisibleAt(now) {
			return ErrNotificationNotFound
		}
		if snap.Notifications[i].Read {
			return errNoChanges
		}
		snap.Notifications[i].Read = true
		return nil
	})
}

// MarkAllAsRead flips read on every notification of userID visible at now
// and returns how many changed.
func (r *NotificationRepository) MarkAllAsRead(ctx context.Context, userID string, now time.Time) (int, error) {
	changed := 0
	err := r.Update(ctx, func(snap *Snapshot) error {
		for i := range snap.Notifications {
			n := &snap.Notifications[i]
			if n.UserID == userID && !n.Read && n.VisibleAt(now) {
				n.Read = true
				changed++
			}
		}
		if changed == 0 {
			return errNoChanges
		}
		return nil
	})
	return changed, err
}

// PendingEmails returns, in queue order, the items that are due at now and
// still inside their retry budget, together with the current settings.
func (r *NotificationRepository) PendingEmails(ctx context.Context, now time.Time) ([]EmailQueueItem, Settings, error) {
	var (
		items    []EmailQueueItem
		settings Settings
	)
	err := r.View(ctx, func(snap *Snapshot) error {
		settings = snap.Settings
		for _, item := range snap.EmailQueue {
			if item.Pending() && item.DueAt(now) {
				items = append(items, item)
			}
		}
		return nil
	})
	return items, settings, err
}

// DeliveryResult is the outcome of one dispatch attempt.
type DeliveryResult struct {
	ItemID string
	Sent   bool
}

// RecordDeliveries applies a whole pass of results in one save. Every result
// consumes one attempt; items that became terminal in the meantime are left
// alone. Items that exhaust their budget get AbandonedAt and are returned.
func (r *NotificationRepository) RecordDeliveries(ctx context.Context, results []DeliveryResult, now time.Time) ([]EmailQueueItem, error) {
	if len(results) == 0 {
		return nil, nil
	}
	var abandoned []EmailQueueItem
	err := r.Update(ctx, func(snap *Snapshot) error {
		changed := false
		for _, res := range results {
			i := snap.emailIndex(res.ItemID)
			if i < 0 {
				continue
			}
			item := &snap.EmailQueue[i]
			if !item.Pending() {
				continue
			}
			item.Attempts++
			changed = true
			if res.Sent {
				item.Sent = true
				if j := snap.notificationIndex(item.NotificationID); j >= 0 {
					snap.Notifications[j].Sent = true
				}
				continue
			}
			if item.Exhausted() && item.AbandonedAt == nil {
				at := now
				item.AbandonedAt = &at
				abandoned = append(abandoned, *item)
			}
		}
		if !changed {
			return errNoChanges
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return abandoned, nil
}

// Settings returns the stored delivery settings.
func (r *NotificationRepository) Settings(ctx context.Context) (Settings, error) {
	var settings Settings
	err := r.View(ctx, func(snap *Snapshot) error {
		settings = snap.Settings
		return nil
	})
	return settings, err
}

// SaveSettings replaces the stored delivery settings.
func (r *NotificationRepository) SaveSettings(ctx context.Context, settings Settings) error {
	return r.Update(ctx, func(snap *Snapshot) error {
		snap.Settings = settings
		return nil
	})
}
