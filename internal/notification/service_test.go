package notification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	typ, err := ParseType("")
	require.NoError(t, err)
	assert.Equal(t, TypeInfo, typ)

	typ, err = ParseType("grade")
	require.NoError(t, err)
	assert.Equal(t, TypeGrade, typ)

	_, err = ParseType("urgent")
	assert.ErrorIs(t, err, ErrInvalidType)
}

func TestCreateWithEmailIsOneSave(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.service.Create(ctx, CreateInput{
		UserID:    "aluno1",
		Title:     "Welcome",
		Message:   "Hello",
		SendEmail: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.saves)

	snap := f.store.snapshot(t)
	require.Len(t, snap.Notifications, 1)
	require.Len(t, snap.EmailQueue, 1)

	n := snap.Notifications[0]
	assert.Equal(t, id, n.ID)
	assert.Equal(t, TypeInfo, n.Type)
	assert.False(t, n.Read)
	assert.False(t, n.Sent)
	assert.True(t, n.CreatedAt.Equal(f.clock.Now()))

	item := snap.EmailQueue[0]
	assert.Equal(t, id, item.NotificationID)
	assert.Equal(t, "aluno1", item.UserID)
	assert.Equal(t, "Welcome", item.Title)
	assert.Equal(t, 0, item.Attempts)
	assert.False(t, item.Sent)
	assert.NotEqual(t, item.ID, n.ID)
}

func TestCreateWithoutEmail(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.Create(context.Background(), CreateInput{UserID: "aluno1", Title: "t", Message: "m"})
	require.NoError(t, err)
	snap := f.store.snapshot(t)
	assert.Len(t, snap.Notifications, 1)
	assert.Empty(t, snap.EmailQueue)
}

func TestCreateSaveFailureWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.store.failSave = true

	id, err := f.service.Create(context.Background(), CreateInput{UserID: "aluno1", Title: "t", Message: "m", SendEmail: true})
	assert.ErrorIs(t, err, errSaveFailed)
	assert.Empty(t, id)

	f.store.failSave = false
	snap := f.store.snapshot(t)
	assert.Empty(t, snap.Notifications)
	assert.Empty(t, snap.EmailQueue)
}

func TestCreateRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Create(ctx, CreateInput{UserID: "aluno1", Title: "t", Type: "urgent"})
	assert.ErrorIs(t, err, ErrInvalidType)

	_, err = f.service.Create(ctx, CreateInput{Title: "t"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.service.Create(ctx, CreateInput{UserID: "aluno1", Title: "  "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.Equal(t, 0, f.store.saves)
}

func TestCreateUniqueDeduplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := CreateInput{UserID: "aluno1", Title: "t", Message: "m", SendEmail: true, DedupKey: "k1"}

	first, created, err := f.service.CreateUnique(ctx, in)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := f.service.CreateUnique(ctx, in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first, second)

	snap := f.store.snapshot(t)
	assert.Len(t, snap.Notifications, 1)
	assert.Len(t, snap.EmailQueue, 1)
	assert.Equal(t, 1, f.store.saves)

	_, _, err = f.service.CreateUnique(ctx, CreateInput{UserID: "aluno1", Title: "t"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetUserNotifications(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	older, err := f.service.Create(ctx, CreateInput{UserID: "aluno1", Title: "older", Message: "m"})
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	newer, err := f.service.Create(ctx, CreateInput{UserID: "aluno1", Title: "newer", Message: "m"})
	require.NoError(t, err)
	_, err = f.service.Create(ctx, CreateInput{UserID: "aluno2", Title: "other user", Message: "m"})
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	later := f.clock.Now().Add(time.Hour)
	_, err = f.service.Create(ctx, CreateInput{UserID: "aluno1", Title: "scheduled", Message: "m", ScheduleFor: &later})
	require.NoError(t, err)

	list, err := f.service.GetUserNotifications(ctx, "aluno1", false)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer, list[0].ID)
	assert.Equal(t, older, list[1].ID)

	ok, err := f.service.MarkAsRead(ctx, "aluno1", newer)
	require.NoError(t, err)
	assert.True(t, ok)

	unread, err := f.service.GetUserNotifications(ctx, "aluno1", true)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, older, unread[0].ID)

	f.clock.Advance(2 * time.Hour)
	list, err = f.service.GetUserNotifications(ctx, "aluno1", false)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "scheduled", list[0].Title)

	empty, err := f.service.GetUserNotifications(ctx, "nobody", false)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestMarkAsRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.service.Create(ctx, CreateInput{UserID: "aluno1", Title: "t", Message: "m"})
	require.NoError(t, err)
	saves := f.store.saves

	ok, err := f.service.MarkAsRead(ctx, "aluno1", "notif_missing")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.service.MarkAsRead(ctx, "aluno2", id)
	require.NoError(t, err)
	assert.False(t, ok, "another user's notification")
	assert.Equal(t, saves, f.store.saves)
	assert.False(t, f.store.snapshot(t).Notifications[0].Read)

	ok, err = f.service.MarkAsRead(ctx, "aluno1", id)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, f.store.snapshot(t).Notifications[0].Read)

	ok, err = f.service.MarkAsRead(ctx, "aluno1", id)
	require.NoError(t, err)
	assert.True(t, ok, "already read is still success")
}

func TestMarkAsReadScheduledIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	later := f.clock.Now().Add(time.Hour)
	id, err := f.service.Create(ctx, CreateInput{UserID: "aluno1", Title: "t", Message: "m", ScheduleFor: &later})
	require.NoError(t, err)

	ok, err := f.service.MarkAsRead(ctx, "aluno1", id)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMarkAsReadSaveFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id, err := f.service.Create(ctx, CreateInput{UserID: "aluno1", Title: "t", Message: "m"})
	require.NoError(t, err)

	f.store.failSave = true
	_, err = f.service.MarkAsRead(ctx, "aluno1", id)
	assert.ErrorIs(t, err, errSaveFailed)
}

func TestMarkAllAsRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := f.service.Create(ctx, CreateInput{UserID: "aluno1", Title: "t", Message: "m"})
		require.NoError(t, err)
	}
	_, err := f.service.Create(ctx, CreateInput{UserID: "aluno2", Title: "t", Message: "m"})
	require.NoError(t, err)

	n, err := f.service.MarkAllAsRead(ctx, "aluno1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = f.service.MarkAllAsRead(ctx, "aluno1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	unread, err := f.service.GetUserNotifications(ctx, "aluno2", true)
	require.NoError(t, err)
	assert.Len(t, unread, 1)
}

func TestUpdateSettings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	settings, err := f.service.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), settings)

	updated, err := f.service.UpdateSettings(ctx, Settings{EmailEnabled: false, ReminderHours: []int{48}, DailyDigestTime: "07:30"})
	require.NoError(t, err)
	assert.Equal(t, []int{48}, updated.ReminderHours)

	settings, err = f.service.Settings(ctx)
	require.NoError(t, err)
	assert.False(t, settings.EmailEnabled)
	assert.Equal(t, "07:30", settings.DailyDigestTime)

	_, err = f.service.UpdateSettings(ctx, Settings{ReminderHours: []int{0}})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.service.UpdateSettings(ctx, Settings{DailyDigestTime: "25:99"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
