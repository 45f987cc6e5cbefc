package notification

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"PlannerEdu/internal/calendar"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errSaveFailed = errors.New("disk full")

// memStore round-trips snapshots through JSON so tests never share slices
// with the repository.
type memStore struct {
	mu       sync.Mutex
	data     []byte
	failSave bool
	saves    int
}

func (m *memStore) Load(ctx context.Context) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := NewSnapshot()
	if m.data == nil {
		return snap, nil
	}
	if err := json.Unmarshal(m.data, snap); err != nil {
		return nil, err
	}
	snap.normalize()
	return snap, nil
}

func (m *memStore) Save(ctx context.Context, snap *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return errSaveFailed
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	m.data = data
	m.saves++
	return nil
}

func (m *memStore) snapshot(t *testing.T) *Snapshot {
	t.Helper()
	snap, err := m.Load(context.Background())
	require.NoError(t, err)
	return snap
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeDirectory struct {
	emails map[string]string
	err    error
}

func (d *fakeDirectory) LookupEmail(ctx context.Context, userID string) (string, bool, error) {
	if d.err != nil {
		return "", false, d.err
	}
	email, ok := d.emails[userID]
	return email, ok, nil
}

type sentMail struct {
	To, Subject, Body string
}

// fakeMailer fails the first failN sends, then succeeds.
type fakeMailer struct {
	mu    sync.Mutex
	failN int
	calls int
	sent  []sentMail
}

func (m *fakeMailer) Send(ctx context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.calls <= m.failN {
		return errors.New("smtp: connection refused")
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

type fakeCalendar struct {
	events  []calendar.Event
	rosters map[string][]string
}

func (f *fakeCalendar) ListEvents(ctx context.Context) ([]calendar.Event, error) {
	return f.events, nil
}

func (f *fakeCalendar) StudentsOf(ctx context.Context, classID string) ([]string, error) {
	students, ok := f.rosters[classID]
	if !ok {
		return nil, calendar.ErrClassNotFound
	}
	return students, nil
}

type fixture struct {
	store   *memStore
	clock   *clock
	repo    *NotificationRepository
	service *NotificationService
	metrics *Metrics
	log     *zap.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := &memStore{}
	clk := &clock{now: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)}
	repo := NewNotificationRepository(store)
	log := zap.NewNop()
	service := NewNotificationService(repo, log)
	service.now = clk.Now
	return &fixture{
		store:   store,
		clock:   clk,
		repo:    repo,
		service: service,
		metrics: NewMetrics(prometheus.NewRegistry()),
		log:     log,
	}
}

func (f *fixture) dispatcher(dir UserDirectory, mailer Mailer, opts DispatcherOptions) *Dispatcher {
	d := NewDispatcher(f.repo, f.service, dir, mailer, f.metrics, f.log, opts)
	d.now = f.clock.Now
	return d
}

func (f *fixture) planner(cal *fakeCalendar) *Planner {
	p := NewPlanner(f.repo, f.service, cal, cal, f.metrics, f.log, time.UTC)
	p.now = f.clock.Now
	return p
}
