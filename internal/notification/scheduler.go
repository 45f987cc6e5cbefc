package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// QueueProcessor runs one email dispatch pass.
type QueueProcessor interface {
	ProcessQueue(ctx context.Context) (DispatchReport, error)
}

// ReminderPlanner runs one reminder planning pass.
type ReminderPlanner interface {
	PlanReminders(ctx context.Context) (PlanReport, error)
}

// SchedulerOptions sets the two cadences.
type SchedulerOptions struct {
	QueueInterval  time.Duration
	ReminderHour   int
	ReminderMinute int
	Location       *time.Location
	PlanOnStart    bool
}

// NotificationScheduler drains the email queue on a fixed interval and plans
// reminders once a day at a fixed wall-clock time.
type NotificationScheduler struct {
	queue   QueueProcessor
	planner ReminderPlanner
	opts    SchedulerOptions
	metrics *Metrics
	log     *zap.Logger
	now     func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewNotificationScheduler(queue QueueProcessor, planner ReminderPlanner, opts SchedulerOptions, metrics *Metrics, log *zap.Logger) *NotificationScheduler {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &NotificationScheduler{
		queue:   queue,
		planner: planner,
		opts:    opts,
		metrics: metrics,
		log:     log.Named("scheduler"),
		now:     time.Now,
	}
}

// nextDailyRun returns the first hour:minute in loc strictly after now.
func nextDailyRun(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}
	return next
}

// Start launches both loops. Calling Start on a running scheduler is a no-op.
func (s *NotificationScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.log.Info("starting notification scheduler",
		zap.Duration("queue_interval", s.opts.QueueInterval),
		zap.String("reminders_at", fmt.Sprintf("%02d:%02d %s", s.opts.ReminderHour, s.opts.ReminderMinute, s.opts.Location)),
	)

	s.wg.Add(2)
	go s.runQueueLoop(ctx)
	go s.runReminderLoop(ctx)
}

// Stop stops new ticks and waits for an in-flight pass to finish, or for ctx
// to expire.
func (s *NotificationScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}

	s.log.Info("stopping notification scheduler")
	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler did not stop in time: %w", ctx.Err())
	}
}

func (s *NotificationScheduler) runQueueLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.opts.QueueInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runPass(ctx, "email_queue", func(ctx context.Context) error {
				_, err := s.queue.ProcessQueue(ctx)
				return err
			})
		}
	}
}

func (s *NotificationScheduler) runReminderLoop(ctx context.Context) {
	defer s.wg.Done()

	plan := func(ctx context.Context) error {
		_, err := s.planner.PlanReminders(ctx)
		return err
	}
	if s.opts.PlanOnStart {
		s.runPass(ctx, "reminders", plan)
	}

	for {
		now := s.now()
		next := nextDailyRun(now, s.opts.ReminderHour, s.opts.ReminderMinute, s.opts.Location)
		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.runPass(ctx, "reminders", plan)
		}
	}
}

// runPass shields the loop from a failing or panicking pass. The pass gets a
// context that outlives Stop so it can finish.
func (s *NotificationScheduler) runPass(ctx context.Context, job string, fn func(context.Context) error) {
	start := time.Now()
	defer func() {
		s.metrics.PassDuration.WithLabelValues(job).Observe(time.Since(start).Seconds())
		if r := recover(); r != nil {
			s.metrics.PassFailures.WithLabelValues(job).Inc()
			s.log.Error("scheduler pass panicked", zap.String("job", job), zap.Any("panic", r))
		}
	}()

	if err := fn(context.WithoutCancel(ctx)); err != nil {
		s.metrics.PassFailures.WithLabelValues(job).Inc()
		s.log.Error("scheduler pass failed", zap.String("job", job), zap.Error(err))
	}
}

// RegisterScheduler ties the scheduler to the application lifecycle.
func RegisterScheduler(lc fx.Lifecycle, s *NotificationScheduler) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			s.Start()
			return nil
		},
		OnStop: s.Stop,
	})
}
