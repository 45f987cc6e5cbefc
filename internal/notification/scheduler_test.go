package notification

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type queueFunc func(ctx context.Context) (DispatchReport, error)

func (f queueFunc) ProcessQueue(ctx context.Context) (DispatchReport, error) { return f(ctx) }

type plannerFunc func(ctx context.Context) (PlanReport, error)

func (f plannerFunc) PlanReminders(ctx context.Context) (PlanReport, error) { return f(ctx) }

func idlePlanner() plannerFunc {
	return func(context.Context) (PlanReport, error) { return PlanReport{}, nil }
}

func TestNextDailyRun(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)

	before := time.Date(2024, 3, 10, 5, 59, 0, 0, loc)
	assert.Equal(t, time.Date(2024, 3, 10, 6, 0, 0, 0, loc), nextDailyRun(before, 6, 0, loc))

	exactly := time.Date(2024, 3, 10, 6, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2024, 3, 11, 6, 0, 0, 0, loc), nextDailyRun(exactly, 6, 0, loc))

	after := time.Date(2024, 3, 31, 23, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2024, 4, 1, 6, 0, 0, 0, loc), nextDailyRun(after, 6, 0, loc))

	// 08:30 UTC is 05:30 in BRT
	utc := time.Date(2024, 3, 10, 8, 30, 0, 0, time.UTC)
	assert.True(t, nextDailyRun(utc, 6, 0, loc).Equal(time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)))
}

func TestSchedulerSurvivesFailingPasses(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	var calls atomic.Int32
	queue := queueFunc(func(context.Context) (DispatchReport, error) {
		switch calls.Add(1) {
		case 1:
			return DispatchReport{}, errors.New("store unavailable")
		case 2:
			panic("boom")
		}
		return DispatchReport{}, nil
	})

	s := NewNotificationScheduler(queue, idlePlanner(), SchedulerOptions{QueueInterval: 5 * time.Millisecond, ReminderHour: 6}, metrics, zap.NewNop())
	s.Start()
	s.Start()

	require.Eventually(t, func() bool { return calls.Load() >= 4 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))

	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.PassFailures.WithLabelValues("email_queue")))
	require.NoError(t, s.Stop(context.Background()), "second stop is a no-op")
}

func TestSchedulerPlansOnStart(t *testing.T) {
	planned := make(chan struct{}, 1)
	planner := plannerFunc(func(context.Context) (PlanReport, error) {
		planned <- struct{}{}
		return PlanReport{}, nil
	})
	queue := queueFunc(func(context.Context) (DispatchReport, error) { return DispatchReport{}, nil })

	s := NewNotificationScheduler(queue, planner, SchedulerOptions{QueueInterval: time.Hour, ReminderHour: 6, PlanOnStart: true}, NewMetrics(prometheus.NewRegistry()), zap.NewNop())
	s.Start()
	defer s.Stop(context.Background())

	select {
	case <-planned:
	case <-time.After(2 * time.Second):
		t.Fatal("reminders were not planned on start")
	}
}

func TestSchedulerStopWaitsForInFlightPass(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool
	var passErr atomic.Value
	queue := queueFunc(func(ctx context.Context) (DispatchReport, error) {
		select {
		case <-started:
		default:
			close(started)
		}
		<-release
		if ctx.Err() != nil {
			passErr.Store(ctx.Err())
		}
		finished.Store(true)
		return DispatchReport{}, nil
	})

	s := NewNotificationScheduler(queue, idlePlanner(), SchedulerOptions{QueueInterval: 5 * time.Millisecond, ReminderHour: 6}, NewMetrics(prometheus.NewRegistry()), zap.NewNop())
	s.Start()
	<-started

	stopped := make(chan error, 1)
	go func() { stopped <- s.Stop(context.Background()) }()

	select {
	case <-stopped:
		t.Fatal("Stop returned before the pass finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-stopped)
	assert.True(t, finished.Load())
	assert.Nil(t, passErr.Load(), "pass context must survive Stop")
}

func TestSchedulerStopTimeout(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)
	queue := queueFunc(func(context.Context) (DispatchReport, error) {
		select {
		case <-started:
		default:
			close(started)
		}
		<-release
		return DispatchReport{}, nil
	})

	s := NewNotificationScheduler(queue, idlePlanner(), SchedulerOptions{QueueInterval: 5 * time.Millisecond, ReminderHour: 6}, NewMetrics(prometheus.NewRegistry()), zap.NewNop())
	s.Start()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Stop(ctx), context.DeadlineExceeded)
}
