package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"PlannerEdu/internal/calendar"

	"go.uber.org/zap"
)

// EventProvider lists the calendar events reminders are planned for.
type EventProvider interface {
	ListEvents(ctx context.Context) ([]calendar.Event, error)
}

// PlanReport summarizes one planning pass.
type PlanReport struct {
	Events     int `json:"events"`
	Created    int `json:"created"`
	Duplicates int `json:"duplicates"`
	Elapsed    int `json:"elapsed"` // lead times already in the past
}

// Planner schedules reminder notifications ahead of calendar events.
type Planner struct {
	repo     *NotificationRepository
	service  *NotificationService
	events   EventProvider
	roster   RosterProvider
	metrics  *Metrics
	log      *zap.Logger
	location *time.Location
	now      func() time.Time
}

func NewPlanner(
	repo *NotificationRepository,
	service *NotificationService,
	events EventProvider,
	roster RosterProvider,
	metrics *Metrics,
	log *zap.Logger,
	location *time.Location,
) *Planner {
	if location == nil {
		location = time.Local
	}
	return &Planner{
		repo:     repo,
		service:  service,
		events:   events,
		roster:   roster,
		metrics:  metrics,
		log:      log.Named("planner"),
		location: location,
		now:      time.Now,
	}
}

func reminderKey(eventID string, hours int, userID string) string {
	return fmt.Sprintf("reminder:%s:%dh:%s", eventID, hours, userID)
}

func (p *Planner) reminderMessage(ev calendar.Event, hours int) string {
	return fmt.Sprintf("You have an event scheduled in %d hours:\n\n%s\nLocation: %s\nWhen: %s\n\n%s",
		hours,
		ev.Title,
		locationOrDefault(ev.Location),
		ev.Date.In(p.location).Format(eventDateLayout),
		ev.Description,
	)
}

// PlanReminders creates, for every event, lead time and roster student, a
// reminder due at event.Date minus the lead time. Lead times at or before
// now are skipped. Each reminder carries a dedup key, so rerunning the pass
// never duplicates. A failing event is logged and does not stop the others.
func (p *Planner) PlanReminders(ctx context.Context) (PlanReport, error) {
	var report PlanReport

	settings, err := p.repo.Settings(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to load settings: %w", err)
	}
	events, err := p.events.ListEvents(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list events: %w", err)
	}
	report.Events = len(events)

	now := p.now()
	var errs []error
	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := p.planEvent(ctx, ev, settings.ReminderHours, now, &report); err != nil {
			p.log.Error("failed to plan reminders for event", zap.String("event_id", ev.ID), zap.Error(err))
			errs = append(errs, fmt.Errorf("event %s: %w", ev.ID, err))
		}
	}

	p.log.Info("reminders planned",
		zap.Int("events", report.Events),
		zap.Int("created", report.Created),
		zap.Int("duplicates", report.Duplicates),
		zap.Int("elapsed", report.Elapsed),
	)
	return report, errors.Join(errs...)
}

func (p *Planner) planEvent(ctx context.Context, ev calendar.Event, hours []int, now time.Time, report *PlanReport) error {
	students, err := p.roster.StudentsOf(ctx, ev.ClassID)
	if err != nil {
		if errors.Is(err, calendar.ErrClassNotFound) {
			p.log.Debug("event has no class roster", zap.String("event_id", ev.ID), zap.String("class_id", ev.ClassID))
			return nil
		}
		return err
	}

	for _, h := range hours {
		at := ev.Date.Add(-time.Duration(h) * time.Hour)
		if !at.After(now) {
			report.Elapsed++
			continue
		}
		for _, studentID := range students {
			_, created, err := p.service.CreateUnique(ctx, CreateInput{
				UserID:      studentID,
				Title:       "Reminder: " + ev.Title,
				Message:     p.reminderMessage(ev, h),
				Type:        TypeInfo,
				SendEmail:   true,
				ScheduleFor: &at,
				DedupKey:    reminderKey(ev.ID, h, studentID),
			})
			if err != nil {
				return err
			}
			if created {
				report.Created++
				p.metrics.RemindersCreated.Inc()
			} else {
				report.Duplicates++
			}
		}
	}
	return nil
}
