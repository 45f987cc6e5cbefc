package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"PlannerEdu/internal/config"
	"PlannerEdu/pkg/jsonfile"
)

// ErrClassNotFound is returned when a class id has no entry in classes.json.
var ErrClassNotFound = errors.New("class not found")

// EventRepository reads calendar.json. Dates without an offset are read in
// the scheduler's TIMEZONE.
type EventRepository struct {
	path     string
	location *time.Location
}

func NewEventRepository(cfg *config.AppConfig, sched *config.SchedulerConfig) *EventRepository {
	loc := sched.Location
	if loc == nil {
		loc = time.Local
	}
	return &EventRepository{path: cfg.DataFile("calendar.json"), location: loc}
}

// ListEvents returns every event in file order. A missing file is an empty
// calendar.
func (r *EventRepository) ListEvents(ctx context.Context) ([]Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var f calendarFile
	if err := jsonfile.Read(r.path, &f); err != nil {
		if errors.Is(err, jsonfile.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load calendar: %w", err)
	}
	events := make([]Event, 0, len(f.Events))
	for _, rec := range f.Events {
		ev, err := rec.toEvent(r.location)
		if err != nil {
			return nil, fmt.Errorf("failed to load calendar: %w", err)
		}
		events = append(events, ev)
	}
	return events, nil
}

// ClassRepository reads classes.json.
type ClassRepository struct {
	path string
}

func NewClassRepository(cfg *config.AppConfig) *ClassRepository {
	return &ClassRepository{path: cfg.DataFile("classes.json")}
}

// StudentsOf returns the roster of a class, or ErrClassNotFound.
func (r *ClassRepository) StudentsOf(ctx context.Context, classID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var f classesFile
	if err := jsonfile.Read(r.path, &f); err != nil {
		if errors.Is(err, jsonfile.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", classID, ErrClassNotFound)
		}
		return nil, fmt.Errorf("failed to load classes: %w", err)
	}
	for _, c := range f.Classes {
		if c.ID == classID {
			return c.Students, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", classID, ErrClassNotFound)
}
