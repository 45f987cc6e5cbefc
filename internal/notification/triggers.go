package notification

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"PlannerEdu/internal/calendar"

	"go.uber.org/zap"
)

// RosterProvider resolves the students enrolled in a class.
type RosterProvider interface {
	StudentsOf(ctx context.Context, classID string) ([]string, error)
}

var gradeNames = map[string]string{
	"np1": "NP1 (First Exam)",
	"np2": "NP2 (Second Exam)",
	"ava": "AVA (Virtual Activities)",
	"pim": "PIM (Integrated Project)",
}

var eventTypeNames = map[string]string{
	"aula":     "Class",
	"prova":    "Exam",
	"trabalho": "Assignment",
	"projeto":  "Project",
}

const eventDateLayout = "02/01/2006 at 15:04"

func gradeName(gradeType string) string {
	if name, ok := gradeNames[strings.ToLower(gradeType)]; ok {
		return name
	}
	return strings.ToUpper(gradeType)
}

func eventTypeName(eventType string) string {
	if name, ok := eventTypeNames[strings.ToLower(eventType)]; ok {
		return name
	}
	r := []rune(eventType)
	if len(r) == 0 {
		return "Event"
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// Triggers turn grade and calendar events into notifications. They are the
// hook the grade and calendar handlers call after persisting a change; this
// subsystem does not call them itself.
type Triggers struct {
	service  *NotificationService
	roster   RosterProvider
	log      *zap.Logger
	location *time.Location
}

func NewTriggers(service *NotificationService, roster RosterProvider, log *zap.Logger, location *time.Location) *Triggers {
	if location == nil {
		location = time.Local
	}
	return &Triggers{service: service, roster: roster, log: log.Named("triggers"), location: location}
}

// NotifyGradePosted is called after a grade value has been persisted.
func (t *Triggers) NotifyGradePosted(ctx context.Context, studentID, gradeType string, value float64) (string, error) {
	name := gradeName(gradeType)
	id, err := t.service.Create(ctx, CreateInput{
		UserID:  studentID,
		Title:   "New grade posted: " + name,
		Message: fmt.Sprintf("Your grade for %s has been posted: %.1f. Open the grades page for details.", name, value),
		Type:    TypeGrade,
	})
	if err != nil {
		return "", err
	}
	t.log.Info("grade notification created", zap.String("student_id", studentID), zap.String("grade", name))
	return id, nil
}

// NotifyEventCreated is called after a calendar event has been persisted and
// notifies every student of the event's class.
func (t *Triggers) NotifyEventCreated(ctx context.Context, ev calendar.Event) ([]string, error) {
	students, err := t.roster.StudentsOf(ctx, ev.ClassID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve roster for event %s: %w", ev.ID, err)
	}

	title := "New event: " + eventTypeName(ev.Type)
	message := fmt.Sprintf("A new event '%s' was created for %s at %s. Check your calendar for details.",
		ev.Title, ev.Date.In(t.location).Format(eventDateLayout), locationOrDefault(ev.Location))

	ids := make([]string, 0, len(students))
	for _, studentID := range students {
		id, err := t.service.Create(ctx, CreateInput{
			UserID:  studentID,
			Title:   title,
			Message: message,
			Type:    TypeEvent,
		})
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	t.log.Info("event notifications created", zap.String("event_id", ev.ID), zap.Int("recipients", len(ids)))
	return ids, nil
}

func locationOrDefault(location string) string {
	if strings.TrimSpace(location) == "" {
		return "location not provided"
	}
	return location
}
