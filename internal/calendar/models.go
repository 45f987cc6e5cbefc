package calendar

import (
	"fmt"
	"time"
)

// Event is an entry of calendar.json.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Type        string    `json:"type"` // aula, prova, trabalho, projeto
	ClassID     string    `json:"class_id"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location"`
}

// naive timestamps written without an offset are read in the configured
// location
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
}

// eventRecord is an Event as stored, with the date still undecoded.
type eventRecord struct {
	Event
	Date string `json:"date"`
}

func (r eventRecord) toEvent(loc *time.Location) (Event, error) {
	ev := r.Event
	if r.Date == "" {
		return ev, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, r.Date); err == nil {
		ev.Date = t
		return ev, nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, r.Date, loc); err == nil {
			ev.Date = t
			return ev, nil
		}
	}
	return Event{}, fmt.Errorf("event %s: unrecognised date %q", ev.ID, r.Date)
}

// Class is an entry of classes.json.
type Class struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Subject     string   `json:"subject"`
	ProfessorID string   `json:"professor_id"`
	Students    []string `json:"students"`
}

type calendarFile struct {
	Events []eventRecord `json:"events"`
}

type classesFile struct {
	Classes []Class `json:"classes"`
}
