package config

import (
	"fmt"
	"time"
)

// SchedulerConfig holds the two background cadences.
type SchedulerConfig struct {
	QueueInterval  time.Duration
	ReminderHour   int
	ReminderMinute int
	Location       *time.Location
	PlanOnStart    bool
	OpsUserID      string
}

func NewSchedulerConfig() (*SchedulerConfig, error) {
	interval, err := getEnvAsDuration("QUEUE_INTERVAL", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	planOnStart, err := getEnvAsBool("PLAN_ON_START", false)
	if err != nil {
		return nil, err
	}

	at := getEnv("REMINDER_AT", "06:00")
	clock, err := time.Parse("15:04", at)
	if err != nil {
		return nil, fmt.Errorf("invalid REMINDER_AT %q: %w", at, err)
	}

	loc, err := time.LoadLocation(getEnv("TIMEZONE", "Local"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	return &SchedulerConfig{
		QueueInterval:  interval,
		ReminderHour:   clock.Hour(),
		ReminderMinute: clock.Minute(),
		Location:       loc,
		PlanOnStart:    planOnStart,
		OpsUserID:      getEnv("OPS_USER_ID", ""),
	}, nil
}
