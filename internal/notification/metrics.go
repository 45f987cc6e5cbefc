package notification

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// failure reasons recorded on emails_failed_total
const (
	reasonRecipientNotFound = "recipient_not_found"
	reasonDirectoryError    = "directory_error"
	reasonTransport         = "transport"
)

// Metrics holds the delivery counters of the subsystem.
type Metrics struct {
	EmailsSent       prometheus.Counter
	EmailsFailed     *prometheus.CounterVec
	EmailsAbandoned  prometheus.Counter
	RemindersCreated prometheus.Counter
	PassDuration     *prometheus.HistogramVec
	PassFailures     *prometheus.CounterVec
}

// NewMetrics registers the counters with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EmailsSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "planner_edu",
			Subsystem: "notifications",
			Name:      "emails_sent_total",
			Help:      "Queued emails delivered successfully",
		}),
		EmailsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "planner_edu",
			Subsystem: "notifications",
			Name:      "emails_failed_total",
			Help:      "Failed delivery attempts by reason",
		}, []string{"reason"}),
		EmailsAbandoned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "planner_edu",
			Subsystem: "notifications",
			Name:      "emails_abandoned_total",
			Help:      "Queued emails that exhausted their retry budget",
		}),
		RemindersCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "planner_edu",
			Subsystem: "notifications",
			Name:      "reminders_created_total",
			Help:      "Reminder notifications scheduled by the planner",
		}),
		PassDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "planner_edu",
			Subsystem: "scheduler",
			Name:      "pass_duration_seconds",
			Help:      "Duration of background passes",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),
		PassFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "planner_edu",
			Subsystem: "scheduler",
			Name:      "pass_failures_total",
			Help:      "Background passes that returned an error or panicked",
		}, []string{"job"}),
	}
}
