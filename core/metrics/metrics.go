// Package metrics holds the Prometheus collectors shared by the bot and the
// ops HTTP endpoint that exposes them.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tripbot"

var (
	// Updates counts handled Telegram updates by kind and status.
	Updates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_total",
			Help:      "Telegram updates handled, by update kind and status.",
		},
		[]string{"kind", "status"},
	)

	// UpdateDuration tracks handler latency per update kind.
	UpdateDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "update_duration_seconds",
			Help:      "Time spent in the handler chain per update.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// MessagesSent counts outbound messages produced while handling updates.
	MessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Messages sent back to users from update handlers.",
		},
	)

	// TelegramCalls counts outbound Bot API calls by action and result kind.
	TelegramCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "telegram",
			Name:      "calls_total",
			Help:      "Outbound Telegram calls, by action and result (ok or error kind).",
		},
		[]string{"action", "result"},
	)

	// TelegramRetries counts repeated attempts of outbound calls.
	TelegramRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "telegram",
			Name:      "retries_total",
			Help:      "Retried outbound Telegram calls, by action.",
		},
		[]string{"action"},
	)

	// StoreOps counts record store calls by driver, operation and status.
	StoreOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Record store operations, by driver, op and status.",
		},
		[]string{"driver", "op", "status"},
	)

	// StoreDuration tracks record store latency.
	StoreDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Record store operation latency.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"driver", "op"},
	)

	// FlowSteps counts conversation transitions by flow and outcome.
	FlowSteps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "flow",
			Name:      "steps_total",
			Help:      "Conversation flow transitions, by flow and outcome.",
		},
		[]string{"flow", "outcome"},
	)

	// ActiveSessions reports conversations currently held in memory.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "flow",
			Name:      "active_sessions",
			Help:      "Conversations currently in progress.",
		},
	)

	// ReminderRuns counts reminder scans by status.
	ReminderRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reminder",
			Name:      "runs_total",
			Help:      "Daily reminder scans, by status.",
		},
		[]string{"status"},
	)

	// RemindersSent counts reminder messages by delivery status.
	RemindersSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reminder",
			Name:      "messages_total",
			Help:      "Reminder messages, by delivery status.",
		},
		[]string{"status"},
	)
)

// Status maps an error to the "ok"/"fail" label used by every counter.
func Status(err error) string {
	if err != nil {
		return "fail"
	}
	return "ok"
}

// ObserveStore records one store call.
func ObserveStore(driver, op string, took time.Duration, err error) {
	StoreOps.WithLabelValues(driver, op, Status(err)).Inc()
	StoreDuration.WithLabelValues(driver, op).Observe(took.Seconds())
}
