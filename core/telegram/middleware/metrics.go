package middleware

import (
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/tripbot/core/metrics"
)

const sentKey = "messages"

// countingContext counts replies sent while one update is handled.
type countingContext struct{ tele.Context }

func (m countingContext) sent() {
	n, _ := m.Get(sentKey).(int)
	m.Set(sentKey, n+1)
	metrics.MessagesSent.Inc()
}

// Send proxies tele.Context.Send while updating message counters.
func (m countingContext) Send(what interface{}, opts ...interface{}) error {
	err := m.Context.Send(what, opts...)
	if err == nil {
		m.sent()
	}
	return err
}

// Reply proxies tele.Context.Reply while updating message counters.
func (m countingContext) Reply(what interface{}, opts ...interface{}) error {
	err := m.Context.Reply(what, opts...)
	if err == nil {
		m.sent()
	}
	return err
}

// MessageMetricsMiddleware counts replies per update and records the update
// in the Prometheus counters once the chain returns.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		start := time.Now()
		kind := UpdateKind(c)
		c.Set(sentKey, 0)

		err := next(countingContext{Context: c})

		metrics.Updates.WithLabelValues(kind, metrics.Status(err)).Inc()
		metrics.UpdateDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
		return err
	}
}

// MessagesSent reports how many replies the current update produced so far.
func MessagesSent(c tele.Context) int {
	n, _ := c.Get(sentKey).(int)
	return n
}
