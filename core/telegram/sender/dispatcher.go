// Package sender executes outbound Telegram calls, either queued for a pool
// of workers or inline for callers that need the delivery result.
package sender

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/tripbot/core/logger"
	"github.com/m3rciful/tripbot/core/metrics"
	"github.com/m3rciful/tripbot/core/telegram/netutil"
)

var (
	// ErrQueueClosed is returned when enqueue is attempted after dispatcher stop.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull indicates the queue is saturated and the job was not accepted.
	ErrQueueFull = errors.New("telegram sender: queue full")

	errNilRun = errors.New("telegram sender: nil run function")

	tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)
)

// Options controls the behaviour of the outbound dispatcher.
type Options struct {
	QueueSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent retrying a single job.
	MaxDuration time.Duration
}

type job struct {
	ctx      context.Context
	action   string
	endpoint string
	run      func() error
}

// Dispatcher runs outbound Telegram calls with the shared retry policy.
type Dispatcher struct {
	policy  netutil.Policy
	timeout time.Duration

	jobs chan job
	stop chan struct{}
	once sync.Once
	wg   sync.WaitGroup
	errs atomic.Uint64
}

// NewDispatcher starts the worker pool; zero options get defaults.
func NewDispatcher(opts Options) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 2 * time.Second
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 12 * time.Second
	}

	d := &Dispatcher{
		policy: netutil.Policy{
			Retries:  max(opts.MaxRetries, 0),
			Backoff:  opts.RetryBackoff,
			MaxDelay: opts.MaxDuration,
		},
		timeout: opts.MaxDuration,
		jobs:    make(chan job, opts.QueueSize),
		stop:    make(chan struct{}),
	}

	d.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go d.worker()
	}
	return d
}

// Enqueue hands run to the worker pool. run must be safe to repeat.
func (d *Dispatcher) Enqueue(ctx context.Context, action, endpoint string, run func() error) error {
	if run == nil {
		return errNilRun
	}
	select {
	case <-d.stop:
		return ErrQueueClosed
	default:
	}

	select {
	case d.jobs <- job{ctx: ctx, action: action, endpoint: endpoint, run: run}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Do runs the call on the caller's goroutine and returns the final error.
// Scheduled sends use it to learn the delivery status of each message.
func (d *Dispatcher) Do(ctx context.Context, action, endpoint string, run func() error) error {
	if run == nil {
		return errNilRun
	}
	return d.execute(job{ctx: ctx, action: action, endpoint: endpoint, run: run})
}

// ErrorCount returns the number of calls that failed after all attempts.
func (d *Dispatcher) ErrorCount() uint64 {
	return d.errs.Load()
}

// Close stops accepting jobs and waits for queued ones to drain.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		close(d.stop)
		close(d.jobs)
		d.wg.Wait()
	})
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for j := range d.jobs {
		_ = d.execute(j)
	}
}

func (d *Dispatcher) execute(j job) error {
	ctx := j.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	bounded, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	attempts, err := d.policy.Retry(bounded, j.run, netutil.Retryable, func(err error, attempt int, delay time.Duration) {
		metrics.TelegramRetries.WithLabelValues(j.action).Inc()
		logSend(ctx, slog.LevelDebug, "send.retry", j, attempt, start, err, slog.Duration("delay", delay))
	})
	if err == nil {
		metrics.TelegramCalls.WithLabelValues(j.action, "ok").Inc()
		logSend(ctx, slog.LevelDebug, "send.success", j, attempts, start, nil)
		return nil
	}

	d.errs.Add(1)
	metrics.TelegramCalls.WithLabelValues(j.action, netutil.Classify(err)).Inc()
	logSend(ctx, slog.LevelError, "send.fail", j, attempts, start, err)
	return err
}

func logSend(ctx context.Context, level slog.Level, event string, j job, attempt int, start time.Time, err error, extra ...slog.Attr) {
	attrs := []slog.Attr{slog.String("action", j.action)}
	if j.endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", j.endpoint))
	}
	if userID := logger.UserIDFrom(ctx); userID != 0 {
		attrs = append(attrs, slog.Int64("user_id", userID))
	}
	if attempt > 1 || err != nil {
		attrs = append(attrs, slog.Int("attempt", attempt))
	}
	attrs = append(attrs, slog.Duration("elapsed", logger.Took(start)))
	if err != nil {
		attrs = append(attrs,
			slog.String("error", Redact(err)),
			slog.String("error_kind", netutil.Classify(err)),
		)
	}
	attrs = append(attrs, extra...)

	switch level {
	case slog.LevelError:
		logger.Error(ctx, "tg.sender", event, attrs...)
	default:
		logger.Debug(ctx, "tg.sender", event, attrs...)
	}
}

// Redact strips bot tokens that net/http embeds in request URLs.
func Redact(err error) string {
	if err == nil {
		return ""
	}
	return tokenRe.ReplaceAllString(err.Error(), "bot<redacted>")
}
