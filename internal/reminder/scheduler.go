// Package reminder sends the daily "your trip starts tomorrow" messages.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/m3rciful/tripbot/core/logger"
	"github.com/m3rciful/tripbot/core/metrics"
	"github.com/m3rciful/tripbot/internal/domain"
	"github.com/m3rciful/tripbot/internal/store"
)

// Source is the read side of the record store used by a scan.
type Source interface {
	Load(ctx context.Context, userID int64) (domain.UserRecord, error)
	ScanForDate(ctx context.Context, date domain.Date) ([]store.Reminder, error)
}

// Sender delivers one reminder text to a user.
type Sender interface {
	SendText(ctx context.Context, userID int64, text string) error
}

// Options configure the daily run.
type Options struct {
	Hour     int
	Minute   int
	Location *time.Location
	// Now defaults to time.Now.
	Now func() time.Time
}

// Result summarizes one scan.
type Result struct {
	RunID   string
	Date    domain.Date
	Found   int
	Skipped int
	Sent    int
	Failed  int
}

// Scheduler runs the reminder scan once per day.
type Scheduler struct {
	source Source
	sender Sender
	opts   Options
}

// New constructs a Scheduler.
func New(source Source, sender Sender, opts Options) *Scheduler {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scheduler{source: source, sender: sender, opts: opts}
}

// NextRun returns the first hour:minute in loc strictly after now.
func NextRun(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}
	return next
}

// Message is the reminder text for one trip.
func Message(r store.Reminder) string {
	return fmt.Sprintf("🔔 Reminder: your trip '%s' starts tomorrow (%s).", r.TripName, r.Trip.StartDate)
}

// Run blocks until ctx is done, scanning once a day.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		now := s.opts.Now()
		next := NextRun(now, s.opts.Hour, s.opts.Minute, s.opts.Location)
		logger.Reminder.InfoContext(ctx, "next reminder run scheduled",
			slog.String("event", "reminder.schedule"),
			slog.Time("at", next),
		)

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		today := domain.DateOf(s.opts.Now().In(s.opts.Location))
		if _, err := s.RunOnce(ctx, today); err != nil {
			logger.Reminder.ErrorContext(ctx, "reminder run failed",
				slog.String("event", "reminder.run"),
				slog.String("err", err.Error()),
			)
		}
	}
}

// Plan lists the reminders due for trips starting the day after today,
// limited to users who enabled notifications.
func (s *Scheduler) Plan(ctx context.Context, today domain.Date) ([]store.Reminder, error) {
	due, err := s.source.ScanForDate(ctx, today.AddDays(1))
	if err != nil {
		return nil, err
	}
	return s.optedIn(ctx, due)
}

func (s *Scheduler) optedIn(ctx context.Context, due []store.Reminder) ([]store.Reminder, error) {
	enabled := map[int64]bool{}
	for _, userID := range lo.Uniq(lo.Map(due, func(r store.Reminder, _ int) int64 { return r.UserID })) {
		rec, err := s.source.Load(ctx, userID)
		if err != nil {
			return nil, err
		}
		enabled[userID] = rec.Notifications
	}
	return lo.Filter(due, func(r store.Reminder, _ int) bool { return enabled[r.UserID] }), nil
}

// RunOnce scans for trips starting tomorrow and messages each owner. A
// failed send is counted and the run continues.
func (s *Scheduler) RunOnce(ctx context.Context, today domain.Date) (Result, error) {
	res := Result{RunID: uuid.NewString(), Date: today.AddDays(1)}
	start := time.Now()

	due, err := s.source.ScanForDate(ctx, res.Date)
	if err != nil {
		metrics.ReminderRuns.WithLabelValues("fail").Inc()
		return res, fmt.Errorf("scan %s: %w", res.Date, err)
	}
	res.Found = len(due)

	planned, err := s.optedIn(ctx, due)
	if err != nil {
		metrics.ReminderRuns.WithLabelValues("fail").Inc()
		return res, fmt.Errorf("plan %s: %w", res.Date, err)
	}
	res.Skipped = res.Found - len(planned)

	for _, r := range planned {
		if err := s.sender.SendText(ctx, r.UserID, Message(r)); err != nil {
			res.Failed++
			metrics.RemindersSent.WithLabelValues("fail").Inc()
			logger.Reminder.WarnContext(ctx, "reminder not delivered",
				slog.String("event", "reminder.send"),
				slog.String("run_id", res.RunID),
				slog.Int64("user_id", r.UserID),
				slog.String("trip", r.TripName),
				slog.String("err", err.Error()),
			)
			continue
		}
		res.Sent++
		metrics.RemindersSent.WithLabelValues("ok").Inc()
	}

	metrics.ReminderRuns.WithLabelValues("ok").Inc()
	logger.Reminder.InfoContext(ctx, "reminder run finished",
		slog.String("event", "reminder.run"),
		slog.String("status", "ok"),
		slog.String("run_id", res.RunID),
		slog.String("date", res.Date.String()),
		slog.Int("reminders", res.Found),
		slog.Int("sent", res.Sent),
		slog.Int("skipped", res.Skipped),
		slog.Int("failed", res.Failed),
		slog.Duration("duration", logger.Took(start)),
	)
	return res, nil
}
