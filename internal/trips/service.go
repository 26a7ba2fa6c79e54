// Package trips implements the one-shot trip commands that run outside a
// conversation: direct attachments, listing, the profile card and the
// reminder opt-in.
package trips

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/lo"

	"github.com/m3rciful/tripbot/core/logger"
	"github.com/m3rciful/tripbot/internal/domain"
)

const (
	MsgNoCaption    = "❗ Attach the file with a caption containing the trip name."
	MsgTripNotFound = "❌ That trip does not exist. Use /addtrip first."
	MsgNoTrips      = "📭 You have no saved trips."
	MsgNotifyOn     = "🔔 Daily reminders enabled. You will be notified the day before a trip starts."
	MsgNotifyOff    = "🔕 Daily reminders disabled."
	notDefined      = "not set"
)

// Records is the store surface the service needs.
type Records interface {
	Load(ctx context.Context, userID int64) (domain.UserRecord, error)
	Update(ctx context.Context, userID int64, fn func(*domain.UserRecord) error) (domain.UserRecord, error)
}

// Service runs direct trip operations.
type Service struct {
	records Records
}

// NewService constructs a Service.
func NewService(records Records) *Service {
	return &Service{records: records}
}

// Attach adds ref to the trip named by caption. A missing caption or an
// unknown trip is answered with a hint and nothing is written.
func (s *Service) Attach(ctx context.Context, userID int64, caption string, ref domain.FileRef) (string, error) {
	name := strings.TrimSpace(caption)
	if name == "" {
		return MsgNoCaption, nil
	}
	_, err := s.records.Update(ctx, userID, func(rec *domain.UserRecord) error {
		return rec.AttachFile(name, ref)
	})
	if errors.Is(err, domain.ErrNotFound) {
		logger.Trips.InfoContext(ctx, "attach to unknown trip",
			slog.String("event", "trips.attach"),
			slog.String("status", "skip"),
			slog.String("trip", name),
		)
		return MsgTripNotFound, nil
	}
	if err != nil {
		return "", fmt.Errorf("attach to %q: %w", name, err)
	}
	logger.Trips.InfoContext(ctx, "file attached",
		slog.String("event", "trips.attach"),
		slog.String("status", "ok"),
		slog.String("trip", name),
		slog.String("file_id", ref.ID),
	)
	return fmt.Sprintf("📎 File saved to '%s'.", name), nil
}

// Trips returns the user's trips in display order.
func (s *Service) Trips(ctx context.Context, userID int64) ([]domain.NamedTrip, error) {
	rec, err := s.records.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return rec.SortedTrips(), nil
}

// List renders the /listtrips reply.
func (s *Service) List(ctx context.Context, userID int64) (string, error) {
	trips, err := s.Trips(ctx, userID)
	if err != nil {
		return "", err
	}
	if len(trips) == 0 {
		return MsgNoTrips, nil
	}
	lines := lo.Map(trips, func(nt domain.NamedTrip, _ int) string {
		dest := lo.Ternary(nt.Trip.Destination == "", "no destination", nt.Trip.Destination)
		return fmt.Sprintf("• %s: %s → %s • %s (%d file(s))",
			nt.Name, nt.Trip.StartDate, nt.Trip.EndDate, dest, len(nt.Trip.Files))
	})
	return "📋 Saved trips:\n\n" + strings.Join(lines, "\n"), nil
}

// Profile renders the /myprofile card.
func (s *Service) Profile(ctx context.Context, userID int64) (string, error) {
	rec, err := s.records.Load(ctx, userID)
	if err != nil {
		return "", err
	}
	p := lo.FromPtrOr(rec.Profile, domain.Profile{})
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)

	var b strings.Builder
	b.WriteString("👤 User profile\n\n")
	fmt.Fprintf(&b, "🆔 ID: %d\n", userID)
	fmt.Fprintf(&b, "📛 Name: %s\n", lo.Ternary(name == "", notDefined, name))
	fmt.Fprintf(&b, "🎂 Birth date: %s\n", lo.Ternary(p.BirthDate.IsZero(), notDefined, p.BirthDate.String()))
	fmt.Fprintf(&b, "📄 Certificates: %s\n\n", lo.Ternary(p.Certificates == "", domain.CertificatesNone, p.Certificates))
	fmt.Fprintf(&b, "🧳 Saved trips: %d\n", len(rec.Trips))
	fmt.Fprintf(&b, "📁 Saved documents: %d", rec.FileCount())
	return b.String(), nil
}

// SetNotifications persists the reminder opt-in flag.
func (s *Service) SetNotifications(ctx context.Context, userID int64, on bool) (string, error) {
	_, err := s.records.Update(ctx, userID, func(rec *domain.UserRecord) error {
		rec.Notifications = on
		return nil
	})
	if err != nil {
		return "", err
	}
	logger.Trips.InfoContext(ctx, "notifications toggled",
		slog.String("event", "trips.notifications"),
		slog.Bool("enabled", on),
	)
	return lo.Ternary(on, MsgNotifyOn, MsgNotifyOff), nil
}
