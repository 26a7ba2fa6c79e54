// Package store persists one UserRecord per Telegram user. Every driver keeps
// the record as a JSON document and all writes go through a single lock
// spanning the whole load-modify-save cycle.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/m3rciful/tripbot/core/logger"
	"github.com/m3rciful/tripbot/core/metrics"
	"github.com/m3rciful/tripbot/internal/domain"
)

// Store is the record store consumed by the flows, the trip service and the
// reminder scheduler.
type Store interface {
	Load(ctx context.Context, userID int64) (domain.UserRecord, error)
	Save(ctx context.Context, userID int64, rec domain.UserRecord) error
	Update(ctx context.Context, userID int64, fn func(*domain.UserRecord) error) (domain.UserRecord, error)
	ScanForDate(ctx context.Context, date domain.Date) ([]Reminder, error)
	Close() error
}

// Reminder is one trip starting on the scanned date.
type Reminder struct {
	UserID   int64
	TripName string
	Trip     domain.Trip
}

// backend stores raw JSON payloads keyed by user id.
type backend interface {
	get(ctx context.Context, userID int64) ([]byte, bool, error)
	put(ctx context.Context, userID int64, payload []byte) error
	// startingOn may return a superset; callers filter precisely.
	startingOn(ctx context.Context, date string) (map[int64][]byte, error)
	close() error
}

// DocStore implements Store over any backend.
type DocStore struct {
	driver string
	b      backend
	mu     sync.Mutex
}

var _ Store = (*DocStore)(nil)

func newDocStore(driver string, b backend) *DocStore {
	return &DocStore{driver: driver, b: b}
}

// Driver names the backend, as configured.
func (s *DocStore) Driver() string { return s.driver }

// Load returns the user's record or an empty one.
func (s *DocStore) Load(ctx context.Context, userID int64) (rec domain.UserRecord, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "load", userID, start, err) }()
	return s.load(ctx, userID)
}

func (s *DocStore) load(ctx context.Context, userID int64) (domain.UserRecord, error) {
	payload, ok, err := s.b.get(ctx, userID)
	if err != nil {
		return domain.UserRecord{}, &domain.StoreError{Op: "load", Err: err}
	}
	if !ok {
		return domain.NewUserRecord(), nil
	}
	return s.decode(ctx, userID, payload), nil
}

// Save replaces the user's record.
func (s *DocStore) Save(ctx context.Context, userID int64, rec domain.UserRecord) (err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "save", userID, start, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, userID, rec)
}

func (s *DocStore) save(ctx context.Context, userID int64, rec domain.UserRecord) error {
	if rec.Trips == nil {
		rec.Trips = map[string]domain.Trip{}
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return &domain.StoreError{Op: "encode", Err: err}
	}
	if err := s.b.put(ctx, userID, payload); err != nil {
		return &domain.StoreError{Op: "save", Err: err}
	}
	return nil
}

// Update loads the record, applies fn and saves the result while holding the
// writer lock. An error from fn aborts the write and is returned as is.
func (s *DocStore) Update(ctx context.Context, userID int64, fn func(*domain.UserRecord) error) (rec domain.UserRecord, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "update", userID, start, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load(ctx, userID)
	if err != nil {
		return domain.UserRecord{}, err
	}
	next := current.Clone()
	if err := fn(&next); err != nil {
		return current, err
	}
	if err := s.save(ctx, userID, next); err != nil {
		return current, err
	}
	return next, nil
}

// ScanForDate lists every trip whose start date equals date, ordered by user
// id and then trip name.
func (s *DocStore) ScanForDate(ctx context.Context, date domain.Date) (out []Reminder, err error) {
	start := time.Now()
	defer func() {
		s.observe(ctx, "scan", 0, start, err)
	}()

	payloads, err := s.b.startingOn(ctx, date.String())
	if err != nil {
		return nil, &domain.StoreError{Op: "scan", Err: err}
	}
	for userID, payload := range payloads {
		rec := s.decode(ctx, userID, payload)
		for name, t := range rec.Trips {
			if t.StartDate.Equal(date) {
				out = append(out, Reminder{UserID: userID, TripName: name, Trip: t})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].TripName < out[j].TripName
	})
	return out, nil
}

// Close releases the backend.
func (s *DocStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.b.close(); err != nil {
		return &domain.StoreError{Op: "close", Err: err}
	}
	return nil
}

// decode treats an unreadable payload as an empty record.
func (s *DocStore) decode(ctx context.Context, userID int64, payload []byte) domain.UserRecord {
	rec := domain.NewUserRecord()
	if err := json.Unmarshal(payload, &rec); err != nil {
		logger.Store.WarnContext(ctx, "corrupt record ignored",
			slog.String("event", "store.decode"),
			slog.String("driver", s.driver),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return domain.NewUserRecord()
	}
	if rec.Trips == nil {
		rec.Trips = map[string]domain.Trip{}
	}
	return rec
}

func (s *DocStore) observe(ctx context.Context, op string, userID int64, start time.Time, err error) {
	took := time.Since(start)
	metrics.ObserveStore(s.driver, op, took, err)

	attrs := []any{
		slog.String("event", "store."+op),
		slog.String("driver", s.driver),
		slog.String("status", logger.Status(err)),
		slog.Duration("duration", logger.RoundMS(took)),
	}
	if userID != 0 {
		attrs = append(attrs, slog.Int64("user_id", userID))
	}
	if err != nil && domain.IsStoreError(err) {
		attrs = append(attrs, slog.String("err", err.Error()))
		logger.Store.ErrorContext(ctx, "store operation failed", attrs...)
		return
	}
	if logger.ShouldSampleDebug() {
		logger.Store.DebugContext(ctx, "store operation", attrs...)
	}
}

func userKey(userID int64) string { return fmt.Sprintf("%d", userID) }
