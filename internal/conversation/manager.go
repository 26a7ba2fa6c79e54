package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/m3rciful/tripbot/core/logger"
	"github.com/m3rciful/tripbot/core/metrics"
	"github.com/m3rciful/tripbot/internal/domain"
)

// ErrNoSession is returned by Dispatch when the user has no active flow.
var ErrNoSession = fmt.Errorf("no active conversation: %w", domain.ErrNotFound)

const (
	msgConflictDuplicate = "❌ A trip with that name already exists. Nothing was saved."
	msgConflictNotFound  = "❌ Trip not found. It may have been renamed or removed."
)

// RecordStore is the part of the record store the flows need.
type RecordStore interface {
	Load(ctx context.Context, userID int64) (domain.UserRecord, error)
	Update(ctx context.Context, userID int64, fn func(*domain.UserRecord) error) (domain.UserRecord, error)
}

// Manager keeps at most one flow per user and serializes that user's events.
type Manager struct {
	store RecordStore

	mu       sync.Mutex
	sessions map[int64]Flow
	locks    map[int64]*sync.Mutex
}

// NewManager constructs a Manager committing through store.
func NewManager(store RecordStore) *Manager {
	return &Manager{
		store:    store,
		sessions: make(map[int64]Flow),
		locks:    make(map[int64]*sync.Mutex),
	}
}

func (m *Manager) userLock(userID int64) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[userID] = l
	}
	return l
}

func (m *Manager) get(userID int64) (Flow, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.sessions[userID]
	return f, ok
}

func (m *Manager) set(userID int64, f Flow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f == nil {
		delete(m.sessions, userID)
	} else {
		m.sessions[userID] = f
	}
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
}

// Active reports the user's flow kind and state, if a flow is in progress.
func (m *Manager) Active(userID int64) (Kind, State, bool) {
	f, ok := m.get(userID)
	if !ok {
		return "", "", false
	}
	return f.Kind(), f.State(), true
}

// Session exposes the current flow value.
func (m *Manager) Session(userID int64) (Flow, bool) { return m.get(userID) }

// Start opens a flow, discarding any previous one for the user. Add-Trip
// with exactly two args (name, date) creates the trip directly and opens no
// session.
func (m *Manager) Start(ctx context.Context, userID int64, kind Kind, args ...string) (string, error) {
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	if prev, ok := m.get(userID); ok {
		logger.FSM.InfoContext(ctx, "flow replaced",
			slog.String("event", "fsm.replace"),
			slog.String("flow", string(prev.Kind())),
			slog.String("state", string(prev.State())),
			slog.String("next_flow", string(kind)),
		)
		m.set(userID, nil)
	}

	var (
		flow  Flow
		reply string
	)
	switch kind {
	case KindAddTrip:
		if len(args) == 2 {
			return m.directAdd(ctx, userID, args[0], args[1])
		}
		rec, err := m.store.Load(ctx, userID)
		if err != nil {
			return "", err
		}
		f := NewAddTrip(rec)
		flow, reply = f, f.Prompt()

	case KindEditTrip:
		rec, err := m.store.Load(ctx, userID)
		if err != nil {
			return "", err
		}
		f, ok := NewEditTrip(rec)
		if !ok {
			return msgNoTrips, nil
		}
		flow, reply = f, f.Prompt()

	case KindProfile:
		f := NewProfileForm()
		flow, reply = f, f.Prompt()

	default:
		return "", fmt.Errorf("unknown flow %q", kind)
	}

	m.set(userID, flow)
	metrics.FlowSteps.WithLabelValues(string(kind), "start").Inc()
	logger.FSM.InfoContext(ctx, "flow started",
		slog.String("event", "fsm.start"),
		slog.String("flow", string(kind)),
		slog.String("state", string(flow.State())),
	)
	return reply, nil
}

func (m *Manager) directAdd(ctx context.Context, userID int64, name, date string) (string, error) {
	mut, reply := DirectAddTrip(name, date)
	if mut == nil {
		metrics.FlowSteps.WithLabelValues(string(KindAddTrip), string(OutcomeReprompt)).Inc()
		return reply, nil
	}
	if _, err := m.store.Update(ctx, userID, mut); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return tripExists(name), nil
		}
		return "", err
	}
	metrics.FlowSteps.WithLabelValues(string(KindAddTrip), string(OutcomeDone)).Inc()
	logger.FSM.InfoContext(ctx, "trip added directly",
		slog.String("event", "fsm.direct"),
		slog.String("flow", string(KindAddTrip)),
		slog.String("trip", name),
	)
	return reply, nil
}

// Dispatch feeds one event to the user's flow. When the step carries a
// mutation it is committed before the session advances; a store failure
// leaves the session as it was and is returned to the caller.
func (m *Manager) Dispatch(ctx context.Context, userID int64, ev Event) (string, error) {
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	cur, ok := m.get(userID)
	if !ok {
		return "", ErrNoSession
	}

	step := cur.Handle(ev)
	next := step.Next
	if step.Commit != nil {
		rec, err := m.store.Update(ctx, userID, step.Commit)
		switch {
		case err == nil:
			if r, ok := next.(resyncer); ok && !step.Done {
				next = r.Resync(rec)
			}
		case domain.IsStoreError(err):
			m.logStep(ctx, cur, nil, "fail", err)
			return "", err
		case errors.Is(err, domain.ErrDuplicate):
			// A clash on a step that continues the flow asks the same question again.
			if q, ok := cur.(questioner); ok && !step.Done {
				m.logStep(ctx, cur, cur, string(OutcomeReprompt), err)
				return msgConflictDuplicate + "\n\n" + q.currentPrompt(), nil
			}
			m.set(userID, nil)
			m.logStep(ctx, cur, nil, "conflict", err)
			return msgConflictDuplicate, nil
		case errors.Is(err, domain.ErrNotFound):
			m.set(userID, nil)
			m.logStep(ctx, cur, nil, "conflict", err)
			return msgConflictNotFound, nil
		default:
			return "", err
		}
	}

	if step.Done {
		m.set(userID, nil)
		next = nil
	} else {
		m.set(userID, next)
	}
	m.logStep(ctx, cur, next, string(step.Outcome), nil)
	return step.Reply, nil
}

// Cancel drops the user's flow. The store is never touched.
func (m *Manager) Cancel(ctx context.Context, userID int64) string {
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	if cur, ok := m.get(userID); ok {
		m.set(userID, nil)
		metrics.FlowSteps.WithLabelValues(string(cur.Kind()), "cancel").Inc()
		logger.FSM.InfoContext(ctx, "flow cancelled",
			slog.String("event", "fsm.cancel"),
			slog.String("flow", string(cur.Kind())),
			slog.String("state", string(cur.State())),
		)
	}
	return msgCancelled
}

func (m *Manager) logStep(ctx context.Context, cur, next Flow, outcome string, err error) {
	metrics.FlowSteps.WithLabelValues(string(cur.Kind()), outcome).Inc()

	attrs := []any{
		slog.String("event", "fsm.step"),
		slog.String("flow", string(cur.Kind())),
		slog.String("state", string(cur.State())),
		slog.String("outcome", outcome),
	}
	if next != nil {
		attrs = append(attrs, slog.String("next_state", string(next.State())))
	}
	if err != nil {
		attrs = append(attrs, slog.String("err", err.Error()))
		logger.FSM.WarnContext(ctx, "flow step failed", attrs...)
		return
	}
	logger.FSM.DebugContext(ctx, "flow step", attrs...)
}
