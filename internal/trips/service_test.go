package trips

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/tripbot/internal/domain"
	"github.com/m3rciful/tripbot/internal/store"
)

func seeded(t *testing.T) (*store.DocStore, *Service) {
	t.Helper()
	s := store.NewMemory()
	rec := domain.NewUserRecord()
	rec.Trips["Rome"] = domain.Trip{
		Destination: "Italy",
		StartDate:   domain.MustDate("2025-06-01"),
		EndDate:     domain.MustDate("2025-06-10"),
		Files:       []domain.FileRef{{ID: "f1"}},
	}
	rec.Trips["Alps"] = domain.Trip{
		StartDate: domain.MustDate("2025-01-05"),
		EndDate:   domain.MustDate("2025-01-05"),
		Files:     []domain.FileRef{},
	}
	require.NoError(t, s.Save(context.Background(), 1, rec))
	return s, NewService(s)
}

func TestAttach(t *testing.T) {
	ctx := context.Background()
	s, svc := seeded(t)

	reply, err := svc.Attach(ctx, 1, "", domain.FileRef{ID: "x"})
	require.NoError(t, err)
	assert.Equal(t, MsgNoCaption, reply)

	reply, err = svc.Attach(ctx, 1, "Paris", domain.FileRef{ID: "x"})
	require.NoError(t, err)
	assert.Equal(t, MsgTripNotFound, reply)

	reply, err = svc.Attach(ctx, 1, " Rome ", domain.FileRef{ID: "f2", Name: "visa.pdf"})
	require.NoError(t, err)
	assert.Equal(t, "📎 File saved to 'Rome'.", reply)

	rec, err := s.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []domain.FileRef{{ID: "f1"}, {ID: "f2", Name: "visa.pdf"}}, rec.Trips["Rome"].Files)
	assert.NotContains(t, rec.Trips, "Paris")
}

func TestAttachOtherUserTripNotFound(t *testing.T) {
	_, svc := seeded(t)
	reply, err := svc.Attach(context.Background(), 2, "Rome", domain.FileRef{ID: "x"})
	require.NoError(t, err)
	assert.Equal(t, MsgTripNotFound, reply)
}

func TestList(t *testing.T) {
	ctx := context.Background()
	_, svc := seeded(t)

	reply, err := svc.List(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "📋 Saved trips:\n\n"+
		"• Alps: 2025-01-05 → 2025-01-05 • no destination (0 file(s))\n"+
		"• Rome: 2025-06-01 → 2025-06-10 • Italy (1 file(s))", reply)

	reply, err = svc.List(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, MsgNoTrips, reply)
}

func TestProfile(t *testing.T) {
	ctx := context.Background()
	s, svc := seeded(t)

	reply, err := svc.Profile(ctx, 1)
	require.NoError(t, err)
	assert.Contains(t, reply, "📛 Name: not set")
	assert.Contains(t, reply, "🧳 Saved trips: 2")
	assert.Contains(t, reply, "📁 Saved documents: 1")

	_, err = s.Update(ctx, 1, func(r *domain.UserRecord) error {
		r.Profile = &domain.Profile{FirstName: "Ann", LastName: "Lee", BirthDate: domain.MustDate("1990-01-02")}
		return nil
	})
	require.NoError(t, err)
	reply, err = svc.Profile(ctx, 1)
	require.NoError(t, err)
	assert.Contains(t, reply, "📛 Name: Ann Lee")
	assert.Contains(t, reply, "🎂 Birth date: 1990-01-02")
	assert.Contains(t, reply, "📄 Certificates: none")
}

func TestSetNotifications(t *testing.T) {
	ctx := context.Background()
	s, svc := seeded(t)

	reply, err := svc.SetNotifications(ctx, 1, true)
	require.NoError(t, err)
	assert.Equal(t, MsgNotifyOn, reply)
	rec, err := s.Load(ctx, 1)
	require.NoError(t, err)
	assert.True(t, rec.Notifications)
	assert.Len(t, rec.Trips, 2)

	reply, err = svc.SetNotifications(ctx, 1, false)
	require.NoError(t, err)
	assert.Equal(t, MsgNotifyOff, reply)
	rec, err = s.Load(ctx, 1)
	require.NoError(t, err)
	assert.False(t, rec.Notifications)
}
