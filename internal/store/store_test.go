package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/tripbot/internal/domain"
	"github.com/m3rciful/tripbot/migrations"
)

type driverCase struct {
	name string
	open func(t *testing.T) *DocStore
}

func drivers(t *testing.T) []driverCase {
	t.Helper()
	cases := []driverCase{
		{"memory", func(*testing.T) *DocStore { return NewMemory() }},
		{"file", func(t *testing.T) *DocStore {
			s, err := NewFile(filepath.Join(t.TempDir(), "trips.json"))
			require.NoError(t, err)
			return s
		}},
		{"sqlite", func(t *testing.T) *DocStore {
			s, err := NewSQLite(context.Background(), filepath.Join(t.TempDir(), "trips.db"))
			require.NoError(t, err)
			return s
		}},
	}
	if url := os.Getenv("TEST_DATABASE_URL"); url != "" {
		cases = append(cases, driverCase{"postgres", func(t *testing.T) *DocStore {
			db, err := sqlx.Connect("postgres", url)
			require.NoError(t, err)
			schema, err := migrations.FS.ReadFile("000001_user_records.up.sql")
			require.NoError(t, err)
			_, err = db.Exec(string(schema))
			require.NoError(t, err)
			_, err = db.Exec(`TRUNCATE user_records`)
			require.NoError(t, err)
			t.Cleanup(func() { _ = db.Close() })
			return NewPostgres(db)
		}})
	}
	return cases
}

func sampleTrip(start, end string, files ...string) domain.Trip {
	t := domain.Trip{
		Destination: "Italy",
		StartDate:   domain.MustDate(start),
		EndDate:     domain.MustDate(end),
		Files:       []domain.FileRef{},
	}
	for _, f := range files {
		t.Files = append(t.Files, domain.FileRef{ID: "id-" + f, Name: f})
	}
	return t
}

func TestLoadMissingUserReturnsEmptyRecord(t *testing.T) {
	for _, d := range drivers(t) {
		t.Run(d.name, func(t *testing.T) {
			s := d.open(t)
			defer s.Close()

			rec, err := s.Load(context.Background(), 1)
			require.NoError(t, err)
			assert.NotNil(t, rec.Trips)
			assert.Empty(t, rec.Trips)
			assert.Nil(t, rec.Profile)
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	for _, d := range drivers(t) {
		t.Run(d.name, func(t *testing.T) {
			s := d.open(t)
			defer s.Close()
			ctx := context.Background()

			rec := domain.NewUserRecord()
			rec.Trips["Rome"] = sampleTrip("2024-05-01", "2024-05-07", "a.pdf", "b.pdf")
			rec.Profile = &domain.Profile{
				FirstName: "Ann", LastName: "Lee",
				BirthDate: domain.MustDate("1990-01-02"), Certificates: domain.CertificatesNone,
			}
			rec.Notifications = true
			require.NoError(t, s.Save(ctx, 7, rec))

			got, err := s.Load(ctx, 7)
			require.NoError(t, err)
			assert.Equal(t, rec, got)
		})
	}
}

func TestUpdateAbortsOnCallbackError(t *testing.T) {
	for _, d := range drivers(t) {
		t.Run(d.name, func(t *testing.T) {
			s := d.open(t)
			defer s.Close()
			ctx := context.Background()

			_, err := s.Update(ctx, 1, func(r *domain.UserRecord) error {
				return r.AddTrip("Rome", sampleTrip("2024-05-01", "2024-05-07"))
			})
			require.NoError(t, err)

			_, err = s.Update(ctx, 1, func(r *domain.UserRecord) error {
				r.Trips["Oslo"] = sampleTrip("2024-06-01", "2024-06-02")
				return r.AddTrip("Rome", domain.Trip{})
			})
			require.ErrorIs(t, err, domain.ErrDuplicate)
			assert.False(t, domain.IsStoreError(err))

			got, err := s.Load(ctx, 1)
			require.NoError(t, err)
			assert.Len(t, got.Trips, 1)
			assert.Contains(t, got.Trips, "Rome")
		})
	}
}

func TestConcurrentUpdatesDoNotLoseEntries(t *testing.T) {
	for _, d := range drivers(t) {
		t.Run(d.name, func(t *testing.T) {
			s := d.open(t)
			defer s.Close()
			ctx := context.Background()

			const users, tripsEach = 5, 8
			var wg sync.WaitGroup
			for u := 1; u <= users; u++ {
				for i := 0; i < tripsEach; i++ {
					wg.Add(1)
					go func(u, i int) {
						defer wg.Done()
						_, err := s.Update(ctx, int64(u), func(r *domain.UserRecord) error {
							return r.AddTrip(fmt.Sprintf("trip-%d", i), sampleTrip("2024-01-01", "2024-01-02"))
						})
						assert.NoError(t, err)
					}(u, i)
				}
			}
			wg.Wait()

			for u := 1; u <= users; u++ {
				rec, err := s.Load(ctx, int64(u))
				require.NoError(t, err)
				assert.Len(t, rec.Trips, tripsEach, "user %d", u)
			}
		})
	}
}

func TestScanForDateMatchesStartDateOnly(t *testing.T) {
	for _, d := range drivers(t) {
		t.Run(d.name, func(t *testing.T) {
			s := d.open(t)
			defer s.Close()
			ctx := context.Background()

			a := domain.NewUserRecord()
			a.Trips["Rome"] = sampleTrip("2024-05-01", "2024-05-07")
			a.Trips["Alps"] = sampleTrip("2024-05-01", "2024-05-01")
			a.Trips["Paris"] = sampleTrip("2024-04-25", "2024-05-01")
			require.NoError(t, s.Save(ctx, 20, a))

			b := domain.NewUserRecord()
			b.Trips["Oslo"] = sampleTrip("2024-05-01", "2024-05-03")
			b.Trips["Riga"] = sampleTrip("2024-05-02", "2024-05-04")
			require.NoError(t, s.Save(ctx, 10, b))

			got, err := s.ScanForDate(ctx, domain.MustDate("2024-05-01"))
			require.NoError(t, err)
			require.Len(t, got, 3)
			assert.Equal(t, Reminder{UserID: 10, TripName: "Oslo", Trip: b.Trips["Oslo"]}, got[0])
			assert.Equal(t, "Alps", got[1].TripName)
			assert.Equal(t, "Rome", got[2].TripName)

			for _, day := range []string{"2024-04-30", "2024-05-03"} {
				none, err := s.ScanForDate(ctx, domain.MustDate(day))
				require.NoError(t, err)
				assert.Empty(t, none, day)
			}
		})
	}
}

func TestFileStoreCorruptFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trips.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s, err := NewFile(path)
	require.NoError(t, err)
	rec, err := s.Load(context.Background(), 3)
	require.NoError(t, err)
	assert.Empty(t, rec.Trips)

	due, err := s.ScanForDate(context.Background(), domain.MustDate("2024-05-01"))
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestFileStoreRefusesToOverwriteCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trips.json")
	truncated := []byte(`{"1": {"trips": {"Rome": {"start_date": "2024-05-01", "end_date": "2024-05-07", "files": []}}}, "2": {"tri`)
	require.NoError(t, os.WriteFile(path, truncated, 0o600))

	s, err := NewFile(path)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.Update(ctx, 2, func(rec *domain.UserRecord) error {
		rec.Notifications = true
		return nil
	})
	require.Error(t, err)
	assert.True(t, domain.IsStoreError(err))
	assert.ErrorIs(t, err, errCorruptFile)

	err = s.Save(ctx, 3, domain.NewUserRecord())
	require.ErrorIs(t, err, errCorruptFile)

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, truncated, onDisk)
}

func TestFileStoreLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "trips.json")
	s, err := NewFile(path)
	require.NoError(t, err)

	rec := domain.NewUserRecord()
	rec.Trips["Rome"] = sampleTrip("2024-05-01", "2024-05-07", "ticket.pdf")
	require.NoError(t, s.Save(context.Background(), 42, rec))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"42"`)
	assert.Contains(t, string(data), `"start_date": "2024-05-01"`)
	assert.Contains(t, string(data), `"name": "ticket.pdf"`)
}

func TestBackendFailureIsStoreError(t *testing.T) {
	dir := t.TempDir()
	// A directory where the file should be makes every read fail.
	path := filepath.Join(dir, "trips.json")
	require.NoError(t, os.Mkdir(path, 0o750))

	s, err := NewFile(path)
	require.NoError(t, err)
	_, err = s.Load(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, domain.IsStoreError(err))

	_, err = s.Update(context.Background(), 1, func(*domain.UserRecord) error { return nil })
	assert.True(t, domain.IsStoreError(err))
}
