package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/tripbot/core/buildinfo"
	"github.com/m3rciful/tripbot/internal/domain"
	"github.com/m3rciful/tripbot/internal/reminder"
	"github.com/m3rciful/tripbot/internal/store"
)

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Equal(t, "tripbot "+buildinfo.String()+"\n", out.String())
}

func TestPrintPlan(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	_, err := st.Update(ctx, 7, func(rec *domain.UserRecord) error {
		rec.Notifications = true
		return rec.AddTrip("Rome", domain.Trip{
			StartDate: domain.MustDate("2025-06-01"),
			EndDate:   domain.MustDate("2025-06-05"),
		})
	})
	require.NoError(t, err)
	sched := reminder.New(st, nil, reminder.Options{})

	var out bytes.Buffer
	require.NoError(t, printPlan(ctx, &out, sched, domain.MustDate("2025-05-31")))
	assert.Contains(t, out.String(), "7\tRome\t")
	assert.Contains(t, out.String(), "2025-06-01")

	out.Reset()
	require.NoError(t, printPlan(ctx, &out, sched, domain.MustDate("2025-06-01")))
	assert.Equal(t, "no reminders for trips starting 2025-06-02\n", out.String())
}
