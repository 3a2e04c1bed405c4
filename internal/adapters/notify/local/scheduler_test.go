package local

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medtrack/internal/ports/notify"
)

func TestScheduler_DailyFiresOncePerDay(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	created := time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return created })

	h, err := s.Schedule(ctx, notify.Notification{
		Title:   "Medication Reminder",
		Data:    map[string]string{"medicationId": "m"},
		Trigger: notify.Trigger{Daily: true, Hour: 8, Minute: 0},
	})
	require.NoError(t, err)

	var got []string
	s.OnFire(func(_ context.Context, sc notify.Scheduled) { got = append(got, sc.Handle) })

	assert.Empty(t, s.Tick(ctx, created.Add(30*time.Minute)))
	assert.Len(t, s.Tick(ctx, created.Add(time.Hour)), 1)
	assert.Empty(t, s.Tick(ctx, created.Add(2*time.Hour)), "already fired today")
	assert.Len(t, s.Tick(ctx, created.Add(25*time.Hour)), 1)
	assert.Equal(t, []string{h, h}, got)

	items, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1, "daily reminders stay scheduled")
}

func TestScheduler_DailyCreatedAfterTimeWaitsForTomorrow(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	created := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return created })

	_, err := s.Schedule(ctx, notify.Notification{Trigger: notify.Trigger{Daily: true, Hour: 8}})
	require.NoError(t, err)

	assert.Empty(t, s.Tick(ctx, created.Add(time.Minute)))
	assert.Len(t, s.Tick(ctx, created.Add(18*time.Hour)), 1)
}

func TestScheduler_AbsoluteFiresOnceAndCancel(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	at := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	h1, err := s.Schedule(ctx, notify.Notification{Trigger: notify.Trigger{At: at}})
	require.NoError(t, err)
	h2, err := s.Schedule(ctx, notify.Notification{Trigger: notify.Trigger{At: at}})
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)

	require.NoError(t, s.Cancel(ctx, h2))
	require.NoError(t, s.Cancel(ctx, "unknown"))

	assert.Empty(t, s.Tick(ctx, at.Add(-time.Second)))
	fired := s.Tick(ctx, at)
	require.Len(t, fired, 1)
	assert.Equal(t, h1, fired[0].Handle)
	assert.Empty(t, s.Tick(ctx, at.Add(time.Hour)))

	items, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}
