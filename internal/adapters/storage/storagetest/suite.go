// Package storagetest contiene la batería de pruebas común a todos los event stores.
package storagetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medtrack/internal/domain/doses"
	"medtrack/internal/domain/medications"
	"medtrack/internal/ports/storage"
)

// Opener devuelve un store vacío; el test se encarga de cerrarlo.
type Opener func(t *testing.T) storage.EventStore

func Run(t *testing.T, open Opener) {
	t.Run("schedules", func(t *testing.T) { testSchedules(t, open) })
	t.Run("append decrements supply", func(t *testing.T) { testSupply(t, open) })
	t.Run("duplicate answers rejected", func(t *testing.T) { testDuplicates(t, open) })
	t.Run("events by medication", func(t *testing.T) { testByMedication(t, open) })
	t.Run("delete keeps history", func(t *testing.T) { testDeleteKeepsHistory(t, open) })
	t.Run("clear all", func(t *testing.T) { testClearAll(t, open) })
	t.Run("concurrent duplicate appends", func(t *testing.T) { testConcurrentAppend(t, open) })
	t.Run("concurrent taken appends", func(t *testing.T) { testConcurrentTaken(t, open) })
	t.Run("update schedule", func(t *testing.T) { testUpdateSchedule(t, open) })
	t.Run("update schedule with appends", func(t *testing.T) { testUpdateWithAppends(t, open) })
}

var base = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

func Schedule(id string, supply int) medications.Schedule {
	return medications.Schedule{
		ID:     id,
		Name:   "Med " + id,
		Dosage: "10mg",
		DoseTimes: []medications.TimeOfDay{
			{Hour: 8, Minute: 0},
			{Hour: 20, Minute: 0},
		},
		StartDate:       medications.DateOf(base),
		Duration:        medications.OngoingDuration(),
		ReminderEnabled: true,
		CurrentSupply:   supply,
		TotalSupply:     30,
		RefillAt:        5,
	}
}

func Event(id, medID string, taken bool, scheduled *time.Time, ts time.Time) doses.Event {
	return doses.Event{
		ID:            id,
		MedicationID:  medID,
		Timestamp:     ts,
		Taken:         taken,
		ScheduledTime: scheduled,
		Source:        doses.SourceManual,
	}
}

func at(t time.Time) *time.Time { return &t }

func openStore(t *testing.T, open Opener) storage.EventStore {
	t.Helper()
	s := open(t)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testSchedules(t *testing.T, open Opener) {
	ctx := context.Background()
	s := openStore(t, open)

	items, err := s.ListSchedules(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	require.NoError(t, s.UpsertSchedule(ctx, Schedule("a", 10)))
	require.NoError(t, s.UpsertSchedule(ctx, Schedule("b", 10)))

	updated := Schedule("a", 7)
	updated.Name = "Renamed"
	require.NoError(t, s.UpsertSchedule(ctx, updated))

	items, err = s.ListSchedules(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ID, "update keeps position")
	assert.Equal(t, "Renamed", items[0].Name)
	assert.Equal(t, 7, items[0].CurrentSupply)
	assert.Equal(t, "b", items[1].ID)

	got, err := s.GetSchedule(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, Schedule("b", 10).DoseTimes, got.DoseTimes)
	assert.Equal(t, medications.DateOf(base), got.StartDate)
	assert.True(t, got.Duration.Ongoing)

	_, err = s.GetSchedule(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.DeleteSchedule(ctx, "a"))
	assert.ErrorIs(t, s.DeleteSchedule(ctx, "a"), storage.ErrNotFound)

	items, err = s.ListSchedules(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "b", items[0].ID)
}

func testSupply(t *testing.T, open Opener) {
	ctx := context.Background()
	s := openStore(t, open)

	require.NoError(t, s.UpsertSchedule(ctx, Schedule("m", 1)))

	require.NoError(t, s.AppendEvent(ctx, Event("e1", "m", true, at(base), base.Add(time.Minute))))
	got, err := s.GetSchedule(ctx, "m")
	require.NoError(t, err)
	assert.Equal(t, 0, got.CurrentSupply)

	// stock en cero no baja más
	require.NoError(t, s.AppendEvent(ctx, Event("e2", "m", true, at(base.Add(12*time.Hour)), base.Add(12*time.Hour))))
	got, err = s.GetSchedule(ctx, "m")
	require.NoError(t, err)
	assert.Equal(t, 0, got.CurrentSupply)

	// missed no toca el stock
	require.NoError(t, s.UpsertSchedule(ctx, Schedule("n", 4)))
	require.NoError(t, s.AppendEvent(ctx, Event("e3", "n", false, at(base), base.Add(10*time.Minute))))
	got, err = s.GetSchedule(ctx, "n")
	require.NoError(t, err)
	assert.Equal(t, 4, got.CurrentSupply)

	// evento de una medicación sin schedule se guarda igual
	require.NoError(t, s.AppendEvent(ctx, Event("e4", "ghost", true, nil, base)))
}

func testDuplicates(t *testing.T, open Opener) {
	ctx := context.Background()
	s := openStore(t, open)

	require.NoError(t, s.UpsertSchedule(ctx, Schedule("m", 10)))

	require.NoError(t, s.AppendEvent(ctx, Event("e1", "m", true, at(base), base.Add(2*time.Minute))))
	err := s.AppendEvent(ctx, Event("e2", "m", true, at(base), base.Add(3*time.Minute)))
	assert.ErrorIs(t, err, storage.ErrDuplicateEvent)

	// misma toma en otra zona horaria también es duplicado
	other := base.In(time.FixedZone("UTC-5", -5*3600))
	err = s.AppendEvent(ctx, Event("e3", "m", true, &other, base.Add(4*time.Minute)))
	assert.ErrorIs(t, err, storage.ErrDuplicateEvent)

	got, err := s.GetSchedule(ctx, "m")
	require.NoError(t, err)
	assert.Equal(t, 9, got.CurrentSupply, "duplicate must not decrement")

	// taken y missed para la misma toma pueden coexistir
	require.NoError(t, s.AppendEvent(ctx, Event("e4", "m", false, at(base), base.Add(10*time.Minute))))
	assert.ErrorIs(t, s.AppendEvent(ctx, Event("e5", "m", false, at(base), base.Add(11*time.Minute))), storage.ErrDuplicateEvent)

	// sin scheduledTime no hay regla de unicidad
	require.NoError(t, s.AppendEvent(ctx, Event("e6", "m", true, nil, base)))
	require.NoError(t, s.AppendEvent(ctx, Event("e7", "m", true, nil, base)))

	events, err := s.ListEvents(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 4)
}

func testByMedication(t *testing.T, open Opener) {
	ctx := context.Background()
	s := openStore(t, open)

	require.NoError(t, s.AppendEvent(ctx, Event("e1", "a", true, at(base), base)))
	require.NoError(t, s.AppendEvent(ctx, Event("e2", "b", false, at(base), base.Add(10*time.Minute))))
	require.NoError(t, s.AppendEvent(ctx, Event("e3", "a", false, at(base.Add(12*time.Hour)), base.Add(12*time.Hour+10*time.Minute))))

	events, err := s.ListEventsByMedication(ctx, "a")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "e1", events[0].ID)
	assert.Equal(t, "e3", events[1].ID)

	assert.True(t, events[0].Taken)
	assert.True(t, events[0].Timestamp.Equal(base))
	require.NotNil(t, events[1].ScheduledTime)
	assert.True(t, events[1].ScheduledTime.Equal(base.Add(12*time.Hour)))
	assert.Equal(t, doses.SourceManual, events[1].Source)

	none, err := s.ListEventsByMedication(ctx, "zzz")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testDeleteKeepsHistory(t *testing.T, open Opener) {
	ctx := context.Background()
	s := openStore(t, open)

	require.NoError(t, s.UpsertSchedule(ctx, Schedule("m", 3)))
	require.NoError(t, s.AppendEvent(ctx, Event("e1", "m", true, at(base), base)))
	require.NoError(t, s.DeleteSchedule(ctx, "m"))

	events, err := s.ListEventsByMedication(ctx, "m")
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func testClearAll(t *testing.T, open Opener) {
	ctx := context.Background()
	s := openStore(t, open)

	require.NoError(t, s.UpsertSchedule(ctx, Schedule("m", 3)))
	require.NoError(t, s.AppendEvent(ctx, Event("e1", "m", true, at(base), base)))
	require.NoError(t, s.ClearAll(ctx))

	items, err := s.ListSchedules(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
	events, err := s.ListEvents(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)

	// la clave vuelve a estar libre
	require.NoError(t, s.AppendEvent(ctx, Event("e2", "m", true, at(base), base)))
}

func testConcurrentAppend(t *testing.T, open Opener) {
	ctx := context.Background()
	s := openStore(t, open)
	require.NoError(t, s.UpsertSchedule(ctx, Schedule("m", 10)))

	const workers = 8
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		oks int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e := Event("c"+string(rune('a'+i)), "m", false, at(base), base.Add(10*time.Minute))
			if err := s.AppendEvent(ctx, e); err == nil {
				mu.Lock()
				oks++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, oks)
	events, err := s.ListEvents(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func testConcurrentTaken(t *testing.T, open Opener) {
	ctx := context.Background()
	s := openStore(t, open)
	require.NoError(t, s.UpsertSchedule(ctx, Schedule("m", 20)))

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			scheduled := base.Add(time.Duration(i) * 12 * time.Hour)
			e := Event("t"+string(rune('a'+i)), "m", true, &scheduled, scheduled.Add(time.Minute))
			assert.NoError(t, s.AppendEvent(ctx, e))
		}(i)
	}
	wg.Wait()

	got, err := s.GetSchedule(ctx, "m")
	require.NoError(t, err)
	assert.Equal(t, 20-workers, got.CurrentSupply)
}

func testUpdateSchedule(t *testing.T, open Opener) {
	ctx := context.Background()
	s := openStore(t, open)
	require.NoError(t, s.UpsertSchedule(ctx, Schedule("m", 3)))

	got, err := s.UpdateSchedule(ctx, "m", func(sched *medications.Schedule) error {
		sched.CurrentSupply += 10
		sched.Name = "Updated"
		sched.ID = "other"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "m", got.ID, "id is not rewritten")
	assert.Equal(t, 13, got.CurrentSupply)

	stored, err := s.GetSchedule(ctx, "m")
	require.NoError(t, err)
	assert.Equal(t, "Updated", stored.Name)
	assert.Equal(t, 13, stored.CurrentSupply)

	boom := errors.New("boom")
	_, err = s.UpdateSchedule(ctx, "m", func(sched *medications.Schedule) error {
		sched.CurrentSupply = 0
		return boom
	})
	assert.ErrorIs(t, err, boom)
	stored, err = s.GetSchedule(ctx, "m")
	require.NoError(t, err)
	assert.Equal(t, 13, stored.CurrentSupply, "failed update writes nothing")

	_, err = s.UpdateSchedule(ctx, "missing", func(*medications.Schedule) error { return nil })
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

// Reposiciones y tomas concurrentes: cada +1 compensa un -1.
func testUpdateWithAppends(t *testing.T, open Opener) {
	ctx := context.Background()
	s := openStore(t, open)
	require.NoError(t, s.UpsertSchedule(ctx, Schedule("m", 10)))

	const workers = 6
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := s.UpdateSchedule(ctx, "m", func(sched *medications.Schedule) error {
				sched.CurrentSupply++
				return nil
			})
			assert.NoError(t, err)
		}()
		go func(i int) {
			defer wg.Done()
			scheduled := base.Add(time.Duration(i) * 12 * time.Hour)
			assert.NoError(t, s.AppendEvent(ctx, Event("u"+string(rune('a'+i)), "m", true, &scheduled, scheduled)))
		}(i)
	}
	wg.Wait()

	got, err := s.GetSchedule(ctx, "m")
	require.NoError(t, err)
	assert.Equal(t, 10, got.CurrentSupply)
}
