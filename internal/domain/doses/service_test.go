package doses_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medtrack/internal/adapters/storage/memory"
	"medtrack/internal/domain/doses"
	"medtrack/internal/domain/medications"
)

var loc = time.FixedZone("ART", -3*3600)

func day(h, m int) time.Time { return time.Date(2025, 3, 10, h, m, 0, 0, loc) }

func seed(t *testing.T, store *memory.Store, id string, times ...string) medications.Schedule {
	t.Helper()
	sched := medications.Schedule{
		ID:              id,
		Name:            "Med " + id,
		Dosage:          "5mg",
		StartDate:       medications.CivilDate{Year: 2025, Month: time.March, Day: 1},
		Duration:        medications.OngoingDuration(),
		ReminderEnabled: true,
		CurrentSupply:   10,
		TotalSupply:     30,
		RefillAt:        3,
	}
	for _, raw := range times {
		tod, err := medications.ParseTimeOfDay(raw)
		require.NoError(t, err)
		sched.DoseTimes = append(sched.DoseTimes, tod)
	}
	require.NoError(t, store.UpsertSchedule(context.Background(), sched))
	return sched
}

func newService(store *memory.Store, now time.Time) *doses.Service {
	svc := doses.NewService(store, store, doses.DefaultGracePeriod, nil)
	svc.SetClock(func() time.Time { return now })
	return svc
}

type recorder struct{ got []doses.Event }

func (r *recorder) OnDoseRecorded(_ context.Context, e doses.Event) { r.got = append(r.got, e) }

func TestRecordDose(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seed(t, store, "m", "08:00")
	svc := newService(store, day(8, 3))
	obs := &recorder{}
	svc.SetObserver(obs)

	scheduled := day(8, 0)
	e, err := svc.RecordDose(ctx, doses.RecordInput{MedicationID: "m", Taken: true, ScheduledTime: &scheduled})
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)
	assert.True(t, e.Timestamp.Equal(day(8, 3)))
	assert.Equal(t, doses.SourceManual, e.Source)
	require.Len(t, obs.got, 1)

	got, err := store.GetSchedule(ctx, "m")
	require.NoError(t, err)
	assert.Equal(t, 9, got.CurrentSupply)

	_, err = svc.RecordDose(ctx, doses.RecordInput{MedicationID: "m", Taken: true, ScheduledTime: &scheduled})
	assert.ErrorIs(t, err, doses.ErrDuplicateEvent)
	assert.Len(t, obs.got, 1, "observer only sees stored events")

	_, err = svc.RecordDose(ctx, doses.RecordInput{MedicationID: "nope", Taken: true})
	assert.ErrorIs(t, err, doses.ErrUnknownMedication)

	_, err = svc.RecordDose(ctx, doses.RecordInput{MedicationID: "  "})
	assert.ErrorIs(t, err, doses.ErrInvalidInput)
}

func TestRecordDose_AtScheduled(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seed(t, store, "m", "08:00", "20:00")
	svc := newService(store, day(9, 30))

	morning := day(8, 0)
	e, err := svc.RecordDose(ctx, doses.RecordInput{MedicationID: "m", Taken: true, ScheduledTime: &morning, AtScheduled: true})
	require.NoError(t, err)
	assert.True(t, e.Timestamp.Equal(morning), "late take is stamped at the scheduled time")

	evening := day(20, 0)
	e, err = svc.RecordDose(ctx, doses.RecordInput{MedicationID: "m", Taken: true, ScheduledTime: &evening, AtScheduled: true})
	require.NoError(t, err)
	assert.True(t, e.Timestamp.Equal(day(9, 30)), "early take keeps now")
}

func TestMarkMissed(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seed(t, store, "m", "08:00", "14:00", "20:00")
	svc := newService(store, day(15, 0))

	e, err := svc.MarkMissed(ctx, "m", nil, doses.SourceReminder)
	require.NoError(t, err)
	require.NotNil(t, e.ScheduledTime)
	assert.True(t, e.ScheduledTime.Equal(day(14, 0)), "defaults to latest due dose")
	assert.False(t, e.Taken)
	assert.Equal(t, doses.SourceReminder, e.Source)

	_, err = svc.MarkMissed(ctx, "m", nil, doses.SourceReminder)
	assert.ErrorIs(t, err, doses.ErrDuplicateEvent)

	// toma ya registrada: no se agrega un missed encima
	morning := day(8, 0)
	_, err = svc.RecordDose(ctx, doses.RecordInput{MedicationID: "m", Taken: true, ScheduledTime: &morning})
	require.NoError(t, err)
	_, err = svc.MarkMissed(ctx, "m", &morning, doses.SourceManual)
	assert.ErrorIs(t, err, doses.ErrDuplicateEvent)

	early := newService(store, day(7, 0))
	_, err = early.MarkMissed(ctx, "m", nil, doses.SourceManual)
	assert.ErrorIs(t, err, doses.ErrInvalidInput)

	got, err := store.GetSchedule(ctx, "m")
	require.NoError(t, err)
	assert.Equal(t, 9, got.CurrentSupply)
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seed(t, store, "a", "08:00")
	seed(t, store, "b", "09:00")

	yesterday := day(8, 0).AddDate(0, 0, -1)
	for i, in := range []doses.RecordInput{
		{MedicationID: "a", Taken: true, Timestamp: yesterday},
		{MedicationID: "a", Taken: true, Timestamp: day(8, 1)},
		{MedicationID: "b", Taken: false, Timestamp: day(9, 10)},
	} {
		svc := newService(store, day(10, i))
		_, err := svc.RecordDose(ctx, in)
		require.NoError(t, err)
	}

	svc := newService(store, day(12, 0))

	all := svc.History(ctx, doses.HistoryFilter{})
	require.Len(t, all, 3)
	assert.Equal(t, "b", all[0].MedicationID, "newest first")

	today := medications.DateOf(day(0, 0))
	onDay := svc.History(ctx, doses.HistoryFilter{Date: &today})
	assert.Len(t, onDay, 2)

	onlyA := svc.History(ctx, doses.HistoryFilter{MedicationID: "a", Limit: 1})
	require.Len(t, onlyA, 1)
	assert.True(t, onlyA[0].Timestamp.Equal(day(8, 1)))
}

type failingRepo struct{ doses.Repository }

func (failingRepo) ListEvents(context.Context) ([]doses.Event, error) {
	return nil, errors.New("disk on fire")
}

func (failingRepo) ListEventsByMedication(context.Context, string) ([]doses.Event, error) {
	return nil, errors.New("disk on fire")
}

func TestHistory_ReadFailureDegradesToEmpty(t *testing.T) {
	store := memory.NewStore()
	svc := doses.NewService(failingRepo{store}, store, doses.DefaultGracePeriod, nil)

	got := svc.History(context.Background(), doses.HistoryFilter{})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestDoseStatus(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seed(t, store, "m", "08:00")
	svc := newService(store, day(8, 12))

	q := doses.StatusQuery{MedicationID: "m", ScheduledTime: day(8, 0), Grace: -1}
	st, err := svc.DoseStatus(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, doses.StatusMissed, st)

	q.Grace = 15 * time.Minute
	st, err = svc.DoseStatus(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, doses.StatusPending, st)

	// una toma de ayer no cuenta para hoy
	_, err = svc.RecordDose(ctx, doses.RecordInput{MedicationID: "m", Taken: true, Timestamp: day(8, 5).AddDate(0, 0, -1)})
	require.NoError(t, err)
	q.Grace = -1
	st, err = svc.DoseStatus(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, doses.StatusMissed, st)

	_, err = svc.RecordDose(ctx, doses.RecordInput{MedicationID: "m", Taken: true})
	require.NoError(t, err)
	st, err = svc.DoseStatus(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, doses.StatusTaken, st)

	_, err = svc.DoseStatus(ctx, doses.StatusQuery{MedicationID: "m"})
	assert.ErrorIs(t, err, doses.ErrInvalidInput)
}

func TestAgenda(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seed(t, store, "b", "20:00", "08:00")
	seed(t, store, "a", "08:00")
	ended := seed(t, store, "old", "09:00")
	ended.StartDate = medications.CivilDate{Year: 2025, Month: time.February, Day: 1}
	ended.Duration = medications.DaysDuration(7)
	require.NoError(t, store.UpsertSchedule(ctx, ended))

	svc := newService(store, day(8, 30))
	morning := day(8, 0)
	_, err := svc.RecordDose(ctx, doses.RecordInput{MedicationID: "b", Taken: true, ScheduledTime: &morning, Timestamp: day(8, 2)})
	require.NoError(t, err)

	ag := svc.Agenda(ctx, day(0, 0))
	require.Len(t, ag.Entries, 3)
	assert.Equal(t, "Med a", ag.Entries[0].Name)
	assert.Equal(t, doses.StatusMissed, ag.Entries[0].Status)
	assert.Equal(t, "Med b", ag.Entries[1].Name)
	assert.Equal(t, doses.StatusTaken, ag.Entries[1].Status)
	assert.Equal(t, doses.StatusUpcoming, ag.Entries[2].Status)
	assert.Equal(t, 3, ag.Total)
	assert.Equal(t, 1, ag.Taken)
	assert.InDelta(t, 1.0/3.0, ag.Progress, 1e-9)
}

// Una toma de las 23:55 respondida pasada la medianoche pertenece al día de la toma.
func TestAgenda_LateNightDoseAnsweredAfterMidnight(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seed(t, store, "late", "23:55")
	seed(t, store, "night", "23:55")
	svc := newService(store, day(0, 30).AddDate(0, 0, 1))

	dose := day(23, 55)
	require.NoError(t, store.AppendEvent(ctx, doses.Event{
		ID:            "swept",
		MedicationID:  "late",
		Timestamp:     dose.Add(doses.DefaultGracePeriod),
		ScheduledTime: &dose,
		Source:        doses.SourceSweeper,
	}))
	_, err := svc.RecordDose(ctx, doses.RecordInput{
		MedicationID:  "night",
		Taken:         true,
		Timestamp:     day(0, 2).AddDate(0, 0, 1),
		ScheduledTime: &dose,
	})
	require.NoError(t, err)

	ag := svc.Agenda(ctx, day(12, 0))
	require.Len(t, ag.Entries, 2)
	byMed := map[string]doses.DoseStatus{}
	for _, e := range ag.Entries {
		byMed[e.MedicationID] = e.Status
	}
	assert.Equal(t, doses.StatusMissed, byMed["late"])
	assert.Equal(t, doses.StatusTaken, byMed["night"])
	assert.Equal(t, 1, ag.Taken)

	st, err := svc.DoseStatus(ctx, doses.StatusQuery{MedicationID: "night", ScheduledTime: dose, Grace: -1})
	require.NoError(t, err)
	assert.Equal(t, doses.StatusTaken, st)

	// el día siguiente no hereda esas respuestas
	next := svc.Agenda(ctx, day(12, 0).AddDate(0, 0, 1))
	for _, e := range next.Entries {
		assert.Equal(t, doses.StatusUpcoming, e.Status, e.MedicationID)
	}
}
