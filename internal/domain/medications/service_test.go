package medications

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRepo: repo en memoria sólo para tests del servicio.
type fakeRepo struct {
	mu      sync.Mutex
	items   map[string]Schedule
	listErr error
}

func newFakeRepo() *fakeRepo { return &fakeRepo{items: map[string]Schedule{}} }

func (r *fakeRepo) ListSchedules(context.Context) ([]Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]Schedule, 0, len(r.items))
	for _, s := range r.items {
		out = append(out, s)
	}
	return out, nil
}

func (r *fakeRepo) GetSchedule(_ context.Context, id string) (Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[id]
	if !ok {
		return Schedule{}, ErrNotFound
	}
	return s, nil
}

func (r *fakeRepo) UpsertSchedule(_ context.Context, s Schedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[s.ID] = s
	return nil
}

func (r *fakeRepo) UpdateSchedule(_ context.Context, id string, fn func(*Schedule) error) (Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[id]
	if !ok {
		return Schedule{}, ErrNotFound
	}
	if err := fn(&s); err != nil {
		return Schedule{}, err
	}
	r.items[id] = s
	return s, nil
}

func (r *fakeRepo) DeleteSchedule(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return ErrNotFound
	}
	delete(r.items, id)
	return nil
}

type fakeReminders struct {
	scheduled []string
	cancelled []string
}

func (f *fakeReminders) ScheduleReminders(_ context.Context, s Schedule) []string {
	f.scheduled = append(f.scheduled, s.ID)
	return nil
}

func (f *fakeReminders) CancelReminders(_ context.Context, id string) {
	f.cancelled = append(f.cancelled, id)
}

func validInput() CreateInput {
	return CreateInput{
		Name:          "  Ibuprofeno  ",
		Dosage:        "400mg",
		DoseTimes:     []TimeOfDay{{Hour: 20}, {Hour: 8}},
		StartDate:     CivilDate{Year: 2025, Month: time.March, Day: 1},
		Duration:      DaysDuration(10),
		CurrentSupply: 20,
		TotalSupply:   30,
		RefillAt:      5,
	}
}

func TestService_CreateValidates(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)
	ctx := context.Background()

	cases := map[string]func(*CreateInput){
		"empty name":         func(in *CreateInput) { in.Name = " " },
		"no times":           func(in *CreateInput) { in.DoseTimes = nil },
		"duplicate time":     func(in *CreateInput) { in.DoseTimes = []TimeOfDay{{Hour: 8}, {Hour: 8}} },
		"time out of range":  func(in *CreateInput) { in.DoseTimes = []TimeOfDay{{Hour: 24}} },
		"missing start date": func(in *CreateInput) { in.StartDate = CivilDate{} },
		"zero days":          func(in *CreateInput) { in.Duration = Duration{} },
		"negative supply":    func(in *CreateInput) { in.CurrentSupply = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := validInput()
			mutate(&in)
			_, err := svc.Create(ctx, in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestService_CreateUpdateDelete(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	rem := &fakeReminders{}
	svc := NewService(repo, nil)
	svc.SetReminderSync(rem)

	s, err := svc.Create(ctx, validInput())
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "Ibuprofeno", s.Name)
	assert.Equal(t, []string{s.ID}, rem.scheduled)

	in := validInput()
	in.Name = "Ibuprofeno Forte"
	in.Duration = OngoingDuration()
	updated, err := svc.Update(ctx, s.ID, in)
	require.NoError(t, err)
	assert.Equal(t, s.ID, updated.ID)
	assert.True(t, updated.Duration.Ongoing)
	assert.Len(t, rem.scheduled, 2)

	_, err = svc.Update(ctx, "missing", in)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, svc.Delete(ctx, s.ID))
	assert.Equal(t, []string{s.ID}, rem.cancelled)
	assert.ErrorIs(t, svc.Delete(ctx, s.ID), ErrNotFound)
}

func TestService_Refill(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newFakeRepo(), nil)
	svc.SetClock(func() time.Time { return time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC) })

	in := validInput()
	in.CurrentSupply = 2
	s, err := svc.Create(ctx, in)
	require.NoError(t, err)
	assert.True(t, s.NeedsRefill())

	s, err = svc.Refill(ctx, s.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, 12, s.CurrentSupply)
	require.NotNil(t, s.LastRefillDate)
	assert.Equal(t, "2025-03-12", s.LastRefillDate.String())

	s, err = svc.Refill(ctx, s.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 30, s.CurrentSupply)
	assert.False(t, s.NeedsRefill())
}

func TestService_ListDegradesToEmpty(t *testing.T) {
	repo := newFakeRepo()
	repo.listErr = errors.New("corrupt")
	svc := NewService(repo, nil)

	got := svc.List(context.Background())
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestService_ActiveOn(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newFakeRepo(), nil)
	_, err := svc.Create(ctx, validInput()) // 1..10 de marzo
	require.NoError(t, err)

	on := func(d int) time.Time { return time.Date(2025, 3, d, 12, 0, 0, 0, time.UTC) }
	assert.Len(t, svc.ActiveOn(ctx, on(1)), 1)
	assert.Len(t, svc.ActiveOn(ctx, on(10)), 1)
	assert.Empty(t, svc.ActiveOn(ctx, on(11)))
	assert.Empty(t, svc.ActiveOn(ctx, time.Date(2025, 2, 28, 23, 0, 0, 0, time.UTC)))
}

func TestService_Import(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	rem := &fakeReminders{}
	svc := NewService(repo, nil)
	svc.SetReminderSync(rem)

	in := validInput()
	refilled := CivilDate{Year: 2025, Month: time.February, Day: 20}
	sched := Schedule{
		ID:             "med-1",
		Name:           in.Name,
		DoseTimes:      in.DoseTimes,
		StartDate:      in.StartDate,
		Duration:       in.Duration,
		CurrentSupply:  4,
		TotalSupply:    30,
		LastRefillDate: &refilled,
	}

	got, err := svc.Import(ctx, sched)
	require.NoError(t, err)
	assert.Equal(t, "med-1", got.ID)
	require.NotNil(t, got.LastRefillDate)
	assert.Equal(t, refilled, *got.LastRefillDate)
	assert.Equal(t, []string{"med-1"}, rem.scheduled)

	stored, err := svc.Get(ctx, "med-1")
	require.NoError(t, err)
	assert.Equal(t, 4, stored.CurrentSupply)

	// sin ID genera uno; inválido no se guarda
	sched.ID = ""
	got, err = svc.Import(ctx, sched)
	require.NoError(t, err)
	assert.NotEqual(t, "med-1", got.ID)

	sched.DoseTimes = nil
	_, err = svc.Import(ctx, sched)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
