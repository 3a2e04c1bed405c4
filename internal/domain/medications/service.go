package medications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"medtrack/internal/platform/logger"
)

var (
	ErrInvalidInput = errors.New("invalid input")
)

// ReminderSync es lo que el servicio necesita del bridge de recordatorios.
// Puede ser nil (sin recordatorios).
type ReminderSync interface {
	ScheduleReminders(ctx context.Context, s Schedule) []string
	CancelReminders(ctx context.Context, medicationID string)
}

type Service struct {
	repo      Repository
	reminders ReminderSync
	log       logger.Logger
	now       func() time.Time
}

func NewService(repo Repository, log logger.Logger) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{
		repo: repo,
		log:  log.With(map[string]any{"component": "medications"}),
		now:  time.Now,
	}
}

func (s *Service) SetReminderSync(r ReminderSync) { s.reminders = r }

// SetClock reemplaza el reloj (tests / zona horaria configurada).
func (s *Service) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

type CreateInput struct {
	Name            string
	Dosage          string
	Color           string
	DoseTimes       []TimeOfDay
	StartDate       CivilDate
	Duration        Duration
	ReminderEnabled bool
	CurrentSupply   int
	TotalSupply     int
	RefillAt        int
	RefillReminder  bool
}

func (in CreateInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if len(in.DoseTimes) == 0 {
		return fmt.Errorf("%w: at least one dose time is required", ErrInvalidInput)
	}
	seen := make(map[TimeOfDay]bool, len(in.DoseTimes))
	for _, t := range in.DoseTimes {
		if !t.Valid() {
			return fmt.Errorf("%w: dose time %s out of range", ErrInvalidInput, t)
		}
		if seen[t] {
			return fmt.Errorf("%w: duplicate dose time %s", ErrInvalidInput, t)
		}
		seen[t] = true
	}
	if in.StartDate.IsZero() {
		return fmt.Errorf("%w: start date is required", ErrInvalidInput)
	}
	if !in.Duration.Ongoing && in.Duration.Days <= 0 {
		return fmt.Errorf("%w: duration must be ongoing or at least one day", ErrInvalidInput)
	}
	if in.CurrentSupply < 0 || in.TotalSupply < 0 || in.RefillAt < 0 {
		return fmt.Errorf("%w: supply values cannot be negative", ErrInvalidInput)
	}
	return nil
}

func (in CreateInput) apply(s *Schedule) {
	s.Name = norm.NFC.String(strings.TrimSpace(in.Name))
	s.Dosage = strings.TrimSpace(in.Dosage)
	s.Color = strings.TrimSpace(in.Color)
	s.DoseTimes = append([]TimeOfDay(nil), in.DoseTimes...)
	s.StartDate = in.StartDate
	s.Duration = in.Duration
	s.ReminderEnabled = in.ReminderEnabled
	s.CurrentSupply = in.CurrentSupply
	s.TotalSupply = in.TotalSupply
	s.RefillAt = in.RefillAt
	s.RefillReminder = in.RefillReminder
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Schedule, error) {
	if err := in.validate(); err != nil {
		return Schedule{}, err
	}
	sched := Schedule{ID: uuid.NewString()}
	in.apply(&sched)

	if err := s.repo.UpsertSchedule(ctx, sched); err != nil {
		return Schedule{}, fmt.Errorf("save schedule: %w", err)
	}
	s.log.Info("schedule created", map[string]any{"medication_id": sched.ID, "dose_times": len(sched.DoseTimes)})
	s.syncReminders(ctx, sched)
	return sched, nil
}

// Update reemplaza la definición completa; conserva ID y LastRefillDate.
func (s *Service) Update(ctx context.Context, id string, in CreateInput) (Schedule, error) {
	if err := in.validate(); err != nil {
		return Schedule{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Schedule{}, ErrInvalidInput
	}
	current, err := s.repo.UpdateSchedule(ctx, id, func(sched *Schedule) error {
		in.apply(sched)
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Schedule{}, err
		}
		return Schedule{}, fmt.Errorf("save schedule: %w", err)
	}
	s.log.Info("schedule updated", map[string]any{"medication_id": current.ID})
	s.syncReminders(ctx, current)
	return current, nil
}

// Import guarda un schedule completo conservando su ID (si viene) y
// LastRefillDate. Si el ID ya existe lo reemplaza.
func (s *Service) Import(ctx context.Context, sched Schedule) (Schedule, error) {
	in := CreateInput{
		Name:            sched.Name,
		Dosage:          sched.Dosage,
		Color:           sched.Color,
		DoseTimes:       sched.DoseTimes,
		StartDate:       sched.StartDate,
		Duration:        sched.Duration,
		ReminderEnabled: sched.ReminderEnabled,
		CurrentSupply:   sched.CurrentSupply,
		TotalSupply:     sched.TotalSupply,
		RefillAt:        sched.RefillAt,
		RefillReminder:  sched.RefillReminder,
	}
	if err := in.validate(); err != nil {
		return Schedule{}, err
	}
	out := Schedule{ID: strings.TrimSpace(sched.ID), LastRefillDate: sched.LastRefillDate}
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	in.apply(&out)

	if err := s.repo.UpsertSchedule(ctx, out); err != nil {
		return Schedule{}, fmt.Errorf("save schedule: %w", err)
	}
	s.log.Info("schedule imported", map[string]any{"medication_id": out.ID})
	s.syncReminders(ctx, out)
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (Schedule, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Schedule{}, ErrInvalidInput
	}
	return s.repo.GetSchedule(ctx, id)
}

// List nunca falla: un error de lectura se registra y se devuelve colección vacía.
func (s *Service) List(ctx context.Context) []Schedule {
	items, err := s.repo.ListSchedules(ctx)
	if err != nil {
		s.log.Warn("list schedules failed; returning empty", map[string]any{"error": err.Error()})
		return []Schedule{}
	}
	return items
}

// ActiveOn filtra los schedules activos en la fecha de day.
func (s *Service) ActiveOn(ctx context.Context, day time.Time) []Schedule {
	out := make([]Schedule, 0)
	for _, sched := range s.List(ctx) {
		if sched.Active(day) {
			out = append(out, sched)
		}
	}
	return out
}

func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrInvalidInput
	}
	if err := s.repo.DeleteSchedule(ctx, id); err != nil {
		return err
	}
	if s.reminders != nil {
		s.reminders.CancelReminders(ctx, id)
	}
	s.log.Info("schedule deleted", map[string]any{"medication_id": id})
	return nil
}

// Refill repone stock. amount <= 0 significa "hasta TotalSupply".
func (s *Service) Refill(ctx context.Context, id string, amount int) (Schedule, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Schedule{}, ErrInvalidInput
	}
	today := DateOf(s.now())
	sched, err := s.repo.UpdateSchedule(ctx, id, func(sched *Schedule) error {
		if amount <= 0 {
			sched.CurrentSupply = sched.TotalSupply
		} else {
			sched.CurrentSupply += amount
		}
		sched.LastRefillDate = &today
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Schedule{}, err
		}
		return Schedule{}, fmt.Errorf("save schedule: %w", err)
	}
	s.log.Info("schedule refilled", map[string]any{"medication_id": sched.ID, "current_supply": sched.CurrentSupply})
	s.syncReminders(ctx, sched)
	return sched, nil
}

func (s *Service) syncReminders(ctx context.Context, sched Schedule) {
	if s.reminders == nil {
		return
	}
	s.reminders.ScheduleReminders(ctx, sched)
}
