package doses

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"medtrack/internal/domain/medications"
	"medtrack/internal/platform/logger"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnknownMedication = errors.New("unknown medication")
)

// Observer recibe cada evento registrado con éxito (p.ej. el bridge de recordatorios).
type Observer interface {
	OnDoseRecorded(ctx context.Context, e Event)
}

type Service struct {
	repo      Repository
	schedules medications.Repository
	observer  Observer
	grace     time.Duration
	log       logger.Logger
	now       func() time.Time
}

func NewService(repo Repository, schedules medications.Repository, grace time.Duration, log logger.Logger) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	if grace < 0 {
		grace = DefaultGracePeriod
	}
	return &Service{
		repo:      repo,
		schedules: schedules,
		grace:     grace,
		log:       log.With(map[string]any{"component": "doses"}),
		now:       time.Now,
	}
}

func (s *Service) SetObserver(o Observer) { s.observer = o }

func (s *Service) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) Grace() time.Duration { return s.grace }

// Now expone el reloj del servicio (handlers y CLI lo usan como "ahora").
func (s *Service) Now() time.Time { return s.now() }

type RecordInput struct {
	MedicationID  string
	Taken         bool
	Timestamp     time.Time
	ScheduledTime *time.Time
	Source        Source
	// AtScheduled usa min(Timestamp, ScheduledTime) como timestamp, igual que
	// el botón "Take" de la agenda para tomas que aún no vencieron.
	AtScheduled bool
}

// RecordDose registra una toma (taken) o una omisión (missed).
func (s *Service) RecordDose(ctx context.Context, in RecordInput) (Event, error) {
	medID := strings.TrimSpace(in.MedicationID)
	if medID == "" {
		return Event{}, fmt.Errorf("%w: medication id is required", ErrInvalidInput)
	}
	if _, err := s.schedules.GetSchedule(ctx, medID); err != nil {
		if errors.Is(err, medications.ErrNotFound) {
			return Event{}, ErrUnknownMedication
		}
		return Event{}, fmt.Errorf("load schedule: %w", err)
	}

	ts := in.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}
	if in.AtScheduled && in.ScheduledTime != nil && in.ScheduledTime.Before(ts) {
		ts = *in.ScheduledTime
	}

	e := Event{
		ID:           uuid.NewString(),
		MedicationID: medID,
		Timestamp:    ts,
		Taken:        in.Taken,
		Source:       in.Source.OrDefault(),
	}
	if in.ScheduledTime != nil {
		st := *in.ScheduledTime
		e.ScheduledTime = &st
	}

	if err := s.repo.AppendEvent(ctx, e); err != nil {
		if errors.Is(err, ErrDuplicateEvent) {
			return Event{}, err
		}
		return Event{}, fmt.Errorf("append event: %w", err)
	}

	s.log.Info("dose recorded", map[string]any{
		"medication_id": e.MedicationID,
		"taken":         e.Taken,
		"source":        string(e.Source),
	})
	if s.observer != nil {
		s.observer.OnDoseRecorded(ctx, e)
	}
	return e, nil
}

// MarkMissed registra explícitamente una omisión. Sin scheduled usa la toma
// vencida más reciente de hoy. Si ya existe cualquier evento para esa toma
// devuelve ErrDuplicateEvent.
func (s *Service) MarkMissed(ctx context.Context, medicationID string, scheduled *time.Time, source Source) (Event, error) {
	medID := strings.TrimSpace(medicationID)
	if medID == "" {
		return Event{}, fmt.Errorf("%w: medication id is required", ErrInvalidInput)
	}
	sched, err := s.schedules.GetSchedule(ctx, medID)
	if err != nil {
		if errors.Is(err, medications.ErrNotFound) {
			return Event{}, ErrUnknownMedication
		}
		return Event{}, fmt.Errorf("load schedule: %w", err)
	}

	now := s.now()
	if scheduled == nil {
		due, ok := sched.LatestDue(now)
		if !ok {
			return Event{}, fmt.Errorf("%w: no dose due yet today", ErrInvalidInput)
		}
		scheduled = &due
	}

	events, err := s.repo.ListEventsByMedication(ctx, medID)
	if err != nil {
		return Event{}, fmt.Errorf("load events: %w", err)
	}
	for _, e := range events {
		if e.Answers(medID, *scheduled) {
			return Event{}, ErrDuplicateEvent
		}
	}

	return s.RecordDose(ctx, RecordInput{
		MedicationID:  medID,
		Taken:         false,
		Timestamp:     now,
		ScheduledTime: scheduled,
		Source:        source,
	})
}

// History devuelve eventos del más reciente al más antiguo. Nunca falla.
func (s *Service) History(ctx context.Context, f HistoryFilter) []Event {
	var (
		events []Event
		err    error
	)
	if id := strings.TrimSpace(f.MedicationID); id != "" {
		events, err = s.repo.ListEventsByMedication(ctx, id)
	} else {
		events, err = s.repo.ListEvents(ctx)
	}
	if err != nil {
		s.log.Warn("list events failed; returning empty", map[string]any{"error": err.Error()})
		return []Event{}
	}

	loc := f.Loc
	if loc == nil {
		loc = s.now().Location()
	}
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if f.Date != nil && e.day(loc, f.ByScheduledDay) != *f.Date {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

type StatusQuery struct {
	MedicationID  string
	ScheduledTime time.Time
	// Grace < 0 usa la del servicio.
	Grace time.Duration
	// Now cero usa el reloj del servicio.
	Now time.Time
}

// DoseStatus evalúa una toma concreta contra los eventos del mismo día.
func (s *Service) DoseStatus(ctx context.Context, q StatusQuery) (DoseStatus, error) {
	medID := strings.TrimSpace(q.MedicationID)
	if medID == "" || q.ScheduledTime.IsZero() {
		return "", fmt.Errorf("%w: medication id and scheduled time are required", ErrInvalidInput)
	}
	now := q.Now
	if now.IsZero() {
		now = s.now()
	}
	grace := q.Grace
	if grace < 0 {
		grace = s.grace
	}
	day := medications.DateOf(q.ScheduledTime.In(now.Location()))
	events := s.History(ctx, HistoryFilter{MedicationID: medID, Date: &day, ByScheduledDay: true, Loc: now.Location()})
	return Status(q.ScheduledTime, events, grace, now), nil
}
