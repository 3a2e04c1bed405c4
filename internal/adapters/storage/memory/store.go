package memory

import (
	"context"
	"errors"
	"strings"
	"sync"

	"medtrack/internal/domain/doses"
	"medtrack/internal/domain/medications"
	"medtrack/internal/ports/storage"
)

// Store guarda schedules e historial en memoria. Se pierde al reiniciar.
type Store struct {
	mu        sync.RWMutex
	schedules []medications.Schedule
	events    []doses.Event
	keys      map[string]bool
}

var _ storage.EventStore = (*Store)(nil)

func NewStore() *Store {
	return &Store{keys: make(map[string]bool)}
}

func (s *Store) ListSchedules(ctx context.Context) ([]medications.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]medications.Schedule, len(s.schedules))
	copy(out, s.schedules)
	return out, nil
}

func (s *Store) GetSchedule(ctx context.Context, id string) (medications.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(id); i >= 0 {
		return s.schedules[i], nil
	}
	return medications.Schedule{}, storage.ErrNotFound
}

func (s *Store) UpsertSchedule(ctx context.Context, sched medications.Schedule) error {
	if strings.TrimSpace(sched.ID) == "" {
		return errors.New("schedule id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(sched.ID); i >= 0 {
		s.schedules[i] = sched
		return nil
	}
	s.schedules = append(s.schedules, sched)
	return nil
}

func (s *Store) UpdateSchedule(ctx context.Context, id string, fn func(*medications.Schedule) error) (medications.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return medications.Schedule{}, storage.ErrNotFound
	}
	sched := s.schedules[i]
	sched.DoseTimes = append([]medications.TimeOfDay(nil), sched.DoseTimes...)
	if err := fn(&sched); err != nil {
		return medications.Schedule{}, err
	}
	sched.ID = id
	s.schedules[i] = sched
	return sched, nil
}

// DeleteSchedule no toca el historial de la medicación.
func (s *Store) DeleteSchedule(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return storage.ErrNotFound
	}
	s.schedules = append(s.schedules[:i], s.schedules[i+1:]...)
	return nil
}

func (s *Store) ListEvents(ctx context.Context) ([]doses.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]doses.Event, len(s.events))
	copy(out, s.events)
	return out, nil
}

func (s *Store) ListEventsByMedication(ctx context.Context, medicationID string) ([]doses.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]doses.Event, 0)
	for _, e := range s.events {
		if e.MedicationID == medicationID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) AppendEvent(ctx context.Context, e doses.Event) error {
	if e.ID == "" || e.MedicationID == "" {
		return errors.New("event id and medication id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key, hasKey := e.Key()
	if hasKey && s.keys[key] {
		return storage.ErrDuplicateEvent
	}

	s.events = append(s.events, e)
	if hasKey {
		s.keys[key] = true
	}
	if e.Taken {
		if i := s.indexOf(e.MedicationID); i >= 0 {
			s.schedules[i].ConsumeDose()
		}
	}
	return nil
}

func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.schedules = nil
	s.events = nil
	s.keys = make(map[string]bool)
	return nil
}

func (s *Store) Close() error { return nil }

func (s *Store) indexOf(id string) int {
	for i := range s.schedules {
		if s.schedules[i].ID == id {
			return i
		}
	}
	return -1
}
