package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"medtrack/internal/domain/doses"
	"medtrack/internal/domain/medications"
	"medtrack/internal/platform/logger"
	"medtrack/internal/ports/storage"
)

var errCorrupt = errors.New("corrupt json")

const (
	MedicationsFile = "medications.json"
	HistoryFile     = "dose_history.json"
)

// Store persiste cada colección como un array JSON en su propio archivo.
// Cada escritura relee la colección completa, la modifica y la reescribe
// de forma atómica (tmp + fsync + rename) bajo un único mutex.
type Store struct {
	mu      sync.Mutex
	medPath string
	evPath  string
	log     logger.Logger
	now     func() time.Time
}

var _ storage.EventStore = (*Store)(nil)

func Open(dir string, log logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.NewNop()
	}
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("data dir required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{
		medPath: filepath.Join(dir, MedicationsFile),
		evPath:  filepath.Join(dir, HistoryFile),
		log:     log.With(map[string]any{"component": "jsonfile"}),
		now:     time.Now,
	}, nil
}

func (s *Store) ListSchedules(ctx context.Context) ([]medications.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out, err := load[medications.Schedule](s, s.medPath, MedicationsFile)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []medications.Schedule{}
	}
	return out, nil
}

func (s *Store) GetSchedule(ctx context.Context, id string) (medications.Schedule, error) {
	items, err := s.ListSchedules(ctx)
	if err != nil {
		return medications.Schedule{}, err
	}
	for _, it := range items {
		if it.ID == id {
			return it, nil
		}
	}
	return medications.Schedule{}, storage.ErrNotFound
}

func (s *Store) UpsertSchedule(ctx context.Context, sched medications.Schedule) error {
	if strings.TrimSpace(sched.ID) == "" {
		return errors.New("schedule id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := load[medications.Schedule](s, s.medPath, MedicationsFile)
	if err != nil {
		return err
	}
	replaced := false
	for i := range items {
		if items[i].ID == sched.ID {
			items[i] = sched
			replaced = true
			break
		}
	}
	if !replaced {
		items = append(items, sched)
	}
	return writeJSON(s.medPath, items)
}

func (s *Store) UpdateSchedule(ctx context.Context, id string, fn func(*medications.Schedule) error) (medications.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := load[medications.Schedule](s, s.medPath, MedicationsFile)
	if err != nil {
		return medications.Schedule{}, err
	}
	for i := range items {
		if items[i].ID != id {
			continue
		}
		sched := items[i]
		if err := fn(&sched); err != nil {
			return medications.Schedule{}, err
		}
		sched.ID = id
		items[i] = sched
		if err := writeJSON(s.medPath, items); err != nil {
			return medications.Schedule{}, err
		}
		return sched, nil
	}
	return medications.Schedule{}, storage.ErrNotFound
}

func (s *Store) DeleteSchedule(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := load[medications.Schedule](s, s.medPath, MedicationsFile)
	if err != nil {
		return err
	}
	out := make([]medications.Schedule, 0, len(items))
	found := false
	for _, it := range items {
		if it.ID == id {
			found = true
			continue
		}
		out = append(out, it)
	}
	if !found {
		return storage.ErrNotFound
	}
	return writeJSON(s.medPath, out)
}

func (s *Store) ListEvents(ctx context.Context) ([]doses.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out, err := load[doses.Event](s, s.evPath, HistoryFile)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []doses.Event{}
	}
	return out, nil
}

func (s *Store) ListEventsByMedication(ctx context.Context, medicationID string) ([]doses.Event, error) {
	all, err := s.ListEvents(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]doses.Event, 0)
	for _, e := range all {
		if e.MedicationID == medicationID {
			out = append(out, e)
		}
	}
	return out, nil
}

// AppendEvent escribe primero el historial y luego el stock. Si la segunda
// escritura falla el evento queda registrado y el error se devuelve.
func (s *Store) AppendEvent(ctx context.Context, e doses.Event) error {
	if e.ID == "" || e.MedicationID == "" {
		return errors.New("event id and medication id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := load[doses.Event](s, s.evPath, HistoryFile)
	if err != nil {
		return err
	}
	if key, ok := e.Key(); ok {
		for _, existing := range events {
			if k, ok := existing.Key(); ok && k == key {
				return storage.ErrDuplicateEvent
			}
		}
	}
	events = append(events, e)
	if err := writeJSON(s.evPath, events); err != nil {
		return err
	}

	if !e.Taken {
		return nil
	}
	items, err := load[medications.Schedule](s, s.medPath, MedicationsFile)
	if err != nil {
		return err
	}
	for i := range items {
		if items[i].ID == e.MedicationID {
			if items[i].ConsumeDose() {
				return writeJSON(s.medPath, items)
			}
			break
		}
	}
	return nil
}

func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range []string{s.medPath, s.evPath} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error { return nil }

// load lee una colección con s.mu tomado. Un archivo ilegible se aparta
// como <file>.corrupt-<unix> y se continúa con la colección vacía, tanto
// en lecturas como en escrituras.
func load[T any](s *Store, path, name string) ([]T, error) {
	var items []T
	err := readJSON(path, &items)
	if err == nil {
		return items, nil
	}
	if !errors.Is(err, errCorrupt) {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	quarantined := fmt.Sprintf("%s.corrupt-%d", path, s.now().Unix())
	if rerr := os.Rename(path, quarantined); rerr != nil {
		return nil, fmt.Errorf("quarantine %s: %w", name, rerr)
	}
	s.log.Warn("corrupt file quarantined", map[string]any{
		"file":     name,
		"moved_to": filepath.Base(quarantined),
		"error":    err.Error(),
	})
	return []T{}, nil
}

func readJSON(path string, dst any) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: %v", errCorrupt, err)
	}
	return nil
}

func writeJSON(path string, data any) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
