package doses

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"medtrack/internal/domain/medications"
	"medtrack/internal/platform/logger"
)

var ErrSweeperRunning = errors.New("sweeper already running")

const DefaultSweepInterval = time.Minute

type SweeperConfig struct {
	// Grace 0 es sin gracia: la toma se marca apenas vence. Un valor
	// negativo usa DefaultGracePeriod (ver GracePeriod).
	Grace time.Duration
	// Interval <= 0 usa DefaultSweepInterval.
	Interval time.Duration
	// LookbackDays > 0 también barre días anteriores a hoy.
	LookbackDays int
}

// SweepResult resume una pasada.
type SweepResult struct {
	Checked  int
	Upcoming int
	Pending  int
	Skipped  int
	Appended int
	Events   []Event
}

// Sweeper persiste eventos "missed" para tomas vencidas sin respuesta.
// Las pasadas se serializan; dos pasadas sobre el mismo estado escriben a lo sumo una vez.
type Sweeper struct {
	schedules medications.Repository
	events    Repository
	cfg       SweeperConfig
	log       logger.Logger
	now       func() time.Time

	passMu sync.Mutex
	passes atomic.Int64

	lifeMu  sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	trigger chan struct{}
}

func NewSweeper(schedules medications.Repository, events Repository, cfg SweeperConfig, log logger.Logger) *Sweeper {
	if log == nil {
		log = logger.NewNop()
	}
	if cfg.Grace < 0 {
		cfg.Grace = DefaultGracePeriod
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultSweepInterval
	}
	if cfg.LookbackDays < 0 {
		cfg.LookbackDays = 0
	}
	return &Sweeper{
		schedules: schedules,
		events:    events,
		cfg:       cfg,
		log:       log.With(map[string]any{"component": "sweeper"}),
		now:       time.Now,
		trigger:   make(chan struct{}, 1),
	}
}

func (s *Sweeper) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Passes cuenta las pasadas terminadas (con o sin error).
func (s *Sweeper) Passes() int64 { return s.passes.Load() }

// RunOnce hace una pasada. Un error de lectura aborta sin escribir nada;
// un error de escritura corta la pasada y se devuelve.
func (s *Sweeper) RunOnce(ctx context.Context) (SweepResult, error) {
	s.passMu.Lock()
	defer s.passMu.Unlock()
	defer s.passes.Add(1)

	var res SweepResult
	now := s.now()

	scheds, err := s.schedules.ListSchedules(ctx)
	if err != nil {
		return res, fmt.Errorf("load schedules: %w", err)
	}
	events, err := s.events.ListEvents(ctx)
	if err != nil {
		return res, fmt.Errorf("load events: %w", err)
	}

	answered := make(map[string]bool, len(events))
	for _, e := range events {
		if e.ScheduledTime != nil {
			answered[OccurrenceKey(e.MedicationID, *e.ScheduledTime)] = true
		}
	}

	for offset := s.cfg.LookbackDays; offset >= 0; offset-- {
		day := now.AddDate(0, 0, -offset)
		for _, sched := range scheds {
			for _, at := range sched.Occurrences(day) {
				if err := ctx.Err(); err != nil {
					return res, err
				}
				res.Checked++

				if at.After(now) {
					res.Upcoming++
					continue
				}
				key := OccurrenceKey(sched.ID, at)
				if answered[key] {
					res.Skipped++
					continue
				}
				deadline := at.Add(s.cfg.Grace)
				if !now.After(deadline) {
					res.Pending++
					continue
				}

				scheduled := at
				e := Event{
					ID:            uuid.NewString(),
					MedicationID:  sched.ID,
					Timestamp:     deadline,
					Taken:         false,
					ScheduledTime: &scheduled,
					Source:        SourceSweeper,
				}
				if err := s.events.AppendEvent(ctx, e); err != nil {
					if errors.Is(err, ErrDuplicateEvent) {
						answered[key] = true
						res.Skipped++
						continue
					}
					return res, fmt.Errorf("append missed event: %w", err)
				}
				answered[key] = true
				res.Appended++
				res.Events = append(res.Events, e)
			}
		}
	}

	if res.Appended > 0 {
		s.log.Info("missed doses recorded", map[string]any{"appended": res.Appended, "checked": res.Checked})
	}
	return res, nil
}

// Start lanza el loop periódico: una pasada inmediata, luego una por
// intervalo y otra por cada Trigger.
func (s *Sweeper) Start(ctx context.Context) error {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	if s.cancel != nil {
		return ErrSweeperRunning
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(loopCtx, s.done)
	s.log.Info("sweeper started", map[string]any{"interval": s.cfg.Interval.String()})
	return nil
}

// Trigger pide una pasada extra (p.ej. la app volvió a primer plano).
// No bloquea; varios triggers seguidos se colapsan en uno.
func (s *Sweeper) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Stop cancela el loop y espera a que termine la pasada en curso.
func (s *Sweeper) Stop() {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
	s.log.Info("sweeper stopped", nil)
}

func (s *Sweeper) Running() bool {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	return s.cancel != nil
}

func (s *Sweeper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.runLogged(ctx, "startup")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runLogged(ctx, "tick")
		case <-s.trigger:
			s.runLogged(ctx, "trigger")
		}
	}
}

func (s *Sweeper) runLogged(ctx context.Context, reason string) {
	res, err := s.RunOnce(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.log.Error("sweep failed", map[string]any{"reason": reason, "error": err.Error()})
		return
	}
	s.log.Debug("sweep done", map[string]any{
		"reason":   reason,
		"checked":  res.Checked,
		"appended": res.Appended,
		"pending":  res.Pending,
		"skipped":  res.Skipped,
	})
}
