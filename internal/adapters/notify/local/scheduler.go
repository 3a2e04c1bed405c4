package local

import (
	"context"
	"io"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"medtrack/internal/platform/logger"
	"medtrack/internal/ports/notify"
)

// Scheduler es un notificador en proceso: guarda los recordatorios en
// memoria y los dispara desde Tick (o Run). Sirve para desarrollo y tests.
type Scheduler struct {
	mu      sync.Mutex
	items   map[string]*entry
	entropy io.Reader
	log     logger.Logger
	onFire  func(ctx context.Context, s notify.Scheduled)
	now     func() time.Time
}

type entry struct {
	scheduled notify.Scheduled
	createdAt time.Time
	lastFired string // fecha "2006-01-02" del último disparo diario
}

var _ notify.Scheduler = (*Scheduler)(nil)

func New(log logger.Logger) *Scheduler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Scheduler{
		items:   make(map[string]*entry),
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
		log:     log.With(map[string]any{"component": "notify.local"}),
		now:     time.Now,
	}
}

// OnFire registra el callback que recibe cada recordatorio disparado.
func (s *Scheduler) OnFire(fn func(ctx context.Context, sc notify.Scheduled)) {
	s.mu.Lock()
	s.onFire = fn
	s.mu.Unlock()
}

func (s *Scheduler) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Scheduler) Schedule(ctx context.Context, n notify.Notification) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	handle := ulid.MustNew(ulid.Timestamp(now), s.entropy).String()
	s.items[handle] = &entry{
		scheduled: notify.Scheduled{Handle: handle, Notification: n},
		createdAt: now,
	}
	return handle, nil
}

// Cancel de un handle desconocido no es error.
func (s *Scheduler) Cancel(ctx context.Context, handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, handle)
	return nil
}

// List devuelve los pendientes ordenados por handle (orden de creación).
func (s *Scheduler) List(ctx context.Context) ([]notify.Scheduled, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]notify.Scheduled, 0, len(s.items))
	for _, e := range s.items {
		out = append(out, e.scheduled)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out, nil
}

// Tick dispara lo que venció hasta now. Los diarios disparan una vez por día
// (nunca por una hora anterior a su creación); los absolutos se quitan al disparar.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) []notify.Scheduled {
	s.mu.Lock()
	var fired []notify.Scheduled
	today := now.Format("2006-01-02")
	for handle, e := range s.items {
		tr := e.scheduled.Notification.Trigger
		if tr.Daily {
			y, m, d := now.Date()
			at := time.Date(y, m, d, tr.Hour, tr.Minute, 0, 0, now.Location())
			if now.Before(at) || e.lastFired == today || at.Before(e.createdAt) {
				continue
			}
			e.lastFired = today
			fired = append(fired, e.scheduled)
			continue
		}
		if !tr.At.IsZero() && !now.Before(tr.At) {
			fired = append(fired, e.scheduled)
			delete(s.items, handle)
		}
	}
	onFire := s.onFire
	s.mu.Unlock()

	sort.Slice(fired, func(i, j int) bool { return fired[i].Handle < fired[j].Handle })
	for _, sc := range fired {
		s.log.Info("reminder fired", map[string]any{
			"handle":        sc.Handle,
			"title":         sc.Notification.Title,
			"medication_id": sc.Notification.Data["medicationId"],
		})
		if onFire != nil {
			onFire(ctx, sc)
		}
	}
	return fired
}

// Run llama a Tick cada interval hasta que ctx se cancele.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx, s.now())
		}
	}
}
