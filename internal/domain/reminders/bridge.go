package reminders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"medtrack/internal/domain/doses"
	"medtrack/internal/domain/medications"
	"medtrack/internal/platform/logger"
	"medtrack/internal/ports/notify"
)

type TriggerMode string

const (
	// TriggerCalendar repite todos los días a la misma hora.
	TriggerCalendar TriggerMode = "calendar"
	// TriggerAbsolute agenda la próxima ocurrencia; se reprograma al dispararse.
	TriggerAbsolute TriggerMode = "absolute"
)

func ParseTriggerMode(s string) (TriggerMode, error) {
	switch TriggerMode(strings.ToLower(strings.TrimSpace(s))) {
	case TriggerCalendar, "":
		return TriggerCalendar, nil
	case TriggerAbsolute:
		return TriggerAbsolute, nil
	default:
		return "", fmt.Errorf("unknown trigger mode %q", s)
	}
}

// DoseRecorder es lo que el bridge necesita del servicio de tomas.
type DoseRecorder interface {
	RecordDose(ctx context.Context, in doses.RecordInput) (doses.Event, error)
	MarkMissed(ctx context.Context, medicationID string, scheduled *time.Time, source doses.Source) (doses.Event, error)
}

// Bridge conecta schedules con el notificador y traduce las respuestas del
// usuario en eventos. Los errores del notificador se registran y no se propagan.
type Bridge struct {
	notifier  notify.Scheduler
	schedules medications.Repository
	recorder  DoseRecorder
	mode      TriggerMode
	log       logger.Logger
	now       func() time.Time
}

func NewBridge(notifier notify.Scheduler, schedules medications.Repository, mode TriggerMode, log logger.Logger) *Bridge {
	if log == nil {
		log = logger.NewNop()
	}
	if mode == "" {
		mode = TriggerCalendar
	}
	return &Bridge{
		notifier:  notifier,
		schedules: schedules,
		mode:      mode,
		log:       log.With(map[string]any{"component": "reminders"}),
		now:       time.Now,
	}
}

func (b *Bridge) SetRecorder(r DoseRecorder) { b.recorder = r }

func (b *Bridge) SetClock(now func() time.Time) {
	if now != nil {
		b.now = now
	}
}

// ScheduleReminders reemplaza todos los recordatorios de la medicación.
// Devuelve los handles creados.
func (b *Bridge) ScheduleReminders(ctx context.Context, sched medications.Schedule) []string {
	b.CancelReminders(ctx, sched.ID)

	handles := make([]string, 0, len(sched.DoseTimes)+1)
	if sched.ReminderEnabled {
		for _, t := range sched.SortedTimes() {
			h, err := b.notifier.Schedule(ctx, b.doseNotification(sched, t))
			if err != nil {
				b.log.Error("schedule reminder failed", map[string]any{
					"medication_id": sched.ID,
					"dose_time":     t.String(),
					"error":         err.Error(),
				})
				continue
			}
			handles = append(handles, h)
		}
	}
	if h, ok := b.scheduleRefill(ctx, sched); ok {
		handles = append(handles, h)
	}

	b.log.Debug("reminders scheduled", map[string]any{"medication_id": sched.ID, "count": len(handles)})
	return handles
}

// CancelReminders cancela todo lo pendiente con data.medicationId == medicationID.
func (b *Bridge) CancelReminders(ctx context.Context, medicationID string) {
	b.cancelMatching(ctx, medicationID, "")
}

// SyncAll reprograma todas las medicaciones (arranque del proceso).
func (b *Bridge) SyncAll(ctx context.Context) {
	scheds, err := b.schedules.ListSchedules(ctx)
	if err != nil {
		b.log.Error("sync reminders: list schedules failed", map[string]any{"error": err.Error()})
		return
	}
	for _, s := range scheds {
		b.ScheduleReminders(ctx, s)
	}
}

// OnDoseRecorded refresca el recordatorio de reposición después de una toma.
func (b *Bridge) OnDoseRecorded(ctx context.Context, e doses.Event) {
	if !e.Taken {
		return
	}
	sched, err := b.schedules.GetSchedule(ctx, e.MedicationID)
	if err != nil {
		return
	}
	b.cancelMatching(ctx, sched.ID, notify.KindRefill)
	b.scheduleRefill(ctx, sched)
}

// OnFired se engancha al notificador local: en modo absoluto cada
// recordatorio de toma es de un solo uso y hay que agendar el siguiente.
func (b *Bridge) OnFired(ctx context.Context, sc notify.Scheduled) {
	if b.mode != TriggerAbsolute || sc.Notification.Data["type"] != notify.KindMedication {
		return
	}
	t, err := medications.ParseTimeOfDay(sc.Notification.Data["doseTime"])
	if err != nil {
		return
	}
	sched, err := b.schedules.GetSchedule(ctx, sc.Notification.Data["medicationId"])
	if err != nil || !sched.ReminderEnabled || !sched.HasTime(t) {
		return
	}
	if _, err := b.notifier.Schedule(ctx, b.doseNotification(sched, t)); err != nil {
		b.log.Error("reschedule reminder failed", map[string]any{"medication_id": sched.ID, "error": err.Error()})
	}
}

func (b *Bridge) doseNotification(sched medications.Schedule, t medications.TimeOfDay) notify.Notification {
	return notify.Notification{
		Title:    "Medication Reminder",
		Body:     fmt.Sprintf("Time to take %s (%s)", sched.Name, sched.Dosage),
		Category: notify.CategoryMedication,
		Data: map[string]string{
			"medicationId": sched.ID,
			"type":         notify.KindMedication,
			"doseTime":     t.String(),
		},
		Trigger: b.trigger(t),
	}
}

func (b *Bridge) trigger(t medications.TimeOfDay) notify.Trigger {
	if b.mode == TriggerCalendar {
		return notify.Trigger{Daily: true, Hour: t.Hour, Minute: t.Minute}
	}
	now := b.now()
	at := t.On(now)
	if !at.After(now) {
		at = t.On(now.AddDate(0, 0, 1))
	}
	return notify.Trigger{At: at}
}

// scheduleRefill agenda un aviso diario si el stock está en o bajo el umbral.
// Sólo aplica a medicaciones que ya tuvieron una reposición registrada.
func (b *Bridge) scheduleRefill(ctx context.Context, sched medications.Schedule) (string, bool) {
	if !sched.RefillReminder || sched.LastRefillDate == nil || !sched.NeedsRefill() {
		return "", false
	}
	now := b.now()
	h, err := b.notifier.Schedule(ctx, notify.Notification{
		Title: "Refill Reminder",
		Body:  fmt.Sprintf("Your %s supply is running low. Current supply: %d", sched.Name, sched.CurrentSupply),
		Data: map[string]string{
			"medicationId": sched.ID,
			"type":         notify.KindRefill,
		},
		Trigger: notify.Trigger{Daily: true, Hour: now.Hour(), Minute: now.Minute()},
	})
	if err != nil {
		b.log.Error("schedule refill reminder failed", map[string]any{"medication_id": sched.ID, "error": err.Error()})
		return "", false
	}
	return h, true
}

func (b *Bridge) cancelMatching(ctx context.Context, medicationID, kind string) {
	items, err := b.notifier.List(ctx)
	if err != nil {
		b.log.Error("list reminders failed", map[string]any{"medication_id": medicationID, "error": err.Error()})
		return
	}
	count := 0
	for _, it := range items {
		data := it.Notification.Data
		if data["medicationId"] != medicationID {
			continue
		}
		if kind != "" && data["type"] != kind {
			continue
		}
		if err := b.notifier.Cancel(ctx, it.Handle); err != nil {
			b.log.Error("cancel reminder failed", map[string]any{"handle": it.Handle, "error": err.Error()})
			continue
		}
		count++
	}
	if count > 0 {
		b.log.Debug("reminders cancelled", map[string]any{"medication_id": medicationID, "count": count})
	}
}

// Response es la acción del usuario sobre un recordatorio entregado.
type Response struct {
	Action string
	Data   map[string]string
}

type Outcome string

const (
	OutcomeTaken   Outcome = "taken"
	OutcomeMissed  Outcome = "missed"
	OutcomeIgnored Outcome = "ignored"
)

type Result struct {
	Outcome Outcome
	Event   *doses.Event
	Reason  string
}

// HandleResponse traduce la respuesta en un evento:
// take-now o tap en el cuerpo registran la toma; reject o dismiss la omisión.
// La toma se asocia al doseTime del payload o a la toma vencida más reciente de hoy.
func (b *Bridge) HandleResponse(ctx context.Context, resp Response) Result {
	data := resp.Data
	medID := strings.TrimSpace(data["medicationId"])
	if data["type"] != notify.KindMedication || medID == "" {
		return Result{Outcome: OutcomeIgnored, Reason: "not a medication reminder"}
	}
	if b.recorder == nil {
		return Result{Outcome: OutcomeIgnored, Reason: "no dose recorder"}
	}

	now := b.now()
	scheduled := b.resolveScheduled(ctx, medID, data["doseTime"], now)

	var (
		e       doses.Event
		err     error
		outcome Outcome
	)
	switch resp.Action {
	case notify.ActionTakeNow, notify.ActionDefault, "":
		outcome = OutcomeTaken
		e, err = b.recorder.RecordDose(ctx, doses.RecordInput{
			MedicationID:  medID,
			Taken:         true,
			Timestamp:     now,
			ScheduledTime: scheduled,
			Source:        doses.SourceReminder,
		})
	case notify.ActionReject, notify.ActionDismiss:
		outcome = OutcomeMissed
		e, err = b.recorder.MarkMissed(ctx, medID, scheduled, doses.SourceReminder)
	default:
		return Result{Outcome: OutcomeIgnored, Reason: "unknown action " + resp.Action}
	}

	if err != nil {
		level := b.log.Error
		if errors.Is(err, doses.ErrDuplicateEvent) {
			level = b.log.Info
		}
		level("reminder response not recorded", map[string]any{
			"medication_id": medID,
			"action":        resp.Action,
			"error":         err.Error(),
		})
		return Result{Outcome: OutcomeIgnored, Reason: err.Error()}
	}
	return Result{Outcome: outcome, Event: &e}
}

func (b *Bridge) resolveScheduled(ctx context.Context, medID, doseTime string, now time.Time) *time.Time {
	if t, err := medications.ParseTimeOfDay(doseTime); err == nil {
		at := t.On(now)
		return &at
	}
	sched, err := b.schedules.GetSchedule(ctx, medID)
	if err != nil {
		return nil
	}
	if due, ok := sched.LatestDue(now); ok {
		return &due
	}
	return nil
}
