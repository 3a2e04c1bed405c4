package doses

import (
	"time"

	"medtrack/internal/domain/medications"
)

// Event es una entrada del historial de tomas ("dose_history").
// ScheduledTime es nil sólo para registros manuales que no responden a una toma programada.
type Event struct {
	ID            string     `json:"id"`
	MedicationID  string     `json:"medicationId"`
	Timestamp     time.Time  `json:"timestamp"`
	Taken         bool       `json:"taken"`
	ScheduledTime *time.Time `json:"scheduledTime,omitempty"`
	Source        Source     `json:"source,omitempty"`
}

// Answers indica si el evento responde a la toma (medicationID, scheduled).
func (e Event) Answers(medicationID string, scheduled time.Time) bool {
	return e.MedicationID == medicationID && e.ScheduledTime != nil && e.ScheduledTime.Equal(scheduled)
}

// day es el día calendario del evento en loc: el de su toma si byScheduled
// y la tiene, si no el del timestamp.
func (e Event) day(loc *time.Location, byScheduled bool) medications.CivilDate {
	if byScheduled && e.ScheduledTime != nil {
		return medications.DateOf(e.ScheduledTime.In(loc))
	}
	return medications.DateOf(e.Timestamp.In(loc))
}

// Key identifica el evento para la regla de unicidad
// (medicationId, scheduledTime, taken). ok=false si no tiene ScheduledTime.
func (e Event) Key() (key string, ok bool) {
	if e.ScheduledTime == nil {
		return "", false
	}
	taken := "missed"
	if e.Taken {
		taken = "taken"
	}
	return OccurrenceKey(e.MedicationID, *e.ScheduledTime) + "|" + taken, true
}

// OccurrenceKey normaliza (medicationId, scheduledTime) a UTC para compararlo entre zonas.
func OccurrenceKey(medicationID string, scheduled time.Time) string {
	return medicationID + "|" + scheduled.UTC().Format(time.RFC3339Nano)
}

// Occurrence es una toma derivada (schedule x día x hora); nunca se persiste.
type Occurrence struct {
	MedicationID  string
	ScheduledTime time.Time
}
