package doses

import "time"

// DefaultGracePeriod es la ventana durante la cual una toma vencida sigue "pending".
const DefaultGracePeriod = 10 * time.Minute

func GracePeriod(minutes int) time.Duration {
	if minutes < 0 {
		return DefaultGracePeriod
	}
	return time.Duration(minutes) * time.Minute
}

// Status deriva el estado de una toma a partir del historial y el reloj.
// Es pura y total: no hace I/O y se puede llamar en cada render.
//
// events debe venir filtrado a la medicación de la toma. Cualquier evento
// taken con timestamp >= scheduled la satisface, aunque no coincida exacto
// (tomas adelantadas o tardías desde "Take Now").
//
// Una toma de un día anterior sin eventos cae en "upcoming".
func Status(scheduled time.Time, events []Event, grace time.Duration, now time.Time) DoseStatus {
	for _, e := range events {
		if e.Taken && !e.Timestamp.Before(scheduled) {
			return StatusTaken
		}
	}

	delta := now.Sub(scheduled)
	if delta >= 0 && delta <= grace {
		return StatusPending
	}
	if delta > grace && sameDay(now, scheduled) {
		return StatusMissed
	}
	return StatusUpcoming
}

// Resolve es Status para vistas de historial: si la toma ya pasó y existe un
// evento "missed" registrado para exactamente esa hora, reporta missed aunque
// sea de otro día.
func Resolve(scheduled time.Time, events []Event, grace time.Duration, now time.Time) DoseStatus {
	st := Status(scheduled, events, grace, now)
	if st != StatusUpcoming || scheduled.After(now) {
		return st
	}
	for _, e := range events {
		if !e.Taken && e.ScheduledTime != nil && e.ScheduledTime.Equal(scheduled) {
			return StatusMissed
		}
	}
	return st
}

// sameDay compara fechas calendario en la zona de now.
func sameDay(now, scheduled time.Time) bool {
	y1, m1, d1 := now.Date()
	y2, m2, d2 := scheduled.In(now.Location()).Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
