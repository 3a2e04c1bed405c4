package doses

import (
	"context"
	"errors"
	"time"

	"medtrack/internal/domain/medications"
)

var (
	ErrDuplicateEvent = errors.New("dose event already recorded")
)

// Repository es la parte del event store que maneja el historial de tomas.
//
// AppendEvent con Taken=true descuenta una unidad del stock de la medicación
// (mínimo 0) dentro de la misma escritura. Un segundo evento con la misma
// clave (medicationId, scheduledTime, taken) devuelve ErrDuplicateEvent y no
// modifica nada.
type Repository interface {
	ListEvents(ctx context.Context) ([]Event, error)
	ListEventsByMedication(ctx context.Context, medicationID string) ([]Event, error)
	AppendEvent(ctx context.Context, e Event) error
}

// HistoryFilter filtra el historial.
type HistoryFilter struct {
	MedicationID string
	// Date limita a eventos cuyo timestamp cae en ese día (en loc).
	Date *medications.CivilDate
	// ByScheduledDay compara Date contra el día de ScheduledTime cuando el
	// evento lo tiene: un "missed" escrito pasada la medianoche sigue en el
	// día de su toma.
	ByScheduledDay bool
	Loc            *time.Location
	Limit          int
}
