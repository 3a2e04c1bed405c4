package storage

import (
	"context"

	"medtrack/internal/domain/doses"
	"medtrack/internal/domain/medications"
)

var (
	ErrNotFound       = medications.ErrNotFound
	ErrDuplicateEvent = doses.ErrDuplicateEvent
)

// EventStore es la persistencia completa: schedules + historial de tomas.
// Las implementaciones deben ser seguras para uso concurrente.
type EventStore interface {
	medications.Repository
	doses.Repository

	// ClearAll borra schedules e historial (reset de datos).
	ClearAll(ctx context.Context) error
	Close() error
}
