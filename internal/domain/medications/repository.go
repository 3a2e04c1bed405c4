package medications

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("not found")
)

// Repository es la parte del event store que maneja definiciones de schedules.
type Repository interface {
	ListSchedules(ctx context.Context) ([]Schedule, error)
	GetSchedule(ctx context.Context, id string) (Schedule, error)
	UpsertSchedule(ctx context.Context, s Schedule) error
	DeleteSchedule(ctx context.Context, id string) error
	// UpdateSchedule aplica fn sobre el schedule guardado y persiste el
	// resultado en la misma escritura serializada que AppendEvent, así un
	// descuento de stock concurrente no se pierde. Si fn falla no se escribe nada.
	UpdateSchedule(ctx context.Context, id string, fn func(*Schedule) error) (Schedule, error)
}
