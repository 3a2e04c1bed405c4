package notify

import (
	"context"
	"time"
)

const (
	KindMedication = "medication"
	KindRefill     = "refill"

	CategoryMedication = "medication-action"

	// Acciones que el usuario puede elegir sobre un recordatorio.
	ActionTakeNow = "take-now"
	ActionReject  = "reject"
	ActionDismiss = "dismiss"
	ActionDefault = "default"
)

// Trigger indica cuándo dispara una notificación.
// Daily=true repite todos los días a Hour:Minute (trigger de calendario);
// si no, dispara una única vez en At.
type Trigger struct {
	Daily  bool      `json:"daily"`
	Hour   int       `json:"hour,omitempty"`
	Minute int       `json:"minute,omitempty"`
	At     time.Time `json:"at,omitempty"`
}

// Notification es lo que se entrega al notificador de la plataforma.
// Data lleva medicationId, type y (para tomas) doseTime "HH:MM".
type Notification struct {
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Category string            `json:"category,omitempty"`
	Data     map[string]string `json:"data"`
	Trigger  Trigger           `json:"trigger"`
}

type Scheduled struct {
	Handle       string       `json:"handle"`
	Notification Notification `json:"notification"`
}

// Scheduler es el notificador local de la plataforma.
type Scheduler interface {
	Schedule(ctx context.Context, n Notification) (handle string, err error)
	Cancel(ctx context.Context, handle string) error
	List(ctx context.Context) ([]Scheduled, error)
}

// Discard acepta todo y no entrega nada (reminders.driver=none).
type Discard struct{}

func (Discard) Schedule(context.Context, Notification) (string, error) { return "", nil }
func (Discard) Cancel(context.Context, string) error                   { return nil }
func (Discard) List(context.Context) ([]Scheduled, error)              { return nil, nil }
