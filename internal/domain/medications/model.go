package medications

import (
	"sort"
	"time"
)

// Schedule es la definición de una medicación recurrente.
// Los tags JSON siguen la colección "medications" persistida (camelCase).
type Schedule struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Dosage string `json:"dosage"`
	Color  string `json:"color,omitempty"`

	DoseTimes []TimeOfDay `json:"times"`
	StartDate CivilDate   `json:"startDate"`
	Duration  Duration    `json:"duration"`

	ReminderEnabled bool `json:"reminderEnabled"`

	CurrentSupply  int        `json:"currentSupply"`
	TotalSupply    int        `json:"totalSupply"`
	RefillAt       int        `json:"refillAt"`
	RefillReminder bool       `json:"refillReminder"`
	LastRefillDate *CivilDate `json:"lastRefillDate,omitempty"`
}

// Active indica si el schedule aplica en la fecha calendario de day.
// Con duración fija el último día activo es StartDate + Days - 1.
func (s Schedule) Active(day time.Time) bool {
	return s.ActiveOn(DateOf(day))
}

func (s Schedule) ActiveOn(d CivilDate) bool {
	if d.Before(s.StartDate) {
		return false
	}
	if s.Duration.Ongoing {
		return true
	}
	last := s.StartDate.AddDays(s.Duration.Days - 1)
	return !d.After(last)
}

// Occurrences devuelve las tomas programadas para el día de day, ordenadas.
// Si el schedule no está activo ese día devuelve nil.
func (s Schedule) Occurrences(day time.Time) []time.Time {
	if !s.Active(day) {
		return nil
	}
	out := make([]time.Time, 0, len(s.DoseTimes))
	for _, t := range s.SortedTimes() {
		out = append(out, t.On(day))
	}
	return out
}

// LatestDue es la toma más reciente de hoy con hora <= now.
func (s Schedule) LatestDue(now time.Time) (time.Time, bool) {
	var (
		best  time.Time
		found bool
	)
	for _, occ := range s.Occurrences(now) {
		if occ.After(now) {
			continue
		}
		if !found || occ.After(best) {
			best = occ
			found = true
		}
	}
	return best, found
}

// SortedTimes devuelve una copia de DoseTimes ordenada por hora.
func (s Schedule) SortedTimes() []TimeOfDay {
	out := append([]TimeOfDay(nil), s.DoseTimes...)
	sort.Slice(out, func(i, j int) bool { return out[i].Minutes() < out[j].Minutes() })
	return out
}

func (s Schedule) HasTime(t TimeOfDay) bool {
	for _, dt := range s.DoseTimes {
		if dt == t {
			return true
		}
	}
	return false
}

func (s Schedule) NeedsRefill() bool {
	return s.CurrentSupply <= s.RefillAt
}

// ConsumeDose descuenta una unidad del stock, sin bajar de cero.
func (s *Schedule) ConsumeDose() bool {
	if s.CurrentSupply <= 0 {
		s.CurrentSupply = 0
		return false
	}
	s.CurrentSupply--
	return true
}
