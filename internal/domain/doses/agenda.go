package doses

import (
	"context"
	"sort"
	"time"

	"medtrack/internal/domain/medications"
)

type AgendaEntry struct {
	MedicationID  string
	Name          string
	Dosage        string
	Color         string
	Time          medications.TimeOfDay
	ScheduledTime time.Time
	Status        DoseStatus
}

// Agenda es la vista "tomas de hoy" para una fecha.
type Agenda struct {
	Date     medications.CivilDate
	Entries  []AgendaEntry
	Total    int
	Taken    int
	Progress float64
}

// Agenda arma las tomas del día de day para todos los schedules activos.
// Los eventos se agrupan por el día de su toma (ScheduledTime) o, si no
// la tienen, por el de su timestamp.
func (s *Service) Agenda(ctx context.Context, day time.Time) Agenda {
	now := s.now()
	loc := now.Location()
	day = day.In(loc)
	date := medications.DateOf(day)

	scheds, err := s.schedules.ListSchedules(ctx)
	if err != nil {
		s.log.Warn("list schedules failed; returning empty agenda", map[string]any{"error": err.Error()})
		scheds = nil
	}
	byMed := make(map[string][]Event)
	for _, e := range s.History(ctx, HistoryFilter{Date: &date, ByScheduledDay: true, Loc: loc}) {
		byMed[e.MedicationID] = append(byMed[e.MedicationID], e)
	}

	out := Agenda{Date: date, Entries: make([]AgendaEntry, 0)}
	for _, sched := range scheds {
		if !sched.ActiveOn(date) {
			continue
		}
		for _, t := range sched.SortedTimes() {
			at := t.On(day)
			st := Resolve(at, byMed[sched.ID], s.grace, now)
			out.Entries = append(out.Entries, AgendaEntry{
				MedicationID:  sched.ID,
				Name:          sched.Name,
				Dosage:        sched.Dosage,
				Color:         sched.Color,
				Time:          t,
				ScheduledTime: at,
				Status:        st,
			})
			if st == StatusTaken {
				out.Taken++
			}
		}
	}

	sort.SliceStable(out.Entries, func(i, j int) bool {
		a, b := out.Entries[i], out.Entries[j]
		if a.Time.Minutes() != b.Time.Minutes() {
			return a.Time.Minutes() < b.Time.Minutes()
		}
		return a.Name < b.Name
	})
	out.Total = len(out.Entries)
	if out.Total > 0 {
		out.Progress = float64(out.Taken) / float64(out.Total)
	}
	return out
}
