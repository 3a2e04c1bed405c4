package doses

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"medtrack/internal/domain/medications"
)

// RegisterMedicationRoutes monta las rutas de tomas bajo el subrouter de /medications.
func RegisterMedicationRoutes(mr chi.Router, svc *Service) {
	mr.Post("/{medicationID}/doses", recordDoseHandler(svc))
	mr.Post("/{medicationID}/doses/missed", markMissedHandler(svc))
}

// RegisterRoutes monta historial, estado, agenda y el barrido.
// sw puede ser nil; en ese caso /sweeps y /lifecycle/active devuelven 503.
func RegisterRoutes(r chi.Router, svc *Service, sw *Sweeper) {
	r.Get("/doses", listDosesHandler(svc))
	r.Get("/doses/status", doseStatusHandler(svc))
	r.Get("/agenda", agendaHandler(svc))

	r.Post("/sweeps", runSweepHandler(sw))
	r.Post("/lifecycle/active", appActiveHandler(sw))
}

type eventResponse struct {
	ID            string  `json:"id"`
	MedicationID  string  `json:"medication_id"`
	Timestamp     string  `json:"timestamp"`
	Taken         bool    `json:"taken"`
	ScheduledTime *string `json:"scheduled_time,omitempty"`
	Source        string  `json:"source"`
}

func toEventResponse(e Event) eventResponse {
	out := eventResponse{
		ID:           e.ID,
		MedicationID: e.MedicationID,
		Timestamp:    e.Timestamp.Format(time.RFC3339),
		Taken:        e.Taken,
		Source:       string(e.Source.OrDefault()),
	}
	if e.ScheduledTime != nil {
		st := e.ScheduledTime.Format(time.RFC3339)
		out.ScheduledTime = &st
	}
	return out
}

type recordDoseRequest struct {
	Taken         bool    `json:"taken"`
	Timestamp     *string `json:"timestamp,omitempty"`      // RFC3339; default ahora
	ScheduledTime *string `json:"scheduled_time,omitempty"` // RFC3339
	AtScheduled   bool    `json:"at_scheduled"`
}

// recordDoseHandler godoc
// @Summary Registrar toma
// @Description Registra una toma (taken=true, descuenta stock) o una omisión. Con at_scheduled usa min(ahora, scheduled_time) como timestamp.
// @Tags doses
// @Accept json
// @Produce json
// @Param medicationID path string true "ID de la medicación"
// @Param payload body recordDoseRequest true "Toma"
// @Success 201 {object} eventResponse
// @Failure 400 {string} string "invalid json / timestamp inválido"
// @Failure 404 {string} string "medication not found"
// @Failure 409 {string} string "dose already recorded"
// @Failure 500 {string} string "internal error"
// @Router /medications/{medicationID}/doses [post]
func recordDoseHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req recordDoseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		in := RecordInput{
			MedicationID: chi.URLParam(r, "medicationID"),
			Taken:        req.Taken,
			Source:       SourceManual,
			AtScheduled:  req.AtScheduled,
		}
		if req.Timestamp != nil {
			ts, err := time.Parse(time.RFC3339, strings.TrimSpace(*req.Timestamp))
			if err != nil {
				http.Error(w, "timestamp must be RFC3339", http.StatusBadRequest)
				return
			}
			in.Timestamp = ts
		}
		if req.ScheduledTime != nil {
			st, err := time.Parse(time.RFC3339, strings.TrimSpace(*req.ScheduledTime))
			if err != nil {
				http.Error(w, "scheduled_time must be RFC3339", http.StatusBadRequest)
				return
			}
			in.ScheduledTime = &st
		}

		e, err := svc.RecordDose(r.Context(), in)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toEventResponse(e))
	}
}

type markMissedRequest struct {
	ScheduledTime *string `json:"scheduled_time,omitempty"` // RFC3339; default toma vencida más reciente
}

// markMissedHandler godoc
// @Summary Marcar toma omitida
// @Description Registra una omisión explícita. Sin scheduled_time usa la toma vencida más reciente de hoy.
// @Tags doses
// @Accept json
// @Produce json
// @Param medicationID path string true "ID de la medicación"
// @Param payload body markMissedRequest false "Toma omitida"
// @Success 201 {object} eventResponse
// @Failure 400 {string} string "invalid json / sin toma vencida"
// @Failure 404 {string} string "medication not found"
// @Failure 409 {string} string "dose already recorded"
// @Router /medications/{medicationID}/doses/missed [post]
func markMissedHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req markMissedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		var scheduled *time.Time
		if req.ScheduledTime != nil {
			st, err := time.Parse(time.RFC3339, strings.TrimSpace(*req.ScheduledTime))
			if err != nil {
				http.Error(w, "scheduled_time must be RFC3339", http.StatusBadRequest)
				return
			}
			scheduled = &st
		}

		e, err := svc.MarkMissed(r.Context(), chi.URLParam(r, "medicationID"), scheduled, SourceManual)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toEventResponse(e))
	}
}

// listDosesHandler godoc
// @Summary Historial de tomas
// @Description Eventos del más reciente al más antiguo. `date` filtra por día calendario (hoy = tomas de hoy).
// @Tags doses
// @Produce json
// @Param date query string false "Fecha YYYY-MM-DD"
// @Param medication_id query string false "Filtrar por medicación"
// @Param limit query int false "Máximo de eventos"
// @Success 200 {array} eventResponse
// @Failure 400 {string} string "parámetros inválidos"
// @Router /doses [get]
func listDosesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		f := HistoryFilter{MedicationID: strings.TrimSpace(q.Get("medication_id"))}

		if raw := strings.TrimSpace(q.Get("date")); raw != "" {
			d, err := medications.ParseCivilDate(raw)
			if err != nil {
				http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			f.Date = &d
		}
		if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
				return
			}
			f.Limit = n
		}

		events := svc.History(r.Context(), f)
		out := make([]eventResponse, 0, len(events))
		for _, e := range events {
			out = append(out, toEventResponse(e))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

type statusResponse struct {
	MedicationID  string `json:"medication_id"`
	ScheduledTime string `json:"scheduled_time"`
	Status        string `json:"status"`
	GraceMinutes  int    `json:"grace_minutes"`
	EvaluatedAt   string `json:"evaluated_at"`
}

// doseStatusHandler godoc
// @Summary Estado de una toma
// @Description Devuelve taken, pending, missed o upcoming para la toma programada.
// @Tags doses
// @Produce json
// @Param medication_id query string true "ID de la medicación"
// @Param scheduled_time query string true "Instante programado RFC3339"
// @Param grace_minutes query int false "Período de gracia en minutos (default del servidor)"
// @Param now query string false "Instante de evaluación RFC3339 (default ahora)"
// @Success 200 {object} statusResponse
// @Failure 400 {string} string "parámetros inválidos"
// @Router /doses/status [get]
func doseStatusHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		scheduled, err := time.Parse(time.RFC3339, strings.TrimSpace(q.Get("scheduled_time")))
		if err != nil {
			http.Error(w, "scheduled_time must be RFC3339", http.StatusBadRequest)
			return
		}
		query := StatusQuery{
			MedicationID:  q.Get("medication_id"),
			ScheduledTime: scheduled,
			Grace:         -1,
		}
		if raw := strings.TrimSpace(q.Get("grace_minutes")); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				http.Error(w, "grace_minutes must be a non-negative integer", http.StatusBadRequest)
				return
			}
			query.Grace = time.Duration(n) * time.Minute
		}
		if raw := strings.TrimSpace(q.Get("now")); raw != "" {
			now, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				http.Error(w, "now must be RFC3339", http.StatusBadRequest)
				return
			}
			query.Now = now
		} else {
			query.Now = svc.Now()
		}

		st, err := svc.DoseStatus(r.Context(), query)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		grace := query.Grace
		if grace < 0 {
			grace = svc.Grace()
		}
		writeJSON(w, http.StatusOK, statusResponse{
			MedicationID:  query.MedicationID,
			ScheduledTime: scheduled.Format(time.RFC3339),
			Status:        string(st),
			GraceMinutes:  int(grace / time.Minute),
			EvaluatedAt:   query.Now.Format(time.RFC3339),
		})
	}
}

type agendaEntryResponse struct {
	MedicationID  string `json:"medication_id"`
	Name          string `json:"name"`
	Dosage        string `json:"dosage"`
	Color         string `json:"color,omitempty"`
	Time          string `json:"time"`
	TimeLabel     string `json:"time_label"`
	ScheduledTime string `json:"scheduled_time"`
	Status        string `json:"status"`
}

type agendaResponse struct {
	Date     string                `json:"date"`
	Total    int                   `json:"total"`
	Taken    int                   `json:"taken"`
	Progress float64               `json:"progress"`
	Entries  []agendaEntryResponse `json:"entries"`
}

func toAgendaResponse(a Agenda) agendaResponse {
	out := agendaResponse{
		Date:     a.Date.String(),
		Total:    a.Total,
		Taken:    a.Taken,
		Progress: a.Progress,
		Entries:  make([]agendaEntryResponse, 0, len(a.Entries)),
	}
	for _, e := range a.Entries {
		out.Entries = append(out.Entries, agendaEntryResponse{
			MedicationID:  e.MedicationID,
			Name:          e.Name,
			Dosage:        e.Dosage,
			Color:         e.Color,
			Time:          e.Time.String(),
			TimeLabel:     e.Time.Label12h(),
			ScheduledTime: e.ScheduledTime.Format(time.RFC3339),
			Status:        string(e.Status),
		})
	}
	return out
}

// agendaHandler godoc
// @Summary Agenda del día
// @Description Tomas del día para las medicaciones activas, ordenadas por hora, con su estado y el progreso (tomadas / total).
// @Tags doses
// @Produce json
// @Param date query string false "Fecha YYYY-MM-DD (default hoy)"
// @Success 200 {object} agendaResponse
// @Failure 400 {string} string "date inválida"
// @Router /agenda [get]
func agendaHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		day := svc.Now()
		if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
			d, err := medications.ParseCivilDate(raw)
			if err != nil {
				http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			day = d.In(day.Location())
		}
		writeJSON(w, http.StatusOK, toAgendaResponse(svc.Agenda(r.Context(), day)))
	}
}

type sweepResponse struct {
	Checked  int             `json:"checked"`
	Upcoming int             `json:"upcoming"`
	Pending  int             `json:"pending"`
	Skipped  int             `json:"skipped"`
	Appended int             `json:"appended"`
	Events   []eventResponse `json:"events"`
}

// runSweepHandler godoc
// @Summary Ejecutar barrido de omisiones
// @Description Corre una pasada del sweeper: registra como omitidas las tomas de hoy vencidas fuera de gracia y sin respuesta.
// @Tags doses
// @Produce json
// @Success 200 {object} sweepResponse
// @Failure 500 {string} string "sweep failed"
// @Failure 503 {string} string "sweeper disabled"
// @Router /sweeps [post]
func runSweepHandler(sw *Sweeper) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sw == nil {
			http.Error(w, "sweeper disabled", http.StatusServiceUnavailable)
			return
		}
		res, err := sw.RunOnce(r.Context())
		if err != nil {
			http.Error(w, "sweep failed", http.StatusInternalServerError)
			return
		}
		out := sweepResponse{
			Checked:  res.Checked,
			Upcoming: res.Upcoming,
			Pending:  res.Pending,
			Skipped:  res.Skipped,
			Appended: res.Appended,
			Events:   make([]eventResponse, 0, len(res.Events)),
		}
		for _, e := range res.Events {
			out.Events = append(out.Events, toEventResponse(e))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// appActiveHandler godoc
// @Summary Aviso de app en primer plano
// @Description Pide una pasada inmediata del sweeper. No espera el resultado.
// @Tags doses
// @Success 202 "aceptado"
// @Failure 503 {string} string "sweeper disabled"
// @Router /lifecycle/active [post]
func appActiveHandler(sw *Sweeper) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if sw == nil {
			http.Error(w, "sweeper disabled", http.StatusServiceUnavailable)
			return
		}
		sw.Trigger()
		w.WriteHeader(http.StatusAccepted)
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnknownMedication):
		http.Error(w, "medication not found", http.StatusNotFound)
	case errors.Is(err, ErrDuplicateEvent):
		http.Error(w, "dose already recorded", http.StatusConflict)
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// writeJSON: helper local (intencionalmente duplicado por módulo).
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
