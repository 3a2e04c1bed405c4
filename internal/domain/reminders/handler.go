package reminders

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, b *Bridge) {
	r.Post("/reminders/responses", reminderResponseHandler(b))
}

type responseRequest struct {
	Action string            `json:"action"` // take-now, reject, dismiss, default
	Data   map[string]string `json:"data"`   // payload entregado con el recordatorio
}

type responseResult struct {
	Outcome string         `json:"outcome"`
	Reason  string         `json:"reason,omitempty"`
	Event   *eventResponse `json:"event,omitempty"`
}

type eventResponse struct {
	ID            string  `json:"id"`
	MedicationID  string  `json:"medication_id"`
	Timestamp     string  `json:"timestamp"`
	Taken         bool    `json:"taken"`
	ScheduledTime *string `json:"scheduled_time,omitempty"`
	Source        string  `json:"source"`
}

// reminderResponseHandler godoc
// @Summary Respuesta a un recordatorio
// @Description Traduce la acción del usuario sobre un recordatorio: take-now o tap registran la toma; reject o dismiss la omisión. Los errores no fallan el request: outcome queda en "ignored".
// @Tags reminders
// @Accept json
// @Produce json
// @Param payload body responseRequest true "Acción y payload del recordatorio"
// @Success 200 {object} responseResult
// @Failure 400 {string} string "invalid json"
// @Router /reminders/responses [post]
func reminderResponseHandler(b *Bridge) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req responseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		res := b.HandleResponse(r.Context(), Response{
			Action: strings.TrimSpace(req.Action),
			Data:   req.Data,
		})

		out := responseResult{Outcome: string(res.Outcome), Reason: res.Reason}
		if e := res.Event; e != nil {
			ev := &eventResponse{
				ID:           e.ID,
				MedicationID: e.MedicationID,
				Timestamp:    e.Timestamp.Format(time.RFC3339),
				Taken:        e.Taken,
				Source:       string(e.Source.OrDefault()),
			}
			if e.ScheduledTime != nil {
				st := e.ScheduledTime.Format(time.RFC3339)
				ev.ScheduledTime = &st
			}
			out.Event = ev
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// writeJSON: helper local (intencionalmente duplicado por módulo).
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
