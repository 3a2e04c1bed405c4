package medications

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// RegisterRoutes monta las rutas sobre el subrouter de /medications.
func RegisterRoutes(mr chi.Router, svc *Service) {
	mr.Get("/", listMedicationsHandler(svc))
	mr.Post("/", createMedicationHandler(svc))

	mr.Get("/{medicationID}", getMedicationHandler(svc))
	mr.Put("/{medicationID}", updateMedicationHandler(svc))
	mr.Delete("/{medicationID}", deleteMedicationHandler(svc))

	mr.Post("/{medicationID}/refill", refillMedicationHandler(svc))
}

// medicationRequest es el cuerpo para crear o reemplazar una medicación.
type medicationRequest struct {
	Name            string   `json:"name" validate:"required,max=120"`
	Dosage          string   `json:"dosage" validate:"max=120"`
	Color           string   `json:"color" validate:"omitempty,hexcolor"`
	Times           []string `json:"times" validate:"required,min=1,dive,required"` // "HH:MM"
	StartDate       string   `json:"start_date" validate:"required"`                // YYYY-MM-DD
	Duration        string   `json:"duration"`                                      // "Ongoing" o "N days"
	ReminderEnabled bool     `json:"reminder_enabled"`
	CurrentSupply   int      `json:"current_supply" validate:"gte=0"`
	TotalSupply     int      `json:"total_supply" validate:"gte=0"`
	RefillAt        int      `json:"refill_at" validate:"gte=0"`
	RefillReminder  bool     `json:"refill_reminder"`
}

func (req medicationRequest) toInput() (CreateInput, error) {
	if err := validate.Struct(req); err != nil {
		return CreateInput{}, fmt.Errorf("%w: %s", ErrInvalidInput, validationMessage(err))
	}
	in := CreateInput{
		Name:            req.Name,
		Dosage:          req.Dosage,
		Color:           req.Color,
		ReminderEnabled: req.ReminderEnabled,
		CurrentSupply:   req.CurrentSupply,
		TotalSupply:     req.TotalSupply,
		RefillAt:        req.RefillAt,
		RefillReminder:  req.RefillReminder,
	}
	for _, raw := range req.Times {
		t, err := ParseTimeOfDay(raw)
		if err != nil {
			return CreateInput{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		in.DoseTimes = append(in.DoseTimes, t)
	}
	d, err := ParseCivilDate(req.StartDate)
	if err != nil {
		return CreateInput{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	in.StartDate = d
	dur, err := ParseDuration(req.Duration)
	if err != nil {
		return CreateInput{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	in.Duration = dur
	return in, nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}

// medicationResponse representa una medicación devuelta por la API.
type medicationResponse struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Dosage          string   `json:"dosage"`
	Color           string   `json:"color,omitempty"`
	Times           []string `json:"times"`
	TimeLabels      []string `json:"time_labels"`
	StartDate       string   `json:"start_date"`
	Duration        string   `json:"duration"`
	ReminderEnabled bool     `json:"reminder_enabled"`
	CurrentSupply   int      `json:"current_supply"`
	TotalSupply     int      `json:"total_supply"`
	RefillAt        int      `json:"refill_at"`
	RefillReminder  bool     `json:"refill_reminder"`
	LastRefillDate  string   `json:"last_refill_date,omitempty"`
	NeedsRefill     bool     `json:"needs_refill"`
}

func toMedicationResponse(s Schedule) medicationResponse {
	out := medicationResponse{
		ID:              s.ID,
		Name:            s.Name,
		Dosage:          s.Dosage,
		Color:           s.Color,
		Times:           make([]string, 0, len(s.DoseTimes)),
		TimeLabels:      make([]string, 0, len(s.DoseTimes)),
		StartDate:       s.StartDate.String(),
		Duration:        s.Duration.String(),
		ReminderEnabled: s.ReminderEnabled,
		CurrentSupply:   s.CurrentSupply,
		TotalSupply:     s.TotalSupply,
		RefillAt:        s.RefillAt,
		RefillReminder:  s.RefillReminder,
		NeedsRefill:     s.NeedsRefill(),
	}
	for _, t := range s.SortedTimes() {
		out.Times = append(out.Times, t.String())
		out.TimeLabels = append(out.TimeLabels, t.Label12h())
	}
	if s.LastRefillDate != nil {
		out.LastRefillDate = s.LastRefillDate.String()
	}
	return out
}

// listMedicationsHandler godoc
// @Summary Listar medicaciones
// @Description Lista todas las medicaciones. Con `active=true` sólo las activas en `date` (por defecto hoy).
// @Tags medications
// @Produce json
// @Param active query bool false "Sólo activas en la fecha"
// @Param date query string false "Fecha YYYY-MM-DD (con active=true)"
// @Success 200 {array} medicationResponse
// @Failure 400 {string} string "date inválida"
// @Router /medications [get]
func listMedicationsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		var items []Schedule
		if active, _ := strconv.ParseBool(q.Get("active")); active {
			day := svc.now()
			if raw := strings.TrimSpace(q.Get("date")); raw != "" {
				d, err := ParseCivilDate(raw)
				if err != nil {
					http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
					return
				}
				day = d.In(day.Location())
			}
			items = svc.ActiveOn(r.Context(), day)
		} else {
			items = svc.List(r.Context())
		}

		out := make([]medicationResponse, 0, len(items))
		for _, s := range items {
			out = append(out, toMedicationResponse(s))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// createMedicationHandler godoc
// @Summary Crear medicación
// @Description Crea una medicación con sus horarios diarios y agenda sus recordatorios.
// @Tags medications
// @Accept json
// @Produce json
// @Param payload body medicationRequest true "Medicación; times en HH:MM, start_date YYYY-MM-DD, duration 'Ongoing' o 'N days'"
// @Success 201 {object} medicationResponse
// @Failure 400 {string} string "invalid json / validación"
// @Failure 500 {string} string "internal error"
// @Router /medications [post]
func createMedicationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req medicationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		in, err := req.toInput()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		s, err := svc.Create(r.Context(), in)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toMedicationResponse(s))
	}
}

// getMedicationHandler godoc
// @Summary Obtener medicación
// @Tags medications
// @Produce json
// @Param medicationID path string true "ID de la medicación"
// @Success 200 {object} medicationResponse
// @Failure 404 {string} string "medication not found"
// @Router /medications/{medicationID} [get]
func getMedicationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := svc.Get(r.Context(), chi.URLParam(r, "medicationID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toMedicationResponse(s))
	}
}

// updateMedicationHandler godoc
// @Summary Reemplazar medicación
// @Description Reemplaza la definición completa y reprograma los recordatorios. El historial no se modifica.
// @Tags medications
// @Accept json
// @Produce json
// @Param medicationID path string true "ID de la medicación"
// @Param payload body medicationRequest true "Medicación"
// @Success 200 {object} medicationResponse
// @Failure 400 {string} string "invalid json / validación"
// @Failure 404 {string} string "medication not found"
// @Router /medications/{medicationID} [put]
func updateMedicationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req medicationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		in, err := req.toInput()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		s, err := svc.Update(r.Context(), chi.URLParam(r, "medicationID"), in)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toMedicationResponse(s))
	}
}

// deleteMedicationHandler godoc
// @Summary Eliminar medicación
// @Description Elimina la medicación y cancela sus recordatorios. El historial de tomas se conserva.
// @Tags medications
// @Param medicationID path string true "ID de la medicación"
// @Success 204 "sin contenido"
// @Failure 404 {string} string "medication not found"
// @Router /medications/{medicationID} [delete]
func deleteMedicationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), chi.URLParam(r, "medicationID")); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type refillRequest struct {
	// Amount <= 0 repone hasta total_supply.
	Amount int `json:"amount"`
}

// refillMedicationHandler godoc
// @Summary Registrar reposición
// @Description Suma `amount` unidades al stock (o lo lleva a total_supply si amount <= 0) y registra la fecha.
// @Tags medications
// @Accept json
// @Produce json
// @Param medicationID path string true "ID de la medicación"
// @Param payload body refillRequest false "Cantidad repuesta"
// @Success 200 {object} medicationResponse
// @Failure 400 {string} string "invalid json"
// @Failure 404 {string} string "medication not found"
// @Router /medications/{medicationID}/refill [post]
func refillMedicationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refillRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		s, err := svc.Refill(r.Context(), chi.URLParam(r, "medicationID"), req.Amount)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toMedicationResponse(s))
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, "medication not found", http.StatusNotFound)
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
