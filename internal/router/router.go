package router

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	_ "medtrack/docs"
	"medtrack/internal/domain/doses"
	"medtrack/internal/domain/medications"
	"medtrack/internal/domain/reminders"
	"medtrack/internal/middleware"
	"medtrack/internal/platform/logger"
	"medtrack/internal/ports/auth"
	"medtrack/internal/ports/storage"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type Options struct {
	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev)
	Log          logger.Logger

	Store       storage.EventStore
	Medications *medications.Service
	Doses       *doses.Service
	Sweeper     *doses.Sweeper // puede ser nil
	Reminders   *reminders.Bridge
}

func NewRouter(opts Options) http.Handler {
	log := opts.Log
	if log == nil {
		log = logger.NewNop()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLog(log))
	r.Use(chimw.Recoverer)

	r.Use(middleware.AuthContext(opts.AuthVerifier, log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	r.Group(func(r chi.Router) {
		// Con verifier configurado todo lo demás exige token.
		if opts.AuthVerifier != nil {
			r.Use(middleware.RequireAuth)
		}

		r.Route("/medications", func(mr chi.Router) {
			medications.RegisterRoutes(mr, opts.Medications)
			doses.RegisterMedicationRoutes(mr, opts.Doses)
		})
		doses.RegisterRoutes(r, opts.Doses, opts.Sweeper)
		reminders.RegisterRoutes(r, opts.Reminders)

		r.Delete("/data", clearAllHandler(opts.Store, log))
	})

	return r
}

// clearAllHandler godoc
// @Summary Borrar todos los datos
// @Description Elimina medicaciones e historial.
// @Tags system
// @Success 204 "sin contenido"
// @Failure 500 {string} string "internal error"
// @Router /data [delete]
func clearAllHandler(store storage.EventStore, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.ClearAll(r.Context()); err != nil {
			log.Error("clear all failed", map[string]any{"error": err.Error()})
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		log.Warn("all data cleared", nil)
		w.WriteHeader(http.StatusNoContent)
	}
}
