package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"medtrack/internal/adapters/auth/jwtauth"
	"medtrack/internal/adapters/notify/local"
	"medtrack/internal/adapters/notify/webhook"
	"medtrack/internal/adapters/storage/jsonfile"
	"medtrack/internal/adapters/storage/memory"
	pg "medtrack/internal/adapters/storage/postgres"
	"medtrack/internal/adapters/storage/sqlite"
	"medtrack/internal/domain/doses"
	"medtrack/internal/domain/medications"
	"medtrack/internal/domain/reminders"
	"medtrack/internal/platform/config"
	"medtrack/internal/platform/httpclient"
	"medtrack/internal/platform/logger"
	"medtrack/internal/ports/auth"
	"medtrack/internal/ports/notify"
	"medtrack/internal/ports/storage"
	"medtrack/internal/router"
)

// App agrupa los componentes ya cableados. Lo usan cmd/api y cmd/medctl.
type App struct {
	Config config.Config
	Log    logger.Logger

	Store       storage.EventStore
	Medications *medications.Service
	Doses       *doses.Service
	Sweeper     *doses.Sweeper
	Reminders   *reminders.Bridge
	Notifier    notify.Scheduler
	// Local sólo con reminders.driver=local.
	Local *local.Scheduler
	// Verifier nil = modo dev (X-Debug-User-ID).
	Verifier auth.AuthVerifier

	Now func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	running sync.WaitGroup
}

func New(ctx context.Context, cfg config.Config, log logger.Logger) (*App, error) {
	if log == nil {
		log = logger.NewNop()
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	now := func() time.Time { return time.Now().In(loc) }

	store, err := OpenStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Log: log, Store: store, Now: now}

	if secret := cfg.Auth.JWTSecret; secret != "" {
		v, err := jwtauth.NewVerifier(secret)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		a.Verifier = v
	}

	switch cfg.Reminders.Driver {
	case config.RemindersWebhook:
		client, err := httpclient.New(httpclient.Options{
			BaseURL:   cfg.Reminders.WebhookURL,
			Token:     cfg.Reminders.WebhookToken,
			UserAgent: "medtrack",
		})
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("reminders webhook: %w", err)
		}
		if a.Notifier, err = webhook.New(client); err != nil {
			_ = store.Close()
			return nil, err
		}
	case config.RemindersNone:
		a.Notifier = notify.Discard{}
	default:
		a.Local = local.New(log)
		a.Local.SetClock(now)
		a.Notifier = a.Local
	}

	mode, err := reminders.ParseTriggerMode(cfg.Reminders.TriggerMode)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	grace := doses.GracePeriod(cfg.Doses.GraceMinutes)

	a.Medications = medications.NewService(store, log)
	a.Medications.SetClock(now)

	a.Doses = doses.NewService(store, store, grace, log)
	a.Doses.SetClock(now)

	a.Reminders = reminders.NewBridge(a.Notifier, store, mode, log)
	a.Reminders.SetClock(now)
	a.Reminders.SetRecorder(a.Doses)

	a.Medications.SetReminderSync(a.Reminders)
	a.Doses.SetObserver(a.Reminders)
	if a.Local != nil {
		a.Local.OnFire(a.Reminders.OnFired)
	}

	a.Sweeper = doses.NewSweeper(store, store, doses.SweeperConfig{
		Grace:        grace,
		Interval:     cfg.Sweeper.Interval,
		LookbackDays: cfg.Sweeper.LookbackDays,
	}, log)
	a.Sweeper.SetClock(now)

	return a, nil
}

// OpenStore abre el adapter de storage.driver.
func OpenStore(ctx context.Context, cfg config.Config, log logger.Logger) (storage.EventStore, error) {
	switch cfg.Storage.Driver {
	case config.StorageMemory, "":
		return memory.NewStore(), nil
	case config.StorageFile:
		s, err := jsonfile.Open(cfg.Storage.DataDir, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StorageSQLite:
		s, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StoragePostgres:
		s, err := pg.OpenStore(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// Handler arma el router HTTP completo.
func (a *App) Handler() http.Handler {
	return router.NewRouter(router.Options{
		AuthVerifier: a.Verifier,
		Log:          a.Log,
		Store:        a.Store,
		Medications:  a.Medications,
		Doses:        a.Doses,
		Sweeper:      a.Sweeper,
		Reminders:    a.Reminders,
	})
}

// Start reprograma los recordatorios y lanza los procesos de fondo
// (sweeper si está habilitado y el notificador local).
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		return errors.New("app already started")
	}

	a.Reminders.SyncAll(ctx)

	bg, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if a.Config.Sweeper.Enabled {
		if err := a.Sweeper.Start(bg); err != nil {
			cancel()
			a.cancel = nil
			return err
		}
	}
	if a.Local != nil {
		a.running.Add(1)
		go func() {
			defer a.running.Done()
			a.Local.Run(bg, a.Config.Reminders.TickInterval)
		}()
	}
	return nil
}

// Close detiene lo que haya lanzado Start y cierra el store.
func (a *App) Close() error {
	a.mu.Lock()
	cancel := a.cancel
	a.cancel = nil
	a.mu.Unlock()

	a.Sweeper.Stop()
	if cancel != nil {
		cancel()
	}
	a.running.Wait()
	return a.Store.Close()
}

// Serve atiende HTTP hasta que ctx se cancele y luego hace shutdown con
// http.shutdown_timeout. No cierra la App.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:         a.Config.HTTP.Addr,
		Handler:      a.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Log.Info("starting server", map[string]any{
			"addr":      a.Config.HTTP.Addr,
			"storage":   a.Config.Storage.Driver,
			"reminders": a.Config.Reminders.Driver,
			"dev_mode":  a.Config.DevMode(),
		})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	a.Log.Info("shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
