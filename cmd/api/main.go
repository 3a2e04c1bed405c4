package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"medtrack/internal/app"
	"medtrack/internal/platform/config"
	"medtrack/internal/platform/logger"
)

// @title Medtrack API
// @version 1.0
// @description Horarios de medicación, registro de tomas, barrido de omisiones y recordatorios.
// @BasePath /
func main() {
	configPath := flag.String("config", os.Getenv("MEDTRACK_CONFIG"), "archivo de configuración YAML (opcional)")
	flag.Parse()

	cfg, err := config.Load(config.New(), *configPath)
	if err != nil {
		logger.NewFromEnv().Error("invalid config", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: logger.ParseFormat(cfg.Log.Format),
		App:    "medtrack-api",
	})

	if err := run(cfg, log); err != nil {
		log.Error("server error", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}

func run(cfg config.Config, log logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error("close failed", map[string]any{"error": err.Error()})
		}
	}()

	if err := a.Start(ctx); err != nil {
		return err
	}
	return a.Serve(ctx)
}
