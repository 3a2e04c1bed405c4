package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"medtrack/internal/app"
	"medtrack/internal/platform/config"
	"medtrack/internal/platform/logger"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type cli struct {
	v       *viper.Viper
	cfgFile string
	asJSON  bool
	stderr  io.Writer
}

// flag -> clave de config
var flagKeys = map[string]string{
	"storage.driver":       "storage",
	"storage.data_dir":     "data-dir",
	"storage.sqlite_path":  "sqlite-path",
	"storage.postgres_dsn": "postgres-dsn",
	"clock.timezone":       "timezone",
	"doses.grace_minutes":  "grace-minutes",
	"http.addr":            "addr",
	"log.level":            "log-level",
	"auth.jwt_secret":      "jwt-secret",
}

func newRootCmd() *cobra.Command {
	c := &cli{v: config.New(), stderr: os.Stderr}

	root := &cobra.Command{
		Use:   "medctl",
		Short: "Medtrack CLI",
		Long: `Medtrack lleva los horarios de medicación y el historial de tomas.
- Schedules: medicación, dosis, horas del día, fecha de inicio y duración.
- Tomas: cada respuesta (tomada u omitida) queda en el historial.
- Sweep: marca como omitidas las tomas de hoy vencidas fuera del período de gracia.
- Agenda: tomas del día con su estado y el progreso.`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.cfgFile, "config", os.Getenv("MEDTRACK_CONFIG"), "archivo de configuración YAML")
	pf.BoolVar(&c.asJSON, "json", false, "salida JSON")
	pf.String("storage", "", "storage driver: memory, file, sqlite, postgres")
	pf.String("data-dir", "", "directorio del storage file")
	pf.String("sqlite-path", "", "ruta de la base SQLite")
	pf.String("postgres-dsn", "", "DSN de Postgres")
	pf.String("timezone", "", "zona horaria del reloj (p.ej. America/Argentina/Buenos_Aires)")
	pf.Int("grace-minutes", 10, "período de gracia en minutos")
	pf.String("addr", "", "dirección HTTP (serve)")
	pf.String("log-level", "", "debug, info, warn, error")
	pf.String("jwt-secret", "", "secreto HS256 (vacío = modo dev)")
	_ = config.BindFlags(c.v, pf, flagKeys)

	root.AddCommand(c.serveCmd())
	root.AddCommand(c.sweepCmd())
	root.AddCommand(c.agendaCmd())
	root.AddCommand(c.scheduleCmd())
	root.AddCommand(c.doseCmd())
	root.AddCommand(c.historyCmd())
	root.AddCommand(c.statusCmd())
	root.AddCommand(c.clearCmd())
	root.AddCommand(c.tokenCmd())
	return root
}

func (c *cli) loadConfig() (config.Config, error) {
	return config.Load(c.v, c.cfgFile)
}

func (c *cli) newLogger(cfg config.Config) logger.Logger {
	return logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: logger.ParseFormat(cfg.Log.Format),
		App:    "medctl",
		Output: c.stderr,
	})
}

// withApp abre la App para un comando corto. El notificador local no sirve
// fuera de un proceso largo, así que se reemplaza por none.
func (c *cli) withApp(ctx context.Context, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if cfg.Reminders.Driver == config.RemindersLocal {
		cfg.Reminders.Driver = config.RemindersNone
	}
	a, err := app.New(ctx, cfg, c.newLogger(cfg))
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Levantar la API HTTP con sweeper y recordatorios",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg, c.newLogger(cfg))
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Start(ctx); err != nil {
				return err
			}
			return a.Serve(ctx)
		},
	}
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
