package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "MEDTRACK"

const (
	StorageMemory   = "memory"
	StorageFile     = "file"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"

	RemindersLocal   = "local"
	RemindersWebhook = "webhook"
	RemindersNone    = "none"
)

type Config struct {
	HTTP struct {
		Addr            string
		ShutdownTimeout time.Duration
	}
	Storage struct {
		Driver      string
		DataDir     string
		SQLitePath  string
		PostgresDSN string
	}
	Doses struct {
		GraceMinutes int
	}
	Sweeper struct {
		Enabled      bool
		Interval     time.Duration
		LookbackDays int
	}
	Clock struct {
		Timezone string
	}
	Reminders struct {
		Driver       string
		TriggerMode  string
		WebhookURL   string
		WebhookToken string
		TickInterval time.Duration
	}
	Auth struct {
		JWTSecret string
	}
	Log struct {
		Level  string
		Format string
	}
}

// New arma un viper con defaults, prefijo MEDTRACK y reemplazo "." -> "_"
// (storage.driver se lee de MEDTRACK_STORAGE_DRIVER).
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.shutdown_timeout", "10s")

	v.SetDefault("storage.driver", StorageMemory)
	v.SetDefault("storage.data_dir", "data")
	v.SetDefault("storage.sqlite_path", "data/medtrack.db")
	v.SetDefault("storage.postgres_dsn", "")

	v.SetDefault("doses.grace_minutes", 10)

	v.SetDefault("sweeper.enabled", true)
	v.SetDefault("sweeper.interval", "1m")
	v.SetDefault("sweeper.lookback_days", 0)

	v.SetDefault("clock.timezone", "Local")

	v.SetDefault("reminders.driver", RemindersLocal)
	v.SetDefault("reminders.trigger_mode", "calendar")
	v.SetDefault("reminders.webhook_url", "")
	v.SetDefault("reminders.webhook_token", "")
	v.SetDefault("reminders.tick_interval", "30s")

	v.SetDefault("auth.jwt_secret", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// BindFlags asocia flags de la CLI a claves de config. Las flags que no
// existen en el set se ignoran.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) error {
	for key, flag := range keys {
		f := fs.Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}

// Load lee el archivo (si path no está vacío), aplica env y valida.
func Load(v *viper.Viper, path string) (Config, error) {
	if v == nil {
		v = New()
	}
	if path = strings.TrimSpace(path); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var c Config
	c.HTTP.Addr = v.GetString("http.addr")
	c.HTTP.ShutdownTimeout = v.GetDuration("http.shutdown_timeout")

	c.Storage.Driver = strings.ToLower(strings.TrimSpace(v.GetString("storage.driver")))
	c.Storage.DataDir = v.GetString("storage.data_dir")
	c.Storage.SQLitePath = v.GetString("storage.sqlite_path")
	c.Storage.PostgresDSN = v.GetString("storage.postgres_dsn")

	c.Doses.GraceMinutes = v.GetInt("doses.grace_minutes")

	c.Sweeper.Enabled = v.GetBool("sweeper.enabled")
	c.Sweeper.Interval = v.GetDuration("sweeper.interval")
	c.Sweeper.LookbackDays = v.GetInt("sweeper.lookback_days")

	c.Clock.Timezone = v.GetString("clock.timezone")

	c.Reminders.Driver = strings.ToLower(strings.TrimSpace(v.GetString("reminders.driver")))
	c.Reminders.TriggerMode = strings.ToLower(strings.TrimSpace(v.GetString("reminders.trigger_mode")))
	c.Reminders.WebhookURL = v.GetString("reminders.webhook_url")
	c.Reminders.WebhookToken = v.GetString("reminders.webhook_token")
	c.Reminders.TickInterval = v.GetDuration("reminders.tick_interval")

	c.Auth.JWTSecret = v.GetString("auth.jwt_secret")

	c.Log.Level = v.GetString("log.level")
	c.Log.Format = v.GetString("log.format")

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.HTTP.Addr) == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("http.shutdown_timeout must be > 0"))
	}

	switch c.Storage.Driver {
	case StorageMemory:
	case StorageFile:
		if strings.TrimSpace(c.Storage.DataDir) == "" {
			errs = append(errs, errors.New("storage.data_dir is required for driver file"))
		}
	case StorageSQLite:
		if strings.TrimSpace(c.Storage.SQLitePath) == "" {
			errs = append(errs, errors.New("storage.sqlite_path is required for driver sqlite"))
		}
	case StoragePostgres:
		if strings.TrimSpace(c.Storage.PostgresDSN) == "" {
			errs = append(errs, errors.New("storage.postgres_dsn is required for driver postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q must be memory, file, sqlite or postgres", c.Storage.Driver))
	}

	if c.Doses.GraceMinutes < 0 {
		errs = append(errs, errors.New("doses.grace_minutes must be >= 0"))
	}
	if c.Sweeper.Interval <= 0 {
		errs = append(errs, errors.New("sweeper.interval must be > 0"))
	}
	if c.Sweeper.LookbackDays < 0 {
		errs = append(errs, errors.New("sweeper.lookback_days must be >= 0"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}

	switch c.Reminders.Driver {
	case RemindersLocal, RemindersNone:
	case RemindersWebhook:
		if strings.TrimSpace(c.Reminders.WebhookURL) == "" {
			errs = append(errs, errors.New("reminders.webhook_url is required for driver webhook"))
		}
	default:
		errs = append(errs, fmt.Errorf("reminders.driver %q must be local, webhook or none", c.Reminders.Driver))
	}
	switch c.Reminders.TriggerMode {
	case "", "calendar", "absolute":
	default:
		errs = append(errs, fmt.Errorf("reminders.trigger_mode %q must be calendar or absolute", c.Reminders.TriggerMode))
	}

	return errors.Join(errs...)
}

// Location resuelve clock.timezone; vacío o "Local" usa la zona del proceso.
func (c Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Clock.Timezone)
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("clock.timezone %q: %w", tz, err)
	}
	return loc, nil
}

func (c Config) DevMode() bool { return strings.TrimSpace(c.Auth.JWTSecret) == "" }
