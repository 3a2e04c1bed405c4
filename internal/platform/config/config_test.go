package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medtrack/internal/platform/config"
)

func TestLoad_Defaults(t *testing.T) {
	c, err := config.Load(config.New(), "")
	require.NoError(t, err)

	assert.Equal(t, ":8080", c.HTTP.Addr)
	assert.Equal(t, config.StorageMemory, c.Storage.Driver)
	assert.Equal(t, "data", c.Storage.DataDir)
	assert.Equal(t, "data/medtrack.db", c.Storage.SQLitePath)
	assert.Equal(t, 10, c.Doses.GraceMinutes)
	assert.True(t, c.Sweeper.Enabled)
	assert.Equal(t, time.Minute, c.Sweeper.Interval)
	assert.Equal(t, 0, c.Sweeper.LookbackDays)
	assert.Equal(t, config.RemindersLocal, c.Reminders.Driver)
	assert.Equal(t, "calendar", c.Reminders.TriggerMode)
	assert.True(t, c.DevMode())

	loc, err := c.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("MEDTRACK_STORAGE_DRIVER", "sqlite")
	t.Setenv("MEDTRACK_STORAGE_SQLITE_PATH", "/tmp/x.db")
	t.Setenv("MEDTRACK_DOSES_GRACE_MINUTES", "15")
	t.Setenv("MEDTRACK_SWEEPER_INTERVAL", "30s")
	t.Setenv("MEDTRACK_CLOCK_TIMEZONE", "UTC")
	t.Setenv("MEDTRACK_AUTH_JWT_SECRET", "s3cret")

	c, err := config.Load(config.New(), "")
	require.NoError(t, err)

	assert.Equal(t, config.StorageSQLite, c.Storage.Driver)
	assert.Equal(t, "/tmp/x.db", c.Storage.SQLitePath)
	assert.Equal(t, 15, c.Doses.GraceMinutes)
	assert.Equal(t, 30*time.Second, c.Sweeper.Interval)
	assert.False(t, c.DevMode())

	loc, err := c.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "medtrack.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  driver: file
  data_dir: /var/lib/medtrack
sweeper:
  lookback_days: 2
reminders:
  trigger_mode: absolute
`), 0o644))

	c, err := config.Load(config.New(), path)
	require.NoError(t, err)
	assert.Equal(t, config.StorageFile, c.Storage.Driver)
	assert.Equal(t, "/var/lib/medtrack", c.Storage.DataDir)
	assert.Equal(t, 2, c.Sweeper.LookbackDays)
	assert.Equal(t, "absolute", c.Reminders.TriggerMode)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(config.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestBindFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("storage", "", "")
	fs.String("addr", "", "")
	require.NoError(t, fs.Parse([]string{"--storage", "sqlite"}))

	v := config.New()
	require.NoError(t, config.BindFlags(v, fs, map[string]string{
		"storage.driver": "storage",
		"http.addr":      "addr",
		"log.level":      "missing-flag",
	}))

	c, err := config.Load(v, "")
	require.NoError(t, err)
	assert.Equal(t, config.StorageSQLite, c.Storage.Driver)
	// flag sin setear: gana el default
	assert.Equal(t, ":8080", c.HTTP.Addr)
}

func TestValidate(t *testing.T) {
	base := func() config.Config {
		c, err := config.Load(config.New(), "")
		require.NoError(t, err)
		return c
	}

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"unknown storage", func(c *config.Config) { c.Storage.Driver = "redis" }},
		{"postgres without dsn", func(c *config.Config) { c.Storage.Driver = config.StoragePostgres }},
		{"negative grace", func(c *config.Config) { c.Doses.GraceMinutes = -1 }},
		{"zero interval", func(c *config.Config) { c.Sweeper.Interval = 0 }},
		{"negative lookback", func(c *config.Config) { c.Sweeper.LookbackDays = -3 }},
		{"bad timezone", func(c *config.Config) { c.Clock.Timezone = "Mars/Olympus" }},
		{"webhook without url", func(c *config.Config) { c.Reminders.Driver = config.RemindersWebhook }},
		{"unknown trigger mode", func(c *config.Config) { c.Reminders.TriggerMode = "weekly" }},
		{"empty addr", func(c *config.Config) { c.HTTP.Addr = " " }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			require.Error(t, c.Validate())
		})
	}
}
