package app_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medtrack/internal/adapters/storage/jsonfile"
	"medtrack/internal/app"
	"medtrack/internal/domain/medications"
	"medtrack/internal/platform/config"
	"medtrack/internal/ports/notify"
)

func loadConfig(t *testing.T, env map[string]string) config.Config {
	t.Helper()
	for k, v := range env {
		t.Setenv(k, v)
	}
	c, err := config.Load(config.New(), "")
	require.NoError(t, err)
	return c
}

func TestNew_WiresMemoryAndLocalNotifier(t *testing.T) {
	cfg := loadConfig(t, map[string]string{"MEDTRACK_CLOCK_TIMEZONE": "UTC"})

	a, err := app.New(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.NotNil(t, a.Local)
	assert.Nil(t, a.Verifier)
	assert.Equal(t, "UTC", a.Now().Location().String())

	// Crear una medicación agenda sus recordatorios en el notificador local.
	_, err = a.Medications.Create(context.Background(), medications.CreateInput{
		Name:            "Aspirin",
		DoseTimes:       []medications.TimeOfDay{{Hour: 8}, {Hour: 20}},
		StartDate:       medications.DateOf(a.Now()),
		Duration:        medications.OngoingDuration(),
		ReminderEnabled: true,
	})
	require.NoError(t, err)
	items, err := a.Notifier.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 2)

	ts := httptest.NewServer(a.Handler())
	defer ts.Close()
	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNew_FileStoreNoReminders(t *testing.T) {
	dir := t.TempDir()
	cfg := loadConfig(t, map[string]string{
		"MEDTRACK_STORAGE_DRIVER":   "file",
		"MEDTRACK_STORAGE_DATA_DIR": dir,
		"MEDTRACK_REMINDERS_DRIVER": "none",
	})

	a, err := app.New(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.IsType(t, &jsonfile.Store{}, a.Store)
	assert.Equal(t, notify.Discard{}, a.Notifier)
	assert.Nil(t, a.Local)

	_, err = a.Medications.Create(context.Background(), medications.CreateInput{
		Name:      "Vitamin D",
		DoseTimes: []medications.TimeOfDay{{Hour: 9}},
		StartDate: medications.DateOf(a.Now()),
		Duration:  medications.DaysDuration(7),
	})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, jsonfile.MedicationsFile))
}

func TestNew_JWTSecretEnablesVerifier(t *testing.T) {
	cfg := loadConfig(t, map[string]string{"MEDTRACK_AUTH_JWT_SECRET": "s3cret"})

	a, err := app.New(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	assert.NotNil(t, a.Verifier)
}

func TestStartClose(t *testing.T) {
	cfg := loadConfig(t, map[string]string{"MEDTRACK_SWEEPER_INTERVAL": "10ms"})

	a, err := app.New(context.Background(), cfg, nil)
	require.NoError(t, err)

	require.NoError(t, a.Start(context.Background()))
	require.Error(t, a.Start(context.Background()))
	assert.True(t, a.Sweeper.Running())

	require.Eventually(t, func() bool { return a.Sweeper.Passes() >= 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, a.Close())
	assert.False(t, a.Sweeper.Running())
}
