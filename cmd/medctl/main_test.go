package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medtrack/internal/domain/medications"
)

const sampleYAML = `schedules:
  - id: med-1
    name: Aspirin
    dosage: 100mg
    color: "#FF5733"
    times: ["00:00", "20:00"]
    start_date: "2020-01-01"
    duration: ongoing
    reminder_enabled: true
    current_supply: 10
    total_supply: 30
    refill_at: 5
    refill_reminder: true
`

// execute corre medctl contra un store file en dir y devuelve stdout.
func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	base := []string{"--storage", "file", "--data-dir", dir, "--log-level", "error"}
	cmd.SetArgs(append(base, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCLI_ScheduleAndDoseFlow(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(t.TempDir(), "schedules.yaml")
	require.NoError(t, os.WriteFile(file, []byte(sampleYAML), 0o644))

	out, err := execute(t, dir, "schedule", "import", "--file", file)
	require.NoError(t, err)
	assert.Contains(t, out, "imported med-1 Aspirin")

	out, err = execute(t, dir, "--json", "schedule", "list")
	require.NoError(t, err)
	var listed []medications.Schedule
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "med-1", listed[0].ID)
	assert.Equal(t, 10, listed[0].CurrentSupply)

	out, err = execute(t, dir, "dose", "take", "med-1", "--at", "00:00", "--at-scheduled")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "med-1 taken"), out)

	out, err = execute(t, dir, "status", "med-1", "--at", "00:00")
	require.NoError(t, err)
	assert.Equal(t, "taken", strings.TrimSpace(out))

	_, err = execute(t, dir, "dose", "miss", "med-1", "--at", "00:00")
	require.Error(t, err)

	out, err = execute(t, dir, "--json", "history", "--medication", "med-1")
	require.NoError(t, err)
	var events []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &events))
	require.Len(t, events, 1)
	assert.Equal(t, true, events[0]["taken"])

	out, err = execute(t, dir, "agenda")
	require.NoError(t, err)
	assert.Contains(t, out, "Aspirin")
	assert.Contains(t, out, "12:00 AM")

	_, err = execute(t, dir, "clear")
	require.ErrorContains(t, err, "--force")

	out, err = execute(t, dir, "clear", "--force")
	require.NoError(t, err)
	assert.Equal(t, "cleared\n", out)

	out, err = execute(t, dir, "--json", "schedule", "list")
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(out))
}

func TestCLI_UnknownMedication(t *testing.T) {
	_, err := execute(t, t.TempDir(), "dose", "take", "nope")
	require.Error(t, err)
}

func TestCLI_StatusRequiresAt(t *testing.T) {
	_, err := execute(t, t.TempDir(), "status", "med-1")
	require.ErrorContains(t, err, "--at")
}

func TestCLI_Sweep_EmptyStore(t *testing.T) {
	out, err := execute(t, t.TempDir(), "--json", "sweep")
	require.NoError(t, err)
	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.EqualValues(t, 0, res["Appended"])
}

func TestCLI_Token(t *testing.T) {
	_, err := execute(t, t.TempDir(), "token", "--subject", "u1")
	require.Error(t, err)

	out, err := execute(t, t.TempDir(), "--jwt-secret", "s3cret", "token", "--subject", "u1", "--ttl", "1h")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "."), 3)
}

func TestCLI_ExportImportRoundTrip(t *testing.T) {
	src := t.TempDir()
	in := filepath.Join(t.TempDir(), "in.yaml")
	require.NoError(t, os.WriteFile(in, []byte(sampleYAML), 0o644))
	_, err := execute(t, src, "schedule", "import", "--file", in)
	require.NoError(t, err)

	exported := filepath.Join(t.TempDir(), "out.yaml")
	_, err = execute(t, src, "schedule", "export", "--file", exported)
	require.NoError(t, err)

	dst := t.TempDir()
	_, err = execute(t, dst, "schedule", "import", "--file", exported)
	require.NoError(t, err)

	out, err := execute(t, dst, "--json", "schedule", "list")
	require.NoError(t, err)
	var listed []medications.Schedule
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "med-1", listed[0].ID)
	assert.Equal(t, "#FF5733", listed[0].Color)
	assert.True(t, listed[0].Duration.Ongoing)
}

func TestDecodeSchedules(t *testing.T) {
	items, err := decodeSchedules(strings.NewReader(sampleYAML))
	require.NoError(t, err)
	require.Len(t, items, 1)

	s := items[0]
	assert.Equal(t, "med-1", s.ID)
	require.Len(t, s.DoseTimes, 2)
	assert.Equal(t, "00:00", s.SortedTimes()[0].String())
	assert.Equal(t, "2020-01-01", s.StartDate.String())
	assert.True(t, s.Duration.Ongoing)
	assert.Nil(t, s.LastRefillDate)

	var buf bytes.Buffer
	require.NoError(t, encodeSchedules(&buf, items))
	assert.Contains(t, buf.String(), "start_date: \"2020-01-01\"")
	assert.Contains(t, buf.String(), "- \"00:00\"")

	again, err := decodeSchedules(&buf)
	require.NoError(t, err)
	assert.Equal(t, items, again)
}

func TestDecodeSchedules_Errors(t *testing.T) {
	cases := map[string]string{
		"bad time":      "schedules:\n  - name: A\n    times: [\"25:00\"]\n    start_date: \"2020-01-01\"\n",
		"bad date":      "schedules:\n  - name: A\n    times: [\"08:00\"]\n    start_date: \"01/01/2020\"\n",
		"unknown field": "schedules:\n  - name: A\n    frequency: daily\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := decodeSchedules(strings.NewReader(doc))
			require.Error(t, err)
		})
	}
}

func TestResolveScheduled(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

	got, err := resolveScheduled("", "", now)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = resolveScheduled("08:00", "", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC), *got)

	got, err = resolveScheduled("20:15", "2025-03-09", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 9, 20, 15, 0, 0, time.UTC), *got)

	_, err = resolveScheduled("8am", "", now)
	require.Error(t, err)
}
