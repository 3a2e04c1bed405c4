package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"":        Info,
		"debug":   Debug,
		" WARN ":  Warn,
		"warning": Warn,
		"error":   Error,
		"verbose": Info,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "input %q", in)
	}
}

func TestNew_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: Info, Format: FormatJSON, App: "medtrack-test", Output: &buf})

	log.Debug("hidden", nil)
	log.With(map[string]any{"medication_id": "med-1"}).Info("dose recorded", map[string]any{"taken": true, "": "skipped"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "dose recorded", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "medtrack-test", entry["app"])
	assert.Equal(t, "med-1", entry["medication_id"])
	assert.Equal(t, true, entry["taken"])
	assert.NotContains(t, entry, "")
	assert.Contains(t, entry, "ts")
}

func TestNew_TextOutput(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: Warn, Format: ParseFormat("text"), Output: &buf})

	log.Info("hidden", nil)
	log.Warn("sweep failed", map[string]any{"error": "boom"})

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "warn")
	assert.Contains(t, out, "sweep failed")
	assert.Contains(t, out, `"error": "boom"`)
}
