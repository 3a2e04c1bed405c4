package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medtrack/internal/adapters/storage/sqlite"
	"medtrack/internal/adapters/storage/storagetest"
	"medtrack/internal/ports/storage"
)

func TestStoreConformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.EventStore {
		s, err := sqlite.Open(filepath.Join(t.TempDir(), "medtrack.db"))
		require.NoError(t, err)
		return s
	})
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "medtrack.db")

	s, err := sqlite.Open(path)
	require.NoError(t, err)
	require.NoError(t, s.UpsertSchedule(ctx, storagetest.Schedule("m", 2)))
	require.NoError(t, s.AppendEvent(ctx, storagetest.Event("e1", "m", true, nil, time.Date(2025, 3, 10, 8, 5, 0, 0, time.UTC))))
	require.NoError(t, s.Close())

	s, err = sqlite.Open(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetSchedule(ctx, "m")
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentSupply)

	events, err := s.ListEvents(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
