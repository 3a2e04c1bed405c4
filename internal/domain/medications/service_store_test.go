package medications_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medtrack/internal/adapters/storage/memory"
	"medtrack/internal/domain/doses"
	"medtrack/internal/domain/medications"
)

// Refill y los descuentos de AppendEvent se serializan en el store: ninguno pisa al otro.
func TestService_RefillConcurrentWithDoses(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := medications.NewService(store, nil)

	sched, err := svc.Create(ctx, medications.CreateInput{
		Name:          "Metformina",
		DoseTimes:     []medications.TimeOfDay{{Hour: 8}},
		StartDate:     medications.CivilDate{Year: 2025, Month: 3, Day: 1},
		Duration:      medications.OngoingDuration(),
		CurrentSupply: 10,
		TotalSupply:   30,
	})
	require.NoError(t, err)

	const n = 10
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := svc.Refill(ctx, sched.ID, 1)
			assert.NoError(t, err)
		}()
		go func(i int) {
			defer wg.Done()
			st := base.AddDate(0, 0, i)
			assert.NoError(t, store.AppendEvent(ctx, doses.Event{
				ID:            fmt.Sprintf("e%d", i),
				MedicationID:  sched.ID,
				Timestamp:     st,
				Taken:         true,
				ScheduledTime: &st,
			}))
		}(i)
	}
	wg.Wait()

	got, err := svc.Get(ctx, sched.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.CurrentSupply)
}
