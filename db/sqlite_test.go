package db

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"smart-parking/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteClient {
	t.Helper()
	store, err := NewSQLiteClient(filepath.Join(t.TempDir(), "parking.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteSaveAndQuery(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	record := &models.AllocationRecord{
		SessionID:       "session-a",
		Timestamp:       time.Now().UTC(),
		VehicleCategory: "truck",
		VehicleLabel:    "Pickup Truck",
		VehicleConf:     88,
		SlotNumber:      17,
		SlotRow:         2,
		SlotCol:         0,
		SlotDistance:    412.5,
		OptimalPathID:   2,
		OptimalScore:    21.4,
		TotalSlots:      24,
		EmptySlots:      6,
		Paths:           json.RawMessage(`[{"id":1},{"id":2}]`),
	}
	require.NoError(t, store.SaveAllocation(record))

	records, err := store.RecentAllocations(10)
	require.NoError(t, err)
	require.Len(t, records, 1)

	got := records[0]
	assert.Equal(t, "session-a", got.SessionID)
	assert.Equal(t, "truck", got.VehicleCategory)
	assert.Equal(t, 17, got.SlotNumber)
	assert.InDelta(t, 412.5, got.SlotDistance, 1e-9)
	assert.JSONEq(t, `[{"id":1},{"id":2}]`, string(got.Paths))
	assert.NotZero(t, got.ID)
}

func TestSQLiteRecentOrderAndLimit(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 4; i++ {
		record := &models.AllocationRecord{
			SessionID:       "session",
			Timestamp:       base.Add(time.Duration(i) * time.Minute),
			VehicleCategory: "car",
			SlotNumber:      i + 1,
			Paths:           json.RawMessage(`[]`),
		}
		require.NoError(t, store.SaveAllocation(record))
	}

	records, err := store.RecentAllocations(2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 4, records[0].SlotNumber)
	assert.Equal(t, 3, records[1].SlotNumber)
}
