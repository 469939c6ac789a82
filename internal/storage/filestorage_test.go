package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/YeongJV/Laundry-Locker-Service-System/types"
)

func newTestStorage(t *testing.T) *FileStorage {
	t.Helper()
	return NewFileStorage(filepath.Join(t.TempDir(), "state.json"), 20, zap.NewNop())
}

func sampleData(t *testing.T) StorageData {
	t.Helper()
	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	dropoff := created.Add(15 * time.Minute)
	pickup := created.Add(90 * time.Minute)

	return StorageData{
		Lockers: []types.Locker{
			{ID: "L001", Available: false},
			{ID: "L002", Available: true, UnderMaintenance: true},
			{ID: "L003", Available: true},
		},
		Reservations: []types.Reservation{
			{
				ID: "R-AAAA0001", Phone: "0123456789", LockerID: "L001", Code: "123456",
				Service: types.WashAndFold, ServiceFee: decimal.RequireFromString("10.00"),
				State: types.StateDroppedOff, Payment: types.Unpaid,
				Amount: decimal.RequireFromString("10.00"), CreatedAt: created, DropoffAt: &dropoff,
			},
			{
				ID: "R-AAAA0002", Phone: "0123456780", LockerID: "L003", Code: "654321",
				Service: types.DryCleaning, ServiceFee: decimal.RequireFromString("18.00"),
				State: types.StatePaid, Payment: types.Paid,
				Amount: decimal.RequireFromString("22.00"), CreatedAt: created,
				DropoffAt: &dropoff, PickupAt: &pickup,
			},
		},
		Revenue: decimal.RequireFromString("22.00"),
	}
}

func TestLoadFirstRun(t *testing.T) {
	fs := newTestStorage(t)

	data, err := fs.Load()
	require.NoError(t, err, "missing file is a first run, not a failure")
	assert.Empty(t, data.Lockers)
	assert.Empty(t, data.Reservations)
	assert.True(t, data.Revenue.IsZero())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	fs := newTestStorage(t)
	want := sampleData(t)

	require.NoError(t, fs.Save(want))
	got, err := fs.Load()
	require.NoError(t, err)

	require.Len(t, got.Lockers, 3)
	assert.Equal(t, want.Lockers, got.Lockers)

	require.Len(t, got.Reservations, 2)
	for i := range want.Reservations {
		w, g := want.Reservations[i], got.Reservations[i]
		assert.Equal(t, w.ID, g.ID)
		assert.Equal(t, w.Phone, g.Phone)
		assert.Equal(t, w.LockerID, g.LockerID)
		assert.Equal(t, w.Code, g.Code)
		assert.Equal(t, w.Service, g.Service)
		assert.Equal(t, w.State, g.State)
		assert.Equal(t, w.Payment, g.Payment)
		assert.True(t, w.Amount.Equal(g.Amount))
		assert.True(t, w.CreatedAt.Equal(g.CreatedAt), "createdAt must be persisted and restored")
		if w.DropoffAt != nil {
			require.NotNil(t, g.DropoffAt)
			assert.True(t, w.DropoffAt.Equal(*g.DropoffAt))
		}
		if w.PickupAt != nil {
			require.NotNil(t, g.PickupAt)
			assert.True(t, w.PickupAt.Equal(*g.PickupAt))
		}
	}

	assert.True(t, want.Revenue.Equal(got.Revenue))
}

func TestSaveOverwritesAtomically(t *testing.T) {
	fs := newTestStorage(t)
	require.NoError(t, fs.Save(sampleData(t)))

	smaller := StorageData{
		Lockers: []types.Locker{{ID: "L001", Available: true}},
		Revenue: decimal.Zero,
	}
	require.NoError(t, fs.Save(smaller))

	got, err := fs.Load()
	require.NoError(t, err)
	assert.Len(t, got.Lockers, 1)
	assert.Empty(t, got.Reservations)

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(fs.filePath))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLoadSkipsMalformedRows(t *testing.T) {
	fs := newTestStorage(t)
	data := sampleData(t)
	data.Lockers = append(data.Lockers, types.Locker{ID: "X999"})        // bad id format
	data.Lockers = append(data.Lockers, types.Locker{ID: "L099"})        // outside pool range
	data.Reservations = append(data.Reservations, types.Reservation{ // bad phone
		ID: "R-BADPHONE", Phone: "12", LockerID: "L004", Code: "123456",
		Service: types.WashAndFold, State: types.StatePending, Payment: types.Unpaid,
		CreatedAt: time.Now(),
	})
	data.Reservations = append(data.Reservations, types.Reservation{ // bad state
		ID: "R-BADSTATE", Phone: "0123456789", LockerID: "L005", Code: "123456",
		Service: types.WashAndFold, State: "LIMBO", Payment: types.Unpaid,
		CreatedAt: time.Now(),
	})
	require.NoError(t, fs.Save(data))

	got, err := fs.Load()
	require.NoError(t, err, "malformed rows are reported and skipped, not fatal")
	assert.Len(t, got.Lockers, 3)
	assert.Len(t, got.Reservations, 2)
}

func TestLoadRejectsCorruptDocument(t *testing.T) {
	fs := newTestStorage(t)
	require.NoError(t, os.WriteFile(fs.filePath, []byte("{not json"), 0o644))

	_, err := fs.Load()
	assert.Error(t, err)
}
