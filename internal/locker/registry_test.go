package locker

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YeongJV/Laundry-Locker-Service-System/types"
)

func TestInitialize(t *testing.T) {
	r := NewRegistry(20)

	created := r.Initialize()
	require.True(t, created)

	snapshot := r.Snapshot()
	require.Len(t, snapshot, 20)
	assert.Equal(t, "L001", snapshot[0].ID)
	assert.Equal(t, "L020", snapshot[19].ID)
	for _, l := range snapshot {
		assert.True(t, l.Available)
		assert.False(t, l.UnderMaintenance)
	}

	t.Run("idempotent", func(t *testing.T) {
		assert.False(t, r.Initialize())
		assert.Len(t, r.Snapshot(), 20)
	})

	t.Run("skipped after restore", func(t *testing.T) {
		restored := NewRegistry(20)
		restored.Restore([]types.Locker{{ID: "L001", Available: false}})
		assert.False(t, restored.Initialize())
		assert.Len(t, restored.Snapshot(), 1)
	})
}

func TestFindFirstAvailable(t *testing.T) {
	r := NewRegistry(3)
	r.Initialize()

	t.Run("lowest number wins", func(t *testing.T) {
		l, ok := r.FindFirstAvailable()
		require.True(t, ok)
		assert.Equal(t, "L001", l.ID)
	})

	t.Run("skips unavailable", func(t *testing.T) {
		require.NoError(t, r.SetAvailability("L001", false))
		l, ok := r.FindFirstAvailable()
		require.True(t, ok)
		assert.Equal(t, "L002", l.ID)
	})

	t.Run("skips maintenance even when available", func(t *testing.T) {
		require.NoError(t, r.SetMaintenance("L002", true))
		l, ok := r.FindFirstAvailable()
		require.True(t, ok)
		assert.Equal(t, "L003", l.ID)
	})

	t.Run("pool exhausted", func(t *testing.T) {
		require.NoError(t, r.SetAvailability("L003", false))
		_, ok := r.FindFirstAvailable()
		assert.False(t, ok)
	})
}

func TestSetMaintenance(t *testing.T) {
	r := NewRegistry(2)
	r.Initialize()

	t.Run("entering maintenance keeps availability flag", func(t *testing.T) {
		require.NoError(t, r.SetAvailability("L001", false))
		require.NoError(t, r.SetMaintenance("L001", true))
		l, err := r.FindByID("L001")
		require.NoError(t, err)
		assert.True(t, l.UnderMaintenance)
		assert.False(t, l.Available)
		assert.False(t, l.AllocatableNow())
	})

	t.Run("clearing maintenance frees the locker unconditionally", func(t *testing.T) {
		require.NoError(t, r.SetMaintenance("L001", false))
		l, err := r.FindByID("L001")
		require.NoError(t, err)
		assert.False(t, l.UnderMaintenance)
		assert.True(t, l.Available)
		assert.True(t, l.AllocatableNow())
	})

	t.Run("unknown locker", func(t *testing.T) {
		err := r.SetMaintenance("L099", true)
		assert.True(t, errors.Is(err, ErrLockerNotFound))
	})
}

func TestFindByID(t *testing.T) {
	r := NewRegistry(2)
	r.Initialize()

	l, err := r.FindByID("L002")
	require.NoError(t, err)
	assert.Equal(t, "L002", l.ID)

	_, err = r.FindByID("L077")
	assert.True(t, errors.Is(err, ErrLockerNotFound))
}

func TestAvailableCount(t *testing.T) {
	r := NewRegistry(3)
	r.Initialize()
	assert.Equal(t, 3, r.AvailableCount())

	require.NoError(t, r.SetAvailability("L001", false))
	require.NoError(t, r.SetMaintenance("L002", true))
	assert.Equal(t, 1, r.AvailableCount())
}
