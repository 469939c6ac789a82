package reservation

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YeongJV/Laundry-Locker-Service-System/types"
)

var (
	washFee = decimal.RequireFromString("10.00")
	dryFee  = decimal.RequireFromString("18.00")
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestLedger(t *testing.T) (*Ledger, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	return NewLedger(clock.Now), clock
}

func TestCreate(t *testing.T) {
	l, clock := newTestLedger(t)

	r, err := l.Create("R-AAAA0001", "0123456789", "L001", "111111", types.WashAndFold, washFee)
	require.NoError(t, err)
	assert.Equal(t, types.StatePending, r.State)
	assert.Equal(t, types.Unpaid, r.Payment)
	assert.Equal(t, clock.Now(), r.CreatedAt)
	assert.True(t, r.Amount.Equal(washFee))
	assert.Nil(t, r.DropoffAt)

	t.Run("rejects second active reservation on the same locker", func(t *testing.T) {
		_, err := l.Create("R-AAAA0002", "0123456780", "L001", "222222", types.DryCleaning, dryFee)
		assert.True(t, errors.Is(err, ErrLockerOccupied))
	})

	t.Run("rejects duplicate code on the same locker", func(t *testing.T) {
		_, err := l.Create("R-AAAA0003", "0123456780", "l001", "111111", types.DryCleaning, dryFee)
		assert.True(t, errors.Is(err, ErrCodeInUse))
	})

	t.Run("other lockers unaffected", func(t *testing.T) {
		_, err := l.Create("R-AAAA0004", "0123456780", "L002", "111111", types.DryCleaning, dryFee)
		assert.NoError(t, err)
	})
}

func TestRecordDropoff(t *testing.T) {
	l, clock := newTestLedger(t)
	created, err := l.Create("R-AAAA0001", "0123456789", "L001", "111111", types.WashAndFold, washFee)
	require.NoError(t, err)

	clock.Advance(10 * time.Minute)
	first, err := l.RecordDropoff(created.ID)
	require.NoError(t, err)
	require.NotNil(t, first.DropoffAt)
	assert.Equal(t, clock.Now(), *first.DropoffAt)
	assert.Equal(t, types.StateDroppedOff, first.State)

	t.Run("second drop-off rejected, first timestamp stands", func(t *testing.T) {
		clock.Advance(30 * time.Minute)
		_, err := l.RecordDropoff(created.ID)
		assert.True(t, errors.Is(err, ErrAlreadyDroppedOff))

		current, lookupErr := l.FindActiveByLockerAndCode("L001", "111111")
		require.NoError(t, lookupErr)
		assert.Equal(t, *first.DropoffAt, *current.DropoffAt)
	})

	t.Run("unknown reservation", func(t *testing.T) {
		_, err := l.RecordDropoff("R-MISSING1")
		assert.True(t, errors.Is(err, ErrReservationNotFound))
	})
}

func TestCompletePayment(t *testing.T) {
	l, clock := newTestLedger(t)
	created, err := l.Create("R-AAAA0001", "0123456789", "L001", "111111", types.WashAndFold, washFee)
	require.NoError(t, err)

	t.Run("rejected before drop-off, nothing mutates", func(t *testing.T) {
		_, err := l.CompletePayment(created.ID, decimal.RequireFromString("14.00"))
		assert.True(t, errors.Is(err, ErrNotDroppedOff))

		r, lookupErr := l.FindActiveByLockerAndCode("L001", "111111")
		require.NoError(t, lookupErr)
		assert.Equal(t, types.Unpaid, r.Payment)
		assert.Nil(t, r.PickupAt)
		assert.True(t, l.TotalRevenue().IsZero())
	})

	_, err = l.RecordDropoff(created.ID)
	require.NoError(t, err)
	clock.Advance(75 * time.Minute)

	t.Run("records amount, timestamp, and revenue", func(t *testing.T) {
		paid, err := l.CompletePayment(created.ID, decimal.RequireFromString("14.00"))
		require.NoError(t, err)
		assert.Equal(t, types.Paid, paid.Payment)
		assert.Equal(t, types.StatePaid, paid.State)
		require.NotNil(t, paid.PickupAt)
		assert.Equal(t, clock.Now(), *paid.PickupAt)
		assert.Equal(t, "14.00", l.TotalRevenue().StringFixed(2))
	})

	t.Run("paying twice rejected", func(t *testing.T) {
		_, err := l.CompletePayment(created.ID, decimal.RequireFromString("14.00"))
		assert.True(t, errors.Is(err, ErrAlreadyPaid))
		assert.Equal(t, "14.00", l.TotalRevenue().StringFixed(2))
	})

	t.Run("paid reservation no longer matchable", func(t *testing.T) {
		_, err := l.FindActiveByLockerAndCode("L001", "111111")
		assert.True(t, errors.Is(err, ErrReservationNotFound))
	})
}

func TestFindActiveByLockerAndCode(t *testing.T) {
	l, _ := newTestLedger(t)
	_, err := l.Create("R-AAAA0001", "0123456789", "L001", "111111", types.WashAndFold, washFee)
	require.NoError(t, err)

	t.Run("case-insensitive locker id, exact code", func(t *testing.T) {
		r, err := l.FindActiveByLockerAndCode("l001", "111111")
		require.NoError(t, err)
		assert.Equal(t, "R-AAAA0001", r.ID)

		_, err = l.FindActiveByLockerAndCode("L001", "111112")
		assert.True(t, errors.Is(err, ErrReservationNotFound))
	})
}

func TestActiveUniquenessInvariant(t *testing.T) {
	// Across an arbitrary create/pay sequence, (lockerId, code) pairs stay
	// pairwise distinct among UNPAID rows, and no locker carries two UNPAID
	// rows. PAID rows may reuse old codes.
	l, clock := newTestLedger(t)

	first, err := l.Create("R-AAAA0001", "0123456789", "L001", "111111", types.WashAndFold, washFee)
	require.NoError(t, err)
	_, err = l.RecordDropoff(first.ID)
	require.NoError(t, err)
	clock.Advance(time.Hour)
	_, err = l.CompletePayment(first.ID, decimal.RequireFromString("12.00"))
	require.NoError(t, err)

	// Old code can come back on the same locker once the first is history.
	_, err = l.Create("R-AAAA0002", "0123456780", "L001", "111111", types.DryCleaning, dryFee)
	require.NoError(t, err)
	_, err = l.Create("R-AAAA0003", "0123456781", "L002", "111111", types.WashAndFold, washFee)
	require.NoError(t, err)

	seenPairs := make(map[[2]string]int)
	seenLockers := make(map[string]int)
	for _, r := range l.Snapshot() {
		if !r.Active() {
			continue
		}
		seenPairs[[2]string{r.LockerID, r.Code}]++
		seenLockers[r.LockerID]++
	}
	for pair, n := range seenPairs {
		assert.Equal(t, 1, n, "duplicate active pair %v", pair)
	}
	for lockerID, n := range seenLockers {
		assert.Equal(t, 1, n, "locker %s double-booked", lockerID)
	}
}

func TestLatestForLocker(t *testing.T) {
	l, clock := newTestLedger(t)

	first, err := l.Create("R-AAAA0001", "0123456789", "L001", "111111", types.WashAndFold, washFee)
	require.NoError(t, err)
	_, err = l.RecordDropoff(first.ID)
	require.NoError(t, err)
	clock.Advance(time.Hour)
	_, err = l.CompletePayment(first.ID, decimal.RequireFromString("12.00"))
	require.NoError(t, err)

	clock.Advance(time.Hour)
	_, err = l.Create("R-AAAA0002", "0123456780", "L001", "222222", types.DryCleaning, dryFee)
	require.NoError(t, err)

	latest, err := l.LatestForLocker("l001")
	require.NoError(t, err)
	assert.Equal(t, "R-AAAA0002", latest.ID)

	_, err = l.LatestForLocker("L009")
	assert.True(t, errors.Is(err, ErrReservationNotFound))
}

func TestListNewestFirst(t *testing.T) {
	l, clock := newTestLedger(t)
	for i, id := range []string{"R-AAAA0001", "R-AAAA0002", "R-AAAA0003"} {
		lockerID := []string{"L001", "L002", "L003"}[i]
		_, err := l.Create(id, "0123456789", lockerID, "11111"+string(rune('1'+i)), types.WashAndFold, washFee)
		require.NoError(t, err)
		clock.Advance(time.Minute)
	}

	list := l.ListNewestFirst()
	require.Len(t, list, 3)
	assert.Equal(t, "R-AAAA0003", list[0].ID)
	assert.Equal(t, "R-AAAA0001", list[2].ID)
}

func TestRestoreRevenueAgreement(t *testing.T) {
	l, clock := newTestLedger(t)
	created, err := l.Create("R-AAAA0001", "0123456789", "L001", "111111", types.WashAndFold, washFee)
	require.NoError(t, err)
	_, err = l.RecordDropoff(created.ID)
	require.NoError(t, err)
	clock.Advance(30 * time.Minute)
	_, err = l.CompletePayment(created.ID, decimal.RequireFromString("12.00"))
	require.NoError(t, err)

	snapshot := l.Snapshot()

	t.Run("matching persisted total", func(t *testing.T) {
		restored := NewLedger(clock.Now)
		mismatch := restored.Restore(snapshot, decimal.RequireFromString("12.00"))
		assert.False(t, mismatch)
		assert.Equal(t, "12.00", restored.TotalRevenue().StringFixed(2))
	})

	t.Run("corrupt persisted total is overridden by recomputation", func(t *testing.T) {
		restored := NewLedger(clock.Now)
		mismatch := restored.Restore(snapshot, decimal.RequireFromString("99.00"))
		assert.True(t, mismatch)
		assert.Equal(t, "12.00", restored.TotalRevenue().StringFixed(2))
	})
}

func TestRollbacks(t *testing.T) {
	l, clock := newTestLedger(t)

	t.Run("rollback create removes the record", func(t *testing.T) {
		_, err := l.Create("R-AAAA0001", "0123456789", "L001", "111111", types.WashAndFold, washFee)
		require.NoError(t, err)
		l.RollbackCreate("R-AAAA0001")
		assert.Empty(t, l.Snapshot())

		// The locker and code are free again.
		_, err = l.Create("R-AAAA0002", "0123456789", "L001", "111111", types.WashAndFold, washFee)
		require.NoError(t, err)
	})

	t.Run("rollback dropoff restores PENDING", func(t *testing.T) {
		_, err := l.RecordDropoff("R-AAAA0002")
		require.NoError(t, err)
		l.RollbackDropoff("R-AAAA0002")

		r, err := l.FindActiveByLockerAndCode("L001", "111111")
		require.NoError(t, err)
		assert.Equal(t, types.StatePending, r.State)
		assert.Nil(t, r.DropoffAt)
	})

	t.Run("rollback payment restores DROPPED_OFF and revenue", func(t *testing.T) {
		_, err := l.RecordDropoff("R-AAAA0002")
		require.NoError(t, err)
		clock.Advance(time.Hour)
		_, err = l.CompletePayment("R-AAAA0002", decimal.RequireFromString("12.00"))
		require.NoError(t, err)
		require.Equal(t, "12.00", l.TotalRevenue().StringFixed(2))

		l.RollbackPayment("R-AAAA0002")
		assert.True(t, l.TotalRevenue().IsZero())
		r, err := l.FindActiveByLockerAndCode("L001", "111111")
		require.NoError(t, err)
		assert.Equal(t, types.StateDroppedOff, r.State)
		assert.Nil(t, r.PickupAt)
		assert.Equal(t, types.Unpaid, r.Payment)
	})
}
