package reservation

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/YeongJV/Laundry-Locker-Service-System/types"
)

var (
	ErrReservationNotFound = errors.New("reservation not found")
	ErrAlreadyDroppedOff   = errors.New("drop-off already recorded")
	ErrNotDroppedOff       = errors.New("no drop-off recorded yet")
	ErrAlreadyPaid         = errors.New("reservation already paid")
	ErrLockerOccupied      = errors.New("locker already has an active reservation")
	ErrCodeInUse           = errors.New("access code already in use on this locker")
)

// Ledger owns the reservation collection: append-only, insertion order
// preserved, records never deleted. Payment is terminal; PAID reservations
// are retained as an audit trail. The ledger has no locking of its own; the
// engine serializes all access.
type Ledger struct {
	byID    map[string]*types.Reservation
	order   []string
	revenue decimal.Decimal

	timeNow func() time.Time
}

// NewLedger builds an empty ledger. A nil timeNow defaults to time.Now;
// tests inject a fixed clock.
func NewLedger(timeNow func() time.Time) *Ledger {
	if timeNow == nil {
		timeNow = time.Now
	}
	return &Ledger{
		byID:    make(map[string]*types.Reservation),
		revenue: decimal.Zero,
		timeNow: timeNow,
	}
}

// Restore replaces ledger contents with persisted state. The persisted
// revenue total is checked against a full recomputation over PAID rows; on
// disagreement the recomputed sum wins and mismatch is reported so the
// caller can log it.
func (l *Ledger) Restore(reservations []types.Reservation, revenue decimal.Decimal) (mismatch bool) {
	l.byID = make(map[string]*types.Reservation, len(reservations))
	l.order = l.order[:0]
	for _, r := range reservations {
		cp := r
		l.byID[r.ID] = &cp
		l.order = append(l.order, r.ID)
	}
	recomputed := l.recomputeRevenue()
	l.revenue = recomputed
	return !recomputed.Equal(revenue)
}

func (l *Ledger) recomputeRevenue() decimal.Decimal {
	sum := decimal.Zero
	for _, id := range l.order {
		if r := l.byID[id]; r.Payment == types.Paid {
			sum = sum.Add(r.Amount)
		}
	}
	return sum
}

// Create inserts a new PENDING reservation. The engine must already have
// marked the target locker unavailable; the two mutations form one logical
// transaction under the engine's lock. The active-uniqueness invariants are
// enforced here so a registry bug cannot silently double-book.
func (l *Ledger) Create(id, phone, lockerID, code string, kind types.ServiceType, serviceFee decimal.Decimal) (types.Reservation, error) {
	for _, existing := range l.byID {
		if !existing.Active() || !strings.EqualFold(existing.LockerID, lockerID) {
			continue
		}
		if existing.Code == code {
			return types.Reservation{}, fmt.Errorf("%w: locker %s code %s", ErrCodeInUse, lockerID, code)
		}
		return types.Reservation{}, fmt.Errorf("%w: %s", ErrLockerOccupied, lockerID)
	}

	r := &types.Reservation{
		ID:         id,
		Phone:      phone,
		LockerID:   lockerID,
		Code:       code,
		Service:    kind,
		ServiceFee: serviceFee,
		State:      types.StatePending,
		Payment:    types.Unpaid,
		Amount:     serviceFee,
		CreatedAt:  l.timeNow(),
	}
	l.byID[id] = r
	l.order = append(l.order, id)
	return *r, nil
}

// RecordDropoff moves PENDING to DROPPED_OFF. A second drop-off is rejected
// and the first timestamp is left untouched.
func (l *Ledger) RecordDropoff(id string) (types.Reservation, error) {
	r, ok := l.byID[id]
	if !ok {
		return types.Reservation{}, fmt.Errorf("%w: %s", ErrReservationNotFound, id)
	}
	if r.Payment == types.Paid {
		return types.Reservation{}, fmt.Errorf("%w: %s", ErrAlreadyPaid, id)
	}
	if r.State != types.StatePending || r.DropoffAt != nil {
		return types.Reservation{}, fmt.Errorf("%w: %s at %s", ErrAlreadyDroppedOff, id, r.DropoffAt)
	}
	now := l.timeNow()
	r.DropoffAt = &now
	r.State = types.StateDroppedOff
	return *r, nil
}

// FindActiveByLockerAndCode is the sole lookup authorizing a pick-up:
// case-insensitive locker id, exact code, UNPAID only. By the uniqueness
// invariant at most one row can match; the first in insertion order is
// returned.
func (l *Ledger) FindActiveByLockerAndCode(lockerID, code string) (types.Reservation, error) {
	for _, id := range l.order {
		r := l.byID[id]
		if r.Active() && strings.EqualFold(r.LockerID, lockerID) && r.Code == code {
			return *r, nil
		}
	}
	return types.Reservation{}, fmt.Errorf("%w: locker %s", ErrReservationNotFound, lockerID)
}

// CompletePayment moves DROPPED_OFF to PAID, records the pick-up timestamp
// and final amount, and accumulates the revenue counter. Paying before the
// drop-off was recorded is an invalid transition and mutates nothing.
func (l *Ledger) CompletePayment(id string, amount decimal.Decimal) (types.Reservation, error) {
	r, ok := l.byID[id]
	if !ok {
		return types.Reservation{}, fmt.Errorf("%w: %s", ErrReservationNotFound, id)
	}
	if r.Payment == types.Paid {
		return types.Reservation{}, fmt.Errorf("%w: %s", ErrAlreadyPaid, id)
	}
	if r.State != types.StateDroppedOff || r.DropoffAt == nil {
		return types.Reservation{}, fmt.Errorf("%w: %s", ErrNotDroppedOff, id)
	}
	now := l.timeNow()
	r.PickupAt = &now
	r.Amount = amount
	r.Payment = types.Paid
	r.State = types.StatePaid
	l.revenue = l.revenue.Add(amount)
	return *r, nil
}

// LatestForLocker returns the most recent reservation (by creation time)
// referencing the locker, PAID history included. Used for admin inspection.
func (l *Ledger) LatestForLocker(lockerID string) (types.Reservation, error) {
	var latest *types.Reservation
	for _, id := range l.order {
		r := l.byID[id]
		if !strings.EqualFold(r.LockerID, lockerID) {
			continue
		}
		if latest == nil || r.CreatedAt.After(latest.CreatedAt) {
			latest = r
		}
	}
	if latest == nil {
		return types.Reservation{}, fmt.Errorf("%w: locker %s", ErrReservationNotFound, lockerID)
	}
	return *latest, nil
}

// ActiveCodes returns the set of codes held by UNPAID reservations, the
// exclusion set for the code allocator.
func (l *Ledger) ActiveCodes() map[string]struct{} {
	codes := make(map[string]struct{})
	for _, id := range l.order {
		if r := l.byID[id]; r.Active() {
			codes[r.Code] = struct{}{}
		}
	}
	return codes
}

// ActiveForLocker reports whether the locker has an UNPAID reservation.
func (l *Ledger) ActiveForLocker(lockerID string) bool {
	for _, id := range l.order {
		if r := l.byID[id]; r.Active() && strings.EqualFold(r.LockerID, lockerID) {
			return true
		}
	}
	return false
}

// ListNewestFirst returns all reservations ordered by creation time
// descending, ties broken by insertion order.
func (l *Ledger) ListNewestFirst() []types.Reservation {
	out := make([]types.Reservation, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, *l.byID[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Snapshot returns all reservations in insertion order, for persistence.
func (l *Ledger) Snapshot() []types.Reservation {
	out := make([]types.Reservation, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, *l.byID[id])
	}
	return out
}

// RollbackCreate removes a just-created reservation. Only the engine calls
// this, to unwind an allocation whose durable write failed before the
// operation was acknowledged; acknowledged reservations are never deleted.
func (l *Ledger) RollbackCreate(id string) {
	if _, ok := l.byID[id]; !ok {
		return
	}
	delete(l.byID, id)
	for i, ordered := range l.order {
		if ordered == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}

// RollbackDropoff reverts an unacknowledged drop-off transition after a
// failed durable write.
func (l *Ledger) RollbackDropoff(id string) {
	if r, ok := l.byID[id]; ok && r.State == types.StateDroppedOff {
		r.DropoffAt = nil
		r.State = types.StatePending
	}
}

// RollbackPayment reverts an unacknowledged payment transition after a
// failed durable write, including the revenue accumulator.
func (l *Ledger) RollbackPayment(id string) {
	r, ok := l.byID[id]
	if !ok || r.Payment != types.Paid {
		return
	}
	l.revenue = l.revenue.Sub(r.Amount)
	r.PickupAt = nil
	r.Amount = r.ServiceFee
	r.Payment = types.Unpaid
	r.State = types.StateDroppedOff
}

// TotalRevenue returns the incrementally accumulated sum over PAID
// reservations. Restore re-derives it so the accumulator and a full scan
// always agree.
func (l *Ledger) TotalRevenue() decimal.Decimal {
	return l.revenue
}
