package locker

import (
	"errors"
	"fmt"
	"sort"

	"github.com/YeongJV/Laundry-Locker-Service-System/types"
)

var ErrLockerNotFound = errors.New("locker not found")

// Registry owns the fixed locker pool. It is a plain in-memory owner with no
// locking of its own; the engine serializes all access.
type Registry struct {
	poolSize int
	lockers  map[string]*types.Locker
}

func NewRegistry(poolSize int) *Registry {
	return &Registry{
		poolSize: poolSize,
		lockers:  make(map[string]*types.Locker),
	}
}

// Restore replaces the pool with previously persisted lockers.
func (r *Registry) Restore(lockers []types.Locker) {
	r.lockers = make(map[string]*types.Locker, len(lockers))
	for _, l := range lockers {
		cp := l
		r.lockers[l.ID] = &cp
	}
}

// Initialize creates the fixed pool on first run. It is idempotent: when any
// lockers already exist (restored from disk) nothing happens. Returns true
// when the pool was created and needs to be persisted.
func (r *Registry) Initialize() bool {
	if len(r.lockers) > 0 {
		return false
	}
	for i := 1; i <= r.poolSize; i++ {
		id := fmt.Sprintf("L%03d", i)
		r.lockers[id] = &types.Locker{ID: id, Available: true}
	}
	return true
}

func (r *Registry) PoolSize() int {
	return r.poolSize
}

// FindByID looks up a locker by its already-normalized (uppercase) id.
func (r *Registry) FindByID(id string) (types.Locker, error) {
	l, ok := r.lockers[id]
	if !ok {
		return types.Locker{}, fmt.Errorf("%w: %s", ErrLockerNotFound, id)
	}
	return *l, nil
}

// FindFirstAvailable returns the lowest-numbered locker that is available
// and not under maintenance. Ordering is by numeric suffix, not map or
// insertion order, so allocation is reproducible.
func (r *Registry) FindFirstAvailable() (types.Locker, bool) {
	var best *types.Locker
	for _, l := range r.lockers {
		if !l.AllocatableNow() {
			continue
		}
		if best == nil || types.LockerNumber(l.ID) < types.LockerNumber(best.ID) {
			best = l
		}
	}
	if best == nil {
		return types.Locker{}, false
	}
	return *best, true
}

func (r *Registry) SetAvailability(id string, available bool) error {
	l, ok := r.lockers[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrLockerNotFound, id)
	}
	l.Available = available
	return nil
}

// SetMaintenance toggles the maintenance flag. Entering maintenance leaves
// the availability flag alone (the locker may still hold a customer's bag);
// leaving maintenance marks the locker available unconditionally, on the
// documented assumption that the admin emptied it first.
func (r *Registry) SetMaintenance(id string, under bool) error {
	l, ok := r.lockers[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrLockerNotFound, id)
	}
	l.UnderMaintenance = under
	if !under {
		l.Available = true
	}
	return nil
}

// Snapshot returns all lockers ordered by numeric suffix.
func (r *Registry) Snapshot() []types.Locker {
	out := make([]types.Locker, 0, len(r.lockers))
	for _, l := range r.lockers {
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool {
		return types.LockerNumber(out[i].ID) < types.LockerNumber(out[j].ID)
	})
	return out
}

// AvailableCount reports how many lockers are currently allocatable.
func (r *Registry) AvailableCount() int {
	n := 0
	for _, l := range r.lockers {
		if l.AllocatableNow() {
			n++
		}
	}
	return n
}
