//go:generate mockgen -source ./engine.go -destination=./mocks/engine.go -package=mock_engine
package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/YeongJV/Laundry-Locker-Service-System/internal/auth"
	"github.com/YeongJV/Laundry-Locker-Service-System/internal/codegen"
	"github.com/YeongJV/Laundry-Locker-Service-System/internal/fee"
	"github.com/YeongJV/Laundry-Locker-Service-System/internal/locker"
	"github.com/YeongJV/Laundry-Locker-Service-System/internal/metrics"
	"github.com/YeongJV/Laundry-Locker-Service-System/internal/notify"
	"github.com/YeongJV/Laundry-Locker-Service-System/internal/reservation"
	"github.com/YeongJV/Laundry-Locker-Service-System/internal/storage"
	"github.com/YeongJV/Laundry-Locker-Service-System/types"
)

var (
	ErrNoLockerAvailable = errors.New("no lockers available")
	ErrNotAuthenticated  = errors.New("admin not authenticated")
)

// Store is the durable persistence boundary. Every mutating operation writes
// through it before being acknowledged.
type Store interface {
	Load() (storage.StorageData, error)
	Save(storage.StorageData) error
}

// Notifier receives the events the engine emits outside its transactional
// path.
type Notifier interface {
	Publish(e notify.Event)
}

// DropOffTicket is what the customer walks away with after an allocation.
type DropOffTicket struct {
	ReservationID string
	LockerID      string
	Code          string
}

// Quote is an advisory pick-up price breakdown. The charge is recomputed at
// payment time, so a quote that sits across an hour boundary can grow.
type Quote struct {
	ReservationID string
	Service       types.ServiceType
	ServiceFee    decimal.Decimal
	Hours         int64
	HourlyRate    decimal.Decimal
	LockerFee     decimal.Decimal
	Total         decimal.Decimal
}

// Receipt records a completed pick-up payment.
type Receipt struct {
	ReservationID string
	LockerID      string
	Hours         int64
	Total         decimal.Decimal
	PaidAt        time.Time
}

// LockerDetail is the admin inspection view: the locker plus its most recent
// reservation, PAID history included.
type LockerDetail struct {
	Locker     types.Locker
	Last       *types.Reservation
	UsageHours int64
}

// Engine orchestrates the locker registry, reservation ledger, code
// allocator, fee policy, and persistence store behind one mutual-exclusion
// boundary. Mutating operations hold the write lock across both in-memory
// mutation and the durable save; queries take the read lock so they see
// snapshot-consistent state.
type Engine struct {
	mu sync.RWMutex

	registry *locker.Registry
	ledger   *reservation.Ledger
	store    Store
	fees     *fee.Policy
	codes    *codegen.Generator
	authn    auth.Authenticator
	notifier Notifier
	logger   *zap.Logger

	adminLoggedIn bool

	timeNow func() time.Time
}

func New(
	registry *locker.Registry,
	ledger *reservation.Ledger,
	store Store,
	fees *fee.Policy,
	codes *codegen.Generator,
	authn auth.Authenticator,
	notifier Notifier,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		registry: registry,
		ledger:   ledger,
		store:    store,
		fees:     fees,
		codes:    codes,
		authn:    authn,
		notifier: notifier,
		logger:   logger,
		timeNow:  time.Now,
	}
}

// Bootstrap loads persisted state and creates the locker pool on first run.
func (e *Engine) Bootstrap() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	data, err := e.store.Load()
	if err != nil {
		return fmt.Errorf("failed to load persisted state: %w", err)
	}

	e.registry.Restore(data.Lockers)
	if mismatch := e.ledger.Restore(data.Reservations, data.Revenue); mismatch {
		e.logger.Error("persisted revenue total disagrees with recomputation, adopting recomputed sum",
			zap.String("persisted", data.Revenue.String()),
			zap.String("recomputed", e.ledger.TotalRevenue().String()),
		)
	}

	if created := e.registry.Initialize(); created {
		if err := e.persistLocked(); err != nil {
			return fmt.Errorf("failed to persist initial locker pool: %w", err)
		}
		e.logger.Info("created locker pool", zap.Int("size", e.registry.PoolSize()))
	}

	metrics.LockersAvailable.Set(float64(e.registry.AvailableCount()))
	e.logger.Info("engine ready",
		zap.Int("lockers", e.registry.PoolSize()),
		zap.Int("reservations", len(e.ledger.Snapshot())),
		zap.String("revenue", e.ledger.TotalRevenue().String()),
	)
	return nil
}

// persistLocked writes the full state through the store. Callers hold the
// write lock.
func (e *Engine) persistLocked() error {
	return e.store.Save(storage.StorageData{
		Lockers:      e.registry.Snapshot(),
		Reservations: e.ledger.Snapshot(),
		Revenue:      e.ledger.TotalRevenue(),
	})
}

// DropOff allocates a locker and a one-time access code for the given phone
// and service kind. Locker allocation and reservation creation are one
// logical transaction: if either half fails, or the durable write fails,
// nothing is left applied.
func (e *Engine) DropOff(phone string, kind types.ServiceType) (DropOffTicket, error) {
	if err := types.ValidatePhone(phone); err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("drop_off").Inc()
		return DropOffTicket{}, err
	}
	serviceFee, err := e.fees.ServiceFee(kind)
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("drop_off").Inc()
		return DropOffTicket{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	free, ok := e.registry.FindFirstAvailable()
	if !ok {
		metrics.OperationErrorsTotal.WithLabelValues("drop_off").Inc()
		return DropOffTicket{}, ErrNoLockerAvailable
	}

	code := e.codes.AccessCode(e.ledger.ActiveCodes())
	resID := e.codes.ReservationID()

	if err := e.registry.SetAvailability(free.ID, false); err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("drop_off").Inc()
		return DropOffTicket{}, err
	}
	res, err := e.ledger.Create(resID, phone, free.ID, code, kind, serviceFee)
	if err != nil {
		// Unwind the locker half of the transaction.
		_ = e.registry.SetAvailability(free.ID, true)
		metrics.OperationErrorsTotal.WithLabelValues("drop_off").Inc()
		return DropOffTicket{}, err
	}
	if err := e.persistLocked(); err != nil {
		e.ledger.RollbackCreate(resID)
		_ = e.registry.SetAvailability(free.ID, true)
		metrics.OperationErrorsTotal.WithLabelValues("drop_off").Inc()
		return DropOffTicket{}, fmt.Errorf("drop-off not recorded: %w", err)
	}

	metrics.DropOffsTotal.Inc()
	metrics.LockersAvailable.Set(float64(e.registry.AvailableCount()))
	e.logger.Info("locker allocated",
		zap.String("reservation", res.ID),
		zap.String("locker", free.ID),
		zap.String("service", string(kind)),
	)
	e.notifier.Publish(notify.Event{
		Kind:          notify.EventDropOffConfirmed,
		Phone:         phone,
		LockerID:      free.ID,
		Code:          code,
		ReservationID: res.ID,
		At:            res.CreatedAt,
	})

	return DropOffTicket{ReservationID: res.ID, LockerID: free.ID, Code: code}, nil
}

// OpenForDropoff authorizes the customer's first visit to the locker and
// records the drop-off timestamp. A second drop-off on the same reservation
// is rejected and the first timestamp stands.
func (e *Engine) OpenForDropoff(lockerID, code string) (time.Time, error) {
	lockerID, err := e.validateLookup(lockerID, code, "open_for_dropoff")
	if err != nil {
		return time.Time{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	res, err := e.ledger.FindActiveByLockerAndCode(lockerID, code)
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("open_for_dropoff").Inc()
		return time.Time{}, err
	}
	updated, err := e.ledger.RecordDropoff(res.ID)
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("open_for_dropoff").Inc()
		return time.Time{}, err
	}
	if err := e.persistLocked(); err != nil {
		e.ledger.RollbackDropoff(res.ID)
		metrics.OperationErrorsTotal.WithLabelValues("open_for_dropoff").Inc()
		return time.Time{}, fmt.Errorf("drop-off not recorded: %w", err)
	}

	e.logger.Info("drop-off recorded",
		zap.String("reservation", updated.ID),
		zap.String("locker", lockerID),
	)
	return *updated.DropoffAt, nil
}

// QuotePickup prices a pick-up without committing anything. Payment
// confirmation is the front end's explicit second step.
func (e *Engine) QuotePickup(lockerID, code string) (Quote, error) {
	lockerID, err := e.validateLookup(lockerID, code, "quote_pickup")
	if err != nil {
		return Quote{}, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	res, err := e.ledger.FindActiveByLockerAndCode(lockerID, code)
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("quote_pickup").Inc()
		return Quote{}, err
	}
	if res.DropoffAt == nil {
		metrics.OperationErrorsTotal.WithLabelValues("quote_pickup").Inc()
		return Quote{}, fmt.Errorf("%w: %s", reservation.ErrNotDroppedOff, res.ID)
	}

	elapsed := e.timeNow().Sub(*res.DropoffAt)
	lockerFee := e.fees.LockerFee(elapsed)
	return Quote{
		ReservationID: res.ID,
		Service:       res.Service,
		ServiceFee:    res.ServiceFee,
		Hours:         fee.CeilHours(elapsed),
		HourlyRate:    e.fees.HourlyRate(),
		LockerFee:     lockerFee,
		Total:         res.ServiceFee.Add(lockerFee),
	}, nil
}

// PayAndPickup completes the reservation: payment recorded, locker released.
// Reservation and locker mutate in one logical transaction; the locker stays
// unavailable when an admin has pulled it into maintenance meanwhile.
func (e *Engine) PayAndPickup(lockerID, code string) (Receipt, error) {
	lockerID, err := e.validateLookup(lockerID, code, "pay_and_pickup")
	if err != nil {
		return Receipt{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	res, err := e.ledger.FindActiveByLockerAndCode(lockerID, code)
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("pay_and_pickup").Inc()
		return Receipt{}, err
	}
	if res.DropoffAt == nil {
		metrics.OperationErrorsTotal.WithLabelValues("pay_and_pickup").Inc()
		return Receipt{}, fmt.Errorf("%w: %s", reservation.ErrNotDroppedOff, res.ID)
	}

	elapsed := e.timeNow().Sub(*res.DropoffAt)
	total := res.ServiceFee.Add(e.fees.LockerFee(elapsed))

	paid, err := e.ledger.CompletePayment(res.ID, total)
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("pay_and_pickup").Inc()
		return Receipt{}, err
	}

	lk, err := e.registry.FindByID(lockerID)
	if err != nil {
		e.ledger.RollbackPayment(res.ID)
		metrics.OperationErrorsTotal.WithLabelValues("pay_and_pickup").Inc()
		return Receipt{}, err
	}
	if !lk.UnderMaintenance {
		if err := e.registry.SetAvailability(lockerID, true); err != nil {
			e.ledger.RollbackPayment(res.ID)
			metrics.OperationErrorsTotal.WithLabelValues("pay_and_pickup").Inc()
			return Receipt{}, err
		}
	}
	if err := e.persistLocked(); err != nil {
		e.ledger.RollbackPayment(res.ID)
		if !lk.UnderMaintenance {
			_ = e.registry.SetAvailability(lockerID, false)
		}
		metrics.OperationErrorsTotal.WithLabelValues("pay_and_pickup").Inc()
		return Receipt{}, fmt.Errorf("payment not recorded: %w", err)
	}

	metrics.PickupsTotal.Inc()
	metrics.RevenueTotal.Add(total.InexactFloat64())
	metrics.LockersAvailable.Set(float64(e.registry.AvailableCount()))
	e.logger.Info("pick-up paid",
		zap.String("reservation", paid.ID),
		zap.String("locker", lockerID),
		zap.String("amount", total.String()),
	)
	e.notifier.Publish(notify.Event{
		Kind:          notify.EventPaymentReceipt,
		Phone:         paid.Phone,
		LockerID:      lockerID,
		ReservationID: paid.ID,
		Amount:        total.StringFixed(2),
		At:            *paid.PickupAt,
	})

	return Receipt{
		ReservationID: paid.ID,
		LockerID:      lockerID,
		Hours:         fee.CeilHours(elapsed),
		Total:         total,
		PaidAt:        *paid.PickupAt,
	}, nil
}

func (e *Engine) validateLookup(lockerID, code, op string) (string, error) {
	normalized, err := types.NormalizeLockerID(lockerID, e.registry.PoolSize())
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues(op).Inc()
		return "", err
	}
	if err := types.ValidateAccessCode(code); err != nil {
		metrics.OperationErrorsTotal.WithLabelValues(op).Inc()
		return "", err
	}
	return normalized, nil
}

// Login opens the single admin session. All Admin* operations and
// TotalRevenue reject callers until it succeeds.
func (e *Engine) Login(candidate string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.authn.Authenticate(candidate) {
		metrics.OperationErrorsTotal.WithLabelValues("admin_login").Inc()
		return ErrNotAuthenticated
	}
	e.adminLoggedIn = true
	e.logger.Info("admin session opened")
	return nil
}

func (e *Engine) Logout() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.adminLoggedIn = false
}

func (e *Engine) requireAdminLocked() error {
	if !e.adminLoggedIn {
		return ErrNotAuthenticated
	}
	return nil
}

// AdminUnlock opens a locker without touching its state; the reservation and
// availability stay exactly as they were. The override is logged and
// published to the audit channel.
func (e *Engine) AdminUnlock(lockerID string) error {
	lockerID, err := types.NormalizeLockerID(lockerID, e.registry.PoolSize())
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("admin_unlock").Inc()
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireAdminLocked(); err != nil {
		return err
	}
	if _, err := e.registry.FindByID(lockerID); err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("admin_unlock").Inc()
		return err
	}

	e.logger.Warn("admin override unlock", zap.String("locker", lockerID))
	e.notifier.Publish(notify.Event{
		Kind:     notify.EventAdminUnlock,
		LockerID: lockerID,
		At:       e.timeNow(),
	})
	return nil
}

// AdminSetMaintenance pulls a locker out of (or back into) the allocatable
// pool. Clearing maintenance marks the locker available on the documented
// assumption that the admin emptied it first.
func (e *Engine) AdminSetMaintenance(lockerID string, under bool) error {
	lockerID, err := types.NormalizeLockerID(lockerID, e.registry.PoolSize())
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("admin_maintenance").Inc()
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireAdminLocked(); err != nil {
		return err
	}
	before, err := e.registry.FindByID(lockerID)
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("admin_maintenance").Inc()
		return err
	}
	if err := e.registry.SetMaintenance(lockerID, under); err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("admin_maintenance").Inc()
		return err
	}
	if err := e.persistLocked(); err != nil {
		_ = e.registry.SetMaintenance(lockerID, before.UnderMaintenance)
		_ = e.registry.SetAvailability(lockerID, before.Available)
		metrics.OperationErrorsTotal.WithLabelValues("admin_maintenance").Inc()
		return fmt.Errorf("maintenance change not recorded: %w", err)
	}

	metrics.LockersAvailable.Set(float64(e.registry.AvailableCount()))
	e.logger.Info("maintenance flag changed",
		zap.String("locker", lockerID),
		zap.Bool("under_maintenance", under),
	)
	return nil
}

// AdminLockerStatus lists every locker ordered by number, each with its most
// recent reservation and billed usage hours.
func (e *Engine) AdminLockerStatus() ([]LockerDetail, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := e.requireAdminLocked(); err != nil {
		return nil, err
	}

	lockers := e.registry.Snapshot()
	out := make([]LockerDetail, 0, len(lockers))
	for _, lk := range lockers {
		detail := LockerDetail{Locker: lk}
		if last, err := e.ledger.LatestForLocker(lk.ID); err == nil {
			cp := last
			detail.Last = &cp
			if last.DropoffAt != nil && last.PickupAt != nil {
				detail.UsageHours = fee.CeilHours(last.PickupAt.Sub(*last.DropoffAt))
			}
		}
		out = append(out, detail)
	}
	return out, nil
}

// AdminListReservations returns the full audit trail, newest first.
func (e *Engine) AdminListReservations() ([]types.Reservation, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := e.requireAdminLocked(); err != nil {
		return nil, err
	}
	return e.ledger.ListNewestFirst(), nil
}

// TotalRevenue reports the accumulated sum over PAID reservations.
func (e *Engine) TotalRevenue() (decimal.Decimal, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := e.requireAdminLocked(); err != nil {
		return decimal.Zero, err
	}
	return e.ledger.TotalRevenue(), nil
}
