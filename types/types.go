package types

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidPhone      = errors.New("invalid phone number")
	ErrInvalidLockerID   = errors.New("invalid locker id")
	ErrInvalidAccessCode = errors.New("invalid access code")
)

// ServiceType enumerates the service catalog. The catalog is closed and
// small, so a tagged string constant is enough.
type ServiceType string

const (
	WashAndFold ServiceType = "WASH_AND_FOLD"
	DryCleaning ServiceType = "DRY_CLEANING"
)

func ParseServiceType(s string) (ServiceType, error) {
	switch ServiceType(strings.ToUpper(strings.TrimSpace(s))) {
	case WashAndFold:
		return WashAndFold, nil
	case DryCleaning:
		return DryCleaning, nil
	default:
		return "", fmt.Errorf("unknown service type %q", s)
	}
}

type PaymentStatus string

const (
	Unpaid PaymentStatus = "UNPAID"
	Paid   PaymentStatus = "PAID"
)

// ReservationState is the explicit lifecycle phase. It is tracked as its own
// field rather than inferred from nullable timestamps so transitions stay
// testable.
type ReservationState string

const (
	StatePending    ReservationState = "PENDING"
	StateDroppedOff ReservationState = "DROPPED_OFF"
	StatePaid       ReservationState = "PAID"
)

type Locker struct {
	ID               string `json:"id"`
	Available        bool   `json:"available"`
	UnderMaintenance bool   `json:"under_maintenance"`
}

// AllocatableNow reports whether the locker can be handed to a new drop-off.
// A locker under maintenance is never allocatable, whatever Available says.
func (l Locker) AllocatableNow() bool {
	return l.Available && !l.UnderMaintenance
}

type Reservation struct {
	ID         string           `json:"id"`
	Phone      string           `json:"phone"`
	LockerID   string           `json:"locker_id"`
	Code       string           `json:"code"`
	Service    ServiceType      `json:"service"`
	ServiceFee decimal.Decimal  `json:"service_fee"`
	State      ReservationState `json:"state"`
	Payment    PaymentStatus    `json:"payment_status"`
	Amount     decimal.Decimal  `json:"amount"`
	CreatedAt  time.Time        `json:"created_at"`
	DropoffAt  *time.Time       `json:"dropoff_at,omitempty"`
	PickupAt   *time.Time       `json:"pickup_at,omitempty"`
}

// Active reports whether the reservation can still be matched for a pick-up.
// PAID reservations are immutable history.
func (r Reservation) Active() bool {
	return r.Payment == Unpaid
}

var (
	phoneRe = regexp.MustCompile(`^[0-9]{8,15}$`)
	codeRe  = regexp.MustCompile(`^[0-9]{6}$`)
	lockRe  = regexp.MustCompile(`^L([0-9]{3})$`)
)

func ValidatePhone(phone string) error {
	if !phoneRe.MatchString(phone) {
		return fmt.Errorf("%w: want 8-15 digits, got %q", ErrInvalidPhone, phone)
	}
	return nil
}

func ValidateAccessCode(code string) error {
	if !codeRe.MatchString(code) {
		return fmt.Errorf("%w: want exactly 6 digits", ErrInvalidAccessCode)
	}
	return nil
}

// NormalizeLockerID uppercases and validates a locker id against the
// configured pool range. Ids are strictly "L" + three digits within
// [1, poolSize].
func NormalizeLockerID(id string, poolSize int) (string, error) {
	id = strings.ToUpper(strings.TrimSpace(id))
	m := lockRe.FindStringSubmatch(id)
	if m == nil {
		return "", fmt.Errorf("%w: want L + 3 digits, got %q", ErrInvalidLockerID, id)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 || n > poolSize {
		return "", fmt.Errorf("%w: %q outside pool range L001-L%03d", ErrInvalidLockerID, id, poolSize)
	}
	return id, nil
}

// LockerNumber extracts the numeric suffix of a locker id for ordering.
// Unknown formats sort last.
func LockerNumber(id string) int {
	m := lockRe.FindStringSubmatch(strings.ToUpper(id))
	if m == nil {
		return 1 << 30
	}
	n, _ := strconv.Atoi(m[1])
	return n
}
