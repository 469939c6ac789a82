//go:generate mockgen -source ./notify.go -destination=./mocks/notify.go -package=mock_notify
package notify

import (
	"context"
	"time"
)

// EventKind labels the customer/admin notification events the engine emits.
type EventKind string

const (
	EventDropOffConfirmed EventKind = "dropoff_confirmed"
	EventPaymentReceipt   EventKind = "payment_receipt"
	EventAdminUnlock      EventKind = "admin_unlock"
)

// Event is the payload delivered to customers (drop-off confirmation with
// the locker id and access code, payment receipt) or to the audit channel
// (admin overrides).
type Event struct {
	Kind          EventKind `json:"kind"`
	Phone         string    `json:"phone,omitempty"`
	LockerID      string    `json:"locker_id"`
	Code          string    `json:"code,omitempty"`
	ReservationID string    `json:"reservation_id,omitempty"`
	Amount        string    `json:"amount,omitempty"`
	At            time.Time `json:"at"`
}

// Producer is the delivery transport. The console producer is the default;
// a Kafka-backed producer is wired when brokers are configured.
type Producer interface {
	SendMessage(ctx context.Context, topic string, key []byte, value []byte) error
	Close() error
}
