package event

import "time"

// Type identifies a notification emitted on a state transition.
type Type string

const (
	PayInDetected   Type = "pay_in.detected"
	PayInConfirmed  Type = "pay_in.confirmed"
	PayoutQueued    Type = "payout.queued"
	PayoutApproved  Type = "payout.approved"
	PayoutRejected  Type = "payout.rejected"
	PayoutSigned    Type = "payout.signed"
	PayoutBroadcast Type = "payout.broadcast"
	PayoutConfirmed Type = "payout.confirmed"
	EodSettled      Type = "eod.settled"
	OpsAlert        Type = "ops.alert"
)

// Envelope is the wire form of an emitted event.
type Envelope struct {
	Type      Type        `json:"type"`
	Timestamp time.Time   `json:"ts"`
	Payload   interface{} `json:"payload"`
}

// Emitter delivers notifications for state transitions. Delivery is
// best-effort and must never block or fail the caller; failures are only
// logged.
type Emitter interface {
	Emit(eventType Type, payload interface{}, idempotencyKey string)
}

// NopEmitter discards all events (for tests or when delivery is disabled).
type NopEmitter struct{}

// Emit does nothing
func (NopEmitter) Emit(eventType Type, payload interface{}, idempotencyKey string) {}

// Multi fans one event out to several emitters.
type Multi []Emitter

// Emit forwards the event to every emitter in order.
func (m Multi) Emit(eventType Type, payload interface{}, idempotencyKey string) {
	for _, e := range m {
		e.Emit(eventType, payload, idempotencyKey)
	}
}
