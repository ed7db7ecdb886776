package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PayoutStatus is the state of an outgoing transfer. Transitions are
// strictly forward: queued -> (approved) -> signed -> broadcast -> confirmed,
// with failed reachable only from queued/approved via operator rejection.
type PayoutStatus string

const (
	PayoutStatusQueued    PayoutStatus = "queued"
	PayoutStatusApproved  PayoutStatus = "approved"
	PayoutStatusSigned    PayoutStatus = "signed"
	PayoutStatusBroadcast PayoutStatus = "broadcast"
	PayoutStatusConfirmed PayoutStatus = "confirmed"
	PayoutStatusFailed    PayoutStatus = "failed"
)

// Terminal reports whether no further transition is possible.
func (s PayoutStatus) Terminal() bool {
	return s == PayoutStatusConfirmed || s == PayoutStatusFailed
}

// OutgoingTransfer is one payout. At most one of DealID, PayoutRequestID,
// SettlementID is set; IdempotencyKey, when present, is globally unique and
// enforced by the store.
type OutgoingTransfer struct {
	ID              uuid.UUID       `json:"id"`
	Network         string          `json:"network"`
	Token           string          `json:"token"`
	Status          PayoutStatus    `json:"status"`
	FromWalletID    uuid.UUID       `json:"fromWalletId"`
	ToAddress       string          `json:"toAddress"`
	Amount          decimal.Decimal `json:"amount"`
	TxHash          *string         `json:"txHash,omitempty"`
	IdempotencyKey  *string         `json:"idempotencyKey,omitempty"`
	DealID          *uuid.UUID      `json:"dealId,omitempty"`
	PayoutRequestID *uuid.UUID      `json:"payoutRequestId,omitempty"`
	SettlementID    *uuid.UUID      `json:"settlementId,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// OutgoingTransferRepository is the store contract for payouts.
// Conditional updates return ErrPreconditionFailed when the record is no
// longer in the expected status; Insert returns ErrDuplicateKey on an
// idempotency-key collision.
type OutgoingTransferRepository interface {
	Insert(ctx context.Context, t *OutgoingTransfer) (*OutgoingTransfer, error)
	GetByID(ctx context.Context, id uuid.UUID) (*OutgoingTransfer, error)
	// ListByStatus returns the oldest records first so claiming is FIFO.
	ListByStatus(ctx context.Context, status PayoutStatus, limit int32) ([]*OutgoingTransfer, error)
	// AdvanceStatus moves a record from one status to the next, guarded by
	// the expected current status.
	AdvanceStatus(ctx context.Context, id uuid.UUID, from, to PayoutStatus) (*OutgoingTransfer, error)
	// MarkBroadcast assigns the transaction hash while moving
	// signed -> broadcast.
	MarkBroadcast(ctx context.Context, id uuid.UUID, txHash string) (*OutgoingTransfer, error)
	ListRecent(ctx context.Context, statuses []PayoutStatus, limit int32) ([]*OutgoingTransfer, error)
	CountByStatus(ctx context.Context) (map[PayoutStatus]int64, error)
	// CountStuck counts records sitting in a status longer than maxAge.
	CountStuck(ctx context.Context, status PayoutStatus, maxAge time.Duration) (int64, error)
}
