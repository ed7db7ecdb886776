package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IncomingStatus is the state of a detected inbound transfer.
type IncomingStatus string

const (
	IncomingStatusSeen      IncomingStatus = "seen"
	IncomingStatusConfirmed IncomingStatus = "confirmed"
)

// IncomingTransfer is one detected inbound transfer. Confirmations are
// monotonically non-decreasing and capped at the required threshold.
type IncomingTransfer struct {
	ID            uuid.UUID       `json:"id"`
	Network       string          `json:"network"`
	Token         string          `json:"token"`
	TxHash        string          `json:"txHash"`
	FromAddress   string          `json:"fromAddress"`
	ToAddress     string          `json:"toAddress"`
	Amount        decimal.Decimal `json:"amount"`
	Confirmations int32           `json:"confirmations"`
	Status        IncomingStatus  `json:"status"`
	DealID        *uuid.UUID      `json:"dealId,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// IncomingCounts summarizes inbound traffic for the ops surface.
type IncomingCounts struct {
	Total     int64 `json:"total"`
	Confirmed int64 `json:"confirmed"`
}

// IncomingTransferRepository is the store contract for inbound transfers.
// TxHash carries a uniqueness constraint; Insert returns ErrDuplicateKey
// when the same hash is seen twice.
type IncomingTransferRepository interface {
	Insert(ctx context.Context, t *IncomingTransfer) (*IncomingTransfer, error)
	GetByID(ctx context.Context, id uuid.UUID) (*IncomingTransfer, error)
	// ListSeenBelow returns transfers still in seen state with fewer than
	// threshold confirmations, oldest first.
	ListSeenBelow(ctx context.Context, threshold int32, limit int32) ([]*IncomingTransfer, error)
	// IncrementConfirmations adds exactly one confirmation, guarded by the
	// record still being seen and below threshold.
	IncrementConfirmations(ctx context.Context, id uuid.UUID, threshold int32) (*IncomingTransfer, error)
	// MarkConfirmed moves seen -> confirmed; the guard is on status, not on
	// the confirmation count, so the transition fires exactly once.
	MarkConfirmed(ctx context.Context, id uuid.UUID) (*IncomingTransfer, error)
	ListRecent(ctx context.Context, limit int32) ([]*IncomingTransfer, error)
	Counts(ctx context.Context) (*IncomingCounts, error)
}
