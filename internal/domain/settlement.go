package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SettlementStatus tracks the payout created for a netting result.
type SettlementStatus string

const (
	SettlementStatusQueued SettlementStatus = "queued"
	SettlementStatusPaid   SettlementStatus = "paid"
)

// EodSettlement is the netting result for one trust session. The store
// enforces at most one settlement per session.
type EodSettlement struct {
	ID             uuid.UUID        `json:"id"`
	SessionID      uuid.UUID        `json:"sessionId"`
	PayerCompanyID uuid.UUID        `json:"payerCompanyId"`
	PayeeCompanyID uuid.UUID        `json:"payeeCompanyId"`
	Network        string           `json:"network"`
	Token          string           `json:"token"`
	Amount         decimal.Decimal  `json:"amount"`
	Value          decimal.Decimal  `json:"value"`
	Status         SettlementStatus `json:"status"`
	CreatedAt      time.Time        `json:"createdAt"`
}

// EodSettlementRepository stores netting results. Insert returns
// ErrDuplicateKey when the session already has a settlement.
type EodSettlementRepository interface {
	Insert(ctx context.Context, s *EodSettlement) (*EodSettlement, error)
	GetBySession(ctx context.Context, sessionID uuid.UUID) (*EodSettlement, error)
}
