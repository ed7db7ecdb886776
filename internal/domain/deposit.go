package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DepositEntryType classifies a deposit ledger movement. Credit types add
// to the balance, debit types subtract.
type DepositEntryType string

const (
	DepositTypeFund         DepositEntryType = "fund"
	DepositTypeAdjustment   DepositEntryType = "adjustment"
	DepositTypeHoldRelease  DepositEntryType = "hold_release"
	DepositTypeHoldOpen     DepositEntryType = "hold_open"
	DepositTypePenalty      DepositEntryType = "penalty"
	DepositTypeReserveTrust DepositEntryType = "reserve_trust"
)

// Credit reports whether the entry type increases the balance.
func (t DepositEntryType) Credit() bool {
	switch t {
	case DepositTypeFund, DepositTypeAdjustment, DepositTypeHoldRelease:
		return true
	}
	return false
}

// Valid reports whether the type is a known ledger entry type.
func (t DepositEntryType) Valid() bool {
	switch t {
	case DepositTypeFund, DepositTypeAdjustment, DepositTypeHoldRelease,
		DepositTypeHoldOpen, DepositTypePenalty, DepositTypeReserveTrust:
		return true
	}
	return false
}

// DepositLedgerEntry is an append-only funding/penalty/hold movement. A
// company's balance is always the signed sum over its entries and is never
// materialized.
type DepositLedgerEntry struct {
	ID        uuid.UUID        `json:"id"`
	CompanyID uuid.UUID        `json:"companyId"`
	Type      DepositEntryType `json:"type"`
	Network   string           `json:"network"`
	Token     string           `json:"token"`
	Amount    decimal.Decimal  `json:"amount"`
	Ref       *string          `json:"ref,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
}

// DepositLedgerRepository stores deposit movements.
type DepositLedgerRepository interface {
	Insert(ctx context.Context, entry *DepositLedgerEntry) (*DepositLedgerEntry, error)
	// Balance returns the signed sum of the company's entries, valued 1:1.
	Balance(ctx context.Context, companyID uuid.UUID) (decimal.Decimal, error)
	ListByCompany(ctx context.Context, companyID uuid.UUID, limit int32) ([]*DepositLedgerEntry, error)
}
