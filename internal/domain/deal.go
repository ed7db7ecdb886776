package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OfferDirection is the side an offering company wants to trade.
type OfferDirection string

const (
	DirectionCashIn  OfferDirection = "cash_in"
	DirectionCashOut OfferDirection = "cash_out"
)

// OfferStatus is the lifecycle of a published offer.
type OfferStatus string

const (
	OfferStatusActive OfferStatus = "active"
	OfferStatusClosed OfferStatus = "closed"
)

// Offer is a published intent to trade, accepted into a deal.
type Offer struct {
	ID        uuid.UUID       `json:"id"`
	CompanyID uuid.UUID       `json:"companyId"`
	Direction OfferDirection  `json:"direction"`
	Mode      string          `json:"mode"`
	Network   string          `json:"network"`
	Token     string          `json:"token"`
	Amount    decimal.Decimal `json:"amount"`
	Status    OfferStatus     `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
}

// DealState is the lifecycle of a deal; closed is the only terminal state.
type DealState string

const (
	DealStateProposed DealState = "proposed"
	DealStateFunded   DealState = "funded"
	DealStateClosed   DealState = "closed"
)

// Deal is an accepted offer between two companies. Every non-closed deal
// contributes its amount to both companies' open exposure.
type Deal struct {
	ID                    uuid.UUID       `json:"id"`
	OfferID               uuid.UUID       `json:"offerId"`
	InitiatorCompanyID    uuid.UUID       `json:"initiatorCompanyId"`
	CounterpartyCompanyID uuid.UUID       `json:"counterpartyCompanyId"`
	Direction             OfferDirection  `json:"direction"`
	Mode                  string          `json:"mode"`
	Network               string          `json:"network"`
	Token                 string          `json:"token"`
	Amount                decimal.Decimal `json:"amount"`
	State                 DealState       `json:"state"`
	TrustSessionID        *uuid.UUID      `json:"trustSessionId,omitempty"`
	CreatedAt             time.Time       `json:"createdAt"`
	ClosedAt              *time.Time      `json:"closedAt,omitempty"`
}

// OfferRepository stores published offers.
type OfferRepository interface {
	Insert(ctx context.Context, offer *Offer) (*Offer, error)
	GetActive(ctx context.Context, id uuid.UUID) (*Offer, error)
	ListByCompany(ctx context.Context, companyID uuid.UUID, limit int32) ([]*Offer, error)
	// ListFeed returns active offers published by other companies.
	ListFeed(ctx context.Context, excludeCompanyID uuid.UUID, limit int32) ([]*Offer, error)
	// Close moves active -> closed, guarded by the current status.
	Close(ctx context.Context, id uuid.UUID) (*Offer, error)
}

// DealRepository stores deals.
type DealRepository interface {
	Insert(ctx context.Context, deal *Deal) (*Deal, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Deal, error)
	ListByCompany(ctx context.Context, companyID uuid.UUID, limit int32) ([]*Deal, error)
	// OpenExposure sums the amounts of the company's non-closed deals,
	// regardless of token or network.
	OpenExposure(ctx context.Context, companyID uuid.UUID) (decimal.Decimal, error)
}
