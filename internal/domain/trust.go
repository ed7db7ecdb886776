package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TrustPairStatus is the lifecycle of a bilateral trust relationship.
type TrustPairStatus string

const (
	TrustPairStatusProposed TrustPairStatus = "proposed"
	TrustPairStatusActive   TrustPairStatus = "active"
)

// TrustPair is a bilateral relationship between two companies. The
// (CompanyLowID, CompanyHighID) pair is the order-independent identity:
// the smaller id always goes first, so the store can enforce at most one
// row per unordered pair.
type TrustPair struct {
	ID            uuid.UUID       `json:"id"`
	CompanyAID    uuid.UUID       `json:"companyAId"`
	CompanyBID    uuid.UUID       `json:"companyBId"`
	CompanyLowID  uuid.UUID       `json:"companyLowId"`
	CompanyHighID uuid.UUID       `json:"companyHighId"`
	Status        TrustPairStatus `json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// CanonicalPair orders two company ids into the (low, high) form used as
// the pair identity.
func CanonicalPair(a, b uuid.UUID) (low, high uuid.UUID) {
	if a.String() < b.String() {
		return a, b
	}
	return b, a
}

// TrustSessionState is the lifecycle of one netting period.
type TrustSessionState string

const (
	TrustSessionOpen    TrustSessionState = "open"
	TrustSessionClosed  TrustSessionState = "closed"
	TrustSessionSettled TrustSessionState = "settled"
)

// TrustSession is one netting period, at most one per (pair, date).
type TrustSession struct {
	ID          uuid.UUID         `json:"id"`
	PairID      uuid.UUID         `json:"pairId"`
	SessionDate time.Time         `json:"sessionDate"`
	State       TrustSessionState `json:"state"`
	NetAmount   decimal.Decimal   `json:"netAmount"`
	NetValue    decimal.Decimal   `json:"netValue"`
	SettledAt   *time.Time        `json:"settledAt,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// LedgerSide is the direction of a trust ledger movement.
type LedgerSide string

const (
	SideAToB LedgerSide = "a_to_b"
	SideBToA LedgerSide = "b_to_a"
)

// TrustLedgerEntry is an append-only movement within a session. Entries
// are immutable once written; a session's net is always the sum over them.
type TrustLedgerEntry struct {
	ID        uuid.UUID       `json:"id"`
	SessionID uuid.UUID       `json:"sessionId"`
	DealID    *uuid.UUID      `json:"dealId,omitempty"`
	Side      LedgerSide      `json:"side"`
	Network   string          `json:"network"`
	Token     string          `json:"token"`
	Amount    decimal.Decimal `json:"amount"`
	Value     decimal.Decimal `json:"value"`
	CreatedAt time.Time       `json:"createdAt"`
}

// TrustPairRepository stores bilateral pairs. Insert returns
// ErrDuplicateKey when a row for the same unordered pair already exists.
type TrustPairRepository interface {
	Insert(ctx context.Context, pair *TrustPair) (*TrustPair, error)
	GetByID(ctx context.Context, id uuid.UUID) (*TrustPair, error)
	GetByCompanies(ctx context.Context, lowID, highID uuid.UUID) (*TrustPair, error)
}

// TrustSessionRepository stores netting periods. Insert returns
// ErrDuplicateKey for a second session on the same (pair, date).
type TrustSessionRepository interface {
	Insert(ctx context.Context, session *TrustSession) (*TrustSession, error)
	GetByID(ctx context.Context, id uuid.UUID) (*TrustSession, error)
	GetByPairAndDate(ctx context.Context, pairID uuid.UUID, date time.Time) (*TrustSession, error)
	ListByState(ctx context.Context, state TrustSessionState, limit int32) ([]*TrustSession, error)
	// Close moves open -> closed, guarded by the current state.
	Close(ctx context.Context, id uuid.UUID) (*TrustSession, error)
	// MarkSettled moves closed -> settled recording the net, guarded by the
	// current state.
	MarkSettled(ctx context.Context, id uuid.UUID, netAmount, netValue decimal.Decimal) (*TrustSession, error)
}

// TrustLedgerRepository stores append-only session movements.
type TrustLedgerRepository interface {
	Insert(ctx context.Context, entry *TrustLedgerEntry) (*TrustLedgerEntry, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*TrustLedgerEntry, error)
}
