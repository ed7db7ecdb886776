package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tier is a company's risk classification. It multiplies the deposit
// balance into a usable credit limit.
type Tier string

const (
	TierS  Tier = "S"
	TierM  Tier = "M"
	TierL  Tier = "L"
	TierXL Tier = "XL"
)

// ParseTier normalizes a stored tier value; anything unknown falls back to
// the most conservative tier.
func ParseTier(s string) Tier {
	switch Tier(strings.ToUpper(strings.TrimSpace(s))) {
	case TierM:
		return TierM
	case TierL:
		return TierL
	case TierXL:
		return TierXL
	}
	return TierS
}

// Company is a settlement participant.
type Company struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Status    string    `json:"status"`
	Timezone  string    `json:"timezone"`
	CreatedAt time.Time `json:"createdAt"`
}

// CompanyLimits is the Risk Gate's view of one company.
type CompanyLimits struct {
	Tier         Tier            `json:"tier"`
	Deposit      decimal.Decimal `json:"deposit"`
	CompanyLimit decimal.Decimal `json:"companyLimit"`
	OpenExposure decimal.Decimal `json:"openExposure"`
}

// Authorization is the Risk Gate's decision on a proposed amount.
type Authorization struct {
	Authorized bool   `json:"authorized"`
	Reason     string `json:"reason,omitempty"`
}

// CompanyRepository stores settlement participants. Insert returns
// ErrDuplicateKey on a slug collision.
type CompanyRepository interface {
	Insert(ctx context.Context, company *Company) (*Company, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Company, error)
	GetBySlug(ctx context.Context, slug string) (*Company, error)
}

// ReferenceRepository is the typed lookup over slow-moving reference data.
type ReferenceRepository interface {
	// CompanyTier returns the company's tier; absence of a record yields
	// the conservative default, not an error.
	CompanyTier(ctx context.Context, companyID uuid.UUID) (Tier, error)
	SetCompanyTier(ctx context.Context, companyID uuid.UUID, tier Tier) error
}
