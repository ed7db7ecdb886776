package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rello/rello-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// TierMultipliers scales a company's deposit balance into a credit limit
// per tier.
type TierMultipliers map[domain.Tier]decimal.Decimal

// DefaultTierMultipliers returns the standard tier scaling.
func DefaultTierMultipliers() TierMultipliers {
	return TierMultipliers{
		domain.TierS:  decimal.NewFromInt(1),
		domain.TierM:  decimal.NewFromInt(2),
		domain.TierL:  decimal.NewFromInt(3),
		domain.TierXL: decimal.NewFromInt(5),
	}
}

// LimitsService is the Risk Gate: a pure decision function over a
// company's deposit balance, tier and open exposure. It must be consulted
// before any ledger-mutating operation that would increase exposure.
type LimitsService struct {
	depositRepo   domain.DepositLedgerRepository
	dealRepo      domain.DealRepository
	referenceRepo domain.ReferenceRepository

	multipliers     TierMultipliers
	capPerDeal      decimal.Decimal
	capOpenExposure decimal.Decimal
}

// LimitsConfig holds the Risk Gate caps and tier scaling
type LimitsConfig struct {
	Multipliers     TierMultipliers
	CapPerDeal      decimal.Decimal // Fixed per-deal cap; zero disables
	CapOpenExposure decimal.Decimal // Global open-exposure cap; zero disables
}

// NewLimitsService creates a new LimitsService
func NewLimitsService(
	depositRepo domain.DepositLedgerRepository,
	dealRepo domain.DealRepository,
	referenceRepo domain.ReferenceRepository,
	config LimitsConfig,
) *LimitsService {
	if config.Multipliers == nil {
		config.Multipliers = DefaultTierMultipliers()
	}
	return &LimitsService{
		depositRepo:     depositRepo,
		dealRepo:        dealRepo,
		referenceRepo:   referenceRepo,
		multipliers:     config.Multipliers,
		capPerDeal:      config.CapPerDeal,
		capOpenExposure: config.CapOpenExposure,
	}
}

// LimitsFor computes a company's current limits snapshot: tier, deposit
// balance, tier-scaled credit limit and open exposure.
func (s *LimitsService) LimitsFor(ctx context.Context, companyID uuid.UUID) (*domain.CompanyLimits, error) {
	tier, err := s.referenceRepo.CompanyTier(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("tier lookup: %w", err)
	}

	deposit, err := s.depositRepo.Balance(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("deposit balance: %w", err)
	}

	exposure, err := s.dealRepo.OpenExposure(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("open exposure: %w", err)
	}

	multiplier, ok := s.multipliers[tier]
	if !ok {
		multiplier = decimal.NewFromInt(1)
	}

	return &domain.CompanyLimits{
		Tier:         tier,
		Deposit:      deposit,
		CompanyLimit: deposit.Mul(multiplier),
		OpenExposure: exposure,
	}, nil
}

// Authorize decides whether a proposed deal or settlement amount is
// acceptable. Checks run in order: the per-deal cap first, regardless of
// exposure; then projected exposure against the lesser of the company
// limit and the global cap. No side effects.
func (s *LimitsService) Authorize(ctx context.Context, companyID uuid.UUID, amount decimal.Decimal) (*domain.Authorization, error) {
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	if s.capPerDeal.IsPositive() && amount.GreaterThan(s.capPerDeal) {
		return &domain.Authorization{
			Authorized: false,
			Reason:     fmt.Sprintf("cap_per_deal %s", s.capPerDeal),
		}, nil
	}

	limits, err := s.LimitsFor(ctx, companyID)
	if err != nil {
		return nil, err
	}

	if s.capOpenExposure.IsPositive() {
		ceiling := decimal.Min(limits.CompanyLimit, s.capOpenExposure)
		if limits.OpenExposure.Add(amount).GreaterThan(ceiling) {
			return &domain.Authorization{
				Authorized: false,
				Reason:     fmt.Sprintf("open_exposure %s / limit %s", s.capOpenExposure, limits.CompanyLimit),
			}, nil
		}
	}

	return &domain.Authorization{Authorized: true}, nil
}
