package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rello/rello-backend/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DepositService maintains the append-only deposit ledger backing the risk
// gate. Balances are never stored; they are the signed sum of a company's
// entries.
type DepositService struct {
	depositRepo domain.DepositLedgerRepository
	companyRepo domain.CompanyRepository
	logger      zerolog.Logger
}

// NewDepositService creates a new DepositService
func NewDepositService(depositRepo domain.DepositLedgerRepository, companyRepo domain.CompanyRepository, logger zerolog.Logger) *DepositService {
	return &DepositService{
		depositRepo: depositRepo,
		companyRepo: companyRepo,
		logger:      logger.With().Str("component", "deposit_service").Logger(),
	}
}

// DepositEntryInput carries the fields of a new ledger entry.
type DepositEntryInput struct {
	CompanyID uuid.UUID
	Type      domain.DepositEntryType
	Network   string
	Token     string
	Amount    decimal.Decimal
	Ref       *string
}

// AddEntry appends one ledger entry. Amounts are always positive; the
// entry type decides the sign at read time.
func (s *DepositService) AddEntry(ctx context.Context, input DepositEntryInput) (*domain.DepositLedgerEntry, error) {
	if !input.Type.Valid() {
		return nil, domain.ErrInvalidInput
	}
	if !input.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	if _, err := s.companyRepo.GetByID(ctx, input.CompanyID); err != nil {
		return nil, err
	}

	entry, err := s.depositRepo.Insert(ctx, &domain.DepositLedgerEntry{
		CompanyID: input.CompanyID,
		Type:      input.Type,
		Network:   input.Network,
		Token:     input.Token,
		Amount:    input.Amount,
		Ref:       input.Ref,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("company_id", entry.CompanyID.String()).
		Str("type", string(entry.Type)).
		Str("amount", entry.Amount.String()).
		Msg("Deposit ledger entry added")
	return entry, nil
}

// Balance returns the company's current deposit balance.
func (s *DepositService) Balance(ctx context.Context, companyID uuid.UUID) (decimal.Decimal, error) {
	if _, err := s.companyRepo.GetByID(ctx, companyID); err != nil {
		return decimal.Zero, err
	}
	return s.depositRepo.Balance(ctx, companyID)
}

// History returns the company's ledger entries, newest first.
func (s *DepositService) History(ctx context.Context, companyID uuid.UUID, limit int32) ([]*domain.DepositLedgerEntry, error) {
	return s.depositRepo.ListByCompany(ctx, companyID, limit)
}
