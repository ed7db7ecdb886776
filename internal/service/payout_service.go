package service

import (
	"context"
	"crypto/subtle"

	"github.com/google/uuid"
	"github.com/rello/rello-backend/internal/domain"
	"github.com/rello/rello-backend/internal/event"
	"github.com/shopspring/decimal"
)

// PayoutService is the operator surface over outgoing transfers: the
// human approval gate plus the listings and counts the treasury views use.
type PayoutService struct {
	payoutRepo domain.OutgoingTransferRepository
	emitter    event.Emitter

	approvalCode string
	capPerTx     decimal.Decimal
}

// PayoutServiceConfig holds the approval gate settings
type PayoutServiceConfig struct {
	ApprovalCode string          // Shared secret; empty disables the code check
	CapPerTx     decimal.Decimal // Max value approvable per transaction; zero disables
}

// NewPayoutService creates a new PayoutService
func NewPayoutService(payoutRepo domain.OutgoingTransferRepository, emitter event.Emitter, config PayoutServiceConfig) *PayoutService {
	return &PayoutService{
		payoutRepo:   payoutRepo,
		emitter:      emitter,
		approvalCode: config.ApprovalCode,
		capPerTx:     config.CapPerTx,
	}
}

// Approve moves a queued payout to approved. A payout can be approved at
// most once: the status precondition is re-checked at update time, so a
// concurrent approval loses with ErrPreconditionFailed.
func (s *PayoutService) Approve(ctx context.Context, id uuid.UUID, code string) (*domain.OutgoingTransfer, error) {
	if err := s.checkCode(code); err != nil {
		return nil, err
	}

	payout, err := s.payoutRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if payout.Status != domain.PayoutStatusQueued {
		return nil, domain.ErrPreconditionFailed
	}
	if s.capPerTx.IsPositive() && payout.Amount.GreaterThan(s.capPerTx) {
		return nil, domain.ErrAmountExceedsCap
	}

	approved, err := s.payoutRepo.AdvanceStatus(ctx, id, domain.PayoutStatusQueued, domain.PayoutStatusApproved)
	if err != nil {
		return nil, err
	}

	s.emitter.Emit(event.PayoutApproved, approved, "approve:"+id.String())
	return approved, nil
}

// Reject moves a queued payout to failed under the same preconditions as
// Approve, minus the cap.
func (s *PayoutService) Reject(ctx context.Context, id uuid.UUID, code string) (*domain.OutgoingTransfer, error) {
	if err := s.checkCode(code); err != nil {
		return nil, err
	}

	payout, err := s.payoutRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if payout.Status != domain.PayoutStatusQueued {
		return nil, domain.ErrPreconditionFailed
	}

	rejected, err := s.payoutRepo.AdvanceStatus(ctx, id, domain.PayoutStatusQueued, domain.PayoutStatusFailed)
	if err != nil {
		return nil, err
	}

	s.emitter.Emit(event.PayoutRejected, rejected, "reject:"+id.String())
	return rejected, nil
}

func (s *PayoutService) checkCode(code string) error {
	if s.approvalCode == "" {
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(code), []byte(s.approvalCode)) != 1 {
		return domain.ErrApprovalCode
	}
	return nil
}

// ListInFlight returns the newest payouts not yet in a terminal state.
func (s *PayoutService) ListInFlight(ctx context.Context, limit int32) ([]*domain.OutgoingTransfer, error) {
	return s.payoutRepo.ListRecent(ctx, []domain.PayoutStatus{
		domain.PayoutStatusQueued,
		domain.PayoutStatusApproved,
		domain.PayoutStatusSigned,
		domain.PayoutStatusBroadcast,
	}, limit)
}

// Counts returns payout row counts by status.
func (s *PayoutService) Counts(ctx context.Context) (map[domain.PayoutStatus]int64, error) {
	return s.payoutRepo.CountByStatus(ctx)
}
