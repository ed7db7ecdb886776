package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rello/rello-backend/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DealService runs the offer board. Posting an offer is free; accepting
// one passes the acceptor through the risk gate and claims the offer with
// a compare-and-set so two acceptors cannot both win it.
type DealService struct {
	offerRepo   domain.OfferRepository
	dealRepo    domain.DealRepository
	companyRepo domain.CompanyRepository
	limits      *LimitsService
	logger      zerolog.Logger
}

// NewDealService creates a new DealService
func NewDealService(
	offerRepo domain.OfferRepository,
	dealRepo domain.DealRepository,
	companyRepo domain.CompanyRepository,
	limits *LimitsService,
	logger zerolog.Logger,
) *DealService {
	return &DealService{
		offerRepo:   offerRepo,
		dealRepo:    dealRepo,
		companyRepo: companyRepo,
		limits:      limits,
		logger:      logger.With().Str("component", "deal_service").Logger(),
	}
}

// CreateOfferInput carries the fields of a new offer.
type CreateOfferInput struct {
	CompanyID uuid.UUID
	Direction domain.OfferDirection
	Mode      string
	Network   string
	Token     string
	Amount    decimal.Decimal
}

// CreateOffer posts an offer to the board. No risk check runs here; the
// gate applies when someone accepts.
func (s *DealService) CreateOffer(ctx context.Context, input CreateOfferInput) (*domain.Offer, error) {
	if !input.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	if input.Direction != domain.DirectionCashIn && input.Direction != domain.DirectionCashOut {
		return nil, domain.ErrInvalidInput
	}

	if _, err := s.companyRepo.GetByID(ctx, input.CompanyID); err != nil {
		return nil, err
	}

	offer, err := s.offerRepo.Insert(ctx, &domain.Offer{
		CompanyID: input.CompanyID,
		Direction: input.Direction,
		Mode:      input.Mode,
		Network:   input.Network,
		Token:     input.Token,
		Amount:    input.Amount,
		Status:    domain.OfferStatusActive,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("offer_id", offer.ID.String()).
		Str("direction", string(offer.Direction)).
		Str("amount", offer.Amount.String()).
		Msg("Offer posted")
	return offer, nil
}

// AcceptOffer matches an active offer into a deal. The acceptor must not
// be the offer's publisher and must pass the risk gate for the offer
// amount. The offer is claimed first: the active -> closed transition is
// the lock, so a concurrent acceptor fails it before any deal row exists.
func (s *DealService) AcceptOffer(ctx context.Context, offerID, acceptorID uuid.UUID) (*domain.Deal, error) {
	offer, err := s.offerRepo.GetActive(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.CompanyID == acceptorID {
		return nil, domain.ErrOwnOffer
	}

	auth, err := s.limits.Authorize(ctx, acceptorID, offer.Amount)
	if err != nil {
		return nil, err
	}
	if !auth.Authorized {
		return nil, fmt.Errorf("%s: %w", auth.Reason, domain.ErrNotAuthorized)
	}

	if _, err := s.offerRepo.Close(ctx, offerID); err != nil {
		return nil, err
	}

	deal, err := s.dealRepo.Insert(ctx, &domain.Deal{
		OfferID:               offer.ID,
		InitiatorCompanyID:    offer.CompanyID,
		CounterpartyCompanyID: acceptorID,
		Direction:             offer.Direction,
		Mode:                  offer.Mode,
		Network:               offer.Network,
		Token:                 offer.Token,
		Amount:                offer.Amount,
		State:                 domain.DealStateProposed,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("deal_id", deal.ID.String()).
		Str("offer_id", offer.ID.String()).
		Str("amount", deal.Amount.String()).
		Msg("Offer accepted")
	return deal, nil
}

// Feed returns the newest active offers published by other companies.
func (s *DealService) Feed(ctx context.Context, viewerID uuid.UUID, limit int32) ([]*domain.Offer, error) {
	return s.offerRepo.ListFeed(ctx, viewerID, limit)
}

// OffersFor returns a company's own offers, newest first.
func (s *DealService) OffersFor(ctx context.Context, companyID uuid.UUID, limit int32) ([]*domain.Offer, error) {
	return s.offerRepo.ListByCompany(ctx, companyID, limit)
}

// DealsFor returns a company's deals, newest first.
func (s *DealService) DealsFor(ctx context.Context, companyID uuid.UUID, limit int32) ([]*domain.Deal, error) {
	return s.dealRepo.ListByCompany(ctx, companyID, limit)
}
