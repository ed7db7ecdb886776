package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rello/rello-backend/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// TrustService manages trust pairs, their daily sessions and the intraday
// ledger those sessions accumulate. Obligations recorded here are netted
// by the EOD engine after the session closes.
type TrustService struct {
	pairRepo    domain.TrustPairRepository
	sessionRepo domain.TrustSessionRepository
	ledgerRepo  domain.TrustLedgerRepository
	logger      zerolog.Logger
}

// NewTrustService creates a new TrustService
func NewTrustService(
	pairRepo domain.TrustPairRepository,
	sessionRepo domain.TrustSessionRepository,
	ledgerRepo domain.TrustLedgerRepository,
	logger zerolog.Logger,
) *TrustService {
	return &TrustService{
		pairRepo:    pairRepo,
		sessionRepo: sessionRepo,
		ledgerRepo:  ledgerRepo,
		logger:      logger.With().Str("component", "trust_service").Logger(),
	}
}

// EnsurePair returns the trust pair for the two companies, creating it if
// it does not exist. The pair is canonical: the same two ids in either
// order resolve to the same row.
func (s *TrustService) EnsurePair(ctx context.Context, a, b uuid.UUID) (*domain.TrustPair, error) {
	if a == b {
		return nil, domain.ErrInvalidInput
	}

	low, high := domain.CanonicalPair(a, b)

	pair, err := s.pairRepo.GetByCompanies(ctx, low, high)
	if err == nil {
		return pair, nil
	}
	if !errors.Is(err, domain.ErrPairNotFound) {
		return nil, err
	}

	pair, err = s.pairRepo.Insert(ctx, &domain.TrustPair{
		CompanyAID:    a,
		CompanyBID:    b,
		CompanyLowID:  low,
		CompanyHighID: high,
		Status:        domain.TrustPairStatusActive,
	})
	if errors.Is(err, domain.ErrDuplicateKey) {
		// Created concurrently between our lookup and insert
		return s.pairRepo.GetByCompanies(ctx, low, high)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("pair_id", pair.ID.String()).
		Msg("Trust pair created")
	return pair, nil
}

// TodaySession returns the pair's open session for today, creating one if
// none exists.
func (s *TrustService) TodaySession(ctx context.Context, pairID uuid.UUID) (*domain.TrustSession, error) {
	today := time.Now().UTC()

	if _, err := s.pairRepo.GetByID(ctx, pairID); err != nil {
		return nil, err
	}

	session, err := s.sessionRepo.GetByPairAndDate(ctx, pairID, today)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, domain.ErrSessionNotFound) {
		return nil, err
	}

	session, err = s.sessionRepo.Insert(ctx, &domain.TrustSession{
		PairID:      pairID,
		SessionDate: today,
		State:       domain.TrustSessionOpen,
	})
	if errors.Is(err, domain.ErrDuplicateKey) {
		return s.sessionRepo.GetByPairAndDate(ctx, pairID, today)
	}
	return session, err
}

// LedgerEntryInput carries the fields of a new ledger movement.
type LedgerEntryInput struct {
	SessionID uuid.UUID
	Side      domain.LedgerSide
	Network   string
	Token     string
	Amount    decimal.Decimal
	DealID    *uuid.UUID
}

// AddEntry records an obligation on the session's ledger. The session must
// still be open. Value is recorded 1:1 with the amount until a rate source
// exists.
func (s *TrustService) AddEntry(ctx context.Context, input LedgerEntryInput) (*domain.TrustLedgerEntry, error) {
	if !input.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	if input.Side != domain.SideAToB && input.Side != domain.SideBToA {
		return nil, domain.ErrInvalidInput
	}

	session, err := s.sessionRepo.GetByID(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}
	if session.State != domain.TrustSessionOpen {
		return nil, fmt.Errorf("session %s is %s: %w", session.ID, session.State, domain.ErrSessionNotOpen)
	}

	entry, err := s.ledgerRepo.Insert(ctx, &domain.TrustLedgerEntry{
		SessionID: input.SessionID,
		Side:      input.Side,
		Network:   input.Network,
		Token:     input.Token,
		Amount:    input.Amount,
		Value:     input.Amount,
		DealID:    input.DealID,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("session_id", entry.SessionID.String()).
		Str("side", string(entry.Side)).
		Str("amount", entry.Amount.String()).
		Msg("Ledger entry recorded")
	return entry, nil
}

// CloseSession freezes an open session so the EOD engine can pick it up.
// Entries can no longer be added once closed.
func (s *TrustService) CloseSession(ctx context.Context, sessionID uuid.UUID) (*domain.TrustSession, error) {
	session, err := s.sessionRepo.Close(ctx, sessionID)
	if errors.Is(err, domain.ErrPreconditionFailed) {
		return nil, domain.ErrSessionNotOpen
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("session_id", sessionID.String()).
		Msg("Trust session closed")
	return session, nil
}

// SessionLedger returns a session's entries with the running net from A's
// perspective.
func (s *TrustService) SessionLedger(ctx context.Context, sessionID uuid.UUID) ([]*domain.TrustLedgerEntry, decimal.Decimal, error) {
	if _, err := s.sessionRepo.GetByID(ctx, sessionID); err != nil {
		return nil, decimal.Zero, err
	}

	entries, err := s.ledgerRepo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	return entries, netOf(entries), nil
}
