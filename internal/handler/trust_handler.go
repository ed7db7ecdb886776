package handler

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rello/rello-backend/internal/domain"
	"github.com/rello/rello-backend/internal/service"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// TrustHandler handles trust pair and session HTTP requests
type TrustHandler struct {
	trustService *service.TrustService
}

// NewTrustHandler creates a new TrustHandler
func NewTrustHandler(trustService *service.TrustService) *TrustHandler {
	return &TrustHandler{trustService: trustService}
}

// PairRequest represents the JSON request for establishing a trust pair
type PairRequest struct {
	CompanyAID string `json:"companyAId"`
	CompanyBID string `json:"companyBId"`
}

// EnsurePair establishes (or returns) the trust pair for two companies
func (h *TrustHandler) EnsurePair(c echo.Context) error {
	var req PairRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	a, err := uuid.Parse(req.CompanyAID)
	if err != nil {
		return NewValidationError(c, "Invalid company A ID", nil)
	}
	b, err := uuid.Parse(req.CompanyBID)
	if err != nil {
		return NewValidationError(c, "Invalid company B ID", nil)
	}

	pair, err := h.trustService.EnsurePair(c.Request().Context(), a, b)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return NewValidationError(c, "A trust pair needs two distinct companies", nil)
		}
		log.Error().Err(err).Msg("Failed to ensure trust pair")
		return NewInternalError(c, "Failed to ensure trust pair")
	}

	return c.JSON(http.StatusOK, pair)
}

// TodaySession returns (or creates) the pair's open session for today
func (h *TrustHandler) TodaySession(c echo.Context) error {
	pairID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid pair ID", nil)
	}

	session, err := h.trustService.TodaySession(c.Request().Context(), pairID)
	if err != nil {
		if errors.Is(err, domain.ErrPairNotFound) {
			return NewNotFoundError(c, "Trust pair not found")
		}
		log.Error().Err(err).Str("pair_id", pairID.String()).Msg("Failed to get today's session")
		return NewInternalError(c, "Failed to get today's session")
	}

	return c.JSON(http.StatusOK, session)
}

// LedgerEntryRequest represents the JSON request for a ledger movement
type LedgerEntryRequest struct {
	Side    string  `json:"side"`
	Network string  `json:"network"`
	Token   string  `json:"token"`
	Amount  string  `json:"amount"`
	DealID  *string `json:"dealId,omitempty"`
}

// AddEntry records an obligation on an open session's ledger
func (h *TrustHandler) AddEntry(c echo.Context) error {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid session ID", nil)
	}

	var req LedgerEntryRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return NewValidationError(c, "Invalid amount", nil)
	}

	var dealID *uuid.UUID
	if req.DealID != nil {
		parsed, err := uuid.Parse(*req.DealID)
		if err != nil {
			return NewValidationError(c, "Invalid deal ID", nil)
		}
		dealID = &parsed
	}

	entry, err := h.trustService.AddEntry(c.Request().Context(), service.LedgerEntryInput{
		SessionID: sessionID,
		Side:      domain.LedgerSide(req.Side),
		Network:   req.Network,
		Token:     req.Token,
		Amount:    amount,
		DealID:    dealID,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSessionNotFound):
			return NewNotFoundError(c, "Trust session not found")
		case errors.Is(err, domain.ErrSessionNotOpen):
			return NewConflictError(c, "Trust session is no longer open")
		case errors.Is(err, domain.ErrInvalidInput):
			return NewValidationError(c, "Side must be a_to_b or b_to_a", nil)
		case errors.Is(err, domain.ErrInvalidAmount):
			return NewValidationError(c, "Amount must be positive", nil)
		default:
			log.Error().Err(err).Str("session_id", sessionID.String()).Msg("Failed to add ledger entry")
			return NewInternalError(c, "Failed to add ledger entry")
		}
	}

	return c.JSON(http.StatusCreated, entry)
}

// CloseSession freezes an open session for EOD settlement
func (h *TrustHandler) CloseSession(c echo.Context) error {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid session ID", nil)
	}

	session, err := h.trustService.CloseSession(c.Request().Context(), sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotOpen) {
			return NewConflictError(c, "Trust session is not open")
		}
		log.Error().Err(err).Str("session_id", sessionID.String()).Msg("Failed to close session")
		return NewInternalError(c, "Failed to close session")
	}

	return c.JSON(http.StatusOK, session)
}

// LedgerResponse represents the JSON response for a session ledger
type LedgerResponse struct {
	Entries []*domain.TrustLedgerEntry `json:"entries"`
	Net     string                     `json:"net"`
}

// Ledger returns a session's entries with the running net
func (h *TrustHandler) Ledger(c echo.Context) error {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid session ID", nil)
	}

	entries, net, err := h.trustService.SessionLedger(c.Request().Context(), sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return NewNotFoundError(c, "Trust session not found")
		}
		log.Error().Err(err).Str("session_id", sessionID.String()).Msg("Failed to get session ledger")
		return NewInternalError(c, "Failed to get session ledger")
	}

	return c.JSON(http.StatusOK, LedgerResponse{Entries: entries, Net: net.String()})
}
