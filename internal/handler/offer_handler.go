package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rello/rello-backend/internal/domain"
	"github.com/rello/rello-backend/internal/service"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// OfferHandler handles offer board and deal HTTP requests
type OfferHandler struct {
	dealService *service.DealService
}

// NewOfferHandler creates a new OfferHandler
func NewOfferHandler(dealService *service.DealService) *OfferHandler {
	return &OfferHandler{dealService: dealService}
}

// OfferRequest represents the JSON request for publishing an offer
type OfferRequest struct {
	CompanyID string `json:"companyId"`
	Direction string `json:"direction"`
	Mode      string `json:"mode"`
	Network   string `json:"network"`
	Token     string `json:"token"`
	Amount    string `json:"amount"`
}

// Create publishes a new offer
func (h *OfferHandler) Create(c echo.Context) error {
	var req OfferRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	companyID, err := uuid.Parse(req.CompanyID)
	if err != nil {
		return NewValidationError(c, "Invalid company ID", nil)
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return NewValidationError(c, "Invalid amount", nil)
	}

	offer, err := h.dealService.CreateOffer(c.Request().Context(), service.CreateOfferInput{
		CompanyID: companyID,
		Direction: domain.OfferDirection(req.Direction),
		Mode:      req.Mode,
		Network:   req.Network,
		Token:     req.Token,
		Amount:    amount,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrCompanyNotFound):
			return NewNotFoundError(c, "Company not found")
		case errors.Is(err, domain.ErrInvalidInput):
			return NewValidationError(c, "Direction must be cash_in or cash_out", nil)
		case errors.Is(err, domain.ErrInvalidAmount):
			return NewValidationError(c, "Amount must be positive", nil)
		default:
			log.Error().Err(err).Msg("Failed to create offer")
			return NewInternalError(c, "Failed to create offer")
		}
	}

	return c.JSON(http.StatusCreated, offer)
}

// AcceptRequest represents the JSON request for accepting an offer
type AcceptRequest struct {
	CompanyID string `json:"companyId"`
}

// Accept matches an active offer into a deal
func (h *OfferHandler) Accept(c echo.Context) error {
	offerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid offer ID", nil)
	}

	var req AcceptRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	acceptorID, err := uuid.Parse(req.CompanyID)
	if err != nil {
		return NewValidationError(c, "Invalid company ID", nil)
	}

	deal, err := h.dealService.AcceptOffer(c.Request().Context(), offerID, acceptorID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrOfferNotFound):
			return NewNotFoundError(c, "Offer not found or no longer active")
		case errors.Is(err, domain.ErrOwnOffer):
			return NewConflictError(c, "Cannot accept your own offer")
		case errors.Is(err, domain.ErrNotAuthorized):
			return NewForbiddenError(c, err.Error())
		case errors.Is(err, domain.ErrPreconditionFailed):
			return NewConflictError(c, "Offer was accepted by another company")
		default:
			log.Error().Err(err).Str("offer_id", offerID.String()).Msg("Failed to accept offer")
			return NewInternalError(c, "Failed to accept offer")
		}
	}

	return c.JSON(http.StatusCreated, deal)
}

// Feed returns active offers published by companies other than the viewer
func (h *OfferHandler) Feed(c echo.Context) error {
	viewerID := uuid.Nil
	if raw := c.QueryParam("companyId"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			return NewValidationError(c, "Invalid company ID", nil)
		}
		viewerID = parsed
	}

	offers, err := h.dealService.Feed(c.Request().Context(), viewerID, listLimit(c))
	if err != nil {
		log.Error().Err(err).Msg("Failed to list offer feed")
		return NewInternalError(c, "Failed to list offer feed")
	}

	return c.JSON(http.StatusOK, offers)
}

// Deals returns a company's deals, newest first
func (h *OfferHandler) Deals(c echo.Context) error {
	companyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid company ID", nil)
	}

	deals, err := h.dealService.DealsFor(c.Request().Context(), companyID, listLimit(c))
	if err != nil {
		log.Error().Err(err).Str("company_id", companyID.String()).Msg("Failed to list deals")
		return NewInternalError(c, "Failed to list deals")
	}

	return c.JSON(http.StatusOK, deals)
}

// listLimit reads the ?limit query parameter, clamped to [1, 200].
func listLimit(c echo.Context) int32 {
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	if limit < 1 {
		limit = 1
	}
	if limit > 200 {
		limit = 200
	}
	return int32(limit)
}
