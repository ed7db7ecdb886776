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

// DepositHandler handles deposit ledger HTTP requests
type DepositHandler struct {
	depositService *service.DepositService
}

// NewDepositHandler creates a new DepositHandler
func NewDepositHandler(depositService *service.DepositService) *DepositHandler {
	return &DepositHandler{depositService: depositService}
}

// DepositEntryRequest represents the JSON request for a new ledger entry
type DepositEntryRequest struct {
	Type    string  `json:"type"`
	Network string  `json:"network"`
	Token   string  `json:"token"`
	Amount  string  `json:"amount"`
	Ref     *string `json:"ref,omitempty"`
}

// AddEntry appends a ledger entry for a company
func (h *DepositHandler) AddEntry(c echo.Context) error {
	companyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid company ID", nil)
	}

	var req DepositEntryRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return NewValidationError(c, "Invalid amount", nil)
	}

	entry, err := h.depositService.AddEntry(c.Request().Context(), service.DepositEntryInput{
		CompanyID: companyID,
		Type:      domain.DepositEntryType(req.Type),
		Network:   req.Network,
		Token:     req.Token,
		Amount:    amount,
		Ref:       req.Ref,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrCompanyNotFound):
			return NewNotFoundError(c, "Company not found")
		case errors.Is(err, domain.ErrInvalidInput):
			return NewValidationError(c, "Unknown entry type", nil)
		case errors.Is(err, domain.ErrInvalidAmount):
			return NewValidationError(c, "Amount must be positive", nil)
		default:
			log.Error().Err(err).Str("company_id", companyID.String()).Msg("Failed to add deposit entry")
			return NewInternalError(c, "Failed to add deposit entry")
		}
	}

	return c.JSON(http.StatusCreated, entry)
}

// BalanceResponse represents the JSON response for a deposit balance
type BalanceResponse struct {
	CompanyID string `json:"companyId"`
	Balance   string `json:"balance"`
}

// Balance returns a company's current deposit balance
func (h *DepositHandler) Balance(c echo.Context) error {
	companyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid company ID", nil)
	}

	balance, err := h.depositService.Balance(c.Request().Context(), companyID)
	if err != nil {
		if errors.Is(err, domain.ErrCompanyNotFound) {
			return NewNotFoundError(c, "Company not found")
		}
		log.Error().Err(err).Str("company_id", companyID.String()).Msg("Failed to get balance")
		return NewInternalError(c, "Failed to get balance")
	}

	return c.JSON(http.StatusOK, BalanceResponse{
		CompanyID: companyID.String(),
		Balance:   balance.String(),
	})
}

// History returns a company's ledger entries, newest first
func (h *DepositHandler) History(c echo.Context) error {
	companyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid company ID", nil)
	}

	entries, err := h.depositService.History(c.Request().Context(), companyID, listLimit(c))
	if err != nil {
		log.Error().Err(err).Str("company_id", companyID.String()).Msg("Failed to list deposit entries")
		return NewInternalError(c, "Failed to list deposit entries")
	}

	return c.JSON(http.StatusOK, entries)
}
