package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rello/rello-backend/internal/domain"
	"github.com/rello/rello-backend/internal/middleware"
	"github.com/rello/rello-backend/internal/service"
	"github.com/rs/zerolog/log"
)

// PayoutHandler handles the treasury payout HTTP requests
type PayoutHandler struct {
	payoutService *service.PayoutService
}

// NewPayoutHandler creates a new PayoutHandler
func NewPayoutHandler(payoutService *service.PayoutService) *PayoutHandler {
	return &PayoutHandler{payoutService: payoutService}
}

// List returns the newest in-flight payouts
func (h *PayoutHandler) List(c echo.Context) error {
	payouts, err := h.payoutService.ListInFlight(c.Request().Context(), listLimit(c))
	if err != nil {
		log.Error().Err(err).Msg("Failed to list payouts")
		return NewInternalError(c, "Failed to list payouts")
	}
	return c.JSON(http.StatusOK, payouts)
}

// Stats returns payout counts by status
func (h *PayoutHandler) Stats(c echo.Context) error {
	counts, err := h.payoutService.Counts(c.Request().Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to count payouts")
		return NewInternalError(c, "Failed to count payouts")
	}
	return c.JSON(http.StatusOK, counts)
}

// Approve moves a queued payout to approved
func (h *PayoutHandler) Approve(c echo.Context) error {
	return h.decide(c, h.payoutService.Approve)
}

// Reject moves a queued payout to failed
func (h *PayoutHandler) Reject(c echo.Context) error {
	return h.decide(c, h.payoutService.Reject)
}

func (h *PayoutHandler) decide(c echo.Context, op func(ctx context.Context, id uuid.UUID, code string) (*domain.OutgoingTransfer, error)) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid payout ID", nil)
	}

	// The approval code doubles as the operator code for these routes
	code := c.Request().Header.Get(middleware.OperatorCodeHeader)

	payout, err := op(c.Request().Context(), id, code)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrApprovalCode):
			return NewUnauthorizedError(c, "Approval code mismatch")
		case errors.Is(err, domain.ErrTransferNotFound):
			return NewNotFoundError(c, "Payout not found")
		case errors.Is(err, domain.ErrPreconditionFailed):
			return NewConflictError(c, "Payout is no longer queued")
		case errors.Is(err, domain.ErrAmountExceedsCap):
			return NewForbiddenError(c, "Amount exceeds per-transaction cap")
		default:
			log.Error().Err(err).Str("payout_id", id.String()).Msg("Failed to decide payout")
			return NewInternalError(c, "Failed to decide payout")
		}
	}

	return c.JSON(http.StatusOK, payout)
}
