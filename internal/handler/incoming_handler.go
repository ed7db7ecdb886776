package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rello/rello-backend/internal/domain"
	"github.com/rs/zerolog/log"
)

// IncomingHandler handles inbound transfer HTTP requests
type IncomingHandler struct {
	incomingRepo domain.IncomingTransferRepository
}

// NewIncomingHandler creates a new IncomingHandler
func NewIncomingHandler(incomingRepo domain.IncomingTransferRepository) *IncomingHandler {
	return &IncomingHandler{incomingRepo: incomingRepo}
}

// List returns the newest inbound transfers
func (h *IncomingHandler) List(c echo.Context) error {
	transfers, err := h.incomingRepo.ListRecent(c.Request().Context(), listLimit(c))
	if err != nil {
		log.Error().Err(err).Msg("Failed to list inbound transfers")
		return NewInternalError(c, "Failed to list inbound transfers")
	}
	return c.JSON(http.StatusOK, transfers)
}

// Stats returns inbound transfer counts
func (h *IncomingHandler) Stats(c echo.Context) error {
	counts, err := h.incomingRepo.Counts(c.Request().Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to count inbound transfers")
		return NewInternalError(c, "Failed to count inbound transfers")
	}
	return c.JSON(http.StatusOK, counts)
}
