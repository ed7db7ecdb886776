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

// CompanyHandler handles company and risk-limit HTTP requests
type CompanyHandler struct {
	companyRepo   domain.CompanyRepository
	referenceRepo domain.ReferenceRepository
	limitsService *service.LimitsService
}

// NewCompanyHandler creates a new CompanyHandler
func NewCompanyHandler(companyRepo domain.CompanyRepository, referenceRepo domain.ReferenceRepository, limitsService *service.LimitsService) *CompanyHandler {
	return &CompanyHandler{
		companyRepo:   companyRepo,
		referenceRepo: referenceRepo,
		limitsService: limitsService,
	}
}

// CompanyRequest represents the JSON request for creating a company
type CompanyRequest struct {
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Timezone string `json:"timezone"`
}

// Create creates a new company
func (h *CompanyHandler) Create(c echo.Context) error {
	var req CompanyRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	if req.Name == "" {
		return NewValidationError(c, "Name is required", nil)
	}
	if req.Slug == "" {
		return NewValidationError(c, "Slug is required", nil)
	}
	if req.Timezone == "" {
		req.Timezone = "UTC"
	}

	company, err := h.companyRepo.Insert(c.Request().Context(), &domain.Company{
		Name:     req.Name,
		Slug:     req.Slug,
		Status:   "active",
		Timezone: req.Timezone,
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateKey) {
			return NewConflictError(c, "A company with this slug already exists")
		}
		log.Error().Err(err).Msg("Failed to create company")
		return NewInternalError(c, "Failed to create company")
	}

	return c.JSON(http.StatusCreated, company)
}

// Get retrieves a company by id
func (h *CompanyHandler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid company ID", nil)
	}

	company, err := h.companyRepo.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrCompanyNotFound) {
			return NewNotFoundError(c, "Company not found")
		}
		log.Error().Err(err).Str("company_id", id.String()).Msg("Failed to get company")
		return NewInternalError(c, "Failed to get company")
	}

	return c.JSON(http.StatusOK, company)
}

// TierRequest represents the JSON request for setting a company's tier
type TierRequest struct {
	Tier string `json:"tier"`
}

// SetTier updates a company's risk tier
func (h *CompanyHandler) SetTier(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid company ID", nil)
	}

	var req TierRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	if _, err := h.companyRepo.GetByID(c.Request().Context(), id); err != nil {
		if errors.Is(err, domain.ErrCompanyNotFound) {
			return NewNotFoundError(c, "Company not found")
		}
		return NewInternalError(c, "Failed to get company")
	}

	tier := domain.ParseTier(req.Tier)
	if err := h.referenceRepo.SetCompanyTier(c.Request().Context(), id, tier); err != nil {
		log.Error().Err(err).Str("company_id", id.String()).Msg("Failed to set tier")
		return NewInternalError(c, "Failed to set tier")
	}

	return c.JSON(http.StatusOK, map[string]string{"tier": string(tier)})
}

// Limits returns the company's current risk limits snapshot
func (h *CompanyHandler) Limits(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid company ID", nil)
	}

	limits, err := h.limitsService.LimitsFor(c.Request().Context(), id)
	if err != nil {
		log.Error().Err(err).Str("company_id", id.String()).Msg("Failed to compute limits")
		return NewInternalError(c, "Failed to compute limits")
	}

	return c.JSON(http.StatusOK, limits)
}

// AuthorizeRequest represents the JSON request for a risk gate check
type AuthorizeRequest struct {
	Amount string `json:"amount"`
}

// Authorize runs the risk gate for a proposed amount without side effects
func (h *CompanyHandler) Authorize(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid company ID", nil)
	}

	var req AuthorizeRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return NewValidationError(c, "Invalid amount", nil)
	}

	auth, err := h.limitsService.Authorize(c.Request().Context(), id, amount)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidAmount) {
			return NewValidationError(c, "Amount must be positive", nil)
		}
		log.Error().Err(err).Str("company_id", id.String()).Msg("Authorization check failed")
		return NewInternalError(c, "Authorization check failed")
	}

	return c.JSON(http.StatusOK, auth)
}
