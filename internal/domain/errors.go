package domain

import "errors"

// Domain errors
var (
	ErrNotFound             = errors.New("resource not found")
	ErrDuplicateKey         = errors.New("duplicate key")
	ErrPreconditionFailed   = errors.New("precondition failed")
	ErrConfigurationMissing = errors.New("configuration missing")
	ErrInvalidInput         = errors.New("invalid input")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrInternalError        = errors.New("internal error")

	ErrCompanyNotFound  = errors.New("company not found")
	ErrTransferNotFound = errors.New("transfer not found")
	ErrOfferNotFound    = errors.New("offer not found")
	ErrDealNotFound     = errors.New("deal not found")
	ErrPairNotFound     = errors.New("trust pair not found")
	ErrSessionNotFound  = errors.New("trust session not found")

	ErrSessionNotOpen   = errors.New("trust session is not open")
	ErrOwnOffer         = errors.New("cannot accept own offer")
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrApprovalCode     = errors.New("approval code mismatch")
	ErrAmountExceedsCap = errors.New("amount exceeds per-transaction cap")
	ErrNotAuthorized    = errors.New("proposal not authorized by limits")
)
