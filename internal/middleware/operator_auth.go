package middleware

import (
	"crypto/subtle"

	"github.com/labstack/echo/v4"
)

// OperatorCodeHeader carries the shared operator secret on privileged
// requests.
const OperatorCodeHeader = "X-Operator-Code"

// OperatorAuth guards the treasury endpoints with a shared operator code.
// An empty configured code disables the check, for local development.
type OperatorAuth struct {
	code string
}

// NewOperatorAuth creates a new OperatorAuth
func NewOperatorAuth(code string) *OperatorAuth {
	return &OperatorAuth{code: code}
}

// Require returns a middleware that rejects requests without the operator
// code.
func (a *OperatorAuth) Require() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if a.code == "" {
				return next(c)
			}
			provided := c.Request().Header.Get(OperatorCodeHeader)
			if subtle.ConstantTimeCompare([]byte(provided), []byte(a.code)) != 1 {
				return unauthorizedError(c, "Operator code required")
			}
			return next(c)
		}
	}
}
