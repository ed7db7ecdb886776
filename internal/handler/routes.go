package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/rello/rello-backend/internal/middleware"
)

// RegisterRoutes sets up all API routes
func RegisterRoutes(
	e *echo.Echo,
	operatorAuth *middleware.OperatorAuth,
	companyHandler *CompanyHandler,
	depositHandler *DepositHandler,
	offerHandler *OfferHandler,
	trustHandler *TrustHandler,
	payoutHandler *PayoutHandler,
	incomingHandler *IncomingHandler,
	wsHandler *WebSocketHandler,
) {
	// API version 1
	api := e.Group("/api/v1")

	// Company routes
	companies := api.Group("/companies")
	companies.POST("", companyHandler.Create)
	companies.GET("/:id", companyHandler.Get)
	companies.PUT("/:id/tier", companyHandler.SetTier, operatorAuth.Require())
	companies.GET("/:id/limits", companyHandler.Limits)
	companies.POST("/:id/authorize", companyHandler.Authorize)
	companies.GET("/:id/deals", offerHandler.Deals)

	// Deposit ledger routes (operator only)
	companies.POST("/:id/deposits", depositHandler.AddEntry, operatorAuth.Require())
	companies.GET("/:id/deposits", depositHandler.History)
	companies.GET("/:id/deposits/balance", depositHandler.Balance)

	// Offer board routes
	offers := api.Group("/offers")
	offers.POST("", offerHandler.Create)
	offers.GET("/feed", offerHandler.Feed)
	offers.POST("/:id/accept", offerHandler.Accept)

	// Trust routes
	trust := api.Group("/trust")
	trust.POST("/pairs", trustHandler.EnsurePair)
	trust.GET("/pairs/:id/session", trustHandler.TodaySession)
	trust.POST("/sessions/:id/entries", trustHandler.AddEntry)
	trust.POST("/sessions/:id/close", trustHandler.CloseSession)
	trust.GET("/sessions/:id/ledger", trustHandler.Ledger)

	// Treasury routes (operator only)
	payouts := api.Group("/payouts", operatorAuth.Require())
	payouts.GET("", payoutHandler.List)
	payouts.GET("/stats", payoutHandler.Stats)
	payouts.POST("/:id/approve", payoutHandler.Approve)
	payouts.POST("/:id/reject", payoutHandler.Reject)

	incoming := api.Group("/incoming", operatorAuth.Require())
	incoming.GET("", incomingHandler.List)
	incoming.GET("/stats", incomingHandler.Stats)

	// Operator event feed
	e.GET("/ws", wsHandler.HandleWS)
}
