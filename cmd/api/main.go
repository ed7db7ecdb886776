package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rello/rello-backend/internal/config"
	"github.com/rello/rello-backend/internal/domain"
	"github.com/rello/rello-backend/internal/event"
	"github.com/rello/rello-backend/internal/handler"
	"github.com/rello/rello-backend/internal/metrics"
	"github.com/rello/rello-backend/internal/middleware"
	"github.com/rello/rello-backend/internal/repository/postgres"
	"github.com/rello/rello-backend/internal/service"
	"github.com/rello/rello-backend/internal/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Initialize zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Connect to database
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	// Verify database connection
	if err := pool.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Connected to database")

	// Initialize repositories
	companyRepo := postgres.NewCompanyRepository(pool)
	referenceRepo := postgres.NewReferenceRepository(pool)
	depositRepo := postgres.NewDepositLedgerRepository(pool)
	offerRepo := postgres.NewOfferRepository(pool)
	dealRepo := postgres.NewDealRepository(pool)
	pairRepo := postgres.NewTrustPairRepository(pool)
	sessionRepo := postgres.NewTrustSessionRepository(pool)
	ledgerRepo := postgres.NewTrustLedgerRepository(pool)
	settlementRepo := postgres.NewEodSettlementRepository(pool)
	incomingRepo := postgres.NewIncomingTransferRepository(pool)
	outgoingRepo := postgres.NewOutgoingTransferRepository(pool)
	walletRepo := postgres.NewWalletRepository(pool)

	// Event fanout: operator websocket feed plus signed webhooks
	hub := websocket.NewHub()
	emitter := event.Multi{
		websocket.NewFeed(hub),
		event.NewWebhookEmitter(cfg.WebhookURL, cfg.WebhookSecret, cfg.WebhookTimeout, log.Logger),
	}

	// Initialize services
	limitsService := service.NewLimitsService(depositRepo, dealRepo, referenceRepo, service.LimitsConfig{
		CapPerDeal:      cfg.CapPerDeal,
		CapOpenExposure: cfg.CapOpenExposure,
	})
	dealService := service.NewDealService(offerRepo, dealRepo, companyRepo, limitsService, log.Logger)
	depositService := service.NewDepositService(depositRepo, companyRepo, log.Logger)
	trustService := service.NewTrustService(pairRepo, sessionRepo, ledgerRepo, log.Logger)
	payoutService := service.NewPayoutService(outgoingRepo, emitter, service.PayoutServiceConfig{
		ApprovalCode: cfg.OperatorCode,
		CapPerTx:     cfg.CapPerTx,
	})

	// Background engines
	claimSource := domain.PayoutStatusQueued
	if cfg.RequireApproval {
		claimSource = domain.PayoutStatusApproved
	}
	payoutEngine := service.NewPayoutEngine(outgoingRepo, emitter, log.Logger, service.PayoutEngineConfig{
		Interval:  cfg.PayoutInterval,
		StepDelay: cfg.PayoutStepDelay,
		BatchSize: cfg.PayoutBatchSize,
		Source:    claimSource,
	})
	tracker := service.NewConfirmationTracker(incomingRepo, outgoingRepo, walletRepo, emitter, log.Logger, service.ConfirmationTrackerConfig{
		Interval:              cfg.ConfirmInterval,
		RequiredConfirmations: cfg.RequiredConfirmations,
		PassThrough:           cfg.PassThrough,
	})
	eodEngine := service.NewEodEngine(sessionRepo, ledgerRepo, pairRepo, settlementRepo, outgoingRepo, walletRepo, emitter, log.Logger, service.EodEngineConfig{
		Interval: cfg.EodInterval,
		Network:  cfg.Network,
		Token:    cfg.Token,
	})
	opsAlerts := service.NewOpsAlertService(outgoingRepo, emitter, log.Logger, service.OpsAlertConfig{
		Interval:        cfg.AlertInterval,
		QueuedMaxAge:    cfg.QueuedMaxAge,
		BroadcastMaxAge: cfg.BroadcastMaxAge,
	})

	engineCtx, engineCancel := context.WithCancel(context.Background())
	defer engineCancel()

	payoutEngine.Start(engineCtx)
	tracker.Start(engineCtx)
	eodEngine.Start(engineCtx)
	opsAlerts.Start(engineCtx)

	var watcher *service.ChainWatcher
	if cfg.WatcherEnabled {
		watcher = service.NewChainWatcher(incomingRepo, emitter, log.Logger, service.ChainWatcherConfig{
			Interval: cfg.WatcherInterval,
			Network:  cfg.Network,
			Token:    cfg.Token,
		})
		watcher.Start(engineCtx)
	}

	// Metrics
	prometheus.MustRegister(metrics.NewCollector(outgoingRepo, incomingRepo))

	// Initialize handlers
	operatorAuth := middleware.NewOperatorAuth(cfg.OperatorCode)
	companyHandler := handler.NewCompanyHandler(companyRepo, referenceRepo, limitsService)
	depositHandler := handler.NewDepositHandler(depositService)
	offerHandler := handler.NewOfferHandler(dealService)
	trustHandler := handler.NewTrustHandler(trustService)
	payoutHandler := handler.NewPayoutHandler(payoutService)
	incomingHandler := handler.NewIncomingHandler(incomingRepo)
	wsHandler := handler.NewWebSocketHandler(hub, cfg.CORSOrigins)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Request ID middleware
	e.Use(echomiddleware.RequestID())

	// CORS middleware
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, middleware.OperatorCodeHeader},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Security headers middleware
	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))

	// Request logging middleware with zerolog
	e.Use(zerologMiddleware())

	// Recovery middleware
	e.Use(echomiddleware.Recover())

	// Rate limiting
	rateLimiter := middleware.NewRateLimiterWithConfig(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
	defer rateLimiter.Stop()
	e.Use(middleware.RateLimitMiddleware(rateLimiter))

	// Health check endpoint
	e.GET("/health", func(c echo.Context) error {
		if err := pool.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Prometheus metrics endpoint
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Register API routes
	handler.RegisterRoutes(e, operatorAuth, companyHandler, depositHandler, offerHandler, trustHandler, payoutHandler, incomingHandler, wsHandler)

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop background engines after the HTTP surface is down
	if watcher != nil {
		watcher.Stop()
	}
	opsAlerts.Stop()
	eodEngine.Stop()
	tracker.Stop()
	payoutEngine.Stop()

	log.Info().Msg("Server exited")
}

// zerologMiddleware returns a middleware that logs requests using zerolog
func zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			log.Info().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Msg("request")

			return nil
		}
	}
}
