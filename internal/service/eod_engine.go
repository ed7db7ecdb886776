package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rello/rello-backend/internal/domain"
	"github.com/rello/rello-backend/internal/event"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// EodEngine settles closed trust sessions. For each closed session with no
// existing settlement it nets the session's ledger entries and, when the
// net is non-zero, creates exactly one settlement and one queued payout.
// The settlement existence check runs before any mutation, and the payout
// idempotency key is derived from the settlement id, so re-running the
// engine over the same session only re-drives whatever a dead run left
// unfinished.
type EodEngine struct {
	sessionRepo    domain.TrustSessionRepository
	ledgerRepo     domain.TrustLedgerRepository
	pairRepo       domain.TrustPairRepository
	settlementRepo domain.EodSettlementRepository
	payoutRepo     domain.OutgoingTransferRepository
	walletRepo     domain.WalletRepository
	emitter        event.Emitter
	logger         zerolog.Logger

	interval  time.Duration
	batchSize int32
	network   string
	token     string

	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	running bool
}

// EodEngineConfig holds configuration for the EOD netting engine
type EodEngineConfig struct {
	Interval  time.Duration // How often closed sessions are swept
	BatchSize int32         // Max sessions settled per tick
	Network   string        // Network settlements pay out on
	Token     string        // Token settlements pay out in
}

// DefaultEodEngineConfig returns sensible defaults
func DefaultEodEngineConfig() EodEngineConfig {
	return EodEngineConfig{
		Interval:  5 * time.Second,
		BatchSize: 20,
		Network:   "TRON",
		Token:     "USDT",
	}
}

// NewEodEngine creates a new EOD netting engine
func NewEodEngine(
	sessionRepo domain.TrustSessionRepository,
	ledgerRepo domain.TrustLedgerRepository,
	pairRepo domain.TrustPairRepository,
	settlementRepo domain.EodSettlementRepository,
	payoutRepo domain.OutgoingTransferRepository,
	walletRepo domain.WalletRepository,
	emitter event.Emitter,
	logger zerolog.Logger,
	config EodEngineConfig,
) *EodEngine {
	if config.Interval <= 0 {
		config.Interval = 5 * time.Second
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 20
	}

	return &EodEngine{
		sessionRepo:    sessionRepo,
		ledgerRepo:     ledgerRepo,
		pairRepo:       pairRepo,
		settlementRepo: settlementRepo,
		payoutRepo:     payoutRepo,
		walletRepo:     walletRepo,
		emitter:        emitter,
		logger:         logger.With().Str("component", "eod_engine").Logger(),
		interval:       config.Interval,
		batchSize:      config.BatchSize,
		network:        config.Network,
		token:          config.Token,
		stopCh:         make(chan struct{}),
		doneCh:         make(chan struct{}),
	}
}

// Start begins settling closed sessions in the background
func (e *EodEngine) Start(ctx context.Context) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.mu.Unlock()

	e.logger.Info().
		Dur("interval", e.interval).
		Int32("batch_size", e.batchSize).
		Msg("Starting EOD engine")

	go e.run(ctx)
}

// Stop gracefully stops the engine
func (e *EodEngine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	e.logger.Info().Msg("Stopping EOD engine")
	close(e.stopCh)
	<-e.doneCh
	e.logger.Info().Msg("EOD engine stopped")
}

// IsRunning returns whether the engine is currently running
func (e *EodEngine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

func (e *EodEngine) run(ctx context.Context) {
	defer close(e.doneCh)

	e.Tick(ctx)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.mu.Lock()
			e.running = false
			e.mu.Unlock()
			return
		case <-e.stopCh:
			e.mu.Lock()
			e.running = false
			e.mu.Unlock()
			return
		case <-ticker.C:
			e.Tick(ctx)
		}
	}
}

// Tick settles every closed session it can reach. One session's failure is
// logged and the tick continues; the session is retried on the next tick.
func (e *EodEngine) Tick(ctx context.Context) {
	sessions, err := e.sessionRepo.ListByState(ctx, domain.TrustSessionClosed, e.batchSize)
	if err != nil {
		e.logger.Error().Err(err).Msg("Failed to list closed sessions")
		return
	}

	for _, session := range sessions {
		if err := e.settleSession(ctx, session); err != nil {
			e.logger.Error().
				Err(err).
				Str("session_id", session.ID.String()).
				Msg("Failed to settle session")
		}
	}
}

// settleSession nets one closed session. The settlement existence check is
// the first action taken, before any mutation.
func (e *EodEngine) settleSession(ctx context.Context, session *domain.TrustSession) error {
	if existing, err := e.settlementRepo.GetBySession(ctx, session.ID); err == nil {
		// Settled on an earlier run. Re-drive the payout and the session
		// state in case that run died between its writes; the idempotency
		// key makes the payout safe to repeat.
		if err := e.enqueuePayout(ctx, existing); err != nil {
			return err
		}
		_, err := e.sessionRepo.MarkSettled(ctx, session.ID, existing.Amount, existing.Value)
		if errors.Is(err, domain.ErrPreconditionFailed) {
			return nil
		}
		return err
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	entries, err := e.ledgerRepo.ListBySession(ctx, session.ID)
	if err != nil {
		return err
	}

	net := netOf(entries)

	if net.IsZero() {
		// A true net-zero day needs no transfer
		_, err := e.sessionRepo.MarkSettled(ctx, session.ID, decimal.Zero, decimal.Zero)
		if errors.Is(err, domain.ErrPreconditionFailed) {
			return nil
		}
		if err != nil {
			return err
		}
		e.logger.Info().Str("session_id", session.ID.String()).Msg("Zero net, session settled")
		return nil
	}

	pair, err := e.pairRepo.GetByID(ctx, session.PairID)
	if err != nil {
		return err
	}

	// Positive net: A owes B. Negative: B owes A, for the absolute value.
	payer, payee := pair.CompanyAID, pair.CompanyBID
	if net.IsNegative() {
		payer, payee = pair.CompanyBID, pair.CompanyAID
	}
	amount := net.Abs()

	settlement, err := e.settlementRepo.Insert(ctx, &domain.EodSettlement{
		SessionID:      session.ID,
		PayerCompanyID: payer,
		PayeeCompanyID: payee,
		Network:        e.network,
		Token:          e.token,
		Amount:         amount,
		Value:          amount,
		Status:         domain.SettlementStatusQueued,
	})
	if errors.Is(err, domain.ErrDuplicateKey) {
		// Another engine instance settled this session between our check
		// and the insert
		return nil
	}
	if err != nil {
		return err
	}

	if err := e.enqueuePayout(ctx, settlement); err != nil {
		return err
	}

	if _, err := e.sessionRepo.MarkSettled(ctx, session.ID, amount, amount); err != nil && !errors.Is(err, domain.ErrPreconditionFailed) {
		return err
	}

	e.logger.Info().
		Str("session_id", session.ID.String()).
		Str("settlement_id", settlement.ID.String()).
		Str("amount", amount.String()).
		Msg("Settlement queued")
	e.emitter.Emit(event.EodSettled, settlement, "eod:"+settlement.ID.String())
	return nil
}

// enqueuePayout creates the single payout backing a settlement. The
// idempotency key derived from the settlement id guards against a second
// payout if the tick re-runs before the settlement check would stop it.
func (e *EodEngine) enqueuePayout(ctx context.Context, settlement *domain.EodSettlement) error {
	wallet, err := e.walletRepo.ActiveHot(ctx, settlement.Network, settlement.Token)
	if err != nil {
		return err
	}

	idem := "eod:" + settlement.ID.String()
	settlementID := settlement.ID
	payout, err := e.payoutRepo.Insert(ctx, &domain.OutgoingTransfer{
		Network:        settlement.Network,
		Token:          settlement.Token,
		Status:         domain.PayoutStatusQueued,
		FromWalletID:   wallet.ID,
		ToAddress:      payeeAddress(settlement.PayeeCompanyID),
		Amount:         settlement.Amount,
		IdempotencyKey: &idem,
		SettlementID:   &settlementID,
	})
	if errors.Is(err, domain.ErrDuplicateKey) {
		return nil
	}
	if err != nil {
		return err
	}

	e.emitter.Emit(event.PayoutQueued, payout, idem)
	return nil
}

func netOf(entries []*domain.TrustLedgerEntry) decimal.Decimal {
	net := decimal.Zero
	for _, entry := range entries {
		switch entry.Side {
		case domain.SideAToB:
			net = net.Add(entry.Amount)
		case domain.SideBToA:
			net = net.Sub(entry.Amount)
		}
	}
	return net
}

// payeeAddress resolves the destination for a settlement payout. With no
// real chain integration this is a stand-in derived from the payee id.
func payeeAddress(payeeCompanyID uuid.UUID) string {
	return "PAYEE_" + payeeCompanyID.String()[:8]
}
