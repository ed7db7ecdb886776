package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rello/rello-backend/internal/domain"
	"github.com/rello/rello-backend/internal/event"
	"github.com/rs/zerolog"
)

// ConfirmationTracker advances inbound transfers through confirmation
// counts. Each tick adds one confirmation per transfer still below the
// required threshold (one new block observed); reaching the threshold moves
// the record to confirmed exactly once and, in pass-through mode, enqueues
// an equivalent payout back to the sender.
type ConfirmationTracker struct {
	incomingRepo domain.IncomingTransferRepository
	payoutRepo   domain.OutgoingTransferRepository
	walletRepo   domain.WalletRepository
	emitter      event.Emitter
	logger       zerolog.Logger

	interval    time.Duration
	required    int32
	batchSize   int32
	passThrough bool

	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	running bool
}

// ConfirmationTrackerConfig holds configuration for the tracker
type ConfirmationTrackerConfig struct {
	Interval              time.Duration // How often one new block is observed
	RequiredConfirmations int32         // Confirmations needed before confirming
	BatchSize             int32         // Max transfers advanced per tick
	PassThrough           bool          // Enqueue an equivalent payout on confirmation
}

// DefaultConfirmationTrackerConfig returns sensible defaults
func DefaultConfirmationTrackerConfig() ConfirmationTrackerConfig {
	return ConfirmationTrackerConfig{
		Interval:              7 * time.Second,
		RequiredConfirmations: 3,
		BatchSize:             50,
		PassThrough:           true,
	}
}

// NewConfirmationTracker creates a new confirmation tracker
func NewConfirmationTracker(
	incomingRepo domain.IncomingTransferRepository,
	payoutRepo domain.OutgoingTransferRepository,
	walletRepo domain.WalletRepository,
	emitter event.Emitter,
	logger zerolog.Logger,
	config ConfirmationTrackerConfig,
) *ConfirmationTracker {
	if config.Interval <= 0 {
		config.Interval = 7 * time.Second
	}
	if config.RequiredConfirmations <= 0 {
		config.RequiredConfirmations = 3
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 50
	}

	return &ConfirmationTracker{
		incomingRepo: incomingRepo,
		payoutRepo:   payoutRepo,
		walletRepo:   walletRepo,
		emitter:      emitter,
		logger:       logger.With().Str("component", "confirmation_tracker").Logger(),
		interval:     config.Interval,
		required:     config.RequiredConfirmations,
		batchSize:    config.BatchSize,
		passThrough:  config.PassThrough,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// Start begins tracking confirmations in the background
func (t *ConfirmationTracker) Start(ctx context.Context) {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return
	}
	t.running = true
	t.mu.Unlock()

	t.logger.Info().
		Dur("interval", t.interval).
		Int32("required_confirmations", t.required).
		Bool("pass_through", t.passThrough).
		Msg("Starting confirmation tracker")

	go t.run(ctx)
}

// Stop gracefully stops the tracker
func (t *ConfirmationTracker) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	t.logger.Info().Msg("Stopping confirmation tracker")
	close(t.stopCh)
	<-t.doneCh
	t.logger.Info().Msg("Confirmation tracker stopped")
}

// IsRunning returns whether the tracker is currently running
func (t *ConfirmationTracker) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *ConfirmationTracker) run(ctx context.Context) {
	defer close(t.doneCh)

	t.Tick(ctx)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.mu.Lock()
			t.running = false
			t.mu.Unlock()
			return
		case <-t.stopCh:
			t.mu.Lock()
			t.running = false
			t.mu.Unlock()
			return
		case <-ticker.C:
			t.Tick(ctx)
		}
	}
}

// Tick advances every pending transfer by one confirmation. One record's
// failure is logged and the tick continues with the rest; the failed record
// is retried on the next tick.
func (t *ConfirmationTracker) Tick(ctx context.Context) {
	pending, err := t.incomingRepo.ListSeenBelow(ctx, t.required, t.batchSize)
	if err != nil {
		t.logger.Error().Err(err).Msg("Failed to list pending incoming transfers")
		return
	}

	for _, transfer := range pending {
		if err := t.advance(ctx, transfer); err != nil {
			t.logger.Error().
				Err(err).
				Str("incoming_id", transfer.ID.String()).
				Str("tx_hash", transfer.TxHash).
				Msg("Failed to advance incoming transfer")
		}
	}
}

func (t *ConfirmationTracker) advance(ctx context.Context, transfer *domain.IncomingTransfer) error {
	updated, err := t.incomingRepo.IncrementConfirmations(ctx, transfer.ID, t.required)
	if errors.Is(err, domain.ErrPreconditionFailed) {
		// Another worker bumped it, or it is already confirmed
		return nil
	}
	if err != nil {
		return err
	}

	t.logger.Debug().
		Str("tx_hash", updated.TxHash).
		Int32("confirmations", updated.Confirmations).
		Int32("required", t.required).
		Msg("Confirmation added")

	if updated.Confirmations < t.required {
		return nil
	}

	// The transition is guarded by status, not by the confirmation count,
	// so it fires exactly once even if two workers see the threshold.
	confirmed, err := t.incomingRepo.MarkConfirmed(ctx, updated.ID)
	if errors.Is(err, domain.ErrPreconditionFailed) {
		return nil
	}
	if err != nil {
		return err
	}

	t.logger.Info().
		Str("tx_hash", confirmed.TxHash).
		Str("amount", confirmed.Amount.String()).
		Msg("Incoming transfer confirmed")
	t.emitter.Emit(event.PayInConfirmed, confirmed, "in:"+confirmed.TxHash)

	if t.passThrough {
		return t.enqueuePassThrough(ctx, confirmed)
	}
	return nil
}

// enqueuePassThrough queues a payout returning the confirmed amount to the
// sender. The idempotency key derived from the inbound hash makes the
// enqueue safe to repeat: a duplicate-key rejection means an earlier run
// already queued it.
func (t *ConfirmationTracker) enqueuePassThrough(ctx context.Context, confirmed *domain.IncomingTransfer) error {
	wallet, err := t.walletRepo.ActiveHot(ctx, confirmed.Network, confirmed.Token)
	if err != nil {
		return err
	}

	idem := "pt:" + confirmed.TxHash
	payout, err := t.payoutRepo.Insert(ctx, &domain.OutgoingTransfer{
		Network:        confirmed.Network,
		Token:          confirmed.Token,
		Status:         domain.PayoutStatusQueued,
		FromWalletID:   wallet.ID,
		ToAddress:      confirmed.FromAddress,
		Amount:         confirmed.Amount,
		IdempotencyKey: &idem,
		DealID:         confirmed.DealID,
	})
	if errors.Is(err, domain.ErrDuplicateKey) {
		t.logger.Debug().Str("idempotency_key", idem).Msg("Pass-through payout already enqueued")
		return nil
	}
	if err != nil {
		return err
	}

	t.logger.Info().
		Str("payout_id", payout.ID.String()).
		Str("idempotency_key", idem).
		Msg("Pass-through payout queued")
	t.emitter.Emit(event.PayoutQueued, payout, idem)
	return nil
}
