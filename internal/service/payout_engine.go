package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rello/rello-backend/internal/domain"
	"github.com/rello/rello-backend/internal/event"
	"github.com/rs/zerolog"
)

// PayoutEngine drives outgoing transfers through
// queued/approved -> signed -> broadcast -> confirmed. Each tick it claims a
// batch of records in the configured source status; each later step runs as
// a scheduled continuation keyed by transfer id. Every advancing update is
// conditioned on the expected prior status, so multiple engine instances
// can poll the same table without double-advancing a record.
type PayoutEngine struct {
	payoutRepo domain.OutgoingTransferRepository
	emitter    event.Emitter
	logger     zerolog.Logger

	interval  time.Duration
	stepDelay time.Duration
	batchSize int32
	source    domain.PayoutStatus

	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	running bool

	timersMu sync.Mutex
	timers   map[uuid.UUID]*time.Timer
	stopped  bool
}

// PayoutEngineConfig holds configuration for the payout engine
type PayoutEngineConfig struct {
	Interval  time.Duration       // How often to claim new work
	StepDelay time.Duration       // Simulated latency between signing steps
	BatchSize int32               // Max records claimed per tick
	Source    domain.PayoutStatus // Status claimed from: queued, or approved when human approval gates upstream
}

// DefaultPayoutEngineConfig returns sensible defaults
func DefaultPayoutEngineConfig() PayoutEngineConfig {
	return PayoutEngineConfig{
		Interval:  3 * time.Second,
		StepDelay: 2 * time.Second,
		BatchSize: 3,
		Source:    domain.PayoutStatusQueued,
	}
}

// NewPayoutEngine creates a new payout engine
func NewPayoutEngine(
	payoutRepo domain.OutgoingTransferRepository,
	emitter event.Emitter,
	logger zerolog.Logger,
	config PayoutEngineConfig,
) *PayoutEngine {
	if config.Interval <= 0 {
		config.Interval = 3 * time.Second
	}
	if config.StepDelay <= 0 {
		config.StepDelay = 2 * time.Second
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 3
	}
	if config.Source != domain.PayoutStatusApproved {
		config.Source = domain.PayoutStatusQueued
	}

	return &PayoutEngine{
		payoutRepo: payoutRepo,
		emitter:    emitter,
		logger:     logger.With().Str("component", "payout_engine").Logger(),
		interval:   config.Interval,
		stepDelay:  config.StepDelay,
		batchSize:  config.BatchSize,
		source:     config.Source,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
		timers:     make(map[uuid.UUID]*time.Timer),
	}
}

// Start begins claiming and advancing payouts in the background
func (e *PayoutEngine) Start(ctx context.Context) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.mu.Unlock()

	e.logger.Info().
		Dur("interval", e.interval).
		Dur("step_delay", e.stepDelay).
		Int32("batch_size", e.batchSize).
		Str("source", string(e.source)).
		Msg("Starting payout engine")

	go e.run(ctx)
}

// Stop gracefully stops the engine and cancels pending step timers
func (e *PayoutEngine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	e.logger.Info().Msg("Stopping payout engine")
	close(e.stopCh)
	<-e.doneCh

	e.timersMu.Lock()
	e.stopped = true
	for id, timer := range e.timers {
		timer.Stop()
		delete(e.timers, id)
	}
	e.timersMu.Unlock()

	e.logger.Info().Msg("Payout engine stopped")
}

// IsRunning returns whether the engine is currently running
func (e *PayoutEngine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

func (e *PayoutEngine) run(ctx context.Context) {
	defer close(e.doneCh)

	e.tick(ctx)

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
			e.tick(ctx)
		}
	}
}

// tick claims a batch of new work and re-schedules in-flight records whose
// step continuation was lost (engine restart, earlier step failure). One
// record's failure never aborts the tick.
func (e *PayoutEngine) tick(ctx context.Context) {
	e.claimBatch(ctx)
	e.resumeInFlight(ctx)
}

func (e *PayoutEngine) claimBatch(ctx context.Context) {
	candidates, err := e.payoutRepo.ListByStatus(ctx, e.source, e.batchSize)
	if err != nil {
		e.logger.Error().Err(err).Msg("Failed to list claimable payouts")
		return
	}

	for _, candidate := range candidates {
		claimed, err := e.payoutRepo.AdvanceStatus(ctx, candidate.ID, e.source, domain.PayoutStatusSigned)
		if errors.Is(err, domain.ErrPreconditionFailed) {
			// Another worker got it first
			e.logger.Debug().Str("payout_id", candidate.ID.String()).Msg("Payout claimed elsewhere")
			continue
		}
		if err != nil {
			e.logger.Error().Err(err).Str("payout_id", candidate.ID.String()).Msg("Failed to claim payout")
			continue
		}

		e.logger.Info().
			Str("payout_id", claimed.ID.String()).
			Str("amount", claimed.Amount.String()).
			Msg("Payout signed")
		e.emit(event.PayoutSigned, claimed)
		e.scheduleStep(claimed.ID, e.broadcastStep)
	}
}

// resumeInFlight schedules a step for signed/broadcast records with no
// pending timer. Forward progress is guaranteed by this sweep even when a
// previous step failed or a prior engine instance died.
func (e *PayoutEngine) resumeInFlight(ctx context.Context) {
	for _, status := range []domain.PayoutStatus{domain.PayoutStatusSigned, domain.PayoutStatusBroadcast} {
		records, err := e.payoutRepo.ListByStatus(ctx, status, e.batchSize)
		if err != nil {
			e.logger.Error().Err(err).Str("status", string(status)).Msg("Failed to list in-flight payouts")
			continue
		}
		for _, record := range records {
			if status == domain.PayoutStatusSigned {
				e.scheduleStep(record.ID, e.broadcastStep)
			} else {
				e.scheduleStep(record.ID, e.confirmStep)
			}
		}
	}
}

// scheduleStep arms a one-shot continuation for the transfer unless one is
// already pending.
func (e *PayoutEngine) scheduleStep(id uuid.UUID, step func(uuid.UUID)) {
	e.timersMu.Lock()
	defer e.timersMu.Unlock()

	if e.stopped {
		return
	}
	if _, pending := e.timers[id]; pending {
		return
	}
	e.timers[id] = time.AfterFunc(e.stepDelay, func() {
		e.timersMu.Lock()
		delete(e.timers, id)
		e.timersMu.Unlock()
		step(id)
	})
}

// broadcastStep moves signed -> broadcast and assigns the transaction hash.
func (e *PayoutEngine) broadcastStep(id uuid.UUID) {
	updated, err := e.payoutRepo.MarkBroadcast(context.Background(), id, newTxHash())
	if errors.Is(err, domain.ErrPreconditionFailed) {
		e.logger.Debug().Str("payout_id", id.String()).Msg("Payout already broadcast")
		return
	}
	if err != nil {
		// The next tick's sweep retries this record
		e.logger.Error().Err(err).Str("payout_id", id.String()).Msg("Failed to broadcast payout")
		return
	}

	e.logger.Info().
		Str("payout_id", id.String()).
		Str("tx_hash", *updated.TxHash).
		Msg("Payout broadcast")
	e.emit(event.PayoutBroadcast, updated)
	e.scheduleStep(id, e.confirmStep)
}

// confirmStep moves broadcast -> confirmed.
func (e *PayoutEngine) confirmStep(id uuid.UUID) {
	updated, err := e.payoutRepo.AdvanceStatus(context.Background(), id, domain.PayoutStatusBroadcast, domain.PayoutStatusConfirmed)
	if errors.Is(err, domain.ErrPreconditionFailed) {
		e.logger.Debug().Str("payout_id", id.String()).Msg("Payout already confirmed")
		return
	}
	if err != nil {
		e.logger.Error().Err(err).Str("payout_id", id.String()).Msg("Failed to confirm payout")
		return
	}

	e.logger.Info().Str("payout_id", id.String()).Msg("Payout confirmed")
	e.emit(event.PayoutConfirmed, updated)
}

func (e *PayoutEngine) emit(eventType event.Type, transfer *domain.OutgoingTransfer) {
	e.emitter.Emit(eventType, transfer, string(eventType)+":"+transfer.ID.String())
}

// newTxHash fabricates a transaction hash for the simulated broadcast.
func newTxHash() string {
	return "0x" + strings.ReplaceAll(uuid.New().String(), "-", "")
}
