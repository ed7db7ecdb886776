package service

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rello/rello-backend/internal/domain"
	"github.com/rello/rello-backend/internal/event"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ChainWatcher simulates the deposit-address monitor. Each tick it may
// record a new inbound transfer in seen state, the same shape a real chain
// indexer would produce, feeding the confirmation tracker downstream.
type ChainWatcher struct {
	incomingRepo domain.IncomingTransferRepository
	emitter      event.Emitter
	logger       zerolog.Logger

	interval  time.Duration
	network   string
	token     string
	minAmount int64
	maxAmount int64

	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	running bool
}

// ChainWatcherConfig holds configuration for the simulated chain watcher
type ChainWatcherConfig struct {
	Interval  time.Duration // How often a new inbound transfer appears
	Network   string
	Token     string
	MinAmount int64 // Lower bound of the generated amount
	MaxAmount int64 // Upper bound of the generated amount
}

// DefaultChainWatcherConfig returns sensible defaults
func DefaultChainWatcherConfig() ChainWatcherConfig {
	return ChainWatcherConfig{
		Interval:  10 * time.Second,
		Network:   "TRON",
		Token:     "USDT",
		MinAmount: 10,
		MaxAmount: 500,
	}
}

// NewChainWatcher creates a new chain watcher
func NewChainWatcher(
	incomingRepo domain.IncomingTransferRepository,
	emitter event.Emitter,
	logger zerolog.Logger,
	config ChainWatcherConfig,
) *ChainWatcher {
	if config.Interval <= 0 {
		config.Interval = 10 * time.Second
	}
	if config.MinAmount <= 0 {
		config.MinAmount = 10
	}
	if config.MaxAmount <= config.MinAmount {
		config.MaxAmount = config.MinAmount + 490
	}

	return &ChainWatcher{
		incomingRepo: incomingRepo,
		emitter:      emitter,
		logger:       logger.With().Str("component", "chain_watcher").Logger(),
		interval:     config.Interval,
		network:      config.Network,
		token:        config.Token,
		minAmount:    config.MinAmount,
		maxAmount:    config.MaxAmount,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// Start begins generating inbound transfers in the background
func (w *ChainWatcher) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info().
		Dur("interval", w.interval).
		Str("network", w.network).
		Str("token", w.token).
		Msg("Starting chain watcher")

	go w.run(ctx)
}

// Stop gracefully stops the watcher
func (w *ChainWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	w.logger.Info().Msg("Stopping chain watcher")
	close(w.stopCh)
	<-w.doneCh
	w.logger.Info().Msg("Chain watcher stopped")
}

// IsRunning returns whether the watcher is currently running
func (w *ChainWatcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *ChainWatcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			w.running = false
			w.mu.Unlock()
			return
		case <-w.stopCh:
			w.mu.Lock()
			w.running = false
			w.mu.Unlock()
			return
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick records one simulated inbound transfer.
func (w *ChainWatcher) Tick(ctx context.Context) {
	amount := decimal.NewFromInt(w.minAmount + rand.Int63n(w.maxAmount-w.minAmount+1))

	transfer, err := w.incomingRepo.Insert(ctx, &domain.IncomingTransfer{
		Network:     w.network,
		Token:       w.token,
		TxHash:      newTxHash(),
		FromAddress: mockAddress(),
		ToAddress:   mockAddress(),
		Amount:      amount,
		Status:      domain.IncomingStatusSeen,
	})
	if errors.Is(err, domain.ErrDuplicateKey) {
		return
	}
	if err != nil {
		w.logger.Error().Err(err).Msg("Failed to record inbound transfer")
		return
	}

	w.logger.Info().
		Str("tx_hash", transfer.TxHash).
		Str("amount", transfer.Amount.String()).
		Msg("Inbound transfer detected")
	w.emitter.Emit(event.PayInDetected, transfer, "in:"+transfer.TxHash)
}

// mockAddress fabricates a TRON-looking address.
func mockAddress() string {
	return "T" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
}
