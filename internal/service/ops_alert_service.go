package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rello/rello-backend/internal/domain"
	"github.com/rello/rello-backend/internal/event"
	"github.com/rs/zerolog"
)

// OpsAlertService sweeps for payouts stuck in a non-terminal status beyond
// a threshold and raises an operator alert for each offending status. An
// alert repeats on every sweep until the backlog clears.
type OpsAlertService struct {
	payoutRepo domain.OutgoingTransferRepository
	emitter    event.Emitter
	logger     zerolog.Logger

	interval        time.Duration
	queuedMaxAge    time.Duration
	broadcastMaxAge time.Duration

	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	running bool
}

// OpsAlertConfig holds the stuck-payout thresholds
type OpsAlertConfig struct {
	Interval        time.Duration // How often the sweep runs
	QueuedMaxAge    time.Duration // Age after which a queued payout is stuck
	BroadcastMaxAge time.Duration // Age after which a broadcast payout is stuck
}

// DefaultOpsAlertConfig returns sensible defaults
func DefaultOpsAlertConfig() OpsAlertConfig {
	return OpsAlertConfig{
		Interval:        time.Minute,
		QueuedMaxAge:    15 * time.Minute,
		BroadcastMaxAge: 30 * time.Minute,
	}
}

// StuckAlert is the payload emitted when payouts sit too long in a status.
type StuckAlert struct {
	Status domain.PayoutStatus `json:"status"`
	Count  int64               `json:"count"`
	MaxAge string              `json:"maxAge"`
}

// NewOpsAlertService creates a new OpsAlertService
func NewOpsAlertService(
	payoutRepo domain.OutgoingTransferRepository,
	emitter event.Emitter,
	logger zerolog.Logger,
	config OpsAlertConfig,
) *OpsAlertService {
	if config.Interval <= 0 {
		config.Interval = time.Minute
	}
	if config.QueuedMaxAge <= 0 {
		config.QueuedMaxAge = 15 * time.Minute
	}
	if config.BroadcastMaxAge <= 0 {
		config.BroadcastMaxAge = 30 * time.Minute
	}

	return &OpsAlertService{
		payoutRepo:      payoutRepo,
		emitter:         emitter,
		logger:          logger.With().Str("component", "ops_alerts").Logger(),
		interval:        config.Interval,
		queuedMaxAge:    config.QueuedMaxAge,
		broadcastMaxAge: config.BroadcastMaxAge,
		stopCh:          make(chan struct{}),
		doneCh:          make(chan struct{}),
	}
}

// Start begins the stuck-payout sweep in the background
func (s *OpsAlertService) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info().
		Dur("interval", s.interval).
		Dur("queued_max_age", s.queuedMaxAge).
		Dur("broadcast_max_age", s.broadcastMaxAge).
		Msg("Starting ops alert sweep")

	go s.run(ctx)
}

// Stop gracefully stops the sweep
func (s *OpsAlertService) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.logger.Info().Msg("Stopping ops alert sweep")
	close(s.stopCh)
	<-s.doneCh
	s.logger.Info().Msg("Ops alert sweep stopped")
}

// IsRunning returns whether the sweep is currently running
func (s *OpsAlertService) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *OpsAlertService) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			return
		case <-s.stopCh:
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one stuck-payout sweep.
func (s *OpsAlertService) Tick(ctx context.Context) {
	s.check(ctx, domain.PayoutStatusQueued, s.queuedMaxAge)
	s.check(ctx, domain.PayoutStatusBroadcast, s.broadcastMaxAge)
}

func (s *OpsAlertService) check(ctx context.Context, status domain.PayoutStatus, maxAge time.Duration) {
	count, err := s.payoutRepo.CountStuck(ctx, status, maxAge)
	if err != nil {
		s.logger.Error().Err(err).Str("status", string(status)).Msg("Stuck payout count failed")
		return
	}
	if count == 0 {
		return
	}

	s.logger.Warn().
		Str("status", string(status)).
		Int64("count", count).
		Dur("max_age", maxAge).
		Msg("Stuck payouts detected")
	s.emitter.Emit(event.OpsAlert, StuckAlert{
		Status: status,
		Count:  count,
		MaxAge: maxAge.String(),
	}, fmt.Sprintf("stuck:%s:%d", status, count))
}
