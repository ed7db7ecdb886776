package service

import (
	"context"
	"testing"
	"time"

	"github.com/rello/rello-backend/internal/domain"
	"github.com/rello/rello-backend/internal/event"
	"github.com/rello/rello-backend/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAlerts(repo *testutil.MockOutgoingTransferRepository, emitter event.Emitter) *OpsAlertService {
	return NewOpsAlertService(repo, emitter, zerolog.Nop(), OpsAlertConfig{
		Interval:        time.Hour, // ticks driven manually in tests
		QueuedMaxAge:    15 * time.Minute,
		BroadcastMaxAge: 30 * time.Minute,
	})
}

func agedPayout(status domain.PayoutStatus, age time.Duration) *domain.OutgoingTransfer {
	p := queuedPayout(100)
	p.Status = status
	p.CreatedAt = time.Now().Add(-age)
	return p
}

func TestOpsAlertService_AlertsOnStuckQueued(t *testing.T) {
	repo := testutil.NewMockOutgoingTransferRepository()
	emitter := testutil.NewMockEmitter()
	alerts := newTestAlerts(repo, emitter)

	repo.AddTransfer(agedPayout(domain.PayoutStatusQueued, time.Hour))
	repo.AddTransfer(agedPayout(domain.PayoutStatusQueued, 2*time.Hour))

	alerts.Tick(context.Background())

	require.Equal(t, 1, emitter.CountByType(event.OpsAlert))
	alert, ok := emitter.Events[0].Payload.(StuckAlert)
	require.True(t, ok)
	assert.Equal(t, domain.PayoutStatusQueued, alert.Status)
	assert.Equal(t, int64(2), alert.Count)
}

func TestOpsAlertService_FreshPayoutsDoNotAlert(t *testing.T) {
	repo := testutil.NewMockOutgoingTransferRepository()
	emitter := testutil.NewMockEmitter()
	alerts := newTestAlerts(repo, emitter)

	repo.AddTransfer(agedPayout(domain.PayoutStatusQueued, time.Minute))
	repo.AddTransfer(agedPayout(domain.PayoutStatusBroadcast, time.Minute))

	alerts.Tick(context.Background())

	assert.Zero(t, emitter.CountByType(event.OpsAlert))
}

func TestOpsAlertService_ChecksBothStatuses(t *testing.T) {
	repo := testutil.NewMockOutgoingTransferRepository()
	emitter := testutil.NewMockEmitter()
	alerts := newTestAlerts(repo, emitter)

	repo.AddTransfer(agedPayout(domain.PayoutStatusQueued, time.Hour))
	repo.AddTransfer(agedPayout(domain.PayoutStatusBroadcast, time.Hour))
	// Signed payouts are covered by the engine's recovery sweep, not alerts
	repo.AddTransfer(agedPayout(domain.PayoutStatusSigned, time.Hour))

	alerts.Tick(context.Background())

	assert.Equal(t, 2, emitter.CountByType(event.OpsAlert))
}

func TestOpsAlertService_RepeatsUntilCleared(t *testing.T) {
	repo := testutil.NewMockOutgoingTransferRepository()
	emitter := testutil.NewMockEmitter()
	alerts := newTestAlerts(repo, emitter)

	stuck := agedPayout(domain.PayoutStatusQueued, time.Hour)
	repo.AddTransfer(stuck)

	alerts.Tick(context.Background())
	alerts.Tick(context.Background())
	assert.Equal(t, 2, emitter.CountByType(event.OpsAlert))

	// Clearing the backlog silences the sweep
	if _, err := repo.AdvanceStatus(context.Background(), stuck.ID, domain.PayoutStatusQueued, domain.PayoutStatusSigned); err != nil {
		t.Fatalf("failed to advance payout: %v", err)
	}
	alerts.Tick(context.Background())
	assert.Equal(t, 2, emitter.CountByType(event.OpsAlert))
}

func TestOpsAlertService_StartStop(t *testing.T) {
	repo := testutil.NewMockOutgoingTransferRepository()
	alerts := NewOpsAlertService(repo, testutil.NewMockEmitter(), zerolog.Nop(), OpsAlertConfig{
		Interval: 10 * time.Millisecond,
	})

	alerts.Start(context.Background())
	assert.True(t, alerts.IsRunning())

	alerts.Stop()
	assert.False(t, alerts.IsRunning())

	// Stop again is a no-op
	alerts.Stop()
}
