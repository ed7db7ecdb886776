package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rello/rello-backend/internal/domain"
	"github.com/rello/rello-backend/internal/event"
	"github.com/rello/rello-backend/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWatcher(incoming *testutil.MockIncomingTransferRepository, emitter event.Emitter) *ChainWatcher {
	return NewChainWatcher(incoming, emitter, zerolog.Nop(), ChainWatcherConfig{
		Interval:  time.Hour, // ticks driven manually in tests
		Network:   "TRON",
		Token:     "USDT",
		MinAmount: 10,
		MaxAmount: 500,
	})
}

func TestChainWatcher_TickRecordsInboundTransfer(t *testing.T) {
	incoming := testutil.NewMockIncomingTransferRepository()
	emitter := testutil.NewMockEmitter()
	watcher := newTestWatcher(incoming, emitter)

	watcher.Tick(context.Background())

	require.Len(t, incoming.Transfers, 1)
	for _, tr := range incoming.Transfers {
		assert.Equal(t, "TRON", tr.Network)
		assert.Equal(t, "USDT", tr.Token)
		assert.Equal(t, domain.IncomingStatusSeen, tr.Status)
		assert.NotEmpty(t, tr.TxHash)
		assert.True(t, strings.HasPrefix(tr.FromAddress, "T"))
		assert.True(t, tr.Amount.GreaterThanOrEqual(decimal.NewFromInt(10)))
		assert.True(t, tr.Amount.LessThanOrEqual(decimal.NewFromInt(500)))
	}
	assert.Equal(t, 1, emitter.CountByType(event.PayInDetected))
}

func TestChainWatcher_EachTickIsUnique(t *testing.T) {
	incoming := testutil.NewMockIncomingTransferRepository()
	emitter := testutil.NewMockEmitter()
	watcher := newTestWatcher(incoming, emitter)

	for i := 0; i < 5; i++ {
		watcher.Tick(context.Background())
	}

	assert.Len(t, incoming.Transfers, 5)
	assert.Equal(t, 5, emitter.CountByType(event.PayInDetected))
}

func TestChainWatcher_StartStop(t *testing.T) {
	incoming := testutil.NewMockIncomingTransferRepository()
	watcher := NewChainWatcher(incoming, testutil.NewMockEmitter(), zerolog.Nop(), ChainWatcherConfig{
		Interval: 10 * time.Millisecond,
	})

	watcher.Start(context.Background())
	assert.True(t, watcher.IsRunning())

	watcher.Stop()
	assert.False(t, watcher.IsRunning())

	// Stop again is a no-op
	watcher.Stop()
}
