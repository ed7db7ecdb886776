package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rello/rello-backend/internal/domain"
	"github.com/rello/rello-backend/internal/event"
	"github.com/rello/rello-backend/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker(incoming *testutil.MockIncomingTransferRepository, outgoing *testutil.MockOutgoingTransferRepository, wallets *testutil.MockWalletRepository, emitter event.Emitter, passThrough bool) *ConfirmationTracker {
	return NewConfirmationTracker(incoming, outgoing, wallets, emitter, zerolog.Nop(), ConfirmationTrackerConfig{
		Interval:              time.Hour, // ticks driven manually in tests
		RequiredConfirmations: 3,
		BatchSize:             50,
		PassThrough:           passThrough,
	})
}

func seenTransfer(amount int64) *domain.IncomingTransfer {
	return &domain.IncomingTransfer{
		ID:          uuid.New(),
		Network:     "TRON",
		Token:       "USDT",
		TxHash:      "0x" + uuid.New().String(),
		FromAddress: "Tsender",
		ToAddress:   "Tdeposit",
		Amount:      decimal.NewFromInt(amount),
		Status:      domain.IncomingStatusSeen,
	}
}

func hotWallet() *domain.PlatformWallet {
	return &domain.PlatformWallet{
		ID:       uuid.New(),
		Network:  "TRON",
		Token:    "USDT",
		Type:     domain.WalletTypeHot,
		Address:  "Thot",
		IsActive: true,
	}
}

func TestConfirmationTracker_TickAddsOneConfirmation(t *testing.T) {
	incoming := testutil.NewMockIncomingTransferRepository()
	outgoing := testutil.NewMockOutgoingTransferRepository()
	wallets := testutil.NewMockWalletRepository()
	emitter := testutil.NewMockEmitter()
	tracker := newTestTracker(incoming, outgoing, wallets, emitter, false)

	tr := seenTransfer(100)
	incoming.AddTransfer(tr)

	tracker.Tick(context.Background())

	got, err := incoming.GetByID(context.Background(), tr.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(1), got.Confirmations)
	assert.Equal(t, domain.IncomingStatusSeen, got.Status)
	assert.Zero(t, emitter.CountByType(event.PayInConfirmed))
}

func TestConfirmationTracker_ConfirmsAtThreshold(t *testing.T) {
	incoming := testutil.NewMockIncomingTransferRepository()
	outgoing := testutil.NewMockOutgoingTransferRepository()
	wallets := testutil.NewMockWalletRepository()
	emitter := testutil.NewMockEmitter()
	tracker := newTestTracker(incoming, outgoing, wallets, emitter, false)

	tr := seenTransfer(100)
	incoming.AddTransfer(tr)

	for i := 0; i < 5; i++ {
		tracker.Tick(context.Background())
	}

	got, err := incoming.GetByID(context.Background(), tr.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IncomingStatusConfirmed, got.Status)
	// Confirmations never exceed the threshold
	assert.Equal(t, int32(3), got.Confirmations)
	// The confirmation fires exactly once despite extra ticks
	assert.Equal(t, 1, emitter.CountByType(event.PayInConfirmed))
}

func TestConfirmationTracker_PassThrough_EnqueuesPayout(t *testing.T) {
	incoming := testutil.NewMockIncomingTransferRepository()
	outgoing := testutil.NewMockOutgoingTransferRepository()
	wallets := testutil.NewMockWalletRepository()
	emitter := testutil.NewMockEmitter()
	tracker := newTestTracker(incoming, outgoing, wallets, emitter, true)

	_, err := wallets.Insert(context.Background(), hotWallet())
	require.NoError(t, err)

	tr := seenTransfer(75)
	incoming.AddTransfer(tr)

	for i := 0; i < 3; i++ {
		tracker.Tick(context.Background())
	}

	payouts, err := outgoing.ListByStatus(context.Background(), domain.PayoutStatusQueued, 10)
	require.NoError(t, err)
	require.Len(t, payouts, 1)
	assert.Equal(t, tr.FromAddress, payouts[0].ToAddress)
	assert.True(t, payouts[0].Amount.Equal(tr.Amount))
	require.NotNil(t, payouts[0].IdempotencyKey)
	assert.Equal(t, "pt:"+tr.TxHash, *payouts[0].IdempotencyKey)
	assert.Equal(t, 1, emitter.CountByType(event.PayoutQueued))
}

func TestConfirmationTracker_PassThrough_NeverDuplicates(t *testing.T) {
	incoming := testutil.NewMockIncomingTransferRepository()
	outgoing := testutil.NewMockOutgoingTransferRepository()
	wallets := testutil.NewMockWalletRepository()
	tracker := newTestTracker(incoming, outgoing, wallets, testutil.NewMockEmitter(), true)

	_, err := wallets.Insert(context.Background(), hotWallet())
	require.NoError(t, err)

	tr := seenTransfer(75)
	incoming.AddTransfer(tr)

	for i := 0; i < 3; i++ {
		tracker.Tick(context.Background())
	}
	// Re-running the enqueue directly must hit the idempotency key
	confirmed, err := incoming.GetByID(context.Background(), tr.ID)
	require.NoError(t, err)
	require.NoError(t, tracker.enqueuePassThrough(context.Background(), confirmed))

	counts, err := outgoing.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[domain.PayoutStatusQueued])
}

func TestConfirmationTracker_PassThrough_MissingWallet(t *testing.T) {
	incoming := testutil.NewMockIncomingTransferRepository()
	outgoing := testutil.NewMockOutgoingTransferRepository()
	wallets := testutil.NewMockWalletRepository()
	emitter := testutil.NewMockEmitter()
	tracker := newTestTracker(incoming, outgoing, wallets, emitter, true)

	tr := seenTransfer(75)
	incoming.AddTransfer(tr)

	// No hot wallet configured: the transfer still confirms, the payout
	// enqueue fails and is logged
	for i := 0; i < 3; i++ {
		tracker.Tick(context.Background())
	}

	got, err := incoming.GetByID(context.Background(), tr.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IncomingStatusConfirmed, got.Status)

	counts, err := outgoing.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Zero(t, counts[domain.PayoutStatusQueued])
}
