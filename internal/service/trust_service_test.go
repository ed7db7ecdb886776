package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rello/rello-backend/internal/domain"
	"github.com/rello/rello-backend/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTrustService() (*TrustService, *testutil.MockTrustPairRepository, *testutil.MockTrustSessionRepository, *testutil.MockTrustLedgerRepository) {
	pairs := testutil.NewMockTrustPairRepository()
	sessions := testutil.NewMockTrustSessionRepository()
	ledger := testutil.NewMockTrustLedgerRepository()
	return NewTrustService(pairs, sessions, ledger, zerolog.Nop()), pairs, sessions, ledger
}

func TestTrustService_EnsurePair_OrderIndependent(t *testing.T) {
	svc, _, _, _ := newTrustService()
	a, b := uuid.New(), uuid.New()

	first, err := svc.EnsurePair(context.Background(), a, b)
	require.NoError(t, err)

	// Reversed order resolves to the same row
	second, err := svc.EnsurePair(context.Background(), b, a)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestTrustService_EnsurePair_SameCompany(t *testing.T) {
	svc, _, _, _ := newTrustService()
	id := uuid.New()

	_, err := svc.EnsurePair(context.Background(), id, id)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestTrustService_TodaySession_GetOrCreate(t *testing.T) {
	svc, _, _, _ := newTrustService()

	pair, err := svc.EnsurePair(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)

	first, err := svc.TodaySession(context.Background(), pair.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TrustSessionOpen, first.State)

	second, err := svc.TodaySession(context.Background(), pair.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestTrustService_AddEntry(t *testing.T) {
	svc, _, _, _ := newTrustService()

	pair, err := svc.EnsurePair(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	session, err := svc.TodaySession(context.Background(), pair.ID)
	require.NoError(t, err)

	entry, err := svc.AddEntry(context.Background(), LedgerEntryInput{
		SessionID: session.ID,
		Side:      domain.SideAToB,
		Network:   "TRON",
		Token:     "USDT",
		Amount:    decimal.NewFromInt(120),
	})
	require.NoError(t, err)
	assert.True(t, entry.Value.Equal(entry.Amount))
}

func TestTrustService_AddEntry_Validation(t *testing.T) {
	svc, _, sessions, _ := newTrustService()

	session := &domain.TrustSession{
		PairID:      uuid.New(),
		SessionDate: time.Now().UTC(),
		State:       domain.TrustSessionOpen,
	}
	sessions.AddSession(session)

	_, err := svc.AddEntry(context.Background(), LedgerEntryInput{
		SessionID: session.ID,
		Side:      domain.SideAToB,
		Amount:    decimal.Zero,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = svc.AddEntry(context.Background(), LedgerEntryInput{
		SessionID: session.ID,
		Side:      domain.LedgerSide("sideways"),
		Amount:    decimal.NewFromInt(10),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestTrustService_AddEntry_ClosedSession(t *testing.T) {
	svc, _, _, _ := newTrustService()

	pair, err := svc.EnsurePair(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	session, err := svc.TodaySession(context.Background(), pair.ID)
	require.NoError(t, err)

	_, err = svc.CloseSession(context.Background(), session.ID)
	require.NoError(t, err)

	_, err = svc.AddEntry(context.Background(), LedgerEntryInput{
		SessionID: session.ID,
		Side:      domain.SideAToB,
		Network:   "TRON",
		Token:     "USDT",
		Amount:    decimal.NewFromInt(10),
	})
	assert.ErrorIs(t, err, domain.ErrSessionNotOpen)
}

func TestTrustService_CloseSession_Twice(t *testing.T) {
	svc, _, _, _ := newTrustService()

	pair, err := svc.EnsurePair(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	session, err := svc.TodaySession(context.Background(), pair.ID)
	require.NoError(t, err)

	closed, err := svc.CloseSession(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TrustSessionClosed, closed.State)

	_, err = svc.CloseSession(context.Background(), session.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotOpen)
}

func TestTrustService_SessionLedger_Net(t *testing.T) {
	svc, _, _, _ := newTrustService()

	pair, err := svc.EnsurePair(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	session, err := svc.TodaySession(context.Background(), pair.ID)
	require.NoError(t, err)

	add := func(side domain.LedgerSide, amount int64) {
		_, err := svc.AddEntry(context.Background(), LedgerEntryInput{
			SessionID: session.ID,
			Side:      side,
			Network:   "TRON",
			Token:     "USDT",
			Amount:    decimal.NewFromInt(amount),
		})
		require.NoError(t, err)
	}
	add(domain.SideAToB, 100)
	add(domain.SideAToB, 25)
	add(domain.SideBToA, 40)

	entries, net, err := svc.SessionLedger(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
	assert.True(t, net.Equal(decimal.NewFromInt(85)))
}

func TestTrustService_SessionLedger_UnknownSession(t *testing.T) {
	svc, _, _, _ := newTrustService()

	_, _, err := svc.SessionLedger(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
