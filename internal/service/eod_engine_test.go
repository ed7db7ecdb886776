package service

import (
	"context"
	"errors"
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

type eodFixture struct {
	sessions    *testutil.MockTrustSessionRepository
	ledger      *testutil.MockTrustLedgerRepository
	pairs       *testutil.MockTrustPairRepository
	settlements *testutil.MockEodSettlementRepository
	payouts     *testutil.MockOutgoingTransferRepository
	wallets     *testutil.MockWalletRepository
	emitter     *testutil.MockEmitter
	engine      *EodEngine

	pair    *domain.TrustPair
	session *domain.TrustSession
}

func newEodFixture(t *testing.T) *eodFixture {
	t.Helper()

	f := &eodFixture{
		sessions:    testutil.NewMockTrustSessionRepository(),
		ledger:      testutil.NewMockTrustLedgerRepository(),
		pairs:       testutil.NewMockTrustPairRepository(),
		settlements: testutil.NewMockEodSettlementRepository(),
		payouts:     testutil.NewMockOutgoingTransferRepository(),
		wallets:     testutil.NewMockWalletRepository(),
		emitter:     testutil.NewMockEmitter(),
	}
	f.engine = NewEodEngine(f.sessions, f.ledger, f.pairs, f.settlements, f.payouts, f.wallets, f.emitter, zerolog.Nop(), EodEngineConfig{
		Interval: time.Hour, // ticks driven manually in tests
		Network:  "TRON",
		Token:    "USDT",
	})

	a, b := uuid.New(), uuid.New()
	low, high := domain.CanonicalPair(a, b)
	pair, err := f.pairs.Insert(context.Background(), &domain.TrustPair{
		CompanyAID:    a,
		CompanyBID:    b,
		CompanyLowID:  low,
		CompanyHighID: high,
		Status:        domain.TrustPairStatusActive,
	})
	require.NoError(t, err)
	f.pair = pair

	session, err := f.sessions.Insert(context.Background(), &domain.TrustSession{
		PairID:      pair.ID,
		SessionDate: time.Now().UTC(),
		State:       domain.TrustSessionOpen,
	})
	require.NoError(t, err)
	f.session = session

	_, err = f.wallets.Insert(context.Background(), hotWallet())
	require.NoError(t, err)

	return f
}

func (f *eodFixture) addEntry(t *testing.T, side domain.LedgerSide, amount int64) {
	t.Helper()
	_, err := f.ledger.Insert(context.Background(), &domain.TrustLedgerEntry{
		SessionID: f.session.ID,
		Side:      side,
		Network:   "TRON",
		Token:     "USDT",
		Amount:    decimal.NewFromInt(amount),
		Value:     decimal.NewFromInt(amount),
	})
	require.NoError(t, err)
}

func (f *eodFixture) closeSession(t *testing.T) {
	t.Helper()
	_, err := f.sessions.Close(context.Background(), f.session.ID)
	require.NoError(t, err)
}

func TestEodEngine_NetsToSinglePayout(t *testing.T) {
	f := newEodFixture(t)

	// A owes B 100, B owes A 40: net 60 from A to B
	f.addEntry(t, domain.SideAToB, 100)
	f.addEntry(t, domain.SideBToA, 40)
	f.closeSession(t)

	f.engine.Tick(context.Background())

	settlement, err := f.settlements.GetBySession(context.Background(), f.session.ID)
	require.NoError(t, err)
	assert.True(t, settlement.Amount.Equal(decimal.NewFromInt(60)))
	assert.Equal(t, f.pair.CompanyAID, settlement.PayerCompanyID)
	assert.Equal(t, f.pair.CompanyBID, settlement.PayeeCompanyID)

	payouts, err := f.payouts.ListByStatus(context.Background(), domain.PayoutStatusQueued, 10)
	require.NoError(t, err)
	require.Len(t, payouts, 1)
	assert.True(t, payouts[0].Amount.Equal(decimal.NewFromInt(60)))

	session, err := f.sessions.GetByID(context.Background(), f.session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TrustSessionSettled, session.State)
	assert.True(t, session.NetAmount.Equal(decimal.NewFromInt(60)))

	assert.Equal(t, 1, f.emitter.CountByType(event.EodSettled))
	assert.Equal(t, 1, f.emitter.CountByType(event.PayoutQueued))
}

func TestEodEngine_NegativeNet_ReversesPayer(t *testing.T) {
	f := newEodFixture(t)

	f.addEntry(t, domain.SideAToB, 30)
	f.addEntry(t, domain.SideBToA, 90)
	f.closeSession(t)

	f.engine.Tick(context.Background())

	settlement, err := f.settlements.GetBySession(context.Background(), f.session.ID)
	require.NoError(t, err)
	assert.True(t, settlement.Amount.Equal(decimal.NewFromInt(60)))
	assert.Equal(t, f.pair.CompanyBID, settlement.PayerCompanyID)
	assert.Equal(t, f.pair.CompanyAID, settlement.PayeeCompanyID)
}

func TestEodEngine_ZeroNet_NoPayout(t *testing.T) {
	f := newEodFixture(t)

	f.addEntry(t, domain.SideAToB, 50)
	f.addEntry(t, domain.SideBToA, 50)
	f.closeSession(t)

	f.engine.Tick(context.Background())

	_, err := f.settlements.GetBySession(context.Background(), f.session.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	counts, err := f.payouts.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Zero(t, counts[domain.PayoutStatusQueued])

	session, err := f.sessions.GetByID(context.Background(), f.session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TrustSessionSettled, session.State)
	assert.True(t, session.NetAmount.IsZero())
}

func TestEodEngine_RerunIsIdempotent(t *testing.T) {
	f := newEodFixture(t)

	f.addEntry(t, domain.SideAToB, 100)
	f.closeSession(t)

	f.engine.Tick(context.Background())
	f.engine.Tick(context.Background())
	f.engine.Tick(context.Background())

	counts, err := f.payouts.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[domain.PayoutStatusQueued])
	assert.Len(t, f.settlements.Settlements, 1)
	assert.Equal(t, 1, f.emitter.CountByType(event.EodSettled))
}

// flakyPayoutRepo fails the first insert attempts, then delegates.
type flakyPayoutRepo struct {
	*testutil.MockOutgoingTransferRepository
	failures int
}

func (r *flakyPayoutRepo) Insert(ctx context.Context, transfer *domain.OutgoingTransfer) (*domain.OutgoingTransfer, error) {
	if r.failures > 0 {
		r.failures--
		return nil, errors.New("connection reset")
	}
	return r.MockOutgoingTransferRepository.Insert(ctx, transfer)
}

func TestEodEngine_RetriesPayoutAfterFailedInsert(t *testing.T) {
	f := newEodFixture(t)
	flaky := &flakyPayoutRepo{MockOutgoingTransferRepository: f.payouts, failures: 1}
	f.engine = NewEodEngine(f.sessions, f.ledger, f.pairs, f.settlements, flaky, f.wallets, f.emitter, zerolog.Nop(), EodEngineConfig{
		Interval: time.Hour,
		Network:  "TRON",
		Token:    "USDT",
	})

	f.addEntry(t, domain.SideAToB, 100)
	f.closeSession(t)

	// First tick writes the settlement but the payout insert fails, so the
	// session must stay closed for the next sweep
	f.engine.Tick(context.Background())
	require.Len(t, f.settlements.Settlements, 1)
	counts, err := f.payouts.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Zero(t, counts[domain.PayoutStatusQueued])

	session, err := f.sessions.GetByID(context.Background(), f.session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TrustSessionClosed, session.State)

	// Second tick finds the existing settlement and re-drives the payout
	f.engine.Tick(context.Background())
	counts, err = f.payouts.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[domain.PayoutStatusQueued])
	assert.Equal(t, 1, f.emitter.CountByType(event.PayoutQueued))

	session, err = f.sessions.GetByID(context.Background(), f.session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TrustSessionSettled, session.State)

	// Once settled, further ticks add nothing
	f.engine.Tick(context.Background())
	counts, err = f.payouts.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[domain.PayoutStatusQueued])
}

func TestEodEngine_OpenSessionIgnored(t *testing.T) {
	f := newEodFixture(t)

	f.addEntry(t, domain.SideAToB, 100)
	// Session stays open

	f.engine.Tick(context.Background())

	session, err := f.sessions.GetByID(context.Background(), f.session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TrustSessionOpen, session.State)
	assert.Empty(t, f.settlements.Settlements)
}
