package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rello/rello-backend/internal/domain"
	"github.com/rello/rello-backend/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type limitsFixture struct {
	deposits  *testutil.MockDepositLedgerRepository
	deals     *testutil.MockDealRepository
	reference *testutil.MockReferenceRepository
	service   *LimitsService
}

func newLimitsFixture(capPerDeal, capOpenExposure int64) *limitsFixture {
	f := &limitsFixture{
		deposits:  testutil.NewMockDepositLedgerRepository(),
		deals:     testutil.NewMockDealRepository(),
		reference: testutil.NewMockReferenceRepository(),
	}
	f.service = NewLimitsService(f.deposits, f.deals, f.reference, LimitsConfig{
		CapPerDeal:      decimal.NewFromInt(capPerDeal),
		CapOpenExposure: decimal.NewFromInt(capOpenExposure),
	})
	return f
}

func (f *limitsFixture) fund(companyID uuid.UUID, amount int64) {
	f.deposits.Insert(context.Background(), &domain.DepositLedgerEntry{
		CompanyID: companyID,
		Type:      domain.DepositTypeFund,
		Network:   "TRON",
		Token:     "USDT",
		Amount:    decimal.NewFromInt(amount),
	})
}

func (f *limitsFixture) openDeal(companyID uuid.UUID, amount int64) {
	f.deals.AddDeal(&domain.Deal{
		OfferID:               uuid.New(),
		InitiatorCompanyID:    companyID,
		CounterpartyCompanyID: uuid.New(),
		Direction:             domain.DirectionCashIn,
		Network:               "TRON",
		Token:                 "USDT",
		Amount:                decimal.NewFromInt(amount),
		State:                 domain.DealStateProposed,
	})
}

func TestLimitsService_LimitsFor_DefaultTier(t *testing.T) {
	f := newLimitsFixture(10000, 50000)
	companyID := uuid.New()
	f.fund(companyID, 1000)

	limits, err := f.service.LimitsFor(context.Background(), companyID)
	require.NoError(t, err)

	// No tier record: the most conservative tier applies
	assert.Equal(t, domain.TierS, limits.Tier)
	assert.True(t, limits.Deposit.Equal(decimal.NewFromInt(1000)))
	assert.True(t, limits.CompanyLimit.Equal(decimal.NewFromInt(1000)))
	assert.True(t, limits.OpenExposure.IsZero())
}

func TestLimitsService_LimitsFor_TierScaling(t *testing.T) {
	f := newLimitsFixture(10000, 50000)
	companyID := uuid.New()
	f.fund(companyID, 1000)
	require.NoError(t, f.reference.SetCompanyTier(context.Background(), companyID, domain.TierXL))

	limits, err := f.service.LimitsFor(context.Background(), companyID)
	require.NoError(t, err)
	assert.True(t, limits.CompanyLimit.Equal(decimal.NewFromInt(5000)))
}

func TestLimitsService_Authorize_PerDealCapBeatsExposure(t *testing.T) {
	f := newLimitsFixture(100, 1000000)
	companyID := uuid.New()
	// Huge deposit: the exposure check could never fail here
	f.fund(companyID, 1000000)

	auth, err := f.service.Authorize(context.Background(), companyID, decimal.NewFromInt(150))
	require.NoError(t, err)

	// The per-deal cap is checked first and its reason names the cap
	assert.False(t, auth.Authorized)
	assert.Equal(t, "cap_per_deal 100", auth.Reason)
}

func TestLimitsService_Authorize_ExposureCeiling(t *testing.T) {
	f := newLimitsFixture(10000, 50000)
	companyID := uuid.New()
	f.fund(companyID, 1000) // TierS: limit 1000
	f.openDeal(companyID, 800)

	// 800 + 300 > 1000
	auth, err := f.service.Authorize(context.Background(), companyID, decimal.NewFromInt(300))
	require.NoError(t, err)
	assert.False(t, auth.Authorized)
	assert.Contains(t, auth.Reason, "open_exposure")

	// 800 + 200 = 1000 fits exactly
	auth, err = f.service.Authorize(context.Background(), companyID, decimal.NewFromInt(200))
	require.NoError(t, err)
	assert.True(t, auth.Authorized)
	assert.Empty(t, auth.Reason)
}

func TestLimitsService_Authorize_GlobalCapBoundsCompanyLimit(t *testing.T) {
	f := newLimitsFixture(1000000, 500)
	companyID := uuid.New()
	f.fund(companyID, 10000) // company limit 10000, global cap 500

	auth, err := f.service.Authorize(context.Background(), companyID, decimal.NewFromInt(600))
	require.NoError(t, err)
	assert.False(t, auth.Authorized)
}

func TestLimitsService_Authorize_NonPositiveAmount(t *testing.T) {
	f := newLimitsFixture(10000, 50000)

	_, err := f.service.Authorize(context.Background(), uuid.New(), decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = f.service.Authorize(context.Background(), uuid.New(), decimal.NewFromInt(-5))
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestLimitsService_Authorize_DebitsReduceDeposit(t *testing.T) {
	f := newLimitsFixture(10000, 50000)
	companyID := uuid.New()
	f.fund(companyID, 1000)
	f.deposits.Insert(context.Background(), &domain.DepositLedgerEntry{
		CompanyID: companyID,
		Type:      domain.DepositTypePenalty,
		Network:   "TRON",
		Token:     "USDT",
		Amount:    decimal.NewFromInt(400),
	})

	limits, err := f.service.LimitsFor(context.Background(), companyID)
	require.NoError(t, err)
	assert.True(t, limits.Deposit.Equal(decimal.NewFromInt(600)))
	assert.True(t, limits.CompanyLimit.Equal(decimal.NewFromInt(600)))
}
