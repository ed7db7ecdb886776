package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rello/rello-backend/internal/domain"
	"github.com/rello/rello-backend/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDepositService() (*DepositService, *testutil.MockCompanyRepository) {
	companies := testutil.NewMockCompanyRepository()
	return NewDepositService(testutil.NewMockDepositLedgerRepository(), companies, zerolog.Nop()), companies
}

func TestDepositService_AddEntry_AndBalance(t *testing.T) {
	svc, companies := newDepositService()
	company := &domain.Company{Name: "Acme", Slug: "acme", Status: "active"}
	companies.AddCompany(company)

	add := func(entryType domain.DepositEntryType, amount int64) {
		_, err := svc.AddEntry(context.Background(), DepositEntryInput{
			CompanyID: company.ID,
			Type:      entryType,
			Network:   "TRON",
			Token:     "USDT",
			Amount:    decimal.NewFromInt(amount),
		})
		require.NoError(t, err)
	}

	add(domain.DepositTypeFund, 1000)
	add(domain.DepositTypeAdjustment, 200)
	add(domain.DepositTypePenalty, 150)
	add(domain.DepositTypeHoldOpen, 50)

	// Credits minus debits: 1000 + 200 - 150 - 50
	balance, err := svc.Balance(context.Background(), company.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(1000)))
}

func TestDepositService_AddEntry_Validation(t *testing.T) {
	svc, companies := newDepositService()
	company := &domain.Company{Name: "Acme", Slug: "acme", Status: "active"}
	companies.AddCompany(company)

	_, err := svc.AddEntry(context.Background(), DepositEntryInput{
		CompanyID: company.ID,
		Type:      domain.DepositEntryType("bonus"),
		Amount:    decimal.NewFromInt(10),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.AddEntry(context.Background(), DepositEntryInput{
		CompanyID: company.ID,
		Type:      domain.DepositTypeFund,
		Amount:    decimal.NewFromInt(-10),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = svc.AddEntry(context.Background(), DepositEntryInput{
		CompanyID: uuid.New(),
		Type:      domain.DepositTypeFund,
		Amount:    decimal.NewFromInt(10),
	})
	assert.ErrorIs(t, err, domain.ErrCompanyNotFound)
}

func TestDepositService_Balance_UnknownCompany(t *testing.T) {
	svc, _ := newDepositService()

	_, err := svc.Balance(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrCompanyNotFound)
}

func TestDepositService_History_NewestFirst(t *testing.T) {
	svc, companies := newDepositService()
	company := &domain.Company{Name: "Acme", Slug: "acme", Status: "active"}
	companies.AddCompany(company)

	ref1, ref2 := "first", "second"
	for _, ref := range []*string{&ref1, &ref2} {
		_, err := svc.AddEntry(context.Background(), DepositEntryInput{
			CompanyID: company.ID,
			Type:      domain.DepositTypeFund,
			Network:   "TRON",
			Token:     "USDT",
			Amount:    decimal.NewFromInt(10),
			Ref:       ref,
		})
		require.NoError(t, err)
	}

	history, err := svc.History(context.Background(), company.ID, 50)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.NotNil(t, history[0].Ref)
	assert.Equal(t, "second", *history[0].Ref)
}
