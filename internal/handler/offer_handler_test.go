package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rello/rello-backend/internal/domain"
	"github.com/rello/rello-backend/internal/service"
	"github.com/rello/rello-backend/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type offerHandlerFixture struct {
	handler   *OfferHandler
	companies *testutil.MockCompanyRepository
	offers    *testutil.MockOfferRepository
	deposits  *testutil.MockDepositLedgerRepository
}

func newOfferHandlerFixture() *offerHandlerFixture {
	f := &offerHandlerFixture{
		companies: testutil.NewMockCompanyRepository(),
		offers:    testutil.NewMockOfferRepository(),
		deposits:  testutil.NewMockDepositLedgerRepository(),
	}
	deals := testutil.NewMockDealRepository()
	limits := service.NewLimitsService(f.deposits, deals, testutil.NewMockReferenceRepository(), service.LimitsConfig{
		CapPerDeal:      decimal.NewFromInt(10000),
		CapOpenExposure: decimal.NewFromInt(100000),
	})
	dealService := service.NewDealService(f.offers, deals, f.companies, limits, zerolog.Nop())
	f.handler = NewOfferHandler(dealService)
	return f
}

func (f *offerHandlerFixture) company(slug string, deposit int64) *domain.Company {
	c := &domain.Company{Name: slug, Slug: slug, Status: "active"}
	f.companies.AddCompany(c)
	if deposit > 0 {
		f.deposits.Insert(context.Background(), &domain.DepositLedgerEntry{
			CompanyID: c.ID,
			Type:      domain.DepositTypeFund,
			Network:   "TRON",
			Token:     "USDT",
			Amount:    decimal.NewFromInt(deposit),
		})
	}
	return c
}

func (f *offerHandlerFixture) activeOffer(companyID uuid.UUID, amount int64) *domain.Offer {
	offer := &domain.Offer{
		CompanyID: companyID,
		Direction: domain.DirectionCashIn,
		Mode:      "standard",
		Network:   "TRON",
		Token:     "USDT",
		Amount:    decimal.NewFromInt(amount),
		Status:    domain.OfferStatusActive,
	}
	f.offers.AddOffer(offer)
	return offer
}

func TestOfferHandler_Create_Success(t *testing.T) {
	f := newOfferHandlerFixture()
	company := f.company("acme", 0)

	req, rec := jsonRequest(http.MethodPost, "/api/v1/offers", OfferRequest{
		CompanyID: company.ID.String(),
		Direction: "cash_in",
		Mode:      "standard",
		Network:   "TRON",
		Token:     "USDT",
		Amount:    "250",
	})
	c := echo.New().NewContext(req, rec)

	if err := f.handler.Create(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected status %d, got %d", http.StatusCreated, rec.Code)
	}

	var offer domain.Offer
	if err := json.Unmarshal(rec.Body.Bytes(), &offer); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if offer.Status != domain.OfferStatusActive {
		t.Errorf("expected active offer, got %s", offer.Status)
	}
}

func TestOfferHandler_Create_BadDirection(t *testing.T) {
	f := newOfferHandlerFixture()
	company := f.company("acme", 0)

	req, rec := jsonRequest(http.MethodPost, "/api/v1/offers", OfferRequest{
		CompanyID: company.ID.String(),
		Direction: "sideways",
		Amount:    "250",
	})
	c := echo.New().NewContext(req, rec)

	if err := f.handler.Create(c); err != nil {
		t.Fatalf("expected nil error (error in response), got %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestOfferHandler_Accept_Success(t *testing.T) {
	f := newOfferHandlerFixture()
	publisher := f.company("acme", 0)
	acceptor := f.company("globex", 1000)
	offer := f.activeOffer(publisher.ID, 500)

	req, rec := jsonRequest(http.MethodPost, "/api/v1/offers/"+offer.ID.String()+"/accept", AcceptRequest{
		CompanyID: acceptor.ID.String(),
	})
	c := echo.New().NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(offer.ID.String())

	if err := f.handler.Accept(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected status %d, got %d", http.StatusCreated, rec.Code)
	}

	var deal domain.Deal
	if err := json.Unmarshal(rec.Body.Bytes(), &deal); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if deal.CounterpartyCompanyID != acceptor.ID {
		t.Errorf("expected counterparty %s, got %s", acceptor.ID, deal.CounterpartyCompanyID)
	}
}

func TestOfferHandler_Accept_OwnOffer(t *testing.T) {
	f := newOfferHandlerFixture()
	publisher := f.company("acme", 1000)
	offer := f.activeOffer(publisher.ID, 500)

	req, rec := jsonRequest(http.MethodPost, "/api/v1/offers/"+offer.ID.String()+"/accept", AcceptRequest{
		CompanyID: publisher.ID.String(),
	})
	c := echo.New().NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(offer.ID.String())

	if err := f.handler.Accept(c); err != nil {
		t.Fatalf("expected nil error (error in response), got %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Errorf("expected status %d, got %d", http.StatusConflict, rec.Code)
	}
}

func TestOfferHandler_Accept_RiskGateDenied(t *testing.T) {
	f := newOfferHandlerFixture()
	publisher := f.company("acme", 0)
	acceptor := f.company("globex", 100)
	offer := f.activeOffer(publisher.ID, 500)

	req, rec := jsonRequest(http.MethodPost, "/api/v1/offers/"+offer.ID.String()+"/accept", AcceptRequest{
		CompanyID: acceptor.ID.String(),
	})
	c := echo.New().NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(offer.ID.String())

	if err := f.handler.Accept(c); err != nil {
		t.Fatalf("expected nil error (error in response), got %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected status %d, got %d", http.StatusForbidden, rec.Code)
	}
}

func TestOfferHandler_Accept_GoneOffer(t *testing.T) {
	f := newOfferHandlerFixture()
	acceptor := f.company("globex", 1000)

	req, rec := jsonRequest(http.MethodPost, "/api/v1/offers/"+uuid.NewString()+"/accept", AcceptRequest{
		CompanyID: acceptor.ID.String(),
	})
	c := echo.New().NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.NewString())

	if err := f.handler.Accept(c); err != nil {
		t.Fatalf("expected nil error (error in response), got %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestOfferHandler_Feed_ExcludesViewer(t *testing.T) {
	f := newOfferHandlerFixture()
	publisher := f.company("acme", 0)
	viewer := f.company("globex", 0)
	f.activeOffer(publisher.ID, 100)
	f.activeOffer(viewer.ID, 200)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/offers/feed?companyId="+viewer.ID.String(), nil)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	if err := f.handler.Feed(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	var offers []*domain.Offer
	if err := json.Unmarshal(rec.Body.Bytes(), &offers); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(offers) != 1 {
		t.Fatalf("expected 1 offer, got %d", len(offers))
	}
	if offers[0].CompanyID != publisher.ID {
		t.Errorf("expected publisher offer, got company %s", offers[0].CompanyID)
	}
}
