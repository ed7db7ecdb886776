package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rello/rello-backend/internal/domain"
	"github.com/rello/rello-backend/internal/middleware"
	"github.com/rello/rello-backend/internal/service"
	"github.com/rello/rello-backend/internal/testutil"
	"github.com/shopspring/decimal"
)

func newPayoutHandler(repo *testutil.MockOutgoingTransferRepository) *PayoutHandler {
	payoutService := service.NewPayoutService(repo, testutil.NewMockEmitter(), service.PayoutServiceConfig{
		ApprovalCode: "s3cret",
		CapPerTx:     decimal.NewFromInt(1000),
	})
	return NewPayoutHandler(payoutService)
}

func queuedTransfer(amount int64) *domain.OutgoingTransfer {
	return &domain.OutgoingTransfer{
		ID:           uuid.New(),
		Network:      "TRON",
		Token:        "USDT",
		Status:       domain.PayoutStatusQueued,
		FromWalletID: uuid.New(),
		ToAddress:    "Taddr",
		Amount:       decimal.NewFromInt(amount),
	}
}

func decideRequest(id uuid.UUID, code string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payouts/"+id.String()+"/approve", nil)
	if code != "" {
		req.Header.Set(middleware.OperatorCodeHeader, code)
	}
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id.String())
	return c, rec
}

func TestPayoutHandler_Approve_Success(t *testing.T) {
	repo := testutil.NewMockOutgoingTransferRepository()
	handler := newPayoutHandler(repo)

	p := queuedTransfer(100)
	repo.AddTransfer(p)

	c, rec := decideRequest(p.ID, "s3cret")
	if err := handler.Approve(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var payout domain.OutgoingTransfer
	if err := json.Unmarshal(rec.Body.Bytes(), &payout); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if payout.Status != domain.PayoutStatusApproved {
		t.Errorf("expected approved, got %s", payout.Status)
	}
}

func TestPayoutHandler_Approve_WrongCode(t *testing.T) {
	repo := testutil.NewMockOutgoingTransferRepository()
	handler := newPayoutHandler(repo)

	p := queuedTransfer(100)
	repo.AddTransfer(p)

	c, rec := decideRequest(p.ID, "wrong")
	if err := handler.Approve(c); err != nil {
		t.Fatalf("expected nil error (error in response), got %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestPayoutHandler_Approve_NotFound(t *testing.T) {
	handler := newPayoutHandler(testutil.NewMockOutgoingTransferRepository())

	c, rec := decideRequest(uuid.New(), "s3cret")
	if err := handler.Approve(c); err != nil {
		t.Fatalf("expected nil error (error in response), got %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestPayoutHandler_Approve_AlreadyDecided(t *testing.T) {
	repo := testutil.NewMockOutgoingTransferRepository()
	handler := newPayoutHandler(repo)

	p := queuedTransfer(100)
	p.Status = domain.PayoutStatusFailed
	repo.AddTransfer(p)

	c, rec := decideRequest(p.ID, "s3cret")
	if err := handler.Approve(c); err != nil {
		t.Fatalf("expected nil error (error in response), got %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Errorf("expected status %d, got %d", http.StatusConflict, rec.Code)
	}
}

func TestPayoutHandler_Approve_OverCap(t *testing.T) {
	repo := testutil.NewMockOutgoingTransferRepository()
	handler := newPayoutHandler(repo)

	p := queuedTransfer(5000)
	repo.AddTransfer(p)

	c, rec := decideRequest(p.ID, "s3cret")
	if err := handler.Approve(c); err != nil {
		t.Fatalf("expected nil error (error in response), got %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected status %d, got %d", http.StatusForbidden, rec.Code)
	}
}

func TestPayoutHandler_Stats(t *testing.T) {
	repo := testutil.NewMockOutgoingTransferRepository()
	handler := newPayoutHandler(repo)

	repo.AddTransfer(queuedTransfer(10))
	repo.AddTransfer(queuedTransfer(20))
	confirmed := queuedTransfer(30)
	confirmed.Status = domain.PayoutStatusConfirmed
	repo.AddTransfer(confirmed)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payouts/stats", nil)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	if err := handler.Stats(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	var counts map[domain.PayoutStatus]int64
	if err := json.Unmarshal(rec.Body.Bytes(), &counts); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if counts[domain.PayoutStatusQueued] != 2 {
		t.Errorf("expected 2 queued, got %d", counts[domain.PayoutStatusQueued])
	}
	if counts[domain.PayoutStatusConfirmed] != 1 {
		t.Errorf("expected 1 confirmed, got %d", counts[domain.PayoutStatusConfirmed])
	}
}
