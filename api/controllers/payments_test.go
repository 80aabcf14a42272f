package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/apprl/dashboard-backend/internal/payments"
	"github.com/apprl/dashboard-backend/pkg/db/models"
)

type testPaymentsService struct {
	getFn      func(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	listFn     func(ctx context.Context, params payments.ListParams) (*payments.ListResult, error)
	markPaidFn func(ctx context.Context, id uuid.UUID) (*models.Payment, error)
}

func (s *testPaymentsService) Get(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	if s.getFn != nil {
		return s.getFn(ctx, id)
	}
	return &models.Payment{}, nil
}

func (s *testPaymentsService) List(ctx context.Context, params payments.ListParams) (*payments.ListResult, error) {
	if s.listFn != nil {
		return s.listFn(ctx, params)
	}
	return &payments.ListResult{}, nil
}

func (s *testPaymentsService) MarkPaid(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	if s.markPaidFn != nil {
		return s.markPaidFn(ctx, id)
	}
	return &models.Payment{}, nil
}

func TestListPaymentsParsesFilters(t *testing.T) {
	userID := uuid.New()
	var captured payments.ListParams
	svc := &testPaymentsService{
		listFn: func(ctx context.Context, params payments.ListParams) (*payments.ListResult, error) {
			captured = params
			return &payments.ListResult{}, nil
		},
	}

	target := "/api/v1/payments?limit=10&paid=false&user_id=" + userID.String()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	resp := httptest.NewRecorder()
	ListPayments(svc, testControllerLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body %s", resp.Code, resp.Body.String())
	}
	if captured.Limit != 10 {
		t.Fatalf("unexpected limit %d", captured.Limit)
	}
	if captured.UserID == nil || *captured.UserID != userID {
		t.Fatalf("user filter not parsed: %+v", captured.UserID)
	}
	if captured.Paid == nil || *captured.Paid {
		t.Fatalf("paid filter not parsed: %+v", captured.Paid)
	}
}

func TestListPaymentsRejectsBadPaidFilter(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments?paid=maybe", nil)
	resp := httptest.NewRecorder()
	ListPayments(&testPaymentsService{}, testControllerLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestGetPaymentInvalidID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/bogus", nil)
	req = addRouteParam(req, "paymentID", "bogus")
	resp := httptest.NewRecorder()
	GetPayment(&testPaymentsService{}, testControllerLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestMarkPaymentPaidSuccess(t *testing.T) {
	paymentID := uuid.New()
	svc := &testPaymentsService{
		markPaidFn: func(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
			if id != paymentID {
				t.Fatalf("unexpected payment id %s", id)
			}
			return &models.Payment{ID: id, Paid: true, Amount: decimal.RequireFromString("120.00")}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/"+paymentID.String()+"/paid", nil)
	req = addRouteParam(req, "paymentID", paymentID.String())
	resp := httptest.NewRecorder()
	MarkPaymentPaid(svc, testControllerLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data models.Payment `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !envelope.Data.Paid {
		t.Fatal("expected paid payment in response")
	}
}
