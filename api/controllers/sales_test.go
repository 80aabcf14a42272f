package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/apprl/dashboard-backend/internal/sales"
	"github.com/apprl/dashboard-backend/pkg/db/models"
	"github.com/apprl/dashboard-backend/pkg/enums"
	"github.com/apprl/dashboard-backend/pkg/logger"
)

type testSalesService struct {
	ingestFn       func(ctx context.Context, input sales.IngestSaleInput) (*models.Sale, error)
	getFn          func(ctx context.Context, id uuid.UUID) (*sales.SaleDetail, error)
	listFn         func(ctx context.Context, params sales.ListSalesParams) (*sales.ListSalesResult, error)
	acceptFn       func(ctx context.Context, id uuid.UUID) (*models.Sale, error)
	rejectFn       func(ctx context.Context, id uuid.UUID, note string) (*models.Sale, error)
	redistributeFn func(ctx context.Context, id uuid.UUID) (*models.Sale, error)
}

func (s *testSalesService) Ingest(ctx context.Context, input sales.IngestSaleInput) (*models.Sale, error) {
	if s.ingestFn != nil {
		return s.ingestFn(ctx, input)
	}
	return &models.Sale{}, nil
}

func (s *testSalesService) Get(ctx context.Context, id uuid.UUID) (*sales.SaleDetail, error) {
	if s.getFn != nil {
		return s.getFn(ctx, id)
	}
	return &sales.SaleDetail{}, nil
}

func (s *testSalesService) List(ctx context.Context, params sales.ListSalesParams) (*sales.ListSalesResult, error) {
	if s.listFn != nil {
		return s.listFn(ctx, params)
	}
	return &sales.ListSalesResult{}, nil
}

func (s *testSalesService) Accept(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	if s.acceptFn != nil {
		return s.acceptFn(ctx, id)
	}
	return &models.Sale{}, nil
}

func (s *testSalesService) Reject(ctx context.Context, id uuid.UUID, note string) (*models.Sale, error) {
	if s.rejectFn != nil {
		return s.rejectFn(ctx, id, note)
	}
	return &models.Sale{}, nil
}

func (s *testSalesService) Redistribute(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	if s.redistributeFn != nil {
		return s.redistributeFn(ctx, id)
	}
	return &models.Sale{}, nil
}

func testControllerLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func addRouteParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestIngestSaleSuccess(t *testing.T) {
	var captured sales.IngestSaleInput
	svc := &testSalesService{
		ingestFn: func(ctx context.Context, input sales.IngestSaleInput) (*models.Sale, error) {
			captured = input
			return &models.Sale{ID: uuid.New(), Network: input.Network}, nil
		},
	}

	body := `{"network":"awin","network_sale_id":"aw-1","sale_type":"cost_per_order","status":"pending","commission_amount":"100.00","currency":"EUR"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sales", strings.NewReader(body))
	resp := httptest.NewRecorder()
	IngestSale(svc, testControllerLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body %s", resp.Code, resp.Body.String())
	}
	if captured.Network != "awin" || captured.NetworkSaleID != "aw-1" {
		t.Fatalf("unexpected input %+v", captured)
	}
	if !captured.CommissionAmount.Equal(decimal.RequireFromString("100.00")) {
		t.Fatalf("unexpected commission %s", captured.CommissionAmount)
	}
}

func TestIngestSaleRejectsMalformedBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sales", strings.NewReader("{not json"))
	resp := httptest.NewRecorder()
	IngestSale(&testSalesService{}, testControllerLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestIngestSaleRejectsUnknownFields(t *testing.T) {
	body := `{"network":"awin","bogus":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sales", strings.NewReader(body))
	resp := httptest.NewRecorder()
	IngestSale(&testSalesService{}, testControllerLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestListSalesParsesFilters(t *testing.T) {
	publisherID := uuid.New()
	var captured sales.ListSalesParams
	svc := &testSalesService{
		listFn: func(ctx context.Context, params sales.ListSalesParams) (*sales.ListSalesResult, error) {
			captured = params
			return &sales.ListSalesResult{}, nil
		},
	}

	target := "/api/v1/sales?limit=25&status=confirmed&network=tradedoubler&publisher_id=" + publisherID.String()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	resp := httptest.NewRecorder()
	ListSales(svc, testControllerLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body %s", resp.Code, resp.Body.String())
	}
	if captured.Limit != 25 || captured.Network != "tradedoubler" {
		t.Fatalf("unexpected params %+v", captured)
	}
	if captured.Status == nil || *captured.Status != enums.SaleStatusConfirmed {
		t.Fatalf("status filter not parsed: %+v", captured.Status)
	}
	if captured.PublisherID == nil || *captured.PublisherID != publisherID {
		t.Fatalf("publisher filter not parsed: %+v", captured.PublisherID)
	}
}

func TestListSalesRejectsBadStatus(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sales?status=bogus", nil)
	resp := httptest.NewRecorder()
	ListSales(&testSalesService{}, testControllerLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestGetSaleInvalidID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sales/not-a-uuid", nil)
	req = addRouteParam(req, "saleID", "not-a-uuid")
	resp := httptest.NewRecorder()
	GetSale(&testSalesService{}, testControllerLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAcceptSaleSuccess(t *testing.T) {
	saleID := uuid.New()
	svc := &testSalesService{
		acceptFn: func(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
			if id != saleID {
				t.Fatalf("unexpected sale id %s", id)
			}
			return &models.Sale{ID: id, Status: enums.SaleStatusConfirmed}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sales/"+saleID.String()+"/accept", nil)
	req = addRouteParam(req, "saleID", saleID.String())
	resp := httptest.NewRecorder()
	AcceptSale(svc, testControllerLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data models.Sale `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.Status != enums.SaleStatusConfirmed {
		t.Fatalf("unexpected status %s", envelope.Data.Status)
	}
}

func TestRejectSalePassesNote(t *testing.T) {
	saleID := uuid.New()
	var note string
	svc := &testSalesService{
		rejectFn: func(ctx context.Context, id uuid.UUID, n string) (*models.Sale, error) {
			note = n
			return &models.Sale{ID: id, Status: enums.SaleStatusDeclined}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sales/"+saleID.String()+"/reject", strings.NewReader(`{"note":"duplicate order"}`))
	req = addRouteParam(req, "saleID", saleID.String())
	resp := httptest.NewRecorder()
	RejectSale(svc, testControllerLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body %s", resp.Code, resp.Body.String())
	}
	if note != "duplicate order" {
		t.Fatalf("unexpected note %q", note)
	}
}

func TestRejectSaleAllowsEmptyBody(t *testing.T) {
	saleID := uuid.New()
	called := false
	svc := &testSalesService{
		rejectFn: func(ctx context.Context, id uuid.UUID, n string) (*models.Sale, error) {
			called = true
			return &models.Sale{ID: id}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sales/"+saleID.String()+"/reject", nil)
	req = addRouteParam(req, "saleID", saleID.String())
	resp := httptest.NewRecorder()
	RejectSale(svc, testControllerLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !called {
		t.Fatal("expected service called")
	}
}

func TestRedistributeSaleSuccess(t *testing.T) {
	saleID := uuid.New()
	svc := &testSalesService{
		redistributeFn: func(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
			return &models.Sale{ID: id}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sales/"+saleID.String()+"/redistribute", nil)
	req = addRouteParam(req, "saleID", saleID.String())
	resp := httptest.NewRecorder()
	RedistributeSale(svc, testControllerLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body %s", resp.Code, resp.Body.String())
	}
}
