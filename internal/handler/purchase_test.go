package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/restropos/api/internal/database"
	"github.com/restropos/api/internal/handler"
	"github.com/restropos/api/internal/middleware"
	"github.com/restropos/api/internal/service"
	"github.com/restropos/api/internal/ws"
)

// --- Mock PurchaseServicer ---

type mockPurchaseService struct {
	createFn  func(ctx context.Context, req service.CreatePurchaseOrderRequest) (database.PurchaseOrder, []database.PurchaseOrderItem, error)
	fulfillFn func(ctx context.Context, req service.FulfillPurchaseOrderRequest) (database.PurchaseOrder, []uuid.UUID, error)
}

func (m *mockPurchaseService) CreatePurchaseOrder(ctx context.Context, req service.CreatePurchaseOrderRequest) (database.PurchaseOrder, []database.PurchaseOrderItem, error) {
	return m.createFn(ctx, req)
}

func (m *mockPurchaseService) FulfillPurchaseOrder(ctx context.Context, req service.FulfillPurchaseOrderRequest) (database.PurchaseOrder, []uuid.UUID, error) {
	return m.fulfillFn(ctx, req)
}

// --- Mock PurchaseReadStore ---

type mockPurchaseReadStore struct {
	getPOFn       func(ctx context.Context, arg database.GetPurchaseOrderParams) (database.PurchaseOrder, error)
	listPOItemsFn func(ctx context.Context, purchaseOrderID uuid.UUID) ([]database.PurchaseOrderItem, error)
}

func (m *mockPurchaseReadStore) GetPurchaseOrder(ctx context.Context, arg database.GetPurchaseOrderParams) (database.PurchaseOrder, error) {
	if m.getPOFn != nil {
		return m.getPOFn(ctx, arg)
	}
	return database.PurchaseOrder{}, pgx.ErrNoRows
}

func (m *mockPurchaseReadStore) ListPurchaseOrderItems(ctx context.Context, purchaseOrderID uuid.UUID) ([]database.PurchaseOrderItem, error) {
	if m.listPOItemsFn != nil {
		return m.listPOItemsFn(ctx, purchaseOrderID)
	}
	return []database.PurchaseOrderItem{}, nil
}

func setupPurchaseRouter(svc *mockPurchaseService, store *mockPurchaseReadStore, hub *mockHub) *chi.Mux {
	h := handler.NewPurchaseHandler(svc, store, hub)
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(testJWTSecret))
		h.RegisterRoutes(r)
	})
	return r
}

func testPurchaseOrder(tenantID uuid.UUID, poNumber int64, status string) database.PurchaseOrder {
	return database.PurchaseOrder{
		ID:         uuid.New(),
		TenantID:   tenantID,
		PoNumber:   poNumber,
		VendorName: "Pasar Induk",
		Status:     status,
		CreatedBy:  "manager@warung.id",
		CreatedAt:  time.Now(),
	}
}

// --- Tests ---

func TestPurchaseCreate_HappyPath(t *testing.T) {
	tenantID := uuid.New()
	claims := testClaims(tenantID)
	itemID := uuid.New()

	svc := &mockPurchaseService{
		createFn: func(ctx context.Context, req service.CreatePurchaseOrderRequest) (database.PurchaseOrder, []database.PurchaseOrderItem, error) {
			if req.VendorName != "Pasar Induk" {
				t.Errorf("vendor: got %v", req.VendorName)
			}
			if len(req.Lines) != 1 || req.Lines[0].InventoryItemID != itemID {
				t.Errorf("unexpected lines: %+v", req.Lines)
			}
			return testPurchaseOrder(tenantID, 8, "pending"), nil, nil
		},
	}
	router := setupPurchaseRouter(svc, &mockPurchaseReadStore{}, &mockHub{})

	rr := doAuthRequest(t, router, "POST", "/purchase-orders", map[string]interface{}{
		"vendor_name": "Pasar Induk",
		"items": []map[string]string{
			{"inventory_item_id": itemID.String(), "quantity": "5000", "unit_price": "12"},
		},
	}, claims)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	resp := decodeBody(t, rr)
	if resp["po_number"] != float64(8) {
		t.Errorf("po_number: got %v, want 8", resp["po_number"])
	}
	if resp["status"] != "pending" {
		t.Errorf("status: got %v, want pending", resp["status"])
	}
}

func TestPurchaseCreate_MissingVendor(t *testing.T) {
	router := setupPurchaseRouter(&mockPurchaseService{}, &mockPurchaseReadStore{}, &mockHub{})
	claims := testClaims(uuid.New())

	rr := doAuthRequest(t, router, "POST", "/purchase-orders", map[string]interface{}{
		"items": []map[string]string{
			{"inventory_item_id": uuid.New().String(), "quantity": "10", "unit_price": "1"},
		},
	}, claims)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestPurchaseFulfill_BroadcastsReenabled(t *testing.T) {
	tenantID := uuid.New()
	claims := testClaims(tenantID)
	poID := uuid.New()
	reenabledID := uuid.New()
	hub := &mockHub{}

	svc := &mockPurchaseService{
		fulfillFn: func(ctx context.Context, req service.FulfillPurchaseOrderRequest) (database.PurchaseOrder, []uuid.UUID, error) {
			if req.TenantID != tenantID || req.PurchaseOrderID != poID {
				t.Errorf("ids: got %v/%v, want %v/%v", req.TenantID, req.PurchaseOrderID, tenantID, poID)
			}
			if !req.FulfilledAt.IsZero() {
				t.Errorf("expected zero fulfilled time for empty body, got %v", req.FulfilledAt)
			}
			return testPurchaseOrder(tenantID, 12, "completed"), []uuid.UUID{reenabledID}, nil
		},
	}
	router := setupPurchaseRouter(svc, &mockPurchaseReadStore{}, hub)

	rr := doAuthRequest(t, router, "POST", "/purchase-orders/"+poID.String()+"/fulfill", nil, claims)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeBody(t, rr)
	reenabled, ok := resp["reenabled_menu_items"].([]interface{})
	if !ok || len(reenabled) != 1 || reenabled[0] != reenabledID.String() {
		t.Errorf("reenabled: got %v, want [%s]", resp["reenabled_menu_items"], reenabledID)
	}

	if len(hub.events) != 1 || hub.events[0].Type != ws.EventMenuAvailability {
		t.Errorf("expected availability broadcast, got %+v", hub.events)
	}
}

func TestPurchaseFulfill_PassesFulfilledDate(t *testing.T) {
	tenantID := uuid.New()
	claims := testClaims(tenantID)
	poID := uuid.New()
	want := time.Date(2025, 11, 3, 14, 30, 0, 0, time.UTC)

	svc := &mockPurchaseService{
		fulfillFn: func(ctx context.Context, req service.FulfillPurchaseOrderRequest) (database.PurchaseOrder, []uuid.UUID, error) {
			if !req.FulfilledAt.Equal(want) {
				t.Errorf("fulfilled at: got %v, want %v", req.FulfilledAt, want)
			}
			return testPurchaseOrder(tenantID, 12, "completed"), nil, nil
		},
	}
	router := setupPurchaseRouter(svc, &mockPurchaseReadStore{}, &mockHub{})

	rr := doAuthRequest(t, router, "POST", "/purchase-orders/"+poID.String()+"/fulfill", map[string]interface{}{
		"fulfilled_date": "2025-11-03T14:30:00Z",
	}, claims)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
}

func TestPurchaseFulfill_InvalidFulfilledDate(t *testing.T) {
	claims := testClaims(uuid.New())
	svc := &mockPurchaseService{
		fulfillFn: func(ctx context.Context, req service.FulfillPurchaseOrderRequest) (database.PurchaseOrder, []uuid.UUID, error) {
			t.Error("service must not be called for a malformed date")
			return database.PurchaseOrder{}, nil, nil
		},
	}
	router := setupPurchaseRouter(svc, &mockPurchaseReadStore{}, &mockHub{})

	rr := doAuthRequest(t, router, "POST", "/purchase-orders/"+uuid.New().String()+"/fulfill", map[string]interface{}{
		"fulfilled_date": "03/11/2025",
	}, claims)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestPurchaseFulfill_Closed(t *testing.T) {
	claims := testClaims(uuid.New())
	hub := &mockHub{}

	svc := &mockPurchaseService{
		fulfillFn: func(ctx context.Context, req service.FulfillPurchaseOrderRequest) (database.PurchaseOrder, []uuid.UUID, error) {
			return database.PurchaseOrder{}, nil, service.ErrPurchaseOrderClosed
		},
	}
	router := setupPurchaseRouter(svc, &mockPurchaseReadStore{}, hub)

	rr := doAuthRequest(t, router, "POST", "/purchase-orders/"+uuid.New().String()+"/fulfill", nil, claims)

	if rr.Code != http.StatusConflict {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
	if len(hub.events) != 0 {
		t.Error("failed fulfillment must not broadcast")
	}
}

func TestPurchaseFulfill_NotFound(t *testing.T) {
	claims := testClaims(uuid.New())
	svc := &mockPurchaseService{
		fulfillFn: func(ctx context.Context, req service.FulfillPurchaseOrderRequest) (database.PurchaseOrder, []uuid.UUID, error) {
			return database.PurchaseOrder{}, nil, service.ErrPurchaseOrderNotFound
		},
	}
	router := setupPurchaseRouter(svc, &mockPurchaseReadStore{}, &mockHub{})

	rr := doAuthRequest(t, router, "POST", "/purchase-orders/"+uuid.New().String()+"/fulfill", nil, claims)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestPurchaseGet_NotFound(t *testing.T) {
	router := setupPurchaseRouter(&mockPurchaseService{}, &mockPurchaseReadStore{}, &mockHub{})
	claims := testClaims(uuid.New())

	rr := doAuthRequest(t, router, "GET", "/purchase-orders/"+uuid.New().String(), nil, claims)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}
