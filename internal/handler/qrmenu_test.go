package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/restropos/api/internal/database"
	"github.com/restropos/api/internal/handler"
	"github.com/restropos/api/internal/service"
	"github.com/shopspring/decimal"
)

// --- Mock QrMenuStore ---

type mockQrMenuStore struct {
	getTableFn     func(ctx context.Context, qrCode string) (database.DiningTable, error)
	listEnabledFn  func(ctx context.Context, tenantID uuid.UUID) ([]database.MenuItem, error)
	listVariantsFn func(ctx context.Context, menuItemID uuid.UUID) ([]database.MenuVariant, error)
	listAddonsFn   func(ctx context.Context, menuItemID uuid.UUID) ([]database.MenuAddon, error)
}

func (m *mockQrMenuStore) GetDiningTableByQrCode(ctx context.Context, qrCode string) (database.DiningTable, error) {
	if m.getTableFn == nil {
		return database.DiningTable{}, pgx.ErrNoRows
	}
	return m.getTableFn(ctx, qrCode)
}

func (m *mockQrMenuStore) ListEnabledMenuItems(ctx context.Context, tenantID uuid.UUID) ([]database.MenuItem, error) {
	if m.listEnabledFn == nil {
		return nil, nil
	}
	return m.listEnabledFn(ctx, tenantID)
}

func (m *mockQrMenuStore) ListMenuVariants(ctx context.Context, menuItemID uuid.UUID) ([]database.MenuVariant, error) {
	if m.listVariantsFn == nil {
		return nil, nil
	}
	return m.listVariantsFn(ctx, menuItemID)
}

func (m *mockQrMenuStore) ListMenuAddons(ctx context.Context, menuItemID uuid.UUID) ([]database.MenuAddon, error) {
	if m.listAddonsFn == nil {
		return nil, nil
	}
	return m.listAddonsFn(ctx, menuItemID)
}

// --- Test helpers ---

func setupQrMenuRouter(store *mockQrMenuStore, svc *mockOrderService, hub *mockHub) *chi.Mux {
	h := handler.NewQrMenuHandler(store, svc, hub)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func testDiningTable(tenantID uuid.UUID, qrCode string) database.DiningTable {
	return database.DiningTable{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Title:     "Table 7",
		QrCode:    qrCode,
		CreatedAt: time.Now(),
	}
}

func qrNumeric(t *testing.T, val string) pgtype.Numeric {
	t.Helper()
	var n pgtype.Numeric
	if err := n.Scan(val); err != nil {
		t.Fatalf("scan numeric %q: %v", val, err)
	}
	return n
}

// --- Tests ---

func TestQrMenuGet_HappyPath(t *testing.T) {
	tenantID := uuid.New()
	table := testDiningTable(tenantID, "qr-abc")
	itemID := uuid.New()

	store := &mockQrMenuStore{
		getTableFn: func(ctx context.Context, qrCode string) (database.DiningTable, error) {
			if qrCode != "qr-abc" {
				return database.DiningTable{}, pgx.ErrNoRows
			}
			return table, nil
		},
		listEnabledFn: func(ctx context.Context, gotTenant uuid.UUID) ([]database.MenuItem, error) {
			if gotTenant != tenantID {
				t.Fatalf("listed menu for tenant %s, want %s", gotTenant, tenantID)
			}
			return []database.MenuItem{{
				ID:        itemID,
				TenantID:  tenantID,
				Title:     "Nasi Goreng",
				Price:     qrNumeric(t, "25000"),
				NetPrice:  qrNumeric(t, "22500"),
				IsEnabled: true,
			}}, nil
		},
		listVariantsFn: func(ctx context.Context, menuItemID uuid.UUID) ([]database.MenuVariant, error) {
			return []database.MenuVariant{{
				ID:         uuid.New(),
				MenuItemID: menuItemID,
				Title:      "Jumbo",
				Price:      qrNumeric(t, "32000"),
			}}, nil
		},
	}
	router := setupQrMenuRouter(store, &mockOrderService{}, &mockHub{})

	rr := doRequest(t, router, http.MethodGet, "/qrmenu/qr-abc", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}

	resp := decodeBody(t, rr)
	tableResp := resp["table"].(map[string]interface{})
	if tableResp["title"] != "Table 7" {
		t.Errorf("table title: got %v", tableResp["title"])
	}
	items := resp["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("items: got %d, want 1", len(items))
	}
	item := items[0].(map[string]interface{})
	if item["price"] != "25000" {
		t.Errorf("price: got %v, want 25000", item["price"])
	}
	variants := item["variants"].([]interface{})
	if len(variants) != 1 {
		t.Fatalf("variants: got %d, want 1", len(variants))
	}
}

func TestQrMenuGet_UnknownCode(t *testing.T) {
	router := setupQrMenuRouter(&mockQrMenuStore{}, &mockOrderService{}, &mockHub{})

	rr := doRequest(t, router, http.MethodGet, "/qrmenu/nope", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestQrMenuPlaceOrder_HappyPath(t *testing.T) {
	tenantID := uuid.New()
	table := testDiningTable(tenantID, "qr-abc")
	menuItemID := uuid.New()

	var captured service.PlaceOrderRequest
	svc := &mockOrderService{
		placeFn: func(ctx context.Context, req service.PlaceOrderRequest) (service.PlaceOrderResult, error) {
			captured = req
			order := testOrder(tenantID, 4)
			order.TableID = pgtype.UUID{Bytes: table.ID, Valid: true}
			return service.PlaceOrderResult{Order: order}, nil
		},
	}
	store := &mockQrMenuStore{
		getTableFn: func(ctx context.Context, qrCode string) (database.DiningTable, error) {
			return table, nil
		},
	}
	hub := &mockHub{}
	router := setupQrMenuRouter(store, svc, hub)

	rr := doRequest(t, router, http.MethodPost, "/qrmenu/qr-abc/place-order", map[string]interface{}{
		"items": []map[string]interface{}{
			{"menu_item_id": menuItemID.String(), "quantity": 2},
		},
		"customer": map[string]string{"name": "Budi", "phone": "08123"},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	if captured.TenantID != tenantID {
		t.Errorf("tenant: got %s, want %s", captured.TenantID, tenantID)
	}
	if captured.TableID != table.ID {
		t.Errorf("table: got %s, want %s", captured.TableID, table.ID)
	}
	if captured.DeliveryType != "DINE_IN" {
		t.Errorf("delivery type: got %s, want DINE_IN", captured.DeliveryType)
	}
	if captured.WithInvoice {
		t.Error("qr orders must not create invoices")
	}
	if captured.Customer == nil || captured.Customer.Phone != "08123" {
		t.Errorf("customer not forwarded: %+v", captured.Customer)
	}

	resp := decodeBody(t, rr)
	if resp["token_no"].(float64) != 4 {
		t.Errorf("token_no: got %v, want 4", resp["token_no"])
	}
	if len(hub.events) != 1 {
		t.Fatalf("broadcasts: got %d, want 1", len(hub.events))
	}
}

func TestQrMenuPlaceOrder_UnknownCode(t *testing.T) {
	svc := &mockOrderService{
		placeFn: func(ctx context.Context, req service.PlaceOrderRequest) (service.PlaceOrderResult, error) {
			t.Fatal("service must not be called for an unknown QR code")
			return service.PlaceOrderResult{}, nil
		},
	}
	router := setupQrMenuRouter(&mockQrMenuStore{}, svc, &mockHub{})

	rr := doRequest(t, router, http.MethodPost, "/qrmenu/nope/place-order", map[string]interface{}{
		"items": []map[string]interface{}{
			{"menu_item_id": uuid.New().String(), "quantity": 1},
		},
	})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestQrMenuPlaceOrder_EmptyItems(t *testing.T) {
	tenantID := uuid.New()
	store := &mockQrMenuStore{
		getTableFn: func(ctx context.Context, qrCode string) (database.DiningTable, error) {
			return testDiningTable(tenantID, qrCode), nil
		},
	}
	router := setupQrMenuRouter(store, &mockOrderService{}, &mockHub{})

	rr := doRequest(t, router, http.MethodPost, "/qrmenu/qr-abc/place-order", map[string]interface{}{
		"items": []map[string]interface{}{},
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestQrMenuPlaceOrder_ShortageConflict(t *testing.T) {
	tenantID := uuid.New()
	table := testDiningTable(tenantID, "qr-abc")

	svc := &mockOrderService{
		placeFn: func(ctx context.Context, req service.PlaceOrderRequest) (service.PlaceOrderResult, error) {
			return service.PlaceOrderResult{}, &service.ShortageError{
				Shortages: []service.Shortage{{
					IngredientTitle: "Rice",
					Required:        decimal.NewFromInt(300),
					Current:         decimal.NewFromInt(100),
				}},
			}
		},
	}
	store := &mockQrMenuStore{
		getTableFn: func(ctx context.Context, qrCode string) (database.DiningTable, error) {
			return table, nil
		},
	}
	hub := &mockHub{}
	router := setupQrMenuRouter(store, svc, hub)

	rr := doRequest(t, router, http.MethodPost, "/qrmenu/qr-abc/place-order", map[string]interface{}{
		"items": []map[string]interface{}{
			{"menu_item_id": uuid.New().String(), "quantity": 2},
		},
	})
	if rr.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
	if len(hub.events) != 0 {
		t.Errorf("broadcasts after rejection: got %d, want 0", len(hub.events))
	}
}
