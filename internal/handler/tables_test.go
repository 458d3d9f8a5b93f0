package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/restropos/api/internal/database"
	"github.com/restropos/api/internal/handler"
	"github.com/restropos/api/internal/middleware"
)

// --- Mock TableStore ---

type mockTableStore struct {
	createFn func(ctx context.Context, arg database.CreateDiningTableParams) (database.DiningTable, error)
	listFn   func(ctx context.Context, tenantID uuid.UUID) ([]database.DiningTable, error)
}

func (m *mockTableStore) CreateDiningTable(ctx context.Context, arg database.CreateDiningTableParams) (database.DiningTable, error) {
	return m.createFn(ctx, arg)
}

func (m *mockTableStore) ListDiningTables(ctx context.Context, tenantID uuid.UUID) ([]database.DiningTable, error) {
	if m.listFn == nil {
		return nil, nil
	}
	return m.listFn(ctx, tenantID)
}

func setupTableRouter(store *mockTableStore) *chi.Mux {
	h := handler.NewTableHandler(store)
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(testJWTSecret))
		h.RegisterRoutes(r)
	})
	return r
}

// --- Tests ---

func TestTableCreate_HappyPath(t *testing.T) {
	tenantID := uuid.New()
	claims := testClaims(tenantID)

	store := &mockTableStore{
		createFn: func(ctx context.Context, arg database.CreateDiningTableParams) (database.DiningTable, error) {
			if arg.TenantID != tenantID {
				t.Fatalf("tenant: got %s, want %s", arg.TenantID, tenantID)
			}
			if arg.QrCode == "" {
				t.Fatal("qr code must be generated server side")
			}
			return database.DiningTable{
				ID:        uuid.New(),
				TenantID:  arg.TenantID,
				Title:     arg.Title,
				QrCode:    arg.QrCode,
				CreatedAt: time.Now(),
			}, nil
		},
	}
	router := setupTableRouter(store)

	rr := doAuthRequest(t, router, http.MethodPost, "/tables", map[string]string{
		"title": "Table 12",
	}, claims)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	resp := decodeBody(t, rr)
	if resp["title"] != "Table 12" {
		t.Errorf("title: got %v", resp["title"])
	}
	if resp["qr_code"] == "" {
		t.Error("response missing qr_code")
	}
}

func TestTableCreate_MissingTitle(t *testing.T) {
	claims := testClaims(uuid.New())
	store := &mockTableStore{
		createFn: func(ctx context.Context, arg database.CreateDiningTableParams) (database.DiningTable, error) {
			t.Fatal("store must not be called for an invalid request")
			return database.DiningTable{}, nil
		},
	}
	router := setupTableRouter(store)

	rr := doAuthRequest(t, router, http.MethodPost, "/tables", map[string]string{}, claims)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestTableList_ScopedToTenant(t *testing.T) {
	tenantID := uuid.New()
	claims := testClaims(tenantID)

	store := &mockTableStore{
		listFn: func(ctx context.Context, gotTenant uuid.UUID) ([]database.DiningTable, error) {
			if gotTenant != tenantID {
				t.Fatalf("tenant: got %s, want %s", gotTenant, tenantID)
			}
			return []database.DiningTable{
				{ID: uuid.New(), TenantID: tenantID, Title: "Table 1", QrCode: "qr-1"},
				{ID: uuid.New(), TenantID: tenantID, Title: "Table 2", QrCode: "qr-2"},
			}, nil
		},
	}
	router := setupTableRouter(store)

	rr := doAuthRequest(t, router, http.MethodGet, "/tables", nil, claims)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}

	var resp []map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp) != 2 {
		t.Fatalf("tables: got %d, want 2", len(resp))
	}
}
