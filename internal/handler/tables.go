package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/restropos/api/internal/database"
	"github.com/restropos/api/internal/middleware"
)

// TableStore defines the database methods needed by table handlers.
// Satisfied by *database.Queries.
type TableStore interface {
	CreateDiningTable(ctx context.Context, arg database.CreateDiningTableParams) (database.DiningTable, error)
	ListDiningTables(ctx context.Context, tenantID uuid.UUID) ([]database.DiningTable, error)
}

// TableHandler handles dining table endpoints.
type TableHandler struct {
	store TableStore
}

func NewTableHandler(store TableStore) *TableHandler {
	return &TableHandler{store: store}
}

// RegisterRoutes registers table endpoints on the given Chi router.
func (h *TableHandler) RegisterRoutes(r chi.Router) {
	r.Post("/tables", h.Create)
	r.Get("/tables", h.List)
}

type createTableRequest struct {
	Title string `json:"title"`
}

type tableResponse struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	QrCode    string    `json:"qr_code"`
	CreatedAt time.Time `json:"created_at"`
}

// Create handles POST /tables. The QR code is a fresh random id; the
// printed code routes customers to the public menu for this table.
func (h *TableHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}

	table, err := h.store.CreateDiningTable(r.Context(), database.CreateDiningTableParams{
		TenantID: claims.TenantID,
		Title:    req.Title,
		QrCode:   uuid.NewString(),
	})
	if err != nil {
		log.Printf("ERROR: create dining table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toTableResponse(table))
}

// List handles GET /tables.
func (h *TableHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	tables, err := h.store.ListDiningTables(r.Context(), claims.TenantID)
	if err != nil {
		log.Printf("ERROR: list dining tables: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]tableResponse, 0, len(tables))
	for _, table := range tables {
		resp = append(resp, toTableResponse(table))
	}
	writeJSON(w, http.StatusOK, resp)
}

func toTableResponse(table database.DiningTable) tableResponse {
	return tableResponse{
		ID:        table.ID,
		Title:     table.Title,
		QrCode:    table.QrCode,
		CreatedAt: table.CreatedAt,
	}
}
