package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/restropos/api/internal/database"
	"github.com/restropos/api/internal/middleware"
	"github.com/restropos/api/internal/service"
)

// InventoryServicer defines the service methods needed by inventory
// handlers. Satisfied by *service.InventoryService.
type InventoryServicer interface {
	CreateItem(ctx context.Context, req service.CreateItemRequest) (database.InventoryItem, error)
	RecordMovement(ctx context.Context, req service.RecordMovementRequest) (database.InventoryItem, error)
}

// InventoryStore defines the database methods needed by inventory read
// handlers. Satisfied by *database.Queries.
type InventoryStore interface {
	GetInventoryItem(ctx context.Context, arg database.GetInventoryItemParams) (database.InventoryItem, error)
	ListInventoryItems(ctx context.Context, tenantID uuid.UUID) ([]database.InventoryItem, error)
	ListInventoryLogs(ctx context.Context, arg database.ListInventoryLogsParams) ([]database.InventoryLog, error)
}

// InventoryHandler handles ingredient stock endpoints.
type InventoryHandler struct {
	svc   InventoryServicer
	store InventoryStore
}

func NewInventoryHandler(svc InventoryServicer, store InventoryStore) *InventoryHandler {
	return &InventoryHandler{svc: svc, store: store}
}

// RegisterRoutes registers inventory endpoints on the given Chi router.
func (h *InventoryHandler) RegisterRoutes(r chi.Router) {
	r.Post("/inventory/items", h.CreateItem)
	r.Get("/inventory/items", h.ListItems)
	r.Get("/inventory/items/{id}", h.GetItem)
	r.Post("/inventory/items/{id}/movements", h.RecordMovement)
	r.Get("/inventory/items/{id}/logs", h.ListLogs)
}

// --- Request / Response types ---

type createItemRequest struct {
	Title        string `json:"title"`
	Quantity     string `json:"quantity"`
	Unit         string `json:"unit"`
	MinThreshold string `json:"min_quantity_threshold"`
}

type recordMovementRequest struct {
	MovementType string `json:"movement_type"`
	Quantity     string `json:"quantity"`
	Note         string `json:"note"`
}

type inventoryItemResponse struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	Quantity     string    `json:"quantity"`
	Unit         string    `json:"unit"`
	MinThreshold string    `json:"min_quantity_threshold"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type inventoryLogResponse struct {
	ID               uuid.UUID `json:"id"`
	InventoryItemID  uuid.UUID `json:"inventory_item_id"`
	MovementType     string    `json:"movement_type"`
	QuantityChange   string    `json:"quantity_change"`
	PreviousQuantity string    `json:"previous_quantity"`
	NewQuantity      string    `json:"new_quantity"`
	Note             *string   `json:"note"`
	CreatedBy        string    `json:"created_by"`
	CreatedAt        time.Time `json:"created_at"`
}

// --- Handlers ---

// CreateItem handles POST /inventory/items.
func (h *InventoryHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Title == "" || req.Unit == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title and unit are required"})
		return
	}
	quantity, err := parseDecimal(req.Quantity)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid quantity"})
		return
	}
	threshold, err := parseDecimal(req.MinThreshold)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid min_quantity_threshold"})
		return
	}

	item, err := h.svc.CreateItem(r.Context(), service.CreateItemRequest{
		TenantID:     claims.TenantID,
		Title:        req.Title,
		Quantity:     quantity,
		Unit:         req.Unit,
		MinThreshold: threshold,
		Actor:        claims.Username,
	})
	if err != nil {
		if errors.Is(err, service.ErrNegativeQuantity) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: create inventory item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toInventoryItemResponse(item))
}

// RecordMovement handles POST /inventory/items/{id}/movements.
func (h *InventoryHandler) RecordMovement(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}
	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item ID"})
		return
	}

	var req recordMovementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	quantity, err := parseDecimal(req.Quantity)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid quantity"})
		return
	}

	item, err := h.svc.RecordMovement(r.Context(), service.RecordMovementRequest{
		ItemID:       itemID,
		TenantID:     claims.TenantID,
		MovementType: req.MovementType,
		Quantity:     quantity,
		Note:         req.Note,
		Actor:        claims.Username,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrItemNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrInvalidMovementType),
			errors.Is(err, service.ErrInvalidQuantity):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrInsufficientQuantity):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: record movement: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, toInventoryItemResponse(item))
}

// GetItem handles GET /inventory/items/{id}.
func (h *InventoryHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}
	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item ID"})
		return
	}

	item, err := h.store.GetInventoryItem(r.Context(), database.GetInventoryItemParams{
		ID:       itemID,
		TenantID: claims.TenantID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "inventory item not found"})
			return
		}
		log.Printf("ERROR: get inventory item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toInventoryItemResponse(item))
}

// ListItems handles GET /inventory/items.
func (h *InventoryHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	items, err := h.store.ListInventoryItems(r.Context(), claims.TenantID)
	if err != nil {
		log.Printf("ERROR: list inventory items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]inventoryItemResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, toInventoryItemResponse(item))
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListLogs handles GET /inventory/items/{id}/logs: the append-only
// movement history, oldest first.
func (h *InventoryHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}
	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item ID"})
		return
	}

	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 && v <= 500 {
			limit = v
		}
	}

	logs, err := h.store.ListInventoryLogs(r.Context(), database.ListInventoryLogsParams{
		InventoryItemID: itemID,
		TenantID:        claims.TenantID,
		Limit:           int32(limit),
	})
	if err != nil {
		log.Printf("ERROR: list inventory logs: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]inventoryLogResponse, 0, len(logs))
	for _, entry := range logs {
		resp = append(resp, inventoryLogResponse{
			ID:               entry.ID,
			InventoryItemID:  entry.InventoryItemID,
			MovementType:     entry.MovementType,
			QuantityChange:   numericString(entry.QuantityChange),
			PreviousQuantity: numericString(entry.PreviousQuantity),
			NewQuantity:      numericString(entry.NewQuantity),
			Note:             textPtr(entry.Note),
			CreatedBy:        entry.CreatedBy,
			CreatedAt:        entry.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func toInventoryItemResponse(item database.InventoryItem) inventoryItemResponse {
	return inventoryItemResponse{
		ID:           item.ID,
		Title:        item.Title,
		Quantity:     numericString(item.Quantity),
		Unit:         item.Unit,
		MinThreshold: numericString(item.MinQuantityThreshold),
		Status:       item.Status,
		CreatedAt:    item.CreatedAt,
		UpdatedAt:    item.UpdatedAt,
	}
}
