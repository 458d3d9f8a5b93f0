package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/restropos/api/internal/database"
	"github.com/restropos/api/internal/middleware"
	"github.com/restropos/api/internal/service"
	"github.com/restropos/api/internal/ws"
)

// PurchaseServicer defines the service methods needed by purchase
// order handlers. Satisfied by *service.PurchaseService.
type PurchaseServicer interface {
	CreatePurchaseOrder(ctx context.Context, req service.CreatePurchaseOrderRequest) (database.PurchaseOrder, []database.PurchaseOrderItem, error)
	FulfillPurchaseOrder(ctx context.Context, req service.FulfillPurchaseOrderRequest) (database.PurchaseOrder, []uuid.UUID, error)
}

// PurchaseReadStore defines the database methods needed by PO read
// handlers. Satisfied by *database.Queries.
type PurchaseReadStore interface {
	GetPurchaseOrder(ctx context.Context, arg database.GetPurchaseOrderParams) (database.PurchaseOrder, error)
	ListPurchaseOrderItems(ctx context.Context, purchaseOrderID uuid.UUID) ([]database.PurchaseOrderItem, error)
}

// PurchaseHandler handles purchase order endpoints.
type PurchaseHandler struct {
	svc   PurchaseServicer
	store PurchaseReadStore
	hub   Broadcaster
}

func NewPurchaseHandler(svc PurchaseServicer, store PurchaseReadStore, hub Broadcaster) *PurchaseHandler {
	return &PurchaseHandler{svc: svc, store: store, hub: hub}
}

// RegisterRoutes registers purchase order endpoints on the given Chi
// router.
func (h *PurchaseHandler) RegisterRoutes(r chi.Router) {
	r.Post("/purchase-orders", h.Create)
	r.Get("/purchase-orders/{id}", h.Get)
	r.Post("/purchase-orders/{id}/fulfill", h.Fulfill)
}

// --- Request / Response types ---

type createPurchaseOrderRequest struct {
	VendorName string                `json:"vendor_name"`
	Items      []purchaseLineRequest `json:"items"`
}

type purchaseLineRequest struct {
	InventoryItemID string `json:"inventory_item_id"`
	Quantity        string `json:"quantity"`
	UnitPrice       string `json:"unit_price"`
}

type purchaseOrderResponse struct {
	ID          uuid.UUID              `json:"id"`
	PoNumber    int64                  `json:"po_number"`
	VendorName  string                 `json:"vendor_name"`
	Status      string                 `json:"status"`
	FulfilledAt *time.Time             `json:"fulfilled_at"`
	CreatedBy   string                 `json:"created_by"`
	CreatedAt   time.Time              `json:"created_at"`
	Items       []purchaseItemResponse `json:"items,omitempty"`
}

type purchaseItemResponse struct {
	ID              uuid.UUID `json:"id"`
	InventoryItemID uuid.UUID `json:"inventory_item_id"`
	Quantity        string    `json:"quantity"`
	UnitPrice       string    `json:"unit_price"`
}

type fulfillRequest struct {
	FulfilledDate string `json:"fulfilled_date"`
}

type fulfillResponse struct {
	Order          purchaseOrderResponse `json:"order"`
	ReenabledItems []uuid.UUID           `json:"reenabled_menu_items,omitempty"`
}

// --- Handlers ---

// Create handles POST /purchase-orders.
func (h *PurchaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createPurchaseOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.VendorName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "vendor_name is required"})
		return
	}
	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items are required"})
		return
	}

	lines := make([]service.PurchaseLineRequest, len(req.Items))
	for i, item := range req.Items {
		itemID, err := uuid.Parse(item.InventoryItemID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid inventory_item_id"})
			return
		}
		quantity, err := parseDecimal(item.Quantity)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid quantity"})
			return
		}
		unitPrice, err := parseDecimal(item.UnitPrice)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid unit_price"})
			return
		}
		lines[i] = service.PurchaseLineRequest{
			InventoryItemID: itemID,
			Quantity:        quantity,
			UnitPrice:       unitPrice,
		}
	}

	po, items, err := h.svc.CreatePurchaseOrder(r.Context(), service.CreatePurchaseOrderRequest{
		TenantID:   claims.TenantID,
		VendorName: req.VendorName,
		Lines:      lines,
		Actor:      claims.Username,
	})
	if err != nil {
		if errors.Is(err, service.ErrEmptyPurchaseOrder) || errors.Is(err, service.ErrInvalidQuantity) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: create purchase order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toPurchaseOrderResponse(po, items))
}

// Get handles GET /purchase-orders/{id}.
func (h *PurchaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}
	poID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid purchase order ID"})
		return
	}

	po, err := h.store.GetPurchaseOrder(r.Context(), database.GetPurchaseOrderParams{ID: poID, TenantID: claims.TenantID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "purchase order not found"})
			return
		}
		log.Printf("ERROR: get purchase order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListPurchaseOrderItems(r.Context(), po.ID)
	if err != nil {
		log.Printf("ERROR: list purchase order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toPurchaseOrderResponse(po, items))
}

// Fulfill handles POST /purchase-orders/{id}/fulfill.
func (h *PurchaseHandler) Fulfill(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}
	poID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid purchase order ID"})
		return
	}

	// The body is optional; an empty request stamps the current time.
	var req fulfillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	var fulfilledAt time.Time
	if req.FulfilledDate != "" {
		fulfilledAt, err = time.Parse(time.RFC3339, req.FulfilledDate)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid fulfilled_date"})
			return
		}
	}

	po, reenabled, err := h.svc.FulfillPurchaseOrder(r.Context(), service.FulfillPurchaseOrderRequest{
		TenantID:        claims.TenantID,
		PurchaseOrderID: poID,
		FulfilledAt:     fulfilledAt,
		Actor:           claims.Username,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPurchaseOrderNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrPurchaseOrderClosed):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrItemNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: fulfill purchase order: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	if len(reenabled) > 0 {
		h.hub.Broadcast(claims.TenantID, ws.Event{
			Type:    ws.EventMenuAvailability,
			Payload: map[string]interface{}{"enabled": reenabled},
		})
	}

	writeJSON(w, http.StatusOK, fulfillResponse{
		Order:          toPurchaseOrderResponse(po, nil),
		ReenabledItems: reenabled,
	})
}

func toPurchaseOrderResponse(po database.PurchaseOrder, items []database.PurchaseOrderItem) purchaseOrderResponse {
	resp := purchaseOrderResponse{
		ID:          po.ID,
		PoNumber:    po.PoNumber,
		VendorName:  po.VendorName,
		Status:      po.Status,
		FulfilledAt: timePtr(po.FulfilledAt),
		CreatedBy:   po.CreatedBy,
		CreatedAt:   po.CreatedAt,
	}
	for _, item := range items {
		resp.Items = append(resp.Items, purchaseItemResponse{
			ID:              item.ID,
			InventoryItemID: item.InventoryItemID,
			Quantity:        numericString(item.Quantity),
			UnitPrice:       numericString(item.UnitPrice),
		})
	}
	return resp
}
