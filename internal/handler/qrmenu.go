package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/restropos/api/internal/database"
	"github.com/restropos/api/internal/enum"
	"github.com/restropos/api/internal/service"
	"github.com/restropos/api/internal/ws"
)

// QrMenuStore defines the database methods needed by the public QR
// menu. Satisfied by *database.Queries.
type QrMenuStore interface {
	GetDiningTableByQrCode(ctx context.Context, qrCode string) (database.DiningTable, error)
	ListEnabledMenuItems(ctx context.Context, tenantID uuid.UUID) ([]database.MenuItem, error)
	ListMenuVariants(ctx context.Context, menuItemID uuid.UUID) ([]database.MenuVariant, error)
	ListMenuAddons(ctx context.Context, menuItemID uuid.UUID) ([]database.MenuAddon, error)
}

// QrMenuHandler serves the unauthenticated customer-facing menu and
// self-ordering flow. The QR code on the table resolves the tenant;
// disabled items never appear.
type QrMenuHandler struct {
	store QrMenuStore
	svc   OrderServicer
	hub   Broadcaster
}

func NewQrMenuHandler(store QrMenuStore, svc OrderServicer, hub Broadcaster) *QrMenuHandler {
	return &QrMenuHandler{store: store, svc: svc, hub: hub}
}

// RegisterRoutes registers the public menu endpoints on the given Chi
// router.
func (h *QrMenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/qrmenu/{qrCode}", h.GetMenu)
	r.Post("/qrmenu/{qrCode}/place-order", h.PlaceOrder)
}

type qrMenuResponse struct {
	Table tableResponse        `json:"table"`
	Items []qrMenuItemResponse `json:"items"`
}

type qrMenuItemResponse struct {
	ID       uuid.UUID         `json:"id"`
	Title    string            `json:"title"`
	Price    string            `json:"price"`
	Variants []variantResponse `json:"variants,omitempty"`
	Addons   []variantResponse `json:"addons,omitempty"`
}

// GetMenu handles GET /qrmenu/{qrCode}.
func (h *QrMenuHandler) GetMenu(w http.ResponseWriter, r *http.Request) {
	qrCode := chi.URLParam(r, "qrCode")

	table, err := h.store.GetDiningTableByQrCode(r.Context(), qrCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown QR code"})
			return
		}
		log.Printf("ERROR: resolve qr code: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListEnabledMenuItems(r.Context(), table.TenantID)
	if err != nil {
		log.Printf("ERROR: list enabled menu items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := qrMenuResponse{
		Table: toTableResponse(table),
		Items: make([]qrMenuItemResponse, 0, len(items)),
	}
	for _, item := range items {
		entry := qrMenuItemResponse{
			ID:    item.ID,
			Title: item.Title,
			Price: numericString(item.Price),
		}
		variants, err := h.store.ListMenuVariants(r.Context(), item.ID)
		if err != nil {
			log.Printf("ERROR: list variants: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		for _, v := range variants {
			entry.Variants = append(entry.Variants, variantResponse{
				ID:         v.ID,
				MenuItemID: v.MenuItemID,
				Title:      v.Title,
				Price:      numericString(v.Price),
			})
		}
		addons, err := h.store.ListMenuAddons(r.Context(), item.ID)
		if err != nil {
			log.Printf("ERROR: list addons: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		for _, a := range addons {
			entry.Addons = append(entry.Addons, variantResponse{
				ID:         a.ID,
				MenuItemID: a.MenuItemID,
				Title:      a.Title,
				Price:      numericString(a.Price),
			})
		}
		resp.Items = append(resp.Items, entry)
	}

	writeJSON(w, http.StatusOK, resp)
}

type qrPlaceOrderRequest struct {
	Items    []orderLineRequest `json:"items"`
	Customer *customerRequest   `json:"customer"`
}

type qrPlaceOrderResponse struct {
	OrderID uuid.UUID `json:"order_id"`
	TokenNo int32     `json:"token_no"`
}

// PlaceOrder handles POST /qrmenu/{qrCode}/place-order: a customer
// self-order from the table. The order goes through the same pipeline
// as a cashier order but is always dine-in, unpaid, and bound to the
// scanned table.
func (h *QrMenuHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	qrCode := chi.URLParam(r, "qrCode")

	table, err := h.store.GetDiningTableByQrCode(r.Context(), qrCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown QR code"})
			return
		}
		log.Printf("ERROR: resolve qr code: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	var req qrPlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items are required"})
		return
	}

	lines, err := parseOrderLines(req.Items)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	svcReq := service.PlaceOrderRequest{
		TenantID:     table.TenantID,
		Lines:        lines,
		DeliveryType: enum.DeliveryTypeDineIn,
		TableID:      table.ID,
		Actor:        "qrmenu",
	}
	if req.Customer != nil {
		svcReq.Customer = &service.CustomerInfo{
			Name:  req.Customer.Name,
			Phone: req.Customer.Phone,
			Email: req.Customer.Email,
		}
	}

	result, err := h.svc.PlaceOrder(r.Context(), svcReq)
	if err != nil {
		var shortage *service.ShortageError
		switch {
		case errors.As(err, &shortage):
			writeJSON(w, http.StatusConflict, map[string]interface{}{
				"error":     shortage.Error(),
				"shortages": toShortageResponses(shortage.Shortages),
			})
		case errors.Is(err, service.ErrInsufficientQuantity):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrEmptyCart),
			errors.Is(err, service.ErrInvalidQuantity),
			errors.Is(err, service.ErrMenuItemDisabled),
			errors.Is(err, service.ErrVariantNotFound),
			errors.Is(err, service.ErrAddonNotFound):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrMenuItemNotFound),
			errors.Is(err, service.ErrItemNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: place qr order: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	h.hub.Broadcast(table.TenantID, ws.Event{
		Type:    ws.EventOrderCreated,
		Payload: toOrderResponse(result.Order, result.Items),
	})
	if len(result.DisabledItems) > 0 {
		h.hub.Broadcast(table.TenantID, ws.Event{
			Type:    ws.EventMenuAvailability,
			Payload: map[string]interface{}{"disabled": result.DisabledItems},
		})
	}

	writeJSON(w, http.StatusCreated, qrPlaceOrderResponse{
		OrderID: result.Order.ID,
		TokenNo: result.Order.TokenNo,
	})
}
