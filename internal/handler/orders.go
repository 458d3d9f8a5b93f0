package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/restropos/api/internal/database"
	"github.com/restropos/api/internal/enum"
	"github.com/restropos/api/internal/middleware"
	"github.com/restropos/api/internal/service"
	"github.com/restropos/api/internal/ws"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	PlaceOrder(ctx context.Context, req service.PlaceOrderRequest) (service.PlaceOrderResult, error)
}

// OrderStore defines the database methods needed by order read/update
// handlers. Satisfied by *database.Queries.
type OrderStore interface {
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
}

// Broadcaster pushes events to connected kitchen displays.
type Broadcaster interface {
	Broadcast(tenantID uuid.UUID, event ws.Event)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderStore
	hub   Broadcaster
}

func NewOrderHandler(svc OrderServicer, store OrderStore, hub Broadcaster) *OrderHandler {
	return &OrderHandler{svc: svc, store: store, hub: hub}
}

// RegisterRoutes registers order endpoints on the given Chi router.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/pos/order", h.Place)
	r.Post("/pos/order-and-invoice", h.PlaceWithInvoice)
	r.Get("/orders", h.List)
	r.Get("/orders/{id}", h.Get)
	r.Patch("/orders/{id}/status", h.UpdateStatus)
}

// --- Request / Response types ---

type placeOrderRequest struct {
	DeliveryType string             `json:"delivery_type"`
	TableID      string             `json:"table_id"`
	Customer     *customerRequest   `json:"customer"`
	PaymentType  string             `json:"payment_type"`
	Items        []orderLineRequest `json:"items"`
}

type customerRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

type orderLineRequest struct {
	MenuItemID string   `json:"menu_item_id"`
	VariantID  string   `json:"variant_id"`
	AddonIDs   []string `json:"addon_ids"`
	Quantity   int32    `json:"quantity"`
	Notes      string   `json:"notes"`
}

type orderResponse struct {
	ID            uuid.UUID           `json:"id"`
	TokenNo       int32               `json:"token_no"`
	DeliveryType  string              `json:"delivery_type"`
	CustomerType  string              `json:"customer_type"`
	CustomerID    *string             `json:"customer_id"`
	TableID       *string             `json:"table_id"`
	Status        string              `json:"status"`
	PaymentStatus string              `json:"payment_status"`
	InvoiceID     *string             `json:"invoice_id"`
	CreatedBy     string              `json:"created_by"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	Items         []orderItemResponse `json:"items,omitempty"`
}

type orderItemResponse struct {
	ID         uuid.UUID   `json:"id"`
	MenuItemID uuid.UUID   `json:"menu_item_id"`
	VariantID  *string     `json:"variant_id"`
	Price      string      `json:"price"`
	Quantity   int32       `json:"quantity"`
	Notes      *string     `json:"notes"`
	AddonIDs   []uuid.UUID `json:"addon_ids,omitempty"`
	Status     string      `json:"status"`
}

type invoiceResponse struct {
	ID                 uuid.UUID `json:"id"`
	InvoiceNo          int64     `json:"invoice_no"`
	SubTotal           string    `json:"sub_total"`
	TaxTotal           string    `json:"tax_total"`
	ServiceChargeTotal string    `json:"service_charge_total"`
	Total              string    `json:"total"`
	PaymentType        *string   `json:"payment_type"`
	CreatedAt          time.Time `json:"created_at"`
}

type placeOrderResponse struct {
	Order         orderResponse    `json:"order"`
	Invoice       *invoiceResponse `json:"invoice,omitempty"`
	DisabledItems []uuid.UUID      `json:"disabled_menu_items,omitempty"`
}

type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// parseOrderLines converts cart lines from the wire format, validating
// every id before the service sees the request.
func parseOrderLines(items []orderLineRequest) ([]service.OrderLineRequest, error) {
	lines := make([]service.OrderLineRequest, len(items))
	for i, item := range items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("items[%d]: quantity must be > 0", i)
		}
		menuItemID, err := uuid.Parse(item.MenuItemID)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: invalid menu_item_id", i)
		}
		line := service.OrderLineRequest{
			MenuItemID: menuItemID,
			Quantity:   item.Quantity,
			Notes:      item.Notes,
		}
		if item.VariantID != "" {
			line.VariantID, err = uuid.Parse(item.VariantID)
			if err != nil {
				return nil, fmt.Errorf("items[%d]: invalid variant_id", i)
			}
		}
		for _, addonStr := range item.AddonIDs {
			addonID, err := uuid.Parse(addonStr)
			if err != nil {
				return nil, fmt.Errorf("items[%d]: invalid addon id", i)
			}
			line.AddonIDs = append(line.AddonIDs, addonID)
		}
		lines[i] = line
	}
	return lines, nil
}

// --- Handlers ---

// Place handles POST /pos/order: an unpaid kitchen order.
func (h *OrderHandler) Place(w http.ResponseWriter, r *http.Request) {
	h.place(w, r, false)
}

// PlaceWithInvoice handles POST /pos/order-and-invoice: order plus a
// settled invoice in the same transaction.
func (h *OrderHandler) PlaceWithInvoice(w http.ResponseWriter, r *http.Request) {
	h.place(w, r, true)
}

func (h *OrderHandler) place(w http.ResponseWriter, r *http.Request, withInvoice bool) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req placeOrderRequest
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
		TenantID:     claims.TenantID,
		Lines:        lines,
		DeliveryType: req.DeliveryType,
		WithInvoice:  withInvoice,
		PaymentType:  req.PaymentType,
		Actor:        claims.Username,
	}
	if req.TableID != "" {
		tableID, err := uuid.Parse(req.TableID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table_id"})
			return
		}
		svcReq.TableID = tableID
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
			errors.Is(err, service.ErrInvalidDeliveryType),
			errors.Is(err, service.ErrMenuItemDisabled),
			errors.Is(err, service.ErrVariantNotFound),
			errors.Is(err, service.ErrAddonNotFound):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrMenuItemNotFound),
			errors.Is(err, service.ErrItemNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: place order: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	h.hub.Broadcast(claims.TenantID, ws.Event{
		Type:    ws.EventOrderCreated,
		Payload: toOrderResponse(result.Order, result.Items),
	})
	if len(result.DisabledItems) > 0 {
		h.hub.Broadcast(claims.TenantID, ws.Event{
			Type:    ws.EventMenuAvailability,
			Payload: map[string]interface{}{"disabled": result.DisabledItems},
		})
	}

	resp := placeOrderResponse{
		Order:         toOrderResponse(result.Order, result.Items),
		DisabledItems: result.DisabledItems,
	}
	if result.Invoice != nil {
		inv := toInvoiceResponse(*result.Invoice)
		resp.Invoice = &inv
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), database.GetOrderParams{ID: orderID, TenantID: claims.TenantID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListOrderItems(r.Context(), order.ID)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order, items))
}

// List handles GET /orders with pagination.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 100 {
		limit = 100
	}
	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	orders, err := h.store.ListOrders(r.Context(), database.ListOrdersParams{
		TenantID: claims.TenantID,
		Limit:    int32(limit),
		Offset:   int32(offset),
	})
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := orderListResponse{Orders: make([]orderResponse, 0, len(orders)), Limit: limit, Offset: offset}
	for _, o := range orders {
		resp.Orders = append(resp.Orders, toOrderResponse(o, nil))
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateStatus handles PATCH /orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	switch req.Status {
	case enum.OrderStatusPending, enum.OrderStatusCompleted, enum.OrderStatusCancelled:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	order, err := h.store.UpdateOrderStatus(r.Context(), database.UpdateOrderStatusParams{
		ID:       orderID,
		TenantID: claims.TenantID,
		Status:   req.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: update order status: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.hub.Broadcast(claims.TenantID, ws.Event{
		Type:    ws.EventOrderStatusChange,
		Payload: toOrderResponse(order, nil),
	})
	writeJSON(w, http.StatusOK, toOrderResponse(order, nil))
}

// --- Response mapping ---

type shortageResponse struct {
	Item       string `json:"item"`
	Scope      string `json:"scope,omitempty"`
	Ingredient string `json:"ingredient"`
	Required   string `json:"required"`
	Current    string `json:"current"`
}

func toShortageResponses(shortages []service.Shortage) []shortageResponse {
	out := make([]shortageResponse, len(shortages))
	for i, s := range shortages {
		out[i] = shortageResponse{
			Item:       s.ItemTitle,
			Scope:      s.ScopeTitle,
			Ingredient: s.IngredientTitle,
			Required:   s.Required.String(),
			Current:    s.Current.String(),
		}
	}
	return out
}

func toOrderResponse(order database.Order, items []database.OrderItem) orderResponse {
	resp := orderResponse{
		ID:            order.ID,
		TokenNo:       order.TokenNo,
		DeliveryType:  order.DeliveryType,
		CustomerType:  order.CustomerType,
		CustomerID:    uuidPtr(order.CustomerID),
		TableID:       uuidPtr(order.TableID),
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		InvoiceID:     uuidPtr(order.InvoiceID),
		CreatedBy:     order.CreatedBy,
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
	}
	for _, item := range items {
		resp.Items = append(resp.Items, toOrderItemResponse(item))
	}
	return resp
}

func toOrderItemResponse(item database.OrderItem) orderItemResponse {
	resp := orderItemResponse{
		ID:         item.ID,
		MenuItemID: item.MenuItemID,
		VariantID:  uuidPtr(item.VariantID),
		Price:      numericString(item.Price),
		Quantity:   item.Quantity,
		Notes:      textPtr(item.Notes),
		Status:     item.Status,
	}
	if len(item.Addons) > 0 {
		// Stored as a jsonb array of addon ids.
		_ = json.Unmarshal(item.Addons, &resp.AddonIDs)
	}
	return resp
}

func toInvoiceResponse(inv database.Invoice) invoiceResponse {
	return invoiceResponse{
		ID:                 inv.ID,
		InvoiceNo:          inv.InvoiceNo,
		SubTotal:           numericString(inv.SubTotal),
		TaxTotal:           numericString(inv.TaxTotal),
		ServiceChargeTotal: numericString(inv.ServiceChargeTotal),
		Total:              numericString(inv.Total),
		PaymentType:        textPtr(inv.PaymentType),
		CreatedAt:          inv.CreatedAt,
	}
}
