package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/restropos/api/internal/database"
	"github.com/restropos/api/internal/middleware"
	"github.com/restropos/api/internal/service"
)

// MenuServicer defines the service methods needed by menu handlers.
// Satisfied by *service.MenuService.
type MenuServicer interface {
	CreateMenuItem(ctx context.Context, req service.CreateMenuItemRequest) (database.MenuItem, error)
	CreateVariant(ctx context.Context, req service.CreateVariantRequest) (database.MenuVariant, error)
	CreateAddon(ctx context.Context, req service.CreateAddonRequest) (database.MenuAddon, error)
	CreateRecipe(ctx context.Context, req service.CreateRecipeRequest) (database.RecipeItem, error)
	SetEnabled(ctx context.Context, tenantID, itemID uuid.UUID, enabled bool) error
}

// MenuStore defines the database methods needed by menu read handlers.
// Satisfied by *database.Queries.
type MenuStore interface {
	ListMenuItems(ctx context.Context, tenantID uuid.UUID) ([]database.MenuItem, error)
	ListMenuVariants(ctx context.Context, menuItemID uuid.UUID) ([]database.MenuVariant, error)
	ListMenuAddons(ctx context.Context, menuItemID uuid.UUID) ([]database.MenuAddon, error)
	ListRecipeItems(ctx context.Context, arg database.ListRecipeItemsParams) ([]database.RecipeItem, error)
}

// MenuHandler handles catalog endpoints.
type MenuHandler struct {
	svc   MenuServicer
	store MenuStore
}

func NewMenuHandler(svc MenuServicer, store MenuStore) *MenuHandler {
	return &MenuHandler{svc: svc, store: store}
}

// RegisterRoutes registers menu endpoints on the given Chi router.
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Post("/menu/items", h.CreateItem)
	r.Get("/menu/items", h.ListItems)
	r.Post("/menu/items/{id}/variants", h.CreateVariant)
	r.Post("/menu/items/{id}/addons", h.CreateAddon)
	r.Post("/menu/items/{id}/recipes", h.CreateRecipe)
	r.Get("/menu/items/{id}/recipes", h.ListRecipes)
	r.Patch("/menu/items/{id}/enabled", h.SetEnabled)
}

// --- Request / Response types ---

type createMenuItemRequest struct {
	Title    string `json:"title"`
	Price    string `json:"price"`
	NetPrice string `json:"net_price"`
}

type createVariantRequest struct {
	Title string `json:"title"`
	Price string `json:"price"`
}

type createRecipeRequest struct {
	InventoryItemID string `json:"inventory_item_id"`
	VariantID       string `json:"variant_id"`
	AddonID         string `json:"addon_id"`
	Quantity        string `json:"quantity"`
}

type setEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

type menuItemResponse struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Price     string    `json:"price"`
	NetPrice  string    `json:"net_price"`
	IsEnabled bool      `json:"is_enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type variantResponse struct {
	ID         uuid.UUID `json:"id"`
	MenuItemID uuid.UUID `json:"menu_item_id"`
	Title      string    `json:"title"`
	Price      string    `json:"price"`
}

type recipeResponse struct {
	ID              uuid.UUID `json:"id"`
	MenuItemID      uuid.UUID `json:"menu_item_id"`
	InventoryItemID uuid.UUID `json:"inventory_item_id"`
	VariantID       *string   `json:"variant_id"`
	AddonID         *string   `json:"addon_id"`
	Quantity        string    `json:"quantity"`
}

// --- Handlers ---

// CreateItem handles POST /menu/items.
func (h *MenuHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createMenuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Title == "" || req.Price == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title and price are required"})
		return
	}
	price, err := parseDecimal(req.Price)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid price"})
		return
	}
	netPrice, err := parseDecimal(req.NetPrice)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid net_price"})
		return
	}

	item, err := h.svc.CreateMenuItem(r.Context(), service.CreateMenuItemRequest{
		TenantID: claims.TenantID,
		Title:    req.Title,
		Price:    price,
		NetPrice: netPrice,
	})
	if err != nil {
		if errors.Is(err, service.ErrNegativeQuantity) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "price must be >= 0"})
			return
		}
		log.Printf("ERROR: create menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toMenuItemResponse(item))
}

// ListItems handles GET /menu/items.
func (h *MenuHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	items, err := h.store.ListMenuItems(r.Context(), claims.TenantID)
	if err != nil {
		log.Printf("ERROR: list menu items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]menuItemResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, toMenuItemResponse(item))
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateVariant handles POST /menu/items/{id}/variants.
func (h *MenuHandler) CreateVariant(w http.ResponseWriter, r *http.Request) {
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

	var req createVariantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}
	price, err := parseDecimal(req.Price)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid price"})
		return
	}

	variant, err := h.svc.CreateVariant(r.Context(), service.CreateVariantRequest{
		TenantID:   claims.TenantID,
		MenuItemID: itemID,
		Title:      req.Title,
		Price:      price,
	})
	if err != nil {
		if errors.Is(err, service.ErrMenuItemNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: create variant: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, variantResponse{
		ID:         variant.ID,
		MenuItemID: variant.MenuItemID,
		Title:      variant.Title,
		Price:      numericString(variant.Price),
	})
}

// CreateAddon handles POST /menu/items/{id}/addons.
func (h *MenuHandler) CreateAddon(w http.ResponseWriter, r *http.Request) {
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

	var req createVariantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}
	price, err := parseDecimal(req.Price)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid price"})
		return
	}

	addon, err := h.svc.CreateAddon(r.Context(), service.CreateAddonRequest{
		TenantID:   claims.TenantID,
		MenuItemID: itemID,
		Title:      req.Title,
		Price:      price,
	})
	if err != nil {
		if errors.Is(err, service.ErrMenuItemNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: create addon: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, variantResponse{
		ID:         addon.ID,
		MenuItemID: addon.MenuItemID,
		Title:      addon.Title,
		Price:      numericString(addon.Price),
	})
}

// CreateRecipe handles POST /menu/items/{id}/recipes.
func (h *MenuHandler) CreateRecipe(w http.ResponseWriter, r *http.Request) {
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

	var req createRecipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	inventoryItemID, err := uuid.Parse(req.InventoryItemID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid inventory_item_id"})
		return
	}
	quantity, err := parseDecimal(req.Quantity)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid quantity"})
		return
	}

	svcReq := service.CreateRecipeRequest{
		TenantID:        claims.TenantID,
		MenuItemID:      itemID,
		InventoryItemID: inventoryItemID,
		Quantity:        quantity,
	}
	if req.VariantID != "" {
		svcReq.VariantID, err = uuid.Parse(req.VariantID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid variant_id"})
			return
		}
	}
	if req.AddonID != "" {
		svcReq.AddonID, err = uuid.Parse(req.AddonID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid addon_id"})
			return
		}
	}

	recipe, err := h.svc.CreateRecipe(r.Context(), svcReq)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMenuItemNotFound), errors.Is(err, service.ErrItemNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrAmbiguousRecipeScope),
			errors.Is(err, service.ErrRecipeTargetMismatch),
			errors.Is(err, service.ErrInvalidQuantity):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: create recipe: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	writeJSON(w, http.StatusCreated, toRecipeResponse(recipe))
}

// ListRecipes handles GET /menu/items/{id}/recipes.
func (h *MenuHandler) ListRecipes(w http.ResponseWriter, r *http.Request) {
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

	recipes, err := h.store.ListRecipeItems(r.Context(), database.ListRecipeItemsParams{
		MenuItemID: itemID,
		TenantID:   claims.TenantID,
	})
	if err != nil {
		log.Printf("ERROR: list recipes: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]recipeResponse, 0, len(recipes))
	for _, recipe := range recipes {
		resp = append(resp, toRecipeResponse(recipe))
	}
	writeJSON(w, http.StatusOK, resp)
}

// SetEnabled handles PATCH /menu/items/{id}/enabled.
func (h *MenuHandler) SetEnabled(w http.ResponseWriter, r *http.Request) {
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

	var req setEnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := h.svc.SetEnabled(r.Context(), claims.TenantID, itemID, req.Enabled); err != nil {
		if errors.Is(err, service.ErrMenuItemNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: set menu item enabled: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"enabled": req.Enabled})
}

func toMenuItemResponse(item database.MenuItem) menuItemResponse {
	return menuItemResponse{
		ID:        item.ID,
		Title:     item.Title,
		Price:     numericString(item.Price),
		NetPrice:  numericString(item.NetPrice),
		IsEnabled: item.IsEnabled,
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
}

func toRecipeResponse(recipe database.RecipeItem) recipeResponse {
	return recipeResponse{
		ID:              recipe.ID,
		MenuItemID:      recipe.MenuItemID,
		InventoryItemID: recipe.InventoryItemID,
		VariantID:       uuidPtr(recipe.VariantID),
		AddonID:         uuidPtr(recipe.AddonID),
		Quantity:        numericString(recipe.Quantity),
	}
}
