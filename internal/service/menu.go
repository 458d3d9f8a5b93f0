package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/restropos/api/internal/database"
	"github.com/shopspring/decimal"
)

var (
	ErrAmbiguousRecipeScope = errors.New("recipe row cannot target both a variant and an addon")
	ErrRecipeTargetMismatch = errors.New("variant or addon does not belong to the menu item")
)

// MenuStore covers catalog writes. Catalog writes are single statements
// so no transaction wrapper is needed here.
type MenuStore interface {
	CatalogStore
	CreateMenuItem(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error)
	CreateMenuVariant(ctx context.Context, arg database.CreateMenuVariantParams) (database.MenuVariant, error)
	CreateMenuAddon(ctx context.Context, arg database.CreateMenuAddonParams) (database.MenuAddon, error)
	CreateRecipeItem(ctx context.Context, arg database.CreateRecipeItemParams) (database.RecipeItem, error)
	SetMenuItemEnabled(ctx context.Context, arg database.SetMenuItemEnabledParams) error
	ListMenuItems(ctx context.Context, tenantID uuid.UUID) ([]database.MenuItem, error)
	ListEnabledMenuItems(ctx context.Context, tenantID uuid.UUID) ([]database.MenuItem, error)
	GetInventoryItem(ctx context.Context, arg database.GetInventoryItemParams) (database.InventoryItem, error)
}

// MenuService manages the catalog: items, variants, addons and their
// recipe rows.
type MenuService struct {
	store MenuStore
}

func NewMenuService(store MenuStore) *MenuService {
	return &MenuService{store: store}
}

type CreateMenuItemRequest struct {
	TenantID uuid.UUID
	Title    string
	Price    decimal.Decimal
	NetPrice decimal.Decimal
}

func (s *MenuService) CreateMenuItem(ctx context.Context, req CreateMenuItemRequest) (database.MenuItem, error) {
	if req.Price.IsNegative() || req.NetPrice.IsNegative() {
		return database.MenuItem{}, ErrNegativeQuantity
	}
	netPrice := req.NetPrice
	if netPrice.IsZero() {
		netPrice = req.Price
	}
	item, err := s.store.CreateMenuItem(ctx, database.CreateMenuItemParams{
		TenantID: req.TenantID,
		Title:    req.Title,
		Price:    decimalToNumeric(req.Price),
		NetPrice: decimalToNumeric(netPrice),
	})
	if err != nil {
		return database.MenuItem{}, fmt.Errorf("create menu item: %w", err)
	}
	return item, nil
}

type CreateVariantRequest struct {
	TenantID   uuid.UUID
	MenuItemID uuid.UUID
	Title      string
	Price      decimal.Decimal
}

func (s *MenuService) CreateVariant(ctx context.Context, req CreateVariantRequest) (database.MenuVariant, error) {
	if _, err := s.getOwnedItem(ctx, req.TenantID, req.MenuItemID); err != nil {
		return database.MenuVariant{}, err
	}
	variant, err := s.store.CreateMenuVariant(ctx, database.CreateMenuVariantParams{
		TenantID:   req.TenantID,
		MenuItemID: req.MenuItemID,
		Title:      req.Title,
		Price:      decimalToNumeric(req.Price),
	})
	if err != nil {
		return database.MenuVariant{}, fmt.Errorf("create variant: %w", err)
	}
	return variant, nil
}

type CreateAddonRequest struct {
	TenantID   uuid.UUID
	MenuItemID uuid.UUID
	Title      string
	Price      decimal.Decimal
}

func (s *MenuService) CreateAddon(ctx context.Context, req CreateAddonRequest) (database.MenuAddon, error) {
	if _, err := s.getOwnedItem(ctx, req.TenantID, req.MenuItemID); err != nil {
		return database.MenuAddon{}, err
	}
	addon, err := s.store.CreateMenuAddon(ctx, database.CreateMenuAddonParams{
		TenantID:   req.TenantID,
		MenuItemID: req.MenuItemID,
		Title:      req.Title,
		Price:      decimalToNumeric(req.Price),
	})
	if err != nil {
		return database.MenuAddon{}, fmt.Errorf("create addon: %w", err)
	}
	return addon, nil
}

type CreateRecipeRequest struct {
	TenantID        uuid.UUID
	MenuItemID      uuid.UUID
	InventoryItemID uuid.UUID
	VariantID       uuid.UUID
	AddonID         uuid.UUID
	Quantity        decimal.Decimal
}

// CreateRecipe adds one recipe requirement. At most one of VariantID
// and AddonID may be set; both empty declares a base requirement. The
// target must belong to the menu item and the ingredient to the tenant.
func (s *MenuService) CreateRecipe(ctx context.Context, req CreateRecipeRequest) (database.RecipeItem, error) {
	if req.VariantID != uuid.Nil && req.AddonID != uuid.Nil {
		return database.RecipeItem{}, ErrAmbiguousRecipeScope
	}
	if !req.Quantity.IsPositive() {
		return database.RecipeItem{}, ErrInvalidQuantity
	}

	if _, err := s.getOwnedItem(ctx, req.TenantID, req.MenuItemID); err != nil {
		return database.RecipeItem{}, err
	}
	if _, err := s.store.GetInventoryItem(ctx, database.GetInventoryItemParams{ID: req.InventoryItemID, TenantID: req.TenantID}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.RecipeItem{}, ErrItemNotFound
		}
		return database.RecipeItem{}, fmt.Errorf("read inventory item: %w", err)
	}

	variantID := pgtype.UUID{}
	if req.VariantID != uuid.Nil {
		v, err := s.store.GetMenuVariant(ctx, req.VariantID)
		if err != nil || v.MenuItemID != req.MenuItemID {
			return database.RecipeItem{}, ErrRecipeTargetMismatch
		}
		variantID = pgtype.UUID{Bytes: req.VariantID, Valid: true}
	}
	addonID := pgtype.UUID{}
	if req.AddonID != uuid.Nil {
		a, err := s.store.GetMenuAddon(ctx, req.AddonID)
		if err != nil || a.MenuItemID != req.MenuItemID {
			return database.RecipeItem{}, ErrRecipeTargetMismatch
		}
		addonID = pgtype.UUID{Bytes: req.AddonID, Valid: true}
	}

	recipe, err := s.store.CreateRecipeItem(ctx, database.CreateRecipeItemParams{
		TenantID:        req.TenantID,
		MenuItemID:      req.MenuItemID,
		InventoryItemID: req.InventoryItemID,
		VariantID:       variantID,
		AddonID:         addonID,
		Quantity:        decimalToNumeric(req.Quantity),
	})
	if err != nil {
		return database.RecipeItem{}, fmt.Errorf("create recipe item: %w", err)
	}
	return recipe, nil
}

// SetEnabled manually enables or disables a menu item.
func (s *MenuService) SetEnabled(ctx context.Context, tenantID, itemID uuid.UUID, enabled bool) error {
	if _, err := s.getOwnedItem(ctx, tenantID, itemID); err != nil {
		return err
	}
	err := s.store.SetMenuItemEnabled(ctx, database.SetMenuItemEnabledParams{
		ID:        itemID,
		TenantID:  tenantID,
		IsEnabled: enabled,
	})
	if err != nil {
		return fmt.Errorf("set menu item enabled: %w", err)
	}
	return nil
}

func (s *MenuService) getOwnedItem(ctx context.Context, tenantID, itemID uuid.UUID) (database.MenuItem, error) {
	item, err := s.store.GetMenuItem(ctx, database.GetMenuItemParams{ID: itemID, TenantID: tenantID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.MenuItem{}, ErrMenuItemNotFound
		}
		return database.MenuItem{}, fmt.Errorf("read menu item: %w", err)
	}
	return item, nil
}
