package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type CreateMenuItemParams struct {
	TenantID   uuid.UUID
	Title      string
	Price      pgtype.Numeric
	NetPrice   pgtype.Numeric
	TaxID      pgtype.UUID
	CategoryID pgtype.UUID
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO menu_items (tenant_id, title, price, net_price, tax_id, category_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, tenant_id, title, price, net_price, tax_id, category_id, is_enabled, created_at, updated_at`,
		arg.TenantID, arg.Title, arg.Price, arg.NetPrice, arg.TaxID, arg.CategoryID)
	return scanMenuItem(row)
}

type GetMenuItemParams struct {
	ID       uuid.UUID
	TenantID uuid.UUID
}

func (q *Queries) GetMenuItem(ctx context.Context, arg GetMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, tenant_id, title, price, net_price, tax_id, category_id, is_enabled, created_at, updated_at
		FROM menu_items
		WHERE id = $1 AND tenant_id = $2`,
		arg.ID, arg.TenantID)
	return scanMenuItem(row)
}

func (q *Queries) ListMenuItems(ctx context.Context, tenantID uuid.UUID) ([]MenuItem, error) {
	return q.listMenuItems(ctx, `
		SELECT id, tenant_id, title, price, net_price, tax_id, category_id, is_enabled, created_at, updated_at
		FROM menu_items
		WHERE tenant_id = $1
		ORDER BY title`, tenantID)
}

func (q *Queries) ListEnabledMenuItems(ctx context.Context, tenantID uuid.UUID) ([]MenuItem, error) {
	return q.listMenuItems(ctx, `
		SELECT id, tenant_id, title, price, net_price, tax_id, category_id, is_enabled, created_at, updated_at
		FROM menu_items
		WHERE tenant_id = $1 AND is_enabled = true
		ORDER BY title`, tenantID)
}

func (q *Queries) ListDisabledMenuItems(ctx context.Context, tenantID uuid.UUID) ([]MenuItem, error) {
	return q.listMenuItems(ctx, `
		SELECT id, tenant_id, title, price, net_price, tax_id, category_id, is_enabled, created_at, updated_at
		FROM menu_items
		WHERE tenant_id = $1 AND is_enabled = false
		ORDER BY title`, tenantID)
}

type SetMenuItemEnabledParams struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	IsEnabled bool
}

func (q *Queries) SetMenuItemEnabled(ctx context.Context, arg SetMenuItemEnabledParams) error {
	_, err := q.db.Exec(ctx, `
		UPDATE menu_items
		SET is_enabled = $3, updated_at = now()
		WHERE id = $1 AND tenant_id = $2`,
		arg.ID, arg.TenantID, arg.IsEnabled)
	return err
}

// DisableMenuItemsWithBaseIngredient turns off every menu item whose
// base recipe (no variant/addon scope) consumes the given ingredient.
// Returns the ids of the items that were actually flipped.
type DisableMenuItemsWithBaseIngredientParams struct {
	InventoryItemID uuid.UUID
	TenantID        uuid.UUID
}

func (q *Queries) DisableMenuItemsWithBaseIngredient(ctx context.Context, arg DisableMenuItemsWithBaseIngredientParams) ([]uuid.UUID, error) {
	rows, err := q.db.Query(ctx, `
		UPDATE menu_items
		SET is_enabled = false, updated_at = now()
		WHERE tenant_id = $2
		  AND is_enabled = true
		  AND id IN (
			SELECT menu_item_id FROM recipe_items
			WHERE tenant_id = $2 AND inventory_item_id = $1
			  AND variant_id IS NULL AND addon_id IS NULL
		  )
		RETURNING id`,
		arg.InventoryItemID, arg.TenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// --- Variants ---

type CreateMenuVariantParams struct {
	TenantID   uuid.UUID
	MenuItemID uuid.UUID
	Title      string
	Price      pgtype.Numeric
}

func (q *Queries) CreateMenuVariant(ctx context.Context, arg CreateMenuVariantParams) (MenuVariant, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO menu_variants (tenant_id, menu_item_id, title, price)
		VALUES ($1, $2, $3, $4)
		RETURNING id, tenant_id, menu_item_id, title, price`,
		arg.TenantID, arg.MenuItemID, arg.Title, arg.Price)
	var v MenuVariant
	err := row.Scan(&v.ID, &v.TenantID, &v.MenuItemID, &v.Title, &v.Price)
	return v, err
}

func (q *Queries) GetMenuVariant(ctx context.Context, id uuid.UUID) (MenuVariant, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, tenant_id, menu_item_id, title, price
		FROM menu_variants
		WHERE id = $1`, id)
	var v MenuVariant
	err := row.Scan(&v.ID, &v.TenantID, &v.MenuItemID, &v.Title, &v.Price)
	return v, err
}

func (q *Queries) ListMenuVariants(ctx context.Context, menuItemID uuid.UUID) ([]MenuVariant, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, tenant_id, menu_item_id, title, price
		FROM menu_variants
		WHERE menu_item_id = $1
		ORDER BY title`, menuItemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var variants []MenuVariant
	for rows.Next() {
		var v MenuVariant
		if err := rows.Scan(&v.ID, &v.TenantID, &v.MenuItemID, &v.Title, &v.Price); err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}
	return variants, rows.Err()
}

// --- Addons ---

type CreateMenuAddonParams struct {
	TenantID   uuid.UUID
	MenuItemID uuid.UUID
	Title      string
	Price      pgtype.Numeric
}

func (q *Queries) CreateMenuAddon(ctx context.Context, arg CreateMenuAddonParams) (MenuAddon, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO menu_addons (tenant_id, menu_item_id, title, price)
		VALUES ($1, $2, $3, $4)
		RETURNING id, tenant_id, menu_item_id, title, price`,
		arg.TenantID, arg.MenuItemID, arg.Title, arg.Price)
	var a MenuAddon
	err := row.Scan(&a.ID, &a.TenantID, &a.MenuItemID, &a.Title, &a.Price)
	return a, err
}

func (q *Queries) GetMenuAddon(ctx context.Context, id uuid.UUID) (MenuAddon, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, tenant_id, menu_item_id, title, price
		FROM menu_addons
		WHERE id = $1`, id)
	var a MenuAddon
	err := row.Scan(&a.ID, &a.TenantID, &a.MenuItemID, &a.Title, &a.Price)
	return a, err
}

func (q *Queries) ListMenuAddons(ctx context.Context, menuItemID uuid.UUID) ([]MenuAddon, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, tenant_id, menu_item_id, title, price
		FROM menu_addons
		WHERE menu_item_id = $1
		ORDER BY title`, menuItemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var addons []MenuAddon
	for rows.Next() {
		var a MenuAddon
		if err := rows.Scan(&a.ID, &a.TenantID, &a.MenuItemID, &a.Title, &a.Price); err != nil {
			return nil, err
		}
		addons = append(addons, a)
	}
	return addons, rows.Err()
}

// --- Recipes ---

type CreateRecipeItemParams struct {
	TenantID        uuid.UUID
	MenuItemID      uuid.UUID
	InventoryItemID uuid.UUID
	VariantID       pgtype.UUID
	AddonID         pgtype.UUID
	Quantity        pgtype.Numeric
}

func (q *Queries) CreateRecipeItem(ctx context.Context, arg CreateRecipeItemParams) (RecipeItem, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO recipe_items (tenant_id, menu_item_id, inventory_item_id, variant_id, addon_id, quantity)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, tenant_id, menu_item_id, inventory_item_id, variant_id, addon_id, quantity`,
		arg.TenantID, arg.MenuItemID, arg.InventoryItemID, arg.VariantID, arg.AddonID, arg.Quantity)
	var r RecipeItem
	err := row.Scan(&r.ID, &r.TenantID, &r.MenuItemID, &r.InventoryItemID, &r.VariantID, &r.AddonID, &r.Quantity)
	return r, err
}

type ListRecipeItemsParams struct {
	MenuItemID uuid.UUID
	TenantID   uuid.UUID
}

// ListRecipeItems returns the full recipe set for a menu item, all
// scopes included. The resolver filters by the cart line's selection.
func (q *Queries) ListRecipeItems(ctx context.Context, arg ListRecipeItemsParams) ([]RecipeItem, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, tenant_id, menu_item_id, inventory_item_id, variant_id, addon_id, quantity
		FROM recipe_items
		WHERE menu_item_id = $1 AND tenant_id = $2`,
		arg.MenuItemID, arg.TenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var recipes []RecipeItem
	for rows.Next() {
		var r RecipeItem
		if err := rows.Scan(&r.ID, &r.TenantID, &r.MenuItemID, &r.InventoryItemID, &r.VariantID, &r.AddonID, &r.Quantity); err != nil {
			return nil, err
		}
		recipes = append(recipes, r)
	}
	return recipes, rows.Err()
}

// BaseRecipeStock pairs a base recipe requirement with the ingredient's
// current stock level, for the re-enablement scan.
type BaseRecipeStock struct {
	InventoryItemID uuid.UUID
	Required        pgtype.Numeric
	Current         pgtype.Numeric
}

func (q *Queries) ListBaseRecipeStock(ctx context.Context, arg ListRecipeItemsParams) ([]BaseRecipeStock, error) {
	rows, err := q.db.Query(ctx, `
		SELECT r.inventory_item_id, r.quantity, i.quantity
		FROM recipe_items r
		JOIN inventory_items i ON i.id = r.inventory_item_id
		WHERE r.menu_item_id = $1 AND r.tenant_id = $2
		  AND r.variant_id IS NULL AND r.addon_id IS NULL`,
		arg.MenuItemID, arg.TenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var stocks []BaseRecipeStock
	for rows.Next() {
		var s BaseRecipeStock
		if err := rows.Scan(&s.InventoryItemID, &s.Required, &s.Current); err != nil {
			return nil, err
		}
		stocks = append(stocks, s)
	}
	return stocks, rows.Err()
}

// --- scan helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMenuItem(row rowScanner) (MenuItem, error) {
	var m MenuItem
	err := row.Scan(&m.ID, &m.TenantID, &m.Title, &m.Price, &m.NetPrice, &m.TaxID, &m.CategoryID, &m.IsEnabled, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func (q *Queries) listMenuItems(ctx context.Context, sql string, tenantID uuid.UUID) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, sql, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MenuItem
	for rows.Next() {
		m, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}
