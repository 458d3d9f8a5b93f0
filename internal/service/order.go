package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/restropos/api/internal/database"
	"github.com/restropos/api/internal/enum"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptyCart           = errors.New("order must contain at least one item")
	ErrMenuItemNotFound    = errors.New("menu item not found")
	ErrMenuItemDisabled    = errors.New("menu item is disabled")
	ErrVariantNotFound     = errors.New("variant does not belong to menu item")
	ErrAddonNotFound       = errors.New("addon does not belong to menu item")
	ErrInvalidDeliveryType = errors.New("invalid delivery type")
	ErrTableNotFound       = errors.New("dining table not found")
)

// CatalogStore is the unlocked read side used to build the cart before
// the order transaction opens.
type CatalogStore interface {
	AvailabilityStore
	GetMenuItem(ctx context.Context, arg database.GetMenuItemParams) (database.MenuItem, error)
	GetMenuVariant(ctx context.Context, id uuid.UUID) (database.MenuVariant, error)
	GetMenuAddon(ctx context.Context, id uuid.UUID) (database.MenuAddon, error)
	ListRecipeItems(ctx context.Context, arg database.ListRecipeItemsParams) ([]database.RecipeItem, error)
	ListMenuVariants(ctx context.Context, menuItemID uuid.UUID) ([]database.MenuVariant, error)
	ListMenuAddons(ctx context.Context, menuItemID uuid.UUID) ([]database.MenuAddon, error)
}

// OrderStore is the transactional surface of order placement.
type OrderStore interface {
	SequenceStore
	LedgerStore
	GetInventoryItemForUpdate(ctx context.Context, arg database.GetInventoryItemParams) (database.InventoryItem, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	CreateInvoice(ctx context.Context, arg database.CreateInvoiceParams) (database.Invoice, error)
	GetCustomerByPhone(ctx context.Context, arg database.GetCustomerByPhoneParams) (database.Customer, error)
	CreateCustomer(ctx context.Context, arg database.CreateCustomerParams) (database.Customer, error)
	DisableMenuItemsWithBaseIngredient(ctx context.Context, arg database.DisableMenuItemsWithBaseIngredientParams) ([]uuid.UUID, error)
}

type NewOrderStore func(db database.DBTX) OrderStore

// OrderService runs the order placement transaction.
type OrderService struct {
	pool     TxBeginner
	catalog  CatalogStore
	newStore NewOrderStore
	now      func() time.Time
}

func NewOrderService(pool TxBeginner, catalog CatalogStore, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, catalog: catalog, newStore: newStore, now: time.Now}
}

// OrderLineRequest is one cart line as submitted by the client.
type OrderLineRequest struct {
	MenuItemID uuid.UUID
	VariantID  uuid.UUID
	AddonIDs   []uuid.UUID
	Quantity   int32
	Notes      string
}

// CustomerInfo identifies the ordering customer by phone. A repeat
// phone number reuses the existing customer row.
type CustomerInfo struct {
	Name  string
	Phone string
	Email string
}

type PlaceOrderRequest struct {
	TenantID     uuid.UUID
	Lines        []OrderLineRequest
	DeliveryType string
	TableID      uuid.UUID
	Customer     *CustomerInfo
	WithInvoice  bool
	PaymentType  string
	Actor        string
}

type PlaceOrderResult struct {
	Order         database.Order
	Items         []database.OrderItem
	Invoice       *database.Invoice
	DisabledItems []uuid.UUID
}

// PlaceOrder validates the cart, runs the advisory availability check,
// then atomically allocates the kitchen token, writes the order and its
// items, debits every consumed ingredient under row locks, and disables
// menu items whose base ingredient ran dry. Any failure rolls the whole
// order back, sequence increments included.
func (s *OrderService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (PlaceOrderResult, error) {
	if len(req.Lines) == 0 {
		return PlaceOrderResult{}, ErrEmptyCart
	}
	switch req.DeliveryType {
	case enum.DeliveryTypeDineIn, enum.DeliveryTypeTakeaway, enum.DeliveryTypeDelivery:
	default:
		return PlaceOrderResult{}, ErrInvalidDeliveryType
	}
	for _, line := range req.Lines {
		if line.Quantity <= 0 {
			return PlaceOrderResult{}, ErrInvalidQuantity
		}
	}

	cart, err := s.buildCart(ctx, req.TenantID, req.Lines)
	if err != nil {
		return PlaceOrderResult{}, err
	}

	// Advisory gate. The locked debits below remain the authority, but
	// rejecting here keeps doomed orders out of the serialized section.
	if err := CheckAvailability(ctx, s.catalog, req.TenantID, cart); err != nil {
		return PlaceOrderResult{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return PlaceOrderResult{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	tokenNo, err := nextTokenNo(ctx, store, req.TenantID, s.now())
	if err != nil {
		return PlaceOrderResult{}, err
	}

	customerID, customerType, err := s.resolveCustomer(ctx, store, req.TenantID, req.Customer)
	if err != nil {
		return PlaceOrderResult{}, err
	}

	var result PlaceOrderResult

	invoiceID := pgtype.UUID{}
	paymentStatus := enum.PaymentStatusPending
	if req.WithInvoice {
		invoice, err := s.createInvoice(ctx, store, req, cart)
		if err != nil {
			return PlaceOrderResult{}, err
		}
		invoiceID = pgtype.UUID{Bytes: invoice.ID, Valid: true}
		paymentStatus = enum.PaymentStatusPaid
		result.Invoice = &invoice
	}

	tableID := pgtype.UUID{}
	if req.TableID != uuid.Nil {
		tableID = pgtype.UUID{Bytes: req.TableID, Valid: true}
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		TenantID:      req.TenantID,
		TokenNo:       tokenNo,
		DeliveryType:  req.DeliveryType,
		CustomerType:  customerType,
		CustomerID:    customerID,
		TableID:       tableID,
		Status:        enum.OrderStatusPending,
		PaymentStatus: paymentStatus,
		InvoiceID:     invoiceID,
		CreatedBy:     req.Actor,
	})
	if err != nil {
		return PlaceOrderResult{}, fmt.Errorf("create order: %w", err)
	}
	result.Order = order

	for _, line := range cart {
		addons, err := marshalAddonIDs(line.AddonIDs)
		if err != nil {
			return PlaceOrderResult{}, err
		}
		variantID := pgtype.UUID{}
		if line.VariantID != uuid.Nil {
			variantID = pgtype.UUID{Bytes: line.VariantID, Valid: true}
		}
		notes := pgtype.Text{}
		if line.Notes != "" {
			notes = pgtype.Text{String: line.Notes, Valid: true}
		}
		item, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:    order.ID,
			MenuItemID: line.MenuItemID,
			VariantID:  variantID,
			Price:      decimalToNumeric(line.UnitPrice),
			Quantity:   line.Quantity,
			Notes:      notes,
			Addons:     addons,
			Status:     enum.OrderItemStatusPending,
		})
		if err != nil {
			return PlaceOrderResult{}, fmt.Errorf("create order item: %w", err)
		}
		result.Items = append(result.Items, item)
	}

	disabled, err := s.debitConsumption(ctx, store, req.TenantID, cart, tokenNo, req.Actor)
	if err != nil {
		return PlaceOrderResult{}, err
	}
	result.DisabledItems = disabled

	if err := tx.Commit(ctx); err != nil {
		return PlaceOrderResult{}, fmt.Errorf("commit tx: %w", err)
	}
	return result, nil
}

// buildCart resolves every line against the catalog: enabled menu item,
// variant and addons that belong to it, the full recipe set, and the
// unit price (variant price replaces, addon prices add).
func (s *OrderService) buildCart(ctx context.Context, tenantID uuid.UUID, lines []OrderLineRequest) ([]CartLine, error) {
	cart := make([]CartLine, 0, len(lines))
	for _, line := range lines {
		item, err := s.catalog.GetMenuItem(ctx, database.GetMenuItemParams{ID: line.MenuItemID, TenantID: tenantID})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrMenuItemNotFound
			}
			return nil, fmt.Errorf("read menu item: %w", err)
		}
		if !item.IsEnabled {
			return nil, fmt.Errorf("%w: %s", ErrMenuItemDisabled, item.Title)
		}

		unitPrice := numericToDecimal(item.Price)
		if line.VariantID != uuid.Nil {
			variant, err := s.catalog.GetMenuVariant(ctx, line.VariantID)
			if err != nil || variant.MenuItemID != item.ID {
				return nil, ErrVariantNotFound
			}
			unitPrice = numericToDecimal(variant.Price)
		}
		for _, addonID := range line.AddonIDs {
			addon, err := s.catalog.GetMenuAddon(ctx, addonID)
			if err != nil || addon.MenuItemID != item.ID {
				return nil, ErrAddonNotFound
			}
			unitPrice = unitPrice.Add(numericToDecimal(addon.Price))
		}

		recipeRows, err := s.catalog.ListRecipeItems(ctx, database.ListRecipeItemsParams{
			MenuItemID: item.ID,
			TenantID:   tenantID,
		})
		if err != nil {
			return nil, fmt.Errorf("read recipe: %w", err)
		}
		recipe := make([]RecipeLine, 0, len(recipeRows))
		for _, row := range recipeRows {
			rl := RecipeLineFromRow(row)
			rl.ScopeTitle, err = s.scopeTitle(ctx, rl.Scope)
			if err != nil {
				return nil, err
			}
			recipe = append(recipe, rl)
		}

		cart = append(cart, CartLine{
			MenuItemID: item.ID,
			ItemTitle:  item.Title,
			VariantID:  line.VariantID,
			AddonIDs:   line.AddonIDs,
			Quantity:   line.Quantity,
			Notes:      line.Notes,
			UnitPrice:  unitPrice,
			Recipe:     recipe,
		})
	}
	return cart, nil
}

func (s *OrderService) scopeTitle(ctx context.Context, scope RecipeScope) (string, error) {
	switch scope.Kind {
	case ScopeVariant:
		v, err := s.catalog.GetMenuVariant(ctx, scope.TargetID)
		if err != nil {
			return "", fmt.Errorf("read variant: %w", err)
		}
		return v.Title, nil
	case ScopeAddon:
		a, err := s.catalog.GetMenuAddon(ctx, scope.TargetID)
		if err != nil {
			return "", fmt.Errorf("read addon: %w", err)
		}
		return a.Title, nil
	}
	return "", nil
}

// resolveCustomer finds the customer by phone or creates one. No
// customer info means a walk-in order.
func (s *OrderService) resolveCustomer(ctx context.Context, store OrderStore, tenantID uuid.UUID, info *CustomerInfo) (pgtype.UUID, string, error) {
	if info == nil || info.Phone == "" {
		return pgtype.UUID{}, enum.CustomerTypeWalkIn, nil
	}

	customer, err := store.GetCustomerByPhone(ctx, database.GetCustomerByPhoneParams{
		TenantID: tenantID,
		Phone:    info.Phone,
	})
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return pgtype.UUID{}, "", fmt.Errorf("find customer: %w", err)
		}
		email := pgtype.Text{}
		if info.Email != "" {
			email = pgtype.Text{String: info.Email, Valid: true}
		}
		customer, err = store.CreateCustomer(ctx, database.CreateCustomerParams{
			TenantID: tenantID,
			Name:     info.Name,
			Phone:    info.Phone,
			Email:    email,
		})
		if err != nil {
			return pgtype.UUID{}, "", fmt.Errorf("create customer: %w", err)
		}
	}
	return pgtype.UUID{Bytes: customer.ID, Valid: true}, enum.CustomerTypeRegistered, nil
}

// createInvoice allocates the invoice number and writes the invoice.
// Tax per unit is the spread between gross and net price of the base
// item; variants and addons are treated as gross.
func (s *OrderService) createInvoice(ctx context.Context, store OrderStore, req PlaceOrderRequest, cart []CartLine) (database.Invoice, error) {
	invoiceNo, err := nextSequence(ctx, store, req.TenantID, enum.SequenceKindInvoice)
	if err != nil {
		return database.Invoice{}, err
	}

	subTotal := decimal.Zero
	taxTotal := decimal.Zero
	for _, line := range cart {
		qty := decimal.NewFromInt32(line.Quantity)
		gross := line.UnitPrice.Mul(qty)

		item, err := s.catalog.GetMenuItem(ctx, database.GetMenuItemParams{ID: line.MenuItemID, TenantID: req.TenantID})
		if err != nil {
			return database.Invoice{}, fmt.Errorf("read menu item for invoice: %w", err)
		}
		taxPerUnit := decimal.Zero
		if item.NetPrice.Valid {
			taxPerUnit = numericToDecimal(item.Price).Sub(numericToDecimal(item.NetPrice))
		}
		tax := taxPerUnit.Mul(qty)
		taxTotal = taxTotal.Add(tax)
		subTotal = subTotal.Add(gross.Sub(tax))
	}
	total := subTotal.Add(taxTotal)

	paymentType := pgtype.Text{}
	if req.PaymentType != "" {
		paymentType = pgtype.Text{String: req.PaymentType, Valid: true}
	}

	invoice, err := store.CreateInvoice(ctx, database.CreateInvoiceParams{
		TenantID:           req.TenantID,
		InvoiceNo:          invoiceNo,
		SubTotal:           decimalToNumeric(subTotal),
		TaxTotal:           decimalToNumeric(taxTotal),
		ServiceChargeTotal: decimalToNumeric(decimal.Zero),
		Total:              decimalToNumeric(total),
		PaymentType:        paymentType,
	})
	if err != nil {
		return database.Invoice{}, fmt.Errorf("create invoice: %w", err)
	}
	return invoice, nil
}

// debitConsumption locks and debits each consumed ingredient, writing
// an OUT ledger row per ingredient. Items are locked in a stable order
// so two concurrent orders never deadlock on each other's rows. When a
// base ingredient hits zero, menu items built on it are disabled.
func (s *OrderService) debitConsumption(ctx context.Context, store OrderStore, tenantID uuid.UUID, cart []CartLine, tokenNo int32, actor string) ([]uuid.UUID, error) {
	consumption := AggregateConsumption(cart)
	sort.Slice(consumption, func(i, j int) bool {
		return bytes.Compare(consumption[i].InventoryItemID[:], consumption[j].InventoryItemID[:]) < 0
	})

	var disabled []uuid.UUID
	for _, c := range consumption {
		item, err := store.GetInventoryItemForUpdate(ctx, database.GetInventoryItemParams{
			ID:       c.InventoryItemID,
			TenantID: tenantID,
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrItemNotFound
			}
			return nil, fmt.Errorf("lock inventory item: %w", err)
		}

		note := fmt.Sprintf("Order token #%d", tokenNo)
		newQty, _, err := applyMovement(ctx, store, item, enum.MovementTypeOut, c.Quantity, note, actor)
		if err != nil {
			return nil, err
		}

		if newQty.LessThanOrEqual(decimal.Zero) {
			ids, err := store.DisableMenuItemsWithBaseIngredient(ctx, database.DisableMenuItemsWithBaseIngredientParams{
				TenantID:        tenantID,
				InventoryItemID: item.ID,
			})
			if err != nil {
				return nil, fmt.Errorf("disable menu items: %w", err)
			}
			disabled = append(disabled, ids...)
		}
	}
	return disabled, nil
}

func marshalAddonIDs(ids []uuid.UUID) ([]byte, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("marshal addon ids: %w", err)
	}
	return b, nil
}
