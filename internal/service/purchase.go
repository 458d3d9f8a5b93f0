package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/restropos/api/internal/database"
	"github.com/restropos/api/internal/enum"
	"github.com/shopspring/decimal"
)

var (
	ErrPurchaseOrderNotFound = errors.New("purchase order not found")
	ErrPurchaseOrderClosed   = errors.New("purchase order already fulfilled or cancelled")
	ErrEmptyPurchaseOrder    = errors.New("purchase order must contain at least one item")
)

// PurchaseStore is the transactional surface of PO creation and
// fulfillment.
type PurchaseStore interface {
	SequenceStore
	LedgerStore
	GetInventoryItemForUpdate(ctx context.Context, arg database.GetInventoryItemParams) (database.InventoryItem, error)
	CreatePurchaseOrder(ctx context.Context, arg database.CreatePurchaseOrderParams) (database.PurchaseOrder, error)
	GetPurchaseOrder(ctx context.Context, arg database.GetPurchaseOrderParams) (database.PurchaseOrder, error)
	CompletePurchaseOrder(ctx context.Context, arg database.CompletePurchaseOrderParams) (database.PurchaseOrder, error)
	CreatePurchaseOrderItem(ctx context.Context, arg database.CreatePurchaseOrderItemParams) (database.PurchaseOrderItem, error)
	ListPurchaseOrderItems(ctx context.Context, purchaseOrderID uuid.UUID) ([]database.PurchaseOrderItem, error)
	ListDisabledMenuItems(ctx context.Context, tenantID uuid.UUID) ([]database.MenuItem, error)
	ListBaseRecipeStock(ctx context.Context, arg database.ListRecipeItemsParams) ([]database.BaseRecipeStock, error)
	SetMenuItemEnabled(ctx context.Context, arg database.SetMenuItemEnabledParams) error
}

type NewPurchaseStore func(db database.DBTX) PurchaseStore

// PurchaseService handles vendor purchase orders and the stock credit
// on fulfillment.
type PurchaseService struct {
	pool     TxBeginner
	newStore NewPurchaseStore
	now      func() time.Time
}

func NewPurchaseService(pool TxBeginner, newStore NewPurchaseStore) *PurchaseService {
	return &PurchaseService{pool: pool, newStore: newStore, now: time.Now}
}

type PurchaseLineRequest struct {
	InventoryItemID uuid.UUID
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
}

type CreatePurchaseOrderRequest struct {
	TenantID   uuid.UUID
	VendorName string
	Lines      []PurchaseLineRequest
	Actor      string
}

// CreatePurchaseOrder allocates the PO number and writes the order and
// its lines. Stock is untouched until fulfillment.
func (s *PurchaseService) CreatePurchaseOrder(ctx context.Context, req CreatePurchaseOrderRequest) (database.PurchaseOrder, []database.PurchaseOrderItem, error) {
	if len(req.Lines) == 0 {
		return database.PurchaseOrder{}, nil, ErrEmptyPurchaseOrder
	}
	for _, line := range req.Lines {
		if !line.Quantity.IsPositive() {
			return database.PurchaseOrder{}, nil, ErrInvalidQuantity
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.PurchaseOrder{}, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	poNumber, err := nextSequence(ctx, store, req.TenantID, enum.SequenceKindPurchaseOrder)
	if err != nil {
		return database.PurchaseOrder{}, nil, err
	}

	po, err := store.CreatePurchaseOrder(ctx, database.CreatePurchaseOrderParams{
		TenantID:   req.TenantID,
		PoNumber:   poNumber,
		VendorName: req.VendorName,
		Status:     enum.PurchaseOrderStatusPending,
		CreatedBy:  req.Actor,
	})
	if err != nil {
		return database.PurchaseOrder{}, nil, fmt.Errorf("create purchase order: %w", err)
	}

	items := make([]database.PurchaseOrderItem, 0, len(req.Lines))
	for _, line := range req.Lines {
		item, err := store.CreatePurchaseOrderItem(ctx, database.CreatePurchaseOrderItemParams{
			PurchaseOrderID: po.ID,
			InventoryItemID: line.InventoryItemID,
			Quantity:        decimalToNumeric(line.Quantity),
			UnitPrice:       decimalToNumeric(line.UnitPrice),
		})
		if err != nil {
			return database.PurchaseOrder{}, nil, fmt.Errorf("create purchase order item: %w", err)
		}
		items = append(items, item)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.PurchaseOrder{}, nil, fmt.Errorf("commit tx: %w", err)
	}
	return po, items, nil
}

// FulfillPurchaseOrderRequest carries the fulfillment inputs. A zero
// FulfilledAt stamps the current time; backdated deliveries pass the
// actual receipt date.
type FulfillPurchaseOrderRequest struct {
	TenantID        uuid.UUID
	PurchaseOrderID uuid.UUID
	FulfilledAt     time.Time
	Actor           string
}

// FulfillPurchaseOrder marks a pending PO completed and credits every
// line into stock with an IN ledger row. Menu items that were disabled
// by a stock-out are re-enabled if their base requirements are now
// covered. Fulfilling a PO that is not pending fails without touching
// stock.
func (s *PurchaseService) FulfillPurchaseOrder(ctx context.Context, req FulfillPurchaseOrderRequest) (database.PurchaseOrder, []uuid.UUID, error) {
	fulfilledAt := req.FulfilledAt
	if fulfilledAt.IsZero() {
		fulfilledAt = s.now()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.PurchaseOrder{}, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	po, err := store.CompletePurchaseOrder(ctx, database.CompletePurchaseOrderParams{
		ID:          req.PurchaseOrderID,
		TenantID:    req.TenantID,
		FulfilledAt: pgtype.Timestamptz{Time: fulfilledAt, Valid: true},
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Either no such PO or it is no longer pending.
			if _, getErr := store.GetPurchaseOrder(ctx, database.GetPurchaseOrderParams{ID: req.PurchaseOrderID, TenantID: req.TenantID}); getErr == nil {
				return database.PurchaseOrder{}, nil, ErrPurchaseOrderClosed
			}
			return database.PurchaseOrder{}, nil, ErrPurchaseOrderNotFound
		}
		return database.PurchaseOrder{}, nil, fmt.Errorf("complete purchase order: %w", err)
	}

	lines, err := store.ListPurchaseOrderItems(ctx, po.ID)
	if err != nil {
		return database.PurchaseOrder{}, nil, fmt.Errorf("list purchase order items: %w", err)
	}

	note := fmt.Sprintf("Received via PO #%d", po.PoNumber)
	for _, line := range lines {
		item, err := store.GetInventoryItemForUpdate(ctx, database.GetInventoryItemParams{
			ID:       line.InventoryItemID,
			TenantID: req.TenantID,
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return database.PurchaseOrder{}, nil, ErrItemNotFound
			}
			return database.PurchaseOrder{}, nil, fmt.Errorf("lock inventory item: %w", err)
		}
		_, _, err = applyMovement(ctx, store, item, enum.MovementTypeIn, numericToDecimal(line.Quantity), note, req.Actor)
		if err != nil {
			return database.PurchaseOrder{}, nil, err
		}
	}

	reenabled, err := s.reenableMenuItems(ctx, store, req.TenantID)
	if err != nil {
		return database.PurchaseOrder{}, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return database.PurchaseOrder{}, nil, fmt.Errorf("commit tx: %w", err)
	}
	return po, reenabled, nil
}

// reenableMenuItems scans the disabled menu items and re-enables those
// whose base recipe requirements are all covered by current stock. An
// item with no base recipe rows stays disabled; it was turned off by
// hand, not by a stock-out.
func (s *PurchaseService) reenableMenuItems(ctx context.Context, store PurchaseStore, tenantID uuid.UUID) ([]uuid.UUID, error) {
	disabled, err := store.ListDisabledMenuItems(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list disabled menu items: %w", err)
	}

	var reenabled []uuid.UUID
	for _, item := range disabled {
		stock, err := store.ListBaseRecipeStock(ctx, database.ListRecipeItemsParams{
			MenuItemID: item.ID,
			TenantID:   tenantID,
		})
		if err != nil {
			return nil, fmt.Errorf("read base recipe stock: %w", err)
		}
		if len(stock) == 0 {
			continue
		}

		covered := true
		for _, row := range stock {
			if numericToDecimal(row.Current).LessThan(numericToDecimal(row.Required)) {
				covered = false
				break
			}
		}
		if !covered {
			continue
		}

		err = store.SetMenuItemEnabled(ctx, database.SetMenuItemEnabledParams{
			ID:        item.ID,
			TenantID:  tenantID,
			IsEnabled: true,
		})
		if err != nil {
			return nil, fmt.Errorf("enable menu item: %w", err)
		}
		reenabled = append(reenabled, item.ID)
	}
	return reenabled, nil
}
