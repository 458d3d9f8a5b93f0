package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/restropos/api/internal/database"
	"github.com/restropos/api/internal/enum"
	"github.com/shopspring/decimal"
)

// Errors returned by the inventory service.
var (
	ErrItemNotFound         = errors.New("inventory item not found")
	ErrInvalidMovementType  = errors.New("invalid stock movement type")
	ErrInsufficientQuantity = errors.New("insufficient quantity in stock")
	ErrInvalidQuantity      = errors.New("quantity must be > 0")
	ErrNegativeQuantity     = errors.New("quantity must be >= 0")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// LedgerStore is the minimal surface for one guarded stock movement on
// an already-locked item. All debit/credit paths (manual movements,
// order debits, purchase-order credits) go through applyMovement so the
// non-negative guard holds everywhere.
type LedgerStore interface {
	CreateInventoryLog(ctx context.Context, arg database.CreateInventoryLogParams) (database.InventoryLog, error)
	UpdateInventoryItemQuantity(ctx context.Context, arg database.UpdateInventoryItemQuantityParams) error
}

// InventoryStore defines the DB methods needed by the inventory service.
type InventoryStore interface {
	LedgerStore
	CreateInventoryItem(ctx context.Context, arg database.CreateInventoryItemParams) (database.InventoryItem, error)
	GetInventoryItemForUpdate(ctx context.Context, arg database.GetInventoryItemParams) (database.InventoryItem, error)
}

// NewInventoryStore creates an InventoryStore from a DBTX (pool or tx).
type NewInventoryStore func(db database.DBTX) InventoryStore

// InventoryService owns the stock ledger: item creation and the
// guarded manual IN/OUT/WASTAGE movement path.
type InventoryService struct {
	pool     TxBeginner
	newStore NewInventoryStore
}

func NewInventoryService(pool TxBeginner, newStore NewInventoryStore) *InventoryService {
	return &InventoryService{pool: pool, newStore: newStore}
}

// StockStatus derives the item status from quantity and threshold.
func StockStatus(quantity, minThreshold decimal.Decimal) string {
	switch {
	case quantity.LessThanOrEqual(decimal.Zero):
		return enum.StockStatusOut
	case quantity.LessThanOrEqual(minThreshold):
		return enum.StockStatusLow
	default:
		return enum.StockStatusIn
	}
}

// CreateItemRequest is the validated input for adding an ingredient.
type CreateItemRequest struct {
	TenantID     uuid.UUID
	Title        string
	Quantity     decimal.Decimal
	Unit         string
	MinThreshold decimal.Decimal
	Actor        string
}

// CreateItem inserts the ingredient and the synthetic initial-stock IN
// log in one transaction, so the ledger reconstructs the quantity from
// its first row onward.
func (s *InventoryService) CreateItem(ctx context.Context, req CreateItemRequest) (database.InventoryItem, error) {
	if req.Quantity.IsNegative() {
		return database.InventoryItem{}, ErrNegativeQuantity
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.InventoryItem{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	item, err := store.CreateInventoryItem(ctx, database.CreateInventoryItemParams{
		TenantID:             req.TenantID,
		Title:                req.Title,
		Quantity:             decimalToNumeric(req.Quantity),
		Unit:                 req.Unit,
		MinQuantityThreshold: decimalToNumeric(req.MinThreshold),
		Status:               StockStatus(req.Quantity, req.MinThreshold),
	})
	if err != nil {
		return database.InventoryItem{}, fmt.Errorf("create inventory item: %w", err)
	}

	_, err = store.CreateInventoryLog(ctx, database.CreateInventoryLogParams{
		TenantID:         req.TenantID,
		InventoryItemID:  item.ID,
		MovementType:     enum.MovementTypeIn,
		QuantityChange:   decimalToNumeric(req.Quantity),
		PreviousQuantity: decimalToNumeric(decimal.Zero),
		NewQuantity:      decimalToNumeric(req.Quantity),
		Note:             pgtype.Text{String: "Initial stock", Valid: true},
		CreatedBy:        req.Actor,
	})
	if err != nil {
		return database.InventoryItem{}, fmt.Errorf("write initial stock log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.InventoryItem{}, fmt.Errorf("commit tx: %w", err)
	}
	return item, nil
}

// RecordMovementRequest is the validated input for a manual adjustment.
type RecordMovementRequest struct {
	ItemID       uuid.UUID
	TenantID     uuid.UUID
	MovementType string
	Quantity     decimal.Decimal
	Note         string
	Actor        string
}

// RecordMovement applies one manual IN/OUT/WASTAGE movement. The item
// row is locked for the duration, the resulting quantity may never go
// negative, and the ledger row is written in the same transaction.
func (s *InventoryService) RecordMovement(ctx context.Context, req RecordMovementRequest) (database.InventoryItem, error) {
	switch req.MovementType {
	case enum.MovementTypeIn, enum.MovementTypeOut, enum.MovementTypeWastage:
	default:
		return database.InventoryItem{}, ErrInvalidMovementType
	}
	if !req.Quantity.IsPositive() {
		return database.InventoryItem{}, ErrInvalidQuantity
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.InventoryItem{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	item, err := store.GetInventoryItemForUpdate(ctx, database.GetInventoryItemParams{
		ID:       req.ItemID,
		TenantID: req.TenantID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.InventoryItem{}, ErrItemNotFound
		}
		return database.InventoryItem{}, fmt.Errorf("lock inventory item: %w", err)
	}

	newQty, status, err := applyMovement(ctx, store, item, req.MovementType, req.Quantity, req.Note, req.Actor)
	if err != nil {
		return database.InventoryItem{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return database.InventoryItem{}, fmt.Errorf("commit tx: %w", err)
	}

	item.Quantity = decimalToNumeric(newQty)
	item.Status = status
	return item, nil
}

// applyMovement performs one guarded ledger-backed quantity change on a
// row-locked item: sign the delta by movement type, reject a negative
// result, append the log row, update the projection. Callers must hold
// the row lock obtained via GetInventoryItemForUpdate.
func applyMovement(ctx context.Context, store LedgerStore, item database.InventoryItem, movementType string, quantity decimal.Decimal, note, actor string) (decimal.Decimal, string, error) {
	previous := numericToDecimal(item.Quantity)

	delta := quantity
	if movementType == enum.MovementTypeOut || movementType == enum.MovementTypeWastage {
		delta = quantity.Neg()
	}

	newQty := previous.Add(delta)
	if newQty.IsNegative() {
		return decimal.Decimal{}, "", fmt.Errorf("%w: %s (have %s, need %s)",
			ErrInsufficientQuantity, item.Title, previous.String(), quantity.String())
	}

	status := StockStatus(newQty, numericToDecimal(item.MinQuantityThreshold))

	logNote := pgtype.Text{}
	if note != "" {
		logNote = pgtype.Text{String: note, Valid: true}
	}

	_, err := store.CreateInventoryLog(ctx, database.CreateInventoryLogParams{
		TenantID:         item.TenantID,
		InventoryItemID:  item.ID,
		MovementType:     movementType,
		QuantityChange:   decimalToNumeric(quantity),
		PreviousQuantity: decimalToNumeric(previous),
		NewQuantity:      decimalToNumeric(newQty),
		Note:             logNote,
		CreatedBy:        actor,
	})
	if err != nil {
		return decimal.Decimal{}, "", fmt.Errorf("write inventory log: %w", err)
	}

	err = store.UpdateInventoryItemQuantity(ctx, database.UpdateInventoryItemQuantityParams{
		ID:       item.ID,
		TenantID: item.TenantID,
		Quantity: decimalToNumeric(newQty),
		Status:   status,
	})
	if err != nil {
		return decimal.Decimal{}, "", fmt.Errorf("update inventory item: %w", err)
	}

	return newQty, status, nil
}

// --- Numeric helpers ---

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.String())
	return n
}
