package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type CreatePurchaseOrderParams struct {
	TenantID   uuid.UUID
	PoNumber   int64
	VendorName string
	Status     string
	CreatedBy  string
}

func (q *Queries) CreatePurchaseOrder(ctx context.Context, arg CreatePurchaseOrderParams) (PurchaseOrder, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO purchase_orders (tenant_id, po_number, vendor_name, status, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, tenant_id, po_number, vendor_name, status, fulfilled_at, created_by, created_at`,
		arg.TenantID, arg.PoNumber, arg.VendorName, arg.Status, arg.CreatedBy)
	return scanPurchaseOrder(row)
}

type GetPurchaseOrderParams struct {
	ID       uuid.UUID
	TenantID uuid.UUID
}

func (q *Queries) GetPurchaseOrder(ctx context.Context, arg GetPurchaseOrderParams) (PurchaseOrder, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, tenant_id, po_number, vendor_name, status, fulfilled_at, created_by, created_at
		FROM purchase_orders
		WHERE id = $1 AND tenant_id = $2`,
		arg.ID, arg.TenantID)
	return scanPurchaseOrder(row)
}

type CompletePurchaseOrderParams struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	FulfilledAt pgtype.Timestamptz
}

// CompletePurchaseOrder flips a pending PO to completed. The status
// precondition is enforced in SQL so a double fulfillment surfaces as
// pgx.ErrNoRows instead of a second stock credit.
func (q *Queries) CompletePurchaseOrder(ctx context.Context, arg CompletePurchaseOrderParams) (PurchaseOrder, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE purchase_orders
		SET status = 'completed', fulfilled_at = $3
		WHERE id = $1 AND tenant_id = $2 AND status = 'pending'
		RETURNING id, tenant_id, po_number, vendor_name, status, fulfilled_at, created_by, created_at`,
		arg.ID, arg.TenantID, arg.FulfilledAt)
	return scanPurchaseOrder(row)
}

type CreatePurchaseOrderItemParams struct {
	PurchaseOrderID uuid.UUID
	InventoryItemID uuid.UUID
	Quantity        pgtype.Numeric
	UnitPrice       pgtype.Numeric
}

func (q *Queries) CreatePurchaseOrderItem(ctx context.Context, arg CreatePurchaseOrderItemParams) (PurchaseOrderItem, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO purchase_order_items (purchase_order_id, inventory_item_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4)
		RETURNING id, purchase_order_id, inventory_item_id, quantity, unit_price`,
		arg.PurchaseOrderID, arg.InventoryItemID, arg.Quantity, arg.UnitPrice)
	var i PurchaseOrderItem
	err := row.Scan(&i.ID, &i.PurchaseOrderID, &i.InventoryItemID, &i.Quantity, &i.UnitPrice)
	return i, err
}

func (q *Queries) ListPurchaseOrderItems(ctx context.Context, purchaseOrderID uuid.UUID) ([]PurchaseOrderItem, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, purchase_order_id, inventory_item_id, quantity, unit_price
		FROM purchase_order_items
		WHERE purchase_order_id = $1`,
		purchaseOrderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PurchaseOrderItem
	for rows.Next() {
		var i PurchaseOrderItem
		if err := rows.Scan(&i.ID, &i.PurchaseOrderID, &i.InventoryItemID, &i.Quantity, &i.UnitPrice); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

func scanPurchaseOrder(row pgx.Row) (PurchaseOrder, error) {
	var p PurchaseOrder
	err := row.Scan(&p.ID, &p.TenantID, &p.PoNumber, &p.VendorName, &p.Status, &p.FulfilledAt, &p.CreatedBy, &p.CreatedAt)
	return p, err
}
