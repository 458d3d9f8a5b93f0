package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type CreateInventoryItemParams struct {
	TenantID             uuid.UUID
	Title                string
	Quantity             pgtype.Numeric
	Unit                 string
	MinQuantityThreshold pgtype.Numeric
	Status               string
}

func (q *Queries) CreateInventoryItem(ctx context.Context, arg CreateInventoryItemParams) (InventoryItem, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO inventory_items (tenant_id, title, quantity, unit, min_quantity_threshold, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, tenant_id, title, quantity, unit, min_quantity_threshold, status, created_at, updated_at`,
		arg.TenantID, arg.Title, arg.Quantity, arg.Unit, arg.MinQuantityThreshold, arg.Status)
	var i InventoryItem
	err := row.Scan(&i.ID, &i.TenantID, &i.Title, &i.Quantity, &i.Unit, &i.MinQuantityThreshold, &i.Status, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

type GetInventoryItemParams struct {
	ID       uuid.UUID
	TenantID uuid.UUID
}

func (q *Queries) GetInventoryItem(ctx context.Context, arg GetInventoryItemParams) (InventoryItem, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, tenant_id, title, quantity, unit, min_quantity_threshold, status, created_at, updated_at
		FROM inventory_items
		WHERE id = $1 AND tenant_id = $2`,
		arg.ID, arg.TenantID)
	var i InventoryItem
	err := row.Scan(&i.ID, &i.TenantID, &i.Title, &i.Quantity, &i.Unit, &i.MinQuantityThreshold, &i.Status, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

// GetInventoryItemForUpdate row-locks the item for the duration of the
// enclosing transaction. Concurrent debits/credits on the same item
// serialize here.
func (q *Queries) GetInventoryItemForUpdate(ctx context.Context, arg GetInventoryItemParams) (InventoryItem, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, tenant_id, title, quantity, unit, min_quantity_threshold, status, created_at, updated_at
		FROM inventory_items
		WHERE id = $1 AND tenant_id = $2
		FOR UPDATE`,
		arg.ID, arg.TenantID)
	var i InventoryItem
	err := row.Scan(&i.ID, &i.TenantID, &i.Title, &i.Quantity, &i.Unit, &i.MinQuantityThreshold, &i.Status, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

func (q *Queries) ListInventoryItems(ctx context.Context, tenantID uuid.UUID) ([]InventoryItem, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, tenant_id, title, quantity, unit, min_quantity_threshold, status, created_at, updated_at
		FROM inventory_items
		WHERE tenant_id = $1
		ORDER BY title`,
		tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []InventoryItem
	for rows.Next() {
		var i InventoryItem
		if err := rows.Scan(&i.ID, &i.TenantID, &i.Title, &i.Quantity, &i.Unit, &i.MinQuantityThreshold, &i.Status, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type UpdateInventoryItemQuantityParams struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	Quantity pgtype.Numeric
	Status   string
}

func (q *Queries) UpdateInventoryItemQuantity(ctx context.Context, arg UpdateInventoryItemQuantityParams) error {
	_, err := q.db.Exec(ctx, `
		UPDATE inventory_items
		SET quantity = $3, status = $4, updated_at = now()
		WHERE id = $1 AND tenant_id = $2`,
		arg.ID, arg.TenantID, arg.Quantity, arg.Status)
	return err
}

type CreateInventoryLogParams struct {
	TenantID         uuid.UUID
	InventoryItemID  uuid.UUID
	MovementType     string
	QuantityChange   pgtype.Numeric
	PreviousQuantity pgtype.Numeric
	NewQuantity      pgtype.Numeric
	Note             pgtype.Text
	CreatedBy        string
}

func (q *Queries) CreateInventoryLog(ctx context.Context, arg CreateInventoryLogParams) (InventoryLog, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO inventory_logs (tenant_id, inventory_item_id, movement_type, quantity_change, previous_quantity, new_quantity, note, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, tenant_id, inventory_item_id, movement_type, quantity_change, previous_quantity, new_quantity, note, created_by, created_at`,
		arg.TenantID, arg.InventoryItemID, arg.MovementType, arg.QuantityChange, arg.PreviousQuantity, arg.NewQuantity, arg.Note, arg.CreatedBy)
	var l InventoryLog
	err := row.Scan(&l.ID, &l.TenantID, &l.InventoryItemID, &l.MovementType, &l.QuantityChange, &l.PreviousQuantity, &l.NewQuantity, &l.Note, &l.CreatedBy, &l.CreatedAt)
	return l, err
}

type ListInventoryLogsParams struct {
	InventoryItemID uuid.UUID
	TenantID        uuid.UUID
	Limit           int32
}

func (q *Queries) ListInventoryLogs(ctx context.Context, arg ListInventoryLogsParams) ([]InventoryLog, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, tenant_id, inventory_item_id, movement_type, quantity_change, previous_quantity, new_quantity, note, created_by, created_at
		FROM inventory_logs
		WHERE inventory_item_id = $1 AND tenant_id = $2
		ORDER BY created_at, id
		LIMIT $3`,
		arg.InventoryItemID, arg.TenantID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var logs []InventoryLog
	for rows.Next() {
		var l InventoryLog
		if err := rows.Scan(&l.ID, &l.TenantID, &l.InventoryItemID, &l.MovementType, &l.QuantityChange, &l.PreviousQuantity, &l.NewQuantity, &l.Note, &l.CreatedBy, &l.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
