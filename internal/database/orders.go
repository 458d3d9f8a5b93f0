package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type CreateOrderParams struct {
	TenantID      uuid.UUID
	TokenNo       int32
	DeliveryType  string
	CustomerType  string
	CustomerID    pgtype.UUID
	TableID       pgtype.UUID
	Status        string
	PaymentStatus string
	InvoiceID     pgtype.UUID
	CreatedBy     string
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO orders (tenant_id, token_no, delivery_type, customer_type, customer_id, table_id, status, payment_status, invoice_id, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, tenant_id, token_no, delivery_type, customer_type, customer_id, table_id, status, payment_status, invoice_id, created_by, created_at, updated_at`,
		arg.TenantID, arg.TokenNo, arg.DeliveryType, arg.CustomerType, arg.CustomerID, arg.TableID, arg.Status, arg.PaymentStatus, arg.InvoiceID, arg.CreatedBy)
	return scanOrder(row)
}

type CreateOrderItemParams struct {
	OrderID    uuid.UUID
	MenuItemID uuid.UUID
	VariantID  pgtype.UUID
	Price      pgtype.Numeric
	Quantity   int32
	Notes      pgtype.Text
	Addons     []byte
	Status     string
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO order_items (order_id, menu_item_id, variant_id, price, quantity, notes, addons, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, order_id, menu_item_id, variant_id, price, quantity, notes, addons, status`,
		arg.OrderID, arg.MenuItemID, arg.VariantID, arg.Price, arg.Quantity, arg.Notes, arg.Addons, arg.Status)
	var i OrderItem
	err := row.Scan(&i.ID, &i.OrderID, &i.MenuItemID, &i.VariantID, &i.Price, &i.Quantity, &i.Notes, &i.Addons, &i.Status)
	return i, err
}

type GetOrderParams struct {
	ID       uuid.UUID
	TenantID uuid.UUID
}

func (q *Queries) GetOrder(ctx context.Context, arg GetOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, tenant_id, token_no, delivery_type, customer_type, customer_id, table_id, status, payment_status, invoice_id, created_by, created_at, updated_at
		FROM orders
		WHERE id = $1 AND tenant_id = $2`,
		arg.ID, arg.TenantID)
	return scanOrder(row)
}

type ListOrdersParams struct {
	TenantID uuid.UUID
	Limit    int32
	Offset   int32
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, tenant_id, token_no, delivery_type, customer_type, customer_id, table_id, status, payment_status, invoice_id, created_by, created_at, updated_at
		FROM orders
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		arg.TenantID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (q *Queries) ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, order_id, menu_item_id, variant_id, price, quantity, notes, addons, status
		FROM order_items
		WHERE order_id = $1`,
		orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		var i OrderItem
		if err := rows.Scan(&i.ID, &i.OrderID, &i.MenuItemID, &i.VariantID, &i.Price, &i.Quantity, &i.Notes, &i.Addons, &i.Status); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type UpdateOrderStatusParams struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	Status   string
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders
		SET status = $3, updated_at = now()
		WHERE id = $1 AND tenant_id = $2
		RETURNING id, tenant_id, token_no, delivery_type, customer_type, customer_id, table_id, status, payment_status, invoice_id, created_by, created_at, updated_at`,
		arg.ID, arg.TenantID, arg.Status)
	return scanOrder(row)
}

type CreateInvoiceParams struct {
	TenantID           uuid.UUID
	InvoiceNo          int64
	SubTotal           pgtype.Numeric
	TaxTotal           pgtype.Numeric
	ServiceChargeTotal pgtype.Numeric
	Total              pgtype.Numeric
	PaymentType        pgtype.Text
}

func (q *Queries) CreateInvoice(ctx context.Context, arg CreateInvoiceParams) (Invoice, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO invoices (tenant_id, invoice_no, sub_total, tax_total, service_charge_total, total, payment_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, tenant_id, invoice_no, sub_total, tax_total, service_charge_total, total, payment_type, created_at`,
		arg.TenantID, arg.InvoiceNo, arg.SubTotal, arg.TaxTotal, arg.ServiceChargeTotal, arg.Total, arg.PaymentType)
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.TenantID, &inv.InvoiceNo, &inv.SubTotal, &inv.TaxTotal, &inv.ServiceChargeTotal, &inv.Total, &inv.PaymentType, &inv.CreatedAt)
	return inv, err
}

func scanOrder(row rowScanner) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.TenantID, &o.TokenNo, &o.DeliveryType, &o.CustomerType, &o.CustomerID, &o.TableID, &o.Status, &o.PaymentStatus, &o.InvoiceID, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}
