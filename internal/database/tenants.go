package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

func (q *Queries) CreateTenant(ctx context.Context, name string) (Tenant, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO tenants (name)
		VALUES ($1)
		RETURNING id, name, created_at`, name)
	var t Tenant
	err := row.Scan(&t.ID, &t.Name, &t.CreatedAt)
	return t, err
}

// --- Customers ---

type CreateCustomerParams struct {
	TenantID uuid.UUID
	Name     string
	Phone    string
	Email    pgtype.Text
}

func (q *Queries) CreateCustomer(ctx context.Context, arg CreateCustomerParams) (Customer, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO customers (tenant_id, name, phone, email)
		VALUES ($1, $2, $3, $4)
		RETURNING id, tenant_id, name, phone, email, created_at`,
		arg.TenantID, arg.Name, arg.Phone, arg.Email)
	return scanCustomer(row)
}

type GetCustomerByPhoneParams struct {
	TenantID uuid.UUID
	Phone    string
}

func (q *Queries) GetCustomerByPhone(ctx context.Context, arg GetCustomerByPhoneParams) (Customer, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, tenant_id, name, phone, email, created_at
		FROM customers
		WHERE tenant_id = $1 AND phone = $2`,
		arg.TenantID, arg.Phone)
	return scanCustomer(row)
}

func scanCustomer(row rowScanner) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.TenantID, &c.Name, &c.Phone, &c.Email, &c.CreatedAt)
	return c, err
}

// --- Dining tables ---

type CreateDiningTableParams struct {
	TenantID uuid.UUID
	Title    string
	QrCode   string
}

func (q *Queries) CreateDiningTable(ctx context.Context, arg CreateDiningTableParams) (DiningTable, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO dining_tables (tenant_id, title, qr_code)
		VALUES ($1, $2, $3)
		RETURNING id, tenant_id, title, qr_code, created_at`,
		arg.TenantID, arg.Title, arg.QrCode)
	return scanDiningTable(row)
}

// GetDiningTableByQrCode resolves a scanned QR code to its table and
// tenant. This is how the public QR-menu flow finds its tenant scope.
func (q *Queries) GetDiningTableByQrCode(ctx context.Context, qrCode string) (DiningTable, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, tenant_id, title, qr_code, created_at
		FROM dining_tables
		WHERE qr_code = $1`, qrCode)
	return scanDiningTable(row)
}

func (q *Queries) ListDiningTables(ctx context.Context, tenantID uuid.UUID) ([]DiningTable, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, tenant_id, title, qr_code, created_at
		FROM dining_tables
		WHERE tenant_id = $1
		ORDER BY title`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tables []DiningTable
	for rows.Next() {
		t, err := scanDiningTable(rows)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

func scanDiningTable(row rowScanner) (DiningTable, error) {
	var t DiningTable
	err := row.Scan(&t.ID, &t.TenantID, &t.Title, &t.QrCode, &t.CreatedAt)
	return t, err
}
