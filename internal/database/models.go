package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Tenant struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

type User struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	Email          string
	HashedPassword string
	FullName       string
	Role           string
	CreatedAt      time.Time
}

type Customer struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Name      string
	Phone     string
	Email     pgtype.Text
	CreatedAt time.Time
}

// DiningTable maps a physical table to the QR code printed on it.
type DiningTable struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Title     string
	QrCode    string
	CreatedAt time.Time
}

type MenuItem struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	Title      string
	Price      pgtype.Numeric
	NetPrice   pgtype.Numeric
	TaxID      pgtype.UUID
	CategoryID pgtype.UUID
	IsEnabled  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// MenuVariant replaces the base price when selected.
type MenuVariant struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	MenuItemID uuid.UUID
	Title      string
	Price      pgtype.Numeric
}

// MenuAddon adds its price on top of the item price.
type MenuAddon struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	MenuItemID uuid.UUID
	Title      string
	Price      pgtype.Numeric
}

// RecipeItem declares how much of one ingredient a menu item consumes
// per unit. VariantID/AddonID scope the row: both null means the base
// requirement, exactly one set scopes it to that variant or addon.
type RecipeItem struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	MenuItemID      uuid.UUID
	InventoryItemID uuid.UUID
	VariantID       pgtype.UUID
	AddonID         pgtype.UUID
	Quantity        pgtype.Numeric
}

type InventoryItem struct {
	ID                   uuid.UUID
	TenantID             uuid.UUID
	Title                string
	Quantity             pgtype.Numeric
	Unit                 string
	MinQuantityThreshold pgtype.Numeric
	Status               string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// InventoryLog rows are append-only; quantity_change is always the
// positive magnitude, the movement type carries the sign.
type InventoryLog struct {
	ID               uuid.UUID
	TenantID         uuid.UUID
	InventoryItemID  uuid.UUID
	MovementType     string
	QuantityChange   pgtype.Numeric
	PreviousQuantity pgtype.Numeric
	NewQuantity      pgtype.Numeric
	Note             pgtype.Text
	CreatedBy        string
	CreatedAt        time.Time
}

type Order struct {
	ID            uuid.UUID
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
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type OrderItem struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	MenuItemID uuid.UUID
	VariantID  pgtype.UUID
	Price      pgtype.Numeric
	Quantity   int32
	Notes      pgtype.Text
	Addons     []byte // jsonb array of addon ids, null when none
	Status     string
}

type Invoice struct {
	ID                 uuid.UUID
	TenantID           uuid.UUID
	InvoiceNo          int64
	SubTotal           pgtype.Numeric
	TaxTotal           pgtype.Numeric
	ServiceChargeTotal pgtype.Numeric
	Total              pgtype.Numeric
	PaymentType        pgtype.Text
	CreatedAt          time.Time
}

type PurchaseOrder struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	PoNumber    int64
	VendorName  string
	Status      string
	FulfilledAt pgtype.Timestamptz
	CreatedBy   string
	CreatedAt   time.Time
}

type PurchaseOrderItem struct {
	ID              uuid.UUID
	PurchaseOrderID uuid.UUID
	InventoryItemID uuid.UUID
	Quantity        pgtype.Numeric
	UnitPrice       pgtype.Numeric
}
