package enum

// ── Order lifecycle (CHECK constrained in DB) ──

const (
	OrderStatusPending   = "pending"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
)

const (
	OrderItemStatusPending   = "pending"
	OrderItemStatusPreparing = "preparing"
	OrderItemStatusReady     = "ready"
	OrderItemStatusDelivered = "delivered"
)

// ── Inventory (CHECK constrained in DB) ──

const (
	MovementTypeIn      = "IN"
	MovementTypeOut     = "OUT"
	MovementTypeWastage = "WASTAGE"
)

const (
	StockStatusIn  = "in"
	StockStatusLow = "low"
	StockStatusOut = "out"
)

const (
	PurchaseOrderStatusPending   = "pending"
	PurchaseOrderStatusCompleted = "completed"
	PurchaseOrderStatusCancelled = "cancelled"
)

// ── Request attributes (no DB constraint) ──

const (
	DeliveryTypeDineIn   = "DINE_IN"
	DeliveryTypeTakeaway = "TAKEAWAY"
	DeliveryTypeDelivery = "DELIVERY"
)

const (
	CustomerTypeWalkIn     = "WALK_IN"
	CustomerTypeRegistered = "REGISTERED"
)

const (
	UserRoleAdmin   = "ADMIN"
	UserRoleManager = "MANAGER"
	UserRoleCashier = "CASHIER"
	UserRoleKitchen = "KITCHEN"
)

// ── Sequence kinds (rows in the sequences table) ──

const (
	SequenceKindInvoice       = "invoice"
	SequenceKindPurchaseOrder = "purchase_order"
)
