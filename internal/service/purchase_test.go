package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/restropos/api/internal/database"
	"github.com/restropos/api/internal/enum"
	"github.com/shopspring/decimal"
)

type mockPurchaseStore struct {
	mockSequenceStore
	mockInventoryStore
	createPOFn     func(ctx context.Context, arg database.CreatePurchaseOrderParams) (database.PurchaseOrder, error)
	getPOFn        func(ctx context.Context, arg database.GetPurchaseOrderParams) (database.PurchaseOrder, error)
	completePOFn   func(ctx context.Context, arg database.CompletePurchaseOrderParams) (database.PurchaseOrder, error)
	createPOItemFn func(ctx context.Context, arg database.CreatePurchaseOrderItemParams) (database.PurchaseOrderItem, error)
	listPOItemsFn  func(ctx context.Context, purchaseOrderID uuid.UUID) ([]database.PurchaseOrderItem, error)
	listDisabledFn func(ctx context.Context, tenantID uuid.UUID) ([]database.MenuItem, error)
	listBaseFn     func(ctx context.Context, arg database.ListRecipeItemsParams) ([]database.BaseRecipeStock, error)
	setEnabledFn   func(ctx context.Context, arg database.SetMenuItemEnabledParams) error
}

func (m *mockPurchaseStore) CreatePurchaseOrder(ctx context.Context, arg database.CreatePurchaseOrderParams) (database.PurchaseOrder, error) {
	return m.createPOFn(ctx, arg)
}
func (m *mockPurchaseStore) GetPurchaseOrder(ctx context.Context, arg database.GetPurchaseOrderParams) (database.PurchaseOrder, error) {
	return m.getPOFn(ctx, arg)
}
func (m *mockPurchaseStore) CompletePurchaseOrder(ctx context.Context, arg database.CompletePurchaseOrderParams) (database.PurchaseOrder, error) {
	return m.completePOFn(ctx, arg)
}
func (m *mockPurchaseStore) CreatePurchaseOrderItem(ctx context.Context, arg database.CreatePurchaseOrderItemParams) (database.PurchaseOrderItem, error) {
	return m.createPOItemFn(ctx, arg)
}
func (m *mockPurchaseStore) ListPurchaseOrderItems(ctx context.Context, purchaseOrderID uuid.UUID) ([]database.PurchaseOrderItem, error) {
	return m.listPOItemsFn(ctx, purchaseOrderID)
}
func (m *mockPurchaseStore) ListDisabledMenuItems(ctx context.Context, tenantID uuid.UUID) ([]database.MenuItem, error) {
	return m.listDisabledFn(ctx, tenantID)
}
func (m *mockPurchaseStore) ListBaseRecipeStock(ctx context.Context, arg database.ListRecipeItemsParams) ([]database.BaseRecipeStock, error) {
	return m.listBaseFn(ctx, arg)
}
func (m *mockPurchaseStore) SetMenuItemEnabled(ctx context.Context, arg database.SetMenuItemEnabledParams) error {
	return m.setEnabledFn(ctx, arg)
}

func newPurchaseService(store *mockPurchaseStore) (*PurchaseService, *mockTx) {
	tx := &mockTx{}
	pool := &mockTxBeginner{tx: tx}
	return NewPurchaseService(pool, func(db database.DBTX) PurchaseStore { return store }), tx
}

func TestCreatePurchaseOrder_AllocatesNumberAndLines(t *testing.T) {
	tenantID := uuid.New()
	itemID := uuid.New()
	var created database.CreatePurchaseOrderParams
	var lines []database.CreatePurchaseOrderItemParams

	store := &mockPurchaseStore{
		mockSequenceStore: mockSequenceStore{
			nextSequenceFn: func(ctx context.Context, arg database.SequenceParams) (int64, error) {
				if arg.Kind != enum.SequenceKindPurchaseOrder {
					t.Errorf("expected purchase_order sequence, got %s", arg.Kind)
				}
				return 8, nil
			},
		},
		createPOFn: func(ctx context.Context, arg database.CreatePurchaseOrderParams) (database.PurchaseOrder, error) {
			created = arg
			return database.PurchaseOrder{ID: uuid.New(), TenantID: arg.TenantID, PoNumber: arg.PoNumber, Status: arg.Status}, nil
		},
		createPOItemFn: func(ctx context.Context, arg database.CreatePurchaseOrderItemParams) (database.PurchaseOrderItem, error) {
			lines = append(lines, arg)
			return database.PurchaseOrderItem{ID: uuid.New(), PurchaseOrderID: arg.PurchaseOrderID}, nil
		},
	}
	svc, tx := newPurchaseService(store)

	po, items, err := svc.CreatePurchaseOrder(context.Background(), CreatePurchaseOrderRequest{
		TenantID:   tenantID,
		VendorName: "Pasar Induk",
		Actor:      "manager",
		Lines: []PurchaseLineRequest{
			{InventoryItemID: itemID, Quantity: mustDecimal("5000"), UnitPrice: mustDecimal("12")},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tx.committed {
		t.Error("expected transaction commit")
	}
	if po.PoNumber != 8 {
		t.Errorf("expected PO number 8, got %d", po.PoNumber)
	}
	if created.Status != enum.PurchaseOrderStatusPending {
		t.Errorf("expected pending status, got %s", created.Status)
	}
	if len(items) != 1 || len(lines) != 1 {
		t.Fatalf("expected one line, got %d", len(lines))
	}
	if !numericEquals(lines[0].Quantity, "5000") || !numericEquals(lines[0].UnitPrice, "12") {
		t.Errorf("unexpected line: %+v", lines[0])
	}
}

func TestCreatePurchaseOrder_RejectsEmptyAndNonPositive(t *testing.T) {
	svc, tx := newPurchaseService(&mockPurchaseStore{})

	_, _, err := svc.CreatePurchaseOrder(context.Background(), CreatePurchaseOrderRequest{TenantID: uuid.New()})
	if !errors.Is(err, ErrEmptyPurchaseOrder) {
		t.Errorf("expected ErrEmptyPurchaseOrder, got %v", err)
	}

	_, _, err = svc.CreatePurchaseOrder(context.Background(), CreatePurchaseOrderRequest{
		TenantID: uuid.New(),
		Lines:    []PurchaseLineRequest{{InventoryItemID: uuid.New(), Quantity: decimal.Zero}},
	})
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("expected ErrInvalidQuantity, got %v", err)
	}
	if tx.committed || tx.rolledBack {
		t.Error("validation failures must not open a transaction")
	}
}

// fulfillFixture is a pending PO with one rice line and one disabled
// menu item whose base recipe needs rice.
type fulfillFixture struct {
	tenantID   uuid.UUID
	poID       uuid.UUID
	riceID     uuid.UUID
	menuItemID uuid.UUID
	store      *mockPurchaseStore

	credits   []database.CreateInventoryLogParams
	qtyWrites []database.UpdateInventoryItemQuantityParams
	enabled   []uuid.UUID
}

func newFulfillFixture(t *testing.T, riceStock, required, delivered string) *fulfillFixture {
	t.Helper()
	f := &fulfillFixture{
		tenantID:   uuid.New(),
		poID:       uuid.New(),
		riceID:     uuid.New(),
		menuItemID: uuid.New(),
	}

	f.store = &mockPurchaseStore{
		mockInventoryStore: mockInventoryStore{
			getForUpdateFn: func(ctx context.Context, arg database.GetInventoryItemParams) (database.InventoryItem, error) {
				return makeInventoryItem(f.riceID, f.tenantID, "Rice", riceStock, "100"), nil
			},
			createLogFn: func(ctx context.Context, arg database.CreateInventoryLogParams) (database.InventoryLog, error) {
				f.credits = append(f.credits, arg)
				return database.InventoryLog{}, nil
			},
			updateQuantityFn: func(ctx context.Context, arg database.UpdateInventoryItemQuantityParams) error {
				f.qtyWrites = append(f.qtyWrites, arg)
				return nil
			},
		},
		completePOFn: func(ctx context.Context, arg database.CompletePurchaseOrderParams) (database.PurchaseOrder, error) {
			if !arg.FulfilledAt.Valid {
				t.Error("expected fulfilled_at to be set")
			}
			return database.PurchaseOrder{
				ID:       arg.ID,
				TenantID: arg.TenantID,
				PoNumber: 12,
				Status:   enum.PurchaseOrderStatusCompleted,
			}, nil
		},
		listPOItemsFn: func(ctx context.Context, purchaseOrderID uuid.UUID) ([]database.PurchaseOrderItem, error) {
			return []database.PurchaseOrderItem{{
				ID:              uuid.New(),
				PurchaseOrderID: purchaseOrderID,
				InventoryItemID: f.riceID,
				Quantity:        makeNumeric(delivered),
				UnitPrice:       makeNumeric("12"),
			}}, nil
		},
		listDisabledFn: func(ctx context.Context, tenantID uuid.UUID) ([]database.MenuItem, error) {
			return []database.MenuItem{{ID: f.menuItemID, TenantID: tenantID, Title: "Nasi Goreng"}}, nil
		},
		listBaseFn: func(ctx context.Context, arg database.ListRecipeItemsParams) ([]database.BaseRecipeStock, error) {
			// Current reflects stock after the credit lands.
			current := mustDecimal(riceStock).Add(mustDecimal(delivered))
			return []database.BaseRecipeStock{{
				InventoryItemID: f.riceID,
				Required:        makeNumeric(required),
				Current:         makeNumeric(current.String()),
			}}, nil
		},
		setEnabledFn: func(ctx context.Context, arg database.SetMenuItemEnabledParams) error {
			if !arg.IsEnabled {
				t.Error("fulfillment only ever enables")
			}
			f.enabled = append(f.enabled, arg.ID)
			return nil
		},
	}
	return f
}

func (f *fulfillFixture) request() FulfillPurchaseOrderRequest {
	return FulfillPurchaseOrderRequest{
		TenantID:        f.tenantID,
		PurchaseOrderID: f.poID,
		Actor:           "manager",
	}
}

func TestFulfillPurchaseOrder_CreditsStockAndReenables(t *testing.T) {
	f := newFulfillFixture(t, "0", "150", "5000")
	svc, tx := newPurchaseService(f.store)

	po, reenabled, err := svc.FulfillPurchaseOrder(context.Background(), f.request())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tx.committed {
		t.Error("expected transaction commit")
	}
	if po.Status != enum.PurchaseOrderStatusCompleted {
		t.Errorf("expected completed PO, got %s", po.Status)
	}
	if len(f.credits) != 1 {
		t.Fatalf("expected one ledger credit, got %d", len(f.credits))
	}
	credit := f.credits[0]
	if credit.MovementType != enum.MovementTypeIn || !numericEquals(credit.QuantityChange, "5000") {
		t.Errorf("expected IN 5000, got %s %v", credit.MovementType, credit.QuantityChange)
	}
	if credit.Note.String != "Received via PO #12" {
		t.Errorf("unexpected note: %q", credit.Note.String)
	}
	if len(f.qtyWrites) != 1 || !numericEquals(f.qtyWrites[0].Quantity, "5000") {
		t.Errorf("expected projection updated to 5000, got %+v", f.qtyWrites)
	}
	if len(reenabled) != 1 || reenabled[0] != f.menuItemID {
		t.Errorf("expected menu item re-enabled, got %v", reenabled)
	}
}

func TestFulfillPurchaseOrder_UsesProvidedDate(t *testing.T) {
	f := newFulfillFixture(t, "0", "150", "5000")
	want := time.Date(2025, 11, 3, 14, 30, 0, 0, time.UTC)

	var stamped pgtype.Timestamptz
	complete := f.store.completePOFn
	f.store.completePOFn = func(ctx context.Context, arg database.CompletePurchaseOrderParams) (database.PurchaseOrder, error) {
		stamped = arg.FulfilledAt
		return complete(ctx, arg)
	}
	svc, _ := newPurchaseService(f.store)

	req := f.request()
	req.FulfilledAt = want
	if _, _, err := svc.FulfillPurchaseOrder(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !stamped.Valid || !stamped.Time.Equal(want) {
		t.Errorf("fulfilled_at: got %+v, want %v", stamped, want)
	}
}

func TestFulfillPurchaseOrder_DefaultsDateToNow(t *testing.T) {
	f := newFulfillFixture(t, "0", "150", "5000")
	frozen := time.Date(2025, 11, 4, 9, 0, 0, 0, time.UTC)

	var stamped pgtype.Timestamptz
	complete := f.store.completePOFn
	f.store.completePOFn = func(ctx context.Context, arg database.CompletePurchaseOrderParams) (database.PurchaseOrder, error) {
		stamped = arg.FulfilledAt
		return complete(ctx, arg)
	}
	svc, _ := newPurchaseService(f.store)
	svc.now = func() time.Time { return frozen }

	if _, _, err := svc.FulfillPurchaseOrder(context.Background(), f.request()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !stamped.Valid || !stamped.Time.Equal(frozen) {
		t.Errorf("fulfilled_at: got %+v, want %v", stamped, frozen)
	}
}

func TestFulfillPurchaseOrder_UncoveredBaseStaysDisabled(t *testing.T) {
	// Delivery is too small to cover the base requirement.
	f := newFulfillFixture(t, "0", "150", "100")
	svc, _ := newPurchaseService(f.store)

	_, reenabled, err := svc.FulfillPurchaseOrder(context.Background(), f.request())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reenabled) != 0 {
		t.Errorf("base requirement not covered, nothing should re-enable: %v", reenabled)
	}
	if len(f.enabled) != 0 {
		t.Errorf("no enable writes expected, got %v", f.enabled)
	}
}

func TestFulfillPurchaseOrder_NoBaseRecipeStaysDisabled(t *testing.T) {
	f := newFulfillFixture(t, "0", "150", "5000")
	f.store.listBaseFn = func(ctx context.Context, arg database.ListRecipeItemsParams) ([]database.BaseRecipeStock, error) {
		return nil, nil
	}
	svc, _ := newPurchaseService(f.store)

	_, reenabled, err := svc.FulfillPurchaseOrder(context.Background(), f.request())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reenabled) != 0 {
		t.Errorf("item without base recipe was disabled by hand, got %v", reenabled)
	}
}

func TestFulfillPurchaseOrder_ClosedOrder(t *testing.T) {
	f := newFulfillFixture(t, "0", "150", "5000")
	f.store.completePOFn = func(ctx context.Context, arg database.CompletePurchaseOrderParams) (database.PurchaseOrder, error) {
		return database.PurchaseOrder{}, pgx.ErrNoRows
	}
	f.store.getPOFn = func(ctx context.Context, arg database.GetPurchaseOrderParams) (database.PurchaseOrder, error) {
		return database.PurchaseOrder{ID: arg.ID, Status: enum.PurchaseOrderStatusCompleted}, nil
	}
	svc, tx := newPurchaseService(f.store)

	_, _, err := svc.FulfillPurchaseOrder(context.Background(), f.request())
	if !errors.Is(err, ErrPurchaseOrderClosed) {
		t.Fatalf("expected ErrPurchaseOrderClosed, got %v", err)
	}
	if tx.committed {
		t.Error("closed PO must not commit")
	}
	if len(f.credits) != 0 {
		t.Error("closed PO must not touch stock")
	}
}

func TestFulfillPurchaseOrder_NotFound(t *testing.T) {
	f := newFulfillFixture(t, "0", "150", "5000")
	f.store.completePOFn = func(ctx context.Context, arg database.CompletePurchaseOrderParams) (database.PurchaseOrder, error) {
		return database.PurchaseOrder{}, pgx.ErrNoRows
	}
	f.store.getPOFn = func(ctx context.Context, arg database.GetPurchaseOrderParams) (database.PurchaseOrder, error) {
		return database.PurchaseOrder{}, pgx.ErrNoRows
	}
	svc, _ := newPurchaseService(f.store)

	_, _, err := svc.FulfillPurchaseOrder(context.Background(), f.request())
	if !errors.Is(err, ErrPurchaseOrderNotFound) {
		t.Errorf("expected ErrPurchaseOrderNotFound, got %v", err)
	}
}
