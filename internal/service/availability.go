package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/restropos/api/internal/database"
	"github.com/shopspring/decimal"
)

// Shortage records one ingredient that cannot cover the cart.
type Shortage struct {
	ItemTitle       string
	ScopeTitle      string
	IngredientTitle string
	Required        decimal.Decimal
	Current         decimal.Decimal
}

func (s Shortage) String() string {
	name := s.ItemTitle
	if s.ScopeTitle != "" {
		name = fmt.Sprintf("%s (%s)", s.ItemTitle, s.ScopeTitle)
	}
	return fmt.Sprintf("%s: not enough %s (need %s, have %s)",
		name, s.IngredientTitle, s.Required.String(), s.Current.String())
}

// ShortageError aggregates every shortage found for a cart so the
// client can fix them all in one round trip.
type ShortageError struct {
	Shortages []Shortage
}

func (e *ShortageError) Error() string {
	msgs := make([]string, len(e.Shortages))
	for i, s := range e.Shortages {
		msgs[i] = s.String()
	}
	return "items unavailable: " + strings.Join(msgs, "; ")
}

// AvailabilityStore reads current stock without locking.
type AvailabilityStore interface {
	GetInventoryItem(ctx context.Context, arg database.GetInventoryItemParams) (database.InventoryItem, error)
}

// CheckAvailability verifies, without taking locks, that current stock
// covers the cart's aggregated consumption. It is advisory: a passing
// check can still fail at debit time under concurrency, and the locked
// debit inside the order transaction remains the authority.
func CheckAvailability(ctx context.Context, store AvailabilityStore, tenantID uuid.UUID, cart []CartLine) error {
	consumption := AggregateConsumption(cart)
	if len(consumption) == 0 {
		return nil
	}

	current := make(map[uuid.UUID]decimal.Decimal, len(consumption))
	titles := make(map[uuid.UUID]string, len(consumption))
	for _, c := range consumption {
		item, err := store.GetInventoryItem(ctx, database.GetInventoryItemParams{
			ID:       c.InventoryItemID,
			TenantID: tenantID,
		})
		if err != nil {
			return fmt.Errorf("read inventory item %s: %w", c.InventoryItemID, err)
		}
		current[c.InventoryItemID] = numericToDecimal(item.Quantity)
		titles[c.InventoryItemID] = item.Title
	}

	// Walk lines in cart order so shortages report the menu item and
	// scope a customer actually picked, not just the raw ingredient.
	var shortages []Shortage
	remaining := make(map[uuid.UUID]decimal.Decimal, len(current))
	for id, qty := range current {
		remaining[id] = qty
	}
	reported := make(map[uuid.UUID]bool)

	for _, line := range cart {
		need := ResolveConsumption(line)
		for _, c := range need {
			left := remaining[c.InventoryItemID]
			if left.LessThan(c.Quantity) && !reported[c.InventoryItemID] {
				shortages = append(shortages, Shortage{
					ItemTitle:       line.ItemTitle,
					ScopeTitle:      scopeTitleFor(line, c.InventoryItemID),
					IngredientTitle: titles[c.InventoryItemID],
					Required:        totalRequired(consumption, c.InventoryItemID),
					Current:         current[c.InventoryItemID],
				})
				reported[c.InventoryItemID] = true
			}
			remaining[c.InventoryItemID] = left.Sub(c.Quantity)
		}
	}

	if len(shortages) > 0 {
		return &ShortageError{Shortages: shortages}
	}
	return nil
}

func scopeTitleFor(line CartLine, inventoryItemID uuid.UUID) string {
	for _, r := range line.Recipe {
		if r.InventoryItemID == inventoryItemID && r.Scope.appliesTo(line) && r.Scope.Kind != ScopeBase {
			return r.ScopeTitle
		}
	}
	return ""
}

func totalRequired(consumption []Consumption, id uuid.UUID) decimal.Decimal {
	for _, c := range consumption {
		if c.InventoryItemID == id {
			return c.Quantity
		}
	}
	return decimal.Zero
}
