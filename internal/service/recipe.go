package service

import (
	"github.com/google/uuid"
	"github.com/restropos/api/internal/database"
	"github.com/shopspring/decimal"
)

// ScopeKind says what part of a cart line a recipe requirement is tied to.
type ScopeKind int

const (
	ScopeBase ScopeKind = iota
	ScopeVariant
	ScopeAddon
)

// RecipeScope is the explicit form of a recipe row's applicability:
// a base requirement always applies, a variant/addon requirement only
// when that variant or addon is selected on the line.
type RecipeScope struct {
	Kind     ScopeKind
	TargetID uuid.UUID // variant or addon id; zero for base
}

// RecipeLine is the in-core form of a recipe row.
type RecipeLine struct {
	InventoryItemID uuid.UUID
	Scope           RecipeScope
	ScopeTitle      string // variant/addon title for shortage reports; empty for base
	Quantity        decimal.Decimal
}

// RecipeLineFromRow derives the scope from the row's nullable columns.
func RecipeLineFromRow(r database.RecipeItem) RecipeLine {
	line := RecipeLine{
		InventoryItemID: r.InventoryItemID,
		Scope:           RecipeScope{Kind: ScopeBase},
		Quantity:        numericToDecimal(r.Quantity),
	}
	switch {
	case r.VariantID.Valid:
		line.Scope = RecipeScope{Kind: ScopeVariant, TargetID: uuid.UUID(r.VariantID.Bytes)}
	case r.AddonID.Valid:
		line.Scope = RecipeScope{Kind: ScopeAddon, TargetID: uuid.UUID(r.AddonID.Bytes)}
	}
	return line
}

// CartLine is one order line with its full recipe set pre-fetched.
type CartLine struct {
	MenuItemID uuid.UUID
	ItemTitle  string
	VariantID  uuid.UUID // uuid.Nil when no variant selected
	AddonIDs   []uuid.UUID
	Quantity   int32
	Notes      string
	UnitPrice  decimal.Decimal
	Recipe     []RecipeLine
}

// appliesTo reports whether a recipe requirement is triggered by the
// line's selection.
func (s RecipeScope) appliesTo(line CartLine) bool {
	switch s.Kind {
	case ScopeBase:
		return true
	case ScopeVariant:
		return s.TargetID == line.VariantID
	case ScopeAddon:
		for _, id := range line.AddonIDs {
			if id == s.TargetID {
				return true
			}
		}
	}
	return false
}

// Consumption is a required quantity of one ingredient.
type Consumption struct {
	InventoryItemID uuid.UUID
	Quantity        decimal.Decimal
}

// ResolveConsumption expands one cart line into its ingredient usage.
// Requirements that share an ingredient (base + addon, say) are kept as
// separate entries; AggregateConsumption sums them. An addon with no
// recipe row contributes nothing.
func ResolveConsumption(line CartLine) []Consumption {
	qty := decimal.NewFromInt32(line.Quantity)
	var out []Consumption
	for _, r := range line.Recipe {
		if !r.Scope.appliesTo(line) {
			continue
		}
		out = append(out, Consumption{
			InventoryItemID: r.InventoryItemID,
			Quantity:        r.Quantity.Mul(qty),
		})
	}
	return out
}

// AggregateConsumption sums ingredient usage across all cart lines into
// one net quantity per distinct ingredient, preserving first-seen order
// so the debit loop is deterministic.
func AggregateConsumption(lines []CartLine) []Consumption {
	totals := make(map[uuid.UUID]int) // ingredient id -> index into out
	var out []Consumption
	for _, line := range lines {
		for _, c := range ResolveConsumption(line) {
			if idx, ok := totals[c.InventoryItemID]; ok {
				out[idx].Quantity = out[idx].Quantity.Add(c.Quantity)
				continue
			}
			totals[c.InventoryItemID] = len(out)
			out = append(out, c)
		}
	}
	return out
}
