package inventory

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
)

// ReplenishmentSuggestion SKU bajo punto de reorden con la cantidad sugerida de pedido.
type ReplenishmentSuggestion struct {
	InventoryID        string
	SKU                string
	ProductID          string
	VariantID          *string
	QuantityOnHand     int64
	QuantityAvailable  int64
	ReorderLevel       int64
	TargetStock        int64
	SuggestedOrderQty  int64
	UnitCost           decimal.Decimal
	EstimatedOrderCost decimal.Decimal
	Priority           int
}

// ReplenishmentList devuelve los SKUs de la tienda bajo el punto de reorden con la cantidad
// sugerida de pedido, ordenados por urgencia.
func (e *Engine) ReplenishmentList(ctx context.Context, storeID string) ([]ReplenishmentSuggestion, error) {
	var suggestions []ReplenishmentSuggestion
	err := e.exec.read(ctx, func(repos Repos) error {
		records, err := repos.Stock.ListBelowReorder(ctx, storeID)
		if err != nil {
			return err
		}
		suggestions = make([]ReplenishmentSuggestion, 0, len(records))
		for _, s := range records {
			qty := inventory.SuggestedOrderQuantity(s)
			suggestions = append(suggestions, ReplenishmentSuggestion{
				InventoryID:        s.ID,
				SKU:                s.SKU,
				ProductID:          s.ProductID,
				VariantID:          s.VariantID,
				QuantityOnHand:     s.QuantityOnHand,
				QuantityAvailable:  s.QuantityAvailable,
				ReorderLevel:       s.ReorderLevel,
				TargetStock:        s.QuantityOnHand + qty,
				SuggestedOrderQty:  qty,
				UnitCost:           s.UnitCost,
				EstimatedOrderCost: decimal.NewFromInt(qty).Mul(s.UnitCost),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Primero sin disponible, luego mayor déficit relativo al punto de reorden; desempate por SKU.
	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		if (a.QuantityAvailable <= 0) != (b.QuantityAvailable <= 0) {
			return a.QuantityAvailable <= 0
		}
		defA := decimal.NewFromInt(a.ReorderLevel - a.QuantityAvailable).Div(decimal.NewFromInt(max(a.ReorderLevel, 1)))
		defB := decimal.NewFromInt(b.ReorderLevel - b.QuantityAvailable).Div(decimal.NewFromInt(max(b.ReorderLevel, 1)))
		if !defA.Equal(defB) {
			return defA.GreaterThan(defB)
		}
		return a.SKU < b.SKU
	})

	for i := range suggestions {
		suggestions[i].Priority = i + 1
	}
	return suggestions, nil
}
