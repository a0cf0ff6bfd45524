package inventory_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
)

func TestWeightedAverageCost(t *testing.T) {
	// 10 u a 100 + 10 u a 200 = 150
	got := inventory.WeightedAverageCost(10, decimal.NewFromInt(100), 10, decimal.NewFromInt(200))
	assert.True(t, got.Equal(decimal.NewFromInt(150)), "got %s", got)

	// Sin stock previo el costo es el de la entrada
	got = inventory.WeightedAverageCost(0, decimal.Zero, 5, decimal.NewFromInt(30))
	assert.True(t, got.Equal(decimal.NewFromInt(30)))

	// Entrada sin costo conserva el actual
	got = inventory.WeightedAverageCost(4, decimal.NewFromInt(12), 6, decimal.Zero)
	assert.True(t, got.Equal(decimal.NewFromInt(12)))
}

func TestReplay_ReproduceOnHand(t *testing.T) {
	entries := []*entity.MovementEntry{
		{ID: "1", Sequence: 1, MovementType: entity.MovementTypeIn, Quantity: 10},
		{ID: "2", Sequence: 2, MovementType: entity.MovementTypeOut, Quantity: 6},
		{ID: "3", Sequence: 3, MovementType: entity.MovementTypeAdjustment, Quantity: -3},
		{ID: "4", Sequence: 4, MovementType: entity.MovementTypeAdjustment, Quantity: 2},
	}
	onHand, err := inventory.Replay(entries)
	require.NoError(t, err)
	assert.Equal(t, int64(3), onHand)
}

func TestReplay_LedgerNegativoFalla(t *testing.T) {
	entries := []*entity.MovementEntry{
		{ID: "1", Sequence: 1, MovementType: entity.MovementTypeIn, Quantity: 1},
		{ID: "2", Sequence: 2, MovementType: entity.MovementTypeOut, Quantity: 2},
	}
	_, err := inventory.Replay(entries)
	assert.Error(t, err)
}

func TestAlertLevelFor(t *testing.T) {
	rec := &entity.StockRecord{QuantityOnHand: 6, ReorderLevel: 5}
	rec.Recalculate()
	assert.Equal(t, "", inventory.AlertLevelFor(rec))

	rec.QuantityOnHand = 4
	rec.Recalculate()
	assert.Equal(t, entity.AlertLevelLow, inventory.AlertLevelFor(rec))

	rec.QuantityOnHand = 0
	rec.Recalculate()
	assert.Equal(t, entity.AlertLevelCritical, inventory.AlertLevelFor(rec))

	// Igual al punto de reorden no dispara alerta
	rec.QuantityOnHand = 5
	rec.Recalculate()
	assert.Equal(t, "", inventory.AlertLevelFor(rec))
}

func TestSuggestedOrderQuantity(t *testing.T) {
	rec := &entity.StockRecord{QuantityOnHand: 2, ReorderLevel: 10}
	assert.Equal(t, int64(13), inventory.SuggestedOrderQuantity(rec))

	max := int64(40)
	rec.MaxStockLevel = &max
	assert.Equal(t, int64(38), inventory.SuggestedOrderQuantity(rec))

	rec.QuantityOnHand = 50
	assert.Equal(t, int64(0), inventory.SuggestedOrderQuantity(rec))
}
