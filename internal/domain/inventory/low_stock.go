package inventory

import "github.com/jhoicas/stock-ledger/internal/domain/entity"

// AlertLevelFor devuelve el nivel de alerta que corresponde al registro, o "" si no está bajo el
// punto de reorden: critical si el disponible es <= 0, low en otro caso.
func AlertLevelFor(s *entity.StockRecord) string {
	if s.QuantityAvailable >= s.ReorderLevel {
		return ""
	}
	if s.QuantityAvailable <= 0 {
		return entity.AlertLevelCritical
	}
	return entity.AlertLevelLow
}

// SuggestedOrderQuantity cantidad sugerida de reposición: hasta max_stock_level si está definido,
// si no hasta 1.5 veces el punto de reorden.
func SuggestedOrderQuantity(s *entity.StockRecord) int64 {
	target := s.ReorderLevel + s.ReorderLevel/2
	if s.MaxStockLevel != nil {
		target = *s.MaxStockLevel
	}
	qty := target - s.QuantityOnHand
	if qty < 0 {
		return 0
	}
	return qty
}
