package inventory

import "github.com/shopspring/decimal"

// WeightedAverageCost costo promedio ponderado tras una entrada (servicio de dominio).
// NuevoCosto = ((OnHand * CostoActual) + (CantEntrada * CostoEntrada)) / (OnHand + CantEntrada)
// Si la entrada no trae costo (cero) se conserva el costo actual.
func WeightedAverageCost(onHand int64, currentCost decimal.Decimal, inQty int64, inCost decimal.Decimal) decimal.Decimal {
	if inCost.IsZero() {
		return currentCost
	}
	sum := onHand + inQty
	if sum <= 0 {
		return inCost
	}
	num := decimal.NewFromInt(onHand).Mul(currentCost).Add(decimal.NewFromInt(inQty).Mul(inCost))
	return num.Div(decimal.NewFromInt(sum)).Round(4)
}
