package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
)

// MovementInput entrada para aplicar un movimiento al ledger.
// Para in/out Quantity es la magnitud (> 0); para adjustment es la diferencia con signo (!= 0).
// UnitCost solo aplica a entradas (recalcula el costo promedio ponderado).
type MovementInput struct {
	StoreID       string
	SKU           string
	ReferenceType string
	ReferenceID   string
	MovementType  string
	Quantity      int64
	UnitCost      decimal.Decimal
	Reason        string
	UserID        string
	// ReleaseReserved cantidad retenida que se libera junto con la salida (consumo de reserva).
	ReleaseReserved int64
}

// Validate guardas de entrada (enums y rangos).
func (in MovementInput) Validate() error {
	if strings.TrimSpace(in.StoreID) == "" || strings.TrimSpace(in.SKU) == "" || strings.TrimSpace(in.ReferenceID) == "" {
		return domain.ErrInvalidInput
	}
	if !entity.ValidReferenceType(in.ReferenceType) || !entity.ValidMovementType(in.MovementType) {
		return domain.ErrInvalidInput
	}
	switch in.MovementType {
	case entity.MovementTypeIn, entity.MovementTypeOut:
		if in.Quantity <= 0 {
			return domain.ErrInvalidInput
		}
	case entity.MovementTypeAdjustment:
		if in.Quantity == 0 {
			return domain.ErrInvalidInput
		}
	}
	if in.UnitCost.IsNegative() || in.ReleaseReserved < 0 {
		return domain.ErrInvalidInput
	}
	if in.ReleaseReserved > 0 && (in.MovementType != entity.MovementTypeOut || in.ReleaseReserved > in.Quantity) {
		return domain.ErrInvalidInput
	}
	return nil
}

// ApplyResult resultado de aplicar un movimiento.
type ApplyResult struct {
	Record *entity.StockRecord
	Entry  *entity.MovementEntry
	// Alert alerta de stock bajo creada por este movimiento (nil si no hubo).
	Alert *entity.LowStockAlert
	// Duplicate la referencia ya estaba aplicada; Entry es el movimiento original y nada cambió.
	Duplicate bool
}

// MovementApplier aplica un movimiento del ledger a su StockRecord de forma idempotente.
// Debe ejecutarse dentro de una transacción con el registro bloqueado: la escritura del registro
// y el append del ledger se confirman o se descartan juntos.
type MovementApplier struct {
	monitor *LowStockMonitor
	now     func() time.Time
}

// NewMovementApplier construye el aplicador.
func NewMovementApplier(monitor *LowStockMonitor, now func() time.Time) *MovementApplier {
	if now == nil {
		now = time.Now
	}
	return &MovementApplier{monitor: monitor, now: now}
}

// Apply bloquea la fila (GetForUpdate), valida el efecto, actualiza la vista materializada,
// agrega el movimiento al ledger y evalúa el stock bajo. Un movimiento que dejaría el stock
// por debajo de lo reservado se rechaza con ErrInsufficientStock antes de tocar el ledger.
func (a *MovementApplier) Apply(ctx context.Context, repos Repos, in MovementInput) (*ApplyResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	now := a.now()

	stock, err := repos.Stock.GetForUpdate(ctx, in.StoreID, in.SKU)
	if err != nil {
		return nil, err
	}
	if stock == nil {
		// Solo una entrada puede crear el registro
		if in.MovementType != entity.MovementTypeIn {
			return nil, fmt.Errorf("sku %s: %w", in.SKU, domain.ErrNotFound)
		}
		stock = &entity.StockRecord{
			ID:        uuid.New().String(),
			StoreID:   in.StoreID,
			SKU:       in.SKU,
			UnitCost:  decimal.Zero,
			CreatedAt: now,
		}
	}

	// Idempotencia: reintentar la misma referencia no vuelve a aplicar
	existing, err := repos.Movements.FindByReference(ctx, entity.ReferenceKey{
		ReferenceType: in.ReferenceType,
		ReferenceID:   in.ReferenceID,
		InventoryID:   stock.ID,
		MovementType:  in.MovementType,
	})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &ApplyResult{Record: stock, Entry: existing, Duplicate: true}, nil
	}

	next := stock.Clone()
	entryCost := next.UnitCost
	switch in.MovementType {
	case entity.MovementTypeIn:
		next.UnitCost = inventory.WeightedAverageCost(next.QuantityOnHand, next.UnitCost, in.Quantity, in.UnitCost)
		next.QuantityOnHand += in.Quantity
		if !in.UnitCost.IsZero() {
			entryCost = in.UnitCost
		}
	case entity.MovementTypeOut:
		if in.ReleaseReserved > next.QuantityReserved {
			return nil, fmt.Errorf("sku %s: liberar %d de %d reservado: %w", in.SKU, in.ReleaseReserved, next.QuantityReserved, domain.ErrInvalidReservationState)
		}
		next.QuantityReserved -= in.ReleaseReserved
		if in.Quantity > next.QuantityOnHand-next.QuantityReserved {
			return nil, fmt.Errorf("sku %s: salida %d, disponible %d: %w", in.SKU, in.Quantity, next.QuantityOnHand-next.QuantityReserved, domain.ErrInsufficientStock)
		}
		next.QuantityOnHand -= in.Quantity
	case entity.MovementTypeAdjustment:
		next.QuantityOnHand += in.Quantity
		if next.QuantityOnHand < next.QuantityReserved {
			return nil, fmt.Errorf("sku %s: el ajuste %d deja on_hand %d por debajo de lo reservado %d: %w",
				in.SKU, in.Quantity, next.QuantityOnHand, next.QuantityReserved, domain.ErrInsufficientStock)
		}
	}
	next.Recalculate()
	next.LastMovementDate = &now
	next.UpdatedAt = now

	if err := repos.Stock.Upsert(ctx, next); err != nil {
		return nil, err
	}
	entry := &entity.MovementEntry{
		ID:            uuid.New().String(),
		StoreID:       in.StoreID,
		InventoryID:   next.ID,
		ReferenceType: in.ReferenceType,
		ReferenceID:   in.ReferenceID,
		MovementType:  in.MovementType,
		Quantity:      in.Quantity,
		UnitCost:      entryCost,
		Reason:        in.Reason,
		CreatedBy:     in.UserID,
		CreatedAt:     now,
	}
	if err := repos.Movements.Append(ctx, entry); err != nil {
		return nil, err
	}

	alert, err := a.monitor.Evaluate(ctx, repos, next)
	if err != nil {
		return nil, err
	}
	return &ApplyResult{Record: next, Entry: entry, Alert: alert}, nil
}
