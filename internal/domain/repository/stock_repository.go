package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// StockRecordRepository puerto de la vista materializada de stock (tabla inventory).
// Usado dentro de transacciones para garantizar consistencia con el ledger.
// Las lecturas devuelven (nil, nil) si el registro no existe.
type StockRecordRepository interface {
	Get(ctx context.Context, storeID, sku string) (*entity.StockRecord, error)
	// GetForUpdate bloquea la fila para update (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, storeID, sku string) (*entity.StockRecord, error)
	// FindByProduct resuelve un ítem de orden (producto, variante) a su StockRecord.
	FindByProduct(ctx context.Context, storeID, productID string, variantID *string) (*entity.StockRecord, error)
	Upsert(ctx context.Context, stock *entity.StockRecord) error
	// ListBelowReorder devuelve los registros con disponible inferior al punto de reorden.
	ListBelowReorder(ctx context.Context, storeID string) ([]*entity.StockRecord, error)
}
