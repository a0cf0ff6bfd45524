package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// AdjustmentRepository persistencia de ajustes de stock (cabecera + líneas).
type AdjustmentRepository interface {
	Create(ctx context.Context, a *entity.StockAdjustment) error
	Get(ctx context.Context, id string) (*entity.StockAdjustment, error)
	GetForUpdate(ctx context.Context, id string) (*entity.StockAdjustment, error)
	// Update persiste estado, decisión y el estado de publicación de cada línea.
	Update(ctx context.Context, a *entity.StockAdjustment) error
}

// CountRepository persistencia de conteos físicos (cabecera + líneas).
type CountRepository interface {
	Create(ctx context.Context, c *entity.InventoryCount) error
	Get(ctx context.Context, id string) (*entity.InventoryCount, error)
	GetForUpdate(ctx context.Context, id string) (*entity.InventoryCount, error)
	Update(ctx context.Context, c *entity.InventoryCount) error
}
