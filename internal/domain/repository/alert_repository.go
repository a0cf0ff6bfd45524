package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// AlertRepository persistencia de alertas de stock bajo.
type AlertRepository interface {
	Create(ctx context.Context, a *entity.LowStockAlert) error
	Update(ctx context.Context, a *entity.LowStockAlert) error
	GetForUpdate(ctx context.Context, id string) (*entity.LowStockAlert, error)
	// FindOpen devuelve la alerta sin reconocer del StockRecord, o nil.
	FindOpen(ctx context.Context, inventoryID string) (*entity.LowStockAlert, error)
	ListOpen(ctx context.Context, storeID string) ([]*entity.LowStockAlert, error)
}
