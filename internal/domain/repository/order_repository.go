package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// OrderRepository copia de coordinación de órdenes (estado + ítems).
type OrderRepository interface {
	Get(ctx context.Context, id string) (*entity.Order, error)
	GetForUpdate(ctx context.Context, id string) (*entity.Order, error)
	Save(ctx context.Context, o *entity.Order) error
}
