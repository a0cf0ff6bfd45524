package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// MovementRepository puerto del ledger append-only. No existe Update ni Delete:
// las correcciones son movimientos nuevos.
type MovementRepository interface {
	// Append asigna Sequence y persiste; devuelve domain.ErrDuplicateReference si ya existe
	// un movimiento con la misma (reference_type, reference_id, inventory_id, movement_type).
	Append(ctx context.Context, movement *entity.MovementEntry) error
	FindByReference(ctx context.Context, key entity.ReferenceKey) (*entity.MovementEntry, error)
	GetByID(ctx context.Context, id string) (*entity.MovementEntry, error)
	// ListFor devuelve los movimientos de un StockRecord con Sequence > sinceSequence, en orden de inserción.
	ListFor(ctx context.Context, inventoryID string, sinceSequence int64) ([]*entity.MovementEntry, error)
}
