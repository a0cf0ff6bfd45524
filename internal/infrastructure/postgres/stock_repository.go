package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.StockRecordRepository = (*StockRepo)(nil)

// StockRepo implementación de StockRecordRepository sobre PostgreSQL (usable con pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

const stockColumns = `
	id, store_id, sku, product_id, variant_id, quantity_on_hand, quantity_reserved, quantity_available,
	reorder_level, max_stock_level, unit_cost, total_value, last_movement_date, created_at, updated_at`

func scanStock(row pgx.Row) (*entity.StockRecord, error) {
	var s entity.StockRecord
	err := row.Scan(
		&s.ID, &s.StoreID, &s.SKU, &s.ProductID, &s.VariantID,
		&s.QuantityOnHand, &s.QuantityReserved, &s.QuantityAvailable,
		&s.ReorderLevel, &s.MaxStockLevel, &s.UnitCost, &s.TotalValue,
		&s.LastMovementDate, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Get obtiene el registro de stock de un SKU en una tienda.
func (r *StockRepo) Get(ctx context.Context, storeID, sku string) (*entity.StockRecord, error) {
	query := `SELECT` + stockColumns + ` FROM inventory WHERE store_id = $1 AND sku = $2`
	s, err := scanStock(r.q.QueryRow(ctx, query, storeID, sku))
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock: %w", err)
	}
	return s, nil
}

// GetForUpdate obtiene el registro y bloquea la fila para update (SELECT FOR UPDATE).
func (r *StockRepo) GetForUpdate(ctx context.Context, storeID, sku string) (*entity.StockRecord, error) {
	query := `SELECT` + stockColumns + ` FROM inventory WHERE store_id = $1 AND sku = $2 FOR UPDATE`
	s, err := scanStock(r.q.QueryRow(ctx, query, storeID, sku))
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock for update: %w", err)
	}
	return s, nil
}

// FindByProduct resuelve (producto, variante) a su registro de stock.
func (r *StockRepo) FindByProduct(ctx context.Context, storeID, productID string, variantID *string) (*entity.StockRecord, error) {
	query := `SELECT` + stockColumns + `
		FROM inventory
		WHERE store_id = $1 AND product_id = $2 AND variant_id IS NOT DISTINCT FROM $3
		ORDER BY sku LIMIT 1`
	s, err := scanStock(r.q.QueryRow(ctx, query, storeID, productID, variantID))
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find stock by product: %w", err)
	}
	return s, nil
}

// Upsert inserta o actualiza el registro completo (por id).
func (r *StockRepo) Upsert(ctx context.Context, s *entity.StockRecord) error {
	query := `
		INSERT INTO inventory (` + stockColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			product_id = EXCLUDED.product_id,
			variant_id = EXCLUDED.variant_id,
			quantity_on_hand = EXCLUDED.quantity_on_hand,
			quantity_reserved = EXCLUDED.quantity_reserved,
			quantity_available = EXCLUDED.quantity_available,
			reorder_level = EXCLUDED.reorder_level,
			max_stock_level = EXCLUDED.max_stock_level,
			unit_cost = EXCLUDED.unit_cost,
			total_value = EXCLUDED.total_value,
			last_movement_date = EXCLUDED.last_movement_date,
			updated_at = EXCLUDED.updated_at`
	_, err := r.q.Exec(ctx, query,
		s.ID, s.StoreID, s.SKU, s.ProductID, s.VariantID,
		s.QuantityOnHand, s.QuantityReserved, s.QuantityAvailable,
		s.ReorderLevel, s.MaxStockLevel, s.UnitCost, s.TotalValue,
		s.LastMovementDate, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert stock: %w", err)
	}
	return nil
}

// ListBelowReorder registros con disponible inferior al punto de reorden.
func (r *StockRepo) ListBelowReorder(ctx context.Context, storeID string) ([]*entity.StockRecord, error) {
	query := `SELECT` + stockColumns + `
		FROM inventory
		WHERE store_id = $1 AND quantity_available < reorder_level
		ORDER BY sku`
	rows, err := r.q.Query(ctx, query, storeID)
	if err != nil {
		return nil, fmt.Errorf("list below reorder: %w", err)
	}
	defer rows.Close()
	list := make([]*entity.StockRecord, 0)
	for rows.Next() {
		s, err := scanStock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}
