package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var (
	_ repository.AdjustmentRepository = (*AdjustmentRepo)(nil)
	_ repository.CountRepository      = (*CountRepo)(nil)
)

// AdjustmentRepo ajustes de stock (stock_adjustments + stock_adjustment_items).
type AdjustmentRepo struct {
	q Querier
}

// NewAdjustmentRepository construye el adaptador.
func NewAdjustmentRepository(q Querier) *AdjustmentRepo {
	return &AdjustmentRepo{q: q}
}

// Create inserta cabecera y líneas.
func (r *AdjustmentRepo) Create(ctx context.Context, a *entity.StockAdjustment) error {
	query := `
		INSERT INTO stock_adjustments (id, store_id, count_id, reason, status, created_by, decided_by, decided_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		a.ID, a.StoreID, a.CountID, nullable(a.Reason), a.Status, a.CreatedBy,
		nullable(a.DecidedBy), a.DecidedAt, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create adjustment: %w", err)
	}
	itemQuery := `
		INSERT INTO stock_adjustment_items (id, adjustment_id, inventory_id, sku, expected_quantity, actual_quantity,
			difference, unit_cost, cost_impact, posted, movement_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	for _, it := range a.Items {
		if _, err := r.q.Exec(ctx, itemQuery,
			it.ID, a.ID, it.InventoryID, it.SKU, it.ExpectedQuantity, it.ActualQuantity,
			it.Difference, it.UnitCost, it.CostImpact, it.Posted, it.MovementID,
		); err != nil {
			return fmt.Errorf("create adjustment item: %w", err)
		}
	}
	return nil
}

func (r *AdjustmentRepo) get(ctx context.Context, id string, forUpdate bool) (*entity.StockAdjustment, error) {
	query := `
		SELECT id, store_id, count_id, reason, status, created_by, decided_by, decided_at, created_at, updated_at
		FROM stock_adjustments WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var a entity.StockAdjustment
	var reason, decidedBy *string
	err := r.q.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.StoreID, &a.CountID, &reason, &a.Status, &a.CreatedBy, &decidedBy, &a.DecidedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get adjustment: %w", err)
	}
	if reason != nil {
		a.Reason = *reason
	}
	if decidedBy != nil {
		a.DecidedBy = *decidedBy
	}

	rows, err := r.q.Query(ctx, `
		SELECT id, adjustment_id, inventory_id, sku, expected_quantity, actual_quantity,
			difference, unit_cost, cost_impact, posted, movement_id
		FROM stock_adjustment_items WHERE adjustment_id = $1 ORDER BY sku`, id)
	if err != nil {
		return nil, fmt.Errorf("list adjustment items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it entity.StockAdjustmentItem
		if err := rows.Scan(&it.ID, &it.AdjustmentID, &it.InventoryID, &it.SKU, &it.ExpectedQuantity, &it.ActualQuantity,
			&it.Difference, &it.UnitCost, &it.CostImpact, &it.Posted, &it.MovementID); err != nil {
			return nil, fmt.Errorf("scan adjustment item: %w", err)
		}
		a.Items = append(a.Items, &it)
	}
	return &a, rows.Err()
}

func (r *AdjustmentRepo) Get(ctx context.Context, id string) (*entity.StockAdjustment, error) {
	return r.get(ctx, id, false)
}

func (r *AdjustmentRepo) GetForUpdate(ctx context.Context, id string) (*entity.StockAdjustment, error) {
	return r.get(ctx, id, true)
}

// Update persiste la decisión y el estado de publicación de cada línea.
func (r *AdjustmentRepo) Update(ctx context.Context, a *entity.StockAdjustment) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE stock_adjustments SET status = $2, decided_by = $3, decided_at = $4, updated_at = $5
		WHERE id = $1`, a.ID, a.Status, nullable(a.DecidedBy), a.DecidedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update adjustment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	for _, it := range a.Items {
		if _, err := r.q.Exec(ctx, `
			UPDATE stock_adjustment_items SET posted = $2, movement_id = $3 WHERE id = $1`,
			it.ID, it.Posted, it.MovementID); err != nil {
			return fmt.Errorf("update adjustment item: %w", err)
		}
	}
	return nil
}

// CountRepo conteos físicos (inventory_counts + inventory_count_items).
type CountRepo struct {
	q Querier
}

// NewCountRepository construye el adaptador.
func NewCountRepository(q Querier) *CountRepo {
	return &CountRepo{q: q}
}

// Create inserta cabecera y líneas.
func (r *CountRepo) Create(ctx context.Context, c *entity.InventoryCount) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO inventory_counts (id, store_id, status, notes, adjustment_id, started_by, completed_by, completed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.ID, c.StoreID, c.Status, nullable(c.Notes), c.AdjustmentID, c.StartedBy,
		nullable(c.CompletedBy), c.CompletedAt, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create count: %w", err)
	}
	for _, it := range c.Items {
		if _, err := r.q.Exec(ctx, `
			INSERT INTO inventory_count_items (id, count_id, inventory_id, sku, expected_quantity, counted_quantity, difference, unit_cost)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			it.ID, c.ID, it.InventoryID, it.SKU, it.ExpectedQuantity, it.CountedQuantity, it.Difference, it.UnitCost,
		); err != nil {
			return fmt.Errorf("create count item: %w", err)
		}
	}
	return nil
}

func (r *CountRepo) get(ctx context.Context, id string, forUpdate bool) (*entity.InventoryCount, error) {
	query := `
		SELECT id, store_id, status, notes, adjustment_id, started_by, completed_by, completed_at, created_at, updated_at
		FROM inventory_counts WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var c entity.InventoryCount
	var notes, completedBy *string
	err := r.q.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.StoreID, &c.Status, &notes, &c.AdjustmentID, &c.StartedBy, &completedBy, &c.CompletedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get count: %w", err)
	}
	if notes != nil {
		c.Notes = *notes
	}
	if completedBy != nil {
		c.CompletedBy = *completedBy
	}

	rows, err := r.q.Query(ctx, `
		SELECT id, count_id, inventory_id, sku, expected_quantity, counted_quantity, difference, unit_cost
		FROM inventory_count_items WHERE count_id = $1 ORDER BY sku`, id)
	if err != nil {
		return nil, fmt.Errorf("list count items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it entity.InventoryCountItem
		if err := rows.Scan(&it.ID, &it.CountID, &it.InventoryID, &it.SKU, &it.ExpectedQuantity,
			&it.CountedQuantity, &it.Difference, &it.UnitCost); err != nil {
			return nil, fmt.Errorf("scan count item: %w", err)
		}
		c.Items = append(c.Items, &it)
	}
	return &c, rows.Err()
}

func (r *CountRepo) Get(ctx context.Context, id string) (*entity.InventoryCount, error) {
	return r.get(ctx, id, false)
}

func (r *CountRepo) GetForUpdate(ctx context.Context, id string) (*entity.InventoryCount, error) {
	return r.get(ctx, id, true)
}

// Update persiste estado, ajuste asociado y cantidades contadas.
func (r *CountRepo) Update(ctx context.Context, c *entity.InventoryCount) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE inventory_counts SET status = $2, adjustment_id = $3, completed_by = $4, completed_at = $5, updated_at = $6
		WHERE id = $1`, c.ID, c.Status, c.AdjustmentID, nullable(c.CompletedBy), c.CompletedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	for _, it := range c.Items {
		if _, err := r.q.Exec(ctx, `
			UPDATE inventory_count_items SET counted_quantity = $2, difference = $3 WHERE id = $1`,
			it.ID, it.CountedQuantity, it.Difference); err != nil {
			return fmt.Errorf("update count item: %w", err)
		}
	}
	return nil
}
