package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.AlertRepository = (*AlertRepo)(nil)

// AlertRepo alertas de stock bajo (tabla low_stock_alerts).
type AlertRepo struct {
	q Querier
}

// NewAlertRepository construye el adaptador.
func NewAlertRepository(q Querier) *AlertRepo {
	return &AlertRepo{q: q}
}

const alertColumns = `
	id, store_id, inventory_id, sku, alert_level, quantity_available, reorder_level,
	acknowledged, acknowledged_by, acknowledged_at, created_at`

func scanAlert(row pgx.Row) (*entity.LowStockAlert, error) {
	var a entity.LowStockAlert
	var ackBy *string
	err := row.Scan(&a.ID, &a.StoreID, &a.InventoryID, &a.SKU, &a.AlertLevel, &a.QuantityAvailable, &a.ReorderLevel,
		&a.Acknowledged, &ackBy, &a.AcknowledgedAt, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	if ackBy != nil {
		a.AcknowledgedBy = *ackBy
	}
	return &a, nil
}

// Create inserta la alerta. El índice único parcial garantiza una abierta por registro.
func (r *AlertRepo) Create(ctx context.Context, a *entity.LowStockAlert) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO low_stock_alerts (`+alertColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.ID, a.StoreID, a.InventoryID, a.SKU, a.AlertLevel, a.QuantityAvailable, a.ReorderLevel,
		a.Acknowledged, nullable(a.AcknowledgedBy), a.AcknowledgedAt, a.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("alerta abierta para %s: %w", a.SKU, domain.ErrDuplicateReference)
		}
		return fmt.Errorf("create alert: %w", err)
	}
	return nil
}

// Update persiste el reconocimiento.
func (r *AlertRepo) Update(ctx context.Context, a *entity.LowStockAlert) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE low_stock_alerts SET acknowledged = $2, acknowledged_by = $3, acknowledged_at = $4 WHERE id = $1`,
		a.ID, a.Acknowledged, nullable(a.AcknowledgedBy), a.AcknowledgedAt)
	if err != nil {
		return fmt.Errorf("update alert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *AlertRepo) GetForUpdate(ctx context.Context, id string) (*entity.LowStockAlert, error) {
	a, err := scanAlert(r.q.QueryRow(ctx, `SELECT`+alertColumns+` FROM low_stock_alerts WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get alert: %w", err)
	}
	return a, nil
}

func (r *AlertRepo) FindOpen(ctx context.Context, inventoryID string) (*entity.LowStockAlert, error) {
	a, err := scanAlert(r.q.QueryRow(ctx, `SELECT`+alertColumns+`
		FROM low_stock_alerts WHERE inventory_id = $1 AND NOT acknowledged`, inventoryID))
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find open alert: %w", err)
	}
	return a, nil
}

func (r *AlertRepo) ListOpen(ctx context.Context, storeID string) ([]*entity.LowStockAlert, error) {
	rows, err := r.q.Query(ctx, `SELECT`+alertColumns+`
		FROM low_stock_alerts WHERE store_id = $1 AND NOT acknowledged ORDER BY created_at`, storeID)
	if err != nil {
		return nil, fmt.Errorf("list open alerts: %w", err)
	}
	defer rows.Close()
	list := make([]*entity.LowStockAlert, 0)
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		list = append(list, a)
	}
	return list, rows.Err()
}
