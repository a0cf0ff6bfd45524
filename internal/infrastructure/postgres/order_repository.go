package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.OrderRepository = (*OrderRepo)(nil)

// OrderRepo copia de coordinación de órdenes (orders + order_items).
// product_id no tiene FK: la orden puede venir de otra base y se valida al resolver el stock.
type OrderRepo struct {
	q Querier
}

// NewOrderRepository construye el adaptador.
func NewOrderRepository(q Querier) *OrderRepo {
	return &OrderRepo{q: q}
}

func (r *OrderRepo) get(ctx context.Context, id string, forUpdate bool) (*entity.Order, error) {
	query := `SELECT id, store_id, status, created_at, updated_at FROM orders WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var o entity.Order
	if err := r.q.QueryRow(ctx, query, id).Scan(&o.ID, &o.StoreID, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	rows, err := r.q.Query(ctx, `
		SELECT product_id, variant_id, quantity FROM order_items WHERE order_id = $1 ORDER BY line`, id)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it entity.OrderItem
		if err := rows.Scan(&it.ProductID, &it.VariantID, &it.Quantity); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		o.Items = append(o.Items, it)
	}
	return &o, rows.Err()
}

func (r *OrderRepo) Get(ctx context.Context, id string) (*entity.Order, error) {
	return r.get(ctx, id, false)
}

func (r *OrderRepo) GetForUpdate(ctx context.Context, id string) (*entity.Order, error) {
	return r.get(ctx, id, true)
}

// Save inserta o actualiza la orden; los ítems se escriben solo al crearla.
func (r *OrderRepo) Save(ctx context.Context, o *entity.Order) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO orders (id, store_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at`,
		o.ID, o.StoreID, o.Status, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save order: %w", err)
	}
	var count int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM order_items WHERE order_id = $1`, o.ID).Scan(&count); err != nil {
		return fmt.Errorf("count order items: %w", err)
	}
	if count > 0 {
		return nil
	}
	for i, it := range o.Items {
		if _, err := r.q.Exec(ctx, `
			INSERT INTO order_items (order_id, line, product_id, variant_id, quantity)
			VALUES ($1, $2, $3, $4, $5)`, o.ID, i+1, it.ProductID, it.VariantID, it.Quantity); err != nil {
			return fmt.Errorf("save order item: %w", err)
		}
	}
	return nil
}
