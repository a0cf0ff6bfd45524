package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var (
	_ repository.StockRecordRepository = (*stockRepo)(nil)
	_ repository.MovementRepository    = (*movementRepo)(nil)
	_ repository.ReservationRepository = (*reservationRepo)(nil)
	_ repository.AdjustmentRepository  = (*adjustmentRepo)(nil)
	_ repository.CountRepository       = (*countRepo)(nil)
	_ repository.AlertRepository       = (*alertRepo)(nil)
	_ repository.OrderRepository       = (*orderRepo)(nil)
)

// Todos los repos devuelven copias: el caller puede mutar lo que recibe sin tocar el estado.

type stockRepo struct{ st *state }

func (r *stockRepo) Get(_ context.Context, storeID, sku string) (*entity.StockRecord, error) {
	id, ok := r.st.stockByKey[stockKey(storeID, sku)]
	if !ok {
		return nil, nil
	}
	return r.st.stock[id].Clone(), nil
}

// GetForUpdate igual que Get: la transacción ya tiene el almacén en exclusiva.
func (r *stockRepo) GetForUpdate(ctx context.Context, storeID, sku string) (*entity.StockRecord, error) {
	return r.Get(ctx, storeID, sku)
}

func (r *stockRepo) FindByProduct(_ context.Context, storeID, productID string, variantID *string) (*entity.StockRecord, error) {
	for _, s := range r.st.stock {
		if s.StoreID != storeID || s.ProductID != productID {
			continue
		}
		if (s.VariantID == nil) != (variantID == nil) {
			continue
		}
		if variantID != nil && *s.VariantID != *variantID {
			continue
		}
		return s.Clone(), nil
	}
	return nil, nil
}

func (r *stockRepo) Upsert(_ context.Context, stock *entity.StockRecord) error {
	key := stockKey(stock.StoreID, stock.SKU)
	if id, ok := r.st.stockByKey[key]; ok && id != stock.ID {
		return fmt.Errorf("sku %s ya registrado con otro id: %w", stock.SKU, domain.ErrInvalidInput)
	}
	if !stock.Consistent() {
		return fmt.Errorf("sku %s: cantidades inconsistentes: %w", stock.SKU, domain.ErrInvalidInput)
	}
	r.st.stock[stock.ID] = stock.Clone()
	r.st.stockByKey[key] = stock.ID
	return nil
}

func (r *stockRepo) ListBelowReorder(_ context.Context, storeID string) ([]*entity.StockRecord, error) {
	out := make([]*entity.StockRecord, 0)
	for _, s := range r.st.stock {
		if s.StoreID == storeID && s.QuantityAvailable < s.ReorderLevel {
			out = append(out, s.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}

type movementRepo struct{ st *state }

func (r *movementRepo) Append(_ context.Context, m *entity.MovementEntry) error {
	key := m.Key()
	if _, ok := r.st.movementRef[key]; ok {
		return fmt.Errorf("movimiento %s/%s: %w", m.ReferenceType, m.ReferenceID, domain.ErrDuplicateReference)
	}
	r.st.seq++
	m.Sequence = r.st.seq
	stored := *m
	r.st.movements = append(r.st.movements, &stored)
	r.st.movementByID[m.ID] = &stored
	r.st.movementRef[key] = &stored
	return nil
}

func (r *movementRepo) FindByReference(_ context.Context, key entity.ReferenceKey) (*entity.MovementEntry, error) {
	m, ok := r.st.movementRef[key]
	if !ok {
		return nil, nil
	}
	c := *m
	return &c, nil
}

func (r *movementRepo) GetByID(_ context.Context, id string) (*entity.MovementEntry, error) {
	m, ok := r.st.movementByID[id]
	if !ok {
		return nil, nil
	}
	c := *m
	return &c, nil
}

func (r *movementRepo) ListFor(_ context.Context, inventoryID string, sinceSequence int64) ([]*entity.MovementEntry, error) {
	out := make([]*entity.MovementEntry, 0)
	for _, m := range r.st.movements {
		if m.InventoryID == inventoryID && m.Sequence > sinceSequence {
			c := *m
			out = append(out, &c)
		}
	}
	return out, nil
}

type reservationRepo struct{ st *state }

func (r *reservationRepo) Create(_ context.Context, res *entity.Reservation) error {
	if _, ok := r.st.reservations[res.ID]; ok {
		return fmt.Errorf("reserva %s: %w", res.ID, domain.ErrDuplicateReference)
	}
	for _, other := range r.st.reservations {
		if other.IsActive() && other.OrderID == res.OrderID && other.InventoryID == res.InventoryID {
			return fmt.Errorf("reserva activa para orden %s: %w", res.OrderID, domain.ErrDuplicateReference)
		}
	}
	r.st.reservations[res.ID] = res.Clone()
	return nil
}

func (r *reservationRepo) Update(_ context.Context, res *entity.Reservation) error {
	if _, ok := r.st.reservations[res.ID]; !ok {
		return domain.ErrNotFound
	}
	r.st.reservations[res.ID] = res.Clone()
	return nil
}

func (r *reservationRepo) Get(_ context.Context, id string) (*entity.Reservation, error) {
	res, ok := r.st.reservations[id]
	if !ok {
		return nil, nil
	}
	return res.Clone(), nil
}

func (r *reservationRepo) GetForUpdate(ctx context.Context, id string) (*entity.Reservation, error) {
	return r.Get(ctx, id)
}

func (r *reservationRepo) FindActive(_ context.Context, orderID, inventoryID string) (*entity.Reservation, error) {
	for _, res := range r.st.reservations {
		if res.IsActive() && res.OrderID == orderID && res.InventoryID == inventoryID {
			return res.Clone(), nil
		}
	}
	return nil, nil
}

func (r *reservationRepo) ListByOrder(_ context.Context, orderID string) ([]*entity.Reservation, error) {
	out := make([]*entity.Reservation, 0)
	for _, res := range r.st.reservations {
		if res.OrderID == orderID {
			out = append(out, res.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SKU != out[j].SKU {
			return out[i].SKU < out[j].SKU
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *reservationRepo) ListExpired(_ context.Context, now time.Time, limit int) ([]*entity.Reservation, error) {
	out := make([]*entity.Reservation, 0)
	for _, res := range r.st.reservations {
		if res.IsActive() && res.ExpiresAt.Before(now) {
			out = append(out, res.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type adjustmentRepo struct{ st *state }

func (r *adjustmentRepo) Create(_ context.Context, a *entity.StockAdjustment) error {
	if _, ok := r.st.adjustments[a.ID]; ok {
		return fmt.Errorf("ajuste %s: %w", a.ID, domain.ErrDuplicateReference)
	}
	r.st.adjustments[a.ID] = a.Clone()
	return nil
}

func (r *adjustmentRepo) Get(_ context.Context, id string) (*entity.StockAdjustment, error) {
	a, ok := r.st.adjustments[id]
	if !ok {
		return nil, nil
	}
	return a.Clone(), nil
}

func (r *adjustmentRepo) GetForUpdate(ctx context.Context, id string) (*entity.StockAdjustment, error) {
	return r.Get(ctx, id)
}

func (r *adjustmentRepo) Update(_ context.Context, a *entity.StockAdjustment) error {
	if _, ok := r.st.adjustments[a.ID]; !ok {
		return domain.ErrNotFound
	}
	r.st.adjustments[a.ID] = a.Clone()
	return nil
}

type countRepo struct{ st *state }

func (r *countRepo) Create(_ context.Context, c *entity.InventoryCount) error {
	if _, ok := r.st.counts[c.ID]; ok {
		return fmt.Errorf("conteo %s: %w", c.ID, domain.ErrDuplicateReference)
	}
	r.st.counts[c.ID] = c.Clone()
	return nil
}

func (r *countRepo) Get(_ context.Context, id string) (*entity.InventoryCount, error) {
	c, ok := r.st.counts[id]
	if !ok {
		return nil, nil
	}
	return c.Clone(), nil
}

func (r *countRepo) GetForUpdate(ctx context.Context, id string) (*entity.InventoryCount, error) {
	return r.Get(ctx, id)
}

func (r *countRepo) Update(_ context.Context, c *entity.InventoryCount) error {
	if _, ok := r.st.counts[c.ID]; !ok {
		return domain.ErrNotFound
	}
	r.st.counts[c.ID] = c.Clone()
	return nil
}

type alertRepo struct{ st *state }

func (r *alertRepo) Create(_ context.Context, a *entity.LowStockAlert) error {
	for _, other := range r.st.alerts {
		if !other.Acknowledged && other.InventoryID == a.InventoryID {
			return fmt.Errorf("alerta abierta para %s: %w", a.SKU, domain.ErrDuplicateReference)
		}
	}
	r.st.alerts[a.ID] = a.Clone()
	return nil
}

func (r *alertRepo) Update(_ context.Context, a *entity.LowStockAlert) error {
	if _, ok := r.st.alerts[a.ID]; !ok {
		return domain.ErrNotFound
	}
	r.st.alerts[a.ID] = a.Clone()
	return nil
}

func (r *alertRepo) GetForUpdate(_ context.Context, id string) (*entity.LowStockAlert, error) {
	a, ok := r.st.alerts[id]
	if !ok {
		return nil, nil
	}
	return a.Clone(), nil
}

func (r *alertRepo) FindOpen(_ context.Context, inventoryID string) (*entity.LowStockAlert, error) {
	for _, a := range r.st.alerts {
		if !a.Acknowledged && a.InventoryID == inventoryID {
			return a.Clone(), nil
		}
	}
	return nil, nil
}

func (r *alertRepo) ListOpen(_ context.Context, storeID string) ([]*entity.LowStockAlert, error) {
	out := make([]*entity.LowStockAlert, 0)
	for _, a := range r.st.alerts {
		if !a.Acknowledged && a.StoreID == storeID {
			out = append(out, a.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type orderRepo struct{ st *state }

func (r *orderRepo) Get(_ context.Context, id string) (*entity.Order, error) {
	o, ok := r.st.orders[id]
	if !ok {
		return nil, nil
	}
	return o.Clone(), nil
}

func (r *orderRepo) GetForUpdate(ctx context.Context, id string) (*entity.Order, error) {
	return r.Get(ctx, id)
}

func (r *orderRepo) Save(_ context.Context, o *entity.Order) error {
	r.st.orders[o.ID] = o.Clone()
	return nil
}
