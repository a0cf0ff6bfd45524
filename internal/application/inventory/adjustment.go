package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// AdjustmentItemInput línea de ajuste. Si ExpectedQuantity es nil se toma el on_hand actual.
type AdjustmentItemInput struct {
	SKU              string
	ExpectedQuantity *int64
	ActualQuantity   int64
}

// CreateAdjustmentInput entrada para crear un ajuste (queda en pending).
type CreateAdjustmentInput struct {
	StoreID string
	UserID  string
	Reason  string
	CountID *string
	Items   []AdjustmentItemInput
}

// AdjustmentReconciler máquina de estados de ajustes y conteos físicos.
//
//	pending → approved → (movimientos publicados)
//	pending → rejected (terminal, sin movimientos)
type AdjustmentReconciler struct {
	applier *MovementApplier
	now     func() time.Time
}

// NewAdjustmentReconciler construye el reconciliador.
func NewAdjustmentReconciler(applier *MovementApplier, now func() time.Time) *AdjustmentReconciler {
	if now == nil {
		now = time.Now
	}
	return &AdjustmentReconciler{applier: applier, now: now}
}

// CreateAdjustment registra un ajuste pendiente; no toca ningún StockRecord.
func (r *AdjustmentReconciler) CreateAdjustment(ctx context.Context, repos Repos, in CreateAdjustmentInput) (*entity.StockAdjustment, error) {
	if strings.TrimSpace(in.StoreID) == "" || strings.TrimSpace(in.UserID) == "" || len(in.Items) == 0 {
		return nil, domain.ErrInvalidInput
	}
	now := r.now()
	adj := &entity.StockAdjustment{
		ID:        uuid.New().String(),
		StoreID:   in.StoreID,
		CountID:   in.CountID,
		Reason:    in.Reason,
		Status:    entity.AdjustmentPending,
		CreatedBy: in.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	seen := make(map[string]bool, len(in.Items))
	for _, it := range in.Items {
		if strings.TrimSpace(it.SKU) == "" || it.ActualQuantity < 0 || seen[it.SKU] {
			return nil, domain.ErrInvalidInput
		}
		if it.ExpectedQuantity != nil && *it.ExpectedQuantity < 0 {
			return nil, domain.ErrInvalidInput
		}
		seen[it.SKU] = true
		stock, err := repos.Stock.Get(ctx, in.StoreID, it.SKU)
		if err != nil {
			return nil, err
		}
		if stock == nil {
			return nil, fmt.Errorf("sku %s: %w", it.SKU, domain.ErrNotFound)
		}
		expected := stock.QuantityOnHand
		if it.ExpectedQuantity != nil {
			expected = *it.ExpectedQuantity
		}
		item := entity.NewAdjustmentItem(stock.ID, stock.SKU, expected, it.ActualQuantity, stock.UnitCost)
		item.ID = uuid.New().String()
		item.AdjustmentID = adj.ID
		adj.Items = append(adj.Items, item)
	}
	if err := repos.Adjustments.Create(ctx, adj); err != nil {
		return nil, err
	}
	return adj, nil
}

// PostingResult movimientos publicados por un ajuste y alertas generadas.
type PostingResult struct {
	Movements []*entity.MovementEntry
	Alerts    []*entity.LowStockAlert
}

// Approve solo es legal desde pending: pasa a approved y publica un movimiento adjustment por línea
// con quantity = difference. Reaprobar un ajuste ya publicado es un no-op que devuelve sus movimientos.
// adj debe venir bloqueado (GetForUpdate) y sus SKUs bloqueados por el caller.
func (r *AdjustmentReconciler) Approve(ctx context.Context, repos Repos, adj *entity.StockAdjustment, approver string) (*PostingResult, error) {
	if strings.TrimSpace(approver) == "" {
		return nil, domain.ErrInvalidInput
	}
	switch adj.Status {
	case entity.AdjustmentPending:
		now := r.now()
		adj.Status = entity.AdjustmentApproved
		adj.DecidedBy = approver
		adj.DecidedAt = &now
		adj.UpdatedAt = now
	case entity.AdjustmentApproved:
		if !adj.FullyPosted() {
			break
		}
		movements, err := r.postedMovements(ctx, repos, adj)
		if err != nil {
			return nil, err
		}
		return &PostingResult{Movements: movements}, nil
	default:
		return nil, fmt.Errorf("ajuste %s en estado %s: %w", adj.ID, adj.Status, domain.ErrInvalidTransition)
	}
	return r.post(ctx, repos, adj)
}

// Reject pending → rejected. Terminal; nunca publica movimientos.
func (r *AdjustmentReconciler) Reject(ctx context.Context, repos Repos, adj *entity.StockAdjustment, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return domain.ErrInvalidInput
	}
	if adj.Status != entity.AdjustmentPending {
		return fmt.Errorf("ajuste %s en estado %s: %w", adj.ID, adj.Status, domain.ErrInvalidTransition)
	}
	now := r.now()
	adj.Status = entity.AdjustmentRejected
	adj.DecidedBy = userID
	adj.DecidedAt = &now
	adj.UpdatedAt = now
	return repos.Adjustments.Update(ctx, adj)
}

// Post publica las líneas pendientes de un ajuste aprobado y devuelve todos sus movimientos.
// Un ajuste pending o rejected falla con ErrInvalidTransition.
func (r *AdjustmentReconciler) Post(ctx context.Context, repos Repos, adj *entity.StockAdjustment) (*PostingResult, error) {
	if adj.Status != entity.AdjustmentApproved {
		return nil, fmt.Errorf("ajuste %s en estado %s: %w", adj.ID, adj.Status, domain.ErrInvalidTransition)
	}
	return r.post(ctx, repos, adj)
}

func (r *AdjustmentReconciler) post(ctx context.Context, repos Repos, adj *entity.StockAdjustment) (*PostingResult, error) {
	out := &PostingResult{}
	for _, item := range adj.Items {
		if item.Posted {
			continue
		}
		if item.Difference == 0 {
			item.Posted = true
			continue
		}
		if err := r.checkExpected(ctx, repos, adj, item); err != nil {
			return nil, err
		}
		result, err := r.applier.Apply(ctx, repos, MovementInput{
			StoreID:       adj.StoreID,
			SKU:           item.SKU,
			ReferenceType: entity.ReferenceAdjustment,
			ReferenceID:   adj.ID,
			MovementType:  entity.MovementTypeAdjustment,
			Quantity:      item.Difference,
			Reason:        adj.Reason,
			UserID:        adj.DecidedBy,
		})
		if err != nil {
			return nil, err
		}
		movementID := result.Entry.ID
		item.MovementID = &movementID
		item.Posted = true
		if result.Alert != nil {
			out.Alerts = append(out.Alerts, result.Alert)
		}
	}
	adj.UpdatedAt = r.now()
	if err := repos.Adjustments.Update(ctx, adj); err != nil {
		return nil, err
	}
	movements, err := r.postedMovements(ctx, repos, adj)
	if err != nil {
		return nil, err
	}
	out.Movements = movements
	return out, nil
}

// checkExpected exige que el on_hand actual siga siendo el esperado por la línea. Si hubo
// movimientos desde que se tomó (p. ej. una venta durante el conteo), la diferencia ya no es
// válida y el ajuste debe rechazarse y recontarse.
func (r *AdjustmentReconciler) checkExpected(ctx context.Context, repos Repos, adj *entity.StockAdjustment, item *entity.StockAdjustmentItem) error {
	stock, err := repos.Stock.GetForUpdate(ctx, adj.StoreID, item.SKU)
	if err != nil {
		return err
	}
	if stock == nil {
		return fmt.Errorf("sku %s: %w", item.SKU, domain.ErrNotFound)
	}
	if stock.QuantityOnHand != item.ExpectedQuantity {
		return fmt.Errorf("ajuste %s desactualizado: sku %s esperaba %d y hay %d: %w",
			adj.ID, item.SKU, item.ExpectedQuantity, stock.QuantityOnHand, domain.ErrInvalidTransition)
	}
	return nil
}

func (r *AdjustmentReconciler) postedMovements(ctx context.Context, repos Repos, adj *entity.StockAdjustment) ([]*entity.MovementEntry, error) {
	movements := make([]*entity.MovementEntry, 0, len(adj.Items))
	for _, item := range adj.Items {
		if item.MovementID == nil {
			continue
		}
		m, err := repos.Movements.GetByID(ctx, *item.MovementID)
		if err != nil {
			return nil, err
		}
		if m == nil {
			return nil, fmt.Errorf("movimiento %s del ajuste %s: %w", *item.MovementID, adj.ID, domain.ErrNotFound)
		}
		movements = append(movements, m)
	}
	return movements, nil
}
