package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// StartCountInput entrada para iniciar un conteo físico.
type StartCountInput struct {
	StoreID string
	UserID  string
	Notes   string
	SKUs    []string
}

// StartCount abre un conteo tomando como esperado el on_hand actual de cada SKU.
func (r *AdjustmentReconciler) StartCount(ctx context.Context, repos Repos, in StartCountInput) (*entity.InventoryCount, error) {
	if strings.TrimSpace(in.StoreID) == "" || strings.TrimSpace(in.UserID) == "" || len(in.SKUs) == 0 {
		return nil, domain.ErrInvalidInput
	}
	now := r.now()
	count := &entity.InventoryCount{
		ID:        uuid.New().String(),
		StoreID:   in.StoreID,
		Status:    entity.CountInProgress,
		Notes:     in.Notes,
		StartedBy: in.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	seen := make(map[string]bool, len(in.SKUs))
	for _, sku := range in.SKUs {
		if strings.TrimSpace(sku) == "" {
			return nil, domain.ErrInvalidInput
		}
		if seen[sku] {
			continue
		}
		seen[sku] = true
		stock, err := repos.Stock.Get(ctx, in.StoreID, sku)
		if err != nil {
			return nil, err
		}
		if stock == nil {
			return nil, fmt.Errorf("sku %s: %w", sku, domain.ErrNotFound)
		}
		count.Items = append(count.Items, &entity.InventoryCountItem{
			ID:               uuid.New().String(),
			CountID:          count.ID,
			InventoryID:      stock.ID,
			SKU:              sku,
			ExpectedQuantity: stock.QuantityOnHand,
			UnitCost:         stock.UnitCost,
		})
	}
	if err := repos.Counts.Create(ctx, count); err != nil {
		return nil, err
	}
	return count, nil
}

// RecordCount registra la cantidad contada de un SKU (se puede corregir mientras esté in_progress).
func (r *AdjustmentReconciler) RecordCount(ctx context.Context, repos Repos, count *entity.InventoryCount, sku string, counted int64) error {
	if counted < 0 {
		return domain.ErrInvalidInput
	}
	if count.Status != entity.CountInProgress {
		return fmt.Errorf("conteo %s en estado %s: %w", count.ID, count.Status, domain.ErrInvalidTransition)
	}
	item := count.ItemBySKU(sku)
	if item == nil {
		return fmt.Errorf("sku %s en conteo %s: %w", sku, count.ID, domain.ErrNotFound)
	}
	diff := counted - item.ExpectedQuantity
	item.CountedQuantity = &counted
	item.Difference = &diff
	count.UpdatedAt = r.now()
	return repos.Counts.Update(ctx, count)
}

// CompleteCount in_progress → completed. Devuelve las discrepancias como ajuste propuesto;
// no crea el ajuste (paso explícito aparte para conservar la aprobación). Las líneas sin contar
// no generan propuesta.
func (r *AdjustmentReconciler) CompleteCount(ctx context.Context, repos Repos, count *entity.InventoryCount, userID string) ([]entity.ProposedAdjustmentItem, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.ErrInvalidInput
	}
	if count.Status != entity.CountInProgress {
		return nil, fmt.Errorf("conteo %s en estado %s: %w", count.ID, count.Status, domain.ErrInvalidTransition)
	}
	now := r.now()
	for _, item := range count.Items {
		if item.CountedQuantity == nil {
			continue
		}
		diff := *item.CountedQuantity - item.ExpectedQuantity
		item.Difference = &diff
	}
	count.Status = entity.CountCompleted
	count.CompletedBy = userID
	count.CompletedAt = &now
	count.UpdatedAt = now
	if err := repos.Counts.Update(ctx, count); err != nil {
		return nil, err
	}
	return Proposals(count), nil
}

// Proposals discrepancias (diferencia != 0) de un conteo.
func Proposals(count *entity.InventoryCount) []entity.ProposedAdjustmentItem {
	out := make([]entity.ProposedAdjustmentItem, 0)
	for _, item := range count.Items {
		if item.CountedQuantity == nil || item.Difference == nil || *item.Difference == 0 {
			continue
		}
		out = append(out, entity.ProposedAdjustmentItem{
			InventoryID:      item.InventoryID,
			SKU:              item.SKU,
			ExpectedQuantity: item.ExpectedQuantity,
			ActualQuantity:   *item.CountedQuantity,
			Difference:       *item.Difference,
			UnitCost:         item.UnitCost,
			CostImpact:       decimal.NewFromInt(*item.Difference).Mul(item.UnitCost),
		})
	}
	return out
}

// CreateAdjustmentFromCount crea el ajuste pendiente con las discrepancias de un conteo completado.
// Solo se permite una vez por conteo.
func (r *AdjustmentReconciler) CreateAdjustmentFromCount(ctx context.Context, repos Repos, count *entity.InventoryCount, userID, reason string) (*entity.StockAdjustment, error) {
	if count.Status != entity.CountCompleted || count.AdjustmentID != nil {
		return nil, fmt.Errorf("conteo %s: %w", count.ID, domain.ErrInvalidTransition)
	}
	proposals := Proposals(count)
	if len(proposals) == 0 {
		return nil, fmt.Errorf("conteo %s sin discrepancias: %w", count.ID, domain.ErrInvalidInput)
	}
	if reason == "" {
		reason = "conteo físico " + count.ID
	}
	items := make([]AdjustmentItemInput, 0, len(proposals))
	for _, p := range proposals {
		expected := p.ExpectedQuantity
		items = append(items, AdjustmentItemInput{SKU: p.SKU, ExpectedQuantity: &expected, ActualQuantity: p.ActualQuantity})
	}
	countID := count.ID
	adj, err := r.CreateAdjustment(ctx, repos, CreateAdjustmentInput{
		StoreID: count.StoreID,
		UserID:  userID,
		Reason:  reason,
		CountID: &countID,
		Items:   items,
	})
	if err != nil {
		return nil, err
	}
	count.AdjustmentID = &adj.ID
	count.UpdatedAt = r.now()
	if err := repos.Counts.Update(ctx, count); err != nil {
		return nil, err
	}
	return adj, nil
}
