package inventory

import (
	"context"
	"sort"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// CreateAdjustment registra un ajuste en estado pending.
func (e *Engine) CreateAdjustment(ctx context.Context, in CreateAdjustmentInput) (*entity.StockAdjustment, error) {
	var adj *entity.StockAdjustment
	err := e.exec.read(ctx, func(repos Repos) error {
		var err error
		adj, err = e.reconciler.CreateAdjustment(ctx, repos, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.log.Info().Str("store_id", adj.StoreID).Str("adjustment_id", adj.ID).Int("items", len(adj.Items)).Msg("ajuste creado")
	return adj, nil
}

// GetAdjustment devuelve un ajuste con sus líneas.
func (e *Engine) GetAdjustment(ctx context.Context, storeID, adjustmentID string) (*entity.StockAdjustment, error) {
	var adj *entity.StockAdjustment
	err := e.exec.read(ctx, func(repos Repos) error {
		var err error
		adj, err = repos.Adjustments.Get(ctx, adjustmentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if adj == nil || adj.StoreID != storeID {
		return nil, domain.ErrNotFound
	}
	return adj, nil
}

// adjustmentKeys claves de bloqueo de los SKUs de un ajuste.
func adjustmentKeys(adj *entity.StockAdjustment) []string {
	keys := make([]string, 0, len(adj.Items))
	for _, it := range adj.Items {
		keys = append(keys, StockLockKey(adj.StoreID, it.SKU))
	}
	sort.Strings(keys)
	return keys
}

func lockedAdjustment(ctx context.Context, repos Repos, storeID, id string) (*entity.StockAdjustment, error) {
	adj, err := repos.Adjustments.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if adj == nil || adj.StoreID != storeID {
		return nil, domain.ErrNotFound
	}
	return adj, nil
}

// ApproveAdjustment aprueba el ajuste y publica sus movimientos en la misma transacción.
func (e *Engine) ApproveAdjustment(ctx context.Context, storeID, adjustmentID, approver string) ([]*entity.MovementEntry, error) {
	adj, err := e.GetAdjustment(ctx, storeID, adjustmentID)
	if err != nil {
		return nil, err
	}
	var result *PostingResult
	err = e.exec.run(ctx, adjustmentKeys(adj), func(repos Repos) error {
		locked, err := lockedAdjustment(ctx, repos, storeID, adjustmentID)
		if err != nil {
			return err
		}
		result, err = e.reconciler.Approve(ctx, repos, locked, approver)
		return err
	})
	if err != nil {
		e.log.Warn().Err(err).Str("adjustment_id", adjustmentID).Msg("aprobación de ajuste rechazada")
		return nil, err
	}
	e.notify(ctx, result.Alerts...)
	e.log.Info().Str("adjustment_id", adjustmentID).Str("approver", approver).Int("movements", len(result.Movements)).Msg("ajuste aprobado")
	return result.Movements, nil
}

// RejectAdjustment rechaza un ajuste pendiente.
func (e *Engine) RejectAdjustment(ctx context.Context, storeID, adjustmentID, userID string) error {
	err := e.exec.read(ctx, func(repos Repos) error {
		locked, err := lockedAdjustment(ctx, repos, storeID, adjustmentID)
		if err != nil {
			return err
		}
		return e.reconciler.Reject(ctx, repos, locked, userID)
	})
	if err != nil {
		return err
	}
	e.log.Info().Str("adjustment_id", adjustmentID).Str("user_id", userID).Msg("ajuste rechazado")
	return nil
}

// PostAdjustment publica (o devuelve ya publicados) los movimientos de un ajuste aprobado.
func (e *Engine) PostAdjustment(ctx context.Context, storeID, adjustmentID string) ([]*entity.MovementEntry, error) {
	adj, err := e.GetAdjustment(ctx, storeID, adjustmentID)
	if err != nil {
		return nil, err
	}
	var result *PostingResult
	err = e.exec.run(ctx, adjustmentKeys(adj), func(repos Repos) error {
		locked, err := lockedAdjustment(ctx, repos, storeID, adjustmentID)
		if err != nil {
			return err
		}
		result, err = e.reconciler.Post(ctx, repos, locked)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.notify(ctx, result.Alerts...)
	return result.Movements, nil
}

// StartCount abre un conteo físico.
func (e *Engine) StartCount(ctx context.Context, in StartCountInput) (*entity.InventoryCount, error) {
	var count *entity.InventoryCount
	err := e.exec.read(ctx, func(repos Repos) error {
		var err error
		count, err = e.reconciler.StartCount(ctx, repos, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.log.Info().Str("store_id", count.StoreID).Str("count_id", count.ID).Int("items", len(count.Items)).Msg("conteo iniciado")
	return count, nil
}

// GetCount devuelve un conteo con sus líneas.
func (e *Engine) GetCount(ctx context.Context, storeID, countID string) (*entity.InventoryCount, error) {
	var count *entity.InventoryCount
	err := e.exec.read(ctx, func(repos Repos) error {
		var err error
		count, err = repos.Counts.Get(ctx, countID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if count == nil || count.StoreID != storeID {
		return nil, domain.ErrNotFound
	}
	return count, nil
}

func lockedCount(ctx context.Context, repos Repos, storeID, id string) (*entity.InventoryCount, error) {
	count, err := repos.Counts.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if count == nil || count.StoreID != storeID {
		return nil, domain.ErrNotFound
	}
	return count, nil
}

// RecordCount registra la cantidad contada de un SKU.
func (e *Engine) RecordCount(ctx context.Context, storeID, countID, sku string, counted int64) error {
	return e.exec.read(ctx, func(repos Repos) error {
		count, err := lockedCount(ctx, repos, storeID, countID)
		if err != nil {
			return err
		}
		return e.reconciler.RecordCount(ctx, repos, count, sku, counted)
	})
}

// CompleteCount cierra el conteo y devuelve las discrepancias propuestas.
func (e *Engine) CompleteCount(ctx context.Context, storeID, countID, userID string) ([]entity.ProposedAdjustmentItem, error) {
	var proposals []entity.ProposedAdjustmentItem
	err := e.exec.read(ctx, func(repos Repos) error {
		count, err := lockedCount(ctx, repos, storeID, countID)
		if err != nil {
			return err
		}
		proposals, err = e.reconciler.CompleteCount(ctx, repos, count, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.log.Info().Str("count_id", countID).Int("discrepancies", len(proposals)).Msg("conteo completado")
	return proposals, nil
}

// CreateAdjustmentFromCount crea el ajuste pendiente a partir de un conteo completado.
func (e *Engine) CreateAdjustmentFromCount(ctx context.Context, storeID, countID, userID, reason string) (*entity.StockAdjustment, error) {
	var adj *entity.StockAdjustment
	err := e.exec.read(ctx, func(repos Repos) error {
		count, err := lockedCount(ctx, repos, storeID, countID)
		if err != nil {
			return err
		}
		adj, err = e.reconciler.CreateAdjustmentFromCount(ctx, repos, count, userID, reason)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.log.Info().Str("count_id", countID).Str("adjustment_id", adj.ID).Msg("ajuste propuesto desde conteo")
	return adj, nil
}
