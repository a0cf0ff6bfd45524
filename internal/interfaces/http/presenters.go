package http

import (
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/stock-ledger/internal/domain/inventory"
)

func toStockResponse(s *entity.StockRecord) dto.StockResponse {
	return dto.StockResponse{
		InventoryID:       s.ID,
		StoreID:           s.StoreID,
		SKU:               s.SKU,
		ProductID:         s.ProductID,
		VariantID:         s.VariantID,
		QuantityOnHand:    s.QuantityOnHand,
		QuantityReserved:  s.QuantityReserved,
		QuantityAvailable: s.QuantityAvailable,
		ReorderLevel:      s.ReorderLevel,
		MaxStockLevel:     s.MaxStockLevel,
		UnitCost:          s.UnitCost,
		TotalValue:        s.TotalValue,
		LastMovementDate:  s.LastMovementDate,
		UpdatedAt:         s.UpdatedAt,
	}
}

func toMovementResponse(m *entity.MovementEntry) dto.MovementResponse {
	return dto.MovementResponse{
		ID:            m.ID,
		Sequence:      m.Sequence,
		InventoryID:   m.InventoryID,
		ReferenceType: m.ReferenceType,
		ReferenceID:   m.ReferenceID,
		MovementType:  m.MovementType,
		Quantity:      m.Quantity,
		UnitCost:      m.UnitCost,
		Reason:        m.Reason,
		CreatedBy:     m.CreatedBy,
		CreatedAt:     m.CreatedAt,
	}
}

func toMovementList(list []*entity.MovementEntry) []dto.MovementResponse {
	out := make([]dto.MovementResponse, 0, len(list))
	for _, m := range list {
		out = append(out, toMovementResponse(m))
	}
	return out
}

func toVerificationResponse(v *domaininv.Verification) dto.VerificationResponse {
	return dto.VerificationResponse{
		InventoryID:    v.InventoryID,
		CachedOnHand:   v.CachedOnHand,
		ReplayedOnHand: v.ReplayedOnHand,
		Entries:        v.Entries,
		Consistent:     v.Consistent(),
	}
}

func toReservationResponse(r *entity.Reservation) dto.ReservationResponse {
	return dto.ReservationResponse{
		ID:          r.ID,
		InventoryID: r.InventoryID,
		SKU:         r.SKU,
		OrderID:     r.OrderID,
		Quantity:    r.Quantity,
		Status:      r.Status,
		MovementID:  r.MovementID,
		ExpiresAt:   r.ExpiresAt,
		CreatedAt:   r.CreatedAt,
	}
}

func toAdjustmentResponse(a *entity.StockAdjustment) dto.AdjustmentResponse {
	items := make([]dto.AdjustmentItemResponse, 0, len(a.Items))
	for _, it := range a.Items {
		items = append(items, dto.AdjustmentItemResponse{
			SKU:              it.SKU,
			ExpectedQuantity: it.ExpectedQuantity,
			ActualQuantity:   it.ActualQuantity,
			Difference:       it.Difference,
			UnitCost:         it.UnitCost,
			CostImpact:       it.CostImpact,
			Posted:           it.Posted,
			MovementID:       it.MovementID,
		})
	}
	return dto.AdjustmentResponse{
		ID:              a.ID,
		CountID:         a.CountID,
		Reason:          a.Reason,
		Status:          a.Status,
		CreatedBy:       a.CreatedBy,
		DecidedBy:       a.DecidedBy,
		DecidedAt:       a.DecidedAt,
		TotalCostImpact: a.TotalCostImpact(),
		Items:           items,
		CreatedAt:       a.CreatedAt,
	}
}

func toCountResponse(c *entity.InventoryCount) dto.CountResponse {
	items := make([]dto.CountItemResponse, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, dto.CountItemResponse{
			SKU:              it.SKU,
			ExpectedQuantity: it.ExpectedQuantity,
			CountedQuantity:  it.CountedQuantity,
			Difference:       it.Difference,
		})
	}
	return dto.CountResponse{
		ID:           c.ID,
		Status:       c.Status,
		Notes:        c.Notes,
		AdjustmentID: c.AdjustmentID,
		StartedBy:    c.StartedBy,
		CompletedAt:  c.CompletedAt,
		Items:        items,
	}
}

func toProposedList(list []entity.ProposedAdjustmentItem) []dto.ProposedAdjustmentResponse {
	out := make([]dto.ProposedAdjustmentResponse, 0, len(list))
	for _, p := range list {
		out = append(out, dto.ProposedAdjustmentResponse{
			SKU:              p.SKU,
			ExpectedQuantity: p.ExpectedQuantity,
			ActualQuantity:   p.ActualQuantity,
			Difference:       p.Difference,
			CostImpact:       p.CostImpact,
		})
	}
	return out
}

func toAlertResponse(a *entity.LowStockAlert) dto.LowStockAlertResponse {
	return dto.LowStockAlertResponse{
		ID:                a.ID,
		InventoryID:       a.InventoryID,
		SKU:               a.SKU,
		AlertLevel:        a.AlertLevel,
		QuantityAvailable: a.QuantityAvailable,
		ReorderLevel:      a.ReorderLevel,
		Acknowledged:      a.Acknowledged,
		AcknowledgedBy:    a.AcknowledgedBy,
		AcknowledgedAt:    a.AcknowledgedAt,
		CreatedAt:         a.CreatedAt,
	}
}

func toOrderResponse(o *entity.Order, reservations []*entity.Reservation, movements []*entity.MovementEntry) dto.OrderResponse {
	items := make([]dto.OrderItemRequest, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, dto.OrderItemRequest{ProductID: it.ProductID, VariantID: it.VariantID, Quantity: it.Quantity})
	}
	res := make([]dto.ReservationResponse, 0, len(reservations))
	for _, r := range reservations {
		res = append(res, toReservationResponse(r))
	}
	out := dto.OrderResponse{
		ID:           o.ID,
		Status:       o.Status,
		Items:        items,
		Reservations: res,
		UpdatedAt:    o.UpdatedAt,
	}
	if len(movements) > 0 {
		out.Movements = toMovementList(movements)
	}
	return out
}

func toReplenishmentList(list []inventory.ReplenishmentSuggestion) []dto.ReplenishmentSuggestionDTO {
	out := make([]dto.ReplenishmentSuggestionDTO, 0, len(list))
	for _, s := range list {
		out = append(out, dto.ReplenishmentSuggestionDTO{
			InventoryID:        s.InventoryID,
			SKU:                s.SKU,
			ProductID:          s.ProductID,
			VariantID:          s.VariantID,
			QuantityOnHand:     s.QuantityOnHand,
			QuantityAvailable:  s.QuantityAvailable,
			ReorderLevel:       s.ReorderLevel,
			TargetStock:        s.TargetStock,
			SuggestedOrderQty:  s.SuggestedOrderQty,
			UnitCost:           s.UnitCost,
			EstimatedOrderCost: s.EstimatedOrderCost,
			Priority:           s.Priority,
		})
	}
	return out
}
