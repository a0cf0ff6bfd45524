package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// ReservationRepository puerto de persistencia de reservas.
type ReservationRepository interface {
	Create(ctx context.Context, r *entity.Reservation) error
	Update(ctx context.Context, r *entity.Reservation) error
	Get(ctx context.Context, id string) (*entity.Reservation, error)
	GetForUpdate(ctx context.Context, id string) (*entity.Reservation, error)
	FindActive(ctx context.Context, orderID, inventoryID string) (*entity.Reservation, error)
	ListByOrder(ctx context.Context, orderID string) ([]*entity.Reservation, error)
	// ListExpired reservas activas con expires_at anterior a now (para el reaper).
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*entity.Reservation, error)
}
