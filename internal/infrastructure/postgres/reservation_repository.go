package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.ReservationRepository = (*ReservationRepo)(nil)

// ReservationRepo reservas sobre PostgreSQL (tabla stock_reservations).
type ReservationRepo struct {
	q Querier
}

// NewReservationRepository construye el adaptador.
func NewReservationRepository(q Querier) *ReservationRepo {
	return &ReservationRepo{q: q}
}

const reservationColumns = `
	id, store_id, inventory_id, sku, order_id, quantity, status, movement_id, expires_at, created_at, updated_at`

func scanReservation(row pgx.Row) (*entity.Reservation, error) {
	var res entity.Reservation
	err := row.Scan(
		&res.ID, &res.StoreID, &res.InventoryID, &res.SKU, &res.OrderID, &res.Quantity,
		&res.Status, &res.MovementID, &res.ExpiresAt, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *ReservationRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Reservation, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()
	list := make([]*entity.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		list = append(list, res)
	}
	return list, rows.Err()
}

func (r *ReservationRepo) one(ctx context.Context, op, query string, args ...any) (*entity.Reservation, error) {
	res, err := scanReservation(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

// Create persiste una reserva activa. El índice único parcial impide dos activas por (orden, registro).
func (r *ReservationRepo) Create(ctx context.Context, res *entity.Reservation) error {
	query := `
		INSERT INTO stock_reservations (` + reservationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(ctx, query,
		res.ID, res.StoreID, res.InventoryID, res.SKU, res.OrderID, res.Quantity,
		res.Status, res.MovementID, res.ExpiresAt, res.CreatedAt, res.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("reserva activa para orden %s: %w", res.OrderID, domain.ErrDuplicateReference)
		}
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}

// Update persiste estado y movimiento asociado.
func (r *ReservationRepo) Update(ctx context.Context, res *entity.Reservation) error {
	query := `UPDATE stock_reservations SET status = $2, movement_id = $3, updated_at = $4 WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, res.ID, res.Status, res.MovementID, res.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update reservation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ReservationRepo) Get(ctx context.Context, id string) (*entity.Reservation, error) {
	return r.one(ctx, "get reservation", `SELECT`+reservationColumns+` FROM stock_reservations WHERE id = $1`, id)
}

func (r *ReservationRepo) GetForUpdate(ctx context.Context, id string) (*entity.Reservation, error) {
	return r.one(ctx, "get reservation for update", `SELECT`+reservationColumns+` FROM stock_reservations WHERE id = $1 FOR UPDATE`, id)
}

func (r *ReservationRepo) FindActive(ctx context.Context, orderID, inventoryID string) (*entity.Reservation, error) {
	query := `SELECT` + reservationColumns + `
		FROM stock_reservations
		WHERE order_id = $1 AND inventory_id = $2 AND status = $3`
	return r.one(ctx, "find active reservation", query, orderID, inventoryID, entity.ReservationActive)
}

func (r *ReservationRepo) ListByOrder(ctx context.Context, orderID string) ([]*entity.Reservation, error) {
	query := `SELECT` + reservationColumns + ` FROM stock_reservations WHERE order_id = $1 ORDER BY sku, created_at`
	return r.list(ctx, query, orderID)
}

// ListExpired reservas activas vencidas, las más antiguas primero.
func (r *ReservationRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]*entity.Reservation, error) {
	query := `SELECT` + reservationColumns + `
		FROM stock_reservations
		WHERE status = $1 AND expires_at < $2
		ORDER BY expires_at
		LIMIT $3`
	return r.list(ctx, query, entity.ReservationActive, now, limit)
}
