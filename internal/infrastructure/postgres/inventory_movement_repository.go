package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo ledger append-only sobre PostgreSQL (usable con pool o tx).
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

const movementColumns = `
	id, sequence, store_id, inventory_id, reference_type, reference_id, movement_type,
	quantity, unit_cost, reason, created_by, created_at`

func scanMovement(row pgx.Row) (*entity.MovementEntry, error) {
	var m entity.MovementEntry
	var reason, createdBy *string
	err := row.Scan(
		&m.ID, &m.Sequence, &m.StoreID, &m.InventoryID, &m.ReferenceType, &m.ReferenceID, &m.MovementType,
		&m.Quantity, &m.UnitCost, &reason, &createdBy, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if reason != nil {
		m.Reason = *reason
	}
	if createdBy != nil {
		m.CreatedBy = *createdBy
	}
	return &m, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Append persiste el movimiento y asigna su Sequence. La restricción única
// (reference_type, reference_id, inventory_id, movement_type) es la guarda de idempotencia.
func (r *MovementRepo) Append(ctx context.Context, m *entity.MovementEntry) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	query := `
		INSERT INTO inventory_movements (id, store_id, inventory_id, reference_type, reference_id, movement_type,
			quantity, unit_cost, reason, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING sequence`
	err := r.q.QueryRow(ctx, query,
		m.ID, m.StoreID, m.InventoryID, m.ReferenceType, m.ReferenceID, m.MovementType,
		m.Quantity, m.UnitCost, nullable(m.Reason), nullable(m.CreatedBy), m.CreatedAt,
	).Scan(&m.Sequence)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("movimiento %s/%s: %w", m.ReferenceType, m.ReferenceID, domain.ErrDuplicateReference)
		}
		return fmt.Errorf("append movement: %w", err)
	}
	return nil
}

// FindByReference busca el movimiento por su clave de idempotencia.
func (r *MovementRepo) FindByReference(ctx context.Context, key entity.ReferenceKey) (*entity.MovementEntry, error) {
	query := `SELECT` + movementColumns + `
		FROM inventory_movements
		WHERE reference_type = $1 AND reference_id = $2 AND inventory_id = $3 AND movement_type = $4`
	m, err := scanMovement(r.q.QueryRow(ctx, query, key.ReferenceType, key.ReferenceID, key.InventoryID, key.MovementType))
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find movement by reference: %w", err)
	}
	return m, nil
}

// GetByID obtiene un movimiento por ID.
func (r *MovementRepo) GetByID(ctx context.Context, id string) (*entity.MovementEntry, error) {
	query := `SELECT` + movementColumns + ` FROM inventory_movements WHERE id = $1`
	m, err := scanMovement(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get movement: %w", err)
	}
	return m, nil
}

// ListFor lista los movimientos de un registro en orden de inserción.
func (r *MovementRepo) ListFor(ctx context.Context, inventoryID string, sinceSequence int64) ([]*entity.MovementEntry, error) {
	query := `SELECT` + movementColumns + `
		FROM inventory_movements
		WHERE inventory_id = $1 AND sequence > $2
		ORDER BY sequence`
	rows, err := r.q.Query(ctx, query, inventoryID, sinceSequence)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()
	list := make([]*entity.MovementEntry, 0)
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}
