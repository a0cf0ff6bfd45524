package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/stock-ledger/internal/domain"
)

// Querier operaciones comunes a *pgxpool.Pool y pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	if code := pgCode(err); code != "" {
		return code == "23505" // unique_violation
	}
	return strings.Contains(err.Error(), "23505")
}

// mapError traduce los códigos de PostgreSQL que el motor trata como errores de dominio.
//
//	55P03 lock_not_available, 40P01 deadlock_detected → ErrLockTimeout (reintentable)
//	23514 check_violation → ErrInvalidInput
func mapError(err error) error {
	if err == nil {
		return nil
	}
	switch pgCode(err) {
	case "55P03", "40P01":
		if !errors.Is(err, domain.ErrLockTimeout) {
			return fmt.Errorf("%w: %w", domain.ErrLockTimeout, err)
		}
	case "23514":
		if !errors.Is(err, domain.ErrInvalidInput) {
			return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
		}
	}
	return err
}

// noRows convierte pgx.ErrNoRows en (nil, nil), la convención de los repositorios.
func noRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
