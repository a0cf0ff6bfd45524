package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
)

// errorMapping código HTTP y código de error por error de dominio.
var errorMapping = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "VALIDATION"},
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{domain.ErrUnauthorized, fiber.StatusUnauthorized, "UNAUTHORIZED"},
	{domain.ErrForbidden, fiber.StatusForbidden, "FORBIDDEN"},
	{domain.ErrInsufficientStock, fiber.StatusConflict, "INSUFFICIENT_STOCK"},
	{domain.ErrInvalidReservationState, fiber.StatusConflict, "INVALID_RESERVATION_STATE"},
	{domain.ErrInvalidTransition, fiber.StatusConflict, "INVALID_TRANSITION"},
	{domain.ErrAlreadyAcknowledged, fiber.StatusConflict, "ALREADY_ACKNOWLEDGED"},
	{domain.ErrDuplicateReference, fiber.StatusConflict, "DUPLICATE_REFERENCE"},
	{domain.ErrLockTimeout, fiber.StatusServiceUnavailable, "LOCK_TIMEOUT"},
}

// writeError traduce el error del motor a la respuesta HTTP. Lo no reconocido es 500.
func writeError(c *fiber.Ctx, err error) error {
	for _, m := range errorMapping {
		if errors.Is(err, m.err) {
			if m.status == fiber.StatusServiceUnavailable {
				c.Set(fiber.HeaderRetryAfter, "1")
			}
			return c.Status(m.status).JSON(dto.ErrorResponse{Code: m.code, Message: err.Error()})
		}
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}

// storeAndUser exige store_id y user_id del token.
func storeAndUser(c *fiber.Ctx) (string, string, bool) {
	storeID, userID := GetStoreID(c), GetUserID(c)
	return storeID, userID, storeID != "" && userID != ""
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token sin store_id o user_id"})
}
