package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")

	// ErrInsufficientStock la cantidad pedida supera lo disponible. Recuperable: el caller decide backorder o cancelación.
	ErrInsufficientStock = errors.New("stock insuficiente")
	// ErrInvalidReservationState doble consumo/liberación de una reserva. No se reintenta.
	ErrInvalidReservationState = errors.New("estado de reserva inválido")
	// ErrDuplicateReference ya existe un movimiento para la misma referencia (reintento idempotente).
	ErrDuplicateReference = errors.New("referencia duplicada")
	// ErrInvalidTransition transición ilegal en la máquina de estados de ajustes o conteos.
	ErrInvalidTransition = errors.New("transición de estado inválida")
	// ErrLockTimeout contención sobre el registro de stock; se puede reintentar con backoff.
	ErrLockTimeout         = errors.New("tiempo de espera de bloqueo agotado")
	ErrAlreadyAcknowledged = errors.New("alerta ya reconocida")
)
