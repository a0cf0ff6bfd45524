// Package memory implementa los repositorios del motor en memoria (LEDGER_STORE=memory).
// Cada transacción trabaja sobre una copia del estado y el commit la publica completa,
// así un fallo dentro de fn no deja nada aplicado.
package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

var _ inventory.TxRunner = (*Store)(nil)

// Store almacén en memoria. Las transacciones se serializan con un único mutex.
type Store struct {
	mu    sync.Mutex
	state *state
}

// NewStore construye un almacén vacío.
func NewStore() *Store {
	return &Store{state: newState()}
}

type state struct {
	stock        map[string]*entity.StockRecord // por inventory_id
	stockByKey   map[string]string              // store|sku → inventory_id
	movements    []*entity.MovementEntry
	movementByID map[string]*entity.MovementEntry
	movementRef  map[entity.ReferenceKey]*entity.MovementEntry
	seq          int64
	reservations map[string]*entity.Reservation
	adjustments  map[string]*entity.StockAdjustment
	counts       map[string]*entity.InventoryCount
	alerts       map[string]*entity.LowStockAlert
	orders       map[string]*entity.Order
}

func newState() *state {
	return &state{
		stock:        map[string]*entity.StockRecord{},
		stockByKey:   map[string]string{},
		movementByID: map[string]*entity.MovementEntry{},
		movementRef:  map[entity.ReferenceKey]*entity.MovementEntry{},
		reservations: map[string]*entity.Reservation{},
		adjustments:  map[string]*entity.StockAdjustment{},
		counts:       map[string]*entity.InventoryCount{},
		alerts:       map[string]*entity.LowStockAlert{},
		orders:       map[string]*entity.Order{},
	}
}

// clone copia los mapas; los valores se reemplazan (nunca se mutan) al escribir,
// por lo que compartir punteros entre copias es seguro.
func (s *state) clone() *state {
	return &state{
		stock:        maps.Clone(s.stock),
		stockByKey:   maps.Clone(s.stockByKey),
		movements:    append([]*entity.MovementEntry(nil), s.movements...),
		movementByID: maps.Clone(s.movementByID),
		movementRef:  maps.Clone(s.movementRef),
		seq:          s.seq,
		reservations: maps.Clone(s.reservations),
		adjustments:  maps.Clone(s.adjustments),
		counts:       maps.Clone(s.counts),
		alerts:       maps.Clone(s.alerts),
		orders:       maps.Clone(s.orders),
	}
}

func stockKey(storeID, sku string) string {
	return storeID + "|" + sku
}

// Run ejecuta fn sobre una copia del estado; si fn no falla la copia pasa a ser el estado.
func (s *Store) Run(ctx context.Context, fn func(repos inventory.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	repos := inventory.Repos{
		Stock:        &stockRepo{st: work},
		Movements:    &movementRepo{st: work},
		Reservations: &reservationRepo{st: work},
		Adjustments:  &adjustmentRepo{st: work},
		Counts:       &countRepo{st: work},
		Alerts:       &alertRepo{st: work},
		Orders:       &orderRepo{st: work},
	}
	if err := fn(repos); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = work
	return nil
}
