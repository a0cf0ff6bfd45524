// Package lock implementa la exclusión mutua por StockRecord (inventory.Locker).
package lock

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
)

var _ inventory.Locker = (*MemoryLocker)(nil)

// MemoryLocker bloqueo por clave dentro del proceso: un semáforo de capacidad 1 por clave.
type MemoryLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

// NewMemoryLocker construye el locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{slots: map[string]chan struct{}{}}
}

func (l *MemoryLocker) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}
	return ch
}

// normalizeKeys ordena y quita duplicados: el orden fijo evita interbloqueos entre
// dos callers que piden conjuntos solapados.
func normalizeKeys(keys []string) []string {
	out := slices.Clone(keys)
	slices.Sort(out)
	return slices.Compact(out)
}

// Lock adquiere todas las claves o ninguna. Si no lo logra en timeout devuelve domain.ErrLockTimeout.
func (l *MemoryLocker) Lock(ctx context.Context, keys []string, timeout time.Duration) (func(), error) {
	keys = normalizeKeys(keys)
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	held := make([]chan struct{}, 0, len(keys))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i]
		}
	}
	for _, key := range keys {
		ch := l.slot(key)
		select {
		case ch <- struct{}{}:
			held = append(held, ch)
		case <-timer.C:
			release()
			return nil, fmt.Errorf("clave %s: %w", key, domain.ErrLockTimeout)
		case <-ctx.Done():
			release()
			return nil, ctx.Err()
		}
	}
	var once sync.Once
	return func() { once.Do(release) }, nil
}

// IsTimeout indica si err es un timeout de bloqueo.
func IsTimeout(err error) bool {
	return errors.Is(err, domain.ErrLockTimeout)
}
