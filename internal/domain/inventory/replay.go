package inventory

import (
	"fmt"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// Replay reconstruye quantity_on_hand aplicando en orden todos los movimientos desde cero.
// Falla si algún prefijo del ledger deja el stock en negativo (ledger corrupto).
func Replay(entries []*entity.MovementEntry) (int64, error) {
	var onHand int64
	for _, e := range entries {
		onHand += e.Effect()
		if onHand < 0 {
			return 0, fmt.Errorf("replay: stock negativo tras movimiento %s (seq %d)", e.ID, e.Sequence)
		}
	}
	return onHand, nil
}

// Verification resultado de comparar la caché contra el ledger.
type Verification struct {
	InventoryID    string
	CachedOnHand   int64
	ReplayedOnHand int64
	Entries        int
}

// Consistent indica si la caché coincide con el ledger.
func (v Verification) Consistent() bool {
	return v.CachedOnHand == v.ReplayedOnHand
}
