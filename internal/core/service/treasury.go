package service

import (
	"sync"

	"github.com/ndvu2901/factory-sim/internal/core/domain"
)

// Treasury caches the last answers from the outside world: bank balance,
// supplier offers, machine count. Saga handlers write it, the day
// orchestrator reads it, so a failed inline call can fall back to the most
// recent known state instead of aborting the day.
type Treasury struct {
	mu           sync.RWMutex
	balance      int64
	balanceKnown bool
	offers       []domain.SupplierOffer
	machines     int
	counted      map[string]struct{}
}

func NewTreasury() *Treasury {
	return &Treasury{counted: make(map[string]struct{})}
}

func (t *Treasury) SetBalance(v int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balance = v
	t.balanceKnown = true
}

// Balance returns the cached balance and whether one was ever recorded.
func (t *Treasury) Balance() (int64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.balance, t.balanceKnown
}

func (t *Treasury) SetOffers(offers []domain.SupplierOffer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.offers = append([]domain.SupplierOffer(nil), offers...)
}

func (t *Treasury) Offers() []domain.SupplierOffer {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]domain.SupplierOffer(nil), t.offers...)
}

// AddMachinesOnce counts n machines under a reference, once. A redelivered
// supplier-order job reuses its reference and must not count twice.
func (t *Treasury) AddMachinesOnce(reference string, n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, seen := t.counted[reference]; seen {
		return
	}
	t.counted[reference] = struct{}{}
	t.machines += n
}

func (t *Treasury) Machines() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.machines
}
