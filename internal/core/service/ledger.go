package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ndvu2901/factory-sim/internal/core/domain"
	"github.com/ndvu2901/factory-sim/internal/port"
)

// Ledger owns the produced-goods pool. All mutators serialize behind one
// mutex so no two reservations can see the same unit as available; the
// repository keeps each call atomic on its side as well.
//
// Reservations are fungible: units carry no link to the order that reserved
// them, and release works oldest-first by production time. That holds up
// because a release always matches the quantity of the reservation it undoes.
type Ledger struct {
	mu   sync.Mutex
	repo port.InventoryRepository
}

func NewLedger(repo port.InventoryRepository) *Ledger {
	return &Ledger{repo: repo}
}

func (l *Ledger) CountAvailable(ctx context.Context) (int, error) {
	return l.repo.CountByStatus(ctx, domain.UnitAvailable)
}

func (l *Ledger) CountReserved(ctx context.Context) (int, error) {
	return l.repo.CountByStatus(ctx, domain.UnitReserved)
}

// Produce mints quantity new available units stamped with the given
// production time.
func (l *Ledger) Produce(ctx context.Context, quantity int, producedAt float64) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}
	units := make([]domain.InventoryUnit, quantity)
	for i := range units {
		units[i] = domain.InventoryUnit{
			ID:         uuid.NewString(),
			Status:     domain.UnitAvailable,
			ProducedAt: producedAt,
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.repo.InsertUnits(ctx, units); err != nil {
		return fmt.Errorf("insert units: %w", err)
	}
	return nil
}

// Reserve flips the quantity oldest available units to reserved, or fails
// with domain.ErrInsufficientStock touching nothing.
func (l *Ledger) Reserve(ctx context.Context, quantity int) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.repo.ReserveOldest(ctx, quantity)
}

// Release returns up to upTo reserved units to the available pool and
// reports how many it actually flipped.
func (l *Ledger) Release(ctx context.Context, upTo int) (int, error) {
	if upTo <= 0 {
		return 0, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.repo.ReleaseOldestReserved(ctx, upTo)
}

// OldestReserved returns IDs of up to limit reserved units, oldest first,
// falling back to available units when fewer are reserved. The fallback
// covers pickup-without-prior-reservation flows.
func (l *Ledger) OldestReserved(ctx context.Context, limit int) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	units, err := l.repo.ListOldest(ctx, domain.UnitReserved, limit)
	if err != nil {
		return nil, err
	}
	if missing := limit - len(units); missing > 0 {
		avail, err := l.repo.ListOldest(ctx, domain.UnitAvailable, missing)
		if err != nil {
			return nil, err
		}
		units = append(units, avail...)
	}
	if len(units) < limit {
		return nil, domain.ErrInsufficientStock
	}
	ids := make([]string, len(units))
	for i, u := range units {
		ids[i] = u.ID
	}
	return ids, nil
}

// Sell stamps the given units sold at the given simulation time.
func (l *Ledger) Sell(ctx context.Context, ids []string, soldAt float64) error {
	if len(ids) == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.repo.MarkSold(ctx, ids, soldAt)
}

// Summary reads both counts under the ledger lock so neither can move
// between the two queries.
func (l *Ledger) Summary(ctx context.Context) (domain.InventorySummary, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	avail, err := l.repo.CountByStatus(ctx, domain.UnitAvailable)
	if err != nil {
		return domain.InventorySummary{}, err
	}
	reserved, err := l.repo.CountByStatus(ctx, domain.UnitReserved)
	if err != nil {
		return domain.InventorySummary{}, err
	}
	return domain.InventorySummary{Available: avail, Reserved: reserved}, nil
}

// Reset drops the whole pool. Only used when the simulation restarts.
func (l *Ledger) Reset(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.repo.TruncateUnits(ctx)
}
