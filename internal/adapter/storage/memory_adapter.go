package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ndvu2901/factory-sim/internal/core/domain"
	"github.com/ndvu2901/factory-sim/internal/port"
)

// MemoryAdapter keeps orders, inventory units, and the clock snapshot in
// process memory under a single mutex, with the same semantics as the MySQL
// adapter. It backs the service tests and local runs without a database.
type MemoryAdapter struct {
	mu       sync.Mutex
	orders   map[string]domain.Order
	units    []domain.InventoryUnit
	snapshot *domain.ClockSnapshot
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{orders: make(map[string]domain.Order)}
}

func (m *MemoryAdapter) CreateOrder(ctx context.Context, order domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.orders[order.ID]; exists {
		return domain.ErrStateConflict
	}
	m.orders[order.ID] = order
	return nil
}

func (m *MemoryAdapter) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	return &order, nil
}

func (m *MemoryAdapter) ListOrders(ctx context.Context) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryAdapter) UpdateOrder(ctx context.Context, order domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[order.ID]; !ok {
		return domain.ErrOrderNotFound
	}
	m.orders[order.ID] = order
	return nil
}

func (m *MemoryAdapter) ExpireDue(ctx context.Context, now, expiryDays float64) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expired []domain.Order
	toRelease := 0
	for id, o := range m.orders {
		if o.Status != domain.OrderStatusPending {
			continue
		}
		if now-o.OrderedAt < expiryDays {
			continue
		}
		o.Status = domain.OrderStatusExpired
		processedAt := now
		o.ProcessedAt = &processedAt
		o.UpdatedAt = time.Now()
		m.orders[id] = o
		toRelease += o.RemainingAmount
		expired = append(expired, o)
	}
	m.releaseOldestLocked(toRelease)
	return expired, nil
}

func (m *MemoryAdapter) CountByStatus(ctx context.Context, status domain.InventoryStatus) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, u := range m.units {
		if u.Status == status {
			n++
		}
	}
	return n, nil
}

func (m *MemoryAdapter) InsertUnits(ctx context.Context, units []domain.InventoryUnit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.units = append(m.units, units...)
	sort.SliceStable(m.units, func(i, j int) bool {
		return m.units[i].ProducedAt < m.units[j].ProducedAt
	})
	return nil
}

func (m *MemoryAdapter) ReserveOldest(ctx context.Context, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := make([]int, 0, quantity)
	for i, u := range m.units {
		if u.Status == domain.UnitAvailable {
			idx = append(idx, i)
			if len(idx) == quantity {
				break
			}
		}
	}
	if len(idx) < quantity {
		return domain.ErrInsufficientStock
	}
	for _, i := range idx {
		m.units[i].Status = domain.UnitReserved
	}
	return nil
}

func (m *MemoryAdapter) ReleaseOldestReserved(ctx context.Context, upTo int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.releaseOldestLocked(upTo), nil
}

func (m *MemoryAdapter) releaseOldestLocked(upTo int) int {
	released := 0
	for i := range m.units {
		if released == upTo {
			break
		}
		if m.units[i].Status == domain.UnitReserved {
			m.units[i].Status = domain.UnitAvailable
			released++
		}
	}
	return released
}

func (m *MemoryAdapter) ListOldest(ctx context.Context, status domain.InventoryStatus, limit int) ([]domain.InventoryUnit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.InventoryUnit, 0, limit)
	for _, u := range m.units {
		if u.Status == status {
			out = append(out, u)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *MemoryAdapter) MarkSold(ctx context.Context, ids []string, soldAt float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byID := make(map[string]int, len(m.units))
	for i, u := range m.units {
		byID[u.ID] = i
	}
	// Validate first so a bad batch mutates nothing.
	for _, id := range ids {
		i, ok := byID[id]
		if !ok || m.units[i].Status == domain.UnitSold {
			return domain.ErrStateConflict
		}
	}
	for _, id := range ids {
		i := byID[id]
		m.units[i].Status = domain.UnitSold
		t := soldAt
		m.units[i].SoldAt = &t
	}
	return nil
}

func (m *MemoryAdapter) TruncateUnits(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.units = nil
	return nil
}

func (m *MemoryAdapter) SaveSnapshot(ctx context.Context, snap domain.ClockSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = &snap
	return nil
}

func (m *MemoryAdapter) LoadSnapshot(ctx context.Context) (*domain.ClockSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snapshot == nil {
		return nil, nil
	}
	snap := *m.snapshot
	return &snap, nil
}

var (
	_ port.OrderRepository     = (*MemoryAdapter)(nil)
	_ port.InventoryRepository = (*MemoryAdapter)(nil)
	_ port.ClockStore          = (*MemoryAdapter)(nil)
)
