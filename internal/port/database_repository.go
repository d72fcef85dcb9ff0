package port

import (
	"context"

	"github.com/ndvu2901/factory-sim/internal/core/domain"
)

type OrderRepository interface {
	// CreateOrder persists a new order.
	CreateOrder(ctx context.Context, order domain.Order) error

	// GetOrder returns nil when no order with the given ID exists.
	GetOrder(ctx context.Context, id string) (*domain.Order, error)

	ListOrders(ctx context.Context) ([]domain.Order, error)

	// UpdateOrder overwrites the mutable fields of an existing order.
	UpdateOrder(ctx context.Context, order domain.Order) error

	// ExpireDue flips every pending order older than the expiry window to
	// expired and releases its remaining reserved units, all in a single
	// unit of work: either the whole due batch commits or none of it does.
	// Calling it again immediately finds nothing to expire.
	ExpireDue(ctx context.Context, now, expiryDays float64) ([]domain.Order, error)
}

type InventoryRepository interface {
	CountByStatus(ctx context.Context, status domain.InventoryStatus) (int, error)

	InsertUnits(ctx context.Context, units []domain.InventoryUnit) error

	// ReserveOldest flips the quantity oldest available units to reserved.
	// All-or-nothing: when fewer than quantity are available it returns
	// domain.ErrInsufficientStock and mutates nothing.
	ReserveOldest(ctx context.Context, quantity int) error

	// ReleaseOldestReserved flips up to upTo reserved units back to
	// available, oldest production first, and returns how many it flipped.
	ReleaseOldestReserved(ctx context.Context, upTo int) (int, error)

	// ListOldest returns up to limit units of the given status, oldest
	// production first.
	ListOldest(ctx context.Context, status domain.InventoryStatus, limit int) ([]domain.InventoryUnit, error)

	// MarkSold stamps the given units sold. Units already sold are a
	// domain.ErrStateConflict; nothing is mutated on error.
	MarkSold(ctx context.Context, ids []string, soldAt float64) error

	// TruncateUnits drops the whole pool (simulation reset only).
	TruncateUnits(ctx context.Context) error
}

// ClockStore persists the single clock snapshot row.
type ClockStore interface {
	SaveSnapshot(ctx context.Context, snap domain.ClockSnapshot) error

	// LoadSnapshot returns nil when no snapshot has been saved yet.
	LoadSnapshot(ctx context.Context) (*domain.ClockSnapshot, error)
}
