package port

import (
	"context"

	"github.com/ndvu2901/factory-sim/internal/core/domain"
)

// External collaborators. Concrete protocols live behind these interfaces;
// every call is expected to be safe to repeat (saga handlers deliver
// at-least-once).

type BankCapability interface {
	Balance(ctx context.Context) (int64, error)

	// CreateAccount is idempotent on the owner: creating an account that
	// already exists returns the existing account ID.
	CreateAccount(ctx context.Context, owner string) (string, error)

	RequestLoan(ctx context.Context, amount int64) (string, error)

	// MakePayment returns domain.ErrDuplicatePayment when the reference was
	// already used, which callers treat as an earlier success.
	MakePayment(ctx context.Context, to string, amount int64, reference string) error
}

type LogisticsCapability interface {
	ArrangePickup(ctx context.Context, orderID string, quantity int) (*domain.PickupQuote, error)
}

type SupplierCapability interface {
	ListStock(ctx context.Context) ([]domain.SupplierOffer, error)

	// PlaceOrder is idempotent on the reference.
	PlaceOrder(ctx context.Context, reference, item string, quantity int) (*domain.SupplierConfirmation, error)
}
