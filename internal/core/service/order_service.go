package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ndvu2901/factory-sim/internal/core/domain"
	"github.com/ndvu2901/factory-sim/internal/port"
)

// DefaultExpiryDays is the payment window: a pending order older than one
// simulated day expires and its reservation is released.
const DefaultExpiryDays = 1.0

// OrderService runs the order lifecycle: creation with all-or-nothing
// reservation, partial fulfillment, delivery, and the expiry sweep.
type OrderService struct {
	repo       port.OrderRepository
	ledger     *Ledger
	clock      *Clock
	logistics  port.LogisticsCapability
	queue      port.JobQueue
	expiryDays float64
	log        *zap.Logger
}

func NewOrderService(
	repo port.OrderRepository,
	ledger *Ledger,
	clock *Clock,
	logistics port.LogisticsCapability,
	queue port.JobQueue,
	expiryDays float64,
	log *zap.Logger,
) *OrderService {
	if expiryDays <= 0 {
		expiryDays = DefaultExpiryDays
	}
	return &OrderService{
		repo:       repo,
		ledger:     ledger,
		clock:      clock,
		logistics:  logistics,
		queue:      queue,
		expiryDays: expiryDays,
		log:        log,
	}
}

// CreateOrder validates, reserves stock, and persists a pending order.
// Reservation failure is returned to the caller directly; inventory is
// visible and re-checkable, so there is no retry backlog for it.
func (s *OrderService) CreateOrder(ctx context.Context, customer string, quantity int) (*domain.Order, error) {
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	if customer == "" {
		return nil, domain.ErrUnknownCustomer
	}

	if err := s.ledger.Reserve(ctx, quantity); err != nil {
		return nil, err
	}

	now := time.Now()
	order := domain.Order{
		ID:              uuid.NewString(),
		Customer:        customer,
		Status:          domain.OrderStatusPending,
		TotalAmount:     quantity,
		RemainingAmount: quantity,
		OrderedAt:       s.clock.CurrentPreciseTime(3),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.CreateOrder(ctx, order); err != nil {
		// Undo the reservation so a failed persist leaves no trace.
		if _, relErr := s.ledger.Release(ctx, quantity); relErr != nil {
			s.log.Error("rollback of reservation failed",
				zap.String("order_id", order.ID), zap.Error(relErr))
		}
		return nil, fmt.Errorf("persist order: %w", err)
	}

	return &order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return s.repo.ListOrders(ctx)
}

// FulfillPartial records deliveredQty units handed over for the order.
// Reaching zero remaining completes the order; any earlier delivery moves it
// to in-progress.
func (s *OrderService) FulfillPartial(ctx context.Context, orderID string, deliveredQty int) (*domain.Order, error) {
	if deliveredQty <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Terminal() {
		return nil, domain.ErrStateConflict
	}
	if deliveredQty > order.RemainingAmount {
		return nil, domain.ErrInvalidQuantity
	}

	order.RemainingAmount -= deliveredQty
	if order.RemainingAmount == 0 {
		order.Status = domain.OrderStatusCompleted
		t := s.clock.CurrentPreciseTime(3)
		order.ProcessedAt = &t
	} else {
		order.Status = domain.OrderStatusInProgress
	}
	order.UpdatedAt = time.Now()

	if err := s.repo.UpdateOrder(ctx, *order); err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}
	return order, nil
}

// ArrangeDelivery quotes a pickup with logistics, sells the quantity oldest
// reserved units, fulfills the order, and queues payment of the pickup cost.
// Selling is terminal, so every order check runs before the first unit flips.
func (s *OrderService) ArrangeDelivery(ctx context.Context, orderID string, quantity int) (*domain.Order, error) {
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Terminal() {
		return nil, domain.ErrStateConflict
	}
	if quantity > order.RemainingAmount {
		return nil, domain.ErrInvalidQuantity
	}

	quote, err := s.logistics.ArrangePickup(ctx, orderID, quantity)
	if err != nil {
		return nil, fmt.Errorf("arrange pickup: %w", err)
	}

	ids, err := s.ledger.OldestReserved(ctx, quantity)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.Sell(ctx, ids, s.clock.CurrentPreciseTime(3)); err != nil {
		return nil, fmt.Errorf("sell units: %w", err)
	}

	order, err = s.FulfillPartial(ctx, orderID, quantity)
	if err != nil {
		return nil, err
	}

	job, err := domain.NewRetryJob(domain.JobPayment, domain.PaymentPayload{
		To:        quote.PayeeAccount,
		Amount:    quote.Cost,
		Reference: "pickup-" + orderID,
	})
	if err != nil {
		return nil, err
	}
	if err := s.queue.Publish(ctx, job); err != nil {
		// The pickup is arranged and the goods are sold; payment rides the
		// queue, so a publish failure only loses the retry ticket.
		s.log.Error("queue pickup payment", zap.String("order_id", orderID), zap.Error(err))
	}

	return order, nil
}

// ProcessExpirySweep expires every pending order whose age reached the
// payment window and releases its reservation. The repository commits the
// whole batch atomically, so a repeated or concurrent sweep finds nothing
// left to expire.
func (s *OrderService) ProcessExpirySweep(ctx context.Context, now float64) (int, error) {
	expired, err := s.repo.ExpireDue(ctx, now, s.expiryDays)
	if err != nil {
		return 0, fmt.Errorf("expire due orders: %w", err)
	}
	for _, o := range expired {
		s.log.Info("order expired",
			zap.String("order_id", o.ID),
			zap.Float64("ordered_at", o.OrderedAt),
			zap.Int("released_units", o.RemainingAmount))
	}
	return len(expired), nil
}
