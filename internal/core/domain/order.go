package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusAccepted   OrderStatus = "accepted"
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusRejected   OrderStatus = "rejected"
	OrderStatusExpired    OrderStatus = "expired"
)

// Order is a customer order against the produced-goods pool. Amounts count
// inventory units; OrderedAt and ProcessedAt are fractional simulation days.
type Order struct {
	ID              string
	Customer        string
	Status          OrderStatus
	TotalAmount     int
	RemainingAmount int
	OrderedAt       float64
	ProcessedAt     *float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Terminal reports whether the order can no longer change state.
func (o Order) Terminal() bool {
	switch o.Status {
	case OrderStatusCompleted, OrderStatusRejected, OrderStatusExpired:
		return true
	}
	return false
}
