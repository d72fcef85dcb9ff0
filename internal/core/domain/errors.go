package domain

import "errors"

// Validation and resource errors returned to callers directly; these are
// never queued for retry.
var (
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrUnknownCustomer   = errors.New("unknown customer")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrOrderNotFound     = errors.New("order not found")
	ErrStateConflict     = errors.New("state conflict")
)

// Simulation control errors.
var (
	ErrNotRunning         = errors.New("simulation not running")
	ErrAlreadyRunning     = errors.New("simulation already running")
	ErrMaxDurationReached = errors.New("maximum simulation duration reached")
	ErrInvalidReference   = errors.New("invalid clock reference")
)

// ErrDuplicatePayment is the bank's conflict-on-duplicate-reference answer.
// Saga handlers treat it as success: the earlier attempt already went through.
var ErrDuplicatePayment = errors.New("duplicate payment reference")
