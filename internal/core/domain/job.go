package domain

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

type JobType string

const (
	JobAccountCreate  JobType = "account.create"
	JobBalanceFetch   JobType = "balance.fetch"
	JobLoanRequest    JobType = "loan.request"
	JobPayment        JobType = "payment.send"
	JobMaterialsFetch JobType = "materials.fetch"
	JobSupplierOrder  JobType = "supplier.order"
)

// RetryJob is one unit of retried work. Attempt counts deliveries so far and
// is incremented on every republish; the payload must be self-contained so a
// later delivery can run without any local session state.
type RetryJob struct {
	ID      string          `json:"id"`
	Type    JobType         `json:"type"`
	Attempt int             `json:"attempt"`
	Payload json.RawMessage `json:"payload"`
}

// NewRetryJob wraps a payload struct into a job with a fresh ID and attempt 0.
func NewRetryJob(t JobType, payload any) (RetryJob, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return RetryJob{}, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return RetryJob{ID: uuid.NewString(), Type: t, Attempt: 0, Payload: raw}, nil
}

type AccountCreatePayload struct {
	Owner string `json:"owner"`
}

type BalanceFetchPayload struct{}

type LoanRequestPayload struct {
	Amount int64 `json:"amount"`
}

// PaymentPayload.Reference is stable across retries; the bank rejects a
// duplicate reference, which the handler treats as success.
type PaymentPayload struct {
	To        string `json:"to"`
	Amount    int64  `json:"amount"`
	Reference string `json:"reference"`
}

type MaterialsFetchPayload struct {
	Supplier string `json:"supplier"`
}

type SupplierOrderPayload struct {
	Supplier  string `json:"supplier"`
	Item      string `json:"item"`
	Quantity  int    `json:"quantity"`
	Reference string `json:"reference"`
}
