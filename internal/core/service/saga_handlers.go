package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ndvu2901/factory-sim/internal/core/domain"
	"github.com/ndvu2901/factory-sim/internal/port"
)

// SagaHandlers holds the idempotent handlers for every job type. Each
// handler either succeeds, or returns an error and lets the dispatcher drive
// the retry; none of them keeps state outside the treasury.
type SagaHandlers struct {
	bank      port.BankCapability
	materials port.SupplierCapability
	machines  port.SupplierCapability
	queue     port.JobQueue
	treasury  *Treasury
	log       *zap.Logger
}

func NewSagaHandlers(
	bank port.BankCapability,
	materials, machines port.SupplierCapability,
	queue port.JobQueue,
	treasury *Treasury,
	log *zap.Logger,
) *SagaHandlers {
	return &SagaHandlers{
		bank:      bank,
		materials: materials,
		machines:  machines,
		queue:     queue,
		treasury:  treasury,
		log:       log,
	}
}

// RegisterAll wires every handler into the dispatcher.
func (h *SagaHandlers) RegisterAll(d *Dispatcher) {
	d.Register(domain.JobAccountCreate, h.HandleAccountCreate)
	d.Register(domain.JobBalanceFetch, h.HandleBalanceFetch)
	d.Register(domain.JobLoanRequest, h.HandleLoanRequest)
	d.Register(domain.JobPayment, h.HandlePayment)
	d.Register(domain.JobMaterialsFetch, h.HandleMaterialsFetch)
	d.Register(domain.JobSupplierOrder, h.HandleSupplierOrder)
}

func (h *SagaHandlers) HandleAccountCreate(ctx context.Context, job domain.RetryJob) error {
	var p domain.AccountCreatePayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	// The bank returns the existing account on a repeated create, so a
	// redelivered job lands here harmlessly.
	accountID, err := h.bank.CreateAccount(ctx, p.Owner)
	if err != nil {
		return err
	}
	h.log.Info("bank account ready", zap.String("account_id", accountID))
	return nil
}

func (h *SagaHandlers) HandleBalanceFetch(ctx context.Context, job domain.RetryJob) error {
	balance, err := h.bank.Balance(ctx)
	if err != nil {
		return err
	}
	h.treasury.SetBalance(balance)
	return nil
}

func (h *SagaHandlers) HandleLoanRequest(ctx context.Context, job domain.RetryJob) error {
	var p domain.LoanRequestPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	loanID, err := h.bank.RequestLoan(ctx, p.Amount)
	if err != nil {
		return err
	}
	h.log.Info("loan granted", zap.String("loan_id", loanID), zap.Int64("amount", p.Amount))
	return nil
}

func (h *SagaHandlers) HandlePayment(ctx context.Context, job domain.RetryJob) error {
	var p domain.PaymentPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	err := h.bank.MakePayment(ctx, p.To, p.Amount, p.Reference)
	if errors.Is(err, domain.ErrDuplicatePayment) {
		// An earlier delivery already paid under this reference.
		h.log.Info("payment already settled", zap.String("reference", p.Reference))
		return nil
	}
	return err
}

func (h *SagaHandlers) HandleMaterialsFetch(ctx context.Context, job domain.RetryJob) error {
	offers, err := h.materials.ListStock(ctx)
	if err != nil {
		return err
	}
	h.treasury.SetOffers(offers)
	return nil
}

func (h *SagaHandlers) HandleSupplierOrder(ctx context.Context, job domain.RetryJob) error {
	var p domain.SupplierOrderPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	supplier := h.materials
	if p.Item == "machine" {
		supplier = h.machines
	}

	conf, err := supplier.PlaceOrder(ctx, p.Reference, p.Item, p.Quantity)
	if err != nil {
		return err
	}
	if p.Item == "machine" {
		h.treasury.AddMachinesOnce(p.Reference, p.Quantity)
	}

	// Chain the payment; its reference ties it to the supplier order so a
	// redelivered payment cannot double-pay.
	payment, err := domain.NewRetryJob(domain.JobPayment, domain.PaymentPayload{
		To:        conf.PayeeAccount,
		Amount:    conf.Price,
		Reference: "supplier-" + conf.OrderID,
	})
	if err != nil {
		return err
	}
	if err := h.queue.Publish(ctx, payment); err != nil {
		return fmt.Errorf("queue supplier payment: %w", err)
	}

	h.log.Info("supplier order placed",
		zap.String("supplier_order_id", conf.OrderID),
		zap.String("item", p.Item),
		zap.Int("quantity", p.Quantity),
		zap.Int64("price", conf.Price))
	return nil
}
