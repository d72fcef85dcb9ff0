package external

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ndvu2901/factory-sim/internal/core/domain"
	"github.com/ndvu2901/factory-sim/internal/port"
)

type BankClient struct {
	apiClient
}

func NewBankClient(baseURL string, timeout time.Duration) *BankClient {
	return &BankClient{newAPIClient(baseURL, timeout)}
}

func (c *BankClient) Balance(ctx context.Context) (int64, error) {
	var resp struct {
		Balance int64 `json:"balance"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/balance", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Balance, nil
}

func (c *BankClient) CreateAccount(ctx context.Context, owner string) (string, error) {
	req := struct {
		Owner string `json:"owner"`
	}{Owner: owner}
	var resp struct {
		AccountID string `json:"account_id"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/accounts", req, &resp)
	var se *StatusError
	if errors.As(err, &se) && se.Status == http.StatusConflict {
		// Account already exists; fetch it instead of failing the saga.
		if err := c.doJSON(ctx, http.MethodGet, "/accounts/"+owner, nil, &resp); err != nil {
			return "", err
		}
		return resp.AccountID, nil
	}
	if err != nil {
		return "", err
	}
	return resp.AccountID, nil
}

func (c *BankClient) RequestLoan(ctx context.Context, amount int64) (string, error) {
	req := struct {
		Amount int64 `json:"amount"`
	}{Amount: amount}
	var resp struct {
		LoanID string `json:"loan_id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/loans", req, &resp); err != nil {
		return "", err
	}
	return resp.LoanID, nil
}

func (c *BankClient) MakePayment(ctx context.Context, to string, amount int64, reference string) error {
	req := struct {
		To        string `json:"to"`
		Amount    int64  `json:"amount"`
		Reference string `json:"reference"`
	}{To: to, Amount: amount, Reference: reference}
	err := c.doJSON(ctx, http.MethodPost, "/payments", req, nil)
	var se *StatusError
	if errors.As(err, &se) && se.Status == http.StatusConflict {
		return domain.ErrDuplicatePayment
	}
	return err
}

var _ port.BankCapability = (*BankClient)(nil)
