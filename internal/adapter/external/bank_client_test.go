package external

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ndvu2901/factory-sim/internal/core/domain"
)

func TestBankClient_Balance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/balance" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]int64{"balance": 1234})
	}))
	defer srv.Close()

	got, err := NewBankClient(srv.URL, time.Second).Balance(context.Background())
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if got != 1234 {
		t.Errorf("expected 1234, got %d", got)
	}
}

func TestBankClient_CreateAccount_ConflictFetchesExisting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/accounts":
			w.WriteHeader(http.StatusConflict)
		case r.Method == http.MethodGet && r.URL.Path == "/accounts/factory":
			json.NewEncoder(w).Encode(map[string]string{"account_id": "acct-42"})
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	id, err := NewBankClient(srv.URL, time.Second).CreateAccount(context.Background(), "factory")
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	if id != "acct-42" {
		t.Errorf("expected acct-42, got %s", id)
	}
}

func TestBankClient_MakePayment_ConflictIsDuplicate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	err := NewBankClient(srv.URL, time.Second).MakePayment(context.Background(), "acct", 10, "ref")
	if !errors.Is(err, domain.ErrDuplicatePayment) {
		t.Errorf("expected ErrDuplicatePayment, got %v", err)
	}
}

func TestBankClient_MakePayment_ServerErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewBankClient(srv.URL, time.Second).MakePayment(context.Background(), "acct", 10, "ref")
	var se *StatusError
	if !errors.As(err, &se) || se.Status != http.StatusInternalServerError {
		t.Errorf("expected 500 StatusError, got %v", err)
	}
}

func TestSupplierClient_PlaceOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Reference string `json:"reference"`
			Item      string `json:"item"`
			Quantity  int    `json:"quantity"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Reference != "ref-7" || req.Item != "raw-material" || req.Quantity != 4 {
			t.Errorf("unexpected request: %+v", req)
		}
		json.NewEncoder(w).Encode(domain.SupplierConfirmation{
			OrderID: "so-1", Price: 40, PayeeAccount: "supplier",
		})
	}))
	defer srv.Close()

	conf, err := NewSupplierClient(srv.URL, time.Second).PlaceOrder(context.Background(), "ref-7", "raw-material", 4)
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}
	if conf.OrderID != "so-1" || conf.Price != 40 {
		t.Errorf("unexpected confirmation: %+v", conf)
	}
}

func TestLogisticsClient_ArrangePickup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pickups" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(domain.PickupQuote{Cost: 15, PayeeAccount: "logistics"})
	}))
	defer srv.Close()

	quote, err := NewLogisticsClient(srv.URL, time.Second).ArrangePickup(context.Background(), "order-1", 2)
	if err != nil {
		t.Fatalf("ArrangePickup failed: %v", err)
	}
	if quote.Cost != 15 || quote.PayeeAccount != "logistics" {
		t.Errorf("unexpected quote: %+v", quote)
	}
}
