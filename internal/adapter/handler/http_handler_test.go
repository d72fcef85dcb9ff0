package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ndvu2901/factory-sim/internal/adapter/storage"
	"github.com/ndvu2901/factory-sim/internal/core/domain"
	"github.com/ndvu2901/factory-sim/internal/core/service"
)

type stubLogistics struct{}

func (stubLogistics) ArrangePickup(ctx context.Context, orderID string, quantity int) (*domain.PickupQuote, error) {
	return &domain.PickupQuote{Cost: 10, PayeeAccount: "logistics"}, nil
}

func newTestMux(t *testing.T, produced int) (*http.ServeMux, *service.Clock) {
	t.Helper()
	repo := storage.NewMemoryAdapter()
	ledger := service.NewLedger(repo)
	clock := service.NewClock(service.DefaultMinutesPerDay, 0)
	queue := storage.NewMemoryQueue()
	orders := service.NewOrderService(repo, ledger, clock, stubLogistics{}, queue, 1.0, zap.NewNop())

	h := NewHTTPHandler(orders, ledger, clock, nil, repo, zap.NewNop())
	mux := http.NewServeMux()
	h.Register(mux)

	if produced > 0 {
		if err := ledger.Produce(context.Background(), produced, 1.0); err != nil {
			t.Fatalf("seed inventory: %v", err)
		}
	}
	return mux, clock
}

func doRequest(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func startSim(t *testing.T, mux *http.ServeMux) {
	t.Helper()
	rec := doRequest(mux, http.MethodPost, "/api/simulation/start", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("start simulation: status %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHealthCheck(t *testing.T) {
	mux, _ := newTestMux(t, 0)

	rec := doRequest(mux, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestCreateOrderEndpoint(t *testing.T) {
	mux, _ := newTestMux(t, 5)
	startSim(t, mux)

	rec := doRequest(mux, http.MethodPost, "/api/orders", `{"customer":"c1","quantity":2}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp OrderResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "pending" || resp.TotalAmount != 2 || resp.ID == "" {
		t.Errorf("unexpected order response: %+v", resp)
	}

	// The order is retrievable by ID.
	rec = doRequest(mux, http.MethodGet, "/api/orders/"+resp.ID, "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 fetching the order, got %d", rec.Code)
	}
}

func TestCreateOrderEndpoint_Errors(t *testing.T) {
	mux, _ := newTestMux(t, 3)
	startSim(t, mux)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"malformed body", `{"customer":`, http.StatusBadRequest},
		{"zero quantity", `{"customer":"c1","quantity":0}`, http.StatusBadRequest},
		{"missing customer", `{"quantity":1}`, http.StatusUnauthorized},
		{"insufficient stock", `{"customer":"c1","quantity":10}`, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(mux, http.MethodPost, "/api/orders", tc.body)
			if rec.Code != tc.want {
				t.Errorf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestGetOrderEndpoint_NotFound(t *testing.T) {
	mux, _ := newTestMux(t, 0)

	rec := doRequest(mux, http.MethodGet, "/api/orders/missing-id", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestInventoryEndpoint(t *testing.T) {
	mux, _ := newTestMux(t, 4)
	startSim(t, mux)

	rec := doRequest(mux, http.MethodPost, "/api/orders", `{"customer":"c1","quantity":1}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create order: %d", rec.Code)
	}

	rec = doRequest(mux, http.MethodGet, "/api/inventory", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var summary domain.InventorySummary
	if err := json.NewDecoder(rec.Body).Decode(&summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.Available != 3 || summary.Reserved != 1 {
		t.Errorf("expected 3/1, got %+v", summary)
	}
}

func TestSimulationLifecycleEndpoints(t *testing.T) {
	mux, _ := newTestMux(t, 0)

	// Advancing a stopped simulation conflicts.
	rec := doRequest(mux, http.MethodPost, "/api/simulation/advance", "")
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 advancing stopped sim, got %d", rec.Code)
	}

	rec = doRequest(mux, http.MethodPost, "/api/simulation/start", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("start failed: %d", rec.Code)
	}
	var status SimulationStatusResponse
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Running || status.Day != 1 {
		t.Errorf("unexpected status after start: %+v", status)
	}

	// Double start conflicts.
	rec = doRequest(mux, http.MethodPost, "/api/simulation/start", "")
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 on double start, got %d", rec.Code)
	}

	rec = doRequest(mux, http.MethodPost, "/api/simulation/advance", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("advance failed: %d", rec.Code)
	}
	json.NewDecoder(rec.Body).Decode(&status)
	if status.Day != 2 {
		t.Errorf("expected day 2 after advance, got %d", status.Day)
	}

	rec = doRequest(mux, http.MethodPost, "/api/simulation/stop", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("stop failed: %d", rec.Code)
	}
	json.NewDecoder(rec.Body).Decode(&status)
	if status.Running || status.Day != 0 {
		t.Errorf("unexpected status after stop: %+v", status)
	}
}

func TestStartSimulationAtEpoch(t *testing.T) {
	mux, _ := newTestMux(t, 0)

	body := `{"epoch_seconds":12345}`
	rec := doRequest(mux, http.MethodPost, "/api/simulation/start", body)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for pre-2000 epoch, got %d", rec.Code)
	}

	epoch := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC).Unix()
	rec = doRequest(mux, http.MethodPost, "/api/simulation/start",
		`{"epoch_seconds":`+strconv.FormatInt(epoch, 10)+`}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestStartSimulationWithReset(t *testing.T) {
	mux, clock := newTestMux(t, 6)

	rec := doRequest(mux, http.MethodPost, "/api/simulation/start", `{"reset":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("start with reset failed: %d", rec.Code)
	}
	if !clock.Running() {
		t.Error("clock not running after start")
	}

	rec = doRequest(mux, http.MethodGet, "/api/inventory", "")
	var summary domain.InventorySummary
	json.NewDecoder(rec.Body).Decode(&summary)
	if summary.Available != 0 || summary.Reserved != 0 {
		t.Errorf("reset did not clear inventory: %+v", summary)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	mux, _ := newTestMux(t, 0)

	for _, path := range []string{"/api/simulation/start", "/api/simulation/stop", "/api/simulation/advance"} {
		rec := doRequest(mux, http.MethodGet, path, "")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s: expected 405, got %d", path, rec.Code)
		}
	}
	rec := doRequest(mux, http.MethodDelete, "/api/orders", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}
