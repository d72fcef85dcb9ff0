package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ndvu2901/factory-sim/internal/core/domain"
	"github.com/ndvu2901/factory-sim/internal/core/service"
	"github.com/ndvu2901/factory-sim/internal/port"
)

// HTTPHandler exposes the produced interface: orders, inventory summary, and
// simulation control. It stays thin; every decision lives in the services.
type HTTPHandler struct {
	orders     *service.OrderService
	ledger     *service.Ledger
	clock      *service.Clock
	day        *service.DayService
	clockStore port.ClockStore
	log        *zap.Logger
}

func NewHTTPHandler(
	orders *service.OrderService,
	ledger *service.Ledger,
	clock *service.Clock,
	day *service.DayService,
	clockStore port.ClockStore,
	log *zap.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		orders:     orders,
		ledger:     ledger,
		clock:      clock,
		day:        day,
		clockStore: clockStore,
		log:        log,
	}
}

// Register installs all routes on the mux.
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.HealthCheck)
	mux.HandleFunc("/api/orders", h.Orders)
	mux.HandleFunc("/api/orders/", h.OrderByID)
	mux.HandleFunc("/api/inventory", h.Inventory)
	mux.HandleFunc("/api/simulation/start", h.StartSimulation)
	mux.HandleFunc("/api/simulation/stop", h.StopSimulation)
	mux.HandleFunc("/api/simulation/advance", h.AdvanceDay)
}

type CreateOrderRequest struct {
	Customer string `json:"customer"`
	Quantity int    `json:"quantity"`
}

type OrderResponse struct {
	ID              string  `json:"id"`
	Customer        string  `json:"customer"`
	Status          string  `json:"status"`
	TotalAmount     int     `json:"total_amount"`
	RemainingAmount int     `json:"remaining_amount"`
	OrderedAt       float64 `json:"ordered_at"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type SimulationStatusResponse struct {
	Running     bool    `json:"running"`
	Day         int     `json:"day"`
	PreciseTime float64 `json:"precise_time"`
}

func orderResponse(o *domain.Order) OrderResponse {
	return OrderResponse{
		ID:              o.ID,
		Customer:        o.Customer,
		Status:          string(o.Status),
		TotalAmount:     o.TotalAmount,
		RemainingAmount: o.RemainingAmount,
		OrderedAt:       o.OrderedAt,
	}
}

func (h *HTTPHandler) Orders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createOrder(w, r)
	case http.MethodGet:
		h.listOrders(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *HTTPHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	order, err := h.orders.CreateOrder(r.Context(), req.Customer, req.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, orderResponse(order))
}

func (h *HTTPHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListOrders(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]OrderResponse, len(orders))
	for i := range orders {
		out[i] = orderResponse(&orders[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) OrderByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/orders/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid order id"})
		return
	}
	order, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse(order))
}

func (h *HTTPHandler) Inventory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	summary, err := h.ledger.Summary(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type StartSimulationRequest struct {
	EpochSeconds int64 `json:"epoch_seconds,omitempty"`
	Reset        bool  `json:"reset,omitempty"`
}

func (h *HTTPHandler) StartSimulation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	// An empty body means a default start.
	var req StartSimulationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if req.Reset {
		if err := h.ledger.Reset(r.Context()); err != nil {
			h.writeError(w, err)
			return
		}
	}

	var err error
	if req.EpochSeconds != 0 {
		err = h.clock.StartAt(req.EpochSeconds)
	} else {
		err = h.clock.Start()
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.persistSnapshot(r)
	h.status(w)
}

func (h *HTTPHandler) StopSimulation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.clock.Stop()
	h.persistSnapshot(r)
	h.status(w)
}

func (h *HTTPHandler) AdvanceDay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := h.clock.AdvanceDay(); err != nil {
		h.writeError(w, err)
		return
	}
	h.persistSnapshot(r)
	if h.day != nil {
		h.day.RunDay(r.Context())
	}
	h.status(w)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) status(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, SimulationStatusResponse{
		Running:     h.clock.Running(),
		Day:         h.clock.Day(),
		PreciseTime: h.clock.CurrentPreciseTime(3),
	})
}

func (h *HTTPHandler) persistSnapshot(r *http.Request) {
	if err := h.clockStore.SaveSnapshot(r.Context(), h.clock.Snapshot()); err != nil {
		h.log.Error("persist clock snapshot", zap.Error(err))
	}
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnknownCustomer):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrStateConflict),
		errors.Is(err, domain.ErrNotRunning),
		errors.Is(err, domain.ErrAlreadyRunning),
		errors.Is(err, domain.ErrMaxDurationReached):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrInvalidReference):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrOrderNotFound):
		status = http.StatusNotFound
	default:
		h.log.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
