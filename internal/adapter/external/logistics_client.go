package external

import (
	"context"
	"net/http"
	"time"

	"github.com/ndvu2901/factory-sim/internal/core/domain"
	"github.com/ndvu2901/factory-sim/internal/port"
)

type LogisticsClient struct {
	apiClient
}

func NewLogisticsClient(baseURL string, timeout time.Duration) *LogisticsClient {
	return &LogisticsClient{newAPIClient(baseURL, timeout)}
}

func (c *LogisticsClient) ArrangePickup(ctx context.Context, orderID string, quantity int) (*domain.PickupQuote, error) {
	req := struct {
		OrderID  string `json:"order_id"`
		Quantity int    `json:"quantity"`
	}{OrderID: orderID, Quantity: quantity}
	var quote domain.PickupQuote
	if err := c.doJSON(ctx, http.MethodPost, "/pickups", req, &quote); err != nil {
		return nil, err
	}
	return &quote, nil
}

var _ port.LogisticsCapability = (*LogisticsClient)(nil)
