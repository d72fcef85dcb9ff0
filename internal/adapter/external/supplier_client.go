package external

import (
	"context"
	"net/http"
	"time"

	"github.com/ndvu2901/factory-sim/internal/core/domain"
	"github.com/ndvu2901/factory-sim/internal/port"
)

type SupplierClient struct {
	apiClient
}

func NewSupplierClient(baseURL string, timeout time.Duration) *SupplierClient {
	return &SupplierClient{newAPIClient(baseURL, timeout)}
}

func (c *SupplierClient) ListStock(ctx context.Context) ([]domain.SupplierOffer, error) {
	var offers []domain.SupplierOffer
	if err := c.doJSON(ctx, http.MethodGet, "/stock", nil, &offers); err != nil {
		return nil, err
	}
	return offers, nil
}

func (c *SupplierClient) PlaceOrder(ctx context.Context, reference, item string, quantity int) (*domain.SupplierConfirmation, error) {
	req := struct {
		Reference string `json:"reference"`
		Item      string `json:"item"`
		Quantity  int    `json:"quantity"`
	}{Reference: reference, Item: item, Quantity: quantity}
	var conf domain.SupplierConfirmation
	if err := c.doJSON(ctx, http.MethodPost, "/orders", req, &conf); err != nil {
		return nil, err
	}
	return &conf, nil
}

var _ port.SupplierCapability = (*SupplierClient)(nil)
