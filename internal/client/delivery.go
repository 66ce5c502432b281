package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
)

// DeliveryClient ходит в сервис доставки.
type DeliveryClient struct {
	c *caller
}

// NewDeliveryClient создаёт клиент сервиса доставки.
func NewDeliveryClient(cfg Config) (*DeliveryClient, error) {
	c, err := newCaller("delivery", cfg)
	if err != nil {
		return nil, err
	}
	return &DeliveryClient{c: c}, nil
}

type deliveryStatusDTO struct {
	OrderID          string `json:"orderId"`
	CustomerID       string `json:"customerId"`
	DeliveryPersonID string `json:"deliveryPersonId"`
	Status           string `json:"status"`
	Message          string `json:"message"`
}

// UpdateDelivery при create=true создаёт запись доставки
// (POST /deliveries/?orderId=&deliveryPersonId=&customerId=),
// иначе обновляет статус существующей (PUT /deliveries/status).
func (d *DeliveryClient) UpdateDelivery(ctx context.Context, req domain.DeliveryStatusRequest, create bool) error {
	if create {
		query := url.Values{
			"orderId":          {req.OrderID},
			"deliveryPersonId": {req.DeliveryPersonID},
			"customerId":       {req.CustomerID},
		}
		return d.c.call(ctx, http.MethodPost, d.c.endpoint(query, "deliveries", ""), nil, nil)
	}

	body := deliveryStatusDTO{
		OrderID:          req.OrderID,
		CustomerID:       req.CustomerID,
		DeliveryPersonID: req.DeliveryPersonID,
		Status:           string(req.Status),
		Message:          req.Message,
	}
	return d.c.call(ctx, http.MethodPut, d.c.endpoint(nil, "deliveries", "status"), body, nil)
}

var _ domain.DeliveryService = (*DeliveryClient)(nil)
