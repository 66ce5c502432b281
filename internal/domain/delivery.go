package domain

import "fmt"

// DeliveryStatusRequest отправляется в сервис доставки.
type DeliveryStatusRequest struct {
	OrderID          string
	CustomerID       string
	DeliveryPersonID string
	Status           OrderStatus
	Message          string
}

// NewDeliveryStatusRequest собирает запрос по заказу и новому статусу.
func NewDeliveryStatusRequest(o Order, partnerID string, status OrderStatus) DeliveryStatusRequest {
	return DeliveryStatusRequest{
		OrderID:          o.OrderID,
		CustomerID:       o.CustomerID,
		DeliveryPersonID: partnerID,
		Status:           status,
		Message:          fmt.Sprintf("Delivery status updated for orderId: %s to status : %s", o.OrderID, status),
	}
}
