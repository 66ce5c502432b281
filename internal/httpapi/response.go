package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
)

const (
	statusSuccess = "success"
	statusFailure = "failure"
)

// Envelope — единый формат ответа API.
type Envelope struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// OrderItemResponse — позиция заказа в ответе.
type OrderItemResponse struct {
	ProductID string          `json:"productId"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// OrderResponse — заказ в ответе API.
type OrderResponse struct {
	OrderID                   string              `json:"orderId"`
	CustomerID                string              `json:"customerId"`
	MerchantID                string              `json:"merchantId"`
	DeliveryPartnerID         string              `json:"deliveryPartnerId,omitempty"`
	Items                     []OrderItemResponse `json:"items"`
	TotalPrice                decimal.Decimal     `json:"totalPrice"`
	UseRewards                bool                `json:"useRewards"`
	UseDelivery               bool                `json:"useDelivery"`
	RewardsAmountUsed         decimal.Decimal     `json:"rewardsAmountUsed"`
	CustomerRewardsPointsUsed decimal.Decimal     `json:"customerRewardsPointsUsed"`
	OrderStatus               string              `json:"orderStatus"`
	CreatedDate               int64               `json:"createdDate"`
	UpdatedDate               int64               `json:"updatedDate"`
	CreatedBy                 string              `json:"createdBy"`
	UpdatedBy                 string              `json:"updatedBy"`
	Version                   int64               `json:"version"`
}

func toOrderResponse(o domain.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemResponse{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return OrderResponse{
		OrderID:                   o.OrderID,
		CustomerID:                o.CustomerID,
		MerchantID:                o.MerchantID,
		DeliveryPartnerID:         o.DeliveryPartnerID,
		Items:                     items,
		TotalPrice:                o.TotalPrice,
		UseRewards:                o.UseRewards,
		UseDelivery:               o.UseDelivery,
		RewardsAmountUsed:         o.RewardsAmountUsed,
		CustomerRewardsPointsUsed: o.CustomerRewardsPointsUsed,
		OrderStatus:               string(o.Status),
		CreatedDate:               o.CreatedDate,
		UpdatedDate:               o.UpdatedDate,
		CreatedBy:                 string(o.CreatedBy),
		UpdatedBy:                 string(o.UpdatedBy),
		Version:                   o.Version,
	}
}

func toOrderResponses(orders []domain.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	return out
}

// statusFor переводит категорию ошибки ядра в HTTP-код.
func statusFor(err error) int {
	kind, ok := domain.KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindInvalidInput:
		return http.StatusBadRequest
	case domain.KindBusinessRule:
		return http.StatusUnprocessableEntity
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindExternalService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	writeJSON(w, status, Envelope{Status: statusSuccess, Message: message, Data: data})
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Envelope{Status: statusFailure, Message: message})
}
