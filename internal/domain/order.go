package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusCreated — заказ создан сагой из корзины. Единственный входной статус.
	OrderStatusCreated OrderStatus = "CREATED"
	// OrderStatusAccepted — мерчант принял заказ.
	OrderStatusAccepted OrderStatus = "ACCEPTED"
	// OrderStatusReady — заказ собран и готов к выдаче или доставке.
	OrderStatusReady OrderStatus = "READY"
	// OrderStatusDeliveryAccepted — курьер взял заказ в работу.
	OrderStatusDeliveryAccepted OrderStatus = "DELIVERY_ACCEPTED"
	// OrderStatusDeliveryPickedUp — курьер забрал заказ у мерчанта.
	OrderStatusDeliveryPickedUp OrderStatus = "DELIVERY_PICKED_UP"
	// OrderStatusCompleted — заказ завершён (терминальный).
	OrderStatusCompleted OrderStatus = "COMPLETED"
	// OrderStatusCancelled — заказ отменён (терминальный).
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

var knownStatuses = map[OrderStatus]struct{}{
	OrderStatusCreated:          {},
	OrderStatusAccepted:         {},
	OrderStatusReady:            {},
	OrderStatusDeliveryAccepted: {},
	OrderStatusDeliveryPickedUp: {},
	OrderStatusCompleted:        {},
	OrderStatusCancelled:        {},
}

// ParseOrderStatus разбирает статус без учёта регистра.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	status := OrderStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := knownStatuses[status]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return status, nil
}

// IsTerminal сообщает, допускает ли статус дальнейшие переходы.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// Actor — кто последним изменил заказ.
type Actor string

const (
	ActorCustomer        Actor = "customer"
	ActorMerchant        Actor = "merchant"
	ActorDeliveryPartner Actor = "delivery-partner"
)

// OrderItem представляет одну позицию заказа с ценой из каталога.
type OrderItem struct {
	ProductID string
	Quantity  int64
	UnitPrice decimal.Decimal
}

// Subtotal возвращает UnitPrice * Quantity.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(i.Quantity))
}

// Order агрегирует состояние заказа.
type Order struct {
	OrderID           string
	CustomerID        string
	MerchantID        string
	DeliveryPartnerID string // пусто, пока доставка не принята

	Items      []OrderItem
	TotalPrice decimal.Decimal

	UseRewards  bool
	UseDelivery bool

	RewardsAmountUsed         decimal.Decimal
	CustomerRewardsPointsUsed decimal.Decimal

	Status      OrderStatus
	CreatedDate int64 // epoch millis
	UpdatedDate int64 // epoch millis
	CreatedBy   Actor
	UpdatedBy   Actor

	// Version — токен optimistic locking, растёт при каждом изменении.
	Version int64
}

// ItemsTotal считает сумму позиций без учёта бонусов.
func (o Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// HasDeliveryPartner сообщает, была ли уже принята доставка.
func (o Order) HasDeliveryPartner() bool {
	return o.DeliveryPartnerID != ""
}

// FieldValue возвращает значение поля профиля, по которому фильтруются списки.
func (o Order) FieldValue(field OrderField) string {
	switch field {
	case FieldCustomerID:
		return o.CustomerID
	case FieldMerchantID:
		return o.MerchantID
	case FieldDeliveryPartnerID:
		return o.DeliveryPartnerID
	default:
		return ""
	}
}

// Clone возвращает копию заказа с собственным слайсом позиций.
func (o Order) Clone() Order {
	cp := o
	if o.Items != nil {
		cp.Items = append([]OrderItem(nil), o.Items...)
	}
	return cp
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.OrderID == "" {
		errs = append(errs, ErrOrderIDRequired)
	}
	if o.CustomerID == "" {
		errs = append(errs, ErrCustomerRequired)
	}
	if o.MerchantID == "" {
		errs = append(errs, ErrMerchantRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if o.TotalPrice.IsNegative() {
		errs = append(errs, ErrTotalNegative)
	}
	if !o.UseDelivery && o.DeliveryPartnerID != "" {
		errs = append(errs, ErrPartnerWithoutDelivery)
	}
	if !o.UseRewards && !o.RewardsAmountUsed.IsZero() {
		errs = append(errs, ErrRewardsWithoutOptIn)
	}

	for _, item := range o.Items {
		if item.Quantity <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.UnitPrice.IsNegative() {
			errs = append(errs, ErrItemPriceInvalid)
		}
	}
	// Сумма позиций минус списанные бонусы должна точно совпадать с итогом.
	if !o.ItemsTotal().Sub(o.RewardsAmountUsed).Equal(o.TotalPrice) {
		errs = append(errs, ErrTotalMismatch)
	}

	return errs
}

// CanTransition проверяет допустимость перехода заказа в статус to.
func CanTransition(o Order, to OrderStatus) bool {
	from := o.Status
	if from.IsTerminal() {
		return false
	}
	switch to {
	case OrderStatusAccepted:
		return from == OrderStatusCreated
	case OrderStatusReady:
		return from == OrderStatusAccepted
	case OrderStatusDeliveryAccepted:
		return from == OrderStatusReady
	case OrderStatusDeliveryPickedUp:
		return from == OrderStatusDeliveryAccepted
	case OrderStatusCompleted:
		if o.UseDelivery {
			return from == OrderStatusDeliveryPickedUp
		}
		return from == OrderStatusReady
	case OrderStatusCancelled:
		return true
	default:
		return false
	}
}
