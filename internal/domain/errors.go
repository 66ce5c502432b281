package domain

import "errors"

// ErrorKind классифицирует ошибки ядра для транспортного слоя.
type ErrorKind string

const (
	KindNotFound        ErrorKind = "not_found"
	KindInvalidInput    ErrorKind = "invalid_input"
	KindExternalService ErrorKind = "external_service_failure"
	KindPersistence     ErrorKind = "persistence_failure"
	KindBusinessRule    ErrorKind = "business_rule_violation"
	KindConflict        ErrorKind = "conflicting_update"
)

// Error — ошибка ядра с категорией. Сообщение безопасно показывать клиенту.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

var (
	// ErrEmptyCart — корзины нет или в ней нет позиций.
	ErrEmptyCart = newError(KindNotFound, "cart is empty or does not exist")
	// ErrCartNotFound возвращается хранилищем корзин.
	ErrCartNotFound = newError(KindNotFound, "cart not found")
	// ErrProductLookupFailed — каталог недоступен или не вернул подходящих товаров.
	ErrProductLookupFailed = newError(KindExternalService, "failed to get product details for items in cart")
	// ErrPersistenceFailed — заказ не удалось записать или переместить.
	ErrPersistenceFailed = newError(KindPersistence, "failed to persist order")
	// ErrStockUpdateFailed — хотя бы одно списание остатка не прошло, заказ удалён.
	ErrStockUpdateFailed = newError(KindExternalService, "failed to update product stock, order has been rolled back")
	// ErrOrderNotFound возвращается, если заказ не найден в хранилище.
	ErrOrderNotFound = newError(KindNotFound, "order not found")
	// ErrOrderExists — заказ с таким ID уже есть в разделе.
	ErrOrderExists = newError(KindConflict, "order already exists")
	// ErrConflictingUpdate — заказ изменён параллельно (устаревшая версия).
	ErrConflictingUpdate = newError(KindConflict, "order was modified concurrently")
	// ErrInvalidStatus — неизвестный или недопустимый целевой статус.
	ErrInvalidStatus = newError(KindInvalidInput, "invalid order status")
	// ErrInvalidTransition — переход из текущего статуса не разрешён.
	ErrInvalidTransition = newError(KindBusinessRule, "order status transition is not allowed")
	// ErrInvalidProfileType — неизвестный тип профиля для списков.
	ErrInvalidProfileType = newError(KindInvalidInput, "invalid profile type")
	// ErrProfileIDRequired — в запросе списка не указан идентификатор профиля.
	ErrProfileIDRequired = newError(KindInvalidInput, "profileId is required")
	// ErrInvalidListType — неизвестный тип списка.
	ErrInvalidListType = newError(KindInvalidInput, "invalid list type")
	// ErrNoOrdersFound — выборка пуста.
	ErrNoOrdersFound = newError(KindNotFound, "no orders found")
	// ErrDeliveryNotEnabled — заказ оформлен без доставки.
	ErrDeliveryNotEnabled = newError(KindBusinessRule, "delivery is not enabled for order")
	// ErrDeliveryPartnerRequired — в запросе нет deliveryPartnerId.
	ErrDeliveryPartnerRequired = newError(KindInvalidInput, "deliveryPartnerId is required")
	// ErrDeliveryNotAccepted — доставка ещё не принята курьером.
	ErrDeliveryNotAccepted = newError(KindBusinessRule, "delivery has not been accepted for order")
	// ErrDeliveryUpdateFailed — сервис доставки вернул ошибку.
	ErrDeliveryUpdateFailed = newError(KindExternalService, "failed to update delivery")
	// ErrExternalService — внешний сервис недоступен или ответил failure.
	ErrExternalService = newError(KindExternalService, "external service call failed")
)

// Ошибки инвариантов заказа. Не пересекают границу ядра, поэтому без категории.
var (
	ErrOrderIDRequired        = errors.New("order_id is required")
	ErrCustomerRequired       = errors.New("customer_id is required")
	ErrMerchantRequired       = errors.New("merchant_id is required")
	ErrItemsRequired          = errors.New("order must contain at least one item")
	ErrItemQtyInvalid         = errors.New("item quantity must be greater than zero")
	ErrItemPriceInvalid       = errors.New("item price must be non-negative")
	ErrTotalNegative          = errors.New("total price must be non-negative")
	ErrTotalMismatch          = errors.New("total price does not match items sum minus rewards")
	ErrPartnerWithoutDelivery = errors.New("delivery partner set on order without delivery")
	ErrRewardsWithoutOptIn    = errors.New("rewards applied to order that did not opt in")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// KindOf возвращает категорию первой ошибки ядра в цепочке.
func KindOf(err error) (ErrorKind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return "", false
}

// PublicMessage возвращает текст ошибки, который можно отдать клиенту.
// Обёртки с адресами сервисов и ответами upstream остаются только в логах.
func PublicMessage(err error) string {
	var noOrders *noOrdersError
	if errors.As(err, &noOrders) {
		return noOrders.msg
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal server error"
}

// IsNotFound проверяет, относится ли ошибка к отсутствию данных.
func IsNotFound(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == KindNotFound
}

// IsConflict проверяет, является ли ошибка конфликтом версий.
func IsConflict(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == KindConflict
}
