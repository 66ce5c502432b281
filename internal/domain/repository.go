package domain

import "context"

// Partition — логический раздел хранилища заказов.
type Partition string

const (
	PartitionActive    Partition = "active"
	PartitionCompleted Partition = "completed"
	PartitionCancelled Partition = "cancelled"
)

// Partitions перечисляет разделы в порядке обхода для списков "all".
var Partitions = []Partition{PartitionActive, PartitionCompleted, PartitionCancelled}

// Valid сообщает, известен ли раздел.
func (p Partition) Valid() bool {
	switch p {
	case PartitionActive, PartitionCompleted, PartitionCancelled:
		return true
	}
	return false
}

// TerminalPartition возвращает раздел для терминального статуса.
func TerminalPartition(status OrderStatus) (Partition, bool) {
	switch status {
	case OrderStatusCompleted:
		return PartitionCompleted, true
	case OrderStatusCancelled:
		return PartitionCancelled, true
	}
	return "", false
}

// OrderFilter задаёт выборку внутри одного раздела.
// Пустые Status и Field не участвуют в фильтрации. Если Field задан,
// пустое значение поля заказа не совпадает ни с чем.
type OrderFilter struct {
	Field  OrderField
	Value  string
	Status OrderStatus
	// DeliveryOnly оставляет только заказы с доставкой.
	DeliveryOnly bool
}

// Match проверяет заказ на соответствие фильтру.
func (f OrderFilter) Match(o Order) bool {
	if f.Field != "" {
		value := o.FieldValue(f.Field)
		if value == "" || value != f.Value {
			return false
		}
	}
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	if f.DeliveryOnly && !o.UseDelivery {
		return false
	}
	return true
}

// OrderStore описывает хранилище заказов из трёх разделов.
type OrderStore interface {
	// Insert сохраняет новый заказ в раздел. Повтор ID даёт ErrOrderExists.
	Insert(ctx context.Context, p Partition, order Order) error
	// Get возвращает заказ или ErrOrderNotFound.
	Get(ctx context.Context, p Partition, orderID string) (Order, error)
	// Find возвращает заказы раздела, отсортированные по дате создания.
	Find(ctx context.Context, p Partition, filter OrderFilter) ([]Order, error)
	// Update перезаписывает активный заказ, если order.Version совпадает с сохранённой.
	// Возвращает новую версию, ErrOrderNotFound или ErrConflictingUpdate.
	Update(ctx context.Context, order Order) (int64, error)
	// Move атомарно переносит активный заказ в терминальный раздел с проверкой версии.
	Move(ctx context.Context, order Order, to Partition) error
	// Delete удаляет заказ из раздела. Отсутствие заказа даёт ErrOrderNotFound.
	Delete(ctx context.Context, p Partition, orderID string) error
}

// CartStore — внешнее хранилище корзин. Сервис только читает и удаляет их.
type CartStore interface {
	GetCart(ctx context.Context, customerID string) (Cart, error)
	DeleteCart(ctx context.Context, customerID string) error
}
