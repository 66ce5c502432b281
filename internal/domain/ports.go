package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ProductService описывает взаимодействие с каталогом и складом.
type ProductService interface {
	// GetProducts возвращает товары по списку идентификаторов одним запросом.
	GetProducts(ctx context.Context, productIDs []string) ([]Product, error)
	// UpdateStock записывает новый остаток товара.
	UpdateStock(ctx context.Context, req ProductStockUpdateRequest) error
}

// ProfileService описывает взаимодействие с сервисом профилей и бонусов.
type ProfileService interface {
	// GetRewardOffset возвращает доступную клиенту скидку за баллы.
	GetRewardOffset(ctx context.Context, customerID string) (RewardOffset, error)
	// UpdateCustomerRewards начисляет клиенту баллы на сумму amount.
	UpdateCustomerRewards(ctx context.Context, customerID string, amount decimal.Decimal) error
	// UpdateMerchantEarnings начисляет мерчанту выручку.
	UpdateMerchantEarnings(ctx context.Context, merchantID string, amount decimal.Decimal) error
}

// DeliveryService описывает взаимодействие с сервисом доставки.
type DeliveryService interface {
	// UpdateDelivery создаёт запись доставки при create=true и обновляет её статус иначе.
	UpdateDelivery(ctx context.Context, req DeliveryStatusRequest, create bool) error
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// TimelineRepository хранит события жизненного цикла заказа.
type TimelineRepository interface {
	Append(event TimelineEvent) error
	List(orderID string) ([]TimelineEvent, error)
}

// SagaStep задаёт константы шагов саги для метрик/логов.
type SagaStep string

const (
	SagaStepLoadCart       SagaStep = "load_cart"
	SagaStepLookupProducts SagaStep = "lookup_products"
	SagaStepApplyRewards   SagaStep = "apply_rewards"
	SagaStepPersist        SagaStep = "persist"
	SagaStepDeleteCart     SagaStep = "delete_cart"
	SagaStepUpdateStock    SagaStep = "update_stock"
	SagaStepCompensate     SagaStep = "compensate"
)

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
