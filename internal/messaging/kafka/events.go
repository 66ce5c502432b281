package kafka

import "time"

// EventType определяет тип события
type EventType string

const (
	// Saga события
	EventTypeSagaStarted     EventType = "saga.started"
	EventTypeSagaCompleted   EventType = "saga.completed"
	EventTypeSagaFailed      EventType = "saga.failed"
	EventTypeSagaCompensated EventType = "saga.compensated"

	// Order события
	EventTypeOrderCreated        EventType = "order.created"
	EventTypeOrderStatusChanged  EventType = "order.status_changed"
	EventTypeOrderCreationFailed EventType = "order.creation_failed"
)

// Topics для Kafka
const (
	TopicOrderEvents     = "order-lifecycle-events"
	TopicSagaEvents      = "order-saga-events"
	TopicStatusCommands  = "order-status-commands"
	TopicDeadLetterQueue = "order-lifecycle-events-dlq"
)

// Kafka headers для DLQ
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
)

// Заголовки outbox-сообщений: позволяют фильтровать события без разбора payload.
const (
	HeaderEventType     = "x-event-type"
	HeaderAggregateType = "x-aggregate-type"
)

// SagaEvent — событие о ходе саги создания заказа.
type SagaEvent struct {
	EventType  EventType         `json:"event_type"`
	CustomerID string            `json:"customer_id"`
	OrderID    string            `json:"order_id,omitempty"`
	Step       string            `json:"step,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// OrderEvent — событие жизненного цикла заказа, уходит в outbox.
type OrderEvent struct {
	EventType         EventType `json:"event_type"`
	OrderID           string    `json:"order_id"`
	CustomerID        string    `json:"customer_id"`
	MerchantID        string    `json:"merchant_id"`
	DeliveryPartnerID string    `json:"delivery_partner_id,omitempty"`
	Status            string    `json:"status"`
	PreviousStatus    string    `json:"previous_status,omitempty"`
	TotalPrice        string    `json:"total_price"`
	UpdatedBy         string    `json:"updated_by"`
	Timestamp         time.Time `json:"timestamp"`
}

// StatusCommand — команда на смену статуса, приходящая из Kafka.
type StatusCommand struct {
	OrderID           string `json:"order_id"`
	Status            string `json:"status"`
	DeliveryPartnerID string `json:"delivery_partner_id,omitempty"`
}

// NewSagaEvent создает новое событие саги
func NewSagaEvent(eventType EventType, customerID, orderID, step string, metadata map[string]string) *SagaEvent {
	return &SagaEvent{
		EventType:  eventType,
		CustomerID: customerID,
		OrderID:    orderID,
		Step:       step,
		Timestamp:  time.Now().UTC(),
		Metadata:   metadata,
	}
}
