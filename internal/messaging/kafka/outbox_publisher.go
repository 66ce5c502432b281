package kafka

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/IBM/sarama"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
)

var errOutboxPublisherNotReady = errors.New("kafka outbox publisher is not initialized")

// OutboxTopicPublisher доставляет записи outbox в один topic: основной или DLQ.
type OutboxTopicPublisher struct {
	producer *Producer
	topic    string
}

// NewOutboxPublisher создаёт паблишер; пустой topic означает поток событий заказов.
func NewOutboxPublisher(producer *Producer, topic string) *OutboxTopicPublisher {
	if topic == "" {
		topic = TopicOrderEvents
	}
	return &OutboxTopicPublisher{producer: producer, topic: topic}
}

// OutboxEnvelope — обёртка записи outbox на шине. Payload передаётся как есть.
type OutboxEnvelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

// NewOutboxEnvelope упаковывает запись с текущим временем публикации.
func NewOutboxEnvelope(msg domain.OutboxMessage) OutboxEnvelope {
	return envelopeAt(msg, time.Now().UTC())
}

func envelopeAt(msg domain.OutboxMessage, at time.Time) OutboxEnvelope {
	env := OutboxEnvelope{
		ID:            msg.ID,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		EventType:     msg.EventType,
		Payload:       json.RawMessage("null"),
		PublishedAt:   at,
	}
	if len(msg.Payload) > 0 {
		env.Payload = json.RawMessage(msg.Payload)
	}
	return env
}

// Publish отправляет запись с ключом заказа: события одного заказа попадают в одну партицию.
func (p *OutboxTopicPublisher) Publish(msg domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return errOutboxPublisherNotReady
	}

	key := msg.AggregateID
	if key == "" {
		key = msg.ID
	}
	headers := []sarama.RecordHeader{
		{Key: []byte(HeaderEventType), Value: []byte(msg.EventType)},
		{Key: []byte(HeaderAggregateType), Value: []byte(msg.AggregateType)},
	}
	return p.producer.publish(p.topic, key, envelopeAt(msg, p.producer.now()), headers)
}

var _ domain.OutboxPublisher = (*OutboxTopicPublisher)(nil)
