package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
	"github.com/vladislavdragonenkov/orderflow/internal/messaging/kafka"
)

// DefaultQueue — очередь событий жизненного цикла заказа.
const DefaultQueue = "order-lifecycle-events"

const publishTimeout = 5 * time.Second

// channel — часть amqp.Channel, которой пользуется паблишер.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher публикует outbox-сообщения в durable-очередь RabbitMQ.
type Publisher struct {
	conn    *amqp.Connection
	channel channel
	queue   string
	logger  *log.Entry
}

// NewPublisher подключается к брокеру и объявляет очередь.
func NewPublisher(url, queue string) (*Publisher, error) {
	if queue == "" {
		queue = DefaultQueue
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	p := newPublisher(ch, queue, nil)
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, queue string, logger *log.Entry) *Publisher {
	if logger == nil {
		logger = log.WithField("component", "rabbitmq-publisher")
	}
	return &Publisher{channel: ch, queue: queue, logger: logger}
}

// BuildPublishing формирует persistent-сообщение из записи outbox.
func BuildPublishing(event domain.OutboxMessage) (amqp.Publishing, error) {
	body, err := json.Marshal(kafka.NewOutboxEnvelope(event))
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Type:         event.EventType,
		Timestamp:    time.Now().UTC(),
		Headers: amqp.Table{
			"aggregate_type": event.AggregateType,
			"aggregate_id":   event.AggregateID,
		},
		Body: body,
	}, nil
}

// Publish отправляет сообщение в очередь через default exchange.
func (p *Publisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.channel == nil {
		return fmt.Errorf("rabbitmq publisher is not initialized")
	}

	msg, err := BuildPublishing(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := p.channel.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		p.logger.WithError(err).WithFields(log.Fields{
			"queue":      p.queue,
			"message_id": event.ID,
		}).Error("failed to publish message to rabbitmq")
		return fmt.Errorf("failed to publish message: %w", err)
	}

	p.logger.WithFields(log.Fields{
		"queue":      p.queue,
		"message_id": event.ID,
		"event_type": event.EventType,
	}).Debug("message published to rabbitmq")
	return nil
}

// Close закрывает канал и соединение.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	var firstErr error
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			firstErr = err
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ domain.OutboxPublisher = (*Publisher)(nil)
