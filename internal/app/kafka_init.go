package app

import (
	"context"
	"strings"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
	"github.com/vladislavdragonenkov/orderflow/internal/httpapi"
	"github.com/vladislavdragonenkov/orderflow/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/orderflow/internal/messaging/rabbitmq"
	"github.com/vladislavdragonenkov/orderflow/internal/service/statemachine"
)

const (
	kafkaClientID        = "order-lifecycle-service"
	statusCommandGroupID = "order-lifecycle-status-commands"
	statusCommandRetries = 3
)

// initKafkaProducer создаёт producer, если brokers не пустой.
// Ошибка не фатальна: сервис продолжает работу без Kafka.
func initKafkaProducer(brokers []string, logger *log.Entry) (*kafka.Producer, error) {
	if len(brokers) == 0 {
		return nil, nil
	}

	producer, err := kafka.NewProducer(brokers, kafkaClientID)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return nil, err
	}

	logger.WithField("brokers", brokers).Info("kafka producer initialized")
	return producer, nil
}

// closeKafka закрывает Kafka producer если он не nil.
func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}
	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}

// outboxTransport — куда outbox worker отправляет события и недоставленные сообщения.
type outboxTransport struct {
	publisher domain.OutboxPublisher
	dlq       domain.OutboxPublisher
	close     func() error
}

// initOutboxTransport выбирает брокер для событий: RabbitMQ, если задан URL, иначе Kafka.
// Без брокера события остаются в outbox.
func initOutboxTransport(cfg Config, producer *kafka.Producer, logger *log.Entry) outboxTransport {
	if cfg.RabbitMQURL != "" {
		publisher, err := rabbitmq.NewPublisher(cfg.RabbitMQURL, rabbitmq.DefaultQueue)
		if err == nil {
			logger.WithField("queue", rabbitmq.DefaultQueue).Info("outbox publishes to rabbitmq")
			return outboxTransport{publisher: publisher, close: publisher.Close}
		}
		logger.WithError(err).Warn("failed to connect to rabbitmq, falling back to kafka")
	}

	if producer != nil {
		logger.WithField("topic", kafka.TopicOrderEvents).Info("outbox publishes to kafka")
		return outboxTransport{
			publisher: kafka.NewOutboxPublisher(producer, kafka.TopicOrderEvents),
			dlq:       kafka.NewOutboxPublisher(producer, kafka.TopicDeadLetterQueue),
		}
	}

	logger.Warn("no message broker configured, lifecycle events stay in outbox")
	return outboxTransport{}
}

// newStatusCommandHandler применяет команды смены статуса из Kafka.
// Ошибки недоступности зависимостей повторяются, остальные ошибки ядра уходят сразу в DLQ.
func newStatusCommandHandler(updater httpapi.StatusUpdater, logger *log.Entry) kafka.MessageHandler {
	return func(ctx context.Context, message *sarama.ConsumerMessage) error {
		cmd, err := kafka.ParseStatusCommand(message)
		if err != nil {
			return kafka.Permanent(err)
		}

		entry := logger.WithFields(log.Fields{
			"order_id": cmd.OrderID,
			"status":   cmd.Status,
		})
		err = updater.UpdateOrderStatus(ctx, cmd.OrderID, cmd.Status, statemachine.Payload{
			DeliveryPartnerID: strings.TrimSpace(cmd.DeliveryPartnerID),
		})
		if err == nil {
			entry.Info("status command applied")
			return nil
		}

		kind, ok := domain.KindOf(err)
		if ok && kind != domain.KindExternalService && kind != domain.KindPersistence {
			entry.WithError(err).Warn("status command rejected")
			return kafka.Permanent(err)
		}
		return err
	}
}

// startStatusConsumer подписывается на команды смены статуса. Без брокеров возвращает nil.
func startStatusConsumer(ctx context.Context, brokers []string, updater httpapi.StatusUpdater, dlq *kafka.Producer, logger *log.Entry) *kafka.Consumer {
	if len(brokers) == 0 {
		return nil
	}
	consumer, err := kafka.NewConsumer(
		brokers,
		statusCommandGroupID,
		[]string{kafka.TopicStatusCommands},
		newStatusCommandHandler(updater, logger.WithField("component", "status-commands")),
		dlq,
		statusCommandRetries,
	)
	if err != nil {
		logger.WithError(err).Warn("failed to create status command consumer")
		return nil
	}
	if err := consumer.Start(ctx); err != nil {
		logger.WithError(err).Warn("failed to start status command consumer")
		return nil
	}
	return consumer
}
