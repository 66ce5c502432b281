package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

// HeaderContentType помечает формат payload всех исходящих сообщений.
const HeaderContentType = "content-type"

const (
	contentTypeJSON  = "application/json"
	producerRetryMax = 5
)

// EventPublisher публикует произвольное JSON-событие в топик.
type EventPublisher interface {
	PublishEvent(topic string, key string, event interface{}) error
}

// Producer отправляет события заказов, саги и DLQ синхронно, с подтверждением всех реплик.
type Producer struct {
	sync   sarama.SyncProducer
	logger *log.Entry
	now    func() time.Time
}

// newProducerConfig собирает идемпотентный конфиг: acks=all и один in-flight запрос на брокер.
func newProducerConfig(clientID string) (*sarama.Config, error) {
	cfg := sarama.NewConfig()
	if clientID != "" {
		cfg.ClientID = clientID
	}
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = producerRetryMax
	cfg.Producer.Return.Successes = true
	cfg.Producer.Compression = sarama.CompressionSnappy
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid kafka producer config: %w", err)
	}
	return cfg, nil
}

// NewProducer подключается к брокерам.
func NewProducer(brokers []string, clientID string) (*Producer, error) {
	cfg, err := newProducerConfig(clientID)
	if err != nil {
		return nil, err
	}
	client, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect kafka producer to %v: %w", brokers, err)
	}
	return NewProducerWithClient(client, nil), nil
}

// NewProducerWithClient оборачивает готовый SyncProducer (например, mocks в тестах).
func NewProducerWithClient(client sarama.SyncProducer, logger *log.Entry) *Producer {
	if logger == nil {
		logger = log.WithField("component", "kafka-producer")
	}
	return &Producer{
		sync:   client,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// PublishEvent сериализует event в JSON и отправляет его с ключом key.
func (p *Producer) PublishEvent(topic string, key string, event interface{}) error {
	return p.publish(topic, key, event, nil)
}

func (p *Producer) publish(topic, key string, event interface{}, extra []sarama.RecordHeader) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event for %s: %w", topic, err)
	}

	headers := make([]sarama.RecordHeader, 0, len(extra)+1)
	headers = append(headers, sarama.RecordHeader{Key: []byte(HeaderContentType), Value: []byte(contentTypeJSON)})
	headers = append(headers, extra...)

	msg := &sarama.ProducerMessage{
		Topic:     topic,
		Value:     sarama.ByteEncoder(body),
		Headers:   headers,
		Timestamp: p.now(),
	}
	// без ключа partitioner раскидывает сообщения равномерно
	if key != "" {
		msg.Key = sarama.StringEncoder(key)
	}

	fields := log.Fields{"topic": topic, "key": key}
	partition, offset, err := p.sync.SendMessage(msg)
	if err != nil {
		p.logger.WithError(err).WithFields(fields).Error("kafka send failed")
		return fmt.Errorf("send to %s: %w", topic, err)
	}

	fields["partition"] = partition
	fields["offset"] = offset
	p.logger.WithFields(fields).Debug("kafka message delivered")
	return nil
}

// Close дожидается отправки буфера и закрывает соединения.
func (p *Producer) Close() error {
	if err := p.sync.Close(); err != nil {
		return fmt.Errorf("close kafka producer: %w", err)
	}
	return nil
}

var _ EventPublisher = (*Producer)(nil)
