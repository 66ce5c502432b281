// Package lifecycle фиксирует изменения заказа: outbox, timeline, метрики и события саги.
package lifecycle

import (
	"encoding/json"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
	"github.com/vladislavdragonenkov/orderflow/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/orderflow/internal/metrics"
)

const aggregateType = "order"

// Recorder — общий приёмник событий для саги и машины состояний.
// Все ошибки только логируются: запись событий не влияет на результат операции.
type Recorder struct {
	outbox   domain.OutboxRepository
	timeline domain.TimelineRepository
	events   kafka.EventPublisher // опционально, только для событий саги
	metrics  *metrics.OrderMetrics
	logger   *log.Entry
	now      func() time.Time
}

// NewRecorder создаёт Recorder. Любая зависимость может быть nil.
func NewRecorder(
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	events kafka.EventPublisher,
	m *metrics.OrderMetrics,
	logger *log.Entry,
) *Recorder {
	if logger == nil {
		logger = log.New().WithField("component", "lifecycle")
	}
	return &Recorder{
		outbox:   outbox,
		timeline: timeline,
		events:   events,
		metrics:  m,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// OrderCreated фиксирует успешное создание заказа.
func (r *Recorder) OrderCreated(order domain.Order) {
	if r == nil {
		return
	}
	r.emit(order, kafka.EventTypeOrderCreated, "", domain.TimelineOrderCreated, "")
}

// StatusChanged фиксирует переход заказа из previous в order.Status.
func (r *Recorder) StatusChanged(order domain.Order, previous domain.OrderStatus) {
	if r == nil {
		return
	}
	r.emit(order, kafka.EventTypeOrderStatusChanged, previous, domain.TimelineStatusChanged, "")
}

// CreationFailed фиксирует откат заказа, удалённого после сбоя саги.
func (r *Recorder) CreationFailed(order domain.Order, reason string) {
	if r == nil {
		return
	}
	r.emit(order, kafka.EventTypeOrderCreationFailed, "", domain.TimelineCreationRollback, reason)
}

// SagaEvent публикует событие саги в Kafka, если producer настроен.
func (r *Recorder) SagaEvent(eventType kafka.EventType, customerID, orderID string, step domain.SagaStep, metadata map[string]string) {
	if r == nil || r.events == nil {
		return
	}

	event := kafka.NewSagaEvent(eventType, customerID, orderID, string(step), metadata)
	key := orderID
	if key == "" {
		key = customerID
	}
	if err := r.events.PublishEvent(kafka.TopicSagaEvents, key, event); err != nil {
		r.logger.WithError(err).WithFields(log.Fields{
			"event_type":  eventType,
			"order_id":    orderID,
			"customer_id": customerID,
		}).Warn("failed to publish saga event to kafka")
	}
}

// NewOrderEvent собирает payload события жизненного цикла.
func NewOrderEvent(eventType kafka.EventType, order domain.Order, previous domain.OrderStatus, ts time.Time) kafka.OrderEvent {
	return kafka.OrderEvent{
		EventType:         eventType,
		OrderID:           order.OrderID,
		CustomerID:        order.CustomerID,
		MerchantID:        order.MerchantID,
		DeliveryPartnerID: order.DeliveryPartnerID,
		Status:            string(order.Status),
		PreviousStatus:    string(previous),
		TotalPrice:        order.TotalPrice.StringFixed(2),
		UpdatedBy:         string(order.UpdatedBy),
		Timestamp:         ts,
	}
}

func (r *Recorder) emit(order domain.Order, eventType kafka.EventType, previous domain.OrderStatus, timelineType, reason string) {
	occurred := r.now()
	fields := log.Fields{
		"order_id": order.OrderID,
		"event":    eventType,
	}

	if r.outbox != nil {
		data, err := json.Marshal(NewOrderEvent(eventType, order, previous, occurred))
		if err != nil {
			r.logger.WithError(err).WithFields(fields).Error("marshal event failed")
		} else {
			msg := domain.OutboxMessage{
				AggregateType: aggregateType,
				AggregateID:   order.OrderID,
				EventType:     string(eventType),
				Payload:       data,
			}
			if _, err := r.outbox.Enqueue(msg); err != nil {
				r.logger.WithError(err).WithFields(fields).Error("enqueue event failed")
			} else if r.metrics != nil {
				r.metrics.RecordOutboxEvent()
			}
		}
	}

	if r.timeline != nil {
		event := domain.TimelineEvent{
			OrderID:  order.OrderID,
			Type:     timelineType,
			Reason:   reason,
			Actor:    order.UpdatedBy,
			Occurred: occurred,
		}
		if err := r.timeline.Append(event); err != nil {
			r.logger.WithError(err).WithFields(fields).Warn("append timeline event failed")
		} else if r.metrics != nil {
			r.metrics.RecordTimelineEvent()
		}
	}
}
