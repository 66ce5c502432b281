// Package statemachine применяет смену статуса к активному заказу.
package statemachine

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
	"github.com/vladislavdragonenkov/orderflow/internal/metrics"
	"github.com/vladislavdragonenkov/orderflow/internal/service/lifecycle"
)

// Payload — необязательные данные запроса на смену статуса.
type Payload struct {
	DeliveryPartnerID string `json:"deliveryPartnerId,omitempty"`
}

// OrderContext передаётся обработчику статуса. Не сохраняется.
type OrderContext struct {
	OrderID     string
	Order       domain.Order
	Target      domain.OrderStatus
	Payload     Payload
	RequestedAt time.Time
}

// OrderStateHandler применяет переход в один конкретный статус.
type OrderStateHandler interface {
	Status() domain.OrderStatus
	// Apply выполняет побочные эффекты и запись, возвращает сохранённый заказ.
	Apply(ctx context.Context, oc OrderContext) (domain.Order, error)
}

// Machine выбирает обработчик по целевому статусу.
type Machine struct {
	store    domain.OrderStore
	handlers map[domain.OrderStatus]OrderStateHandler
	recorder *lifecycle.Recorder
	metrics  *metrics.OrderMetrics
	logger   *log.Entry
	now      func() time.Time
}

// NewMachine собирает таблицу обработчиков. metrics и recorder могут быть nil.
func NewMachine(
	store domain.OrderStore,
	profiles domain.ProfileService,
	delivery domain.DeliveryService,
	recorder *lifecycle.Recorder,
	m *metrics.OrderMetrics,
	logger *log.Entry,
) *Machine {
	if logger == nil {
		logger = log.New().WithField("component", "statemachine")
	}
	base := handlerBase{store: store, logger: logger}

	handlers := make(map[domain.OrderStatus]OrderStateHandler)
	for _, h := range []OrderStateHandler{
		&acceptedHandler{handlerBase: base},
		&readyHandler{handlerBase: base},
		&deliveryAcceptedHandler{handlerBase: base, delivery: delivery},
		&deliveryPickedUpHandler{handlerBase: base, delivery: delivery},
		&completedHandler{handlerBase: base, delivery: delivery, profiles: profiles},
		&cancelledHandler{handlerBase: base, profiles: profiles},
	} {
		handlers[h.Status()] = h
	}

	return &Machine{
		store:    store,
		handlers: handlers,
		recorder: recorder,
		metrics:  m,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// UpdateOrderStatus переводит активный заказ в статус rawStatus.
// Сначала загружается заказ: для отсутствующего заказа ответ NotFound
// независимо от запрошенного статуса.
func (m *Machine) UpdateOrderStatus(ctx context.Context, orderID, rawStatus string, payload Payload) error {
	start := time.Now()
	target, parseErr := domain.ParseOrderStatus(rawStatus)

	order, err := m.store.Get(ctx, domain.PartitionActive, orderID)
	if err != nil {
		if parseErr == nil {
			m.record(target, start, err)
		}
		if domain.IsNotFound(err) {
			return err
		}
		return fmt.Errorf("%w: load order %s: %v", domain.ErrPersistenceFailed, orderID, err)
	}

	if parseErr != nil {
		return parseErr
	}
	handler, ok := m.handlers[target]
	if !ok {
		return fmt.Errorf("%w: %s cannot be requested", domain.ErrInvalidStatus, target)
	}

	logger := m.logger.WithFields(log.Fields{
		"order_id": orderID,
		"target":   target,
	})

	if !domain.CanTransition(order, target) {
		err := fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, order.Status, target)
		m.record(target, start, err)
		return err
	}

	updated, err := handler.Apply(ctx, OrderContext{
		OrderID:     orderID,
		Order:       order,
		Target:      target,
		Payload:     payload,
		RequestedAt: m.now(),
	})
	m.record(target, start, err)
	if err != nil {
		logger.WithError(err).Warn("status transition failed")
		return err
	}

	logger.WithFields(log.Fields{
		"previous":   order.Status,
		"updated_by": updated.UpdatedBy,
		"version":    updated.Version,
	}).Info("order status updated")
	m.recorder.StatusChanged(updated, order.Status)
	return nil
}

func (m *Machine) record(target domain.OrderStatus, start time.Time, err error) {
	if m.metrics == nil {
		return
	}
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultFailure
	}
	m.metrics.RecordTransition(string(target), result, time.Since(start))
}
