package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Результаты перехода статуса для метки result.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// OrderMetrics содержит метрики саги создания заказа и переходов статусов.
type OrderMetrics struct {
	// Сага создания заказа
	sagaStarted     prometheus.Counter
	sagaCompleted   prometheus.Counter
	sagaFailed      *prometheus.CounterVec
	sagaCompensated prometheus.Counter
	sagaDuration    prometheus.Histogram
	stepDuration    *prometheus.HistogramVec
	activeSagas     prometheus.Gauge

	// Переходы статусов
	transitions        *prometheus.CounterVec
	transitionDuration *prometheus.HistogramVec

	timelineEvents prometheus.Counter
	outboxEvents   prometheus.Counter
}

// NewOrderMetrics регистрирует метрики в глобальном реестре.
func NewOrderMetrics() *OrderMetrics {
	return NewOrderMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewOrderMetricsWithRegisterer регистрирует метрики в переданном реестре.
// Повторная регистрация возвращает уже существующие коллекторы.
func NewOrderMetricsWithRegisterer(registerer prometheus.Registerer) *OrderMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &OrderMetrics{
		sagaStarted: register(registerer, "oms_order_saga_started_total", prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oms_order_saga_started_total",
			Help: "Total number of order creation sagas started",
		})),
		sagaCompleted: register(registerer, "oms_order_saga_completed_total", prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oms_order_saga_completed_total",
			Help: "Total number of orders created successfully",
		})),
		sagaFailed: register(registerer, "oms_order_saga_failed_total", prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oms_order_saga_failed_total",
			Help: "Total number of order creation sagas failed, by step",
		}, []string{"step"})),
		sagaCompensated: register(registerer, "oms_order_saga_compensated_total", prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oms_order_saga_compensated_total",
			Help: "Total number of created orders deleted after a stock update failure",
		})),
		sagaDuration: register(registerer, "oms_order_saga_duration_seconds", prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "oms_order_saga_duration_seconds",
			Help:    "Duration of order creation sagas in seconds",
			Buckets: prometheus.DefBuckets,
		})),
		stepDuration: register(registerer, "oms_order_saga_step_duration_seconds", prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "oms_order_saga_step_duration_seconds",
			Help:    "Duration of individual saga steps in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 30.0},
		}, []string{"step"})),
		activeSagas: register(registerer, "oms_order_active_sagas", prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "oms_order_active_sagas",
			Help: "Number of order creation sagas in flight",
		})),
		transitions: register(registerer, "oms_order_transitions_total", prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oms_order_transitions_total",
			Help: "Total number of order status transitions, by target status and result",
		}, []string{"status", "result"})),
		transitionDuration: register(registerer, "oms_order_transition_duration_seconds", prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "oms_order_transition_duration_seconds",
			Help:    "Duration of order status transitions in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"status"})),
		timelineEvents: register(registerer, "oms_timeline_events_total", prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oms_timeline_events_total",
			Help: "Total number of timeline events recorded",
		})),
		outboxEvents: register(registerer, "oms_outbox_events_total", prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oms_outbox_events_total",
			Help: "Total number of lifecycle events enqueued to the outbox",
		})),
	}
}

// register регистрирует коллектор или возвращает уже зарегистрированный того же типа.
func register[T prometheus.Collector](registerer prometheus.Registerer, name string, collector T) T {
	err := registerer.Register(collector)
	if err == nil {
		return collector
	}
	var alreadyRegistered prometheus.AlreadyRegisteredError
	if errors.As(err, &alreadyRegistered) {
		existing, ok := alreadyRegistered.ExistingCollector.(T)
		if !ok {
			panic(fmt.Sprintf("collector %q already registered with unexpected type", name))
		}
		return existing
	}
	panic(fmt.Sprintf("register collector %q: %v", name, err))
}

// RecordSagaStarted увеличивает счётчик запущенных саг и число активных.
func (m *OrderMetrics) RecordSagaStarted() {
	m.sagaStarted.Inc()
	m.activeSagas.Inc()
}

// RecordSagaFinished уменьшает число активных саг и пишет длительность.
func (m *OrderMetrics) RecordSagaFinished(duration time.Duration) {
	m.activeSagas.Dec()
	m.sagaDuration.Observe(duration.Seconds())
}

// RecordSagaCompleted увеличивает счётчик созданных заказов.
func (m *OrderMetrics) RecordSagaCompleted() {
	m.sagaCompleted.Inc()
}

// RecordSagaFailed учитывает неудачную сагу по шагу, на котором она упала.
func (m *OrderMetrics) RecordSagaFailed(step string) {
	m.sagaFailed.WithLabelValues(step).Inc()
}

// RecordSagaCompensated учитывает удаление заказа после сбоя списания остатков.
func (m *OrderMetrics) RecordSagaCompensated() {
	m.sagaCompensated.Inc()
}

// RecordStepDuration записывает время выполнения шага саги.
func (m *OrderMetrics) RecordStepDuration(step string, duration time.Duration) {
	m.stepDuration.WithLabelValues(step).Observe(duration.Seconds())
}

// RecordTransition учитывает переход статуса.
func (m *OrderMetrics) RecordTransition(status, result string, duration time.Duration) {
	m.transitions.WithLabelValues(status, result).Inc()
	m.transitionDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordTimelineEvent увеличивает счётчик событий timeline.
func (m *OrderMetrics) RecordTimelineEvent() {
	m.timelineEvents.Inc()
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *OrderMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}
