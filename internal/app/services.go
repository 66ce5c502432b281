package app

import (
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderflow/internal/httpapi"
	"github.com/vladislavdragonenkov/orderflow/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/orderflow/internal/metrics"
	"github.com/vladislavdragonenkov/orderflow/internal/service/lifecycle"
	"github.com/vladislavdragonenkov/orderflow/internal/service/query"
	"github.com/vladislavdragonenkov/orderflow/internal/service/saga"
	"github.com/vladislavdragonenkov/orderflow/internal/service/statemachine"
)

// services — ядро сервиса поверх выбранных зависимостей.
type services struct {
	recorder *lifecycle.Recorder
	saga     saga.Orchestrator
	machine  *statemachine.Machine
	queries  *query.Router
	api      http.Handler
}

// buildServices собирает сагу, машину состояний и запросы. producer может быть nil.
func buildServices(deps *runtimeDependencies, producer *kafka.Producer, m *metrics.OrderMetrics, logger *log.Entry) *services {
	// Typed nil в интерфейсе не должен попасть в Recorder.
	var events kafka.EventPublisher
	if producer != nil {
		events = producer
	}

	recorder := lifecycle.NewRecorder(deps.outbox, deps.timeline, events, m, logger.WithField("component", "lifecycle"))
	orchestrator := saga.NewOrchestratorWithMetrics(
		deps.orders,
		deps.carts,
		deps.products,
		deps.profiles,
		recorder,
		m,
		logger.WithField("component", "saga"),
	)
	machine := statemachine.NewMachine(
		deps.orders,
		deps.profiles,
		deps.delivery,
		recorder,
		m,
		logger.WithField("component", "statemachine"),
	)
	queries := query.NewRouter(deps.orders, logger.WithField("component", "query"))
	handler := httpapi.NewHandler(orchestrator, machine, queries, logger.WithField("component", "httpapi"))

	return &services{
		recorder: recorder,
		saga:     orchestrator,
		machine:  machine,
		queries:  queries,
		api:      httpapi.NewRouter(handler),
	}
}
