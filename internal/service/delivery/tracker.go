// Package delivery — in-process учёт доставок для локального запуска без сервиса Delivery.
package delivery

import (
	"context"
	"fmt"
	"sync"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
)

// Record — последнее известное состояние доставки заказа.
type Record struct {
	OrderID          string
	CustomerID       string
	DeliveryPersonID string
	Status           domain.OrderStatus
	Updates          int
}

// Tracker реализует domain.DeliveryService.
type Tracker struct {
	mu      sync.Mutex
	records map[string]Record

	// Err имитирует недоступность сервиса доставки.
	Err error
}

// NewTracker создаёт пустой трекер.
func NewTracker() *Tracker {
	return &Tracker{records: make(map[string]Record)}
}

// Get возвращает запись доставки.
func (t *Tracker) Get(orderID string) (Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[orderID]
	return rec, ok
}

// UpdateDelivery создаёт запись при create и обновляет существующую иначе.
func (t *Tracker) UpdateDelivery(_ context.Context, req domain.DeliveryStatusRequest, create bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Err != nil {
		return t.Err
	}
	rec, exists := t.records[req.OrderID]
	switch {
	case create && exists:
		return fmt.Errorf("%w: delivery for order %s already exists", domain.ErrExternalService, req.OrderID)
	case !create && !exists:
		return fmt.Errorf("%w: no delivery for order %s", domain.ErrExternalService, req.OrderID)
	case create:
		rec = Record{OrderID: req.OrderID, CustomerID: req.CustomerID}
	}
	if req.DeliveryPersonID != "" {
		rec.DeliveryPersonID = req.DeliveryPersonID
	}
	rec.Status = req.Status
	rec.Updates++
	t.records[req.OrderID] = rec
	return nil
}

var _ domain.DeliveryService = (*Tracker)(nil)
