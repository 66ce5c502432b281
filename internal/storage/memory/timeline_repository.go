package memory

import (
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
)

// timelineRepositoryInMemory хранит события заказов в памяти, отсортированными по времени.
type timelineRepositoryInMemory struct {
	mu     sync.RWMutex
	events map[string][]domain.TimelineEvent
}

// NewTimelineRepository создаёт in-memory реализацию TimelineRepository.
func NewTimelineRepository() domain.TimelineRepository {
	return &timelineRepositoryInMemory{events: make(map[string][]domain.TimelineEvent)}
}

// Append вставляет событие, сохраняя хронологию. События с равным временем идут в порядке вставки.
func (r *timelineRepositoryInMemory) Append(event domain.TimelineEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.events[event.OrderID]
	idx := sort.Search(len(list), func(i int) bool {
		return list[i].Occurred.After(event.Occurred)
	})
	list = append(list, domain.TimelineEvent{})
	copy(list[idx+1:], list[idx:])
	list[idx] = event
	r.events[event.OrderID] = list
	return nil
}

// List возвращает события заказа в хронологическом порядке.
func (r *timelineRepositoryInMemory) List(orderID string) ([]domain.TimelineEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]domain.TimelineEvent(nil), r.events[orderID]...), nil
}

var _ domain.TimelineRepository = (*timelineRepositoryInMemory)(nil)
