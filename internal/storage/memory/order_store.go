package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
)

// orderStoreInMemory — in-memory реализация OrderStore.
// Все три раздела защищены одним мьютексом, поэтому Move атомарен.
type orderStoreInMemory struct {
	mu         sync.RWMutex
	partitions map[domain.Partition]map[string]domain.Order
}

// NewOrderStore возвращает in-memory хранилище для локальной разработки и тестов.
func NewOrderStore() *orderStoreInMemory {
	parts := make(map[domain.Partition]map[string]domain.Order, len(domain.Partitions))
	for _, p := range domain.Partitions {
		parts[p] = make(map[string]domain.Order)
	}
	return &orderStoreInMemory{partitions: parts}
}

func (s *orderStoreInMemory) partition(p domain.Partition) (map[string]domain.Order, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("unknown partition %q", p)
	}
	return s.partitions[p], nil
}

// Insert сохраняет новый заказ, если ID не занят ни в одном разделе.
func (s *orderStoreInMemory) Insert(_ context.Context, p domain.Partition, order domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	part, err := s.partition(p)
	if err != nil {
		return err
	}
	if s.locate(order.OrderID) != "" {
		return fmt.Errorf("%w: %s", domain.ErrOrderExists, order.OrderID)
	}
	// Сохраняем копию, чтобы избежать непредсказуемых мутаций извне.
	part[order.OrderID] = order.Clone()
	return nil
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (s *orderStoreInMemory) Get(_ context.Context, p domain.Partition, orderID string) (domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	part, err := s.partition(p)
	if err != nil {
		return domain.Order{}, err
	}
	order, ok := part[orderID]
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, orderID)
	}
	return order.Clone(), nil
}

// Find возвращает заказы раздела по фильтру, старые первыми.
func (s *orderStoreInMemory) Find(_ context.Context, p domain.Partition, filter domain.OrderFilter) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	part, err := s.partition(p)
	if err != nil {
		return nil, err
	}

	result := make([]domain.Order, 0)
	for _, order := range part {
		if filter.Match(order) {
			result = append(result, order.Clone())
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedDate != result[j].CreatedDate {
			return result[i].CreatedDate < result[j].CreatedDate
		}
		return result[i].OrderID < result[j].OrderID
	})
	return result, nil
}

// Update перезаписывает активный заказ, проверяя версию (optimistic locking).
func (s *orderStoreInMemory) Update(_ context.Context, order domain.Order) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := s.partitions[domain.PartitionActive]
	current, ok := active[order.OrderID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, order.OrderID)
	}
	if current.Version != order.Version {
		return 0, fmt.Errorf("%w: %s expected version %d, stored %d",
			domain.ErrConflictingUpdate, order.OrderID, order.Version, current.Version)
	}

	next := order.Clone()
	next.Version++
	active[order.OrderID] = next
	return next.Version, nil
}

// Move переносит заказ из активного раздела в терминальный под одной блокировкой.
// Если копия уже лежит в целевом разделе, повторный перенос считается успешным.
func (s *orderStoreInMemory) Move(_ context.Context, order domain.Order, to domain.Partition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if to == domain.PartitionActive {
		return fmt.Errorf("move target must be terminal, got %q", to)
	}
	target, err := s.partition(to)
	if err != nil {
		return err
	}

	active := s.partitions[domain.PartitionActive]
	current, ok := active[order.OrderID]
	if !ok {
		if existing, done := target[order.OrderID]; done && existing.Version == order.Version+1 {
			return nil
		}
		return fmt.Errorf("%w: %s", domain.ErrOrderNotFound, order.OrderID)
	}
	if current.Version != order.Version {
		return fmt.Errorf("%w: %s expected version %d, stored %d",
			domain.ErrConflictingUpdate, order.OrderID, order.Version, current.Version)
	}

	next := order.Clone()
	next.Version++
	target[order.OrderID] = next
	delete(active, order.OrderID)
	return nil
}

// Delete удаляет заказ из раздела.
func (s *orderStoreInMemory) Delete(_ context.Context, p domain.Partition, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	part, err := s.partition(p)
	if err != nil {
		return err
	}
	if _, ok := part[orderID]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrOrderNotFound, orderID)
	}
	delete(part, orderID)
	return nil
}

// Locate возвращает разделы, в которых лежит заказ (используется в тестах).
func (s *orderStoreInMemory) Locate(orderID string) []domain.Partition {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found []domain.Partition
	for _, p := range domain.Partitions {
		if _, ok := s.partitions[p][orderID]; ok {
			found = append(found, p)
		}
	}
	return found
}

// Ping нужен для readiness-проверки.
func (s *orderStoreInMemory) Ping(context.Context) error { return nil }

func (s *orderStoreInMemory) locate(orderID string) domain.Partition {
	for _, p := range domain.Partitions {
		if _, ok := s.partitions[p][orderID]; ok {
			return p
		}
	}
	return ""
}

var _ domain.OrderStore = (*orderStoreInMemory)(nil)
