package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
)

// cartStoreInMemory держит корзины в памяти. Put нужен для сидирования в тестах и dev-режиме.
type cartStoreInMemory struct {
	mu    sync.RWMutex
	carts map[string]domain.Cart
}

// NewCartStore создаёт пустое in-memory хранилище корзин.
func NewCartStore() *cartStoreInMemory {
	return &cartStoreInMemory{carts: make(map[string]domain.Cart)}
}

// Put сохраняет корзину клиента.
func (s *cartStoreInMemory) Put(cart domain.Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart.Items = append([]domain.CartItem(nil), cart.Items...)
	s.carts[cart.CustomerID] = cart
}

// GetCart возвращает корзину или ErrCartNotFound.
func (s *cartStoreInMemory) GetCart(_ context.Context, customerID string) (domain.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cart, ok := s.carts[customerID]
	if !ok {
		return domain.Cart{}, fmt.Errorf("%w: %s", domain.ErrCartNotFound, customerID)
	}
	cart.Items = append([]domain.CartItem(nil), cart.Items...)
	return cart, nil
}

// DeleteCart удаляет корзину; отсутствие корзины не ошибка.
func (s *cartStoreInMemory) DeleteCart(_ context.Context, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts, customerID)
	return nil
}

var _ domain.CartStore = (*cartStoreInMemory)(nil)
