// Package inventory — in-process каталог товаров для локального запуска без сервиса Product.
package inventory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
)

// Catalog хранит товары и остатки в памяти и реализует domain.ProductService.
type Catalog struct {
	mu       sync.RWMutex
	products map[string]domain.Product

	// LookupErr и StockErr позволяют сымитировать недоступность сервиса.
	LookupErr error
	StockErr  error

	LookupCalls int
	StockCalls  int
}

// NewCatalog создаёт каталог с начальным набором товаров.
func NewCatalog(products ...domain.Product) *Catalog {
	c := &Catalog{products: make(map[string]domain.Product, len(products))}
	for _, p := range products {
		c.Put(p)
	}
	return c
}

// Put добавляет или заменяет товар.
func (c *Catalog) Put(p domain.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[strings.ToLower(p.ProductID)] = p
}

// Stock возвращает текущий остаток товара.
func (c *Catalog) Stock(productID string) (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[strings.ToLower(productID)]
	return p.AvailableStock, ok
}

// GetProducts возвращает найденные товары; неизвестные id пропускаются.
func (c *Catalog) GetProducts(_ context.Context, productIDs []string) ([]domain.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.LookupCalls++
	if c.LookupErr != nil {
		return nil, c.LookupErr
	}
	result := make([]domain.Product, 0, len(productIDs))
	for _, id := range productIDs {
		if p, ok := c.products[strings.ToLower(id)]; ok {
			result = append(result, p)
		}
	}
	return result, nil
}

// UpdateStock записывает новый остаток. Отрицательный остаток отклоняется.
func (c *Catalog) UpdateStock(_ context.Context, req domain.ProductStockUpdateRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.StockCalls++
	if c.StockErr != nil {
		return c.StockErr
	}
	key := strings.ToLower(req.ProductID)
	p, ok := c.products[key]
	if !ok {
		return fmt.Errorf("%w: product %s", domain.ErrExternalService, req.ProductID)
	}
	if req.AvailableStock < 0 {
		return fmt.Errorf("%w: insufficient stock for product %s", domain.ErrExternalService, req.ProductID)
	}
	p.AvailableStock = req.AvailableStock
	c.products[key] = p
	return nil
}

var _ domain.ProductService = (*Catalog)(nil)
