package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
)

const (
	keyPrefix = "cart:"
	opTimeout = 3 * time.Second
)

// Options — параметры подключения к Redis.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// cartDocument — формат корзины в Redis.
type cartDocument struct {
	CustomerID string         `json:"customerId"`
	MerchantID string         `json:"merchantId"`
	Items      []cartDocEntry `json:"items"`
}

type cartDocEntry struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
}

// CartStore хранит корзины клиентов JSON-документами по ключу cart:<customerId>.
type CartStore struct {
	client goredis.UniversalClient
}

// NewCartStore подключается к Redis и проверяет соединение.
func NewCartStore(ctx context.Context, opts Options) (*CartStore, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  opTimeout,
		WriteTimeout: opTimeout,
		PoolSize:     10,
		MinIdleConns: 2,
	})
	store := NewCartStoreWithClient(client)
	if err := store.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return store, nil
}

// NewCartStoreWithClient оборачивает готовый клиент.
func NewCartStoreWithClient(client goredis.UniversalClient) *CartStore {
	return &CartStore{client: client}
}

// CartKey возвращает ключ корзины клиента.
func CartKey(customerID string) string {
	return keyPrefix + customerID
}

// GetCart возвращает корзину или ErrCartNotFound.
func (s *CartStore) GetCart(ctx context.Context, customerID string) (domain.Cart, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	raw, err := s.client.Get(ctx, CartKey(customerID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return domain.Cart{}, fmt.Errorf("%w: %s", domain.ErrCartNotFound, customerID)
	}
	if err != nil {
		return domain.Cart{}, fmt.Errorf("redis get cart: %w", err)
	}
	return decodeCart(customerID, raw)
}

// SaveCart записывает корзину без TTL. Используется для сидирования.
func (s *CartStore) SaveCart(ctx context.Context, cart domain.Cart) error {
	if strings.TrimSpace(cart.CustomerID) == "" {
		return errors.New("cart customer id is required")
	}
	raw, err := encodeCart(cart)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := s.client.Set(ctx, CartKey(cart.CustomerID), raw, 0).Err(); err != nil {
		return fmt.Errorf("redis save cart: %w", err)
	}
	return nil
}

// DeleteCart удаляет корзину; отсутствие ключа не ошибка.
func (s *CartStore) DeleteCart(ctx context.Context, customerID string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := s.client.Del(ctx, CartKey(customerID)).Err(); err != nil {
		return fmt.Errorf("redis delete cart: %w", err)
	}
	return nil
}

// Ping проверяет доступность Redis.
func (s *CartStore) Ping(ctx context.Context) error {
	if s == nil || s.client == nil {
		return errors.New("redis client is not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close закрывает клиент.
func (s *CartStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func encodeCart(cart domain.Cart) ([]byte, error) {
	doc := cartDocument{
		CustomerID: cart.CustomerID,
		MerchantID: cart.MerchantID,
		Items:      make([]cartDocEntry, 0, len(cart.Items)),
	}
	for _, item := range cart.Items {
		doc.Items = append(doc.Items, cartDocEntry{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode cart: %w", err)
	}
	return raw, nil
}

func decodeCart(customerID string, raw []byte) (domain.Cart, error) {
	var doc cartDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.Cart{}, fmt.Errorf("decode cart %s: %w", customerID, err)
	}
	cart := domain.Cart{
		CustomerID: doc.CustomerID,
		MerchantID: doc.MerchantID,
		Items:      make([]domain.CartItem, 0, len(doc.Items)),
	}
	if cart.CustomerID == "" {
		cart.CustomerID = customerID
	}
	for _, entry := range doc.Items {
		cart.Items = append(cart.Items, domain.CartItem{ProductID: entry.ProductID, Quantity: entry.Quantity})
	}
	return cart, nil
}

var _ domain.CartStore = (*CartStore)(nil)
