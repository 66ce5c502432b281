// Package query отвечает за чтение заказов: списки по профилю и поиск по ID.
package query

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
)

// listPartitions задаёт, какие разделы читает каждый тип списка.
var listPartitions = map[domain.ListKind][]domain.Partition{
	domain.ListActive:    {domain.PartitionActive},
	domain.ListCompleted: {domain.PartitionCompleted},
	domain.ListCancelled: {domain.PartitionCancelled},
	domain.ListAll:       domain.Partitions,
}

// profileFields сопоставляет тип профиля полю заказа.
var profileFields = map[domain.ProfileKind]domain.OrderField{
	domain.ProfileCustomer:        domain.FieldCustomerID,
	domain.ProfileMerchant:        domain.FieldMerchantID,
	domain.ProfileDeliveryPartner: domain.FieldDeliveryPartnerID,
}

// Router читает заказы из разделов хранилища.
type Router struct {
	store  domain.OrderStore
	logger *log.Entry
}

// NewRouter создаёт Router поверх хранилища заказов.
func NewRouter(store domain.OrderStore, logger *log.Entry) *Router {
	if logger == nil {
		logger = log.New().WithField("component", "query")
	}
	return &Router{store: store, logger: logger}
}

// ListOrders возвращает заказы профиля из разделов, выбранных listKind.
// Для "all" порядок разделов: active, completed, cancelled.
func (r *Router) ListOrders(ctx context.Context, listKind, profileKind, profileID string) ([]domain.Order, error) {
	field, ok := profileFields[domain.ProfileKind(strings.ToLower(strings.TrimSpace(profileKind)))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidProfileType, profileKind)
	}
	kind, err := domain.ParseListKind(listKind)
	if err != nil {
		return nil, err
	}
	profileID = strings.TrimSpace(profileID)
	if profileID == "" {
		return nil, domain.ErrProfileIDRequired
	}

	filter := domain.OrderFilter{Field: field, Value: profileID}
	var orders []domain.Order
	for _, p := range listPartitions[kind] {
		found, err := r.store.Find(ctx, p, filter)
		if err != nil {
			r.logger.WithError(err).WithField("partition", p).Error("failed to list orders")
			return nil, fmt.Errorf("%w: list %s orders: %v", domain.ErrPersistenceFailed, p, err)
		}
		orders = append(orders, found...)
	}

	if len(orders) == 0 {
		return nil, domain.NoOrdersFound(kind, field, profileID)
	}
	return orders, nil
}

// ListActiveOrdersForDelivery возвращает готовые к доставке заказы. Пустой список не ошибка.
func (r *Router) ListActiveOrdersForDelivery(ctx context.Context) ([]domain.Order, error) {
	orders, err := r.store.Find(ctx, domain.PartitionActive, domain.OrderFilter{
		Status:       domain.OrderStatusReady,
		DeliveryOnly: true,
	})
	if err != nil {
		r.logger.WithError(err).Error("failed to list orders for delivery")
		return nil, fmt.Errorf("%w: list delivery orders: %v", domain.ErrPersistenceFailed, err)
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}

// GetOrder ищет заказ во всех разделах по очереди.
func (r *Router) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	for _, p := range domain.Partitions {
		order, err := r.store.Get(ctx, p, orderID)
		if err == nil {
			return order, nil
		}
		if !domain.IsNotFound(err) {
			return domain.Order{}, fmt.Errorf("%w: get order %s: %v", domain.ErrPersistenceFailed, orderID, err)
		}
	}
	return domain.Order{}, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, orderID)
}
