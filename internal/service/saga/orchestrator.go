package saga

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
	"github.com/vladislavdragonenkov/orderflow/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/orderflow/internal/metrics"
	"github.com/vladislavdragonenkov/orderflow/internal/service/lifecycle"
)

// Orchestrator описывает сагу создания заказа из корзины.
type Orchestrator interface {
	CreateOrderFromCart(ctx context.Context, customerID string, useRewards, useDelivery bool) (domain.Order, error)
}

// orchestrator выполняет шаги: корзина → каталог → бонусы → запись → корзина → остатки.
// Откат частичный: при сбое списания остатков удаляется только сам заказ.
type orchestrator struct {
	orders   domain.OrderStore
	carts    domain.CartStore
	products domain.ProductService
	profiles domain.ProfileService
	recorder *lifecycle.Recorder
	logger   *log.Entry
	metrics  *metrics.OrderMetrics

	now   func() time.Time
	newID func() string
}

// NewOrchestrator создаёт рабочий экземпляр оркестратора с метриками в default registry.
func NewOrchestrator(
	orders domain.OrderStore,
	carts domain.CartStore,
	products domain.ProductService,
	profiles domain.ProfileService,
	recorder *lifecycle.Recorder,
	logger *log.Entry,
) Orchestrator {
	return NewOrchestratorWithMetrics(orders, carts, products, profiles, recorder, metrics.NewOrderMetrics(), logger)
}

// NewOrchestratorWithMetrics позволяет передать свой набор метрик.
func NewOrchestratorWithMetrics(
	orders domain.OrderStore,
	carts domain.CartStore,
	products domain.ProductService,
	profiles domain.ProfileService,
	recorder *lifecycle.Recorder,
	m *metrics.OrderMetrics,
	logger *log.Entry,
) Orchestrator {
	if logger == nil {
		logger = log.New().WithField("component", "saga")
	}
	return &orchestrator{
		orders:   orders,
		carts:    carts,
		products: products,
		profiles: profiles,
		recorder: recorder,
		logger:   logger,
		metrics:  m,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.NewString() },
	}
}

// NewOrchestratorWithoutMetrics создаёт оркестратор без метрик (для тестов).
func NewOrchestratorWithoutMetrics(
	orders domain.OrderStore,
	carts domain.CartStore,
	products domain.ProductService,
	profiles domain.ProfileService,
	recorder *lifecycle.Recorder,
	logger *log.Entry,
) Orchestrator {
	return NewOrchestratorWithMetrics(orders, carts, products, profiles, recorder, nil, logger)
}

// pricedItem связывает позицию заказа с товаром, по которому считается остаток.
type pricedItem struct {
	item    domain.OrderItem
	product domain.Product
}

// CreateOrderFromCart создаёт заказ из корзины клиента. Не идемпотентен:
// повторный вызов создаёт заказ с новым ID.
func (o *orchestrator) CreateOrderFromCart(ctx context.Context, customerID string, useRewards, useDelivery bool) (domain.Order, error) {
	start := time.Now()
	if o.metrics != nil {
		o.metrics.RecordSagaStarted()
		defer func() { o.metrics.RecordSagaFinished(time.Since(start)) }()
	}

	logger := o.logger.WithField("customer_id", customerID)
	o.recorder.SagaEvent(kafka.EventTypeSagaStarted, customerID, "", domain.SagaStepLoadCart, map[string]string{
		"use_rewards":  fmt.Sprint(useRewards),
		"use_delivery": fmt.Sprint(useDelivery),
	})

	cart, err := o.loadCart(ctx, customerID)
	if err != nil {
		return domain.Order{}, o.fail(logger, "", customerID, domain.SagaStepLoadCart, err)
	}

	millis := o.now().UnixMilli()
	order := domain.Order{
		OrderID:                   o.newID(),
		CustomerID:                customerID,
		MerchantID:                cart.MerchantID,
		UseRewards:                useRewards,
		UseDelivery:               useDelivery,
		RewardsAmountUsed:         decimal.Zero,
		CustomerRewardsPointsUsed: decimal.Zero,
		Status:                    domain.OrderStatusCreated,
		CreatedDate:               millis,
		UpdatedDate:               millis,
		CreatedBy:                 domain.ActorCustomer,
		UpdatedBy:                 domain.ActorCustomer,
	}
	logger = logger.WithField("order_id", order.OrderID)

	priced, err := o.priceItems(ctx, cart)
	if err != nil {
		return domain.Order{}, o.fail(logger, order.OrderID, customerID, domain.SagaStepLookupProducts, err)
	}
	for _, p := range priced {
		order.Items = append(order.Items, p.item)
	}
	if order.MerchantID == "" {
		order.MerchantID = priced[0].product.MerchantID
	}
	order.TotalPrice = order.ItemsTotal()

	if useRewards {
		o.applyRewards(ctx, logger, &order)
	}

	if err := o.persist(ctx, order); err != nil {
		return domain.Order{}, o.fail(logger, order.OrderID, customerID, domain.SagaStepPersist, err)
	}

	o.timed(domain.SagaStepDeleteCart, func() error {
		if err := o.carts.DeleteCart(ctx, customerID); err != nil {
			logger.WithError(err).Warn("failed to delete cart after order creation")
		}
		return nil
	})

	if err := o.updateStock(ctx, logger, order, priced); err != nil {
		o.compensate(ctx, logger, order, err)
		return domain.Order{}, o.fail(logger, order.OrderID, customerID, domain.SagaStepUpdateStock, err)
	}

	logger.WithFields(log.Fields{
		"merchant_id": order.MerchantID,
		"total_price": order.TotalPrice.String(),
		"items":       len(order.Items),
	}).Info("order created from cart")
	if o.metrics != nil {
		o.metrics.RecordSagaCompleted()
	}
	o.recorder.OrderCreated(order)
	o.recorder.SagaEvent(kafka.EventTypeSagaCompleted, customerID, order.OrderID, "", map[string]string{
		"total_price": order.TotalPrice.String(),
	})
	return order, nil
}

func (o *orchestrator) loadCart(ctx context.Context, customerID string) (domain.Cart, error) {
	var cart domain.Cart
	err := o.timed(domain.SagaStepLoadCart, func() error {
		var err error
		cart, err = o.carts.GetCart(ctx, customerID)
		return err
	})
	switch {
	case err == nil && !cart.IsEmpty():
		return cart, nil
	case err == nil || domain.IsNotFound(err):
		return domain.Cart{}, fmt.Errorf("%w: customer %s", domain.ErrEmptyCart, customerID)
	default:
		return domain.Cart{}, fmt.Errorf("%w: load cart for customer %s: %v", domain.ErrExternalService, customerID, err)
	}
}

// priceItems запрашивает товары одним вызовом и подставляет цены каталога.
// Позиции без товара в ответе отбрасываются, повторы одного товара суммируются.
func (o *orchestrator) priceItems(ctx context.Context, cart domain.Cart) ([]pricedItem, error) {
	var products []domain.Product
	err := o.timed(domain.SagaStepLookupProducts, func() error {
		var err error
		products, err = o.products.GetProducts(ctx, cart.ProductIDs())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProductLookupFailed, err)
	}
	if len(products) == 0 {
		return nil, fmt.Errorf("%w: catalog returned no products", domain.ErrProductLookupFailed)
	}

	catalog := make(map[string]domain.Product, len(products))
	for _, p := range products {
		catalog[strings.ToLower(p.ProductID)] = p
	}

	var priced []pricedItem
	index := make(map[string]int, len(cart.Items))
	for _, item := range cart.Items {
		if item.Quantity <= 0 {
			continue
		}
		key := strings.ToLower(item.ProductID)
		product, ok := catalog[key]
		if !ok {
			continue
		}
		if i, seen := index[key]; seen {
			priced[i].item.Quantity += item.Quantity
			continue
		}
		index[key] = len(priced)
		priced = append(priced, pricedItem{
			item: domain.OrderItem{
				ProductID: product.ProductID,
				Quantity:  item.Quantity,
				UnitPrice: product.ListingPrice,
			},
			product: product,
		})
	}
	if len(priced) == 0 {
		return nil, fmt.Errorf("%w: no cart item matched the catalog", domain.ErrProductLookupFailed)
	}
	return priced, nil
}

// applyRewards списывает бонусы. Любой сбой здесь означает заказ без скидки.
func (o *orchestrator) applyRewards(ctx context.Context, logger *log.Entry, order *domain.Order) {
	_ = o.timed(domain.SagaStepApplyRewards, func() error {
		offset, err := o.profiles.GetRewardOffset(ctx, order.CustomerID)
		if err != nil {
			logger.WithError(err).Warn("rewards lookup failed, continuing without rewards")
			return nil
		}
		if offset.IsEmpty() {
			return nil
		}

		used := offset.ApplyTo(order.TotalPrice)
		order.RewardsAmountUsed = used
		order.CustomerRewardsPointsUsed = offset.RewardPoints
		order.TotalPrice = order.TotalPrice.Sub(used)

		if err := o.profiles.UpdateCustomerRewards(ctx, order.CustomerID, decimal.Zero); err != nil {
			logger.WithError(err).Warn("failed to reset customer rewards balance")
		}
		return nil
	})
}

func (o *orchestrator) persist(ctx context.Context, order domain.Order) error {
	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return fmt.Errorf("%w: %v", domain.ErrPersistenceFailed, errors.Join(errs...))
	}
	return o.timed(domain.SagaStepPersist, func() error {
		if err := o.orders.Insert(ctx, domain.PartitionActive, order); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrPersistenceFailed, err)
		}
		return nil
	})
}

// updateStock списывает остатки по всем позициям последовательно.
// Ошибки копятся, компенсация выполняется один раз после обхода.
func (o *orchestrator) updateStock(ctx context.Context, logger *log.Entry, order domain.Order, priced []pricedItem) error {
	return o.timed(domain.SagaStepUpdateStock, func() error {
		var (
			failed []string
			errs   []error
		)
		for _, p := range priced {
			req := p.product.StockAfter(p.item.Quantity)
			if err := o.products.UpdateStock(ctx, req); err != nil {
				logger.WithError(err).WithFields(log.Fields{
					"product_id":      req.ProductID,
					"available_stock": req.AvailableStock,
				}).Warn("stock update failed")
				failed = append(failed, req.ProductID)
				errs = append(errs, err)
			}
		}
		if len(failed) == 0 {
			return nil
		}
		return fmt.Errorf("%w: %d of %d products (%s): %v", domain.ErrStockUpdateFailed,
			len(failed), len(priced), strings.Join(failed, ","), errors.Join(errs...))
	})
}

// compensate удаляет заказ из активного раздела. Уже списанные остатки не возвращаются.
func (o *orchestrator) compensate(ctx context.Context, logger *log.Entry, order domain.Order, cause error) {
	_ = o.timed(domain.SagaStepCompensate, func() error {
		if err := o.orders.Delete(ctx, domain.PartitionActive, order.OrderID); err != nil {
			logger.WithError(err).Error("failed to delete order during compensation")
			return err
		}
		return nil
	})
	if o.metrics != nil {
		o.metrics.RecordSagaCompensated()
	}
	o.recorder.CreationFailed(order, cause.Error())
	o.recorder.SagaEvent(kafka.EventTypeSagaCompensated, order.CustomerID, order.OrderID, domain.SagaStepCompensate, map[string]string{
		"reason": cause.Error(),
	})
}

func (o *orchestrator) fail(logger *log.Entry, orderID, customerID string, step domain.SagaStep, err error) error {
	logger.WithError(err).WithField("step", step).Warn("order creation failed")
	if o.metrics != nil {
		o.metrics.RecordSagaFailed(string(step))
	}
	o.recorder.SagaEvent(kafka.EventTypeSagaFailed, customerID, orderID, step, map[string]string{
		"reason": err.Error(),
	})
	return err
}

func (o *orchestrator) timed(step domain.SagaStep, fn func() error) error {
	start := time.Now()
	err := fn()
	if o.metrics != nil {
		o.metrics.RecordStepDuration(string(step), time.Since(start))
	}
	return err
}

var _ Orchestrator = (*orchestrator)(nil)
