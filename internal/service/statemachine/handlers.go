package statemachine

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
)

type handlerBase struct {
	store  domain.OrderStore
	logger *log.Entry
}

// next готовит копию заказа с новым статусом и отметкой автора.
func (b handlerBase) next(oc OrderContext, actor domain.Actor) domain.Order {
	order := oc.Order.Clone()
	order.Status = oc.Target
	order.UpdatedDate = oc.RequestedAt.UnixMilli()
	order.UpdatedBy = actor
	return order
}

// update сохраняет заказ в активном разделе с проверкой версии.
func (b handlerBase) update(ctx context.Context, order domain.Order) (domain.Order, error) {
	version, err := b.store.Update(ctx, order)
	if err != nil {
		return domain.Order{}, storeError(order.OrderID, err)
	}
	order.Version = version
	return order, nil
}

// move переносит заказ в раздел, соответствующий его терминальному статусу.
func (b handlerBase) move(ctx context.Context, order domain.Order) (domain.Order, error) {
	to, ok := domain.TerminalPartition(order.Status)
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: %s is not terminal", domain.ErrInvalidStatus, order.Status)
	}
	if err := b.store.Move(ctx, order, to); err != nil {
		return domain.Order{}, storeError(order.OrderID, err)
	}
	order.Version++
	return order, nil
}

func storeError(orderID string, err error) error {
	if domain.IsNotFound(err) || domain.IsConflict(err) {
		return err
	}
	return fmt.Errorf("%w: order %s: %v", domain.ErrPersistenceFailed, orderID, err)
}

type acceptedHandler struct{ handlerBase }

func (h *acceptedHandler) Status() domain.OrderStatus { return domain.OrderStatusAccepted }

func (h *acceptedHandler) Apply(ctx context.Context, oc OrderContext) (domain.Order, error) {
	return h.update(ctx, h.next(oc, domain.ActorMerchant))
}

type readyHandler struct{ handlerBase }

func (h *readyHandler) Status() domain.OrderStatus { return domain.OrderStatusReady }

func (h *readyHandler) Apply(ctx context.Context, oc OrderContext) (domain.Order, error) {
	return h.update(ctx, h.next(oc, domain.ActorMerchant))
}

// deliveryAcceptedHandler закрепляет курьера за заказом и создаёт доставку.
type deliveryAcceptedHandler struct {
	handlerBase
	delivery domain.DeliveryService
}

func (h *deliveryAcceptedHandler) Status() domain.OrderStatus {
	return domain.OrderStatusDeliveryAccepted
}

func (h *deliveryAcceptedHandler) Apply(ctx context.Context, oc OrderContext) (domain.Order, error) {
	if !oc.Order.UseDelivery {
		return domain.Order{}, fmt.Errorf("%w: %s", domain.ErrDeliveryNotEnabled, oc.OrderID)
	}
	partnerID := oc.Payload.DeliveryPartnerID
	if partnerID == "" {
		return domain.Order{}, domain.ErrDeliveryPartnerRequired
	}

	req := domain.NewDeliveryStatusRequest(oc.Order, partnerID, oc.Target)
	if err := h.delivery.UpdateDelivery(ctx, req, true); err != nil {
		return domain.Order{}, fmt.Errorf("%w: %v", domain.ErrDeliveryUpdateFailed, err)
	}

	order := h.next(oc, domain.ActorDeliveryPartner)
	order.DeliveryPartnerID = partnerID
	return h.update(ctx, order)
}

type deliveryPickedUpHandler struct {
	handlerBase
	delivery domain.DeliveryService
}

func (h *deliveryPickedUpHandler) Status() domain.OrderStatus {
	return domain.OrderStatusDeliveryPickedUp
}

func (h *deliveryPickedUpHandler) Apply(ctx context.Context, oc OrderContext) (domain.Order, error) {
	if !oc.Order.HasDeliveryPartner() {
		return domain.Order{}, fmt.Errorf("%w: %s", domain.ErrDeliveryNotAccepted, oc.OrderID)
	}

	req := domain.NewDeliveryStatusRequest(oc.Order, oc.Order.DeliveryPartnerID, oc.Target)
	if err := h.delivery.UpdateDelivery(ctx, req, false); err != nil {
		return domain.Order{}, fmt.Errorf("%w: %v", domain.ErrDeliveryUpdateFailed, err)
	}
	return h.update(ctx, h.next(oc, domain.ActorDeliveryPartner))
}

// completedHandler закрывает заказ и начисляет выручку и бонусы.
type completedHandler struct {
	handlerBase
	delivery domain.DeliveryService
	profiles domain.ProfileService
}

func (h *completedHandler) Status() domain.OrderStatus { return domain.OrderStatusCompleted }

func (h *completedHandler) Apply(ctx context.Context, oc OrderContext) (domain.Order, error) {
	actor := domain.ActorMerchant
	if oc.Order.UseDelivery {
		actor = domain.ActorDeliveryPartner
		req := domain.NewDeliveryStatusRequest(oc.Order, oc.Order.DeliveryPartnerID, oc.Target)
		if err := h.delivery.UpdateDelivery(ctx, req, false); err != nil {
			return domain.Order{}, fmt.Errorf("%w: %v", domain.ErrDeliveryUpdateFailed, err)
		}
	}

	order, err := h.move(ctx, h.next(oc, actor))
	if err != nil {
		return domain.Order{}, err
	}

	logger := h.logger.WithField("order_id", order.OrderID)
	if err := h.profiles.UpdateMerchantEarnings(ctx, order.MerchantID, order.TotalPrice); err != nil {
		logger.WithError(err).WithField("merchant_id", order.MerchantID).Warn("failed to credit merchant earnings")
	}
	if err := h.profiles.UpdateCustomerRewards(ctx, order.CustomerID, order.TotalPrice); err != nil {
		logger.WithError(err).WithField("customer_id", order.CustomerID).Warn("failed to credit customer rewards")
	}
	return order, nil
}

// cancelledHandler отменяет заказ и возвращает списанные баллы.
type cancelledHandler struct {
	handlerBase
	profiles domain.ProfileService
}

func (h *cancelledHandler) Status() domain.OrderStatus { return domain.OrderStatusCancelled }

func (h *cancelledHandler) Apply(ctx context.Context, oc OrderContext) (domain.Order, error) {
	order, err := h.move(ctx, h.next(oc, domain.ActorMerchant))
	if err != nil {
		return domain.Order{}, err
	}

	if order.CustomerRewardsPointsUsed.IsPositive() {
		if err := h.profiles.UpdateCustomerRewards(ctx, order.CustomerID, order.CustomerRewardsPointsUsed); err != nil {
			h.logger.WithError(err).WithFields(log.Fields{
				"order_id":    order.OrderID,
				"customer_id": order.CustomerID,
				"points":      order.CustomerRewardsPointsUsed.String(),
			}).Warn("failed to restore customer reward points")
		}
	}
	return order, nil
}

var (
	_ OrderStateHandler = (*acceptedHandler)(nil)
	_ OrderStateHandler = (*readyHandler)(nil)
	_ OrderStateHandler = (*deliveryAcceptedHandler)(nil)
	_ OrderStateHandler = (*deliveryPickedUpHandler)(nil)
	_ OrderStateHandler = (*completedHandler)(nil)
	_ OrderStateHandler = (*cancelledHandler)(nil)
)
