// Package httpapi — тонкий HTTP-слой над сагой, машиной состояний и запросами.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
	"github.com/vladislavdragonenkov/orderflow/internal/service/statemachine"
)

// OrderCreator создаёт заказ из корзины.
type OrderCreator interface {
	CreateOrderFromCart(ctx context.Context, customerID string, useRewards, useDelivery bool) (domain.Order, error)
}

// StatusUpdater меняет статус заказа.
type StatusUpdater interface {
	UpdateOrderStatus(ctx context.Context, orderID, status string, payload statemachine.Payload) error
}

// OrderReader читает заказы.
type OrderReader interface {
	ListOrders(ctx context.Context, listKind, profileKind, profileID string) ([]domain.Order, error)
	ListActiveOrdersForDelivery(ctx context.Context) ([]domain.Order, error)
	GetOrder(ctx context.Context, orderID string) (domain.Order, error)
}

// Handler обслуживает публичные операции над заказами.
type Handler struct {
	creator OrderCreator
	updater StatusUpdater
	reader  OrderReader
	logger  *log.Entry
}

// NewHandler создаёт HTTP-обработчик.
func NewHandler(creator OrderCreator, updater StatusUpdater, reader OrderReader, logger *log.Entry) *Handler {
	if logger == nil {
		logger = log.New().WithField("component", "httpapi")
	}
	return &Handler{creator: creator, updater: updater, reader: reader, logger: logger}
}

// CreateOrder — POST /orders/{customerId}?useRewards=&useDelivery=.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerId")
	useRewards, err := boolParam(r, "useRewards")
	if err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}
	useDelivery, err := boolParam(r, "useDelivery")
	if err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.creator.CreateOrderFromCart(r.Context(), customerID, useRewards, useDelivery)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Order created successfully", toOrderResponse(order))
}

// GetOrder — GET /orders/{orderId}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.reader.GetOrder(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Order retrieved successfully", toOrderResponse(order))
}

// ListOrders — GET /orders?listType=&profileType=&profileId=.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	orders, err := h.reader.ListOrders(r.Context(), q.Get("listType"), q.Get("profileType"), q.Get("profileId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Orders retrieved successfully", toOrderResponses(orders))
}

// ListActiveOrdersForDelivery — GET /orders/delivery/active.
func (h *Handler) ListActiveOrdersForDelivery(w http.ResponseWriter, r *http.Request) {
	orders, err := h.reader.ListActiveOrdersForDelivery(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Orders retrieved successfully", toOrderResponses(orders))
}

// UpdateOrderStatus — PUT /orders/{orderId}/status/{status}, тело необязательно.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var payload statemachine.Payload
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
			writeFailure(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	orderID := chi.URLParam(r, "orderId")
	status := chi.URLParam(r, "status")
	if err := h.updater.UpdateOrderStatus(r.Context(), orderID, status, payload); err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, fmt.Sprintf("Order %s updated to %s", orderID, status), nil)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	entry := h.logger.WithError(err).WithFields(log.Fields{
		"method":     r.Method,
		"path":       r.URL.Path,
		"status":     status,
		"request_id": middleware.GetReqID(r.Context()),
	})
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Info("request rejected")
	}
	writeFailure(w, status, domain.PublicMessage(err))
}

func boolParam(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %q", name, raw)
	}
	return v, nil
}
