package domain

import (
	"fmt"
	"strings"
)

// ListKind выбирает разделы для списка заказов.
type ListKind string

const (
	ListActive    ListKind = "active"
	ListCompleted ListKind = "completed"
	ListCancelled ListKind = "cancelled"
	ListAll       ListKind = "all"
)

// ParseListKind разбирает тип списка без учёта регистра.
func ParseListKind(raw string) (ListKind, error) {
	kind := ListKind(strings.ToLower(strings.TrimSpace(raw)))
	switch kind {
	case ListActive, ListCompleted, ListCancelled, ListAll:
		return kind, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidListType, raw)
}

// ProfileKind — тип профиля, для которого строится список.
type ProfileKind string

const (
	ProfileCustomer        ProfileKind = "customer"
	ProfileMerchant        ProfileKind = "merchant"
	ProfileDeliveryPartner ProfileKind = "delivery-partner"
)

// OrderField — имя поля заказа, по которому фильтруется профиль.
type OrderField string

const (
	FieldCustomerID        OrderField = "customerId"
	FieldMerchantID        OrderField = "merchantId"
	FieldDeliveryPartnerID OrderField = "deliveryPartnerId"
)

// noOrdersError уточняет ErrNoOrdersFound типом списка и профилем.
type noOrdersError struct {
	msg string
}

func (e *noOrdersError) Error() string { return e.msg }

func (e *noOrdersError) Unwrap() error { return ErrNoOrdersFound }

// NoOrdersFound возвращает ошибку пустой выборки, совместимую с errors.Is(err, ErrNoOrdersFound).
func NoOrdersFound(list ListKind, field OrderField, id string) error {
	return &noOrdersError{msg: fmt.Sprintf("No %s orders found for %s: %s", list, field, id)}
}
