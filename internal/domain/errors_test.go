package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsConflict(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "conflicting update",
			err:  ErrConflictingUpdate,
			want: true,
		},
		{
			name: "wrapped conflicting update",
			err:  fmt.Errorf("%w: order-1 version 3", ErrConflictingUpdate),
			want: true,
		},
		{
			name: "joined order exists",
			err:  errors.Join(ErrOrderExists, errors.New("additional context")),
			want: true,
		},
		{
			name: "other error",
			err:  ErrOrderNotFound,
			want: false,
		},
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsConflict(tt.err)
			if got != tt.want {
				t.Errorf("IsConflict() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		want   ErrorKind
		wantOK bool
	}{
		{name: "empty cart", err: ErrEmptyCart, want: KindNotFound, wantOK: true},
		{name: "invalid status", err: fmt.Errorf("%w: %q", ErrInvalidStatus, "SHIPPED"), want: KindInvalidInput, wantOK: true},
		{name: "delivery disabled", err: ErrDeliveryNotEnabled, want: KindBusinessRule, wantOK: true},
		{name: "stock", err: ErrStockUpdateFailed, want: KindExternalService, wantOK: true},
		{
			name:   "persistence wraps driver error",
			err:    fmt.Errorf("%w: %w", ErrPersistenceFailed, errors.New("connection reset")),
			want:   KindPersistence,
			wantOK: true,
		},
		{name: "plain error", err: errors.New("boom"), wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := KindOf(tt.err)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("KindOf() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestPublicMessage(t *testing.T) {
	wrapped := fmt.Errorf("%w: GET http://profile:8080/customers/c1/rewards: connection refused", ErrExternalService)
	if got := PublicMessage(wrapped); got != "external service call failed" {
		t.Fatalf("unexpected public message %q", got)
	}
	noOrders := NoOrdersFound(ListAll, FieldCustomerID, "c1")
	if got := PublicMessage(noOrders); got != "No all orders found for customerId: c1" {
		t.Fatalf("unexpected public message %q", got)
	}
	if got := PublicMessage(errors.New("dial tcp 10.0.0.1:5432")); got != "internal server error" {
		t.Fatalf("unexpected public message %q", got)
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(fmt.Errorf("%w: customer c1", ErrNoOrdersFound)) {
		t.Fatal("expected wrapped ErrNoOrdersFound to be not found")
	}
	if IsNotFound(ErrInvalidProfileType) {
		t.Fatal("invalid profile type must not be not found")
	}
}
