package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
)

// helper для создания базового заказа с одной позицией.
func makeOrder() domain.Order {
	now := time.Now().UTC().UnixMilli()
	return domain.Order{
		OrderID:    "order-1",
		CustomerID: "customer-1",
		MerchantID: "merchant-1",
		Items: []domain.OrderItem{
			{ProductID: "p1", Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
		},
		TotalPrice:  decimal.RequireFromString("20.00"),
		Status:      domain.OrderStatusCreated,
		CreatedDate: now,
		UpdatedDate: now,
		CreatedBy:   domain.ActorCustomer,
		UpdatedBy:   domain.ActorCustomer,
	}
}

func TestOrderValidateInvariants_Ok(t *testing.T) {
	order := makeOrder()
	if errs := order.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}
}

func TestOrderValidateInvariants_RewardsOffset(t *testing.T) {
	order := makeOrder()
	order.UseRewards = true
	order.RewardsAmountUsed = decimal.RequireFromString("5.00")
	order.TotalPrice = decimal.RequireFromString("15.00")

	if errs := order.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}
}

func TestOrderValidateInvariants_Errors(t *testing.T) {
	cases := []struct {
		name string
		mut  func(o *domain.Order)
		want error
	}{
		{name: "no id", mut: func(o *domain.Order) { o.OrderID = "" }, want: domain.ErrOrderIDRequired},
		{name: "no customer", mut: func(o *domain.Order) { o.CustomerID = "" }, want: domain.ErrCustomerRequired},
		{name: "no merchant", mut: func(o *domain.Order) { o.MerchantID = "" }, want: domain.ErrMerchantRequired},
		{name: "no items", mut: func(o *domain.Order) { o.Items = nil }, want: domain.ErrItemsRequired},
		{name: "qty invalid", mut: func(o *domain.Order) { o.Items[0].Quantity = 0 }, want: domain.ErrItemQtyInvalid},
		{
			name: "price invalid",
			mut:  func(o *domain.Order) { o.Items[0].UnitPrice = decimal.RequireFromString("-1") },
			want: domain.ErrItemPriceInvalid,
		},
		{
			name: "negative total",
			mut:  func(o *domain.Order) { o.TotalPrice = decimal.RequireFromString("-0.01") },
			want: domain.ErrTotalNegative,
		},
		{
			name: "total mismatch",
			mut:  func(o *domain.Order) { o.TotalPrice = decimal.RequireFromString("19.99") },
			want: domain.ErrTotalMismatch,
		},
		{
			name: "partner without delivery",
			mut:  func(o *domain.Order) { o.DeliveryPartnerID = "dp-1" },
			want: domain.ErrPartnerWithoutDelivery,
		},
		{
			name: "rewards without opt in",
			mut: func(o *domain.Order) {
				o.RewardsAmountUsed = decimal.RequireFromString("5")
				o.TotalPrice = decimal.RequireFromString("15")
			},
			want: domain.ErrRewardsWithoutOptIn,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := makeOrder().Clone()
			tc.mut(&order)

			errs := order.ValidateInvariants()
			found := false
			for _, err := range errs {
				if errors.Is(err, tc.want) {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected %v among %v", tc.want, errs)
			}
		})
	}
}

func TestParseOrderStatus(t *testing.T) {
	status, err := domain.ParseOrderStatus("delivery_picked_up")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != domain.OrderStatusDeliveryPickedUp {
		t.Fatalf("unexpected status %q", status)
	}

	if _, err := domain.ParseOrderStatus("SHIPPED"); !errors.Is(err, domain.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		name        string
		from        domain.OrderStatus
		useDelivery bool
		to          domain.OrderStatus
		want        bool
	}{
		{"created to accepted", domain.OrderStatusCreated, false, domain.OrderStatusAccepted, true},
		{"created to ready", domain.OrderStatusCreated, false, domain.OrderStatusReady, false},
		{"accepted to ready", domain.OrderStatusAccepted, false, domain.OrderStatusReady, true},
		{"ready to delivery accepted", domain.OrderStatusReady, true, domain.OrderStatusDeliveryAccepted, true},
		{"delivery accepted to picked up", domain.OrderStatusDeliveryAccepted, true, domain.OrderStatusDeliveryPickedUp, true},
		{"picked up to completed", domain.OrderStatusDeliveryPickedUp, true, domain.OrderStatusCompleted, true},
		{"ready to completed without delivery", domain.OrderStatusReady, false, domain.OrderStatusCompleted, true},
		{"ready to completed with delivery", domain.OrderStatusReady, true, domain.OrderStatusCompleted, false},
		{"created to cancelled", domain.OrderStatusCreated, false, domain.OrderStatusCancelled, true},
		{"picked up to cancelled", domain.OrderStatusDeliveryPickedUp, true, domain.OrderStatusCancelled, true},
		{"completed to cancelled", domain.OrderStatusCompleted, false, domain.OrderStatusCancelled, false},
		{"to created", domain.OrderStatusAccepted, false, domain.OrderStatusCreated, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := makeOrder()
			order.Status = tc.from
			order.UseDelivery = tc.useDelivery
			if got := domain.CanTransition(order, tc.to); got != tc.want {
				t.Fatalf("CanTransition(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.want)
			}
		})
	}
}

func TestOrderFilterMatch(t *testing.T) {
	order := makeOrder()
	order.UseDelivery = true
	order.Status = domain.OrderStatusReady

	if !(domain.OrderFilter{Field: domain.FieldMerchantID, Value: "merchant-1"}).Match(order) {
		t.Fatal("expected merchant filter to match")
	}
	if (domain.OrderFilter{Field: domain.FieldCustomerID, Value: "other"}).Match(order) {
		t.Fatal("expected customer filter to reject")
	}
	if !(domain.OrderFilter{Status: domain.OrderStatusReady, DeliveryOnly: true}).Match(order) {
		t.Fatal("expected delivery filter to match")
	}
	order.UseDelivery = false
	if (domain.OrderFilter{Status: domain.OrderStatusReady, DeliveryOnly: true}).Match(order) {
		t.Fatal("expected delivery filter to reject order without delivery")
	}

	order.DeliveryPartnerID = ""
	if (domain.OrderFilter{Field: domain.FieldDeliveryPartnerID, Value: ""}).Match(order) {
		t.Fatal("expected empty partner id to never match")
	}
}

func TestTerminalPartition(t *testing.T) {
	cases := map[domain.OrderStatus]domain.Partition{
		domain.OrderStatusCompleted: domain.PartitionCompleted,
		domain.OrderStatusCancelled: domain.PartitionCancelled,
	}
	for status, want := range cases {
		got, ok := domain.TerminalPartition(status)
		if !ok || got != want {
			t.Fatalf("TerminalPartition(%s) = %s, %v", status, got, ok)
		}
		if !got.Valid() {
			t.Fatalf("partition %s must be valid", got)
		}
	}
	if _, ok := domain.TerminalPartition(domain.OrderStatusReady); ok {
		t.Fatal("READY is not terminal")
	}
	if domain.Partition("archive").Valid() {
		t.Fatal("unknown partition must be invalid")
	}
}

func TestCartProductIDs(t *testing.T) {
	cart := domain.Cart{Items: []domain.CartItem{
		{ProductID: "P1", Quantity: 1},
		{ProductID: "p2", Quantity: 1},
		{ProductID: "p1", Quantity: 3},
	}}

	ids := cart.ProductIDs()
	if len(ids) != 2 || ids[0] != "P1" || ids[1] != "p2" {
		t.Fatalf("unexpected ids %v", ids)
	}
}

func TestNewDeliveryStatusRequest(t *testing.T) {
	order := makeOrder()
	req := domain.NewDeliveryStatusRequest(order, "dp-1", domain.OrderStatusDeliveryPickedUp)

	want := "Delivery status updated for orderId: order-1 to status : DELIVERY_PICKED_UP"
	if req.Message != want {
		t.Fatalf("unexpected message %q", req.Message)
	}
	if req.DeliveryPersonID != "dp-1" || req.CustomerID != "customer-1" {
		t.Fatalf("unexpected request %+v", req)
	}
}
