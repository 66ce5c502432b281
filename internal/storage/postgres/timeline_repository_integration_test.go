package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
	"github.com/vladislavdragonenkov/orderflow/internal/service/lifecycle"
)

func TestTimelineRepository_PostgresRecorderHistory(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	timeline := NewTimelineRepository(store)
	recorder := lifecycle.NewRecorder(nil, timeline, nil, nil, nil)

	order := recordedOrder("timeline-order")
	recorder.OrderCreated(order)

	accepted := order.Clone()
	accepted.Status = domain.OrderStatusAccepted
	accepted.UpdatedBy = domain.ActorMerchant
	recorder.StatusChanged(accepted, domain.OrderStatusCreated)

	recorder.CreationFailed(order, "stock update failed")

	events, err := timeline.List("timeline-order")
	if err != nil {
		t.Fatalf("list timeline: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 timeline events, got %d: %+v", len(events), events)
	}

	want := []struct {
		typ    string
		actor  domain.Actor
		reason string
	}{
		{domain.TimelineOrderCreated, domain.ActorCustomer, ""},
		{domain.TimelineStatusChanged, domain.ActorMerchant, ""},
		{domain.TimelineCreationRollback, domain.ActorCustomer, "stock update failed"},
	}
	for i, w := range want {
		got := events[i]
		if got.OrderID != "timeline-order" || got.Type != w.typ || got.Actor != w.actor || got.Reason != w.reason {
			t.Fatalf("event %d: got %+v, want %+v", i, got, w)
		}
		if got.Occurred.Location() != time.UTC {
			t.Fatalf("event %d: occurred must be UTC, got %v", i, got.Occurred.Location())
		}
		if i > 0 && got.Occurred.Before(events[i-1].Occurred) {
			t.Fatalf("events out of order at %d: %+v", i, events)
		}
	}
}

func TestTimelineRepository_PostgresExplicitOccurredOrdering(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	timeline := NewTimelineRepository(store)

	late := time.Date(2024, 5, 1, 12, 0, 0, 123456789, time.UTC)
	early := late.Add(-time.Minute)

	for _, event := range []domain.TimelineEvent{
		{OrderID: "explicit", Type: domain.TimelineStatusChanged, Actor: domain.ActorDeliveryPartner, Occurred: late},
		{OrderID: "explicit", Type: domain.TimelineOrderCreated, Actor: domain.ActorCustomer, Occurred: early},
		{OrderID: "explicit", Type: domain.TimelineStatusChanged, Actor: domain.ActorMerchant, Occurred: late},
	} {
		if err := timeline.Append(event); err != nil {
			t.Fatalf("append %s: %v", event.Type, err)
		}
	}

	events, err := timeline.List("explicit")
	if err != nil {
		t.Fatalf("list timeline: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Type != domain.TimelineOrderCreated {
		t.Fatalf("earliest event must come first: %+v", events)
	}
	// при равном времени сохраняется порядок вставки
	if events[1].Actor != domain.ActorDeliveryPartner || events[2].Actor != domain.ActorMerchant {
		t.Fatalf("unexpected tie order: %q, %q", events[1].Actor, events[2].Actor)
	}
	if !events[1].Occurred.Equal(late.Truncate(time.Microsecond)) {
		t.Fatalf("occurred must round-trip at microsecond precision, got %v", events[1].Occurred)
	}
}

func TestTimelineRepository_PostgresRejectsIncompleteEvent(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	timeline := NewTimelineRepository(store)

	for _, event := range []domain.TimelineEvent{
		{Type: domain.TimelineOrderCreated},
		{OrderID: "order-1"},
	} {
		if err := timeline.Append(event); !errors.Is(err, errTimelineEventIncomplete) {
			t.Fatalf("expected incomplete event error for %+v, got %v", event, err)
		}
	}
}

func TestTimelineRepository_PostgresUnknownOrder(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	timeline := NewTimelineRepository(store)

	events, err := timeline.List("missing-order")
	if err != nil {
		t.Fatalf("list for missing order should not fail: %v", err)
	}
	if events == nil || len(events) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", events)
	}
}
