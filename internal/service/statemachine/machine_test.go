package statemachine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
	"github.com/vladislavdragonenkov/orderflow/internal/metrics"
	"github.com/vladislavdragonenkov/orderflow/internal/service/lifecycle"
	"github.com/vladislavdragonenkov/orderflow/internal/storage/memory"
)

type rewardCall struct {
	id     string
	amount decimal.Decimal
}

type stubProfiles struct {
	mu        sync.Mutex
	customers []rewardCall
	merchants []rewardCall
	err       error
}

func (s *stubProfiles) GetRewardOffset(context.Context, string) (domain.RewardOffset, error) {
	return domain.RewardOffset{}, nil
}

func (s *stubProfiles) UpdateCustomerRewards(_ context.Context, id string, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers = append(s.customers, rewardCall{id: id, amount: amount})
	return s.err
}

func (s *stubProfiles) UpdateMerchantEarnings(_ context.Context, id string, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.merchants = append(s.merchants, rewardCall{id: id, amount: amount})
	return s.err
}

type deliveryCall struct {
	req    domain.DeliveryStatusRequest
	create bool
}

type stubDelivery struct {
	mu    sync.Mutex
	calls []deliveryCall
	err   error
}

func (s *stubDelivery) UpdateDelivery(_ context.Context, req domain.DeliveryStatusRequest, create bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.calls = append(s.calls, deliveryCall{req: req, create: create})
	return nil
}

type testEnv struct {
	store interface {
		domain.OrderStore
		Locate(string) []domain.Partition
	}
	profiles *stubProfiles
	delivery *stubDelivery
	outbox   interface {
		domain.OutboxRepository
		AllPending() []domain.OutboxMessage
	}
	machine *Machine
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:    memory.NewOrderStore(),
		profiles: &stubProfiles{},
		delivery: &stubDelivery{},
		outbox:   memory.NewOutboxRepository(),
	}
	logger := log.New().WithField("test", t.Name())
	m := metrics.NewOrderMetricsWithRegisterer(prometheus.NewRegistry())
	recorder := lifecycle.NewRecorder(env.outbox, memory.NewTimelineRepository(), nil, m, logger)
	env.machine = NewMachine(env.store, env.profiles, env.delivery, recorder, m, logger)
	env.machine.now = func() time.Time { return time.UnixMilli(1700000500000).UTC() }
	return env
}

func (e *testEnv) seed(t *testing.T, status domain.OrderStatus, mutate func(o *domain.Order)) domain.Order {
	t.Helper()
	order := domain.Order{
		OrderID:    "order-1",
		CustomerID: "c1",
		MerchantID: "m1",
		Items: []domain.OrderItem{{
			ProductID: "p1",
			Quantity:  2,
			UnitPrice: decimal.RequireFromString("10.00"),
		}},
		TotalPrice:                decimal.RequireFromString("20.00"),
		RewardsAmountUsed:         decimal.Zero,
		CustomerRewardsPointsUsed: decimal.Zero,
		Status:                    status,
		CreatedDate:               1700000000000,
		UpdatedDate:               1700000000000,
		CreatedBy:                 domain.ActorCustomer,
		UpdatedBy:                 domain.ActorCustomer,
	}
	if mutate != nil {
		mutate(&order)
	}
	require.NoError(t, e.store.Insert(context.Background(), domain.PartitionActive, order))
	return order
}

func withDelivery(partnerID string) func(o *domain.Order) {
	return func(o *domain.Order) {
		o.UseDelivery = true
		o.DeliveryPartnerID = partnerID
	}
}

func (e *testEnv) get(t *testing.T, p domain.Partition) domain.Order {
	t.Helper()
	order, err := e.store.Get(context.Background(), p, "order-1")
	require.NoError(t, err)
	return order
}

func requireKind(t *testing.T, err error, kind domain.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	got, ok := domain.KindOf(err)
	require.True(t, ok, "error %v has no kind", err)
	assert.Equal(t, kind, got, "error: %v", err)
}

func TestUpdateOrderStatus_MerchantFlow(t *testing.T) {
	env := newEnv(t)
	env.seed(t, domain.OrderStatusCreated, nil)
	ctx := context.Background()

	require.NoError(t, env.machine.UpdateOrderStatus(ctx, "order-1", "accepted", Payload{}))
	accepted := env.get(t, domain.PartitionActive)
	assert.Equal(t, domain.OrderStatusAccepted, accepted.Status)
	assert.Equal(t, domain.ActorMerchant, accepted.UpdatedBy)
	assert.Equal(t, int64(1700000500000), accepted.UpdatedDate)
	assert.Equal(t, int64(1), accepted.Version)

	require.NoError(t, env.machine.UpdateOrderStatus(ctx, "order-1", "READY", Payload{}))
	require.NoError(t, env.machine.UpdateOrderStatus(ctx, "order-1", "COMPLETED", Payload{}))

	assert.Equal(t, []domain.Partition{domain.PartitionCompleted}, env.store.Locate("order-1"))
	completed := env.get(t, domain.PartitionCompleted)
	assert.Equal(t, domain.OrderStatusCompleted, completed.Status)
	assert.Equal(t, domain.ActorMerchant, completed.UpdatedBy)
	assert.Empty(t, env.delivery.calls, "no delivery calls for pickup orders")

	require.Len(t, env.profiles.merchants, 1)
	assert.Equal(t, "m1", env.profiles.merchants[0].id)
	assert.True(t, env.profiles.merchants[0].amount.Equal(decimal.RequireFromString("20")))
	require.Len(t, env.profiles.customers, 1)
	assert.Equal(t, "c1", env.profiles.customers[0].id)
	assert.True(t, env.profiles.customers[0].amount.Equal(decimal.RequireFromString("20")))

	events := env.outbox.AllPending()
	require.Len(t, events, 3)
	for _, e := range events {
		assert.Equal(t, "order.status_changed", e.EventType)
	}
}

func TestUpdateOrderStatus_DeliveryFlow(t *testing.T) {
	env := newEnv(t)
	env.seed(t, domain.OrderStatusReady, func(o *domain.Order) { o.UseDelivery = true })
	ctx := context.Background()

	require.NoError(t, env.machine.UpdateOrderStatus(ctx, "order-1", "DELIVERY_ACCEPTED", Payload{DeliveryPartnerID: "d1"}))
	order := env.get(t, domain.PartitionActive)
	assert.Equal(t, "d1", order.DeliveryPartnerID)
	assert.Equal(t, domain.ActorDeliveryPartner, order.UpdatedBy)

	require.NoError(t, env.machine.UpdateOrderStatus(ctx, "order-1", "DELIVERY_PICKED_UP", Payload{}))
	require.NoError(t, env.machine.UpdateOrderStatus(ctx, "order-1", "COMPLETED", Payload{}))

	completed := env.get(t, domain.PartitionCompleted)
	assert.Equal(t, domain.ActorDeliveryPartner, completed.UpdatedBy)

	require.Len(t, env.delivery.calls, 3)
	assert.True(t, env.delivery.calls[0].create)
	assert.Equal(t, "d1", env.delivery.calls[0].req.DeliveryPersonID)
	assert.Equal(t, domain.OrderStatusDeliveryAccepted, env.delivery.calls[0].req.Status)
	assert.False(t, env.delivery.calls[1].create)
	assert.Equal(t, domain.OrderStatusDeliveryPickedUp, env.delivery.calls[1].req.Status)
	assert.Equal(t, domain.OrderStatusCompleted, env.delivery.calls[2].req.Status)
	assert.Equal(t, "Delivery status updated for orderId: order-1 to status : COMPLETED", env.delivery.calls[2].req.Message)
}

func TestUpdateOrderStatus_DeliveryAcceptedValidation(t *testing.T) {
	t.Run("delivery disabled", func(t *testing.T) {
		env := newEnv(t)
		env.seed(t, domain.OrderStatusReady, nil)

		err := env.machine.UpdateOrderStatus(context.Background(), "order-1", "DELIVERY_ACCEPTED", Payload{DeliveryPartnerID: "d1"})
		require.ErrorIs(t, err, domain.ErrDeliveryNotEnabled)
		requireKind(t, err, domain.KindBusinessRule)
		assert.Equal(t, domain.OrderStatusReady, env.get(t, domain.PartitionActive).Status)
	})

	t.Run("missing partner", func(t *testing.T) {
		env := newEnv(t)
		env.seed(t, domain.OrderStatusReady, func(o *domain.Order) { o.UseDelivery = true })

		err := env.machine.UpdateOrderStatus(context.Background(), "order-1", "DELIVERY_ACCEPTED", Payload{})
		require.ErrorIs(t, err, domain.ErrDeliveryPartnerRequired)
		requireKind(t, err, domain.KindInvalidInput)
		assert.Empty(t, env.delivery.calls)
	})

	t.Run("delivery service failure", func(t *testing.T) {
		env := newEnv(t)
		env.seed(t, domain.OrderStatusReady, func(o *domain.Order) { o.UseDelivery = true })
		env.delivery.err = domain.ErrExternalService

		err := env.machine.UpdateOrderStatus(context.Background(), "order-1", "DELIVERY_ACCEPTED", Payload{DeliveryPartnerID: "d1"})
		require.ErrorIs(t, err, domain.ErrDeliveryUpdateFailed)
		requireKind(t, err, domain.KindExternalService)
		assert.Empty(t, env.get(t, domain.PartitionActive).DeliveryPartnerID)
	})
}

func TestUpdateOrderStatus_PickedUpRequiresAcceptedDelivery(t *testing.T) {
	env := newEnv(t)
	env.seed(t, domain.OrderStatusDeliveryAccepted, func(o *domain.Order) { o.UseDelivery = true })

	err := env.machine.UpdateOrderStatus(context.Background(), "order-1", "DELIVERY_PICKED_UP", Payload{})
	require.ErrorIs(t, err, domain.ErrDeliveryNotAccepted)
	requireKind(t, err, domain.KindBusinessRule)
}

func TestUpdateOrderStatus_CompletedDeliveryFailureLeavesOrder(t *testing.T) {
	env := newEnv(t)
	env.seed(t, domain.OrderStatusDeliveryPickedUp, withDelivery("d1"))
	env.delivery.err = errors.New("timeout")

	err := env.machine.UpdateOrderStatus(context.Background(), "order-1", "COMPLETED", Payload{})
	require.ErrorIs(t, err, domain.ErrDeliveryUpdateFailed)
	assert.Equal(t, []domain.Partition{domain.PartitionActive}, env.store.Locate("order-1"))
	assert.Empty(t, env.profiles.merchants)
}

func TestUpdateOrderStatus_CompletedCreditFailuresAreNotFatal(t *testing.T) {
	env := newEnv(t)
	env.seed(t, domain.OrderStatusReady, nil)
	env.profiles.err = domain.ErrExternalService

	require.NoError(t, env.machine.UpdateOrderStatus(context.Background(), "order-1", "COMPLETED", Payload{}))
	assert.Equal(t, []domain.Partition{domain.PartitionCompleted}, env.store.Locate("order-1"))
}

func TestUpdateOrderStatus_CancelRestoresPoints(t *testing.T) {
	env := newEnv(t)
	env.seed(t, domain.OrderStatusAccepted, func(o *domain.Order) {
		o.UseRewards = true
		o.RewardsAmountUsed = decimal.RequireFromString("5.00")
		o.CustomerRewardsPointsUsed = decimal.NewFromInt(500)
		o.TotalPrice = decimal.RequireFromString("15.00")
	})

	require.NoError(t, env.machine.UpdateOrderStatus(context.Background(), "order-1", "cancelled", Payload{}))

	assert.Equal(t, []domain.Partition{domain.PartitionCancelled}, env.store.Locate("order-1"))
	cancelled := env.get(t, domain.PartitionCancelled)
	assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, domain.ActorMerchant, cancelled.UpdatedBy)

	require.Len(t, env.profiles.customers, 1)
	assert.Equal(t, "c1", env.profiles.customers[0].id)
	assert.True(t, env.profiles.customers[0].amount.Equal(decimal.NewFromInt(500)))
	assert.Empty(t, env.profiles.merchants)
}

func TestUpdateOrderStatus_CancelWithoutPointsSkipsRestore(t *testing.T) {
	env := newEnv(t)
	env.seed(t, domain.OrderStatusCreated, nil)

	require.NoError(t, env.machine.UpdateOrderStatus(context.Background(), "order-1", "CANCELLED", Payload{}))
	assert.Empty(t, env.profiles.customers)
}

func TestUpdateOrderStatus_Rejections(t *testing.T) {
	cases := []struct {
		name    string
		seeded  domain.OrderStatus
		target  string
		wantErr error
		kind    domain.ErrorKind
	}{
		{"unknown status", domain.OrderStatusCreated, "SHIPPED", domain.ErrInvalidStatus, domain.KindInvalidInput},
		{"created is entry only", domain.OrderStatusAccepted, "CREATED", domain.ErrInvalidStatus, domain.KindInvalidInput},
		{"skip accepted", domain.OrderStatusCreated, "READY", domain.ErrInvalidTransition, domain.KindBusinessRule},
		{"complete too early", domain.OrderStatusAccepted, "COMPLETED", domain.ErrInvalidTransition, domain.KindBusinessRule},
		{"backwards", domain.OrderStatusReady, "ACCEPTED", domain.ErrInvalidTransition, domain.KindBusinessRule},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newEnv(t)
			env.seed(t, tc.seeded, nil)

			err := env.machine.UpdateOrderStatus(context.Background(), "order-1", tc.target, Payload{})
			require.ErrorIs(t, err, tc.wantErr)
			requireKind(t, err, tc.kind)

			stored := env.get(t, domain.PartitionActive)
			assert.Equal(t, tc.seeded, stored.Status)
			assert.Empty(t, env.outbox.AllPending())
		})
	}
}

func TestUpdateOrderStatus_NotFound(t *testing.T) {
	env := newEnv(t)

	for _, status := range []string{"ACCEPTED", "BOGUS", "CREATED"} {
		err := env.machine.UpdateOrderStatus(context.Background(), "missing", status, Payload{})
		require.ErrorIs(t, err, domain.ErrOrderNotFound, status)
		requireKind(t, err, domain.KindNotFound)
	}
}

func TestUpdateOrderStatus_TerminalOrderIsNotActive(t *testing.T) {
	env := newEnv(t)
	env.seed(t, domain.OrderStatusReady, nil)
	require.NoError(t, env.machine.UpdateOrderStatus(context.Background(), "order-1", "CANCELLED", Payload{}))

	err := env.machine.UpdateOrderStatus(context.Background(), "order-1", "COMPLETED", Payload{})
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestUpdateOrderStatus_ConcurrentTerminalTransitions(t *testing.T) {
	for i := 0; i < 20; i++ {
		env := newEnv(t)
		env.seed(t, domain.OrderStatusReady, nil)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for j, target := range []string{"COMPLETED", "CANCELLED"} {
			wg.Add(1)
			go func(j int, target string) {
				defer wg.Done()
				errs[j] = env.machine.UpdateOrderStatus(context.Background(), "order-1", target, Payload{})
			}(j, target)
		}
		wg.Wait()

		var succeeded int
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.True(t, domain.IsConflict(err) || domain.IsNotFound(err), "unexpected error: %v", err)
		}
		assert.Equal(t, 1, succeeded)
		assert.Len(t, env.store.Locate("order-1"), 1, "order must live in exactly one partition")
	}
}

type conflictingStore struct {
	domain.OrderStore
}

func (conflictingStore) Update(context.Context, domain.Order) (int64, error) {
	return 0, domain.ErrConflictingUpdate
}

func (conflictingStore) Move(context.Context, domain.Order, domain.Partition) error {
	return errors.New("connection reset")
}

func TestUpdateOrderStatus_StoreErrors(t *testing.T) {
	env := newEnv(t)
	env.seed(t, domain.OrderStatusCreated, nil)
	machine := NewMachine(conflictingStore{env.store}, env.profiles, env.delivery, nil, nil, nil)

	err := machine.UpdateOrderStatus(context.Background(), "order-1", "ACCEPTED", Payload{})
	require.ErrorIs(t, err, domain.ErrConflictingUpdate)
	requireKind(t, err, domain.KindConflict)

	err = machine.UpdateOrderStatus(context.Background(), "order-1", "CANCELLED", Payload{})
	require.ErrorIs(t, err, domain.ErrPersistenceFailed)
	requireKind(t, err, domain.KindPersistence)
}
