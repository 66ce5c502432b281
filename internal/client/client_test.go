package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  map[string][]string
	Body   []byte
}

type fakeService struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (f *fakeService) all() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

// newFakeService поднимает сервер, который отвечает заданным конвертом и запоминает запросы.
func newFakeService(t *testing.T, status int, env map[string]any) (*httptest.Server, *fakeService) {
	t.Helper()

	fake := &fakeService{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		fake.mu.Lock()
		fake.requests = append(fake.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Body:   body,
		})
		fake.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(env)
	}))
	t.Cleanup(srv.Close)
	return srv, fake
}

func TestProductClient_GetProducts(t *testing.T) {
	srv, fake := newFakeService(t, http.StatusOK, map[string]any{
		"status":  "success",
		"message": "ok",
		"data": []map[string]any{
			{
				"productId":      "p1",
				"listingPrice":   10.10,
				"availableStock": 7,
				"category":       map[string]any{"categoryId": "c1"},
				"merchantId":     "m1",
			},
		},
	})

	client, err := NewProductClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	products, err := client.GetProducts(context.Background(), []string{"p1", "p2"})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "p1", products[0].ProductID)
	assert.True(t, products[0].ListingPrice.Equal(decimal.RequireFromString("10.10")))
	assert.Equal(t, int64(7), products[0].AvailableStock)
	assert.Equal(t, "c1", products[0].CategoryID)
	assert.Equal(t, "m1", products[0].MerchantID)

	requests := fake.all()
	require.Len(t, requests, 1)
	req := requests[0]
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/products/ids", req.Path)
	assert.Equal(t, []string{"p1,p2"}, req.Query["productIds"])
}

func TestProductClient_UpdateStock(t *testing.T) {
	srv, fake := newFakeService(t, http.StatusOK, map[string]any{"status": "success"})

	client, err := NewProductClient(Config{BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	err = client.UpdateStock(context.Background(), domain.ProductStockUpdateRequest{
		ProductID:      "p1",
		MerchantID:     "m1",
		CategoryID:     "c1",
		AvailableStock: 5,
	})
	require.NoError(t, err)

	requests := fake.all()
	require.Len(t, requests, 1)
	req := requests[0]
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/merchants/products/p1", req.Path)
	assert.Equal(t, []string{"m1"}, req.Query["user-id"])
	assert.JSONEq(t, `{"productId":"p1","merchantId":"m1","categoryId":"c1","availableStock":5}`, string(req.Body))
}

func TestCaller_FailureEnvelope(t *testing.T) {
	srv, _ := newFakeService(t, http.StatusOK, map[string]any{"status": "failure", "message": "out of stock"})

	client, err := NewProductClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	err = client.UpdateStock(context.Background(), domain.ProductStockUpdateRequest{ProductID: "p1", MerchantID: "m1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrExternalService))
	assert.Contains(t, err.Error(), "out of stock")
}

func TestCaller_HTTPErrorStatus(t *testing.T) {
	srv, _ := newFakeService(t, http.StatusServiceUnavailable, map[string]any{"status": "failure", "message": "maintenance"})

	client, err := NewProfileClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.GetRewardOffset(context.Background(), "c1")
	require.ErrorIs(t, err, domain.ErrExternalService)
	assert.Contains(t, err.Error(), "503")
}

func TestCaller_ReadTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	client, err := NewDeliveryClient(Config{BaseURL: srv.URL, ReadTimeout: 50 * time.Millisecond})
	require.NoError(t, err)

	start := time.Now()
	err = client.UpdateDelivery(context.Background(), domain.DeliveryStatusRequest{OrderID: "o1"}, false)
	require.ErrorIs(t, err, domain.ErrExternalService)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNewCaller_Validation(t *testing.T) {
	_, err := NewProductClient(Config{})
	require.Error(t, err)

	_, err = NewProductClient(Config{BaseURL: "products.local"})
	require.Error(t, err)

	c, err := newCaller("product", Config{BaseURL: "http://products.local/api"})
	require.NoError(t, err)
	assert.Equal(t, DefaultReadTimeout, c.readTimeout)
	assert.Equal(t, "http://products.local/api/customers/a%2Fb/rewards", c.endpoint(nil, "customers", "a/b", "rewards"))
}

func TestProfileClient(t *testing.T) {
	srv, fake := newFakeService(t, http.StatusOK, map[string]any{
		"status": "success",
		"data":   map[string]any{"rewardAmount": "5.00", "rewardPoints": 500},
	})

	client, err := NewProfileClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)
	ctx := context.Background()

	offset, err := client.GetRewardOffset(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, offset.RewardAmount.Equal(decimal.RequireFromString("5")))
	assert.True(t, offset.RewardPoints.Equal(decimal.NewFromInt(500)))

	require.NoError(t, client.UpdateCustomerRewards(ctx, "c1", decimal.Zero))
	require.NoError(t, client.UpdateMerchantEarnings(ctx, "m1", decimal.RequireFromString("20.50")))

	requests := fake.all()
	require.Len(t, requests, 3)
	assert.Equal(t, "/customers/c1/rewards", requests[0].Path)
	assert.Equal(t, http.MethodPut, requests[1].Method)
	assert.Equal(t, "/customers/c1/rewards/0", requests[1].Path)
	assert.Equal(t, "/merchants/m1/rewards/20.5", requests[2].Path)
}

func TestProfileClient_EmptyOffset(t *testing.T) {
	srv, _ := newFakeService(t, http.StatusOK, map[string]any{"status": "success", "data": nil})

	client, err := NewProfileClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	offset, err := client.GetRewardOffset(context.Background(), "c1")
	require.NoError(t, err)
	assert.True(t, offset.IsEmpty())
}

func TestDeliveryClient(t *testing.T) {
	srv, fake := newFakeService(t, http.StatusOK, map[string]any{"status": "success"})

	client, err := NewDeliveryClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)
	ctx := context.Background()

	order := domain.Order{OrderID: "o1", CustomerID: "c1"}
	require.NoError(t, client.UpdateDelivery(ctx, domain.NewDeliveryStatusRequest(order, "dp1", domain.OrderStatusDeliveryAccepted), true))
	require.NoError(t, client.UpdateDelivery(ctx, domain.NewDeliveryStatusRequest(order, "dp1", domain.OrderStatusDeliveryPickedUp), false))

	requests := fake.all()
	require.Len(t, requests, 2)
	create := requests[0]
	assert.Equal(t, http.MethodPost, create.Method)
	assert.Equal(t, "/deliveries/", create.Path)
	assert.Equal(t, []string{"o1"}, create.Query["orderId"])
	assert.Equal(t, []string{"dp1"}, create.Query["deliveryPersonId"])
	assert.Equal(t, []string{"c1"}, create.Query["customerId"])

	update := requests[1]
	assert.Equal(t, http.MethodPut, update.Method)
	assert.Equal(t, "/deliveries/status", update.Path)
	assert.JSONEq(t, `{
		"orderId":"o1",
		"customerId":"c1",
		"deliveryPersonId":"dp1",
		"status":"DELIVERY_PICKED_UP",
		"message":"Delivery status updated for orderId: o1 to status : DELIVERY_PICKED_UP"
	}`, string(update.Body))
}
