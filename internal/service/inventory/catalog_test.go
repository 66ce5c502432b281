package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
)

func widget() domain.Product {
	return domain.Product{
		ProductID:      "P1",
		ListingPrice:   decimal.RequireFromString("5.00"),
		AvailableStock: 10,
		CategoryID:     "cat",
		MerchantID:     "m1",
	}
}

func TestCatalog_GetProductsSkipsUnknown(t *testing.T) {
	c := NewCatalog(widget())

	products, err := c.GetProducts(context.Background(), []string{"p1", "missing"})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "P1", products[0].ProductID)
	assert.Equal(t, 1, c.LookupCalls)
}

func TestCatalog_UpdateStock(t *testing.T) {
	c := NewCatalog(widget())
	ctx := context.Background()

	require.NoError(t, c.UpdateStock(ctx, widget().StockAfter(3)))
	stock, ok := c.Stock("P1")
	require.True(t, ok)
	assert.Equal(t, int64(7), stock)

	err := c.UpdateStock(ctx, domain.ProductStockUpdateRequest{ProductID: "P1", AvailableStock: -1})
	assert.ErrorIs(t, err, domain.ErrExternalService)

	err = c.UpdateStock(ctx, domain.ProductStockUpdateRequest{ProductID: "nope"})
	assert.ErrorIs(t, err, domain.ErrExternalService)
}

func TestCatalog_InjectedFailures(t *testing.T) {
	c := NewCatalog(widget())
	c.LookupErr = errors.New("catalog down")
	c.StockErr = errors.New("stock down")

	_, err := c.GetProducts(context.Background(), []string{"P1"})
	assert.EqualError(t, err, "catalog down")
	assert.EqualError(t, c.UpdateStock(context.Background(), widget().StockAfter(1)), "stock down")
	assert.Equal(t, 1, c.StockCalls)
}
