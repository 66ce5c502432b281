package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
)

// ProductClient ходит в сервис каталога.
type ProductClient struct {
	c *caller
}

// NewProductClient создаёт клиент каталога.
func NewProductClient(cfg Config) (*ProductClient, error) {
	c, err := newCaller("product", cfg)
	if err != nil {
		return nil, err
	}
	return &ProductClient{c: c}, nil
}

type productDTO struct {
	ProductID      string          `json:"productId"`
	ListingPrice   decimal.Decimal `json:"listingPrice"`
	AvailableStock int64           `json:"availableStock"`
	Category       struct {
		CategoryID string `json:"categoryId"`
	} `json:"category"`
	MerchantID string `json:"merchantId"`
}

type stockUpdateDTO struct {
	ProductID      string `json:"productId"`
	MerchantID     string `json:"merchantId"`
	CategoryID     string `json:"categoryId"`
	AvailableStock int64  `json:"availableStock"`
}

// GetProducts запрашивает товары одним вызовом GET /products/ids?productIds=<csv>.
func (p *ProductClient) GetProducts(ctx context.Context, productIDs []string) ([]domain.Product, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	target := p.c.endpoint(url.Values{"productIds": {strings.Join(productIDs, ",")}}, "products", "ids")

	var dtos []productDTO
	if err := p.c.call(ctx, http.MethodGet, target, nil, &dtos); err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(dtos))
	for _, dto := range dtos {
		products = append(products, domain.Product{
			ProductID:      dto.ProductID,
			ListingPrice:   dto.ListingPrice,
			AvailableStock: dto.AvailableStock,
			CategoryID:     dto.Category.CategoryID,
			MerchantID:     dto.MerchantID,
		})
	}
	return products, nil
}

// UpdateStock записывает новый остаток: PUT /merchants/products/{productId}?user-id={merchantId}.
func (p *ProductClient) UpdateStock(ctx context.Context, req domain.ProductStockUpdateRequest) error {
	if req.ProductID == "" {
		return fmt.Errorf("%w: product id is required for stock update", domain.ErrExternalService)
	}
	target := p.c.endpoint(url.Values{"user-id": {req.MerchantID}}, "merchants", "products", req.ProductID)
	body := stockUpdateDTO{
		ProductID:      req.ProductID,
		MerchantID:     req.MerchantID,
		CategoryID:     req.CategoryID,
		AvailableStock: req.AvailableStock,
	}
	return p.c.call(ctx, http.MethodPut, target, body, nil)
}

var _ domain.ProductService = (*ProductClient)(nil)
