package domain

import "github.com/shopspring/decimal"

// Product — данные товара из каталога, которым доверяет сага.
type Product struct {
	ProductID      string
	ListingPrice   decimal.Decimal
	AvailableStock int64
	CategoryID     string
	MerchantID     string
}

// ProductStockUpdateRequest — команда на установку остатка товара после заказа.
type ProductStockUpdateRequest struct {
	ProductID  string
	MerchantID string
	CategoryID string
	// AvailableStock — уже уменьшенное значение, которое нужно записать.
	AvailableStock int64
}

// StockAfter рассчитывает запрос на списание qty единиц товара.
func (p Product) StockAfter(qty int64) ProductStockUpdateRequest {
	return ProductStockUpdateRequest{
		ProductID:      p.ProductID,
		MerchantID:     p.MerchantID,
		CategoryID:     p.CategoryID,
		AvailableStock: p.AvailableStock - qty,
	}
}
