package domain

import "strings"

// CartItem — позиция корзины без цены.
type CartItem struct {
	ProductID string
	Quantity  int64
}

// Cart — корзина клиента, источник заказа.
type Cart struct {
	CustomerID string
	MerchantID string
	Items      []CartItem
}

// IsEmpty сообщает, что из корзины нечего заказывать.
func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// ProductIDs возвращает идентификаторы товаров без повторов в порядке корзины.
func (c Cart) ProductIDs() []string {
	seen := make(map[string]struct{}, len(c.Items))
	ids := make([]string, 0, len(c.Items))
	for _, item := range c.Items {
		key := strings.ToLower(item.ProductID)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}
