package domain

import "github.com/shopspring/decimal"

// RewardOffset — доступная клиенту скидка за бонусные баллы.
type RewardOffset struct {
	RewardAmount decimal.Decimal
	RewardPoints decimal.Decimal
}

// IsEmpty сообщает, что списывать нечего.
func (r RewardOffset) IsEmpty() bool {
	return !r.RewardAmount.IsPositive()
}

// ApplyTo возвращает сумму, которую реально можно списать с total.
// Итог заказа не уходит в минус.
func (r RewardOffset) ApplyTo(total decimal.Decimal) decimal.Decimal {
	if r.IsEmpty() {
		return decimal.Zero
	}
	return decimal.Min(r.RewardAmount, total)
}
