// Package rewards — in-process учёт бонусов клиентов и выручки мерчантов.
package rewards

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
)

// DefaultPointsPerUnit — сколько баллов составляют одну денежную единицу скидки.
var DefaultPointsPerUnit = decimal.NewFromInt(100)

// Ledger реализует domain.ProfileService поверх памяти.
// UpdateCustomerRewards с нулём обнуляет баланс, иначе начисляет баллы.
type Ledger struct {
	mu            sync.Mutex
	pointsPerUnit decimal.Decimal
	points        map[string]decimal.Decimal
	earnings      map[string]decimal.Decimal

	// Err имитирует недоступность сервиса профилей.
	Err error
}

// NewLedger создаёт пустой журнал с курсом DefaultPointsPerUnit.
func NewLedger() *Ledger {
	return &Ledger{
		pointsPerUnit: DefaultPointsPerUnit,
		points:        make(map[string]decimal.Decimal),
		earnings:      make(map[string]decimal.Decimal),
	}
}

// SetPoints задаёт баланс клиента.
func (l *Ledger) SetPoints(customerID string, points decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.points[customerID] = points
}

// Points возвращает баланс клиента.
func (l *Ledger) Points(customerID string) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.points[customerID]
}

// Earnings возвращает накопленную выручку мерчанта.
func (l *Ledger) Earnings(merchantID string) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.earnings[merchantID]
}

func (l *Ledger) GetRewardOffset(_ context.Context, customerID string) (domain.RewardOffset, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.Err != nil {
		return domain.RewardOffset{}, l.Err
	}
	points := l.points[customerID]
	if !points.IsPositive() {
		return domain.RewardOffset{}, nil
	}
	return domain.RewardOffset{
		RewardAmount: points.Div(l.pointsPerUnit).Round(2),
		RewardPoints: points,
	}, nil
}

func (l *Ledger) UpdateCustomerRewards(_ context.Context, customerID string, amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.Err != nil {
		return l.Err
	}
	if amount.IsZero() {
		l.points[customerID] = decimal.Zero
		return nil
	}
	l.points[customerID] = l.points[customerID].Add(amount)
	return nil
}

func (l *Ledger) UpdateMerchantEarnings(_ context.Context, merchantID string, amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.Err != nil {
		return l.Err
	}
	l.earnings[merchantID] = l.earnings[merchantID].Add(amount)
	return nil
}

var _ domain.ProfileService = (*Ledger)(nil)
