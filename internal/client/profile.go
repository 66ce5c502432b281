package client

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
)

// ProfileClient ходит в сервис профилей: бонусы клиентов и выручка мерчантов.
type ProfileClient struct {
	c *caller
}

// NewProfileClient создаёт клиент сервиса профилей.
func NewProfileClient(cfg Config) (*ProfileClient, error) {
	c, err := newCaller("profile", cfg)
	if err != nil {
		return nil, err
	}
	return &ProfileClient{c: c}, nil
}

type rewardOffsetDTO struct {
	RewardAmount decimal.Decimal `json:"rewardAmount"`
	RewardPoints decimal.Decimal `json:"rewardPoints"`
}

// GetRewardOffset — GET /customers/{customerId}/rewards.
// Пустой data даёт нулевую скидку без ошибки.
func (p *ProfileClient) GetRewardOffset(ctx context.Context, customerID string) (domain.RewardOffset, error) {
	var dto rewardOffsetDTO
	target := p.c.endpoint(nil, "customers", customerID, "rewards")
	if err := p.c.call(ctx, http.MethodGet, target, nil, &dto); err != nil {
		return domain.RewardOffset{}, err
	}
	return domain.RewardOffset{RewardAmount: dto.RewardAmount, RewardPoints: dto.RewardPoints}, nil
}

// UpdateCustomerRewards — PUT /customers/{customerId}/rewards/{amount}.
func (p *ProfileClient) UpdateCustomerRewards(ctx context.Context, customerID string, amount decimal.Decimal) error {
	target := p.c.endpoint(nil, "customers", customerID, "rewards", amount.String())
	return p.c.call(ctx, http.MethodPut, target, nil, nil)
}

// UpdateMerchantEarnings — PUT /merchants/{merchantId}/rewards/{amount}.
func (p *ProfileClient) UpdateMerchantEarnings(ctx context.Context, merchantID string, amount decimal.Decimal) error {
	target := p.c.endpoint(nil, "merchants", merchantID, "rewards", amount.String())
	return p.c.call(ctx, http.MethodPut, target, nil, nil)
}

var _ domain.ProfileService = (*ProfileClient)(nil)
