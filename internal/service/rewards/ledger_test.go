package rewards

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_RewardOffset(t *testing.T) {
	l := NewLedger()
	ctx := context.Background()

	offset, err := l.GetRewardOffset(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, offset.IsEmpty())

	l.SetPoints("c1", decimal.NewFromInt(550))
	offset, err = l.GetRewardOffset(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, offset.RewardAmount.Equal(decimal.RequireFromString("5.50")))
	assert.True(t, offset.RewardPoints.Equal(decimal.NewFromInt(550)))
}

func TestLedger_UpdateCustomerRewards(t *testing.T) {
	l := NewLedger()
	ctx := context.Background()
	l.SetPoints("c1", decimal.NewFromInt(500))

	require.NoError(t, l.UpdateCustomerRewards(ctx, "c1", decimal.Zero))
	assert.True(t, l.Points("c1").IsZero())

	require.NoError(t, l.UpdateCustomerRewards(ctx, "c1", decimal.NewFromInt(500)))
	require.NoError(t, l.UpdateCustomerRewards(ctx, "c1", decimal.RequireFromString("20.00")))
	assert.True(t, l.Points("c1").Equal(decimal.NewFromInt(520)))
}

func TestLedger_MerchantEarnings(t *testing.T) {
	l := NewLedger()
	ctx := context.Background()

	require.NoError(t, l.UpdateMerchantEarnings(ctx, "m1", decimal.RequireFromString("15.00")))
	require.NoError(t, l.UpdateMerchantEarnings(ctx, "m1", decimal.RequireFromString("5.00")))
	assert.True(t, l.Earnings("m1").Equal(decimal.NewFromInt(20)))
}

func TestLedger_Unavailable(t *testing.T) {
	l := NewLedger()
	l.Err = errors.New("profile service down")
	ctx := context.Background()

	_, err := l.GetRewardOffset(ctx, "c1")
	assert.Error(t, err)
	assert.Error(t, l.UpdateCustomerRewards(ctx, "c1", decimal.Zero))
	assert.Error(t, l.UpdateMerchantEarnings(ctx, "m1", decimal.NewFromInt(1)))
}
