package platform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradehaven/wallet-api/internal/domain"
)

func TestMockPlatform_GetAccountDetails(t *testing.T) {
	p := NewMockPlatformWithSeed(42)
	ctx := context.Background()

	details, err := p.GetAccountDetails(ctx, "acc-1", domain.PlatformMT4)
	require.NoError(t, err)

	assert.Equal(t, "acc-1", details.AccountID)
	assert.Equal(t, domain.PlatformMT4, details.Platform)
	assert.Equal(t, "MT4-Live-01", details.Server)
	assert.Equal(t, domain.PlatformLeverage, details.Leverage)
	assert.True(t, details.IsActive)
	assert.GreaterOrEqual(t, details.Balance, 1000.0)
	assert.InDelta(t, details.Balance+details.Margin, details.Equity, 0.011)
	assert.InDelta(t, details.Equity-details.Margin, details.FreeMargin, 0.011)
}

func TestMockPlatform_GetAccountDetails_UnknownPlatform(t *testing.T) {
	p := NewMockPlatformWithSeed(42)

	_, err := p.GetAccountDetails(context.Background(), "acc-1", "cTrader")
	assert.Error(t, err)
}

func TestMockPlatform_TransferFunds_AlwaysAcceptsByDefault(t *testing.T) {
	p := NewMockPlatformWithSeed(1)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		err := p.TransferFunds(ctx, "acc-1", 5000, DirectionToPlatform)
		require.NoError(t, err)
	}
}

func TestMockPlatform_TransferFunds_AlwaysRejectsAtFullFailureRate(t *testing.T) {
	p := NewMockPlatformWithSeed(1)
	p.FailureRate = 1.0
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		err := p.TransferFunds(ctx, "acc-1", 5000, DirectionToPlatform)
		require.Error(t, err)
	}
}

func TestMockPlatform_TransferFunds_RejectsNonPositiveAmount(t *testing.T) {
	p := NewMockPlatformWithSeed(1)

	assert.Error(t, p.TransferFunds(context.Background(), "acc-1", 0, DirectionToPlatform))
	assert.Error(t, p.TransferFunds(context.Background(), "acc-1", -100, DirectionFromPlatform))
}

func TestMockPlatform_TransferFunds_CanceledContext(t *testing.T) {
	p := NewMockPlatformWithSeed(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, p.TransferFunds(ctx, "acc-1", 100, DirectionToPlatform))
}

func TestMockPlatform_GetServerStatus(t *testing.T) {
	p := NewMockPlatformWithSeed(7)

	status, err := p.GetServerStatus(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Online)
	assert.False(t, status.CheckedAt.IsZero())
}
