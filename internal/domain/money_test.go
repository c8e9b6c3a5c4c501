package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCentsFromDecimal(t *testing.T) {
	d := decimal.RequireFromString("10.50")
	cents, err := CentsFromDecimal(d)
	require.NoError(t, err)
	assert.Equal(t, int64(1050), cents)
}

func TestCentsFromDecimal_WholeNumber(t *testing.T) {
	cents, err := CentsFromDecimal(decimal.NewFromInt(250))
	require.NoError(t, err)
	assert.Equal(t, int64(25000), cents)
}

func TestCentsFromDecimal_RejectsSubCentPrecision(t *testing.T) {
	_, err := CentsFromDecimal(decimal.RequireFromString("10.005"))
	assert.ErrorIs(t, err, ErrAmountPrecision)
}

func TestCentsFromDecimal_TrailingZerosAllowed(t *testing.T) {
	// "10.500" carries three fraction digits but is exactly 10.50.
	cents, err := CentsFromDecimal(decimal.RequireFromString("10.500"))
	require.NoError(t, err)
	assert.Equal(t, int64(1050), cents)
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "150.00", FormatCents(15000))
	assert.Equal(t, "0.05", FormatCents(5))
	assert.Equal(t, "10000.00", FormatCents(DefaultDemoBalanceCents))
}

func TestDecimalFromCents_RoundTrips(t *testing.T) {
	for _, cents := range []int64{0, 1, 99, 100, 123456789} {
		got, err := CentsFromDecimal(DecimalFromCents(cents))
		require.NoError(t, err)
		assert.Equal(t, cents, got)
	}
}

func TestDebit(t *testing.T) {
	assert.True(t, Debit(TxTypeWithdraw))
	assert.True(t, Debit(TxTypeTransferOut))
	assert.True(t, Debit(TxTypePlatformLive))
	assert.True(t, Debit(TxTypePlatformDemo))
	assert.False(t, Debit(TxTypeDeposit))
	assert.False(t, Debit(TxTypeTransferIn))
}
