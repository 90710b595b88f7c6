package model

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blndgs/guardian/guarderr"
)

// Helper function to create big.Int values for testing
func newBigInt(s string) *big.Int {
	i, _ := new(big.Int).SetString(s, 10)
	return i
}

func TestDecodeUint256(t *testing.T) {
	testCases := []struct {
		name        string
		input       string
		expected    *big.Int
		expectError bool
	}{
		{"Zero", "0x0", big.NewInt(0), false},
		{"Leading zeros", "0x000a", big.NewInt(10), false},
		{"Upper prefix", "0X1F", big.NewInt(31), false},
		{"Max uint256", "0x" + maxUint256.Text(16), maxUint256, false},
		{"Too wide", "0x1" + maxUint256.Text(16), nil, true},
		{"No prefix", "10", nil, true},
		{"Empty digits", "0x", nil, true},
		{"Negative", "0x-1", nil, true},
		{"Not hex", "0xgg", nil, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := DecodeUint256(tc.input)
			if tc.expectError {
				require.ErrorIs(t, err, ErrInvalidQuantity)
				return
			}
			require.NoError(t, err)
			require.Equal(t, 0, tc.expected.Cmp(result), "Expected %s, got %s", tc.expected.String(), result.String())
		})
	}
}

func TestEncodeUint256(t *testing.T) {
	require.Equal(t, "0x0", EncodeUint256(nil))
	require.Equal(t, "0x0", EncodeUint256(big.NewInt(0)))
	require.Equal(t, "0x38d7ea4c68000", EncodeUint256(newBigInt("1000000000000000")))
}

func TestEncodeDecodeUint256_RoundTrip(t *testing.T) {
	v := big.NewInt(1)
	for i := 0; i <= 96; i++ {
		got, err := DecodeUint256(EncodeUint256(v))
		require.NoError(t, err)
		require.Zero(t, v.Cmp(got), "2^%d", i)
		v = new(big.Int).Lsh(v, 1)
	}
}

func TestParseUnits(t *testing.T) {
	testCases := []struct {
		name        string
		amount      string
		decimals    int
		expected    *big.Int
		expectError bool
	}{
		{"1 ETH in wei", "1", 18, newBigInt("1000000000000000000"), false},
		{"0.001 ETH", "0.001", 18, newBigInt("1000000000000000"), false},
		{"1.5 USDC", "1.5", 6, newBigInt("1500000"), false},
		{"0.5 BTC", ".5", 8, newBigInt("50000000"), false},
		{"Trailing zeros", "2.500", 6, newBigInt("2500000"), false},
		{"Zero", "0.0", 18, newBigInt("0"), false},
		{"Too many decimals", "1.0000001", 6, nil, true},
		{"Negative", "-1", 18, nil, true},
		{"Empty", "", 18, nil, true},
		{"Exponent", "1e18", 18, nil, true},
		{"Two dots", "1.2.3", 18, nil, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := ParseUnits(tc.amount, tc.decimals)
			if tc.expectError {
				require.True(t, guarderr.Is(err, guarderr.InvalidInput), "got %v", err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, 0, tc.expected.Cmp(result), "Expected %s, got %s", tc.expected.String(), result.String())
		})
	}
}

func TestFormatUnits(t *testing.T) {
	require.Equal(t, "0.001", FormatEther(newBigInt("1000000000000000")))
	require.Equal(t, "1", FormatEther(newBigInt("1000000000000000000")))
	require.Equal(t, "1.5", FormatUnits(big.NewInt(1500000), 6))
	require.Equal(t, "0.000001", FormatUnits(big.NewInt(1), 6))
	require.Equal(t, "-2", FormatUnits(big.NewInt(-200), 2))
	require.Equal(t, "42", FormatUnits(big.NewInt(42), 0))
	require.Equal(t, "0", FormatUnits(nil, 18))

	for _, s := range []string{"0.001", "12.345678", "1000000", "0.000000000000000001"} {
		v, err := ParseEther(s)
		require.NoError(t, err)
		require.Equal(t, s, FormatEther(v))
	}
}

func TestParseWei(t *testing.T) {
	v, err := ParseWei("1000000000000000000")
	require.NoError(t, err)
	require.Equal(t, "1000000000000000000", v.String())

	_, err = ParseWei("1.5")
	require.True(t, guarderr.Is(err, guarderr.InvalidInput))

	_, err = ParseWei("-1")
	require.True(t, guarderr.Is(err, guarderr.InvalidInput))
}

func TestRequirePositive(t *testing.T) {
	require.NoError(t, RequirePositive("amount", big.NewInt(1)))
	require.True(t, guarderr.Is(RequirePositive("amount", nil), guarderr.InvalidInput))
	require.True(t, guarderr.Is(RequirePositive("amount", big.NewInt(0)), guarderr.InvalidInput))
	require.ErrorIs(t, RequirePositive("amount", nil), errNilAmount)
}
