package model

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/blndgs/guardian/guarderr"
)

// EtherDecimals is the number of decimals of the native token.
const EtherDecimals = 18

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// EncodeUint256 renders v as a 0x-prefixed hex quantity. Nil encodes as 0x0.
func EncodeUint256(v *big.Int) string {
	if v == nil {
		return "0x0"
	}
	return "0x" + v.Text(16)
}

// DecodeUint256 parses a 0x-prefixed hex quantity. Leading zeros are accepted;
// negative values and values wider than 256 bits are not.
func DecodeUint256(s string) (*big.Int, error) {
	digits, ok := strings.CutPrefix(strings.TrimSpace(s), "0x")
	if !ok {
		digits, ok = strings.CutPrefix(strings.TrimSpace(s), "0X")
	}
	if !ok || digits == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidQuantity, s)
	}

	v, ok := new(big.Int).SetString(digits, 16)
	if !ok || v.Sign() < 0 || v.Cmp(maxUint256) > 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidQuantity, s)
	}
	return v, nil
}

// ParseWei parses a base-10 integer amount of wei such as the decimal strings
// returned by the Guardian API.
func ParseWei(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return nil, guarderr.InvalidInputf("parseWei", "amount %q is not an integer", s)
	}
	if v.Sign() < 0 {
		return nil, guarderr.InvalidInputf("parseWei", "amount cannot be negative")
	}
	return v, nil
}

// ParseUnits converts a decimal amount such as "1.5" into its integer
// representation with the given number of decimals. The conversion is exact:
// amounts with more fractional digits than decimals are rejected rather than
// rounded.
func ParseUnits(amount string, decimals int) (*big.Int, error) {
	const op = "parseUnits"
	if decimals < 0 || decimals > 77 {
		return nil, guarderr.InvalidInputf(op, "unsupported decimals %d", decimals)
	}

	amount = strings.TrimSpace(amount)
	whole, frac, hasFrac := strings.Cut(amount, ".")
	if whole == "" && (!hasFrac || frac == "") {
		return nil, guarderr.InvalidInputf(op, "amount %q is empty", amount)
	}
	if strings.HasPrefix(whole, "-") {
		return nil, guarderr.InvalidInputf(op, "amount cannot be negative")
	}
	if !isDigits(whole) || !isDigits(frac) {
		return nil, guarderr.InvalidInputf(op, "amount %q is not a decimal number", amount)
	}

	frac = strings.TrimRight(frac, "0")
	if len(frac) > decimals {
		return nil, guarderr.InvalidInputf(op, "amount %q has more than %d decimals", amount, decimals)
	}

	digits := whole + frac + strings.Repeat("0", decimals-len(frac))
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		return new(big.Int), nil
	}
	v, _ := new(big.Int).SetString(digits, 10)
	return v, nil
}

// FormatUnits renders an integer amount with the given number of decimals,
// trimming trailing fractional zeros. FormatUnits(ParseUnits(s)) == s for any
// canonical decimal s.
func FormatUnits(v *big.Int, decimals int) string {
	if v == nil {
		return "0"
	}
	neg := v.Sign() < 0
	digits := new(big.Int).Abs(v).Text(10)
	if decimals > 0 {
		if len(digits) <= decimals {
			digits = strings.Repeat("0", decimals-len(digits)+1) + digits
		}
		whole, frac := digits[:len(digits)-decimals], strings.TrimRight(digits[len(digits)-decimals:], "0")
		digits = whole
		if frac != "" {
			digits += "." + frac
		}
	}
	if neg {
		return "-" + digits
	}
	return digits
}

// ParseEther converts an amount of ether into wei.
func ParseEther(amount string) (*big.Int, error) {
	return ParseUnits(amount, EtherDecimals)
}

// FormatEther renders an amount of wei in ether.
func FormatEther(wei *big.Int) string {
	return FormatUnits(wei, EtherDecimals)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// errNilAmount is returned by RequirePositive for a nil amount.
var errNilAmount = errors.New("amount cannot be nil")

// RequirePositive checks that v is a strictly positive amount.
func RequirePositive(name string, v *big.Int) error {
	if v == nil {
		return guarderr.Wrap(guarderr.InvalidInput, "validate", errNilAmount, "%s is required", name)
	}
	if v.Sign() <= 0 {
		return guarderr.InvalidInputf("validate", "%s must be greater than zero", name)
	}
	return nil
}
