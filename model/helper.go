package model

import (
	"regexp"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/blndgs/guardian/guarderr"
)

var (
	addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	bytes32Pattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)
)

// IsAddress reports whether s is 0x followed by exactly 40 hex characters.
func IsAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// ParseAddress validates s and returns it as an address. field names the input
// in the error message.
func ParseAddress(op, field, s string) (common.Address, error) {
	if !IsAddress(s) {
		return common.Address{}, guarderr.InvalidInputf(op, "%s must be a 0x-prefixed 20-byte hex address", field)
	}
	return common.HexToAddress(s), nil
}

// ParseBytes32 validates s as a 0x-prefixed 32-byte identifier.
func ParseBytes32(op, field, s string) ([32]byte, error) {
	var out [32]byte
	if !bytes32Pattern.MatchString(s) {
		return out, guarderr.InvalidInputf(op, "%s must be a 0x-prefixed 32-byte hex value", field)
	}
	copy(out[:], hexutil.MustDecode(s))
	return out, nil
}
