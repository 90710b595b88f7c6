package chain

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rpc"

	"github.com/blndgs/guardian/guarderr"
)

// outputs reads typed values from an unpacked call result, keeping the first
// mismatch.
type outputs struct {
	method string
	vals   []any
	err    error
}

func get[T any](o *outputs, i int) T {
	var zero T
	if o.err != nil {
		return zero
	}
	if i >= len(o.vals) {
		o.err = fmt.Errorf("%s: missing output %d", o.method, i)
		return zero
	}
	v, ok := o.vals[i].(T)
	if !ok {
		o.err = fmt.Errorf("%s: output %d has type %T, want %T", o.method, i, o.vals[i], zero)
		return zero
	}
	return v
}

// uint64Of narrows a uint256 output, recording an error when it overflows.
func uint64Of(o *outputs, i int) uint64 {
	v := get[*big.Int](o, i)
	if o.err != nil {
		return 0
	}
	if v == nil || !v.IsUint64() {
		o.err = fmt.Errorf("%s: output %d does not fit in uint64", o.method, i)
		return 0
	}
	return v.Uint64()
}

// classifyCallError separates node-reported reverts, which carry revert data,
// from connectivity failures.
func classifyCallError(op string, err error) error {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		return guarderr.Wrap(guarderr.Contract, op, err, "contract call reverted")
	}
	return guarderr.Wrap(guarderr.Network, op, err, "rpc call failed")
}
