package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/blndgs/guardian/guarderr"
)

// DefaultEntryPoint is the canonical EntryPoint v0.6 deployment.
var DefaultEntryPoint = common.HexToAddress("0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789")

// EntryPoint reads account nonces.
type EntryPoint struct {
	Address  common.Address
	contract Caller
}

// NewEntryPoint binds the EntryPoint at address for reads.
func NewEntryPoint(address common.Address, backend bind.ContractCaller) *EntryPoint {
	return &EntryPoint{
		Address:  address,
		contract: bind.NewBoundContract(address, entryPointABI, backend, nil, nil),
	}
}

// GetNonce returns the next nonce of sender in the given key space.
func (e *EntryPoint) GetNonce(ctx context.Context, sender common.Address, key *big.Int) (*big.Int, error) {
	if key == nil {
		key = new(big.Int)
	}
	var out []any
	if err := e.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getNonce", sender, key); err != nil {
		return nil, classifyCallError("getNonce", err)
	}
	o := outputs{method: "getNonce", vals: out}
	nonce := get[*big.Int](&o, 0)
	if o.err != nil {
		return nil, guarderr.Wrap(guarderr.Contract, "getNonce", o.err, "unexpected result")
	}
	return nonce, nil
}
