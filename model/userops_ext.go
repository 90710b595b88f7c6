// This file defines the wire representation of a UserOperation exchanged with
// the Guardian API and its human-readable rendering.
//
// On the wire every numeric field is a 0x-prefixed hex quantity and every byte
// field is 0x-prefixed hex data; empty byte fields are rendered as "0x".

package model

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/goccy/go-json"
)

type userOperationError string

func (e userOperationError) Error() string {
	return string(e)
}

// Define error constants
const (
	ErrNotExecuteCall   userOperationError = "callData is not an execute(address,uint256,bytes) call"
	ErrInvalidSender    userOperationError = "invalid hex-encoded sender"
	ErrInvalidQuantity  userOperationError = "invalid hex-encoded quantity"
	ErrInvalidHexData   userOperationError = "invalid hex-encoded data"
)

const signatureLength = 65

// MarshalJSON renders the operation in its hex wire form.
func (op *UserOperation) MarshalJSON() ([]byte, error) {
	return json.Marshal(op.ToHex())
}

// UnmarshalJSON parses the hex wire form.
func (op *UserOperation) UnmarshalJSON(data []byte) error {
	var aux UserOperationHex
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	parsed, err := aux.ToUserOperation()
	if err != nil {
		return err
	}
	*op = *parsed
	return nil
}

func (op *UserOperation) String() string {
	formatBytes := func(b []byte) string {
		if len(b) == 0 {
			return "0x" // default for empty byte slice
		}
		return hexutil.Encode(b)
	}

	formatBigInt := func(b *big.Int) string {
		if b == nil {
			return "0x, 0" // Default for nil big.Int
		}
		return fmt.Sprintf("0x%x, %s", b, b.Text(10))
	}

	return fmt.Sprintf(
		"UserOperation{\n"+
			"  Sender: %s\n"+
			"  Nonce: %s\n"+
			"  InitCode: %s\n"+
			"  CallData: %s\n"+
			"  CallGasLimit: %s\n"+
			"  VerificationGasLimit: %s\n"+
			"  PreVerificationGas: %s\n"+
			"  MaxFeePerGas: %s\n"+
			"  MaxPriorityFeePerGas: %s\n"+
			"  PaymasterAndData: %s\n"+
			"  Signature: %s\n"+
			"}",
		op.Sender.String(),
		formatBigInt(op.Nonce),
		formatBytes(op.InitCode),
		formatBytes(op.CallData),
		formatBigInt(op.CallGasLimit),
		formatBigInt(op.VerificationGasLimit),
		formatBigInt(op.PreVerificationGas),
		formatBigInt(op.MaxFeePerGas),
		formatBigInt(op.MaxPriorityFeePerGas),
		formatBytes(op.PaymasterAndData),
		formatBytes(op.Signature),
	)
}

// Copy returns a deep copy of the operation.
func (op *UserOperation) Copy() *UserOperation {
	cp := func(v *big.Int) *big.Int {
		if v == nil {
			return nil
		}
		return new(big.Int).Set(v)
	}
	return &UserOperation{
		Sender:               op.Sender,
		Nonce:                cp(op.Nonce),
		InitCode:             common.CopyBytes(op.InitCode),
		CallData:             common.CopyBytes(op.CallData),
		CallGasLimit:         cp(op.CallGasLimit),
		VerificationGasLimit: cp(op.VerificationGasLimit),
		PreVerificationGas:   cp(op.PreVerificationGas),
		MaxFeePerGas:         cp(op.MaxFeePerGas),
		MaxPriorityFeePerGas: cp(op.MaxPriorityFeePerGas),
		PaymasterAndData:     common.CopyBytes(op.PaymasterAndData),
		Signature:            common.CopyBytes(op.Signature),
	}
}
