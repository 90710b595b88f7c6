// Package model provides the structures exchanged between the SDK, the Guardian
// API and the wallet contracts: ERC-4337 UserOperations and their hashing,
// transaction parameters, evaluation verdicts and the admin value objects read
// from chain.
//
// Everything in this package is pure; no function performs I/O.
package model

import (
	"bytes"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/blndgs/guardian/guarderr"
)

// UserOperation represents an ERC-4337 (EntryPoint v0.6) UserOperation for the
// Guardian-gated smart account.
type UserOperation struct {
	Sender               common.Address `json:"sender"               mapstructure:"sender"               validate:"required"`
	Nonce                *big.Int       `json:"nonce"                mapstructure:"nonce"                validate:"required"`
	InitCode             []byte         `json:"initCode"             mapstructure:"initCode"`
	CallData             []byte         `json:"callData"             mapstructure:"callData"             validate:"required"`
	CallGasLimit         *big.Int       `json:"callGasLimit"         mapstructure:"callGasLimit"         validate:"required"`
	VerificationGasLimit *big.Int       `json:"verificationGasLimit" mapstructure:"verificationGasLimit" validate:"required"`
	PreVerificationGas   *big.Int       `json:"preVerificationGas"   mapstructure:"preVerificationGas"   validate:"required"`
	MaxFeePerGas         *big.Int       `json:"maxFeePerGas"         mapstructure:"maxFeePerGas"         validate:"required"`
	MaxPriorityFeePerGas *big.Int       `json:"maxPriorityFeePerGas" mapstructure:"maxPriorityFeePerGas" validate:"required"`
	PaymasterAndData     []byte         `json:"paymasterAndData"     mapstructure:"paymasterAndData"`
	Signature            []byte         `json:"signature"            mapstructure:"signature"`
}

// GasDefaults holds the gas and fee values used when a transaction does not
// override them.
type GasDefaults struct {
	CallGasLimit         *big.Int
	VerificationGasLimit *big.Int
	PreVerificationGas   *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

// DefaultGas returns the fixed gas defaults.
func DefaultGas() GasDefaults {
	return GasDefaults{
		CallGasLimit:         big.NewInt(200_000),
		VerificationGasLimit: big.NewInt(150_000),
		PreVerificationGas:   big.NewInt(50_000),
		MaxFeePerGas:         big.NewInt(30_000_000_000), // 30 gwei
		MaxPriorityFeePerGas: big.NewInt(1_500_000_000),  // 1.5 gwei
	}
}

const executeABI = `[{"type":"function","name":"execute","stateMutability":"nonpayable","inputs":[{"name":"dest","type":"address"},{"name":"value","type":"uint256"},{"name":"func","type":"bytes"}],"outputs":[]}]`

var executeMethod = mustMethod(executeABI, "execute")

func mustMethod(abiJSON, name string) abi.Method {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		panic(fmt.Sprintf("invalid %s ABI: %v", name, err))
	}
	return parsed.Methods[name]
}

// ExecuteSelector is the 4-byte selector of execute(address,uint256,bytes).
func ExecuteSelector() []byte {
	return common.CopyBytes(executeMethod.ID)
}

// EncodeExecuteCallData ABI-encodes a call to execute(address,uint256,bytes).
func EncodeExecuteCallData(target common.Address, value *big.Int, data []byte) ([]byte, error) {
	if value == nil {
		value = new(big.Int)
	}
	if data == nil {
		data = []byte{}
	}
	args, err := executeMethod.Inputs.Pack(target, value, data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode execute call: %w", err)
	}
	return append(common.CopyBytes(executeMethod.ID), args...), nil
}

// DecodeExecuteCallData reverses EncodeExecuteCallData.
func DecodeExecuteCallData(callData []byte) (common.Address, *big.Int, []byte, error) {
	if len(callData) < 4 || !bytes.Equal(callData[:4], executeMethod.ID) {
		return common.Address{}, nil, nil, ErrNotExecuteCall
	}
	values, err := executeMethod.Inputs.Unpack(callData[4:])
	if err != nil {
		return common.Address{}, nil, nil, fmt.Errorf("%w: %v", ErrNotExecuteCall, err)
	}
	target, _ := values[0].(common.Address)
	value, _ := values[1].(*big.Int)
	data, _ := values[2].([]byte)
	return target, value, data, nil
}

// BuildUserOp assembles an unsigned UserOperation calling execute() on the
// account. The transaction is validated before anything else happens; a
// malformed target fails with an InvalidInput error and nothing is built.
//
// The nonce must be read from the EntryPoint immediately before calling
// BuildUserOp. Building two operations for the same account concurrently races
// on that nonce; callers serialize construction per account.
func BuildUserOp(sender common.Address, tx TransactionParams, nonce *big.Int, gas GasDefaults) (*UserOperation, error) {
	if err := ValidateTransaction(tx); err != nil {
		return nil, err
	}
	if nonce == nil || nonce.Sign() < 0 {
		return nil, guarderr.InvalidInputf("buildUserOp", "nonce must be a non-negative integer")
	}

	callData, err := EncodeExecuteCallData(common.HexToAddress(tx.Target), tx.Value, tx.Data)
	if err != nil {
		return nil, guarderr.Wrap(guarderr.InvalidInput, "buildUserOp", err, "invalid call")
	}

	defaults := DefaultGas()
	pick := func(override, configured, fallback *big.Int) *big.Int {
		switch {
		case override != nil:
			return new(big.Int).Set(override)
		case configured != nil:
			return new(big.Int).Set(configured)
		default:
			return fallback
		}
	}
	var overrides GasOverrides
	if tx.Gas != nil {
		overrides = *tx.Gas
	}

	return &UserOperation{
		Sender:               sender,
		Nonce:                new(big.Int).Set(nonce),
		InitCode:             []byte{},
		CallData:             callData,
		CallGasLimit:         pick(overrides.CallGasLimit, gas.CallGasLimit, defaults.CallGasLimit),
		VerificationGasLimit: pick(overrides.VerificationGasLimit, gas.VerificationGasLimit, defaults.VerificationGasLimit),
		PreVerificationGas:   pick(overrides.PreVerificationGas, gas.PreVerificationGas, defaults.PreVerificationGas),
		MaxFeePerGas:         pick(overrides.MaxFeePerGas, gas.MaxFeePerGas, defaults.MaxFeePerGas),
		MaxPriorityFeePerGas: pick(overrides.MaxPriorityFeePerGas, gas.MaxPriorityFeePerGas, defaults.MaxPriorityFeePerGas),
		PaymasterAndData:     []byte{},
		Signature:            []byte{},
	}, nil
}

// HasSignature reports whether the operation carries a 65-byte ECDSA signature.
func (op *UserOperation) HasSignature() bool {
	return len(op.Signature) == signatureLength
}

// GetFactory returns the address portion of InitCode if applicable, otherwise
// it returns the zero address.
func (op *UserOperation) GetFactory() common.Address {
	if len(op.InitCode) < common.AddressLength {
		return common.Address{}
	}
	return common.BytesToAddress(op.InitCode[:common.AddressLength])
}

// GetPaymaster returns the address portion of PaymasterAndData if applicable,
// otherwise it returns the zero address.
func (op *UserOperation) GetPaymaster() common.Address {
	if len(op.PaymasterAndData) < common.AddressLength {
		return common.Address{}
	}
	return common.BytesToAddress(op.PaymasterAndData[:common.AddressLength])
}

// GetMaxGasAvailable returns the max amount of gas that can be consumed by this
// UserOperation. Verification gas is counted three times when a paymaster is
// present.
func (op *UserOperation) GetMaxGasAvailable() *big.Int {
	mul := big.NewInt(1)
	if op.GetPaymaster() != (common.Address{}) {
		mul = big.NewInt(3)
	}

	verification := new(big.Int).Mul(orZero(op.VerificationGasLimit), mul)
	rest := new(big.Int).Add(orZero(op.PreVerificationGas), orZero(op.CallGasLimit))
	return verification.Add(verification, rest)
}

// GetMaxPrefund returns the max amount of wei required to pay for gas fees by
// either the sender or paymaster.
func (op *UserOperation) GetMaxPrefund() *big.Int {
	return new(big.Int).Mul(op.GetMaxGasAvailable(), orZero(op.MaxFeePerGas))
}

// GetDynamicGasPrice returns the effective gas price paid by the UserOperation
// given a basefee. If basefee is nil, it is assumed to be zero.
func (op *UserOperation) GetDynamicGasPrice(basefee *big.Int) *big.Int {
	bf := orZero(basefee)
	gp := new(big.Int).Add(bf, orZero(op.MaxPriorityFeePerGas))
	if gp.Cmp(orZero(op.MaxFeePerGas)) == 1 {
		return new(big.Int).Set(op.MaxFeePerGas)
	}
	return gp
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
