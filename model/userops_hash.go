package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	abiAddress, _ = abi.NewType("address", "", nil)
	abiUint256, _ = abi.NewType("uint256", "", nil)
	abiBytes32, _ = abi.NewType("bytes32", "", nil)

	// packArgs is the inner encoding of the EntryPoint v0.6 getUserOpHash.
	packArgs = abi.Arguments{
		{Name: "sender", Type: abiAddress},
		{Name: "nonce", Type: abiUint256},
		{Name: "hashInitCode", Type: abiBytes32},
		{Name: "hashCallData", Type: abiBytes32},
		{Name: "callGasLimit", Type: abiUint256},
		{Name: "verificationGasLimit", Type: abiUint256},
		{Name: "preVerificationGas", Type: abiUint256},
		{Name: "maxFeePerGas", Type: abiUint256},
		{Name: "maxPriorityFeePerGas", Type: abiUint256},
		{Name: "hashPaymasterAndData", Type: abiBytes32},
	}

	// wrapArgs binds the packed hash to an EntryPoint and chain.
	wrapArgs = abi.Arguments{
		{Name: "userOpHash", Type: abiBytes32},
		{Name: "entryPoint", Type: abiAddress},
		{Name: "chainId", Type: abiUint256},
	}
)

// Pack returns the ABI encoding of the operation with the dynamic fields
// replaced by their keccak256 hashes. The signature is not part of the
// encoding. Empty InitCode and PaymasterAndData hash to keccak256("") and are
// always included.
func (op *UserOperation) Pack() ([]byte, error) {
	return packArgs.Pack(
		op.Sender,
		orZero(op.Nonce),
		keccak(op.InitCode),
		keccak(op.CallData),
		orZero(op.CallGasLimit),
		orZero(op.VerificationGasLimit),
		orZero(op.PreVerificationGas),
		orZero(op.MaxFeePerGas),
		orZero(op.MaxPriorityFeePerGas),
		keccak(op.PaymasterAndData),
	)
}

// GetUserOpHash returns the hash the account owner signs:
//
//	keccak256(abi.encode(keccak256(pack(op)), entryPoint, chainID))
//
// Binding the entry point and chain id prevents replaying the signature against
// another EntryPoint deployment or chain.
func (op *UserOperation) GetUserOpHash(entryPoint common.Address, chainID *big.Int) (common.Hash, error) {
	packed, err := op.Pack()
	if err != nil {
		return common.Hash{}, err
	}

	encoded, err := wrapArgs.Pack(keccak(packed), entryPoint, orZero(chainID))
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(encoded), nil
}

func keccak(data []byte) [32]byte {
	return [32]byte(crypto.Keccak256Hash(data))
}
