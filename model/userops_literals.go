package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// UserOperationHex is the wire form of a UserOperation: every quantity and byte
// field is a 0x-prefixed hex string.
type UserOperationHex struct {
	Sender               string `json:"sender"               mapstructure:"sender"               validate:"required,eth_addr"`
	Nonce                string `json:"nonce"                mapstructure:"nonce"                validate:"required"`
	InitCode             string `json:"initCode"             mapstructure:"initCode"`
	CallData             string `json:"callData"             mapstructure:"callData"             validate:"required"`
	CallGasLimit         string `json:"callGasLimit"         mapstructure:"callGasLimit"         validate:"required"`
	VerificationGasLimit string `json:"verificationGasLimit" mapstructure:"verificationGasLimit" validate:"required"`
	PreVerificationGas   string `json:"preVerificationGas"   mapstructure:"preVerificationGas"   validate:"required"`
	MaxFeePerGas         string `json:"maxFeePerGas"         mapstructure:"maxFeePerGas"         validate:"required"`
	MaxPriorityFeePerGas string `json:"maxPriorityFeePerGas" mapstructure:"maxPriorityFeePerGas" validate:"required"`
	PaymasterAndData     string `json:"paymasterAndData"     mapstructure:"paymasterAndData"`
	Signature            string `json:"signature"            mapstructure:"signature"`
}

// ToHex converts the operation to its wire form.
func (op *UserOperation) ToHex() UserOperationHex {
	return UserOperationHex{
		Sender:               op.Sender.Hex(),
		Nonce:                EncodeUint256(op.Nonce),
		InitCode:             hexutil.Encode(nonNil(op.InitCode)),
		CallData:             hexutil.Encode(nonNil(op.CallData)),
		CallGasLimit:         EncodeUint256(op.CallGasLimit),
		VerificationGasLimit: EncodeUint256(op.VerificationGasLimit),
		PreVerificationGas:   EncodeUint256(op.PreVerificationGas),
		MaxFeePerGas:         EncodeUint256(op.MaxFeePerGas),
		MaxPriorityFeePerGas: EncodeUint256(op.MaxPriorityFeePerGas),
		PaymasterAndData:     hexutil.Encode(nonNil(op.PaymasterAndData)),
		Signature:            hexutil.Encode(nonNil(op.Signature)),
	}
}

// ToUserOperation parses the wire form. Empty byte fields decode to empty
// slices, never nil, so hashing is unaffected by the wire round trip.
func (h UserOperationHex) ToUserOperation() (*UserOperation, error) {
	if !IsAddress(h.Sender) {
		return nil, ErrInvalidSender
	}

	op := &UserOperation{Sender: common.HexToAddress(h.Sender)}

	quantities := []struct {
		in  string
		out **big.Int
	}{
		{h.Nonce, &op.Nonce},
		{h.CallGasLimit, &op.CallGasLimit},
		{h.VerificationGasLimit, &op.VerificationGasLimit},
		{h.PreVerificationGas, &op.PreVerificationGas},
		{h.MaxFeePerGas, &op.MaxFeePerGas},
		{h.MaxPriorityFeePerGas, &op.MaxPriorityFeePerGas},
	}
	for _, q := range quantities {
		v, err := DecodeUint256(q.in)
		if err != nil {
			return nil, err
		}
		*q.out = v
	}

	data := []struct {
		in  string
		out *[]byte
	}{
		{h.InitCode, &op.InitCode},
		{h.CallData, &op.CallData},
		{h.PaymasterAndData, &op.PaymasterAndData},
		{h.Signature, &op.Signature},
	}
	for _, d := range data {
		b, err := decodeData(d.in)
		if err != nil {
			return nil, err
		}
		*d.out = b
	}

	return op, nil
}

func decodeData(s string) ([]byte, error) {
	if s == "" || s == "0x" || s == "0X" {
		return []byte{}, nil
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, ErrInvalidHexData
	}
	return b, nil
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
