// Package signer wraps a single secp256k1 key for the Guardian SDK. It signs
// UserOperation hashes with the personal-sign convention and produces keyed
// transactors for owner-signed admin calls.
//
// A Signer never renders its key: String and any error it returns carry the
// address only.
package signer

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/blndgs/guardian/guarderr"
)

// SignatureLength is the length of an r||s||v signature.
const SignatureLength = crypto.SignatureLength

// Signer holds one private key.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// New parses a hex private key with or without the 0x prefix.
func New(hexKey string) (*Signer, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"), "0X")
	key, err := crypto.HexToECDSA(trimmed)
	if err != nil {
		// the parse error can quote the input, so it is not wrapped
		return nil, guarderr.InvalidInputf("signer.New", "private key must be 32 bytes of hex")
	}
	return &Signer{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

// Address returns the address controlled by the key.
func (s *Signer) Address() common.Address {
	return s.address
}

// String renders the signer as its address.
func (s *Signer) String() string {
	return "signer(" + s.address.Hex() + ")"
}

// SignHash signs keccak256("\x19Ethereum Signed Message:\n32" || hash) and
// returns a 65-byte signature with V in {27, 28}.
func (s *Signer) SignHash(hash common.Hash) ([]byte, error) {
	sig, err := crypto.Sign(accounts.TextHash(hash.Bytes()), s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign hash: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// RecoverAddress returns the address that produced a SignHash signature over
// hash.
func RecoverAddress(hash common.Hash, sig []byte) (common.Address, error) {
	if len(sig) != SignatureLength {
		return common.Address{}, guarderr.InvalidInputf("recoverAddress", "signature must be %d bytes", SignatureLength)
	}
	normalized := common.CopyBytes(sig)
	if normalized[crypto.RecoveryIDOffset] >= 27 {
		normalized[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash(hash.Bytes()), normalized)
	if err != nil {
		return common.Address{}, guarderr.Wrap(guarderr.InvalidInput, "recoverAddress", err, "invalid signature")
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// TransactOpts returns transaction options signing with the key for chainID.
// The returned options carry ctx.
func (s *Signer) TransactOpts(ctx context.Context, chainID *big.Int) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(s.key, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor for %s: %w", s.address.Hex(), err)
	}
	opts.Context = ctx
	return opts, nil
}
