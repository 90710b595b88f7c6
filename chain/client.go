// Package chain talks to the Guardian smart account and the ERC-4337
// EntryPoint over JSON-RPC.
//
// Administrative mutations are never wrapped in a UserOperation: the account's
// policy engine rejects calls that target the account itself, so every admin
// call is a direct transaction signed by the owner key.
package chain

import (
	"context"
	"fmt"
	"math/big"
	"net/url"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/blndgs/guardian/guarderr"
)

// Backend is what the bindings need from a node connection. *ethclient.Client
// implements it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// ValidateRPCURL accepts absolute http, https, ws and wss URLs.
func ValidateRPCURL(rpcURL string) error {
	u, err := url.Parse(rpcURL)
	if err != nil || u.Host == "" {
		return guarderr.InvalidInputf("setProvider", "rpc url must be an absolute URL")
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
		return nil
	default:
		return guarderr.InvalidInputf("setProvider", "rpc url scheme %q is not one of http, https, ws, wss", u.Scheme)
	}
}

// Conn is a verified node connection.
type Conn struct {
	*ethclient.Client
	ChainID *big.Int
}

// Dial connects to rpcURL and checks that the node serves expectedChainID.
// An expectedChainID of zero accepts whatever the node reports.
func Dial(ctx context.Context, rpcURL string, expectedChainID uint64) (*Conn, error) {
	if err := ValidateRPCURL(rpcURL); err != nil {
		return nil, err
	}

	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, guarderr.Wrap(guarderr.Network, "setProvider", err, "failed to connect to RPC")
	}

	networkChainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, guarderr.Wrap(guarderr.Network, "setProvider", err, "failed to get chain ID")
	}
	if expectedChainID != 0 && (!networkChainID.IsUint64() || networkChainID.Uint64() != expectedChainID) {
		client.Close()
		return nil, guarderr.InvalidInputf("setProvider", "chain ID mismatch: expected %d, got %s", expectedChainID, networkChainID)
	}

	return &Conn{Client: client, ChainID: networkChainID}, nil
}

func (c *Conn) String() string {
	return fmt.Sprintf("chain(%s)", c.ChainID)
}
