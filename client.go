// Package guardian is the Go SDK for Guardian-gated smart accounts.
//
// A Client builds and signs ERC-4337 UserOperations for the account, submits
// them to the Guardian API for risk evaluation and manages the account's
// policy, history and audit log. Administrative changes to the wallet
// (recovery, upgrades, session keys, token policies) are sent as direct
// transactions signed by the owner key; they never go through a UserOperation
// because the wallet refuses calls that target itself.
//
// Typical use:
//
//	cfg, err := guardian.LoadConfig()
//	...
//	c, err := guardian.New(cfg)
//	...
//	defer c.Close()
//	res, err := c.EvaluateTransaction(ctx, model.TransactionParams{Target: to, Value: amount})
package guardian

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/blndgs/guardian/chain"
	"github.com/blndgs/guardian/guarderr"
	"github.com/blndgs/guardian/internal/transport"
	"github.com/blndgs/guardian/model"
	"github.com/blndgs/guardian/signer"
)

// Client is safe for concurrent use, except that UserOperations for the same
// account must be built one at a time (see BuildUserOp).
type Client struct {
	cfg        Config
	account    common.Address
	chainID    *big.Int
	entryPoint common.Address
	gas        model.GasDefaults

	agent *signer.Signer // nil when no agent key is configured
	owner *signer.Signer // nil when no owner key is configured

	api    *transport.Client
	router *chain.Router
	log    zerolog.Logger

	mu     sync.RWMutex
	nonces NonceSource
	conn   *chain.Conn

	closed uint32
}

// New validates cfg and constructs a Client. When cfg.RPCURL is set the client
// connects to it before returning.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &options{debug: cfg.Debug}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, guarderr.Wrap(guarderr.InvalidInput, "guardian.New", err, "invalid option")
		}
	}

	logger := log.Logger.With().Str("component", "guardian").Logger()
	if o.logger != nil {
		logger = *o.logger
	}

	c := &Client{
		cfg:        cfg,
		account:    common.HexToAddress(cfg.AccountAddress),
		chainID:    new(big.Int).SetUint64(cfg.ChainID),
		entryPoint: common.HexToAddress(cfg.EntryPoint),
		gas:        o.gas,
		log:        logger,
	}

	var err error
	if cfg.AgentKey != "" {
		if c.agent, err = signer.New(cfg.AgentKey); err != nil {
			return nil, guarderr.InvalidInputf("guardian.New", "agent key must be 32 bytes of hex")
		}
	}
	if cfg.OwnerKey != "" {
		if c.owner, err = signer.New(cfg.OwnerKey); err != nil {
			return nil, guarderr.InvalidInputf("guardian.New", "owner key must be 32 bytes of hex")
		}
	}

	c.api, err = transport.New(transport.Config{
		BaseURL:        cfg.APIURL,
		APIKey:         cfg.APIKey,
		MaxRetries:     cfg.MaxRetries,
		BaseDelay:      cfg.RetryBaseDelay,
		RequestTimeout: cfg.RequestTimeout,
		HTTPClient:     o.httpClient,
		Logger:         logger.With().Str("component", "transport").Logger(),
		Debug:          o.debug,
	}, transport.NewSession(o.access, o.refresh))
	if err != nil {
		return nil, err
	}

	c.router = chain.NewRouter(c.account, c.chainID, c.owner, logger.With().Str("component", "admin").Logger())
	if o.bindings != nil {
		c.router.Connect(*o.bindings)
		c.nonces = o.nonces
	} else if cfg.RPCURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
		defer cancel()
		if err := c.SetProvider(ctx, cfg.RPCURL); err != nil {
			return nil, err
		}
	}

	c.log.Debug().
		Str("account", c.account.Hex()).
		Uint64("chain_id", cfg.ChainID).
		Bool("agent_key", c.agent != nil).
		Bool("owner_key", c.owner != nil).
		Msg("guardian client created")
	return c, nil
}

// Account returns the configured smart account address.
func (c *Client) Account() common.Address {
	return c.account
}

// ChainID returns the configured chain id.
func (c *Client) ChainID() uint64 {
	return c.cfg.ChainID
}

// EntryPoint returns the EntryPoint used for nonces and hashing.
func (c *Client) EntryPoint() common.Address {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entryPoint
}

// SetProvider connects the client to an Ethereum node. The node must serve
// the configured chain id. An optional entry point replaces the configured
// one. Any previous connection is closed.
func (c *Client) SetProvider(ctx context.Context, rpcURL string, entryPoint ...string) error {
	const op = "setProvider"
	if err := chain.ValidateRPCURL(rpcURL); err != nil {
		return err
	}
	ep := c.EntryPoint()
	if len(entryPoint) > 0 && entryPoint[0] != "" {
		addr, err := model.ParseAddress(op, "entry point", entryPoint[0])
		if err != nil {
			return err
		}
		ep = addr
	}

	conn, err := chain.Dial(ctx, rpcURL, c.cfg.ChainID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	prev := c.conn
	c.conn = conn
	c.entryPoint = ep
	c.nonces = chain.NewEntryPoint(ep, conn)
	c.mu.Unlock()
	c.router.Connect(chain.NewBindings(conn, c.account))

	if prev != nil {
		prev.Close()
	}
	c.log.Info().Str("chain", conn.String()).Str("entry_point", ep.Hex()).Msg("chain provider set")
	return nil
}

// SetTokens replaces the bearer token pair.
func (c *Client) SetTokens(access, refresh string) {
	c.api.Session().Set(access, refresh)
}

// ClearTokens drops the bearer token pair.
func (c *Client) ClearTokens() {
	c.api.Session().Clear()
}

// Close releases the chain connection. Safe to call multiple times.
func (c *Client) Close() error {
	if !atomic.CompareAndSwapUint32(&c.closed, 0, 1) {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	return nil
}

func (c *Client) nonceSource() NonceSource {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.nonces
}

func (c *Client) String() string {
	return fmt.Sprintf("guardian.Client(%s, chain %d)", c.account.Hex(), c.cfg.ChainID)
}
