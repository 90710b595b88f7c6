package guardian

import (
	"context"
	"errors"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/blndgs/guardian/chain"
	"github.com/blndgs/guardian/model"
)

// NonceSource returns the next EntryPoint nonce of an account.
// *chain.EntryPoint implements it.
type NonceSource interface {
	GetNonce(ctx context.Context, sender common.Address, key *big.Int) (*big.Int, error)
}

type options struct {
	httpClient *http.Client
	logger     *zerolog.Logger
	access     string
	refresh    string
	debug      bool
	gas        model.GasDefaults
	bindings   *chain.Bindings
	nonces     NonceSource
}

// Option configures the Client during New.
type Option func(*options) error

// WithHTTPClient injects a custom *http.Client for Guardian API calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) error {
		if hc == nil {
			return errors.New("nil http client")
		}
		o.httpClient = hc
		return nil
	}
}

// WithLogger sets the logger used by the client and its transport.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) error {
		o.logger = &l
		return nil
	}
}

// WithTokens seeds the session with an access/refresh token pair.
func WithTokens(access, refresh string) Option {
	return func(o *options) error {
		o.access, o.refresh = access, refresh
		return nil
	}
}

// WithDebugLogging logs redacted request and response bodies at debug level.
// GUARDIAN_DEBUG=true has the same effect.
func WithDebugLogging(enabled bool) Option {
	return func(o *options) error {
		o.debug = o.debug || enabled
		return nil
	}
}

// WithGasDefaults replaces the fixed gas and fee defaults used by BuildUserOp.
// Nil fields keep the built-in value.
func WithGasDefaults(gas model.GasDefaults) Option {
	return func(o *options) error {
		o.gas = gas
		return nil
	}
}

// WithWalletBackend installs chain bindings and a nonce source instead of
// dialing an RPC endpoint. nonces may be nil.
func WithWalletBackend(b chain.Bindings, nonces NonceSource) Option {
	return func(o *options) error {
		if b.Wallet == nil || b.Reader == nil || b.WaitMined == nil {
			return errors.New("incomplete wallet bindings")
		}
		o.bindings = &b
		o.nonces = nonces
		return nil
	}
}
