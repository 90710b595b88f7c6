package chain

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/blndgs/guardian/guarderr"
	"github.com/blndgs/guardian/model"
	"github.com/blndgs/guardian/signer"
)

// Caller performs read-only contract calls. *bind.BoundContract implements it.
type Caller interface {
	Call(opts *bind.CallOpts, results *[]any, method string, params ...any) error
}

// Contract performs calls and signed transactions. *bind.BoundContract
// implements it.
type Contract interface {
	Caller
	Transact(opts *bind.TransactOpts, method string, params ...any) (*types.Transaction, error)
}

// WaitFunc blocks until tx is mined and returns its receipt.
type WaitFunc func(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)

// Bindings is the chain side of a Router.
type Bindings struct {
	Wallet    Contract // owner-signed writes
	Reader    Caller   // view calls, no signer
	WaitMined WaitFunc
}

// NewBindings binds the wallet at address on backend.
func NewBindings(backend Backend, wallet common.Address) Bindings {
	return Bindings{
		Wallet: bind.NewBoundContract(wallet, walletABI, backend, backend, backend),
		Reader: bind.NewBoundContract(wallet, walletABI, backend, nil, nil),
		WaitMined: func(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
			return bind.WaitMined(ctx, backend, tx)
		},
	}
}

// Router dispatches admin operations as direct owner-signed transactions
// against the wallet and serves read-only admin queries.
type Router struct {
	account common.Address
	chainID *big.Int
	owner   *signer.Signer
	log     zerolog.Logger
	now     func() time.Time

	mu       sync.RWMutex
	bindings *Bindings
}

// NewRouter returns a Router for account. owner may be nil, in which case
// every write fails with an Auth error; reads still work once connected.
func NewRouter(account common.Address, chainID *big.Int, owner *signer.Signer, log zerolog.Logger) *Router {
	return &Router{
		account: account,
		chainID: chainID,
		owner:   owner,
		log:     log,
		now:     time.Now,
	}
}

// Connect installs (or replaces) the chain bindings.
func (r *Router) Connect(b Bindings) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings = &b
}

// Connected reports whether bindings are installed.
func (r *Router) Connected() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bindings != nil
}

func (r *Router) current(op string) (*Bindings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.bindings == nil {
		return nil, guarderr.Networkf(op, "no chain provider configured; call SetProvider first")
	}
	return r.bindings, nil
}

// send validates preconditions in a fixed order (owner key, then connection),
// submits method on the wallet and waits for the receipt.
func (r *Router) send(ctx context.Context, op, method string, args ...any) (common.Hash, error) {
	if r.owner == nil {
		return common.Hash{}, guarderr.Authf(op, "owner key is required for admin operations")
	}
	b, err := r.current(op)
	if err != nil {
		return common.Hash{}, err
	}

	opts, err := r.owner.TransactOpts(ctx, r.chainID)
	if err != nil {
		return common.Hash{}, guarderr.Wrap(guarderr.Auth, op, err, "owner key cannot sign")
	}

	tx, err := b.Wallet.Transact(opts, method, args...)
	if err != nil {
		adminTxTotal.WithLabelValues(method, "rejected").Inc()
		return common.Hash{}, classifyCallError(op, err)
	}
	log := r.log.With().Str("op", op).Str("tx", tx.Hash().Hex()).Logger()
	log.Info().Msg("admin transaction submitted")

	receipt, err := b.WaitMined(ctx, tx)
	if err != nil {
		adminTxTotal.WithLabelValues(method, "unconfirmed").Inc()
		return tx.Hash(), guarderr.Wrap(guarderr.Network, op, err, "transaction %s was not confirmed", tx.Hash().Hex())
	}
	if receipt.Status == types.ReceiptStatusFailed {
		adminTxTotal.WithLabelValues(method, "reverted").Inc()
		log.Warn().Uint64("block", blockOf(receipt)).Msg("admin transaction reverted")
		return tx.Hash(), guarderr.New(guarderr.Contract, op, "transaction %s reverted", tx.Hash().Hex())
	}

	adminTxTotal.WithLabelValues(method, "success").Inc()
	log.Info().Uint64("block", blockOf(receipt)).Msg("admin transaction confirmed")
	return tx.Hash(), nil
}

func blockOf(receipt *types.Receipt) uint64 {
	if receipt.BlockNumber == nil {
		return 0
	}
	return receipt.BlockNumber.Uint64()
}

// guardianAddress validates an address used in the recovery flow.
func (r *Router) guardianAddress(op, field, s string) (common.Address, error) {
	addr, err := model.ParseAddress(op, field, s)
	if err != nil {
		return common.Address{}, err
	}
	if addr == (common.Address{}) {
		return common.Address{}, guarderr.Recoveryf(op, "%s cannot be the zero address", field)
	}
	if addr == r.account {
		return common.Address{}, guarderr.Recoveryf(op, "%s cannot be the account itself", field)
	}
	return addr, nil
}

// AddRecoveryGuardian adds guardian to the recovery set.
func (r *Router) AddRecoveryGuardian(ctx context.Context, guardian string) (common.Hash, error) {
	const op = "addRecoveryGuardian"
	addr, err := r.guardianAddress(op, "guardian", guardian)
	if err != nil {
		return common.Hash{}, err
	}
	return r.send(ctx, op, "addRecoveryGuardian", addr)
}

// RemoveRecoveryGuardian removes guardian from the recovery set. Pending
// requests from the previous guardian epoch become invalid.
func (r *Router) RemoveRecoveryGuardian(ctx context.Context, guardian string) (common.Hash, error) {
	const op = "removeRecoveryGuardian"
	addr, err := r.guardianAddress(op, "guardian", guardian)
	if err != nil {
		return common.Hash{}, err
	}
	return r.send(ctx, op, "removeRecoveryGuardian", addr)
}

// SetRecoveryThreshold sets M in the M-of-N guardian vote.
func (r *Router) SetRecoveryThreshold(ctx context.Context, threshold uint64) (common.Hash, error) {
	const op = "setRecoveryThreshold"
	if threshold == 0 {
		return common.Hash{}, guarderr.Recoveryf(op, "threshold must be at least 1")
	}
	return r.send(ctx, op, "setRecoveryThreshold", new(big.Int).SetUint64(threshold))
}

// SetRecoveryDelay sets the delay between a successful vote and execution.
// Delays under 48 hours are refused.
func (r *Router) SetRecoveryDelay(ctx context.Context, delay time.Duration) (common.Hash, error) {
	const op = "setRecoveryDelay"
	if delay < model.MinRecoveryDelay {
		return common.Hash{}, guarderr.Recoveryf(op, "recovery delay must be at least %s, got %s", model.MinRecoveryDelay, delay)
	}
	return r.send(ctx, op, "setRecoveryDelay", big.NewInt(int64(delay/time.Second)))
}

// InitiateRecovery opens a recovery request proposing newOwner. It must be
// sent by a guardian; the owner key here is the guardian's signing key.
func (r *Router) InitiateRecovery(ctx context.Context, newOwner string) (common.Hash, error) {
	const op = "initiateRecovery"
	addr, err := r.guardianAddress(op, "new owner", newOwner)
	if err != nil {
		return common.Hash{}, err
	}
	return r.send(ctx, op, "initiateRecovery", addr)
}

func (r *Router) recoveryCall(ctx context.Context, op, recoveryID string) (common.Hash, error) {
	id, err := model.ParseBytes32(op, "recovery id", recoveryID)
	if err != nil {
		return common.Hash{}, err
	}
	return r.send(ctx, op, op, id)
}

// SupportRecovery votes for a pending recovery request.
func (r *Router) SupportRecovery(ctx context.Context, recoveryID string) (common.Hash, error) {
	return r.recoveryCall(ctx, "supportRecovery", recoveryID)
}

// ExecuteRecovery replaces the owner once the request is ready.
func (r *Router) ExecuteRecovery(ctx context.Context, recoveryID string) (common.Hash, error) {
	return r.recoveryCall(ctx, "executeRecovery", recoveryID)
}

// CancelRecovery cancels a pending recovery request.
func (r *Router) CancelRecovery(ctx context.Context, recoveryID string) (common.Hash, error) {
	return r.recoveryCall(ctx, "cancelRecovery", recoveryID)
}

// RequestUpgrade starts the upgrade timelock for implementation.
func (r *Router) RequestUpgrade(ctx context.Context, implementation string) (common.Hash, error) {
	const op = "requestUpgrade"
	addr, err := model.ParseAddress(op, "implementation", implementation)
	if err != nil {
		return common.Hash{}, err
	}
	if addr == (common.Address{}) {
		return common.Hash{}, guarderr.Upgradef(op, "implementation cannot be the zero address")
	}
	if addr == r.account {
		return common.Hash{}, guarderr.Upgradef(op, "implementation cannot be the account itself")
	}
	return r.send(ctx, op, "requestUpgrade", addr)
}

// CancelUpgrade drops the pending upgrade.
func (r *Router) CancelUpgrade(ctx context.Context) (common.Hash, error) {
	return r.send(ctx, "cancelUpgrade", "cancelUpgrade")
}

// ExecuteUpgrade applies the pending upgrade after the timelock.
func (r *Router) ExecuteUpgrade(ctx context.Context) (common.Hash, error) {
	return r.send(ctx, "executeUpgrade", "executeUpgrade")
}

// CreateSessionKey registers a scoped session key.
func (r *Router) CreateSessionKey(ctx context.Context, cfg model.SessionKeyConfig) (common.Hash, error) {
	const op = "createSessionKey"
	switch {
	case cfg.Key == (common.Address{}):
		return common.Hash{}, guarderr.InvalidInputf(op, "session key address is required")
	case cfg.Key == r.account:
		return common.Hash{}, guarderr.InvalidInputf(op, "session key cannot be the account itself")
	case cfg.ValidUntil <= cfg.ValidAfter:
		return common.Hash{}, guarderr.InvalidInputf(op, "validUntil must be after validAfter")
	}
	if err := model.RequirePositive("spend limit", cfg.SpendLimit); err != nil {
		return common.Hash{}, err
	}
	maxTx := cfg.MaxTxValue
	if maxTx == nil {
		maxTx = cfg.SpendLimit
	}
	if maxTx.Sign() < 0 || maxTx.Cmp(cfg.SpendLimit) > 0 {
		return common.Hash{}, guarderr.InvalidInputf(op, "max tx value must be between 0 and the spend limit")
	}
	return r.send(ctx, op, "createSessionKey",
		cfg.Key, cfg.ValidAfter, cfg.ValidUntil, cfg.SpendLimit, maxTx, cfg.Cooldown, cfg.AllowAllTargets)
}

// RevokeSessionKey revokes key immediately.
func (r *Router) RevokeSessionKey(ctx context.Context, key string) (common.Hash, error) {
	const op = "revokeSessionKey"
	addr, err := model.ParseAddress(op, "session key", key)
	if err != nil {
		return common.Hash{}, err
	}
	return r.send(ctx, op, "revokeSessionKey", addr)
}

// SetSessionKeyTargets allows or disallows targets for key.
func (r *Router) SetSessionKeyTargets(ctx context.Context, key string, targets []string, allowed bool) (common.Hash, error) {
	const op = "setSessionKeyTargets"
	addr, err := model.ParseAddress(op, "session key", key)
	if err != nil {
		return common.Hash{}, err
	}
	if len(targets) == 0 {
		return common.Hash{}, guarderr.InvalidInputf(op, "at least one target is required")
	}
	parsed := make([]common.Address, 0, len(targets))
	for _, t := range targets {
		a, err := model.ParseAddress(op, "target", t)
		if err != nil {
			return common.Hash{}, err
		}
		parsed = append(parsed, a)
	}
	return r.send(ctx, op, "setSessionKeyTargets", addr, lo.Uniq(parsed), allowed)
}

// SetTokenPolicy sets per-token approval and daily transfer limits.
func (r *Router) SetTokenPolicy(ctx context.Context, token string, maxApproval, dailyTransferLimit *big.Int) (common.Hash, error) {
	const op = "setTokenPolicy"
	addr, err := model.ParseAddress(op, "token", token)
	if err != nil {
		return common.Hash{}, err
	}
	for name, v := range map[string]*big.Int{"max approval": maxApproval, "daily transfer limit": dailyTransferLimit} {
		if v == nil || v.Sign() < 0 {
			return common.Hash{}, guarderr.InvalidInputf(op, "%s must be a non-negative amount", name)
		}
	}
	return r.send(ctx, op, "setTokenPolicy", addr, maxApproval, dailyTransferLimit)
}

// RemoveTokenPolicy deletes the policy for token.
func (r *Router) RemoveTokenPolicy(ctx context.Context, token string) (common.Hash, error) {
	const op = "removeTokenPolicy"
	addr, err := model.ParseAddress(op, "token", token)
	if err != nil {
		return common.Hash{}, err
	}
	return r.send(ctx, op, "removeTokenPolicy", addr)
}

// Multicall batches several admin calls in one owner transaction. Each entry
// must be calldata for a wallet admin function.
func (r *Router) Multicall(ctx context.Context, calls [][]byte) (common.Hash, error) {
	const op = "multicall"
	if len(calls) == 0 {
		return common.Hash{}, guarderr.InvalidInputf(op, "at least one call is required")
	}
	for i, data := range calls {
		if len(data) < 4 {
			return common.Hash{}, guarderr.InvalidInputf(op, "call %d is shorter than a selector", i)
		}
		m, err := walletABI.MethodById(data[:4])
		if err != nil || m.IsConstant() || m.Name == "multicall" {
			return common.Hash{}, guarderr.InvalidInputf(op, "call %d is not a wallet admin function", i)
		}
	}
	return r.send(ctx, op, "multicall", calls)
}

// PackAdminCall encodes one admin call for Multicall.
func PackAdminCall(method string, args ...any) ([]byte, error) {
	data, err := walletABI.Pack(method, args...)
	if err != nil {
		return nil, guarderr.Wrap(guarderr.InvalidInput, "packAdminCall", err, "cannot encode %s", method)
	}
	return data, nil
}
