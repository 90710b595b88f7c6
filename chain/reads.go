package chain

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/blndgs/guardian/guarderr"
	"github.com/blndgs/guardian/model"
)

// read runs a view call on the read-only binding.
func (r *Router) read(ctx context.Context, op, method string, args ...any) (*outputs, error) {
	b, err := r.current(op)
	if err != nil {
		return nil, err
	}
	var out []any
	if err := b.Reader.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, classifyCallError(op, err)
	}
	return &outputs{method: method, vals: out}, nil
}

func decodeErr(op string, o *outputs) error {
	if o.err == nil {
		return nil
	}
	return guarderr.Wrap(guarderr.Contract, op, o.err, "unexpected contract response")
}

// Owner returns the current owner of the account.
func (r *Router) Owner(ctx context.Context) (common.Address, error) {
	const op = "owner"
	o, err := r.read(ctx, op, "owner")
	if err != nil {
		return common.Address{}, err
	}
	owner := get[common.Address](o, 0)
	return owner, decodeErr(op, o)
}

// GetRecoveryConfig returns the recovery threshold, delay and guardian set.
func (r *Router) GetRecoveryConfig(ctx context.Context) (*model.RecoveryConfig, error) {
	const op = "getRecoveryConfig"
	o, err := r.read(ctx, op, "getRecoveryConfig")
	if err != nil {
		return nil, err
	}
	cfg := &model.RecoveryConfig{
		Threshold:     uint64Of(o, 0),
		GuardianCount: uint64Of(o, 1),
		Delay:         time.Duration(uint64Of(o, 2)) * time.Second,
	}
	if err := decodeErr(op, o); err != nil {
		return nil, err
	}

	g, err := r.read(ctx, op, "getRecoveryGuardians")
	if err != nil {
		return nil, err
	}
	cfg.Guardians = get[[]common.Address](g, 0)
	if err := decodeErr(op, g); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GetRecoveryRequest returns a recovery request and its status at the current
// time.
func (r *Router) GetRecoveryRequest(ctx context.Context, recoveryID string) (*model.RecoveryRequest, model.RecoveryStatus, error) {
	const op = "getRecoveryRequest"
	id, err := model.ParseBytes32(op, "recovery id", recoveryID)
	if err != nil {
		return nil, "", err
	}
	o, err := r.read(ctx, op, "getRecoveryRequest", id)
	if err != nil {
		return nil, "", err
	}
	req := &model.RecoveryRequest{
		ID:           common.Hash(id),
		NewOwner:     get[common.Address](o, 0),
		SupportCount: uint64Of(o, 1),
		ExecuteAfter: uint64Of(o, 2),
		Executed:     get[bool](o, 3),
		Cancelled:    get[bool](o, 4),
		Epoch:        uint64Of(o, 5),
	}
	if err := decodeErr(op, o); err != nil {
		return nil, "", err
	}
	if req.NewOwner == (common.Address{}) {
		return nil, "", guarderr.Recoveryf(op, "recovery request %s does not exist", req.ID.Hex())
	}
	return req, req.Status(r.now()), nil
}

// GetUpgradeStatus returns the pending upgrade, if any. ExecuteAfter is
// requestedAt plus the on-chain UPGRADE_DELAY.
func (r *Router) GetUpgradeStatus(ctx context.Context) (*model.UpgradeStatus, error) {
	const op = "getUpgradeStatus"
	impl, err := r.read(ctx, op, "pendingImplementation")
	if err != nil {
		return nil, err
	}
	status := &model.UpgradeStatus{PendingImplementation: get[common.Address](impl, 0)}
	if err := decodeErr(op, impl); err != nil {
		return nil, err
	}
	if !status.Pending() {
		return status, nil
	}

	at, err := r.read(ctx, op, "upgradeRequestedAt")
	if err != nil {
		return nil, err
	}
	status.RequestedAt = uint64Of(at, 0)
	if err := decodeErr(op, at); err != nil {
		return nil, err
	}

	delay, err := r.read(ctx, op, "UPGRADE_DELAY")
	if err != nil {
		return nil, err
	}
	d := uint64Of(delay, 0)
	if err := decodeErr(op, delay); err != nil {
		return nil, err
	}
	status.ExecuteAfter = status.RequestedAt + d
	return status, nil
}

// GetSessionKey returns the on-chain state of a session key.
func (r *Router) GetSessionKey(ctx context.Context, key string) (*model.SessionKeyInfo, error) {
	const op = "getSessionKey"
	addr, err := model.ParseAddress(op, "session key", key)
	if err != nil {
		return nil, err
	}
	o, err := r.read(ctx, op, "getSessionKey", addr)
	if err != nil {
		return nil, err
	}
	info := &model.SessionKeyInfo{
		Key:             addr,
		ValidAfter:      get[uint64](o, 0),
		ValidUntil:      get[uint64](o, 1),
		SpendLimit:      get[*big.Int](o, 2),
		Spent:           get[*big.Int](o, 3),
		MaxTxValue:      get[*big.Int](o, 4),
		Cooldown:        get[uint64](o, 5),
		LastUsed:        get[uint64](o, 6),
		AllowAllTargets: get[bool](o, 7),
		Revoked:         get[bool](o, 8),
	}
	return info, decodeErr(op, o)
}

// GetTokenPolicy returns the per-token policy for token.
func (r *Router) GetTokenPolicy(ctx context.Context, token string) (*model.TokenPolicyInfo, error) {
	const op = "getTokenPolicy"
	addr, err := model.ParseAddress(op, "token", token)
	if err != nil {
		return nil, err
	}
	o, err := r.read(ctx, op, "getTokenPolicy", addr)
	if err != nil {
		return nil, err
	}
	info := &model.TokenPolicyInfo{
		Token:              addr,
		MaxApproval:        get[*big.Int](o, 0),
		DailyTransferLimit: get[*big.Int](o, 1),
		DailyTransferred:   get[*big.Int](o, 2),
		Exists:             get[bool](o, 3),
	}
	return info, decodeErr(op, o)
}
