package guardian

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/blndgs/guardian/model"
)

// Admin operations are direct owner-signed transactions against the wallet.
// Each returns the transaction hash once the receipt is in. They fail with an
// Auth error when no owner key is configured and a Network error when no
// provider is set.

func (c *Client) AddRecoveryGuardian(ctx context.Context, guardian string) (common.Hash, error) {
	return c.router.AddRecoveryGuardian(ctx, guardian)
}

func (c *Client) RemoveRecoveryGuardian(ctx context.Context, guardian string) (common.Hash, error) {
	return c.router.RemoveRecoveryGuardian(ctx, guardian)
}

func (c *Client) SetRecoveryThreshold(ctx context.Context, threshold uint64) (common.Hash, error) {
	return c.router.SetRecoveryThreshold(ctx, threshold)
}

// SetRecoveryDelay refuses delays under 48 hours without contacting the chain.
func (c *Client) SetRecoveryDelay(ctx context.Context, delay time.Duration) (common.Hash, error) {
	return c.router.SetRecoveryDelay(ctx, delay)
}

func (c *Client) InitiateRecovery(ctx context.Context, newOwner string) (common.Hash, error) {
	return c.router.InitiateRecovery(ctx, newOwner)
}

func (c *Client) SupportRecovery(ctx context.Context, recoveryID string) (common.Hash, error) {
	return c.router.SupportRecovery(ctx, recoveryID)
}

func (c *Client) ExecuteRecovery(ctx context.Context, recoveryID string) (common.Hash, error) {
	return c.router.ExecuteRecovery(ctx, recoveryID)
}

func (c *Client) CancelRecovery(ctx context.Context, recoveryID string) (common.Hash, error) {
	return c.router.CancelRecovery(ctx, recoveryID)
}

func (c *Client) RequestUpgrade(ctx context.Context, implementation string) (common.Hash, error) {
	return c.router.RequestUpgrade(ctx, implementation)
}

func (c *Client) CancelUpgrade(ctx context.Context) (common.Hash, error) {
	return c.router.CancelUpgrade(ctx)
}

func (c *Client) ExecuteUpgrade(ctx context.Context) (common.Hash, error) {
	return c.router.ExecuteUpgrade(ctx)
}

func (c *Client) CreateSessionKey(ctx context.Context, cfg model.SessionKeyConfig) (common.Hash, error) {
	return c.router.CreateSessionKey(ctx, cfg)
}

func (c *Client) RevokeSessionKey(ctx context.Context, key string) (common.Hash, error) {
	return c.router.RevokeSessionKey(ctx, key)
}

func (c *Client) SetSessionKeyTargets(ctx context.Context, key string, targets []string, allowed bool) (common.Hash, error) {
	return c.router.SetSessionKeyTargets(ctx, key, targets, allowed)
}

func (c *Client) SetTokenPolicy(ctx context.Context, token string, maxApproval, dailyTransferLimit *big.Int) (common.Hash, error) {
	return c.router.SetTokenPolicy(ctx, token, maxApproval, dailyTransferLimit)
}

func (c *Client) RemoveTokenPolicy(ctx context.Context, token string) (common.Hash, error) {
	return c.router.RemoveTokenPolicy(ctx, token)
}

// Multicall batches admin calls built with chain.PackAdminCall.
func (c *Client) Multicall(ctx context.Context, calls [][]byte) (common.Hash, error) {
	return c.router.Multicall(ctx, calls)
}

// Read-only admin queries need a provider but no owner key.

func (c *Client) GetRecoveryConfig(ctx context.Context) (*model.RecoveryConfig, error) {
	return c.router.GetRecoveryConfig(ctx)
}

// GetRecoveryRequest returns the request and its status derived at the
// current time.
func (c *Client) GetRecoveryRequest(ctx context.Context, recoveryID string) (*model.RecoveryRequest, model.RecoveryStatus, error) {
	return c.router.GetRecoveryRequest(ctx, recoveryID)
}

func (c *Client) GetUpgradeStatus(ctx context.Context) (*model.UpgradeStatus, error) {
	return c.router.GetUpgradeStatus(ctx)
}

func (c *Client) GetSessionKey(ctx context.Context, key string) (*model.SessionKeyInfo, error) {
	return c.router.GetSessionKey(ctx, key)
}

func (c *Client) GetTokenPolicy(ctx context.Context, token string) (*model.TokenPolicyInfo, error) {
	return c.router.GetTokenPolicy(ctx, token)
}
