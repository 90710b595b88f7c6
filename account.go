package guardian

import (
	"context"

	"github.com/blndgs/guardian/guarderr"
	"github.com/blndgs/guardian/internal/api"
	"github.com/blndgs/guardian/model"
)

// GetAccount fetches the Guardian's record of the configured account.
func (c *Client) GetAccount(ctx context.Context) (*model.AccountInfo, error) {
	return api.GetAccount(ctx, c.api, c.account.Hex())
}

// RegisterAccount registers an account with the Guardian. Address and ChainID
// default to the configured values.
func (c *Client) RegisterAccount(ctx context.Context, req model.RegisterAccountRequest) (*model.AccountInfo, error) {
	if req.Address == "" {
		req.Address = c.account.Hex()
	}
	if req.ChainID == 0 {
		req.ChainID = c.cfg.ChainID
	}
	if err := model.ValidateStruct("registerAccount", req); err != nil {
		return nil, err
	}
	return api.RegisterAccount(ctx, c.api, req)
}

// GetPolicy returns the account's current policy.
func (c *Client) GetPolicy(ctx context.Context) (*model.PolicyInfo, error) {
	info, err := c.GetAccount(ctx)
	if err != nil {
		return nil, err
	}
	return &info.Policy, nil
}

// UpdatePolicy applies update and returns the resulting policy. Amounts are
// decimal wei strings.
func (c *Client) UpdatePolicy(ctx context.Context, update model.PolicyUpdate) (*model.PolicyInfo, error) {
	const op = "updatePolicy"
	if err := model.ValidateStruct(op, update); err != nil {
		return nil, err
	}
	for name, v := range map[string]*string{
		"maxTxValue":  update.MaxTxValue,
		"dailyLimit":  update.DailyLimit,
		"weeklyLimit": update.WeeklyLimit,
	} {
		if v == nil {
			continue
		}
		if _, err := model.ParseWei(*v); err != nil {
			return nil, guarderr.InvalidInputf(op, "%s must be a decimal wei amount", name)
		}
	}
	return api.UpdatePolicy(ctx, c.api, c.account.Hex(), update)
}

// GetTransactions lists evaluated transactions for the account.
func (c *Client) GetTransactions(ctx context.Context, q model.TransactionQuery) (*model.TransactionPage, error) {
	if err := model.ValidateStruct("getTransactions", q); err != nil {
		return nil, err
	}
	return api.ListTransactions(ctx, c.api, c.account.Hex(), q)
}

// FreezeAccount asks the Guardian to freeze the account.
func (c *Client) FreezeAccount(ctx context.Context, reason string) (*model.FreezeResult, error) {
	res, err := api.Freeze(ctx, c.api, c.account.Hex(), reason)
	if err != nil {
		return nil, err
	}
	c.log.Warn().Str("account", c.account.Hex()).Msg("account frozen")
	return res, nil
}

// RotateAgentKey replaces the agent key address registered with the Guardian.
func (c *Client) RotateAgentKey(ctx context.Context, newAgentKey string) (*model.RotateKeyResult, error) {
	addr, err := model.ParseAddress("rotateAgentKey", "new agent key", newAgentKey)
	if err != nil {
		return nil, err
	}
	return api.RotateKey(ctx, c.api, c.account.Hex(), addr.Hex())
}

// GetAuditLog returns up to limit audit events. A limit of zero uses the
// server default.
func (c *Client) GetAuditLog(ctx context.Context, limit int) ([]model.AuditEvent, error) {
	if limit < 0 {
		return nil, guarderr.InvalidInputf("getAuditLog", "limit cannot be negative")
	}
	return api.ListAudit(ctx, c.api, c.account.Hex(), limit)
}
