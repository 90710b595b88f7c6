package guardian

import (
	"context"
	"fmt"
	"math/big"

	"github.com/blndgs/guardian/guarderr"
	"github.com/blndgs/guardian/internal/api"
	"github.com/blndgs/guardian/model"
)

// RejectionError is returned by SignAndEvaluate when the Guardian rejects a
// transaction. It carries the full evaluation.
type RejectionError struct {
	Result *model.EvaluationResult
}

func (e *RejectionError) Error() string {
	msg := fmt.Sprintf("guardian rejected transaction (risk score %d)", e.Result.RiskScore)
	if e.Result.RejectionReason != "" {
		msg += ": " + e.Result.RejectionReason
	}
	return msg
}

// ErrorKind reports guarderr.Rejection.
func (e *RejectionError) ErrorKind() guarderr.Kind { return guarderr.Rejection }

// RiskScore is the score assigned by the Guardian.
func (e *RejectionError) RiskScore() int { return e.Result.RiskScore }

// Layers returns the per-layer detail of the evaluation.
func (e *RejectionError) Layers() model.LayerResults { return e.Result.Layers }

// BuildUserOp builds a UserOperation for tx sent from the configured account.
//
// The nonce is read from the EntryPoint when a provider is set; otherwise it is
// zero and a warning is logged. When an agent key is configured the operation
// is signed over its hash. Building two operations for the same account at the
// same time races on the nonce; callers serialize construction per account.
func (c *Client) BuildUserOp(ctx context.Context, tx model.TransactionParams) (*model.UserOperation, error) {
	const op = "buildUserOp"
	if err := model.ValidateTransaction(tx); err != nil {
		return nil, err
	}

	nonce := new(big.Int)
	if src := c.nonceSource(); src != nil {
		n, err := src.GetNonce(ctx, c.account, nil)
		if err != nil {
			return nil, err
		}
		nonce = n
	} else {
		c.log.Warn().Str("account", c.account.Hex()).Msg("no chain provider set; building UserOperation with nonce 0")
	}

	userOp, err := model.BuildUserOp(c.account, tx, nonce, c.gas)
	if err != nil {
		return nil, err
	}

	if c.agent != nil {
		hash, err := userOp.GetUserOpHash(c.EntryPoint(), c.chainID)
		if err != nil {
			return nil, guarderr.Wrap(guarderr.InvalidInput, op, err, "cannot hash UserOperation")
		}
		sig, err := c.agent.SignHash(hash)
		if err != nil {
			return nil, guarderr.Wrap(guarderr.Auth, op, err, "agent key cannot sign")
		}
		userOp.Signature = sig
	}
	return userOp, nil
}

// EvaluateTransaction builds, signs and submits tx for evaluation. A REJECTED
// verdict is returned as a normal result, not as an error.
func (c *Client) EvaluateTransaction(ctx context.Context, tx model.TransactionParams) (*model.EvaluationResult, error) {
	userOp, err := c.BuildUserOp(ctx, tx)
	if err != nil {
		return nil, err
	}
	res, err := api.Evaluate(ctx, c.api, userOp)
	if err != nil {
		return nil, err
	}
	c.log.Info().
		Str("target", tx.Target).
		Str("verdict", string(res.Verdict)).
		Int("risk_score", res.RiskScore).
		Int64("evaluation_ms", res.EvaluationMs).
		Msg("transaction evaluated")
	return res, nil
}

// SignAndEvaluate is EvaluateTransaction for callers that treat a rejection as
// an error: a REJECTED verdict is returned as *RejectionError. It requires an
// agent key.
func (c *Client) SignAndEvaluate(ctx context.Context, tx model.TransactionParams) (*model.EvaluationResult, error) {
	if err := model.ValidateTransaction(tx); err != nil {
		return nil, err
	}
	if c.agent == nil {
		return nil, guarderr.Authf("signAndEvaluate", "agent key is required to sign UserOperations")
	}
	res, err := c.EvaluateTransaction(ctx, tx)
	if err != nil {
		return nil, err
	}
	if !res.Approved() {
		return res, &RejectionError{Result: res}
	}
	return res, nil
}
