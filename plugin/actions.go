package plugin

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/blndgs/guardian/model"
)

type evaluateAction struct {
	wallet Wallet
}

func (a *evaluateAction) Name() string { return "evaluate_transaction" }

func (a *evaluateAction) Description() string {
	return "Submit a transaction from the smart account to the Guardian for risk evaluation. " +
		"Returns APPROVED or REJECTED with a risk score from 0 to 100."
}

func (a *evaluateAction) Params() []Param {
	return []Param{
		{Name: "target", Description: "0x-prefixed address the account will call", Required: true},
		{Name: "value", Description: "Amount in wei as a decimal string (default 0)"},
		{Name: "data", Description: "0x-prefixed calldata (default empty)"},
	}
}

func (a *evaluateAction) Validate(_ context.Context, in Input) bool {
	_, err := a.params(in)
	return err == nil
}

func (a *evaluateAction) params(in Input) (model.TransactionParams, error) {
	tx := model.TransactionParams{Target: in.String("target"), Value: new(big.Int)}
	if !model.IsAddress(tx.Target) {
		return tx, fmt.Errorf("target must be an address")
	}
	if v := in.String("value"); v != "" {
		wei, err := model.ParseWei(v)
		if err != nil {
			return tx, err
		}
		tx.Value = wei
	}
	if d := in.String("data"); d != "" {
		data, err := hexutil.Decode(d)
		if err != nil {
			return tx, err
		}
		tx.Data = data
	}
	return tx, nil
}

func (a *evaluateAction) Handle(ctx context.Context, in Input) (Outcome, error) {
	tx, err := a.params(in)
	if err != nil {
		return Outcome{}, err
	}
	res, err := a.wallet.EvaluateTransaction(ctx, tx)
	if err != nil {
		return Outcome{}, err
	}

	text := fmt.Sprintf("%s (risk score %d)", res.Verdict, res.RiskScore)
	if !res.Approved() {
		if res.RejectionReason != "" {
			text += ": " + res.RejectionReason
		}
		if failed := res.Layers.FailedRules(); len(failed) > 0 {
			text += "; failed rules: " + strings.Join(failed, ", ")
		}
	}
	return Outcome{Text: text, Data: res}, nil
}

type freezeAction struct {
	wallet Wallet
}

func (a *freezeAction) Name() string { return "freeze_account" }

func (a *freezeAction) Description() string {
	return "Freeze the smart account so that every further transaction is rejected. Use when activity looks compromised."
}

func (a *freezeAction) Params() []Param {
	return []Param{{Name: "reason", Description: "Why the account is being frozen", Required: true}}
}

func (a *freezeAction) Validate(_ context.Context, in Input) bool {
	return strings.TrimSpace(in.String("reason")) != ""
}

func (a *freezeAction) Handle(ctx context.Context, in Input) (Outcome, error) {
	res, err := a.wallet.FreezeAccount(ctx, strings.TrimSpace(in.String("reason")))
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Text: "account frozen at " + res.FrozenAt.UTC().Format("2006-01-02 15:04:05 MST"), Data: res}, nil
}

type rotateKeyAction struct {
	wallet Wallet
}

func (a *rotateKeyAction) Name() string { return "rotate_agent_key" }

func (a *rotateKeyAction) Description() string {
	return "Replace the agent key registered for the smart account with a new key address."
}

func (a *rotateKeyAction) Params() []Param {
	return []Param{{Name: "new_agent_key", Description: "0x-prefixed address of the new agent key", Required: true}}
}

func (a *rotateKeyAction) Validate(_ context.Context, in Input) bool {
	return model.IsAddress(in.String("new_agent_key"))
}

func (a *rotateKeyAction) Handle(ctx context.Context, in Input) (Outcome, error) {
	res, err := a.wallet.RotateAgentKey(ctx, in.String("new_agent_key"))
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Text: "agent key rotated to " + res.NewAgentKey, Data: res}, nil
}

type accountStatusProvider struct {
	wallet Wallet
}

func (p *accountStatusProvider) Name() string { return "account_status" }

func (p *accountStatusProvider) Description() string {
	return "Current state of the smart account: frozen flag, policy limits and recent verdicts."
}

func (p *accountStatusProvider) Get(ctx context.Context) (string, error) {
	info, err := p.wallet.GetAccount(ctx)
	if err != nil {
		return "", err
	}
	recent, err := p.wallet.GetTransactions(ctx, model.TransactionQuery{Limit: 20})
	if err != nil {
		return "", err
	}
	rejected := 0
	for _, tx := range recent.Transactions {
		if tx.Verdict == model.Rejected {
			rejected++
		}
	}

	state := "active"
	if info.Frozen {
		state = "frozen"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Account %s on chain %d is %s.\n", info.Address, info.ChainID, state)
	fmt.Fprintf(&b, "Policy: max per transaction %s, daily limit %s, risk threshold %d.\n",
		formatEther(info.Policy.MaxTxValue), formatEther(info.Policy.DailyLimit), info.Policy.RiskThreshold)
	fmt.Fprintf(&b, "Recent transactions: %d evaluated, %d rejected.", len(recent.Transactions), rejected)
	return b.String(), nil
}
