// Package plugin exposes Guardian wallet capabilities to agent frameworks.
//
// An Action is something an agent can do (evaluate a transaction, freeze the
// account, rotate its key); a Provider supplies context the agent reads before
// deciding. Both are plain interfaces so that any framework adapter can drive
// them; RegisterTools and RegisterProviders adapt them to an MCP server.
package plugin

import (
	"context"
	"fmt"
	"math/big"

	"github.com/blndgs/guardian/model"
)

// Wallet is the part of *guardian.Client the built-in actions need.
type Wallet interface {
	GetAccount(ctx context.Context) (*model.AccountInfo, error)
	EvaluateTransaction(ctx context.Context, tx model.TransactionParams) (*model.EvaluationResult, error)
	GetTransactions(ctx context.Context, q model.TransactionQuery) (*model.TransactionPage, error)
	FreezeAccount(ctx context.Context, reason string) (*model.FreezeResult, error)
	RotateAgentKey(ctx context.Context, newAgentKey string) (*model.RotateKeyResult, error)
}

// Input holds the arguments of one invocation, keyed by parameter name.
type Input map[string]any

// String returns the string argument key, or "" when absent or not a string.
func (in Input) String(key string) string {
	s, _ := in[key].(string)
	return s
}

// Outcome is the result of a handled action.
type Outcome struct {
	Text string // summary for the agent
	Data any    // structured result, may be nil
}

// Param describes one string parameter of an action.
type Param struct {
	Name        string
	Description string
	Required    bool
}

// Action is a capability an agent can invoke. Validate is cheap and performs
// no I/O; Handle is only called for input that passed Validate.
type Action interface {
	Name() string
	Description() string
	Params() []Param
	Validate(ctx context.Context, in Input) bool
	Handle(ctx context.Context, in Input) (Outcome, error)
}

// Provider supplies read-only context as text.
type Provider interface {
	Name() string
	Description() string
	Get(ctx context.Context) (string, error)
}

// Actions returns the built-in actions over w.
func Actions(w Wallet) []Action {
	return []Action{
		&evaluateAction{wallet: w},
		&freezeAction{wallet: w},
		&rotateKeyAction{wallet: w},
	}
}

// Providers returns the built-in providers over w.
func Providers(w Wallet) []Provider {
	return []Provider{&accountStatusProvider{wallet: w}}
}

func formatEther(wei string) string {
	v, ok := new(big.Int).SetString(wei, 10)
	if !ok {
		return "unset"
	}
	return fmt.Sprintf("%s ETH", model.FormatEther(v))
}
