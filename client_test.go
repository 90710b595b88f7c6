package guardian

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blndgs/guardian/chain"
	"github.com/blndgs/guardian/guarderr"
	"github.com/blndgs/guardian/guardiantest"
	"github.com/blndgs/guardian/model"
	"github.com/blndgs/guardian/signer"
)

const (
	testAccount = "0x0A7199a96fdf0252E09F76545c1eF2be3692F46b"
	testTarget  = "0x9d34f236bddf1b9de014312599d9c9ec8af1bc48"
	blocked     = "0xde0B295669a9FD93d5F28D9Ec85E40f4cb697BAe"

	// Hardhat accounts #0 and #1.
	agentKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	ownerKey = "0x59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"
)

func newTestClient(t *testing.T, srv *guardiantest.Server, mutate func(*Config), opts ...Option) *Client {
	t.Helper()
	cfg := DefaultConfig()
	cfg.APIURL = srv.URL
	cfg.AccountAddress = testAccount
	cfg.RetryBaseDelay = time.Millisecond
	if mutate != nil {
		mutate(&cfg)
	}
	c, err := New(cfg, append([]Option{WithLogger(zerolog.Nop())}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func withAgent(cfg *Config) { cfg.AgentKey = agentKey }

type fakeWallet struct {
	mu     sync.Mutex
	sent   []string
	nonce  *big.Int
	status uint64
}

func (f *fakeWallet) Call(*bind.CallOpts, *[]any, string, ...any) error {
	return errors.New("not implemented")
}

func (f *fakeWallet) Transact(_ *bind.TransactOpts, method string, _ ...any) (*types.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, method)
	return types.NewTx(&types.LegacyTx{Nonce: uint64(len(f.sent))}), nil
}

func (f *fakeWallet) wait(_ context.Context, tx *types.Transaction) (*types.Receipt, error) {
	return &types.Receipt{Status: f.status, TxHash: tx.Hash(), BlockNumber: big.NewInt(1)}, nil
}

func (f *fakeWallet) GetNonce(context.Context, common.Address, *big.Int) (*big.Int, error) {
	return new(big.Int).Set(f.nonce), nil
}

func (f *fakeWallet) option() Option {
	return WithWalletBackend(chain.Bindings{Wallet: f, Reader: f, WaitMined: f.wait}, f)
}

func TestNew_Validation(t *testing.T) {
	srv := guardiantest.New()
	defer srv.Close()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "missing api url", mutate: func(c *Config) { c.APIURL = "" }},
		{name: "non-http api url", mutate: func(c *Config) { c.APIURL = "ftp://guardian.example" }},
		{name: "bad account", mutate: func(c *Config) { c.AccountAddress = "0x1234" }},
		{name: "negative retries", mutate: func(c *Config) { c.MaxRetries = -1 }},
		{name: "bad rpc url", mutate: func(c *Config) { c.RPCURL = "file:///tmp/node" }},
		{name: "bad entry point", mutate: func(c *Config) { c.EntryPoint = "entrypoint" }},
		{name: "bad agent key", mutate: func(c *Config) { c.AgentKey = "0xdeadbeef" }},
		{name: "bad owner key", mutate: func(c *Config) { c.OwnerKey = ownerKey[:20] }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.APIURL = srv.URL
			cfg.AccountAddress = testAccount
			tt.mutate(&cfg)

			_, err := New(cfg, WithLogger(zerolog.Nop()))
			require.True(t, guarderr.Is(err, guarderr.InvalidInput), "got %v", err)
			require.NotContains(t, err.Error(), ownerKey[4:20])
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("GUARDIAN_API_URL", "https://guardian.example")
	t.Setenv("GUARDIAN_ACCOUNT_ADDRESS", testAccount)
	t.Setenv("GUARDIAN_CHAIN_ID", "11155111")
	t.Setenv("GUARDIAN_RETRY_BASE_DELAY", "250ms")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, uint64(11155111), cfg.ChainID)
	require.Equal(t, 3, cfg.MaxRetries)
	require.Equal(t, 250*time.Millisecond, cfg.RetryBaseDelay)
	require.Equal(t, 30*time.Second, cfg.RequestTimeout)
	require.Empty(t, cfg.RPCURL)
}

func TestLoadConfig_MissingRequired(t *testing.T) {
	t.Setenv("GUARDIAN_API_URL", "https://guardian.example")
	t.Setenv("GUARDIAN_ACCOUNT_ADDRESS", "")

	_, err := LoadConfig()
	require.True(t, guarderr.Is(err, guarderr.InvalidInput), "got %v", err)
}

func TestClient_EvaluateTransaction(t *testing.T) {
	srv := guardiantest.New()
	defer srv.Close()
	c := newTestClient(t, srv, withAgent)
	ctx := context.Background()

	tx := model.TransactionParams{Target: testTarget, Value: big.NewInt(1_000_000_000_000_000)}
	res, err := c.EvaluateTransaction(ctx, tx)
	require.NoError(t, err)
	require.Equal(t, model.Approved, res.Verdict)
	require.Equal(t, 15, res.RiskScore)

	op, err := c.BuildUserOp(ctx, tx)
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress(testAccount), op.Sender)
	require.True(t, op.HasSignature())

	hash, err := op.GetUserOpHash(chain.DefaultEntryPoint, big.NewInt(1))
	require.NoError(t, err)
	agent, err := signer.New(agentKey)
	require.NoError(t, err)
	recovered, err := signer.RecoverAddress(hash, op.Signature)
	require.NoError(t, err)
	require.Equal(t, agent.Address(), recovered)
}

func TestClient_EvaluateRejectedIsNotAnError(t *testing.T) {
	srv := guardiantest.New()
	defer srv.Close()
	srv.Block(blocked)
	c := newTestClient(t, srv, nil)

	res, err := c.EvaluateTransaction(context.Background(), model.TransactionParams{Target: blocked, Value: big.NewInt(1)})
	require.NoError(t, err)
	require.Equal(t, model.Rejected, res.Verdict)
	require.Equal(t, 95, res.RiskScore)
}

func TestClient_SignAndEvaluate(t *testing.T) {
	srv := guardiantest.New()
	defer srv.Close()
	srv.Block(blocked)
	ctx := context.Background()

	t.Run("rejection carries the score", func(t *testing.T) {
		c := newTestClient(t, srv, withAgent)
		_, err := c.SignAndEvaluate(ctx, model.TransactionParams{Target: blocked, Value: big.NewInt(1)})

		var rejection *RejectionError
		require.ErrorAs(t, err, &rejection)
		require.Equal(t, 95, rejection.RiskScore())
		require.Contains(t, rejection.Layers().FailedRules(), "target_not_blocked")
		require.Equal(t, guarderr.Rejection, guarderr.KindOf(err))
	})

	t.Run("approval", func(t *testing.T) {
		c := newTestClient(t, srv, withAgent)
		res, err := c.SignAndEvaluate(ctx, model.TransactionParams{Target: testTarget, Value: big.NewInt(1)})
		require.NoError(t, err)
		require.True(t, res.Approved())
	})

	t.Run("requires an agent key", func(t *testing.T) {
		c := newTestClient(t, srv, nil)
		before := srv.TotalHits()
		_, err := c.SignAndEvaluate(ctx, model.TransactionParams{Target: testTarget, Value: big.NewInt(1)})
		require.True(t, guarderr.Is(err, guarderr.Auth), "got %v", err)
		require.Equal(t, before, srv.TotalHits())
	})
}

func TestClient_BuildUserOp(t *testing.T) {
	srv := guardiantest.New()
	defer srv.Close()
	ctx := context.Background()

	t.Run("invalid target fails before any I/O", func(t *testing.T) {
		wallet := &fakeWallet{nonce: big.NewInt(3)}
		c := newTestClient(t, srv, withAgent, wallet.option())
		_, err := c.BuildUserOp(ctx, model.TransactionParams{Target: "0x12", Value: big.NewInt(1)})
		require.True(t, guarderr.Is(err, guarderr.InvalidInput), "got %v", err)
		require.Zero(t, srv.TotalHits())
	})

	t.Run("nonce comes from the entry point", func(t *testing.T) {
		wallet := &fakeWallet{nonce: big.NewInt(9)}
		c := newTestClient(t, srv, nil, wallet.option())
		op, err := c.BuildUserOp(ctx, model.TransactionParams{Target: testTarget})
		require.NoError(t, err)
		require.Equal(t, big.NewInt(9), op.Nonce)
		require.Empty(t, op.Signature)
	})

	t.Run("gas defaults option", func(t *testing.T) {
		c := newTestClient(t, srv, nil, WithGasDefaults(model.GasDefaults{CallGasLimit: big.NewInt(500_000)}))
		op, err := c.BuildUserOp(ctx, model.TransactionParams{Target: testTarget})
		require.NoError(t, err)
		require.Zero(t, op.Nonce.Sign())
		require.Equal(t, big.NewInt(500_000), op.CallGasLimit)
		require.Equal(t, model.DefaultGas().VerificationGasLimit, op.VerificationGasLimit)
	})
}

func TestClient_AdminRouting(t *testing.T) {
	srv := guardiantest.New()
	defer srv.Close()
	ctx := context.Background()
	withOwner := func(cfg *Config) { cfg.OwnerKey = ownerKey }

	t.Run("no owner key", func(t *testing.T) {
		wallet := &fakeWallet{status: types.ReceiptStatusSuccessful}
		c := newTestClient(t, srv, withAgent, wallet.option())
		_, err := c.AddRecoveryGuardian(ctx, testTarget)
		require.True(t, guarderr.Is(err, guarderr.Auth), "got %v", err)
		require.Empty(t, wallet.sent)
	})

	t.Run("no provider", func(t *testing.T) {
		c := newTestClient(t, srv, withOwner)
		_, err := c.AddRecoveryGuardian(ctx, testTarget)
		require.True(t, guarderr.Is(err, guarderr.Network), "got %v", err)
	})

	t.Run("invalid guardian makes no call", func(t *testing.T) {
		wallet := &fakeWallet{status: types.ReceiptStatusSuccessful}
		c := newTestClient(t, srv, withOwner, wallet.option())
		_, err := c.AddRecoveryGuardian(ctx, "not-an-address")
		require.True(t, guarderr.Is(err, guarderr.InvalidInput), "got %v", err)
		require.Empty(t, wallet.sent)
	})

	t.Run("one hour recovery delay", func(t *testing.T) {
		wallet := &fakeWallet{status: types.ReceiptStatusSuccessful}
		c := newTestClient(t, srv, withOwner, wallet.option())
		_, err := c.SetRecoveryDelay(ctx, 3600*time.Second)
		require.True(t, guarderr.Is(err, guarderr.Recovery), "got %v", err)
		require.Empty(t, wallet.sent)
	})

	t.Run("direct owner transaction, no UserOperation", func(t *testing.T) {
		wallet := &fakeWallet{status: types.ReceiptStatusSuccessful}
		c := newTestClient(t, srv, withOwner, wallet.option())
		before := srv.Hits("/v1/evaluate")

		hash, err := c.AddRecoveryGuardian(ctx, testTarget)
		require.NoError(t, err)
		require.NotEqual(t, common.Hash{}, hash)
		require.Equal(t, []string{"addRecoveryGuardian"}, wallet.sent)
		require.Equal(t, before, srv.Hits("/v1/evaluate"))
	})

	t.Run("reverted admin transaction", func(t *testing.T) {
		wallet := &fakeWallet{status: types.ReceiptStatusFailed}
		c := newTestClient(t, srv, withOwner, wallet.option())
		_, err := c.RequestUpgrade(ctx, testTarget)
		require.True(t, guarderr.Is(err, guarderr.Contract), "got %v", err)
	})
}

func TestClient_RetryBound(t *testing.T) {
	srv := guardiantest.New()
	defer srv.Close()
	srv.FailNext(http.StatusServiceUnavailable, 10)
	c := newTestClient(t, srv, func(cfg *Config) { cfg.MaxRetries = 2 })

	_, err := c.GetAccount(context.Background())
	require.True(t, guarderr.Is(err, guarderr.API), "got %v", err)
	require.Equal(t, 3, srv.Hits("/v1/accounts/"+testAccount))

	var gerr *guarderr.Error
	require.ErrorAs(t, err, &gerr)
	require.Equal(t, http.StatusServiceUnavailable, gerr.StatusCode)
	require.Equal(t, "/v1/accounts/"+testAccount, gerr.Path)
}

func TestClient_ConcurrentRefresh(t *testing.T) {
	srv := guardiantest.New(
		guardiantest.WithTokenAuth("access-0", "refresh-0"),
		guardiantest.WithAccount(model.AccountInfo{Address: testAccount, ChainID: 1}),
	)
	defer srv.Close()
	c := newTestClient(t, srv, nil, WithTokens("stale", "refresh-0"))

	const n = 5
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.GetAccount(context.Background())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	require.Equal(t, 1, srv.Hits("/v1/auth/refresh"))
}

func TestClient_RefreshFailureClearsSession(t *testing.T) {
	srv := guardiantest.New(guardiantest.WithTokenAuth("access-0", "refresh-0"))
	defer srv.Close()
	c := newTestClient(t, srv, nil, WithTokens("stale", "wrong-refresh"))

	_, err := c.GetAccount(context.Background())
	require.True(t, guarderr.Is(err, guarderr.Auth), "got %v", err)
	require.NotContains(t, err.Error(), "wrong-refresh")

	_, err = c.GetAccount(context.Background())
	require.True(t, guarderr.Is(err, guarderr.Auth), "got %v", err)
	require.Equal(t, 1, srv.Hits("/v1/auth/refresh"))
}

func TestClient_AccountLifecycle(t *testing.T) {
	srv := guardiantest.New()
	defer srv.Close()
	c := newTestClient(t, srv, withAgent)
	ctx := context.Background()

	info, err := c.RegisterAccount(ctx, model.RegisterAccountRequest{
		Owner:       testTarget,
		AgentKey:    testTarget,
		GuardianKey: testTarget,
	})
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress(testAccount).Hex(), info.Address)
	require.Equal(t, uint64(1), info.ChainID)

	tmpl, err := LookupStrategyTemplate("conservative")
	require.NoError(t, err)
	policy, err := c.UpdatePolicy(ctx, tmpl.PolicyUpdate())
	require.NoError(t, err)
	require.Equal(t, tmpl.MaxTxValue, policy.MaxTxValue)
	require.Equal(t, 30, policy.RiskThreshold)

	got, err := c.GetPolicy(ctx)
	require.NoError(t, err)
	require.Equal(t, tmpl.DailyLimit, got.DailyLimit)

	over, err := model.ParseEther("1")
	require.NoError(t, err)
	res, err := c.EvaluateTransaction(ctx, model.TransactionParams{Target: blocked, Value: over})
	require.NoError(t, err)
	require.Equal(t, model.Rejected, res.Verdict)

	_, err = c.EvaluateTransaction(ctx, model.TransactionParams{Target: blocked, Value: big.NewInt(1)})
	require.NoError(t, err)

	page, err := c.GetTransactions(ctx, model.TransactionQuery{Verdict: model.Rejected})
	require.NoError(t, err)
	require.Equal(t, 1, page.Count)

	frozen, err := c.FreezeAccount(ctx, "suspicious activity")
	require.NoError(t, err)
	require.True(t, frozen.Success)

	res, err = c.EvaluateTransaction(ctx, model.TransactionParams{Target: testTarget, Value: big.NewInt(1)})
	require.NoError(t, err)
	require.Equal(t, model.Rejected, res.Verdict)
	require.Equal(t, guardiantest.FrozenScore, res.RiskScore)

	rotated, err := c.RotateAgentKey(ctx, blocked)
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress(blocked).Hex(), rotated.NewAgentKey)

	events, err := c.GetAuditLog(ctx, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "agent_key.rotated", events[0].Type)
}

func TestClient_LocalValidation(t *testing.T) {
	srv := guardiantest.New()
	defer srv.Close()
	c := newTestClient(t, srv, nil)
	ctx := context.Background()

	_, err := c.UpdatePolicy(ctx, model.PolicyUpdate{MaxTxValue: strPtr("1.5")})
	require.True(t, guarderr.Is(err, guarderr.InvalidInput), "got %v", err)

	_, err = c.UpdatePolicy(ctx, model.PolicyUpdate{BlockedTargets: []string{"0x12"}})
	require.True(t, guarderr.Is(err, guarderr.InvalidInput), "got %v", err)

	_, err = c.RotateAgentKey(ctx, "agent")
	require.True(t, guarderr.Is(err, guarderr.InvalidInput), "got %v", err)

	_, err = c.GetTransactions(ctx, model.TransactionQuery{Verdict: "MAYBE"})
	require.True(t, guarderr.Is(err, guarderr.InvalidInput), "got %v", err)

	_, err = c.GetAuditLog(ctx, -1)
	require.True(t, guarderr.Is(err, guarderr.InvalidInput), "got %v", err)

	require.Zero(t, srv.TotalHits())
}

func TestClient_SetProvider(t *testing.T) {
	srv := guardiantest.New()
	defer srv.Close()
	c := newTestClient(t, srv, nil)

	err := c.SetProvider(context.Background(), "ftp://node")
	require.True(t, guarderr.Is(err, guarderr.InvalidInput), "got %v", err)

	err = c.SetProvider(context.Background(), "http://127.0.0.1:8545", "not-an-address")
	require.True(t, guarderr.Is(err, guarderr.InvalidInput), "got %v", err)
}

func strPtr(s string) *string { return &s }
