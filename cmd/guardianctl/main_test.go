package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blndgs/guardian"
	"github.com/blndgs/guardian/guarderr"
	"github.com/blndgs/guardian/guardiantest"
	"github.com/blndgs/guardian/model"
)

const (
	testAccount = "0x0A7199a96fdf0252E09F76545c1eF2be3692F46b"
	testTarget  = "0x9d34f236bddf1b9de014312599d9c9ec8af1bc48"
	agentKey    = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func newServer(t *testing.T) *guardiantest.Server {
	t.Helper()
	srv := guardiantest.New(guardiantest.WithAccount(model.AccountInfo{
		Address: testAccount,
		ChainID: 1,
		Policy:  model.PolicyInfo{MaxTxValue: "1000000000000000000", DailyLimit: "5000000000000000000", RiskThreshold: 50},
	}))
	t.Cleanup(srv.Close)
	return srv
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(guardian.WithLogger(zerolog.Nop()))
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--env-file", ""}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func withServer(srv *guardiantest.Server, args ...string) []string {
	return append([]string{"--api-url", srv.URL, "--account", testAccount, "--max-retries", "0"}, args...)
}

func TestTemplatesCmd(t *testing.T) {
	out, err := execute(t, "templates")
	require.NoError(t, err)
	for _, name := range guardian.StrategyTemplateNames() {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "0.1 ETH")
}

func TestEvaluateCmd(t *testing.T) {
	srv := newServer(t)
	t.Setenv("GUARDIAN_AGENT_KEY", agentKey)

	out, err := execute(t, withServer(srv, "evaluate", "--target", testTarget, "--value", "0.5")...)
	require.NoError(t, err)
	assert.Contains(t, out, "APPROVED  risk score 15")
	assert.Contains(t, out, "max_tx_value")

	out, err = execute(t, withServer(srv, "evaluate", "--target", testTarget, "--value", "2")...)
	require.NoError(t, err)
	assert.Contains(t, out, "REJECTED  risk score 80")
	assert.Contains(t, out, "reason: value exceeds maxTxValue")

	out, err = execute(t, withServer(srv, "history")...)
	require.NoError(t, err)
	assert.Contains(t, out, "0.5 ETH")
	assert.Contains(t, out, "REJECTED")

	out, err = execute(t, withServer(srv, "audit", "--limit", "1")...)
	require.NoError(t, err)
	assert.Contains(t, out, "transaction.evaluated")
	assert.Contains(t, out, "verdict=REJECTED")
}

func TestEvaluateCmd_InvalidInput(t *testing.T) {
	srv := newServer(t)

	_, err := execute(t, withServer(srv, "evaluate", "--target", "0x1234")...)
	require.Error(t, err)
	assert.True(t, guarderr.Is(err, guarderr.InvalidInput))

	_, err = execute(t, withServer(srv, "evaluate", "--target", testTarget, "--value", "abc")...)
	require.Error(t, err)
	assert.Zero(t, srv.Hits("/v1/evaluate"))
}

func TestPolicySetCmd(t *testing.T) {
	srv := newServer(t)

	out, err := execute(t, withServer(srv, "policy", "set", "--template", "balanced", "--risk-threshold", "20", "--daily", "3")...)
	require.NoError(t, err)
	assert.Contains(t, out, "3 ETH")

	info, ok := srv.Account(testAccount)
	require.True(t, ok)
	assert.Equal(t, "1000000000000000000", info.Policy.MaxTxValue)
	assert.Equal(t, "3000000000000000000", info.Policy.DailyLimit)
	assert.Equal(t, 20, info.Policy.RiskThreshold)

	_, err = execute(t, withServer(srv, "policy", "set")...)
	require.Error(t, err)

	_, err = execute(t, withServer(srv, "policy", "set", "--template", "yolo")...)
	require.True(t, guarderr.Is(err, guarderr.InvalidInput))
}

func TestAccountCmd_ConfigFile(t *testing.T) {
	srv := newServer(t)
	path := filepath.Join(t.TempDir(), "guardian.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_url: "+srv.URL+"\naccount_address: "+testAccount+"\n"), 0o600))

	out, err := execute(t, "--config", path, "account")
	require.NoError(t, err)
	assert.Contains(t, out, testAccount)
	assert.Contains(t, out, "active")
	assert.Contains(t, out, "1 ETH")
}

func TestFreezeAndRotateCmd(t *testing.T) {
	srv := newServer(t)

	out, err := execute(t, withServer(srv, "freeze", "--reason", "compromised")...)
	require.NoError(t, err)
	assert.Contains(t, out, "frozen at")

	const next = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	out, err = execute(t, withServer(srv, "rotate-key", next)...)
	require.NoError(t, err)
	assert.Contains(t, out, next)

	info, _ := srv.Account(testAccount)
	assert.True(t, info.Frozen)
	assert.Equal(t, next, info.AgentKey)
}

func TestAdminCmd_RequiresOwnerKey(t *testing.T) {
	srv := newServer(t)

	_, err := execute(t, withServer(srv, "recovery", "add-guardian", testTarget)...)
	require.Error(t, err)
	assert.True(t, guarderr.Is(err, guarderr.Auth))

	_, err = execute(t, withServer(srv, "recovery", "support", "0x1234")...)
	require.True(t, guarderr.Is(err, guarderr.InvalidInput))
	assert.Zero(t, srv.TotalHits())
}

func TestMissingConfig(t *testing.T) {
	_, err := execute(t, "account")
	require.Error(t, err)
	assert.True(t, guarderr.Is(err, guarderr.InvalidInput))
}
