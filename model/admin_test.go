package model

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestRecoveryRequest_Status(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	future := uint64(now.Add(time.Hour).Unix())
	past := uint64(now.Add(-time.Hour).Unix())

	tests := []struct {
		name string
		req  RecoveryRequest
		want RecoveryStatus
	}{
		{name: "waiting", req: RecoveryRequest{ExecuteAfter: future}, want: RecoveryPending},
		{name: "delay elapsed", req: RecoveryRequest{ExecuteAfter: past}, want: RecoveryReady},
		{name: "exactly at deadline", req: RecoveryRequest{ExecuteAfter: uint64(now.Unix())}, want: RecoveryReady},
		{name: "executed", req: RecoveryRequest{ExecuteAfter: past, Executed: true}, want: RecoveryExecuted},
		{name: "cancelled", req: RecoveryRequest{ExecuteAfter: future, Cancelled: true}, want: RecoveryCancelled},
		{name: "cancelled wins over executed", req: RecoveryRequest{Executed: true, Cancelled: true}, want: RecoveryCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.req.Status(now))
		})
	}
}

func TestSessionKeyInfo_IsActive(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	ts := uint64(now.Unix())

	key := SessionKeyInfo{ValidAfter: ts - 10, ValidUntil: ts + 10}
	require.True(t, key.IsActive(now))

	key.Revoked = true
	require.False(t, key.IsActive(now))

	expired := SessionKeyInfo{ValidAfter: ts - 20, ValidUntil: ts - 10}
	require.False(t, expired.IsActive(now))

	notYet := SessionKeyInfo{ValidAfter: ts + 10, ValidUntil: ts + 20}
	require.False(t, notYet.IsActive(now))
}

func TestSessionKeyInfo_Remaining(t *testing.T) {
	key := SessionKeyInfo{SpendLimit: big.NewInt(100), Spent: big.NewInt(40)}
	require.Equal(t, int64(60), key.Remaining().Int64())

	key.Spent = big.NewInt(150)
	require.Equal(t, int64(0), key.Remaining().Int64())

	require.Equal(t, int64(0), (&SessionKeyInfo{}).Remaining().Int64())
}

func TestUpgradeStatus(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	var none UpgradeStatus
	require.False(t, none.Pending())
	require.False(t, none.Ready(now))

	pending := UpgradeStatus{
		PendingImplementation: common.HexToAddress(testTarget),
		RequestedAt:           uint64(now.Unix()) - 100,
		ExecuteAfter:          uint64(now.Unix()) + 100,
	}
	require.True(t, pending.Pending())
	require.False(t, pending.Ready(now))
	require.True(t, pending.Ready(now.Add(100*time.Second)))
}

func TestLayerResults_FailedRules(t *testing.T) {
	layers := LayerResults{Layer1: []RuleCheck{
		{Rule: "max_tx_value", Passed: true},
		{Rule: "blocklist", Passed: false},
		{Rule: "daily_limit", Passed: false},
	}}
	require.Equal(t, []string{"blocklist", "daily_limit"}, layers.FailedRules())

	var result *EvaluationResult
	require.False(t, result.Approved())
	require.True(t, (&EvaluationResult{Verdict: Approved}).Approved())
}
