package chain

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/blndgs/guardian/guarderr"
	"github.com/blndgs/guardian/model"
	"github.com/blndgs/guardian/signer"
)

const (
	ownerKey     = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAccount  = "0x0A7199a96fdf0252E09F76545c1eF2be3692F46b"
	testGuardian = "0x9d34f236bddf1b9de014312599d9c9ec8af1bc48"
)

var testRecoveryID = "0xab" + strings.Repeat("0", 60) + "01"

type transactCall struct {
	method string
	params []any
}

// fakeContract records transactions and serves canned view results.
type fakeContract struct {
	mu        sync.Mutex
	calls     []string
	transacts []transactCall
	views     map[string][]any
	callErr   error
	txErr     error
}

func (f *fakeContract) Call(_ *bind.CallOpts, results *[]any, method string, _ ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, method)
	if f.callErr != nil {
		return f.callErr
	}
	*results = f.views[method]
	return nil
}

func (f *fakeContract) Transact(_ *bind.TransactOpts, method string, params ...any) (*types.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.txErr != nil {
		return nil, f.txErr
	}
	f.transacts = append(f.transacts, transactCall{method: method, params: params})
	return types.NewTx(&types.LegacyTx{Nonce: uint64(len(f.transacts))}), nil
}

func (f *fakeContract) networkCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls) + len(f.transacts)
}

func minedWith(status uint64) WaitFunc {
	return func(_ context.Context, tx *types.Transaction) (*types.Receipt, error) {
		return &types.Receipt{Status: status, TxHash: tx.Hash(), BlockNumber: big.NewInt(42)}, nil
	}
}

func newTestRouter(t *testing.T, withOwner bool, fake *fakeContract) *Router {
	t.Helper()
	var owner *signer.Signer
	if withOwner {
		var err error
		owner, err = signer.New(ownerKey)
		require.NoError(t, err)
	}
	r := NewRouter(common.HexToAddress(testAccount), big.NewInt(1), owner, zerolog.Nop())
	if fake != nil {
		r.Connect(Bindings{Wallet: fake, Reader: fake, WaitMined: minedWith(types.ReceiptStatusSuccessful)})
	}
	return r
}

type revertError struct{}

func (revertError) Error() string          { return "execution reverted" }
func (revertError) ErrorData() interface{} { return "0x08c379a0" }

func TestRouter_AdminPreconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("missing owner key is an auth error", func(t *testing.T) {
		fake := &fakeContract{}
		r := newTestRouter(t, false, fake)
		_, err := r.AddRecoveryGuardian(ctx, testGuardian)
		require.True(t, guarderr.Is(err, guarderr.Auth), "got %v", err)
		require.Zero(t, fake.networkCalls())
	})

	t.Run("missing connection is a network error", func(t *testing.T) {
		r := newTestRouter(t, true, nil)
		require.False(t, r.Connected())
		_, err := r.AddRecoveryGuardian(ctx, testGuardian)
		require.True(t, guarderr.Is(err, guarderr.Network), "got %v", err)
	})

	t.Run("owner key is checked before the connection", func(t *testing.T) {
		r := newTestRouter(t, false, nil)
		_, err := r.CancelUpgrade(ctx)
		require.True(t, guarderr.Is(err, guarderr.Auth), "got %v", err)
	})

	t.Run("input is validated before the owner key", func(t *testing.T) {
		r := newTestRouter(t, false, nil)
		_, err := r.AddRecoveryGuardian(ctx, "not-an-address")
		require.True(t, guarderr.Is(err, guarderr.InvalidInput), "got %v", err)
	})
}

func TestRouter_InputValidation(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		call func(r *Router) error
		kind guarderr.Kind
	}{
		{
			name: "guardian not an address",
			call: func(r *Router) error { _, err := r.AddRecoveryGuardian(ctx, "not-an-address"); return err },
			kind: guarderr.InvalidInput,
		},
		{
			name: "guardian zero address",
			call: func(r *Router) error {
				_, err := r.AddRecoveryGuardian(ctx, common.Address{}.Hex())
				return err
			},
			kind: guarderr.Recovery,
		},
		{
			name: "guardian is the account",
			call: func(r *Router) error { _, err := r.RemoveRecoveryGuardian(ctx, testAccount); return err },
			kind: guarderr.Recovery,
		},
		{
			name: "zero threshold",
			call: func(r *Router) error { _, err := r.SetRecoveryThreshold(ctx, 0); return err },
			kind: guarderr.Recovery,
		},
		{
			name: "one hour delay",
			call: func(r *Router) error { _, err := r.SetRecoveryDelay(ctx, 3600*time.Second); return err },
			kind: guarderr.Recovery,
		},
		{
			name: "delay just under minimum",
			call: func(r *Router) error { _, err := r.SetRecoveryDelay(ctx, model.MinRecoveryDelay-time.Second); return err },
			kind: guarderr.Recovery,
		},
		{
			name: "short recovery id",
			call: func(r *Router) error { _, err := r.SupportRecovery(ctx, "0x1234"); return err },
			kind: guarderr.InvalidInput,
		},
		{
			name: "recovery id without prefix",
			call: func(r *Router) error { _, err := r.ExecuteRecovery(ctx, testRecoveryID[2:]); return err },
			kind: guarderr.InvalidInput,
		},
		{
			name: "upgrade to zero address",
			call: func(r *Router) error { _, err := r.RequestUpgrade(ctx, common.Address{}.Hex()); return err },
			kind: guarderr.Upgrade,
		},
		{
			name: "upgrade to the account",
			call: func(r *Router) error { _, err := r.RequestUpgrade(ctx, testAccount); return err },
			kind: guarderr.Upgrade,
		},
		{
			name: "session key window inverted",
			call: func(r *Router) error {
				_, err := r.CreateSessionKey(ctx, model.SessionKeyConfig{
					Key: common.HexToAddress(testGuardian), ValidAfter: 200, ValidUntil: 100, SpendLimit: big.NewInt(1),
				})
				return err
			},
			kind: guarderr.InvalidInput,
		},
		{
			name: "session key max tx above limit",
			call: func(r *Router) error {
				_, err := r.CreateSessionKey(ctx, model.SessionKeyConfig{
					Key: common.HexToAddress(testGuardian), ValidUntil: 100, SpendLimit: big.NewInt(1), MaxTxValue: big.NewInt(2),
				})
				return err
			},
			kind: guarderr.InvalidInput,
		},
		{
			name: "session key targets empty",
			call: func(r *Router) error { _, err := r.SetSessionKeyTargets(ctx, testGuardian, nil, true); return err },
			kind: guarderr.InvalidInput,
		},
		{
			name: "negative token limit",
			call: func(r *Router) error {
				_, err := r.SetTokenPolicy(ctx, testGuardian, big.NewInt(-1), big.NewInt(1))
				return err
			},
			kind: guarderr.InvalidInput,
		},
		{
			name: "empty multicall",
			call: func(r *Router) error { _, err := r.Multicall(ctx, nil); return err },
			kind: guarderr.InvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeContract{}
			r := newTestRouter(t, true, fake)
			err := tt.call(r)
			require.Error(t, err)
			require.Equal(t, tt.kind, guarderr.KindOf(err), "got %v", err)
			require.Zero(t, fake.networkCalls())
		})
	}
}

func TestRouter_Send(t *testing.T) {
	ctx := context.Background()

	t.Run("direct owner call returns the tx hash", func(t *testing.T) {
		fake := &fakeContract{}
		r := newTestRouter(t, true, fake)

		hash, err := r.AddRecoveryGuardian(ctx, testGuardian)
		require.NoError(t, err)
		require.NotEqual(t, common.Hash{}, hash)
		require.Len(t, fake.transacts, 1)
		require.Equal(t, "addRecoveryGuardian", fake.transacts[0].method)
		require.Equal(t, []any{common.HexToAddress(testGuardian)}, fake.transacts[0].params)
	})

	t.Run("delay is sent in seconds", func(t *testing.T) {
		fake := &fakeContract{}
		r := newTestRouter(t, true, fake)

		_, err := r.SetRecoveryDelay(ctx, model.MinRecoveryDelay)
		require.NoError(t, err)
		require.Equal(t, big.NewInt(172800), fake.transacts[0].params[0])
	})

	t.Run("recovery id is passed as bytes32", func(t *testing.T) {
		fake := &fakeContract{}
		r := newTestRouter(t, true, fake)

		_, err := r.CancelRecovery(ctx, testRecoveryID)
		require.NoError(t, err)
		require.Equal(t, "cancelRecovery", fake.transacts[0].method)
		id, ok := fake.transacts[0].params[0].([32]byte)
		require.True(t, ok)
		require.Equal(t, byte(0xab), id[0])
		require.Equal(t, byte(0x01), id[31])
	})

	t.Run("duplicate session key targets are collapsed", func(t *testing.T) {
		fake := &fakeContract{}
		r := newTestRouter(t, true, fake)

		_, err := r.SetSessionKeyTargets(ctx, testAccount, []string{testGuardian, testGuardian}, true)
		require.NoError(t, err)
		require.Equal(t, []common.Address{common.HexToAddress(testGuardian)}, fake.transacts[0].params[1])
	})

	t.Run("max tx value defaults to the spend limit", func(t *testing.T) {
		fake := &fakeContract{}
		r := newTestRouter(t, true, fake)

		_, err := r.CreateSessionKey(ctx, model.SessionKeyConfig{
			Key: common.HexToAddress(testGuardian), ValidAfter: 1, ValidUntil: 2, SpendLimit: big.NewInt(500),
		})
		require.NoError(t, err)
		require.Equal(t, big.NewInt(500), fake.transacts[0].params[4])
	})

	t.Run("reverted receipt is a contract error", func(t *testing.T) {
		fake := &fakeContract{}
		r := newTestRouter(t, true, nil)
		r.Connect(Bindings{Wallet: fake, Reader: fake, WaitMined: minedWith(types.ReceiptStatusFailed)})

		hash, err := r.ExecuteUpgrade(ctx)
		require.True(t, guarderr.Is(err, guarderr.Contract), "got %v", err)
		require.NotEqual(t, common.Hash{}, hash)
	})

	t.Run("receipt wait failure is a network error", func(t *testing.T) {
		fake := &fakeContract{}
		r := newTestRouter(t, true, nil)
		r.Connect(Bindings{Wallet: fake, Reader: fake, WaitMined: func(context.Context, *types.Transaction) (*types.Receipt, error) {
			return nil, context.DeadlineExceeded
		}})

		_, err := r.CancelUpgrade(ctx)
		require.True(t, guarderr.Is(err, guarderr.Network), "got %v", err)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("revert on estimation is a contract error", func(t *testing.T) {
		fake := &fakeContract{txErr: revertError{}}
		r := newTestRouter(t, true, fake)

		_, err := r.RemoveTokenPolicy(ctx, testGuardian)
		require.True(t, guarderr.Is(err, guarderr.Contract), "got %v", err)
	})

	t.Run("transport failure on submit is a network error", func(t *testing.T) {
		fake := &fakeContract{txErr: errors.New("connection refused")}
		r := newTestRouter(t, true, fake)

		_, err := r.RevokeSessionKey(ctx, testGuardian)
		require.True(t, guarderr.Is(err, guarderr.Network), "got %v", err)
	})
}

func TestRouter_Multicall(t *testing.T) {
	ctx := context.Background()

	add, err := PackAdminCall("addRecoveryGuardian", common.HexToAddress(testGuardian))
	require.NoError(t, err)
	threshold, err := PackAdminCall("setRecoveryThreshold", big.NewInt(2))
	require.NoError(t, err)
	view, err := PackAdminCall("owner")
	require.NoError(t, err)
	nested, err := PackAdminCall("multicall", [][]byte{add})
	require.NoError(t, err)

	tests := []struct {
		name    string
		calls   [][]byte
		wantErr bool
	}{
		{name: "admin calls", calls: [][]byte{add, threshold}},
		{name: "short entry", calls: [][]byte{{0x01, 0x02}}, wantErr: true},
		{name: "unknown selector", calls: [][]byte{{0xde, 0xad, 0xbe, 0xef}}, wantErr: true},
		{name: "view function", calls: [][]byte{view}, wantErr: true},
		{name: "nested multicall", calls: [][]byte{nested}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeContract{}
			r := newTestRouter(t, true, fake)
			_, err := r.Multicall(ctx, tt.calls)
			if tt.wantErr {
				require.True(t, guarderr.Is(err, guarderr.InvalidInput), "got %v", err)
				require.Zero(t, fake.networkCalls())
				return
			}
			require.NoError(t, err)
			require.Equal(t, "multicall", fake.transacts[0].method)
		})
	}
}

func TestPackAdminCall(t *testing.T) {
	_, err := PackAdminCall("addRecoveryGuardian", "not-an-address")
	require.True(t, guarderr.Is(err, guarderr.InvalidInput))
}
