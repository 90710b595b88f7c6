package chain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// WalletABI is the admin and view surface of the Guardian smart account.
const WalletABI = `[
{"type":"function","name":"owner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
{"type":"function","name":"addRecoveryGuardian","stateMutability":"nonpayable","inputs":[{"name":"guardian","type":"address"}],"outputs":[]},
{"type":"function","name":"removeRecoveryGuardian","stateMutability":"nonpayable","inputs":[{"name":"guardian","type":"address"}],"outputs":[]},
{"type":"function","name":"setRecoveryThreshold","stateMutability":"nonpayable","inputs":[{"name":"threshold","type":"uint256"}],"outputs":[]},
{"type":"function","name":"setRecoveryDelay","stateMutability":"nonpayable","inputs":[{"name":"delay","type":"uint256"}],"outputs":[]},
{"type":"function","name":"initiateRecovery","stateMutability":"nonpayable","inputs":[{"name":"newOwner","type":"address"}],"outputs":[{"name":"recoveryId","type":"bytes32"}]},
{"type":"function","name":"supportRecovery","stateMutability":"nonpayable","inputs":[{"name":"recoveryId","type":"bytes32"}],"outputs":[]},
{"type":"function","name":"executeRecovery","stateMutability":"nonpayable","inputs":[{"name":"recoveryId","type":"bytes32"}],"outputs":[]},
{"type":"function","name":"cancelRecovery","stateMutability":"nonpayable","inputs":[{"name":"recoveryId","type":"bytes32"}],"outputs":[]},
{"type":"function","name":"getRecoveryConfig","stateMutability":"view","inputs":[],"outputs":[{"name":"threshold","type":"uint256"},{"name":"guardianCount","type":"uint256"},{"name":"delay","type":"uint256"}]},
{"type":"function","name":"getRecoveryGuardians","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address[]"}]},
{"type":"function","name":"getRecoveryRequest","stateMutability":"view","inputs":[{"name":"recoveryId","type":"bytes32"}],"outputs":[{"name":"newOwner","type":"address"},{"name":"supportCount","type":"uint256"},{"name":"executeAfter","type":"uint256"},{"name":"executed","type":"bool"},{"name":"cancelled","type":"bool"},{"name":"epoch","type":"uint256"}]},
{"type":"function","name":"requestUpgrade","stateMutability":"nonpayable","inputs":[{"name":"newImplementation","type":"address"}],"outputs":[]},
{"type":"function","name":"cancelUpgrade","stateMutability":"nonpayable","inputs":[],"outputs":[]},
{"type":"function","name":"executeUpgrade","stateMutability":"nonpayable","inputs":[],"outputs":[]},
{"type":"function","name":"pendingImplementation","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
{"type":"function","name":"upgradeRequestedAt","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"UPGRADE_DELAY","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"createSessionKey","stateMutability":"nonpayable","inputs":[{"name":"key","type":"address"},{"name":"validAfter","type":"uint64"},{"name":"validUntil","type":"uint64"},{"name":"spendLimit","type":"uint256"},{"name":"maxTxValue","type":"uint256"},{"name":"cooldown","type":"uint64"},{"name":"allowAllTargets","type":"bool"}],"outputs":[]},
{"type":"function","name":"revokeSessionKey","stateMutability":"nonpayable","inputs":[{"name":"key","type":"address"}],"outputs":[]},
{"type":"function","name":"setSessionKeyTargets","stateMutability":"nonpayable","inputs":[{"name":"key","type":"address"},{"name":"targets","type":"address[]"},{"name":"allowed","type":"bool"}],"outputs":[]},
{"type":"function","name":"getSessionKey","stateMutability":"view","inputs":[{"name":"key","type":"address"}],"outputs":[{"name":"validAfter","type":"uint64"},{"name":"validUntil","type":"uint64"},{"name":"spendLimit","type":"uint256"},{"name":"spent","type":"uint256"},{"name":"maxTxValue","type":"uint256"},{"name":"cooldown","type":"uint64"},{"name":"lastUsed","type":"uint64"},{"name":"allowAllTargets","type":"bool"},{"name":"revoked","type":"bool"}]},
{"type":"function","name":"setTokenPolicy","stateMutability":"nonpayable","inputs":[{"name":"token","type":"address"},{"name":"maxApproval","type":"uint256"},{"name":"dailyTransferLimit","type":"uint256"}],"outputs":[]},
{"type":"function","name":"removeTokenPolicy","stateMutability":"nonpayable","inputs":[{"name":"token","type":"address"}],"outputs":[]},
{"type":"function","name":"getTokenPolicy","stateMutability":"view","inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"maxApproval","type":"uint256"},{"name":"dailyTransferLimit","type":"uint256"},{"name":"dailyTransferred","type":"uint256"},{"name":"exists","type":"bool"}]},
{"type":"function","name":"multicall","stateMutability":"nonpayable","inputs":[{"name":"data","type":"bytes[]"}],"outputs":[{"name":"results","type":"bytes[]"}]},
{"type":"event","name":"RecoveryInitiated","anonymous":false,"inputs":[{"name":"recoveryId","type":"bytes32","indexed":true},{"name":"newOwner","type":"address","indexed":true},{"name":"executeAfter","type":"uint256","indexed":false}]}
]`

// EntryPointABI covers the EntryPoint v0.6 nonce getter.
const EntryPointABI = `[
{"type":"function","name":"getNonce","stateMutability":"view","inputs":[{"name":"sender","type":"address"},{"name":"key","type":"uint192"}],"outputs":[{"name":"nonce","type":"uint256"}]}
]`

var (
	walletABI     = mustParseABI("wallet", WalletABI)
	entryPointABI = mustParseABI("entry point", EntryPointABI)
)

func mustParseABI(name, raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("invalid %s ABI: %v", name, err))
	}
	return parsed
}
