package model

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// MinRecoveryDelay is the shortest recovery delay accepted by the SDK.
const MinRecoveryDelay = 48 * time.Hour

// SessionKeyConfig describes a session key to create.
type SessionKeyConfig struct {
	Key             common.Address
	ValidAfter      uint64 // unix seconds
	ValidUntil      uint64 // unix seconds
	SpendLimit      *big.Int
	MaxTxValue      *big.Int
	Cooldown        uint64 // seconds between uses
	AllowAllTargets bool
}

// SessionKeyInfo is a session key as stored on chain.
type SessionKeyInfo struct {
	Key             common.Address
	ValidAfter      uint64
	ValidUntil      uint64
	SpendLimit      *big.Int
	Spent           *big.Int
	MaxTxValue      *big.Int
	Cooldown        uint64
	LastUsed        uint64
	AllowAllTargets bool
	Revoked         bool
}

// IsActive reports whether the key is usable at now: not revoked and now
// within [ValidAfter, ValidUntil].
func (s *SessionKeyInfo) IsActive(now time.Time) bool {
	ts := uint64(now.Unix())
	return !s.Revoked && ts >= s.ValidAfter && ts <= s.ValidUntil
}

// Remaining returns the unspent allowance. It never goes below zero.
func (s *SessionKeyInfo) Remaining() *big.Int {
	left := new(big.Int).Sub(orZero(s.SpendLimit), orZero(s.Spent))
	if left.Sign() < 0 {
		return new(big.Int)
	}
	return left
}

// RecoveryConfig is the wallet's social recovery configuration.
type RecoveryConfig struct {
	Threshold     uint64
	GuardianCount uint64
	Delay         time.Duration
	Guardians     []common.Address
}

// RecoveryStatus is derived from a recovery request's on-chain flags.
type RecoveryStatus string

const (
	RecoveryPending   RecoveryStatus = "pending"
	RecoveryReady     RecoveryStatus = "ready"
	RecoveryExecuted  RecoveryStatus = "executed"
	RecoveryCancelled RecoveryStatus = "cancelled"
)

// RecoveryRequest is a pending or settled owner replacement.
type RecoveryRequest struct {
	ID           common.Hash
	NewOwner     common.Address
	SupportCount uint64
	ExecuteAfter uint64 // unix seconds
	Executed     bool
	Cancelled    bool
	Epoch        uint64 // guardian-set version; a changed set invalidates the request
}

// Status derives the request status. Cancellation wins over execution, which
// wins over time-based readiness.
func (r *RecoveryRequest) Status(now time.Time) RecoveryStatus {
	switch {
	case r.Cancelled:
		return RecoveryCancelled
	case r.Executed:
		return RecoveryExecuted
	case uint64(now.Unix()) >= r.ExecuteAfter:
		return RecoveryReady
	default:
		return RecoveryPending
	}
}

// UpgradeStatus is the state of the upgrade timelock.
type UpgradeStatus struct {
	PendingImplementation common.Address // zero when none
	RequestedAt           uint64
	ExecuteAfter          uint64
}

// Pending reports whether an upgrade has been requested.
func (u *UpgradeStatus) Pending() bool {
	return u.PendingImplementation != (common.Address{})
}

// Ready reports whether a pending upgrade can be executed at now.
func (u *UpgradeStatus) Ready(now time.Time) bool {
	return u.Pending() && uint64(now.Unix()) >= u.ExecuteAfter
}

// TokenPolicyInfo holds the per-token limits enforced by the wallet.
type TokenPolicyInfo struct {
	Token              common.Address
	MaxApproval        *big.Int
	DailyTransferLimit *big.Int
	DailyTransferred   *big.Int
	Exists             bool
}
