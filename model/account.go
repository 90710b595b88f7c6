package model

import "time"

// AccountInfo is the Guardian's view of a registered smart account.
type AccountInfo struct {
	Address     string     `json:"address"`
	Owner       string     `json:"owner"`
	AgentKey    string     `json:"agentKey"`
	GuardianKey string     `json:"guardianKey"`
	ChainID     uint64     `json:"chainId"`
	Frozen      bool       `json:"frozen"`
	FrozenAt    *time.Time `json:"frozenAt,omitempty"`
	Policy      PolicyInfo `json:"policy"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// PolicyInfo holds the spending and target rules evaluated by layer 1.
// Amounts are decimal wei strings.
type PolicyInfo struct {
	MaxTxValue     string   `json:"maxTxValue"`
	DailyLimit     string   `json:"dailyLimit"`
	WeeklyLimit    string   `json:"weeklyLimit,omitempty"`
	RiskThreshold  int      `json:"riskThreshold"`
	AllowedTargets []string `json:"allowedTargets,omitempty"`
	BlockedTargets []string `json:"blockedTargets,omitempty"`
	UpdatedAt      string   `json:"updatedAt,omitempty"`
}

// PolicyUpdate is the body of a policy update. Nil fields are left unchanged.
type PolicyUpdate struct {
	MaxTxValue     *string  `json:"maxTxValue,omitempty"`
	DailyLimit     *string  `json:"dailyLimit,omitempty"`
	WeeklyLimit    *string  `json:"weeklyLimit,omitempty"`
	RiskThreshold  *int     `json:"riskThreshold,omitempty"  validate:"omitempty,min=0,max=100"`
	AllowedTargets []string `json:"allowedTargets,omitempty" validate:"omitempty,dive,eth_addr"`
	BlockedTargets []string `json:"blockedTargets,omitempty" validate:"omitempty,dive,eth_addr"`
}

// RegisterAccountRequest is the body of POST /v1/accounts.
type RegisterAccountRequest struct {
	Address     string `json:"address"     binding:"required,eth_addr" validate:"required,eth_addr"`
	Owner       string `json:"owner"       binding:"required,eth_addr" validate:"required,eth_addr"`
	AgentKey    string `json:"agentKey"    binding:"required,eth_addr" validate:"required,eth_addr"`
	GuardianKey string `json:"guardianKey" binding:"required,eth_addr" validate:"required,eth_addr"`
	ChainID     uint64 `json:"chainId"     binding:"required,chain_id" validate:"required,chain_id"`
}

// TransactionRecord is one evaluated transaction in the history.
type TransactionRecord struct {
	ID         string    `json:"id"`
	Account    string    `json:"account"`
	Target     string    `json:"target"`
	Value      string    `json:"value"`
	Verdict    Verdict   `json:"verdict"`
	RiskScore  int       `json:"riskScore"`
	UserOpHash string    `json:"userOpHash,omitempty"`
	TxHash     string    `json:"txHash,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// TransactionQuery filters the transaction history.
type TransactionQuery struct {
	Limit   int     `validate:"omitempty,min=1,max=500"`
	Offset  int     `validate:"omitempty,min=0"`
	Verdict Verdict `validate:"omitempty,verdict"`
}

// TransactionPage is a page of history.
type TransactionPage struct {
	Transactions []TransactionRecord `json:"transactions"`
	Count        int                 `json:"count"`
}

// AuditEvent is one entry in the account audit log.
type AuditEvent struct {
	ID        string         `json:"id"`
	Account   string         `json:"account"`
	Type      string         `json:"type"`
	Actor     string         `json:"actor,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// FreezeResult is returned by the freeze endpoint.
type FreezeResult struct {
	Success  bool      `json:"success"`
	FrozenAt time.Time `json:"frozenAt"`
}

// RotateKeyResult is returned by the rotate-key endpoint.
type RotateKeyResult struct {
	Success     bool   `json:"success"`
	NewAgentKey string `json:"newAgentKey"`
}
