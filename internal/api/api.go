// Package api maps each Guardian HTTP endpoint to a typed function. Retries,
// auth and error classification live in the Doer.
package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/blndgs/guardian/model"
)

// Doer sends one logical JSON request. *transport.Client implements it.
type Doer interface {
	Do(ctx context.Context, method, path string, in, out any) error
}

func accountPath(address, suffix string) string {
	return "/v1/accounts/" + url.PathEscape(address) + suffix
}

// GetAccount fetches GET /v1/accounts/:address.
func GetAccount(ctx context.Context, d Doer, address string) (*model.AccountInfo, error) {
	var info model.AccountInfo
	if err := d.Do(ctx, http.MethodGet, accountPath(address, ""), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// RegisterAccount posts POST /v1/accounts.
func RegisterAccount(ctx context.Context, d Doer, req model.RegisterAccountRequest) (*model.AccountInfo, error) {
	var info model.AccountInfo
	if err := d.Do(ctx, http.MethodPost, "/v1/accounts", req, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// UpdatePolicy sends PUT /v1/accounts/:address/policy.
func UpdatePolicy(ctx context.Context, d Doer, address string, update model.PolicyUpdate) (*model.PolicyInfo, error) {
	var policy model.PolicyInfo
	if err := d.Do(ctx, http.MethodPut, accountPath(address, "/policy"), update, &policy); err != nil {
		return nil, err
	}
	return &policy, nil
}

// EvaluateRequest is the body of POST /v1/evaluate.
type EvaluateRequest struct {
	UserOp *model.UserOperation `json:"userOp"`
}

// Evaluate posts a UserOperation for risk evaluation. A REJECTED verdict is a
// normal result, not an error.
func Evaluate(ctx context.Context, d Doer, op *model.UserOperation) (*model.EvaluationResult, error) {
	var result model.EvaluationResult
	if err := d.Do(ctx, http.MethodPost, "/v1/evaluate", EvaluateRequest{UserOp: op}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListTransactions fetches GET /v1/transactions.
func ListTransactions(ctx context.Context, d Doer, account string, q model.TransactionQuery) (*model.TransactionPage, error) {
	params := url.Values{"account": {account}}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		params.Set("offset", strconv.Itoa(q.Offset))
	}
	if q.Verdict != "" {
		params.Set("verdict", string(q.Verdict))
	}

	var page model.TransactionPage
	if err := d.Do(ctx, http.MethodGet, "/v1/transactions?"+params.Encode(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

type freezeRequest struct {
	Reason string `json:"reason"`
}

// Freeze posts POST /v1/accounts/:address/freeze.
func Freeze(ctx context.Context, d Doer, address, reason string) (*model.FreezeResult, error) {
	var res model.FreezeResult
	if err := d.Do(ctx, http.MethodPost, accountPath(address, "/freeze"), freezeRequest{Reason: reason}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

type rotateKeyRequest struct {
	NewAgentKey string `json:"newAgentKey"`
}

// RotateKey posts POST /v1/accounts/:address/rotate-key.
func RotateKey(ctx context.Context, d Doer, address, newAgentKey string) (*model.RotateKeyResult, error) {
	var res model.RotateKeyResult
	if err := d.Do(ctx, http.MethodPost, accountPath(address, "/rotate-key"), rotateKeyRequest{NewAgentKey: newAgentKey}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

type auditResponse struct {
	Events []model.AuditEvent `json:"events"`
}

// ListAudit fetches GET /v1/audit.
func ListAudit(ctx context.Context, d Doer, account string, limit int) ([]model.AuditEvent, error) {
	params := url.Values{"account": {account}}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var res auditResponse
	if err := d.Do(ctx, http.MethodGet, "/v1/audit?"+params.Encode(), nil, &res); err != nil {
		return nil, err
	}
	return res.Events, nil
}
