// Package guardiantest provides an in-process Guardian API for tests.
//
// The server keeps accounts, transactions and audit events in memory and
// evaluates UserOperations with a fixed rule set: a target on the blocklist
// (server-wide or in the account policy) is REJECTED with risk score 95, a
// frozen account is REJECTED with 100, a value above the policy's maxTxValue is
// REJECTED with 80, and everything else is APPROVED with 15.
package guardiantest

import (
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/blndgs/guardian/model"
)

// Risk scores returned by the mock evaluator.
const (
	ApprovedScore  = 15
	BlockedScore   = 95
	OverLimitScore = 80
	FrozenScore    = 100
)

var registerOnce sync.Once

type failure struct {
	status     int
	retryAfter string
}

// Server is a mock Guardian API. All methods are safe for concurrent use.
type Server struct {
	*httptest.Server

	mu           sync.Mutex
	accounts     map[common.Address]*model.AccountInfo
	transactions []model.TransactionRecord
	audit        []model.AuditEvent
	blocklist    map[common.Address]bool
	failures     []failure
	hits         map[string]int

	apiKey  string
	access  string
	refresh string
	issued  int
}

// Option configures a Server.
type Option func(*Server)

// WithTokenAuth requires "Authorization: Bearer <access>" on every endpoint
// except the refresh endpoint, which accepts refresh.
func WithTokenAuth(access, refresh string) Option {
	return func(s *Server) {
		s.access, s.refresh = access, refresh
	}
}

// WithAPIKey requires the X-API-Key header.
func WithAPIKey(key string) Option {
	return func(s *Server) {
		s.apiKey = key
	}
}

// WithAccount seeds a registered account.
func WithAccount(info model.AccountInfo) Option {
	return func(s *Server) {
		s.accounts[common.HexToAddress(info.Address)] = &info
	}
}

// New starts a Server. Callers must Close it.
func New(opts ...Option) *Server {
	s := &Server{
		accounts:  make(map[common.Address]*model.AccountInfo),
		blocklist: make(map[common.Address]bool),
		hits:      make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Server = httptest.NewServer(s.Router())
	return s
}

// Router returns the gin engine serving the API.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.TestMode)
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			if err := model.RegisterValidators(v); err != nil {
				panic(err)
			}
		}
	})

	r := gin.New()
	r.Use(s.count, s.inject, s.authenticate)

	v1 := r.Group("/v1")
	v1.POST("/auth/refresh", s.handleRefresh)
	v1.POST("/accounts", s.handleRegister)
	v1.GET("/accounts/:address", s.handleGetAccount)
	v1.PUT("/accounts/:address/policy", s.handleUpdatePolicy)
	v1.POST("/accounts/:address/freeze", s.handleFreeze)
	v1.POST("/accounts/:address/rotate-key", s.handleRotateKey)
	v1.POST("/evaluate", s.handleEvaluate)
	v1.GET("/transactions", s.handleTransactions)
	v1.GET("/audit", s.handleAudit)
	return r
}

// Block adds addresses to the server-wide blocklist.
func (s *Server) Block(addresses ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range addresses {
		s.blocklist[common.HexToAddress(a)] = true
	}
}

// FailNext makes the next n requests fail with status.
func (s *Server) FailNext(status, n int) {
	s.FailNextWithRetryAfter(status, n, "")
}

// FailNextWithRetryAfter is FailNext with a Retry-After header on each
// failure.
func (s *Server) FailNextWithRetryAfter(status, n int, retryAfter string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		s.failures = append(s.failures, failure{status: status, retryAfter: retryAfter})
	}
}

// Hits returns how many requests reached path, failed ones included.
func (s *Server) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// TotalHits returns the number of requests served.
func (s *Server) TotalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.hits {
		total += n
	}
	return total
}

// ExpireAccessToken rotates the expected access token so that the current one
// is answered with 401 until the client refreshes.
func (s *Server) ExpireAccessToken() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	s.access = fmt.Sprintf("expired-%d", s.issued)
}

// Account returns a copy of the stored account.
func (s *Server) Account(address string) (model.AccountInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.accounts[common.HexToAddress(address)]
	if !ok {
		return model.AccountInfo{}, false
	}
	return *info, true
}

func (s *Server) count(c *gin.Context) {
	s.mu.Lock()
	s.hits[c.Request.URL.Path]++
	s.mu.Unlock()
	c.Next()
}

func (s *Server) inject(c *gin.Context) {
	s.mu.Lock()
	var f *failure
	if len(s.failures) > 0 {
		f = &s.failures[0]
		s.failures = s.failures[1:]
	}
	s.mu.Unlock()

	if f == nil {
		c.Next()
		return
	}
	if f.retryAfter != "" {
		c.Header("Retry-After", f.retryAfter)
	}
	abort(c, f.status, "injected failure")
}

func (s *Server) authenticate(c *gin.Context) {
	s.mu.Lock()
	apiKey, access := s.apiKey, s.access
	s.mu.Unlock()

	if apiKey != "" && c.GetHeader("X-API-Key") != apiKey {
		abort(c, http.StatusForbidden, "invalid api key")
		return
	}
	if access == "" || c.Request.URL.Path == "/v1/auth/refresh" {
		c.Next()
		return
	}
	if c.GetHeader("Authorization") != "Bearer "+access {
		abort(c, http.StatusUnauthorized, "invalid or expired access token")
		return
	}
	c.Next()
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": http.StatusText(status), "message": message})
}

type refreshBody struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

func (s *Server) handleRefresh(c *gin.Context) {
	var body refreshBody
	if err := c.ShouldBindJSON(&body); err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refresh == "" || body.RefreshToken != s.refresh {
		abort(c, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	s.issued++
	s.access = fmt.Sprintf("access-%d", s.issued)
	s.refresh = fmt.Sprintf("refresh-%d", s.issued)
	c.JSON(http.StatusOK, gin.H{"accessToken": s.access, "refreshToken": s.refresh})
}

func (s *Server) handleRegister(c *gin.Context) {
	var req model.RegisterAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}

	addr := common.HexToAddress(req.Address)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[addr]; exists {
		abort(c, http.StatusConflict, "account already registered")
		return
	}
	info := &model.AccountInfo{
		Address:     addr.Hex(),
		Owner:       common.HexToAddress(req.Owner).Hex(),
		AgentKey:    common.HexToAddress(req.AgentKey).Hex(),
		GuardianKey: common.HexToAddress(req.GuardianKey).Hex(),
		ChainID:     req.ChainID,
		Policy:      model.PolicyInfo{RiskThreshold: 50},
		CreatedAt:   time.Now().UTC(),
	}
	s.accounts[addr] = info
	s.recordLocked(addr, "account.registered", nil)
	c.JSON(http.StatusCreated, info)
}

// lookupLocked resolves the :address parameter. The caller holds s.mu.
func (s *Server) lookupLocked(c *gin.Context) (*model.AccountInfo, bool) {
	raw := c.Param("address")
	if !model.IsAddress(raw) {
		abort(c, http.StatusBadRequest, "address must be a 0x-prefixed 20-byte hex address")
		return nil, false
	}
	info, ok := s.accounts[common.HexToAddress(raw)]
	if !ok {
		abort(c, http.StatusNotFound, "account not found")
		return nil, false
	}
	return info, true
}

func (s *Server) handleGetAccount(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.lookupLocked(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) handleUpdatePolicy(c *gin.Context) {
	var update model.PolicyUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := model.ValidateStruct("updatePolicy", update); err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.lookupLocked(c)
	if !ok {
		return
	}
	p := &info.Policy
	if update.MaxTxValue != nil {
		p.MaxTxValue = *update.MaxTxValue
	}
	if update.DailyLimit != nil {
		p.DailyLimit = *update.DailyLimit
	}
	if update.WeeklyLimit != nil {
		p.WeeklyLimit = *update.WeeklyLimit
	}
	if update.RiskThreshold != nil {
		p.RiskThreshold = *update.RiskThreshold
	}
	if update.AllowedTargets != nil {
		p.AllowedTargets = update.AllowedTargets
	}
	if update.BlockedTargets != nil {
		p.BlockedTargets = update.BlockedTargets
	}
	p.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	s.recordLocked(common.HexToAddress(info.Address), "policy.updated", nil)
	c.JSON(http.StatusOK, p)
}

func (s *Server) handleFreeze(c *gin.Context) {
	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.lookupLocked(c)
	if !ok {
		return
	}
	now := time.Now().UTC()
	info.Frozen = true
	info.FrozenAt = &now
	s.recordLocked(common.HexToAddress(info.Address), "account.frozen", map[string]any{"reason": body.Reason})
	c.JSON(http.StatusOK, model.FreezeResult{Success: true, FrozenAt: now})
}

func (s *Server) handleRotateKey(c *gin.Context) {
	var body struct {
		NewAgentKey string `json:"newAgentKey" binding:"required,eth_addr"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.lookupLocked(c)
	if !ok {
		return
	}
	info.AgentKey = common.HexToAddress(body.NewAgentKey).Hex()
	s.recordLocked(common.HexToAddress(info.Address), "agent_key.rotated", map[string]any{"newAgentKey": info.AgentKey})
	c.JSON(http.StatusOK, model.RotateKeyResult{Success: true, NewAgentKey: info.AgentKey})
}

type evaluateBody struct {
	UserOp *model.UserOperation `json:"userOp" binding:"required"`
}

func (s *Server) handleEvaluate(c *gin.Context) {
	start := time.Now()
	var body evaluateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}
	op := body.UserOp
	target, value, _, err := model.DecodeExecuteCallData(op.CallData)
	if err != nil {
		abort(c, http.StatusBadRequest, "callData is not an execute call")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var policy model.PolicyInfo
	frozen := false
	if info, ok := s.accounts[op.Sender]; ok {
		policy = info.Policy
		frozen = info.Frozen
	}

	result := s.evaluateLocked(policy, frozen, target, value)
	result.EvaluationMs = time.Since(start).Milliseconds()

	hash, _ := op.GetUserOpHash(common.Address{}, big.NewInt(0))
	s.transactions = append(s.transactions, model.TransactionRecord{
		ID:         uuid.NewString(),
		Account:    op.Sender.Hex(),
		Target:     target.Hex(),
		Value:      value.String(),
		Verdict:    result.Verdict,
		RiskScore:  result.RiskScore,
		UserOpHash: hash.Hex(),
		CreatedAt:  time.Now().UTC(),
	})
	s.recordLocked(op.Sender, "transaction.evaluated", map[string]any{"verdict": string(result.Verdict)})
	c.JSON(http.StatusOK, result)
}

func (s *Server) evaluateLocked(policy model.PolicyInfo, frozen bool, target common.Address, value *big.Int) model.EvaluationResult {
	blocked := s.blocklist[target]
	for _, b := range policy.BlockedTargets {
		if common.HexToAddress(b) == target {
			blocked = true
		}
	}
	overLimit := false
	if limit, err := model.ParseWei(policy.MaxTxValue); err == nil && policy.MaxTxValue != "" {
		overLimit = value.Cmp(limit) > 0
	}

	checks := []model.RuleCheck{
		{Rule: "account_not_frozen", Passed: !frozen},
		{Rule: "target_not_blocked", Passed: !blocked},
		{Rule: "max_tx_value", Passed: !overLimit},
	}
	res := model.EvaluationResult{
		Verdict:   model.Approved,
		RiskScore: ApprovedScore,
		Layers: model.LayerResults{
			Layer1: checks,
			Layer2: &model.SimulationOutcome{Success: true, GasUsed: 21_000},
			Layer3: &model.AIAssessment{Score: ApprovedScore, Reasoning: "no anomalies"},
		},
		GuardianSignature: "0x" + strings.Repeat("11", 65),
	}

	switch {
	case frozen:
		res.RiskScore, res.RejectionReason = FrozenScore, "account is frozen"
	case blocked:
		res.RiskScore, res.RejectionReason = BlockedScore, "target "+target.Hex()+" is blocklisted"
	case overLimit:
		res.RiskScore, res.RejectionReason = OverLimitScore, "value exceeds maxTxValue"
	default:
		return res
	}
	res.Verdict = model.Rejected
	res.GuardianSignature = ""
	res.Layers.Layer3 = &model.AIAssessment{Score: res.RiskScore, Reasoning: res.RejectionReason}
	return res
}

func (s *Server) handleTransactions(c *gin.Context) {
	account := common.HexToAddress(c.Query("account"))
	verdict := model.Verdict(c.Query("verdict"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []model.TransactionRecord
	for _, tx := range s.transactions {
		if common.HexToAddress(tx.Account) != account {
			continue
		}
		if verdict != "" && tx.Verdict != verdict {
			continue
		}
		matched = append(matched, tx)
	}
	page := model.TransactionPage{Transactions: []model.TransactionRecord{}, Count: len(matched)}
	if offset < len(matched) {
		end := min(offset+limit, len(matched))
		page.Transactions = matched[offset:end]
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) handleAudit(c *gin.Context) {
	account := common.HexToAddress(c.Query("account"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	s.mu.Lock()
	defer s.mu.Unlock()
	events := []model.AuditEvent{}
	for i := len(s.audit) - 1; i >= 0 && len(events) < limit; i-- {
		if common.HexToAddress(s.audit[i].Account) == account {
			events = append(events, s.audit[i])
		}
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (s *Server) recordLocked(account common.Address, kind string, details map[string]any) {
	s.audit = append(s.audit, model.AuditEvent{
		ID:        uuid.NewString(),
		Account:   account.Hex(),
		Type:      kind,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	})
}
