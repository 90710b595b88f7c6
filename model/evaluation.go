package model

// Verdict is the Guardian's decision on a UserOperation.
type Verdict string

const (
	Approved Verdict = "APPROVED"
	Rejected Verdict = "REJECTED"
)

// EvaluationResult is returned once per evaluate call. It is never cached.
type EvaluationResult struct {
	Verdict           Verdict      `json:"verdict"`
	RiskScore         int          `json:"riskScore"`
	GuardianSignature string       `json:"guardianSignature,omitempty"`
	RejectionReason   string       `json:"rejectionReason,omitempty"`
	Layers            LayerResults `json:"layers"`
	EvaluationMs      int64        `json:"evaluationMs"`
}

// Approved reports whether the Guardian approved the operation.
func (r *EvaluationResult) Approved() bool {
	return r != nil && r.Verdict == Approved
}

// LayerResults holds the per-layer detail of an evaluation.
type LayerResults struct {
	Layer1 []RuleCheck        `json:"layer1,omitempty"`
	Layer2 *SimulationOutcome `json:"layer2,omitempty"`
	Layer3 *AIAssessment      `json:"layer3,omitempty"`
}

// RuleCheck is one deterministic policy rule evaluated by layer 1.
type RuleCheck struct {
	Rule    string `json:"rule"`
	Passed  bool   `json:"passed"`
	Details string `json:"details,omitempty"`
}

// SimulationOutcome is the layer 2 simulation result.
type SimulationOutcome struct {
	Success      bool   `json:"success"`
	GasUsed      uint64 `json:"gasUsed,omitempty"`
	RevertReason string `json:"revertReason,omitempty"`
	Details      string `json:"details,omitempty"`
}

// AIAssessment is the layer 3 model score.
type AIAssessment struct {
	Score     int    `json:"score"`
	Reasoning string `json:"reasoning,omitempty"`
}

// FailedRules returns the names of the layer 1 rules that did not pass.
func (l LayerResults) FailedRules() []string {
	var failed []string
	for _, c := range l.Layer1 {
		if !c.Passed {
			failed = append(failed, c.Rule)
		}
	}
	return failed
}
