package main

import (
	"fmt"
	"io"
	"math/big"
	"slices"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"

	"github.com/blndgs/guardian/model"
)

var (
	approvedStyle = color.New(color.FgGreen, color.Bold)
	rejectedStyle = color.New(color.FgRed, color.Bold)
	pendingStyle  = color.New(color.FgYellow)
	faintStyle    = color.New(color.Faint)
	headerStyle   = color.New(color.Bold, color.FgHiWhite)
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

// keyValues renders a two-column table without a header.
func keyValues(w io.Writer, rows [][2]string) {
	t := newTable(w)
	t.Style().Options.SeparateRows = false
	t.AppendRows(lo.Map(rows, func(r [2]string, _ int) table.Row {
		return table.Row{headerStyle.Sprint(r[0]), r[1]}
	}))
	t.Render()
}

func verdictText(v model.Verdict) string {
	switch v {
	case model.Approved:
		return approvedStyle.Sprint(string(v))
	case model.Rejected:
		return rejectedStyle.Sprint(string(v))
	default:
		return string(v)
	}
}

func passText(ok bool) string {
	if ok {
		return approvedStyle.Sprint("pass")
	}
	return rejectedStyle.Sprint("fail")
}

// ether renders a decimal wei string in ether.
func ether(wei string) string {
	if wei == "" {
		return faintStyle.Sprint("-")
	}
	v, ok := new(big.Int).SetString(wei, 10)
	if !ok {
		return wei
	}
	return model.FormatEther(v) + " ETH"
}

func etherInt(v *big.Int) string {
	if v == nil {
		return faintStyle.Sprint("-")
	}
	return model.FormatEther(v) + " ETH"
}

func unixTime(sec uint64) string {
	if sec == 0 {
		return faintStyle.Sprint("-")
	}
	return time.Unix(int64(sec), 0).UTC().Format(time.RFC3339)
}

func addressList(addrs []common.Address) string {
	if len(addrs) == 0 {
		return faintStyle.Sprint("none")
	}
	return strings.Join(lo.Map(addrs, func(a common.Address, _ int) string { return a.Hex() }), "\n")
}

func renderAccount(w io.Writer, info *model.AccountInfo) {
	status := approvedStyle.Sprint("active")
	if info.Frozen {
		status = rejectedStyle.Sprint("frozen")
		if info.FrozenAt != nil {
			status += " since " + info.FrozenAt.UTC().Format(time.RFC3339)
		}
	}
	keyValues(w, [][2]string{
		{"Account", info.Address},
		{"Chain", fmt.Sprint(info.ChainID)},
		{"Status", status},
		{"Owner", info.Owner},
		{"Agent key", info.AgentKey},
		{"Guardian key", info.GuardianKey},
	})
	renderPolicy(w, &info.Policy)
}

func renderPolicy(w io.Writer, p *model.PolicyInfo) {
	rows := [][2]string{
		{"Max per tx", ether(p.MaxTxValue)},
		{"Daily limit", ether(p.DailyLimit)},
		{"Weekly limit", ether(p.WeeklyLimit)},
		{"Risk threshold", fmt.Sprint(p.RiskThreshold)},
	}
	if len(p.AllowedTargets) > 0 {
		rows = append(rows, [2]string{"Allowed targets", strings.Join(p.AllowedTargets, "\n")})
	}
	if len(p.BlockedTargets) > 0 {
		rows = append(rows, [2]string{"Blocked targets", strings.Join(p.BlockedTargets, "\n")})
	}
	keyValues(w, rows)
}

func renderEvaluation(w io.Writer, res *model.EvaluationResult) {
	fmt.Fprintf(w, "%s  risk score %d  (%dms)\n", verdictText(res.Verdict), res.RiskScore, res.EvaluationMs)
	if res.RejectionReason != "" {
		fmt.Fprintf(w, "reason: %s\n", res.RejectionReason)
	}

	if len(res.Layers.Layer1) > 0 {
		t := newTable(w)
		t.AppendHeader(table.Row{"Rule", "Result", "Details"})
		t.AppendRows(lo.Map(res.Layers.Layer1, func(r model.RuleCheck, _ int) table.Row {
			return table.Row{r.Rule, passText(r.Passed), r.Details}
		}))
		t.Render()
	}
	if sim := res.Layers.Layer2; sim != nil {
		line := fmt.Sprintf("simulation: %s, gas used %d", passText(sim.Success), sim.GasUsed)
		if sim.RevertReason != "" {
			line += ", revert: " + sim.RevertReason
		}
		fmt.Fprintln(w, line)
	}
	if ai := res.Layers.Layer3; ai != nil {
		fmt.Fprintf(w, "ai score: %d %s\n", ai.Score, faintStyle.Sprint(ai.Reasoning))
	}
}

func renderTransactions(w io.Writer, page *model.TransactionPage) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Time", "Target", "Value", "Verdict", "Risk", "UserOp hash"})
	t.AppendRows(lo.Map(page.Transactions, func(tx model.TransactionRecord, _ int) table.Row {
		return table.Row{tx.CreatedAt.UTC().Format(time.RFC3339), tx.Target, ether(tx.Value),
			verdictText(tx.Verdict), tx.RiskScore, tx.UserOpHash}
	}))
	t.AppendFooter(table.Row{"", "", "", "", "total", page.Count})
	t.Render()
}

func renderAudit(w io.Writer, events []model.AuditEvent) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Time", "Event", "Actor", "Details"})
	t.AppendRows(lo.Map(events, func(e model.AuditEvent, _ int) table.Row {
		details := lo.MapToSlice(e.Details, func(k string, v any) string { return fmt.Sprintf("%s=%v", k, v) })
		slices.Sort(details)
		return table.Row{e.CreatedAt.UTC().Format(time.RFC3339), e.Type, e.Actor, strings.Join(details, " ")}
	}))
	t.Render()
}

func recoveryStatusText(s model.RecoveryStatus) string {
	switch s {
	case model.RecoveryReady, model.RecoveryExecuted:
		return approvedStyle.Sprint(string(s))
	case model.RecoveryCancelled:
		return rejectedStyle.Sprint(string(s))
	default:
		return pendingStyle.Sprint(string(s))
	}
}

// waitFor shows a spinner on w while fn waits for a receipt.
func waitFor(w io.Writer, what string, fn func() (common.Hash, error)) (common.Hash, error) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + what
	_ = s.Color("cyan", "bold")
	s.Start()
	defer s.Stop()
	return fn()
}
