package main

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/blndgs/guardian"
	"github.com/blndgs/guardian/model"
)

func (c *cli) accountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "account",
		Short: "Show the registered account and its policy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(func(client *guardian.Client) error {
				info, err := client.GetAccount(cmd.Context())
				if err != nil {
					return err
				}
				renderAccount(cmd.OutOrStdout(), info)
				return nil
			})
		},
	}
}

func (c *cli) registerCmd() *cobra.Command {
	var req model.RegisterAccountRequest
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register the account with the Guardian",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(func(client *guardian.Client) error {
				info, err := client.RegisterAccount(cmd.Context(), req)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), approvedStyle.Sprint("registered"))
				renderAccount(cmd.OutOrStdout(), info)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&req.Owner, "owner", "", "owner address")
	cmd.Flags().StringVar(&req.AgentKey, "agent-key", "", "agent key address")
	cmd.Flags().StringVar(&req.GuardianKey, "guardian-key", "", "guardian co-signer address")
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("agent-key")
	_ = cmd.MarkFlagRequired("guardian-key")
	return cmd
}

func (c *cli) policyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Show or change the spending policy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(func(client *guardian.Client) error {
				p, err := client.GetPolicy(cmd.Context())
				if err != nil {
					return err
				}
				renderPolicy(cmd.OutOrStdout(), p)
				return nil
			})
		},
	}

	var (
		tmpl                 string
		maxTx, daily, weekly string
		risk                 int
		allowed, blocked     []string
	)
	set := &cobra.Command{
		Use:   "set",
		Short: "Update the policy from a strategy template and/or explicit limits",
		Long: `Update the policy. Amounts are in ether. Explicit flags override the
values of --template. Fields that are not given are left unchanged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var update model.PolicyUpdate
			if tmpl != "" {
				t, err := guardian.LookupStrategyTemplate(tmpl)
				if err != nil {
					return err
				}
				update = t.PolicyUpdate()
			}
			limits := []struct {
				flag string
				val  string
				dst  **string
			}{
				{"max-tx", maxTx, &update.MaxTxValue},
				{"daily", daily, &update.DailyLimit},
				{"weekly", weekly, &update.WeeklyLimit},
			}
			for _, l := range limits {
				if !cmd.Flags().Changed(l.flag) {
					continue
				}
				wei, err := model.ParseEther(l.val)
				if err != nil {
					return err
				}
				*l.dst = lo.ToPtr(wei.String())
			}
			if cmd.Flags().Changed("risk-threshold") {
				update.RiskThreshold = lo.ToPtr(risk)
			}
			if cmd.Flags().Changed("allow") {
				update.AllowedTargets = allowed
			}
			if cmd.Flags().Changed("block") {
				update.BlockedTargets = blocked
			}
			if update.MaxTxValue == nil && update.DailyLimit == nil && update.WeeklyLimit == nil &&
				update.RiskThreshold == nil && update.AllowedTargets == nil && update.BlockedTargets == nil {
				return fmt.Errorf("nothing to update: pass --template or at least one limit")
			}

			return c.run(func(client *guardian.Client) error {
				p, err := client.UpdatePolicy(cmd.Context(), update)
				if err != nil {
					return err
				}
				renderPolicy(cmd.OutOrStdout(), p)
				return nil
			})
		},
	}
	f := set.Flags()
	f.StringVar(&tmpl, "template", "", "strategy template name (see `guardianctl templates`)")
	f.StringVar(&maxTx, "max-tx", "", "maximum value per transaction in ETH")
	f.StringVar(&daily, "daily", "", "daily limit in ETH")
	f.StringVar(&weekly, "weekly", "", "weekly limit in ETH")
	f.IntVar(&risk, "risk-threshold", 0, "maximum accepted risk score (0-100)")
	f.StringSliceVar(&allowed, "allow", nil, "allowed target addresses")
	f.StringSliceVar(&blocked, "block", nil, "blocked target addresses")
	cmd.AddCommand(set)
	return cmd
}

func (c *cli) evaluateCmd() *cobra.Command {
	var target, value, data string
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Build, sign and submit a transaction for risk evaluation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tx := model.TransactionParams{Target: target, Value: new(big.Int)}
			if value != "" {
				wei, err := model.ParseEther(value)
				if err != nil {
					return err
				}
				tx.Value = wei
			}
			if data != "" {
				b, err := hexutil.Decode(data)
				if err != nil {
					return fmt.Errorf("invalid --data: %w", err)
				}
				tx.Data = b
			}

			return c.run(func(client *guardian.Client) error {
				res, err := client.EvaluateTransaction(cmd.Context(), tx)
				if err != nil {
					return err
				}
				renderEvaluation(cmd.OutOrStdout(), res)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&target, "target", "", "address the account will call")
	cmd.Flags().StringVar(&value, "value", "", "value in ETH")
	cmd.Flags().StringVar(&data, "data", "", "0x-prefixed calldata")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func (c *cli) historyCmd() *cobra.Command {
	var (
		q       model.TransactionQuery
		verdict string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List evaluated transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q.Verdict = model.Verdict(verdict)
			return c.run(func(client *guardian.Client) error {
				page, err := client.GetTransactions(cmd.Context(), q)
				if err != nil {
					return err
				}
				renderTransactions(cmd.OutOrStdout(), page)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&q.Limit, "limit", 20, "page size")
	cmd.Flags().IntVar(&q.Offset, "offset", 0, "page offset")
	cmd.Flags().StringVar(&verdict, "verdict", "", "APPROVED or REJECTED")
	return cmd
}

func (c *cli) auditCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the account audit log, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(func(client *guardian.Client) error {
				events, err := client.GetAuditLog(cmd.Context(), limit)
				if err != nil {
					return err
				}
				renderAudit(cmd.OutOrStdout(), events)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "number of events")
	return cmd
}

func (c *cli) freezeCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "freeze",
		Short: "Freeze the account; every further transaction is rejected",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(func(client *guardian.Client) error {
				res, err := client.FreezeAccount(cmd.Context(), reason)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s at %s\n", rejectedStyle.Sprint("frozen"), res.FrozenAt.UTC().Format("2006-01-02 15:04:05 MST"))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "reason recorded in the audit log")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

func (c *cli) rotateKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rotate-key NEW_AGENT_ADDRESS",
		Short: "Replace the registered agent key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(func(client *guardian.Client) error {
				res, err := client.RotateAgentKey(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "agent key rotated to %s\n", res.NewAgentKey)
				return nil
			})
		},
	}
}

func templatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List the built-in strategy templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Name", "Max per tx", "Daily", "Weekly", "Risk", "Description"})
			t.AppendRows(lo.Map(guardian.StrategyTemplates(), func(s guardian.StrategyTemplate, _ int) table.Row {
				return table.Row{s.Name, ether(s.MaxTxValue), ether(s.DailyLimit), ether(s.WeeklyLimit), s.RiskThreshold, s.Description}
			}))
			t.Render()
			return nil
		},
	}
}
