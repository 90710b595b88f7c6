package main

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/blndgs/guardian"
	"github.com/blndgs/guardian/model"
)

// send runs an owner-signed admin transaction and prints its hash once mined.
func (c *cli) send(cmd *cobra.Command, what string, fn func(client *guardian.Client) (common.Hash, error)) error {
	return c.run(func(client *guardian.Client) error {
		hash, err := waitFor(cmd.ErrOrStderr(), what, func() (common.Hash, error) { return fn(client) })
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", approvedStyle.Sprint("mined"), hash.Hex())
		return nil
	})
}

func (c *cli) recoveryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recovery",
		Short: "Social recovery: guardians, threshold and owner replacement",
	}

	config := &cobra.Command{
		Use:   "config",
		Short: "Show the recovery guardians, threshold and delay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(func(client *guardian.Client) error {
				rc, err := client.GetRecoveryConfig(cmd.Context())
				if err != nil {
					return err
				}
				keyValues(cmd.OutOrStdout(), [][2]string{
					{"Threshold", fmt.Sprintf("%d of %d", rc.Threshold, rc.GuardianCount)},
					{"Delay", rc.Delay.String()},
					{"Guardians", addressList(rc.Guardians)},
				})
				return nil
			})
		},
	}

	status := &cobra.Command{
		Use:   "status RECOVERY_ID",
		Short: "Show a recovery request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(func(client *guardian.Client) error {
				req, st, err := client.GetRecoveryRequest(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				keyValues(cmd.OutOrStdout(), [][2]string{
					{"Request", req.ID.Hex()},
					{"Status", recoveryStatusText(st)},
					{"New owner", req.NewOwner.Hex()},
					{"Support", fmt.Sprint(req.SupportCount)},
					{"Executable after", unixTime(req.ExecuteAfter)},
					{"Guardian epoch", fmt.Sprint(req.Epoch)},
				})
				return nil
			})
		},
	}

	addGuardian := &cobra.Command{
		Use:   "add-guardian ADDRESS",
		Short: "Add a recovery guardian",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.send(cmd, "adding guardian", func(client *guardian.Client) (common.Hash, error) {
				return client.AddRecoveryGuardian(cmd.Context(), args[0])
			})
		},
	}

	removeGuardian := &cobra.Command{
		Use:   "remove-guardian ADDRESS",
		Short: "Remove a recovery guardian",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.send(cmd, "removing guardian", func(client *guardian.Client) (common.Hash, error) {
				return client.RemoveRecoveryGuardian(cmd.Context(), args[0])
			})
		},
	}

	var threshold uint64
	setThreshold := &cobra.Command{
		Use:   "set-threshold",
		Short: "Set the number of guardians required to recover",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.send(cmd, "setting threshold", func(client *guardian.Client) (common.Hash, error) {
				return client.SetRecoveryThreshold(cmd.Context(), threshold)
			})
		},
	}
	setThreshold.Flags().Uint64Var(&threshold, "threshold", 0, "guardian signatures required")
	_ = setThreshold.MarkFlagRequired("threshold")

	var delay time.Duration
	setDelay := &cobra.Command{
		Use:   "set-delay",
		Short: "Set the recovery timelock (at least 48h)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.send(cmd, "setting delay", func(client *guardian.Client) (common.Hash, error) {
				return client.SetRecoveryDelay(cmd.Context(), delay)
			})
		},
	}
	setDelay.Flags().DurationVar(&delay, "delay", model.MinRecoveryDelay, "timelock duration")

	initiate := &cobra.Command{
		Use:   "initiate NEW_OWNER",
		Short: "Start replacing the owner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.send(cmd, "initiating recovery", func(client *guardian.Client) (common.Hash, error) {
				return client.InitiateRecovery(cmd.Context(), args[0])
			})
		},
	}

	byID := func(use, short, what string, call func(*guardian.Client, *cobra.Command, string) (common.Hash, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use + " RECOVERY_ID",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.send(cmd, what, func(client *guardian.Client) (common.Hash, error) {
					return call(client, cmd, args[0])
				})
			},
		}
	}

	cmd.AddCommand(config, status, addGuardian, removeGuardian, setThreshold, setDelay, initiate,
		byID("support", "Support a pending recovery request", "supporting recovery",
			func(client *guardian.Client, cmd *cobra.Command, id string) (common.Hash, error) {
				return client.SupportRecovery(cmd.Context(), id)
			}),
		byID("execute", "Execute a recovery request whose timelock has passed", "executing recovery",
			func(client *guardian.Client, cmd *cobra.Command, id string) (common.Hash, error) {
				return client.ExecuteRecovery(cmd.Context(), id)
			}),
		byID("cancel", "Cancel a recovery request", "cancelling recovery",
			func(client *guardian.Client, cmd *cobra.Command, id string) (common.Hash, error) {
				return client.CancelRecovery(cmd.Context(), id)
			}),
	)
	return cmd
}

func (c *cli) upgradeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upgrade",
		Short: "Timelocked implementation upgrades",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Show the pending upgrade, if any",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.run(func(client *guardian.Client) error {
					st, err := client.GetUpgradeStatus(cmd.Context())
					if err != nil {
						return err
					}
					if !st.Pending() {
						fmt.Fprintln(cmd.OutOrStdout(), "no upgrade pending")
						return nil
					}
					state := pendingStyle.Sprint("waiting")
					if st.Ready(time.Now()) {
						state = approvedStyle.Sprint("ready")
					}
					keyValues(cmd.OutOrStdout(), [][2]string{
						{"Implementation", st.PendingImplementation.Hex()},
						{"State", state},
						{"Requested", unixTime(st.RequestedAt)},
						{"Executable after", unixTime(st.ExecuteAfter)},
					})
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "request IMPLEMENTATION",
			Short: "Request an upgrade to a new implementation",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.send(cmd, "requesting upgrade", func(client *guardian.Client) (common.Hash, error) {
					return client.RequestUpgrade(cmd.Context(), args[0])
				})
			},
		},
		&cobra.Command{
			Use:   "execute",
			Short: "Execute the pending upgrade once its timelock has passed",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.send(cmd, "executing upgrade", func(client *guardian.Client) (common.Hash, error) {
					return client.ExecuteUpgrade(cmd.Context())
				})
			},
		},
		&cobra.Command{
			Use:   "cancel",
			Short: "Cancel the pending upgrade",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.send(cmd, "cancelling upgrade", func(client *guardian.Client) (common.Hash, error) {
					return client.CancelUpgrade(cmd.Context())
				})
			},
		},
	)
	return cmd
}

func (c *cli) sessionKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session-key",
		Short: "Inspect and revoke session keys",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "get KEY",
			Short: "Show a session key",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.run(func(client *guardian.Client) error {
					k, err := client.GetSessionKey(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					state := rejectedStyle.Sprint("inactive")
					if k.IsActive(time.Now()) {
						state = approvedStyle.Sprint("active")
					}
					if k.Revoked {
						state = rejectedStyle.Sprint("revoked")
					}
					keyValues(cmd.OutOrStdout(), [][2]string{
						{"Key", k.Key.Hex()},
						{"State", state},
						{"Valid", unixTime(k.ValidAfter) + " - " + unixTime(k.ValidUntil)},
						{"Spent", etherInt(k.Spent) + " of " + etherInt(k.SpendLimit)},
						{"Remaining", etherInt(k.Remaining())},
						{"Max per tx", etherInt(k.MaxTxValue)},
						{"Cooldown", (time.Duration(k.Cooldown) * time.Second).String()},
						{"Last used", unixTime(k.LastUsed)},
						{"All targets", fmt.Sprint(k.AllowAllTargets)},
					})
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "revoke KEY",
			Short: "Revoke a session key",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.send(cmd, "revoking session key", func(client *guardian.Client) (common.Hash, error) {
					return client.RevokeSessionKey(cmd.Context(), args[0])
				})
			},
		},
	)
	return cmd
}

func (c *cli) tokenPolicyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token-policy",
		Short: "Per-token approval and transfer limits",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "get TOKEN",
			Short: "Show the policy of a token",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.run(func(client *guardian.Client) error {
					p, err := client.GetTokenPolicy(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					if !p.Exists {
						fmt.Fprintf(cmd.OutOrStdout(), "no policy for %s\n", p.Token.Hex())
						return nil
					}
					keyValues(cmd.OutOrStdout(), [][2]string{
						{"Token", p.Token.Hex()},
						{"Max approval", p.MaxApproval.String()},
						{"Daily transfer limit", p.DailyTransferLimit.String()},
						{"Transferred today", p.DailyTransferred.String()},
					})
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "remove TOKEN",
			Short: "Remove the policy of a token",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.send(cmd, "removing token policy", func(client *guardian.Client) (common.Hash, error) {
					return client.RemoveTokenPolicy(cmd.Context(), args[0])
				})
			},
		},
	)
	return cmd
}
