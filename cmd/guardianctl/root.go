package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/blndgs/guardian"
)

// flag name -> viper key. Keys match the GUARDIAN_* environment variables.
var boundFlags = map[string]string{
	"api-url":         "api_url",
	"account":         "account_address",
	"chain-id":        "chain_id",
	"rpc-url":         "rpc_url",
	"entry-point":     "entry_point",
	"max-retries":     "max_retries",
	"request-timeout": "request_timeout",
	"debug":           "debug",
}

type cli struct {
	v       *viper.Viper
	cfgFile string
	envFile string
	logger  zerolog.Logger

	// opts are appended to every guardian.New call.
	opts []guardian.Option
}

func newRootCmd(opts ...guardian.Option) *cobra.Command {
	c := &cli{v: viper.New(), logger: zerolog.Nop(), opts: opts}

	root := &cobra.Command{
		Use:           "guardianctl",
		Short:         "Manage a Guardian-protected smart account",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
	}

	d := guardian.DefaultConfig()
	pf := root.PersistentFlags()
	pf.StringVar(&c.cfgFile, "config", "", "config file (default ./guardian.yaml or ~/.config/guardian/guardian.yaml)")
	pf.StringVar(&c.envFile, "env-file", ".env", "dotenv file loaded before reading GUARDIAN_* variables")
	pf.String("api-url", "", "Guardian API base URL")
	pf.String("account", "", "smart account address")
	pf.Uint64("chain-id", d.ChainID, "chain id")
	pf.String("rpc-url", "", "JSON-RPC endpoint for on-chain reads and admin transactions")
	pf.String("entry-point", d.EntryPoint, "EntryPoint contract address")
	pf.Int("max-retries", d.MaxRetries, "retries for transient API failures")
	pf.Duration("request-timeout", d.RequestTimeout, "per-attempt API timeout")
	pf.Bool("debug", false, "log redacted API traffic")

	pf.VisitAll(func(f *pflag.Flag) {
		if key, ok := boundFlags[f.Name]; ok {
			if err := c.v.BindPFlag(key, f); err != nil {
				panic(err)
			}
		}
	})

	root.AddGroup(
		&cobra.Group{ID: "account", Title: "Account Commands"},
		&cobra.Group{ID: "wallet", Title: "On-chain Commands"},
	)
	for _, cmd := range []*cobra.Command{
		c.accountCmd(), c.registerCmd(), c.policyCmd(), c.evaluateCmd(), c.historyCmd(),
		c.auditCmd(), c.freezeCmd(), c.rotateKeyCmd(),
	} {
		cmd.GroupID = "account"
		root.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{
		c.recoveryCmd(), c.upgradeCmd(), c.sessionKeyCmd(), c.tokenPolicyCmd(),
	} {
		cmd.GroupID = "wallet"
		root.AddCommand(cmd)
	}
	root.AddCommand(templatesCmd(), c.mcpCmd())
	return root
}

// setup loads the dotenv file, the optional config file and the environment,
// then sets up logging.
func (c *cli) setup(cmd *cobra.Command) error {
	if c.envFile != "" {
		if err := godotenv.Load(c.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}

	c.v.SetEnvPrefix(guardian.EnvPrefix)
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	c.v.AutomaticEnv()

	if c.cfgFile != "" {
		c.v.SetConfigFile(c.cfgFile)
		if err := c.v.ReadInConfig(); err != nil {
			return err
		}
	} else {
		c.v.SetConfigName("guardian")
		c.v.SetConfigType("yaml")
		c.v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			c.v.AddConfigPath(filepath.Join(home, ".config", "guardian"))
		}
		var notFound viper.ConfigFileNotFoundError
		if err := c.v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
			return err
		}
	}

	level := zerolog.InfoLevel
	if c.v.GetBool("debug") {
		level = zerolog.DebugLevel
	}
	c.logger = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()
	return nil
}

// config builds the SDK configuration from flags, config file and
// environment, in that order of precedence.
func (c *cli) config() guardian.Config {
	cfg := guardian.DefaultConfig()
	cfg.APIURL = c.v.GetString("api_url")
	cfg.APIKey = c.v.GetString("api_key")
	cfg.AgentKey = c.v.GetString("agent_key")
	cfg.OwnerKey = c.v.GetString("owner_key")
	cfg.AccountAddress = c.v.GetString("account_address")
	cfg.ChainID = c.v.GetUint64("chain_id")
	cfg.RPCURL = c.v.GetString("rpc_url")
	cfg.MaxRetries = c.v.GetInt("max_retries")
	cfg.Debug = c.v.GetBool("debug")
	if d := c.v.GetDuration("request_timeout"); d > 0 {
		cfg.RequestTimeout = d
	}
	if ep := c.v.GetString("entry_point"); ep != "" {
		cfg.EntryPoint = ep
	}
	return cfg
}

// run builds a client for the duration of fn.
func (c *cli) run(fn func(client *guardian.Client) error) error {
	opts := append([]guardian.Option{guardian.WithLogger(c.logger)}, c.opts...)
	client, err := guardian.New(c.config(), opts...)
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(client)
}
