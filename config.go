package guardian

import (
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/blndgs/guardian/chain"
	"github.com/blndgs/guardian/guarderr"
	"github.com/blndgs/guardian/internal/transport"
	"github.com/blndgs/guardian/model"
)

// EnvPrefix is the prefix of every environment variable read by LoadConfig.
const EnvPrefix = "GUARDIAN"

// Config groups the SDK settings. Values are taken from environment variables
// with the prefix "GUARDIAN_". Example: GUARDIAN_API_URL=https://api.example
// GUARDIAN_ACCOUNT_ADDRESS=0x... GUARDIAN_CHAIN_ID=11155111 .
type Config struct {
	APIURL         string `envconfig:"API_URL"         required:"true" validate:"required,url"`
	APIKey         string `envconfig:"API_KEY"`
	AgentKey       string `envconfig:"AGENT_KEY"`
	OwnerKey       string `envconfig:"OWNER_KEY"`
	AccountAddress string `envconfig:"ACCOUNT_ADDRESS" required:"true" validate:"required,eth_addr"`
	ChainID        uint64 `envconfig:"CHAIN_ID"        default:"1"     validate:"chain_id"`

	MaxRetries     int           `envconfig:"MAX_RETRIES"      default:"3"   validate:"min=0"`
	RetryBaseDelay time.Duration `envconfig:"RETRY_BASE_DELAY" default:"1s"  validate:"min=0"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT"  default:"30s" validate:"min=0"`

	// RPCURL is optional. When set, New connects to it as if SetProvider had
	// been called.
	RPCURL     string `envconfig:"RPC_URL"`
	EntryPoint string `envconfig:"ENTRY_POINT" default:"0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789" validate:"omitempty,eth_addr"`

	Debug bool `envconfig:"DEBUG"`
}

// DefaultConfig returns a Config with every default applied. APIURL and
// AccountAddress still have to be set.
func DefaultConfig() Config {
	return Config{
		ChainID:        1,
		MaxRetries:     transport.DefaultMaxRetries,
		RetryBaseDelay: transport.DefaultBaseDelay,
		RequestTimeout: transport.DefaultRequestTimeout,
		EntryPoint:     chain.DefaultEntryPoint.Hex(),
	}
}

// LoadConfig populates Config from environment variables (prefix GUARDIAN_).
func LoadConfig() (Config, error) {
	var c Config
	if err := envconfig.Process(EnvPrefix, &c); err != nil {
		return Config{}, guarderr.Wrap(guarderr.InvalidInput, "loadConfig", err, "invalid environment")
	}
	return c, c.Validate()
}

// withDefaults fills zero durations, chain id and entry point. MaxRetries is
// taken as given so that zero disables retries.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ChainID == 0 {
		c.ChainID = d.ChainID
	}
	if c.RetryBaseDelay == 0 {
		c.RetryBaseDelay = d.RetryBaseDelay
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = d.RequestTimeout
	}
	if c.EntryPoint == "" {
		c.EntryPoint = d.EntryPoint
	}
	return c
}

// Validate checks the configuration. Errors name the offending setting and
// never echo key material.
func (c Config) Validate() error {
	const op = "config"
	if err := model.ValidateStruct(op, c); err != nil {
		return err
	}
	if u, err := url.Parse(c.APIURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return guarderr.InvalidInputf(op, "APIURL must use the http or https scheme")
	}
	if c.RPCURL != "" {
		if err := chain.ValidateRPCURL(c.RPCURL); err != nil {
			return err
		}
	}
	return nil
}
