package config

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = "RELAYER"

// OracleRelayerConfig contains the whole relayer configuration, read from RELAYER_* env variables.
type OracleRelayerConfig struct {
	Chain   ChainConfig
	Signer  SignerConfig
	Scorer  ScorerConfig
	Relayer RelayerConfig

	StoragePath   string `envconfig:"DB_PATH" default:"storage/leveldb"`
	ListenAddr    string `split_words:"true" default:"0.0.0.0:9999"`
	QueueCapacity int    `split_words:"true" default:"10000"`
}

// ChainConfig describes the EVM chain and the oracle contract the relayer works with.
type ChainConfig struct {
	RPCAddr         string        `envconfig:"RPC_ADDR" required:"true"`
	ChainID         int64         `envconfig:"CHAIN_ID" default:"11155111"`
	ContractAddress string        `split_words:"true" required:"true"`
	Timeout         time.Duration `default:"10s"`
	PollInterval    time.Duration `split_words:"true" default:"2s"`
	// StartBlock is used when there is no stored checkpoint; 0 means the current head.
	StartBlock    uint64 `split_words:"true" default:"0"`
	Confirmations uint64 `default:"0"`
	MaxBlockRange uint64 `split_words:"true" default:"2000"`

	GasLimit            uint64        `split_words:"true" default:"200000"`
	GasPriceGwei        uint64        `split_words:"true" default:"50"`
	ConfirmationTimeout time.Duration `split_words:"true" default:"2m"`
}

// SignerConfig references the oracle account credential. Exactly one of PrivateKey and
// KeystoreFile must be set.
type SignerConfig struct {
	PrivateKey       string `split_words:"true"`
	KeystoreFile     string `split_words:"true"`
	KeystorePassword string `split_words:"true"`
}

// ScorerConfig describes the external scoring service.
type ScorerConfig struct {
	URL     string        `envconfig:"URL" required:"true"`
	Timeout time.Duration `default:"10s"`
	// RateLimit is the max number of scorer requests per second, 0 disables limiting.
	RateLimit float64 `split_words:"true" default:"0"`
	Retry     RetryConfig
}

// RelayerConfig tunes the settlement pipeline.
type RelayerConfig struct {
	Workers       int           `default:"4"`
	DedupWindow   time.Duration `split_words:"true" default:"24h"`
	EvictInterval time.Duration `split_words:"true" default:"1m"`
	Fetch         RetryConfig
	Submit        RetryConfig
}

// RetryConfig bounds an exponential backoff retry loop.
type RetryConfig struct {
	Attempts uint          `default:"5"`
	Delay    time.Duration `default:"1s"`
	MaxDelay time.Duration `split_words:"true" default:"30s"`
}

func NewOracleRelayerConfig() (OracleRelayerConfig, error) {
	var cfg OracleRelayerConfig
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to process env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks the values envconfig cannot check by itself.
func (c OracleRelayerConfig) Validate() error {
	if !common.IsHexAddress(c.Chain.ContractAddress) {
		return fmt.Errorf("contract address %q is not a hex address", c.Chain.ContractAddress)
	}
	if c.Chain.ChainID <= 0 {
		return fmt.Errorf("chain id must be positive, got %d", c.Chain.ChainID)
	}
	if c.Chain.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.Chain.MaxBlockRange == 0 {
		return fmt.Errorf("max block range must be positive")
	}
	if (c.Signer.PrivateKey == "") == (c.Signer.KeystoreFile == "") {
		return fmt.Errorf("exactly one of RELAYER_SIGNER_PRIVATE_KEY and RELAYER_SIGNER_KEYSTORE_FILE must be set")
	}
	if c.Relayer.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Relayer.Workers)
	}
	if c.Relayer.DedupWindow <= 0 {
		return fmt.Errorf("dedup window must be positive")
	}
	for name, r := range map[string]RetryConfig{
		"scorer": c.Scorer.Retry,
		"fetch":  c.Relayer.Fetch,
		"submit": c.Relayer.Submit,
	} {
		if r.Attempts == 0 {
			return fmt.Errorf("%s retry attempts must be positive", name)
		}
	}
	if c.QueueCapacity <= 0 {
		return fmt.Errorf("queue capacity must be positive")
	}

	return nil
}
