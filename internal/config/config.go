// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Ethereum  EthereumConfig  `mapstructure:"ethereum"`
	Wallet    WalletConfig    `mapstructure:"wallet"`
	Flashbots FlashbotsConfig `mapstructure:"flashbots"`
	Markets   MarketsConfig   `mapstructure:"markets"`
	Arbitrage ArbitrageConfig `mapstructure:"arbitrage"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Health    HealthConfig    `mapstructure:"health"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// EthereumConfig holds Ethereum node configuration.
type EthereumConfig struct {
	WebSocketURL string        `mapstructure:"websocket_url"`
	HTTPURL      string        `mapstructure:"http_url"`
	ChainID      uint64        `mapstructure:"chain_id"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// WalletConfig holds the executor key and the on-chain bundle executor.
type WalletConfig struct {
	PrivateKey            string `mapstructure:"private_key"`
	BundleExecutorAddress string `mapstructure:"bundle_executor_address"`
}

// BundleExecutor returns the bundle executor contract address.
func (c *WalletConfig) BundleExecutor() common.Address {
	return common.HexToAddress(c.BundleExecutorAddress)
}

// FlashbotsConfig holds relay settings.
type FlashbotsConfig struct {
	RelayURL          string        `mapstructure:"relay_url"`
	SigningKey        string        `mapstructure:"signing_key"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

// MarketsConfig drives pair discovery and reserve refresh.
type MarketsConfig struct {
	QuoteToken         string   `mapstructure:"quote_token"`
	QueryContract      string   `mapstructure:"query_contract"`
	Factories          []string `mapstructure:"factories"`
	BlacklistTokens    []string `mapstructure:"blacklist_tokens"`
	MinQuoteReserveETH float64  `mapstructure:"min_quote_reserve_eth"`
	PageSize           int      `mapstructure:"page_size"`
	MaxPages           int      `mapstructure:"max_pages"`
	ReserveBatchSize   int      `mapstructure:"reserve_batch_size"`
	ReserveWorkers     int      `mapstructure:"reserve_workers"`
}

// QuoteTokenAddress returns the quote token as common.Address.
func (c *MarketsConfig) QuoteTokenAddress() common.Address {
	return common.HexToAddress(c.QuoteToken)
}

// QueryContractAddress returns the flash query helper address.
func (c *MarketsConfig) QueryContractAddress() common.Address {
	return common.HexToAddress(c.QueryContract)
}

// FactoryAddresses returns the configured factories.
func (c *MarketsConfig) FactoryAddresses() []common.Address {
	return toAddresses(c.Factories)
}

// BlacklistAddresses returns tokens to skip at discovery time.
func (c *MarketsConfig) BlacklistAddresses() []common.Address {
	return toAddresses(c.BlacklistTokens)
}

// MinQuoteReserveWei returns the liquidity floor in wei.
func (c *MarketsConfig) MinQuoteReserveWei() decimal.Decimal {
	return ethToWei(c.MinQuoteReserveETH)
}

// ArbitrageConfig holds detection and execution knobs.
type ArbitrageConfig struct {
	MinerRewardPercentage int64         `mapstructure:"miner_reward_percentage"`
	ProbeVolumeETH        float64       `mapstructure:"probe_volume_eth"`
	MinProfitETH          float64       `mapstructure:"min_profit_eth"`
	GasCeiling            uint64        `mapstructure:"gas_ceiling"`
	ScanTimeout           time.Duration `mapstructure:"scan_timeout"`
	MaxFailedCycles       int           `mapstructure:"max_failed_cycles"`
	TUIMode               bool          `mapstructure:"-"` // set at runtime from flags
}

// ProbeVolumeWei returns the reference volume used to price markets.
func (c *ArbitrageConfig) ProbeVolumeWei() decimal.Decimal {
	return ethToWei(c.ProbeVolumeETH)
}

// MinProfitWei returns the dust threshold in wei.
func (c *ArbitrageConfig) MinProfitWei() decimal.Decimal {
	return ethToWei(c.MinProfitETH)
}

// CacheConfig holds the optional Redis pair cache.
type CacheConfig struct {
	RedisURL string        `mapstructure:"redis_url"`
	PairsTTL time.Duration `mapstructure:"pairs_ttl"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	ServiceName    string  `mapstructure:"service_name"`
	TraceExporter  string  `mapstructure:"trace_exporter"` // none, zipkin, console, otlp-grpc, otlp-http
	TraceEndpoint  string  `mapstructure:"trace_endpoint"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
	OTLPEndpoint   string  `mapstructure:"otlp_endpoint"` // metrics push, empty disables
	PrometheusPort int     `mapstructure:"prometheus_port"`
}

// HealthConfig holds the health server settings.
type HealthConfig struct {
	Port int `mapstructure:"port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("ARB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// bindEnvVars maps explicit names, including the legacy names used by the
// original deployment scripts.
func bindEnvVars(v *viper.Viper) {
	v.BindEnv("app.name", "ARB_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "ARB_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "ARB_LOG_LEVEL", "LOG_LEVEL")

	v.BindEnv("ethereum.websocket_url", "ARB_ETH_WS_URL", "ETH_WS_URL")
	v.BindEnv("ethereum.http_url", "ARB_ETH_HTTP_URL", "ETHEREUM_RPC_URL")
	v.BindEnv("ethereum.chain_id", "ARB_ETH_CHAIN_ID", "ETH_CHAIN_ID")

	v.BindEnv("wallet.private_key", "ARB_PRIVATE_KEY", "PRIVATE_KEY")
	v.BindEnv("wallet.bundle_executor_address", "ARB_BUNDLE_EXECUTOR_ADDRESS", "BUNDLE_EXECUTOR_ADDRESS")

	v.BindEnv("flashbots.relay_url", "ARB_FLASHBOTS_RELAY_URL", "FLASHBOTS_RELAY_URL")
	v.BindEnv("flashbots.signing_key", "ARB_FLASHBOTS_SIGNING_KEY", "FLASHBOTS_RELAY_SIGNING_KEY")

	v.BindEnv("arbitrage.miner_reward_percentage", "ARB_MINER_REWARD_PERCENTAGE", "MINER_REWARD_PERCENTAGE")

	v.BindEnv("cache.redis_url", "ARB_REDIS_URL", "REDIS_URL")

	v.BindEnv("telemetry.enabled", "ARB_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "ARB_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "ARB_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	v.BindEnv("telemetry.trace_exporter", "ARB_TRACE_EXPORTER")
	v.BindEnv("telemetry.trace_endpoint", "ARB_TRACE_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "simple-arbitrage")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("ethereum.chain_id", 1)
	v.SetDefault("ethereum.poll_interval", "12s")

	v.SetDefault("flashbots.relay_url", "https://relay.flashbots.net")
	v.SetDefault("flashbots.requests_per_second", 5)
	v.SetDefault("flashbots.timeout", "5s")

	// Mainnet
	v.SetDefault("markets.quote_token", "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	v.SetDefault("markets.query_contract", "0x5EF1009b9FCD4fec3094a5564047e190D72Bd511")
	v.SetDefault("markets.factories", []string{
		"0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f", // Uniswap V2
		"0xC0AEe478e3658e2610c5F7A4A2E1777cE9e4f2Ac", // SushiSwap
		"0x9DEB29c9a4c7A88a3C0257393b7f3335338D9A9D", // CRO Defi Swap
		"0xbdda21dd8da31d5bee0c9bb886c044ebb9b8906a", // Zeus
		"0x0388c1e0f210abae597b7de712b9510c6c36c857", // Lua
	})
	v.SetDefault("markets.blacklist_tokens", []string{"0xD75EA151a61d06868E31F8988D28DFE5E9df57B4"})
	v.SetDefault("markets.min_quote_reserve_eth", 1.0)
	v.SetDefault("markets.page_size", 100)
	v.SetDefault("markets.max_pages", 100)
	v.SetDefault("markets.reserve_batch_size", 1000)
	v.SetDefault("markets.reserve_workers", 4)

	v.SetDefault("arbitrage.miner_reward_percentage", 80)
	v.SetDefault("arbitrage.probe_volume_eth", 0.01)
	v.SetDefault("arbitrage.min_profit_eth", 0.001)
	v.SetDefault("arbitrage.gas_ceiling", 1_400_000)
	v.SetDefault("arbitrage.scan_timeout", "10s")
	v.SetDefault("arbitrage.max_failed_cycles", 3)

	v.SetDefault("cache.pairs_ttl", "6h")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "simple-arbitrage")
	v.SetDefault("telemetry.trace_exporter", "zipkin")
	v.SetDefault("telemetry.sample_ratio", 1.0)
	v.SetDefault("telemetry.prometheus_port", 9090)

	v.SetDefault("health.port", 8081)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Ethereum.HTTPURL == "" {
		return fmt.Errorf("ethereum.http_url is required")
	}
	if _, err := crypto.HexToECDSA(strings.TrimPrefix(c.Wallet.PrivateKey, "0x")); err != nil {
		return fmt.Errorf("invalid wallet.private_key")
	}
	if _, err := crypto.HexToECDSA(strings.TrimPrefix(c.Flashbots.SigningKey, "0x")); err != nil {
		return fmt.Errorf("invalid flashbots.signing_key")
	}
	if !common.IsHexAddress(c.Wallet.BundleExecutorAddress) {
		return fmt.Errorf("invalid wallet.bundle_executor_address: %q", c.Wallet.BundleExecutorAddress)
	}
	if !common.IsHexAddress(c.Markets.QuoteToken) {
		return fmt.Errorf("invalid markets.quote_token: %q", c.Markets.QuoteToken)
	}
	if !common.IsHexAddress(c.Markets.QueryContract) {
		return fmt.Errorf("invalid markets.query_contract: %q", c.Markets.QueryContract)
	}
	if len(c.Markets.Factories) == 0 {
		return fmt.Errorf("markets.factories cannot be empty")
	}
	for _, f := range c.Markets.Factories {
		if !common.IsHexAddress(f) {
			return fmt.Errorf("invalid factory address: %q", f)
		}
	}
	for _, t := range c.Markets.BlacklistTokens {
		if !common.IsHexAddress(t) {
			return fmt.Errorf("invalid blacklist token: %q", t)
		}
	}
	if c.Markets.PageSize <= 0 || c.Markets.ReserveBatchSize <= 0 {
		return fmt.Errorf("markets.page_size and markets.reserve_batch_size must be positive")
	}
	if c.Arbitrage.MinerRewardPercentage < 0 || c.Arbitrage.MinerRewardPercentage > 100 {
		return fmt.Errorf("arbitrage.miner_reward_percentage must be within [0, 100], got %d",
			c.Arbitrage.MinerRewardPercentage)
	}
	if c.Arbitrage.ProbeVolumeETH <= 0 {
		return fmt.Errorf("arbitrage.probe_volume_eth must be positive")
	}
	if c.Arbitrage.GasCeiling == 0 {
		return fmt.Errorf("arbitrage.gas_ceiling must be positive")
	}
	return nil
}

func toAddresses(hexes []string) []common.Address {
	out := make([]common.Address, 0, len(hexes))
	for _, h := range hexes {
		out = append(out, common.HexToAddress(h))
	}
	return out
}

func ethToWei(eth float64) decimal.Decimal {
	return decimal.NewFromFloat(eth).Shift(18)
}
