package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/product-compare/internal/cost"
	"github.com/sells-group/product-compare/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Serper    SerperConfig    `yaml:"serper" mapstructure:"serper"`
	Search    SearchConfig    `yaml:"search" mapstructure:"search"`
	Fetch     FetchConfig     `yaml:"fetch" mapstructure:"fetch"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Pricing    cost.Rates       `yaml:"pricing" mapstructure:"pricing"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
}

// AnthropicConfig holds the oracle credentials and model selection.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// SerperConfig configures the search API used by both search backends.
type SerperConfig struct {
	Key               string  `yaml:"key" mapstructure:"key"`
	BaseURL           string  `yaml:"base_url" mapstructure:"base_url"`
	Region            string  `yaml:"region" mapstructure:"region"`
	GL                string  `yaml:"gl" mapstructure:"gl"`
	HL                string  `yaml:"hl" mapstructure:"hl"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// SearchConfig tunes candidate retrieval.
type SearchConfig struct {
	ResultsPerProduct int `yaml:"results_per_product" mapstructure:"results_per_product"`
	CacheSize         int `yaml:"cache_size" mapstructure:"cache_size"`
	CacheTTLMins      int `yaml:"cache_ttl_mins" mapstructure:"cache_ttl_mins"`
	BreakerFailures   int `yaml:"breaker_failures" mapstructure:"breaker_failures"`
	BreakerResetSecs  int `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// FetchConfig tunes page fetching.
type FetchConfig struct {
	TimeoutSecs     int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts     int    `yaml:"max_attempts" mapstructure:"max_attempts"`
	MinDelayMs      int    `yaml:"min_delay_ms" mapstructure:"min_delay_ms"`
	MaxDelayMs      int    `yaml:"max_delay_ms" mapstructure:"max_delay_ms"`
	Escalation      string `yaml:"escalation" mapstructure:"escalation"` // tls or browser
	BrowserWaitMs   int    `yaml:"browser_wait_ms" mapstructure:"browser_wait_ms"`
	MaxBodyBytes    int64  `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	InterFetchDelay bool   `yaml:"inter_fetch_delay" mapstructure:"inter_fetch_delay"`
}

// PipelineConfig configures currency handling and oracle availability.
type PipelineConfig struct {
	TargetCurrency string  `yaml:"target_currency" mapstructure:"target_currency"`
	SourceCurrency string  `yaml:"source_currency" mapstructure:"source_currency"`
	ExchangeRate   float64 `yaml:"exchange_rate" mapstructure:"exchange_rate"`
	Offline        bool    `yaml:"offline" mapstructure:"offline"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// StoreConfig configures the run ledger backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// MonitoringConfig configures ledger health alerts.
type MonitoringConfig struct {
	Enabled               bool    `yaml:"enabled" mapstructure:"enabled"`
	WebhookURL            string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs     int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours   int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	FailureRateThreshold  float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	FetchSuccessThreshold float64 `yaml:"fetch_success_threshold" mapstructure:"fetch_success_threshold"`
	SlowRunSecs           int     `yaml:"slow_run_secs" mapstructure:"slow_run_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("COMPARE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Secrets have no default; bind them so AutomaticEnv sees them on Unmarshal.
	_ = v.BindEnv("anthropic.key")
	_ = v.BindEnv("serper.key")
	_ = v.BindEnv("store.database_url")
	_ = v.BindEnv("monitoring.webhook_url")

	// Defaults
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 2048)
	v.SetDefault("serper.base_url", "https://google.serper.dev")
	v.SetDefault("serper.region", "India")
	v.SetDefault("serper.gl", "in")
	v.SetDefault("serper.hl", "en")
	v.SetDefault("serper.requests_per_second", 5.0)
	v.SetDefault("serper.timeout_secs", 15)
	v.SetDefault("search.results_per_product", 3)
	v.SetDefault("search.cache_size", 0)
	v.SetDefault("search.cache_ttl_mins", 30)
	v.SetDefault("search.breaker_failures", 5)
	v.SetDefault("search.breaker_reset_secs", 60)
	v.SetDefault("fetch.timeout_secs", 20)
	v.SetDefault("fetch.max_attempts", 3)
	v.SetDefault("fetch.min_delay_ms", 500)
	v.SetDefault("fetch.max_delay_ms", 2000)
	v.SetDefault("fetch.escalation", "tls")
	v.SetDefault("fetch.browser_wait_ms", 3000)
	v.SetDefault("fetch.max_body_bytes", 2<<20)
	v.SetDefault("fetch.inter_fetch_delay", true)
	v.SetDefault("pipeline.target_currency", "₹")
	v.SetDefault("pipeline.source_currency", "$")
	v.SetDefault("pipeline.exchange_rate", 83.0)
	v.SetDefault("pipeline.offline", false)
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("store.driver", "none")
	v.SetDefault("monitoring.enabled", false)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.failure_rate_threshold", 0.25)
	v.SetDefault("monitoring.fetch_success_threshold", 0.5)
	v.SetDefault("monitoring.slow_run_secs", 120)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the credentials required by mode are present.
// Mode "serve" and "compare" need the search key, and the oracle key unless
// the pipeline runs offline. Mode "runs" only needs a store.
func (c *Config) Validate(mode string) error {
	var missing []string
	switch mode {
	case "serve", "compare":
		if c.Serper.Key == "" {
			missing = append(missing, "serper.key")
		}
		if !c.Pipeline.Offline && c.Anthropic.Key == "" {
			missing = append(missing, "anthropic.key")
		}
	case "runs":
		if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
			missing = append(missing, "store.database_url")
		}
	}
	if c.Monitoring.Enabled && (c.Store.Driver == "" || c.Store.Driver == "none") {
		return eris.Wrap(model.ErrConfigurationMissing, "config: monitoring requires store.driver sqlite or postgres")
	}
	if c.Pipeline.ExchangeRate <= 0 {
		return eris.Wrapf(model.ErrConfigurationMissing, "config: exchange_rate must be positive, got %v", c.Pipeline.ExchangeRate)
	}
	if len(missing) > 0 {
		return eris.Wrapf(model.ErrConfigurationMissing, "config: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
