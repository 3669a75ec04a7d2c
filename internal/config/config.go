// Package config loads application configuration from file and environment
// and owns global logger setup.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/marquee-data/marquee-cli/internal/guardian"
	"github.com/marquee-data/marquee-cli/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Refdata     RefdataConfig     `yaml:"refdata" mapstructure:"refdata"`
	Jina        JinaConfig        `yaml:"jina" mapstructure:"jina"`
	Firecrawl   FirecrawlConfig   `yaml:"firecrawl" mapstructure:"firecrawl"`
	Browserless BrowserlessConfig `yaml:"browserless" mapstructure:"browserless"`
	Perplexity  PerplexityConfig  `yaml:"perplexity" mapstructure:"perplexity"`
	Anthropic   AnthropicConfig   `yaml:"anthropic" mapstructure:"anthropic"`
	Gateway     GatewayConfig     `yaml:"gateway" mapstructure:"gateway"`
	Quality     QualityConfig     `yaml:"quality" mapstructure:"quality"`
	Guardian    GuardianConfig    `yaml:"guardian" mapstructure:"guardian"`
	Ingest      IngestConfig      `yaml:"ingest" mapstructure:"ingest"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string            `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string            `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string            `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	Pool        *store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// RefdataConfig locates the reference dictionary.
type RefdataConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// JinaConfig holds Jina AI Reader settings. An empty key disables the
// provider.
type JinaConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// FirecrawlConfig holds Firecrawl API settings.
type FirecrawlConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// BrowserlessConfig holds Browserless rendering settings.
type BrowserlessConfig struct {
	Token   string `yaml:"token" mapstructure:"token"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key        string `yaml:"key" mapstructure:"key"`
	HaikuModel string `yaml:"haiku_model" mapstructure:"haiku_model"`
}

// GatewayConfig configures the fetch gateway.
type GatewayConfig struct {
	BaseDelaySecs int  `yaml:"base_delay_secs" mapstructure:"base_delay_secs"`
	CooldownMins  int  `yaml:"cooldown_mins" mapstructure:"cooldown_mins"`
	DisableDirect bool `yaml:"disable_direct" mapstructure:"disable_direct"`
}

// QualityConfig configures the content classifier thresholds.
type QualityConfig struct {
	MinChars            int `yaml:"min_chars" mapstructure:"min_chars"`
	BodyChars           int `yaml:"body_chars" mapstructure:"body_chars"`
	TruncationWordFloor int `yaml:"truncation_word_floor" mapstructure:"truncation_word_floor"`
}

// GuardianConfig holds the verified-field override allow-list.
type GuardianConfig struct {
	Overrides []guardian.Override `yaml:"overrides" mapstructure:"overrides"`
}

// IngestConfig configures batch ingestion.
type IngestConfig struct {
	MaxConcurrentSubjects int `yaml:"max_concurrent_subjects" mapstructure:"max_concurrent_subjects"`
}

// ServerConfig configures the status server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("MARQUEE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "marquee.db")
	v.SetDefault("refdata.path", "refdata.yaml")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("ingest.max_concurrent_subjects", 4)
	v.SetDefault("gateway.base_delay_secs", 2)
	v.SetDefault("gateway.cooldown_mins", 15)
	v.SetDefault("quality.min_chars", 80)
	v.SetDefault("quality.body_chars", 600)
	v.SetDefault("quality.truncation_word_floor", 400)
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v2")
	v.SetDefault("browserless.base_url", "https://chrome.browserless.io")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("anthropic.haiku_model", "claude-haiku-4-5-20251001")

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

// Validate checks that the configuration is usable for the given mode.
// Modes: "ingest" (full pipeline), "fetch" (gateway only), "serve" (status
// server).
func (c *Config) Validate(mode string) error {
	var problems []string

	check := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	switch mode {
	case "ingest", "fetch":
		if c.Store.Driver == "postgres" {
			check(c.Store.DatabaseURL != "", "store.database_url is required for the postgres driver")
		} else {
			check(c.Store.SQLitePath != "", "store.sqlite_path is required for the sqlite driver")
		}
		check(c.Gateway.BaseDelaySecs > 0, "gateway.base_delay_secs must be > 0")
		check(c.Gateway.CooldownMins > 0, "gateway.cooldown_mins must be > 0")
		if mode == "ingest" {
			check(c.Ingest.MaxConcurrentSubjects >= 1 && c.Ingest.MaxConcurrentSubjects <= 32,
				"ingest.max_concurrent_subjects must be between 1 and 32")
		}
	case "serve":
		check(c.Server.Port > 0, "server.port must be > 0")
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
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
