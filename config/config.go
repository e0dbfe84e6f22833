package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/tradematch/backend/internal/domain"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Scout     ScoutConfig     `mapstructure:"scout"`
	Matching  MatchingConfig  `mapstructure:"matching"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	Environment    string        `mapstructure:"environment"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// GatewayConfig holds the LLM aggregation endpoint configuration
type GatewayConfig struct {
	APIKey        string        `mapstructure:"api_key"`
	BaseURL       string        `mapstructure:"base_url"`
	Model         string        `mapstructure:"model"`
	Referer       string        `mapstructure:"referer"`
	Title         string        `mapstructure:"title"`
	Timeout       time.Duration `mapstructure:"timeout"`
	Reasoning     bool          `mapstructure:"reasoning"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	Burst         int           `mapstructure:"burst"`
}

// ScoutConfig holds the external supplier sources
type ScoutConfig struct {
	Feeds       []string          `mapstructure:"feeds"`
	Directories []DirectoryConfig `mapstructure:"directories"`
	Static      bool              `mapstructure:"static"`
	Timeout     time.Duration     `mapstructure:"timeout"`
	MaxResults  int               `mapstructure:"max_results"`
	UserAgent   string            `mapstructure:"user_agent"`
}

// DirectoryConfig describes an HTML listing page and the selectors to read it.
// The query is substituted for "{query}" in URL.
type DirectoryConfig struct {
	Name            string `mapstructure:"name"`
	URL             string `mapstructure:"url"`
	ItemSelector    string `mapstructure:"item_selector"`
	NameSelector    string `mapstructure:"name_selector"`
	SummarySelector string `mapstructure:"summary_selector"`
	LinkSelector    string `mapstructure:"link_selector"`
}

// MatchingConfig holds ranking limits
type MatchingConfig struct {
	MaxCandidates   int           `mapstructure:"max_candidates"`
	ExternalTimeout time.Duration `mapstructure:"external_timeout"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type     string        `mapstructure:"type"` // "memory" or "redis"
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from an optional .env file, environment variables and config files
func Load() (*Config, error) {
	// .env is optional; real environment variables win over it
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/tradematch/")

	v.SetEnvPrefix("TRADEMATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.request_timeout", "90s")

	// api_key has no default; it must come from the environment.
	// The default keeps AutomaticEnv aware of the key so Unmarshal sees it.
	v.SetDefault("gateway.api_key", "")
	v.SetDefault("gateway.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("gateway.model", "openai/gpt-4o-mini")
	v.SetDefault("gateway.referer", "http://localhost:3000")
	v.SetDefault("gateway.title", "TradeMatch")
	v.SetDefault("gateway.timeout", "60s")
	v.SetDefault("gateway.reasoning", false)
	v.SetDefault("gateway.rate_per_second", 2.0)
	v.SetDefault("gateway.burst", 5)

	v.SetDefault("scout.feeds", []string{})
	v.SetDefault("scout.static", false)
	v.SetDefault("scout.timeout", "15s")
	v.SetDefault("scout.max_results", 10)
	v.SetDefault("scout.user_agent", "TradeMatchScout/1.0")

	v.SetDefault("matching.max_candidates", 20)
	v.SetDefault("matching.external_timeout", "20s")

	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", "1h")

	v.SetDefault("ratelimit.per_ip", 60)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Gateway.APIKey == "" {
		return &domain.ConfigurationError{Key: "gateway.api_key (set TRADEMATCH_GATEWAY_API_KEY)", Err: domain.ErrMissingCredential}
	}

	if config.Cache.Type != "memory" && config.Cache.Type != "redis" {
		return fmt.Errorf("cache type must be 'memory' or 'redis', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "redis" && config.Cache.RedisURL == "" {
		return fmt.Errorf("redis URL is required when cache type is 'redis'")
	}

	if config.Matching.MaxCandidates <= 0 {
		return fmt.Errorf("matching.max_candidates must be positive, got: %d", config.Matching.MaxCandidates)
	}

	for i, d := range config.Scout.Directories {
		if d.URL == "" || d.ItemSelector == "" || d.NameSelector == "" {
			return fmt.Errorf("scout.directories[%d] needs url, item_selector and name_selector", i)
		}
	}

	return nil
}
