// Package config provides application configuration management using Viper.
// Configuration is loaded from YAML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Cache backends.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Warmer    WarmerConfig    `mapstructure:"warmer"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"` // development, staging, production
	Port    int    `mapstructure:"port"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`

	// RequestTimeout bounds one profile lookup across every source.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
	Output string `mapstructure:"output"` // stdout, stderr, file path
}

// SentryConfig holds Sentry error tracking settings.
type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// RedisConfig holds Redis connection settings.
// Redis backs the shared cache, the distributed limiter and the warmer lock.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the host:port address.
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CacheConfig holds profile cache settings.
type CacheConfig struct {
	Backend   string        `mapstructure:"backend"` // memory, redis
	TTL       time.Duration `mapstructure:"ttl"`
	Capacity  int           `mapstructure:"capacity"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}

// RateLimitConfig holds the outbound call gate settings.
type RateLimitConfig struct {
	MinDelay     time.Duration `mapstructure:"min_delay"`
	JitterMin    time.Duration `mapstructure:"jitter_min"`
	JitterMax    time.Duration `mapstructure:"jitter_max"`
	Distributed  bool          `mapstructure:"distributed"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// SourcesConfig holds profile source settings.
type SourcesConfig struct {
	// Order lists source names by priority. Known names: scraper,
	// paid_primary, paid_secondary, public, mock.
	Order         []string      `mapstructure:"order"`
	FallbackPause time.Duration `mapstructure:"fallback_pause"`
	Scraper       ScraperConfig `mapstructure:"scraper"`
	Paid          PaidConfig    `mapstructure:"paid"`
	Public        PublicConfig  `mapstructure:"public"`
	Mock          MockConfig    `mapstructure:"mock"`
}

// ScraperConfig holds the HTML profile page scraper settings.
type ScraperConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	PostLimit int           `mapstructure:"post_limit"`
	PostDelay time.Duration `mapstructure:"post_delay"`
}

// PaidConfig holds both paid lookup API endpoints.
type PaidConfig struct {
	Primary   PaidEndpoint `mapstructure:"primary"`
	Secondary PaidEndpoint `mapstructure:"secondary"`
}

// PaidEndpoint holds a single paid lookup API's configuration.
type PaidEndpoint struct {
	BaseURL      string        `mapstructure:"base_url"`
	Endpoint     string        `mapstructure:"endpoint"`
	APIKey       string        `mapstructure:"api_key"`
	APIKeyHeader string        `mapstructure:"api_key_header"`
	HostHeader   string        `mapstructure:"host_header"`
	QueryParam   string        `mapstructure:"query_param"`
	Timeout      time.Duration `mapstructure:"timeout"`
	CB           CBConfig      `mapstructure:"circuit_breaker"`
}

// PublicConfig holds the unauthenticated public endpoint settings.
type PublicConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Endpoints []string      `mapstructure:"endpoints"` // path templates with a {handle} placeholder
	AppID     string        `mapstructure:"app_id"`
	Timeout   time.Duration `mapstructure:"timeout"`
	CB        CBConfig      `mapstructure:"circuit_breaker"`
}

// MockConfig holds the synthetic data source settings.
type MockConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// CBConfig holds circuit breaker settings.
type CBConfig struct {
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
}

// DatabaseConfig holds snapshot store connection settings.
type DatabaseConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Name         string        `mapstructure:"name"`
	User         string        `mapstructure:"user"`
	Password     string        `mapstructure:"password"`
	SSLMode      string        `mapstructure:"ssl_mode"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
	MaxLifetime  time.Duration `mapstructure:"max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// WarmerConfig holds background cache warmer settings.
type WarmerConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Interval  time.Duration `mapstructure:"interval"`
	OnStartup bool          `mapstructure:"on_startup"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Handles   []string      `mapstructure:"handles"`
}

// Load reads configuration from file and environment variables.
// Priority: env vars > config file > defaults
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Both paid APIs are sold through the same marketplace key.
	for _, key := range []string{"sources.paid.primary.api_key", "sources.paid.secondary.api_key"} {
		envName := "APP_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envName, "RAPIDAPI_KEY"); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Validate checks cross-field constraints that defaults cannot express.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case CacheBackendMemory:
	case CacheBackendRedis:
		if !c.Redis.Enabled {
			return errors.New("cache.backend redis requires redis.enabled")
		}
	default:
		return fmt.Errorf("unknown cache.backend %q", c.Cache.Backend)
	}

	if c.Cache.TTL <= 0 {
		return errors.New("cache.ttl must be positive")
	}
	if c.RateLimit.Distributed && !c.Redis.Enabled {
		return errors.New("rate_limit.distributed requires redis.enabled")
	}
	if c.RateLimit.JitterMax < c.RateLimit.JitterMin {
		return errors.New("rate_limit.jitter_max must not be below jitter_min")
	}
	if len(c.Sources.Order) == 0 {
		return errors.New("sources.order must name at least one source")
	}

	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "profile-service")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.debug", true)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.request_timeout", "60s")

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output", "stdout")

	// Sentry defaults
	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "development")
	v.SetDefault("sentry.sample_rate", 1.0)

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Cache defaults
	v.SetDefault("cache.backend", CacheBackendMemory)
	v.SetDefault("cache.ttl", "1h")
	v.SetDefault("cache.capacity", 10000)
	v.SetDefault("cache.key_prefix", "profile-service")

	// Rate limit defaults
	v.SetDefault("rate_limit.min_delay", "1s")
	v.SetDefault("rate_limit.jitter_min", "100ms")
	v.SetDefault("rate_limit.jitter_max", "2s")
	v.SetDefault("rate_limit.distributed", false)
	v.SetDefault("rate_limit.poll_interval", "50ms")

	// Source defaults
	v.SetDefault("sources.order", []string{"paid_primary", "paid_secondary", "public", "scraper", "mock"})
	v.SetDefault("sources.fallback_pause", "500ms")

	v.SetDefault("sources.scraper.base_url", "https://www.instagram.com")
	v.SetDefault("sources.scraper.timeout", "15s")
	v.SetDefault("sources.scraper.post_limit", 10)
	v.SetDefault("sources.scraper.post_delay", "0s")

	v.SetDefault("sources.paid.primary.base_url", "https://instagram-scraper-api2.p.rapidapi.com")
	v.SetDefault("sources.paid.primary.endpoint", "/v1/info")
	v.SetDefault("sources.paid.primary.api_key", "")
	v.SetDefault("sources.paid.primary.api_key_header", "X-RapidAPI-Key")
	v.SetDefault("sources.paid.primary.host_header", "instagram-scraper-api2.p.rapidapi.com")
	v.SetDefault("sources.paid.primary.query_param", "username_or_id_or_url")
	v.SetDefault("sources.paid.primary.timeout", "10s")
	v.SetDefault("sources.paid.primary.circuit_breaker.max_requests", 3)
	v.SetDefault("sources.paid.primary.circuit_breaker.interval", "60s")
	v.SetDefault("sources.paid.primary.circuit_breaker.timeout", "30s")
	v.SetDefault("sources.paid.primary.circuit_breaker.failure_ratio", 0.5)

	v.SetDefault("sources.paid.secondary.base_url", "https://instagram-looter2.p.rapidapi.com")
	v.SetDefault("sources.paid.secondary.endpoint", "/profile")
	v.SetDefault("sources.paid.secondary.api_key", "")
	v.SetDefault("sources.paid.secondary.api_key_header", "X-RapidAPI-Key")
	v.SetDefault("sources.paid.secondary.host_header", "instagram-looter2.p.rapidapi.com")
	v.SetDefault("sources.paid.secondary.query_param", "username")
	v.SetDefault("sources.paid.secondary.timeout", "10s")
	v.SetDefault("sources.paid.secondary.circuit_breaker.max_requests", 3)
	v.SetDefault("sources.paid.secondary.circuit_breaker.interval", "60s")
	v.SetDefault("sources.paid.secondary.circuit_breaker.timeout", "30s")
	v.SetDefault("sources.paid.secondary.circuit_breaker.failure_ratio", 0.5)

	v.SetDefault("sources.public.base_url", "https://www.instagram.com")
	v.SetDefault("sources.public.endpoints", []string{
		"/api/v1/users/web_profile_info/?username={handle}",
		"/{handle}/?__a=1&__d=dis",
	})
	v.SetDefault("sources.public.app_id", "936619743392459")
	v.SetDefault("sources.public.timeout", "10s")
	v.SetDefault("sources.public.circuit_breaker.max_requests", 1)
	v.SetDefault("sources.public.circuit_breaker.interval", "60s")
	v.SetDefault("sources.public.circuit_breaker.timeout", "5m")
	v.SetDefault("sources.public.circuit_breaker.failure_ratio", 0.8)

	v.SetDefault("sources.mock.enabled", true)

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "profiles")
	v.SetDefault("database.user", "app")
	v.SetDefault("database.password", "secret")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.max_lifetime", "5m")

	// Warmer defaults
	v.SetDefault("warmer.enabled", false)
	v.SetDefault("warmer.interval", "30m")
	v.SetDefault("warmer.on_startup", false)
	v.SetDefault("warmer.timeout", "2m")
	v.SetDefault("warmer.handles", []string{})
}
