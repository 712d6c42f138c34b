package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, time.Minute, cfg.App.RequestTimeout)
	assert.Equal(t, CacheBackendMemory, cfg.Cache.Backend)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 10000, cfg.Cache.Capacity)
	assert.Equal(t, time.Second, cfg.RateLimit.MinDelay)
	assert.Equal(t, 100*time.Millisecond, cfg.RateLimit.JitterMin)
	assert.Equal(t, 2*time.Second, cfg.RateLimit.JitterMax)
	assert.Equal(t, []string{"paid_primary", "paid_secondary", "public", "scraper", "mock"}, cfg.Sources.Order)
	assert.Equal(t, 500*time.Millisecond, cfg.Sources.FallbackPause)
	assert.Equal(t, 10, cfg.Sources.Scraper.PostLimit)
	assert.Len(t, cfg.Sources.Public.Endpoints, 2)
	assert.True(t, cfg.Sources.Mock.Enabled)
	assert.Empty(t, cfg.Sources.Paid.Primary.APIKey)
	assert.False(t, cfg.Database.Enabled)
	assert.False(t, cfg.Warmer.Enabled)
}

func TestLoad_MarketplaceKeyFromEnv(t *testing.T) {
	t.Setenv("RAPIDAPI_KEY", "abcd1234")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "abcd1234", cfg.Sources.Paid.Primary.APIKey)
	assert.Equal(t, "abcd1234", cfg.Sources.Paid.Secondary.APIKey)
}

func TestLoad_PrefixedEnvWins(t *testing.T) {
	t.Setenv("RAPIDAPI_KEY", "shared")
	t.Setenv("APP_SOURCES_PAID_PRIMARY_API_KEY", "primary-only")
	t.Setenv("APP_CACHE_TTL", "5m")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "primary-only", cfg.Sources.Paid.Primary.APIKey)
	assert.Equal(t, "shared", cfg.Sources.Paid.Secondary.APIKey)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
app:
  port: 9090
sources:
  order: [mock]
  fallback_pause: 0s
warmer:
  enabled: true
  handles: [nasa, natgeo]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.App.Port)
	assert.Equal(t, []string{"mock"}, cfg.Sources.Order)
	assert.Zero(t, cfg.Sources.FallbackPause)
	assert.True(t, cfg.Warmer.Enabled)
	assert.Equal(t, []string{"nasa", "natgeo"}, cfg.Warmer.Handles)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			Cache:   CacheConfig{Backend: CacheBackendMemory, TTL: time.Hour},
			Sources: SourcesConfig{Order: []string{"mock"}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(_ *Config) {}},
		{name: "unknown backend", mutate: func(c *Config) { c.Cache.Backend = "disk" }, wantErr: true},
		{name: "redis backend without redis", mutate: func(c *Config) { c.Cache.Backend = CacheBackendRedis }, wantErr: true},
		{name: "redis backend with redis", mutate: func(c *Config) {
			c.Cache.Backend = CacheBackendRedis
			c.Redis.Enabled = true
		}},
		{name: "zero ttl", mutate: func(c *Config) { c.Cache.TTL = 0 }, wantErr: true},
		{name: "distributed without redis", mutate: func(c *Config) { c.RateLimit.Distributed = true }, wantErr: true},
		{name: "inverted jitter", mutate: func(c *Config) {
			c.RateLimit.JitterMin = time.Second
			c.RateLimit.JitterMax = time.Millisecond
		}, wantErr: true},
		{name: "empty order", mutate: func(c *Config) { c.Sources.Order = nil }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", c.DSN())
}
