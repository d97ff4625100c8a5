// config.go
// ----------
// This file defines Config, the settings shared by every call made through a
// SecureBridge: the backend base URL, the default per-call timeout, the
// limiter windows, where session tokens are persisted, and logging.
//
// LoadConfig reads SECUREBRIDGE_* environment variables and, optionally, a
// YAML file. Nested keys map to env names with "." replaced by "_", e.g.
// rate_limit.max_attempts -> SECUREBRIDGE_RATE_LIMIT_MAX_ATTEMPTS.
package securebridge

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultBaseURL = "http://localhost:3001/api"
	DefaultTimeout = 30 * time.Second
)

type Config struct {
	BaseURL    string           `mapstructure:"base_url"`
	Timeout    time.Duration    `mapstructure:"timeout"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	TokenStore TokenStoreConfig `mapstructure:"token_store"`
	Log        LogConfig        `mapstructure:"log"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

type RateLimitConfig struct {
	Backend          string        `mapstructure:"backend"` // memory | redis
	MaxAttempts      int           `mapstructure:"max_attempts"`
	InputMaxAttempts int           `mapstructure:"input_max_attempts"`
	Window           time.Duration `mapstructure:"window"`
}

type TokenStoreConfig struct {
	Backend string      `mapstructure:"backend"` // memory | file | redis
	Path    string      `mapstructure:"path"`
	Redis   RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		BaseURL: DefaultBaseURL,
		Timeout: DefaultTimeout,
		RateLimit: RateLimitConfig{
			Backend:          "memory",
			MaxAttempts:      DefaultMaxAttempts,
			InputMaxAttempts: DefaultInputMaxAttempts,
			Window:           DefaultWindow,
		},
		TokenStore: TokenStoreConfig{
			Backend: "memory",
			Redis: RedisConfig{
				Addr:   "127.0.0.1:6379",
				Prefix: "securebridge:",
			},
		},
		Log: LogConfig{Level: "info"},
	}
}

// LoadConfig builds a Config from defaults, the optional YAML file at path
// and SECUREBRIDGE_* environment variables, in increasing precedence.
func LoadConfig(path string) (*Config, error) {
	def := DefaultConfig()

	v := viper.New()
	v.SetEnvPrefix("SECUREBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("base_url", def.BaseURL)
	v.SetDefault("timeout", def.Timeout)
	v.SetDefault("rate_limit.backend", def.RateLimit.Backend)
	v.SetDefault("rate_limit.max_attempts", def.RateLimit.MaxAttempts)
	v.SetDefault("rate_limit.input_max_attempts", def.RateLimit.InputMaxAttempts)
	v.SetDefault("rate_limit.window", def.RateLimit.Window)
	v.SetDefault("token_store.backend", def.TokenStore.Backend)
	v.SetDefault("token_store.path", def.TokenStore.Path)
	v.SetDefault("token_store.redis.addr", def.TokenStore.Redis.Addr)
	v.SetDefault("token_store.redis.password", "")
	v.SetDefault("token_store.redis.db", 0)
	v.SetDefault("token_store.redis.prefix", def.TokenStore.Redis.Prefix)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.development", false)
	v.SetDefault("metrics.enabled", false)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	return cfg, nil
}

// Validate checks that the configuration can drive a SecureBridge.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.BaseURL)
	switch {
	case c.BaseURL == "":
		errs = append(errs, errors.New("base_url is required"))
	case err != nil:
		errs = append(errs, fmt.Errorf("base_url: %w", err))
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, fmt.Errorf("base_url must use http or https, got %q", u.Scheme))
	case u.Host == "":
		errs = append(errs, errors.New("base_url must include a host"))
	}

	if c.Timeout <= 0 {
		errs = append(errs, errors.New("timeout must be positive"))
	}
	if c.RateLimit.MaxAttempts <= 0 {
		errs = append(errs, errors.New("rate_limit.max_attempts must be positive"))
	}
	if c.RateLimit.InputMaxAttempts <= 0 {
		errs = append(errs, errors.New("rate_limit.input_max_attempts must be positive"))
	}
	if c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("rate_limit.window must be positive"))
	}
	switch c.RateLimit.Backend {
	case "", "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("rate_limit.backend %q is not one of memory, redis", c.RateLimit.Backend))
	}

	switch c.TokenStore.Backend {
	case "", "memory":
	case "file":
		if c.TokenStore.Path == "" {
			errs = append(errs, errors.New("token_store.path is required for the file backend"))
		}
	case "redis":
		if c.TokenStore.Redis.Addr == "" {
			errs = append(errs, errors.New("token_store.redis.addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("token_store.backend %q is not one of memory, file, redis", c.TokenStore.Backend))
	}
	if c.RateLimit.Backend == "redis" && c.TokenStore.Redis.Addr == "" {
		errs = append(errs, errors.New("token_store.redis.addr is required for the redis rate limiter"))
	}

	return errors.Join(errs...)
}

// ResolveURL joins an endpoint onto the base URL. Endpoints are always
// relative so the bearer token never leaves the configured host.
func (c *Config) ResolveURL(endpoint string) string {
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	return strings.TrimRight(c.BaseURL, "/") + endpoint
}
