// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pagelens/crawler/internal/ratelimit"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Crawler CrawlerConfig `mapstructure:"crawler"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Limiter LimiterConfig `mapstructure:"limiter"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// CrawlerConfig governs job execution.
type CrawlerConfig struct {
	WorkersPerJob   int     `mapstructure:"workers_per_job"`
	UserAgent       string  `mapstructure:"user_agent"`
	RespectRobots   bool    `mapstructure:"respect_robots"`
	MaxDepthDefault int     `mapstructure:"max_depth_default"`
	MaxPagesDefault int     `mapstructure:"max_pages_default"`
	RateDefault     float64 `mapstructure:"rate_default"`
}

// HTTPConfig configures the outbound HTTP client.
type HTTPConfig struct {
	TimeoutSeconds int   `mapstructure:"timeout_seconds"`
	MaxBodyBytes   int64 `mapstructure:"max_body_bytes"`
}

// LimiterConfig selects the token bucket granularity. Scope "global" shares
// one bucket across all jobs at global_rps; scope "job" gives each job its
// own bucket at the job's rate_per_second.
type LimiterConfig struct {
	Scope     string  `mapstructure:"scope"`
	GlobalRPS float64 `mapstructure:"global_rps"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("crawler.workers_per_job", 4)
	v.SetDefault("crawler.user_agent", "pagelens-crawler/0.1")
	v.SetDefault("crawler.respect_robots", false)
	v.SetDefault("crawler.max_depth_default", 1)
	v.SetDefault("crawler.max_pages_default", 50)
	v.SetDefault("crawler.rate_default", 2)
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.max_body_bytes", 10<<20)
	v.SetDefault("limiter.scope", string(ratelimit.ScopeJob))
	v.SetDefault("limiter.global_rps", 10)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Crawler.WorkersPerJob <= 0 {
		return fmt.Errorf("crawler.workers_per_job must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	switch ratelimit.Scope(c.Limiter.Scope) {
	case ratelimit.ScopeGlobal:
		if c.Limiter.GlobalRPS <= 0 {
			return fmt.Errorf("limiter.global_rps must be > 0 for global scope")
		}
	case ratelimit.ScopeJob:
	default:
		return fmt.Errorf("limiter.scope must be %q or %q", ratelimit.ScopeGlobal, ratelimit.ScopeJob)
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	return nil
}

// FetchTimeout converts the HTTP timeout into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}
