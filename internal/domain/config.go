package domain

import (
	"fmt"
	"time"
)

const (
	DefaultIdleSweepInterval  = 60 * time.Second
	DefaultBrowserIdleTimeout = 5 * time.Minute

	DefaultCacheTTL        = 30 * time.Second
	DefaultCacheMaxEntries = 512

	DefaultRatePerMinute = 120
	DefaultRateBurst     = 20

	DefaultRetryAttempts = 2
	DefaultRetryDelay    = 500 * time.Millisecond

	DefaultBrowserTimeout = 30 * time.Second
	DefaultGitHubTimeout  = 30 * time.Second
	DefaultGitTimeout     = 30 * time.Second
	DefaultMemoryTimeout  = 15 * time.Second
	DefaultAgentTimeout   = 30 * time.Minute

	DefaultObservabilityAddr = "0.0.0.0:9090"
	DefaultLogLevel          = "info"
	DefaultLogEncoding       = "json"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Dispatch      DispatchConfig      `mapstructure:"dispatch"`
	GitHub        GitHubConfig        `mapstructure:"github"`
	Git           GitConfig           `mapstructure:"git"`
	Memory        MemoryConfig        `mapstructure:"memory"`
	Agent         AgentConfig         `mapstructure:"agent"`
	Browser       BrowserConfig       `mapstructure:"browser"`
}

type ServerConfig struct {
	IdleSweepInterval  time.Duration `mapstructure:"idle_sweep_interval"`
	BrowserIdleTimeout time.Duration `mapstructure:"browser_idle_timeout"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

type ObservabilityConfig struct {
	Addr          string `mapstructure:"addr"`
	EnableMetrics bool   `mapstructure:"enable_metrics"`
	EnableHealthz bool   `mapstructure:"enable_healthz"`
}

type DispatchConfig struct {
	CacheTTL        time.Duration   `mapstructure:"cache_ttl"`
	CacheMaxEntries int             `mapstructure:"cache_max_entries"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
	Retry           RetryConfig     `mapstructure:"retry"`
	Timeouts        TimeoutConfig   `mapstructure:"timeouts"`
}

type RateLimitConfig struct {
	Enabled   bool `mapstructure:"enabled"`
	PerMinute int  `mapstructure:"per_minute"`
	Burst     int  `mapstructure:"burst"`
}

type RetryConfig struct {
	Attempts int           `mapstructure:"attempts"`
	Delay    time.Duration `mapstructure:"delay"`
}

type TimeoutConfig struct {
	Browser time.Duration `mapstructure:"browser"`
	GitHub  time.Duration `mapstructure:"github"`
	Git     time.Duration `mapstructure:"git"`
	Memory  time.Duration `mapstructure:"memory"`
	Agent   time.Duration `mapstructure:"agent"`
}

type GitHubConfig struct {
	Token   string `mapstructure:"token"`
	BaseURL string `mapstructure:"base_url"`
}

type GitConfig struct {
	WorkDir string `mapstructure:"work_dir"`
}

type MemoryConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	DataDir string `mapstructure:"data_dir"`
}

// Remote reports whether the memory store should talk to the hosted API.
func (c MemoryConfig) Remote() bool {
	return c.BaseURL != "" && c.APIKey != ""
}

type AgentConfig struct {
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
}

type BrowserConfig struct {
	ExecPath string `mapstructure:"exec_path"`
	Headless bool   `mapstructure:"headless"`
}

func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			IdleSweepInterval:  DefaultIdleSweepInterval,
			BrowserIdleTimeout: DefaultBrowserIdleTimeout,
		},
		Logging: LoggingConfig{
			Level:    DefaultLogLevel,
			Encoding: DefaultLogEncoding,
		},
		Observability: ObservabilityConfig{
			Addr: DefaultObservabilityAddr,
		},
		Dispatch: DispatchConfig{
			CacheTTL:        DefaultCacheTTL,
			CacheMaxEntries: DefaultCacheMaxEntries,
			RateLimit: RateLimitConfig{
				Enabled:   true,
				PerMinute: DefaultRatePerMinute,
				Burst:     DefaultRateBurst,
			},
			Retry: RetryConfig{
				Attempts: DefaultRetryAttempts,
				Delay:    DefaultRetryDelay,
			},
			Timeouts: TimeoutConfig{
				Browser: DefaultBrowserTimeout,
				GitHub:  DefaultGitHubTimeout,
				Git:     DefaultGitTimeout,
				Memory:  DefaultMemoryTimeout,
				Agent:   DefaultAgentTimeout,
			},
		},
		Browser: BrowserConfig{
			Headless: true,
		},
	}
}

// Normalize clamps out-of-range values back to their defaults and reports
// each adjustment so the loader can log them.
func (c Config) Normalize() (Config, []string) {
	var warnings []string
	clampDuration := func(field string, value, def time.Duration) time.Duration {
		if value > 0 {
			return value
		}
		warnings = append(warnings, fmt.Sprintf("%s must be positive, using %s", field, def))
		return def
	}
	clampInt := func(field string, value, def int) int {
		if value > 0 {
			return value
		}
		warnings = append(warnings, fmt.Sprintf("%s must be positive, using %d", field, def))
		return def
	}

	c.Server.IdleSweepInterval = clampDuration("server.idle_sweep_interval", c.Server.IdleSweepInterval, DefaultIdleSweepInterval)
	c.Server.BrowserIdleTimeout = clampDuration("server.browser_idle_timeout", c.Server.BrowserIdleTimeout, DefaultBrowserIdleTimeout)

	c.Dispatch.CacheTTL = clampDuration("dispatch.cache_ttl", c.Dispatch.CacheTTL, DefaultCacheTTL)
	c.Dispatch.CacheMaxEntries = clampInt("dispatch.cache_max_entries", c.Dispatch.CacheMaxEntries, DefaultCacheMaxEntries)
	if c.Dispatch.RateLimit.Enabled {
		c.Dispatch.RateLimit.PerMinute = clampInt("dispatch.rate_limit.per_minute", c.Dispatch.RateLimit.PerMinute, DefaultRatePerMinute)
		c.Dispatch.RateLimit.Burst = clampInt("dispatch.rate_limit.burst", c.Dispatch.RateLimit.Burst, DefaultRateBurst)
	}
	if c.Dispatch.Retry.Attempts < 0 {
		warnings = append(warnings, fmt.Sprintf("dispatch.retry.attempts must not be negative, using %d", DefaultRetryAttempts))
		c.Dispatch.Retry.Attempts = DefaultRetryAttempts
	}
	if c.Dispatch.Retry.Delay < 0 {
		warnings = append(warnings, fmt.Sprintf("dispatch.retry.delay must not be negative, using %s", DefaultRetryDelay))
		c.Dispatch.Retry.Delay = DefaultRetryDelay
	}
	c.Dispatch.Timeouts.Browser = clampDuration("dispatch.timeouts.browser", c.Dispatch.Timeouts.Browser, DefaultBrowserTimeout)
	c.Dispatch.Timeouts.GitHub = clampDuration("dispatch.timeouts.github", c.Dispatch.Timeouts.GitHub, DefaultGitHubTimeout)
	c.Dispatch.Timeouts.Git = clampDuration("dispatch.timeouts.git", c.Dispatch.Timeouts.Git, DefaultGitTimeout)
	c.Dispatch.Timeouts.Memory = clampDuration("dispatch.timeouts.memory", c.Dispatch.Timeouts.Memory, DefaultMemoryTimeout)
	c.Dispatch.Timeouts.Agent = clampDuration("dispatch.timeouts.agent", c.Dispatch.Timeouts.Agent, DefaultAgentTimeout)

	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Encoding == "" {
		c.Logging.Encoding = DefaultLogEncoding
	}
	if c.Observability.Addr == "" {
		c.Observability.Addr = DefaultObservabilityAddr
	}
	return c, warnings
}

// TimeoutFor returns the configured handler timeout for a tool category.
func (t TimeoutConfig) TimeoutFor(category Category) time.Duration {
	switch category {
	case CategoryBrowser:
		return t.Browser
	case CategoryGitHub:
		return t.GitHub
	case CategoryGit:
		return t.Git
	case CategoryMemory:
		return t.Memory
	case CategoryAgent:
		return t.Agent
	default:
		return 0
	}
}
