// Package config loads the tooldeck configuration file: YAML with ${ENV}
// expansion, defaults merged from the domain constants, and out-of-range
// values clamped back to sane defaults with a logged warning.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"tooldeck/internal/domain"
)

const (
	// EnvConfigPath overrides the default config file location.
	EnvConfigPath = "TOOLDECK_CONFIG"
	// EnvGitHubToken is the fallback credential source when github.token
	// is not set in the file.
	EnvGitHubToken = "GITHUB_TOKEN"

	defaultDirName  = "tooldeck"
	defaultFileName = "config.yaml"
)

// ResolvePath picks the config file location: an explicit flag value wins,
// then $TOOLDECK_CONFIG, then ~/.config/tooldeck/config.yaml. The explicit
// flag reports whether the caller named the path, which turns a missing file
// into an error instead of a reason to write defaults.
func ResolvePath(flagValue string) (path string, explicit bool, err error) {
	if flagValue != "" {
		return flagValue, true, nil
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		return env, true, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", false, fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, defaultDirName, defaultFileName), false, nil
}

// Loader reads and decodes the runtime configuration.
type Loader struct {
	logger *zap.Logger
}

func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{logger: logger.Named("config")}
}

// Load reads, expands and decodes the config file at path. When the file is
// absent and the path was not explicit, a commented default file is written
// first so a fresh install starts from something editable; an absent explicit
// path is an error.
func (l *Loader) Load(path string, explicit bool) (domain.Config, error) {
	cfg, err := l.read(path, explicit)
	if err != nil {
		return domain.Config{}, err
	}

	cfg, warnings := cfg.Normalize()
	for _, warning := range warnings {
		l.logger.Warn("config value adjusted", zap.String("detail", warning))
	}

	if cfg.GitHub.Token == "" {
		cfg.GitHub.Token = os.Getenv(EnvGitHubToken)
	}
	return cfg, nil
}

func (l *Loader) read(path string, explicit bool) (domain.Config, error) {
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		if werr := l.writeDefault(path); werr != nil {
			return domain.Config{}, werr
		}
		l.logger.Info("wrote default config", zap.String("path", path))
		return domain.DefaultConfig(), nil
	default:
		return domain.Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	expanded, missingEnv, err := expandEnv(raw)
	if err != nil {
		return domain.Config{}, fmt.Errorf("expand config %s: %w", path, err)
	}
	if len(missingEnv) > 0 {
		l.logger.Warn("missing environment variables in config",
			zap.String("path", path),
			zap.Strings("missing", missingEnv))
	}

	v := newRuntimeViper()
	if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
		return domain.Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	var cfg domain.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return domain.Config{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	return cfg, nil
}

func newRuntimeViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	setRuntimeDefaults(v)
	return v
}

// setRuntimeDefaults registers every non-zero default so a partial config
// file only needs to name the values it changes.
func setRuntimeDefaults(v *viper.Viper) {
	v.SetDefault("server.idle_sweep_interval", domain.DefaultIdleSweepInterval)
	v.SetDefault("server.browser_idle_timeout", domain.DefaultBrowserIdleTimeout)

	v.SetDefault("logging.level", domain.DefaultLogLevel)
	v.SetDefault("logging.encoding", domain.DefaultLogEncoding)

	v.SetDefault("observability.addr", domain.DefaultObservabilityAddr)

	v.SetDefault("dispatch.cache_ttl", domain.DefaultCacheTTL)
	v.SetDefault("dispatch.cache_max_entries", domain.DefaultCacheMaxEntries)
	v.SetDefault("dispatch.rate_limit.enabled", true)
	v.SetDefault("dispatch.rate_limit.per_minute", domain.DefaultRatePerMinute)
	v.SetDefault("dispatch.rate_limit.burst", domain.DefaultRateBurst)
	v.SetDefault("dispatch.retry.attempts", domain.DefaultRetryAttempts)
	v.SetDefault("dispatch.retry.delay", domain.DefaultRetryDelay)
	v.SetDefault("dispatch.timeouts.browser", domain.DefaultBrowserTimeout)
	v.SetDefault("dispatch.timeouts.github", domain.DefaultGitHubTimeout)
	v.SetDefault("dispatch.timeouts.git", domain.DefaultGitTimeout)
	v.SetDefault("dispatch.timeouts.memory", domain.DefaultMemoryTimeout)
	v.SetDefault("dispatch.timeouts.agent", domain.DefaultAgentTimeout)

	v.SetDefault("browser.headless", true)
}

const defaultFileHeader = `# tooldeck configuration.
# Scalar values support ${ENV_VAR} expansion; unset variables expand to ""
# with a startup warning. Durations use Go notation (500ms, 30s, 5m).
`

func (l *Loader) writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	body, err := yaml.Marshal(defaultDocument())
	if err != nil {
		return fmt.Errorf("encode default config: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(defaultFileHeader), body...), 0o644); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	return nil
}

// defaultDocument renders DefaultConfig as a node tree so the file keeps the
// section order and comments a hand-written config would have.
func defaultDocument() *yaml.Node {
	cfg := domain.DefaultConfig()

	doc := &yaml.Node{Kind: yaml.MappingNode}
	section := func(comment, name string, body *yaml.Node) {
		key := &yaml.Node{Kind: yaml.ScalarNode, Value: name, HeadComment: comment}
		doc.Content = append(doc.Content, key, body)
	}

	section("", "server", mappingNode(
		"idle_sweep_interval", cfg.Server.IdleSweepInterval.String(),
		"browser_idle_timeout", cfg.Server.BrowserIdleTimeout.String(),
	))
	section("", "logging", mappingNode(
		"level", cfg.Logging.Level,
		"encoding", cfg.Logging.Encoding,
	))
	section("Optional /metrics and /healthz HTTP server.", "observability", mappingNode(
		"addr", cfg.Observability.Addr,
		"enable_metrics", "false",
		"enable_healthz", "false",
	))
	dispatch := mappingNode(
		"cache_ttl", cfg.Dispatch.CacheTTL.String(),
		"cache_max_entries", strconv.Itoa(cfg.Dispatch.CacheMaxEntries),
	)
	appendPair(dispatch, "rate_limit", mappingNode(
		"enabled", strconv.FormatBool(cfg.Dispatch.RateLimit.Enabled),
		"per_minute", strconv.Itoa(cfg.Dispatch.RateLimit.PerMinute),
		"burst", strconv.Itoa(cfg.Dispatch.RateLimit.Burst),
	))
	appendPair(dispatch, "retry", mappingNode(
		"attempts", strconv.Itoa(cfg.Dispatch.Retry.Attempts),
		"delay", cfg.Dispatch.Retry.Delay.String(),
	))
	appendPair(dispatch, "timeouts", mappingNode(
		"browser", cfg.Dispatch.Timeouts.Browser.String(),
		"github", cfg.Dispatch.Timeouts.GitHub.String(),
		"git", cfg.Dispatch.Timeouts.Git.String(),
		"memory", cfg.Dispatch.Timeouts.Memory.String(),
		"agent", cfg.Dispatch.Timeouts.Agent.String(),
	))
	section("Per-call dispatch behavior: caching, rate limiting, retries, timeouts.", "dispatch", dispatch)
	section("Leave token empty to fall back to $GITHUB_TOKEN.", "github", mappingNode(
		"token", "",
		"base_url", "",
	))
	section("Repository for git tools; empty means the current directory.", "git", mappingNode(
		"work_dir", "",
	))
	section("Set base_url and api_key to use the hosted memory API;\notherwise memories persist in a local database.", "memory", mappingNode(
		"base_url", "",
		"api_key", "",
		"data_dir", "",
	))
	section("External agent command, for example: command: claude, args: [\"-p\"].", "agent", mappingNode(
		"command", "",
	))
	section("", "browser", mappingNode(
		"exec_path", "",
		"headless", strconv.FormatBool(cfg.Browser.Headless),
	))
	return doc
}

func mappingNode(pairs ...string) *yaml.Node {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for i := 0; i+1 < len(pairs); i += 2 {
		value := &yaml.Node{Kind: yaml.ScalarNode, Value: pairs[i+1]}
		if value.Value == "" {
			// An untagged empty scalar renders as null.
			value.Tag = "!!str"
		}
		appendPair(node, pairs[i], value)
	}
	return node
}

func appendPair(node *yaml.Node, key string, value *yaml.Node) {
	node.Content = append(node.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: key}, value)
}
