package domain

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Normalize_DefaultsAreStable(t *testing.T) {
	cfg := DefaultConfig()
	normalized, warnings := cfg.Normalize()

	assert.Empty(t, warnings)
	if diff := cmp.Diff(cfg, normalized); diff != "" {
		t.Fatalf("normalize changed default config (-want +got):\n%s", diff)
	}
}

func TestConfig_Normalize_ClampsInvalidValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.IdleSweepInterval = 0
	cfg.Dispatch.CacheTTL = -time.Second
	cfg.Dispatch.RateLimit.PerMinute = -5
	cfg.Dispatch.Retry.Attempts = -1
	cfg.Dispatch.Timeouts.Agent = 0

	normalized, warnings := cfg.Normalize()

	assert.Equal(t, DefaultIdleSweepInterval, normalized.Server.IdleSweepInterval)
	assert.Equal(t, DefaultCacheTTL, normalized.Dispatch.CacheTTL)
	assert.Equal(t, DefaultRatePerMinute, normalized.Dispatch.RateLimit.PerMinute)
	assert.Equal(t, DefaultRetryAttempts, normalized.Dispatch.Retry.Attempts)
	assert.Equal(t, DefaultAgentTimeout, normalized.Dispatch.Timeouts.Agent)
	assert.Len(t, warnings, 5)
}

func TestConfig_Normalize_DisabledRateLimitSkipsClamp(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dispatch.RateLimit.Enabled = false
	cfg.Dispatch.RateLimit.PerMinute = 0

	normalized, warnings := cfg.Normalize()

	assert.Empty(t, warnings)
	assert.Zero(t, normalized.Dispatch.RateLimit.PerMinute)
}

func TestTimeoutConfig_TimeoutFor(t *testing.T) {
	timeouts := DefaultConfig().Dispatch.Timeouts

	tests := []struct {
		category Category
		want     time.Duration
	}{
		{CategoryBrowser, DefaultBrowserTimeout},
		{CategoryGitHub, DefaultGitHubTimeout},
		{CategoryGit, DefaultGitTimeout},
		{CategoryMemory, DefaultMemoryTimeout},
		{CategoryAgent, DefaultAgentTimeout},
		{Category("other"), 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			assert.Equal(t, tt.want, timeouts.TimeoutFor(tt.category))
		})
	}
}

func TestMemoryConfig_Remote(t *testing.T) {
	require.False(t, MemoryConfig{}.Remote())
	require.False(t, MemoryConfig{BaseURL: "https://api.example.com"}.Remote())
	require.True(t, MemoryConfig{BaseURL: "https://api.example.com", APIKey: "k"}.Remote())
}
