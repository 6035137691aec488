package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors/version"
	"go.uber.org/zap"

	"tooldeck/internal/domain"
	"tooldeck/internal/infra/cache"
	"tooldeck/internal/infra/middleware"
	"tooldeck/internal/infra/registry"
	"tooldeck/internal/infra/telemetry"
	"tooldeck/internal/infra/tools"
)

func NewMetricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	reg.MustRegister(prometheus.NewGoCollector())
	reg.MustRegister(version.NewCollector("tooldeck"))
	return reg
}

func NewMetrics(reg *prometheus.Registry) domain.Metrics {
	return telemetry.NewPrometheusMetrics(reg)
}

func NewHealthTracker() *telemetry.HealthTracker {
	return telemetry.NewHealthTracker()
}

// NewToolRegistry assembles the full dispatch pipeline: the tool catalogue
// behind the builtin middleware chain, with caching and rate limiting sized
// from config.
func NewToolRegistry(
	cfg domain.Config,
	deps tools.Deps,
	state *domain.State,
	recorder *middleware.Recorder,
	metrics domain.Metrics,
	logger *zap.Logger,
) (*registry.Registry, error) {
	var results *cache.TTL[domain.ToolResult]
	if cfg.Dispatch.CacheTTL > 0 {
		results = cache.NewTTL[domain.ToolResult](cfg.Dispatch.CacheTTL, cfg.Dispatch.CacheMaxEntries)
	}

	chain := middleware.Builtin(middleware.Options{
		Logger:   logger,
		Recorder: recorder,
		Metrics:  metrics,
		Limiter:  middleware.NewRateLimiter(cfg.Dispatch.RateLimit),
		Cache:    results,
	})

	reg := registry.New(registry.Options{
		Chain:  chain,
		State:  state,
		Logger: logger,
	})
	if err := reg.RegisterAll(tools.Catalog(deps, cfg.Dispatch)...); err != nil {
		return nil, err
	}
	return reg, nil
}
