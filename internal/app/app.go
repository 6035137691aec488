// Package app assembles the tooldeck runtime: config, logging, the tool
// catalogue behind its dispatch pipeline, background maintenance loops and
// the MCP stdio gateway.
package app

import (
	"context"

	"go.uber.org/zap"

	"tooldeck/internal/domain"
	"tooldeck/internal/infra/agent"
	"tooldeck/internal/infra/browser"
	"tooldeck/internal/infra/config"
	"tooldeck/internal/infra/gh"
	"tooldeck/internal/infra/gitcli"
	"tooldeck/internal/infra/memstore"
	"tooldeck/internal/infra/middleware"
	"tooldeck/internal/infra/telemetry"
	"tooldeck/internal/infra/tools"
)

type App struct {
	logger  *zap.Logger
	version string
}

type ServeConfig struct {
	ConfigPath   string
	ExplicitPath bool
}

func New(logger *zap.Logger, version string) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		logger:  logger.Named("app"),
		version: version,
	}
}

// Serve runs the MCP server until ctx is cancelled or the client closes
// stdin. All dependencies are constructed here, once; the registry and the
// dispatch limits do not change for the lifetime of the process.
func (a *App) Serve(ctx context.Context, opts ServeConfig) error {
	cfg, err := config.NewLoader(a.logger).Load(opts.ConfigPath, opts.ExplicitPath)
	if err != nil {
		return err
	}

	logger, err := BuildLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("configuration loaded",
		zap.String("config", opts.ConfigPath),
		zap.Bool("memory_remote", cfg.Memory.Remote()),
		zap.Bool("agent_configured", cfg.Agent.Command != ""),
		zap.Bool("github_token_set", cfg.GitHub.Token != ""),
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	promRegistry := NewMetricsRegistry()
	metrics := NewMetrics(promRegistry)
	health := NewHealthTracker()
	state := domain.NewState()

	session := browser.NewSession(cfg.Browser, logger, metrics)
	store, err := memstore.New(cfg.Memory, logger)
	if err != nil {
		return err
	}
	defer func() {
		session.Close()
		if err := store.Close(); err != nil {
			logger.Warn("memory store close failed", zap.Error(err))
		}
	}()

	deps := tools.Deps{
		Browser:        session,
		GitHub:         gh.New(cfg.GitHub, logger),
		Git:            gitcli.New(cfg.Git, logger),
		Memory:         store,
		Agent:          agent.NewRunner(cfg.Agent, cfg.Dispatch.Timeouts.Agent, logger),
		MemoryIsRemote: cfg.Memory.Remote(),
	}

	reg, err := NewToolRegistry(cfg, deps, state, middleware.NewRecorder(), metrics, logger)
	if err != nil {
		return err
	}

	go runIdleSweep(runCtx, session, cfg.Server.IdleSweepInterval, cfg.Server.BrowserIdleTimeout, logger)
	go watchConfigDrift(runCtx, opts.ConfigPath, logger)

	if cfg.Observability.EnableMetrics || cfg.Observability.EnableHealthz {
		go func() {
			err := telemetry.StartHTTPServer(runCtx, telemetry.HTTPServerOptions{
				Addr:          cfg.Observability.Addr,
				EnableMetrics: cfg.Observability.EnableMetrics,
				EnableHealthz: cfg.Observability.EnableHealthz,
				Health:        health,
				Registry:      promRegistry,
			}, logger)
			if err != nil {
				logger.Error("observability server failed", zap.Error(err))
				health.SetProblem("observability", err.Error())
			}
		}()
	}

	return NewGateway(reg, a.version, logger).Run(runCtx)
}
