package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"tooldeck/internal/app"
	"tooldeck/internal/domain"
	"tooldeck/internal/infra/config"
	"tooldeck/internal/infra/tools"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

type rootOptions struct {
	configPath string
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	root := newRootCmd(logger)
	if err := root.Execute(); err != nil {
		logger.Fatal("command failed", zap.Error(err))
	}
}

func newRootCmd(logger *zap.Logger) *cobra.Command {
	opts := rootOptions{}

	root := &cobra.Command{
		Use:   "tooldeck",
		Short: "MCP server exposing browser, GitHub, git, memory and agent tools",
	}

	bindRootFlags(root.PersistentFlags(), &opts)

	root.AddCommand(
		newServeCmd(logger, &opts),
		newToolsCmd(logger, &opts),
		newDoctorCmd(logger, &opts),
		newVersionCmd(),
	)

	return root
}

func newServeCmd(logger *zap.Logger, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalAwareContext(cmd.Context())
			defer cancel()

			path, explicit, err := config.ResolvePath(opts.configPath)
			if err != nil {
				return err
			}

			err = app.New(logger, version).Serve(ctx, app.ServeConfig{
				ConfigPath:   path,
				ExplicitPath: explicit,
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

func newToolsCmd(logger *zap.Logger, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Print the tool catalogue as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(logger, opts)
			if err != nil {
				return err
			}

			catalog := tools.Catalog(tools.Deps{MemoryIsRemote: cfg.Memory.Remote()}, cfg.Dispatch)
			summaries := make([]domain.ToolSummary, 0, len(catalog))
			for _, desc := range catalog {
				summaries = append(summaries, domain.ToolSummary{
					Name:        desc.Name,
					Description: desc.Description,
					Schema:      desc.Schema,
				})
			}

			payload, err := json.MarshalIndent(summaries, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(payload))
			return nil
		},
	}
}

func newDoctorCmd(logger *zap.Logger, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and external prerequisites",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, explicit, err := config.ResolvePath(opts.configPath)
			if err != nil {
				return err
			}
			cfg, err := config.NewLoader(logger).Load(path, explicit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config: %s\n", path)

			if cfg.GitHub.Token != "" {
				fmt.Fprintln(out, "github: token configured")
			} else {
				fmt.Fprintln(out, "github: no token; github tools will fail with AUTH_FAILURE")
			}

			if cfg.Memory.Remote() {
				fmt.Fprintf(out, "memory: remote API at %s\n", cfg.Memory.BaseURL)
			} else {
				fmt.Fprintln(out, "memory: local store")
			}

			switch {
			case cfg.Agent.Command == "":
				fmt.Fprintln(out, "agent: not configured; agent_execute is disabled")
			default:
				if _, err := exec.LookPath(cfg.Agent.Command); err != nil {
					fmt.Fprintf(out, "agent: %s not found in PATH\n", cfg.Agent.Command)
				} else {
					fmt.Fprintf(out, "agent: %s\n", cfg.Agent.Command)
				}
			}

			if cfg.Browser.ExecPath != "" {
				if _, err := os.Stat(cfg.Browser.ExecPath); err != nil {
					fmt.Fprintf(out, "browser: exec_path %s not found\n", cfg.Browser.ExecPath)
				} else {
					fmt.Fprintf(out, "browser: %s\n", cfg.Browser.ExecPath)
				}
			} else {
				fmt.Fprintln(out, "browser: system default, resolved at first use")
			}

			if cfg.Git.WorkDir != "" {
				if info, err := os.Stat(cfg.Git.WorkDir); err != nil || !info.IsDir() {
					fmt.Fprintf(out, "git: work_dir %s is not a directory\n", cfg.Git.WorkDir)
				} else {
					fmt.Fprintf(out, "git: %s\n", cfg.Git.WorkDir)
				}
			} else {
				fmt.Fprintln(out, "git: current directory")
			}

			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the tooldeck version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

func bindRootFlags(flags *pflag.FlagSet, opts *rootOptions) {
	flags.StringVar(&opts.configPath, "config", "",
		"path to config file (default $TOOLDECK_CONFIG or ~/.config/tooldeck/config.yaml)")
}

func loadConfig(logger *zap.Logger, opts *rootOptions) (domain.Config, error) {
	path, explicit, err := config.ResolvePath(opts.configPath)
	if err != nil {
		return domain.Config{}, err
	}
	return config.NewLoader(logger).Load(path, explicit)
}

func signalAwareContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(signals)
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
