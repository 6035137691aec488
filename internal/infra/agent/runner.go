package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"tooldeck/internal/domain"
	"tooldeck/internal/infra/envutil"
)

// Runner spawns the configured agent CLI once per call with the prompt as
// the final argument. The hard timeout is a process bound: when it expires
// the spawned process is killed, unlike the cooperative dispatch timeout.
type Runner struct {
	cfg     domain.AgentConfig
	timeout time.Duration
	logger  *zap.Logger
}

func NewRunner(cfg domain.AgentConfig, timeout time.Duration, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{cfg: cfg, timeout: timeout, logger: logger.Named("agent")}
}

// Configured reports whether an agent command is set.
func (r *Runner) Configured() bool {
	return r.cfg.Command != ""
}

type Result struct {
	Output     string `json:"output"`
	DurationMs int64  `json:"duration_ms"`
}

func (r *Runner) Execute(ctx context.Context, prompt, workFolder string) (Result, error) {
	if !r.Configured() {
		return Result{}, domain.E(domain.CodeInvalidParams, "agent.Execute",
			"agent command is not configured (set agent.command)", nil)
	}
	if workFolder != "" {
		info, err := os.Stat(workFolder)
		if err != nil || !info.IsDir() {
			return Result{}, domain.E(domain.CodeInvalidParams, "agent.Execute",
				fmt.Sprintf("work_folder %q is not a directory", workFolder), err)
		}
	}

	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	args := append(slices.Clone(r.cfg.Args), prompt)
	cmd := exec.CommandContext(runCtx, r.cfg.Command, args...)
	cmd.Env = envutil.SpawnEnv(os.Environ())
	if workFolder != "" {
		cmd.Dir = workFolder
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Info("agent run started",
		zap.String("command", r.cfg.Command),
		zap.String("work_folder", workFolder))

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return Result{}, domain.E(domain.CodeTimeout, "agent.Execute",
			fmt.Sprintf("agent run exceeded %s and was killed", r.timeout), runCtx.Err())
	}
	if err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return Result{}, domain.E(domain.CodeInternal, "agent.Execute",
			fmt.Sprintf("agent run failed: %s", detail), err)
	}

	r.logger.Info("agent run finished", zap.Duration("duration", duration))
	return Result{
		Output:     strings.TrimSpace(stdout.String()),
		DurationMs: duration.Milliseconds(),
	}, nil
}
