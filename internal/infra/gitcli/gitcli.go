package gitcli

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"tooldeck/internal/domain"
)

// Runner executes one git invocation in dir and returns the captured
// streams. Swapped out in tests.
type Runner func(ctx context.Context, dir string, args ...string) (stdout, stderr string, err error)

// Git drives the local git binary for the git_* tools. All commands run in
// the configured work dir; an empty dir means the process working directory.
type Git struct {
	dir    string
	runner Runner
	logger *zap.Logger
}

func New(cfg domain.GitConfig, logger *zap.Logger) *Git {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Git{
		dir:    cfg.WorkDir,
		runner: execRunner,
		logger: logger.Named("git"),
	}
}

func execRunner(ctx context.Context, dir string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func (g *Git) run(ctx context.Context, args ...string) (string, string, error) {
	g.logger.Debug("running git", zap.Strings("args", args))

	stdout, stderr, err := g.runner(ctx, g.dir, args...)
	if err != nil {
		detail := strings.TrimSpace(stderr)
		if detail == "" {
			detail = strings.TrimSpace(stdout)
		}
		if detail == "" {
			detail = err.Error()
		}
		return "", "", domain.E(domain.CodeInternal, "gitcli",
			fmt.Sprintf("git %s: %s", args[0], detail), err)
	}
	return stdout, stderr, nil
}

// FileStatus is one changed path from porcelain output.
type FileStatus struct {
	Path   string `json:"path"`
	State  string `json:"state"`
	Staged bool   `json:"staged"`
}

type Status struct {
	Branch   string       `json:"branch"`
	Upstream string       `json:"upstream,omitempty"`
	Ahead    int          `json:"ahead"`
	Behind   int          `json:"behind"`
	Clean    bool         `json:"clean"`
	Changes  int          `json:"changes"`
	Files    []FileStatus `json:"files,omitempty"`
}

type CommitResult struct {
	SHA     string `json:"sha"`
	Summary string `json:"summary"`
}

// Status reports the working tree state. detailed includes the per-file
// breakdown; otherwise only the counts travel back.
func (g *Git) Status(ctx context.Context, detailed bool) (Status, error) {
	stdout, _, err := g.run(ctx, "status", "--porcelain=v1", "--branch")
	if err != nil {
		return Status{}, err
	}

	status := parseStatus(stdout)
	if !detailed {
		status.Files = nil
	}
	return status, nil
}

type CommitInput struct {
	Message string
	AddAll  bool
	Files   []string
}

// Commit stages the requested paths and records a commit. AddAll stages the
// whole tree; otherwise only the listed files are staged; with neither,
// whatever is already staged gets committed.
func (g *Git) Commit(ctx context.Context, in CommitInput) (CommitResult, error) {
	switch {
	case in.AddAll:
		if _, _, err := g.run(ctx, "add", "-A"); err != nil {
			return CommitResult{}, err
		}
	case len(in.Files) > 0:
		args := append([]string{"add", "--"}, in.Files...)
		if _, _, err := g.run(ctx, args...); err != nil {
			return CommitResult{}, err
		}
	}

	stdout, _, err := g.run(ctx, "commit", "-m", in.Message)
	if err != nil {
		return CommitResult{}, err
	}

	sha, _, err := g.run(ctx, "rev-parse", "--short", "HEAD")
	if err != nil {
		return CommitResult{}, err
	}

	return CommitResult{
		SHA:     strings.TrimSpace(sha),
		Summary: strings.TrimSpace(stdout),
	}, nil
}

type PushInput struct {
	Branch      string
	Force       bool
	SetUpstream bool
}

// Push sends the current branch (or the named one) to origin. git reports
// progress on stderr, so a successful push surfaces that stream.
func (g *Git) Push(ctx context.Context, in PushInput) (string, error) {
	args := []string{"push"}
	if in.Force {
		args = append(args, "--force")
	}
	switch {
	case in.SetUpstream && in.Branch != "":
		args = append(args, "-u", "origin", in.Branch)
	case in.Branch != "":
		args = append(args, "origin", in.Branch)
	}

	stdout, stderr, err := g.run(ctx, args...)
	if err != nil {
		return "", err
	}

	summary := strings.TrimSpace(stdout)
	if summary == "" {
		summary = strings.TrimSpace(stderr)
	}
	if summary == "" {
		summary = "push completed"
	}
	return summary, nil
}

type PullInput struct {
	Branch string
	Rebase bool
}

func (g *Git) Pull(ctx context.Context, in PullInput) (string, error) {
	args := []string{"pull"}
	if in.Rebase {
		args = append(args, "--rebase")
	}
	if in.Branch != "" {
		args = append(args, "origin", in.Branch)
	}

	stdout, _, err := g.run(ctx, args...)
	if err != nil {
		return "", err
	}

	summary := strings.TrimSpace(stdout)
	if summary == "" {
		summary = "pull completed"
	}
	return summary, nil
}

// parseStatus reads `git status --porcelain=v1 --branch` output: a `## `
// branch header followed by one XY line per changed path.
func parseStatus(raw string) Status {
	var status Status
	for _, line := range strings.Split(raw, "\n") {
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "## ") {
			parseBranchHeader(line[3:], &status)
			continue
		}
		if len(line) < 4 {
			continue
		}
		status.Files = append(status.Files, parseFileLine(line))
	}

	status.Changes = len(status.Files)
	status.Clean = status.Changes == 0
	return status
}

func parseBranchHeader(header string, status *Status) {
	if rest, ok := strings.CutPrefix(header, "No commits yet on "); ok {
		status.Branch = rest
		return
	}

	// "main...origin/main [ahead 1, behind 2]"
	if bracket := strings.Index(header, " ["); bracket >= 0 {
		parseAheadBehind(header[bracket+2:len(header)-1], status)
		header = header[:bracket]
	}

	if branch, upstream, ok := strings.Cut(header, "..."); ok {
		status.Branch = branch
		status.Upstream = upstream
		return
	}
	status.Branch = header
}

func parseAheadBehind(counts string, status *Status) {
	for _, part := range strings.Split(counts, ", ") {
		if value, ok := strings.CutPrefix(part, "ahead "); ok {
			status.Ahead, _ = strconv.Atoi(value)
		}
		if value, ok := strings.CutPrefix(part, "behind "); ok {
			status.Behind, _ = strconv.Atoi(value)
		}
	}
}

func parseFileLine(line string) FileStatus {
	index, worktree := line[0], line[1]
	path := line[3:]
	if _, target, ok := strings.Cut(path, " -> "); ok {
		path = target
	}

	primary := worktree
	if index != ' ' && index != '?' {
		primary = index
	}

	return FileStatus{
		Path:   path,
		State:  stateLabel(primary),
		Staged: index != ' ' && index != '?',
	}
}

func stateLabel(code byte) string {
	switch code {
	case 'M':
		return "modified"
	case 'A':
		return "added"
	case 'D':
		return "deleted"
	case 'R':
		return "renamed"
	case 'C':
		return "copied"
	case 'U':
		return "conflicted"
	case '?':
		return "untracked"
	case '!':
		return "ignored"
	default:
		return string(code)
	}
}
