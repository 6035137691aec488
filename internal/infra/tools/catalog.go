package tools

import (
	"context"

	"tooldeck/internal/domain"
	"tooldeck/internal/infra/agent"
	"tooldeck/internal/infra/gh"
	"tooldeck/internal/infra/gitcli"
	"tooldeck/internal/infra/memstore"
)

// Browser is the slice of the browser session the browser_* tools use.
type Browser interface {
	Navigate(ctx context.Context, url string) error
	Screenshot(ctx context.Context, path string, fullPage bool) (string, error)
	Click(ctx context.Context, selector string) error
	Type(ctx context.Context, selector, text string) error
	Content(ctx context.Context) (string, error)
}

// GitHub is the slice of the GitHub client the github_* tools use.
type GitHub interface {
	CreateIssue(ctx context.Context, in gh.IssueInput) (gh.Issue, error)
	ListIssues(ctx context.Context, filter gh.IssueFilter) ([]gh.Issue, error)
	CreatePullRequest(ctx context.Context, in gh.PullRequestInput) (gh.PullRequest, error)
	CreateRepo(ctx context.Context, in gh.RepoInput) (gh.Repo, error)
	PushFiles(ctx context.Context, in gh.PushInput) (gh.CommitRef, error)
	CommitFile(ctx context.Context, in gh.CommitFileInput) (gh.CommitRef, error)
}

// Git is the slice of the local git adapter the git_* tools use.
type Git interface {
	Status(ctx context.Context, detailed bool) (gitcli.Status, error)
	Commit(ctx context.Context, in gitcli.CommitInput) (gitcli.CommitResult, error)
	Push(ctx context.Context, in gitcli.PushInput) (string, error)
	Pull(ctx context.Context, in gitcli.PullInput) (string, error)
}

// Agent is the slice of the agent runner the agent_execute tool uses.
type Agent interface {
	Execute(ctx context.Context, prompt, workFolder string) (agent.Result, error)
}

// Deps carries the adapters behind the catalogue.
type Deps struct {
	Browser Browser
	GitHub  GitHub
	Git     Git
	Memory  memstore.Store
	Agent   Agent

	// MemoryIsRemote marks the memory tools as credential-backed when the
	// hosted store is in use.
	MemoryIsRemote bool
}

// Catalog builds every tool descriptor wired to its adapter. The dispatch
// config supplies per-category timeouts and the retry budget for the
// network-backed handlers.
func Catalog(deps Deps, cfg domain.DispatchConfig) []domain.ToolDescriptor {
	var descriptors []domain.ToolDescriptor
	descriptors = append(descriptors, BrowserTools(deps.Browser, cfg.Timeouts)...)
	descriptors = append(descriptors, GitHubTools(deps.GitHub, cfg)...)
	descriptors = append(descriptors, GitTools(deps.Git, cfg.Timeouts)...)
	descriptors = append(descriptors, MemoryTools(deps.Memory, cfg, deps.MemoryIsRemote)...)
	descriptors = append(descriptors, AgentTools(deps.Agent)...)
	return descriptors
}

// retryPolicy converts the configured retry budget; a zero budget means no
// retry wrapper at all.
func retryPolicy(cfg domain.RetryConfig) *domain.RetryPolicy {
	if cfg.Attempts <= 0 {
		return nil
	}
	return &domain.RetryPolicy{Attempts: uint(cfg.Attempts), Delay: cfg.Delay}
}
