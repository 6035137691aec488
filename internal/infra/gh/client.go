package gh

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/go-github/v74/github"
	"go.uber.org/zap"

	"tooldeck/internal/domain"
)

// Client wraps the GitHub REST API for the github_* tools. The underlying
// API client is built lazily so a missing token only surfaces when a GitHub
// tool is actually invoked.
type Client struct {
	cfg    domain.GitHubConfig
	logger *zap.Logger

	mu  sync.Mutex
	api *github.Client
}

func New(cfg domain.GitHubConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{cfg: cfg, logger: logger.Named("github")}
}

func (c *Client) ensureAPI() (*github.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.api != nil {
		return c.api, nil
	}
	if c.cfg.Token == "" {
		return nil, domain.E(domain.CodeAuthFailure, "gh.Client",
			"GitHub token is not configured (set github.token or GITHUB_TOKEN)", nil)
	}

	api := github.NewClient(nil).WithAuthToken(c.cfg.Token)
	if c.cfg.BaseURL != "" {
		enterprise, err := api.WithEnterpriseURLs(c.cfg.BaseURL, c.cfg.BaseURL)
		if err != nil {
			return nil, domain.E(domain.CodeInvalidParams, "gh.Client",
				fmt.Sprintf("invalid GitHub base URL %q", c.cfg.BaseURL), err)
		}
		api = enterprise
	}

	c.api = api
	return c.api, nil
}

// Issue is the trimmed-down shape returned to tool callers.
type Issue struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	State  string `json:"state"`
	URL    string `json:"url"`
}

type PullRequest struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	URL    string `json:"url"`
	Draft  bool   `json:"draft"`
}

type Repo struct {
	FullName string `json:"full_name"`
	URL      string `json:"url"`
	Private  bool   `json:"private"`
}

type CommitRef struct {
	SHA string `json:"sha"`
	URL string `json:"url"`
}

type IssueInput struct {
	Owner     string
	Repo      string
	Title     string
	Body      string
	Labels    []string
	Assignees []string
}

type IssueFilter struct {
	Owner   string
	Repo    string
	State   string
	Labels  []string
	PerPage int
}

type PullRequestInput struct {
	Owner string
	Repo  string
	Title string
	Head  string
	Base  string
	Body  string
	Draft bool
}

type RepoInput struct {
	Name        string
	Description string
	Private     bool
	AutoInit    bool
}

// FileSpec is one file of a multi-file push.
type FileSpec struct {
	Path    string
	Content string
}

type PushInput struct {
	Owner   string
	Repo    string
	Branch  string
	Message string
	Files   []FileSpec
}

type CommitFileInput struct {
	Owner   string
	Repo    string
	Path    string
	Content string
	Message string
	Branch  string
}

func (c *Client) CreateIssue(ctx context.Context, in IssueInput) (Issue, error) {
	api, err := c.ensureAPI()
	if err != nil {
		return Issue{}, err
	}

	req := &github.IssueRequest{Title: github.Ptr(in.Title)}
	if in.Body != "" {
		req.Body = github.Ptr(in.Body)
	}
	if len(in.Labels) > 0 {
		req.Labels = &in.Labels
	}
	if len(in.Assignees) > 0 {
		req.Assignees = &in.Assignees
	}

	issue, _, err := api.Issues.Create(ctx, in.Owner, in.Repo, req)
	if err != nil {
		return Issue{}, mapError("gh.CreateIssue", err)
	}
	return toIssue(issue), nil
}

func (c *Client) ListIssues(ctx context.Context, filter IssueFilter) ([]Issue, error) {
	api, err := c.ensureAPI()
	if err != nil {
		return nil, err
	}

	opts := &github.IssueListByRepoOptions{
		State:       filter.State,
		Labels:      filter.Labels,
		ListOptions: github.ListOptions{PerPage: filter.PerPage},
	}
	issues, _, err := api.Issues.ListByRepo(ctx, filter.Owner, filter.Repo, opts)
	if err != nil {
		return nil, mapError("gh.ListIssues", err)
	}

	out := make([]Issue, 0, len(issues))
	for _, issue := range issues {
		out = append(out, toIssue(issue))
	}
	return out, nil
}

func (c *Client) CreatePullRequest(ctx context.Context, in PullRequestInput) (PullRequest, error) {
	api, err := c.ensureAPI()
	if err != nil {
		return PullRequest{}, err
	}

	req := &github.NewPullRequest{
		Title: github.Ptr(in.Title),
		Head:  github.Ptr(in.Head),
		Base:  github.Ptr(in.Base),
		Draft: github.Ptr(in.Draft),
	}
	if in.Body != "" {
		req.Body = github.Ptr(in.Body)
	}

	pr, _, err := api.PullRequests.Create(ctx, in.Owner, in.Repo, req)
	if err != nil {
		return PullRequest{}, mapError("gh.CreatePullRequest", err)
	}
	return PullRequest{
		Number: pr.GetNumber(),
		Title:  pr.GetTitle(),
		URL:    pr.GetHTMLURL(),
		Draft:  pr.GetDraft(),
	}, nil
}

func (c *Client) CreateRepo(ctx context.Context, in RepoInput) (Repo, error) {
	api, err := c.ensureAPI()
	if err != nil {
		return Repo{}, err
	}

	repo := &github.Repository{
		Name:     github.Ptr(in.Name),
		Private:  github.Ptr(in.Private),
		AutoInit: github.Ptr(in.AutoInit),
	}
	if in.Description != "" {
		repo.Description = github.Ptr(in.Description)
	}

	created, _, err := api.Repositories.Create(ctx, "", repo)
	if err != nil {
		return Repo{}, mapError("gh.CreateRepo", err)
	}
	return Repo{
		FullName: created.GetFullName(),
		URL:      created.GetHTMLURL(),
		Private:  created.GetPrivate(),
	}, nil
}

// PushFiles commits a set of files to branch in one commit through the Git
// data API: base ref, new tree, new commit, ref update.
func (c *Client) PushFiles(ctx context.Context, in PushInput) (CommitRef, error) {
	api, err := c.ensureAPI()
	if err != nil {
		return CommitRef{}, err
	}

	refName := "refs/heads/" + in.Branch
	ref, _, err := api.Git.GetRef(ctx, in.Owner, in.Repo, refName)
	if err != nil {
		return CommitRef{}, mapError("gh.PushFiles", err)
	}
	baseSHA := ref.GetObject().GetSHA()

	entries := make([]*github.TreeEntry, 0, len(in.Files))
	for _, file := range in.Files {
		entries = append(entries, &github.TreeEntry{
			Path:    github.Ptr(file.Path),
			Mode:    github.Ptr("100644"),
			Type:    github.Ptr("blob"),
			Content: github.Ptr(file.Content),
		})
	}
	tree, _, err := api.Git.CreateTree(ctx, in.Owner, in.Repo, baseSHA, entries)
	if err != nil {
		return CommitRef{}, mapError("gh.PushFiles", err)
	}

	parent, _, err := api.Git.GetCommit(ctx, in.Owner, in.Repo, baseSHA)
	if err != nil {
		return CommitRef{}, mapError("gh.PushFiles", err)
	}

	commit := &github.Commit{
		Message: github.Ptr(in.Message),
		Tree:    tree,
		Parents: []*github.Commit{parent},
	}
	created, _, err := api.Git.CreateCommit(ctx, in.Owner, in.Repo, commit, nil)
	if err != nil {
		return CommitRef{}, mapError("gh.PushFiles", err)
	}

	ref.Object.SHA = created.SHA
	if _, _, err := api.Git.UpdateRef(ctx, in.Owner, in.Repo, ref, false); err != nil {
		return CommitRef{}, mapError("gh.PushFiles", err)
	}

	c.logger.Debug("pushed files",
		zap.String("repo", in.Owner+"/"+in.Repo),
		zap.String("branch", in.Branch),
		zap.Int("files", len(in.Files)))
	return CommitRef{SHA: created.GetSHA(), URL: created.GetHTMLURL()}, nil
}

// CommitFile creates path on branch, or updates it in place when it already
// exists (the contents API requires the current blob SHA for updates).
func (c *Client) CommitFile(ctx context.Context, in CommitFileInput) (CommitRef, error) {
	api, err := c.ensureAPI()
	if err != nil {
		return CommitRef{}, err
	}

	getOpts := &github.RepositoryContentGetOptions{}
	if in.Branch != "" {
		getOpts.Ref = in.Branch
	}

	opts := &github.RepositoryContentFileOptions{
		Message: github.Ptr(in.Message),
		Content: []byte(in.Content),
	}
	if in.Branch != "" {
		opts.Branch = github.Ptr(in.Branch)
	}

	existing, _, _, err := api.Repositories.GetContents(ctx, in.Owner, in.Repo, in.Path, getOpts)
	switch {
	case err == nil && existing != nil:
		opts.SHA = github.Ptr(existing.GetSHA())
		updated, _, err := api.Repositories.UpdateFile(ctx, in.Owner, in.Repo, in.Path, opts)
		if err != nil {
			return CommitRef{}, mapError("gh.CommitFile", err)
		}
		return CommitRef{SHA: updated.Commit.GetSHA(), URL: updated.Commit.GetHTMLURL()}, nil
	case isNotFound(err):
		created, _, err := api.Repositories.CreateFile(ctx, in.Owner, in.Repo, in.Path, opts)
		if err != nil {
			return CommitRef{}, mapError("gh.CommitFile", err)
		}
		return CommitRef{SHA: created.Commit.GetSHA(), URL: created.Commit.GetHTMLURL()}, nil
	default:
		return CommitRef{}, mapError("gh.CommitFile", err)
	}
}

func toIssue(issue *github.Issue) Issue {
	return Issue{
		Number: issue.GetNumber(),
		Title:  issue.GetTitle(),
		State:  issue.GetState(),
		URL:    issue.GetHTMLURL(),
	}
}

func isNotFound(err error) bool {
	var respErr *github.ErrorResponse
	return errors.As(err, &respErr) &&
		respErr.Response != nil &&
		respErr.Response.StatusCode == http.StatusNotFound
}

// mapError folds GitHub API failures into the closed error taxonomy.
func mapError(op string, err error) error {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return domain.E(domain.CodeRateLimited, op, "GitHub rate limit exceeded", err)
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return domain.E(domain.CodeRateLimited, op, "GitHub secondary rate limit hit", err)
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		switch respErr.Response.StatusCode {
		case http.StatusNotFound:
			return domain.E(domain.CodeNotFound, op, "GitHub resource not found", err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return domain.E(domain.CodeAuthFailure, op, "GitHub rejected the credentials", err)
		case http.StatusTooManyRequests:
			return domain.E(domain.CodeRateLimited, op, "GitHub rate limit exceeded", err)
		case http.StatusUnprocessableEntity:
			return domain.E(domain.CodeInvalidParams, op, "GitHub rejected the request payload", err)
		}
	}
	return domain.E(domain.CodeInternal, op, "GitHub API call failed", err)
}
