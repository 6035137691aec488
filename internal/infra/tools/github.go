package tools

import (
	"context"
	"fmt"

	"tooldeck/internal/domain"
	"tooldeck/internal/infra/gh"
)

const (
	NameGitHubCreateIssue domain.ToolName = "github_create_issue"
	NameGitHubListIssues  domain.ToolName = "github_list_issues"
	NameGitHubCreatePR    domain.ToolName = "github_create_pr"
	NameGitHubCreateRepo  domain.ToolName = "github_create_repo"
	NameGitHubPushFiles   domain.ToolName = "github_push_files"
	NameGitHubCommitFile  domain.ToolName = "github_commit_file"
)

// GitHubTools wraps the REST client. All of them need a token; only the
// issue listing is a cacheable read. Writes are not retried blindly except
// through the shared retry budget, which matches the source behavior.
func GitHubTools(client GitHub, cfg domain.DispatchConfig) []domain.ToolDescriptor {
	meta := domain.ToolMeta{RequiresAuth: true, Category: domain.CategoryGitHub}
	timeout := cfg.Timeouts.GitHub
	retry := retryPolicy(cfg.Retry)

	return []domain.ToolDescriptor{
		{
			Name:        NameGitHubCreateIssue,
			Description: "Create an issue in a GitHub repository.",
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"owner": map[string]any{"type": "string", "description": "Repository owner."},
					"repo":  map[string]any{"type": "string", "description": "Repository name."},
					"title": map[string]any{"type": "string", "description": "Issue title."},
					"body":  map[string]any{"type": "string", "description": "Issue body in Markdown."},
					"labels": map[string]any{
						"type":  "array",
						"items": map[string]any{"type": "string"},
					},
					"assignees": map[string]any{
						"type":  "array",
						"items": map[string]any{"type": "string"},
					},
				},
				"required": []string{"owner", "repo", "title"},
			},
			Handler: func(ctx context.Context, args domain.Args) (domain.ToolOutput, error) {
				issue, err := client.CreateIssue(ctx, gh.IssueInput{
					Owner:     args.String("owner"),
					Repo:      args.String("repo"),
					Title:     args.String("title"),
					Body:      args.String("body"),
					Labels:    args.StringSlice("labels"),
					Assignees: args.StringSlice("assignees"),
				})
				if err != nil {
					return domain.ToolOutput{}, err
				}
				return domain.ToolOutput{
					Data:    issue,
					Message: fmt.Sprintf("created issue #%d", issue.Number),
				}, nil
			},
			Meta:    meta,
			Timeout: timeout,
			Retry:   retry,
		},
		{
			Name:        NameGitHubListIssues,
			Description: "List issues of a GitHub repository.",
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"owner": map[string]any{"type": "string", "description": "Repository owner."},
					"repo":  map[string]any{"type": "string", "description": "Repository name."},
					"state": map[string]any{
						"type":    "string",
						"enum":    []string{"open", "closed", "all"},
						"default": "open",
					},
					"labels": map[string]any{
						"type":  "array",
						"items": map[string]any{"type": "string"},
					},
					"per_page": map[string]any{
						"type":    "integer",
						"minimum": 1,
						"maximum": 100,
						"default": 30,
					},
				},
				"required": []string{"owner", "repo"},
			},
			Handler: func(ctx context.Context, args domain.Args) (domain.ToolOutput, error) {
				issues, err := client.ListIssues(ctx, gh.IssueFilter{
					Owner:   args.String("owner"),
					Repo:    args.String("repo"),
					State:   args.String("state"),
					Labels:  args.StringSlice("labels"),
					PerPage: args.Int("per_page"),
				})
				if err != nil {
					return domain.ToolOutput{}, err
				}
				return domain.ToolOutput{
					Data:    issues,
					Message: fmt.Sprintf("found %d issues", len(issues)),
				}, nil
			},
			Meta:    domain.ToolMeta{ReadOnly: true, RequiresAuth: true, Category: domain.CategoryGitHub},
			Timeout: timeout,
			Retry:   retry,
		},
		{
			Name:        NameGitHubCreatePR,
			Description: "Open a pull request in a GitHub repository.",
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"owner": map[string]any{"type": "string", "description": "Repository owner."},
					"repo":  map[string]any{"type": "string", "description": "Repository name."},
					"title": map[string]any{"type": "string", "description": "Pull request title."},
					"head":  map[string]any{"type": "string", "description": "Branch with the changes."},
					"base":  map[string]any{"type": "string", "description": "Branch to merge into."},
					"body":  map[string]any{"type": "string", "description": "Pull request body in Markdown."},
					"draft": map[string]any{"type": "boolean", "default": false},
				},
				"required": []string{"owner", "repo", "title", "head", "base"},
			},
			Handler: func(ctx context.Context, args domain.Args) (domain.ToolOutput, error) {
				pr, err := client.CreatePullRequest(ctx, gh.PullRequestInput{
					Owner: args.String("owner"),
					Repo:  args.String("repo"),
					Title: args.String("title"),
					Head:  args.String("head"),
					Base:  args.String("base"),
					Body:  args.String("body"),
					Draft: args.Bool("draft"),
				})
				if err != nil {
					return domain.ToolOutput{}, err
				}
				return domain.ToolOutput{
					Data:    pr,
					Message: fmt.Sprintf("opened pull request #%d", pr.Number),
				}, nil
			},
			Meta:    meta,
			Timeout: timeout,
			Retry:   retry,
		},
		{
			Name:        NameGitHubCreateRepo,
			Description: "Create a repository for the authenticated user.",
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name":        map[string]any{"type": "string", "description": "Repository name."},
					"description": map[string]any{"type": "string"},
					"private":     map[string]any{"type": "boolean", "default": false},
					"auto_init":   map[string]any{"type": "boolean", "default": true},
				},
				"required": []string{"name"},
			},
			Handler: func(ctx context.Context, args domain.Args) (domain.ToolOutput, error) {
				repo, err := client.CreateRepo(ctx, gh.RepoInput{
					Name:        args.String("name"),
					Description: args.String("description"),
					Private:     args.Bool("private"),
					AutoInit:    args.Bool("auto_init"),
				})
				if err != nil {
					return domain.ToolOutput{}, err
				}
				return domain.ToolOutput{
					Data:    repo,
					Message: fmt.Sprintf("created repository %s", repo.FullName),
				}, nil
			},
			Meta:    meta,
			Timeout: timeout,
			Retry:   retry,
		},
		{
			Name:        NameGitHubPushFiles,
			Description: "Commit multiple files to a branch in a single commit.",
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"owner":   map[string]any{"type": "string", "description": "Repository owner."},
					"repo":    map[string]any{"type": "string", "description": "Repository name."},
					"branch":  map[string]any{"type": "string", "description": "Branch to push to."},
					"message": map[string]any{"type": "string", "description": "Commit message."},
					"files": map[string]any{
						"type":     "array",
						"minItems": 1,
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"path":    map[string]any{"type": "string"},
								"content": map[string]any{"type": "string"},
							},
							"required": []string{"path", "content"},
						},
					},
				},
				"required": []string{"owner", "repo", "branch", "message", "files"},
			},
			Handler: func(ctx context.Context, args domain.Args) (domain.ToolOutput, error) {
				var files []gh.FileSpec
				for _, raw := range args.ObjectSlice("files") {
					path, _ := raw["path"].(string)
					content, _ := raw["content"].(string)
					files = append(files, gh.FileSpec{Path: path, Content: content})
				}

				ref, err := client.PushFiles(ctx, gh.PushInput{
					Owner:   args.String("owner"),
					Repo:    args.String("repo"),
					Branch:  args.String("branch"),
					Message: args.String("message"),
					Files:   files,
				})
				if err != nil {
					return domain.ToolOutput{}, err
				}
				return domain.ToolOutput{
					Data:    ref,
					Message: fmt.Sprintf("pushed %d files as %s", len(files), ref.SHA),
				}, nil
			},
			Meta:    meta,
			Timeout: timeout,
			Retry:   retry,
		},
		{
			Name:        NameGitHubCommitFile,
			Description: "Create or update a single file in a repository.",
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"owner":   map[string]any{"type": "string", "description": "Repository owner."},
					"repo":    map[string]any{"type": "string", "description": "Repository name."},
					"path":    map[string]any{"type": "string", "description": "File path inside the repository."},
					"content": map[string]any{"type": "string", "description": "New file content."},
					"message": map[string]any{"type": "string", "description": "Commit message."},
					"branch":  map[string]any{"type": "string", "description": "Target branch; the default branch when omitted."},
				},
				"required": []string{"owner", "repo", "path", "content", "message"},
			},
			Handler: func(ctx context.Context, args domain.Args) (domain.ToolOutput, error) {
				ref, err := client.CommitFile(ctx, gh.CommitFileInput{
					Owner:   args.String("owner"),
					Repo:    args.String("repo"),
					Path:    args.String("path"),
					Content: args.String("content"),
					Message: args.String("message"),
					Branch:  args.String("branch"),
				})
				if err != nil {
					return domain.ToolOutput{}, err
				}
				return domain.ToolOutput{
					Data:    ref,
					Message: fmt.Sprintf("committed %s as %s", args.String("path"), ref.SHA),
				}, nil
			},
			Meta:    meta,
			Timeout: timeout,
			Retry:   retry,
		},
	}
}
