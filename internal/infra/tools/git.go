package tools

import (
	"context"
	"fmt"

	"tooldeck/internal/domain"
	"tooldeck/internal/infra/gitcli"
)

const (
	NameGitStatus domain.ToolName = "git_status"
	NameGitCommit domain.ToolName = "git_commit"
	NameGitPush   domain.ToolName = "git_push"
	NameGitPull   domain.ToolName = "git_pull"
)

// GitTools operate on the configured local working copy.
func GitTools(git Git, timeouts domain.TimeoutConfig) []domain.ToolDescriptor {
	meta := domain.ToolMeta{Category: domain.CategoryGit}
	timeout := timeouts.Git

	return []domain.ToolDescriptor{
		{
			Name:        NameGitStatus,
			Description: "Show the working tree status of the local repository.",
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"detailed": map[string]any{
						"type":        "boolean",
						"description": "Include the per-file breakdown.",
						"default":     false,
					},
				},
			},
			Handler: func(ctx context.Context, args domain.Args) (domain.ToolOutput, error) {
				status, err := git.Status(ctx, args.Bool("detailed"))
				if err != nil {
					return domain.ToolOutput{}, err
				}

				message := fmt.Sprintf("%s: %d changes", status.Branch, status.Changes)
				if status.Clean {
					message = fmt.Sprintf("%s: working tree clean", status.Branch)
				}
				return domain.ToolOutput{Data: status, Message: message}, nil
			},
			Meta:    domain.ToolMeta{ReadOnly: true, Category: domain.CategoryGit},
			Timeout: timeout,
		},
		{
			Name:        NameGitCommit,
			Description: "Stage changes and record a commit in the local repository.",
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"message": map[string]any{"type": "string", "description": "Commit message."},
					"add_all": map[string]any{
						"type":        "boolean",
						"description": "Stage every change before committing.",
						"default":     false,
					},
					"files": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "string"},
						"description": "Specific paths to stage instead of everything.",
					},
				},
				"required": []string{"message"},
			},
			Handler: func(ctx context.Context, args domain.Args) (domain.ToolOutput, error) {
				result, err := git.Commit(ctx, gitcli.CommitInput{
					Message: args.String("message"),
					AddAll:  args.Bool("add_all"),
					Files:   args.StringSlice("files"),
				})
				if err != nil {
					return domain.ToolOutput{}, err
				}
				return domain.ToolOutput{
					Data:    result,
					Message: fmt.Sprintf("committed %s", result.SHA),
				}, nil
			},
			Meta:    meta,
			Timeout: timeout,
		},
		{
			Name:        NameGitPush,
			Description: "Push local commits to the origin remote.",
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"branch": map[string]any{"type": "string", "description": "Branch to push; the current branch when omitted."},
					"force":  map[string]any{"type": "boolean", "default": false},
					"set_upstream": map[string]any{
						"type":        "boolean",
						"description": "Track the branch on origin (-u).",
						"default":     false,
					},
				},
			},
			Handler: func(ctx context.Context, args domain.Args) (domain.ToolOutput, error) {
				summary, err := git.Push(ctx, gitcli.PushInput{
					Branch:      args.String("branch"),
					Force:       args.Bool("force"),
					SetUpstream: args.Bool("set_upstream"),
				})
				if err != nil {
					return domain.ToolOutput{}, err
				}
				return domain.ToolOutput{Message: summary}, nil
			},
			Meta:    meta,
			Timeout: timeout,
		},
		{
			Name:        NameGitPull,
			Description: "Pull changes from the origin remote into the local repository.",
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"branch": map[string]any{"type": "string", "description": "Branch to pull; the current branch when omitted."},
					"rebase": map[string]any{"type": "boolean", "default": false},
				},
			},
			Handler: func(ctx context.Context, args domain.Args) (domain.ToolOutput, error) {
				summary, err := git.Pull(ctx, gitcli.PullInput{
					Branch: args.String("branch"),
					Rebase: args.Bool("rebase"),
				})
				if err != nil {
					return domain.ToolOutput{}, err
				}
				return domain.ToolOutput{Message: summary}, nil
			},
			Meta:    meta,
			Timeout: timeout,
		},
	}
}
