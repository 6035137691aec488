package tools

import (
	"context"

	"tooldeck/internal/domain"
)

const NameAgentExecute domain.ToolName = "agent_execute"

// AgentTools expose the configured agent CLI. The descriptor carries no
// dispatch timeout: the runner enforces its own hard process bound, and the
// caller is expected to wait for the run.
func AgentTools(runner Agent) []domain.ToolDescriptor {
	return []domain.ToolDescriptor{
		{
			Name:        NameAgentExecute,
			Description: "Run the configured coding agent with a prompt and return its output.",
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"prompt": map[string]any{"type": "string", "description": "Instruction for the agent."},
					"work_folder": map[string]any{
						"type":        "string",
						"description": "Directory the agent runs in; the server working directory when omitted.",
					},
				},
				"required": []string{"prompt"},
			},
			Handler: func(ctx context.Context, args domain.Args) (domain.ToolOutput, error) {
				result, err := runner.Execute(ctx, args.String("prompt"), args.String("work_folder"))
				if err != nil {
					return domain.ToolOutput{}, err
				}
				return domain.ToolOutput{Data: result, Message: "agent run completed"}, nil
			},
			Meta: domain.ToolMeta{Category: domain.CategoryAgent},
		},
	}
}
