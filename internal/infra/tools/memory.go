package tools

import (
	"context"
	"fmt"

	"tooldeck/internal/domain"
	"tooldeck/internal/infra/memstore"
)

const (
	NameAddMemory      domain.ToolName = "add_memory"
	NameSearchMemory   domain.ToolName = "search_memory"
	NameListMemories   domain.ToolName = "list_memories"
	NameDeleteMemories domain.ToolName = "delete_memories"
)

// MemoryTools persist and recall notes. remote marks the hosted store,
// which needs an API key; the local fallback works without credentials.
func MemoryTools(store memstore.Store, cfg domain.DispatchConfig, remote bool) []domain.ToolDescriptor {
	meta := domain.ToolMeta{RequiresAuth: remote, Category: domain.CategoryMemory}
	timeout := cfg.Timeouts.Memory
	retry := retryPolicy(cfg.Retry)

	return []domain.ToolDescriptor{
		{
			Name:        NameAddMemory,
			Description: "Store a note in the memory store.",
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"content": map[string]any{"type": "string", "description": "Text to remember."},
					"tags": map[string]any{
						"type":  "array",
						"items": map[string]any{"type": "string"},
					},
				},
				"required": []string{"content"},
			},
			Handler: func(ctx context.Context, args domain.Args) (domain.ToolOutput, error) {
				memory, err := store.Add(ctx, args.String("content"), args.StringSlice("tags"))
				if err != nil {
					return domain.ToolOutput{}, err
				}
				return domain.ToolOutput{
					Data:    memory,
					Message: fmt.Sprintf("stored memory %s", memory.ID),
				}, nil
			},
			Meta:    meta,
			Timeout: timeout,
			Retry:   retry,
		},
		{
			Name:        NameSearchMemory,
			Description: "Search stored notes by text.",
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{"type": "string", "description": "Text to search for."},
					"limit": map[string]any{
						"type":    "integer",
						"minimum": 1,
						"maximum": 100,
						"default": 10,
					},
				},
				"required": []string{"query"},
			},
			Handler: func(ctx context.Context, args domain.Args) (domain.ToolOutput, error) {
				memories, err := store.Search(ctx, args.String("query"), args.Int("limit"))
				if err != nil {
					return domain.ToolOutput{}, err
				}
				return domain.ToolOutput{
					Data:    memories,
					Message: fmt.Sprintf("found %d memories", len(memories)),
				}, nil
			},
			Meta:    domain.ToolMeta{ReadOnly: true, RequiresAuth: remote, Category: domain.CategoryMemory},
			Timeout: timeout,
			Retry:   retry,
		},
		{
			Name:        NameListMemories,
			Description: "List stored notes, newest first.",
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"limit": map[string]any{
						"type":    "integer",
						"minimum": 1,
						"maximum": 200,
						"default": 50,
					},
				},
			},
			Handler: func(ctx context.Context, args domain.Args) (domain.ToolOutput, error) {
				memories, err := store.List(ctx, args.Int("limit"))
				if err != nil {
					return domain.ToolOutput{}, err
				}
				return domain.ToolOutput{
					Data:    memories,
					Message: fmt.Sprintf("%d memories stored", len(memories)),
				}, nil
			},
			Meta:    domain.ToolMeta{ReadOnly: true, RequiresAuth: remote, Category: domain.CategoryMemory},
			Timeout: timeout,
			Retry:   retry,
		},
		{
			Name:        NameDeleteMemories,
			Description: "Delete stored notes by their identifiers.",
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"ids": map[string]any{
						"type":     "array",
						"minItems": 1,
						"items":    map[string]any{"type": "string"},
					},
				},
				"required": []string{"ids"},
			},
			Handler: func(ctx context.Context, args domain.Args) (domain.ToolOutput, error) {
				deleted, err := store.Delete(ctx, args.StringSlice("ids"))
				if err != nil {
					return domain.ToolOutput{}, err
				}
				return domain.ToolOutput{
					Data:    map[string]any{"deleted": deleted},
					Message: fmt.Sprintf("deleted %d memories", deleted),
				}, nil
			},
			Meta:    meta,
			Timeout: timeout,
			Retry:   retry,
		},
	}
}
