package domain

import (
	"context"
	"errors"
	"time"
)

type ToolName string

func (n ToolName) String() string { return string(n) }

type Category string

const (
	CategoryBrowser Category = "browser"
	CategoryGitHub  Category = "github"
	CategoryGit     Category = "git"
	CategoryMemory  Category = "memory"
	CategoryAgent   Category = "agent"
)

// ToolMeta describes dispatch-relevant properties of a tool. ReadOnly marks
// the tool safe for response caching; RequiresAuth marks tools that need an
// external credential before first use.
type ToolMeta struct {
	ReadOnly     bool
	RequiresAuth bool
	Category     Category
}

// RetryPolicy re-executes a failed handler. Attempts counts additional
// attempts after the first; the delay between attempts is fixed.
type RetryPolicy struct {
	Attempts uint
	Delay    time.Duration
}

// Args is a validated, default-filled argument bag decoded from JSON, so
// numbers arrive as float64 and arrays as []any. The accessors tolerate
// missing keys and return zero values.
type Args map[string]any

func (a Args) String(key string) string {
	v, _ := a[key].(string)
	return v
}

func (a Args) Bool(key string) bool {
	v, _ := a[key].(bool)
	return v
}

func (a Args) Int(key string) int {
	switch v := a[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

func (a Args) StringSlice(key string) []string {
	raw, ok := a[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (a Args) ObjectSlice(key string) []map[string]any {
	raw, ok := a[key].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// ToolOutput is what a handler produces on success: a data payload plus an
// optional human-readable message.
type ToolOutput struct {
	Data    any
	Message string
}

type Handler func(ctx context.Context, args Args) (ToolOutput, error)

// ToolDescriptor binds a tool name to its schema, handler and dispatch
// policy. Descriptors are registered once at startup and never mutated.
type ToolDescriptor struct {
	Name        ToolName
	Description string
	Schema      map[string]any
	Handler     Handler
	Meta        ToolMeta

	// Timeout bounds the caller's wait for the handler; zero disables it.
	// Retry re-runs the handler on failure; nil disables it.
	Timeout time.Duration
	Retry   *RetryPolicy
}

func (d ToolDescriptor) Validate() error {
	if d.Name == "" {
		return E(CodeInvalidParams, "domain.ToolDescriptor", "tool name is empty", nil)
	}
	if d.Handler == nil {
		return E(CodeInvalidParams, "domain.ToolDescriptor", "tool "+string(d.Name)+" has no handler", nil)
	}
	if len(d.Schema) == 0 {
		return E(CodeInvalidParams, "domain.ToolDescriptor", "tool "+string(d.Name)+" has no input schema", nil)
	}
	return nil
}

// ToolSummary is the public-facing descriptor shape advertised to callers.
type ToolSummary struct {
	Name        ToolName       `json:"name"`
	Description string         `json:"description"`
	Schema      map[string]any `json:"inputSchema"`
}

// ToolResult is the uniform dispatch outcome: a tagged success carrying data
// and a message, or a tagged failure carrying a structured error. Dispatch
// always returns one of the two and never propagates an error value.
type ToolResult struct {
	OK      bool
	Data    any
	Message string
	Err     *Error
}

func Success(out ToolOutput) ToolResult {
	return ToolResult{OK: true, Data: out.Data, Message: out.Message}
}

func Failure(err error) ToolResult {
	if err == nil {
		err = E(CodeUnknown, "", "failure with no error", nil)
	}
	var structured *Error
	if !errors.As(err, &structured) {
		structured = &Error{Code: CodeOf(err), Message: err.Error(), Cause: err}
	}
	return ToolResult{OK: false, Err: structured}
}
