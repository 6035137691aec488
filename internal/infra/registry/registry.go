package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"tooldeck/internal/domain"
	"tooldeck/internal/infra/middleware"
	"tooldeck/internal/infra/resilience"
	"tooldeck/internal/infra/telemetry"
	"tooldeck/internal/infra/validate"
)

// Registry owns the tool catalogue and drives every call through schema
// validation, the middleware chain and the per-tool resilience policy.
// Registration happens during startup; afterwards the catalogue is
// read-only.
type Registry struct {
	mu      sync.RWMutex
	entries map[domain.ToolName]*entry

	validator *validate.Registry
	chain     middleware.Middleware
	state     *domain.State
	logger    *zap.Logger
}

type entry struct {
	descriptor domain.ToolDescriptor
	invoke     middleware.Handler
}

type Options struct {
	// Chain wraps every registered handler. A nil chain dispatches the
	// terminal handler directly.
	Chain  middleware.Middleware
	State  *domain.State
	Logger *zap.Logger
}

func New(opts Options) *Registry {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	chain := opts.Chain
	if chain == nil {
		chain = middleware.Chain()
	}
	state := opts.State
	if state == nil {
		state = domain.NewState()
	}

	return &Registry{
		entries:   make(map[domain.ToolName]*entry),
		validator: validate.NewRegistry(),
		chain:     chain,
		state:     state,
		logger:    logger.Named("registry"),
	}
}

// Register compiles the descriptor's input schema and adds it to the
// catalogue. Registering a name twice is a startup bug and fails loudly.
func (r *Registry) Register(desc domain.ToolDescriptor) error {
	if err := desc.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[desc.Name]; exists {
		return domain.E(domain.CodeInvalidParams, "registry.Register",
			fmt.Sprintf("tool %s registered twice", desc.Name), nil)
	}
	if err := r.validator.Compile(desc.Name, desc.Schema); err != nil {
		return err
	}

	r.entries[desc.Name] = &entry{
		descriptor: desc,
		invoke:     r.chain(terminal(desc)),
	}
	r.logger.Debug("tool registered",
		telemetry.ToolField(desc.Name),
		telemetry.CategoryField(desc.Meta.Category))
	return nil
}

func (r *Registry) RegisterAll(descriptors ...domain.ToolDescriptor) error {
	for _, desc := range descriptors {
		if err := r.Register(desc); err != nil {
			return err
		}
	}
	return nil
}

// List returns the advertised catalogue sorted by tool name.
func (r *Registry) List() []domain.ToolSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summaries := make([]domain.ToolSummary, 0, len(r.entries))
	for _, e := range r.entries {
		summaries = append(summaries, domain.ToolSummary{
			Name:        e.descriptor.Name,
			Description: e.descriptor.Description,
			Schema:      e.descriptor.Schema,
		})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Name < summaries[j].Name })
	return summaries
}

// Descriptor returns the registered descriptor for name.
func (r *Registry) Descriptor(name domain.ToolName) (domain.ToolDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return domain.ToolDescriptor{}, false
	}
	return e.descriptor, true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Dispatch runs one tool call end to end: lookup, validation, middleware
// chain, handler. It always returns a result and never panics; every
// failure along the way comes back as a Failure-tagged result. The request
// counter and last-activity stamp advance on every call, failed or not.
func (r *Registry) Dispatch(ctx context.Context, name domain.ToolName, rawArgs json.RawMessage) (result domain.ToolResult) {
	r.state.RecordDispatch()

	defer func() {
		if recovered := recover(); recovered != nil {
			r.logger.Error("dispatch panic",
				telemetry.ToolField(name),
				zap.Any("panic", recovered))
			result = domain.Failure(domain.E(domain.CodeInternal, "registry.Dispatch",
				fmt.Sprintf("dispatch panic: %v", recovered), nil))
		}
	}()

	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return domain.Failure(domain.E(domain.CodeNotFound, "registry.Dispatch",
			fmt.Sprintf("unknown tool: %s", name), nil))
	}

	args, err := r.validator.Validate(name, rawArgs)
	if err != nil {
		return domain.Failure(err)
	}

	result, err = e.invoke(ctx, &middleware.Call{
		Tool: e.descriptor.Name,
		Meta: e.descriptor.Meta,
		Args: args,
	})
	if err != nil {
		return domain.Failure(err)
	}
	return result
}

// terminal is the innermost link of the chain. It runs the handler under
// the descriptor's retry policy, with the timeout budget spanning all
// attempts together.
func terminal(desc domain.ToolDescriptor) middleware.Handler {
	return func(ctx context.Context, call *middleware.Call) (domain.ToolResult, error) {
		run := func(ctx context.Context) (domain.ToolOutput, error) {
			if desc.Retry == nil {
				return desc.Handler(ctx, call.Args)
			}
			return resilience.RetryValue(ctx, *desc.Retry, func(ctx context.Context) (domain.ToolOutput, error) {
				return desc.Handler(ctx, call.Args)
			})
		}

		out, err := resilience.TimeoutValue(ctx, desc.Timeout,
			fmt.Sprintf("tool %s timed out after %s", desc.Name, desc.Timeout), run)
		if err != nil {
			return domain.ToolResult{}, err
		}
		return domain.Success(out), nil
	}
}
