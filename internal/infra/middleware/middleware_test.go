package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tooldeck/internal/domain"
	"tooldeck/internal/infra/cache"
)

type recordingMetrics struct {
	mu          sync.Mutex
	dispatches  []domain.DispatchMetric
	cacheEvents []bool
	rateLimited []domain.ToolName
}

func (m *recordingMetrics) ObserveDispatch(metric domain.DispatchMetric) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatches = append(m.dispatches, metric)
}

func (m *recordingMetrics) ObserveCache(_ domain.ToolName, hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheEvents = append(m.cacheEvents, hit)
}

func (m *recordingMetrics) ObserveRateLimited(tool domain.ToolName) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rateLimited = append(m.rateLimited, tool)
}

func (m *recordingMetrics) SetBrowserSessions(int) {}

func tracingMiddleware(name string, order *[]string) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, call *Call) (domain.ToolResult, error) {
			*order = append(*order, name+"-before")
			result, err := next(ctx, call)
			*order = append(*order, name+"-after")
			return result, err
		}
	}
}

func TestChain_OrderIsOnionShaped(t *testing.T) {
	var order []string
	chain := Chain(
		tracingMiddleware("a", &order),
		tracingMiddleware("b", &order),
		tracingMiddleware("c", &order),
	)

	handler := chain(func(ctx context.Context, call *Call) (domain.ToolResult, error) {
		order = append(order, "handler")
		return domain.Success(domain.ToolOutput{Data: "ok"}), nil
	})

	result, err := handler(context.Background(), &Call{Tool: "git_status"})
	require.NoError(t, err)
	assert.True(t, result.OK)

	assert.Equal(t, []string{
		"a-before", "b-before", "c-before",
		"handler",
		"c-after", "b-after", "a-after",
	}, order)
}

func TestChain_ShortCircuitSkipsInnerLayers(t *testing.T) {
	var order []string
	shortCircuit := Middleware(func(next Handler) Handler {
		return func(ctx context.Context, call *Call) (domain.ToolResult, error) {
			order = append(order, "b-reject")
			return domain.ToolResult{}, domain.E(domain.CodeRateLimited, "test", "rejected", nil)
		}
	})

	chain := Chain(
		tracingMiddleware("a", &order),
		shortCircuit,
		tracingMiddleware("c", &order),
	)

	handlerCalled := false
	handler := chain(func(ctx context.Context, call *Call) (domain.ToolResult, error) {
		handlerCalled = true
		return domain.Success(domain.ToolOutput{}), nil
	})

	_, err := handler(context.Background(), &Call{Tool: "git_status"})
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeRateLimited))

	assert.False(t, handlerCalled, "handler must not run past a short-circuit")
	assert.Equal(t, []string{"a-before", "b-reject", "a-after"}, order,
		"outer layers still unwind, inner layers never run")
}

func TestChain_EmptyReturnsTerminalUnchanged(t *testing.T) {
	handler := Chain()(func(ctx context.Context, call *Call) (domain.ToolResult, error) {
		return domain.Success(domain.ToolOutput{Data: 42}), nil
	})

	result, err := handler(context.Background(), &Call{})
	require.NoError(t, err)
	assert.Equal(t, 42, result.Data)
}

func TestNormalize_WrapsRawErrors(t *testing.T) {
	handler := Normalize()(func(ctx context.Context, call *Call) (domain.ToolResult, error) {
		return domain.ToolResult{}, errors.New("socket closed")
	})

	_, err := handler(context.Background(), &Call{Tool: "browser_navigate"})
	require.Error(t, err)

	var structured *domain.Error
	require.ErrorAs(t, err, &structured)
	assert.Equal(t, domain.CodeInternal, structured.Code)
	assert.Equal(t, "socket closed", structured.Message)
}

func TestNormalize_KeepsStructuredErrors(t *testing.T) {
	original := domain.E(domain.CodeAuthFailure, "gh.CreateIssue", "missing token", nil)
	handler := Normalize()(func(ctx context.Context, call *Call) (domain.ToolResult, error) {
		return domain.ToolResult{}, original
	})

	_, err := handler(context.Background(), &Call{Tool: "github_create_issue"})
	require.Error(t, err)

	var structured *domain.Error
	require.ErrorAs(t, err, &structured)
	assert.Same(t, original, structured)
}

func TestNormalize_RecoversPanics(t *testing.T) {
	handler := Normalize()(func(ctx context.Context, call *Call) (domain.ToolResult, error) {
		panic("nil map write")
	})

	var result domain.ToolResult
	var err error
	require.NotPanics(t, func() {
		result, err = handler(context.Background(), &Call{Tool: "agent_execute"})
	})

	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeInternal))
	assert.Contains(t, err.Error(), "handler panic: nil map write")
	assert.False(t, result.OK)
}

func TestMetrics_RecordsOutcomes(t *testing.T) {
	recorder := NewRecorder()
	sink := &recordingMetrics{}

	succeed := true
	handler := Metrics(recorder, sink)(func(ctx context.Context, call *Call) (domain.ToolResult, error) {
		if !succeed {
			return domain.ToolResult{}, domain.E(domain.CodeTimeout, "test", "too slow", nil)
		}
		return domain.Success(domain.ToolOutput{}), nil
	})

	call := &Call{Tool: "git_status", Meta: domain.ToolMeta{Category: domain.CategoryGit}}
	_, err := handler(context.Background(), call)
	require.NoError(t, err)
	_, err = handler(context.Background(), call)
	require.NoError(t, err)

	succeed = false
	_, err = handler(context.Background(), call)
	require.Error(t, err)

	stats, ok := recorder.SnapshotFor("git_status")
	require.True(t, ok)
	assert.Equal(t, uint64(3), stats.Total)
	assert.Equal(t, uint64(2), stats.Success)
	assert.Equal(t, uint64(1), stats.Failure)

	require.Len(t, sink.dispatches, 3)
	assert.Equal(t, domain.DispatchStatusSuccess, sink.dispatches[0].Status)
	assert.Equal(t, domain.DispatchStatusFailure, sink.dispatches[2].Status)
	assert.Equal(t, domain.CodeTimeout, sink.dispatches[2].Code)
	assert.Equal(t, domain.CategoryGit, sink.dispatches[2].Category)
}

func TestToolStats_AverageDuration(t *testing.T) {
	assert.Equal(t, time.Duration(0), ToolStats{}.AverageDuration())

	stats := ToolStats{Total: 4, TotalDuration: 200 * time.Millisecond}
	assert.Equal(t, 50*time.Millisecond, stats.AverageDuration())
}

func TestRateLimit_RejectsBeyondBurst(t *testing.T) {
	limiter := NewRateLimiter(domain.RateLimitConfig{Enabled: true, PerMinute: 60, Burst: 2})
	sink := &recordingMetrics{}

	calls := 0
	handler := RateLimit(limiter, sink)(func(ctx context.Context, call *Call) (domain.ToolResult, error) {
		calls++
		return domain.Success(domain.ToolOutput{}), nil
	})

	call := &Call{Tool: "github_create_issue"}
	for i := 0; i < 2; i++ {
		_, err := handler(context.Background(), call)
		require.NoError(t, err)
	}

	_, err := handler(context.Background(), call)
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeRateLimited))
	assert.Contains(t, err.Error(), "github_create_issue")

	assert.Equal(t, 2, calls, "rejected call must not reach the handler")
	assert.Equal(t, []domain.ToolName{"github_create_issue"}, sink.rateLimited)
}

func TestRateLimit_BucketsArePerTool(t *testing.T) {
	limiter := NewRateLimiter(domain.RateLimitConfig{Enabled: true, PerMinute: 60, Burst: 1})

	assert.True(t, limiter.Allow("git_status"))
	assert.False(t, limiter.Allow("git_status"))
	assert.True(t, limiter.Allow("git_pull"), "a saturated bucket must not bleed into other tools")
}

func TestRateLimit_DisabledAdmitsEverything(t *testing.T) {
	limiter := NewRateLimiter(domain.RateLimitConfig{Enabled: false, PerMinute: 1, Burst: 1})

	for i := 0; i < 50; i++ {
		require.True(t, limiter.Allow("git_status"))
	}

	var nilLimiter *RateLimiter
	assert.True(t, nilLimiter.Allow("git_status"))
}

func TestCaching_ReadOnlyCallsAreCached(t *testing.T) {
	store := cache.NewTTL[domain.ToolResult](time.Minute, 16)
	sink := &recordingMetrics{}

	calls := 0
	handler := Caching(store, sink)(func(ctx context.Context, call *Call) (domain.ToolResult, error) {
		calls++
		return domain.Success(domain.ToolOutput{Data: "listing"}), nil
	})

	call := &Call{
		Tool: "github_list_issues",
		Meta: domain.ToolMeta{ReadOnly: true},
		Args: domain.Args{"owner": "octo", "repo": "deck"},
	}

	first, err := handler(context.Background(), call)
	require.NoError(t, err)
	second, err := handler(context.Background(), call)
	require.NoError(t, err)

	assert.Equal(t, 1, calls, "second identical call must be served from cache")
	assert.Equal(t, first.Data, second.Data)
	assert.Equal(t, []bool{false, true}, sink.cacheEvents)
}

func TestCaching_KeyIncludesArguments(t *testing.T) {
	store := cache.NewTTL[domain.ToolResult](time.Minute, 16)

	calls := 0
	handler := Caching(store, nil)(func(ctx context.Context, call *Call) (domain.ToolResult, error) {
		calls++
		return domain.Success(domain.ToolOutput{}), nil
	})

	meta := domain.ToolMeta{ReadOnly: true}
	_, err := handler(context.Background(), &Call{Tool: "search_memory", Meta: meta, Args: domain.Args{"query": "go"}})
	require.NoError(t, err)
	_, err = handler(context.Background(), &Call{Tool: "search_memory", Meta: meta, Args: domain.Args{"query": "rust"}})
	require.NoError(t, err)

	assert.Equal(t, 2, calls, "different arguments must compute separately")
}

func TestCaching_MutatingToolsBypass(t *testing.T) {
	store := cache.NewTTL[domain.ToolResult](time.Minute, 16)

	calls := 0
	handler := Caching(store, nil)(func(ctx context.Context, call *Call) (domain.ToolResult, error) {
		calls++
		return domain.Success(domain.ToolOutput{}), nil
	})

	call := &Call{Tool: "git_commit", Meta: domain.ToolMeta{ReadOnly: false}, Args: domain.Args{"message": "wip"}}
	for i := 0; i < 3; i++ {
		_, err := handler(context.Background(), call)
		require.NoError(t, err)
	}

	assert.Equal(t, 3, calls)
	assert.Equal(t, 0, store.Size())
}

func TestCaching_ErrorsAreNotStored(t *testing.T) {
	store := cache.NewTTL[domain.ToolResult](time.Minute, 16)

	calls := 0
	handler := Caching(store, nil)(func(ctx context.Context, call *Call) (domain.ToolResult, error) {
		calls++
		if calls == 1 {
			return domain.ToolResult{}, domain.E(domain.CodeInternal, "test", "flaky backend", nil)
		}
		return domain.Success(domain.ToolOutput{Data: "recovered"}), nil
	})

	call := &Call{Tool: "git_status", Meta: domain.ToolMeta{ReadOnly: true}}
	_, err := handler(context.Background(), call)
	require.Error(t, err)

	result, err := handler(context.Background(), call)
	require.NoError(t, err)
	assert.Equal(t, "recovered", result.Data)
	assert.Equal(t, 2, calls)
}

func TestBuiltin_RateLimitShieldsTheCache(t *testing.T) {
	store := cache.NewTTL[domain.ToolResult](time.Minute, 16)
	limiter := NewRateLimiter(domain.RateLimitConfig{Enabled: true, PerMinute: 60, Burst: 1})
	sink := &recordingMetrics{}

	chain := Builtin(Options{
		Recorder: NewRecorder(),
		Metrics:  sink,
		Limiter:  limiter,
		Cache:    store,
	})

	calls := 0
	handler := chain(func(ctx context.Context, call *Call) (domain.ToolResult, error) {
		calls++
		return domain.Success(domain.ToolOutput{Data: "status"}), nil
	})

	call := &Call{Tool: "git_status", Meta: domain.ToolMeta{ReadOnly: true, Category: domain.CategoryGit}}
	first, err := handler(context.Background(), call)
	require.NoError(t, err)
	assert.True(t, first.OK)

	// The second identical call would be a cache hit, but the rate limiter
	// sits in front of the cache and rejects it first.
	_, err = handler(context.Background(), call)
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeRateLimited))
	assert.Equal(t, 1, calls)
}
