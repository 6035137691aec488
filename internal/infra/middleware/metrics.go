package middleware

import (
	"context"
	"sync"
	"time"

	"tooldeck/internal/domain"
)

// ToolStats is the accumulated picture of one tool's invocations.
type ToolStats struct {
	Total         uint64
	Success       uint64
	Failure       uint64
	TotalDuration time.Duration
}

// AverageDuration is the mean response time across all invocations.
func (s ToolStats) AverageDuration() time.Duration {
	if s.Total == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(s.Total)
}

// Recorder keeps in-process per-tool counters, queryable by tool name.
type Recorder struct {
	mu     sync.RWMutex
	byTool map[domain.ToolName]ToolStats
}

func NewRecorder() *Recorder {
	return &Recorder{byTool: make(map[domain.ToolName]ToolStats)}
}

func (r *Recorder) observe(tool domain.ToolName, succeeded bool, duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := r.byTool[tool]
	stats.Total++
	if succeeded {
		stats.Success++
	} else {
		stats.Failure++
	}
	stats.TotalDuration += duration
	r.byTool[tool] = stats
}

// SnapshotFor returns the stats recorded for tool so far.
func (r *Recorder) SnapshotFor(tool domain.ToolName) (ToolStats, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats, ok := r.byTool[tool]
	return stats, ok
}

// Metrics brackets the remaining chain with timing and outcome accounting,
// feeding both the in-process recorder and the exported metrics sink.
func Metrics(recorder *Recorder, sink domain.Metrics) Middleware {
	if sink == nil {
		sink = domain.NopMetrics{}
	}

	return func(next Handler) Handler {
		return func(ctx context.Context, call *Call) (domain.ToolResult, error) {
			start := time.Now()
			result, err := next(ctx, call)
			duration := time.Since(start)

			status := domain.DispatchStatusSuccess
			var code domain.ErrorCode
			if err != nil {
				status = domain.DispatchStatusFailure
				code = domain.CodeOf(err)
			}
			if recorder != nil {
				recorder.observe(call.Tool, err == nil, duration)
			}
			sink.ObserveDispatch(domain.DispatchMetric{
				Tool:     call.Tool,
				Category: call.Meta.Category,
				Status:   status,
				Code:     code,
				Duration: duration,
			})
			return result, err
		}
	}
}
