package domain

import "time"

// DispatchStatus labels the outcome of a dispatched tool call.
type DispatchStatus string

const (
	// DispatchStatusSuccess indicates the call produced a success result.
	DispatchStatusSuccess DispatchStatus = "success"
	// DispatchStatusFailure indicates the call produced a failure result.
	DispatchStatusFailure DispatchStatus = "failure"
)

// DispatchMetric is one observed tool invocation.
type DispatchMetric struct {
	Tool     ToolName
	Category Category
	Status   DispatchStatus
	Code     ErrorCode
	Duration time.Duration
}

type Metrics interface {
	ObserveDispatch(DispatchMetric)
	ObserveCache(tool ToolName, hit bool)
	ObserveRateLimited(tool ToolName)
	SetBrowserSessions(count int)
}

type NopMetrics struct{}

func (NopMetrics) ObserveDispatch(DispatchMetric) {}
func (NopMetrics) ObserveCache(ToolName, bool)    {}
func (NopMetrics) ObserveRateLimited(ToolName)    {}
func (NopMetrics) SetBrowserSessions(int)         {}

var _ Metrics = NopMetrics{}
