package telemetry

import (
	"sync"
	"time"
)

// HealthReport is the JSON shape served on /healthz.
type HealthReport struct {
	Status   string            `json:"status"`
	Problems map[string]string `json:"problems,omitempty"`
	Uptime   string            `json:"uptime"`
}

// HealthTracker aggregates named problem flags into one process health
// status. Components set a problem when they degrade and clear it when they
// recover.
type HealthTracker struct {
	mu       sync.RWMutex
	problems map[string]string
	started  time.Time
}

func NewHealthTracker() *HealthTracker {
	return &HealthTracker{
		problems: make(map[string]string),
		started:  time.Now(),
	}
}

func (h *HealthTracker) SetProblem(component, detail string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.problems[component] = detail
}

func (h *HealthTracker) ClearProblem(component string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.problems, component)
}

func (h *HealthTracker) Report() HealthReport {
	h.mu.RLock()
	defer h.mu.RUnlock()

	report := HealthReport{
		Status: "ok",
		Uptime: time.Since(h.started).Round(time.Second).String(),
	}
	if len(h.problems) > 0 {
		report.Status = "degraded"
		report.Problems = make(map[string]string, len(h.problems))
		for component, detail := range h.problems {
			report.Problems[component] = detail
		}
	}
	return report
}
