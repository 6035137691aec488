package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"tooldeck/internal/domain"
)

type PrometheusMetrics struct {
	dispatchDuration *prometheus.HistogramVec
	dispatchTotal    *prometheus.CounterVec
	cacheEvents      *prometheus.CounterVec
	rateLimited      *prometheus.CounterVec
	browserSessions  prometheus.Gauge
}

func NewPrometheusMetrics(registerer prometheus.Registerer) *PrometheusMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &PrometheusMetrics{
		dispatchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tooldeck_dispatch_duration_seconds",
				Help:    "Duration of tool dispatches in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"tool", "status"},
		),
		dispatchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tooldeck_dispatch_total",
				Help: "Total number of tool dispatches",
			},
			[]string{"tool", "category", "status", "code"},
		),
		cacheEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tooldeck_cache_events_total",
				Help: "Cache lookups for read-only tools",
			},
			[]string{"tool", "outcome"},
		),
		rateLimited: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tooldeck_rate_limited_total",
				Help: "Dispatches rejected by the rate limiter",
			},
			[]string{"tool"},
		),
		browserSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "tooldeck_browser_sessions",
				Help: "Number of live browser sessions",
			},
		),
	}
}

func (p *PrometheusMetrics) ObserveDispatch(m domain.DispatchMetric) {
	p.dispatchDuration.WithLabelValues(string(m.Tool), string(m.Status)).Observe(m.Duration.Seconds())
	p.dispatchTotal.WithLabelValues(string(m.Tool), string(m.Category), string(m.Status), string(m.Code)).Inc()
}

func (p *PrometheusMetrics) ObserveCache(tool domain.ToolName, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	p.cacheEvents.WithLabelValues(string(tool), outcome).Inc()
}

func (p *PrometheusMetrics) ObserveRateLimited(tool domain.ToolName) {
	p.rateLimited.WithLabelValues(string(tool)).Inc()
}

func (p *PrometheusMetrics) SetBrowserSessions(count int) {
	p.browserSessions.Set(float64(count))
}

var _ domain.Metrics = (*PrometheusMetrics)(nil)
