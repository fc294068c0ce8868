// Package metrics holds the Prometheus instrumentation for the refresh
// pipeline, the upstream providers and the guard state.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// Registry bundles all collectors behind one Prometheus registry so tests
// can build isolated instances.
type Registry struct {
	reg *prometheus.Registry

	RefreshDuration prometheus.Histogram
	RefreshCycles   *prometheus.CounterVec
	ProviderCalls   *prometheus.CounterVec
	ProviderLatency *prometheus.HistogramVec
	AssetsScored    prometheus.Gauge
	GuardState      *prometheus.GaugeVec
	TradesLogged    prometheus.Counter
}

// NewRegistry creates and registers every collector.
func NewRegistry() *Registry {
	r := &Registry{reg: prometheus.NewRegistry()}

	r.RefreshDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "edgewatch_refresh_duration_seconds",
		Help:    "Wall time of one full refresh cycle",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})
	r.RefreshCycles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "edgewatch_refresh_cycles_total",
		Help: "Refresh cycles by result",
	}, []string{"result"})
	r.ProviderCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "edgewatch_provider_requests_total",
		Help: "Upstream provider requests by provider and result",
	}, []string{"provider", "result"})
	r.ProviderLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "edgewatch_provider_latency_seconds",
		Help:    "Upstream provider request latency",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"provider"})
	r.AssetsScored = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "edgewatch_assets_scored",
		Help: "Assets scored in the last refresh cycle",
	})
	r.GuardState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "edgewatch_guard_state",
		Help: "Current guard state (1 for the active state, 0 otherwise)",
	}, []string{"state"})
	r.TradesLogged = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "edgewatch_trades_logged_total",
		Help: "Trades appended to the daily journal",
	})

	r.reg.MustRegister(
		r.RefreshDuration, r.RefreshCycles, r.ProviderCalls, r.ProviderLatency,
		r.AssetsScored, r.GuardState, r.TradesLogged,
	)
	return r
}

// RecordProviderCall tracks one upstream request outcome.
func (r *Registry) RecordProviderCall(provider string, ok bool, d time.Duration) {
	result := "ok"
	if !ok {
		result = "error"
	}
	r.ProviderCalls.WithLabelValues(provider, result).Inc()
	r.ProviderLatency.WithLabelValues(provider).Observe(d.Seconds())
}

// SetGuardState flips the one-hot guard state gauge.
func (r *Registry) SetGuardState(state string) {
	for _, s := range []string{"UNCOMMITTED", "ACTIVE", "LOCKED"} {
		v := 0.0
		if s == state {
			v = 1.0
		}
		r.GuardState.WithLabelValues(s).Set(v)
	}
}

// Handler serves the registry in Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// CounterValue reads a gathered counter back out, used by the health
// endpoint to report request totals without a second bookkeeping path.
func (r *Registry) CounterValue(name string) float64 {
	families, err := r.reg.Gather()
	if err != nil {
		return 0
	}
	var total float64
	for _, mf := range families {
		if mf.GetName() != name || mf.GetType() != dto.MetricType_COUNTER {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}
