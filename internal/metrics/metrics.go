package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nao1215/waypoint/internal/address"
	"github.com/nao1215/waypoint/internal/cache"
	"github.com/nao1215/waypoint/internal/model"
)

const namespace = "waypoint"

// Metrics records cascade events. It satisfies the resolver's observer
// interface and owns its registry.
type Metrics struct {
	registry *prometheus.Registry

	attempts        *prometheus.CounterVec
	attemptDuration *prometheus.HistogramVec
	skips           *prometheus.CounterVec
	resolutions     *prometheus.CounterVec
}

// New creates Metrics registered on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		attempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "strategy_attempts_total",
				Help:      "Strategy attempts by strategy and outcome.",
			},
			[]string{"strategy", "outcome"},
		),
		attemptDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "strategy_attempt_duration_seconds",
				Help:      "Duration of strategy attempts.",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2, 3, 5, 10},
			},
			[]string{"strategy"},
		),
		skips: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "strategy_skips_total",
				Help:      "Strategies skipped because they did not apply or were disabled.",
			},
			[]string{"strategy"},
		),
		resolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolutions_total",
				Help:      "Finished resolutions by address kind, status and winning strategy.",
			},
			[]string{"kind", "status", "strategy", "cached"},
		),
	}
}

// Registry returns the registry holding all metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveAttempt implements the resolver observer.
func (m *Metrics) ObserveAttempt(_ address.Address, a model.Attempt) {
	m.attempts.WithLabelValues(a.Strategy, attemptOutcome(a)).Inc()
	m.attemptDuration.WithLabelValues(a.Strategy).Observe(a.Duration.Seconds())
}

// ObserveSkip implements the resolver observer.
func (m *Metrics) ObserveSkip(_ address.Address, strategy string) {
	m.skips.WithLabelValues(strategy).Inc()
}

// ObserveResult implements the resolver observer.
func (m *Metrics) ObserveResult(r model.Result) {
	strategy := r.Strategy
	if strategy == "" {
		strategy = "none"
	}
	cached := "false"
	if r.Cached {
		cached = "true"
	}
	m.resolutions.WithLabelValues(r.Address.Kind.String(), r.Status.String(), strategy, cached).Inc()
}

// RegisterCache exports the counters of c.
func (m *Metrics) RegisterCache(c *cache.Cache) {
	factory := promauto.With(m.registry)
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "entries",
		Help:      "Resolutions held in memory.",
	}, func() float64 { return float64(c.Stats().Entries) })
	factory.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Cache lookups that found a resolution.",
	}, func() float64 { return float64(c.Stats().Hits) })
	factory.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Cache lookups that found nothing.",
	}, func() float64 { return float64(c.Stats().Misses) })
	factory.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "shared_total",
		Help:      "Callers that joined a resolution already in flight.",
	}, func() float64 { return float64(c.Stats().Shared) })
}

func attemptOutcome(a model.Attempt) string {
	switch {
	case a.Success:
		return "success"
	case a.TimedOut:
		return "timeout"
	default:
		return "failure"
	}
}
