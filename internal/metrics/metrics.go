// Package metrics exposes Prometheus instrumentation for the monitoring cycle.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rewired-gh/pumpsentry/internal/models"
)

// Recorder implements monitor.Recorder using Prometheus.
type Recorder struct {
	cycles          *prometheus.CounterVec
	cycleDuration   prometheus.Histogram
	symbolsAnalyzed prometheus.Counter
	symbolFailures  prometheus.Counter
	signals         *prometheus.CounterVec
	notifyFailures  prometheus.Counter
	universeSize    prometheus.Gauge
	inflight        prometheus.Gauge
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer in production.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		cycles: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pumpsentry_cycles_total",
				Help: "Monitoring cycles by result",
			},
			[]string{"result"},
		),
		cycleDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pumpsentry_cycle_duration_seconds",
				Help:    "Duration of monitoring cycles in seconds",
				Buckets: []float64{1, 5, 10, 20, 30, 45, 60, 90, 120, 300},
			},
		),
		symbolsAnalyzed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pumpsentry_symbols_analyzed_total",
				Help: "Symbols whose candles were fetched and analysed",
			},
		),
		symbolFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pumpsentry_symbol_failures_total",
				Help: "Symbols skipped because of fetch errors, missing data or panics",
			},
		),
		signals: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pumpsentry_signals_total",
				Help: "Signals by kind and routing action",
			},
			[]string{"kind", "action"},
		),
		notifyFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pumpsentry_notify_failures_total",
				Help: "Notifications that could not be delivered",
			},
		),
		universeSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "pumpsentry_universe_size",
				Help: "Symbols in the current filtered universe",
			},
		),
		inflight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "pumpsentry_inflight_symbols",
				Help: "Symbols currently being fetched and analysed",
			},
		),
	}
}

// CycleFinished records a cycle result. Overlapping cycles carry no duration.
func (r *Recorder) CycleFinished(result string, elapsed time.Duration) {
	r.cycles.WithLabelValues(result).Inc()
	if elapsed > 0 {
		r.cycleDuration.Observe(elapsed.Seconds())
	}
}

func (r *Recorder) UniverseSize(n int) {
	r.universeSize.Set(float64(n))
}

func (r *Recorder) SymbolAnalyzed() {
	r.symbolsAnalyzed.Inc()
}

func (r *Recorder) SymbolFailed() {
	r.symbolFailures.Inc()
}

func (r *Recorder) SignalRouted(kind models.Kind, action string) {
	r.signals.WithLabelValues(string(kind), action).Inc()
}

func (r *Recorder) NotifyFailed() {
	r.notifyFailures.Inc()
}

func (r *Recorder) InflightInc() {
	r.inflight.Inc()
}

func (r *Recorder) InflightDec() {
	r.inflight.Dec()
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
