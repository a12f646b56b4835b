// Package metrics holds the Prometheus instrumentation for the analysis
// pipeline and serves /metrics plus a liveness endpoint.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the signal engine.
type Metrics struct {
	TicksTotal    prometheus.Counter
	TicksRejected *prometheus.CounterVec // labels: reason
	RingDrops     prometheus.Counter
	ReorderDepth  prometheus.Gauge
	WatermarkLag  prometheus.Gauge // watermark delay vs wall clock, seconds

	BarsClosed      *prometheus.CounterVec // labels: tf
	BarsSynthesized *prometheus.CounterVec // labels: tf

	IndicatorComputeDur prometheus.Histogram
	SnapshotsTotal      prometheus.Counter

	SignalsTotal   *prometheus.CounterVec // labels: action
	DecisionsTotal *prometheus.CounterVec // labels: verdict
	DecisionDrops  prometheus.Counter

	PipelineFaults prometheus.Counter
	PipelinesLive  prometheus.Gauge
}

// New registers and returns all metrics on a fresh registry, which is also
// returned so the server can expose exactly this set.
func New() (*Metrics, *prometheus.Registry) {
	m := &Metrics{
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_ticks_total",
			Help: "Total ticks accepted at the ingest boundary",
		}),
		TicksRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_ticks_rejected_total",
			Help: "Ticks rejected at ingest (by reason)",
		}, []string{"reason"}),
		RingDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_ring_drops_total",
			Help: "Ticks dropped by the bounded ingest queue",
		}),
		ReorderDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "engine_reorder_buffer_depth",
			Help: "Current reorder buffer occupancy",
		}),
		WatermarkLag: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "engine_watermark_lag_seconds",
			Help: "Delay between the instrument watermark and wall clock",
		}),
		BarsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_bars_closed_total",
			Help: "Closed bars emitted (by timeframe)",
		}, []string{"tf"}),
		BarsSynthesized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_bars_synthesized_total",
			Help: "Zero-volume gap-fill bars emitted (by timeframe)",
		}, []string{"tf"}),
		IndicatorComputeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "engine_indicator_compute_duration_seconds",
			Help:    "Indicator engine compute latency per closed bar",
			Buckets: []float64{0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001},
		}),
		SnapshotsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_indicator_snapshots_total",
			Help: "Indicator snapshots emitted",
		}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_signals_total",
			Help: "Signals emitted (by action)",
		}, []string{"action"}),
		DecisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_risk_decisions_total",
			Help: "Risk decisions produced (by verdict)",
		}, []string{"verdict"}),
		DecisionDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_decision_drops_total",
			Help: "Decisions dropped for slow subscribers",
		}),
		PipelineFaults: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_pipeline_faults_total",
			Help: "Instrument pipelines torn down by a stage fault",
		}),
		PipelinesLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "engine_pipelines_live",
			Help: "Instrument pipelines currently running",
		}),
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		m.TicksTotal, m.TicksRejected, m.RingDrops, m.ReorderDepth, m.WatermarkLag,
		m.BarsClosed, m.BarsSynthesized,
		m.IndicatorComputeDur, m.SnapshotsTotal,
		m.SignalsTotal, m.DecisionsTotal, m.DecisionDrops,
		m.PipelineFaults, m.PipelinesLive,
	)
	return m, reg
}

// Server exposes /metrics and /healthz.
type Server struct {
	srv *http.Server
}

// NewServer creates the metrics HTTP server for the given registry.
func NewServer(addr string, reg *prometheus.Registry) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &Server{srv: &http.Server{Addr: addr, Handler: mux}}
}

// Start serves in a background goroutine.
func (s *Server) Start() {
	go func() { _ = s.srv.ListenAndServe() }()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = s.srv.Shutdown(ctx)
}
