package metrics

import (
	"net/http"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once              sync.Once
	registry          *prom.Registry
	stageDuration     *prom.HistogramVec
	buildDuration     prom.Histogram
	stageResults      *prom.CounterVec
	buildOutcome      *prom.CounterVec
	pagesRendered     prom.Counter
	syncDuration      *prom.HistogramVec
	searchQueries     prom.Counter
	livereloadClients prom.Gauge
}

// NewPrometheusRecorder constructs and registers the metric set (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{registry: reg}
	pr.once.Do(func() {
		pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "docsmith",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"})
		pr.buildDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "docsmith",
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		})
		pr.stageResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docsmith",
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"})
		pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docsmith",
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"})
		pr.pagesRendered = prom.NewCounter(prom.CounterOpts{
			Namespace: "docsmith",
			Name:      "pages_rendered_total",
			Help:      "Pages rendered across all builds",
		})
		pr.syncDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "docsmith",
			Name:      "source_sync_duration_seconds",
			Help:      "Duration of documentation source sync operations",
			Buckets:   prom.DefBuckets,
		}, []string{"result"})
		pr.searchQueries = prom.NewCounter(prom.CounterOpts{
			Namespace: "docsmith",
			Name:      "search_queries_total",
			Help:      "Serve-time search queries",
		})
		pr.livereloadClients = prom.NewGauge(prom.GaugeOpts{
			Namespace: "docsmith",
			Name:      "livereload_clients",
			Help:      "Connected livereload clients",
		})
		reg.MustRegister(pr.stageDuration, pr.buildDuration, pr.stageResults,
			pr.buildOutcome, pr.pagesRendered, pr.syncDuration,
			pr.searchQueries, pr.livereloadClients)
	})
	return pr
}

// Handler returns the HTTP handler serving this recorder's registry.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil || p.stageResults == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome string) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) AddPagesRendered(n int) {
	if p == nil || p.pagesRendered == nil {
		return
	}
	p.pagesRendered.Add(float64(n))
}

func (p *PrometheusRecorder) ObserveSourceSyncDuration(d time.Duration, success bool) {
	if p == nil || p.syncDuration == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.syncDuration.WithLabelValues(res).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncSearchQuery() {
	if p == nil || p.searchQueries == nil {
		return
	}
	p.searchQueries.Inc()
}

func (p *PrometheusRecorder) SetLiveReloadClients(n int) {
	if p == nil || p.livereloadClients == nil {
		return
	}
	p.livereloadClients.Set(float64(n))
}
