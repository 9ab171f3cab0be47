package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder implements Recorder backed by Prometheus collectors.
type PrometheusRecorder struct {
	resolveCache    *prometheus.CounterVec
	resolveOutcome  *prometheus.CounterVec
	resolveDuration prometheus.Histogram
	linkOps         *prometheus.CounterVec
	statRecorded    *prometheus.CounterVec
	statQueueDepth  prometheus.Gauge
	sweepRuns       *prometheus.CounterVec
	sweepDeleted    prometheus.Histogram
}

// NewPrometheus returns a Recorder registered on the given registerer.
func NewPrometheus(reg prometheus.Registerer) *PrometheusRecorder {
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		resolveCache: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trimlink_resolve_cache_total",
			Help: "Link resolutions by cache result.",
		}, []string{"result"}),
		resolveOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trimlink_resolve_outcome_total",
			Help: "Link resolutions by terminal state.",
		}, []string{"outcome"}),
		resolveDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "trimlink_resolve_duration_seconds",
			Help:    "Time to resolve a short URL to a redirect decision.",
			Buckets: prometheus.DefBuckets,
		}),
		linkOps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trimlink_link_operations_total",
			Help: "Link mutations by operation.",
		}, []string{"op"}),
		statRecorded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trimlink_click_stats_total",
			Help: "Click stat submissions by status.",
		}, []string{"status"}),
		statQueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "trimlink_click_stat_queue_depth",
			Help: "Pending click stats in the recorder queue.",
		}),
		sweepRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trimlink_expiry_sweep_runs_total",
			Help: "Expiry sweep cycles by status.",
		}, []string{"status"}),
		sweepDeleted: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "trimlink_expiry_sweep_deleted",
			Help:    "Expired links deleted per sweep.",
			Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000},
		}),
	}
}

func (p *PrometheusRecorder) IncResolveCacheHit() {
	p.resolveCache.WithLabelValues("hit").Inc()
}

func (p *PrometheusRecorder) IncResolveCacheMiss() {
	p.resolveCache.WithLabelValues("miss").Inc()
}

func (p *PrometheusRecorder) IncResolveOutcome(outcome string) {
	p.resolveOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) ObserveResolveDuration(duration time.Duration) {
	p.resolveDuration.Observe(duration.Seconds())
}

func (p *PrometheusRecorder) IncLinkCreated() {
	p.linkOps.WithLabelValues("create").Inc()
}

func (p *PrometheusRecorder) IncLinkUpdated() {
	p.linkOps.WithLabelValues("update").Inc()
}

func (p *PrometheusRecorder) IncLinkDeleted() {
	p.linkOps.WithLabelValues("delete").Inc()
}

func (p *PrometheusRecorder) IncStatRecorded(status string) {
	p.statRecorded.WithLabelValues(status).Inc()
}

func (p *PrometheusRecorder) SetStatQueueDepth(depth int) {
	p.statQueueDepth.Set(float64(depth))
}

func (p *PrometheusRecorder) IncSweepRun(status string) {
	p.sweepRuns.WithLabelValues(status).Inc()
}

func (p *PrometheusRecorder) ObserveSweepDeleted(count int) {
	p.sweepDeleted.Observe(float64(count))
}
