package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "docsync"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	reg            *prom.Registry
	syncDuration   *prom.HistogramVec
	syncResults    *prom.CounterVec
	commitsApplied prom.Counter
	ahead          prom.Gauge
	behind         prom.Gauge
	retries        *prom.CounterVec
	lastSuccess    *prom.GaugeVec
}

// NewPrometheusRecorder constructs the sync metrics and registers them on reg
// (a fresh registry when nil).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		reg: reg,
		syncDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of repository sync operations",
			Buckets:   prom.DefBuckets,
		}, []string{"operation", "result"}),
		syncResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "operation_results_total",
			Help:      "Repository sync operation results by outcome",
		}, []string{"operation", "result"}),
		commitsApplied: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "commits_applied_total",
			Help:      "Upstream commits fast-forwarded into the working copy",
		}),
		ahead: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "commits_ahead",
			Help:      "Local commits not present upstream at the last status check",
		}),
		behind: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "commits_behind",
			Help:      "Upstream commits not present locally at the last status check",
		}),
		retries: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Retries of transient transport failures",
		}, []string{"operation"}),
		lastSuccess: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful operation",
		}, []string{"operation"}),
	}
	reg.MustRegister(pr.syncDuration, pr.syncResults, pr.commitsApplied, pr.ahead, pr.behind, pr.retries, pr.lastSuccess)
	return pr
}

func (p *PrometheusRecorder) ObserveSyncDuration(op string, d time.Duration, result ResultLabel) {
	if p == nil {
		return
	}
	p.syncDuration.WithLabelValues(op, string(result)).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncSyncResult(op string, result ResultLabel) {
	if p == nil {
		return
	}
	p.syncResults.WithLabelValues(op, string(result)).Inc()
	if result == ResultChanged || result == ResultUnchanged {
		p.lastSuccess.WithLabelValues(op).SetToCurrentTime()
	}
}

func (p *PrometheusRecorder) AddCommitsApplied(n int) {
	if p == nil || n <= 0 {
		return
	}
	p.commitsApplied.Add(float64(n))
}

func (p *PrometheusRecorder) SetDivergence(ahead, behind int) {
	if p == nil {
		return
	}
	p.ahead.Set(float64(ahead))
	p.behind.Set(float64(behind))
}

func (p *PrometheusRecorder) IncRetry(op string) {
	if p == nil {
		return
	}
	p.retries.WithLabelValues(op).Inc()
}

// Registry exposes the registry the recorder writes to.
func (p *PrometheusRecorder) Registry() *prom.Registry { return p.reg }

// HTTPHandler serves the recorder's registry in the Prometheus exposition format.
func (p *PrometheusRecorder) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// WriteTextfile writes the registry to path for the node exporter textfile
// collector. The file is replaced atomically.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	return prom.WriteToTextfile(path, p.reg)
}
