package metrics

import (
	"net/http"
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lightsout"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	reg          *prom.Registry
	replans      *prom.CounterVec
	planSize     prom.Gauge
	warnings     *prom.CounterVec
	shutdowns    *prom.CounterVec
	casConflicts *prom.CounterVec
	overrides    *prom.CounterVec
	pollDuration prom.Histogram
}

// NewPrometheusRecorder constructs the metrics and registers them on reg, or
// on a fresh registry when reg is nil.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		reg: reg,
		replans: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "replans_total",
			Help:      "Timer plan rebuilds by cause",
		}, []string{"cause"}),
		planSize: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "plan_jobs",
			Help:      "Jobs armed by the most recent plan",
		}),
		warnings: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "warnings_total",
			Help:      "Fired warning jobs by outcome",
		}, []string{"outcome"}),
		shutdowns: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "shutdowns_total",
			Help:      "Fired shutdown jobs, split by whether they were stale",
		}, []string{"stale"}),
		casConflicts: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "cas_conflicts_total",
			Help:      "Rejected conditional writes by record",
		}, []string{"record"}),
		overrides: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "override_decisions_total",
			Help:      "Override requests by decision code",
		}, []string{"code"}),
		pollDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_duration_seconds",
			Help:      "Duration of one state poll",
			Buckets:   prom.ExponentialBuckets(0.0005, 2, 12),
		}),
	}
	reg.MustRegister(pr.replans, pr.planSize, pr.warnings, pr.shutdowns, pr.casConflicts, pr.overrides, pr.pollDuration)
	return pr
}

func (p *PrometheusRecorder) IncReplan(cause ReplanCause) {
	p.replans.WithLabelValues(string(cause)).Inc()
}

func (p *PrometheusRecorder) ObservePlanSize(jobs int) {
	p.planSize.Set(float64(jobs))
}

func (p *PrometheusRecorder) IncWarning(outcome WarningOutcome) {
	p.warnings.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncShutdown(stale bool) {
	p.shutdowns.WithLabelValues(strconv.FormatBool(stale)).Inc()
}

func (p *PrometheusRecorder) IncCASConflict(record string) {
	p.casConflicts.WithLabelValues(record).Inc()
}

func (p *PrometheusRecorder) IncOverrideDecision(code string) {
	p.overrides.WithLabelValues(code).Inc()
}

func (p *PrometheusRecorder) ObservePollDuration(d time.Duration) {
	p.pollDuration.Observe(d.Seconds())
}

// Handler serves the recorder's registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
