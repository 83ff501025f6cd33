package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stage names used as label values.
const (
	StagePlan    = "plan"
	StageRepair  = "repair"
	StageRender  = "render"
	StageRealize = "realize"
)

// Metrics holds the pipeline collectors.
type Metrics struct {
	reg *prometheus.Registry

	Generations      *prometheus.CounterVec
	Repairs          *prometheus.CounterVec
	ExtraTokens      prometheus.Counter
	MissingTokens    prometheus.Counter
	StageDuration    *prometheus.HistogramVec
	SlotAcquisitions prometheus.Counter
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		Generations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flownlg",
			Name:      "generations_total",
			Help:      "Generation requests by outcome (ok, or the stage that failed).",
		}, []string{"outcome"}),
		Repairs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flownlg",
			Name:      "plan_repairs_total",
			Help:      "Plan validation decisions.",
		}, []string{"decision"}),
		ExtraTokens: f.NewCounter(prometheus.CounterOpts{
			Namespace: "flownlg",
			Name:      "plan_extra_tokens_total",
			Help:      "Distinct out-of-range tokens removed from generated plans.",
		}),
		MissingTokens: f.NewCounter(prometheus.CounterOpts{
			Namespace: "flownlg",
			Name:      "plan_missing_indices_total",
			Help:      "Indices appended to generated plans because the planner never emitted them.",
		}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "flownlg",
			Name:      "stage_duration_seconds",
			Help:      "Latency of each pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 9),
		}, []string{"stage"}),
		SlotAcquisitions: f.NewCounter(prometheus.CounterOpts{
			Namespace: "flownlg",
			Name:      "slot_acquisitions_total",
			Help:      "Accelerator slot acquisitions.",
		}),
	}
}

// ObserveStage records the time since start for stage.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
