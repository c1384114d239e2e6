// Package telemetry defines the Prometheus metrics of weak-segment searches.
//
// Every method is safe on a nil *Metrics, so callers that do not collect
// metrics pass nil instead of a no-op implementation.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sciguard"

// Metrics holds the counters and histograms of the segment search.
type Metrics struct {
	PairsEvaluated prometheus.Counter   // feature pairs whose tree search finished
	PairsSkipped   prometheus.Counter   // feature pairs dropped after a failed fit
	TreeFits       prometheus.Counter   // error-model trees fitted, refits included
	SegmentsFound  prometheus.Counter   // weak segments reported
	SearchDuration prometheus.Histogram // wall time of one full search
	CheckRuns      *prometheus.CounterVec
}

// New registers the metrics with the default registerer.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the metrics with registerer, which lets tests use
// an isolated prometheus.NewRegistry().
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		PairsEvaluated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segment_pairs_evaluated_total",
			Help:      "Total number of feature pairs searched for a weak segment",
		}),
		PairsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segment_pairs_skipped_total",
			Help:      "Total number of feature pairs skipped because no error model could be fitted",
		}),
		TreeFits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "error_model_fits_total",
			Help:      "Total number of error-model trees fitted during the search",
		}),
		SegmentsFound: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weak_segments_found_total",
			Help:      "Total number of weak segments reported",
		}),
		SearchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "segment_search_duration_seconds",
			Help:      "Duration of a weak-segment search in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		CheckRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "check_runs_total",
			Help:      "Total number of check runs by check and outcome",
		}, []string{"check", "outcome"}),
	}
}

// PairEvaluated counts a searched pair.
func (m *Metrics) PairEvaluated() {
	if m == nil {
		return
	}
	m.PairsEvaluated.Inc()
}

// PairSkipped counts a pair without a usable error model.
func (m *Metrics) PairSkipped() {
	if m == nil {
		return
	}
	m.PairsSkipped.Inc()
}

// TreeFitted counts one tree fit.
func (m *Metrics) TreeFitted() {
	if m == nil {
		return
	}
	m.TreeFits.Inc()
}

// SegmentsReported adds n found segments.
func (m *Metrics) SegmentsReported(n int) {
	if m == nil {
		return
	}
	m.SegmentsFound.Add(float64(n))
}

// ObserveSearch records the duration of a search that started at start.
func (m *Metrics) ObserveSearch(start time.Time) {
	if m == nil {
		return
	}
	m.SearchDuration.Observe(time.Since(start).Seconds())
}

// CheckRun counts a finished run of check; outcome is "ok" or "error".
func (m *Metrics) CheckRun(check string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.CheckRuns.WithLabelValues(check, outcome).Inc()
}
