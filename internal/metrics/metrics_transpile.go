package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TranspileDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transpile_decisions_total",
			Help: "Number of module paths classified, by deciding rule and outcome",
		},
		[]string{"rule", "outcome"},
	)

	TranspileDecisionCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "transpile_decision_cache_hits_total",
			Help: "Number of exclusion checks answered from the decision cache",
		},
	)

	ParallelWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "transpile_parallel_workers",
			Help: "Configured compiler worker count; 0 when parallel compilation is off, -1 for the dispatcher default",
		},
	)

	ScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "transpile_scan_duration_seconds",
			Help:    "Duration of a project scan in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.2, 0.5, 1, 2, 5, 10, 30},
		},
	)
)

// Outcome labels for TranspileDecisions.
const (
	OutcomeExclude = "exclude"
	OutcomeInclude = "include"
)

func Outcome(exclude bool) string {
	if exclude {
		return OutcomeExclude
	}
	return OutcomeInclude
}
