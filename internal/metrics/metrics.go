// Package metrics exposes Prometheus metrics for calculations and the conversion table.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CalculationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shade_calculations_total",
			Help: "Calculations served, by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	CalculationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shade_calculation_duration_seconds",
			Help:    "Time spent in a calculation, including catalog lookups",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"kind"},
	)

	SearchProbes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shade_width_search_probes",
			Help:    "Deflection evaluations per system limit search",
			Buckets: []float64{10, 50, 100, 200, 500, 1000, 5000, 20000},
		},
	)

	ConversionEdges = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shade_conversion_edges",
			Help: "Edges in the active conversion table",
		},
	)

	TableReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shade_conversion_table_reloads_total",
			Help: "Conversion table swaps, by source",
		},
		[]string{"source"},
	)
)

// Outcome labels.
const (
	OutcomeOK         = "ok"
	OutcomeNotFound   = "not_found"
	OutcomeNoFeasible = "no_feasible"
	OutcomeError      = "error"
)

func RecordCalculation(kind, outcome string, took time.Duration) {
	CalculationsTotal.WithLabelValues(kind, outcome).Inc()
	CalculationDuration.WithLabelValues(kind).Observe(took.Seconds())
}

func RecordProbes(n int) {
	SearchProbes.Observe(float64(n))
}

func RecordTableSwap(source string, edges int) {
	TableReloads.WithLabelValues(source).Inc()
	ConversionEdges.Set(float64(edges))
}
