package main

import "github.com/prometheus/client_golang/prometheus"

// Prometheus instrumentation for the clustering host. The core library keeps
// its own per-index counters; these track the service-level view across
// refresh cycles.
var (
	clusteringRunsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "quakecluster",
		Name:      "clustering_runs_total",
		Help:      "Total clustering passes executed.",
	})
	clusteringDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "quakecluster",
		Name:      "clustering_duration_seconds",
		Help:      "Wall-clock duration of one clustering pass, index build included.",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	})
	quakesIndexed = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "quakecluster",
		Name:      "earthquakes_indexed",
		Help:      "Earthquakes in the current snapshot's spatial index.",
	})
	clustersFound = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "quakecluster",
		Name:      "clusters_found",
		Help:      "Clusters produced by the most recent clustering pass.",
	})
	snapshotOpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quakecluster",
		Name:      "snapshot_operations_total",
		Help:      "Snapshot file operations by kind and outcome.",
	}, []string{"kind", "outcome"})
)

func registerMetrics() {
	prometheus.MustRegister(
		clusteringRunsTotal,
		clusteringDuration,
		quakesIndexed,
		clustersFound,
		snapshotOpsTotal,
	)
}
