// Package metrics exposes barnyard's Prometheus collectors and the HTTP
// server that serves them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/ruteri/barnyard/common"
)

// Result label values.
const (
	ResultOK     = "ok"
	ResultDenied = "denied"
	ResultError  = "error"
)

var (
	// SecretOperations counts store and load calls by outcome.
	SecretOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: common.PackageName,
		Name:      "secret_operations_total",
		Help:      "Secret store and load operations by result.",
	}, []string{"operation", "result"})

	// SnapshotDuration observes snapshot save and load latency.
	SnapshotDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: common.PackageName,
		Name:      "snapshot_duration_seconds",
		Help:      "Time spent persisting or loading the encrypted snapshot.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	// StoredSecrets is the number of records currently held.
	StoredSecrets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: common.PackageName,
		Name:      "stored_secrets",
		Help:      "Number of secrets in the store.",
	})
)
