// Package metrics provides Prometheus metrics for the retention sweep.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// JobName is the Pushgateway job the sweep metrics are grouped under.
const JobName = "backup_retention"

var (
	// SweepRuns tracks the total number of sweeps.
	SweepRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backup_retention_sweeps_total",
		Help: "Total number of retention sweeps",
	}, []string{"mode", "status"})

	// SweepDuration tracks the duration of sweep phases.
	SweepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "backup_retention_sweep_duration_seconds",
		Help:    "Duration of retention sweep phases in seconds",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
	}, []string{"phase"})

	// ObjectsClassified tracks classification outcomes of the last sweep.
	ObjectsClassified = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "backup_retention_objects",
		Help: "Number of objects per retention decision in the last sweep",
	}, []string{"decision"})

	// ReclaimableBytes tracks the size of the objects selected for deletion.
	ReclaimableBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "backup_retention_reclaimable_bytes",
		Help: "Total size of objects selected for deletion in the last sweep",
	})

	// StorageOperations tracks storage operations.
	StorageOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backup_retention_storage_operations_total",
		Help: "Total number of storage operations",
	}, []string{"operation", "status"})

	// ObjectsDeleted tracks the number of expired backups deleted.
	ObjectsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backup_retention_deleted_total",
		Help: "Total number of expired backups deleted",
	})

	// DeleteFailures tracks keys the store refused to delete.
	DeleteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backup_retention_delete_failures_total",
		Help: "Total number of keys that failed to delete",
	})

	// LastSuccessTimestamp tracks when the last successful sweep finished.
	LastSuccessTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "backup_retention_last_success_timestamp",
		Help: "Unix timestamp of the last successful sweep",
	})

	// Info provides static information about the service.
	Info = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "backup_retention_info",
		Help: "Information about the retention service",
	}, []string{"version", "storage_provider", "bucket"})
)

// RecordSweep records a finished sweep with its status.
func RecordSweep(dryRun, success bool) {
	mode := "delete"
	if dryRun {
		mode = "dry_run"
	}
	status := "success"
	if !success {
		status = "failure"
	}
	SweepRuns.WithLabelValues(mode, status).Inc()
}

// RecordStorageOperation records a storage operation.
func RecordStorageOperation(operation string, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	StorageOperations.WithLabelValues(operation, status).Inc()
}

// Push sends the default registry to a Prometheus Pushgateway.
func Push(url, instance string) error {
	pusher := push.New(url, JobName).Gatherer(prometheus.DefaultGatherer)
	if instance != "" {
		pusher = pusher.Grouping("instance", instance)
	}
	if err := pusher.Push(); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}
