// Package sweeper enforces the retention policy over every object in a bucket.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/imedwei/backup-retention/internal/metrics"
	"github.com/imedwei/backup-retention/internal/retention"
	"github.com/imedwei/backup-retention/internal/storage"
)

// ErrDeleteFailed is returned when the batch delete fails or reports per-key failures.
var ErrDeleteFailed = errors.New("batch delete failed")

// Result holds the partition produced by one sweep.
type Result struct {
	Bucket string
	Now    time.Time
	DryRun bool

	// Kept lists every surviving key in encounter order, unparseable keys included.
	Kept []string
	// Unparseable lists the kept keys that carry no timestamp.
	Unparseable []string
	// ToDelete lists the expired keys in encounter order.
	ToDelete     []string
	ReclaimBytes int64

	// Deleted lists the keys the store accepted for deletion.
	Deleted  []string
	Failures []storage.DeleteError
}

// Reporter renders a sweep result before anything is deleted.
type Reporter interface {
	Report(r *Result) error
}

// Sweeper coordinates listing, classification, reporting and deletion.
type Sweeper struct {
	storage  storage.Storage
	reporter Reporter
	logger   *slog.Logger

	// Now is read once per sweep.
	Now func() time.Time
	// Prefix restricts the listing to keys under it.
	Prefix string
}

// New creates a new sweeper.
func New(store storage.Storage, reporter Reporter, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		storage:  store,
		reporter: reporter,
		logger:   logger,
		Now:      time.Now,
	}
}

// Sweep lists bucket, classifies every object and deletes the expired ones
// unless dryRun is set. The report is always emitted before any deletion.
func (s *Sweeper) Sweep(ctx context.Context, bucket string, dryRun bool) (*Result, error) {
	start := time.Now()
	now := s.Now()
	logger := s.logger.With("bucket", bucket, "dry_run", dryRun)
	logger.Info("Starting retention sweep", "now", now.Format(time.RFC3339), "prefix", s.Prefix)

	result, err := s.sweep(ctx, logger, bucket, now, dryRun)
	metrics.RecordSweep(dryRun, err == nil)
	metrics.SweepDuration.WithLabelValues("total").Observe(time.Since(start).Seconds())
	if err != nil {
		return result, err
	}

	metrics.LastSuccessTimestamp.Set(float64(time.Now().Unix()))
	logger.Info("Retention sweep completed",
		"kept_count", len(result.Kept),
		"deleted_count", len(result.Deleted),
		"duration", time.Since(start),
	)
	return result, nil
}

func (s *Sweeper) sweep(ctx context.Context, logger *slog.Logger, bucket string, now time.Time, dryRun bool) (*Result, error) {
	listStart := time.Now()
	objects, err := storage.ListAll(ctx, s.storage, bucket, s.Prefix)
	metrics.RecordStorageOperation("list", err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}
	metrics.SweepDuration.WithLabelValues("list").Observe(time.Since(listStart).Seconds())
	logger.Info("Listed backups", "object_count", len(objects))

	result, err := partition(logger, objects, now)
	if err != nil {
		return nil, err
	}
	result.Bucket = bucket
	result.DryRun = dryRun

	metrics.ObjectsClassified.WithLabelValues(retention.Keep.String()).Set(float64(len(result.Kept) - len(result.Unparseable)))
	metrics.ObjectsClassified.WithLabelValues(retention.KeepUnparseable.String()).Set(float64(len(result.Unparseable)))
	metrics.ObjectsClassified.WithLabelValues(retention.Delete.String()).Set(float64(len(result.ToDelete)))
	metrics.ReclaimableBytes.Set(float64(result.ReclaimBytes))

	if err := s.reporter.Report(result); err != nil {
		return result, fmt.Errorf("failed to write report: %w", err)
	}

	if dryRun {
		logger.Info("Dry run, not deleting", "delete_count", len(result.ToDelete))
		return result, nil
	}
	if len(result.ToDelete) == 0 {
		logger.Info("Nothing to delete")
		return result, nil
	}

	return result, s.delete(ctx, logger, bucket, result)
}

// partition classifies objects against a single instant, preserving encounter order.
func partition(logger *slog.Logger, objects []storage.ObjectInfo, now time.Time) (*Result, error) {
	result := &Result{Now: now}

	for _, obj := range objects {
		decision, err := retention.Classify(obj.Key, now)
		if err != nil {
			return nil, err
		}

		switch decision {
		case retention.KeepUnparseable:
			logger.Warn("No timestamp in key, keeping", "key", obj.Key)
			result.Unparseable = append(result.Unparseable, obj.Key)
			result.Kept = append(result.Kept, obj.Key)
		case retention.Keep:
			result.Kept = append(result.Kept, obj.Key)
		case retention.Delete:
			result.ToDelete = append(result.ToDelete, obj.Key)
			result.ReclaimBytes += obj.Size
		}
		logger.Debug("Classified backup", "key", obj.Key, "decision", decision.String())
	}

	return result, nil
}

func (s *Sweeper) delete(ctx context.Context, logger *slog.Logger, bucket string, result *Result) error {
	logger.Info("Deleting old backups", "delete_count", len(result.ToDelete))
	deleteStart := time.Now()

	failures, err := s.storage.DeleteObjects(ctx, bucket, result.ToDelete)
	metrics.SweepDuration.WithLabelValues("delete").Observe(time.Since(deleteStart).Seconds())
	metrics.RecordStorageOperation("delete", err == nil && len(failures) == 0)
	result.Failures = failures

	if err != nil {
		// Which part of the batch landed is unknown.
		logger.Error("Batch delete failed", "error", err, "failed_keys", len(failures))
		return fmt.Errorf("%w: %w", ErrDeleteFailed, err)
	}

	failed := make(map[string]bool, len(failures))
	for _, f := range failures {
		failed[f.Key] = true
		logger.Error("Failed to delete backup", "key", f.Key, "code", f.Code, "message", f.Message)
	}
	for _, key := range result.ToDelete {
		if !failed[key] {
			result.Deleted = append(result.Deleted, key)
		}
	}
	metrics.ObjectsDeleted.Add(float64(len(result.Deleted)))
	metrics.DeleteFailures.Add(float64(len(failures)))

	if len(failures) > 0 {
		return fmt.Errorf("%w: %d of %d keys not deleted", ErrDeleteFailed, len(failures), len(result.ToDelete))
	}
	return nil
}
