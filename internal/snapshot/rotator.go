package snapshot

import (
	"context"

	"db-snapshot/internal/storage"
)

// RotationFailure records a snapshot that rotation could not remove
type RotationFailure struct {
	Filename string
	Err      error
}

// RotationReport describes what one rotation pass did
type RotationReport struct {
	Kept    []string
	Deleted []string
	Failed  []RotationFailure
}

// FailedNames returns the filenames that could not be removed
func (r RotationReport) FailedNames() []string {
	names := make([]string, 0, len(r.Failed))
	for _, f := range r.Failed {
		names = append(names, f.Filename)
	}
	return names
}

// Rotator deletes the oldest snapshots beyond a retention count
type Rotator struct {
	catalog *Catalog
	fs      storage.Filesystem
	logger  *SnapshotLogger
	metrics *Metrics
}

// NewRotator creates a Rotator over the catalog's directory
func NewRotator(catalog *Catalog, fs storage.Filesystem, logger *SnapshotLogger) *Rotator {
	if logger == nil {
		logger = NewNopSnapshotLogger()
	}
	return &Rotator{catalog: catalog, fs: fs, logger: logger}
}

func (r *Rotator) WithMetrics(metrics *Metrics) *Rotator {
	r.metrics = metrics
	return r
}

// RotateSnapshots keeps the newest keep snapshots and deletes the rest.
// Failures are logged and reported, never returned.
func (r *Rotator) RotateSnapshots(ctx context.Context, keep int) RotationReport {
	var report RotationReport

	if keep < 0 {
		r.logger.Warn(ctx, "Ignoring rotation with a negative keep count", map[string]interface{}{
			"keep": keep,
		})
		return report
	}

	finish := r.logger.LogRotationStart(ctx, keep)

	names, err := r.catalog.ListSnapshots(ctx)
	if err != nil {
		r.logger.Warn(ctx, "Failed to list snapshots for rotation", map[string]interface{}{
			"error": err.Error(),
		})
		finish(nil, nil)
		return report
	}

	kept, excess := splitForKeep(names, keep)
	report.Kept = kept
	if len(excess) == 0 {
		finish(nil, nil)
		return report
	}

	for _, name := range excess {
		err := r.fs.Remove(ctx, r.catalog.Path(name))
		r.logger.LogSnapshotDeletion(ctx, name, err)
		if err != nil {
			report.Failed = append(report.Failed, RotationFailure{Filename: name, Err: err})
			continue
		}
		report.Deleted = append(report.Deleted, name)
	}

	r.metrics.ObserveRotation(len(report.Deleted), len(report.Failed))
	finish(report.Deleted, report.FailedNames())
	return report
}

// Plan returns what RotateSnapshots with keep would retain and delete, without deleting
func (r *Rotator) Plan(ctx context.Context, keep int) (kept, excess []string, err error) {
	names, err := r.catalog.ListSnapshots(ctx)
	if err != nil {
		return nil, nil, err
	}
	kept, excess = splitForKeep(names, keep)
	return kept, excess, nil
}

// splitForKeep splits newest-first names after the first keep; a negative keep keeps everything
func splitForKeep(names []string, keep int) ([]string, []string) {
	if keep < 0 || len(names) <= keep {
		return names, nil
	}
	return names[:keep], names[keep:]
}
