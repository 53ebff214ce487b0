// Package snapshot exports the full contents of the application database to a
// timestamped JSON document and manages the resulting archive.
//
// Core Components:
//
// - Writer: reads every user table plus the migration ledger inside one read
// transaction and writes <label>_<timestamp>.json under the snapshot directory
// - Introspector: discovers the current user tables from the engine's catalog
// - Catalog: lists snapshot files newest first, ordered by the timestamp suffix
// - Rotator: deletes the oldest snapshots beyond a retention count
// - Inspector: reports table row counts and migration history without writing a file
//
// A table that fails to read is logged and exported as an empty array; the same
// holds for the migration ledger. Failures of the directory, the transaction,
// serialization or the final write abort the export and are returned as
// *SnapshotError.
//
// Example usage:
//
//	manager := snapshot.NewManager(db, fs, snapshot.DefaultConfig(), logger)
//
//	filename, report, err := manager.CreateAndRotate(ctx, "pre-upgrade", 5)
//	if err != nil {
//		return fmt.Errorf("snapshot failed: %w", err)
//	}
//
//	log.Printf("wrote %s, removed %d old snapshots", filename, len(report.Deleted))
package snapshot
