package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"db-snapshot/internal/logging"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SnapshotLogger provides structured logging for snapshot operations with correlation IDs and an audit trail
type SnapshotLogger struct {
	logger        *logging.Logger
	auditLogger   *logrus.Logger
	auditFile     *os.File
	correlationID string
}

// SnapshotLoggerConfig holds configuration for snapshot logging
type SnapshotLoggerConfig struct {
	Logger        *logging.Logger
	AuditLogFile  string
	CorrelationID string
}

// LogEntry represents a structured log entry for snapshot operations
type LogEntry struct {
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
	Operation     string                 `json:"operation"`
	Filename      string                 `json:"filename,omitempty"`
	Status        string                 `json:"status"`
	Duration      string                 `json:"duration,omitempty"`
	Success       bool                   `json:"success"`
	Error         string                 `json:"error,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// NewSnapshotLogger creates a new snapshot logger. An audit trail is written
// as JSON lines when AuditLogFile is set.
func NewSnapshotLogger(config SnapshotLoggerConfig) (*SnapshotLogger, error) {
	correlationID := config.CorrelationID
	if correlationID == "" {
		correlationID = uuid.New().String()
	}

	logger := config.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	sl := &SnapshotLogger{
		logger:        logger,
		correlationID: correlationID,
	}

	if config.AuditLogFile != "" {
		auditDir := filepath.Dir(config.AuditLogFile)
		if err := os.MkdirAll(auditDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create audit log directory: %w", err)
		}

		auditFile, err := os.OpenFile(config.AuditLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit log file: %w", err)
		}

		auditLogger := logrus.New()
		auditLogger.SetOutput(auditFile)
		auditLogger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
		auditLogger.SetLevel(logrus.InfoLevel)

		sl.auditLogger = auditLogger
		sl.auditFile = auditFile
	}

	return sl, nil
}

// NewNopSnapshotLogger discards everything
func NewNopSnapshotLogger() *SnapshotLogger {
	return &SnapshotLogger{logger: logging.NewNopLogger(), correlationID: uuid.New().String()}
}

// GetCorrelationID returns the current correlation ID
func (sl *SnapshotLogger) GetCorrelationID() string {
	return sl.correlationID
}

// WithCorrelationID creates a new logger with a different correlation ID
func (sl *SnapshotLogger) WithCorrelationID(correlationID string) *SnapshotLogger {
	return &SnapshotLogger{
		logger:        sl.logger,
		auditLogger:   sl.auditLogger,
		auditFile:     sl.auditFile,
		correlationID: correlationID,
	}
}

// Logger returns the underlying application logger
func (sl *SnapshotLogger) Logger() *logging.Logger {
	return sl.logger
}

// Close closes the audit log file
func (sl *SnapshotLogger) Close() error {
	if sl.auditFile == nil {
		return nil
	}
	return sl.auditFile.Close()
}

// LogSnapshotStart logs the start of a snapshot export and returns a function to log its outcome
func (sl *SnapshotLogger) LogSnapshotStart(ctx context.Context, label, filename string) func(error, *Metadata) {
	startTime := time.Now()

	entry := LogEntry{
		Timestamp:     startTime,
		CorrelationID: sl.correlationID,
		Operation:     "snapshot_create",
		Filename:      filename,
		Status:        "started",
		Success:       true,
		Metadata: map[string]interface{}{
			"label": label,
		},
	}

	sl.logStructured(entry)
	sl.logAudit(ctx, "snapshot", "create", "started", map[string]interface{}{
		"filename": filename,
		"label":    label,
	})

	return func(err error, metadata *Metadata) {
		duration := time.Since(startTime)
		entry.Timestamp = time.Now()
		entry.Status = "completed"
		entry.Duration = duration.String()
		entry.Success = err == nil

		if err != nil {
			entry.Error = err.Error()
			entry.Status = "failed"
		}

		if metadata != nil {
			entry.Metadata["tables_count"] = metadata.TablesCount
			entry.Metadata["total_records"] = metadata.TotalRecords
		}

		sl.logStructured(entry)

		result := "success"
		if err != nil {
			result = "failure"
		}
		sl.logAudit(ctx, "snapshot", "create", result, map[string]interface{}{
			"filename": filename,
			"duration": duration.String(),
			"error":    entry.Error,
		})
	}
}

// LogTableFailure records a table that was exported as an empty array
func (sl *SnapshotLogger) LogTableFailure(ctx context.Context, table string, duration time.Duration, err error) {
	sl.logger.LogTableExport(table, 0, duration, err)
	sl.logAudit(ctx, "table", "export", "failure", map[string]interface{}{
		"table": table,
		"error": err.Error(),
	})
}

// LogMigrationsFailure records a migration ledger that could not be read
func (sl *SnapshotLogger) LogMigrationsFailure(ctx context.Context, err error) {
	sl.logger.WithContext(ctx).WithFields(logrus.Fields{
		"correlation_id": sl.correlationID,
		"operation":      "migrations_export",
		"error":          err.Error(),
	}).Warn("Migration history unavailable, recording empty list")
}

// LogRotationStart logs a rotation pass and returns a function to log its outcome
func (sl *SnapshotLogger) LogRotationStart(ctx context.Context, keep int) func(deleted, failed []string) {
	startTime := time.Now()

	entry := LogEntry{
		Timestamp:     startTime,
		CorrelationID: sl.correlationID,
		Operation:     "snapshot_rotate",
		Status:        "started",
		Success:       true,
		Metadata: map[string]interface{}{
			"keep": keep,
		},
	}

	sl.logStructured(entry)

	return func(deleted, failed []string) {
		entry.Timestamp = time.Now()
		entry.Status = "completed"
		entry.Duration = time.Since(startTime).String()
		entry.Metadata["deleted_count"] = len(deleted)
		entry.Metadata["failed_count"] = len(failed)

		sl.logStructured(entry)

		result := "success"
		if len(failed) > 0 {
			result = "partial"
		}
		sl.logAudit(ctx, "snapshot", "rotate", result, map[string]interface{}{
			"keep":    keep,
			"deleted": deleted,
			"failed":  failed,
		})
	}
}

// LogSnapshotDeletion logs the removal of one snapshot file
func (sl *SnapshotLogger) LogSnapshotDeletion(ctx context.Context, filename string, err error) {
	fields := logrus.Fields{
		"correlation_id": sl.correlationID,
		"operation":      "snapshot_delete",
		"file":           filename,
	}

	result := "success"
	if err != nil {
		fields["error"] = err.Error()
		sl.logger.WithContext(ctx).WithFields(fields).Warn("Failed to delete snapshot, skipping")
		result = "failure"
	} else {
		sl.logger.WithContext(ctx).WithFields(fields).Info("Deleted old snapshot")
	}

	sl.logAudit(ctx, "snapshot", "delete", result, map[string]interface{}{
		"filename": filename,
	})
}

// Warn logs a warning tagged with the correlation ID
func (sl *SnapshotLogger) Warn(ctx context.Context, msg string, fields map[string]interface{}) {
	sl.logger.WithContext(ctx).WithField("correlation_id", sl.correlationID).WithFields(fields).Warn(msg)
}

// logStructured logs a structured log entry
func (sl *SnapshotLogger) logStructured(entry LogEntry) {
	fields := logrus.Fields{
		"correlation_id": entry.CorrelationID,
		"operation":      entry.Operation,
		"status":         entry.Status,
		"success":        entry.Success,
	}

	if entry.Filename != "" {
		fields["filename"] = entry.Filename
	}
	if entry.Duration != "" {
		fields["duration"] = entry.Duration
	}
	if entry.Error != "" {
		fields["error"] = entry.Error
	}
	for k, v := range entry.Metadata {
		fields[k] = v
	}

	logEntry := sl.logger.WithFields(fields)

	if entry.Success {
		if entry.Status == "started" {
			logEntry.Debug("Snapshot operation started")
		} else {
			logEntry.Info("Snapshot operation completed successfully")
		}
	} else {
		logEntry.Error("Snapshot operation failed")
	}
}

// logAudit logs an audit trail entry
func (sl *SnapshotLogger) logAudit(ctx context.Context, resource, action, result string, details map[string]interface{}) {
	if sl.auditLogger == nil {
		return
	}

	sl.auditLogger.WithFields(logrus.Fields{
		"correlation_id": sl.correlationID,
		"operation":      fmt.Sprintf("%s_%s", resource, action),
		"resource":       resource,
		"action":         action,
		"result":         result,
		"details":        details,
		"request_id":     logging.GetCorrelationIDFromContext(ctx),
	}).Info("Audit log entry")
}
