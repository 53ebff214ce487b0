package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/natefinch/lumberjack"
	"github.com/sirupsen/logrus"
)

// LogLevel represents the logging level
type LogLevel string

const (
	// LogLevelQuiet suppresses all output except errors
	LogLevelQuiet LogLevel = "quiet"
	// LogLevelNormal shows standard operational messages
	LogLevelNormal LogLevel = "normal"
	// LogLevelVerbose shows detailed operational information
	LogLevelVerbose LogLevel = "verbose"
	// LogLevelDebug shows all debug information
	LogLevelDebug LogLevel = "debug"
)

type contextKey string

const correlationIDKey contextKey = "correlation_id"

// Logger provides structured logging capabilities
type Logger struct {
	logger  *logrus.Logger
	level   LogLevel
	fileOut *lumberjack.Logger
}

// Config holds logger configuration
type Config struct {
	Level      LogLevel
	Output     io.Writer
	Format     string // "text" or "json"
	ShowCaller bool

	// LogFile enables a size-rotated copy of the log stream.
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
}

// NewLogger creates a new logger with the specified configuration
func NewLogger(config Config) (*Logger, error) {
	logger := logrus.New()

	output := config.Output
	if output == nil {
		output = os.Stderr
	}
	logger.SetOutput(output)

	switch config.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	default:
		return nil, fmt.Errorf("unsupported log format %q", config.Format)
	}

	logger.SetLevel(toLogrusLevel(config.Level))

	if config.ShowCaller {
		logger.SetReportCaller(true)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
			CallerPrettyfier: func(f *runtime.Frame) (string, string) {
				filename := filepath.Base(f.File)
				return fmt.Sprintf("%s()", f.Function), fmt.Sprintf("%s:%d", filename, f.Line)
			},
		})
	}

	l := &Logger{
		logger: logger,
		level:  config.Level,
	}

	if config.LogFile != "" {
		if dir := filepath.Dir(config.LogFile); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
			}
		}

		l.fileOut = &lumberjack.Logger{
			Filename:   config.LogFile,
			MaxSize:    orDefault(config.LogMaxSizeMB, 20),
			MaxBackups: orDefault(config.LogMaxBackups, 5),
			MaxAge:     orDefault(config.LogMaxAgeDays, 30),
		}
		logger.SetOutput(io.MultiWriter(output, l.fileOut))
	}

	return l, nil
}

// NewDefaultLogger creates a logger with default configuration
func NewDefaultLogger() *Logger {
	logger, _ := NewLogger(Config{
		Level:  LogLevelNormal,
		Output: os.Stderr,
		Format: "text",
	})
	return logger
}

// NewNopLogger returns a logger that discards everything. Handy in tests.
func NewNopLogger() *Logger {
	logger, _ := NewLogger(Config{Level: LogLevelQuiet, Output: io.Discard})
	return logger
}

// Close releases the rotating log file, if any.
func (l *Logger) Close() error {
	if l.fileOut == nil {
		return nil
	}
	return l.fileOut.Close()
}

// WithContext returns a logger entry carrying the correlation id found in ctx
func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	entry := l.logger.WithContext(ctx)

	if id := GetCorrelationIDFromContext(ctx); id != "" {
		entry = entry.WithField(string(correlationIDKey), id)
	}

	return entry
}

// WithFields returns a logger with additional fields
func (l *Logger) WithFields(fields map[string]interface{}) *logrus.Entry {
	return l.logger.WithFields(fields)
}

// WithField returns a logger with a single additional field
func (l *Logger) WithField(key string, value interface{}) *logrus.Entry {
	return l.logger.WithField(key, value)
}

// WithError returns a logger entry with the error attached
func (l *Logger) WithError(err error) *logrus.Entry {
	return l.logger.WithError(err)
}

// Database operation logging methods

// LogDatabaseConnection logs database connection attempts
func (l *Logger) LogDatabaseConnection(driver, target string, success bool, duration time.Duration, err error) {
	fields := logrus.Fields{
		"operation": "database_connection",
		"driver":    driver,
		"target":    target,
		"duration":  duration.String(),
		"success":   success,
	}

	if success {
		l.logger.WithFields(fields).Info("Database connection established")
	} else {
		if err != nil {
			fields["error"] = err.Error()
		}
		l.logger.WithFields(fields).Error("Database connection failed")
	}
}

// LogSQLExecution logs SQL statement execution
func (l *Logger) LogSQLExecution(sql string, duration time.Duration, rows int64, err error) {
	fields := logrus.Fields{
		"operation": "sql_execution",
		"duration":  duration.String(),
		"rows":      rows,
	}

	if len(sql) > 200 {
		fields["sql"] = sql[:200] + "..."
		fields["sql_length"] = len(sql)
	} else {
		fields["sql"] = sql
	}

	if err != nil {
		fields["error"] = err.Error()
		l.logger.WithFields(fields).Error("SQL execution failed")
	} else if l.level == LogLevelVerbose || l.level == LogLevelDebug {
		l.logger.WithFields(fields).Debug("SQL executed successfully")
	}
}

// LogTableExport logs the outcome of reading one table into a snapshot.
// A failed read is only a warning because the export carries on without it.
func (l *Logger) LogTableExport(table string, rows int, duration time.Duration, err error) {
	fields := logrus.Fields{
		"operation": "table_export",
		"table":     table,
		"duration":  duration.String(),
	}

	if err != nil {
		fields["error"] = err.Error()
		l.logger.WithFields(fields).Warn("Table export failed, recording empty table")
		return
	}

	fields["rows"] = rows
	l.logger.WithFields(fields).Debug("Table exported")
}

// Standard logging methods

// Info logs an info message
func (l *Logger) Info(msg string) {
	l.logger.Info(msg)
}

// Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.logger.Infof(format, args...)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string) {
	l.logger.Debug(msg)
}

// Debugf logs a formatted debug message
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.logger.Debugf(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string) {
	l.logger.Warn(msg)
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.logger.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(msg string) {
	l.logger.Error(msg)
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.logger.Errorf(format, args...)
}

// GetLevel returns the current log level
func (l *Logger) GetLevel() LogLevel {
	return l.level
}

// SetLevel sets the log level
func (l *Logger) SetLevel(level LogLevel) {
	l.level = level
	l.logger.SetLevel(toLogrusLevel(level))
}

// IsLevelEnabled checks if a log level is enabled
func (l *Logger) IsLevelEnabled(level LogLevel) bool {
	switch level {
	case LogLevelQuiet, LogLevelNormal, LogLevelVerbose, LogLevelDebug:
		return l.logger.IsLevelEnabled(toLogrusLevel(level))
	default:
		return false
	}
}

// LogOperationStart logs the start of an operation and returns a function to log completion
func (l *Logger) LogOperationStart(operation string, fields map[string]interface{}) func(error) {
	startTime := time.Now()

	logFields := logrus.Fields{
		"operation": operation,
		"status":    "started",
	}
	for k, v := range fields {
		logFields[k] = v
	}

	l.logger.WithFields(logFields).Debug("Operation started")

	return func(err error) {
		logFields["status"] = "completed"
		logFields["duration"] = time.Since(startTime).String()

		if err != nil {
			logFields["error"] = err.Error()
			logFields["success"] = false
			l.logger.WithFields(logFields).Error("Operation failed")
		} else {
			logFields["success"] = true
			l.logger.WithFields(logFields).Info("Operation completed")
		}
	}
}

// ContextWithCorrelationID attaches a correlation id used to tie log lines of one operation together
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// GetCorrelationIDFromContext extracts the correlation id from ctx
func GetCorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}

// RedactDSN hides the password part of a connection string before it is logged.
func RedactDSN(dsn string) string {
	// user:password@tcp(host)/db
	if at := strings.Index(dsn, "@"); at > 0 {
		if colon := strings.Index(dsn[:at], ":"); colon >= 0 {
			return dsn[:colon+1] + "***" + dsn[at:]
		}
	}
	return dsn
}

func toLogrusLevel(level LogLevel) logrus.Level {
	switch level {
	case LogLevelQuiet:
		return logrus.ErrorLevel
	case LogLevelVerbose:
		return logrus.DebugLevel
	case LogLevelDebug:
		return logrus.TraceLevel
	default:
		return logrus.InfoLevel
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
