package logging

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   LogLevel
	}{
		{
			name:   "default config",
			config: Config{Level: LogLevelNormal, Format: "text"},
			want:   LogLevelNormal,
		},
		{
			name:   "verbose json config",
			config: Config{Level: LogLevelVerbose, Format: "json"},
			want:   LogLevelVerbose,
		},
		{
			name:   "quiet config",
			config: Config{Level: LogLevelQuiet, Format: "text"},
			want:   LogLevelQuiet,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.config.Output = &buf

			logger, err := NewLogger(tt.config)
			if err != nil {
				t.Fatalf("NewLogger() error = %v", err)
			}

			if logger.GetLevel() != tt.want {
				t.Errorf("NewLogger() level = %v, want %v", logger.GetLevel(), tt.want)
			}
		})
	}
}

func TestNewLoggerRejectsUnknownFormat(t *testing.T) {
	_, err := NewLogger(Config{Level: LogLevelNormal, Format: "xml", Output: &bytes.Buffer{}})
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewDefaultLogger(t *testing.T) {
	logger := NewDefaultLogger()
	if logger == nil {
		t.Fatal("NewDefaultLogger() returned nil")
	}

	if logger.GetLevel() != LogLevelNormal {
		t.Errorf("NewDefaultLogger() level = %v, want %v", logger.GetLevel(), LogLevelNormal)
	}
}

func TestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: LogLevelVerbose, Output: &buf, Format: "text"})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.WithFields(map[string]interface{}{
		"table": "users",
		"rows":  42,
	}).Info("test message")

	output := buf.String()
	for _, want := range []string{"table=users", "rows=42", "test message"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected output to contain %q, got: %s", want, output)
		}
	}
}

func TestLoggerWithContext(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: LogLevelVerbose, Output: &buf, Format: "text"})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	ctx := ContextWithCorrelationID(context.Background(), "op-123")
	logger.WithContext(ctx).Info("test message with context")

	output := buf.String()
	if !strings.Contains(output, "correlation_id=op-123") {
		t.Errorf("Expected output to contain correlation_id=op-123, got: %s", output)
	}

	if got := GetCorrelationIDFromContext(context.Background()); got != "" {
		t.Errorf("GetCorrelationIDFromContext() on empty ctx = %q", got)
	}
}

func TestLogDatabaseConnection(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: LogLevelVerbose, Output: &buf, Format: "text"})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.LogDatabaseConnection("sqlite", "app.db", true, 100*time.Millisecond, nil)
	output := buf.String()
	if !strings.Contains(output, "Database connection established") {
		t.Errorf("Expected success message, got: %s", output)
	}
	if !strings.Contains(output, "driver=sqlite") {
		t.Errorf("Expected driver=sqlite, got: %s", output)
	}

	buf.Reset()

	logger.LogDatabaseConnection("sqlite", "app.db", false, 5*time.Second, errors.New("database is locked"))
	output = buf.String()
	if !strings.Contains(output, "Database connection failed") {
		t.Errorf("Expected failure message, got: %s", output)
	}
	if !strings.Contains(output, "database is locked") {
		t.Errorf("Expected error message, got: %s", output)
	}
}

func TestLogSQLExecution(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: LogLevelVerbose, Output: &buf, Format: "text"})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	sql := "SELECT * FROM users"
	logger.LogSQLExecution(sql, 50*time.Millisecond, 1, nil)
	output := buf.String()
	if !strings.Contains(output, "SQL executed successfully") {
		t.Errorf("Expected success message, got: %s", output)
	}

	buf.Reset()

	logger.LogSQLExecution(sql, 10*time.Millisecond, 0, errors.New("no such table"))
	output = buf.String()
	if !strings.Contains(output, "SQL execution failed") {
		t.Errorf("Expected failure message, got: %s", output)
	}
	if !strings.Contains(output, "no such table") {
		t.Errorf("Expected error message, got: %s", output)
	}
}

func TestLogSQLExecutionTruncation(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: LogLevelVerbose, Output: &buf, Format: "text"})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	longSQL := strings.Repeat("SELECT * FROM very_long_table_name ", 10)
	logger.LogSQLExecution(longSQL, 50*time.Millisecond, 1, nil)

	output := buf.String()
	if !strings.Contains(output, "...") {
		t.Errorf("Expected truncated SQL with '...', got: %s", output)
	}
	if !strings.Contains(output, "sql_length=") {
		t.Errorf("Expected sql_length field, got: %s", output)
	}
}

func TestLogTableExport(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: LogLevelNormal, Output: &buf, Format: "text"})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.LogTableExport("orders", 0, time.Millisecond, errors.New("disk I/O error"))
	output := buf.String()
	if !strings.Contains(output, "level=warning") {
		t.Errorf("Expected warning level, got: %s", output)
	}
	if !strings.Contains(output, "table=orders") {
		t.Errorf("Expected table=orders, got: %s", output)
	}

	buf.Reset()

	// success is logged at debug and hidden at normal level
	logger.LogTableExport("orders", 3, time.Millisecond, nil)
	if buf.Len() != 0 {
		t.Errorf("Expected no output at normal level, got: %s", buf.String())
	}
}

func TestSetLevel(t *testing.T) {
	logger := NewDefaultLogger()

	logger.SetLevel(LogLevelVerbose)
	if logger.GetLevel() != LogLevelVerbose {
		t.Errorf("SetLevel() failed, got %v, want %v", logger.GetLevel(), LogLevelVerbose)
	}

	logger.SetLevel(LogLevelQuiet)
	if logger.GetLevel() != LogLevelQuiet {
		t.Errorf("SetLevel() failed, got %v, want %v", logger.GetLevel(), LogLevelQuiet)
	}
}

func TestIsLevelEnabled(t *testing.T) {
	tests := []struct {
		name        string
		loggerLevel LogLevel
		testLevel   LogLevel
		want        bool
	}{
		{"quiet logger, error level", LogLevelQuiet, LogLevelQuiet, true},
		{"quiet logger, normal level", LogLevelQuiet, LogLevelNormal, false},
		{"normal logger, normal level", LogLevelNormal, LogLevelNormal, true},
		{"normal logger, verbose level", LogLevelNormal, LogLevelVerbose, false},
		{"verbose logger, verbose level", LogLevelVerbose, LogLevelVerbose, true},
		{"verbose logger, debug level", LogLevelVerbose, LogLevelDebug, false},
		{"debug logger, debug level", LogLevelDebug, LogLevelDebug, true},
		{"unknown level", LogLevelDebug, LogLevel("loud"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(Config{Level: tt.loggerLevel, Output: &bytes.Buffer{}, Format: "text"})
			if err != nil {
				t.Fatalf("NewLogger() error = %v", err)
			}

			if got := logger.IsLevelEnabled(tt.testLevel); got != tt.want {
				t.Errorf("IsLevelEnabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLogOperationStart(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: LogLevelVerbose, Output: &buf, Format: "text"})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	finish := logger.LogOperationStart("snapshot_create", map[string]interface{}{"label": "auto"})

	output := buf.String()
	if !strings.Contains(output, "Operation started") {
		t.Errorf("Expected start message, got: %s", output)
	}
	if !strings.Contains(output, "label=auto") {
		t.Errorf("Expected label=auto, got: %s", output)
	}

	buf.Reset()
	finish(nil)
	output = buf.String()
	if !strings.Contains(output, "Operation completed") || !strings.Contains(output, "success=true") {
		t.Errorf("Expected completion message, got: %s", output)
	}

	buf.Reset()
	finish = logger.LogOperationStart("snapshot_create", nil)
	finish(errors.New("boom"))
	output = buf.String()
	if !strings.Contains(output, "Operation failed") || !strings.Contains(output, "success=false") {
		t.Errorf("Expected failure message, got: %s", output)
	}
}

func TestLogFileOutput(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "snapshot.log")

	var buf bytes.Buffer
	logger, err := NewLogger(Config{
		Level:   LogLevelNormal,
		Output:  &buf,
		Format:  "json",
		LogFile: logFile,
	})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.Info("written twice")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "written twice") {
		t.Errorf("log file missing message, got: %s", data)
	}
	if !strings.Contains(buf.String(), "written twice") {
		t.Errorf("primary output missing message, got: %s", buf.String())
	}
}

func TestRedactDSN(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"root:secret@tcp(localhost:3306)/app", "root:***@tcp(localhost:3306)/app"},
		{"file:app.db?_pragma=busy_timeout(5000)", "file:app.db?_pragma=busy_timeout(5000)"},
		{"root@tcp(localhost)/app", "root@tcp(localhost)/app"},
	}

	for _, tt := range tests {
		if got := RedactDSN(tt.in); got != tt.want {
			t.Errorf("RedactDSN(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
