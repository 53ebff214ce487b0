package errors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-sql-driver/mysql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	// ErrorTypeConnection represents database connection errors
	ErrorTypeConnection ErrorType = "connection"
	// ErrorTypeSQL represents SQL execution errors
	ErrorTypeSQL ErrorType = "sql"
	// ErrorTypeSchema represents schema-related errors
	ErrorTypeSchema ErrorType = "schema"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypePermission represents permission/access errors
	ErrorTypePermission ErrorType = "permission"
	// ErrorTypeStorage represents snapshot storage errors
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeTimeout represents timeout errors
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeInterruption represents user interruption
	ErrorTypeInterruption ErrorType = "interruption"
	// ErrorTypeUnknown represents unknown errors
	ErrorTypeUnknown ErrorType = "unknown"
)

// AppError represents an application-specific error with context
type AppError struct {
	Type        ErrorType
	Message     string
	Cause       error
	Context     map[string]interface{}
	Recoverable bool
	UserMessage string
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// GetUserMessage returns a user-friendly error message
func (e *AppError) GetUserMessage() string {
	if e.UserMessage != "" {
		return e.UserMessage
	}
	return e.Message
}

// IsRecoverable returns whether the error is recoverable
func (e *AppError) IsRecoverable() bool {
	return e.Recoverable
}

// WithContext adds context information to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errorType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// NewRecoverableError creates a new recoverable error
func NewRecoverableError(errorType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:        errorType,
		Message:     message,
		Cause:       cause,
		Context:     make(map[string]interface{}),
		Recoverable: true,
	}
}

// ErrorClassifier provides methods to classify and handle different types of errors
type ErrorClassifier struct{}

// NewErrorClassifier creates a new error classifier
func NewErrorClassifier() *ErrorClassifier {
	return &ErrorClassifier{}
}

// ClassifyError analyzes an error and returns an AppError with appropriate classification
func (ec *ErrorClassifier) ClassifyError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	if sqliteErr := ec.classifySQLiteError(err); sqliteErr != nil {
		return sqliteErr
	}

	if mysqlErr := ec.classifyMySQLError(err); mysqlErr != nil {
		return mysqlErr
	}

	if sqlErr := ec.classifySQLError(err); sqlErr != nil {
		return sqlErr
	}

	if netErr := ec.classifyNetworkError(err); netErr != nil {
		return netErr
	}

	if ctxErr := ec.classifyContextError(err); ctxErr != nil {
		return ctxErr
	}

	if fsErr := ec.classifyFileSystemError(err); fsErr != nil {
		return fsErr
	}

	return NewAppError(ErrorTypeUnknown, "An unexpected error occurred", err)
}

// classifySQLiteError classifies errors returned by the embedded SQLite driver
func (ec *ErrorClassifier) classifySQLiteError(err error) *AppError {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return nil
	}

	code := sqliteErr.Code()
	// extended result codes carry the primary code in the low byte
	switch code & 0xff {
	case sqlite3.SQLITE_BUSY:
		return NewRecoverableError(ErrorTypeConnection,
			"Database is busy - another connection holds a write lock", err).
			WithContext("sqlite_error_code", code)
	case sqlite3.SQLITE_LOCKED:
		return NewRecoverableError(ErrorTypeConnection,
			"Database table is locked", err).
			WithContext("sqlite_error_code", code)
	case sqlite3.SQLITE_CANTOPEN:
		return NewAppError(ErrorTypeConnection,
			"Unable to open database file", err).
			WithContext("sqlite_error_code", code)
	case sqlite3.SQLITE_PERM, sqlite3.SQLITE_READONLY, sqlite3.SQLITE_AUTH:
		return NewAppError(ErrorTypePermission,
			"Database access denied", err).
			WithContext("sqlite_error_code", code)
	case sqlite3.SQLITE_CORRUPT, sqlite3.SQLITE_NOTADB:
		return NewAppError(ErrorTypeValidation,
			"Database file is corrupt or not a database", err).
			WithContext("sqlite_error_code", code)
	case sqlite3.SQLITE_FULL:
		return NewAppError(ErrorTypeStorage,
			"Database or disk is full", err).
			WithContext("sqlite_error_code", code)
	default:
		return NewAppError(ErrorTypeSQL,
			fmt.Sprintf("SQLite error: %v", sqliteErr), err).
			WithContext("sqlite_error_code", code)
	}
}

// classifyMySQLError classifies MySQL-specific errors
func (ec *ErrorClassifier) classifyMySQLError(err error) *AppError {
	var mysqlErr *mysql.MySQLError
	if !errors.As(err, &mysqlErr) {
		return nil
	}

	switch mysqlErr.Number {
	case 1045: // Access denied
		return NewAppError(ErrorTypePermission,
			"Database access denied - check username and password", err).
			WithContext("mysql_error_code", mysqlErr.Number)
	case 1049: // Unknown database
		return NewAppError(ErrorTypeValidation,
			"Database does not exist", err).
			WithContext("mysql_error_code", mysqlErr.Number)
	case 1146: // Table doesn't exist
		return NewAppError(ErrorTypeSchema,
			"Table does not exist", err).
			WithContext("mysql_error_code", mysqlErr.Number)
	case 1205, 1213: // Lock wait timeout, deadlock
		return NewRecoverableError(ErrorTypeConnection,
			"Lock contention - the operation can be retried", err).
			WithContext("mysql_error_code", mysqlErr.Number)
	case 2003: // Can't connect to MySQL server
		return NewRecoverableError(ErrorTypeConnection,
			"Cannot connect to MySQL server - server may be down or unreachable", err).
			WithContext("mysql_error_code", mysqlErr.Number)
	case 2006: // MySQL server has gone away
		return NewRecoverableError(ErrorTypeConnection,
			"MySQL server connection lost", err).
			WithContext("mysql_error_code", mysqlErr.Number)
	default:
		return NewAppError(ErrorTypeSQL,
			fmt.Sprintf("MySQL error: %s", mysqlErr.Message), err).
			WithContext("mysql_error_code", mysqlErr.Number)
	}
}

// classifySQLError classifies database/sql sentinel errors
func (ec *ErrorClassifier) classifySQLError(err error) *AppError {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return NewAppError(ErrorTypeValidation, "No rows found", err)
	case errors.Is(err, sql.ErrTxDone):
		return NewAppError(ErrorTypeSQL, "Transaction has already been committed or rolled back", err)
	case errors.Is(err, sql.ErrConnDone):
		return NewRecoverableError(ErrorTypeConnection, "Database connection is closed", err)
	}
	return nil
}

// classifyNetworkError classifies network-related errors
func (ec *ErrorClassifier) classifyNetworkError(err error) *AppError {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() {
			return NewRecoverableError(ErrorTypeTimeout, "Network operation timed out", err)
		}
		switch opErr.Op {
		case "dial":
			return NewRecoverableError(ErrorTypeConnection,
				"Failed to establish network connection", err)
		case "read", "write":
			return NewRecoverableError(ErrorTypeConnection,
				"Network I/O error", err)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewRecoverableError(ErrorTypeTimeout, "Network operation timed out", err)
	}

	return nil
}

// classifyContextError classifies context-related errors
func (ec *ErrorClassifier) classifyContextError(err error) *AppError {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewAppError(ErrorTypeTimeout, "Operation timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return NewAppError(ErrorTypeInterruption, "Operation was canceled", err)
	}

	return nil
}

// classifyFileSystemError classifies file system errors
func (ec *ErrorClassifier) classifyFileSystemError(err error) *AppError {
	var pathErr *os.PathError
	if !errors.As(err, &pathErr) {
		return nil
	}

	switch {
	case errors.Is(pathErr.Err, syscall.ENOENT):
		return NewAppError(ErrorTypeValidation,
			fmt.Sprintf("File or directory not found: %s", pathErr.Path), err)
	case errors.Is(pathErr.Err, syscall.EACCES), errors.Is(pathErr.Err, syscall.EPERM):
		return NewAppError(ErrorTypePermission,
			fmt.Sprintf("Permission denied: %s", pathErr.Path), err)
	case errors.Is(pathErr.Err, syscall.ENOSPC):
		return NewAppError(ErrorTypeStorage, "No space left on device", err)
	}

	return NewAppError(ErrorTypeStorage,
		fmt.Sprintf("File system error on %s", pathErr.Path), err)
}

// RetryConfig holds configuration for retry operations
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
}

// DefaultRetryConfig returns a default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
		Multiplier:  2.0,
	}
}

// RetryHandler provides retry functionality for operations
type RetryHandler struct {
	config     RetryConfig
	classifier *ErrorClassifier
}

// NewRetryHandler creates a new retry handler
func NewRetryHandler(config RetryConfig) *RetryHandler {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	return &RetryHandler{
		config:     config,
		classifier: NewErrorClassifier(),
	}
}

// NewDefaultRetryHandler creates a retry handler with default configuration
func NewDefaultRetryHandler() *RetryHandler {
	return NewRetryHandler(DefaultRetryConfig())
}

// Retry executes a function with retry logic for recoverable errors
func (rh *RetryHandler) Retry(ctx context.Context, operation func() error) error {
	var lastErr error

	for attempt := 1; attempt <= rh.config.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return NewAppError(ErrorTypeInterruption, "Operation canceled", ctx.Err())
		default:
		}

		err := operation()
		if err == nil {
			return nil
		}

		lastErr = err
		appErr := rh.classifier.ClassifyError(err)

		if !appErr.IsRecoverable() {
			return appErr
		}

		if attempt == rh.config.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return NewAppError(ErrorTypeInterruption, "Operation canceled during retry", ctx.Err())
		case <-time.After(rh.calculateDelay(attempt)):
		}
	}

	return rh.classifier.ClassifyError(lastErr).
		WithContext("attempts", rh.config.MaxAttempts)
}

// calculateDelay calculates the delay for a given attempt using exponential backoff
func (rh *RetryHandler) calculateDelay(attempt int) time.Duration {
	multiplier := 1.0
	for i := 1; i < attempt; i++ {
		multiplier *= rh.config.Multiplier
	}

	delay := time.Duration(float64(rh.config.BaseDelay) * multiplier)
	if rh.config.MaxDelay > 0 && delay > rh.config.MaxDelay {
		delay = rh.config.MaxDelay
	}

	return delay
}

// GracefulShutdownHandler cancels in-flight work and runs cleanup on SIGINT/SIGTERM.
// An interrupted snapshot rolls back its read transaction and writes no file.
type GracefulShutdownHandler struct {
	mu            sync.Mutex
	shutdownFuncs []func() error
	signalChan    chan os.Signal
	done          chan struct{}
	once          sync.Once
}

// NewGracefulShutdownHandler creates a new graceful shutdown handler
func NewGracefulShutdownHandler() *GracefulShutdownHandler {
	return &GracefulShutdownHandler{
		signalChan: make(chan os.Signal, 1),
		done:       make(chan struct{}),
	}
}

// RegisterShutdownFunc registers a function to be called during shutdown.
// Functions run in reverse registration order.
func (gsh *GracefulShutdownHandler) RegisterShutdownFunc(fn func() error) {
	gsh.mu.Lock()
	defer gsh.mu.Unlock()
	gsh.shutdownFuncs = append(gsh.shutdownFuncs, fn)
}

// Start starts listening for shutdown signals and returns a context that is
// canceled when one arrives.
func (gsh *GracefulShutdownHandler) Start(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	signal.Notify(gsh.signalChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case _, ok := <-gsh.signalChan:
			if ok {
				cancel()
				gsh.Shutdown()
			}
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// Stop stops listening for signals
func (gsh *GracefulShutdownHandler) Stop() {
	signal.Stop(gsh.signalChan)
}

// Done is closed once shutdown functions have run
func (gsh *GracefulShutdownHandler) Done() <-chan struct{} {
	return gsh.done
}

// Shutdown executes all registered shutdown functions once
func (gsh *GracefulShutdownHandler) Shutdown() {
	gsh.once.Do(func() {
		defer close(gsh.done)

		gsh.mu.Lock()
		funcs := append([]func() error(nil), gsh.shutdownFuncs...)
		gsh.mu.Unlock()

		for i := len(funcs) - 1; i >= 0; i-- {
			if err := funcs[i](); err != nil {
				fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
			}
		}
	})
}

// IsRecoverableError checks if an error is recoverable
func IsRecoverableError(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.IsRecoverable()
	}
	return false
}

// GetErrorType returns the error type of an error
func GetErrorType(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeUnknown
}

// FormatUserError formats an error for display to users
func FormatUserError(err error) string {
	if err == nil {
		return ""
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.GetUserMessage()
	}

	return err.Error()
}

// WrapError wraps an existing error with additional context
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		wrapped := NewAppError(appErr.Type, message, err)
		wrapped.Recoverable = appErr.Recoverable
		return wrapped
	}

	classified := NewErrorClassifier().ClassifyError(err)
	return &AppError{
		Type:        classified.Type,
		Message:     message,
		Cause:       err,
		Context:     classified.Context,
		Recoverable: classified.Recoverable,
	}
}
