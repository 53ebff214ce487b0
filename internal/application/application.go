package application

import (
	"context"
	"errors"
	"os"

	"db-snapshot/internal/database"
	appErrors "db-snapshot/internal/errors"
	"db-snapshot/internal/logging"
	"db-snapshot/internal/snapshot"
	"db-snapshot/internal/storage"
)

// Application owns the connected collaborators of one CLI invocation
type Application struct {
	config          Config
	logger          *logging.Logger
	db              *database.Service
	fs              storage.Filesystem
	snapshotLogger  *snapshot.SnapshotLogger
	metrics         *snapshot.Metrics
	manager         *snapshot.Manager
	shutdownHandler *appErrors.GracefulShutdownHandler
}

// NewLogger builds the application logger from its configuration
func NewLogger(config LoggingConfig) (*logging.Logger, error) {
	return logging.NewLogger(logging.Config{
		Level:         config.Level,
		Format:        config.Format,
		ShowCaller:    config.Level == logging.LogLevelDebug && config.Format == "text",
		LogFile:       config.File,
		LogMaxSizeMB:  config.MaxSizeMB,
		LogMaxBackups: config.MaxBackups,
		LogMaxAgeDays: config.MaxAgeDays,
	})
}

// New validates config, connects the database and opens the storage backend.
// Everything opened here is released by Close.
func New(ctx context.Context, config Config) (*Application, error) {
	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	logger, err := NewLogger(config.Logging)
	if err != nil {
		return nil, appErrors.NewAppError(appErrors.ErrorTypeValidation, "failed to create logger", err)
	}

	app := &Application{
		config:          config,
		logger:          logger,
		shutdownHandler: appErrors.NewGracefulShutdownHandler(),
	}
	app.shutdownHandler.RegisterShutdownFunc(logger.Close)

	app.db = database.NewService(logger)
	if err := app.db.Connect(ctx, config.Database); err != nil {
		app.Close()
		return nil, err
	}
	app.shutdownHandler.RegisterShutdownFunc(app.db.Close)

	app.fs, err = storage.NewFilesystem(ctx, config.Storage)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.shutdownHandler.RegisterShutdownFunc(app.fs.Close)

	app.snapshotLogger, err = snapshot.NewSnapshotLogger(snapshot.SnapshotLoggerConfig{
		Logger:       logger,
		AuditLogFile: config.Snapshot.AuditLogFile,
	})
	if err != nil {
		app.Close()
		return nil, snapshot.NewConfigurationError("failed to open audit log", err)
	}
	app.shutdownHandler.RegisterShutdownFunc(app.snapshotLogger.Close)

	app.metrics = snapshot.NewMetrics()
	app.manager = snapshot.NewManager(app.db, app.fs, config.Snapshot, app.snapshotLogger).WithMetrics(app.metrics)

	logger.WithFields(map[string]interface{}{
		"driver":         config.Database.Driver,
		"storage":        string(config.Storage.Provider),
		"directory":      app.fs.Location(config.Snapshot.Directory),
		"correlation_id": app.snapshotLogger.GetCorrelationID(),
	}).Debug("Application initialized")

	return app, nil
}

func (app *Application) Config() Config { return app.config }
func (app *Application) Logger() *logging.Logger { return app.logger }
func (app *Application) Database() *database.Service { return app.db }
func (app *Application) Filesystem() storage.Filesystem { return app.fs }
func (app *Application) Manager() *snapshot.Manager { return app.manager }
func (app *Application) Metrics() *snapshot.Metrics { return app.metrics }
func (app *Application) SnapshotLogger() *snapshot.SnapshotLogger { return app.snapshotLogger }

// Run executes fn with a context that is canceled on SIGINT/SIGTERM and after
// the configured timeout. Errors are logged with their classification.
func (app *Application) Run(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	ctx, cancel := app.shutdownHandler.Start(ctx)
	defer cancel()
	defer app.shutdownHandler.Stop()

	if app.config.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, app.config.Timeout)
		defer cancelTimeout()
	}

	ctx = logging.ContextWithCorrelationID(ctx, app.snapshotLogger.GetCorrelationID())

	finish := app.logger.LogOperationStart(operation, map[string]interface{}{
		"correlation_id": app.snapshotLogger.GetCorrelationID(),
	})
	err := fn(ctx)
	finish(err)

	return app.HandleError(err)
}

// HandleError logs err with its classification and returns it unchanged
func (app *Application) HandleError(err error) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{}

	var snapErr *snapshot.SnapshotError
	if errors.As(err, &snapErr) {
		fields["error_type"] = string(snapErr.Type)
		for k, v := range snapErr.Context {
			fields[k] = v
		}
		app.logger.WithFields(fields).Error("Snapshot operation failed")
		return err
	}

	appErr := appErrors.NewErrorClassifier().ClassifyError(err)
	fields["error_type"] = string(appErr.Type)
	fields["recoverable"] = appErr.IsRecoverable()
	for k, v := range appErr.Context {
		fields[k] = v
	}

	if appErr.IsRecoverable() {
		app.logger.WithFields(fields).Warn("Recoverable error occurred")
	} else {
		app.logger.WithFields(fields).Error("Non-recoverable error occurred")
	}
	return err
}

// Close releases the storage backend, the database and the log files. It is
// safe to call more than once.
func (app *Application) Close() {
	app.shutdownHandler.Shutdown()
}

// TroubleshootingHints suggests next steps for a failed command
func TroubleshootingHints(err error) []string {
	if err == nil {
		return nil
	}

	var snapErr *snapshot.SnapshotError
	if errors.As(err, &snapErr) {
		switch snapErr.Type {
		case snapshot.SnapshotErrorTypeStorage:
			return []string{
				"Check that the documents directory or bucket exists and is writable",
				"Verify the storage credentials in the configuration",
			}
		case snapshot.SnapshotErrorTypeDatabase:
			return []string{
				"Check that the database is reachable and not locked by another process",
				"Run `db-snapshot snapshot inspect` to see which tables can be read",
			}
		case snapshot.SnapshotErrorTypeConfiguration:
			return []string{"Review the snapshot section of the configuration file"}
		}
		return nil
	}

	switch appErrors.GetErrorType(err) {
	case appErrors.ErrorTypeConnection:
		return []string{
			"Check that the database server is running",
			"Verify the host, port and database path are correct",
		}
	case appErrors.ErrorTypePermission:
		return []string{
			"Verify the username and password are correct",
			"Check file permissions of the database and documents directory",
		}
	case appErrors.ErrorTypeValidation:
		return []string{
			"Run `db-snapshot config init` to generate a valid configuration",
			"Review the command line arguments",
		}
	case appErrors.ErrorTypeTimeout:
		return []string{"Try increasing --timeout or DB_SNAPSHOT_TIMEOUT"}
	case appErrors.ErrorTypeStorage:
		return []string{"Check the storage provider settings"}
	}
	return nil
}

// ExitCode maps an error to the process exit status
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case snapshot.IsStorageFailure(err):
		return 3
	case appErrors.GetErrorType(err) == appErrors.ErrorTypeValidation:
		return 2
	default:
		return 1
	}
}

// Exit terminates the process with the code for err
func Exit(err error) {
	os.Exit(ExitCode(err))
}
