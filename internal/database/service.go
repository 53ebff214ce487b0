package database

import (
	"context"
	"time"

	"db-snapshot/internal/errors"
	"db-snapshot/internal/logging"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // SQLite driver
)

// Service owns the database handle used for snapshots and migrations
type Service struct {
	db                *sqlx.DB
	dialect           Dialect
	connectionTimeout time.Duration
	logger            *logging.Logger
	retryHandler      *errors.RetryHandler
}

// NewService creates a new, unconnected database service
func NewService(logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Service{
		connectionTimeout: 30 * time.Second,
		logger:            logger,
		retryHandler:      errors.NewDefaultRetryHandler(),
	}
}

// NewServiceFromDB wraps an already opened handle. Tests use it with sqlmock.
func NewServiceFromDB(db *sqlx.DB, dialect Dialect, logger *logging.Logger) *Service {
	s := NewService(logger)
	s.db = db
	s.dialect = dialect
	return s
}

// SetRetryConfig replaces the retry policy used by Connect
func (s *Service) SetRetryConfig(config errors.RetryConfig) {
	s.retryHandler = errors.NewRetryHandler(config)
}

// Connect opens the configured database and verifies it with a ping, retrying recoverable failures
func (s *Service) Connect(ctx context.Context, config DatabaseConfig) error {
	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return errors.NewAppError(errors.ErrorTypeValidation, "invalid database configuration", err)
	}

	startTime := time.Now()
	s.connectionTimeout = config.Timeout
	s.dialect = DialectFor(config.Driver)

	s.logger.WithFields(map[string]interface{}{
		"driver": config.Driver,
		"target": config.Target(),
	}).Info("Attempting database connection")
	s.logger.WithField("dsn", logging.RedactDSN(config.DSN())).Debug("Resolved connection string")

	ctx, cancel := context.WithTimeout(ctx, s.connectionTimeout)
	defer cancel()

	var db *sqlx.DB
	err := s.retryHandler.Retry(ctx, func() error {
		var openErr error
		db, openErr = sqlx.Open(config.Driver, config.DSN())
		if openErr != nil {
			return errors.WrapError(openErr, "failed to open database connection")
		}

		if config.Driver == DriverMySQL {
			db.SetMaxOpenConns(10)
			db.SetMaxIdleConns(5)
			db.SetConnMaxLifetime(5 * time.Minute)
		}

		if pingErr := db.PingContext(ctx); pingErr != nil {
			db.Close()
			return errors.WrapError(pingErr, "failed to ping database")
		}

		return nil
	})

	s.logger.LogDatabaseConnection(config.Driver, config.Target(), err == nil, time.Since(startTime), err)

	if err != nil {
		return err
	}

	s.db = db
	return nil
}

// DB returns the underlying handle
func (s *Service) DB() *sqlx.DB {
	return s.db
}

// Dialect returns the dialect of the connected database
func (s *Service) Dialect() Dialect {
	if s.dialect == nil {
		return SQLiteDialect{}
	}
	return s.dialect
}

// Close gracefully closes the database connection
func (s *Service) Close() error {
	if s.db == nil {
		return nil
	}

	s.logger.Debug("Closing database connection")
	if err := s.db.Close(); err != nil {
		return errors.WrapError(err, "failed to close database connection")
	}
	s.db = nil
	return nil
}

// QueryAll runs query outside of any transaction
func (s *Service) QueryAll(ctx context.Context, query string, args ...interface{}) ([]Row, error) {
	if s.db == nil {
		return nil, errors.NewAppError(errors.ErrorTypeValidation, "database connection is nil", nil)
	}
	return s.queryAll(ctx, s.db, query, args...)
}

// ReadTransaction runs fn inside one read-only transaction. Every query issued
// through the Querier handed to fn observes the same database state. The
// transaction is committed when fn succeeds and rolled back otherwise.
func (s *Service) ReadTransaction(ctx context.Context, fn func(ctx context.Context, q Querier) error) error {
	if s.db == nil {
		return errors.NewAppError(errors.ErrorTypeValidation, "database connection is nil", nil)
	}

	tx, err := s.db.BeginTxx(ctx, s.Dialect().ReadTxOptions())
	if err != nil {
		return errors.WrapError(err, "failed to begin read transaction")
	}

	if err := fn(ctx, &txQuerier{tx: tx, service: s}); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			s.logger.WithField("error", rollbackErr.Error()).Warn("Failed to roll back read transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.WrapError(err, "failed to commit read transaction")
	}

	return nil
}

// WithTransaction runs fn in a read-write transaction
func (s *Service) WithTransaction(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	if s.db == nil {
		return errors.NewAppError(errors.ErrorTypeValidation, "database connection is nil", nil)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.WrapError(err, "failed to begin transaction")
	}

	if err := fn(tx); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			s.logger.WithField("error", rollbackErr.Error()).Error("Failed to rollback transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.WrapError(err, "failed to commit transaction")
	}
	return nil
}

// GetVersion retrieves the database engine version
func (s *Service) GetVersion(ctx context.Context) (string, error) {
	if s.db == nil {
		return "", errors.NewAppError(errors.ErrorTypeValidation, "database connection is nil", nil)
	}

	query := "SELECT VERSION()"
	if s.Dialect().Name() == DriverSQLite {
		query = "SELECT sqlite_version()"
	}

	var version string
	startTime := time.Now()
	err := s.db.QueryRowxContext(ctx, query).Scan(&version)
	s.logger.LogSQLExecution(query, time.Since(startTime), 1, err)
	if err != nil {
		return "", errors.WrapError(err, "failed to get database version")
	}

	return version, nil
}

func (s *Service) queryAll(ctx context.Context, q sqlx.QueryerContext, query string, args ...interface{}) ([]Row, error) {
	startTime := time.Now()

	rows, err := q.QueryxContext(ctx, query, args...)
	if err != nil {
		s.logger.LogSQLExecution(query, time.Since(startTime), 0, err)
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	typeNames := make([]string, len(columnTypes))
	for i, ct := range columnTypes {
		typeNames[i] = ct.DatabaseTypeName()
	}

	dialect := s.Dialect()
	result := make([]Row, 0)
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			s.logger.LogSQLExecution(query, time.Since(startTime), int64(len(result)), err)
			return nil, err
		}
		for i := range values {
			if i < len(typeNames) {
				values[i] = dialect.ScanValue(typeNames[i], values[i])
			}
		}
		result = append(result, Row{Columns: columns, Values: values})
	}

	err = rows.Err()
	s.logger.LogSQLExecution(query, time.Since(startTime), int64(len(result)), err)
	if err != nil {
		return nil, err
	}

	return result, nil
}

type txQuerier struct {
	tx      *sqlx.Tx
	service *Service
}

func (t *txQuerier) QueryAll(ctx context.Context, query string, args ...interface{}) ([]Row, error) {
	return t.service.queryAll(ctx, t.tx, query, args...)
}
