package migration

import (
	"context"
	"fmt"
	"time"

	"db-snapshot/internal/database"
	"db-snapshot/internal/errors"
	"db-snapshot/internal/logging"

	"github.com/jmoiron/sqlx"
)

// Executor is what Apply needs from the database service
type Executor interface {
	database.Querier
	Dialect() database.Dialect
	WithTransaction(ctx context.Context, fn func(tx *sqlx.Tx) error) error
}

// Ledger reads and maintains the migration history table
type Ledger struct {
	logger *logging.Logger
	now    func() time.Time
}

// NewLedger creates a new Ledger
func NewLedger(logger *logging.Logger) *Ledger {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Ledger{logger: logger, now: time.Now}
}

// ExecutedMigrations returns the ledger in id order. It fails when the ledger
// table does not exist; callers decide whether that matters.
func (l *Ledger) ExecutedMigrations(ctx context.Context, q database.Querier) ([]Record, error) {
	rows, err := q.QueryAll(ctx, fmt.Sprintf("SELECT id, name, executed_at FROM %s ORDER BY id", TableName))
	if err != nil {
		return nil, errors.WrapError(err, "failed to read migration history")
	}

	records := make([]Record, 0, len(rows))
	for i, row := range rows {
		rec, err := recordFromRow(row)
		if err != nil {
			l.logger.WithFields(map[string]interface{}{
				"row":   i + 1,
				"error": err.Error(),
			}).Warn("Skipping malformed migration history row")
			continue
		}
		records = append(records, rec)
	}

	return records, nil
}

// Pending returns the migrations not yet recorded in the ledger. An unreadable
// ledger counts as empty; Apply reports real failures.
func (l *Ledger) Pending(ctx context.Context, q database.Querier, migrations []Migration) []Migration {
	existing, err := l.ExecutedMigrations(ctx, q)
	if err != nil {
		l.logger.WithField("error", err.Error()).Debug("Migration history unavailable, treating every migration as pending")
	}

	done := make(map[string]bool, len(existing))
	for _, rec := range existing {
		done[rec.Name] = true
	}

	var pending []Migration
	for _, m := range migrations {
		if !done[m.Name] {
			pending = append(pending, m)
		}
	}
	return pending
}

// Apply creates the ledger table if needed and runs every migration not yet
// recorded, in order, each in its own transaction. It returns the names applied.
func (l *Ledger) Apply(ctx context.Context, db Executor, migrations []Migration) ([]string, error) {
	for i := range migrations {
		if err := migrations[i].Validate(); err != nil {
			return nil, errors.NewAppError(errors.ErrorTypeValidation, "invalid migration", err)
		}
	}

	finishLog := l.logger.LogOperationStart("migration_apply", map[string]interface{}{
		"migrations": len(migrations),
	})

	applied, err := l.apply(ctx, db, migrations)
	finishLog(err)
	return applied, err
}

func (l *Ledger) apply(ctx context.Context, db Executor, migrations []Migration) ([]string, error) {
	createSQL := createLedgerSQL(db.Dialect())
	if err := db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, createSQL)
		return err
	}); err != nil {
		return nil, errors.WrapError(err, "failed to create migration ledger")
	}

	existing, err := l.ExecutedMigrations(ctx, db)
	if err != nil {
		return nil, err
	}

	done := make(map[string]bool, len(existing))
	for _, rec := range existing {
		done[rec.Name] = true
	}

	insertSQL := fmt.Sprintf("INSERT INTO %s (name, executed_at) VALUES (?, ?)", TableName)

	var applied []string
	for _, m := range migrations {
		if done[m.Name] {
			continue
		}

		startTime := time.Now()
		err := db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
			for _, stmt := range m.Statements {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return err
				}
			}
			_, err := tx.ExecContext(ctx, insertSQL, m.Name, l.now().UTC().Format(time.RFC3339))
			return err
		})
		l.logger.LogSQLExecution(fmt.Sprintf("migration %s", m.Name), time.Since(startTime), int64(len(m.Statements)), err)
		if err != nil {
			return applied, errors.WrapError(err, fmt.Sprintf("failed to apply migration %s", m.Name))
		}

		applied = append(applied, m.Name)
	}

	return applied, nil
}

func createLedgerSQL(dialect database.Dialect) string {
	if dialect.Name() == database.DriverMySQL {
		return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s ("+
			"id BIGINT AUTO_INCREMENT PRIMARY KEY, "+
			"name VARCHAR(255) NOT NULL UNIQUE, "+
			"executed_at VARCHAR(32) NOT NULL)", TableName)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s ("+
		"id INTEGER PRIMARY KEY AUTOINCREMENT, "+
		"name TEXT NOT NULL UNIQUE, "+
		"executed_at TEXT NOT NULL)", TableName)
}
