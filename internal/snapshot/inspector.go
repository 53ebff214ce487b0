package snapshot

import (
	"context"
	"fmt"
	"strconv"

	"db-snapshot/internal/database"
	"db-snapshot/internal/migration"
)

// TableSummary is the row count of one table
type TableSummary struct {
	Name  string `json:"name" yaml:"name"`
	Rows  int64  `json:"rows" yaml:"rows"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Inspection is a quick overview of the live database
type Inspection struct {
	Engine          string             `json:"engine" yaml:"engine"`
	Tables          []TableSummary     `json:"tables" yaml:"tables"`
	Migrations      []migration.Record `json:"migrations" yaml:"migrations"`
	MigrationsError string             `json:"migrations_error,omitempty" yaml:"migrations_error,omitempty"`
}

// Inspector reports table sizes and migration history without writing a snapshot
type Inspector struct {
	db         database.ReadTransactor
	schema     SchemaSource
	migrations MigrationSource
}

// NewInspector creates an Inspector
func NewInspector(db database.ReadTransactor, schema SchemaSource, migrations MigrationSource) *Inspector {
	return &Inspector{db: db, schema: schema, migrations: migrations}
}

// Inspect counts the rows of every user table and reads the migration ledger
// in one read transaction. A failing count or ledger read is reported in the
// result rather than returned.
func (i *Inspector) Inspect(ctx context.Context) (*Inspection, error) {
	dialect := i.db.Dialect()
	result := &Inspection{Engine: dialect.Name()}

	err := i.db.ReadTransaction(ctx, func(ctx context.Context, q database.Querier) error {
		tables, err := i.schema.ListTables(ctx, q)
		if err != nil {
			return err
		}

		result.Tables = make([]TableSummary, 0, len(tables))
		for _, table := range tables {
			summary := TableSummary{Name: table}

			rows, err := q.QueryAll(ctx, "SELECT COUNT(*) AS count FROM "+dialect.QuoteIdentifier(table))
			if err == nil && len(rows) > 0 && len(rows[0].Values) > 0 {
				summary.Rows, err = toCount(rows[0].Values[0])
			}
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				summary.Rows = -1
				summary.Error = err.Error()
			}

			result.Tables = append(result.Tables, summary)
		}

		migrations, err := i.migrations.ExecutedMigrations(ctx, q)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			result.MigrationsError = err.Error()
			migrations = []migration.Record{}
		}
		result.Migrations = migrations

		return nil
	})
	if err != nil {
		return nil, NewDatabaseError("inspection read transaction failed", err)
	}

	return result, nil
}

func toCount(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case []byte:
		return strconv.ParseInt(string(n), 10, 64)
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected count type %T", v)
	}
}
