package snapshot

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"db-snapshot/internal/database"
	"db-snapshot/internal/migration"
)

// SchemaSource discovers the user tables of the live database
type SchemaSource interface {
	ListTables(ctx context.Context, q database.Querier) ([]string, error)
}

// Introspector lists user tables from the engine catalog, leaving out engine
// internals and the migration ledger table. Results are never cached.
type Introspector struct {
	dialect database.Dialect
}

// NewIntrospector creates an Introspector for dialect
func NewIntrospector(dialect database.Dialect) *Introspector {
	if dialect == nil {
		dialect = database.SQLiteDialect{}
	}
	return &Introspector{dialect: dialect}
}

// ListTables returns the user tables sorted by name
func (i *Introspector) ListTables(ctx context.Context, q database.Querier) ([]string, error) {
	rows, err := q.QueryAll(ctx, i.tablesQuery(), migration.TableName)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	tables := make([]string, 0, len(rows))
	for _, row := range rows {
		if len(row.Values) == 0 {
			continue
		}
		switch name := row.Values[0].(type) {
		case string:
			tables = append(tables, name)
		case []byte:
			tables = append(tables, string(name))
		default:
			return nil, fmt.Errorf("unexpected table name type %T", name)
		}
	}

	sort.Strings(tables)
	return tables, nil
}

func (i *Introspector) tablesQuery() string {
	if i.dialect.Name() == database.DriverMySQL {
		return `SELECT TABLE_NAME AS name FROM INFORMATION_SCHEMA.TABLES
			WHERE TABLE_SCHEMA = DATABASE() AND TABLE_TYPE = 'BASE TABLE' AND TABLE_NAME <> ?
			ORDER BY TABLE_NAME`
	}
	return `SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite\_%' ESCAPE '\' AND name <> ?
		ORDER BY name`
}

// selectAllQuery returns the query that reads every row of table as stored.
// SQLite columns are projected through unary plus, which drops the declared
// type so DATE, DATETIME and TIMESTAMP text is not parsed into time values.
func selectAllQuery(ctx context.Context, q database.Querier, dialect database.Dialect, table string) (string, error) {
	from := " FROM " + dialect.QuoteIdentifier(table)
	if dialect.Name() != database.DriverSQLite {
		return "SELECT *" + from, nil
	}

	rows, err := q.QueryAll(ctx, `SELECT name FROM pragma_table_xinfo(?) WHERE hidden <> 1 ORDER BY cid`, table)
	if err != nil {
		return "", fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	if len(rows) == 0 {
		return "SELECT *" + from, nil
	}

	columns := make([]string, 0, len(rows))
	for _, row := range rows {
		name, _ := row.Get("name")
		var column string
		switch n := name.(type) {
		case string:
			column = n
		case []byte:
			column = string(n)
		default:
			return "", fmt.Errorf("unexpected column name type %T", name)
		}
		quoted := dialect.QuoteIdentifier(column)
		columns = append(columns, "+"+quoted+" AS "+quoted)
	}

	return "SELECT " + strings.Join(columns, ", ") + from, nil
}
