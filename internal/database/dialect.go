package database

import (
	"database/sql"
	"strings"
)

// Dialect captures the engine differences the snapshot code cares about.
type Dialect interface {
	Name() string
	QuoteIdentifier(name string) string
	// ReadTxOptions returns options that give repeatable-read semantics for the whole transaction.
	ReadTxOptions() *sql.TxOptions
	// ScanValue normalizes a scanned value given its column's database type name.
	ScanValue(databaseType string, v interface{}) interface{}
}

// DialectFor returns the dialect for a driver name.
func DialectFor(driver string) Dialect {
	if driver == DriverMySQL {
		return MySQLDialect{}
	}
	return SQLiteDialect{}
}

// SQLiteDialect quotes with double quotes. A deferred transaction pins a WAL
// snapshot at its first read, which is all the isolation an export needs.
type SQLiteDialect struct{}

func (SQLiteDialect) Name() string { return DriverSQLite }

func (SQLiteDialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (SQLiteDialect) ReadTxOptions() *sql.TxOptions {
	return &sql.TxOptions{ReadOnly: true}
}

// ScanValue keeps values as scanned. The driver already separates TEXT
// (string) from BLOB ([]byte) by storage class.
func (SQLiteDialect) ScanValue(_ string, v interface{}) interface{} {
	return v
}

// MySQLDialect quotes with backticks and reads under REPEATABLE READ.
type MySQLDialect struct{}

func (MySQLDialect) Name() string { return DriverMySQL }

func (MySQLDialect) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (MySQLDialect) ReadTxOptions() *sql.TxOptions {
	return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
}

// mysqlBinaryTypes are the column types whose values are raw bytes. The text
// protocol returns every other string-like value as []byte too.
var mysqlBinaryTypes = map[string]bool{
	"BINARY":     true,
	"VARBINARY":  true,
	"BLOB":       true,
	"TINYBLOB":   true,
	"MEDIUMBLOB": true,
	"LONGBLOB":   true,
	"BIT":        true,
	"GEOMETRY":   true,
	"VECTOR":     true,
}

// ScanValue turns []byte from text-like columns (VARCHAR, TEXT, DECIMAL, ENUM,
// JSON, DATETIME, ...) into strings and leaves binary columns alone.
func (MySQLDialect) ScanValue(databaseType string, v interface{}) interface{} {
	b, ok := v.([]byte)
	if !ok || mysqlBinaryTypes[strings.ToUpper(databaseType)] {
		return v
	}
	return string(b)
}
