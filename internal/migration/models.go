package migration

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"db-snapshot/internal/database"
)

// TableName is the ledger table. It is bookkeeping, not user data, and is
// excluded from table exports.
const TableName = "migrations"

// Record is one executed migration as stored in the ledger
type Record struct {
	ID         int64  `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	ExecutedAt string `json:"executed_at" yaml:"executed_at"`
}

// Migration is a named schema change applied at most once
type Migration struct {
	Name       string
	Statements []string
}

// Validate validates the Migration
func (m *Migration) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("migration name cannot be empty")
	}
	if len(m.Statements) == 0 {
		return fmt.Errorf("migration %s has no statements", m.Name)
	}
	for i, stmt := range m.Statements {
		if strings.TrimSpace(stmt) == "" {
			return fmt.Errorf("migration %s: statement %d is empty", m.Name, i+1)
		}
	}
	return nil
}

// recordFromRow decodes a ledger row. Column values arrive with driver-specific
// Go types, so they are normalized here.
func recordFromRow(row database.Row) (Record, error) {
	var rec Record

	id, _ := row.Get("id")
	parsed, err := toInt64(id)
	if err != nil {
		return rec, fmt.Errorf("invalid migration id: %w", err)
	}
	rec.ID = parsed

	name, _ := row.Get("name")
	rec.Name = toString(name)

	executedAt, _ := row.Get("executed_at")
	rec.ExecutedAt = toString(executedAt)

	return rec, nil
}

func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("id %d out of range", n)
		}
		return int64(n), nil
	case float64:
		return int64(n), nil
	case []byte:
		return strconv.ParseInt(string(n), 10, 64)
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}

func toString(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	case time.Time:
		return s.UTC().Format(time.RFC3339)
	case int64:
		return strconv.FormatInt(s, 10)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(s)
	}
}
