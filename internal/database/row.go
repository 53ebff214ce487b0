package database

import "context"

// Row is a single result row with its columns in query order.
type Row struct {
	Columns []string
	Values  []interface{}
}

// Get returns the value of the named column.
func (r Row) Get(column string) (interface{}, bool) {
	for i, c := range r.Columns {
		if c == column {
			return r.Values[i], true
		}
	}
	return nil, false
}

// Querier runs a query and materializes every row.
type Querier interface {
	QueryAll(ctx context.Context, query string, args ...interface{}) ([]Row, error)
}

// ReadTransactor runs a function against a single read-consistent view of the database.
type ReadTransactor interface {
	Querier
	ReadTransaction(ctx context.Context, fn func(ctx context.Context, q Querier) error) error
	Dialect() Dialect
}
