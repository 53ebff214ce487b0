package migration

import (
	"math"
	"testing"
	"time"

	"db-snapshot/internal/database"
)

func TestMigration_Validate(t *testing.T) {
	tests := []struct {
		name      string
		migration Migration
		wantErr   bool
	}{
		{"valid", Migration{Name: "001", Statements: []string{"CREATE TABLE t (id INTEGER)"}}, false},
		{"empty name", Migration{Name: " ", Statements: []string{"SELECT 1"}}, true},
		{"no statements", Migration{Name: "001"}, true},
		{"blank statement", Migration{Name: "001", Statements: []string{"SELECT 1", ""}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.migration.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRecordFromRow(t *testing.T) {
	row := database.Row{
		Columns: []string{"id", "name", "executed_at"},
		Values:  []interface{}{"7", []byte("007_seed"), int64(1736935200)},
	}

	rec, err := recordFromRow(row)
	if err != nil {
		t.Fatalf("recordFromRow() error = %v", err)
	}

	want := Record{ID: 7, Name: "007_seed", ExecutedAt: "1736935200"}
	if rec != want {
		t.Errorf("recordFromRow() = %+v, want %+v", rec, want)
	}

	if _, err := recordFromRow(database.Row{Columns: []string{"id"}, Values: []interface{}{true}}); err == nil {
		t.Error("expected error for non-numeric id")
	}
}

func TestToInt64(t *testing.T) {
	if got, err := toInt64(uint64(math.MaxInt64)); err != nil || got != math.MaxInt64 {
		t.Errorf("toInt64(MaxInt64) = %d, %v", got, err)
	}
	if _, err := toInt64(uint64(math.MaxUint64)); err == nil {
		t.Error("expected error for uint64 beyond int64")
	}
	if _, err := toInt64(nil); err == nil {
		t.Error("expected error for NULL id")
	}
}

func TestToString(t *testing.T) {
	ts := time.Date(2025, 1, 1, 9, 30, 0, 0, time.FixedZone("JST", 9*3600))
	if got := toString(ts); got != "2025-01-01T00:30:00Z" {
		t.Errorf("toString(time) = %s", got)
	}
	if got := toString(nil); got != "" {
		t.Errorf("toString(nil) = %q", got)
	}
	if got := toString(1.5); got != "1.5" {
		t.Errorf("toString(float) = %s", got)
	}
}
