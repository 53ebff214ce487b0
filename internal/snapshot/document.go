package snapshot

import (
	"bytes"
	"encoding/json"

	"db-snapshot/internal/migration"
)

// Reserved document keys. They are never treated as tables.
const (
	MigrationsKey = "_migrations"
	MetadataKey   = "_metadata"
)

// IsReservedKey reports whether name collides with a reserved document key
func IsReservedKey(name string) bool {
	return name == MigrationsKey || name == MetadataKey
}

// Metadata summarizes a snapshot document
type Metadata struct {
	CreatedAt    string `json:"created_at" yaml:"created_at"`
	Label        string `json:"label" yaml:"label"`
	TablesCount  int    `json:"tables_count" yaml:"tables_count"`
	TotalRecords int    `json:"total_records" yaml:"total_records"`
}

// TableData holds the encoded rows of one table
type TableData struct {
	Name string
	Rows []Mapping
}

// Document is the full content of one snapshot file. It serializes as one
// JSON object: tables in the order they were added, then _migrations, then _metadata.
type Document struct {
	Tables     []TableData
	Migrations []migration.Record
	Metadata   Metadata
}

// AddTable appends a table; nil rows are stored as an empty sequence
func (d *Document) AddTable(name string, rows []Mapping) {
	if rows == nil {
		rows = []Mapping{}
	}
	d.Tables = append(d.Tables, TableData{Name: name, Rows: rows})
}

// Table returns the rows stored for name
func (d *Document) Table(name string) ([]Mapping, bool) {
	for _, t := range d.Tables {
		if t.Name == name {
			return t.Rows, true
		}
	}
	return nil, false
}

// Summarize computes metadata from the tables only; reserved keys never count
func (d *Document) Summarize(label, createdAt string) Metadata {
	total := 0
	for _, t := range d.Tables {
		total += len(t.Rows)
	}
	return Metadata{
		CreatedAt:    createdAt,
		Label:        label,
		TablesCount:  len(d.Tables),
		TotalRecords: total,
	}
}

// MarshalJSON implements json.Marshaler
func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	writeMember := func(key string, value interface{}) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(value)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}

	for _, t := range d.Tables {
		rows := t.Rows
		if rows == nil {
			rows = []Mapping{}
		}
		if err := writeMember(t.Name, rows); err != nil {
			return nil, err
		}
	}

	migrations := d.Migrations
	if migrations == nil {
		migrations = []migration.Record{}
	}
	if err := writeMember(MigrationsKey, migrations); err != nil {
		return nil, err
	}
	if err := writeMember(MetadataKey, d.Metadata); err != nil {
		return nil, err
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ReadMetadata extracts the _metadata member of a serialized snapshot
func ReadMetadata(data []byte) (Metadata, error) {
	var envelope struct {
		Metadata *Metadata `json:"_metadata"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return Metadata{}, NewSerializationError("failed to parse snapshot", err)
	}
	if envelope.Metadata == nil {
		return Metadata{}, NewSerializationError("snapshot has no "+MetadataKey+" member", nil)
	}
	return *envelope.Metadata, nil
}
