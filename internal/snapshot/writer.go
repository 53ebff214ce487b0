package snapshot

import (
	"context"
	"encoding/json"
	"path"
	"time"

	"db-snapshot/internal/database"
	"db-snapshot/internal/migration"
	"db-snapshot/internal/storage"
)

// MigrationSource returns the migration ledger as seen through q
type MigrationSource interface {
	ExecutedMigrations(ctx context.Context, q database.Querier) ([]migration.Record, error)
}

// Writer exports the database into one snapshot file per call
type Writer struct {
	db           database.ReadTransactor
	fs           storage.Filesystem
	dir          string
	defaultLabel string
	schema       SchemaSource
	migrations   MigrationSource
	logger       *SnapshotLogger
	metrics      *Metrics
	now          func() time.Time
}

// NewWriter creates a Writer that stores snapshots under config.Directory
func NewWriter(db database.ReadTransactor, fs storage.Filesystem, config Config, logger *SnapshotLogger) *Writer {
	config.SetDefaults()
	if logger == nil {
		logger = NewNopSnapshotLogger()
	}

	return &Writer{
		db:           db,
		fs:           fs,
		dir:          config.Directory,
		defaultLabel: config.DefaultLabel,
		schema:       NewIntrospector(db.Dialect()),
		migrations:   migration.NewLedger(logger.Logger()),
		logger:       logger,
		now:          time.Now,
	}
}

// WithSchemaSource replaces the table discovery
func (w *Writer) WithSchemaSource(schema SchemaSource) *Writer {
	w.schema = schema
	return w
}

// WithMigrationSource replaces the migration ledger reader
func (w *Writer) WithMigrationSource(source MigrationSource) *Writer {
	w.migrations = source
	return w
}

func (w *Writer) WithMetrics(metrics *Metrics) *Writer {
	w.metrics = metrics
	return w
}

// WithClock sets the time source used for filenames and created_at
func (w *Writer) WithClock(now func() time.Time) *Writer {
	w.now = now
	return w
}

// CreateSnapshot exports every user table and the migration ledger and
// returns the name of the file written. An empty label means the default
// label; any other label is recorded in the metadata exactly as given.
func (w *Writer) CreateSnapshot(ctx context.Context, label string) (string, error) {
	if label == "" {
		label = w.defaultLabel
	}

	takenAt := w.now()
	filename := Filename(label, takenAt)
	target := path.Join(w.dir, filename)

	finish := w.logger.LogSnapshotStart(ctx, label, filename)
	startTime := time.Now()

	metadata, err := w.create(ctx, label, takenAt, target)

	w.metrics.ObserveSnapshot(metadata, time.Since(startTime), err)
	finish(err, metadata)

	if err != nil {
		return "", err
	}
	return filename, nil
}

func (w *Writer) create(ctx context.Context, label string, takenAt time.Time, target string) (*Metadata, error) {
	if err := w.fs.MkdirAll(ctx, w.dir); err != nil {
		return nil, NewStorageError("failed to create snapshot directory", err).
			WithContext("directory", w.fs.Location(w.dir))
	}

	doc, err := w.export(ctx)
	if err != nil {
		return nil, err
	}
	doc.Metadata = doc.Summarize(label, FormatTimestamp(takenAt))

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, NewSerializationError("failed to serialize snapshot", err)
	}

	if err := w.fs.WriteFile(ctx, target, data); err != nil {
		return nil, NewStorageError("failed to write snapshot", err).
			WithContext("path", w.fs.Location(target))
	}

	return &doc.Metadata, nil
}

// export reads tables and migrations inside one read transaction so every
// table reflects the same point in time.
func (w *Writer) export(ctx context.Context) (*Document, error) {
	doc := &Document{}
	dialect := w.db.Dialect()

	err := w.db.ReadTransaction(ctx, func(ctx context.Context, q database.Querier) error {
		tables, err := w.schema.ListTables(ctx, q)
		if err != nil {
			return err
		}

		for _, table := range tables {
			if IsReservedKey(table) {
				w.logger.Warn(ctx, "Skipping table that collides with a reserved snapshot key", map[string]interface{}{
					"table": table,
				})
				continue
			}

			startTime := time.Now()
			query, err := selectAllQuery(ctx, q, dialect, table)
			var rows []database.Row
			if err == nil {
				rows, err = q.QueryAll(ctx, query)
			}
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				w.logger.LogTableFailure(ctx, table, time.Since(startTime), err)
				w.metrics.ObserveTableFailure()
				doc.AddTable(table, nil)
				continue
			}

			records := make([]Mapping, 0, len(rows))
			for _, row := range rows {
				records = append(records, EncodeRow(row))
			}
			doc.AddTable(table, records)
			w.logger.Logger().LogTableExport(table, len(records), time.Since(startTime), nil)
		}

		migrations, err := w.migrations.ExecutedMigrations(ctx, q)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.LogMigrationsFailure(ctx, err)
			migrations = []migration.Record{}
		}
		doc.Migrations = migrations

		return nil
	})
	if err != nil {
		return nil, NewDatabaseError("snapshot read transaction failed", err)
	}

	return doc, nil
}
