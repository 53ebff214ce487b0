package snapshot

import (
	"context"

	"db-snapshot/internal/database"
	"db-snapshot/internal/migration"
	"db-snapshot/internal/storage"
)

// Manager bundles the snapshot components over one database and one filesystem
type Manager struct {
	config    Config
	writer    *Writer
	catalog   *Catalog
	rotator   *Rotator
	inspector *Inspector
	logger    *SnapshotLogger
	metrics   *Metrics
}

// NewManager creates a Manager
func NewManager(db database.ReadTransactor, fs storage.Filesystem, config Config, logger *SnapshotLogger) *Manager {
	config.SetDefaults()
	if logger == nil {
		logger = NewNopSnapshotLogger()
	}

	catalog := NewCatalog(fs, config.Directory)
	writer := NewWriter(db, fs, config, logger)
	ledger := migration.NewLedger(logger.Logger())

	return &Manager{
		config:    config,
		writer:    writer,
		catalog:   catalog,
		rotator:   NewRotator(catalog, fs, logger),
		inspector: NewInspector(db, NewIntrospector(db.Dialect()), ledger),
		logger:    logger,
	}
}

// WithMetrics records writer and rotator activity in metrics
func (m *Manager) WithMetrics(metrics *Metrics) *Manager {
	m.metrics = metrics
	m.writer.WithMetrics(metrics)
	m.rotator.WithMetrics(metrics)
	return m
}

func (m *Manager) Config() Config { return m.config }
func (m *Manager) Writer() *Writer { return m.writer }
func (m *Manager) Catalog() *Catalog { return m.catalog }
func (m *Manager) Rotator() *Rotator { return m.rotator }
func (m *Manager) Inspector() *Inspector { return m.inspector }
func (m *Manager) Metrics() *Metrics { return m.metrics }
func (m *Manager) Logger() *SnapshotLogger { return m.logger }

// CreateSnapshot writes a new snapshot and returns its filename
func (m *Manager) CreateSnapshot(ctx context.Context, label string) (string, error) {
	filename, err := m.writer.CreateSnapshot(ctx, label)
	m.flushMetrics(ctx)
	return filename, err
}

// ListSnapshots returns snapshot filenames newest first
func (m *Manager) ListSnapshots(ctx context.Context) ([]string, error) {
	return m.catalog.ListSnapshots(ctx)
}

// RotateSnapshots deletes all but the newest keep snapshots
func (m *Manager) RotateSnapshots(ctx context.Context, keep int) RotationReport {
	report := m.rotator.RotateSnapshots(ctx, keep)
	m.flushMetrics(ctx)
	return report
}

// PlanRotation lists the snapshots RotateSnapshots would keep and delete
func (m *Manager) PlanRotation(ctx context.Context, keep int) ([]string, []string, error) {
	return m.rotator.Plan(ctx, keep)
}

// CreateAndRotate writes a snapshot and then rotates. Rotation only runs when
// the snapshot was written.
func (m *Manager) CreateAndRotate(ctx context.Context, label string, keep int) (string, RotationReport, error) {
	filename, err := m.writer.CreateSnapshot(ctx, label)
	if err != nil {
		m.flushMetrics(ctx)
		return "", RotationReport{}, err
	}

	report := m.rotator.RotateSnapshots(ctx, keep)
	m.flushMetrics(ctx)
	return filename, report, nil
}

// Latest returns the newest snapshot filename, if any
func (m *Manager) Latest(ctx context.Context) (string, bool, error) {
	names, err := m.catalog.ListSnapshots(ctx)
	if err != nil {
		return "", false, err
	}
	if len(names) == 0 {
		return "", false, nil
	}
	return names[0], true, nil
}

// Inspect summarizes the live database
func (m *Manager) Inspect(ctx context.Context) (*Inspection, error) {
	return m.inspector.Inspect(ctx)
}

func (m *Manager) flushMetrics(ctx context.Context) {
	if err := m.metrics.WriteTextfile(m.config.MetricsFile); err != nil {
		m.logger.Warn(ctx, "Failed to write metrics file", map[string]interface{}{
			"path":  m.config.MetricsFile,
			"error": err.Error(),
		})
	}
}
