package snapshot

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus instruments for snapshot operations. Every
// instance has its own registry; a nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	SnapshotsCreated prometheus.Counter
	SnapshotsFailed  prometheus.Counter
	TableFailures    prometheus.Counter
	LastTables       prometheus.Gauge
	LastRecords      prometheus.Gauge
	Duration         prometheus.Histogram
	RotationDeleted  prometheus.Counter
	RotationFailures prometheus.Counter
}

// NewMetrics creates and registers the snapshot instruments
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SnapshotsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "db_snapshot_created_total",
			Help: "Cumulative number of snapshots written.",
		}),
		SnapshotsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "db_snapshot_failed_total",
			Help: "Cumulative number of snapshot exports that aborted.",
		}),
		TableFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "db_snapshot_table_failures_total",
			Help: "Cumulative number of tables exported as empty after a read error.",
		}),
		LastTables: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "db_snapshot_last_tables",
			Help: "Number of tables in the most recent snapshot.",
		}),
		LastRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "db_snapshot_last_records",
			Help: "Number of records in the most recent snapshot.",
		}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "db_snapshot_duration_seconds",
			Help:    "Time taken to export and write one snapshot.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		RotationDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "db_snapshot_rotation_deleted_total",
			Help: "Cumulative number of snapshots removed by rotation.",
		}),
		RotationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "db_snapshot_rotation_failures_total",
			Help: "Cumulative number of snapshots rotation failed to remove.",
		}),
	}

	m.registry.MustRegister(
		m.SnapshotsCreated,
		m.SnapshotsFailed,
		m.TableFailures,
		m.LastTables,
		m.LastRecords,
		m.Duration,
		m.RotationDeleted,
		m.RotationFailures,
	)
	return m
}

// Registry exposes the registry, e.g. for an HTTP handler
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveSnapshot records one finished export
func (m *Metrics) ObserveSnapshot(metadata *Metadata, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.Duration.Observe(duration.Seconds())
	if err != nil {
		m.SnapshotsFailed.Inc()
		return
	}
	m.SnapshotsCreated.Inc()
	if metadata != nil {
		m.LastTables.Set(float64(metadata.TablesCount))
		m.LastRecords.Set(float64(metadata.TotalRecords))
	}
}

func (m *Metrics) ObserveTableFailure() {
	if m == nil {
		return
	}
	m.TableFailures.Inc()
}

func (m *Metrics) ObserveRotation(deleted, failed int) {
	if m == nil {
		return
	}
	m.RotationDeleted.Add(float64(deleted))
	m.RotationFailures.Add(float64(failed))
}

// WriteTextfile writes the current values in the text exposition format,
// suitable for the node_exporter textfile collector
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
