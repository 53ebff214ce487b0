package snapshot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_CreateAndRotate(t *testing.T) {
	service := newSQLiteService(t)
	execAll(t, service,
		`CREATE TABLE accounts (id INTEGER)`,
		`INSERT INTO accounts VALUES (1)`,
	)

	fs := newMemFilesystem()
	seedSnapshots(t, fs,
		"auto_2025-01-10T08-00-00-000Z.json",
		"auto_2025-01-11T08-00-00-000Z.json",
		"auto_2025-01-12T08-00-00-000Z.json",
	)

	config := DefaultConfig()
	config.MetricsFile = filepath.Join(t.TempDir(), "db_snapshot.prom")

	manager := NewManager(service, fs, config, nil).WithMetrics(NewMetrics())
	manager.Writer().WithClock(func() time.Time { return fixedTime })

	filename, report, err := manager.CreateAndRotate(context.Background(), "pre-upgrade", 2)
	require.NoError(t, err)
	assert.Equal(t, "pre-upgrade_2025-01-15T10-30-45-123Z.json", filename)
	assert.Equal(t, []string{filename, "auto_2025-01-12T08-00-00-000Z.json"}, report.Kept)
	assert.Equal(t, []string{
		"auto_2025-01-11T08-00-00-000Z.json",
		"auto_2025-01-10T08-00-00-000Z.json",
	}, report.Deleted)

	latest, ok, err := manager.Latest(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, filename, latest)

	content, err := os.ReadFile(config.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "db_snapshot_created_total 1")
	assert.Contains(t, string(content), "db_snapshot_last_records 1")
	assert.Contains(t, string(content), "db_snapshot_rotation_deleted_total 2")
}

func TestManager_FailedCreateSkipsRotation(t *testing.T) {
	service := newSQLiteService(t)

	inner := newMemFilesystem()
	seedSnapshots(t, inner,
		"auto_2025-01-10T08-00-00-000Z.json",
		"auto_2025-01-11T08-00-00-000Z.json",
	)
	fs := &faultyFilesystem{Filesystem: inner, writeErr: errors.New("disk full")}

	manager := NewManager(service, fs, DefaultConfig(), nil)

	filename, report, err := manager.CreateAndRotate(context.Background(), "doomed", 0)
	require.Error(t, err)
	assert.True(t, IsStorageFailure(err))
	assert.Empty(t, filename)
	assert.Empty(t, report.Deleted)

	names, err := manager.ListSnapshots(context.Background())
	require.NoError(t, err)
	assert.Len(t, names, 2)
}

func TestManager_LatestWithoutSnapshots(t *testing.T) {
	service := newSQLiteService(t)
	manager := NewManager(service, newMemFilesystem(), DefaultConfig(), nil)

	latest, ok, err := manager.Latest(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, latest)
}

func TestManager_Inspect(t *testing.T) {
	service := newSQLiteService(t)
	execAll(t, service,
		`CREATE TABLE accounts (id INTEGER)`,
		`INSERT INTO accounts VALUES (1), (2)`,
	)

	manager := NewManager(service, newMemFilesystem(), DefaultConfig(), nil)
	inspection, err := manager.Inspect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []TableSummary{{Name: "accounts", Rows: 2}}, inspection.Tables)
	assert.NotEmpty(t, inspection.MigrationsError)
}

func TestManager_Accessors(t *testing.T) {
	service := newSQLiteService(t)
	manager := NewManager(service, newMemFilesystem(), Config{}, nil)

	assert.Equal(t, DefaultConfig(), manager.Config())
	assert.Equal(t, DefaultDirectory, manager.Catalog().Directory())
	assert.NotNil(t, manager.Rotator())
	assert.NotNil(t, manager.Inspector())
	assert.NotNil(t, manager.Logger())
	assert.Nil(t, manager.Metrics())
}

func TestManager_MetricsFileFailureIsNotFatal(t *testing.T) {
	service := newSQLiteService(t)

	config := DefaultConfig()
	config.MetricsFile = filepath.Join(t.TempDir(), "missing", "dir", "db_snapshot.prom")

	manager := NewManager(service, newMemFilesystem(), config, nil).WithMetrics(NewMetrics())
	filename, err := manager.CreateSnapshot(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, IsSnapshotFilename(filename))

	report := manager.RotateSnapshots(context.Background(), 5)
	assert.Equal(t, []string{filename}, report.Kept)
}
