package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_ListSnapshotsNewestFirst(t *testing.T) {
	fs := newMemFilesystem()
	seedSnapshots(t, fs,
		"auto_2025-01-15T08-00-00-000Z.json",
		"zz-last_2025-01-10T08-00-00-000Z.json",
		"aa-first_2025-01-20T08-00-00-000Z.json",
		"nightly_2025-01-18T08-00-00-000Z.json",
	)

	names, err := NewCatalog(fs, "").ListSnapshots(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"aa-first_2025-01-20T08-00-00-000Z.json",
		"nightly_2025-01-18T08-00-00-000Z.json",
		"auto_2025-01-15T08-00-00-000Z.json",
		"zz-last_2025-01-10T08-00-00-000Z.json",
	}, names)
}

func TestCatalog_MissingDirectory(t *testing.T) {
	names, err := NewCatalog(newMemFilesystem(), "nowhere").ListSnapshots(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, names)
	assert.Empty(t, names)
}

func TestCatalog_IgnoresOtherEntries(t *testing.T) {
	fs := newMemFilesystem()
	ctx := context.Background()
	seedSnapshots(t, fs,
		"auto_2025-01-15T08-00-00-000Z.json",
		"notes.txt",
		"auto_2025-01-16T08-00-00-000Z.json.bak",
	)
	require.NoError(t, fs.MkdirAll(ctx, DefaultDirectory+"/archive.json"))

	names, err := NewCatalog(fs, DefaultDirectory).ListSnapshots(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"auto_2025-01-15T08-00-00-000Z.json"}, names)
}

func TestCatalog_ReadDirFailure(t *testing.T) {
	inner := newMemFilesystem()
	seedSnapshots(t, inner, "auto_2025-01-15T08-00-00-000Z.json")
	fs := &faultyFilesystem{Filesystem: inner, readDirErr: errors.New("permission denied")}

	_, err := NewCatalog(fs, "").ListSnapshots(context.Background())
	require.Error(t, err)
	assert.True(t, IsStorageFailure(err))
}

func TestCatalog_Describe(t *testing.T) {
	service := newSQLiteService(t)
	execAll(t, service,
		`CREATE TABLE accounts (id INTEGER)`,
		`INSERT INTO accounts VALUES (1), (2)`,
	)

	fs := newMemFilesystem()
	filename, err := NewWriter(service, fs, DefaultConfig(), nil).
		WithClock(func() time.Time { return fixedTime }).
		CreateSnapshot(context.Background(), "describe me")
	require.NoError(t, err)

	catalog := NewCatalog(fs, "")
	meta, err := catalog.Describe(context.Background(), filename)
	require.NoError(t, err)
	assert.Equal(t, Metadata{
		CreatedAt:    "2025-01-15T10:30:45.123Z",
		Label:        "describe me",
		TablesCount:  1,
		TotalRecords: 2,
	}, meta)

	_, err = catalog.Describe(context.Background(), "missing_2025-01-01T00-00-00-000Z.json")
	assert.True(t, IsStorageFailure(err))
}

func TestCatalog_Paths(t *testing.T) {
	catalog := NewCatalog(newMemFilesystem(), "")
	assert.Equal(t, DefaultDirectory, catalog.Directory())
	assert.Equal(t, "db_snapshots/a.json", catalog.Path("a.json"))
	assert.Equal(t, "/docs/db_snapshots/a.json", catalog.Location("a.json"))
}

func TestSortNewestFirst(t *testing.T) {
	names := []string{
		"b_2025-01-15T08-00-00-000Z.json",
		"untimed.json",
		"a_2025-01-15T08-00-00-000Z.json",
		"c_2025-01-15T08-00-00-001Z.json",
	}
	SortNewestFirst(names)
	assert.Equal(t, []string{
		"c_2025-01-15T08-00-00-001Z.json",
		"b_2025-01-15T08-00-00-000Z.json",
		"a_2025-01-15T08-00-00-000Z.json",
		"untimed.json",
	}, names)
}
