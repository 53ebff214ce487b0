package snapshot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rotationFixture = []string{
	"auto_2025-01-10T08-00-00-000Z.json",
	"auto_2025-01-11T08-00-00-000Z.json",
	"nightly_2025-01-12T08-00-00-000Z.json",
	"auto_2025-01-13T08-00-00-000Z.json",
	"manual_2025-01-14T08-00-00-000Z.json",
}

func TestRotator_DeletesOldest(t *testing.T) {
	fs := newMemFilesystem()
	seedSnapshots(t, fs, rotationFixture...)
	catalog := NewCatalog(fs, "")

	report := NewRotator(catalog, fs, nil).RotateSnapshots(context.Background(), 3)

	assert.Equal(t, []string{
		"manual_2025-01-14T08-00-00-000Z.json",
		"auto_2025-01-13T08-00-00-000Z.json",
		"nightly_2025-01-12T08-00-00-000Z.json",
	}, report.Kept)
	assert.Equal(t, []string{
		"auto_2025-01-11T08-00-00-000Z.json",
		"auto_2025-01-10T08-00-00-000Z.json",
	}, report.Deleted)
	assert.Empty(t, report.Failed)

	remaining, err := catalog.ListSnapshots(context.Background())
	require.NoError(t, err)
	assert.Equal(t, report.Kept, remaining)
}

func TestRotator_Plan(t *testing.T) {
	fs := newMemFilesystem()
	seedSnapshots(t, fs, rotationFixture...)
	rotator := NewRotator(NewCatalog(fs, ""), fs, nil)

	kept, excess, err := rotator.Plan(context.Background(), 4)
	require.NoError(t, err)
	assert.Len(t, kept, 4)
	assert.Equal(t, []string{"auto_2025-01-10T08-00-00-000Z.json"}, excess)

	kept, excess, err = rotator.Plan(context.Background(), -1)
	require.NoError(t, err)
	assert.Len(t, kept, 5)
	assert.Empty(t, excess)

	// planning deletes nothing
	names, err := NewCatalog(fs, "").ListSnapshots(context.Background())
	require.NoError(t, err)
	assert.Len(t, names, 5)
}

func TestRotator_NothingToDelete(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		keep  int
	}{
		{"fewer than keep", rotationFixture[:2], 3},
		{"exactly keep", rotationFixture[:3], 3},
		{"empty directory", nil, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := newMemFilesystem()
			seedSnapshots(t, fs, tt.files...)
			catalog := NewCatalog(fs, "")

			report := NewRotator(catalog, fs, nil).RotateSnapshots(context.Background(), tt.keep)
			assert.Empty(t, report.Deleted)
			assert.Len(t, report.Kept, len(tt.files))

			remaining, err := catalog.ListSnapshots(context.Background())
			require.NoError(t, err)
			assert.Len(t, remaining, len(tt.files))
		})
	}
}

func TestRotator_KeepZeroDeletesAll(t *testing.T) {
	fs := newMemFilesystem()
	seedSnapshots(t, fs, rotationFixture...)
	catalog := NewCatalog(fs, "")

	report := NewRotator(catalog, fs, nil).RotateSnapshots(context.Background(), 0)
	assert.Len(t, report.Deleted, len(rotationFixture))
	assert.Empty(t, report.Kept)

	remaining, err := catalog.ListSnapshots(context.Background())
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestRotator_NegativeKeepIsIgnored(t *testing.T) {
	fs := newMemFilesystem()
	seedSnapshots(t, fs, rotationFixture...)
	catalog := NewCatalog(fs, "")

	report := NewRotator(catalog, fs, nil).RotateSnapshots(context.Background(), -1)
	assert.Empty(t, report.Deleted)

	remaining, err := catalog.ListSnapshots(context.Background())
	require.NoError(t, err)
	assert.Len(t, remaining, len(rotationFixture))
}

func TestRotator_ContinuesPastFailedDeletes(t *testing.T) {
	inner := newMemFilesystem()
	seedSnapshots(t, inner, rotationFixture...)
	fs := &faultyFilesystem{
		Filesystem: inner,
		removeErr: map[string]error{
			"auto_2025-01-11T08-00-00-000Z.json": errors.New("permission denied"),
		},
	}
	catalog := NewCatalog(fs, "")

	metricsFile := filepath.Join(t.TempDir(), "rotation.prom")
	metrics := NewMetrics()

	report := NewRotator(catalog, fs, nil).WithMetrics(metrics).RotateSnapshots(context.Background(), 2)

	assert.Equal(t, []string{
		"nightly_2025-01-12T08-00-00-000Z.json",
		"auto_2025-01-10T08-00-00-000Z.json",
	}, report.Deleted)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "auto_2025-01-11T08-00-00-000Z.json", report.Failed[0].Filename)
	assert.EqualError(t, report.Failed[0].Err, "permission denied")
	assert.Equal(t, []string{"auto_2025-01-11T08-00-00-000Z.json"}, report.FailedNames())

	remaining, err := catalog.ListSnapshots(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"manual_2025-01-14T08-00-00-000Z.json",
		"auto_2025-01-13T08-00-00-000Z.json",
		"auto_2025-01-11T08-00-00-000Z.json",
	}, remaining)

	require.NoError(t, metrics.WriteTextfile(metricsFile))
	content, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "db_snapshot_rotation_deleted_total 2")
	assert.Contains(t, string(content), "db_snapshot_rotation_failures_total 1")
}

func TestRotator_ListFailureIsSwallowed(t *testing.T) {
	inner := newMemFilesystem()
	seedSnapshots(t, inner, rotationFixture...)
	fs := &faultyFilesystem{Filesystem: inner, readDirErr: errors.New("i/o timeout")}

	report := NewRotator(NewCatalog(fs, ""), fs, nil).RotateSnapshots(context.Background(), 1)
	assert.Empty(t, report.Kept)
	assert.Empty(t, report.Deleted)
	assert.Empty(t, report.Failed)
}
