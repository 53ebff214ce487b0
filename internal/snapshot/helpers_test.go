package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"db-snapshot/internal/database"
	"db-snapshot/internal/logging"
	"db-snapshot/internal/migration"
	"db-snapshot/internal/storage"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2025, 1, 15, 10, 30, 45, 123000000, time.UTC)

func newSQLiteService(t *testing.T) *database.Service {
	t.Helper()

	service := database.NewService(logging.NewNopLogger())
	err := service.Connect(context.Background(), database.DatabaseConfig{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "app.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { service.Close() })

	return service
}

func execAll(t *testing.T, service *database.Service, statements ...string) {
	t.Helper()
	for _, stmt := range statements {
		_, err := service.DB().Exec(stmt)
		require.NoError(t, err, stmt)
	}
}

func newMemFilesystem() *storage.LocalFilesystem {
	return storage.NewLocalFilesystemFromFs(afero.NewBasePathFs(afero.NewMemMapFs(), "/docs"), "/docs")
}

// seedSnapshots creates empty snapshot files in the default directory
func seedSnapshots(t *testing.T, fs storage.Filesystem, names ...string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, fs.MkdirAll(ctx, DefaultDirectory))
	for _, name := range names {
		require.NoError(t, fs.WriteFile(ctx, DefaultDirectory+"/"+name, []byte("{}")))
	}
}

// faultyFilesystem fails selected operations of an inner Filesystem
type faultyFilesystem struct {
	storage.Filesystem
	mkdirErr   error
	writeErr   error
	readDirErr error
	removeErr  map[string]error
}

func (f *faultyFilesystem) MkdirAll(ctx context.Context, dir string) error {
	if f.mkdirErr != nil {
		return f.mkdirErr
	}
	return f.Filesystem.MkdirAll(ctx, dir)
}

func (f *faultyFilesystem) WriteFile(ctx context.Context, p string, data []byte) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	return f.Filesystem.WriteFile(ctx, p, data)
}

func (f *faultyFilesystem) ReadDir(ctx context.Context, dir string) ([]storage.Entry, error) {
	if f.readDirErr != nil {
		return nil, f.readDirErr
	}
	return f.Filesystem.ReadDir(ctx, dir)
}

func (f *faultyFilesystem) Remove(ctx context.Context, p string) error {
	if err, ok := f.removeErr[filepath.Base(p)]; ok {
		return err
	}
	return f.Filesystem.Remove(ctx, p)
}

type mockMigrationSource struct {
	mock.Mock
}

func (m *mockMigrationSource) ExecutedMigrations(ctx context.Context, q database.Querier) ([]migration.Record, error) {
	args := m.Called(ctx, q)
	records, _ := args.Get(0).([]migration.Record)
	return records, args.Error(1)
}

// staticSchema returns a fixed table list
type staticSchema []string

func (s staticSchema) ListTables(ctx context.Context, q database.Querier) ([]string, error) {
	return []string(s), nil
}

type failingSchema struct{}

func (failingSchema) ListTables(ctx context.Context, q database.Querier) ([]string, error) {
	return nil, errors.New("catalog unavailable")
}

// topLevelKeys returns the keys of a JSON object in document order
func topLevelKeys(t *testing.T, data []byte) []string {
	t.Helper()

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	require.NoError(t, err)
	require.Equal(t, json.Delim('{'), tok)

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		require.NoError(t, err)
		keys = append(keys, tok.(string))

		var skip json.RawMessage
		require.NoError(t, dec.Decode(&skip))
	}
	return keys
}

// snapshotDocument is the decoded shape of a snapshot file
type snapshotDocument map[string]json.RawMessage

func readSnapshot(t *testing.T, fs storage.Filesystem, filename string) ([]byte, snapshotDocument) {
	t.Helper()

	data, err := fs.ReadFile(context.Background(), DefaultDirectory+"/"+filename)
	require.NoError(t, err)

	var doc snapshotDocument
	require.NoError(t, json.Unmarshal(data, &doc))
	return data, doc
}

func (d snapshotDocument) rows(t *testing.T, table string) []map[string]interface{} {
	t.Helper()
	raw, ok := d[table]
	require.True(t, ok, "table %s missing from snapshot", table)

	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &rows))
	return rows
}

func (d snapshotDocument) metadata(t *testing.T) Metadata {
	t.Helper()
	var meta Metadata
	require.NoError(t, json.Unmarshal(d[MetadataKey], &meta))
	return meta
}

func (d snapshotDocument) migrations(t *testing.T) []migration.Record {
	t.Helper()
	var records []migration.Record
	require.NoError(t, json.Unmarshal(d[MigrationsKey], &records))
	return records
}
