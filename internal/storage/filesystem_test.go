package storage

import (
	"context"
	"reflect"
	"testing"
	"time"

	apperrors "db-snapshot/internal/errors"
)

func TestObjectKey(t *testing.T) {
	tests := []struct {
		prefix string
		path   string
		want   string
	}{
		{"", "db_snapshots/a.json", "db_snapshots/a.json"},
		{"backups", "db_snapshots/a.json", "backups/db_snapshots/a.json"},
		{"/backups/", "db_snapshots", "backups/db_snapshots"},
		{"", ".", ""},
	}

	for _, tt := range tests {
		if got := objectKey(tt.prefix, tt.path); got != tt.want {
			t.Errorf("objectKey(%q, %q) = %q, want %q", tt.prefix, tt.path, got, tt.want)
		}
	}
}

func TestDirPrefix(t *testing.T) {
	if got := dirPrefix(""); got != "" {
		t.Errorf("dirPrefix(\"\") = %q", got)
	}
	if got := dirPrefix("db_snapshots"); got != "db_snapshots/" {
		t.Errorf("dirPrefix = %q", got)
	}
	if got := dirPrefix("db_snapshots/"); got != "db_snapshots/" {
		t.Errorf("dirPrefix with slash = %q", got)
	}
}

func TestDirectChildren(t *testing.T) {
	modTime := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	objects := []objectInfo{
		{Key: "db_snapshots/b.json", Size: 20, ModTime: modTime},
		{Key: "db_snapshots/a.json", Size: 10, ModTime: modTime},
		{Key: "db_snapshots/archive/old.json", Size: 5},
		{Key: "db_snapshots/archive/older.json", Size: 5},
		{Key: "db_snapshots/", Size: 0},
		{Key: "other/c.json", Size: 1},
	}

	got := directChildren("db_snapshots/", objects)
	want := []Entry{
		{Name: "a.json", Size: 10, ModTime: modTime},
		{Name: "archive", IsDir: true},
		{Name: "b.json", Size: 20, ModTime: modTime},
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("directChildren() = %+v, want %+v", got, want)
	}
}

func TestExistsIn(t *testing.T) {
	objects := []objectInfo{
		{Key: "db_snapshots/a.json"},
		{Key: "db_snapshots-old/x.json"},
	}

	tests := []struct {
		key  string
		want bool
	}{
		{"db_snapshots/a.json", true},
		{"db_snapshots", true},
		{"db_snapshots/b.json", false},
		{"db_snap", false},
	}

	for _, tt := range tests {
		if got := existsIn(tt.key, objects); got != tt.want {
			t.Errorf("existsIn(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestNewFilesystem(t *testing.T) {
	ctx := context.Background()
	tempDir := t.TempDir()

	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:   "local",
			config: Config{Provider: ProviderLocal, Local: &LocalConfig{BasePath: tempDir}},
		},
		{
			name:   "default provider is local",
			config: Config{Local: &LocalConfig{BasePath: tempDir}},
		},
		{
			name: "s3",
			config: Config{Provider: ProviderS3, S3: &S3Config{
				Bucket:    "snapshots",
				Region:    "eu-west-1",
				AccessKey: "test-access-key",
				SecretKey: "test-secret-key",
			}},
		},
		{
			name: "azure",
			config: Config{Provider: ProviderAzure, Azure: &AzureConfig{
				AccountName:   "testaccount",
				AccountKey:    "dGVzdC1hY2NvdW50LWtleQ==",
				ContainerName: "snapshots",
			}},
		},
		{
			name: "gcs emulator",
			config: Config{Provider: ProviderGCS, GCS: &GCSConfig{
				Bucket:   "snapshots",
				Endpoint: "http://localhost:4443/storage/v1/",
			}},
		},
		{
			name:    "s3 missing bucket",
			config:  Config{Provider: ProviderS3, S3: &S3Config{Region: "us-east-1"}},
			wantErr: true,
		},
		{
			name:    "unsupported provider",
			config:  Config{Provider: "ftp"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs, err := NewFilesystem(ctx, tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewFilesystem() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if apperrors.GetErrorType(err) != apperrors.ErrorTypeValidation {
					t.Errorf("expected validation error, got %v", apperrors.GetErrorType(err))
				}
				return
			}
			if fs == nil {
				t.Fatal("expected filesystem, got nil")
			}
			defer fs.Close()
		})
	}
}

func TestSupportedProviders(t *testing.T) {
	providers := SupportedProviders()
	if len(providers) != 4 {
		t.Fatalf("expected 4 providers, got %d", len(providers))
	}
	if providers[0] != ProviderLocal {
		t.Errorf("expected local first, got %s", providers[0])
	}
}

func TestCloudLocations(t *testing.T) {
	s3fs := NewS3FilesystemWithClient(nil, "snapshots", "prod")
	if got := s3fs.Location("db_snapshots/a.json"); got != "s3://snapshots/prod/db_snapshots/a.json" {
		t.Errorf("S3 Location() = %s", got)
	}

	azfs, err := NewAzureFilesystem(&AzureConfig{
		AccountName:   "testaccount",
		AccountKey:    "dGVzdC1hY2NvdW50LWtleQ==",
		ContainerName: "snapshots",
	})
	if err != nil {
		t.Fatalf("NewAzureFilesystem() error = %v", err)
	}
	if got := azfs.Location("db_snapshots/a.json"); got != "https://testaccount.blob.core.windows.net/snapshots/db_snapshots/a.json" {
		t.Errorf("Azure Location() = %s", got)
	}

	gcsfs, err := NewGCSFilesystem(context.Background(), &GCSConfig{
		Bucket:   "snapshots",
		Prefix:   "team",
		Endpoint: "http://localhost:4443/storage/v1/",
	})
	if err != nil {
		t.Fatalf("NewGCSFilesystem() error = %v", err)
	}
	defer gcsfs.Close()
	if got := gcsfs.Location("db_snapshots/a.json"); got != "gs://snapshots/team/db_snapshots/a.json" {
		t.Errorf("GCS Location() = %s", got)
	}
}
