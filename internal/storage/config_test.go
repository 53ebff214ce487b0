package storage

import (
	"os"
	"testing"
)

func TestConfig_SetDefaults(t *testing.T) {
	cfg := Config{}
	cfg.SetDefaults()

	if cfg.Provider != ProviderLocal {
		t.Errorf("Provider = %s, want local", cfg.Provider)
	}
	if cfg.Local == nil || cfg.Local.BasePath != "." || cfg.Local.Permissions != 0755 {
		t.Errorf("unexpected local defaults: %+v", cfg.Local)
	}

	s3cfg := Config{Provider: ProviderS3}
	s3cfg.SetDefaults()
	if s3cfg.S3 == nil || s3cfg.S3.Region != "us-east-1" {
		t.Errorf("unexpected S3 defaults: %+v", s3cfg.S3)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"local", Config{Provider: ProviderLocal, Local: &LocalConfig{BasePath: "/var/snapshots"}}, false},
		{"local missing", Config{Provider: ProviderLocal}, true},
		{"local blank path", Config{Provider: ProviderLocal, Local: &LocalConfig{BasePath: "  "}}, true},
		{"s3", Config{Provider: ProviderS3, S3: &S3Config{Bucket: "b", Region: "us-east-1"}}, false},
		{"s3 half credentials", Config{Provider: ProviderS3, S3: &S3Config{Bucket: "b", Region: "us-east-1", AccessKey: "k"}}, true},
		{"azure", Config{Provider: ProviderAzure, Azure: &AzureConfig{AccountName: "a", AccountKey: "k", ContainerName: "c"}}, false},
		{"azure missing container", Config{Provider: ProviderAzure, Azure: &AzureConfig{AccountName: "a", AccountKey: "k"}}, true},
		{"gcs", Config{Provider: ProviderGCS, GCS: &GCSConfig{Bucket: "b"}}, false},
		{"gcs missing bucket", Config{Provider: ProviderGCS, GCS: &GCSConfig{}}, true},
		{"unknown", Config{Provider: "tape"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_LoadFromEnvironment(t *testing.T) {
	t.Run("s3", func(t *testing.T) {
		t.Setenv("DB_SNAPSHOT_STORAGE_PROVIDER", "S3")
		t.Setenv("DB_SNAPSHOT_S3_BUCKET", "snapshots")
		t.Setenv("DB_SNAPSHOT_S3_PREFIX", "prod")
		t.Setenv("DB_SNAPSHOT_S3_ENDPOINT", "http://localhost:9000")

		cfg := Config{}
		cfg.LoadFromEnvironment()

		if cfg.Provider != ProviderS3 {
			t.Fatalf("Provider = %s", cfg.Provider)
		}
		if cfg.S3.Bucket != "snapshots" || cfg.S3.Prefix != "prod" || cfg.S3.Endpoint != "http://localhost:9000" {
			t.Errorf("unexpected S3 config: %+v", cfg.S3)
		}
	})

	t.Run("local", func(t *testing.T) {
		t.Setenv("DB_SNAPSHOT_STORAGE_PROVIDER", "")
		t.Setenv("DB_SNAPSHOT_LOCAL_BASE_PATH", "/srv/app")
		t.Setenv("DB_SNAPSHOT_LOCAL_PERMISSIONS", "750")

		cfg := Config{}
		cfg.LoadFromEnvironment()

		if cfg.Local == nil || cfg.Local.BasePath != "/srv/app" {
			t.Fatalf("unexpected local config: %+v", cfg.Local)
		}
		if cfg.Local.Permissions != os.FileMode(0750) {
			t.Errorf("Permissions = %o, want 750", cfg.Local.Permissions)
		}
	})

	t.Run("gcs", func(t *testing.T) {
		t.Setenv("DB_SNAPSHOT_STORAGE_PROVIDER", "gcs")
		t.Setenv("DB_SNAPSHOT_GCS_BUCKET", "team-snapshots")

		cfg := Config{}
		cfg.LoadFromEnvironment()

		if cfg.GCS == nil || cfg.GCS.Bucket != "team-snapshots" {
			t.Errorf("unexpected GCS config: %+v", cfg.GCS)
		}
	})
}
