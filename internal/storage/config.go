package storage

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ProviderType names a storage backend for snapshot files
type ProviderType string

const (
	ProviderLocal ProviderType = "local"
	ProviderS3    ProviderType = "s3"
	ProviderAzure ProviderType = "azure"
	ProviderGCS   ProviderType = "gcs"
)

// Config selects and configures the storage backend. Snapshot paths are
// relative to the local base path or to the object-store prefix.
type Config struct {
	Provider ProviderType `mapstructure:"provider" yaml:"provider"`
	Local    *LocalConfig `mapstructure:"local" yaml:"local,omitempty"`
	S3       *S3Config    `mapstructure:"s3" yaml:"s3,omitempty"`
	Azure    *AzureConfig `mapstructure:"azure" yaml:"azure,omitempty"`
	GCS      *GCSConfig   `mapstructure:"gcs" yaml:"gcs,omitempty"`
}

// LocalConfig for local file system storage
type LocalConfig struct {
	BasePath    string      `mapstructure:"base_path" yaml:"base_path"`
	Permissions os.FileMode `mapstructure:"permissions" yaml:"permissions"`
}

// S3Config for Amazon S3 or an S3-compatible endpoint
type S3Config struct {
	Bucket         string `mapstructure:"bucket" yaml:"bucket"`
	Region         string `mapstructure:"region" yaml:"region"`
	AccessKey      string `mapstructure:"access_key" yaml:"access_key,omitempty"`
	SecretKey      string `mapstructure:"secret_key" yaml:"secret_key,omitempty"`
	Prefix         string `mapstructure:"prefix" yaml:"prefix,omitempty"`
	Endpoint       string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	ForcePathStyle bool   `mapstructure:"force_path_style" yaml:"force_path_style,omitempty"`
}

// AzureConfig for Azure Blob Storage
type AzureConfig struct {
	AccountName   string `mapstructure:"account_name" yaml:"account_name"`
	AccountKey    string `mapstructure:"account_key" yaml:"account_key,omitempty"`
	ContainerName string `mapstructure:"container_name" yaml:"container_name"`
	Prefix        string `mapstructure:"prefix" yaml:"prefix,omitempty"`
}

// GCSConfig for Google Cloud Storage
type GCSConfig struct {
	Bucket          string `mapstructure:"bucket" yaml:"bucket"`
	CredentialsPath string `mapstructure:"credentials_path" yaml:"credentials_path,omitempty"`
	ProjectID       string `mapstructure:"project_id" yaml:"project_id,omitempty"`
	Prefix          string `mapstructure:"prefix" yaml:"prefix,omitempty"`
	// Endpoint points the client at an emulator; requests are then unauthenticated.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
}

// SetDefaults sets default values for the configuration
func (c *Config) SetDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderLocal
	}

	switch c.Provider {
	case ProviderLocal:
		if c.Local == nil {
			c.Local = &LocalConfig{}
		}
		c.Local.SetDefaults()
	case ProviderS3:
		if c.S3 == nil {
			c.S3 = &S3Config{}
		}
		if c.S3.Region == "" {
			c.S3.Region = "us-east-1"
		}
	case ProviderAzure:
		if c.Azure == nil {
			c.Azure = &AzureConfig{}
		}
	case ProviderGCS:
		if c.GCS == nil {
			c.GCS = &GCSConfig{}
		}
	}
}

// SetDefaults sets default values for local storage configuration
func (lc *LocalConfig) SetDefaults() {
	if lc.BasePath == "" {
		lc.BasePath = "."
	}
	if lc.Permissions == 0 {
		lc.Permissions = 0o755
	}
}

// LoadFromEnvironment loads storage configuration from DB_SNAPSHOT_STORAGE_* variables
func (c *Config) LoadFromEnvironment() {
	if val := os.Getenv("DB_SNAPSHOT_STORAGE_PROVIDER"); val != "" {
		c.Provider = ProviderType(strings.ToLower(val))
	}

	switch c.Provider {
	case ProviderLocal, "":
		if c.Local == nil {
			c.Local = &LocalConfig{}
		}
		if val := os.Getenv("DB_SNAPSHOT_LOCAL_BASE_PATH"); val != "" {
			c.Local.BasePath = val
		}
		if val := os.Getenv("DB_SNAPSHOT_LOCAL_PERMISSIONS"); val != "" {
			if parsed, err := strconv.ParseUint(val, 8, 32); err == nil {
				c.Local.Permissions = os.FileMode(parsed)
			}
		}
	case ProviderS3:
		if c.S3 == nil {
			c.S3 = &S3Config{}
		}
		setFromEnv(&c.S3.Bucket, "DB_SNAPSHOT_S3_BUCKET")
		setFromEnv(&c.S3.Region, "DB_SNAPSHOT_S3_REGION")
		setFromEnv(&c.S3.AccessKey, "DB_SNAPSHOT_S3_ACCESS_KEY")
		setFromEnv(&c.S3.SecretKey, "DB_SNAPSHOT_S3_SECRET_KEY")
		setFromEnv(&c.S3.Prefix, "DB_SNAPSHOT_S3_PREFIX")
		setFromEnv(&c.S3.Endpoint, "DB_SNAPSHOT_S3_ENDPOINT")
	case ProviderAzure:
		if c.Azure == nil {
			c.Azure = &AzureConfig{}
		}
		setFromEnv(&c.Azure.AccountName, "DB_SNAPSHOT_AZURE_ACCOUNT_NAME")
		setFromEnv(&c.Azure.AccountKey, "DB_SNAPSHOT_AZURE_ACCOUNT_KEY")
		setFromEnv(&c.Azure.ContainerName, "DB_SNAPSHOT_AZURE_CONTAINER")
		setFromEnv(&c.Azure.Prefix, "DB_SNAPSHOT_AZURE_PREFIX")
	case ProviderGCS:
		if c.GCS == nil {
			c.GCS = &GCSConfig{}
		}
		setFromEnv(&c.GCS.Bucket, "DB_SNAPSHOT_GCS_BUCKET")
		setFromEnv(&c.GCS.CredentialsPath, "DB_SNAPSHOT_GCS_CREDENTIALS_PATH")
		setFromEnv(&c.GCS.ProjectID, "DB_SNAPSHOT_GCS_PROJECT_ID")
		setFromEnv(&c.GCS.Prefix, "DB_SNAPSHOT_GCS_PREFIX")
		setFromEnv(&c.GCS.Endpoint, "DB_SNAPSHOT_GCS_ENDPOINT")
	}
}

// Validate validates the storage configuration
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderLocal:
		if c.Local == nil {
			return errors.New("local storage configuration is required")
		}
		return c.Local.Validate()
	case ProviderS3:
		if c.S3 == nil {
			return errors.New("S3 storage configuration is required")
		}
		return c.S3.Validate()
	case ProviderAzure:
		if c.Azure == nil {
			return errors.New("Azure storage configuration is required")
		}
		return c.Azure.Validate()
	case ProviderGCS:
		if c.GCS == nil {
			return errors.New("GCS storage configuration is required")
		}
		return c.GCS.Validate()
	default:
		return fmt.Errorf("unsupported storage provider %q", c.Provider)
	}
}

// Validate validates the LocalConfig
func (lc *LocalConfig) Validate() error {
	if strings.TrimSpace(lc.BasePath) == "" {
		return errors.New("local base_path is required")
	}
	if lc.Permissions != 0 && lc.Permissions&0o700 != 0o700 {
		return fmt.Errorf("local permissions %o must grant the owner rwx", lc.Permissions)
	}
	return nil
}

// Validate validates the S3Config
func (sc *S3Config) Validate() error {
	var errs []error
	if sc.Bucket == "" {
		errs = append(errs, errors.New("s3 bucket is required"))
	}
	if sc.Region == "" {
		errs = append(errs, errors.New("s3 region is required"))
	}
	if (sc.AccessKey == "") != (sc.SecretKey == "") {
		errs = append(errs, errors.New("s3 access_key and secret_key must be set together"))
	}
	return errors.Join(errs...)
}

// Validate validates the AzureConfig
func (ac *AzureConfig) Validate() error {
	var errs []error
	if ac.AccountName == "" {
		errs = append(errs, errors.New("azure account_name is required"))
	}
	if ac.AccountKey == "" {
		errs = append(errs, errors.New("azure account_key is required"))
	}
	if ac.ContainerName == "" {
		errs = append(errs, errors.New("azure container_name is required"))
	}
	return errors.Join(errs...)
}

// Validate validates the GCSConfig
func (gc *GCSConfig) Validate() error {
	if gc.Bucket == "" {
		return errors.New("gcs bucket is required")
	}
	return nil
}

func setFromEnv(dst *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}
