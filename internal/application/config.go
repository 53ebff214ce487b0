package application

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"db-snapshot/internal/database"
	appErrors "db-snapshot/internal/errors"
	"db-snapshot/internal/logging"
	"db-snapshot/internal/snapshot"
	"db-snapshot/internal/storage"

	"gopkg.in/yaml.v3"
)

// LoggingConfig controls the application log stream
type LoggingConfig struct {
	Level      logging.LogLevel `mapstructure:"level" yaml:"level"`
	Format     string           `mapstructure:"format" yaml:"format"`
	File       string           `mapstructure:"file" yaml:"file,omitempty"`
	MaxSizeMB  int              `mapstructure:"max_size_mb" yaml:"max_size_mb,omitempty"`
	MaxBackups int              `mapstructure:"max_backups" yaml:"max_backups,omitempty"`
	MaxAgeDays int              `mapstructure:"max_age_days" yaml:"max_age_days,omitempty"`
}

// Config holds the application configuration
type Config struct {
	Database database.DatabaseConfig `mapstructure:"database" yaml:"database"`
	Storage  storage.Config          `mapstructure:"storage" yaml:"storage"`
	Snapshot snapshot.Config         `mapstructure:"snapshot" yaml:"snapshot"`
	Logging  LoggingConfig           `mapstructure:"logging" yaml:"logging"`
	// Timeout bounds one command; zero means no limit.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// DefaultConfig returns the configuration written by `config init`
func DefaultConfig() Config {
	config := Config{
		Database: database.DatabaseConfig{Path: "app.db"},
		Storage: storage.Config{
			Provider: storage.ProviderLocal,
			Local:    &storage.LocalConfig{BasePath: "documents"},
		},
		Timeout: 10 * time.Minute,
	}
	config.SetDefaults()
	return config
}

// SetDefaults sets default values for the configuration
func (c *Config) SetDefaults() {
	c.Database.SetDefaults()
	c.Storage.SetDefaults()
	c.Snapshot.SetDefaults()

	if c.Logging.Level == "" {
		c.Logging.Level = logging.LogLevelNormal
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// LoadFromEnvironment applies DB_SNAPSHOT_* overrides to every section
func (c *Config) LoadFromEnvironment() {
	c.Database.LoadFromEnvironment()
	c.Storage.LoadFromEnvironment()
	c.Snapshot.LoadFromEnvironment()

	if val := os.Getenv("DB_SNAPSHOT_LOG_LEVEL"); val != "" {
		c.Logging.Level = logging.LogLevel(val)
	}
	if val := os.Getenv("DB_SNAPSHOT_LOG_FORMAT"); val != "" {
		c.Logging.Format = val
	}
	if val := os.Getenv("DB_SNAPSHOT_LOG_FILE"); val != "" {
		c.Logging.File = val
	}
	if val := os.Getenv("DB_SNAPSHOT_TIMEOUT"); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			c.Timeout = parsed
		}
	}
}

// Validate checks every section and reports all problems at once
func (c *Config) Validate() error {
	var errs []error

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Storage.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("storage: %w", err))
	}
	if err := c.Snapshot.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("snapshot: %w", err))
	}

	switch c.Logging.Level {
	case logging.LogLevelQuiet, logging.LogLevelNormal, logging.LogLevelVerbose, logging.LogLevelDebug:
	default:
		errs = append(errs, fmt.Errorf("logging: unsupported level %q", c.Logging.Level))
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		errs = append(errs, fmt.Errorf("logging: unsupported format %q", c.Logging.Format))
	}

	if c.Timeout < 0 {
		errs = append(errs, errors.New("timeout cannot be negative"))
	}

	if len(errs) > 0 {
		return appErrors.NewAppError(appErrors.ErrorTypeValidation, "invalid configuration", errors.Join(errs...))
	}
	return nil
}

// WriteConfigFile writes config as YAML, refusing to overwrite unless force is set
func WriteConfigFile(path string, config Config, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return appErrors.NewAppError(appErrors.ErrorTypeValidation, "configuration file already exists: "+path, nil)
		}
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create configuration directory: %w", err)
		}
	}

	header := []byte("# db-snapshot configuration\n")
	if err := os.WriteFile(path, append(header, data...), 0o600); err != nil {
		return appErrors.NewAppError(appErrors.ErrorTypePermission, "failed to write configuration file", err)
	}
	return nil
}
