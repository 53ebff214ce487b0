package snapshot

import (
	"os"
	"path"
	"strconv"
	"strings"
)

// DefaultDirectory is the snapshot directory below the documents root
const DefaultDirectory = "db_snapshots"

// DefaultKeep is the number of snapshots rotation retains by default
const DefaultKeep = 3

// Config controls where snapshots go and how many are kept
type Config struct {
	Directory    string `mapstructure:"directory" yaml:"directory"`
	Keep         int    `mapstructure:"keep" yaml:"keep"`
	DefaultLabel string `mapstructure:"default_label" yaml:"default_label"`
	AuditLogFile string `mapstructure:"audit_log_file" yaml:"audit_log_file,omitempty"`
	MetricsFile  string `mapstructure:"metrics_file" yaml:"metrics_file,omitempty"`
}

// DefaultConfig returns a Config with defaults applied
func DefaultConfig() Config {
	c := Config{}
	c.SetDefaults()
	return c
}

// SetDefaults sets default values for the configuration
func (c *Config) SetDefaults() {
	if c.Directory == "" {
		c.Directory = DefaultDirectory
	}
	if c.Keep == 0 {
		c.Keep = DefaultKeep
	}
	if c.DefaultLabel == "" {
		c.DefaultLabel = DefaultLabel
	}
}

// LoadFromEnvironment loads snapshot configuration from DB_SNAPSHOT_* variables
func (c *Config) LoadFromEnvironment() {
	if val := os.Getenv("DB_SNAPSHOT_DIRECTORY"); val != "" {
		c.Directory = val
	}
	if val := os.Getenv("DB_SNAPSHOT_KEEP"); val != "" {
		if keep, err := strconv.Atoi(val); err == nil {
			c.Keep = keep
		}
	}
	if val := os.Getenv("DB_SNAPSHOT_DEFAULT_LABEL"); val != "" {
		c.DefaultLabel = val
	}
	if val := os.Getenv("DB_SNAPSHOT_AUDIT_LOG_FILE"); val != "" {
		c.AuditLogFile = val
	}
	if val := os.Getenv("DB_SNAPSHOT_METRICS_FILE"); val != "" {
		c.MetricsFile = val
	}
}

// Validate validates the snapshot configuration
func (c *Config) Validate() error {
	var errs ValidationErrors

	dir := strings.TrimSpace(c.Directory)
	switch {
	case dir == "":
		errs.Add("directory", "directory is required", c.Directory)
	case path.Clean(dir) == ".." || strings.HasPrefix(path.Clean(dir), "../"):
		errs.Add("directory", "directory must stay inside the documents root", c.Directory)
	}

	if c.Keep < 0 {
		errs.Add("keep", "keep cannot be negative", c.Keep)
	}

	if c.DefaultLabel != "" && SanitizeLabel(c.DefaultLabel) != c.DefaultLabel {
		errs.Add("default_label", "default label may only contain letters, digits, '_' and '-'", c.DefaultLabel)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
