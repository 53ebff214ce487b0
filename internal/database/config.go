package database

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Supported database drivers
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// DatabaseConfig holds the configuration parameters for the database being snapshotted
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"`

	// Path is the database file for the sqlite driver.
	Path string `mapstructure:"path" yaml:"path,omitempty"`

	Host     string        `mapstructure:"host" yaml:"host,omitempty"`
	Port     int           `mapstructure:"port" yaml:"port,omitempty"`
	Username string        `mapstructure:"username" yaml:"username,omitempty"`
	Password string        `mapstructure:"password" yaml:"password,omitempty"`
	Database string        `mapstructure:"database" yaml:"database,omitempty"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// SetDefaults sets default values for the configuration
func (dc *DatabaseConfig) SetDefaults() {
	if dc.Driver == "" {
		dc.Driver = DriverSQLite
	}
	if dc.Driver == DriverMySQL && dc.Port == 0 {
		dc.Port = 3306
	}
	if dc.Timeout == 0 {
		dc.Timeout = 30 * time.Second
	}
}

// LoadFromEnvironment overrides configuration from DB_SNAPSHOT_DB_* variables
func (dc *DatabaseConfig) LoadFromEnvironment() {
	if val := os.Getenv("DB_SNAPSHOT_DB_DRIVER"); val != "" {
		dc.Driver = val
	}
	if val := os.Getenv("DB_SNAPSHOT_DB_PATH"); val != "" {
		dc.Path = val
	}
	if val := os.Getenv("DB_SNAPSHOT_DB_HOST"); val != "" {
		dc.Host = val
	}
	if val := os.Getenv("DB_SNAPSHOT_DB_PORT"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			dc.Port = parsed
		}
	}
	if val := os.Getenv("DB_SNAPSHOT_DB_USERNAME"); val != "" {
		dc.Username = val
	}
	if val := os.Getenv("DB_SNAPSHOT_DB_PASSWORD"); val != "" {
		dc.Password = val
	}
	if val := os.Getenv("DB_SNAPSHOT_DB_NAME"); val != "" {
		dc.Database = val
	}
	if val := os.Getenv("DB_SNAPSHOT_DB_TIMEOUT"); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			dc.Timeout = parsed
		}
	}
}

// Validate checks if the database configuration has all required parameters
func (dc *DatabaseConfig) Validate() error {
	var errs []error

	switch dc.Driver {
	case DriverSQLite:
		if dc.Path == "" {
			errs = append(errs, errors.New("path is required for the sqlite driver"))
		}
	case DriverMySQL:
		if dc.Host == "" {
			errs = append(errs, errors.New("host is required"))
		}
		if dc.Port <= 0 || dc.Port > 65535 {
			errs = append(errs, errors.New("port must be between 1 and 65535"))
		}
		if dc.Username == "" {
			errs = append(errs, errors.New("username is required"))
		}
		if dc.Database == "" {
			errs = append(errs, errors.New("database name is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported driver %q (want %s or %s)", dc.Driver, DriverSQLite, DriverMySQL))
	}

	if dc.Timeout < 0 {
		errs = append(errs, errors.New("timeout cannot be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("database configuration validation failed: %w", errors.Join(errs...))
	}

	return nil
}

// DSN returns the Data Source Name for the configured driver
func (dc *DatabaseConfig) DSN() string {
	switch dc.Driver {
	case DriverMySQL:
		cfg := mysql.NewConfig()
		cfg.User = dc.Username
		cfg.Passwd = dc.Password
		cfg.Net = "tcp"
		cfg.Addr = fmt.Sprintf("%s:%d", dc.Host, dc.Port)
		cfg.DBName = dc.Database
		cfg.Timeout = dc.Timeout
		// dates stay as the server's text
		cfg.ParseTime = false
		return cfg.FormatDSN()
	default:
		// WAL lets a deferred read transaction see a stable snapshot while writers continue.
		return "file:" + escapeURIPath(dc.Path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
}

// escapeURIPath percent-encodes each segment of a file path for a file: URI
// so characters such as '?', '#' and '%' stay part of the name.
func escapeURIPath(p string) string {
	segments := strings.Split(filepath.ToSlash(p), "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}

// Target describes the database for log output without credentials
func (dc *DatabaseConfig) Target() string {
	if dc.Driver == DriverMySQL {
		return fmt.Sprintf("%s:%d/%s", dc.Host, dc.Port, dc.Database)
	}
	return dc.Path
}
