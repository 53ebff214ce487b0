package display

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// OutputFormat selects how command results are printed
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// SupportedFormats lists every OutputFormat accepted by the CLI
func SupportedFormats() []OutputFormat {
	return []OutputFormat{FormatTable, FormatJSON, FormatYAML}
}

// DisplayConfig holds configuration for terminal output
type DisplayConfig struct {
	ColorEnabled bool         `mapstructure:"color_enabled" yaml:"color_enabled"`
	Theme        string       `mapstructure:"theme" yaml:"theme"`
	OutputFormat OutputFormat `mapstructure:"output_format" yaml:"output_format"`
	UseIcons     bool         `mapstructure:"use_icons" yaml:"use_icons"`
	VerboseMode  bool         `mapstructure:"verbose" yaml:"verbose"`
	QuietMode    bool         `mapstructure:"quiet" yaml:"quiet"`

	Writer    io.Writer `mapstructure:"-" yaml:"-"`
	ErrWriter io.Writer `mapstructure:"-" yaml:"-"`
}

// DefaultDisplayConfig returns a default display configuration
func DefaultDisplayConfig() *DisplayConfig {
	return &DisplayConfig{
		ColorEnabled: true,
		Theme:        "dark",
		OutputFormat: FormatTable,
		UseIcons:     true,
		Writer:       os.Stdout,
		ErrWriter:    os.Stderr,
	}
}

// SetDefaults sets default values for unspecified options
func (dc *DisplayConfig) SetDefaults() {
	if dc.Theme == "" {
		dc.Theme = "dark"
	}
	if dc.OutputFormat == "" {
		dc.OutputFormat = FormatTable
	}
	if dc.Writer == nil {
		dc.Writer = os.Stdout
	}
	if dc.ErrWriter == nil {
		dc.ErrWriter = os.Stderr
	}
}

// Validate validates the display configuration
func (dc *DisplayConfig) Validate() error {
	var errs []error

	if !IsSupportedFormat(dc.OutputFormat) {
		errs = append(errs, fmt.Errorf("invalid output format '%s', must be one of: table, json, yaml", dc.OutputFormat))
	}
	if dc.VerboseMode && dc.QuietMode {
		errs = append(errs, errors.New("verbose and quiet modes are mutually exclusive"))
	}

	return errors.Join(errs...)
}

// IsSupportedFormat reports whether format is one of SupportedFormats
func IsSupportedFormat(format OutputFormat) bool {
	for _, f := range SupportedFormats() {
		if f == format {
			return true
		}
	}
	return false
}
