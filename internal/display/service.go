package display

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Service prints command results and status messages
type Service struct {
	config *DisplayConfig
	colors *ColorSystem
}

// NewService creates a display service with the given configuration
func NewService(config *DisplayConfig) *Service {
	if config == nil {
		config = DefaultDisplayConfig()
	}
	config.SetDefaults()

	enabled := config.ColorEnabled && !config.QuietMode && config.OutputFormat == FormatTable
	return &Service{
		config: config,
		colors: NewColorSystem(GetThemeByName(config.Theme), enabled),
	}
}

// Config returns the active configuration
func (s *Service) Config() *DisplayConfig {
	return s.config
}

// Colors returns the color system used for status lines
func (s *Service) Colors() *ColorSystem {
	return s.colors
}

// Writer returns the writer results are printed to
func (s *Service) Writer() io.Writer {
	return s.config.Writer
}

// Format returns the configured output format
func (s *Service) Format() OutputFormat {
	return s.config.OutputFormat
}

// PrintHeader prints a section title; skipped in quiet mode and for structured formats
func (s *Service) PrintHeader(title string) {
	if !s.chatty() {
		return
	}
	fmt.Fprintln(s.config.Writer, s.colors.Colorize(title, s.colors.Theme().Primary))
}

// Success reports a completed operation
func (s *Service) Success(message string) {
	if !s.chatty() {
		return
	}
	s.status(s.config.Writer, "✓", message, s.colors.Theme().Success)
}

// Info prints an informational line
func (s *Service) Info(message string) {
	if !s.chatty() {
		return
	}
	s.status(s.config.Writer, "ℹ", message, s.colors.Theme().Info)
}

// Warning is printed to the error writer unless quiet
func (s *Service) Warning(message string) {
	if s.config.QuietMode {
		return
	}
	s.status(s.config.ErrWriter, "⚠", message, s.colors.Theme().Warning)
}

// Error is always printed to the error writer
func (s *Service) Error(message string) {
	s.status(s.config.ErrWriter, "✗", message, s.colors.Theme().Error)
}

// Muted prints secondary detail in verbose mode only
func (s *Service) Muted(message string) {
	if !s.config.VerboseMode || !s.chatty() {
		return
	}
	fmt.Fprintln(s.config.Writer, s.colors.Colorize(message, s.colors.Theme().Muted))
}

// Render prints data in the configured format. For the table format, table
// builds the human readable rendering; data is used for json and yaml.
func (s *Service) Render(data interface{}, table func() *Table) error {
	switch s.config.OutputFormat {
	case FormatJSON:
		out, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal output to JSON: %w", err)
		}
		_, err = fmt.Fprintln(s.config.Writer, string(out))
		return err
	case FormatYAML:
		out, err := yaml.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to marshal output to YAML: %w", err)
		}
		_, err = fmt.Fprint(s.config.Writer, string(out))
		return err
	default:
		if table != nil {
			table().RenderTo(s.config.Writer)
		}
		return nil
	}
}

func (s *Service) chatty() bool {
	return !s.config.QuietMode && s.config.OutputFormat == FormatTable
}

func (s *Service) status(w io.Writer, icon, message string, clr Color) {
	if s.config.UseIcons {
		icon = s.colors.Colorize(icon, clr)
		fmt.Fprintf(w, "%s %s\n", icon, message)
		return
	}
	fmt.Fprintln(w, s.colors.Colorize(message, clr))
}
