package display

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// Color represents terminal color options
type Color int

const (
	ColorReset Color = iota
	ColorRed
	ColorGreen
	ColorYellow
	ColorBlue
	ColorCyan
	ColorWhite
	ColorBrightRed
	ColorBrightGreen
	ColorBrightYellow
	ColorBrightBlue
	ColorBrightCyan
)

// ColorTheme defines color scheme for different message types
type ColorTheme struct {
	Primary Color
	Success Color
	Warning Color
	Error   Color
	Info    Color
	Muted   Color
}

// ColorSystem applies colors when the output supports them
type ColorSystem struct {
	theme    ColorTheme
	enabled  bool
	colorMap map[Color]*color.Color
}

// NewColorSystem creates a color system. Colors are used only when enabled is
// set and the terminal supports them.
func NewColorSystem(theme ColorTheme, enabled bool) *ColorSystem {
	cs := &ColorSystem{
		theme:   theme,
		enabled: enabled && detectColorSupport(),
		colorMap: map[Color]*color.Color{
			ColorReset:        color.New(color.Reset),
			ColorRed:          color.New(color.FgRed),
			ColorGreen:        color.New(color.FgGreen),
			ColorYellow:       color.New(color.FgYellow),
			ColorBlue:         color.New(color.FgBlue),
			ColorCyan:         color.New(color.FgCyan),
			ColorWhite:        color.New(color.FgWhite),
			ColorBrightRed:    color.New(color.FgHiRed),
			ColorBrightGreen:  color.New(color.FgHiGreen),
			ColorBrightYellow: color.New(color.FgHiYellow),
			ColorBrightBlue:   color.New(color.FgHiBlue),
			ColorBrightCyan:   color.New(color.FgHiCyan),
		},
	}

	for _, c := range cs.colorMap {
		if cs.enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return cs
}

// detectColorSupport checks if stdout is a terminal that renders colors
func detectColorSupport() bool {
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return false
	}
	return termenv.EnvColorProfile() != termenv.Ascii
}

// Colorize applies color to text if color is enabled
func (cs *ColorSystem) Colorize(text string, clr Color) string {
	if !cs.enabled {
		return text
	}
	if c, ok := cs.colorMap[clr]; ok {
		return c.Sprint(text)
	}
	return text
}

func (cs *ColorSystem) Sprintf(clr Color, format string, args ...interface{}) string {
	return cs.Colorize(fmt.Sprintf(format, args...), clr)
}

func (cs *ColorSystem) Enabled() bool {
	return cs.enabled
}

func (cs *ColorSystem) Theme() ColorTheme {
	return cs.theme
}

// DarkColorTheme returns a color theme optimized for dark terminals
func DarkColorTheme() ColorTheme {
	return ColorTheme{
		Primary: ColorBrightBlue,
		Success: ColorBrightGreen,
		Warning: ColorBrightYellow,
		Error:   ColorBrightRed,
		Info:    ColorCyan,
		Muted:   ColorWhite,
	}
}

// LightColorTheme returns a color theme optimized for light terminals
func LightColorTheme() ColorTheme {
	return ColorTheme{
		Primary: ColorBlue,
		Success: ColorGreen,
		Warning: ColorYellow,
		Error:   ColorRed,
		Info:    ColorCyan,
		Muted:   ColorReset,
	}
}

// PlainTextTheme uses no colors
func PlainTextTheme() ColorTheme {
	return ColorTheme{}
}

// GetThemeByName returns a color theme by name, falling back to dark
func GetThemeByName(name string) ColorTheme {
	switch name {
	case "light":
		return LightColorTheme()
	case "plain", "none":
		return PlainTextTheme()
	default:
		return DarkColorTheme()
	}
}
