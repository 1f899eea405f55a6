// Package render formats debugger output: colored text, titled section
// rules, and the terminal context view.
package render

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
)

// Style is a renderable text style.
type Style struct {
	// FG is the foreground color as a hex string ("#ff8800"), empty
	// for the terminal default.
	FG string

	// Bold renders the text bold.
	Bold bool

	// Dim renders the text faint.
	Dim bool

	// Underline renders the text underlined.
	Underline bool
}

// ansi renders the style's escape sequence prefix, empty when the
// style is the zero value.
func (s Style) ansi() string {
	out := ""
	if s.Bold {
		out += "\x1b[1m"
	}
	if s.Dim {
		out += "\x1b[2m"
	}
	if s.Underline {
		out += "\x1b[4m"
	}
	if s.FG != "" {
		if c, err := colorful.Hex(s.FG); err == nil {
			r, g, b := c.RGB255()
			out += fmt.Sprintf("\x1b[38;2;%d;%d;%dm", r, g, b)
		}
	}
	return out
}

// Apply wraps text in the style's escape sequences when color is
// enabled.
func (s Style) Apply(text string, color bool) string {
	if !color {
		return text
	}
	prefix := s.ansi()
	if prefix == "" {
		return text
	}
	return prefix + text + "\x1b[0m"
}

// Lighten returns a copy of the style with the foreground lightened by
// the given amount (0 to 1).
func (s Style) Lighten(amount float64) Style {
	if s.FG == "" {
		return s
	}
	c, err := colorful.Hex(s.FG)
	if err != nil {
		return s
	}
	l, a, b := c.Lab()
	l += amount
	if l > 1 {
		l = 1
	}
	s.FG = colorful.Lab(l, a, b).Clamped().Hex()
	return s
}

// Theme names the styles used by the context view and command output.
type Theme struct {
	Name string

	Title      Style
	Register   Style
	Changed    Style
	Address    Style
	Value      Style
	Current    Style
	Error      Style
	Muted      Style
	SourceLine Style
}

// DefaultTheme returns the built-in theme.
func DefaultTheme() Theme {
	return Theme{
		Name:       "default",
		Title:      Style{FG: "#66ccff", Bold: true},
		Register:   Style{FG: "#cccc66"},
		Changed:    Style{FG: "#ff6666", Bold: true},
		Address:    Style{FG: "#888888"},
		Value:      Style{},
		Current:    Style{FG: "#66ff66", Bold: true},
		Error:      Style{FG: "#ff4444", Bold: true},
		Muted:      Style{Dim: true},
		SourceLine: Style{FG: "#aaaaaa"},
	}
}

// MonoTheme returns a colorless theme for dumb terminals and pipes.
func MonoTheme() Theme {
	return Theme{Name: "mono"}
}

// ThemeByName returns a named theme, falling back to the default.
func ThemeByName(name string) Theme {
	switch name {
	case "mono", "none":
		return MonoTheme()
	default:
		return DefaultTheme()
	}
}
