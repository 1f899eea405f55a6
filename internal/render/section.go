package render

import (
	"strings"
)

// TitleRule renders a horizontal rule with an embedded title, in the
// classic debugger context style:
//
//	──────────────────────────── registers ────
func TitleRule(title string, width int) string {
	if width <= 0 {
		width = 80
	}

	const trailing = 4
	label := " " + title + " "
	fill := width - Width(label) - trailing
	if fill < 1 {
		fill = 1
	}

	return strings.Repeat("─", fill) + label + strings.Repeat("─", trailing)
}

// Rule renders a plain horizontal rule.
func Rule(width int) string {
	if width <= 0 {
		width = 80
	}
	return strings.Repeat("─", width)
}
