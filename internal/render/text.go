package render

import (
	"strings"

	"github.com/rivo/uniseg"
)

// Width returns the display width of a string in terminal cells,
// accounting for wide characters and grapheme clusters.
func Width(s string) int {
	return uniseg.StringWidth(s)
}

// Truncate shortens a string to at most width display cells, appending
// an ellipsis when truncation occurs.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if Width(s) <= width {
		return s
	}

	const ellipsis = "…"
	budget := width - Width(ellipsis)

	var b strings.Builder
	used := 0
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		w := g.Width()
		if used+w > budget {
			break
		}
		b.WriteString(g.Str())
		used += w
	}
	b.WriteString(ellipsis)
	return b.String()
}

// Pad right-pads a string with spaces to the given display width.
func Pad(s string, width int) string {
	w := Width(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}
