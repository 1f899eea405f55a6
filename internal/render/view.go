package render

import (
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/uniseg"
)

// ContextSection is one titled block of the context view.
type ContextSection struct {
	// Title is the section title rendered in the rule.
	Title string

	// Body is the section content, one line per element.
	Body []string
}

// ContextView is a full-screen tcell view that shows the debugger
// context sections and refreshes on demand. It is optional; the plain
// printer output remains the primary surface.
type ContextView struct {
	mu       sync.Mutex
	screen   tcell.Screen
	theme    Theme
	sections []ContextSection
	scroll   int
}

// NewContextView creates an uninitialized context view.
func NewContextView(theme Theme) (*ContextView, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	return &ContextView{screen: screen, theme: theme}, nil
}

// Init initializes the terminal screen.
func (v *ContextView) Init() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.screen.Init()
}

// Shutdown restores the terminal.
func (v *ContextView) Shutdown() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.screen.Fini()
}

// SetSections replaces the view content and redraws.
func (v *ContextView) SetSections(sections []ContextSection) {
	v.mu.Lock()
	v.sections = sections
	v.mu.Unlock()
	v.Draw()
}

// Draw renders the sections to the screen.
func (v *ContextView) Draw() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.screen.Clear()
	width, height := v.screen.Size()

	titleStyle := toTcell(v.theme.Title)
	bodyStyle := toTcell(v.theme.Value)

	y := -v.scroll
	for _, section := range v.sections {
		if y >= height {
			break
		}
		if y >= 0 {
			v.drawLine(0, y, TitleRule(section.Title, width), titleStyle, width)
		}
		y++
		for _, line := range section.Body {
			if y >= height {
				break
			}
			if y >= 0 {
				v.drawLine(0, y, line, bodyStyle, width)
			}
			y++
		}
	}

	v.screen.Show()
}

// ScrollBy adjusts the scroll offset and redraws.
func (v *ContextView) ScrollBy(delta int) {
	v.mu.Lock()
	v.scroll += delta
	if v.scroll < 0 {
		v.scroll = 0
	}
	v.mu.Unlock()
	v.Draw()
}

// Run polls events until the user closes the view with q or Escape.
func (v *ContextView) Run() {
	for {
		switch ev := v.screen.PollEvent().(type) {
		case *tcell.EventResize:
			v.screen.Sync()
			v.Draw()
		case *tcell.EventKey:
			switch {
			case ev.Key() == tcell.KeyEscape, ev.Rune() == 'q':
				return
			case ev.Key() == tcell.KeyUp, ev.Rune() == 'k':
				v.ScrollBy(-1)
			case ev.Key() == tcell.KeyDown, ev.Rune() == 'j':
				v.ScrollBy(1)
			case ev.Key() == tcell.KeyPgUp:
				_, h := v.screen.Size()
				v.ScrollBy(-h)
			case ev.Key() == tcell.KeyPgDn:
				_, h := v.screen.Size()
				v.ScrollBy(h)
			}
		}
	}
}

// drawLine writes a line of text clipped to the screen width, stepping
// by grapheme cluster so wide characters occupy the right number of cells.
func (v *ContextView) drawLine(x, y int, text string, style tcell.Style, width int) {
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		if x >= width {
			return
		}
		runes := g.Runes()
		if len(runes) == 0 {
			continue
		}
		v.screen.SetContent(x, y, runes[0], runes[1:], style)
		x += g.Width()
	}
}

// toTcell converts a theme style to a tcell style.
func toTcell(s Style) tcell.Style {
	style := tcell.StyleDefault
	if s.FG != "" {
		hex := strings.TrimPrefix(s.FG, "#")
		if len(hex) == 6 {
			style = style.Foreground(tcell.GetColor("#" + hex))
		}
	}
	if s.Bold {
		style = style.Bold(true)
	}
	if s.Dim {
		style = style.Dim(true)
	}
	if s.Underline {
		style = style.Underline(true)
	}
	return style
}
