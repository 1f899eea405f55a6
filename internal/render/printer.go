package render

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// Printer writes themed debugger output to a writer.
type Printer struct {
	out   io.Writer
	theme Theme
	color bool
	width int
}

// NewPrinter creates a printer for the writer. Color and width are
// detected when the writer is a terminal.
func NewPrinter(out io.Writer, theme Theme) *Printer {
	p := &Printer{
		out:   out,
		theme: theme,
		width: 80,
	}

	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.color = true
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			p.width = w
		}
	}

	return p
}

// SetColor overrides color detection.
func (p *Printer) SetColor(enabled bool) {
	p.color = enabled
}

// SetWidth overrides the detected terminal width.
func (p *Printer) SetWidth(width int) {
	if width > 0 {
		p.width = width
	}
}

// Width returns the output width in cells.
func (p *Printer) Width() int {
	return p.width
}

// Theme returns the printer's theme.
func (p *Printer) Theme() Theme {
	return p.theme
}

// Print writes plain text.
func (p *Printer) Print(text string) {
	fmt.Fprint(p.out, text)
}

// Printf writes formatted plain text.
func (p *Printer) Printf(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}

// Println writes a line of plain text.
func (p *Printer) Println(text string) {
	fmt.Fprintln(p.out, text)
}

// Styled writes text in a theme style.
func (p *Printer) Styled(style Style, text string) {
	fmt.Fprint(p.out, style.Apply(text, p.color))
}

// Section writes a titled section rule.
func (p *Printer) Section(title string) {
	fmt.Fprintln(p.out, p.theme.Title.Apply(TitleRule(title, p.width), p.color))
}

// Error writes an error line in the error style.
func (p *Printer) Error(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(p.out, p.theme.Error.Apply(msg, p.color))
}

// Muted writes a line in the muted style.
func (p *Printer) Muted(text string) {
	fmt.Fprintln(p.out, p.theme.Muted.Apply(text, p.color))
}
