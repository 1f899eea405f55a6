// Package commands implements the built-in debugger commands and
// registers them with the dispatcher.
package commands

import (
	"io"

	"github.com/dshills/stormdbg/internal/command"
	"github.com/dshills/stormdbg/internal/render"
)

// RegisterAll registers every built-in command and command group.
func RegisterAll(d *command.Dispatcher) {
	registerControl(d)
	registerBreakpoints(d)
	registerStack(d)
	registerInspect(d)
	registerMemory(d)
	registerContext(d)
	registerSource(d)
	registerAI(d)
	registerConfig(d)
	registerHelp(d)
}

// printer builds a themed printer for the env's output writer.
func printer(env *command.Env) *render.Printer {
	theme := render.DefaultTheme()
	if env.Config != nil {
		theme = render.ThemeByName(env.Config.GetString("theme.name", "default"))
	}
	out := env.Out
	if out == nil {
		out = io.Discard
	}
	return render.NewPrinter(out, theme)
}

// selectedFrameID returns the selected frame's id, or 0 when no stack
// is cached. Frame id 0 lets adapters pick the top frame.
func selectedFrameID(env *command.Env) int {
	if env.Stack == nil {
		return 0
	}
	if frame, _, ok := env.Stack.Selected(); ok {
		return frame.ID
	}
	return 0
}
