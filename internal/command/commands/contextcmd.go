package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/stormdbg/internal/command"
	"github.com/dshills/stormdbg/internal/debug"
	"github.com/dshills/stormdbg/internal/render"
)

func registerContext(d *command.Dispatcher) {
	d.RegisterCommand(&command.Command{
		Name:    "context",
		Aliases: []string{"ctx"},
		Usage:   "context",
		Summary: "print the full stop context (registers, stack, code, source, trace)",
		Fn:      cmdContext,
	})
}

func cmdContext(ctx context.Context, req command.Request, env *command.Env) command.Result {
	session, errResult := env.RequireStopped()
	if errResult != nil {
		return *errResult
	}

	p := printer(env)

	if env.Stack != nil && env.Stack.Depth() == 0 {
		if err := env.Stack.Refresh(ctx, session.CurrentThread()); err != nil {
			env.Logger().Warn("stack refresh failed: %v", err)
		}
	}

	for _, pane := range contextPanes() {
		p.Section(pane.title)
		text, ok := pane.render(ctx, env)
		if !ok {
			p.Muted(text)
			continue
		}
		p.Println(strings.TrimRight(text, "\n"))
	}

	return command.Success()
}

// ContextSections collects the context panes as titled sections, for the
// full-screen view.
func ContextSections(ctx context.Context, env *command.Env) []render.ContextSection {
	panes := contextPanes()
	sections := make([]render.ContextSection, 0, len(panes))
	for _, pane := range panes {
		text, _ := pane.render(ctx, env)
		sections = append(sections, render.ContextSection{
			Title: pane.title,
			Body:  strings.Split(strings.TrimRight(text, "\n"), "\n"),
		})
	}
	return sections
}

// contextPane renders one titled block of the stop context. The bool
// reports whether the text is content or a muted notice.
type contextPane struct {
	title  string
	render func(ctx context.Context, env *command.Env) (string, bool)
}

func contextPanes() []contextPane {
	return []contextPane{
		{"registers", registersPane},
		{"stack", stackMemoryPane},
		{"code", codePane},
		{"source", sourcePane},
		{"trace", tracePane},
	}
}

func registersPane(ctx context.Context, env *command.Env) (string, bool) {
	if env.Registers == nil {
		return "no register file", false
	}
	if err := env.Registers.Refresh(ctx, selectedFrameID(env)); err != nil {
		return fmt.Sprintf("registers unavailable: %v", err), false
	}
	out := env.Registers.Format()
	if out == "" {
		return "the adapter reports no registers scope", false
	}
	return out, true
}

// stackMemoryPane dumps words at the stack pointer.
func stackMemoryPane(ctx context.Context, env *command.Env) (string, bool) {
	if env.Memory == nil || env.Registers == nil || env.Session == nil {
		return "no memory reader", false
	}
	caps := env.Session.Capabilities()
	if caps == nil || !caps.SupportsReadMemoryRequest {
		return "the adapter does not support reading memory", false
	}

	sp, ok := env.Registers.SP()
	if !ok {
		return "no stack pointer", false
	}

	words := 8
	if env.Config != nil {
		words = env.Config.GetInt("context.stackWords", words)
	}
	wordSize := env.Registers.Arch().PointerSize

	block, err := env.Memory.Read(ctx, fmt.Sprintf("0x%x", sp), 0, words*wordSize)
	if err != nil {
		return fmt.Sprintf("stack memory unavailable: %v", err), false
	}
	return debug.FormatWords(block, wordSize), true
}

// codePane disassembles around the program counter.
func codePane(ctx context.Context, env *command.Env) (string, bool) {
	if env.Disasm == nil || env.Session == nil {
		return "no disassembler", false
	}
	caps := env.Session.Capabilities()
	if caps == nil || !caps.SupportsDisassembleRequest {
		return "the adapter does not support disassembly", false
	}

	ref, err := pcReference(ctx, env)
	if err != nil {
		return err.Error(), false
	}

	count := 8
	if env.Config != nil {
		count = env.Config.GetInt("context.instructions", count)
	}

	instructions, err := env.Disasm.Around(ctx, ref, count/2, count-count/2)
	if err != nil {
		return fmt.Sprintf("disassembly unavailable: %v", err), false
	}
	return debug.FormatListing(instructions, ref), true
}

// sourcePane lists source around the selected frame's line.
func sourcePane(ctx context.Context, env *command.Env) (string, bool) {
	if env.Stack == nil {
		return "no stack", false
	}
	frame, _, ok := env.Stack.Selected()
	if !ok || frame.Source == nil || frame.Source.Path == "" {
		return "no source for the selected frame", false
	}

	radius := 5
	if env.Config != nil {
		radius = env.Config.GetInt("context.sourceLines", radius)
	}

	out, err := sourceWindow(frame.Source.Path, frame.Line, radius)
	if err != nil {
		return err.Error(), false
	}
	return out, true
}

func tracePane(ctx context.Context, env *command.Env) (string, bool) {
	if env.Stack == nil || env.Stack.Depth() == 0 {
		return "no stack", false
	}
	return env.Stack.FormatStackTrace(8), true
}
