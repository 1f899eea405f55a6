package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dshills/stormdbg/internal/command"
)

func registerBreakpoints(d *command.Dispatcher) {
	d.RegisterCommand(&command.Command{
		Name:    "break",
		Aliases: []string{"b", "breakpoint"},
		Usage:   "break <file:line | function> [if <condition>]",
		Summary: "set a breakpoint",
		Fn:      cmdBreak,
	})
	d.RegisterCommand(&command.Command{
		Name:    "delete",
		Aliases: []string{"d"},
		Usage:   "delete <id>",
		Summary: "delete a breakpoint",
		Fn:      cmdDelete,
	})
	d.RegisterCommand(&command.Command{
		Name:    "enable",
		Usage:   "enable <id>",
		Summary: "enable a breakpoint",
		Fn:      breakpointToggle(true),
	})
	d.RegisterCommand(&command.Command{
		Name:    "disable",
		Usage:   "disable <id>",
		Summary: "disable a breakpoint without deleting it",
		Fn:      breakpointToggle(false),
	})
}

// breakSpec is a parsed breakpoint location.
type breakSpec struct {
	path      string
	line      int
	function  string
	condition string
}

// parseBreakSpec parses "file:line" or a function name, optionally
// followed by "if <condition>".
func parseBreakSpec(args []string) (breakSpec, error) {
	if len(args) == 0 {
		return breakSpec{}, fmt.Errorf("usage: break <file:line | function> [if <condition>]")
	}

	var spec breakSpec
	loc := args[0]
	rest := args[1:]

	if len(rest) > 0 {
		if rest[0] != "if" || len(rest) < 2 {
			return breakSpec{}, fmt.Errorf("trailing arguments; did you mean 'if <condition>'?")
		}
		spec.condition = strings.Join(rest[1:], " ")
	}

	if idx := strings.LastIndexByte(loc, ':'); idx > 0 {
		if line, err := strconv.Atoi(loc[idx+1:]); err == nil {
			if line <= 0 {
				return breakSpec{}, fmt.Errorf("invalid line number %d", line)
			}
			spec.path = loc[:idx]
			spec.line = line
			return spec, nil
		}
	}

	spec.function = loc
	return spec, nil
}

func cmdBreak(ctx context.Context, req command.Request, env *command.Env) command.Result {
	if env.Breakpoints == nil {
		return command.Errorf("no breakpoint store")
	}

	spec, err := parseBreakSpec(req.Args)
	if err != nil {
		return command.Error(err)
	}

	if spec.function != "" {
		bp, err := env.Breakpoints.AddFunction(ctx, spec.function, spec.condition)
		if err != nil {
			return command.Error(err)
		}
		return command.Outputf("breakpoint %d at %s", bp.ID, bp.Location())
	}

	bp, err := env.Breakpoints.AddLine(ctx, spec.path, spec.line, spec.condition)
	if err != nil {
		return command.Error(err)
	}
	status := ""
	if !bp.Verified {
		status = " (pending)"
	}
	return command.Outputf("breakpoint %d at %s%s", bp.ID, bp.Location(), status)
}

func cmdDelete(ctx context.Context, req command.Request, env *command.Env) command.Result {
	if env.Breakpoints == nil {
		return command.Errorf("no breakpoint store")
	}
	id, err := strconv.Atoi(req.Arg(0))
	if err != nil {
		return command.Errorf("usage: delete <id>")
	}
	if err := env.Breakpoints.Remove(ctx, id); err != nil {
		return command.Error(err)
	}
	return command.Outputf("deleted breakpoint %d", id)
}

func breakpointToggle(enabled bool) func(context.Context, command.Request, *command.Env) command.Result {
	verb := "disabled"
	if enabled {
		verb = "enabled"
	}
	return func(ctx context.Context, req command.Request, env *command.Env) command.Result {
		if env.Breakpoints == nil {
			return command.Errorf("no breakpoint store")
		}
		id, err := strconv.Atoi(req.Arg(0))
		if err != nil {
			return command.Errorf("usage: %s <id>", req.Name)
		}
		if err := env.Breakpoints.SetEnabled(ctx, id, enabled); err != nil {
			return command.Error(err)
		}
		return command.Outputf("%s breakpoint %d", verb, id)
	}
}

// formatBreakpoints renders the breakpoint table for "info breakpoints".
func formatBreakpoints(env *command.Env) string {
	bps := env.Breakpoints.All()
	if len(bps) == 0 {
		return "no breakpoints set"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-4s %-10s %-8s %-30s %s\n", "id", "kind", "state", "location", "hits")
	for _, bp := range bps {
		state := "enabled"
		if !bp.Enabled {
			state = "disabled"
		} else if !bp.Verified {
			state = "pending"
		}
		loc := bp.Location()
		if bp.Condition != "" {
			loc += " if " + bp.Condition
		}
		fmt.Fprintf(&b, "%-4d %-10s %-8s %-30s %d\n", bp.ID, bp.Kind, state, loc, bp.HitCount)
	}
	return strings.TrimRight(b.String(), "\n")
}
