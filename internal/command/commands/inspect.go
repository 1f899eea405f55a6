package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dshills/stormdbg/internal/command"
	"github.com/dshills/stormdbg/internal/dap"
	"github.com/dshills/stormdbg/internal/debug"
)

func registerInspect(d *command.Dispatcher) {
	info := command.NewGroup("info")
	info.Register("registers", cmdInfoRegisters)
	info.Register("breakpoints", cmdInfoBreakpoints)
	info.Register("threads", cmdInfoThreads)
	info.Register("frame", cmdFrame)
	info.Register("locals", cmdInfoLocals)
	info.Register("args", cmdInfoArgs)
	d.RegisterGroup("info", info)

	d.RegisterCommand(&command.Command{
		Name:    "registers",
		Aliases: []string{"regs"},
		Usage:   "registers",
		Summary: "print the register file",
		Fn:      cmdInfoRegisters,
	})
	d.RegisterCommand(&command.Command{
		Name:    "threads",
		Usage:   "threads",
		Summary: "list the target's threads",
		Fn:      cmdInfoThreads,
	})
	d.RegisterCommand(&command.Command{
		Name:    "thread",
		Aliases: []string{"t"},
		Usage:   "thread <id>",
		Summary: "switch stack inspection to a thread",
		Fn:      cmdThread,
	})
	d.RegisterCommand(&command.Command{
		Name:    "print",
		Aliases: []string{"p", "eval"},
		Usage:   "print <expression>",
		Summary: "evaluate an expression in the selected frame",
		Fn:      cmdPrint,
	})
	d.RegisterCommand(&command.Command{
		Name:    "set",
		Usage:   "set <variable> = <value>",
		Summary: "assign a new value to a variable",
		Fn:      cmdSetVariable,
	})
	d.RegisterCommand(&command.Command{
		Name:    "exception",
		Usage:   "exception",
		Summary: "show details of the current exception",
		Fn:      cmdException,
	})
}

func cmdInfoRegisters(ctx context.Context, req command.Request, env *command.Env) command.Result {
	if _, errResult := env.RequireStopped(); errResult != nil {
		return *errResult
	}
	if env.Registers == nil {
		return command.Errorf("no register file")
	}
	if err := env.Registers.Refresh(ctx, selectedFrameID(env)); err != nil {
		return command.Error(err)
	}
	out := strings.TrimRight(env.Registers.Format(), "\n")
	if out == "" {
		return command.NoOpWithOutput("the adapter reports no registers scope")
	}
	return command.Output(out)
}

func cmdInfoBreakpoints(ctx context.Context, req command.Request, env *command.Env) command.Result {
	if env.Breakpoints == nil {
		return command.Errorf("no breakpoint store")
	}
	return command.Output(formatBreakpoints(env))
}

func cmdInfoThreads(ctx context.Context, req command.Request, env *command.Env) command.Result {
	session, errResult := env.RequireSession()
	if errResult != nil {
		return *errResult
	}

	threads, err := session.GetThreads(ctx)
	if err != nil {
		return command.Error(err)
	}
	if len(threads) == 0 {
		return command.NoOpWithOutput("no threads")
	}

	current := session.CurrentThread()
	var b strings.Builder
	for _, t := range threads {
		marker := "  "
		if t.ID == current {
			marker = "->"
		}
		fmt.Fprintf(&b, "%s %d %s\n", marker, t.ID, t.Name)
	}
	return command.Output(strings.TrimRight(b.String(), "\n"))
}

func cmdThread(ctx context.Context, req command.Request, env *command.Env) command.Result {
	if _, errResult := env.RequireStopped(); errResult != nil {
		return *errResult
	}
	id, err := strconv.Atoi(req.Arg(0))
	if err != nil {
		return command.Errorf("usage: thread <id>")
	}
	if env.Stack == nil {
		return command.Errorf("no stack navigator")
	}
	if err := env.Stack.Refresh(ctx, id); err != nil {
		return command.Error(err)
	}
	return command.Outputf("inspecting thread %d\n%s", id, env.Stack.FormatStackTrace(5))
}

func cmdInfoLocals(ctx context.Context, req command.Request, env *command.Env) command.Result {
	return scopeVariables(ctx, env, (*debug.Inspector).Locals, "no locals in this frame")
}

func cmdInfoArgs(ctx context.Context, req command.Request, env *command.Env) command.Result {
	return scopeVariables(ctx, env, (*debug.Inspector).Arguments, "no arguments in this frame")
}

func scopeVariables(ctx context.Context, env *command.Env, fetch func(i *debug.Inspector, ctx context.Context, frameID int) ([]dap.Variable, error), empty string) command.Result {
	if _, errResult := env.RequireStopped(); errResult != nil {
		return *errResult
	}
	if env.Inspector == nil {
		return command.Errorf("no inspector")
	}

	vars, err := fetch(env.Inspector, ctx, selectedFrameID(env))
	if err != nil {
		return command.Error(err)
	}
	if len(vars) == 0 {
		return command.NoOpWithOutput(empty)
	}
	return command.Output(strings.TrimRight(debug.FormatVariables(vars), "\n"))
}

func cmdPrint(ctx context.Context, req command.Request, env *command.Env) command.Result {
	if _, errResult := env.RequireStopped(); errResult != nil {
		return *errResult
	}
	if env.Inspector == nil {
		return command.Errorf("no inspector")
	}

	expr := req.ArgString()
	if strings.TrimSpace(expr) == "" {
		return command.Errorf("usage: print <expression>")
	}

	body, err := env.Inspector.Evaluate(ctx, expr, selectedFrameID(env))
	if err != nil {
		return command.Error(err)
	}
	if body.Type != "" {
		return command.Outputf("%s (%s)", body.Result, body.Type)
	}
	return command.Output(body.Result)
}

func cmdSetVariable(ctx context.Context, req command.Request, env *command.Env) command.Result {
	if _, errResult := env.RequireStopped(); errResult != nil {
		return *errResult
	}
	if env.Inspector == nil {
		return command.Errorf("no inspector")
	}

	line := req.ArgString()
	name, value, ok := strings.Cut(line, "=")
	if !ok {
		return command.Errorf("usage: set <variable> = <value>")
	}
	name = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(name), "var "))
	value = strings.TrimSpace(value)
	if name == "" || value == "" {
		return command.Errorf("usage: set <variable> = <value>")
	}

	frameID := selectedFrameID(env)
	scopes, err := env.Inspector.Scopes(ctx, frameID)
	if err != nil {
		return command.Error(err)
	}

	for _, scope := range scopes {
		vars, err := env.Inspector.Variables(ctx, scope.VariablesReference)
		if err != nil {
			continue
		}
		for _, v := range vars {
			if v.Name != name {
				continue
			}
			newValue, err := env.Inspector.Set(ctx, scope.VariablesReference, name, value)
			if err != nil {
				return command.Error(err)
			}
			return command.Outputf("%s = %s", name, newValue)
		}
	}
	return command.Errorf("no variable %q in the selected frame", name)
}

func cmdException(ctx context.Context, req command.Request, env *command.Env) command.Result {
	session, errResult := env.RequireStopped()
	if errResult != nil {
		return *errResult
	}

	body, err := session.ExceptionInfo(ctx, session.CurrentThread())
	if err != nil {
		return command.Error(err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)", body.ExceptionID, body.BreakMode)
	if body.Description != "" {
		fmt.Fprintf(&b, "\n%s", body.Description)
	}
	if body.Details != nil && body.Details.StackTrace != "" {
		fmt.Fprintf(&b, "\n%s", strings.TrimRight(body.Details.StackTrace, "\n"))
	}
	return command.Output(b.String())
}
