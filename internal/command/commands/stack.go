package commands

import (
	"context"
	"strconv"

	"github.com/dshills/stormdbg/internal/command"
	"github.com/dshills/stormdbg/internal/dap"
	"github.com/dshills/stormdbg/internal/debug"
)

func registerStack(d *command.Dispatcher) {
	d.RegisterCommand(&command.Command{
		Name:    "backtrace",
		Aliases: []string{"bt", "where"},
		Usage:   "backtrace [limit]",
		Summary: "print the call stack",
		Fn:      cmdBacktrace,
	})
	d.RegisterCommand(&command.Command{
		Name:    "frame",
		Aliases: []string{"f"},
		Usage:   "frame <index>",
		Summary: "select a stack frame",
		Fn:      cmdFrame,
	})
	d.RegisterCommand(&command.Command{
		Name:    "up",
		Usage:   "up [count]",
		Summary: "select a caller frame",
		Fn:      frameMove((*debug.StackNavigator).Up),
	})
	d.RegisterCommand(&command.Command{
		Name:    "down",
		Usage:   "down [count]",
		Summary: "select a callee frame",
		Fn:      frameMove((*debug.StackNavigator).Down),
	})
}

// ensureStack refreshes the stack cache when it is empty.
func ensureStack(ctx context.Context, env *command.Env) *command.Result {
	session, errResult := env.RequireStopped()
	if errResult != nil {
		return errResult
	}
	if env.Stack == nil {
		r := command.Errorf("no stack navigator")
		return &r
	}
	if env.Stack.Depth() == 0 {
		if err := env.Stack.Refresh(ctx, session.CurrentThread()); err != nil {
			r := command.Error(err)
			return &r
		}
	}
	return nil
}

func cmdBacktrace(ctx context.Context, req command.Request, env *command.Env) command.Result {
	if errResult := ensureStack(ctx, env); errResult != nil {
		return *errResult
	}

	limit := 0
	if req.Arg(0) != "" {
		n, err := strconv.Atoi(req.Arg(0))
		if err != nil || n < 1 {
			return command.Errorf("usage: backtrace [limit]")
		}
		limit = n
	}
	return command.Output(env.Stack.FormatStackTrace(limit))
}

func cmdFrame(ctx context.Context, req command.Request, env *command.Env) command.Result {
	if errResult := ensureStack(ctx, env); errResult != nil {
		return *errResult
	}

	if req.Arg(0) == "" {
		frame, index, ok := env.Stack.Selected()
		if !ok {
			return command.Errorf("no frame selected")
		}
		return command.Output(debug.FormatFrame(frame, index, true))
	}

	index, err := strconv.Atoi(req.Arg(0))
	if err != nil {
		return command.Errorf("usage: frame <index>")
	}
	frame, err := env.Stack.Select(index)
	if err != nil {
		return command.Error(err)
	}
	return command.Output(debug.FormatFrame(frame, index, true))
}

func frameMove(move func(nav *debug.StackNavigator, n int) (dap.StackFrame, error)) func(context.Context, command.Request, *command.Env) command.Result {
	return func(ctx context.Context, req command.Request, env *command.Env) command.Result {
		if errResult := ensureStack(ctx, env); errResult != nil {
			return *errResult
		}

		count := 1
		if req.Arg(0) != "" {
			n, err := strconv.Atoi(req.Arg(0))
			if err != nil || n < 1 {
				return command.Errorf("usage: %s [count]", req.Name)
			}
			count = n
		}

		frame, err := move(env.Stack, count)
		if err != nil {
			return command.Error(err)
		}
		_, index, _ := env.Stack.Selected()
		return command.Output(debug.FormatFrame(frame, index, true))
	}
}
