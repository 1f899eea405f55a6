package commands

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dshills/stormdbg/internal/command"
	"github.com/dshills/stormdbg/internal/config"
)

// stepWaitTimeout bounds the wait for a stop between repeated steps.
const stepWaitTimeout = 30 * time.Second

func registerControl(d *command.Dispatcher) {
	d.RegisterCommand(&command.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "run [config-name]",
		Summary: "launch the target using a launch configuration",
		Fn:      cmdRun,
	})
	d.RegisterCommand(&command.Command{
		Name:    "attach",
		Usage:   "attach [config-name]",
		Summary: "attach to a running process using an attach configuration",
		Fn:      cmdAttach,
	})
	d.RegisterCommand(&command.Command{
		Name:    "continue",
		Aliases: []string{"c"},
		Usage:   "continue",
		Summary: "resume the target",
		Fn:      cmdContinue,
	})
	d.RegisterCommand(&command.Command{
		Name:    "next",
		Aliases: []string{"n"},
		Usage:   "next [count]",
		Summary: "step over to the next source line",
		Fn:      stepFn(func(ctx context.Context, env *command.Env, tid int) error {
			return env.Session.Next(ctx, tid, "")
		}),
	})
	d.RegisterCommand(&command.Command{
		Name:    "step",
		Aliases: []string{"s", "stepin"},
		Usage:   "step [count]",
		Summary: "step into the next source line",
		Fn: stepFn(func(ctx context.Context, env *command.Env, tid int) error {
			return env.Session.StepIn(ctx, tid, "")
		}),
	})
	d.RegisterCommand(&command.Command{
		Name:    "stepi",
		Aliases: []string{"si"},
		Usage:   "stepi [count]",
		Summary: "step one instruction, entering calls",
		Fn: stepFn(func(ctx context.Context, env *command.Env, tid int) error {
			return env.Session.StepIn(ctx, tid, "instruction")
		}),
	})
	d.RegisterCommand(&command.Command{
		Name:    "nexti",
		Aliases: []string{"ni"},
		Usage:   "nexti [count]",
		Summary: "step one instruction, over calls",
		Fn: stepFn(func(ctx context.Context, env *command.Env, tid int) error {
			return env.Session.Next(ctx, tid, "instruction")
		}),
	})
	d.RegisterCommand(&command.Command{
		Name:    "finish",
		Aliases: []string{"stepout", "fin"},
		Usage:   "finish",
		Summary: "run until the current function returns",
		Fn: stepFn(func(ctx context.Context, env *command.Env, tid int) error {
			return env.Session.StepOut(ctx, tid)
		}),
	})
	d.RegisterCommand(&command.Command{
		Name:    "interrupt",
		Aliases: []string{"pause"},
		Usage:   "interrupt",
		Summary: "suspend the running target",
		Fn:      cmdInterrupt,
	})
	d.RegisterCommand(&command.Command{
		Name:    "restart",
		Usage:   "restart",
		Summary: "restart the debug session",
		Fn:      cmdRestart,
	})
	d.RegisterCommand(&command.Command{
		Name:    "quit",
		Aliases: []string{"q", "exit"},
		Usage:   "quit",
		Summary: "disconnect and exit",
		Fn: func(ctx context.Context, req command.Request, env *command.Env) command.Result {
			return command.Quit()
		},
	})
}

// stepFn wraps an execution-control call with the shared stopped-state
// check, GDB-style repeat counts, and stack invalidation.
func stepFn(step func(ctx context.Context, env *command.Env, threadID int) error) func(context.Context, command.Request, *command.Env) command.Result {
	return func(ctx context.Context, req command.Request, env *command.Env) command.Result {
		session, errResult := env.RequireStopped()
		if errResult != nil {
			return *errResult
		}

		count, err := parseCount(req.Arg(0))
		if err != nil {
			return command.Error(err)
		}

		tid := session.CurrentThread()
		if env.Stack != nil && env.Stack.ThreadID() != 0 {
			tid = env.Stack.ThreadID()
		}

		for i := 0; i < count; i++ {
			if i > 0 {
				waitCtx, cancel := context.WithTimeout(ctx, stepWaitTimeout)
				waitErr := session.WaitForStop(waitCtx)
				cancel()
				if waitErr != nil {
					return command.Errorf("stopped after %d of %d steps: %v", i, count, waitErr)
				}
			}
			if err := step(ctx, env, tid); err != nil {
				return command.Error(err)
			}
		}

		if env.Stack != nil {
			env.Stack.Invalidate()
		}
		return command.Success()
	}
}

// parseCount parses an optional repeat count argument.
func parseCount(arg string) (int, error) {
	if arg == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid repeat count %q", arg)
	}
	return n, nil
}

func cmdRun(ctx context.Context, req command.Request, env *command.Env) command.Result {
	session, errResult := env.RequireSession()
	if errResult != nil {
		return *errResult
	}

	lc, result := pickLaunch(env, req.Arg(0), "launch")
	if result != nil {
		return *result
	}

	if env.Adapter == nil {
		return command.Errorf("no adapter connected")
	}
	body, err := env.Adapter.LaunchArgs(lc)
	if err != nil {
		return command.Error(err)
	}

	if err := session.Launch(ctx, body); err != nil {
		return command.Error(err)
	}
	if env.Breakpoints != nil {
		if err := env.Breakpoints.SyncAll(ctx); err != nil {
			env.Logger().Warn("breakpoint sync failed: %v", err)
		}
	}
	if err := session.ConfigurationDone(ctx); err != nil {
		return command.Error(err)
	}
	return command.Outputf("launched %s", lc.Program)
}

func cmdAttach(ctx context.Context, req command.Request, env *command.Env) command.Result {
	session, errResult := env.RequireSession()
	if errResult != nil {
		return *errResult
	}

	lc, result := pickLaunch(env, req.Arg(0), "attach")
	if result != nil {
		return *result
	}

	if env.Adapter == nil {
		return command.Errorf("no adapter connected")
	}
	body, err := env.Adapter.AttachArgs(lc)
	if err != nil {
		return command.Error(err)
	}

	if err := session.Attach(ctx, body); err != nil {
		return command.Error(err)
	}
	if env.Breakpoints != nil {
		if err := env.Breakpoints.SyncAll(ctx); err != nil {
			env.Logger().Warn("breakpoint sync failed: %v", err)
		}
	}
	if err := session.ConfigurationDone(ctx); err != nil {
		return command.Error(err)
	}
	if lc.ProcessID != 0 {
		return command.Outputf("attached to pid %d", lc.ProcessID)
	}
	return command.Outputf("attached to port %d", lc.Port)
}

// pickLaunch selects a launch configuration by name, or the only one of
// the given mode when no name is supplied.
func pickLaunch(env *command.Env, name, mode string) (config.LaunchConfig, *command.Result) {
	if env.Config == nil {
		r := command.Errorf("no configuration loaded")
		return config.LaunchConfig{}, &r
	}

	if name != "" {
		lc, ok := env.Config.Launch(name)
		if !ok {
			r := command.Errorf("no launch configuration named %q", name)
			return config.LaunchConfig{}, &r
		}
		if err := lc.Validate(); err != nil {
			r := command.Error(err)
			return config.LaunchConfig{}, &r
		}
		return lc, nil
	}

	var matched []config.LaunchConfig
	for _, lc := range env.Config.Launches() {
		lcMode := lc.Mode
		if lcMode == "" {
			lcMode = "launch"
		}
		if lcMode == mode {
			matched = append(matched, lc)
		}
	}
	switch len(matched) {
	case 0:
		r := command.Errorf("no %s configurations defined; add one to the launch file", mode)
		return config.LaunchConfig{}, &r
	case 1:
		if err := matched[0].Validate(); err != nil {
			r := command.Error(err)
			return config.LaunchConfig{}, &r
		}
		return matched[0], nil
	default:
		names := ""
		for i, lc := range matched {
			if i > 0 {
				names += ", "
			}
			names += lc.Name
		}
		r := command.Errorf("multiple %s configurations (%s); name one", mode, names)
		return config.LaunchConfig{}, &r
	}
}

func cmdContinue(ctx context.Context, req command.Request, env *command.Env) command.Result {
	session, errResult := env.RequireStopped()
	if errResult != nil {
		return *errResult
	}
	if err := session.Continue(ctx, session.CurrentThread()); err != nil {
		return command.Error(err)
	}
	if env.Stack != nil {
		env.Stack.Invalidate()
	}
	return command.Output("continuing")
}

func cmdInterrupt(ctx context.Context, req command.Request, env *command.Env) command.Result {
	session, errResult := env.RequireSession()
	if errResult != nil {
		return *errResult
	}
	if err := session.Pause(ctx, session.CurrentThread()); err != nil {
		return command.Error(err)
	}
	return command.Output("interrupt requested")
}

func cmdRestart(ctx context.Context, req command.Request, env *command.Env) command.Result {
	session, errResult := env.RequireSession()
	if errResult != nil {
		return *errResult
	}
	if err := session.Restart(ctx); err != nil {
		return command.Error(fmt.Errorf("restart: %w", err))
	}
	if env.Stack != nil {
		env.Stack.Invalidate()
	}
	return command.Output("restarted")
}
