package command

import (
	"io"

	"github.com/dshills/stormdbg/internal/ai"
	"github.com/dshills/stormdbg/internal/config"
	"github.com/dshills/stormdbg/internal/debug"
	"github.com/dshills/stormdbg/internal/logging"
)

// LaunchArgBuilder shapes launch and attach request bodies for the
// active debug adapter. Adapters disagree on body fields (delve wants a
// mode, gdb wants stopAtBeginning), so commands never build bodies
// themselves.
type LaunchArgBuilder interface {
	LaunchArgs(lc config.LaunchConfig) (any, error)
	AttachArgs(lc config.LaunchConfig) (any, error)
}

// Env is the execution environment commands run against. It is built by
// the dispatcher per invocation from the application's current state.
type Env struct {
	// Session is the active debug session, nil when not debugging.
	Session *debug.Session

	// Adapter builds adapter-specific launch and attach bodies, nil
	// before a session is started.
	Adapter LaunchArgBuilder

	// Breakpoints is the breakpoint store.
	Breakpoints *debug.BreakpointStore

	// Stack is the stack navigator.
	Stack *debug.StackNavigator

	// Registers is the register file.
	Registers *debug.RegisterFile

	// Memory is the memory reader.
	Memory *debug.MemoryReader

	// Disasm is the disassembler.
	Disasm *debug.Disassembler

	// Inspector reads scopes and variables.
	Inspector *debug.Inspector

	// Config is the configuration store.
	Config *config.Store

	// Assistant answers questions about the debug context, nil when no
	// provider is configured.
	Assistant *ai.Assistant

	// Log is the logger for command diagnostics.
	Log *logging.Logger

	// Out receives command output as it is produced. Results may carry
	// additional output.
	Out io.Writer

	// Dispatcher is the dispatcher running this command, usable for
	// help listings and nested dispatch.
	Dispatcher *Dispatcher
}

// Logger returns the env logger, falling back to the null logger.
func (e *Env) Logger() *logging.Logger {
	if e.Log == nil {
		return logging.Null
	}
	return e.Log
}

// RequireSession returns the session or an error result when no target
// is being debugged.
func (e *Env) RequireSession() (*debug.Session, *Result) {
	if e.Session == nil {
		r := Errorf("no active debug session; use run or attach first")
		return nil, &r
	}
	return e.Session, nil
}

// RequireStopped returns the session or an error result when the target
// is not suspended.
func (e *Env) RequireStopped() (*debug.Session, *Result) {
	session, errResult := e.RequireSession()
	if errResult != nil {
		return nil, errResult
	}
	if session.State() != debug.StateStopped {
		r := Errorf("target is %s; interrupt it first", session.State())
		return nil, &r
	}
	return session, nil
}
