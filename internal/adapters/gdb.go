package adapters

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/dshills/stormdbg/internal/config"
)

// GDB drives gdb's built-in DAP interpreter (gdb 14+). It is the
// adapter of choice for native binaries, where register, memory, and
// disassembly inspection matter most.
type GDB struct {
	opts Options
}

// NewGDB creates a gdb adapter.
func NewGDB(opts Options) Adapter {
	return &GDB{opts: opts}
}

// Type implements Adapter.
func (a *GDB) Type() Type {
	return TypeGDB
}

// Name implements Adapter.
func (a *GDB) Name() string {
	return "GDB (dap interpreter)"
}

// Command implements Adapter. gdb speaks DAP on stdin/stdout.
func (a *GDB) Command() (*exec.Cmd, error) {
	path, err := findExecutable(a.opts.Path, "gdb", "gdb 14 or later is required")
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(path, "-i", "dap")
	cmd.Env = os.Environ()
	return cmd, nil
}

// LaunchArgs implements Adapter.
func (a *GDB) LaunchArgs(lc config.LaunchConfig) (any, error) {
	if lc.Program == "" {
		return nil, fmt.Errorf("gdb launch needs a program")
	}

	args := map[string]any{
		"program":         lc.Program,
		"stopAtBeginning": lc.StopOnEntry,
	}
	if len(lc.Args) > 0 {
		args["args"] = lc.Args
	}
	if lc.Cwd != "" {
		args["cwd"] = lc.Cwd
	}
	if len(lc.Env) > 0 {
		env := make([]string, 0, len(lc.Env))
		for k, v := range lc.Env {
			env = append(env, k+"="+v)
		}
		args["env"] = env
	}
	return args, nil
}

// AttachArgs implements Adapter.
func (a *GDB) AttachArgs(lc config.LaunchConfig) (any, error) {
	if lc.ProcessID == 0 {
		return nil, fmt.Errorf("gdb attach needs a pid")
	}
	return map[string]any{"pid": lc.ProcessID}, nil
}

// Connection implements Adapter.
func (a *GDB) Connection() Connection {
	return ConnStdio
}

// Address implements Adapter.
func (a *GDB) Address() string {
	return ""
}
