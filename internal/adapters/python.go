package adapters

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/dshills/stormdbg/internal/config"
)

// Python drives debugpy, the DAP adapter for CPython.
type Python struct {
	opts Options
}

// NewPython creates a debugpy adapter.
func NewPython(opts Options) Adapter {
	return &Python{opts: opts}
}

// Type implements Adapter.
func (a *Python) Type() Type {
	return TypePython
}

// Name implements Adapter.
func (a *Python) Name() string {
	return "debugpy (Python)"
}

// Command implements Adapter. debugpy's standalone adapter listens on a
// socket and waits for the client.
func (a *Python) Command() (*exec.Cmd, error) {
	path, err := findExecutable(a.opts.Path, "python3",
		"install with: pip install debugpy")
	if err != nil {
		return nil, err
	}
	if a.opts.Port == 0 {
		return nil, fmt.Errorf("debugpy needs a listen port; set adapters.debugpy.port")
	}

	cmd := exec.Command(path, "-m", "debugpy.adapter",
		"--host", a.opts.host(), "--port", strconv.Itoa(a.opts.Port))
	cmd.Env = os.Environ()
	return cmd, nil
}

// LaunchArgs implements Adapter.
func (a *Python) LaunchArgs(lc config.LaunchConfig) (any, error) {
	if lc.Program == "" {
		return nil, fmt.Errorf("debugpy launch needs a program")
	}

	args := map[string]any{
		"program":     lc.Program,
		"console":     "internalConsole",
		"stopOnEntry": lc.StopOnEntry,
		"justMyCode":  false,
	}
	if len(lc.Args) > 0 {
		args["args"] = lc.Args
	}
	if lc.Cwd != "" {
		args["cwd"] = lc.Cwd
	}
	if len(lc.Env) > 0 {
		args["env"] = lc.Env
	}
	return args, nil
}

// AttachArgs implements Adapter.
func (a *Python) AttachArgs(lc config.LaunchConfig) (any, error) {
	switch {
	case lc.ProcessID != 0:
		return map[string]any{"processId": lc.ProcessID, "justMyCode": false}, nil
	case lc.Port != 0:
		return map[string]any{
			"connect":    map[string]any{"host": a.opts.host(), "port": lc.Port},
			"justMyCode": false,
		}, nil
	default:
		return nil, fmt.Errorf("debugpy attach needs a processId or port")
	}
}

// Connection implements Adapter.
func (a *Python) Connection() Connection {
	return ConnSocket
}

// Address implements Adapter.
func (a *Python) Address() string {
	return fmt.Sprintf("%s:%d", a.opts.host(), a.opts.Port)
}
