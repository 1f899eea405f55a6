package adapters

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/dshills/stormdbg/internal/config"
)

// Delve drives the Go debugger through dlv's native DAP server.
type Delve struct {
	opts Options
}

// NewDelve creates a delve adapter.
func NewDelve(opts Options) Adapter {
	return &Delve{opts: opts}
}

// Type implements Adapter.
func (a *Delve) Type() Type {
	return TypeDelve
}

// Name implements Adapter.
func (a *Delve) Name() string {
	return "Delve (dlv dap)"
}

// Command implements Adapter. dlv dap always listens on a socket.
func (a *Delve) Command() (*exec.Cmd, error) {
	path, err := findExecutable(a.opts.Path, "dlv",
		"install with: go install github.com/go-delve/delve/cmd/dlv@latest")
	if err != nil {
		return nil, err
	}
	if a.opts.Port == 0 {
		return nil, fmt.Errorf("dlv dap needs a listen port; set adapters.delve.port")
	}

	cmd := exec.Command(path, "dap", "--listen", a.Address())
	cmd.Env = os.Environ()
	return cmd, nil
}

// LaunchArgs implements Adapter.
func (a *Delve) LaunchArgs(lc config.LaunchConfig) (any, error) {
	if lc.Program == "" {
		return nil, fmt.Errorf("delve launch needs a program")
	}

	args := map[string]any{
		"mode":        "debug",
		"program":     lc.Program,
		"stopOnEntry": lc.StopOnEntry,
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
func (a *Delve) AttachArgs(lc config.LaunchConfig) (any, error) {
	if lc.ProcessID == 0 {
		return nil, fmt.Errorf("delve attach needs a processId")
	}
	return map[string]any{
		"mode":      "local",
		"processId": lc.ProcessID,
	}, nil
}

// Connection implements Adapter.
func (a *Delve) Connection() Connection {
	return ConnSocket
}

// Address implements Adapter.
func (a *Delve) Address() string {
	return fmt.Sprintf("%s:%d", a.opts.host(), a.opts.Port)
}
