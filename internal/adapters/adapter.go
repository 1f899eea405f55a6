// Package adapters describes the debug adapters stormdbg can drive and
// how to start and connect to each.
package adapters

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dshills/stormdbg/internal/config"
)

// Type identifies a debug adapter.
type Type string

const (
	// TypeDelve is the Go debugger (dlv dap).
	TypeDelve Type = "delve"
	// TypePython is the Python debugger (debugpy).
	TypePython Type = "debugpy"
	// TypeGDB is gdb's DAP interpreter (gdb -i dap).
	TypeGDB Type = "gdb"
)

// Connection says how the client reaches the adapter process.
type Connection string

const (
	// ConnStdio talks DAP over the adapter's stdin/stdout.
	ConnStdio Connection = "stdio"
	// ConnSocket talks DAP over a TCP socket.
	ConnSocket Connection = "socket"
)

// Adapter knows how to start one kind of debug adapter and shape its
// launch and attach request bodies.
type Adapter interface {
	// Type returns the adapter type.
	Type() Type

	// Name returns a human-readable adapter name.
	Name() string

	// Command returns the command that starts the adapter process.
	Command() (*exec.Cmd, error)

	// LaunchArgs builds the DAP launch request body.
	LaunchArgs(lc config.LaunchConfig) (any, error)

	// AttachArgs builds the DAP attach request body.
	AttachArgs(lc config.LaunchConfig) (any, error)

	// Connection returns how to reach the started adapter.
	Connection() Connection

	// Address returns the socket address for socket adapters.
	Address() string
}

// Options tune how an adapter is started.
type Options struct {
	// Path overrides the adapter executable found in PATH.
	Path string

	// Host is the listen host for socket adapters.
	Host string

	// Port is the listen port for socket adapters; zero means stdio
	// where the adapter supports it.
	Port int
}

// Host returns the configured host or the loopback default.
func (o Options) host() string {
	if o.Host != "" {
		return o.Host
	}
	return "127.0.0.1"
}

// Registry maps adapter types to factories.
type Registry struct {
	factories map[Type]func(Options) Adapter
}

// NewRegistry creates a registry with the built-in adapters.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[Type]func(Options) Adapter)}
	r.Register(TypeDelve, NewDelve)
	r.Register(TypePython, NewPython)
	r.Register(TypeGDB, NewGDB)
	return r
}

// Register adds an adapter factory.
func (r *Registry) Register(t Type, factory func(Options) Adapter) {
	r.factories[t] = factory
}

// Create builds an adapter of the given type.
func (r *Registry) Create(t Type, opts Options) (Adapter, error) {
	factory, ok := r.factories[t]
	if !ok {
		return nil, fmt.Errorf("unknown adapter type %q", t)
	}
	return factory(opts), nil
}

// Types returns the registered adapter types.
func (r *Registry) Types() []Type {
	out := make([]Type, 0, len(r.factories))
	for t := range r.factories {
		out = append(out, t)
	}
	return out
}

// Detect picks an adapter type for a program path by extension. Known
// source extensions map to their language debuggers; script extensions
// no adapter covers error out; everything else (a.out, .bin, .elf,
// extensionless binaries) is treated as a native target for gdb.
func Detect(program string) (Type, error) {
	switch filepath.Ext(program) {
	case ".go":
		return TypeDelve, nil
	case ".py":
		return TypePython, nil
	case ".js", ".mjs", ".ts", ".rb", ".sh", ".pl", ".php", ".jar":
		return "", fmt.Errorf("cannot pick an adapter for %q; use the -adapter flag", program)
	default:
		return TypeGDB, nil
	}
}

// findExecutable resolves an adapter binary, honoring an explicit path.
func findExecutable(override, name, installHint string) (string, error) {
	if override != "" {
		return override, nil
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s not found in PATH (%s): %w", name, installHint, err)
	}
	return path, nil
}

// WaitForPort polls until the address accepts TCP connections or the
// context expires.
func WaitForPort(ctx context.Context, host string, port int) error {
	address := net.JoinHostPort(host, strconv.Itoa(port))
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for port %d: %w", port, ctx.Err())
		case <-ticker.C:
			conn, err := net.DialTimeout("tcp", address, 50*time.Millisecond)
			if err == nil {
				conn.Close()
				return nil
			}
		}
	}
}
