// Package plugin hosts Lua plugin commands. Plugins are *.lua files
// loaded from a plugin directory; each runs in its own sandboxed
// interpreter and registers commands through the dbg module.
package plugin

import (
	"context"
	"fmt"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// defaultExecTimeout bounds a single plugin script or command call so a
// runaway loop cannot hang the REPL.
const defaultExecTimeout = 5 * time.Second

// State wraps a sandboxed gopher-lua interpreter.
//
// gopher-lua's LState is not goroutine-safe; the mutex serializes all
// access from Go code.
type State struct {
	mu          sync.Mutex
	L           *lua.LState
	closed      bool
	execTimeout time.Duration
}

// activeKey marks a context as running inside this state's interpreter.
type activeKey struct{}

// NewState creates a Lua state with only the safe standard libraries.
// io, os, debug, and package stay closed; plugins get only what the
// dbg module hands them.
func NewState() *State {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	// Base still installs file loaders; take them away.
	for _, name := range []string{"dofile", "loadfile", "require"} {
		L.SetGlobal(name, lua.LNil)
	}

	return &State{L: L, execTimeout: defaultExecTimeout}
}

// SetExecTimeout changes the per-call execution bound. Zero disables it.
func (s *State) SetExecTimeout(d time.Duration) {
	s.mu.Lock()
	s.execTimeout = d
	s.mu.Unlock()
}

// Active returns a context marking this state as currently executing.
// Nested calls carrying that context skip the interpreter lock, which
// the outer call already holds.
func (s *State) Active(ctx context.Context) context.Context {
	return context.WithValue(ctx, activeKey{}, s)
}

func (s *State) isActive(ctx context.Context) bool {
	return ctx != nil && ctx.Value(activeKey{}) == s
}

// limit installs the execution deadline on the interpreter and returns
// its teardown. The caller must hold the lock.
func (s *State) limit() func() {
	if s.execTimeout <= 0 {
		return func() {}
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.execTimeout)
	s.L.SetContext(ctx)
	return func() {
		s.L.RemoveContext()
		cancel()
	}
}

// DoFile runs a Lua file.
func (s *State) DoFile(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("lua state is closed")
	}
	defer s.limit()()
	return s.withRecovery(func() error {
		return s.L.DoFile(path)
	})
}

// DoString runs a chunk of Lua source.
func (s *State) DoString(code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("lua state is closed")
	}
	defer s.limit()()
	return s.withRecovery(func() error {
		return s.L.DoString(code)
	})
}

// Call invokes a Lua function with arguments built under the
// interpreter lock. When ctx marks this state as active (a command
// dispatched from inside a running script), the lock and execution
// deadline are already in place and are not retaken; relocking there
// would deadlock.
func (s *State) Call(ctx context.Context, fn *lua.LFunction, build func(L *lua.LState) []lua.LValue) ([]lua.LValue, error) {
	if !s.isActive(ctx) {
		s.mu.Lock()
		defer s.mu.Unlock()
		defer s.limit()()
	}

	if s.closed {
		return nil, fmt.Errorf("lua state is closed")
	}
	var args []lua.LValue
	if build != nil {
		args = build(s.L)
	}
	return s.call(fn, args)
}

// call runs fn with the lock already held.
func (s *State) call(fn *lua.LFunction, args []lua.LValue) ([]lua.LValue, error) {
	top := s.L.GetTop()
	err := s.withRecovery(func() error {
		return s.L.CallByParam(lua.P{Fn: fn, NRet: lua.MultRet, Protect: true}, args...)
	})
	if err != nil {
		return nil, err
	}

	nret := s.L.GetTop() - top
	if nret <= 0 {
		return nil, nil
	}
	results := make([]lua.LValue, nret)
	for i := 0; i < nret; i++ {
		results[i] = s.L.Get(top + i + 1)
	}
	s.L.Pop(nret)
	return results, nil
}

// RegisterModule installs a table of Go functions as a Lua global.
func (s *State) RegisterModule(name string, funcs map[string]lua.LGFunction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	mod := s.L.SetFuncs(s.L.NewTable(), funcs)
	s.L.SetGlobal(name, mod)
}

// Close releases the interpreter.
func (s *State) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.L.Close()
	s.closed = true
}

func (s *State) withRecovery(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}
