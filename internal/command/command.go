// Package command routes debugger commands to handlers and coordinates
// execution.
package command

import (
	"context"
)

// Request is one parsed command invocation.
type Request struct {
	// Name is the resolved command name (first word, alias-expanded).
	Name string

	// Args are the remaining arguments after the command name.
	Args []string

	// Raw is the full input line as typed.
	Raw string
}

// Arg returns the argument at index i, or empty string.
func (r Request) Arg(i int) string {
	if i < 0 || i >= len(r.Args) {
		return ""
	}
	return r.Args[i]
}

// ArgString joins the arguments back into a single string.
func (r Request) ArgString() string {
	out := ""
	for i, a := range r.Args {
		if i > 0 {
			out += " "
		}
		out += a
	}
	return out
}

// Handler processes a specific command or set of commands.
type Handler interface {
	// Run executes the command and returns a result.
	Run(ctx context.Context, req Request, env *Env) Result

	// CanHandle returns true if this handler can process the command.
	CanHandle(name string) bool

	// Priority returns the handler priority (higher = checked first).
	Priority() int
}

// Func is a function adapter for the Handler interface.
type Func struct {
	fn   func(ctx context.Context, req Request, env *Env) Result
	prio int
}

// NewFunc creates a Func handler from a function.
func NewFunc(fn func(ctx context.Context, req Request, env *Env) Result) *Func {
	return &Func{fn: fn}
}

// NewFuncWithPriority creates a Func handler with a specified priority.
func NewFuncWithPriority(fn func(ctx context.Context, req Request, env *Env) Result, priority int) *Func {
	return &Func{fn: fn, prio: priority}
}

// Run implements Handler.Run.
func (f *Func) Run(ctx context.Context, req Request, env *Env) Result {
	if f.fn == nil {
		return Errorf("handler function is nil")
	}
	return f.fn(ctx, req, env)
}

// CanHandle implements Handler.CanHandle.
// Func always returns true; caller must ensure correct routing.
func (f *Func) CanHandle(name string) bool {
	return true
}

// Priority implements Handler.Priority.
func (f *Func) Priority() int {
	return f.prio
}

// Command describes a named command with help metadata.
type Command struct {
	// Name is the primary command name.
	Name string

	// Aliases are alternate names for the command.
	Aliases []string

	// Usage is the one-line usage string, e.g. "break <file:line> [if <cond>]".
	Usage string

	// Summary is a one-line description for help listings.
	Summary string

	// Fn is the command implementation.
	Fn func(ctx context.Context, req Request, env *Env) Result

	// Prio is the handler priority.
	Prio int
}

// Run implements Handler.Run.
func (c *Command) Run(ctx context.Context, req Request, env *Env) Result {
	if c.Fn == nil {
		return Errorf("command %s has no implementation", c.Name)
	}
	return c.Fn(ctx, req, env)
}

// CanHandle implements Handler.CanHandle.
func (c *Command) CanHandle(name string) bool {
	if name == c.Name {
		return true
	}
	for _, alias := range c.Aliases {
		if name == alias {
			return true
		}
	}
	return false
}

// Priority implements Handler.Priority.
func (c *Command) Priority() int {
	return c.Prio
}

// GroupHandler handles all subcommands within a command group.
// A group is the first word of a multi-word command (e.g. "info" in
// "info registers").
type GroupHandler interface {
	// RunSub handles a subcommand within this group.
	RunSub(ctx context.Context, req Request, env *Env) Result

	// CanHandle returns true if this handler can process the command.
	CanHandle(name string) bool

	// Group returns the group prefix (e.g. "info").
	Group() string
}

// groupAdapter adapts GroupHandler to the Handler interface.
type groupAdapter struct {
	h GroupHandler
}

// NewGroupAdapter creates a Handler from a GroupHandler.
func NewGroupAdapter(h GroupHandler) Handler {
	return &groupAdapter{h: h}
}

func (a *groupAdapter) Run(ctx context.Context, req Request, env *Env) Result {
	return a.h.RunSub(ctx, req, env)
}

func (a *groupAdapter) CanHandle(name string) bool {
	return a.h.CanHandle(name)
}

func (a *groupAdapter) Priority() int {
	return 0
}

// Group provides a base implementation for command groups.
type Group struct {
	group string
	subs  map[string]func(ctx context.Context, req Request, env *Env) Result
}

// NewGroup creates a new command group.
func NewGroup(group string) *Group {
	return &Group{
		group: group,
		subs:  make(map[string]func(ctx context.Context, req Request, env *Env) Result),
	}
}

// Register registers a subcommand implementation.
func (g *Group) Register(sub string, fn func(ctx context.Context, req Request, env *Env) Result) {
	g.subs[sub] = fn
}

// Group implements GroupHandler.Group.
func (g *Group) Group() string {
	return g.group
}

// CanHandle implements GroupHandler.CanHandle. The name is the full
// "group sub" form.
func (g *Group) CanHandle(name string) bool {
	_, ok := g.subs[ExtractSubcommand(name)]
	return ok
}

// RunSub implements GroupHandler.RunSub.
func (g *Group) RunSub(ctx context.Context, req Request, env *Env) Result {
	fn, ok := g.subs[ExtractSubcommand(req.Name)]
	if !ok {
		return Errorf("unknown %s subcommand: %s", g.group, ExtractSubcommand(req.Name))
	}
	return fn(ctx, req, env)
}
