package command

import (
	"sort"
	"sync"
)

// Registry manages handler registration by exact command name.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string][]Handler // command name -> handlers (sorted by priority)
	commands map[string]*Command  // primary name -> command metadata
	aliases  map[string]string    // alias -> primary name
}

// NewRegistry creates a new command registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string][]Handler),
		commands: make(map[string]*Command),
		aliases:  make(map[string]string),
	}
}

// Register adds a handler for a command name.
// Multiple handlers can be registered for the same name; they are
// sorted by priority.
func (r *Registry) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.register(name, h)
}

func (r *Registry) register(name string, h Handler) {
	handlers := r.handlers[name]
	handlers = append(handlers, h)

	sort.SliceStable(handlers, func(i, j int) bool {
		return handlers[i].Priority() > handlers[j].Priority()
	})

	r.handlers[name] = handlers
}

// RegisterCommand registers a command under its name and aliases and
// records its metadata for help listings.
func (r *Registry) RegisterCommand(cmd *Command) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.commands[cmd.Name] = cmd
	r.register(cmd.Name, cmd)
	for _, alias := range cmd.Aliases {
		r.aliases[alias] = cmd.Name
		r.register(alias, cmd)
	}
}

// Unregister removes all handlers for a command name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.handlers, name)
	if cmd, ok := r.commands[name]; ok {
		for _, alias := range cmd.Aliases {
			delete(r.aliases, alias)
			delete(r.handlers, alias)
		}
		delete(r.commands, name)
	}
}

// Get returns the highest priority handler for a command.
// Returns nil if no handler is registered.
func (r *Registry) Get(name string) Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handlers := r.handlers[name]
	if len(handlers) == 0 {
		return nil
	}
	return handlers[0]
}

// Resolve expands an alias to its primary command name. Unknown names
// are returned unchanged.
func (r *Registry) Resolve(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if primary, ok := r.aliases[name]; ok {
		return primary
	}
	return name
}

// Lookup returns the command metadata for a name or alias.
func (r *Registry) Lookup(name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if primary, ok := r.aliases[name]; ok {
		name = primary
	}
	cmd, ok := r.commands[name]
	return cmd, ok
}

// Has returns true if a handler is registered for the name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers[name]) > 0
}

// List returns all registered primary command names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Commands returns metadata for all registered commands, sorted by name.
func (r *Registry) Commands() []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cmds := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		cmds = append(cmds, cmd)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	return cmds
}

// Count returns the number of registered primary commands.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Clear removes all registered handlers.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = make(map[string][]Handler)
	r.commands = make(map[string]*Command)
	r.aliases = make(map[string]string)
}
