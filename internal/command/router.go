package command

import (
	"strings"
	"sync"
)

// Router routes multi-word commands to group handlers. The group is the
// first word of the command (e.g. "info" for "info registers"), giving
// O(1) lookup for grouped commands.
type Router struct {
	mu sync.RWMutex

	// Group handlers (e.g. "info" handles "info *")
	groups map[string]GroupHandler

	// Fallback handler for unmatched commands
	fallback Handler
}

// NewRouter creates a new command router.
func NewRouter() *Router {
	return &Router{
		groups: make(map[string]GroupHandler),
	}
}

// RegisterGroup registers a handler for all subcommands of a group.
func (r *Router) RegisterGroup(group string, h GroupHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups[group] = h
}

// UnregisterGroup removes a group handler.
func (r *Router) UnregisterGroup(group string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.groups, group)
}

// SetFallback sets the fallback handler for unmatched commands.
func (r *Router) SetFallback(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = h
}

// Route finds the appropriate handler for a command name.
// Returns nil if no handler is found.
func (r *Router) Route(name string) Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	group := extractGroup(name)
	if group != "" {
		if h, ok := r.groups[group]; ok {
			if h.CanHandle(name) {
				return NewGroupAdapter(h)
			}
		}
	}

	return r.fallback
}

// GetGroupHandler returns the handler for a group.
// Returns nil if no handler is registered.
func (r *Router) GetGroupHandler(group string) GroupHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.groups[group]
}

// HasGroup returns true if a handler is registered for the group.
func (r *Router) HasGroup(group string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.groups[group]
	return ok
}

// Groups returns all registered group names.
func (r *Router) Groups() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.groups))
	for name := range r.groups {
		names = append(names, name)
	}
	return names
}

// extractGroup extracts the group from a "group sub" command name.
// Returns empty string if the name is a single word.
func extractGroup(name string) string {
	idx := strings.IndexByte(name, ' ')
	if idx < 0 {
		return ""
	}
	return name[:idx]
}

// ExtractSubcommand extracts the subcommand from a "group sub" name.
// For single-word names, returns the full name.
func ExtractSubcommand(name string) string {
	idx := strings.IndexByte(name, ' ')
	if idx < 0 {
		return name
	}
	return name[idx+1:]
}
