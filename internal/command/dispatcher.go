package command

import (
	"context"
	"runtime"
	"sync"
	"time"
)

// Config configures the dispatcher.
type Config struct {
	// RecoverFromPanic wraps handler execution with panic recovery.
	RecoverFromPanic bool

	// EnableMetrics enables per-command dispatch metrics.
	EnableMetrics bool

	// DefaultTimeout bounds command execution. Zero means no timeout.
	DefaultTimeout time.Duration
}

// DefaultConfig returns the default dispatcher configuration.
func DefaultConfig() Config {
	return Config{
		RecoverFromPanic: true,
		EnableMetrics:    true,
	}
}

// Dispatcher routes commands to handlers and coordinates execution.
type Dispatcher struct {
	mu sync.RWMutex

	registry *Registry
	router   *Router

	config Config

	metrics *Metrics

	preHooks  []PreDispatchHook
	postHooks []PostDispatchHook
}

// New creates a new dispatcher with the given configuration.
func New(config Config) *Dispatcher {
	d := &Dispatcher{
		registry: NewRegistry(),
		router:   NewRouter(),
		config:   config,
	}

	if config.EnableMetrics {
		d.metrics = NewMetrics()
	}

	return d
}

// NewWithDefaults creates a new dispatcher with default configuration.
func NewWithDefaults() *Dispatcher {
	return New(DefaultConfig())
}

// Execute parses a command line and dispatches it.
func (d *Dispatcher) Execute(ctx context.Context, line string, env *Env) Result {
	req, err := Parse(line, d.registry, d.router)
	if err != nil {
		return Error(err)
	}
	return d.Dispatch(ctx, req, env)
}

// Dispatch executes a parsed request.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request, env *Env) Result {
	startTime := time.Now()

	if env == nil {
		env = &Env{}
	}
	env.Dispatcher = d

	if d.config.DefaultTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.DefaultTimeout)
		defer cancel()
	}

	if !d.runPreHooks(&req, env) {
		return Cancelled("cancelled by hook")
	}

	h := d.router.Route(req.Name)
	if h == nil {
		h = d.registry.Get(req.Name)
	}
	if h == nil {
		return Errorf("undefined command: %q; try help", req.Name)
	}

	var result Result
	if d.config.RecoverFromPanic {
		result = d.runWithRecovery(ctx, h, req, env)
	} else {
		result = h.Run(ctx, req, env)
	}

	d.runPostHooks(&req, env, &result)

	if d.metrics != nil {
		d.metrics.RecordDispatch(req.Name, time.Since(startTime), result.Status)
	}

	return result
}

// runWithRecovery executes a handler with panic recovery.
func (d *Dispatcher) runWithRecovery(ctx context.Context, h Handler, req Request, env *Env) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			stack := make([]byte, 4096)
			n := runtime.Stack(stack, false)

			result = Errorf("command panic for %s: %v\n%s", req.Name, r, string(stack[:n]))

			if d.metrics != nil {
				d.metrics.RecordPanic(req.Name)
			}
		}
	}()

	return h.Run(ctx, req, env)
}

// RegisterHandler registers a handler for an exact command name.
func (d *Dispatcher) RegisterHandler(name string, h Handler) {
	d.registry.Register(name, h)
}

// RegisterFunc registers a handler function for a command name.
func (d *Dispatcher) RegisterFunc(name string, fn func(context.Context, Request, *Env) Result) {
	d.registry.Register(name, NewFunc(fn))
}

// RegisterCommand registers a command with metadata and aliases.
func (d *Dispatcher) RegisterCommand(cmd *Command) {
	d.registry.RegisterCommand(cmd)
}

// RegisterGroup registers a command group handler.
func (d *Dispatcher) RegisterGroup(group string, h GroupHandler) {
	d.router.RegisterGroup(group, h)
}

// UnregisterHandler removes handlers for a command name.
func (d *Dispatcher) UnregisterHandler(name string) {
	d.registry.Unregister(name)
}

// RegisterPreHook registers a pre-dispatch hook.
func (d *Dispatcher) RegisterPreHook(hook PreDispatchHook) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.preHooks = append(d.preHooks, hook)
}

// RegisterPostHook registers a post-dispatch hook.
func (d *Dispatcher) RegisterPostHook(hook PostDispatchHook) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.postHooks = append(d.postHooks, hook)
}

// runPreHooks runs all pre-dispatch hooks.
// Returns false if any hook cancels the command.
func (d *Dispatcher) runPreHooks(req *Request, env *Env) bool {
	d.mu.RLock()
	hooks := make([]PreDispatchHook, len(d.preHooks))
	copy(hooks, d.preHooks)
	d.mu.RUnlock()

	for _, h := range hooks {
		if !h.PreDispatch(req, env) {
			return false
		}
	}
	return true
}

// runPostHooks runs all post-dispatch hooks.
func (d *Dispatcher) runPostHooks(req *Request, env *Env, result *Result) {
	d.mu.RLock()
	hooks := make([]PostDispatchHook, len(d.postHooks))
	copy(hooks, d.postHooks)
	d.mu.RUnlock()

	for _, h := range hooks {
		h.PostDispatch(req, env, result)
	}
}

// Registry returns the command registry.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Router returns the command router.
func (d *Dispatcher) Router() *Router {
	return d.router
}

// Metrics returns the metrics collector (may be nil if disabled).
func (d *Dispatcher) Metrics() *Metrics {
	return d.metrics
}

// Config returns the dispatcher configuration.
func (d *Dispatcher) Config() Config {
	return d.config
}
