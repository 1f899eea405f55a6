package command

// PreDispatchHook is called before a command is dispatched.
// Returning false cancels the dispatch.
type PreDispatchHook interface {
	// PreDispatch is called before dispatch.
	// It may modify the request or environment.
	// Returns false to cancel the dispatch.
	PreDispatch(req *Request, env *Env) bool
}

// PostDispatchHook is called after a command is dispatched.
type PostDispatchHook interface {
	// PostDispatch is called after dispatch completes.
	// It may inspect or modify the result.
	PostDispatch(req *Request, env *Env, result *Result)
}

// PreDispatchFunc is a function adapter for PreDispatchHook.
type PreDispatchFunc func(req *Request, env *Env) bool

// PreDispatch implements PreDispatchHook.
func (f PreDispatchFunc) PreDispatch(req *Request, env *Env) bool {
	return f(req, env)
}

// PostDispatchFunc is a function adapter for PostDispatchHook.
type PostDispatchFunc func(req *Request, env *Env, result *Result)

// PostDispatch implements PostDispatchHook.
func (f PostDispatchFunc) PostDispatch(req *Request, env *Env, result *Result) {
	f(req, env, result)
}

// LoggingHook logs every dispatch through the env logger.
type LoggingHook struct{}

// PreDispatch logs the command being dispatched.
func (h *LoggingHook) PreDispatch(req *Request, env *Env) bool {
	env.Logger().Debug("dispatching command: %s (args=%d)", req.Name, len(req.Args))
	return true
}

// PostDispatch logs the dispatch result.
func (h *LoggingHook) PostDispatch(req *Request, env *Env, result *Result) {
	if result.IsError() {
		env.Logger().Warn("command %s failed: %v", req.Name, result.Error)
		return
	}
	env.Logger().Debug("command complete: %s -> %s", req.Name, result.Status)
}
