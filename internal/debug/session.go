// Package debug manages debug sessions and target inspection over the
// Debug Adapter Protocol.
package debug

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sync"

	"github.com/dshills/stormdbg/internal/dap"
)

// State represents the current state of a debug session.
type State int

const (
	// StateInitializing is the initial state before connection.
	StateInitializing State = iota
	// StateConnected is after transport is established.
	StateConnected
	// StateConfiguring is after initialize but before configurationDone.
	StateConfiguring
	// StateRunning is when the debuggee is running.
	StateRunning
	// StateStopped is when the debuggee is suspended (breakpoint, step, exception).
	StateStopped
	// StateTerminated is when the debuggee has exited.
	StateTerminated
	// StateDisconnected is when the debug adapter has disconnected.
	StateDisconnected
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateConnected:
		return "connected"
	case StateConfiguring:
		return "configuring"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateTerminated:
		return "terminated"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Handlers contains callbacks for session events.
type Handlers struct {
	// OnStateChanged is called when the session state changes.
	OnStateChanged func(old, new State)

	// OnStopped is called when the debuggee stops.
	OnStopped func(reason string, threadID int, allStopped bool)

	// OnOutput is called when the debuggee produces output.
	OnOutput func(category, output string)

	// OnBreakpointChanged is called when the adapter reports a breakpoint change.
	OnBreakpointChanged func(reason string, bp dap.Breakpoint)

	// OnThreadChanged is called when threads start or exit.
	OnThreadChanged func(reason string, threadID int)

	// OnTerminated is called when the debuggee terminates.
	OnTerminated func()
}

// Config configures a debug session.
type Config struct {
	// AdapterID is the debug adapter identifier.
	AdapterID string

	// ClientID is this client's identifier.
	ClientID string

	// ClientName is this client's name.
	ClientName string

	// LinesStartAt1 indicates if line numbers start at 1.
	LinesStartAt1 bool

	// ColumnsStartAt1 indicates if column numbers start at 1.
	ColumnsStartAt1 bool

	// PathFormat is the path format ("path" or "uri").
	PathFormat string
}

// DefaultConfig returns a default session configuration.
func DefaultConfig() Config {
	return Config{
		AdapterID:       "generic",
		ClientID:        "stormdbg",
		ClientName:      "stormdbg",
		LinesStartAt1:   true,
		ColumnsStartAt1: true,
		PathFormat:      "path",
	}
}

// Session represents a debug session with a debug adapter.
type Session struct {
	client       *dap.Client
	capabilities *dap.Capabilities

	state         State
	currentThread int
	stopReason    string
	stopWaiters   []chan struct{}
	stateMu       sync.RWMutex

	threads   []dap.Thread
	threadsMu sync.RWMutex

	handlers   Handlers
	handlersMu sync.RWMutex

	// Adapter command, set for stdio transport sessions.
	cmd *exec.Cmd
}

// NewSession creates a new debug session over an existing client.
func NewSession(client *dap.Client) *Session {
	s := &Session{
		client: client,
		state:  StateConnected,
	}

	client.OnTransportError(func(error) {
		s.setState(StateDisconnected)
	})
	client.Subscribe("initialized", func(dap.Event) {
		s.setState(StateConfiguring)
	})
	client.Subscribe("stopped", func(evt dap.Event) {
		var body dap.StoppedEventBody
		if err := json.Unmarshal(evt.Body, &body); err != nil {
			return
		}
		s.onStopped(body)
	})
	client.Subscribe("continued", func(dap.Event) {
		s.setState(StateRunning)
	})
	client.Subscribe("exited", func(dap.Event) {
		s.setState(StateTerminated)
	})
	client.Subscribe("terminated", func(dap.Event) {
		s.setState(StateTerminated)
		s.handlersMu.RLock()
		handler := s.handlers.OnTerminated
		s.handlersMu.RUnlock()
		if handler != nil {
			handler()
		}
	})
	client.Subscribe("thread", func(evt dap.Event) {
		var body dap.ThreadEventBody
		if err := json.Unmarshal(evt.Body, &body); err != nil {
			return
		}
		s.handlersMu.RLock()
		handler := s.handlers.OnThreadChanged
		s.handlersMu.RUnlock()
		if handler != nil {
			handler(body.Reason, body.ThreadID)
		}
	})
	client.Subscribe("output", func(evt dap.Event) {
		var body dap.OutputEventBody
		if err := json.Unmarshal(evt.Body, &body); err != nil {
			return
		}
		s.handlersMu.RLock()
		handler := s.handlers.OnOutput
		s.handlersMu.RUnlock()
		if handler != nil {
			handler(body.Category, body.Output)
		}
	})
	client.Subscribe("breakpoint", func(evt dap.Event) {
		var body dap.BreakpointEventBody
		if err := json.Unmarshal(evt.Body, &body); err != nil {
			return
		}
		s.handlersMu.RLock()
		handler := s.handlers.OnBreakpointChanged
		s.handlersMu.RUnlock()
		if handler != nil {
			handler(body.Reason, body.Breakpoint)
		}
	})
	client.Subscribe("capabilities", func(evt dap.Event) {
		var body dap.CapabilitiesEventBody
		if err := json.Unmarshal(evt.Body, &body); err != nil {
			return
		}
		s.stateMu.Lock()
		s.capabilities = &body.Capabilities
		s.stateMu.Unlock()
	})

	return s
}

// NewStdioSession starts a debug adapter subprocess and connects to it.
func NewStdioSession(command string, args ...string) (*Session, error) {
	cmd := exec.Command(command, args...)
	transport, err := dap.NewStdioTransport(cmd)
	if err != nil {
		return nil, fmt.Errorf("create stdio transport: %w", err)
	}

	session := NewSession(dap.NewClient(transport))
	session.cmd = cmd
	return session, nil
}

// NewSocketSession connects to a debug adapter listening on address.
func NewSocketSession(address string) (*Session, error) {
	transport, err := dap.NewSocketTransport(address)
	if err != nil {
		return nil, fmt.Errorf("create socket transport: %w", err)
	}

	return NewSession(dap.NewClient(transport)), nil
}

// SetHandlers sets the session event handlers.
func (s *Session) SetHandlers(handlers Handlers) {
	s.handlersMu.Lock()
	s.handlers = handlers
	s.handlersMu.Unlock()
}

// Client returns the underlying DAP client.
func (s *Session) Client() *dap.Client {
	return s.client
}

// State returns the current session state.
func (s *Session) State() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// setState updates the session state and notifies handlers.
func (s *Session) setState(state State) {
	s.stateMu.Lock()
	old := s.state
	s.state = state
	var waiters []chan struct{}
	if state == StateStopped || state == StateTerminated || state == StateDisconnected {
		waiters = s.stopWaiters
		s.stopWaiters = nil
	}
	s.stateMu.Unlock()

	for _, ch := range waiters {
		close(ch)
	}

	s.handlersMu.RLock()
	handler := s.handlers.OnStateChanged
	s.handlersMu.RUnlock()

	if handler != nil {
		handler(old, state)
	}
}

// Capabilities returns the debug adapter capabilities.
func (s *Session) Capabilities() *dap.Capabilities {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.capabilities
}

// CurrentThread returns the thread that most recently stopped.
func (s *Session) CurrentThread() int {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.currentThread
}

// StopReason returns the reason for the most recent stop.
func (s *Session) StopReason() string {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.stopReason
}

// WaitForStop blocks until the debuggee suspends, the session ends, or
// ctx expires.
func (s *Session) WaitForStop(ctx context.Context) error {
	s.stateMu.Lock()
	switch s.state {
	case StateStopped:
		s.stateMu.Unlock()
		return nil
	case StateTerminated, StateDisconnected:
		state := s.state
		s.stateMu.Unlock()
		return fmt.Errorf("session is %s", state)
	}
	ch := make(chan struct{})
	s.stopWaiters = append(s.stopWaiters, ch)
	s.stateMu.Unlock()

	select {
	case <-ch:
		if state := s.State(); state != StateStopped {
			return fmt.Errorf("session is %s", state)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Threads returns the cached thread list.
func (s *Session) Threads() []dap.Thread {
	s.threadsMu.RLock()
	defer s.threadsMu.RUnlock()
	return append([]dap.Thread{}, s.threads...)
}

// Initialize performs the DAP initialize handshake.
func (s *Session) Initialize(ctx context.Context, config Config) error {
	args := dap.InitializeRequestArguments{
		ClientID:                 config.ClientID,
		ClientName:               config.ClientName,
		AdapterID:                config.AdapterID,
		LinesStartAt1:            config.LinesStartAt1,
		ColumnsStartAt1:          config.ColumnsStartAt1,
		PathFormat:               config.PathFormat,
		SupportsVariableType:     true,
		SupportsMemoryReferences: true,
	}

	caps, err := s.client.Initialize(ctx, args)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	s.stateMu.Lock()
	s.capabilities = caps
	s.stateMu.Unlock()
	s.setState(StateConfiguring)

	return nil
}

// ConfigurationDone signals that breakpoint configuration is complete.
func (s *Session) ConfigurationDone(ctx context.Context) error {
	if err := s.client.ConfigurationDone(ctx); err != nil {
		return fmt.Errorf("configurationDone: %w", err)
	}

	s.setState(StateRunning)
	return nil
}

// Launch launches the debuggee with adapter-specific arguments.
func (s *Session) Launch(ctx context.Context, launchArgs any) error {
	if err := s.client.Launch(ctx, launchArgs); err != nil {
		return fmt.Errorf("launch: %w", err)
	}
	return nil
}

// Attach attaches to a running process with adapter-specific arguments.
func (s *Session) Attach(ctx context.Context, attachArgs any) error {
	if err := s.client.Attach(ctx, attachArgs); err != nil {
		return fmt.Errorf("attach: %w", err)
	}
	return nil
}

// Disconnect disconnects from the debug adapter.
func (s *Session) Disconnect(ctx context.Context, terminate bool) error {
	args := dap.DisconnectArguments{TerminateDebuggee: terminate}
	if err := s.client.Disconnect(ctx, args); err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}

	s.setState(StateDisconnected)
	return nil
}

// Restart restarts the debuggee if the adapter supports it.
func (s *Session) Restart(ctx context.Context) error {
	caps := s.Capabilities()
	if caps == nil || !caps.SupportsRestartRequest {
		return fmt.Errorf("restart not supported by adapter")
	}
	return s.client.Restart(ctx, dap.RestartArguments{})
}

// Close closes the session and underlying client.
func (s *Session) Close() error {
	s.setState(StateDisconnected)
	return s.client.Close()
}

// Continue resumes execution of a thread.
func (s *Session) Continue(ctx context.Context, threadID int) error {
	if _, err := s.client.Continue(ctx, dap.ContinueArguments{ThreadID: threadID}); err != nil {
		return err
	}

	s.setState(StateRunning)
	return nil
}

// Next performs step over. Granularity may be "statement", "line", or
// "instruction"; empty means adapter default.
func (s *Session) Next(ctx context.Context, threadID int, granularity string) error {
	args := dap.NextArguments{ThreadID: threadID, Granularity: granularity}
	if err := s.client.Next(ctx, args); err != nil {
		return err
	}

	s.setState(StateRunning)
	return nil
}

// StepIn performs step into.
func (s *Session) StepIn(ctx context.Context, threadID int, granularity string) error {
	args := dap.StepInArguments{ThreadID: threadID, Granularity: granularity}
	if err := s.client.StepIn(ctx, args); err != nil {
		return err
	}

	s.setState(StateRunning)
	return nil
}

// StepOut performs step out.
func (s *Session) StepOut(ctx context.Context, threadID int) error {
	if err := s.client.StepOut(ctx, dap.StepOutArguments{ThreadID: threadID}); err != nil {
		return err
	}

	s.setState(StateRunning)
	return nil
}

// Pause interrupts execution of a thread.
func (s *Session) Pause(ctx context.Context, threadID int) error {
	return s.client.Pause(ctx, dap.PauseArguments{ThreadID: threadID})
}

// GetThreads retrieves and caches the current thread list.
func (s *Session) GetThreads(ctx context.Context) ([]dap.Thread, error) {
	threads, err := s.client.Threads(ctx)
	if err != nil {
		return nil, err
	}

	s.threadsMu.Lock()
	s.threads = threads
	s.threadsMu.Unlock()

	return threads, nil
}

// GetStackTrace retrieves a slice of the call stack for a thread.
func (s *Session) GetStackTrace(ctx context.Context, threadID, startFrame, levels int) ([]dap.StackFrame, int, error) {
	result, err := s.client.StackTrace(ctx, dap.StackTraceArguments{
		ThreadID:   threadID,
		StartFrame: startFrame,
		Levels:     levels,
	})
	if err != nil {
		return nil, 0, err
	}

	return result.StackFrames, result.TotalFrames, nil
}

// GetScopes retrieves the variable scopes for a stack frame.
func (s *Session) GetScopes(ctx context.Context, frameID int) ([]dap.Scope, error) {
	return s.client.Scopes(ctx, dap.ScopesArguments{FrameID: frameID})
}

// GetVariables retrieves the children of a variables reference.
func (s *Session) GetVariables(ctx context.Context, variablesRef int) ([]dap.Variable, error) {
	return s.client.Variables(ctx, dap.VariablesArguments{VariablesReference: variablesRef})
}

// SetVariable assigns a new value to a variable.
func (s *Session) SetVariable(ctx context.Context, variablesRef int, name, value string) (string, error) {
	result, err := s.client.SetVariable(ctx, dap.SetVariableArguments{
		VariablesReference: variablesRef,
		Name:               name,
		Value:              value,
	})
	if err != nil {
		return "", err
	}

	return result.Value, nil
}

// Evaluate evaluates an expression in the given frame.
func (s *Session) Evaluate(ctx context.Context, expression string, frameID int, evalContext string) (*dap.EvaluateResponseBody, error) {
	return s.client.Evaluate(ctx, dap.EvaluateArguments{
		Expression: expression,
		FrameID:    frameID,
		Context:    evalContext,
	})
}

// ExceptionInfo retrieves details about the exception that stopped a thread.
func (s *Session) ExceptionInfo(ctx context.Context, threadID int) (*dap.ExceptionInfoResponseBody, error) {
	caps := s.Capabilities()
	if caps == nil || !caps.SupportsExceptionInfoRequest {
		return nil, fmt.Errorf("exception info not supported by adapter")
	}
	return s.client.ExceptionInfo(ctx, dap.ExceptionInfoArguments{ThreadID: threadID})
}

func (s *Session) onStopped(body dap.StoppedEventBody) {
	s.stateMu.Lock()
	s.currentThread = body.ThreadID
	s.stopReason = body.Reason
	s.stateMu.Unlock()

	s.setState(StateStopped)

	s.handlersMu.RLock()
	handler := s.handlers.OnStopped
	s.handlersMu.RUnlock()

	if handler != nil {
		handler(body.Reason, body.ThreadID, body.AllThreadsStopped)
	}
}
