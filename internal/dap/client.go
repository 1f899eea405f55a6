package dap

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tidwall/gjson"
)

// Client is a DAP client that communicates with a debug adapter.
//
// A single receive goroutine owns the transport read side. Responses are
// matched to pending requests by request_seq; events are fanned out to
// subscribed handlers without blocking the receive loop.
type Client struct {
	transport Transport
	seq       int64

	pending   map[int]*pendingRequest
	pendingMu sync.Mutex

	subs    map[string][]func(Event)
	anySub  []func(Event)
	errSubs []func(error)
	subsMu  sync.RWMutex

	done      chan struct{}
	closeOnce sync.Once

	err   error
	errMu sync.RWMutex
}

// pendingRequest tracks a request awaiting its response.
type pendingRequest struct {
	done      chan struct{}
	closeOnce sync.Once
	response  *Response
	err       error
}

func (p *pendingRequest) resolve() {
	p.closeOnce.Do(func() {
		close(p.done)
	})
}

// NewClient creates a new DAP client and starts its receive loop.
func NewClient(transport Transport) *Client {
	c := &Client{
		transport: transport,
		pending:   make(map[int]*pendingRequest),
		subs:      make(map[string][]func(Event)),
		done:      make(chan struct{}),
	}
	go c.receiveLoop()
	return c
}

// Close closes the client and underlying transport.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	return c.transport.Close()
}

// Err returns the error that terminated the receive loop, if any.
func (c *Client) Err() error {
	c.errMu.RLock()
	defer c.errMu.RUnlock()
	return c.err
}

// Subscribe registers a handler for a named event ("stopped", "output", ...).
func (c *Client) Subscribe(event string, fn func(Event)) {
	c.subsMu.Lock()
	c.subs[event] = append(c.subs[event], fn)
	c.subsMu.Unlock()
}

// SubscribeAny registers a handler invoked for every event.
func (c *Client) SubscribeAny(fn func(Event)) {
	c.subsMu.Lock()
	c.anySub = append(c.anySub, fn)
	c.subsMu.Unlock()
}

// OnTransportError registers a handler invoked once when the receive
// loop dies on a transport error.
func (c *Client) OnTransportError(fn func(error)) {
	c.subsMu.Lock()
	c.errSubs = append(c.errSubs, fn)
	c.subsMu.Unlock()
}

// receiveLoop continuously receives messages from the transport.
func (c *Client) receiveLoop() {
	for {
		msg, err := c.transport.Receive()
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}

			c.errMu.Lock()
			c.err = err
			c.errMu.Unlock()

			// Fail all in-flight requests.
			c.pendingMu.Lock()
			for _, req := range c.pending {
				req.err = err
				req.resolve()
			}
			c.pending = make(map[int]*pendingRequest)
			c.pendingMu.Unlock()

			c.subsMu.RLock()
			errSubs := append([]func(error){}, c.errSubs...)
			c.subsMu.RUnlock()
			for _, fn := range errSubs {
				fn(err)
			}
			return
		}

		select {
		case <-c.done:
			return
		default:
		}

		// Sniff the message kind without a full decode.
		switch gjson.GetBytes(msg.Content, "type").String() {
		case "response":
			c.handleResponse(msg.Content)
		case "event":
			c.handleEvent(msg.Content)
		}
	}
}

func (c *Client) handleResponse(content []byte) {
	var resp Response
	if err := json.Unmarshal(content, &resp); err != nil {
		return
	}

	c.pendingMu.Lock()
	req, ok := c.pending[resp.RequestSeq]
	if ok {
		delete(c.pending, resp.RequestSeq)
	}
	c.pendingMu.Unlock()

	if ok {
		req.response = &resp
		req.resolve()
	}
}

func (c *Client) handleEvent(content []byte) {
	var evt Event
	if err := json.Unmarshal(content, &evt); err != nil {
		return
	}

	c.subsMu.RLock()
	handlers := append([]func(Event){}, c.subs[evt.Event]...)
	any := append([]func(Event){}, c.anySub...)
	c.subsMu.RUnlock()

	for _, fn := range handlers {
		fn(evt)
	}
	for _, fn := range any {
		fn(evt)
	}
}

// sendRequest sends a request and waits for the matching response.
func (c *Client) sendRequest(ctx context.Context, command string, args any) (*Response, error) {
	seq := int(atomic.AddInt64(&c.seq, 1))

	var argsJSON json.RawMessage
	if args != nil {
		var err error
		argsJSON, err = json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("marshal arguments: %w", err)
		}
	}

	req := Request{
		ProtocolMessage: ProtocolMessage{
			Seq:  seq,
			Type: "request",
		},
		Command:   command,
		Arguments: argsJSON,
	}

	content, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	pending := &pendingRequest{done: make(chan struct{})}

	c.pendingMu.Lock()
	c.pending[seq] = pending
	c.pendingMu.Unlock()

	if err := c.transport.Send(&Message{ContentLength: len(content), Content: content}); err != nil {
		c.pendingMu.Lock()
		delete(c.pending, seq)
		c.pendingMu.Unlock()
		return nil, fmt.Errorf("send request: %w", err)
	}

	select {
	case <-ctx.Done():
		c.pendingMu.Lock()
		delete(c.pending, seq)
		c.pendingMu.Unlock()
		return nil, ctx.Err()
	case <-pending.done:
		if pending.err != nil {
			return nil, pending.err
		}
		return pending.response, nil
	}
}

// call sends a request and decodes the response body into out (if non-nil).
func (c *Client) call(ctx context.Context, command string, args, out any) error {
	resp, err := c.sendRequest(ctx, command, args)
	if err != nil {
		return err
	}

	if !resp.Success {
		if msg := gjson.GetBytes(resp.Body, "error.format").String(); msg != "" {
			return fmt.Errorf("%s failed: %s", command, msg)
		}
		return fmt.Errorf("%s failed: %s", command, resp.Message)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("unmarshal %s response: %w", command, err)
	}
	return nil
}

// Initialize sends the initialize request and returns adapter capabilities.
func (c *Client) Initialize(ctx context.Context, args InitializeRequestArguments) (*Capabilities, error) {
	var caps Capabilities
	if err := c.call(ctx, "initialize", args, &caps); err != nil {
		return nil, err
	}
	return &caps, nil
}

// ConfigurationDone signals that breakpoint configuration is finished.
func (c *Client) ConfigurationDone(ctx context.Context) error {
	return c.call(ctx, "configurationDone", nil, nil)
}

// Launch sends the launch request. Arguments are adapter-specific.
func (c *Client) Launch(ctx context.Context, args any) error {
	return c.call(ctx, "launch", args, nil)
}

// Attach sends the attach request. Arguments are adapter-specific.
func (c *Client) Attach(ctx context.Context, args any) error {
	return c.call(ctx, "attach", args, nil)
}

// Disconnect sends the disconnect request.
func (c *Client) Disconnect(ctx context.Context, args DisconnectArguments) error {
	return c.call(ctx, "disconnect", args, nil)
}

// Terminate sends the terminate request.
func (c *Client) Terminate(ctx context.Context, args TerminateArguments) error {
	return c.call(ctx, "terminate", args, nil)
}

// Restart sends the restart request.
func (c *Client) Restart(ctx context.Context, args RestartArguments) error {
	return c.call(ctx, "restart", args, nil)
}

// SetBreakpoints replaces the breakpoints for one source file.
func (c *Client) SetBreakpoints(ctx context.Context, args SetBreakpointsArguments) ([]Breakpoint, error) {
	var body SetBreakpointsResponseBody
	if err := c.call(ctx, "setBreakpoints", args, &body); err != nil {
		return nil, err
	}
	return body.Breakpoints, nil
}

// SetFunctionBreakpoints replaces all function breakpoints.
func (c *Client) SetFunctionBreakpoints(ctx context.Context, args SetFunctionBreakpointsArguments) ([]Breakpoint, error) {
	var body SetBreakpointsResponseBody
	if err := c.call(ctx, "setFunctionBreakpoints", args, &body); err != nil {
		return nil, err
	}
	return body.Breakpoints, nil
}

// SetExceptionBreakpoints configures exception breakpoint filters.
func (c *Client) SetExceptionBreakpoints(ctx context.Context, args SetExceptionBreakpointsArguments) error {
	return c.call(ctx, "setExceptionBreakpoints", args, nil)
}

// BreakpointLocations lists possible breakpoint positions in a source range.
func (c *Client) BreakpointLocations(ctx context.Context, args BreakpointLocationsArguments) ([]BreakpointLocation, error) {
	var body BreakpointLocationsResponseBody
	if err := c.call(ctx, "breakpointLocations", args, &body); err != nil {
		return nil, err
	}
	return body.Breakpoints, nil
}

// Continue resumes execution.
func (c *Client) Continue(ctx context.Context, args ContinueArguments) (*ContinueResponseBody, error) {
	var body ContinueResponseBody
	if err := c.call(ctx, "continue", args, &body); err != nil {
		return nil, err
	}
	return &body, nil
}

// Next performs step over.
func (c *Client) Next(ctx context.Context, args NextArguments) error {
	return c.call(ctx, "next", args, nil)
}

// StepIn performs step into.
func (c *Client) StepIn(ctx context.Context, args StepInArguments) error {
	return c.call(ctx, "stepIn", args, nil)
}

// StepOut performs step out.
func (c *Client) StepOut(ctx context.Context, args StepOutArguments) error {
	return c.call(ctx, "stepOut", args, nil)
}

// Pause interrupts execution of a thread.
func (c *Client) Pause(ctx context.Context, args PauseArguments) error {
	return c.call(ctx, "pause", args, nil)
}

// Threads lists the debuggee's threads.
func (c *Client) Threads(ctx context.Context) ([]Thread, error) {
	var body ThreadsResponseBody
	if err := c.call(ctx, "threads", nil, &body); err != nil {
		return nil, err
	}
	return body.Threads, nil
}

// StackTrace retrieves a slice of a thread's call stack.
func (c *Client) StackTrace(ctx context.Context, args StackTraceArguments) (*StackTraceResponseBody, error) {
	var body StackTraceResponseBody
	if err := c.call(ctx, "stackTrace", args, &body); err != nil {
		return nil, err
	}
	return &body, nil
}

// Scopes lists the variable scopes of a stack frame.
func (c *Client) Scopes(ctx context.Context, args ScopesArguments) ([]Scope, error) {
	var body ScopesResponseBody
	if err := c.call(ctx, "scopes", args, &body); err != nil {
		return nil, err
	}
	return body.Scopes, nil
}

// Variables lists the children of a variables reference.
func (c *Client) Variables(ctx context.Context, args VariablesArguments) ([]Variable, error) {
	var body VariablesResponseBody
	if err := c.call(ctx, "variables", args, &body); err != nil {
		return nil, err
	}
	return body.Variables, nil
}

// SetVariable assigns a new value to a variable.
func (c *Client) SetVariable(ctx context.Context, args SetVariableArguments) (*SetVariableResponseBody, error) {
	var body SetVariableResponseBody
	if err := c.call(ctx, "setVariable", args, &body); err != nil {
		return nil, err
	}
	return &body, nil
}

// Evaluate evaluates an expression in a frame context.
func (c *Client) Evaluate(ctx context.Context, args EvaluateArguments) (*EvaluateResponseBody, error) {
	var body EvaluateResponseBody
	if err := c.call(ctx, "evaluate", args, &body); err != nil {
		return nil, err
	}
	return &body, nil
}

// Source retrieves source content for a source reference.
func (c *Client) Source(ctx context.Context, args SourceArguments) (*SourceResponseBody, error) {
	var body SourceResponseBody
	if err := c.call(ctx, "source", args, &body); err != nil {
		return nil, err
	}
	return &body, nil
}

// ReadMemory reads bytes from the debuggee's memory.
func (c *Client) ReadMemory(ctx context.Context, args ReadMemoryArguments) (*ReadMemoryResponseBody, error) {
	var body ReadMemoryResponseBody
	if err := c.call(ctx, "readMemory", args, &body); err != nil {
		return nil, err
	}
	return &body, nil
}

// WriteMemory writes bytes into the debuggee's memory.
func (c *Client) WriteMemory(ctx context.Context, args WriteMemoryArguments) (*WriteMemoryResponseBody, error) {
	var body WriteMemoryResponseBody
	if err := c.call(ctx, "writeMemory", args, &body); err != nil {
		return nil, err
	}
	return &body, nil
}

// Disassemble disassembles instructions around a memory reference.
func (c *Client) Disassemble(ctx context.Context, args DisassembleArguments) ([]DisassembledInstruction, error) {
	var body DisassembleResponseBody
	if err := c.call(ctx, "disassemble", args, &body); err != nil {
		return nil, err
	}
	return body.Instructions, nil
}

// ExceptionInfo retrieves details about the exception that stopped a thread.
func (c *Client) ExceptionInfo(ctx context.Context, args ExceptionInfoArguments) (*ExceptionInfoResponseBody, error) {
	var body ExceptionInfoResponseBody
	if err := c.call(ctx, "exceptionInfo", args, &body); err != nil {
		return nil, err
	}
	return &body, nil
}

// LoadedSources lists all sources the adapter knows about.
func (c *Client) LoadedSources(ctx context.Context) ([]Source, error) {
	var body LoadedSourcesResponseBody
	if err := c.call(ctx, "loadedSources", nil, &body); err != nil {
		return nil, err
	}
	return body.Sources, nil
}
