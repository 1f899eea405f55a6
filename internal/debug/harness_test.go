package debug

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dshills/stormdbg/internal/dap"
)

// scriptedTransport is an in-memory transport that answers requests
// from a table of canned handlers, keyed by DAP command.
type scriptedTransport struct {
	mu       sync.Mutex
	incoming chan *dap.Message
	requests []dap.Request
	handlers map[string]func(req dap.Request) json.RawMessage
	closed   bool
}

func newScriptedTransport() *scriptedTransport {
	return &scriptedTransport{
		incoming: make(chan *dap.Message, 16),
		handlers: make(map[string]func(req dap.Request) json.RawMessage),
	}
}

func (s *scriptedTransport) handle(command string, fn func(req dap.Request) json.RawMessage) {
	s.mu.Lock()
	s.handlers[command] = fn
	s.mu.Unlock()
}

// succeed registers a handler returning a success response with body.
func (s *scriptedTransport) succeed(command, body string) {
	s.handle(command, func(req dap.Request) json.RawMessage {
		return successResponse(req, body)
	})
}

func (s *scriptedTransport) Send(msg *dap.Message) error {
	var req dap.Request
	if err := json.Unmarshal(msg.Content, &req); err != nil {
		return err
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	fn := s.handlers[req.Command]
	s.mu.Unlock()

	if fn == nil {
		return fmt.Errorf("no handler for command %q", req.Command)
	}
	reply := fn(req)
	s.incoming <- &dap.Message{ContentLength: len(reply), Content: reply}
	return nil
}

func (s *scriptedTransport) Receive() (*dap.Message, error) {
	msg, ok := <-s.incoming
	if !ok {
		return nil, fmt.Errorf("transport closed")
	}
	return msg, nil
}

func (s *scriptedTransport) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.incoming)
	}
	return nil
}

// emit injects an event as if the adapter sent it.
func (s *scriptedTransport) emit(event, body string) {
	content := fmt.Sprintf(`{"seq":0,"type":"event","event":%q,"body":%s}`, event, body)
	s.incoming <- &dap.Message{ContentLength: len(content), Content: []byte(content)}
}

// lastRequest returns the most recent request matching command.
func (s *scriptedTransport) lastRequest(command string) (dap.Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.requests) - 1; i >= 0; i-- {
		if s.requests[i].Command == command {
			return s.requests[i], true
		}
	}
	return dap.Request{}, false
}

func successResponse(req dap.Request, body string) json.RawMessage {
	resp := fmt.Sprintf(`{"seq":0,"type":"response","request_seq":%d,"success":true,"command":%q,"body":%s}`,
		req.Seq, req.Command, body)
	return json.RawMessage(resp)
}

func errorResponse(req dap.Request, message string) json.RawMessage {
	resp := fmt.Sprintf(`{"seq":0,"type":"response","request_seq":%d,"success":false,"command":%q,"message":%q}`,
		req.Seq, req.Command, message)
	return json.RawMessage(resp)
}

// newTestSession returns a session over a scripted transport, already
// moved into the stopped state so inspection calls are allowed.
func newTestSession() (*Session, *scriptedTransport) {
	transport := newScriptedTransport()
	session := NewSession(dap.NewClient(transport))
	session.stateMu.Lock()
	session.state = StateStopped
	session.stateMu.Unlock()
	return session, transport
}
