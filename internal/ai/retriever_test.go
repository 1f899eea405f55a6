package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dshills/stormdbg/internal/arch"
	"github.com/dshills/stormdbg/internal/dap"
	"github.com/dshills/stormdbg/internal/debug"
)

// cannedTransport answers DAP requests from a table keyed by command
// and records what was asked.
type cannedTransport struct {
	mu       sync.Mutex
	incoming chan *dap.Message
	requests []string
	replies  map[string]string
	closed   bool
}

func newCannedTransport(replies map[string]string) *cannedTransport {
	return &cannedTransport{
		incoming: make(chan *dap.Message, 16),
		replies:  replies,
	}
}

func (c *cannedTransport) Send(msg *dap.Message) error {
	var req dap.Request
	if err := json.Unmarshal(msg.Content, &req); err != nil {
		return err
	}

	c.mu.Lock()
	c.requests = append(c.requests, req.Command)
	body, ok := c.replies[req.Command]
	c.mu.Unlock()

	var reply string
	if ok {
		reply = fmt.Sprintf(`{"seq":0,"type":"response","request_seq":%d,"success":true,"command":%q,"body":%s}`,
			req.Seq, req.Command, body)
	} else {
		reply = fmt.Sprintf(`{"seq":0,"type":"response","request_seq":%d,"success":false,"command":%q,"message":"unsupported"}`,
			req.Seq, req.Command)
	}
	c.incoming <- &dap.Message{ContentLength: len(reply), Content: []byte(reply)}
	return nil
}

func (c *cannedTransport) Receive() (*dap.Message, error) {
	msg, ok := <-c.incoming
	if !ok {
		return nil, fmt.Errorf("transport closed")
	}
	return msg, nil
}

func (c *cannedTransport) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.incoming)
	}
	return nil
}

func (c *cannedTransport) asked(command string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, name := range c.requests {
		if name == command {
			return true
		}
	}
	return false
}

func TestDebugRetrieverRefreshesRegisters(t *testing.T) {
	transport := newCannedTransport(map[string]string{
		"scopes":    `{"scopes":[{"name":"Registers","variablesReference":100}]}`,
		"variables": `{"variables":[{"name":"rip","value":"0x401000"},{"name":"rax","value":"0x2a"}]}`,
	})
	session := debug.NewSession(dap.NewClient(transport))
	defer session.Close()

	stopped := fmt.Sprintf(`{"seq":0,"type":"event","event":"stopped","body":%s}`,
		`{"reason":"breakpoint","threadId":1}`)
	transport.incoming <- &dap.Message{ContentLength: len(stopped), Content: []byte(stopped)}

	waitCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := session.WaitForStop(waitCtx); err != nil {
		t.Fatalf("WaitForStop: %v", err)
	}

	registers := debug.NewRegisterFile(session, arch.Detect("amd64"))
	retriever := NewDebugRetriever(session, debug.NewStackNavigator(session), registers, nil, nil, RetrieverConfig{})

	snap, err := retriever.Retrieve(context.Background())
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}

	if !transport.asked("scopes") {
		t.Error("retrieval did not re-read the register scope")
	}
	if !strings.Contains(snap.Registers, "0x401000") {
		t.Errorf("registers missing current values:\n%s", snap.Registers)
	}
}
