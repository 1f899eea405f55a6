package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/dshills/stormdbg/internal/adapters"
	"github.com/dshills/stormdbg/internal/command"
	"github.com/dshills/stormdbg/internal/dap"
	"github.com/dshills/stormdbg/internal/debug"
)

// recordingTransport answers every request with an empty success
// response and keeps the requests for inspection.
type recordingTransport struct {
	mu       sync.Mutex
	incoming chan *dap.Message
	requests []dap.Request
	closed   bool
}

func newRecordingTransport() *recordingTransport {
	return &recordingTransport{incoming: make(chan *dap.Message, 16)}
}

func (r *recordingTransport) Send(msg *dap.Message) error {
	var req dap.Request
	if err := json.Unmarshal(msg.Content, &req); err != nil {
		return err
	}
	r.mu.Lock()
	r.requests = append(r.requests, req)
	r.mu.Unlock()

	reply := fmt.Sprintf(`{"seq":0,"type":"response","request_seq":%d,"success":true,"command":%q,"body":{}}`,
		req.Seq, req.Command)
	r.incoming <- &dap.Message{ContentLength: len(reply), Content: []byte(reply)}
	return nil
}

func (r *recordingTransport) Receive() (*dap.Message, error) {
	msg, ok := <-r.incoming
	if !ok {
		return nil, fmt.Errorf("transport closed")
	}
	return msg, nil
}

func (r *recordingTransport) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.closed = true
		close(r.incoming)
	}
	return nil
}

func (r *recordingTransport) request(command string) (dap.Request, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, req := range r.requests {
		if req.Command == command {
			return req, true
		}
	}
	return dap.Request{}, false
}

// newSessionEnv builds a dispatcher environment with a live session over
// a recording transport and the given launch configurations.
func newSessionEnv(t *testing.T, adapter command.LaunchArgBuilder, launches string) (*command.Dispatcher, *command.Env, *recordingTransport) {
	t.Helper()
	d, env := newTestDispatcher(t)

	transport := newRecordingTransport()
	session := debug.NewSession(dap.NewClient(transport))
	t.Cleanup(func() { session.Close() })

	env.Session = session
	env.Adapter = adapter
	if err := env.Config.SetRaw("launch", launches); err != nil {
		t.Fatal(err)
	}
	return d, env, transport
}

func TestRunBuildsAdapterLaunchBody(t *testing.T) {
	d, env, transport := newSessionEnv(t, adapters.NewDelve(adapters.Options{Port: 38697}),
		`[{"name":"main","program":"./cmd/main.go","stopOnEntry":true}]`)

	result := d.Execute(context.Background(), "run", env)
	if !result.IsOK() {
		t.Fatalf("run: %v", result.Error)
	}

	req, ok := transport.request("launch")
	if !ok {
		t.Fatal("no launch request sent")
	}
	if mode := gjson.GetBytes(req.Arguments, "mode").String(); mode != "debug" {
		t.Errorf("launch mode = %q, want debug", mode)
	}
	if program := gjson.GetBytes(req.Arguments, "program").String(); program != "./cmd/main.go" {
		t.Errorf("program = %q", program)
	}
	if !gjson.GetBytes(req.Arguments, "stopOnEntry").Bool() {
		t.Error("stopOnEntry not carried into the launch body")
	}

	if _, ok := transport.request("configurationDone"); !ok {
		t.Error("run did not finish configuration")
	}
}

func TestRunStopAtBeginningForGDB(t *testing.T) {
	d, env, transport := newSessionEnv(t, adapters.NewGDB(adapters.Options{}),
		`[{"name":"native","program":"./a.out","stopOnEntry":true}]`)

	result := d.Execute(context.Background(), "run", env)
	if !result.IsOK() {
		t.Fatalf("run: %v", result.Error)
	}

	req, ok := transport.request("launch")
	if !ok {
		t.Fatal("no launch request sent")
	}
	if !gjson.GetBytes(req.Arguments, "stopAtBeginning").Bool() {
		t.Error("expected stopAtBeginning in the gdb launch body")
	}
	if gjson.GetBytes(req.Arguments, "stopOnEntry").Exists() {
		t.Error("gdb launch body should not carry stopOnEntry")
	}
}

func TestAttachBuildsAdapterAttachBody(t *testing.T) {
	d, env, transport := newSessionEnv(t, adapters.NewDelve(adapters.Options{Port: 38697}),
		`[{"name":"pid","mode":"attach","processId":4242}]`)

	result := d.Execute(context.Background(), "attach", env)
	if !result.IsOK() {
		t.Fatalf("attach: %v", result.Error)
	}

	req, ok := transport.request("attach")
	if !ok {
		t.Fatal("no attach request sent")
	}
	if mode := gjson.GetBytes(req.Arguments, "mode").String(); mode != "local" {
		t.Errorf("attach mode = %q, want local", mode)
	}
	if pid := gjson.GetBytes(req.Arguments, "processId").Int(); pid != 4242 {
		t.Errorf("processId = %d", pid)
	}
}

func TestRunWithoutAdapter(t *testing.T) {
	d, env, _ := newSessionEnv(t, nil, `[{"name":"main","program":"./cmd/main.go"}]`)

	result := d.Execute(context.Background(), "run", env)
	if !result.IsError() {
		t.Fatalf("run without an adapter should error, got %v", result.Status)
	}
}
