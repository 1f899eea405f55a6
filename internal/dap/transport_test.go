package dap

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
)

func TestWriteMessageFraming(t *testing.T) {
	var buf bytes.Buffer
	content := []byte(`{"seq":1,"type":"request","command":"initialize"}`)

	err := writeMessage(&buf, &Message{ContentLength: len(content), Content: content})
	if err != nil {
		t.Fatalf("writeMessage: %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "Content-Length: 49\r\n\r\n") {
		t.Errorf("unexpected framing: %q", out)
	}
	if !strings.HasSuffix(out, string(content)) {
		t.Errorf("content not written: %q", out)
	}
}

func TestWriteMessageContentType(t *testing.T) {
	var buf bytes.Buffer
	content := []byte(`{}`)

	err := writeMessage(&buf, &Message{Content: content, ContentType: "application/vscode-jsonrpc; charset=utf-8"})
	if err != nil {
		t.Fatalf("writeMessage: %v", err)
	}

	if !strings.Contains(buf.String(), "Content-Type: application/vscode-jsonrpc; charset=utf-8\r\n") {
		t.Errorf("missing content-type header: %q", buf.String())
	}
}

func TestReadMessageRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	content := []byte(`{"seq":7,"type":"event","event":"stopped"}`)

	if err := writeMessage(&buf, &Message{Content: content}); err != nil {
		t.Fatalf("writeMessage: %v", err)
	}

	msg, err := readMessage(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("readMessage: %v", err)
	}

	if msg.ContentLength != len(content) {
		t.Errorf("expected content length %d, got %d", len(content), msg.ContentLength)
	}
	if !bytes.Equal(msg.Content, content) {
		t.Errorf("content mismatch: %s", msg.Content)
	}
}

func TestReadMessageMultiple(t *testing.T) {
	var buf bytes.Buffer
	first := []byte(`{"seq":1,"type":"response"}`)
	second := []byte(`{"seq":2,"type":"event","event":"output"}`)

	if err := writeMessage(&buf, &Message{Content: first}); err != nil {
		t.Fatalf("writeMessage first: %v", err)
	}
	if err := writeMessage(&buf, &Message{Content: second}); err != nil {
		t.Fatalf("writeMessage second: %v", err)
	}

	reader := bufio.NewReader(&buf)
	msg1, err := readMessage(reader)
	if err != nil {
		t.Fatalf("readMessage first: %v", err)
	}
	msg2, err := readMessage(reader)
	if err != nil {
		t.Fatalf("readMessage second: %v", err)
	}

	if !bytes.Equal(msg1.Content, first) {
		t.Errorf("first content mismatch: %s", msg1.Content)
	}
	if !bytes.Equal(msg2.Content, second) {
		t.Errorf("second content mismatch: %s", msg2.Content)
	}
}

func TestReadMessageErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing content length", "\r\n"},
		{"invalid header", "NotAHeader\r\n\r\n"},
		{"bad length value", "Content-Length: abc\r\n\r\n"},
		{"negative length", "Content-Length: -5\r\n\r\n"},
		{"oversized length", "Content-Length: 99999999999\r\n\r\n"},
		{"truncated content", "Content-Length: 100\r\n\r\n{}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readMessage(bufio.NewReader(strings.NewReader(tt.input)))
			if err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestRawTransportRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	rwc := nopCloser{&buf}
	transport := NewRawTransport(rwc)

	content := []byte(`{"seq":1,"type":"request","command":"threads"}`)
	if err := transport.Send(&Message{Content: content}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	msg, err := transport.Receive()
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if !bytes.Equal(msg.Content, content) {
		t.Errorf("content mismatch: %s", msg.Content)
	}
}

type nopCloser struct {
	*bytes.Buffer
}

func (nopCloser) Close() error { return nil }
