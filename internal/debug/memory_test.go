package debug

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"testing"

	"github.com/dshills/stormdbg/internal/dap"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		input string
		want  uint64
		ok    bool
	}{
		{"0x401000", 0x401000, true},
		{"0X7fff", 0x7fff, true},
		{"4096", 4096, true},
		{" 0x10 ", 0x10, true},
		{"", 0, false},
		{"main.main", 0, false},
	}

	for _, tt := range tests {
		got, err := ParseAddress(tt.input)
		if (err == nil) != tt.ok {
			t.Errorf("ParseAddress(%q) err = %v, ok = %v", tt.input, err, tt.ok)
			continue
		}
		if tt.ok && got != tt.want {
			t.Errorf("ParseAddress(%q) = %#x, want %#x", tt.input, got, tt.want)
		}
	}
}

func TestMemoryRead(t *testing.T) {
	session, transport := newTestSession()
	defer session.Close()
	session.stateMu.Lock()
	session.capabilities = &dap.Capabilities{SupportsReadMemoryRequest: true}
	session.stateMu.Unlock()

	data := []byte("hello, world")
	body := fmt.Sprintf(`{"address":"0x401000","data":%q}`, base64.StdEncoding.EncodeToString(data))
	transport.succeed("readMemory", body)

	mem := NewMemoryReader(session)
	block, err := mem.Read(context.Background(), "0x401000", 0, len(data))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if block.Address != 0x401000 {
		t.Errorf("address = %#x", block.Address)
	}
	if !bytes.Equal(block.Data, data) {
		t.Errorf("data = %q", block.Data)
	}
}

func TestMemoryReadRequiresCapability(t *testing.T) {
	session, _ := newTestSession()
	defer session.Close()
	session.stateMu.Lock()
	session.capabilities = &dap.Capabilities{}
	session.stateMu.Unlock()

	mem := NewMemoryReader(session)
	if _, err := mem.Read(context.Background(), "0x401000", 0, 16); err == nil {
		t.Fatal("expected error when readMemory unsupported")
	}
}

func TestMemoryWrite(t *testing.T) {
	session, transport := newTestSession()
	defer session.Close()
	session.stateMu.Lock()
	session.capabilities = &dap.Capabilities{SupportsWriteMemoryRequest: true}
	session.stateMu.Unlock()

	transport.succeed("writeMemory", `{"bytesWritten":4}`)

	mem := NewMemoryReader(session)
	n, err := mem.Write(context.Background(), "0x401000", 0, []byte{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if n != 4 {
		t.Errorf("bytes written = %d", n)
	}

	req, _ := transport.lastRequest("writeMemory")
	if !strings.Contains(string(req.Arguments), base64.StdEncoding.EncodeToString([]byte{1, 2, 3, 4})) {
		t.Errorf("data not base64-encoded: %s", req.Arguments)
	}
}

func TestHexDump(t *testing.T) {
	block := &MemoryBlock{
		Address: 0x1000,
		Data:    append([]byte("hello, world....."), 0x00, 0x7f, 0xff),
	}

	out := HexDump(block)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "0x0000000000001000") {
		t.Errorf("line 0 = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "0x0000000000001010") {
		t.Errorf("line 1 = %q", lines[1])
	}
	if !strings.Contains(lines[0], "|hello, world....|") {
		t.Errorf("ascii gutter wrong: %q", lines[0])
	}
	// Non-printable bytes render as dots.
	if !strings.Contains(lines[1], "|....|") {
		t.Errorf("non-printables not masked: %q", lines[1])
	}
}

func TestHexDumpUnreadable(t *testing.T) {
	block := &MemoryBlock{Address: 0x1000, Data: []byte{1}, Unreadable: 15}
	if !strings.Contains(HexDump(block), "(15 bytes unreadable)") {
		t.Error("unreadable byte count missing")
	}
}

func TestFormatWords(t *testing.T) {
	block := &MemoryBlock{
		Address: 0x7fff0000,
		Data:    []byte{0xef, 0xbe, 0xad, 0xde, 0x00, 0x00, 0x00, 0x00},
	}

	out := FormatWords(block, 8)
	if !strings.Contains(out, "0x00000000deadbeef") {
		t.Errorf("little-endian word wrong:\n%s", out)
	}

	out32 := FormatWords(block, 4)
	lines := strings.Split(strings.TrimRight(out32, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines for 4-byte words", len(lines))
	}
	if !strings.Contains(lines[0], "0xdeadbeef") {
		t.Errorf("word 0 = %q", lines[0])
	}
}
