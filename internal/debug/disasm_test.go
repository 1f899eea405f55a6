package debug

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/dshills/stormdbg/internal/dap"
)

func TestDisassembleAround(t *testing.T) {
	session, transport := newTestSession()
	defer session.Close()
	session.stateMu.Lock()
	session.capabilities = &dap.Capabilities{SupportsDisassembleRequest: true}
	session.stateMu.Unlock()

	transport.succeed("disassemble", `{"instructions":[
		{"address":"0x400ffc","instruction":"mov rax, rbx"},
		{"address":"0x401000","instruction":"call 0x400500","symbol":"main.main"},
		{"address":"0x401005","instruction":"ret"}
	]}`)

	disasm := NewDisassembler(session)
	ins, err := disasm.Around(context.Background(), "0x401000", 1, 2)
	if err != nil {
		t.Fatalf("Around failed: %v", err)
	}
	if len(ins) != 3 {
		t.Fatalf("got %d instructions", len(ins))
	}

	req, _ := transport.lastRequest("disassemble")
	var args dap.DisassembleArguments
	if err := json.Unmarshal(req.Arguments, &args); err != nil {
		t.Fatal(err)
	}
	if args.InstructionOffset != -1 {
		t.Errorf("instructionOffset = %d, want -1", args.InstructionOffset)
	}
	if args.InstructionCount != 3 {
		t.Errorf("instructionCount = %d, want 3", args.InstructionCount)
	}
}

func TestDisassembleRequiresCapability(t *testing.T) {
	session, _ := newTestSession()
	defer session.Close()
	session.stateMu.Lock()
	session.capabilities = &dap.Capabilities{}
	session.stateMu.Unlock()

	disasm := NewDisassembler(session)
	if _, err := disasm.Around(context.Background(), "0x401000", 4, 8); err == nil {
		t.Fatal("expected error when disassemble unsupported")
	}
}

func TestDisassembleRequiresStopped(t *testing.T) {
	session, _ := newTestSession()
	defer session.Close()
	session.stateMu.Lock()
	session.state = StateRunning
	session.capabilities = &dap.Capabilities{SupportsDisassembleRequest: true}
	session.stateMu.Unlock()

	disasm := NewDisassembler(session)
	if _, err := disasm.Around(context.Background(), "0x401000", 4, 8); err == nil {
		t.Fatal("expected error while running")
	}
}

func TestFormatListing(t *testing.T) {
	ins := []dap.DisassembledInstruction{
		{Address: "0x400ffc", Instruction: "mov rax, rbx"},
		{Address: "0x401000", Instruction: "call 0x400500", Symbol: "main.main"},
		{Address: "0x401005", Instruction: "ret"},
	}

	out := FormatListing(ins, "0x401000")
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[1], "-> ") {
		t.Errorf("current instruction not marked: %q", lines[1])
	}
	if strings.HasPrefix(lines[0], "-> ") || strings.HasPrefix(lines[2], "-> ") {
		t.Error("wrong instruction marked")
	}
	if !strings.Contains(lines[1], "<main.main>") {
		t.Errorf("symbol missing: %q", lines[1])
	}
}

func TestFormatListingNumericMatch(t *testing.T) {
	ins := []dap.DisassembledInstruction{
		{Address: "0x0000000000401000", Instruction: "nop"},
	}

	// The adapter zero-pads addresses; matching is numeric.
	out := FormatListing(ins, "0x401000")
	if !strings.HasPrefix(out, "-> ") {
		t.Errorf("numeric address match failed:\n%s", out)
	}
}
