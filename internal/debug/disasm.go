package debug

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/stormdbg/internal/dap"
)

// Disassembler fetches instructions around the program counter through
// the adapter's disassemble request.
type Disassembler struct {
	session *Session
}

// NewDisassembler creates a disassembler bound to a session.
func NewDisassembler(session *Session) *Disassembler {
	return &Disassembler{session: session}
}

// Around returns instructions surrounding a memory reference: before
// instructions above it and after instructions at and below it. The
// reference is usually a frame's instructionPointerReference.
func (d *Disassembler) Around(ctx context.Context, memoryRef string, before, after int) ([]dap.DisassembledInstruction, error) {
	if d.session.State() != StateStopped {
		return nil, fmt.Errorf("cannot disassemble: target is %s", d.session.State())
	}
	caps := d.session.Capabilities()
	if caps != nil && !caps.SupportsDisassembleRequest {
		return nil, fmt.Errorf("disassemble not supported by adapter")
	}
	if before < 0 {
		before = 0
	}
	if after < 1 {
		after = 1
	}

	instructions, err := d.session.Client().Disassemble(ctx, dap.DisassembleArguments{
		MemoryReference:   memoryRef,
		InstructionOffset: -before,
		InstructionCount:  before + after,
		ResolveSymbols:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("disassemble at %s: %w", memoryRef, err)
	}
	return instructions, nil
}

// FormatInstruction renders one instruction line. The instruction at
// the current program counter is marked with an arrow.
func FormatInstruction(ins dap.DisassembledInstruction, current bool) string {
	marker := "   "
	if current {
		marker = "-> "
	}

	var b strings.Builder
	b.WriteString(marker)
	b.WriteString(ins.Address)
	if ins.Symbol != "" {
		fmt.Fprintf(&b, " <%s>", ins.Symbol)
	}
	b.WriteString(":  ")
	b.WriteString(ins.Instruction)
	return b.String()
}

// FormatListing renders a disassembly listing, marking the instruction
// whose address matches pcRef.
func FormatListing(instructions []dap.DisassembledInstruction, pcRef string) string {
	pc, pcErr := ParseAddress(pcRef)

	var b strings.Builder
	for _, ins := range instructions {
		current := false
		if ins.Address == pcRef {
			current = true
		} else if pcErr == nil {
			if addr, err := ParseAddress(ins.Address); err == nil && addr == pc {
				current = true
			}
		}
		b.WriteString(FormatInstruction(ins, current))
		b.WriteByte('\n')
	}
	return b.String()
}
