package ai

import (
	"context"
	"fmt"

	"github.com/dshills/stormdbg/internal/debug"
)

// Retriever gathers the debugger context for a prompt.
type Retriever interface {
	// Retrieve collects the current context snapshot.
	Retrieve(ctx context.Context) (Snapshot, error)
}

// RetrieverConfig tunes how much context the debug retriever collects.
type RetrieverConfig struct {
	// Instructions is how many instructions of disassembly to include
	// around the program counter.
	Instructions int

	// StackWords is how many pointer-sized stack words to include.
	StackWords int
}

// DefaultRetrieverConfig returns the default retrieval sizes.
func DefaultRetrieverConfig() RetrieverConfig {
	return RetrieverConfig{
		Instructions: 8,
		StackWords:   8,
	}
}

// DebugRetriever collects context from a live debug session: the
// disassembly around the program counter, the register state, and the
// stack memory at the stack pointer. Sections the adapter cannot
// provide are left empty rather than failing the whole retrieval.
type DebugRetriever struct {
	session   *debug.Session
	stack     *debug.StackNavigator
	registers *debug.RegisterFile
	memory    *debug.MemoryReader
	disasm    *debug.Disassembler
	config    RetrieverConfig
}

// NewDebugRetriever creates a retriever over the session's inspection
// helpers.
func NewDebugRetriever(
	session *debug.Session,
	stack *debug.StackNavigator,
	registers *debug.RegisterFile,
	memory *debug.MemoryReader,
	disasm *debug.Disassembler,
	config RetrieverConfig,
) *DebugRetriever {
	if config.Instructions <= 0 {
		config.Instructions = DefaultRetrieverConfig().Instructions
	}
	if config.StackWords <= 0 {
		config.StackWords = DefaultRetrieverConfig().StackWords
	}
	return &DebugRetriever{
		session:   session,
		stack:     stack,
		registers: registers,
		memory:    memory,
		disasm:    disasm,
		config:    config,
	}
}

// Retrieve implements Retriever.
func (r *DebugRetriever) Retrieve(ctx context.Context) (Snapshot, error) {
	if r.session.State() != debug.StateStopped {
		return Snapshot{}, fmt.Errorf("target is %s; stop it to gather context", r.session.State())
	}

	var snap Snapshot

	frame, _, haveFrame := r.stack.Selected()

	if r.registers != nil {
		frameID := 0
		if haveFrame {
			frameID = frame.ID
		}
		// Best effort: a failed refresh falls back to the last state.
		_ = r.registers.Refresh(ctx, frameID)
		snap.Registers = r.registers.Format()
	}

	if haveFrame && frame.InstructionPointerReference != "" && r.disasm != nil {
		ins, err := r.disasm.Around(ctx, frame.InstructionPointerReference, r.config.Instructions/2, r.config.Instructions/2+1)
		if err == nil {
			snap.Assembly = debug.FormatListing(ins, frame.InstructionPointerReference)
		}
	}

	if r.registers != nil && r.memory != nil {
		if sp, ok := r.registers.SP(); ok {
			info := r.registers.Arch()
			count := r.config.StackWords * info.PointerSize
			block, err := r.memory.Read(ctx, fmt.Sprintf("%#x", sp), 0, count)
			if err == nil {
				snap.Stack = debug.FormatWords(block, info.PointerSize)
			}
		}
	}

	if snap.Empty() {
		return snap, fmt.Errorf("no debugger context available")
	}
	return snap, nil
}
