package ai

import (
	"fmt"
	"strings"
)

// Snapshot holds the rendered debugger context sections fed to the
// model alongside the question.
type Snapshot struct {
	// Assembly is the disassembly near the current instruction.
	Assembly string

	// Registers is the rendered register state.
	Registers string

	// Stack is the rendered stack memory near the stack pointer.
	Stack string

	// Source is the source listing around the current line, when
	// available.
	Source string
}

// Empty reports whether the snapshot carries no context at all.
func (s Snapshot) Empty() bool {
	return s.Assembly == "" && s.Registers == "" && s.Stack == "" && s.Source == ""
}

// BuildPrompt renders the question and debugger context into the prompt
// sent to the provider.
func BuildPrompt(snap Snapshot, question string) string {
	var b strings.Builder

	b.WriteString("Consider the following context in the debugger:\n\n")

	if snap.Assembly != "" {
		b.WriteString("Here is the assembly near the current instruction:\n\n")
		writeBlock(&b, snap.Assembly)
	}
	if snap.Registers != "" {
		b.WriteString("Here is the current state of the registers:\n\n")
		writeBlock(&b, snap.Registers)
	}
	if snap.Stack != "" {
		b.WriteString("Here is the current state of the stack:\n\n")
		writeBlock(&b, snap.Stack)
	}
	if snap.Source != "" {
		b.WriteString("Here is the source code near the current line:\n\n")
		writeBlock(&b, snap.Source)
	}

	fmt.Fprintf(&b, "Question: %s\n\nAnswer: ", question)
	return b.String()
}

func writeBlock(b *strings.Builder, content string) {
	b.WriteString("```\n")
	b.WriteString(content)
	if !strings.HasSuffix(content, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString("```\n\n")
}
