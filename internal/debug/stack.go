package debug

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dshills/stormdbg/internal/dap"
)

// StackNavigator tracks the call stack of the stopped thread and the
// currently selected frame. Frame selection follows the GDB convention:
// frame 0 is the innermost frame, "up" moves toward the caller.
type StackNavigator struct {
	mu       sync.RWMutex
	session  *Session
	frames   []dap.StackFrame
	selected int
	threadID int
}

// NewStackNavigator creates a stack navigator bound to a session.
func NewStackNavigator(session *Session) *StackNavigator {
	return &StackNavigator{session: session}
}

// Refresh fetches the stack trace for a thread and resets the selection
// to the innermost frame. Call this after every stop.
func (n *StackNavigator) Refresh(ctx context.Context, threadID int) error {
	if n.session.State() != StateStopped {
		return fmt.Errorf("cannot read stack: target is %s", n.session.State())
	}

	frames, _, err := n.session.GetStackTrace(ctx, threadID, 0, 0)
	if err != nil {
		return fmt.Errorf("stack trace for thread %d: %w", threadID, err)
	}

	n.mu.Lock()
	n.frames = frames
	n.selected = 0
	n.threadID = threadID
	n.mu.Unlock()

	return nil
}

// Invalidate drops the cached frames. Called when the target resumes.
func (n *StackNavigator) Invalidate() {
	n.mu.Lock()
	n.frames = nil
	n.selected = 0
	n.mu.Unlock()
}

// Frames returns the cached stack frames.
func (n *StackNavigator) Frames() []dap.StackFrame {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.frames
}

// Depth returns the number of cached frames.
func (n *StackNavigator) Depth() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.frames)
}

// ThreadID returns the thread the cached frames belong to.
func (n *StackNavigator) ThreadID() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.threadID
}

// Selected returns the currently selected frame and its index.
func (n *StackNavigator) Selected() (dap.StackFrame, int, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.selected >= len(n.frames) {
		return dap.StackFrame{}, 0, false
	}
	return n.frames[n.selected], n.selected, true
}

// Select sets the selected frame by index.
func (n *StackNavigator) Select(index int) (dap.StackFrame, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if index < 0 || index >= len(n.frames) {
		return dap.StackFrame{}, fmt.Errorf("no frame %d (stack has %d frames)", index, len(n.frames))
	}
	n.selected = index
	return n.frames[index], nil
}

// Up moves the selection toward the outermost frame.
func (n *StackNavigator) Up(count int) (dap.StackFrame, error) {
	n.mu.RLock()
	target := n.selected + count
	n.mu.RUnlock()
	return n.Select(target)
}

// Down moves the selection toward the innermost frame.
func (n *StackNavigator) Down(count int) (dap.StackFrame, error) {
	n.mu.RLock()
	target := n.selected - count
	n.mu.RUnlock()
	return n.Select(target)
}

// FrameLocation returns a human-readable location for a frame, such as
// "main.go:42 in main.main".
func FrameLocation(frame dap.StackFrame) string {
	var b strings.Builder
	if frame.Source != nil && frame.Source.Path != "" {
		fmt.Fprintf(&b, "%s:%d", filepath.Base(frame.Source.Path), frame.Line)
	} else if frame.InstructionPointerReference != "" {
		b.WriteString(frame.InstructionPointerReference)
	} else {
		b.WriteString("<unknown>")
	}
	if frame.Name != "" {
		fmt.Fprintf(&b, " in %s", frame.Name)
	}
	return b.String()
}

// FormatFrame formats a single frame as a backtrace line. The selected
// frame is marked with an arrow.
func FormatFrame(frame dap.StackFrame, index int, selected bool) string {
	marker := "  "
	if selected {
		marker = "->"
	}
	return fmt.Sprintf("%s #%-2d %s", marker, index, FrameLocation(frame))
}

// FormatStackTrace formats the cached frames as a backtrace listing.
func (n *StackNavigator) FormatStackTrace(limit int) string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if len(n.frames) == 0 {
		return "no stack"
	}

	count := len(n.frames)
	if limit > 0 && limit < count {
		count = limit
	}

	var b strings.Builder
	for i := 0; i < count; i++ {
		b.WriteString(FormatFrame(n.frames[i], i, i == n.selected))
		b.WriteByte('\n')
	}
	if count < len(n.frames) {
		fmt.Fprintf(&b, "   ... %d more frames\n", len(n.frames)-count)
	}
	return b.String()
}
