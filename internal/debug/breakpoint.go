package debug

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/dshills/stormdbg/internal/dap"
)

// BreakpointKind represents the kind of breakpoint.
type BreakpointKind int

const (
	// BreakpointLine is a standard line breakpoint.
	BreakpointLine BreakpointKind = iota
	// BreakpointConditional is a breakpoint with a condition expression.
	BreakpointConditional
	// BreakpointFunction is a function-name breakpoint.
	BreakpointFunction
)

// String returns a string representation of the breakpoint kind.
func (k BreakpointKind) String() string {
	switch k {
	case BreakpointLine:
		return "line"
	case BreakpointConditional:
		return "conditional"
	case BreakpointFunction:
		return "function"
	default:
		return "unknown"
	}
}

// Breakpoint represents a user-defined breakpoint.
type Breakpoint struct {
	// ID is a unique identifier for this breakpoint.
	ID int `json:"id"`

	// Kind is the breakpoint kind.
	Kind BreakpointKind `json:"kind"`

	// Path is the source file path (line breakpoints).
	Path string `json:"path,omitempty"`

	// Line is the requested line number (1-based).
	Line int `json:"line,omitempty"`

	// Condition is the condition expression, if any.
	Condition string `json:"condition,omitempty"`

	// HitCondition is the hit count condition, if any.
	HitCondition string `json:"hitCondition,omitempty"`

	// FunctionName is the function name (function breakpoints).
	FunctionName string `json:"functionName,omitempty"`

	// Enabled indicates if the breakpoint is sent to the adapter.
	Enabled bool `json:"enabled"`

	// Verified indicates if the adapter confirmed the breakpoint.
	Verified bool `json:"-"`

	// ActualLine is the line the adapter actually bound to.
	ActualLine int `json:"-"`

	// Message is any message from the adapter (e.g. why unverified).
	Message string `json:"-"`

	// HitCount is how many times this breakpoint has been hit this session.
	HitCount int `json:"-"`

	// adapterID is the adapter-assigned breakpoint ID, used to match
	// hit notifications.
	adapterID int
}

// Location returns a human-readable breakpoint location.
func (b *Breakpoint) Location() string {
	if b.Kind == BreakpointFunction {
		return b.FunctionName
	}
	line := b.Line
	if b.ActualLine > 0 {
		line = b.ActualLine
	}
	return fmt.Sprintf("%s:%d", filepath.Base(b.Path), line)
}

// BreakpointStore manages breakpoints and keeps the adapter in sync.
type BreakpointStore struct {
	mu      sync.RWMutex
	session *Session
	nextID  int
	byID    map[int]*Breakpoint
}

// NewBreakpointStore creates a breakpoint store bound to a session.
func NewBreakpointStore(session *Session) *BreakpointStore {
	return &BreakpointStore{
		session: session,
		nextID:  1,
		byID:    make(map[int]*Breakpoint),
	}
}

// AddLine adds a line breakpoint and syncs the file with the adapter.
func (m *BreakpointStore) AddLine(ctx context.Context, path string, line int, condition string) (*Breakpoint, error) {
	if condition != "" {
		caps := m.session.Capabilities()
		if caps != nil && !caps.SupportsConditionalBreakpoints {
			return nil, fmt.Errorf("conditional breakpoints not supported by adapter")
		}
	}

	bp := &Breakpoint{
		Kind:      BreakpointLine,
		Path:      path,
		Line:      line,
		Condition: condition,
		Enabled:   true,
	}
	if condition != "" {
		bp.Kind = BreakpointConditional
	}

	m.mu.Lock()
	bp.ID = m.nextID
	m.nextID++
	m.byID[bp.ID] = bp
	m.mu.Unlock()

	if err := m.syncFile(ctx, path); err != nil {
		m.mu.Lock()
		delete(m.byID, bp.ID)
		m.mu.Unlock()
		return nil, err
	}

	return bp, nil
}

// AddFunction adds a function breakpoint and syncs function breakpoints.
func (m *BreakpointStore) AddFunction(ctx context.Context, name, condition string) (*Breakpoint, error) {
	caps := m.session.Capabilities()
	if caps != nil && !caps.SupportsFunctionBreakpoints {
		return nil, fmt.Errorf("function breakpoints not supported by adapter")
	}

	bp := &Breakpoint{
		Kind:         BreakpointFunction,
		FunctionName: name,
		Condition:    condition,
		Enabled:      true,
	}

	m.mu.Lock()
	bp.ID = m.nextID
	m.nextID++
	m.byID[bp.ID] = bp
	m.mu.Unlock()

	if err := m.syncFunctions(ctx); err != nil {
		m.mu.Lock()
		delete(m.byID, bp.ID)
		m.mu.Unlock()
		return nil, err
	}

	return bp, nil
}

// Remove deletes a breakpoint by ID and syncs the adapter.
func (m *BreakpointStore) Remove(ctx context.Context, id int) error {
	m.mu.Lock()
	bp, ok := m.byID[id]
	if ok {
		delete(m.byID, id)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("no breakpoint with id %d", id)
	}

	if bp.Kind == BreakpointFunction {
		return m.syncFunctions(ctx)
	}
	return m.syncFile(ctx, bp.Path)
}

// SetEnabled enables or disables a breakpoint and syncs the adapter.
func (m *BreakpointStore) SetEnabled(ctx context.Context, id int, enabled bool) error {
	m.mu.Lock()
	bp, ok := m.byID[id]
	if ok {
		bp.Enabled = enabled
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("no breakpoint with id %d", id)
	}

	if bp.Kind == BreakpointFunction {
		return m.syncFunctions(ctx)
	}
	return m.syncFile(ctx, bp.Path)
}

// Get returns a breakpoint by ID.
func (m *BreakpointStore) Get(id int) (*Breakpoint, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bp, ok := m.byID[id]
	return bp, ok
}

// All returns all breakpoints sorted by ID.
func (m *BreakpointStore) All() []*Breakpoint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Breakpoint, 0, len(m.byID))
	for _, bp := range m.byID {
		result = append(result, bp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Count returns the number of breakpoints.
func (m *BreakpointStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

// RecordHit increments the hit count of the breakpoints matching the
// adapter-assigned IDs from a stopped event.
func (m *BreakpointStore) RecordHit(adapterIDs []int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, bp := range m.byID {
		for _, id := range adapterIDs {
			if bp.adapterID == id && bp.adapterID != 0 {
				bp.HitCount++
			}
		}
	}
}

// SyncAll pushes every breakpoint to the adapter. Used after launch and
// after a restart, when the adapter starts with a clean slate.
func (m *BreakpointStore) SyncAll(ctx context.Context) error {
	m.mu.RLock()
	paths := make(map[string]bool)
	hasFuncs := false
	for _, bp := range m.byID {
		switch bp.Kind {
		case BreakpointFunction:
			hasFuncs = true
		default:
			paths[bp.Path] = true
		}
	}
	m.mu.RUnlock()

	for path := range paths {
		if err := m.syncFile(ctx, path); err != nil {
			return err
		}
	}
	if hasFuncs {
		return m.syncFunctions(ctx)
	}
	return nil
}

// syncFile replaces the adapter's breakpoints for one source file with
// the enabled breakpoints the store holds for that file.
func (m *BreakpointStore) syncFile(ctx context.Context, path string) error {
	m.mu.RLock()
	var local []*Breakpoint
	var wire []dap.SourceBreakpoint
	for _, bp := range m.byID {
		if bp.Kind == BreakpointFunction || bp.Path != path || !bp.Enabled {
			continue
		}
		local = append(local, bp)
		wire = append(wire, dap.SourceBreakpoint{
			Line:         bp.Line,
			Condition:    bp.Condition,
			HitCondition: bp.HitCondition,
		})
	}
	m.mu.RUnlock()

	sort.Slice(local, func(i, j int) bool { return local[i].Line < local[j].Line })
	sort.Slice(wire, func(i, j int) bool { return wire[i].Line < wire[j].Line })

	result, err := m.session.Client().SetBreakpoints(ctx, dap.SetBreakpointsArguments{
		Source:      dap.Source{Path: path},
		Breakpoints: wire,
	})
	if err != nil {
		return fmt.Errorf("set breakpoints in %s: %w", path, err)
	}

	// The adapter answers positionally.
	m.mu.Lock()
	for i, bp := range local {
		if i < len(result) {
			bp.Verified = result[i].Verified
			bp.ActualLine = result[i].Line
			bp.Message = result[i].Message
			bp.adapterID = result[i].ID
		}
	}
	m.mu.Unlock()

	return nil
}

// syncFunctions replaces the adapter's function breakpoints.
func (m *BreakpointStore) syncFunctions(ctx context.Context) error {
	m.mu.RLock()
	var local []*Breakpoint
	var wire []dap.FunctionBreakpoint
	for _, bp := range m.byID {
		if bp.Kind != BreakpointFunction || !bp.Enabled {
			continue
		}
		local = append(local, bp)
		wire = append(wire, dap.FunctionBreakpoint{
			Name:         bp.FunctionName,
			Condition:    bp.Condition,
			HitCondition: bp.HitCondition,
		})
	}
	m.mu.RUnlock()

	sort.Slice(local, func(i, j int) bool { return local[i].FunctionName < local[j].FunctionName })
	sort.Slice(wire, func(i, j int) bool { return wire[i].Name < wire[j].Name })

	result, err := m.session.Client().SetFunctionBreakpoints(ctx, dap.SetFunctionBreakpointsArguments{
		Breakpoints: wire,
	})
	if err != nil {
		return fmt.Errorf("set function breakpoints: %w", err)
	}

	m.mu.Lock()
	for i, bp := range local {
		if i < len(result) {
			bp.Verified = result[i].Verified
			bp.Message = result[i].Message
			bp.adapterID = result[i].ID
		}
	}
	m.mu.Unlock()

	return nil
}

// Save writes the breakpoint definitions to a JSON file so they survive
// across sessions.
func (m *BreakpointStore) Save(path string) error {
	m.mu.RLock()
	bps := make([]*Breakpoint, 0, len(m.byID))
	for _, bp := range m.byID {
		bps = append(bps, bp)
	}
	m.mu.RUnlock()

	sort.Slice(bps, func(i, j int) bool { return bps[i].ID < bps[j].ID })

	data, err := json.MarshalIndent(bps, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal breakpoints: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write breakpoints: %w", err)
	}
	return nil
}

// Load reads breakpoint definitions from a JSON file. Loaded breakpoints
// are not synced until SyncAll is called.
func (m *BreakpointStore) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read breakpoints: %w", err)
	}

	var bps []*Breakpoint
	if err := json.Unmarshal(data, &bps); err != nil {
		return fmt.Errorf("unmarshal breakpoints: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, bp := range bps {
		bp.ID = m.nextID
		m.nextID++
		m.byID[bp.ID] = bp
	}
	return nil
}
