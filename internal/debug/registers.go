package debug

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/dshills/stormdbg/internal/arch"
)

// Register is one CPU register with its raw adapter value.
type Register struct {
	// Name is the normalized register name, lower case, no sigil.
	Name string

	// Value is the value string exactly as the adapter reported it.
	Value string

	// Numeric is the parsed numeric value, valid when HasNumeric.
	Numeric uint64

	// HasNumeric indicates Value parsed as an integer.
	HasNumeric bool

	// Changed indicates the value differs from the previous snapshot.
	Changed bool
}

// RegisterFile reads CPU registers through the adapter's register scope
// and tracks which values changed between stops.
type RegisterFile struct {
	mu        sync.RWMutex
	session   *Session
	inspector *Inspector
	info      arch.Info
	current   []Register
	previous  map[string]uint64
}

// NewRegisterFile creates a register file for the given architecture.
func NewRegisterFile(session *Session, info arch.Info) *RegisterFile {
	return &RegisterFile{
		session:   session,
		inspector: NewInspector(session),
		info:      info,
		previous:  make(map[string]uint64),
	}
}

// Arch returns the architecture description the file was built with.
func (r *RegisterFile) Arch() arch.Info {
	return r.info
}

// Refresh reads the registers scope of a frame and rotates the change
// tracking snapshot. Adapters expose registers as a scope named
// "Registers" (delve, debugpy) or hinted "registers".
func (r *RegisterFile) Refresh(ctx context.Context, frameID int) error {
	if r.session.State() != StateStopped {
		return fmt.Errorf("cannot read registers: target is %s", r.session.State())
	}

	scope, ok, err := r.inspector.FindScope(ctx, frameID, "registers")
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("adapter exposes no registers scope")
	}

	vars, err := r.inspector.Variables(ctx, scope.VariablesReference)
	if err != nil {
		return fmt.Errorf("read registers: %w", err)
	}

	regs := make([]Register, 0, len(vars))
	next := make(map[string]uint64, len(vars))
	r.mu.RLock()
	prev := r.previous
	r.mu.RUnlock()

	for _, v := range vars {
		reg := Register{
			Name:  arch.Normalize(v.Name),
			Value: strings.TrimSpace(v.Value),
		}
		if n, err := parseRegisterValue(reg.Value); err == nil {
			reg.Numeric = n
			reg.HasNumeric = true
			next[reg.Name] = n
			if old, seen := prev[reg.Name]; seen && old != n {
				reg.Changed = true
			}
		}
		regs = append(regs, reg)
	}

	// Display order follows the architecture's GPR list, unknown
	// registers after in adapter order.
	sort.SliceStable(regs, func(i, j int) bool {
		a, b := r.info.RegisterIndex(regs[i].Name), r.info.RegisterIndex(regs[j].Name)
		if a == -1 && b == -1 {
			return false
		}
		if a == -1 {
			return false
		}
		if b == -1 {
			return true
		}
		return a < b
	})

	r.mu.Lock()
	r.current = regs
	r.previous = next
	r.mu.Unlock()

	return nil
}

// All returns the registers from the last refresh in display order.
func (r *RegisterFile) All() []Register {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Get returns a register by name, accepting $ and % sigils.
func (r *RegisterFile) Get(name string) (Register, bool) {
	want := arch.Normalize(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, reg := range r.current {
		if reg.Name == want {
			return reg, true
		}
	}
	return Register{}, false
}

// PC returns the program counter value from the last refresh.
func (r *RegisterFile) PC() (uint64, bool) {
	reg, ok := r.Get(r.info.PC)
	if !ok || !reg.HasNumeric {
		return 0, false
	}
	return reg.Numeric, true
}

// SP returns the stack pointer value from the last refresh.
func (r *RegisterFile) SP() (uint64, bool) {
	reg, ok := r.Get(r.info.SP)
	if !ok || !reg.HasNumeric {
		return 0, false
	}
	return reg.Numeric, true
}

// Format renders the registers GDB-style, one per line, with the flags
// register decoded into its set flags.
func (r *RegisterFile) Format() string {
	r.mu.RLock()
	regs := r.current
	r.mu.RUnlock()

	var b strings.Builder
	width := r.info.PointerSize * 2
	for _, reg := range regs {
		if r.info.RegisterIndex(reg.Name) == -1 {
			continue
		}
		marker := " "
		if reg.Changed {
			marker = "*"
		}
		if reg.Name == arch.Normalize(r.info.FlagsRegister) && reg.HasNumeric {
			fmt.Fprintf(&b, "%s%-8s 0x%0*x  %s\n", marker, reg.Name, width, reg.Numeric, r.info.DecodeFlags(reg.Numeric))
			continue
		}
		if reg.HasNumeric {
			fmt.Fprintf(&b, "%s%-8s 0x%0*x\n", marker, reg.Name, width, reg.Numeric)
		} else {
			fmt.Fprintf(&b, "%s%-8s %s\n", marker, reg.Name, reg.Value)
		}
	}
	return b.String()
}

// parseRegisterValue parses the numeric forms adapters report: plain
// hex ("0x7ffe..."), decimal, and delve's "value (hex)" suffix form.
func parseRegisterValue(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, ' '); i > 0 {
		s = s[:i]
	}
	s = strings.TrimSuffix(s, ",")

	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return strconv.ParseUint(s[2:], 16, 64)
	}
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		return n, nil
	}
	// Negative decimal wraps to the unsigned representation.
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return uint64(n), nil
	}
	return 0, fmt.Errorf("not a register value: %q", s)
}
