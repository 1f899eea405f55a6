// Package arch describes CPU architectures for register display and
// flag decoding.
package arch

import (
	"strings"
)

// Name identifies a CPU architecture.
type Name string

const (
	// AMD64 is 64-bit x86.
	AMD64 Name = "amd64"
	// I386 is 32-bit x86.
	I386 Name = "i386"
	// ARM64 is 64-bit ARM (AArch64).
	ARM64 Name = "arm64"
	// Unknown is an unrecognized architecture.
	Unknown Name = "unknown"
)

// Flag is a single bit in a flags register.
type Flag struct {
	// Name is the short flag mnemonic (e.g. "ZF", "N").
	Name string

	// Bit is the bit position in the flags register.
	Bit uint
}

// Info describes an architecture's register file layout.
type Info struct {
	// Name is the architecture identifier.
	Name Name

	// PointerSize is the pointer width in bytes.
	PointerSize int

	// PC is the instruction pointer register name.
	PC string

	// SP is the stack pointer register name.
	SP string

	// FP is the frame/base pointer register name.
	FP string

	// FlagsRegister is the name of the flags register.
	FlagsRegister string

	// Flags are the decodable bits of the flags register, display order.
	Flags []Flag

	// GPRs are the general purpose registers in display order.
	GPRs []string
}

// IsPointerRegister reports whether name is the PC, SP, or FP register.
func (i Info) IsPointerRegister(name string) bool {
	n := Normalize(name)
	return n == i.PC || n == i.SP || n == i.FP
}

// DecodeFlags renders the set flag bits of value in display order,
// e.g. "[ ZF PF IF ]".
func (i Info) DecodeFlags(value uint64) string {
	var set []string
	for _, f := range i.Flags {
		if value&(1<<f.Bit) != 0 {
			set = append(set, f.Name)
		}
	}
	return "[ " + strings.Join(set, " ") + " ]"
}

// FlagSet reports whether the named flag is set in value.
func (i Info) FlagSet(name string, value uint64) bool {
	for _, f := range i.Flags {
		if strings.EqualFold(f.Name, name) {
			return value&(1<<f.Bit) != 0
		}
	}
	return false
}

// RegisterIndex returns the display position of a register, or -1 if
// the register is not part of the canonical display set.
func (i Info) RegisterIndex(name string) int {
	n := Normalize(name)
	for idx, r := range i.GPRs {
		if r == n {
			return idx
		}
	}
	return -1
}

// Normalize lowercases a register name and strips any leading "$" or "%"
// sigil so adapter-reported names compare cleanly.
func Normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.TrimPrefix(name, "$")
	name = strings.TrimPrefix(name, "%")
	return name
}

// Lookup returns the Info for an architecture name, accepting common
// aliases ("x86_64", "x64", "aarch64", "x86", "386").
func Lookup(name string) (Info, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "amd64", "x86_64", "x86-64", "x64":
		return amd64Info, true
	case "i386", "386", "x86", "ia32":
		return i386Info, true
	case "arm64", "aarch64":
		return arm64Info, true
	default:
		return Info{Name: Unknown}, false
	}
}

// Detect guesses the architecture from a free-form hint such as a target
// triple, adapter name, or platform string. Falls back to amd64, the
// common case for local debugging.
func Detect(hint string) Info {
	h := strings.ToLower(hint)
	switch {
	case strings.Contains(h, "aarch64"), strings.Contains(h, "arm64"):
		return arm64Info
	case strings.Contains(h, "x86_64"), strings.Contains(h, "amd64"), strings.Contains(h, "x64"):
		return amd64Info
	case strings.Contains(h, "i386"), strings.Contains(h, "i686"), strings.Contains(h, "x86"):
		return i386Info
	default:
		return amd64Info
	}
}
