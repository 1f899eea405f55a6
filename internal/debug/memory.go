package debug

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/dshills/stormdbg/internal/dap"
)

// MemoryReader reads and writes target memory through the adapter.
type MemoryReader struct {
	session *Session
}

// NewMemoryReader creates a memory reader bound to a session.
func NewMemoryReader(session *Session) *MemoryReader {
	return &MemoryReader{session: session}
}

// MemoryBlock is a chunk of target memory.
type MemoryBlock struct {
	// Address is the start address the adapter reported.
	Address uint64

	// Data holds the bytes read.
	Data []byte

	// Unreadable counts bytes at the end of the requested range the
	// adapter could not read.
	Unreadable int
}

// Read reads count bytes at the given memory reference. The reference
// is an address expression in the form the adapter handed out, usually
// "0x..." from a variable's memoryReference or a register value.
func (m *MemoryReader) Read(ctx context.Context, memoryRef string, offset int64, count int) (*MemoryBlock, error) {
	if m.session.State() != StateStopped {
		return nil, fmt.Errorf("cannot read memory: target is %s", m.session.State())
	}
	caps := m.session.Capabilities()
	if caps != nil && !caps.SupportsReadMemoryRequest {
		return nil, fmt.Errorf("readMemory not supported by adapter")
	}

	body, err := m.session.Client().ReadMemory(ctx, dap.ReadMemoryArguments{
		MemoryReference: memoryRef,
		Offset:          offset,
		Count:           count,
	})
	if err != nil {
		return nil, fmt.Errorf("read memory at %s: %w", memoryRef, err)
	}

	data, err := base64.StdEncoding.DecodeString(body.Data)
	if err != nil {
		return nil, fmt.Errorf("decode memory data: %w", err)
	}

	addr, err := ParseAddress(body.Address)
	if err != nil {
		// Some adapters echo a non-numeric reference back. Fall back
		// to the requested one.
		addr, _ = ParseAddress(memoryRef)
	}

	return &MemoryBlock{
		Address:    addr + uint64(offset),
		Data:       data,
		Unreadable: body.UnreadableBytes,
	}, nil
}

// Write writes data at the given memory reference and returns the
// number of bytes written.
func (m *MemoryReader) Write(ctx context.Context, memoryRef string, offset int64, data []byte) (int, error) {
	if m.session.State() != StateStopped {
		return 0, fmt.Errorf("cannot write memory: target is %s", m.session.State())
	}
	caps := m.session.Capabilities()
	if caps != nil && !caps.SupportsWriteMemoryRequest {
		return 0, fmt.Errorf("writeMemory not supported by adapter")
	}

	body, err := m.session.Client().WriteMemory(ctx, dap.WriteMemoryArguments{
		MemoryReference: memoryRef,
		Offset:          offset,
		Data:            base64.StdEncoding.EncodeToString(data),
	})
	if err != nil {
		return 0, fmt.Errorf("write memory at %s: %w", memoryRef, err)
	}
	if body.BytesWritten > 0 {
		return body.BytesWritten, nil
	}
	return len(data), nil
}

// ParseAddress parses an address string in hex ("0x...") or decimal
// form.
func ParseAddress(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty address")
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return strconv.ParseUint(s[2:], 16, 64)
	}
	return strconv.ParseUint(s, 10, 64)
}

// HexDump renders a memory block as a classic 16-byte-per-line hex dump
// with an ASCII gutter.
func HexDump(block *MemoryBlock) string {
	const perLine = 16

	var b strings.Builder
	for base := 0; base < len(block.Data); base += perLine {
		end := base + perLine
		if end > len(block.Data) {
			end = len(block.Data)
		}
		line := block.Data[base:end]

		fmt.Fprintf(&b, "0x%016x  ", block.Address+uint64(base))
		for i := 0; i < perLine; i++ {
			if i == perLine/2 {
				b.WriteByte(' ')
			}
			if i < len(line) {
				fmt.Fprintf(&b, "%02x ", line[i])
			} else {
				b.WriteString("   ")
			}
		}
		b.WriteString(" |")
		for _, c := range line {
			if c >= 0x20 && c < 0x7f {
				b.WriteByte(c)
			} else {
				b.WriteByte('.')
			}
		}
		b.WriteString("|\n")
	}
	if block.Unreadable > 0 {
		fmt.Fprintf(&b, "(%d bytes unreadable)\n", block.Unreadable)
	}
	return b.String()
}

// FormatWords renders a memory block as pointer-sized words, one per
// line, the way a stack dump is usually read. Words are little-endian.
func FormatWords(block *MemoryBlock, wordSize int) string {
	if wordSize != 4 && wordSize != 8 {
		wordSize = 8
	}

	var b strings.Builder
	for base := 0; base+wordSize <= len(block.Data); base += wordSize {
		var word uint64
		for i := wordSize - 1; i >= 0; i-- {
			word = word<<8 | uint64(block.Data[base+i])
		}
		fmt.Fprintf(&b, "0x%016x: 0x%0*x\n", block.Address+uint64(base), wordSize*2, word)
	}
	return b.String()
}
