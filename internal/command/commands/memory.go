package commands

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/dshills/stormdbg/internal/command"
	"github.com/dshills/stormdbg/internal/debug"
)

func registerMemory(d *command.Dispatcher) {
	mem := command.NewGroup("memory")
	mem.Register("read", cmdMemoryRead)
	mem.Register("write", cmdMemoryWrite)
	mem.Register("words", cmdMemoryWords)
	d.RegisterGroup("memory", mem)

	d.RegisterCommand(&command.Command{
		Name:    "hexdump",
		Aliases: []string{"x"},
		Usage:   "hexdump <address> [count]",
		Summary: "hex dump target memory",
		Fn:      cmdMemoryRead,
	})
	d.RegisterCommand(&command.Command{
		Name:    "disassemble",
		Aliases: []string{"disas", "u"},
		Usage:   "disassemble [address] [count]",
		Summary: "disassemble around an address (default: the program counter)",
		Fn:      cmdDisassemble,
	})
}

// memoryArgs parses "<address> [count]" with a configured default count.
func memoryArgs(req command.Request, env *command.Env) (string, int, error) {
	addr := req.Arg(0)
	if addr == "" {
		return "", 0, fmt.Errorf("usage: %s <address> [count]", req.Name)
	}
	if _, err := debug.ParseAddress(addr); err != nil {
		return "", 0, err
	}

	count := 64
	if env.Config != nil {
		count = env.Config.GetInt("memory.defaultCount", count)
	}
	if req.Arg(1) != "" {
		n, err := strconv.Atoi(req.Arg(1))
		if err != nil || n < 1 {
			return "", 0, fmt.Errorf("invalid count %q", req.Arg(1))
		}
		count = n
	}
	return addr, count, nil
}

func cmdMemoryRead(ctx context.Context, req command.Request, env *command.Env) command.Result {
	if _, errResult := env.RequireStopped(); errResult != nil {
		return *errResult
	}
	if env.Memory == nil {
		return command.Errorf("no memory reader")
	}

	addr, count, err := memoryArgs(req, env)
	if err != nil {
		return command.Error(err)
	}

	block, err := env.Memory.Read(ctx, addr, 0, count)
	if err != nil {
		return command.Error(err)
	}
	return command.Output(strings.TrimRight(debug.HexDump(block), "\n"))
}

func cmdMemoryWords(ctx context.Context, req command.Request, env *command.Env) command.Result {
	if _, errResult := env.RequireStopped(); errResult != nil {
		return *errResult
	}
	if env.Memory == nil {
		return command.Errorf("no memory reader")
	}

	addr, count, err := memoryArgs(req, env)
	if err != nil {
		return command.Error(err)
	}

	wordSize := 8
	if env.Registers != nil {
		wordSize = env.Registers.Arch().PointerSize
	}

	block, err := env.Memory.Read(ctx, addr, 0, count*wordSize)
	if err != nil {
		return command.Error(err)
	}
	return command.Output(strings.TrimRight(debug.FormatWords(block, wordSize), "\n"))
}

func cmdMemoryWrite(ctx context.Context, req command.Request, env *command.Env) command.Result {
	if _, errResult := env.RequireStopped(); errResult != nil {
		return *errResult
	}
	if env.Memory == nil {
		return command.Errorf("no memory reader")
	}

	addr := req.Arg(0)
	if addr == "" || len(req.Args) < 2 {
		return command.Errorf("usage: memory write <address> <hex-bytes>")
	}
	if _, err := debug.ParseAddress(addr); err != nil {
		return command.Error(err)
	}

	raw := strings.Join(req.Args[1:], "")
	raw = strings.TrimPrefix(raw, "0x")
	data, err := hex.DecodeString(raw)
	if err != nil {
		return command.Errorf("invalid hex data: %v", err)
	}

	written, err := env.Memory.Write(ctx, addr, 0, data)
	if err != nil {
		return command.Error(err)
	}
	return command.Outputf("wrote %d bytes at %s", written, addr)
}

// pcReference returns the reference to disassemble around, preferring
// the selected frame's instruction pointer.
func pcReference(ctx context.Context, env *command.Env) (string, error) {
	if env.Stack != nil {
		if frame, _, ok := env.Stack.Selected(); ok && frame.InstructionPointerReference != "" {
			return frame.InstructionPointerReference, nil
		}
	}
	if env.Registers != nil {
		if err := env.Registers.Refresh(ctx, selectedFrameID(env)); err == nil {
			if pc, ok := env.Registers.PC(); ok {
				return fmt.Sprintf("0x%x", pc), nil
			}
		}
	}
	return "", fmt.Errorf("cannot determine the program counter; select a frame first")
}

func cmdDisassemble(ctx context.Context, req command.Request, env *command.Env) command.Result {
	if _, errResult := env.RequireStopped(); errResult != nil {
		return *errResult
	}
	if env.Disasm == nil {
		return command.Errorf("no disassembler")
	}

	count := 16
	if env.Config != nil {
		count = env.Config.GetInt("context.instructions", count)
	}

	ref := req.Arg(0)
	if ref != "" {
		if _, err := debug.ParseAddress(ref); err != nil {
			return command.Error(err)
		}
	} else {
		var err error
		ref, err = pcReference(ctx, env)
		if err != nil {
			return command.Error(err)
		}
	}
	if req.Arg(1) != "" {
		n, err := strconv.Atoi(req.Arg(1))
		if err != nil || n < 1 {
			return command.Errorf("invalid count %q", req.Arg(1))
		}
		count = n
	}

	instructions, err := env.Disasm.Around(ctx, ref, count/2, count-count/2)
	if err != nil {
		return command.Error(err)
	}
	return command.Output(strings.TrimRight(debug.FormatListing(instructions, ref), "\n"))
}
