package arch

// x86 EFLAGS bit positions.
var x86Flags = []Flag{
	{Name: "ZF", Bit: 6},
	{Name: "CF", Bit: 0},
	{Name: "PF", Bit: 2},
	{Name: "AF", Bit: 4},
	{Name: "SF", Bit: 7},
	{Name: "TF", Bit: 8},
	{Name: "IF", Bit: 9},
	{Name: "DF", Bit: 10},
	{Name: "OF", Bit: 11},
}

var amd64Info = Info{
	Name:          AMD64,
	PointerSize:   8,
	PC:            "rip",
	SP:            "rsp",
	FP:            "rbp",
	FlagsRegister: "eflags",
	Flags:         x86Flags,
	GPRs: []string{
		"rax", "rbx", "rcx", "rdx", "rsp", "rbp", "rsi", "rdi",
		"rip", "r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15",
		"eflags", "cs", "ss", "ds", "es", "fs", "gs",
	},
}

var i386Info = Info{
	Name:          I386,
	PointerSize:   4,
	PC:            "eip",
	SP:            "esp",
	FP:            "ebp",
	FlagsRegister: "eflags",
	Flags:         x86Flags,
	GPRs: []string{
		"eax", "ebx", "ecx", "edx", "esp", "ebp", "esi", "edi",
		"eip", "eflags", "cs", "ss", "ds", "es", "fs", "gs",
	},
}
