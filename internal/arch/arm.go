package arch

var arm64Info = Info{
	Name:          ARM64,
	PointerSize:   8,
	PC:            "pc",
	SP:            "sp",
	FP:            "x29",
	FlagsRegister: "cpsr",
	Flags: []Flag{
		{Name: "N", Bit: 31},
		{Name: "Z", Bit: 30},
		{Name: "C", Bit: 29},
		{Name: "V", Bit: 28},
	},
	GPRs: []string{
		"x0", "x1", "x2", "x3", "x4", "x5", "x6", "x7",
		"x8", "x9", "x10", "x11", "x12", "x13", "x14", "x15",
		"x16", "x17", "x18", "x19", "x20", "x21", "x22", "x23",
		"x24", "x25", "x26", "x27", "x28", "x29", "x30",
		"sp", "pc", "cpsr",
	},
}
