// Package op classifies Dalvik instruction mnemonics as printed by dexdump.
//
// Only control-flow behaviour matters to the block builder, so mnemonics are
// sorted into a small set of classes. Mnemonics that are not listed in the
// table are classified by prefix (goto*, if-*, return*), and anything else is
// an ordinary straight-line instruction.
package op

import "strings"

// Class describes how an instruction affects control flow.
type Class uint8

const (
	// Other is any instruction that continues to the next address.
	Other Class = iota
	// Goto is an unconditional jump to a decoded target.
	Goto
	// If is a conditional jump; control falls through when not taken.
	If
	// PackedSwitch dispatches through a packed switch payload.
	PackedSwitch
	// SparseSwitch dispatches through a sparse switch payload.
	SparseSwitch
	// Throw raises the exception in its operand register.
	Throw
	// Return leaves the method.
	Return
	// Payload is an inline data table (switch or array data, or padding),
	// not an executable instruction.
	Payload
)

// String returns a string representation of the class.
func (c Class) String() string {
	switch c {
	case Other:
		return "other"
	case Goto:
		return "goto"
	case If:
		return "if"
	case PackedSwitch:
		return "packed-switch"
	case SparseSwitch:
		return "sparse-switch"
	case Throw:
		return "throw"
	case Return:
		return "return"
	case Payload:
		return "payload"
	default:
		return ""
	}
}

// EndsBlock returns true if an instruction of this class is the last one in
// its basic block.
func (c Class) EndsBlock() bool {
	switch c {
	case Goto, If, PackedSwitch, SparseSwitch, Throw, Return:
		return true
	default:
		return false
	}
}

// Diverts returns true if control never continues to the next address
// after an instruction of this class.
func (c Class) Diverts() bool {
	switch c {
	case Goto, Throw, Return:
		return true
	default:
		return false
	}
}

// IsSwitch returns true for both switch encodings.
func (c Class) IsSwitch() bool {
	return c == PackedSwitch || c == SparseSwitch
}

// Info contains information about a mnemonic.
type Info struct {
	Name  string
	Class Class
	// Registers is the number of register operands preceding the branch
	// target or table address.
	Registers int
}

var infos = map[string]Info{}

func init() {
	type opInfo struct {
		name  string
		class Class
		regs  int
	}
	ops := []opInfo{
		{"goto", Goto, 0},
		{"goto/16", Goto, 0},
		{"goto/32", Goto, 0},
		{"if-eq", If, 2},
		{"if-ne", If, 2},
		{"if-lt", If, 2},
		{"if-ge", If, 2},
		{"if-gt", If, 2},
		{"if-le", If, 2},
		{"if-eqz", If, 1},
		{"if-nez", If, 1},
		{"if-ltz", If, 1},
		{"if-gez", If, 1},
		{"if-gtz", If, 1},
		{"if-lez", If, 1},
		{"packed-switch", PackedSwitch, 1},
		{"sparse-switch", SparseSwitch, 1},
		{"throw", Throw, 1},
		{"return-void", Return, 0},
		{"return", Return, 1},
		{"return-wide", Return, 1},
		{"return-object", Return, 1},
		{"nop", Payload, 0},
		{"packed-switch-data", Payload, 0},
		{"sparse-switch-data", Payload, 0},
		{"array-data", Payload, 0},
	}
	for _, o := range ops {
		infos[o.name] = Info{Name: o.name, Class: o.class, Registers: o.regs}
	}
}

// GetInfo returns information about the given mnemonic. Mnemonics missing
// from the table are described by their prefix class with an unknown
// register count of -1.
func GetInfo(mnemonic string) Info {
	if info, ok := infos[mnemonic]; ok {
		return info
	}
	info := Info{Name: mnemonic, Class: Other, Registers: -1}
	switch {
	case strings.HasPrefix(mnemonic, "goto"):
		info.Class = Goto
	case strings.HasPrefix(mnemonic, "if-"):
		info.Class = If
	case strings.HasPrefix(mnemonic, "return"):
		info.Class = Return
	}
	return info
}

// Classify returns the control-flow class of a mnemonic.
func Classify(mnemonic string) Class {
	return GetInfo(mnemonic).Class
}

// IsExecutable returns false for payload pseudo-instructions.
func IsExecutable(mnemonic string) bool {
	return Classify(mnemonic) != Payload
}

// IsConstString returns true for the const-string family, whose operand
// text may span several dump lines.
func IsConstString(mnemonic string) bool {
	return strings.HasPrefix(mnemonic, "const-string")
}
