package bytecode

import "fmt"

// Instruction is one disassembled Dalvik instruction. Addresses are in
// 16-bit code units from the start of the method.
type Instruction struct {
	Address  uint16
	Opcode   string
	Operands string
}

// String returns the instruction in dexdump notation.
func (i Instruction) String() string {
	if i.Operands == "" {
		return fmt.Sprintf("%04x: %s", i.Address, i.Opcode)
	}
	return fmt.Sprintf("%04x: %s %s", i.Address, i.Opcode, i.Operands)
}
