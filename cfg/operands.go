package cfg

import (
	"strconv"
	"strings"

	"github.com/deepnoodle-ai/dexcfg/bytecode"
	"github.com/deepnoodle-ai/dexcfg/errors"
	"github.com/deepnoodle-ai/dexcfg/op"
)

// splitOperands returns the comma separated operands ahead of any
// trailing "//" comment.
func splitOperands(text string) []string {
	if i := strings.Index(text, "//"); i >= 0 {
		text = text[:i]
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	parts := strings.Split(text, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// relativeComment parses the signed hex offset dexdump appends to branch
// and switch instructions, e.g. "// +0008" or "// -0004".
func relativeComment(text string) (int, bool) {
	i := strings.Index(text, "//")
	if i < 0 {
		return 0, false
	}
	fields := strings.Fields(text[i+2:])
	if len(fields) == 0 {
		return 0, false
	}
	c := fields[0]
	if c[0] != '+' && c[0] != '-' {
		return 0, false
	}
	n, err := strconv.ParseInt(c, 16, 64)
	if err != nil {
		return 0, false
	}
	return int(n), true
}

// parseAddress parses an absolute hex code address such as "0008",
// "0x0008" or "#00000008".
func parseAddress(s string) (int, bool) {
	s = strings.TrimPrefix(s, "#")
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, false
	}
	return int(n), true
}

// branchTarget decodes the target address of a goto or if instruction,
// or the payload address of a switch. The target follows the register
// operands; when the register count is unknown the last operand is used.
func branchTarget(in bytecode.Instruction, info op.Info) (int, error) {
	ops := splitOperands(in.Operands)
	i := info.Registers
	if i < 0 {
		i = len(ops) - 1
	}
	if i < 0 || i >= len(ops) {
		return 0, errors.Formatf(errors.E1012, "%s has no target operand in %q", in.Opcode, in.Operands).
			At(int(in.Address))
	}
	target, ok := parseAddress(ops[i])
	if !ok {
		return 0, errors.Formatf(errors.E1012, "%s target %q is not a hex address", in.Opcode, ops[i]).
			At(int(in.Address))
	}
	return target, nil
}
