package dis

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/deepnoodle-ai/dexcfg/bytecode"
	"github.com/deepnoodle-ai/dexcfg/errors"
	"github.com/deepnoodle-ai/wonton/assert"
)

func dumpLine(addr int, text string) string {
	return fmt.Sprintf("%06x: 0000                                   |%04x: %s", 0x1a8+addr*2, addr, text)
}

func TestTokenize(t *testing.T) {
	lines := []string{
		dumpLine(0, "const/4 v0, #int 0 // #0"),
		dumpLine(1, "if-eqz v0, 0004 // +0003"),
		"0001b0: 0e00 0000 0000 0000 ...               |0003: return-void",
		dumpLine(4, "return-void"),
	}
	instrs, err := Tokenize(lines)
	assert.NoError(t, err)
	assert.Equal(t, []bytecode.Instruction{
		{Address: 0, Opcode: "const/4", Operands: "v0, #int 0 // #0"},
		{Address: 1, Opcode: "if-eqz", Operands: "v0, 0004 // +0003"},
		{Address: 3, Opcode: "return-void", Operands: ""},
		{Address: 4, Opcode: "return-void", Operands: ""},
	}, instrs)
}

func TestScannerLineNumbers(t *testing.T) {
	s := NewScanner([]string{
		dumpLine(0, "const-string v0, \"a"),
		"b\" // string@0001",
		dumpLine(2, "return-object v0"),
	})
	assert.True(t, s.Next())
	assert.Equal(t, 1, s.Line())
	assert.True(t, s.Next())
	assert.Equal(t, 3, s.Line())
	assert.Equal(t, "return-object", s.Instruction().Opcode)
	assert.False(t, s.Next())
	assert.NoError(t, s.Err())
	assert.False(t, s.Next())
}

func TestMalformedLine(t *testing.T) {
	_, err := Tokenize([]string{
		dumpLine(0, "nop"),
		"this is not a dump line",
	})
	assert.ErrorIs(t, err, errors.ErrFormat)
	var fe *errors.FormatError
	assert.True(t, stderrors.As(err, &fe))
	assert.Equal(t, errors.E1001, fe.Code)
	assert.Equal(t, 2, fe.Location.Line)
	assert.Equal(t, "this is not a dump line", fe.Location.Text)
}

func TestAddressOrder(t *testing.T) {
	tests := []struct {
		name  string
		addrs []int
	}{
		{"repeat", []int{0, 2, 2}},
		{"decrease", []int{0, 4, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var lines []string
			for _, a := range tt.addrs {
				lines = append(lines, dumpLine(a, "move v0, v1"))
			}
			_, err := Tokenize(lines)
			var fe *errors.FormatError
			assert.True(t, stderrors.As(err, &fe))
			assert.Equal(t, errors.E1002, fe.Code)
			assert.Equal(t, tt.addrs[2], fe.Location.Address)
			assert.Equal(t, 3, fe.Location.Line)
		})
	}
}

func TestPayloadsDropped(t *testing.T) {
	lines := []string{
		dumpLine(0, "packed-switch v0, 00000004 // +00000004"),
		dumpLine(3, "return-void"),
		dumpLine(4, "packed-switch-data (8 units)"),
		dumpLine(0xc, "array-data (6 units)"),
	}
	instrs, err := Tokenize(lines)
	assert.NoError(t, err)
	assert.Len(t, instrs, 2)
	assert.Equal(t, "return-void", instrs[1].Opcode)

	instrs, err = Tokenize(lines, WithPayloads())
	assert.NoError(t, err)
	assert.Len(t, instrs, 4)
	assert.Equal(t, "packed-switch-data", instrs[2].Opcode)
	assert.Equal(t, "(8 units)", instrs[2].Operands)
	assert.Equal(t, uint16(0xc), instrs[3].Address)
}

func TestInstructionAfterPayload(t *testing.T) {
	for _, opts := range [][]Option{nil, {WithPayloads()}} {
		_, err := Tokenize([]string{
			dumpLine(0, "return-void"),
			dumpLine(1, "nop // spacer"),
			dumpLine(2, "sparse-switch-data (10 units)"),
			dumpLine(0xc, "return-void"),
		}, opts...)
		var fe *errors.FormatError
		assert.True(t, stderrors.As(err, &fe))
		assert.Equal(t, errors.E1003, fe.Code)
		assert.Equal(t, 0xc, fe.Location.Address)
	}
}

func TestConstStringJoin(t *testing.T) {
	instrs, err := Tokenize([]string{
		dumpLine(0, `const-string v0, "first`),
		`second`,
		`third" // string@0012`,
		dumpLine(2, `const-string/jumbo v1, "one line" // string@00000013`),
		dumpLine(5, "return-void"),
	})
	assert.NoError(t, err)
	assert.Len(t, instrs, 3)
	assert.Equal(t, `v0, "first\nsecond\nthird" // string@0012`, instrs[0].Operands)
	assert.Equal(t, `v1, "one line" // string@00000013`, instrs[1].Operands)
}

func TestUnterminatedString(t *testing.T) {
	_, err := Tokenize([]string{
		dumpLine(0, `const-string v0, "never`),
		`ends`,
	})
	var fe *errors.FormatError
	assert.True(t, stderrors.As(err, &fe))
	assert.Equal(t, errors.E1010, fe.Code)

	_, err = Tokenize([]string{
		dumpLine(0, `const-string v0, "cut`),
		dumpLine(2, "return-void"),
	})
	assert.True(t, stderrors.As(err, &fe))
	assert.Equal(t, errors.E1010, fe.Code)
	assert.Equal(t, 2, fe.Location.Line)
}

func TestFileOffset(t *testing.T) {
	off, err := FileOffset(dumpLine(0, "return-void"))
	assert.NoError(t, err)
	assert.Equal(t, uint32(0x1a8), off)

	_, err = FileOffset("      catches       : (none)")
	assert.ErrorIs(t, err, errors.ErrFormat)
}
