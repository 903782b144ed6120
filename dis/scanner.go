// Package dis tokenizes the code section of a `dexdump -d` method listing
// into instructions.
//
// Each instruction line has the columnar shape
//
//	0001a8: 1200                                   |0000: const/4 v0, #int 0 // #0
//
// that is, a file offset, the raw code units, then the method-relative
// address, the mnemonic and a free-text operand tail.
package dis

import (
	"regexp"
	"strconv"

	"github.com/deepnoodle-ai/dexcfg/bytecode"
	"github.com/deepnoodle-ai/dexcfg/errors"
	"github.com/deepnoodle-ai/dexcfg/op"
)

var (
	lineRe   = regexp.MustCompile(`^([0-9a-f]+):(?: [0-9a-f]{4})+\s+(?:\.\.\. )?\s*\|([0-9a-f]{4}): (\S+)(?: (.*))?$`)
	stringRe = regexp.MustCompile(`" // string@[0-9a-f]{4,}$`)
)

// Option configures a Scanner.
type Option func(*Scanner)

// WithPayloads keeps payload pseudo-instructions (switch and array data,
// padding nops) in the emitted stream instead of dropping them.
func WithPayloads() Option {
	return func(s *Scanner) {
		s.payloads = true
	}
}

// Scanner reads instructions from dump lines one at a time. Like
// bufio.Scanner it cannot be restarted; call Err after Next returns false.
type Scanner struct {
	lines    []string
	pos      int
	payloads bool

	lastAddr    int
	sawPayload  bool
	current     bytecode.Instruction
	currentLine int
	err         error
}

// NewScanner returns a Scanner over the code lines of one method. The first
// line must be the instruction at address 0000.
func NewScanner(lines []string, opts ...Option) *Scanner {
	s := &Scanner{lines: lines, lastAddr: -1}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Next advances to the next instruction. It returns false at the end of
// the input or on the first error.
func (s *Scanner) Next() bool {
	if s.err != nil {
		return false
	}
	for s.pos < len(s.lines) {
		lineNo := s.pos + 1
		line := s.lines[s.pos]
		s.pos++

		m := lineRe.FindStringSubmatch(line)
		if m == nil {
			s.err = errors.Formatf(errors.E1001, "line does not match the instruction format").
				OnLine(lineNo, line)
			return false
		}
		addr64, _ := strconv.ParseUint(m[2], 16, 16)
		addr := int(addr64)
		mnemonic, operands := m[3], m[4]

		if addr <= s.lastAddr {
			s.err = errors.Formatf(errors.E1002, "address %04x does not follow %04x", addr, s.lastAddr).
				At(addr).OnLine(lineNo, line)
			return false
		}
		s.lastAddr = addr

		if !op.IsExecutable(mnemonic) {
			s.sawPayload = true
			if !s.payloads {
				continue
			}
		} else if s.sawPayload {
			s.err = errors.Formatf(errors.E1003, "%s follows payload data", mnemonic).
				At(addr).OnLine(lineNo, line).
				WithNote("payload tables are expected after the last instruction")
			return false
		}

		if op.IsConstString(mnemonic) {
			joined, err := s.joinString(line, operands, addr, lineNo)
			if err != nil {
				s.err = err
				return false
			}
			operands = joined
		}

		s.current = bytecode.Instruction{
			Address:  uint16(addr),
			Opcode:   mnemonic,
			Operands: operands,
		}
		s.currentLine = lineNo
		return true
	}
	return false
}

// joinString consumes continuation lines of a const-string literal that
// contains raw newlines. Continuations are joined with a literal `\n`.
func (s *Scanner) joinString(line, operands string, addr, lineNo int) (string, error) {
	for !stringRe.MatchString(line) {
		if s.pos >= len(s.lines) {
			return "", errors.Formatf(errors.E1010, "string literal is not terminated").
				At(addr).OnLine(lineNo, s.lines[lineNo-1])
		}
		line = s.lines[s.pos]
		s.pos++
		if lineRe.MatchString(line) {
			return "", errors.Formatf(errors.E1010, "string literal is interrupted by an instruction").
				At(addr).OnLine(s.pos, line)
		}
		operands += `\n` + line
	}
	return operands, nil
}

// Instruction returns the most recent instruction produced by Next.
func (s *Scanner) Instruction() bytecode.Instruction {
	return s.current
}

// Line returns the 1-based input line of the current instruction.
func (s *Scanner) Line() int {
	return s.currentLine
}

// Err returns the first error encountered, if any.
func (s *Scanner) Err() error {
	return s.err
}

// Tokenize scans all lines and returns the instruction stream.
func Tokenize(lines []string, opts ...Option) ([]bytecode.Instruction, error) {
	s := NewScanner(lines, opts...)
	var out []bytecode.Instruction
	for s.Next() {
		out = append(out, s.Instruction())
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// FileOffset parses the leading file offset of an instruction line.
func FileOffset(line string) (uint32, error) {
	m := lineRe.FindStringSubmatch(line)
	if m == nil {
		return 0, errors.Formatf(errors.E1001, "line does not match the instruction format").
			OnLine(1, line)
	}
	off, err := strconv.ParseUint(m[1], 16, 32)
	if err != nil {
		return 0, errors.Formatf(errors.E1001, "bad file offset %q", m[1]).
			OnLine(1, line).WithCause(err)
	}
	return uint32(off), nil
}
