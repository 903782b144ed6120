package dexdump

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/deepnoodle-ai/dexcfg/bytecode"
	"github.com/deepnoodle-ai/dexcfg/cfg"
	"github.com/deepnoodle-ai/dexcfg/dis"
	"github.com/deepnoodle-ai/dexcfg/errors"
)

// MaxCodeUnits is one past the last address a method can use.
const MaxCodeUnits = 1 << 16

var (
	regionRe  = regexp.MustCompile(`^\s*(0x[0-9a-f]{4}) - (0x[0-9a-f]{4})\s*$`)
	handlerRe = regexp.MustCompile(`^\s*(<any>|L.*;) -> (0x[0-9a-f]{4})\s*$`)
	posRe     = regexp.MustCompile(`^\s*(0x[0-9a-f]{4}) line=(\d+)\s*$`)
	localRe   = regexp.MustCompile(`^\s*(0x[0-9a-f]{4}) - (0x[0-9a-f]{4}) reg=(\d+) (\S+) (\S+)(?: (\S+))?\s*$`)
)

// Method is one method with code from a dump.
type Method struct {
	Class string
	Name  string
	Type  string

	Access    uint32
	Registers int
	Ins       int
	Outs      int

	// FileOffset is the position of the instruction at address 0000 in
	// the dex file.
	FileOffset uint32

	// Code holds the instruction lines, starting at address 0000.
	Code []string

	Catches   []bytecode.CatchRegion
	Positions []Position

	// Locals holds the debug variables of each register, ordered by start.
	Locals [][]Local

	// Line is the dump line of the method entry and CodeLine that of
	// Code[0].
	Line     int
	CodeLine int

	err error
}

// Position maps the addresses [Start, End) to a source line.
type Position struct {
	Start, End int
	Line       int
}

// Local is a named variable living in a register over [Start, End).
type Local struct {
	Start, End int
	Name       string
	Type       string
	Signature  string
}

// Signature returns the method reference, e.g. "LFoo;.bar:(I)V".
func (m *Method) Signature() string {
	return Signature(m.Class, m.Name, m.Type)
}

// LineAt returns the source line of the instruction at addr.
func (m *Method) LineAt(addr int) (int, bool) {
	for _, p := range m.Positions {
		if addr >= p.Start && addr < p.End {
			return p.Line, true
		}
	}
	return 0, false
}

// Err returns the error met while parsing the method's header or
// tables, if any. Instructions and Build return it as well.
func (m *Method) Err() error {
	return m.err
}

// Instructions tokenizes the method code.
func (m *Method) Instructions(opts ...dis.Option) ([]bytecode.Instruction, error) {
	if m.err != nil {
		return nil, m.err
	}
	instrs, err := dis.Tokenize(m.Code, opts...)
	if err != nil {
		return nil, m.relocate(err)
	}
	return instrs, nil
}

// Build builds the control-flow graph of the method. conf supplies the
// switch table reader and logger; the code offset comes from the method,
// and so does the name unless conf sets one.
func (m *Method) Build(conf *cfg.Config) (*bytecode.Function, error) {
	if m.err != nil {
		return nil, m.err
	}
	var c cfg.Config
	if conf != nil {
		c = *conf
	}
	if c.Name == "" {
		c.Name = m.Signature()
	}
	c.CodeOffset = m.FileOffset
	fn, err := cfg.BuildLines(m.Code, m.Catches, &c)
	if err != nil {
		return nil, m.relocate(err)
	}
	return fn, nil
}

// relocate turns line numbers relative to Code into dump line numbers.
func (m *Method) relocate(err error) error {
	if fe, ok := err.(*errors.FormatError); ok && fe.Location.Line > 0 && m.CodeLine > 0 {
		fe.Location.Line += m.CodeLine - 1
		return fe.In(m.Signature())
	}
	return err
}

func parseAccess(s string) (uint32, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, strconv.ErrSyntax
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(fields[0], "0x"), 16, 32)
	return uint32(v), err
}

func (p *parser) number(label string) (int, error) {
	v, err := p.meta(label)
	if err != nil {
		return 0, err
	}
	fields := strings.Fields(v)
	if len(fields) == 0 {
		return 0, p.fail(errors.E1013, "%s has no value", label)
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, p.fail(errors.E1013, "bad %s value %q", label, v).WithCause(err)
	}
	return n, nil
}

// header reads the lines between "code -" and the first instruction.
func (p *parser) header(m *Method) error {
	var err error
	if m.Registers, err = p.number("registers"); err != nil {
		return err
	}
	if m.Ins, err = p.number("ins"); err != nil {
		return err
	}
	if m.Outs, err = p.number("outs"); err != nil {
		return err
	}
	if _, err = p.number("insns size"); err != nil {
		return err
	}
	line, ok := p.next()
	if !ok || !strings.Contains(line, " |[") {
		return p.fail(errors.E1013, "expected the method banner")
	}
	line, ok = p.next()
	if !ok || !strings.Contains(line, " |0000: ") {
		return p.fail(errors.E1013, "expected the instruction at 0000")
	}
	off, err := dis.FileOffset(line)
	if err != nil {
		return p.fail(errors.E1013, "bad first instruction").WithCause(err)
	}
	m.FileOffset = off
	m.Code = []string{line}
	m.CodeLine = p.lineNo
	return nil
}

// body reads the code lines up to the catches line, then the catch,
// position and local tables up to the blank line closing the method.
func (p *parser) body(m *Method) error {
	for {
		line, ok := p.next()
		if !ok {
			return p.fail(errors.E1013, "dump ends inside the code of %s", m.Signature())
		}
		if catchRe.MatchString(line) {
			break
		}
		m.Code = append(m.Code, line)
	}
	if err := p.catches(m); err != nil {
		return err
	}
	if err := p.positions(m); err != nil {
		return err
	}
	return p.locals(m)
}

// section reports whether line opens the named table.
func section(line, name string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), name)
}

// endOfMethod reports whether line closes the method's tables.
func endOfMethod(line string) bool {
	return strings.TrimSpace(line) == ""
}

func hexAddr(s string) int {
	n, _ := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 32)
	return int(n)
}

func (p *parser) catches(m *Method) error {
	var cur *bytecode.CatchRegion
	for {
		line, ok := p.peek()
		if !ok || endOfMethod(line) || section(line, "positions") {
			return nil
		}
		p.next()
		if r := regionRe.FindStringSubmatch(line); r != nil {
			start, end := hexAddr(r[1]), hexAddr(r[2])
			if start >= end {
				return p.fail(errors.E1008, "catch region 0x%04x - 0x%04x is empty", start, end)
			}
			if cur != nil && int(cur.End) > start {
				return p.fail(errors.E1008, "catch region 0x%04x - 0x%04x overlaps %s", start, end, cur)
			}
			m.Catches = append(m.Catches, bytecode.CatchRegion{Start: uint16(start), End: uint16(end)})
			cur = &m.Catches[len(m.Catches)-1]
			continue
		}
		h := handlerRe.FindStringSubmatch(line)
		if h == nil {
			return p.fail(errors.E1008, "expected a catch region or handler")
		}
		if cur == nil {
			return p.fail(errors.E1008, "handler outside a catch region")
		}
		key := bytecode.ParseCatchKey(h[1])
		if _, dup := cur.Lookup(key); dup {
			return p.fail(errors.E1008, "catch region %s has two handlers for %s", cur, key)
		}
		cur.Handlers = append(cur.Handlers, bytecode.Handler{Key: key, Target: uint16(hexAddr(h[2]))})
	}
}

func (p *parser) positions(m *Method) error {
	line, ok := p.peek()
	if !ok || !section(line, "positions") {
		return nil
	}
	p.next()
	for {
		line, ok := p.peek()
		if !ok || endOfMethod(line) || section(line, "locals") {
			break
		}
		p.next()
		r := posRe.FindStringSubmatch(line)
		if r == nil {
			return p.fail(errors.E1013, "expected a position entry")
		}
		n, err := strconv.Atoi(r[2])
		if err != nil {
			return p.fail(errors.E1013, "bad line number %q", r[2]).WithCause(err)
		}
		start := hexAddr(r[1])
		if k := len(m.Positions); k > 0 {
			m.Positions[k-1].End = start
		}
		m.Positions = append(m.Positions, Position{Start: start, End: MaxCodeUnits, Line: n})
	}
	return nil
}

func (p *parser) locals(m *Method) error {
	line, ok := p.peek()
	if !ok || !section(line, "locals") {
		return nil
	}
	p.next()
	m.Locals = make([][]Local, m.Registers)
	for {
		line, ok := p.next()
		if !ok || endOfMethod(line) {
			return nil
		}
		r := localRe.FindStringSubmatch(line)
		if r == nil {
			return p.fail(errors.E1013, "expected a local variable entry")
		}
		reg, err := strconv.Atoi(r[3])
		if err != nil || reg >= m.Registers {
			return p.fail(errors.E1013, "register v%s is out of range", r[3])
		}
		v := Local{Start: hexAddr(r[1]), End: hexAddr(r[2]), Name: r[4], Type: r[5], Signature: r[6]}
		if v.Start >= v.End {
			return p.fail(errors.E1013, "local %s has an empty range", v.Name)
		}
		if prev := m.Locals[reg]; len(prev) > 0 && prev[len(prev)-1].End > v.Start {
			return p.fail(errors.E1013, "local %s overlaps %s in v%d", v.Name, prev[len(prev)-1].Name, reg)
		}
		m.Locals[reg] = append(m.Locals[reg], v)
	}
}
