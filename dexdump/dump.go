// Package dexdump extracts methods from the text output of `dexdump -d`.
//
// A dump lists every class with its fields and methods. For each method
// with code, Parse keeps the instruction lines together with the metadata
// dexdump prints around them: the register count, the file offset of the
// first instruction, the catch table, the line-number table and the local
// variable table.
package dexdump

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/deepnoodle-ai/dexcfg/errors"
)

// maxLineSize bounds a single dump line. Long string constants are the
// only lines that get close.
const maxLineSize = 16 * 1024 * 1024

var (
	entryRe = regexp.MustCompile(`^\s*#\d+\s*: \(in (L\S+;)\)$`)
	nameRe  = regexp.MustCompile(`^\s*name\s*: '(\S+)'$`)
	typeRe  = regexp.MustCompile(`^\s*type\s*: '(\S+)'$`)
	metaRe  = regexp.MustCompile(`^\s*(\S.*?\S)\s+(?:-|:)\s*(.*?)\s*$`)
	catchRe = regexp.MustCompile(`^\s*catches\s+: `)
)

// Dump is a parsed `dexdump -d` listing.
type Dump struct {
	methods  []*Method
	index    map[string]*Method
	declared []string
	bodiless map[string]bool
}

// Signature returns the dexdump spelling of a method reference, e.g.
// "Lcom/example/Foo;.bar:(I)V".
func Signature(class, name, typ string) string {
	return class + "." + name + ":" + typ
}

// ParseSignature splits a signature produced by Signature.
func ParseSignature(s string) (class, name, typ string, err error) {
	i := strings.Index(s, ";.")
	if !strings.HasPrefix(s, "L") || i < 0 {
		return "", "", "", fmt.Errorf("invalid method signature %q: want Lclass;.name:type", s)
	}
	class, rest := s[:i+1], s[i+2:]
	j := strings.Index(rest, ":")
	if j <= 0 || j == len(rest)-1 {
		return "", "", "", fmt.Errorf("invalid method signature %q: want Lclass;.name:type", s)
	}
	return class, rest[:j], rest[j+1:], nil
}

// ParseFile parses the dump stored at path.
func ParseFile(path string) (*Dump, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a whole dump. Fields and methods without code (abstract
// or native) are skipped, though the latter are still known to Find.
//
// A method whose header or tables are malformed is kept with the error
// attached (see Method.Err) and parsing resumes at the next entry. Only
// an entry that cannot be identified, because its name, type or access
// line is malformed, fails the whole dump.
func Parse(r io.Reader) (*Dump, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	p := &parser{sc: sc}
	d := &Dump{
		index:    map[string]*Method{},
		bodiless: map[string]bool{},
	}
	for {
		line, ok := p.next()
		if !ok {
			break
		}
		m := entryRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		method, err := p.entry(m[1])
		if err != nil {
			return nil, err
		}
		if method == nil {
			continue
		}
		sig := method.Signature()
		if _, dup := d.index[sig]; dup || d.bodiless[sig] {
			continue
		}
		d.declared = append(d.declared, sig)
		if method.Code == nil && method.err == nil {
			d.bodiless[sig] = true
			continue
		}
		d.index[sig] = method
		d.methods = append(d.methods, method)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading dump at line %d: %w", p.lineNo, err)
	}
	return d, nil
}

// Methods returns every method with code, in dump order.
func (d *Dump) Methods() []*Method {
	out := make([]*Method, len(d.methods))
	copy(out, d.methods)
	return out
}

// Len returns the number of methods with code.
func (d *Dump) Len() int {
	return len(d.methods)
}

// Find returns the method with the given class descriptor, name and type
// descriptor.
func (d *Dump) Find(class, name, typ string) (*Method, error) {
	return d.Lookup(Signature(class, name, typ))
}

// Lookup returns the method with the given signature.
func (d *Dump) Lookup(sig string) (*Method, error) {
	if m, ok := d.index[sig]; ok {
		return m, nil
	}
	if d.bodiless[sig] {
		return nil, errors.Lookupf(errors.E2003, errors.NoAddress, "method %s has no code", sig)
	}
	err := errors.Lookupf(errors.E2003, errors.NoAddress, "method %s not found", sig)
	err.Suggestions = errors.SuggestSimilar(sig, d.declared)
	return nil, err
}

// parser walks dump lines with one line of lookahead.
type parser struct {
	sc     *bufio.Scanner
	lineNo int
	peeked bool
	line   string
}

func (p *parser) next() (string, bool) {
	if p.peeked {
		p.peeked = false
		return p.line, true
	}
	if !p.sc.Scan() {
		return "", false
	}
	p.lineNo++
	p.line = strings.TrimRight(p.sc.Text(), "\r")
	return p.line, true
}

func (p *parser) peek() (string, bool) {
	if p.peeked {
		return p.line, true
	}
	line, ok := p.next()
	p.peeked = ok
	return line, ok
}

func (p *parser) fail(code errors.ErrorCode, format string, args ...any) *errors.FormatError {
	return errors.Formatf(code, format, args...).OnLine(p.lineNo, p.line)
}

// expect reads the next line, which must match re, and returns its first
// submatch.
func (p *parser) expect(re *regexp.Regexp, what string) (string, error) {
	line, ok := p.next()
	if !ok {
		return "", p.fail(errors.E1013, "dump ends before the %s line", what)
	}
	m := re.FindStringSubmatch(line)
	if m == nil {
		return "", p.fail(errors.E1013, "expected the %s line", what)
	}
	return m[1], nil
}

// meta reads a "label : value" header line and checks its label.
func (p *parser) meta(label string) (string, error) {
	line, ok := p.next()
	if !ok {
		return "", p.fail(errors.E1013, "dump ends before the %s line", label)
	}
	m := metaRe.FindStringSubmatch(line)
	if m == nil || m[1] != label {
		return "", p.fail(errors.E1013, "expected the %s line", label)
	}
	return m[2], nil
}

// entry parses one field or method entry whose "#N : (in L...;)" line was
// just consumed. It returns nil for fields.
func (p *parser) entry(class string) (*Method, error) {
	m := &Method{Class: class, Line: p.lineNo}
	var err error
	if m.Name, err = p.expect(nameRe, "name"); err != nil {
		return nil, err
	}
	if m.Type, err = p.expect(typeRe, "type"); err != nil {
		return nil, err
	}
	access, err := p.meta("access")
	if err != nil {
		return nil, err
	}
	if m.Access, err = parseAccess(access); err != nil {
		return nil, p.fail(errors.E1013, "bad access flags %q", access).WithCause(err)
	}

	line, ok := p.peek()
	if !ok {
		return nil, nil
	}
	hdr := metaRe.FindStringSubmatch(line)
	if hdr == nil || hdr[1] != "code" {
		return nil, nil // a field
	}
	p.next()
	if hdr[2] == "(none)" {
		return m, nil
	}
	if err := p.header(m); err != nil {
		return p.quarantine(m, err), nil
	}
	if err := p.body(m); err != nil {
		return p.quarantine(m, err), nil
	}
	return m, nil
}

// quarantine records err on m and skips the rest of its entry, so the
// methods that follow are still read.
func (p *parser) quarantine(m *Method, err error) *Method {
	m.err = annotate(err, m)
	if p.peeked || !endOfMethod(p.line) {
		for {
			line, ok := p.next()
			if !ok || endOfMethod(line) {
				break
			}
		}
	}
	return m
}

func annotate(err error, m *Method) error {
	if fe, ok := err.(*errors.FormatError); ok {
		return fe.In(m.Signature())
	}
	return err
}
