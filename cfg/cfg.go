// Package cfg builds the control-flow graph of a single method from its
// disassembled instruction stream and catch table.
//
// # Phases
//
// A build runs four phases in order and never goes back:
//
// Seeding: validate the catch table and mark every region start, region end
// and handler address as a leader, so entering or leaving a try range, or
// entering a handler, always starts a new block.
//
// Scanning: walk the instructions once, record every explicit edge as
// (source address, label, raw target) and mark every target as a leader.
// The instruction after any branch is a leader too. Switch payloads are
// fetched from the configured switchtab.Reader as they are found.
//
// Partitioning: walk the instructions again, starting a block at each
// leader. A block whose last instruction can continue to the next address
// gets a fallthrough edge to the next block, and each block picks up the
// handlers of the catch region its start lies in.
//
// Resolving: once every block exists, rewrite raw target addresses (of
// both edges and handlers) to block IDs and freeze the result as a
// bytecode.Function.
//
// Builds share no state, so independent methods may be built concurrently.
// A build either returns a complete graph or an error, never both.
package cfg

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/deepnoodle-ai/dexcfg/bytecode"
	"github.com/deepnoodle-ai/dexcfg/dis"
	"github.com/deepnoodle-ai/dexcfg/errors"
	"github.com/deepnoodle-ai/dexcfg/op"
	"github.com/deepnoodle-ai/dexcfg/switchtab"
)

// Config holds build options. A nil *Config is valid and uses defaults.
type Config struct {
	// Name identifies the method in logs and errors.
	Name string

	// CodeOffset is the file offset of the instruction at address 0000. It
	// is passed to Switches as the base of every payload lookup.
	CodeOffset uint32

	// Switches decodes switch payloads. Required only if the method
	// contains a packed-switch or sparse-switch.
	Switches switchtab.Reader

	// Logger receives debug events. Defaults to the global zerolog logger.
	Logger *zerolog.Logger
}

type phase int

const (
	seedingLeaders phase = iota
	scanningJumps
	partitioning
	resolvingReferences
	done
)

func (p phase) String() string {
	switch p {
	case seedingLeaders:
		return "seeding"
	case scanningJumps:
		return "scanning"
	case partitioning:
		return "partitioning"
	case resolvingReferences:
		return "resolving"
	case done:
		return "done"
	default:
		return ""
	}
}

// jump is an edge whose target is still a raw address.
type jump struct {
	label  bytecode.EdgeLabel
	target int
}

// pending is a block under construction.
type pending struct {
	start   int
	instrs  []bytecode.Instruction
	edges   []jump
	region  int // index into builder.regions, or -1
	payload bool
	last    op.Class
}

type builder struct {
	conf    Config
	log     zerolog.Logger
	phase   phase
	instrs  []bytecode.Instruction
	regions []bytecode.CatchRegion

	leaders map[int]bool
	jumps   map[int][]jump
	blocks  []*pending
}

// Build partitions instrs into basic blocks and resolves every edge.
// regions must be sorted by start address and must not overlap.
func Build(instrs []bytecode.Instruction, regions []bytecode.CatchRegion, conf *Config) (*bytecode.Function, error) {
	b := newBuilder(instrs, regions, conf)
	fn, err := b.run()
	if err != nil {
		return nil, b.fail(err)
	}
	return fn, nil
}

// BuildLines tokenizes the code lines of one method with dis.Tokenize and
// builds its graph.
func BuildLines(lines []string, regions []bytecode.CatchRegion, conf *Config) (*bytecode.Function, error) {
	instrs, err := dis.Tokenize(lines)
	if err != nil {
		var name string
		if conf != nil {
			name = conf.Name
		}
		return nil, annotate(err, name)
	}
	return Build(instrs, regions, conf)
}

func newBuilder(instrs []bytecode.Instruction, regions []bytecode.CatchRegion, conf *Config) *builder {
	b := &builder{
		instrs:  instrs,
		regions: regions,
		leaders: map[int]bool{},
		jumps:   map[int][]jump{},
	}
	if conf != nil {
		b.conf = *conf
	}
	if b.conf.Logger != nil {
		b.log = *b.conf.Logger
	} else {
		b.log = log.Logger
	}
	b.log = b.log.With().Str("func", b.conf.Name).Logger()
	return b
}

func (b *builder) run() (*bytecode.Function, error) {
	b.phase = seedingLeaders
	if err := b.seedLeaders(); err != nil {
		return nil, err
	}
	b.phase = scanningJumps
	if err := b.scanJumps(); err != nil {
		return nil, err
	}
	b.log.Debug().Int("leaders", len(b.leaders)).Int("branches", len(b.jumps)).Msg("scanned jumps")

	b.phase = partitioning
	if err := b.partition(); err != nil {
		return nil, err
	}
	b.phase = resolvingReferences
	fn, err := b.resolve()
	if err != nil {
		return nil, err
	}
	b.phase = done
	b.log.Debug().Int("blocks", fn.BlockCount()).Int("instructions", len(b.instrs)).Msg("built control-flow graph")
	return fn, nil
}

func (b *builder) fail(err error) error {
	err = annotate(err, b.conf.Name)
	b.log.Debug().Err(err).Stringer("phase", b.phase).Msg("build failed")
	return err
}

// annotate records the function name on errors raised without one.
func annotate(err error, name string) error {
	if name == "" {
		return err
	}
	switch e := err.(type) {
	case *errors.FormatError:
		return e.In(name)
	case *errors.LookupError:
		return e.In(name)
	}
	return err
}

func (b *builder) seedLeaders() error {
	if len(b.instrs) == 0 {
		return errors.Formatf(errors.E1006, "method has no instructions")
	}
	for i, r := range b.regions {
		if r.Start >= r.End {
			return errors.Formatf(errors.E1008, "catch region %s is empty", r).At(int(r.Start))
		}
		if i > 0 && b.regions[i-1].End > r.Start {
			return errors.Formatf(errors.E1008, "catch region %s overlaps or precedes %s", r, b.regions[i-1]).
				At(int(r.Start))
		}
		seen := map[bytecode.CatchKey]bool{}
		for _, h := range r.Handlers {
			if seen[h.Key] {
				return errors.Formatf(errors.E1008, "catch region %s has two handlers for %s", r, h.Key).
					At(int(r.Start))
			}
			seen[h.Key] = true
			b.leaders[int(h.Target)] = true
		}
		b.leaders[int(r.Start)] = true
		b.leaders[int(r.End)] = true
	}
	return nil
}

// addJump records an edge and makes its target a leader.
func (b *builder) addJump(src int, label bytecode.EdgeLabel, target int) error {
	if target != bytecode.ExitAddress {
		if target < 0 || target > 0xffff {
			return errors.Lookupf(errors.E2001, target, "%s target %x is outside the method", label, target).At(src)
		}
		b.leaders[target] = true
	}
	for _, j := range b.jumps[src] {
		if j.label == label {
			return errors.Formatf(errors.E1004, "duplicate %s edge", label).At(src)
		}
	}
	b.jumps[src] = append(b.jumps[src], jump{label: label, target: target})
	return nil
}

func (b *builder) scanJumps() error {
	ended := true // the previous instruction ended its block
	last := op.Other
	lastAddr := 0
	sawPayload := false
	for _, in := range b.instrs {
		addr := int(in.Address)
		info := op.GetInfo(in.Opcode)

		if info.Class == op.Payload {
			if !sawPayload {
				b.leaders[addr] = true
			}
			sawPayload = true
			continue
		}
		if sawPayload {
			return errors.Formatf(errors.E1003, "%s follows payload data", in.Opcode).At(addr)
		}
		if ended {
			b.leaders[addr] = true
		}
		ended = info.Class.EndsBlock()
		last, lastAddr = info.Class, addr

		var err error
		switch info.Class {
		case op.Goto:
			var target int
			if target, err = branchTarget(in, info); err == nil {
				err = b.addJump(addr, bytecode.UnconditionalLabel, target)
			}
		case op.If:
			var target int
			if target, err = branchTarget(in, info); err == nil {
				err = b.addJump(addr, bytecode.TakenLabel, target)
			}
		case op.PackedSwitch, op.SparseSwitch:
			err = b.scanSwitch(in, info)
		case op.Throw:
			err = b.addJump(addr, bytecode.UnconditionalLabel, b.throwTarget(addr))
		case op.Return:
			err = b.addJump(addr, bytecode.UnconditionalLabel, bytecode.ExitAddress)
		}
		if err != nil {
			return err
		}
	}
	if !last.Diverts() {
		return errors.Formatf(errors.E1006, "method has no branch at the end").At(lastAddr).
			WithNote("the last instruction must be a goto, return or throw")
	}
	return nil
}

// throwTarget routes a throw to the wildcard handler of the first region
// enclosing addr, or to the exit. The thrown type is not matched against
// typed handlers.
func (b *builder) throwTarget(addr int) int {
	for _, r := range b.regions {
		if !r.Contains(addr) {
			continue
		}
		if target, ok := r.Lookup(bytecode.Wildcard()); ok {
			return int(target)
		}
		break
	}
	return bytecode.ExitAddress
}

func (b *builder) scanSwitch(in bytecode.Instruction, info op.Info) error {
	addr := int(in.Address)
	table, err := branchTarget(in, info)
	if err != nil {
		return err
	}
	if rel, ok := relativeComment(in.Operands); ok && addr+rel != table {
		return errors.Formatf(errors.E1005, "%s payload %04x does not match relative offset %+x", in.Opcode, table, rel).
			At(addr)
	}
	if b.conf.Switches == nil {
		return errors.Formatf(errors.E1009, "%s needs a switch table reader", in.Opcode).At(addr)
	}
	t, err := b.conf.Switches.ReadSwitchTable(b.conf.CodeOffset, uint32(table))
	if err != nil {
		if fe, ok := err.(*errors.FormatError); ok {
			return fe.At(addr)
		}
		return fmt.Errorf("reading %s payload for %04x: %w", in.Opcode, addr, err)
	}
	want := switchtab.Packed
	if info.Class == op.SparseSwitch {
		want = switchtab.Sparse
	}
	if t.Kind != 0 && t.Kind != want {
		return errors.Formatf(errors.E1004, "%s points at a %s payload", in.Opcode, t.Kind).At(addr)
	}
	b.log.Debug().Int("addr", addr).Int("table", table).Int("cases", t.Len()).Msg("decoded switch")
	for _, e := range t.Entries {
		if err := b.addJump(addr, bytecode.CaseLabel(e.Key), addr+int(e.Target)); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) partition() error {
	entry := &pending{start: bytecode.EntryAddress, region: -1}
	b.blocks = []*pending{entry}
	cur := entry
	cursor := 0
	for _, in := range b.instrs {
		addr := int(in.Address)
		if b.leaders[addr] {
			next := &pending{start: addr, region: -1, payload: true}
			b.link(cur, next)
			for cursor < len(b.regions) && addr >= int(b.regions[cursor].End) {
				cursor++
			}
			if cursor < len(b.regions) && b.regions[cursor].Contains(addr) {
				next.region = cursor
			}
			b.blocks = append(b.blocks, next)
			cur = next
		}
		if len(cur.edges) > 0 {
			return errors.Formatf(errors.E1007, "%s follows a branch in %s", in.Opcode, bytecode.BlockName(cur.start)).
				At(addr)
		}
		cur.instrs = append(cur.instrs, in)
		if class := op.Classify(in.Opcode); class != op.Payload {
			cur.payload = false
			cur.last = class
		}
		if js, ok := b.jumps[addr]; ok {
			cur.edges = append([]jump(nil), js...)
		}
	}

	for _, p := range b.blocks {
		if p.payload || len(p.edges) > 0 {
			continue
		}
		addr := p.start
		if n := len(p.instrs); n > 0 {
			addr = int(p.instrs[n-1].Address)
		}
		return errors.Formatf(errors.E1007, "%s has no successor", bytecode.BlockName(p.start)).At(addr)
	}
	return nil
}

// link adds the fallthrough edge from prev into next when control can run
// off the end of prev.
func (b *builder) link(prev, next *pending) {
	if prev.start != bytecode.EntryAddress {
		if prev.payload || prev.last.Diverts() {
			return
		}
	}
	prev.edges = append(prev.edges, jump{label: bytecode.FallthroughLabel, target: next.start})
}

func (b *builder) resolve() (*bytecode.Function, error) {
	b.blocks = append(b.blocks, &pending{start: bytecode.ExitAddress, region: -1})
	lookup := make(map[int]bytecode.BlockID, len(b.blocks))
	for i, p := range b.blocks {
		lookup[p.start] = bytecode.BlockID(i)
	}

	catches := make([][]bytecode.CatchEdge, len(b.regions))
	for i, r := range b.regions {
		for _, h := range r.Handlers {
			id, ok := lookup[int(h.Target)]
			if !ok {
				return nil, errors.Lookupf(errors.E2002, int(h.Target),
					"%s handler of %s at %04x is not an instruction", h.Key, r, h.Target).At(int(r.Start))
			}
			catches[i] = append(catches[i], bytecode.CatchEdge{Key: h.Key, Target: id})
		}
	}

	params := make([]bytecode.BlockParams, len(b.blocks))
	for i, p := range b.blocks {
		src := p.start
		if n := len(p.instrs); n > 0 {
			src = int(p.instrs[n-1].Address)
		}
		var edges []bytecode.Edge
		for _, j := range p.edges {
			id, ok := lookup[j.target]
			if !ok {
				return nil, errors.Lookupf(errors.E2001, j.target,
					"%s target %04x is not an instruction", j.label, j.target).At(src)
			}
			if b.blocks[id].payload {
				return nil, errors.Formatf(errors.E1011, "%s edge targets payload data at %04x", j.label, j.target).
					At(src)
			}
			edges = append(edges, bytecode.Edge{Label: j.label, Target: id})
		}
		params[i] = bytecode.BlockParams{
			Start:        p.start,
			Instructions: p.instrs,
			Successors:   edges,
		}
		if p.region >= 0 {
			params[i].Catches = catches[p.region]
		}
	}
	return bytecode.NewFunction(bytecode.FunctionParams{Name: b.conf.Name, Blocks: params}), nil
}
