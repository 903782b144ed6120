package bytecode

import "sort"

// Function is the control-flow graph of one method: an arena of basic
// blocks addressed by BlockID. It is immutable after creation and safe for
// concurrent use.
//
// By convention the builder places func_entry first, the real blocks in
// ascending address order next, and func_exit last.
type Function struct {
	name         string
	blocks       []*Block
	entry        BlockID
	exit         BlockID
	byAddress    []BlockID // real blocks sorted by start address
	predecessors [][]BlockID
}

// FunctionParams contains parameters for creating a new Function.
type FunctionParams struct {
	Name   string
	Blocks []BlockParams
}

// NewFunction creates a new immutable Function. Block IDs are the indexes of
// params.Blocks. Edge and catch targets must already be valid IDs.
func NewFunction(params FunctionParams) *Function {
	fn := &Function{
		name:         params.Name,
		blocks:       make([]*Block, len(params.Blocks)),
		entry:        -1,
		exit:         -1,
		predecessors: make([][]BlockID, len(params.Blocks)),
	}
	for i, p := range params.Blocks {
		id := BlockID(i)
		name := p.Name
		if name == "" {
			name = BlockName(p.Start)
		}
		fn.blocks[i] = &Block{
			id:           id,
			name:         name,
			start:        p.Start,
			instructions: copyInstructions(p.Instructions),
			successors:   copyEdges(p.Successors),
			catches:      copyCatchEdges(p.Catches),
		}
		switch p.Start {
		case EntryAddress:
			fn.entry = id
		case ExitAddress:
			fn.exit = id
		default:
			fn.byAddress = append(fn.byAddress, id)
		}
	}
	sort.SliceStable(fn.byAddress, func(i, j int) bool {
		return fn.blocks[fn.byAddress[i]].start < fn.blocks[fn.byAddress[j]].start
	})
	for _, b := range fn.blocks {
		seen := map[BlockID]bool{}
		for _, e := range b.successors {
			if seen[e.Target] {
				continue
			}
			seen[e.Target] = true
			fn.predecessors[e.Target] = append(fn.predecessors[e.Target], b.id)
		}
	}
	return fn
}

// Name returns the name the function was built with.
func (f *Function) Name() string {
	return f.name
}

// BlockCount returns the number of blocks, sentinels included.
func (f *Function) BlockCount() int {
	return len(f.blocks)
}

// BlockAt returns the block with the given ID.
func (f *Function) BlockAt(id BlockID) *Block {
	return f.blocks[id]
}

// Entry returns the func_entry sentinel.
func (f *Function) Entry() *Block {
	if f.entry < 0 {
		return nil
	}
	return f.blocks[f.entry]
}

// Exit returns the func_exit sentinel.
func (f *Function) Exit() *Block {
	if f.exit < 0 {
		return nil
	}
	return f.blocks[f.exit]
}

// BlockByAddress returns the real block starting exactly at addr.
func (f *Function) BlockByAddress(addr int) (*Block, bool) {
	i := sort.Search(len(f.byAddress), func(i int) bool {
		return f.blocks[f.byAddress[i]].start >= addr
	})
	if i < len(f.byAddress) && f.blocks[f.byAddress[i]].start == addr {
		return f.blocks[f.byAddress[i]], true
	}
	return nil, false
}

// BlockContaining returns the real block whose instructions include addr.
func (f *Function) BlockContaining(addr int) (*Block, bool) {
	i := sort.Search(len(f.byAddress), func(i int) bool {
		return f.blocks[f.byAddress[i]].start > addr
	})
	if i == 0 {
		return nil, false
	}
	b := f.blocks[f.byAddress[i-1]]
	for _, instr := range b.instructions {
		if int(instr.Address) == addr {
			return b, true
		}
	}
	return nil, false
}

// Successor returns the block reached from b along the edge with label.
func (f *Function) Successor(b *Block, label EdgeLabel) (*Block, bool) {
	id, ok := b.Successor(label)
	if !ok {
		return nil, false
	}
	return f.blocks[id], true
}

// PredecessorCount returns the number of distinct blocks with an edge into id.
func (f *Function) PredecessorCount(id BlockID) int {
	return len(f.predecessors[id])
}

// PredecessorAt returns the predecessor of id at the given index.
func (f *Function) PredecessorAt(id BlockID, index int) BlockID {
	return f.predecessors[id][index]
}

// InstructionCount returns the number of instructions across all blocks.
func (f *Function) InstructionCount() int {
	n := 0
	for _, b := range f.blocks {
		n += len(b.instructions)
	}
	return n
}
