package bytecode

import "fmt"

// BlockID is the stable index of a block within its Function.
type BlockID int

// Virtual start addresses of the sentinel blocks.
const (
	EntryAddress = -1
	ExitAddress  = -2
)

// EdgeKind classifies an outgoing edge.
type EdgeKind uint8

const (
	// Fallthrough is taken when control runs off the end of the block.
	Fallthrough EdgeKind = iota
	// Unconditional is the edge of a goto, return or throw.
	Unconditional
	// Taken is the edge of a conditional branch whose condition held.
	Taken
	// SwitchCase is one entry of a switch table; the label carries the key.
	SwitchCase
)

// String returns a string representation of the edge kind.
func (k EdgeKind) String() string {
	switch k {
	case Fallthrough:
		return "fallthrough"
	case Unconditional:
		return "unconditional"
	case Taken:
		return "taken"
	case SwitchCase:
		return "case"
	default:
		return ""
	}
}

// EdgeLabel identifies an edge within a block's successor set. Value is
// only meaningful for SwitchCase.
type EdgeLabel struct {
	Kind  EdgeKind
	Value int32
}

// Label constructors.
var (
	FallthroughLabel   = EdgeLabel{Kind: Fallthrough}
	UnconditionalLabel = EdgeLabel{Kind: Unconditional}
	TakenLabel         = EdgeLabel{Kind: Taken}
)

// CaseLabel returns the label of the switch entry for key.
func CaseLabel(key int32) EdgeLabel {
	return EdgeLabel{Kind: SwitchCase, Value: key}
}

// String returns a string representation of the label.
func (l EdgeLabel) String() string {
	if l.Kind == SwitchCase {
		return fmt.Sprintf("case %d", l.Value)
	}
	return l.Kind.String()
}

// Edge is a resolved outgoing control-flow edge.
type Edge struct {
	Label  EdgeLabel
	Target BlockID
}

// CatchEdge is a resolved exception handler of a block.
type CatchEdge struct {
	Key    CatchKey
	Target BlockID
}

// Block is a basic block: a maximal straight-line run of instructions.
// It is immutable after creation.
type Block struct {
	id           BlockID
	name         string
	start        int
	instructions []Instruction
	successors   []Edge
	catches      []CatchEdge
}

// BlockParams contains parameters for creating a Block.
type BlockParams struct {
	Name         string
	Start        int
	Instructions []Instruction
	Successors   []Edge
	Catches      []CatchEdge
}

// BlockName returns the conventional name of a block starting at addr.
func BlockName(addr int) string {
	switch addr {
	case EntryAddress:
		return "func_entry"
	case ExitAddress:
		return "func_exit"
	}
	return fmt.Sprintf("block_%04x", addr)
}

// ID returns the index of the block within its function.
func (b *Block) ID() BlockID {
	return b.id
}

// Name returns the block name, e.g. "block_0004".
func (b *Block) Name() string {
	return b.name
}

// Start returns the address of the first instruction, or EntryAddress /
// ExitAddress for the sentinels.
func (b *Block) Start() int {
	return b.start
}

// IsEntry returns true for the func_entry sentinel.
func (b *Block) IsEntry() bool {
	return b.start == EntryAddress
}

// IsExit returns true for the func_exit sentinel.
func (b *Block) IsExit() bool {
	return b.start == ExitAddress
}

// InstructionCount returns the number of instructions.
func (b *Block) InstructionCount() int {
	return len(b.instructions)
}

// InstructionAt returns the instruction at the given index.
func (b *Block) InstructionAt(index int) Instruction {
	return b.instructions[index]
}

// Last returns the final instruction. The sentinels have none.
func (b *Block) Last() (Instruction, bool) {
	if len(b.instructions) == 0 {
		return Instruction{}, false
	}
	return b.instructions[len(b.instructions)-1], true
}

// SuccessorCount returns the number of outgoing edges.
func (b *Block) SuccessorCount() int {
	return len(b.successors)
}

// SuccessorAt returns the outgoing edge at the given index.
func (b *Block) SuccessorAt(index int) Edge {
	return b.successors[index]
}

// Successor returns the target of the edge with the given label.
func (b *Block) Successor(label EdgeLabel) (BlockID, bool) {
	for _, e := range b.successors {
		if e.Label == label {
			return e.Target, true
		}
	}
	return 0, false
}

// CatchCount returns the number of active exception handlers.
func (b *Block) CatchCount() int {
	return len(b.catches)
}

// CatchAt returns the handler at the given index.
func (b *Block) CatchAt(index int) CatchEdge {
	return b.catches[index]
}

// Catch returns the handler block for key.
func (b *Block) Catch(key CatchKey) (BlockID, bool) {
	for _, c := range b.catches {
		if c.Key == key {
			return c.Target, true
		}
	}
	return 0, false
}

// String returns the block name.
func (b *Block) String() string {
	return b.name
}
