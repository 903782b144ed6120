package render

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/deepnoodle-ai/dexcfg/bytecode"
)

// Graph is the JSON view of a function. Blocks refer to each other by
// name.
type Graph struct {
	Name   string      `json:"name,omitempty"`
	Blocks []GraphNode `json:"blocks"`
}

// GraphNode is the JSON view of a block.
type GraphNode struct {
	Name         string             `json:"name"`
	Start        int                `json:"start"`
	Instructions []GraphInstruction `json:"instructions,omitempty"`
	Successors   []GraphEdge        `json:"successors,omitempty"`
	Catches      []GraphCatch       `json:"catches,omitempty"`
}

type GraphInstruction struct {
	Address  string `json:"address"`
	Opcode   string `json:"opcode"`
	Operands string `json:"operands,omitempty"`
}

type GraphEdge struct {
	Label  string `json:"label"`
	Target string `json:"target"`
}

type GraphCatch struct {
	Exception string `json:"exception"`
	Target    string `json:"target"`
}

// NewGraph builds the JSON view of fn.
func NewGraph(fn *bytecode.Function) *Graph {
	g := &Graph{Name: fn.Name()}
	for _, b := range blocks(fn) {
		node := GraphNode{Name: b.Name(), Start: b.Start()}
		for i := 0; i < b.InstructionCount(); i++ {
			in := b.InstructionAt(i)
			node.Instructions = append(node.Instructions, GraphInstruction{
				Address:  fmt.Sprintf("%04x", in.Address),
				Opcode:   in.Opcode,
				Operands: in.Operands,
			})
		}
		for i := 0; i < b.SuccessorCount(); i++ {
			e := b.SuccessorAt(i)
			node.Successors = append(node.Successors, GraphEdge{
				Label:  e.Label.String(),
				Target: fn.BlockAt(e.Target).Name(),
			})
		}
		for i := 0; i < b.CatchCount(); i++ {
			c := b.CatchAt(i)
			node.Catches = append(node.Catches, GraphCatch{
				Exception: c.Key.String(),
				Target:    fn.BlockAt(c.Target).Name(),
			})
		}
		g.Blocks = append(g.Blocks, node)
	}
	return g
}

// JSON writes fn as an indented JSON document.
func JSON(w io.Writer, fn *bytecode.Function) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(NewGraph(fn))
}
