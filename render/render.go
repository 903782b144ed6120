// Package render prints control-flow graphs as a text table, as JSON or as
// a Graphviz digraph.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/deepnoodle-ai/dexcfg/bytecode"
)

// Format selects a rendering.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatDOT  Format = "dot"
)

// Formats lists the supported renderings.
var Formats = []Format{FormatText, FormatJSON, FormatDOT}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown output format %q (want text, json or dot)", s)
}

// Write renders fn to w in the given format.
func Write(w io.Writer, f Format, fn *bytecode.Function) error {
	switch f {
	case FormatText:
		return Text(w, fn)
	case FormatJSON:
		return JSON(w, fn)
	case FormatDOT:
		return DOT(w, fn)
	default:
		return fmt.Errorf("unknown output format %q", f)
	}
}

// blocks returns the blocks of fn in arena order.
func blocks(fn *bytecode.Function) []*bytecode.Block {
	out := make([]*bytecode.Block, fn.BlockCount())
	for i := range out {
		out[i] = fn.BlockAt(bytecode.BlockID(i))
	}
	return out
}

func instructionText(in bytecode.Instruction) string {
	if in.Operands == "" {
		return in.Opcode
	}
	return in.Opcode + " " + in.Operands
}
