package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/deepnoodle-ai/dexcfg/bytecode"
)

// maxInstrShown caps the instructions listed in a node label.
const maxInstrShown = 20

var dotEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// dotLabel is the short edge label used in digraphs.
func dotLabel(l bytecode.EdgeLabel) string {
	switch l.Kind {
	case bytecode.Taken:
		return "T"
	case bytecode.Fallthrough:
		return "F"
	case bytecode.SwitchCase:
		return l.String()
	default:
		return ""
	}
}

// DOT writes fn as a Graphviz digraph. Handler edges are dashed.
func DOT(w io.Writer, fn *bytecode.Function) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "digraph \"%s\" {\n", dotEscaper.Replace(fn.Name()))
	sb.WriteString("  rankdir=TB;\n")
	sb.WriteString("  node [shape=box, fontname=\"Courier\"];\n")

	for _, b := range blocks(fn) {
		if b.IsEntry() || b.IsExit() {
			fmt.Fprintf(&sb, "  %s [shape=oval];\n", b.Name())
		} else {
			label := b.Name() + `\l`
			for i := 0; i < b.InstructionCount(); i++ {
				if i == maxInstrShown {
					label += `...\l`
					break
				}
				in := b.InstructionAt(i)
				label += fmt.Sprintf("%04x: %s", in.Address, dotEscaper.Replace(instructionText(in))) + `\l`
			}
			fmt.Fprintf(&sb, "  %s [label=\"%s\"];\n", b.Name(), label)
		}

		for i := 0; i < b.SuccessorCount(); i++ {
			e := b.SuccessorAt(i)
			fmt.Fprintf(&sb, "  %s -> %s", b.Name(), fn.BlockAt(e.Target).Name())
			if l := dotLabel(e.Label); l != "" {
				fmt.Fprintf(&sb, " [label=\"%s\"]", l)
			}
			sb.WriteString(";\n")
		}
		for i := 0; i < b.CatchCount(); i++ {
			c := b.CatchAt(i)
			fmt.Fprintf(&sb, "  %s -> %s [label=\"%s\", style=dashed];\n",
				b.Name(), fn.BlockAt(c.Target).Name(), dotEscaper.Replace(c.Key.String()))
		}
	}
	sb.WriteString("}\n")
	_, err := io.WriteString(w, sb.String())
	return err
}
