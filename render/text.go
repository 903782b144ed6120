package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/deepnoodle-ai/dexcfg/bytecode"
)

// Text writes fn as a table with one row per instruction. Successors and
// handlers are listed on the first row of each block.
func Text(w io.Writer, fn *bytecode.Function) error {
	if fn.Name() != "" {
		if _, err := fmt.Fprintf(w, "%s\n", fn.Name()); err != nil {
			return err
		}
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Block", "Addr", "Instruction", "Successors", "Catches"})
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, b := range blocks(fn) {
		succ := successorSummary(fn, b)
		catches := catchSummary(fn, b)
		if b.InstructionCount() == 0 {
			table.Append([]string{b.Name(), "", "", succ, catches})
			continue
		}
		for i := 0; i < b.InstructionCount(); i++ {
			in := b.InstructionAt(i)
			row := []string{"", fmt.Sprintf("%04x", in.Address), instructionText(in), "", ""}
			if i == 0 {
				row[0], row[3], row[4] = b.Name(), succ, catches
			}
			table.Append(row)
		}
	}
	table.Render()
	return nil
}

func successorSummary(fn *bytecode.Function, b *bytecode.Block) string {
	parts := make([]string, b.SuccessorCount())
	for i := range parts {
		e := b.SuccessorAt(i)
		parts[i] = e.Label.String() + " " + fn.BlockAt(e.Target).Name()
	}
	return strings.Join(parts, ", ")
}

func catchSummary(fn *bytecode.Function, b *bytecode.Block) string {
	parts := make([]string, b.CatchCount())
	for i := range parts {
		c := b.CatchAt(i)
		parts[i] = c.Key.String() + " " + fn.BlockAt(c.Target).Name()
	}
	return strings.Join(parts, ", ")
}
