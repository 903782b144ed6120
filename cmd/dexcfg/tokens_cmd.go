package main

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/deepnoodle-ai/dexcfg/dis"
)

func newTokensCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens <input> <method>",
		Short: "Print the instructions of a method as the builder sees them",
		Long: `Print the tokenized instruction stream of a method, including switch and
array payloads, with the source line of each instruction when the dump has
a line table.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dump, err := loadDump(cmd.Context(), v, args[0])
			if err != nil {
				return err
			}
			m, err := dump.Lookup(args[1])
			if err != nil {
				return err
			}
			instrs, err := m.Instructions(dis.WithPayloads())
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"Addr", "Opcode", "Operands", "Line"})
			table.SetAutoWrapText(false)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			for _, in := range instrs {
				line := ""
				if n, ok := m.LineAt(int(in.Address)); ok {
					line = strconv.Itoa(n)
				}
				table.Append([]string{fmt.Sprintf("%04x", in.Address), in.Opcode, in.Operands, line})
			}
			table.Render()
			return nil
		},
	}
	return cmd
}
