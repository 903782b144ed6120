package main

import (
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/deepnoodle-ai/dexcfg/bytecode"
	"github.com/deepnoodle-ai/dexcfg/dexdump"
	"github.com/deepnoodle-ai/dexcfg/render"
)

func newBlocksCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blocks <input> <method>...",
		Short: "Print the control-flow graph of methods",
		Long: `Print the basic blocks and edges of each named method.

Methods are named the way dexdump prints them, for example
"Lcom/example/Foo;.bar:(I)V".`,
		Example: `  dexcfg blocks app.apk 'Lcom/example/Foo;.bar:(I)V'
  dexcfg blocks classes.disass --dex classes.dex -o dot 'LFoo;.run:()V' | dot -Tsvg`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := render.ParseFormat(v.GetString("output"))
			if err != nil {
				return err
			}
			for _, sig := range args[1:] {
				if _, _, _, err := dexdump.ParseSignature(sig); err != nil {
					return err
				}
			}
			dump, err := loadDump(cmd.Context(), v, args[0])
			if err != nil {
				return err
			}
			conf, closer, err := getBuildConfig(v, args[0])
			if err != nil {
				return err
			}
			defer closer.Close()

			var errs *multierror.Error
			for i, sig := range args[1:] {
				m, err := dump.Lookup(sig)
				if err != nil {
					errs = multierror.Append(errs, err)
					continue
				}
				fn, err := m.Build(conf)
				if err != nil {
					errs = multierror.Append(errs, err)
					continue
				}
				if i > 0 && format != render.FormatJSON {
					fmt.Fprintln(cmd.OutOrStdout())
				}
				if err := writeFunction(v, cmd.OutOrStdout(), format, fn); err != nil {
					return err
				}
			}
			return errs.ErrorOrNil()
		},
	}
	cmd.Flags().StringP("output", "o", string(render.FormatText), "output format (text, json, dot)")
	cmd.RegisterFlagCompletionFunc("output", cobra.FixedCompletions(outputFormatsCompletion, cobra.ShellCompDirectiveNoFileComp))
	return cmd
}

func writeFunction(v *viper.Viper, w io.Writer, format render.Format, fn *bytecode.Function) error {
	if format == render.FormatJSON {
		return writeJSON(v, w, render.NewGraph(fn))
	}
	return render.Write(w, format, fn)
}
