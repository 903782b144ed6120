package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/deepnoodle-ai/dexcfg/dexdump"
	"github.com/deepnoodle-ai/dexcfg/scan"
)

type scanEntry struct {
	Method       string `json:"method"`
	Blocks       int    `json:"blocks"`
	Instructions int    `json:"instructions"`
}

type scanFailure struct {
	Method string `json:"method"`
	Error  string `json:"error"`
}

type scanSummary struct {
	Methods  int           `json:"methods"`
	Failed   int           `json:"failed"`
	Elapsed  string        `json:"elapsed"`
	Built    []scanEntry   `json:"built"`
	Failures []scanFailure `json:"failures,omitempty"`
}

func newScanCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <input>",
		Short: "Build every method and report the ones that fail",
		Long: `Build the control-flow graph of every method with code. A method that
fails to build is reported and skipped.`,
		Example: `  dexcfg scan app.apk
  dexcfg scan classes.disass --class Lcom/example/ -j 8 -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := strings.ToLower(v.GetString("output"))
			if output != "text" && output != "json" {
				return fmt.Errorf("unknown output format %q (want text or json)", output)
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

			opts := &scan.Options{Workers: v.GetInt("workers")}
			if prefix := v.GetString("class"); prefix != "" {
				opts.Filter = func(m *dexdump.Method) bool {
					return strings.HasPrefix(m.Class, prefix)
				}
			}
			report, err := scan.Run(cmd.Context(), dump, conf, opts)
			if err != nil {
				return err
			}

			if output == "json" {
				if err := writeJSON(v, cmd.OutOrStdout(), summarize(report)); err != nil {
					return err
				}
			} else {
				printReport(cmd, report)
				if report.Err != nil {
					fmt.Fprint(cmd.ErrOrStderr(), formatError(report.Err, useColor(v, cmd.ErrOrStderr())))
				}
			}
			if report.Failed() > 0 && v.GetBool("strict") {
				return fmt.Errorf("%d of %d methods failed to build", report.Failed(), report.Total())
			}
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "text", "output format (text, json)")
	cmd.Flags().IntP("workers", "j", 0, "concurrent builds (default GOMAXPROCS)")
	cmd.Flags().String("class", "", "only build methods of classes with this descriptor prefix")
	cmd.Flags().Bool("strict", false, "exit with an error if any method fails")
	cmd.RegisterFlagCompletionFunc("output", cobra.FixedCompletions([]string{"text", "json"}, cobra.ShellCompDirectiveNoFileComp))
	return cmd
}

func summarize(r *scan.Report) *scanSummary {
	s := &scanSummary{
		Methods: r.Total(),
		Failed:  r.Failed(),
		Elapsed: r.Elapsed.String(),
		Built:   []scanEntry{},
	}
	for _, res := range r.Built {
		s.Built = append(s.Built, scanEntry{
			Method:       res.Method.Signature(),
			Blocks:       res.Function.BlockCount(),
			Instructions: res.Function.InstructionCount(),
		})
	}
	for _, f := range r.Failures {
		s.Failures = append(s.Failures, scanFailure{Method: f.Method.Signature(), Error: f.Err.Error()})
	}
	return s
}

func printReport(cmd *cobra.Command, r *scan.Report) {
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"Method", "Blocks", "Instructions"})
	table.SetAutoWrapText(false)
	for _, res := range r.Built {
		table.Append([]string{
			res.Method.Signature(),
			strconv.Itoa(res.Function.BlockCount()),
			strconv.Itoa(res.Function.InstructionCount()),
		})
	}
	table.SetFooter([]string{
		fmt.Sprintf("%d built, %d failed", len(r.Built), r.Failed()),
		"",
		"",
	})
	table.Render()
}
