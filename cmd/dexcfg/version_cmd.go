package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type versionInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	Go      string `json:"go"`
}

func newVersionCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := versionInfo{Version: version, Commit: commit, Date: date, Go: runtime.Version()}
			switch v.GetString("output") {
			case "json":
				return writeJSON(v, cmd.OutOrStdout(), info)
			case "", "text":
				fmt.Fprintf(cmd.OutOrStdout(), "dexcfg %s (commit %s, built %s, %s)\n", info.Version, info.Commit, info.Date, info.Go)
				return nil
			default:
				return fmt.Errorf("unknown output format %q (want text or json)", v.GetString("output"))
			}
		},
	}
	cmd.Flags().StringP("output", "o", "text", "output format (text, json)")
	cmd.RegisterFlagCompletionFunc("output", cobra.FixedCompletions([]string{"text", "json"}, cobra.ShellCompDirectiveNoFileComp))
	return cmd
}
