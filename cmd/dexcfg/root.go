package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/deepnoodle-ai/dexcfg/dexdump"
	"github.com/deepnoodle-ai/dexcfg/switchtab"
)

const (
	envPrefix  = "DEXCFG"
	configName = ".dexcfg"
)

func newRootCmd() *cobra.Command {
	v := viper.New()
	root := &cobra.Command{
		Use:   "dexcfg",
		Short: "Build control-flow graphs of Dalvik methods",
		Long: `dexcfg reads the disassembly printed by "dexdump -d" and splits each
method into basic blocks linked by control-flow and exception edges.

Inputs ending in .disass or .txt are read as dumps. Any other input (a .dex,
.apk or .jar) is disassembled with dexdump first and the dump is cached next
to it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			if err := initConfig(v); err != nil {
				return err
			}
			return initLogging(v, cmd.ErrOrStderr())
		},
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file (default $HOME/.dexcfg.yaml)")
	pf.Bool("no-color", false, "disable colored output")
	pf.String("log-level", "warn", "log level (trace, debug, info, warn, error)")
	pf.String("dexdump", dexdump.DefaultBinary, "dexdump executable")
	pf.Duration("timeout", dexdump.DefaultTimeout, "time limit for one dexdump run")
	pf.Bool("force", false, "disassemble even when the cached dump is up to date")
	pf.String("dex", "", "dex or apk to read switch tables from when the input is a dump")
	pf.Int("cache-size", switchtab.DefaultCacheSize, "number of decoded switch tables kept in memory")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root.AddCommand(
		newBlocksCmd(v),
		newScanCmd(v),
		newTokensCmd(v),
		newVersionCmd(v),
	)
	return root
}

// initConfig reads the file named by --config, or $HOME/.dexcfg.yaml if it
// exists.
func initConfig(v *viper.Viper) error {
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config %s: %w", path, err)
		}
		return nil
	}
	home, err := homedir.Dir()
	if err != nil {
		return nil
	}
	v.AddConfigPath(home)
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

func initLogging(v *viper.Viper, w io.Writer) error {
	level, err := zerolog.ParseLevel(v.GetString("log-level"))
	if err != nil {
		return fmt.Errorf("invalid log level %q", v.GetString("log-level"))
	}
	noColor := v.GetBool("no-color") || !isTerminal(w)
	if v.GetBool("no-color") {
		color.NoColor = true
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    noColor,
		TimeFormat: time.Kitchen,
	}).Level(level).With().Timestamp().Logger()
	return nil
}
