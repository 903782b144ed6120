package main

import (
	"context"
	"io"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/deepnoodle-ai/dexcfg/cfg"
	"github.com/deepnoodle-ai/dexcfg/dexdump"
	"github.com/deepnoodle-ai/dexcfg/switchtab"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func isDump(path string) bool {
	switch filepath.Ext(path) {
	case dexdump.DumpExt, ".txt":
		return true
	}
	return false
}

func getDumpOptions(v *viper.Viper) *dexdump.Options {
	return &dexdump.Options{
		Binary:  v.GetString("dexdump"),
		Timeout: v.GetDuration("timeout"),
		Force:   v.GetBool("force"),
	}
}

func loadDump(ctx context.Context, v *viper.Viper, input string) (*dexdump.Dump, error) {
	return dexdump.Load(ctx, input, getDumpOptions(v))
}

// getSwitchReader opens the dex that switch payloads are read from: --dex
// if given, else the input itself unless it is a dump. Without one, methods
// containing a switch fail to build.
func getSwitchReader(v *viper.Viper, input string) (switchtab.Reader, io.Closer, error) {
	path := v.GetString("dex")
	if path == "" && !isDump(input) {
		path = input
	}
	if path == "" {
		return nil, nopCloser{}, nil
	}
	f, err := switchtab.Open(path)
	if err != nil {
		return nil, nil, err
	}
	cache, err := switchtab.NewCache(f, v.GetInt("cache-size"))
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return cache, f, nil
}

// getBuildConfig returns the settings shared by every build of a run.
func getBuildConfig(v *viper.Viper, input string) (*cfg.Config, io.Closer, error) {
	reader, closer, err := getSwitchReader(v, input)
	if err != nil {
		return nil, nil, err
	}
	return &cfg.Config{Switches: reader}, closer, nil
}
